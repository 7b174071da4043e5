//go:build integration

package db

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shandysiswandi/otpgate/internal/identity/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

func newTestDB(t *testing.T) (*DB, *pgxpool.Pool) {
	t.Helper()
	ctx := context.Background()

	ctr, err := postgres.Run(ctx, "postgres:17-alpine",
		postgres.WithDatabase("otpgate"),
		postgres.WithUsername("otpgate"),
		postgres.WithPassword("otpgate"),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, Migrate(ctx, pool))

	return NewDB(pool, instrument.NewNoop()), pool
}

func issue(t *testing.T, s *DB, id int64, email string, typ entity.OTPType, code string, now time.Time) {
	t.Helper()

	require.NoError(t, s.IssueOTP(context.Background(), entity.OTP{
		ID:        id,
		Email:     email,
		Code:      code,
		Type:      typ,
		ExpiresAt: now.Add(typ.TTL()),
		CreatedAt: now,
	}))
}

func countOTPs(t *testing.T, pool *pgxpool.Pool, email string, typ entity.OTPType) int {
	t.Helper()

	var n int
	err := pool.QueryRow(context.Background(),
		`SELECT COUNT(*) FROM identity_otps WHERE email = $1 AND type = $2`, email, typ).Scan(&n)
	require.NoError(t, err)
	return n
}

func TestDB_OTPLifecycle(t *testing.T) {
	s, pool := newTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)
	email := "a@x.com"

	issue(t, s, 1, email, entity.OTPTypeLoginVerification, "h-123456", now)
	issue(t, s, 2, email, entity.OTPTypeLoginVerification, "h-654321", now)
	assert.Equal(t, 1, countOTPs(t, pool, email, entity.OTPTypeLoginVerification))

	res, err := s.ConsumeOTP(ctx, email, entity.OTPTypeLoginVerification, "h-123456", now)
	require.NoError(t, err)
	assert.False(t, res.Consumed)
	assert.Equal(t, entity.RejectReasonCodeMismatch, res.Reason)
	assert.EqualValues(t, 1, res.OTP.Attempts)

	res, err = s.ConsumeOTP(ctx, email, entity.OTPTypeLoginVerification, "h-654321", now.Add(9*time.Minute))
	require.NoError(t, err)
	assert.True(t, res.Consumed)
	assert.EqualValues(t, 2, res.OTP.ID)

	res, err = s.ConsumeOTP(ctx, email, entity.OTPTypeLoginVerification, "h-654321", now.Add(9*time.Minute))
	require.NoError(t, err)
	assert.False(t, res.Consumed)
	assert.Equal(t, entity.RejectReasonNotFound, res.Reason)
}

func TestDB_ConsumeOTP_AttemptsExhausted(t *testing.T) {
	s, _ := newTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()
	email := "b@x.com"

	issue(t, s, 10, email, entity.OTPTypeEmailVerification, "good", now)

	for i := 1; i <= entity.MaxOTPAttempts; i++ {
		res, err := s.ConsumeOTP(ctx, email, entity.OTPTypeEmailVerification, "bad", now)
		require.NoError(t, err)
		assert.EqualValues(t, i, res.OTP.Attempts)
	}

	res, err := s.ConsumeOTP(ctx, email, entity.OTPTypeEmailVerification, "good", now)
	require.NoError(t, err)
	assert.False(t, res.Consumed)
	assert.Equal(t, entity.RejectReasonAttemptsExhausted, res.Reason)
	assert.EqualValues(t, entity.MaxOTPAttempts, res.OTP.Attempts)
}

func TestDB_ConsumeOTP_ExpiredStillPenalized(t *testing.T) {
	s, _ := newTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()
	email := "c@x.com"

	issue(t, s, 20, email, entity.OTPTypePasswordReset, "good", now)

	res, err := s.ConsumeOTP(ctx, email, entity.OTPTypePasswordReset, "good", now.Add(16*time.Minute))
	require.NoError(t, err)
	assert.False(t, res.Consumed)
	assert.Equal(t, entity.RejectReasonExpired, res.Reason)
	assert.EqualValues(t, 1, res.OTP.Attempts)
}

func TestDB_ConsumeOTP_Concurrent(t *testing.T) {
	s, _ := newTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()
	email := "d@x.com"

	issue(t, s, 30, email, entity.OTPTypeLoginVerification, "good", now)

	const workers = 8
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		consumed int
	)
	for range workers {
		wg.Go(func() {
			res, err := s.ConsumeOTP(ctx, email, entity.OTPTypeLoginVerification, "good", now)
			assert.NoError(t, err)
			if res != nil && res.Consumed {
				mu.Lock()
				consumed++
				mu.Unlock()
			}
		})
	}
	wg.Wait()

	assert.Equal(t, 1, consumed)
}

func TestDB_Accounts(t *testing.T) {
	s, pool := newTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	created, err := s.EnsureAccount(ctx, entity.NewAccount{
		ID:       100,
		Email:    "admin@x.com",
		Password: "hash-1",
		Role:     entity.RoleSuperAdmin,
		IsActive: true,
	})
	require.NoError(t, err)
	assert.True(t, created)

	created, err = s.EnsureAccount(ctx, entity.NewAccount{ID: 101, Email: "admin@x.com", Password: "x", Role: entity.RoleSuperAdmin})
	require.NoError(t, err)
	assert.False(t, created)

	acc, err := s.GetAccountByEmail(ctx, "admin@x.com")
	require.NoError(t, err)
	assert.EqualValues(t, 100, acc.ID)
	assert.Equal(t, entity.RoleSuperAdmin, acc.Role)
	assert.Nil(t, acc.PasswordChangedAt)

	_, err = s.GetAccountByID(ctx, 999)
	assert.ErrorIs(t, err, goerror.ErrNotFound)

	require.NoError(t, s.UpdateAccountLastLogin(ctx, acc.ID, now))
	assert.ErrorIs(t, s.UpdateAccountLastLogin(ctx, 999, now), goerror.ErrNotFound)

	issue(t, s, 200, acc.Email, entity.OTPTypePasswordReset, "x", now)
	issue(t, s, 201, acc.Email, entity.OTPTypeLoginVerification, "y", now)

	require.NoError(t, s.ResetAccountPassword(ctx, *acc, "hash-2", now))

	acc, err = s.GetAccountByID(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, "hash-2", acc.Password)
	require.NotNil(t, acc.PasswordChangedAt)
	assert.True(t, acc.PasswordChangedAt.Equal(now))
	require.NotNil(t, acc.LastLoginAt)

	assert.Equal(t, 0, countOTPs(t, pool, acc.Email, entity.OTPTypePasswordReset))
	assert.Equal(t, 1, countOTPs(t, pool, acc.Email, entity.OTPTypeLoginVerification))
}

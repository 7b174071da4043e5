package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shandysiswandi/otpgate/internal/identity/entity"
)

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Queries struct {
	db DBTX
}

func NewQueries(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx pgx.Tx) *Queries {
	return &Queries{db: tx}
}

const accountColumns = `id, email, password, password_changed_at, is_active, is_email_verified, role, last_login_at, created_at, updated_at`

func scanAccount(row pgx.Row) (entity.Account, error) {
	var (
		a         entity.Account
		changedAt pgtype.Timestamptz
		lastLogin pgtype.Timestamptz
	)

	err := row.Scan(
		&a.ID,
		&a.Email,
		&a.Password,
		&changedAt,
		&a.IsActive,
		&a.IsEmailVerified,
		&a.Role,
		&lastLogin,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if changedAt.Valid {
		a.PasswordChangedAt = &changedAt.Time
	}
	if lastLogin.Valid {
		a.LastLoginAt = &lastLogin.Time
	}

	return a, err
}

const getIdentityAccountByEmail = `-- name: GetIdentityAccountByEmail :one
SELECT ` + accountColumns + ` FROM identity_accounts WHERE email = $1`

func (q *Queries) GetIdentityAccountByEmail(ctx context.Context, email string) (entity.Account, error) {
	return scanAccount(q.db.QueryRow(ctx, getIdentityAccountByEmail, email))
}

const getIdentityAccountByID = `-- name: GetIdentityAccountByID :one
SELECT ` + accountColumns + ` FROM identity_accounts WHERE id = $1`

func (q *Queries) GetIdentityAccountByID(ctx context.Context, id int64) (entity.Account, error) {
	return scanAccount(q.db.QueryRow(ctx, getIdentityAccountByID, id))
}

const createIdentityAccountIfAbsent = `-- name: CreateIdentityAccountIfAbsent :execrows
INSERT INTO identity_accounts (id, email, password, is_active, is_email_verified, role)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (email) DO NOTHING`

type CreateIdentityAccountIfAbsentParams struct {
	ID              int64
	Email           string
	Password        string
	IsActive        bool
	IsEmailVerified bool
	Role            entity.Role
}

func (q *Queries) CreateIdentityAccountIfAbsent(ctx context.Context, arg CreateIdentityAccountIfAbsentParams) (int64, error) {
	tag, err := q.db.Exec(ctx, createIdentityAccountIfAbsent,
		arg.ID,
		arg.Email,
		arg.Password,
		arg.IsActive,
		arg.IsEmailVerified,
		arg.Role,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const updateIdentityAccountLastLogin = `-- name: UpdateIdentityAccountLastLogin :execrows
UPDATE identity_accounts SET last_login_at = $2, updated_at = $2 WHERE id = $1`

func (q *Queries) UpdateIdentityAccountLastLogin(ctx context.Context, id int64, at time.Time) (int64, error) {
	tag, err := q.db.Exec(ctx, updateIdentityAccountLastLogin, id, at)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const updateIdentityAccountPassword = `-- name: UpdateIdentityAccountPassword :execrows
UPDATE identity_accounts SET password = $2, password_changed_at = $3, updated_at = $3 WHERE id = $1`

func (q *Queries) UpdateIdentityAccountPassword(ctx context.Context, id int64, hash string, at time.Time) (int64, error) {
	tag, err := q.db.Exec(ctx, updateIdentityAccountPassword, id, hash, at)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const deleteIdentityOTPByEmailType = `-- name: DeleteIdentityOTPByEmailType :exec
DELETE FROM identity_otps WHERE email = $1 AND type = $2`

func (q *Queries) DeleteIdentityOTPByEmailType(ctx context.Context, email string, t entity.OTPType) error {
	_, err := q.db.Exec(ctx, deleteIdentityOTPByEmailType, email, t)
	return err
}

const createIdentityOTP = `-- name: CreateIdentityOTP :exec
INSERT INTO identity_otps (id, email, code, type, expires_at, created_at, is_used, attempts)
VALUES ($1, $2, $3, $4, $5, $6, FALSE, 0)`

type CreateIdentityOTPParams struct {
	ID        int64
	Email     string
	Code      string
	Type      entity.OTPType
	ExpiresAt time.Time
	CreatedAt time.Time
}

func (q *Queries) CreateIdentityOTP(ctx context.Context, arg CreateIdentityOTPParams) error {
	_, err := q.db.Exec(ctx, createIdentityOTP,
		arg.ID,
		arg.Email,
		arg.Code,
		arg.Type,
		arg.ExpiresAt,
		arg.CreatedAt,
	)
	return err
}

// The second CTE only runs its update when the first matched nothing, so a
// row is never modified twice by one statement. prev carries the attempt count
// before the increment for diagnostics.
const consumeIdentityOTP = `-- name: ConsumeIdentityOTP :one
WITH consumed AS (
    UPDATE identity_otps
    SET is_used = TRUE
    WHERE email = $1 AND type = $2 AND code = $3
      AND is_used = FALSE AND expires_at > $4 AND attempts < $5
    RETURNING id, email, code, type, expires_at, created_at, is_used, attempts, attempts AS prev_attempts
), penalized AS (
    UPDATE identity_otps o
    SET attempts = LEAST(o.attempts + 1, $5)
    FROM identity_otps prev
    WHERE prev.id = o.id
      AND o.email = $1 AND o.type = $2 AND o.is_used = FALSE
      AND NOT EXISTS (SELECT 1 FROM consumed)
    RETURNING o.id, o.email, o.code, o.type, o.expires_at, o.created_at, o.is_used, o.attempts, prev.attempts AS prev_attempts
)
SELECT TRUE AS consumed, c.* FROM consumed c
UNION ALL
SELECT FALSE AS consumed, p.* FROM penalized p`

type ConsumeIdentityOTPParams struct {
	Email       string
	Type        entity.OTPType
	Code        string
	Now         time.Time
	MaxAttempts int16
}

type ConsumeIdentityOTPRow struct {
	Consumed     bool
	OTP          entity.OTP
	PrevAttempts int16
}

func (q *Queries) ConsumeIdentityOTP(ctx context.Context, arg ConsumeIdentityOTPParams) (ConsumeIdentityOTPRow, error) {
	var r ConsumeIdentityOTPRow

	err := q.db.QueryRow(ctx, consumeIdentityOTP,
		arg.Email,
		arg.Type,
		arg.Code,
		arg.Now,
		arg.MaxAttempts,
	).Scan(
		&r.Consumed,
		&r.OTP.ID,
		&r.OTP.Email,
		&r.OTP.Code,
		&r.OTP.Type,
		&r.OTP.ExpiresAt,
		&r.OTP.CreatedAt,
		&r.OTP.IsUsed,
		&r.OTP.Attempts,
		&r.PrevAttempts,
	)

	return r, err
}

package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shandysiswandi/otpgate/internal/identity/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
)

func TestOTPSend(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(e *testEnv)
		in       OTPSendInput
		wantCode *goerror.Code
	}{
		{
			name:  "issues login code",
			setup: func(e *testEnv) { e.addAdmin(t, 1, "a@x.com", true) },
			in:    OTPSendInput{Email: " A@X.com ", Type: "login_verification"},
		},
		{
			name:  "issues email verification code",
			setup: func(e *testEnv) { e.addAdmin(t, 1, "a@x.com", true) },
			in:    OTPSendInput{Email: "a@x.com", Type: "email_verification"},
		},
		{
			name:     "invalid email",
			setup:    func(*testEnv) {},
			in:       OTPSendInput{Email: "nope", Type: "login_verification"},
			wantCode: codeOf(goerror.CodeInvalidInput),
		},
		{
			name:     "unknown type",
			setup:    func(e *testEnv) { e.addAdmin(t, 1, "a@x.com", true) },
			in:       OTPSendInput{Email: "a@x.com", Type: "sms"},
			wantCode: codeOf(goerror.CodeInvalidInput),
		},
		{
			name:     "unknown account",
			setup:    func(*testEnv) {},
			in:       OTPSendInput{Email: "ghost@x.com", Type: "login_verification"},
			wantCode: codeOf(goerror.CodeNotFound),
		},
		{
			name:     "inactive account",
			setup:    func(e *testEnv) { e.addAdmin(t, 1, "a@x.com", false) },
			in:       OTPSendInput{Email: "a@x.com", Type: "login_verification"},
			wantCode: codeOf(goerror.CodeUnauthorized),
		},
		{
			name: "unrecognized role",
			setup: func(e *testEnv) {
				e.accounts.put(entity.Account{ID: 2, Email: "b@x.com", IsActive: true, Role: entity.Role(9)})
			},
			in:       OTPSendInput{Email: "b@x.com", Type: "login_verification"},
			wantCode: codeOf(goerror.CodeForbidden),
		},
		{
			name: "account lookup failure",
			setup: func(e *testEnv) {
				e.accounts.getErr = errors.New("db down")
			},
			in:       OTPSendInput{Email: "a@x.com", Type: "login_verification"},
			wantCode: codeOf(goerror.CodeInternal),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEnv(t)
			tt.setup(e)

			out, err := e.uc.OTPSend(context.Background(), tt.in)
			if tt.wantCode != nil {
				assertCode(t, err, *tt.wantCode)
				if e.otps.issued != 0 {
					t.Fatalf("issued %d codes on failure", e.otps.issued)
				}
				return
			}
			if err != nil {
				t.Fatalf("OTPSend() error = %v", err)
			}
			if out.Email != "a@x.com" || out.Type.String() != tt.in.Type {
				t.Fatalf("unexpected output: %+v", out)
			}

			rec := e.otps.get("a@x.com", out.Type)
			if rec == nil {
				t.Fatal("no record stored")
			}
			if rec.Code == testCode {
				t.Fatal("code stored in plaintext")
			}
			if want := testStart.Add(out.Type.TTL()); !rec.ExpiresAt.Equal(want) {
				t.Fatalf("ExpiresAt = %v, want %v", rec.ExpiresAt, want)
			}

			if err := e.gm.Wait(); err != nil {
				t.Fatalf("Wait() error = %v", err)
			}
			if len(e.broker.events) != 1 || e.broker.events[0].Code != testCode || e.broker.events[0].OTPID != rec.ID {
				t.Fatalf("unexpected events: %+v", e.broker.events)
			}
		})
	}
}

func TestOTPSend_ReissueReplacesPrevious(t *testing.T) {
	e := newTestEnv(t)
	e.addAdmin(t, 1, "a@x.com", true)
	ctx := context.Background()

	codes := []string{"111111", "222222"}
	for _, c := range codes {
		e.uc.genCode = func() (string, error) { return c, nil }
		if _, err := e.uc.OTPSend(ctx, OTPSendInput{Email: "a@x.com", Type: "login_verification"}); err != nil {
			t.Fatalf("OTPSend() error = %v", err)
		}
	}

	_, err := e.uc.OTPVerify(ctx, OTPVerifyInput{Email: "a@x.com", Code: "111111", Type: "login_verification"})
	assertCode(t, err, goerror.CodeInvalidCredential)

	out, err := e.uc.OTPVerify(ctx, OTPVerifyInput{Email: "a@x.com", Code: "222222", Type: "login_verification"})
	if err != nil {
		t.Fatalf("OTPVerify() error = %v", err)
	}
	if out.Session == nil {
		t.Fatal("expected a session")
	}
}

func TestOTPSend_StoreConflictRetried(t *testing.T) {
	e := newTestEnv(t)
	e.addAdmin(t, 1, "a@x.com", true)

	store := &conflictOnceStore{fakeOTPStore: e.otps}
	e.uc.repoOTP = store

	if _, err := e.uc.OTPSend(context.Background(), OTPSendInput{Email: "a@x.com", Type: "login_verification"}); err != nil {
		t.Fatalf("OTPSend() error = %v", err)
	}
	if store.calls != 2 {
		t.Fatalf("IssueOTP calls = %d, want 2", store.calls)
	}
}

func TestOTPSend_StoreFailure(t *testing.T) {
	e := newTestEnv(t)
	e.addAdmin(t, 1, "a@x.com", true)
	e.otps.failErr = errors.New("write failed")

	_, err := e.uc.OTPSend(context.Background(), OTPSendInput{Email: "a@x.com", Type: "login_verification"})
	assertCode(t, err, goerror.CodeInternal)

	if err := e.gm.Wait(); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if len(e.broker.events) != 0 {
		t.Fatalf("published %d events for a failed issue", len(e.broker.events))
	}
}

type conflictOnceStore struct {
	*fakeOTPStore
	calls int
}

func (s *conflictOnceStore) IssueOTP(ctx context.Context, otp entity.OTP) error {
	s.calls++
	if s.calls == 1 {
		return goerror.ErrConflict
	}
	return s.fakeOTPStore.IssueOTP(ctx, otp)
}

func TestOTPVerify_LoginScenario(t *testing.T) {
	e := newTestEnv(t)
	e.addAdmin(t, 1, "a@x.com", true)
	ctx := context.Background()

	if _, err := e.uc.OTPSend(ctx, OTPSendInput{Email: "a@x.com", Type: "login_verification"}); err != nil {
		t.Fatalf("OTPSend() error = %v", err)
	}

	_, err := e.uc.OTPVerify(ctx, OTPVerifyInput{Email: "a@x.com", Code: "000000", Type: "login_verification"})
	assertCode(t, err, goerror.CodeInvalidCredential)
	if got := e.otps.get("a@x.com", entity.OTPTypeLoginVerification).Attempts; got != 1 {
		t.Fatalf("attempts = %d, want 1", got)
	}

	e.clock.Advance(9 * time.Minute)
	out, err := e.uc.OTPVerify(ctx, OTPVerifyInput{Email: "a@x.com", Code: testCode, Type: "login_verification"})
	if err != nil {
		t.Fatalf("OTPVerify() error = %v", err)
	}
	if out.Session == nil || out.Session.Token == "" {
		t.Fatalf("expected a token, got %+v", out)
	}
	if out.Session.Account.ID != 1 || out.Session.Account.Role != "super-admin" {
		t.Fatalf("unexpected account: %+v", out.Session.Account)
	}

	acc := e.accounts.get(1)
	if acc.LastLoginAt == nil || !acc.LastLoginAt.Equal(testStart.Add(9*time.Minute)) {
		t.Fatalf("LastLoginAt = %v", acc.LastLoginAt)
	}

	clm, err := e.jwt.Verify(out.Session.Token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if clm.AccountID != 1 || clm.Email != "a@x.com" {
		t.Fatalf("unexpected claims: %+v", clm)
	}

	_, err = e.uc.OTPVerify(ctx, OTPVerifyInput{Email: "a@x.com", Code: testCode, Type: "login_verification"})
	assertCode(t, err, goerror.CodeInvalidCredential)
}

func TestOTPVerify_AttemptsExhausted(t *testing.T) {
	e := newTestEnv(t)
	e.addAdmin(t, 1, "a@x.com", true)
	ctx := context.Background()

	if _, err := e.uc.OTPSend(ctx, OTPSendInput{Email: "a@x.com", Type: "login_verification"}); err != nil {
		t.Fatalf("OTPSend() error = %v", err)
	}

	for i := range 3 {
		_, err := e.uc.OTPVerify(ctx, OTPVerifyInput{Email: "a@x.com", Code: "000000", Type: "login_verification"})
		assertCode(t, err, goerror.CodeInvalidCredential)
		if got := e.otps.get("a@x.com", entity.OTPTypeLoginVerification).Attempts; got != int16(i+1) {
			t.Fatalf("attempts = %d, want %d", got, i+1)
		}
	}

	_, err := e.uc.OTPVerify(ctx, OTPVerifyInput{Email: "a@x.com", Code: testCode, Type: "login_verification"})
	assertCode(t, err, goerror.CodeInvalidCredential)

	rec := e.otps.get("a@x.com", entity.OTPTypeLoginVerification)
	if rec.IsUsed || rec.Attempts != entity.MaxOTPAttempts {
		t.Fatalf("unexpected record: %+v", rec)
	}
}

func TestOTPVerify_ExpiredStillCountsAttempt(t *testing.T) {
	e := newTestEnv(t)
	e.addAdmin(t, 1, "a@x.com", true)
	ctx := context.Background()

	if _, err := e.uc.OTPSend(ctx, OTPSendInput{Email: "a@x.com", Type: "email_verification"}); err != nil {
		t.Fatalf("OTPSend() error = %v", err)
	}

	e.clock.Advance(10 * time.Minute)
	_, err := e.uc.OTPVerify(ctx, OTPVerifyInput{Email: "a@x.com", Code: testCode, Type: "email_verification"})
	assertCode(t, err, goerror.CodeInvalidCredential)

	rec := e.otps.get("a@x.com", entity.OTPTypeEmailVerification)
	if rec.IsUsed || rec.Attempts != 1 {
		t.Fatalf("unexpected record: %+v", rec)
	}
}

func TestOTPVerify_EmailVerificationHasNoSession(t *testing.T) {
	e := newTestEnv(t)
	e.addAdmin(t, 1, "a@x.com", true)
	ctx := context.Background()

	if _, err := e.uc.OTPSend(ctx, OTPSendInput{Email: "a@x.com", Type: "email_verification"}); err != nil {
		t.Fatalf("OTPSend() error = %v", err)
	}

	out, err := e.uc.OTPVerify(ctx, OTPVerifyInput{Email: "a@x.com", Code: testCode, Type: "email_verification"})
	if err != nil {
		t.Fatalf("OTPVerify() error = %v", err)
	}
	if out.Session != nil {
		t.Fatal("email verification must not mint a session")
	}
	if acc := e.accounts.get(1); acc.LastLoginAt != nil {
		t.Fatal("last login touched by email verification")
	}
}

func TestOTPVerify_InputRejected(t *testing.T) {
	tests := []struct {
		name string
		in   OTPVerifyInput
	}{
		{name: "short code", in: OTPVerifyInput{Email: "a@x.com", Code: "123", Type: "login_verification"}},
		{name: "letters in code", in: OTPVerifyInput{Email: "a@x.com", Code: "12a456", Type: "login_verification"}},
		{name: "unknown type", in: OTPVerifyInput{Email: "a@x.com", Code: testCode, Type: "sms"}},
		{name: "password reset goes elsewhere", in: OTPVerifyInput{Email: "a@x.com", Code: testCode, Type: "password_reset"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEnv(t)
			_, err := e.uc.OTPVerify(context.Background(), tt.in)
			assertCode(t, err, goerror.CodeInvalidInput)
		})
	}
}

func TestOTPVerify_ConcurrentSingleConsume(t *testing.T) {
	e := newTestEnv(t)
	e.addAdmin(t, 1, "a@x.com", true)
	ctx := context.Background()

	if _, err := e.uc.OTPSend(ctx, OTPSendInput{Email: "a@x.com", Type: "email_verification"}); err != nil {
		t.Fatalf("OTPSend() error = %v", err)
	}

	const n = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for range n {
		wg.Go(func() {
			_, err := e.uc.OTPVerify(ctx, OTPVerifyInput{Email: "a@x.com", Code: testCode, Type: "email_verification"})
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		})
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("consumed %d times, want exactly 1", wins)
	}
}

func TestOTPVerify_NoRecord(t *testing.T) {
	e := newTestEnv(t)

	_, err := e.uc.OTPVerify(context.Background(), OTPVerifyInput{Email: "a@x.com", Code: testCode, Type: "login_verification"})
	if !errors.Is(err, errInvalidOTP) {
		t.Fatalf("expected errInvalidOTP, got %v", err)
	}
}

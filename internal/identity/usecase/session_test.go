package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/shandysiswandi/otpgate/internal/identity/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
)

func loginToken(t *testing.T, e *testEnv, email string) string {
	t.Helper()
	ctx := context.Background()

	if _, err := e.uc.Login(ctx, LoginInput{Email: email, Password: testPassword}); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	out, err := e.uc.OTPVerify(ctx, OTPVerifyInput{Email: email, Code: testCode, Type: "login_verification"})
	if err != nil {
		t.Fatalf("OTPVerify() error = %v", err)
	}
	return out.Session.Token
}

func TestMe(t *testing.T) {
	e := newTestEnv(t)
	e.addAdmin(t, 1, "a@x.com", true)
	token := loginToken(t, e, "a@x.com")

	out, err := e.uc.Me(e.authCtx(t, token))
	if err != nil {
		t.Fatalf("Me() error = %v", err)
	}
	if out.ID != 1 || out.Email != "a@x.com" || out.Role != "super-admin" || !out.IsActive {
		t.Fatalf("unexpected output: %+v", out)
	}
	if out.LastLoginAt == nil || *out.LastLoginAt != testStart.Unix() {
		t.Fatalf("LastLoginAt = %v", out.LastLoginAt)
	}
	if out.PasswordChangedAt != nil {
		t.Fatalf("PasswordChangedAt = %v", *out.PasswordChangedAt)
	}
}

func TestMe_Unauthenticated(t *testing.T) {
	e := newTestEnv(t)

	_, err := e.uc.Me(context.Background())
	assertCode(t, err, goerror.CodeUnauthorized)
}

func TestMe_StaleAfterPasswordChange(t *testing.T) {
	e := newTestEnv(t)
	e.addAdmin(t, 1, "a@x.com", true)
	ctx := context.Background()

	token := loginToken(t, e, "a@x.com")

	e.clock.Advance(time.Second)
	if err := e.uc.PasswordForgot(ctx, PasswordForgotInput{Email: "a@x.com"}); err != nil {
		t.Fatalf("PasswordForgot() error = %v", err)
	}
	if err := e.uc.PasswordReset(ctx, PasswordResetInput{Email: "a@x.com", Code: testCode, NewPassword: "a-new-password"}); err != nil {
		t.Fatalf("PasswordReset() error = %v", err)
	}

	_, err := e.uc.Me(e.authCtx(t, token))
	assertCode(t, err, goerror.CodeUnauthorized)

	err = e.uc.Logout(e.authCtx(t, token))
	assertCode(t, err, goerror.CodeUnauthorized)

	e.clock.Advance(time.Second)
	if _, err := e.uc.Login(ctx, LoginInput{Email: "a@x.com", Password: "a-new-password"}); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	out, err := e.uc.OTPVerify(ctx, OTPVerifyInput{Email: "a@x.com", Code: testCode, Type: "login_verification"})
	if err != nil {
		t.Fatalf("OTPVerify() error = %v", err)
	}
	if _, err := e.uc.Me(e.authCtx(t, out.Session.Token)); err != nil {
		t.Fatalf("Me() with fresh token error = %v", err)
	}
}

func TestMe_StaleWithinSecondOfPasswordChange(t *testing.T) {
	e := newTestEnv(t)
	e.addAdmin(t, 1, "a@x.com", true)
	ctx := context.Background()

	e.clock.Set(testStart.Add(200 * time.Millisecond))
	token := loginToken(t, e, "a@x.com")

	if err := e.uc.PasswordForgot(ctx, PasswordForgotInput{Email: "a@x.com"}); err != nil {
		t.Fatalf("PasswordForgot() error = %v", err)
	}
	e.clock.Set(testStart.Add(500 * time.Millisecond))
	if err := e.uc.PasswordReset(ctx, PasswordResetInput{Email: "a@x.com", Code: testCode, NewPassword: "a-new-password"}); err != nil {
		t.Fatalf("PasswordReset() error = %v", err)
	}

	_, err := e.uc.Me(e.authCtx(t, token))
	assertCode(t, err, goerror.CodeUnauthorized)
}

func TestMe_DeactivatedAccount(t *testing.T) {
	e := newTestEnv(t)
	e.addAdmin(t, 1, "a@x.com", true)
	token := loginToken(t, e, "a@x.com")

	acc := e.accounts.get(1)
	acc.IsActive = false
	e.accounts.put(acc)

	_, err := e.uc.Me(e.authCtx(t, token))
	assertCode(t, err, goerror.CodeUnauthorized)
}

func TestLogout(t *testing.T) {
	e := newTestEnv(t)
	e.addAdmin(t, 1, "a@x.com", true)
	token := loginToken(t, e, "a@x.com")

	if err := e.uc.Logout(e.authCtx(t, token)); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	assertCode(t, e.uc.Logout(context.Background()), goerror.CodeUnauthorized)
}

func TestOTPVerify_AccountDeactivatedBeforeSession(t *testing.T) {
	e := newTestEnv(t)
	e.addAdmin(t, 1, "a@x.com", true)
	ctx := context.Background()

	if _, err := e.uc.OTPSend(ctx, OTPSendInput{Email: "a@x.com", Type: "login_verification"}); err != nil {
		t.Fatalf("OTPSend() error = %v", err)
	}

	acc := e.accounts.get(1)
	acc.IsActive = false
	e.accounts.put(acc)

	_, err := e.uc.OTPVerify(ctx, OTPVerifyInput{Email: "a@x.com", Code: testCode, Type: "login_verification"})
	assertCode(t, err, goerror.CodeUnauthorized)
	if e.accounts.get(1).LastLoginAt != nil {
		t.Fatal("last login set for inactive account")
	}
}

func TestEnsureBootstrapAdmin(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	in := BootstrapAdminInput{Email: "Root@X.com", Password: testPassword}
	if err := e.uc.EnsureBootstrapAdmin(ctx, in); err != nil {
		t.Fatalf("EnsureBootstrapAdmin() error = %v", err)
	}

	acc, err := e.accounts.GetAccountByEmail(ctx, "root@x.com")
	if err != nil {
		t.Fatalf("account not created: %v", err)
	}
	if acc.Role != entity.RoleSuperAdmin || !acc.IsActive || !acc.IsEmailVerified {
		t.Fatalf("unexpected account: %+v", acc)
	}
	if !e.password.Verify(acc.Password, testPassword) {
		t.Fatal("bootstrap password does not verify")
	}

	if err := e.uc.EnsureBootstrapAdmin(ctx, BootstrapAdminInput{Email: "root@x.com", Password: "other-password"}); err != nil {
		t.Fatalf("EnsureBootstrapAdmin() second call error = %v", err)
	}
	again, _ := e.accounts.GetAccountByEmail(ctx, "root@x.com")
	if again.Password != acc.Password {
		t.Fatal("existing account overwritten")
	}

	assertCode(t, e.uc.EnsureBootstrapAdmin(ctx, BootstrapAdminInput{Email: "root@x.com", Password: "short"}), goerror.CodeInvalidInput)
}

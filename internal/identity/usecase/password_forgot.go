package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shandysiswandi/otpgate/internal/identity/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
)

type PasswordForgotInput struct {
	Email string `validate:"required,email"`
}

// PasswordForgot sends a reset code when the account can use one. Unknown
// emails get the same answer as known ones.
func (s *Usecase) PasswordForgot(ctx context.Context, in PasswordForgotInput) error {
	ctx, span := s.startSpan(ctx, "PasswordForgot")
	defer span.End()

	in.Email = entity.NormalizeEmail(in.Email)

	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	acc, err := s.repoAccount.GetAccountByEmail(ctx, in.Email)
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "password reset requested for unknown account", "email", in.Email)
		return nil
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get account by email", "email", in.Email, "error", err)
		return goerror.NewServer(err)
	}

	if !acc.IsActive {
		slog.WarnContext(ctx, "password reset requested for inactive account", "account_id", acc.ID)
		if s.cfg.GetBool("modules.identity.forgot_password_reveal_inactive") {
			return goerror.NewBusiness("account is inactive", goerror.CodeUnauthorized)
		}
		return nil
	}

	if acc.Role.IsUnknown() {
		slog.WarnContext(ctx, "password reset requested for ineligible account", "account_id", acc.ID)
		return nil
	}

	if _, err := s.issueOTP(ctx, acc.Email, entity.OTPTypePasswordReset); err != nil {
		return err
	}

	return nil
}

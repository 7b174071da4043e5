package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shandysiswandi/otpgate/internal/identity/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
)

type PasswordResetInput struct {
	Email       string `validate:"required,email"`
	Code        string `validate:"required,otpcode"`
	NewPassword string `validate:"required,password"`
}

func (s *Usecase) PasswordReset(ctx context.Context, in PasswordResetInput) error {
	ctx, span := s.startSpan(ctx, "PasswordReset")
	defer span.End()

	in.Email = entity.NormalizeEmail(in.Email)

	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	if _, err := s.verifyOTP(ctx, in.Email, entity.OTPTypePasswordReset, in.Code); err != nil {
		return err
	}

	acc, err := s.repoAccount.GetAccountByEmail(ctx, in.Email)
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "account vanished after reset code was consumed", "email", in.Email)
		return goerror.NewBusiness("account not found", goerror.CodeNotFound)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get account by email", "email", in.Email, "error", err)
		return goerror.NewServer(err)
	}

	if err := s.ensureAccountActive(ctx, acc); err != nil {
		return err
	}

	newHash, err := s.password.Hash(in.NewPassword)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash new password", "account_id", acc.ID, "error", err)
		return goerror.NewServer(err)
	}

	if err := s.repoAccount.ResetAccountPassword(ctx, *acc, string(newHash), s.clock.Now()); err != nil {
		slog.ErrorContext(ctx, "failed to repo reset account password", "account_id", acc.ID, "error", err)
		return goerror.NewServer(err)
	}

	// the account store already dropped them when it also holds codes
	if err := s.repoOTP.DeleteOTP(ctx, acc.Email, entity.OTPTypePasswordReset); err != nil {
		slog.WarnContext(ctx, "failed to repo delete password reset codes", "account_id", acc.ID, "error", err)
	}

	return nil
}

package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shandysiswandi/otpgate/internal/identity/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
)

type OTPSendInput struct {
	Email string `validate:"required,email"`
	Type  string `validate:"required"`
}

type OTPSendOutput struct {
	Email string
	Type  entity.OTPType
}

func (s *Usecase) OTPSend(ctx context.Context, in OTPSendInput) (*OTPSendOutput, error) {
	ctx, span := s.startSpan(ctx, "OTPSend")
	defer span.End()

	in.Email = entity.NormalizeEmail(in.Email)

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	otpType, err := entity.ParseOTPType(in.Type)
	if err != nil {
		return nil, goerror.NewInvalidInput(nil, "type", "Type must be one of email_verification, password_reset, login_verification")
	}

	acc, err := s.repoAccount.GetAccountByEmail(ctx, in.Email)
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "otp requested for unknown account", "email", in.Email)
		return nil, goerror.NewBusiness("account not found", goerror.CodeNotFound)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get account by email", "email", in.Email, "error", err)
		return nil, goerror.NewServer(err)
	}

	if err := s.ensureAccountActive(ctx, acc); err != nil {
		return nil, err
	}

	if err := s.ensureAccountAllowed(ctx, acc, entity.ObjectOTP, entity.ActionRequest); err != nil {
		return nil, err
	}

	if _, err := s.issueOTP(ctx, acc.Email, otpType); err != nil {
		return nil, err
	}

	return &OTPSendOutput{Email: acc.Email, Type: otpType}, nil
}

package usecase

import (
	"context"

	"github.com/shandysiswandi/otpgate/internal/identity/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
)

type OTPVerifyInput struct {
	Email string `validate:"required,email"`
	Code  string `validate:"required,otpcode"`
	Type  string `validate:"required"`
}

// OTPVerifyOutput carries a session only for login verification.
type OTPVerifyOutput struct {
	Session *SessionOutput
}

func (s *Usecase) OTPVerify(ctx context.Context, in OTPVerifyInput) (*OTPVerifyOutput, error) {
	ctx, span := s.startSpan(ctx, "OTPVerify")
	defer span.End()

	in.Email = entity.NormalizeEmail(in.Email)

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	otpType, err := entity.ParseOTPType(in.Type)
	if err != nil {
		return nil, goerror.NewInvalidInput(nil, "type", "Type must be one of email_verification, login_verification")
	}

	// a reset code is only worth something together with the new password
	if otpType == entity.OTPTypePasswordReset {
		return nil, goerror.NewInvalidInput(nil, "type", "Use reset-password to submit a password reset code")
	}

	if _, err := s.verifyOTP(ctx, in.Email, otpType, in.Code); err != nil {
		return nil, err
	}

	if otpType != entity.OTPTypeLoginVerification {
		return &OTPVerifyOutput{}, nil
	}

	sess, err := s.issueSession(ctx, in.Email)
	if err != nil {
		return nil, err
	}

	return &OTPVerifyOutput{Session: sess}, nil
}

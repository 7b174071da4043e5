package db

import (
	"context"
	"errors"
	"time"

	"github.com/shandysiswandi/otpgate/internal/identity/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
)

// IssueOTP replaces whatever record exists for (email, type) with otp.
// A concurrent issuance for the same pair surfaces as goerror.ErrConflict.
func (s *DB) IssueOTP(ctx context.Context, otp entity.OTP) (err error) {
	ctx, span := s.startSpan(ctx, "IssueOTP")
	defer func() { s.endSpan(span, err) }()

	return s.inTx(ctx, func(q *Queries) error {
		if err := q.DeleteIdentityOTPByEmailType(ctx, otp.Email, otp.Type); err != nil {
			return err
		}

		return q.CreateIdentityOTP(ctx, CreateIdentityOTPParams{
			ID:        otp.ID,
			Email:     otp.Email,
			Code:      otp.Code,
			Type:      otp.Type,
			ExpiresAt: otp.ExpiresAt,
			CreatedAt: otp.CreatedAt,
		})
	})
}

// ConsumeOTP marks the matching live record used, or counts a failed attempt
// against the unused record of the pair, in a single statement.
func (s *DB) ConsumeOTP(ctx context.Context, email string, t entity.OTPType, code string, now time.Time) (_ *entity.OTPVerification, err error) {
	ctx, span := s.startSpan(ctx, "ConsumeOTP")
	defer func() { s.endSpan(span, err) }()

	row, err := s.query.ConsumeIdentityOTP(ctx, ConsumeIdentityOTPParams{
		Email:       email,
		Type:        t,
		Code:        code,
		Now:         now,
		MaxAttempts: entity.MaxOTPAttempts,
	})
	if err = s.mapError(err); errors.Is(err, goerror.ErrNotFound) {
		return &entity.OTPVerification{Reason: entity.RejectReasonNotFound}, nil
	}
	if err != nil {
		return nil, err
	}

	if row.Consumed {
		return &entity.OTPVerification{Consumed: true, OTP: &row.OTP}, nil
	}

	return &entity.OTPVerification{
		Reason: entity.ClassifyRejection(row.PrevAttempts, row.OTP.ExpiresAt, now, row.OTP.Code == code),
		OTP:    &row.OTP,
	}, nil
}

func (s *DB) DeleteOTP(ctx context.Context, email string, t entity.OTPType) (err error) {
	ctx, span := s.startSpan(ctx, "DeleteOTP")
	defer func() { s.endSpan(span, err) }()

	return s.mapError(s.query.DeleteIdentityOTPByEmailType(ctx, email, t))
}

package usecase

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shandysiswandi/otpgate/internal/notification/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/idempotency"
	"github.com/shandysiswandi/otpgate/internal/pkg/mail"
)

const defaultDedupeTTL = 24 * time.Hour

type ConsumeOTPIssuedInput struct {
	OTPID     int64     `validate:"required,gt=0"`
	Email     string    `validate:"required,email"`
	Type      string    `validate:"required"`
	Code      string    `validate:"required,otpcode"`
	ExpiresAt time.Time `validate:"required"`
}

// ConsumeOTPIssued emails a freshly issued code. Redeliveries of the same
// code are sent once; a code that already expired is dropped.
func (s *Usecase) ConsumeOTPIssued(ctx context.Context, in ConsumeOTPIssuedInput) error {
	ctx, span := s.startSpan(ctx, "ConsumeOTPIssued")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		slog.ErrorContext(ctx, "Validation failed", "otp_id", in.OTPID, "error", err)
		return nil
	}

	purpose := entity.PurposeFromString(in.Type)
	if purpose == entity.PurposeUnknown {
		slog.ErrorContext(ctx, "otp issued with unknown type", "otp_id", in.OTPID, "type", in.Type)
		return nil
	}

	now := s.clock.Now()
	if !in.ExpiresAt.After(now) {
		slog.WarnContext(ctx, "otp expired before delivery", "otp_id", in.OTPID, "expires_at", in.ExpiresAt)
		return nil
	}

	ttl := s.cfg.GetMinute("modules.notification.dedupe_ttl_minutes")
	if ttl <= 0 {
		ttl = defaultDedupeTTL
	}

	key := "notification:otp_issued:" + strconv.FormatInt(in.OTPID, 10)
	err := s.idempotency.Exec(ctx, key, func(ctx context.Context) error {
		return s.sendOTPMail(ctx, in, purpose, now)
	}, idempotency.WithStateTTL(ttl))
	switch {
	case errors.Is(err, idempotency.ErrAlreadyCompleted):
		slog.InfoContext(ctx, "otp mail already sent", "otp_id", in.OTPID)
		return nil
	case err != nil:
		slog.ErrorContext(ctx, "failed to send otp mail", "otp_id", in.OTPID, "error", err)
		return err
	}

	slog.InfoContext(ctx, "otp mail sent", "otp_id", in.OTPID, "type", purpose.String())
	return nil
}

func (s *Usecase) sendOTPMail(ctx context.Context, in ConsumeOTPIssuedInput, purpose entity.Purpose, now time.Time) error {
	appName := s.cfg.GetString("app.name")
	if appName == "" {
		appName = "otpgate"
	}

	htmlBody, textBody, err := s.renderOTPMail(entity.OTPMail{
		AppName:      appName,
		Email:        in.Email,
		Purpose:      purpose,
		Code:         in.Code,
		ExpiresAt:    in.ExpiresAt,
		ValidMinutes: int(math.Ceil(in.ExpiresAt.Sub(now).Minutes())),
		SupportEmail: s.cfg.GetString("mail.support_address"),
		Year:         now.Format("2006"),
	})
	if err != nil {
		return err
	}

	subject := purpose.Subject()
	if prefix := strings.TrimSpace(s.cfg.GetString("modules.notification.subject_prefix")); prefix != "" {
		subject = prefix + " " + subject
	}

	return s.repoMail.Send(ctx, mail.Message{
		To:       []string{in.Email},
		Subject:  subject,
		TextBody: textBody,
		HTMLBody: htmlBody,
	})
}

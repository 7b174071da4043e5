package usecase

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/shandysiswandi/otpgate/internal/identity/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
)

const (
	codeMin   = 100000
	codeRange = 900000
)

var errInvalidOTP = goerror.NewBusiness("invalid or expired code", goerror.CodeInvalidCredential)

// generateCode draws uniformly from 100000..999999.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeRange))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d", n.Int64()+codeMin), nil
}

func (s *Usecase) hashCode(code string) (string, error) {
	h, err := s.hmac.Hash(code)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// issueOTP replaces any record of (email, t) with a fresh one and schedules
// its delivery once the write is durable.
func (s *Usecase) issueOTP(ctx context.Context, email string, t entity.OTPType) (*entity.OTP, error) {
	code, err := s.genCode()
	if err != nil {
		slog.ErrorContext(ctx, "failed to generate otp code", "error", err)
		return nil, goerror.NewServer(err)
	}

	codeHash, err := s.hashCode(code)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash otp code", "error", err)
		return nil, goerror.NewServer(err)
	}

	now := s.clock.Now()
	otp := entity.OTP{
		ID:        s.uid.Generate(),
		Email:     email,
		Code:      codeHash,
		Type:      t,
		ExpiresAt: now.Add(t.TTL()),
		CreatedAt: now,
	}

	backoff := retry.WithMaxRetries(
		uint64(max(s.cfg.GetInt("modules.identity.issue_retry_max"), 0)),
		retry.NewExponential(25*time.Millisecond),
	)
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := s.repoOTP.IssueOTP(ctx, otp)
		if errors.Is(err, goerror.ErrConflict) {
			slog.WarnContext(ctx, "concurrent otp issuance, retrying", "email", email, "type", t.String())
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo issue otp", "email", email, "type", t.String(), "error", err)
		return nil, goerror.NewServer(err)
	}

	s.metrics.issued(ctx, t)
	s.publishOTPIssued(ctx, otp, code)

	return &otp, nil
}

func (s *Usecase) publishOTPIssued(ctx context.Context, otp entity.OTP, code string) {
	ev := OTPIssuedEvent{
		OTPID:     otp.ID,
		Email:     otp.Email,
		Type:      otp.Type,
		Code:      code,
		ExpiresAt: otp.ExpiresAt,
	}

	s.goroutine.Go(context.WithoutCancel(ctx), func(ctx context.Context) error {
		if err := s.repoMessaging.PublishOTPIssued(ctx, ev); err != nil {
			slog.ErrorContext(ctx, "failed to publish otp issued", "otp_id", ev.OTPID, "type", ev.Type.String(), "error", err)
		}
		return nil
	})
}

// verifyOTP consumes the code or fails with errInvalidOTP. Why it failed is
// only logged and counted.
func (s *Usecase) verifyOTP(ctx context.Context, email string, t entity.OTPType, code string) (*entity.OTP, error) {
	codeHash, err := s.hashCode(code)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash otp code", "error", err)
		return nil, goerror.NewServer(err)
	}

	res, err := s.repoOTP.ConsumeOTP(ctx, email, t, codeHash, s.clock.Now())
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo consume otp", "email", email, "type", t.String(), "error", err)
		return nil, goerror.NewServer(err)
	}

	if !res.Consumed {
		attrs := []any{"email", email, "type", t.String(), "reason", string(res.Reason)}
		if res.OTP != nil {
			attrs = append(attrs, "otp_id", res.OTP.ID, "attempts", res.OTP.Attempts)
		}
		slog.WarnContext(ctx, "otp rejected", attrs...)
		s.metrics.rejected(ctx, t, res.Reason)
		return nil, errInvalidOTP
	}

	s.metrics.verified(ctx, t)
	return res.OTP, nil
}

package usecase

import (
	"context"

	"github.com/shandysiswandi/otpgate/internal/identity/entity"
)

type MeOutput struct {
	AccountOutput
	LastLoginAt       *int64
	PasswordChangedAt *int64
}

func (s *Usecase) Me(ctx context.Context) (*MeOutput, error) {
	ctx, span := s.startSpan(ctx, "Me")
	defer span.End()

	acc, err := s.authenticated(ctx, entity.ObjectAccount, entity.ActionRead)
	if err != nil {
		return nil, err
	}

	out := &MeOutput{AccountOutput: accountOutput(acc)}
	if acc.LastLoginAt != nil {
		ts := acc.LastLoginAt.Unix()
		out.LastLoginAt = &ts
	}
	if acc.PasswordChangedAt != nil {
		ts := acc.PasswordChangedAt.Unix()
		out.PasswordChangedAt = &ts
	}

	return out, nil
}

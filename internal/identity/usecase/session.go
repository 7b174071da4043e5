package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shandysiswandi/otpgate/internal/identity/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
	"github.com/shandysiswandi/otpgate/internal/pkg/jwt"
)

type AccountOutput struct {
	ID              int64
	Email           string
	Role            string
	IsActive        bool
	IsEmailVerified bool
}

func accountOutput(acc *entity.Account) AccountOutput {
	return AccountOutput{
		ID:              acc.ID,
		Email:           acc.Email,
		Role:            acc.Role.String(),
		IsActive:        acc.IsActive,
		IsEmailVerified: acc.IsEmailVerified,
	}
}

type SessionOutput struct {
	Token   string
	Account AccountOutput
}

// issueSession runs after a login code was consumed. The account is looked
// up again because it may have changed since the code was issued.
func (s *Usecase) issueSession(ctx context.Context, email string) (*SessionOutput, error) {
	acc, err := s.repoAccount.GetAccountByEmail(ctx, email)
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "account vanished after login code was consumed", "email", email)
		return nil, goerror.NewBusiness("account not found", goerror.CodeNotFound)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get account by email", "email", email, "error", err)
		return nil, goerror.NewServer(err)
	}

	if err := s.ensureAccountActive(ctx, acc); err != nil {
		return nil, err
	}

	token, err := s.jwt.Generate(jwt.Subject{
		AccountID: acc.ID,
		Email:     acc.Email,
		Role:      acc.Role.String(),
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to generate session token", "account_id", acc.ID, "error", err)
		return nil, goerror.NewServer(err)
	}

	now := s.clock.Now()
	if err := s.repoAccount.UpdateAccountLastLogin(ctx, acc.ID, now); err != nil {
		slog.ErrorContext(ctx, "failed to repo update last login", "account_id", acc.ID, "error", err)
		return nil, goerror.NewServer(err)
	}
	acc.LastLoginAt = &now

	s.metrics.session(ctx)

	return &SessionOutput{Token: token, Account: accountOutput(acc)}, nil
}

package usecase

import (
	"context"
	"log/slog"

	"github.com/shandysiswandi/otpgate/internal/identity/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
)

type BootstrapAdminInput struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,password"`
}

// EnsureBootstrapAdmin creates the first super-admin when no account with
// that email exists. An existing account is left untouched.
func (s *Usecase) EnsureBootstrapAdmin(ctx context.Context, in BootstrapAdminInput) error {
	ctx, span := s.startSpan(ctx, "EnsureBootstrapAdmin")
	defer span.End()

	in.Email = entity.NormalizeEmail(in.Email)

	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	hash, err := s.password.Hash(in.Password)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash bootstrap password", "error", err)
		return goerror.NewServer(err)
	}

	created, err := s.repoAccount.EnsureAccount(ctx, entity.NewAccount{
		ID:              s.uid.Generate(),
		Email:           in.Email,
		Password:        string(hash),
		Role:            entity.RoleSuperAdmin,
		IsActive:        true,
		IsEmailVerified: true,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo ensure bootstrap account", "email", in.Email, "error", err)
		return goerror.NewServer(err)
	}

	if created {
		slog.InfoContext(ctx, "bootstrap super-admin created", "email", in.Email)
	}

	return nil
}

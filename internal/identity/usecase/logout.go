package usecase

import (
	"context"
	"log/slog"

	"github.com/shandysiswandi/otpgate/internal/identity/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/jwt"
)

// Logout is acknowledged only; tokens stay valid until they expire or the
// password changes, the client drops its copy.
func (s *Usecase) Logout(ctx context.Context) error {
	ctx, span := s.startSpan(ctx, "Logout")
	defer span.End()

	acc, err := s.authenticated(ctx, entity.ObjectSession, entity.ActionRevoke)
	if err != nil {
		return err
	}

	if clm := jwt.GetAuth(ctx); clm != nil {
		slog.InfoContext(ctx, "account logged out", "account_id", acc.ID, "jti", clm.ID)
	}

	return nil
}

package db

import (
	"context"
	"time"

	"github.com/shandysiswandi/otpgate/internal/identity/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
)

func (s *DB) GetAccountByEmail(ctx context.Context, email string) (_ *entity.Account, err error) {
	ctx, span := s.startSpan(ctx, "GetAccountByEmail")
	defer func() { s.endSpan(span, err) }()

	acc, err := s.query.GetIdentityAccountByEmail(ctx, email)
	if err != nil {
		return nil, s.mapError(err)
	}

	return &acc, nil
}

func (s *DB) GetAccountByID(ctx context.Context, id int64) (_ *entity.Account, err error) {
	ctx, span := s.startSpan(ctx, "GetAccountByID")
	defer func() { s.endSpan(span, err) }()

	acc, err := s.query.GetIdentityAccountByID(ctx, id)
	if err != nil {
		return nil, s.mapError(err)
	}

	return &acc, nil
}

// EnsureAccount creates the account unless one with the same email exists.
func (s *DB) EnsureAccount(ctx context.Context, acc entity.NewAccount) (created bool, err error) {
	ctx, span := s.startSpan(ctx, "EnsureAccount")
	defer func() { s.endSpan(span, err) }()

	rows, err := s.query.CreateIdentityAccountIfAbsent(ctx, CreateIdentityAccountIfAbsentParams{
		ID:              acc.ID,
		Email:           acc.Email,
		Password:        acc.Password,
		IsActive:        acc.IsActive,
		IsEmailVerified: acc.IsEmailVerified,
		Role:            acc.Role,
	})
	if err != nil {
		return false, s.mapError(err)
	}

	return rows > 0, nil
}

func (s *DB) UpdateAccountLastLogin(ctx context.Context, id int64, at time.Time) (err error) {
	ctx, span := s.startSpan(ctx, "UpdateAccountLastLogin")
	defer func() { s.endSpan(span, err) }()

	rows, err := s.query.UpdateIdentityAccountLastLogin(ctx, id, at)
	if err != nil {
		return s.mapError(err)
	}
	if rows == 0 {
		return goerror.ErrNotFound
	}

	return nil
}

// ResetAccountPassword stores the new hash, stamps the change and drops every
// password reset code of the account in one transaction.
func (s *DB) ResetAccountPassword(ctx context.Context, acc entity.Account, newHash string, at time.Time) (err error) {
	ctx, span := s.startSpan(ctx, "ResetAccountPassword")
	defer func() { s.endSpan(span, err) }()

	return s.inTx(ctx, func(q *Queries) error {
		rows, err := q.UpdateIdentityAccountPassword(ctx, acc.ID, newHash, at)
		if err != nil {
			return err
		}
		if rows == 0 {
			return goerror.ErrNotFound
		}

		return q.DeleteIdentityOTPByEmailType(ctx, acc.Email, entity.OTPTypePasswordReset)
	})
}

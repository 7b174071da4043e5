package entity

import (
	"strings"
	"time"
)

type Account struct {
	ID                int64
	Email             string
	Password          string // hashed
	PasswordChangedAt *time.Time
	IsActive          bool
	IsEmailVerified   bool
	Role              Role
	LastLoginAt       *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// IssuedBeforePasswordChange reports whether a token issued at iat may
// predate the last credential rotation. JWT timestamps carry whole seconds
// only, so a token from the same second as the change is treated as older.
func (a Account) IssuedBeforePasswordChange(iat time.Time) bool {
	if a.PasswordChangedAt == nil {
		return false
	}
	return !iat.Truncate(time.Second).After(a.PasswordChangedAt.Truncate(time.Second))
}

type NewAccount struct {
	ID              int64
	Email           string
	Password        string // hashed
	Role            Role
	IsActive        bool
	IsEmailVerified bool
}

type OTP struct {
	ID        int64
	Email     string
	Code      string // hashed
	Type      OTPType
	ExpiresAt time.Time
	CreatedAt time.Time
	IsUsed    bool
	Attempts  int16
}

// OTPVerification is the store's answer to a submitted code. Exactly one of
// Consumed or Reason is meaningful.
type OTPVerification struct {
	Consumed bool
	Reason   RejectReason
	// OTP is the record after the operation. It is nil when nothing matched.
	OTP *OTP
}

// NormalizeEmail is the only form in which emails are stored and compared.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

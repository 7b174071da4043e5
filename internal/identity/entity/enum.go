package entity

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrOTPTypeUnknown = errors.New("identity: otp type is unknown")
	ErrRoleUnknown    = errors.New("identity: role is unknown")
)

// MaxOTPAttempts is the number of failed submissions after which a code can
// no longer be consumed.
const MaxOTPAttempts = 3

type OTPType int16

const (
	OTPTypeUnknown           OTPType = 0
	OTPTypeEmailVerification OTPType = 1
	OTPTypePasswordReset     OTPType = 2
	OTPTypeLoginVerification OTPType = 3
)

func (t OTPType) String() string {
	switch t {
	case OTPTypeEmailVerification:
		return "email_verification"
	case OTPTypePasswordReset:
		return "password_reset"
	case OTPTypeLoginVerification:
		return "login_verification"
	default:
		return "unknown"
	}
}

// TTL is how long a freshly issued code of this type stays consumable.
func (t OTPType) TTL() time.Duration {
	switch t {
	case OTPTypePasswordReset:
		return 15 * time.Minute
	case OTPTypeEmailVerification, OTPTypeLoginVerification:
		return 10 * time.Minute
	default:
		return 0
	}
}

func (t OTPType) IsUnknown() bool {
	return t.TTL() == 0
}

func ParseOTPType(raw string) (OTPType, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "email_verification":
		return OTPTypeEmailVerification, nil
	case "password_reset":
		return OTPTypePasswordReset, nil
	case "login_verification":
		return OTPTypeLoginVerification, nil
	default:
		return OTPTypeUnknown, ErrOTPTypeUnknown
	}
}

// Role is closed: adding a value means extending Permissions below.
type Role int16

const (
	RoleUnknown    Role = 0
	RoleSuperAdmin Role = 1
)

func (r Role) String() string {
	switch r {
	case RoleSuperAdmin:
		return "super-admin"
	default:
		return "unknown"
	}
}

func ParseRole(raw string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "super-admin":
		return RoleSuperAdmin, nil
	default:
		return RoleUnknown, ErrRoleUnknown
	}
}

func (r Role) IsUnknown() bool {
	return r != RoleSuperAdmin
}

// Roles lists every known role.
func Roles() []Role {
	return []Role{RoleSuperAdmin}
}

type Permission struct {
	Object string
	Action string
}

const (
	ObjectOTP     = "identity.otp"
	ObjectSession = "identity.session"
	ObjectAccount = "identity.account"

	ActionRequest = "request"
	ActionRead    = "read"
	ActionRevoke  = "revoke"
)

// Permissions is the fixed permission set of a role.
func (r Role) Permissions() []Permission {
	switch r {
	case RoleSuperAdmin:
		return []Permission{
			{Object: ObjectOTP, Action: ActionRequest},
			{Object: ObjectSession, Action: ActionRead},
			{Object: ObjectSession, Action: ActionRevoke},
			{Object: ObjectAccount, Action: ActionRead},
		}
	default:
		return nil
	}
}

// RejectReason explains internally why a code was not consumed. It never
// reaches the caller.
type RejectReason string

const (
	RejectReasonNone              RejectReason = ""
	RejectReasonNotFound          RejectReason = "not_found"
	RejectReasonCodeMismatch      RejectReason = "code_mismatch"
	RejectReasonExpired           RejectReason = "expired"
	RejectReasonAttemptsExhausted RejectReason = "attempts_exhausted"
)

// ClassifyRejection picks the reason for a failed submission against an
// unused record, using the record state before the attempt was counted.
// Exhaustion wins over expiry, expiry wins over a wrong code.
func ClassifyRejection(prevAttempts int16, expiresAt, now time.Time, codeMatch bool) RejectReason {
	switch {
	case prevAttempts >= MaxOTPAttempts:
		return RejectReasonAttemptsExhausted
	case !expiresAt.After(now):
		return RejectReasonExpired
	case !codeMatch:
		return RejectReasonCodeMismatch
	default:
		// only reachable when a concurrent submission consumed the record first
		return RejectReasonNotFound
	}
}

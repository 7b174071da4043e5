package entity

import "strings"

// Purpose is why a code was issued. It decides the wording of the email.
type Purpose int16

const (
	PurposeUnknown           Purpose = 0
	PurposeEmailVerification Purpose = 1
	PurposePasswordReset     Purpose = 2
	PurposeLoginVerification Purpose = 3
)

func PurposeFromString(raw string) Purpose {
	switch strings.TrimSpace(raw) {
	case "email_verification":
		return PurposeEmailVerification
	case "password_reset":
		return PurposePasswordReset
	case "login_verification":
		return PurposeLoginVerification
	default:
		return PurposeUnknown
	}
}

func (p Purpose) String() string {
	switch p {
	case PurposeEmailVerification:
		return "email_verification"
	case PurposePasswordReset:
		return "password_reset"
	case PurposeLoginVerification:
		return "login_verification"
	default:
		return "unknown"
	}
}

// Subject is the email subject without any configured prefix.
func (p Purpose) Subject() string {
	switch p {
	case PurposeEmailVerification:
		return "Verify your email address"
	case PurposePasswordReset:
		return "Reset your password"
	case PurposeLoginVerification:
		return "Your sign-in code"
	default:
		return "Your verification code"
	}
}

// Intro is the sentence that tells the recipient what the code is for.
func (p Purpose) Intro() string {
	switch p {
	case PurposeEmailVerification:
		return "Use the code below to confirm this email address."
	case PurposePasswordReset:
		return "Someone asked to reset the password of your account. Use the code below to choose a new one."
	case PurposeLoginVerification:
		return "Use the code below to finish signing in."
	default:
		return "Use the code below to continue."
	}
}

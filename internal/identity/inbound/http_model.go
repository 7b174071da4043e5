package inbound

import "github.com/shandysiswandi/otpgate/internal/identity/usecase"

type OTPSendRequest struct {
	Email string `json:"email"`
	Type  string `json:"type"`
}

type OTPSendResponse struct {
	Email string `json:"email"`
	Type  string `json:"type"`
}

func (OTPSendResponse) Message() string {
	return "A verification code has been sent to your email."
}

type OTPVerifyRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
	Type  string `json:"type"`
}

type OTPVerifyResponse struct{}

func (OTPVerifyResponse) Message() string {
	return "Code verified."
}

type AccountResponse struct {
	ID              int64  `json:"id,string"`
	Email           string `json:"email"`
	Role            string `json:"role"`
	IsActive        bool   `json:"is_active"`
	IsEmailVerified bool   `json:"is_email_verified"`
}

func accountResponse(acc usecase.AccountOutput) AccountResponse {
	return AccountResponse{
		ID:              acc.ID,
		Email:           acc.Email,
		Role:            acc.Role,
		IsActive:        acc.IsActive,
		IsEmailVerified: acc.IsEmailVerified,
	}
}

type SessionResponse struct {
	Token   string          `json:"token"`
	Account AccountResponse `json:"account"`
}

func (SessionResponse) Message() string {
	return "Login successful."
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Email string `json:"email"`
	Type  string `json:"type"`
}

func (LoginResponse) Message() string {
	return "A login code has been sent to your email."
}

type PasswordForgotRequest struct {
	Email string `json:"email"`
}

type PasswordForgotResponse struct{}

func (PasswordForgotResponse) Message() string {
	return "If an account with that email exists, we have sent a password reset code."
}

type PasswordResetRequest struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"new_password"`
}

type PasswordResetResponse struct{}

func (PasswordResetResponse) Message() string {
	return "Your password has been reset. Please sign in again."
}

type MeResponse struct {
	AccountResponse
	LastLoginAt       *int64 `json:"last_login_at,omitempty"`
	PasswordChangedAt *int64 `json:"password_changed_at,omitempty"`
}

type LogoutResponse struct{}

func (LogoutResponse) Message() string {
	return "Logged out."
}

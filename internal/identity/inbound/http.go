package inbound

import (
	"context"
	"net/http"

	"github.com/shandysiswandi/otpgate/internal/identity/usecase"
	"github.com/shandysiswandi/otpgate/internal/pkg/router"
)

type uc interface {
	OTPSend(ctx context.Context, in usecase.OTPSendInput) (*usecase.OTPSendOutput, error)
	OTPVerify(ctx context.Context, in usecase.OTPVerifyInput) (*usecase.OTPVerifyOutput, error)

	Login(ctx context.Context, in usecase.LoginInput) (*usecase.LoginOutput, error)
	PasswordForgot(ctx context.Context, in usecase.PasswordForgotInput) error
	PasswordReset(ctx context.Context, in usecase.PasswordResetInput) error

	Me(ctx context.Context) (*usecase.MeOutput, error)
	Logout(ctx context.Context) error
}

func RegisterHTTPEndpoint(r *router.Router, uc uc) {
	end := &HTTPEndpoint{uc: uc}

	// One-time codes
	r.Public(http.MethodPost, "/api/v1/otp/send")
	r.Public(http.MethodPost, "/api/v1/otp/verify")
	r.POST("/api/v1/otp/send", end.OTPSend)
	r.POST("/api/v1/otp/verify", end.OTPVerify)

	// Credentials
	r.Public(http.MethodPost, "/api/v1/auth/login")
	r.Public(http.MethodPost, "/api/v1/auth/forgot-password")
	r.Public(http.MethodPost, "/api/v1/auth/reset-password")
	r.POST("/api/v1/auth/login", end.Login)
	r.POST("/api/v1/auth/forgot-password", end.PasswordForgot)
	r.POST("/api/v1/auth/reset-password", end.PasswordReset)

	// Session (need authenticated)
	r.GET("/api/v1/auth/me", end.Me)
	r.POST("/api/v1/auth/logout", end.Logout)
}

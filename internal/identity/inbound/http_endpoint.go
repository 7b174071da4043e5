package inbound

import (
	"github.com/shandysiswandi/otpgate/internal/identity/usecase"
	"github.com/shandysiswandi/otpgate/internal/pkg/router"
)

// HTTPEndpoint exposes the one-time code and session workflows over HTTP.
type HTTPEndpoint struct {
	uc uc
}

// OTPSend issues a one-time code to a known account.
// @Summary Request a one-time code
// @Tags Identity, OTP
// @Accept json
// @Produce json
// @Param request body OTPSendRequest true "Code request"
// @Success 200 {object} router.successResponse{data=OTPSendResponse}
// @Failure 400 {object} router.errorResponse "Validation error"
// @Failure 401 {object} router.errorResponse "Account is inactive"
// @Failure 403 {object} router.errorResponse "Account not allowed"
// @Failure 404 {object} router.errorResponse "Account not found"
// @Router /api/v1/otp/send [post]
func (h *HTTPEndpoint) OTPSend(r *router.Request) (any, error) {
	var req OTPSendRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.OTPSend(r.Context(), usecase.OTPSendInput{
		Email: req.Email,
		Type:  req.Type,
	})
	if err != nil {
		return nil, err
	}

	return OTPSendResponse{Email: resp.Email, Type: resp.Type.String()}, nil
}

// OTPVerify consumes a one-time code. A login code yields a session token.
// @Summary Verify a one-time code
// @Tags Identity, OTP
// @Accept json
// @Produce json
// @Param request body OTPVerifyRequest true "Code submission"
// @Success 200 {object} router.successResponse{data=SessionResponse}
// @Failure 400 {object} router.errorResponse "Invalid or expired code"
// @Router /api/v1/otp/verify [post]
func (h *HTTPEndpoint) OTPVerify(r *router.Request) (any, error) {
	var req OTPVerifyRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.OTPVerify(r.Context(), usecase.OTPVerifyInput{
		Email: req.Email,
		Code:  req.Code,
		Type:  req.Type,
	})
	if err != nil {
		return nil, err
	}

	if resp.Session == nil {
		return OTPVerifyResponse{}, nil
	}

	return SessionResponse{
		Token:   resp.Session.Token,
		Account: accountResponse(resp.Session.Account),
	}, nil
}

// Login checks the password and sends a login code.
// @Summary Sign in with password
// @Tags Identity, Authentication
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Credentials"
// @Success 200 {object} router.successResponse{data=LoginResponse}
// @Failure 401 {object} router.errorResponse "Invalid email or password"
// @Router /api/v1/auth/login [post]
func (h *HTTPEndpoint) Login(r *router.Request) (any, error) {
	var req LoginRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.Login(r.Context(), usecase.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return nil, err
	}

	return LoginResponse{Email: resp.Email, Type: resp.Type.String()}, nil
}

// PasswordForgot sends a password reset code when the account exists.
// @Summary Request a password reset code
// @Tags Identity, Password
// @Accept json
// @Produce json
// @Param request body PasswordForgotRequest true "Email"
// @Success 200 {object} router.successResponse{data=PasswordForgotResponse}
// @Router /api/v1/auth/forgot-password [post]
func (h *HTTPEndpoint) PasswordForgot(r *router.Request) (any, error) {
	var req PasswordForgotRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	if err := h.uc.PasswordForgot(r.Context(), usecase.PasswordForgotInput{Email: req.Email}); err != nil {
		return nil, err
	}

	return PasswordForgotResponse{}, nil
}

// PasswordReset sets a new password using a reset code.
// @Summary Reset password
// @Tags Identity, Password
// @Accept json
// @Produce json
// @Param request body PasswordResetRequest true "Reset payload"
// @Success 200 {object} router.successResponse{data=PasswordResetResponse}
// @Failure 400 {object} router.errorResponse "Invalid or expired code"
// @Router /api/v1/auth/reset-password [post]
func (h *HTTPEndpoint) PasswordReset(r *router.Request) (any, error) {
	var req PasswordResetRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	err := h.uc.PasswordReset(r.Context(), usecase.PasswordResetInput{
		Email:       req.Email,
		Code:        req.Code,
		NewPassword: req.NewPassword,
	})
	if err != nil {
		return nil, err
	}

	return PasswordResetResponse{}, nil
}

// Me returns the account behind the bearer token.
// @Summary Current account
// @Tags Identity, Session
// @Produce json
// @Security BearerAuth
// @Success 200 {object} router.successResponse{data=MeResponse}
// @Failure 401 {object} router.errorResponse "Unauthorized"
// @Router /api/v1/auth/me [get]
func (h *HTTPEndpoint) Me(r *router.Request) (any, error) {
	resp, err := h.uc.Me(r.Context())
	if err != nil {
		return nil, err
	}

	return MeResponse{
		AccountResponse:   accountResponse(resp.AccountOutput),
		LastLoginAt:       resp.LastLoginAt,
		PasswordChangedAt: resp.PasswordChangedAt,
	}, nil
}

// Logout acknowledges the end of a session.
// @Summary Sign out
// @Tags Identity, Session
// @Produce json
// @Security BearerAuth
// @Success 200 {object} router.successResponse{data=LogoutResponse}
// @Router /api/v1/auth/logout [post]
func (h *HTTPEndpoint) Logout(r *router.Request) (any, error) {
	if err := h.uc.Logout(r.Context()); err != nil {
		return nil, err
	}

	return LogoutResponse{}, nil
}

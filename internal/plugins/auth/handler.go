package auth

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/eventribe/eventribe/internal/apperror"
)

// Handler exposes the auth service over HTTP. All endpoints speak JSON.
type Handler struct {
	service    Service
	sessionTTL time.Duration
}

// NewHandler creates a new auth handler.
func NewHandler(service Service, sessionTTL time.Duration) *Handler {
	return &Handler{service: service, sessionTTL: sessionTTL}
}

// Login handles POST /api/auth/login. Valid credentials trigger a 2FA code
// by email; no session is established yet.
func (h *Handler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}

	result, err := h.service.Login(c.Request().Context(), req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, result)
}

// VerifyTwoFactor handles POST /api/auth/2fa. A correct code establishes
// the session: the token is set as a cookie and also returned in the body
// for API clients.
func (h *Handler) VerifyTwoFactor(c echo.Context) error {
	var req TwoFactorRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}

	token, user, err := h.service.VerifyTwoFactor(c.Request().Context(), req.UserID, req.Code)
	if err != nil {
		return err
	}

	setSessionCookie(c, token, int(h.sessionTTL.Seconds()))

	return c.JSON(http.StatusOK, map[string]interface{}{
		"token": token,
		"user":  user,
	})
}

// Register handles POST /api/auth/register.
func (h *Handler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}

	user, err := h.service.Register(c.Request().Context(), req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, user)
}

// RequestVerification handles POST /api/auth/verification. Issues (or
// reissues) an email verification code for a not-yet-registered address.
func (h *Handler) RequestVerification(c echo.Context) error {
	var req ResetRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}

	if err := h.service.RequestEmailVerification(c.Request().Context(), req.Email); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "verification code sent"})
}

// VerifyEmail handles POST /api/auth/verify-email.
func (h *Handler) VerifyEmail(c echo.Context) error {
	var req ResetRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}

	if err := h.service.VerifyEmail(c.Request().Context(), req.Email, req.Code); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "email verified"})
}

// ForgotPassword handles POST /api/auth/forgot-password. An unknown email
// is an error here; the reset flow tells the user their address has no
// account rather than failing silently.
func (h *Handler) ForgotPassword(c echo.Context) error {
	var req ResetRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}

	if err := h.service.RequestPasswordReset(c.Request().Context(), req.Email); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "reset code sent"})
}

// VerifyReset handles POST /api/auth/verify-reset. A pure check used by the
// reset form before asking for the new password; nothing is consumed.
func (h *Handler) VerifyReset(c echo.Context) error {
	var req ResetRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}

	ok, err := h.service.VerifyPasswordReset(c.Request().Context(), req.Email, req.Code)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]bool{"valid": ok})
}

// ResetPassword handles POST /api/auth/reset-password, the final step of
// the reset flow.
func (h *Handler) ResetPassword(c echo.Context) error {
	var req ResetRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}

	if err := h.service.CompletePasswordReset(c.Request().Context(), req.Email, req.Code, req.Password); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "password updated"})
}

// Logout handles POST /api/auth/logout. Tokens are stateless so logout just
// clears the cookie; the token itself remains valid until expiry.
func (h *Handler) Logout(c echo.Context) error {
	clearSessionCookie(c)
	return c.JSON(http.StatusOK, map[string]string{"message": "logged out"})
}

// Me handles GET /api/auth/me and returns the claims of the current session.
func (h *Handler) Me(c echo.Context) error {
	claims := GetClaims(c)
	if claims == nil {
		return apperror.NewUnauthorized("authentication required")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"user_id":    claims.UserID,
		"first_name": claims.FirstName,
		"last_name":  claims.LastName,
		"name":       claims.Name(),
		"email":      claims.Email,
		"is_admin":   claims.IsAdmin,
	})
}

// UpdateProfile handles PUT /api/auth/profile. The refreshed token replaces
// the session cookie so the claims reflect the new name immediately.
func (h *Handler) UpdateProfile(c echo.Context) error {
	claims := GetClaims(c)
	if claims == nil {
		return apperror.NewUnauthorized("authentication required")
	}

	var req UpdateProfileRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}

	token, user, err := h.service.UpdateProfile(c.Request().Context(), claims.UserID, req)
	if err != nil {
		return err
	}

	setSessionCookie(c, token, int(h.sessionTTL.Seconds()))

	return c.JSON(http.StatusOK, map[string]interface{}{
		"token": token,
		"user":  user,
	})
}

// UpdateImage handles PUT /api/auth/image. The image itself is uploaded
// through the media endpoint; this records the resulting path.
func (h *Handler) UpdateImage(c echo.Context) error {
	claims := GetClaims(c)
	if claims == nil {
		return apperror.NewUnauthorized("authentication required")
	}

	var req struct {
		ImagePath string `json:"image_path" form:"image_path"`
	}
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}

	token, err := h.service.UpdateImage(c.Request().Context(), claims.UserID, req.ImagePath)
	if err != nil {
		return err
	}

	setSessionCookie(c, token, int(h.sessionTTL.Seconds()))

	return c.JSON(http.StatusOK, map[string]string{"token": token})
}

// DeleteAccount handles DELETE /api/auth/account. The session cookie is
// cleared along with the account.
func (h *Handler) DeleteAccount(c echo.Context) error {
	claims := GetClaims(c)
	if claims == nil {
		return apperror.NewUnauthorized("authentication required")
	}

	if err := h.service.DeleteAccount(c.Request().Context(), claims.UserID); err != nil {
		return err
	}

	clearSessionCookie(c)

	return c.JSON(http.StatusOK, map[string]string{"message": "account deleted"})
}

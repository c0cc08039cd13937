package auth

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/eventribe/eventribe/internal/middleware"
)

// RegisterRoutes sets up the auth API routes. The Gate already runs
// globally, so the /api/auth/ prefix is public by construction; endpoints
// that need an identity check the context claims themselves.
//
// Credential endpoints are rate-limited per IP to blunt brute-force and
// code-guessing attempts: 10/min for login and 2FA, 5/min for register and
// the reset flow.
func RegisterRoutes(e *echo.Echo, h *Handler, rdb *redis.Client) {
	g := e.Group("/api/auth")

	g.POST("/login", h.Login, middleware.RateLimit(rdb, 10, time.Minute))
	g.POST("/2fa", h.VerifyTwoFactor, middleware.RateLimit(rdb, 10, time.Minute))
	g.POST("/register", h.Register, middleware.RateLimit(rdb, 5, time.Minute))

	g.POST("/verification", h.RequestVerification, middleware.RateLimit(rdb, 5, time.Minute))
	g.POST("/verify-email", h.VerifyEmail, middleware.RateLimit(rdb, 10, time.Minute))

	g.POST("/forgot-password", h.ForgotPassword, middleware.RateLimit(rdb, 5, time.Minute))
	g.POST("/verify-reset", h.VerifyReset, middleware.RateLimit(rdb, 10, time.Minute))
	g.POST("/reset-password", h.ResetPassword, middleware.RateLimit(rdb, 5, time.Minute))

	g.POST("/logout", h.Logout)
	g.GET("/me", h.Me)
	g.PUT("/profile", h.UpdateProfile)
	g.PUT("/image", h.UpdateImage)
	g.DELETE("/account", h.DeleteAccount)
}

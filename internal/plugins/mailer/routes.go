package mailer

import (
	"github.com/labstack/echo/v4"

	"github.com/eventribe/eventribe/internal/plugins/auth"
)

// RegisterRoutes sets up the mailer admin routes.
func RegisterRoutes(e *echo.Echo, h *Handler) {
	g := e.Group("/api/admin/smtp", auth.RequireAdmin())

	g.GET("", h.GetSettings)
	g.PUT("", h.UpdateSettings)
	g.POST("/test", h.TestConnection)
}

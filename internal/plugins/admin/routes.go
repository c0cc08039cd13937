package admin

import (
	"github.com/labstack/echo/v4"

	"github.com/eventribe/eventribe/internal/plugins/auth"
)

// RegisterRoutes sets up the admin API routes behind the admin middleware.
func RegisterRoutes(e *echo.Echo, h *Handler) {
	g := e.Group("/api/admin", auth.RequireAdmin())

	g.GET("/dashboard", h.Dashboard)
	g.GET("/users", h.ListUsers)
	g.POST("/users/:id/toggle-admin", h.ToggleAdmin)
	g.DELETE("/users/:id", h.DeleteUser)
	g.DELETE("/events/:id/attendees/:user_id", h.RemoveAttendee)
}

package events

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes sets up the event API routes. GET endpoints on the listing
// and detail pages are public; everything else needs a session, which the
// global gate enforces and the handlers double-check via the claims.
func RegisterRoutes(e *echo.Echo, h *Handler) {
	g := e.Group("/api/events")

	g.GET("", h.List)
	g.GET("/mine", h.Mine)
	g.GET("/registrations", h.MyRegistrations)
	g.GET("/:id", h.Get)
	g.GET("/:id/attendees", h.Attendees)

	g.POST("", h.Create)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)

	g.POST("/:id/register", h.Register)
	g.DELETE("/:id/register", h.Unregister)
}

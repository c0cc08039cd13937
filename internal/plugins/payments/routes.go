package payments

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes sets up the payment API routes. Nothing here is public;
// the global gate blocks anonymous requests before they reach the handlers.
func RegisterRoutes(e *echo.Echo, h *Handler) {
	g := e.Group("/api/payments")

	g.GET("", h.History)
	g.POST("", h.Record)
	g.POST("/:id/refund", h.Refund)

	g.GET("/methods", h.ListMethods)
	g.POST("/methods", h.AddMethod)
	g.DELETE("/methods/:id", h.RemoveMethod)
	g.PUT("/methods/:id/default", h.SetDefaultMethod)
}

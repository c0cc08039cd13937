package events

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/eventribe/eventribe/internal/apperror"
	"github.com/eventribe/eventribe/internal/plugins/auth"
)

// Handler exposes the event service over HTTP.
type Handler struct {
	service Service
}

// NewHandler creates a new event handler.
func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// List handles GET /api/events. Public.
func (h *Handler) List(c echo.Context) error {
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	events, total, err := h.service.ListUpcoming(c.Request().Context(), c.QueryParam("q"), offset, limit)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"events": events,
		"total":  total,
	})
}

// Get handles GET /api/events/:id. Public.
func (h *Handler) Get(c echo.Context) error {
	id, err := eventID(c)
	if err != nil {
		return err
	}

	event, err := h.service.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, event)
}

// Create handles POST /api/events.
func (h *Handler) Create(c echo.Context) error {
	claims := auth.GetClaims(c)
	if claims == nil {
		return apperror.NewUnauthorized("authentication required")
	}

	var input EventInput
	if err := c.Bind(&input); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}

	event, err := h.service.Create(c.Request().Context(), claims.UserID, input)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, event)
}

// Update handles PUT /api/events/:id.
func (h *Handler) Update(c echo.Context) error {
	claims := auth.GetClaims(c)
	if claims == nil {
		return apperror.NewUnauthorized("authentication required")
	}

	id, err := eventID(c)
	if err != nil {
		return err
	}

	var input EventInput
	if err := c.Bind(&input); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}

	event, err := h.service.Update(c.Request().Context(), id, claims.UserID, claims.IsAdmin, input)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, event)
}

// Delete handles DELETE /api/events/:id.
func (h *Handler) Delete(c echo.Context) error {
	claims := auth.GetClaims(c)
	if claims == nil {
		return apperror.NewUnauthorized("authentication required")
	}

	id, err := eventID(c)
	if err != nil {
		return err
	}

	if err := h.service.Delete(c.Request().Context(), id, claims.UserID, claims.IsAdmin); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "event deleted"})
}

// Register handles POST /api/events/:id/register.
func (h *Handler) Register(c echo.Context) error {
	claims := auth.GetClaims(c)
	if claims == nil {
		return apperror.NewUnauthorized("authentication required")
	}

	id, err := eventID(c)
	if err != nil {
		return err
	}

	if err := h.service.Register(c.Request().Context(), id, claims.UserID); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "registered"})
}

// Unregister handles DELETE /api/events/:id/register.
func (h *Handler) Unregister(c echo.Context) error {
	claims := auth.GetClaims(c)
	if claims == nil {
		return apperror.NewUnauthorized("authentication required")
	}

	id, err := eventID(c)
	if err != nil {
		return err
	}

	if err := h.service.Unregister(c.Request().Context(), id, claims.UserID); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "registration cancelled"})
}

// Mine handles GET /api/events/mine and lists the caller's own events.
func (h *Handler) Mine(c echo.Context) error {
	claims := auth.GetClaims(c)
	if claims == nil {
		return apperror.NewUnauthorized("authentication required")
	}

	events, err := h.service.ListMine(c.Request().Context(), claims.UserID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]interface{}{"events": events})
}

// MyRegistrations handles GET /api/events/registrations.
func (h *Handler) MyRegistrations(c echo.Context) error {
	claims := auth.GetClaims(c)
	if claims == nil {
		return apperror.NewUnauthorized("authentication required")
	}

	events, err := h.service.MyRegistrations(c.Request().Context(), claims.UserID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]interface{}{"events": events})
}

// Attendees handles GET /api/events/:id/attendees. Owner or admin only.
func (h *Handler) Attendees(c echo.Context) error {
	claims := auth.GetClaims(c)
	if claims == nil {
		return apperror.NewUnauthorized("authentication required")
	}

	id, err := eventID(c)
	if err != nil {
		return err
	}

	regs, err := h.service.Attendees(c.Request().Context(), id, claims.UserID, claims.IsAdmin)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]interface{}{"attendees": regs})
}

// eventID parses the :id path parameter.
func eventID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperror.NewBadRequest("invalid event id")
	}
	return id, nil
}

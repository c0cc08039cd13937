package admin

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/eventribe/eventribe/internal/apperror"
	"github.com/eventribe/eventribe/internal/plugins/auth"
)

// Handler exposes the admin service over HTTP.
type Handler struct {
	service Service
}

// NewHandler creates a new admin handler.
func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Dashboard handles GET /api/admin/dashboard.
func (h *Handler) Dashboard(c echo.Context) error {
	stats, err := h.service.Dashboard(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, stats)
}

// ListUsers handles GET /api/admin/users.
func (h *Handler) ListUsers(c echo.Context) error {
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	users, total, err := h.service.ListUsers(c.Request().Context(), offset, limit)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"users": users,
		"total": total,
	})
}

// ToggleAdmin handles POST /api/admin/users/:id/toggle-admin.
func (h *Handler) ToggleAdmin(c echo.Context) error {
	claims := auth.GetClaims(c)
	targetID, err := pathID(c, "id")
	if err != nil {
		return err
	}

	if err := h.service.ToggleAdmin(c.Request().Context(), claims.UserID, targetID); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "admin status updated"})
}

// DeleteUser handles DELETE /api/admin/users/:id.
func (h *Handler) DeleteUser(c echo.Context) error {
	claims := auth.GetClaims(c)
	targetID, err := pathID(c, "id")
	if err != nil {
		return err
	}

	if err := h.service.DeleteUser(c.Request().Context(), claims.UserID, targetID); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "user deleted"})
}

// RemoveAttendee handles DELETE /api/admin/events/:id/attendees/:user_id.
func (h *Handler) RemoveAttendee(c echo.Context) error {
	eventID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	userID, err := pathID(c, "user_id")
	if err != nil {
		return err
	}

	if err := h.service.RemoveAttendee(c.Request().Context(), eventID, userID); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "attendee removed"})
}

func pathID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperror.NewBadRequest("invalid " + name)
	}
	return id, nil
}

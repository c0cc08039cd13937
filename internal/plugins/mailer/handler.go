package mailer

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/eventribe/eventribe/internal/apperror"
)

// Handler exposes the mailer settings endpoints. All routes are admin-only;
// the route group applies the admin middleware.
type Handler struct {
	service Service
}

// NewHandler creates a new mailer handler.
func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// GetSettings handles GET /api/admin/smtp.
func (h *Handler) GetSettings(c echo.Context) error {
	settings, err := h.service.GetSettings(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, settings)
}

// UpdateSettings handles PUT /api/admin/smtp.
func (h *Handler) UpdateSettings(c echo.Context) error {
	var req UpdateSettingsRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}

	if err := h.service.UpdateSettings(c.Request().Context(), req); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "smtp settings saved"})
}

// TestConnection handles POST /api/admin/smtp/test.
func (h *Handler) TestConnection(c echo.Context) error {
	if err := h.service.TestConnection(c.Request().Context()); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "connection successful"})
}

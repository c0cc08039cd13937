package payments

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/eventribe/eventribe/internal/apperror"
	"github.com/eventribe/eventribe/internal/plugins/auth"
)

// Handler exposes the payment service over HTTP. All routes require a
// session; the global gate guarantees claims are present.
type Handler struct {
	service Service
}

// NewHandler creates a new payment handler.
func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// ListMethods handles GET /api/payments/methods.
func (h *Handler) ListMethods(c echo.Context) error {
	claims := auth.GetClaims(c)
	if claims == nil {
		return apperror.NewUnauthorized("authentication required")
	}

	methods, err := h.service.ListMethods(c.Request().Context(), claims.UserID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]interface{}{"methods": methods})
}

// AddMethod handles POST /api/payments/methods.
func (h *Handler) AddMethod(c echo.Context) error {
	claims := auth.GetClaims(c)
	if claims == nil {
		return apperror.NewUnauthorized("authentication required")
	}

	var input MethodInput
	if err := c.Bind(&input); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}

	method, err := h.service.AddMethod(c.Request().Context(), claims.UserID, input)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, method)
}

// RemoveMethod handles DELETE /api/payments/methods/:id.
func (h *Handler) RemoveMethod(c echo.Context) error {
	claims := auth.GetClaims(c)
	if claims == nil {
		return apperror.NewUnauthorized("authentication required")
	}

	id, err := pathID(c)
	if err != nil {
		return err
	}

	if err := h.service.RemoveMethod(c.Request().Context(), id, claims.UserID); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "payment method removed"})
}

// SetDefaultMethod handles PUT /api/payments/methods/:id/default.
func (h *Handler) SetDefaultMethod(c echo.Context) error {
	claims := auth.GetClaims(c)
	if claims == nil {
		return apperror.NewUnauthorized("authentication required")
	}

	id, err := pathID(c)
	if err != nil {
		return err
	}

	if err := h.service.SetDefaultMethod(c.Request().Context(), id, claims.UserID); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "default method updated"})
}

// Record handles POST /api/payments. It writes the fee for one of the
// caller's event registrations.
func (h *Handler) Record(c echo.Context) error {
	claims := auth.GetClaims(c)
	if claims == nil {
		return apperror.NewUnauthorized("authentication required")
	}

	var input RecordInput
	if err := c.Bind(&input); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}
	if input.EventID <= 0 {
		return apperror.NewValidation("event_id is required")
	}

	payment, err := h.service.RecordPayment(c.Request().Context(),
		claims.UserID, input.EventID, input.MethodID, input.AmountCents, input.Currency)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, payment)
}

// History handles GET /api/payments.
func (h *Handler) History(c echo.Context) error {
	claims := auth.GetClaims(c)
	if claims == nil {
		return apperror.NewUnauthorized("authentication required")
	}

	payments, err := h.service.History(c.Request().Context(), claims.UserID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]interface{}{"payments": payments})
}

// Refund handles POST /api/payments/:id/refund.
func (h *Handler) Refund(c echo.Context) error {
	claims := auth.GetClaims(c)
	if claims == nil {
		return apperror.NewUnauthorized("authentication required")
	}

	id, err := pathID(c)
	if err != nil {
		return err
	}

	if err := h.service.Refund(c.Request().Context(), id, claims.UserID); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "payment refunded"})
}

func pathID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperror.NewBadRequest("invalid id")
	}
	return id, nil
}

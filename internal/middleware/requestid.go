package middleware

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// requestIDHeader is the response header carrying the request ID.
const requestIDHeader = "X-Request-ID"

// contextKeyRequestID is the Echo context key for the request ID.
const contextKeyRequestID = "request_id"

// RequestID returns middleware that assigns every request a UUID, echoes it
// back in the X-Request-ID response header, and stores it in the context so
// the request logger can correlate log lines. An incoming X-Request-ID from
// a trusted proxy is reused instead of generating a new one.
func RequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := c.Request().Header.Get(requestIDHeader)
			if id == "" {
				id = uuid.NewString()
			}

			c.Set(contextKeyRequestID, id)
			c.Response().Header().Set(requestIDHeader, id)

			return next(c)
		}
	}
}

// GetRequestID retrieves the request ID from the Echo context.
// Returns empty string if RequestID middleware was not applied.
func GetRequestID(c echo.Context) string {
	if id, ok := c.Get(contextKeyRequestID).(string); ok {
		return id
	}
	return ""
}

// Package apperror provides the domain error types for eventribe. Every
// error that crosses a handler boundary carries an HTTP status code, a
// machine-readable type, and a message that is safe to show to the client.
// The Echo error handler maps them to JSON responses automatically.
//
// Raw database or transport errors must never reach the client. Wrap them
// with NewInternal so the cause is logged server-side while the caller only
// sees a generic message.
package apperror

import (
	"fmt"
	"net/http"
)

// AppError is the base error type for all domain errors.
type AppError struct {
	// Code is the HTTP status code (e.g. 404, 422, 500).
	Code int `json:"-"`

	// Type is a machine-readable classifier (e.g. "invalid_credentials").
	Type string `json:"type"`

	// Message is a human-readable description safe for the client.
	Message string `json:"message"`

	// Internal holds the underlying error for logging. Never exposed.
	Internal error `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %s (internal: %v)", e.Type, e.Message, e.Internal)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *AppError) Unwrap() error {
	return e.Internal
}

// NewValidation creates a 422 error for malformed or missing input.
// Validation runs before any store access, so these carry no side effects.
func NewValidation(message string) *AppError {
	return &AppError{
		Code:    http.StatusUnprocessableEntity,
		Type:    "validation_error",
		Message: message,
	}
}

// NewInvalidCredentials creates the 401 returned for both unknown email and
// wrong password. The two cases are deliberately indistinguishable to the
// caller to prevent account enumeration.
func NewInvalidCredentials() *AppError {
	return &AppError{
		Code:    http.StatusUnauthorized,
		Type:    "invalid_credentials",
		Message: "invalid email or password",
	}
}

// NewInvalidCode creates the 400 returned for a wrong, missing, or expired
// verification code. Expiry and mismatch are reported identically.
func NewInvalidCode() *AppError {
	return &AppError{
		Code:    http.StatusBadRequest,
		Type:    "invalid_code",
		Message: "invalid or expired code",
	}
}

// NewUnauthorized creates a 401 Unauthorized error.
func NewUnauthorized(message string) *AppError {
	return &AppError{
		Code:    http.StatusUnauthorized,
		Type:    "unauthorized",
		Message: message,
	}
}

// NewForbidden creates a 403 Forbidden error.
func NewForbidden(message string) *AppError {
	return &AppError{
		Code:    http.StatusForbidden,
		Type:    "forbidden",
		Message: message,
	}
}

// NewNotFound creates a 404 Not Found error.
func NewNotFound(message string) *AppError {
	return &AppError{
		Code:    http.StatusNotFound,
		Type:    "not_found",
		Message: message,
	}
}

// NewConflict creates a 409 Conflict error (duplicate account, duplicate
// registration).
func NewConflict(message string) *AppError {
	return &AppError{
		Code:    http.StatusConflict,
		Type:    "conflict",
		Message: message,
	}
}

// NewBadRequest creates a 400 Bad Request error.
func NewBadRequest(message string) *AppError {
	return &AppError{
		Code:    http.StatusBadRequest,
		Type:    "bad_request",
		Message: message,
	}
}

// NewInternal creates a 500 Internal Server Error. The real error is kept
// in Internal for logging; the client only sees a generic message.
func NewInternal(err error) *AppError {
	return &AppError{
		Code:     http.StatusInternalServerError,
		Type:     "internal_error",
		Message:  "An unexpected error occurred. Please try again.",
		Internal: err,
	}
}

// Package auth implements credential checking, two-factor login codes,
// password reset, session token issuance, and the per-request authorization
// gate for eventribe. Handlers in other plugins read the authenticated
// identity through GetClaims.
package auth

import (
	"time"
)

// codeTTL is the lifetime of every one-time verification code (2FA login,
// password reset, pre-registration email verification).
const codeTTL = 10 * time.Minute

// minPasswordLength is the minimum accepted password length.
const minPasswordLength = 6

// User represents a registered eventribe user. This is the domain model used
// throughout the application.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	PasswordHash string    `json:"-"` // Never expose in JSON responses.
	ImagePath    *string   `json:"image_path,omitempty"`
	IsAdmin      bool      `json:"is_admin"`
	CreatedAt    time.Time `json:"created_at"`
}

// Sanitized returns a copy of the user with the password hash stripped.
// Every value handed back to a handler goes through this.
func (u *User) Sanitized() *User {
	out := *u
	out.PasswordHash = ""
	return &out
}

// VerificationCode is a short-lived one-time code bound to an owner key.
// The owner key encodes both the flow and the principal ("2fa:42",
// "reset:42", "verify:alice@example.com") so each flow consumes its own
// batch without touching the others.
type VerificationCode struct {
	OwnerKey  string
	Code      string
	ExpiresAt time.Time
}

// --- Request DTOs (bound from HTTP requests) ---

// LoginRequest holds the credentials submitted to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// TwoFactorRequest holds the user id and code submitted after login.
type TwoFactorRequest struct {
	UserID int64  `json:"user_id" form:"user_id"`
	Code   string `json:"code" form:"code"`
}

// RegisterRequest holds the data submitted by the registration form.
type RegisterRequest struct {
	Username string `json:"username" form:"username"`
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
	Confirm  string `json:"confirm" form:"confirm"`
}

// ResetRequest holds the email/code/password combination used across the
// password-reset flow. Password is only set on the final step.
type ResetRequest struct {
	Email    string `json:"email" form:"email"`
	Code     string `json:"code" form:"code"`
	Password string `json:"password" form:"password"`
}

// UpdateProfileRequest holds a profile mutation. A successful update
// refreshes the session token so the claims track the new name fields.
type UpdateProfileRequest struct {
	FirstName string `json:"first_name" form:"first_name"`
	LastName  string `json:"last_name" form:"last_name"`
}

// LoginResult is returned by Login. No session token exists yet; the
// caller must pass the emailed code to VerifyTwoFactor first.
type LoginResult struct {
	RequiresTwoFactor bool  `json:"requires_2fa"`
	UserID            int64 `json:"user_id"`
}

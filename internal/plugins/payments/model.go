// Package payments manages stored payment methods and the payment records
// tied to event registrations. Everything here is strictly owner-scoped:
// a user can only ever see or touch their own rows.
package payments

import (
	"time"
)

// PaymentMethod is a stored card reference. Only the last four digits are
// kept; the full number never reaches the database.
type PaymentMethod struct {
	ID             int64     `json:"id"`
	UserID         int64     `json:"-"`
	Label          string    `json:"label"`
	Brand          string    `json:"brand"`
	CardholderName string    `json:"cardholder_name"`
	LastFour       string    `json:"last_four"`
	ExpiryMonth    int       `json:"expiry_month"`
	ExpiryYear     int       `json:"expiry_year"`
	IsDefault      bool      `json:"is_default"`
	CreatedAt      time.Time `json:"created_at"`
}

// Payment records a charge made for an event registration.
type Payment struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"-"`
	EventID     int64     `json:"event_id"`
	MethodID    *int64    `json:"method_id,omitempty"`
	AmountCents int64     `json:"amount_cents"`
	Currency    string    `json:"currency"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// Payment statuses.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusRefunded  = "refunded"
)

// RecordInput is the payload for recording a registration fee payment.
type RecordInput struct {
	EventID     int64  `json:"event_id" form:"event_id"`
	MethodID    *int64 `json:"method_id" form:"method_id"`
	AmountCents int64  `json:"amount_cents" form:"amount_cents"`
	Currency    string `json:"currency" form:"currency"`
}

// MethodInput is the payload for adding a payment method. CardNumber is
// reduced to its last four digits before storage.
type MethodInput struct {
	Label          string `json:"label" form:"label"`
	CardholderName string `json:"cardholder_name" form:"cardholder_name"`
	CardNumber     string `json:"card_number" form:"card_number"`
	ExpiryMonth    int    `json:"expiry_month" form:"expiry_month"`
	ExpiryYear     int    `json:"expiry_year" form:"expiry_year"`
	IsDefault      bool   `json:"is_default" form:"is_default"`
}

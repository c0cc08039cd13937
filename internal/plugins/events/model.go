// Package events implements event browsing, management, and attendance
// registration. Anyone can browse; creating an event requires a session,
// and mutating one requires ownership or admin rights.
package events

import (
	"time"
)

// unregisterCutoff is how close to the event start a normal attendee can
// still cancel their registration. Inside the window only staff can remove
// an attendee.
const unregisterCutoff = 48 * time.Hour

// Event represents a published event.
type Event struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	Date        time.Time `json:"date"`
	Capacity    int       `json:"capacity"`
	ImagePath   *string   `json:"image_path,omitempty"`
	CreatedBy   int64     `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`

	// Registered is filled by list/detail queries, not stored.
	Registered int `json:"registered"`
}

// Registration links a user to an event they attend.
type Registration struct {
	EventID   int64     `json:"event_id"`
	UserID    int64     `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// EventInput is the payload for creating or updating an event.
type EventInput struct {
	Title       string    `json:"title" form:"title"`
	Description string    `json:"description" form:"description"`
	Location    string    `json:"location" form:"location"`
	Date        time.Time `json:"date" form:"date"`
	Capacity    int       `json:"capacity" form:"capacity"`
	ImagePath   *string   `json:"image_path" form:"image_path"`
}

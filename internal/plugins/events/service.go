package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/eventribe/eventribe/internal/apperror"
)

// Service defines the business logic contract for events.
type Service interface {
	Create(ctx context.Context, userID int64, input EventInput) (*Event, error)
	Get(ctx context.Context, id int64) (*Event, error)
	ListUpcoming(ctx context.Context, search string, offset, limit int) ([]Event, int, error)
	ListMine(ctx context.Context, userID int64) ([]Event, error)

	Update(ctx context.Context, id, userID int64, isAdmin bool, input EventInput) (*Event, error)
	Delete(ctx context.Context, id, userID int64, isAdmin bool) error

	Register(ctx context.Context, eventID, userID int64) error
	Unregister(ctx context.Context, eventID, userID int64) error
	UnregisterByStaff(ctx context.Context, eventID, userID int64) error
	MyRegistrations(ctx context.Context, userID int64) ([]Event, error)
	Attendees(ctx context.Context, eventID, userID int64, isAdmin bool) ([]Registration, error)
}

type eventService struct {
	repo Repository
}

// NewService creates a new event service.
func NewService(repo Repository) Service {
	return &eventService{repo: repo}
}

// Create publishes a new event owned by userID.
func (s *eventService) Create(ctx context.Context, userID int64, input EventInput) (*Event, error) {
	if msg := validateEventInput(&input); msg != "" {
		return nil, apperror.NewValidation(msg)
	}

	event := &Event{
		Title:       strings.TrimSpace(input.Title),
		Description: input.Description,
		Location:    strings.TrimSpace(input.Location),
		Date:        input.Date,
		Capacity:    input.Capacity,
		ImagePath:   input.ImagePath,
		CreatedBy:   userID,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, event); err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("creating event: %w", err))
	}

	slog.Info("event created",
		slog.Int64("event_id", event.ID),
		slog.Int64("user_id", userID),
	)

	return event, nil
}

// Get returns one event by id.
func (s *eventService) Get(ctx context.Context, id int64) (*Event, error) {
	event, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, err
		}
		return nil, apperror.NewInternal(fmt.Errorf("loading event: %w", err))
	}
	return event, nil
}

// ListUpcoming returns future events with pagination and an optional
// title/location search.
func (s *eventService) ListUpcoming(ctx context.Context, search string, offset, limit int) ([]Event, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	events, total, err := s.repo.ListUpcoming(ctx, strings.TrimSpace(search), offset, limit)
	if err != nil {
		return nil, 0, apperror.NewInternal(fmt.Errorf("listing events: %w", err))
	}
	return events, total, nil
}

// ListMine returns the events created by the user.
func (s *eventService) ListMine(ctx context.Context, userID int64) ([]Event, error) {
	events, err := s.repo.ListByCreator(ctx, userID)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("listing own events: %w", err))
	}
	return events, nil
}

// Update mutates an event. Non-admins go through the owner-scoped query,
// so an event they don't own looks exactly like one that doesn't exist.
func (s *eventService) Update(ctx context.Context, id, userID int64, isAdmin bool, input EventInput) (*Event, error) {
	if msg := validateEventInput(&input); msg != "" {
		return nil, apperror.NewValidation(msg)
	}

	var err error
	if isAdmin {
		err = s.repo.UpdateAny(ctx, id, input)
	} else {
		err = s.repo.Update(ctx, id, userID, input)
	}
	if err != nil {
		if isNotFound(err) {
			return nil, err
		}
		return nil, apperror.NewInternal(fmt.Errorf("updating event: %w", err))
	}

	return s.Get(ctx, id)
}

// Delete removes an event, owner-scoped unless the caller is an admin.
func (s *eventService) Delete(ctx context.Context, id, userID int64, isAdmin bool) error {
	var err error
	if isAdmin {
		err = s.repo.DeleteAny(ctx, id)
	} else {
		err = s.repo.Delete(ctx, id, userID)
	}
	if err != nil {
		if isNotFound(err) {
			return err
		}
		return apperror.NewInternal(fmt.Errorf("deleting event: %w", err))
	}

	slog.Info("event deleted", slog.Int64("event_id", id), slog.Int64("user_id", userID))
	return nil
}

// Register adds the user as an attendee if the event is upcoming and has
// capacity left. The capacity check is best effort; the database's primary
// key is what prevents double registration.
func (s *eventService) Register(ctx context.Context, eventID, userID int64) error {
	event, err := s.Get(ctx, eventID)
	if err != nil {
		return err
	}

	if time.Now().After(event.Date) {
		return apperror.NewValidation("this event has already started")
	}
	if event.Capacity > 0 && event.Registered >= event.Capacity {
		return apperror.NewConflict("this event is fully booked")
	}

	if err := s.repo.Register(ctx, eventID, userID); err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			return appErr
		}
		return apperror.NewInternal(fmt.Errorf("registering attendance: %w", err))
	}

	slog.Info("user registered for event",
		slog.Int64("event_id", eventID),
		slog.Int64("user_id", userID),
	)
	return nil
}

// Unregister removes the user's own registration. Cancellation closes 48
// hours before the event starts; after that only staff can remove an
// attendee.
func (s *eventService) Unregister(ctx context.Context, eventID, userID int64) error {
	event, err := s.Get(ctx, eventID)
	if err != nil {
		return err
	}

	if time.Now().After(event.Date.Add(-unregisterCutoff)) {
		return apperror.NewForbidden("registrations can no longer be cancelled this close to the event")
	}

	return s.removeRegistration(ctx, eventID, userID)
}

// UnregisterByStaff removes any attendee without the cutoff check. Callers
// must have verified admin rights.
func (s *eventService) UnregisterByStaff(ctx context.Context, eventID, userID int64) error {
	if _, err := s.Get(ctx, eventID); err != nil {
		return err
	}
	return s.removeRegistration(ctx, eventID, userID)
}

func (s *eventService) removeRegistration(ctx context.Context, eventID, userID int64) error {
	if err := s.repo.Unregister(ctx, eventID, userID); err != nil {
		if isNotFound(err) {
			return err
		}
		return apperror.NewInternal(fmt.Errorf("removing registration: %w", err))
	}

	slog.Info("registration removed",
		slog.Int64("event_id", eventID),
		slog.Int64("user_id", userID),
	)
	return nil
}

// MyRegistrations returns the events the user attends.
func (s *eventService) MyRegistrations(ctx context.Context, userID int64) ([]Event, error) {
	events, err := s.repo.ListRegistrationsForUser(ctx, userID)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("listing registrations: %w", err))
	}
	return events, nil
}

// Attendees returns the registration list for an event. Only the event's
// owner or an admin may see it; anyone else gets the same not-found a
// missing event would produce.
func (s *eventService) Attendees(ctx context.Context, eventID, userID int64, isAdmin bool) ([]Registration, error) {
	event, err := s.Get(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !isAdmin && event.CreatedBy != userID {
		return nil, apperror.NewNotFound("event not found")
	}

	regs, err := s.repo.ListAttendees(ctx, eventID)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("listing attendees: %w", err))
	}
	return regs, nil
}

// validateEventInput checks an event payload. Returns an error message or
// empty string.
func validateEventInput(input *EventInput) string {
	if strings.TrimSpace(input.Title) == "" {
		return "title is required"
	}
	if input.Date.IsZero() {
		return "date is required"
	}
	if input.Capacity < 0 {
		return "capacity cannot be negative"
	}
	return ""
}

func isNotFound(err error) bool {
	var appErr *apperror.AppError
	return errors.As(err, &appErr) && appErr.Code == 404
}

// Package admin implements the staff surface: a dashboard with site-wide
// counts, user management, and attendee removal without the cancellation
// cutoff. Every route requires admin claims.
package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/eventribe/eventribe/internal/apperror"
	"github.com/eventribe/eventribe/internal/plugins/auth"
	"github.com/eventribe/eventribe/internal/plugins/events"
)

// Stats holds the dashboard counters.
type Stats struct {
	Users         int `json:"users"`
	Events        int `json:"events"`
	Registrations int `json:"registrations"`
}

// Service defines the admin operations.
type Service interface {
	Dashboard(ctx context.Context) (*Stats, error)
	ListUsers(ctx context.Context, offset, limit int) ([]auth.User, int, error)
	ToggleAdmin(ctx context.Context, actorID, targetID int64) error
	DeleteUser(ctx context.Context, actorID, targetID int64) error
	RemoveAttendee(ctx context.Context, eventID, userID int64) error
}

type adminService struct {
	users      auth.UserRepository
	eventStats events.Repository
	events     events.Service
}

// NewService creates a new admin service.
func NewService(users auth.UserRepository, eventRepo events.Repository, eventSvc events.Service) Service {
	return &adminService{users: users, eventStats: eventRepo, events: eventSvc}
}

// Dashboard gathers the site-wide counters.
func (s *adminService) Dashboard(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	var err error
	if stats.Users, err = s.users.CountUsers(ctx); err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("counting users: %w", err))
	}
	if stats.Events, err = s.eventStats.CountEvents(ctx); err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("counting events: %w", err))
	}
	if stats.Registrations, err = s.eventStats.CountAllRegistrations(ctx); err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("counting registrations: %w", err))
	}

	return stats, nil
}

// ListUsers returns a page of users with the total count.
func (s *adminService) ListUsers(ctx context.Context, offset, limit int) ([]auth.User, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 25
	}
	if offset < 0 {
		offset = 0
	}

	users, total, err := s.users.List(ctx, offset, limit)
	if err != nil {
		return nil, 0, apperror.NewInternal(fmt.Errorf("listing users: %w", err))
	}
	return users, total, nil
}

// ToggleAdmin flips the admin flag on the target user. An admin cannot
// toggle their own flag, so the site can never lock itself out by accident.
func (s *adminService) ToggleAdmin(ctx context.Context, actorID, targetID int64) error {
	if actorID == targetID {
		return apperror.NewForbidden("you cannot change your own admin status")
	}

	target, err := s.users.FindByID(ctx, targetID)
	if err != nil {
		if isNotFound(err) {
			return err
		}
		return apperror.NewInternal(fmt.Errorf("loading user: %w", err))
	}

	if err := s.users.UpdateIsAdmin(ctx, targetID, !target.IsAdmin); err != nil {
		if isNotFound(err) {
			return err
		}
		return apperror.NewInternal(fmt.Errorf("updating admin flag: %w", err))
	}

	slog.Info("admin flag toggled",
		slog.Int64("actor_id", actorID),
		slog.Int64("target_id", targetID),
		slog.Bool("is_admin", !target.IsAdmin),
	)
	return nil
}

// DeleteUser removes the target account. Self-deletion goes through the
// normal account deletion flow, not the admin surface.
func (s *adminService) DeleteUser(ctx context.Context, actorID, targetID int64) error {
	if actorID == targetID {
		return apperror.NewForbidden("you cannot delete your own account from the admin panel")
	}

	if err := s.users.Delete(ctx, targetID); err != nil {
		if isNotFound(err) {
			return err
		}
		return apperror.NewInternal(fmt.Errorf("deleting user: %w", err))
	}

	slog.Info("user deleted by staff",
		slog.Int64("actor_id", actorID),
		slog.Int64("target_id", targetID),
	)
	return nil
}

// RemoveAttendee removes a registration regardless of the cancellation
// cutoff.
func (s *adminService) RemoveAttendee(ctx context.Context, eventID, userID int64) error {
	return s.events.UnregisterByStaff(ctx, eventID, userID)
}

func isNotFound(err error) bool {
	var appErr *apperror.AppError
	return errors.As(err, &appErr) && appErr.Code == 404
}

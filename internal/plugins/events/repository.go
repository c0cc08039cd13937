package events

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/eventribe/eventribe/internal/apperror"
)

// Repository defines the data access contract for events and registrations.
type Repository interface {
	Create(ctx context.Context, event *Event) error
	FindByID(ctx context.Context, id int64) (*Event, error)
	ListUpcoming(ctx context.Context, search string, offset, limit int) ([]Event, int, error)
	ListByCreator(ctx context.Context, userID int64) ([]Event, error)

	// Update and Delete are scoped to the owner in SQL. A zero rows-affected
	// result means the event does not exist or belongs to someone else;
	// callers cannot tell which.
	Update(ctx context.Context, id, ownerID int64, input EventInput) error
	Delete(ctx context.Context, id, ownerID int64) error

	// Admin variants bypass the ownership scope.
	UpdateAny(ctx context.Context, id int64, input EventInput) error
	DeleteAny(ctx context.Context, id int64) error

	Register(ctx context.Context, eventID, userID int64) error
	Unregister(ctx context.Context, eventID, userID int64) error
	IsRegistered(ctx context.Context, eventID, userID int64) (bool, error)
	ListRegistrationsForUser(ctx context.Context, userID int64) ([]Event, error)
	ListAttendees(ctx context.Context, eventID int64) ([]Registration, error)

	CountEvents(ctx context.Context) (int, error)
	CountAllRegistrations(ctx context.Context) (int, error)
}

// eventRepository implements Repository with MariaDB.
type eventRepository struct {
	db *sql.DB
}

// NewRepository creates a new event repository.
func NewRepository(db *sql.DB) Repository {
	return &eventRepository{db: db}
}

const eventColumns = `e.id, e.title, e.description, e.location, e.date, e.capacity,
	e.image_path, e.created_by, e.created_at,
	(SELECT COUNT(*) FROM registrations r WHERE r.event_id = e.id) AS registered`

func scanEvent(row interface{ Scan(...interface{}) error }, e *Event) error {
	return row.Scan(
		&e.ID, &e.Title, &e.Description, &e.Location, &e.Date, &e.Capacity,
		&e.ImagePath, &e.CreatedBy, &e.CreatedAt, &e.Registered,
	)
}

// Create inserts a new event row and fills in the generated id.
func (r *eventRepository) Create(ctx context.Context, event *Event) error {
	query := `INSERT INTO events (title, description, location, date, capacity, image_path, created_by, created_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := r.db.ExecContext(ctx, query,
		event.Title, event.Description, event.Location, event.Date,
		event.Capacity, event.ImagePath, event.CreatedBy, event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting event: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading inserted event id: %w", err)
	}
	event.ID = id

	return nil
}

// FindByID retrieves one event with its registration count.
func (r *eventRepository) FindByID(ctx context.Context, id int64) (*Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events e WHERE e.id = ?`

	event := &Event{}
	err := scanEvent(r.db.QueryRowContext(ctx, query, id), event)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("event not found")
	}
	if err != nil {
		return nil, fmt.Errorf("querying event: %w", err)
	}
	return event, nil
}

// ListUpcoming returns future events ordered by date, plus the total count
// for pagination. A non-empty search filters on title and location.
func (r *eventRepository) ListUpcoming(ctx context.Context, search string, offset, limit int) ([]Event, int, error) {
	filter := ``
	countArgs := []interface{}{}
	if search != "" {
		filter = ` AND (title LIKE ? OR location LIKE ?)`
		pattern := "%" + search + "%"
		countArgs = append(countArgs, pattern, pattern)
	}

	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM events WHERE date >= NOW()`+filter, countArgs...,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting upcoming events: %w", err)
	}

	query := `SELECT ` + eventColumns + ` FROM events e
	          WHERE e.date >= NOW()` + filter + ` ORDER BY e.date ASC LIMIT ? OFFSET ?`
	args := append(countArgs, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing upcoming events: %w", err)
	}
	defer rows.Close()

	events, err := collectEvents(rows)
	return events, total, err
}

// ListByCreator returns every event created by the given user.
func (r *eventRepository) ListByCreator(ctx context.Context, userID int64) ([]Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events e
	          WHERE e.created_by = ? ORDER BY e.date ASC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("listing events by creator: %w", err)
	}
	defer rows.Close()

	return collectEvents(rows)
}

// Update mutates an event only if it belongs to ownerID. An event owned by
// someone else produces the same not-found as a missing one.
func (r *eventRepository) Update(ctx context.Context, id, ownerID int64, input EventInput) error {
	query := `UPDATE events SET title = ?, description = ?, location = ?, date = ?, capacity = ?, image_path = ?
	          WHERE id = ? AND created_by = ?`

	result, err := r.db.ExecContext(ctx, query,
		input.Title, input.Description, input.Location, input.Date,
		input.Capacity, input.ImagePath, id, ownerID,
	)
	if err != nil {
		return fmt.Errorf("updating event: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return apperror.NewNotFound("event not found")
	}
	return nil
}

// Delete removes an event only if it belongs to ownerID.
func (r *eventRepository) Delete(ctx context.Context, id, ownerID int64) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM events WHERE id = ? AND created_by = ?`, id, ownerID,
	)
	if err != nil {
		return fmt.Errorf("deleting event: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return apperror.NewNotFound("event not found")
	}
	return nil
}

// UpdateAny mutates an event regardless of owner (admin path).
func (r *eventRepository) UpdateAny(ctx context.Context, id int64, input EventInput) error {
	query := `UPDATE events SET title = ?, description = ?, location = ?, date = ?, capacity = ?, image_path = ?
	          WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		input.Title, input.Description, input.Location, input.Date,
		input.Capacity, input.ImagePath, id,
	)
	if err != nil {
		return fmt.Errorf("updating event: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return apperror.NewNotFound("event not found")
	}
	return nil
}

// DeleteAny removes an event regardless of owner (admin path).
func (r *eventRepository) DeleteAny(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting event: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return apperror.NewNotFound("event not found")
	}
	return nil
}

// Register inserts an attendance row. The (event_id, user_id) primary key
// turns a double registration into a conflict.
func (r *eventRepository) Register(ctx context.Context, eventID, userID int64) error {
	query := `INSERT INTO registrations (event_id, user_id, created_at) VALUES (?, ?, NOW())`

	if _, err := r.db.ExecContext(ctx, query, eventID, userID); err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
			return apperror.NewConflict("already registered for this event")
		}
		return fmt.Errorf("inserting registration: %w", err)
	}
	return nil
}

// Unregister removes an attendance row.
func (r *eventRepository) Unregister(ctx context.Context, eventID, userID int64) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM registrations WHERE event_id = ? AND user_id = ?`, eventID, userID,
	)
	if err != nil {
		return fmt.Errorf("deleting registration: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return apperror.NewNotFound("registration not found")
	}
	return nil
}

// IsRegistered reports whether the user attends the event.
func (r *eventRepository) IsRegistered(ctx context.Context, eventID, userID int64) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM registrations WHERE event_id = ? AND user_id = ?`,
		eventID, userID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking registration: %w", err)
	}
	return count > 0, nil
}

// ListRegistrationsForUser returns the events the user is registered for.
func (r *eventRepository) ListRegistrationsForUser(ctx context.Context, userID int64) ([]Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events e
	          JOIN registrations reg ON reg.event_id = e.id
	          WHERE reg.user_id = ? ORDER BY e.date ASC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("listing registrations: %w", err)
	}
	defer rows.Close()

	return collectEvents(rows)
}

// ListAttendees returns the registration rows for an event.
func (r *eventRepository) ListAttendees(ctx context.Context, eventID int64) ([]Registration, error) {
	query := `SELECT event_id, user_id, created_at FROM registrations
	          WHERE event_id = ? ORDER BY created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("listing attendees: %w", err)
	}
	defer rows.Close()

	var regs []Registration
	for rows.Next() {
		var reg Registration
		if err := rows.Scan(&reg.EventID, &reg.UserID, &reg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning registration: %w", err)
		}
		regs = append(regs, reg)
	}
	return regs, rows.Err()
}

// CountEvents returns the total number of events.
func (r *eventRepository) CountEvents(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting events: %w", err)
	}
	return count, nil
}

// CountAllRegistrations returns the total number of registrations.
func (r *eventRepository) CountAllRegistrations(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM registrations`).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting registrations: %w", err)
	}
	return count, nil
}

func collectEvents(rows *sql.Rows) ([]Event, error) {
	var events []Event
	for rows.Next() {
		var e Event
		if err := scanEvent(rows, &e); err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

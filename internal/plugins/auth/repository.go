package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/eventribe/eventribe/internal/apperror"
)

// UserRepository defines the data access contract for user records.
// All SQL lives in the concrete implementation -- no SQL leaks out.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	FindByID(ctx context.Context, id int64) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	UpdateProfile(ctx context.Context, id int64, firstName, lastName string) error
	UpdateImage(ctx context.Context, id int64, imagePath string) error
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	Delete(ctx context.Context, id int64) error

	// Admin operations.
	List(ctx context.Context, offset, limit int) ([]User, int, error)
	UpdateIsAdmin(ctx context.Context, id int64, isAdmin bool) error
	CountUsers(ctx context.Context) (int, error)
}

// userRepository implements UserRepository with hand-written MariaDB queries.
type userRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new user repository backed by the given DB pool.
func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{db: db}
}

// Create inserts a new user row and fills in the generated id. Email and
// username uniqueness is enforced by the database; a duplicate-key error
// surfaces as a conflict so concurrent registrations resolve in the store,
// not here.
func (r *userRepository) Create(ctx context.Context, user *User) error {
	query := `INSERT INTO users (username, email, first_name, last_name, password_hash, is_admin, created_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?)`

	result, err := r.db.ExecContext(ctx, query,
		user.Username,
		user.Email,
		user.FirstName,
		user.LastName,
		user.PasswordHash,
		user.IsAdmin,
		user.CreatedAt,
	)
	if err != nil {
		if isDuplicateKey(err) {
			return apperror.NewConflict("an account with this email or username already exists")
		}
		return fmt.Errorf("inserting user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading inserted user id: %w", err)
	}
	user.ID = id

	return nil
}

// FindByID retrieves a user by id.
// Returns apperror.NotFound if no user exists with this id.
func (r *userRepository) FindByID(ctx context.Context, id int64) (*User, error) {
	query := `SELECT id, username, email, first_name, last_name, password_hash,
	                 image_path, is_admin, created_at
	          FROM users WHERE id = ?`

	user := &User{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.FirstName,
		&user.LastName,
		&user.PasswordHash,
		&user.ImagePath,
		&user.IsAdmin,
		&user.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("querying user by id: %w", err)
	}

	return user, nil
}

// FindByEmail retrieves a user by email address. The email column has a
// case-insensitive collation, so lookup matches regardless of case.
func (r *userRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	query := `SELECT id, username, email, first_name, last_name, password_hash,
	                 image_path, is_admin, created_at
	          FROM users WHERE email = ?`

	user := &User{}
	err := r.db.QueryRowContext(ctx, query, email).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.FirstName,
		&user.LastName,
		&user.PasswordHash,
		&user.ImagePath,
		&user.IsAdmin,
		&user.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("querying user by email: %w", err)
	}

	return user, nil
}

// UpdateProfile sets the name fields for a user.
func (r *userRepository) UpdateProfile(ctx context.Context, id int64, firstName, lastName string) error {
	query := `UPDATE users SET first_name = ?, last_name = ? WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, firstName, lastName, id)
	if err != nil {
		return fmt.Errorf("updating profile: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return apperror.NewNotFound("user not found")
	}
	return nil
}

// UpdateImage sets the profile image path for a user.
func (r *userRepository) UpdateImage(ctx context.Context, id int64, imagePath string) error {
	query := `UPDATE users SET image_path = ? WHERE id = ?`

	if _, err := r.db.ExecContext(ctx, query, imagePath, id); err != nil {
		return fmt.Errorf("updating image: %w", err)
	}
	return nil
}

// UpdatePassword sets a new password hash for a user.
func (r *userRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	query := `UPDATE users SET password_hash = ? WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, passwordHash, id)
	if err != nil {
		return fmt.Errorf("updating password: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return apperror.NewNotFound("user not found")
	}
	return nil
}

// Delete removes a user row. Dependent rows (registrations, payment
// methods, verification codes) are removed by ON DELETE CASCADE.
func (r *userRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return apperror.NewNotFound("user not found")
	}
	return nil
}

// --- Admin Operations ---

// List returns a paginated list of all users ordered by creation date,
// plus the total count for pagination. Password hashes are deliberately
// excluded -- admin list views never need credential data.
func (r *userRepository) List(ctx context.Context, offset, limit int) ([]User, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting users: %w", err)
	}

	query := `SELECT id, username, email, first_name, last_name, image_path, is_admin, created_at
	          FROM users ORDER BY created_at DESC LIMIT ? OFFSET ?`

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(
			&u.ID, &u.Username, &u.Email, &u.FirstName, &u.LastName,
			&u.ImagePath, &u.IsAdmin, &u.CreatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scanning user row: %w", err)
		}
		users = append(users, u)
	}

	return users, total, rows.Err()
}

// UpdateIsAdmin sets or clears the is_admin flag for a user.
func (r *userRepository) UpdateIsAdmin(ctx context.Context, id int64, isAdmin bool) error {
	query := `UPDATE users SET is_admin = ? WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, isAdmin, id)
	if err != nil {
		return fmt.Errorf("updating is_admin: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return apperror.NewNotFound("user not found")
	}
	return nil
}

// CountUsers returns the total number of registered users.
func (r *userRepository) CountUsers(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting users: %w", err)
	}
	return count, nil
}

// isDuplicateKey reports whether err is a MySQL duplicate-entry error (1062).
func isDuplicateKey(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == 1062
}

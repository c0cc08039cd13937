package auth

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"
)

// Owner key builders. The prefix keeps each flow's codes in its own batch:
// consuming a reset batch never touches outstanding 2FA codes for the same
// user, and vice versa.

func twoFactorKey(userID int64) string {
	return "2fa:" + strconv.FormatInt(userID, 10)
}

func resetKey(userID int64) string {
	return "reset:" + strconv.FormatInt(userID, 10)
}

func emailKey(email string) string {
	return "verify:" + email
}

// CodeRepository defines the data access contract for one-time verification
// codes. Append mode allows multiple outstanding codes per owner (2FA,
// reset); Upsert replaces the previous code (pre-registration email
// verification).
type CodeRepository interface {
	Append(ctx context.Context, ownerKey, code string, expiresAt time.Time) error
	Upsert(ctx context.Context, ownerKey, code string, expiresAt time.Time) error
	FindByOwner(ctx context.Context, ownerKey string) ([]VerificationCode, error)
	DeleteForOwner(ctx context.Context, ownerKey string) error
	DeleteExpiredForOwner(ctx context.Context, ownerKey string) error

	// DeleteExpired removes every expired code regardless of owner. Used by
	// the periodic sweeper; returns the number of rows removed.
	DeleteExpired(ctx context.Context) (int64, error)
}

// codeRepository implements CodeRepository with MariaDB.
type codeRepository struct {
	db *sql.DB
}

// NewCodeRepository creates a new verification-code repository.
func NewCodeRepository(db *sql.DB) CodeRepository {
	return &codeRepository{db: db}
}

// Append inserts a new code row. Earlier unexpired codes for the same owner
// remain valid until consumed or expired.
func (r *codeRepository) Append(ctx context.Context, ownerKey, code string, expiresAt time.Time) error {
	query := `INSERT INTO verification_codes (owner_key, code, expires_at) VALUES (?, ?, ?)`

	if _, err := r.db.ExecContext(ctx, query, ownerKey, code, expiresAt); err != nil {
		return fmt.Errorf("inserting verification code: %w", err)
	}
	return nil
}

// Upsert replaces any existing codes for the owner with the new one.
// A reissued email-verification code supersedes the previous one. Delete
// and insert run in one transaction so a reissue never leaves the owner
// without a code.
func (r *codeRepository) Upsert(ctx context.Context, ownerKey, code string, expiresAt time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM verification_codes WHERE owner_key = ?`, ownerKey,
	); err != nil {
		return fmt.Errorf("deleting previous codes: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO verification_codes (owner_key, code, expires_at) VALUES (?, ?, ?)`,
		ownerKey, code, expiresAt,
	); err != nil {
		return fmt.Errorf("inserting verification code: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing code upsert: %w", err)
	}
	return nil
}

// FindByOwner returns every code row for the owner, expired ones included.
// Expiry is a logical TTL compared at read time by the service layer.
func (r *codeRepository) FindByOwner(ctx context.Context, ownerKey string) ([]VerificationCode, error) {
	query := `SELECT owner_key, code, expires_at FROM verification_codes WHERE owner_key = ?`

	rows, err := r.db.QueryContext(ctx, query, ownerKey)
	if err != nil {
		return nil, fmt.Errorf("querying verification codes: %w", err)
	}
	defer rows.Close()

	var codes []VerificationCode
	for rows.Next() {
		var vc VerificationCode
		if err := rows.Scan(&vc.OwnerKey, &vc.Code, &vc.ExpiresAt); err != nil {
			return nil, fmt.Errorf("scanning verification code: %w", err)
		}
		codes = append(codes, vc)
	}

	return codes, rows.Err()
}

// DeleteForOwner removes every code for the owner (bulk consume).
func (r *codeRepository) DeleteForOwner(ctx context.Context, ownerKey string) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM verification_codes WHERE owner_key = ?`, ownerKey,
	); err != nil {
		return fmt.Errorf("deleting verification codes: %w", err)
	}
	return nil
}

// DeleteExpiredForOwner lazily cleans up expired rows for one owner.
// Called from the reset-verification path (cleanup-on-read).
func (r *codeRepository) DeleteExpiredForOwner(ctx context.Context, ownerKey string) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM verification_codes WHERE owner_key = ? AND expires_at <= NOW()`, ownerKey,
	); err != nil {
		return fmt.Errorf("deleting expired verification codes: %w", err)
	}
	return nil
}

// DeleteExpired removes all expired codes across all owners.
func (r *codeRepository) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM verification_codes WHERE expires_at <= NOW()`,
	)
	if err != nil {
		return 0, fmt.Errorf("sweeping expired verification codes: %w", err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}

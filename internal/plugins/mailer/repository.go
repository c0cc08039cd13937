package mailer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Repository handles the SMTP settings row. The table is a singleton
// (id = 1); every operation targets that row.
type Repository interface {
	Get(ctx context.Context) (*settingsRow, error)
	Upsert(ctx context.Context, row *settingsRow) error
}

// settingsRepository implements Repository with MariaDB.
type settingsRepository struct {
	db *sql.DB
}

// NewRepository creates a new mailer settings repository.
func NewRepository(db *sql.DB) Repository {
	return &settingsRepository{db: db}
}

// Get retrieves the singleton settings row. A missing row reads as a
// disabled, unconfigured mailer rather than an error.
func (r *settingsRepository) Get(ctx context.Context) (*settingsRow, error) {
	row := &settingsRow{}
	err := r.db.QueryRowContext(ctx,
		`SELECT host, port, username, password_encrypted, from_address,
		        from_name, security, enabled, updated_at
		 FROM smtp_settings WHERE id = 1`,
	).Scan(
		&row.Host, &row.Port, &row.Username, &row.PasswordEncrypted,
		&row.FromAddress, &row.FromName, &row.Security, &row.Enabled,
		&row.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return &settingsRow{Security: "starttls"}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying smtp settings: %w", err)
	}
	return row, nil
}

// Upsert writes the settings to the singleton row.
func (r *settingsRepository) Upsert(ctx context.Context, row *settingsRow) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO smtp_settings (id, host, port, username, password_encrypted,
		                            from_address, from_name, security, enabled)
		 VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON DUPLICATE KEY UPDATE
		     host = VALUES(host),
		     port = VALUES(port),
		     username = VALUES(username),
		     password_encrypted = VALUES(password_encrypted),
		     from_address = VALUES(from_address),
		     from_name = VALUES(from_name),
		     security = VALUES(security),
		     enabled = VALUES(enabled)`,
		row.Host, row.Port, row.Username, row.PasswordEncrypted,
		row.FromAddress, row.FromName, row.Security, row.Enabled,
	)
	if err != nil {
		return fmt.Errorf("upserting smtp settings: %w", err)
	}
	return nil
}

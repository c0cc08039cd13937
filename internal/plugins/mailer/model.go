// Package mailer delivers outbound email for eventribe. SMTP settings are
// stored in the database and managed by admins; the account password is
// encrypted at rest and never returned to a client, only a flag saying
// whether one is set.
package mailer

import "time"

// Settings is the admin-facing view of the SMTP configuration. The
// password is intentionally absent; HasPassword shows whether one exists.
type Settings struct {
	Host        string    `json:"host"`
	Port        int       `json:"port"`
	Username    string    `json:"username"`
	HasPassword bool      `json:"has_password"`
	FromAddress string    `json:"from_address"`
	FromName    string    `json:"from_name"`
	Security    string    `json:"security"` // "starttls", "tls", or "none".
	Enabled     bool      `json:"enabled"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// settingsRow is the raw database row including the encrypted password.
// It never leaves the package.
type settingsRow struct {
	Host              string
	Port              int
	Username          string
	PasswordEncrypted []byte
	FromAddress       string
	FromName          string
	Security          string
	Enabled           bool
	UpdatedAt         time.Time
}

// toSettings converts a row to the safe Settings struct.
func (r *settingsRow) toSettings() *Settings {
	return &Settings{
		Host:        r.Host,
		Port:        r.Port,
		Username:    r.Username,
		HasPassword: len(r.PasswordEncrypted) > 0,
		FromAddress: r.FromAddress,
		FromName:    r.FromName,
		Security:    r.Security,
		Enabled:     r.Enabled,
		UpdatedAt:   r.UpdatedAt,
	}
}

// UpdateSettingsRequest holds the admin form for changing SMTP settings.
// An empty password means "keep the stored one".
type UpdateSettingsRequest struct {
	Host        string `json:"host" form:"host"`
	Port        int    `json:"port" form:"port"`
	Username    string `json:"username" form:"username"`
	Password    string `json:"password" form:"password"`
	FromAddress string `json:"from_address" form:"from_address"`
	FromName    string `json:"from_name" form:"from_name"`
	Security    string `json:"security" form:"security"`
	Enabled     bool   `json:"enabled" form:"enabled"`
}

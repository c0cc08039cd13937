package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/eventribe/eventribe/internal/apperror"
)

// Service is the full mailer contract: sending plus admin settings
// management. The auth plugin depends only on the Send method through its
// own narrow interface.
type Service interface {
	Send(ctx context.Context, to []string, subject, body string) error
	IsConfigured(ctx context.Context) bool

	GetSettings(ctx context.Context) (*Settings, error)
	UpdateSettings(ctx context.Context, req UpdateSettingsRequest) error
	TestConnection(ctx context.Context) error
}

// mailService implements Service.
type mailService struct {
	repo   Repository
	secret string
}

// NewService creates a new mailer service. secret is the application
// secret used to encrypt the stored SMTP password.
func NewService(repo Repository, secret string) Service {
	return &mailService{repo: repo, secret: secret}
}

// IsConfigured reports whether the mailer is enabled with a host set.
func (s *mailService) IsConfigured(ctx context.Context) bool {
	row, err := s.repo.Get(ctx)
	if err != nil {
		return false
	}
	return row.Enabled && row.Host != ""
}

// Send delivers one plain-text message using the stored settings. The
// password is decrypted at send time and never cached.
func (s *mailService) Send(ctx context.Context, to []string, subject, body string) error {
	row, err := s.repo.Get(ctx)
	if err != nil {
		return apperror.NewInternal(fmt.Errorf("loading smtp settings: %w", err))
	}
	if !row.Enabled || row.Host == "" {
		return apperror.NewBadRequest("outbound email is not configured")
	}

	password, err := s.password(row)
	if err != nil {
		return err
	}

	from := mail.Address{Name: row.FromName, Address: row.FromAddress}
	msg := buildMessage(from, to, subject, body)
	addr := fmt.Sprintf("%s:%d", row.Host, row.Port)

	switch row.Security {
	case "tls":
		err = sendTLS(addr, row.Host, row.Username, password, from.Address, to, msg)
	case "none":
		err = sendPlain(addr, row.Host, row.Username, password, from.Address, to, msg)
	default: // "starttls"
		err = sendStartTLS(addr, row.Host, row.Username, password, from.Address, to, msg)
	}
	if err != nil {
		return err
	}

	slog.Debug("email sent", slog.Int("recipients", len(to)), slog.String("subject", subject))
	return nil
}

// buildMessage assembles an RFC 2822 plain-text message.
func buildMessage(from mail.Address, to []string, subject, body string) string {
	var msg strings.Builder
	msg.WriteString(fmt.Sprintf("From: %s\r\n", from.String()))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", strings.Join(to, ", ")))
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	msg.WriteString(fmt.Sprintf("Date: %s\r\n", time.Now().UTC().Format(time.RFC1123Z)))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)
	return msg.String()
}

// password decrypts the stored SMTP password, empty if none is set.
func (s *mailService) password(row *settingsRow) (string, error) {
	if len(row.PasswordEncrypted) == 0 {
		return "", nil
	}
	plaintext, err := decrypt(row.PasswordEncrypted, s.secret)
	if err != nil {
		return "", apperror.NewInternal(fmt.Errorf("decrypting smtp password: %w", err))
	}
	return string(plaintext), nil
}

// --- Admin settings management ---

// GetSettings returns the configuration with the password redacted.
func (s *mailService) GetSettings(ctx context.Context) (*Settings, error) {
	row, err := s.repo.Get(ctx)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("loading smtp settings: %w", err))
	}
	return row.toSettings(), nil
}

// UpdateSettings saves new settings. An empty password keeps the stored
// one; a non-empty password is encrypted before it touches the database.
func (s *mailService) UpdateSettings(ctx context.Context, req UpdateSettingsRequest) error {
	current, err := s.repo.Get(ctx)
	if err != nil {
		return apperror.NewInternal(fmt.Errorf("loading current smtp settings: %w", err))
	}

	row := &settingsRow{
		Host:        strings.TrimSpace(req.Host),
		Port:        req.Port,
		Username:    strings.TrimSpace(req.Username),
		FromAddress: strings.TrimSpace(req.FromAddress),
		FromName:    strings.TrimSpace(req.FromName),
		Security:    req.Security,
		Enabled:     req.Enabled,
	}

	if row.Port <= 0 {
		row.Port = 587
	}
	if row.FromName == "" {
		row.FromName = "eventribe"
	}
	switch row.Security {
	case "tls", "none":
	default:
		row.Security = "starttls"
	}

	if req.Password != "" {
		encrypted, err := encrypt([]byte(req.Password), s.secret)
		if err != nil {
			return apperror.NewInternal(fmt.Errorf("encrypting smtp password: %w", err))
		}
		row.PasswordEncrypted = encrypted
	} else {
		row.PasswordEncrypted = current.PasswordEncrypted
	}

	if err := s.repo.Upsert(ctx, row); err != nil {
		return apperror.NewInternal(fmt.Errorf("saving smtp settings: %w", err))
	}

	slog.Info("smtp settings updated",
		slog.String("host", row.Host),
		slog.Int("port", row.Port),
		slog.Bool("enabled", row.Enabled),
	)
	return nil
}

// TestConnection verifies connectivity with the current settings by
// completing the handshake (and auth, if credentials are set).
func (s *mailService) TestConnection(ctx context.Context) error {
	row, err := s.repo.Get(ctx)
	if err != nil {
		return apperror.NewInternal(fmt.Errorf("loading smtp settings: %w", err))
	}
	if row.Host == "" {
		return apperror.NewBadRequest("SMTP host is not configured")
	}

	password, err := s.password(row)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", row.Host, row.Port)
	switch row.Security {
	case "tls":
		return testTLS(addr, row.Host, row.Username, password)
	default:
		return testStartTLS(addr, row.Host, row.Username, password, row.Security == "starttls")
	}
}

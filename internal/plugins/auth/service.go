package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/eventribe/eventribe/internal/apperror"
)

// MailSender delivers outbound email. Implemented by the mailer plugin.
// Every caller in this package treats a send failure as non-fatal: the code
// is already stored, so the operation succeeded even if delivery did not.
type MailSender interface {
	Send(ctx context.Context, to []string, subject, body string) error
}

// Service defines the business logic contract for authentication.
// Handlers call these methods -- they never touch the repositories directly.
type Service interface {
	Login(ctx context.Context, input LoginRequest) (*LoginResult, error)
	VerifyTwoFactor(ctx context.Context, userID int64, code string) (token string, user *User, err error)
	Register(ctx context.Context, input RegisterRequest) (*User, error)

	RequestEmailVerification(ctx context.Context, email string) error
	VerifyEmail(ctx context.Context, email, code string) error

	RequestPasswordReset(ctx context.Context, email string) error
	VerifyPasswordReset(ctx context.Context, email, code string) (bool, error)
	CompletePasswordReset(ctx context.Context, email, code, newPassword string) error

	UpdateProfile(ctx context.Context, userID int64, input UpdateProfileRequest) (token string, user *User, err error)
	UpdateImage(ctx context.Context, userID int64, imagePath string) (token string, err error)
	DeleteAccount(ctx context.Context, userID int64) error
	RefreshToken(ctx context.Context, userID int64) (string, error)
}

// authService implements Service with argon2id hashing and DB-backed codes.
type authService struct {
	users   UserRepository
	codes   CodeRepository
	codec   *TokenCodec
	mail    MailSender
	codeTTL time.Duration
}

// NewService creates a new auth service with the given dependencies.
// mail may be nil in tests; issuance then stores the code without sending.
func NewService(users UserRepository, codes CodeRepository, codec *TokenCodec, mail MailSender, ttl time.Duration) Service {
	if ttl <= 0 {
		ttl = codeTTL
	}
	return &authService{
		users:   users,
		codes:   codes,
		codec:   codec,
		mail:    mail,
		codeTTL: ttl,
	}
}

// Login checks credentials and, on success, issues a 2FA code by email.
// No session token is minted here -- the caller must pass the code to
// VerifyTwoFactor first. Unknown email and wrong password produce the
// identical error so callers cannot enumerate accounts.
func (s *authService) Login(ctx context.Context, input LoginRequest) (*LoginResult, error) {
	email := normalizeEmail(input.Email)
	if email == "" || input.Password == "" {
		return nil, apperror.NewValidation("email and password are required")
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if isNotFound(err) {
			return nil, apperror.NewInvalidCredentials()
		}
		return nil, apperror.NewInternal(fmt.Errorf("finding user: %w", err))
	}

	if !verifyPassword(input.Password, user.PasswordHash) {
		return nil, apperror.NewInvalidCredentials()
	}

	code, err := s.issueCode(ctx, twoFactorKey(user.ID), false)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("issuing 2fa code: %w", err))
	}

	s.sendCode(ctx, user.Email, "Your eventribe sign-in code",
		fmt.Sprintf("Hi %s,\n\nYour sign-in code is %s. It expires in %d minutes.\n\nIf you did not try to sign in, you can ignore this email.",
			user.FirstName, code, int(s.codeTTL.Minutes())))

	slog.Info("login credentials verified, 2fa code issued",
		slog.Int64("user_id", user.ID),
	)

	return &LoginResult{RequiresTwoFactor: true, UserID: user.ID}, nil
}

// VerifyTwoFactor checks the submitted code against the outstanding batch
// for the user. On success the matched batch is deleted and a session token
// is minted -- this is the only path that mints a token after login.
func (s *authService) VerifyTwoFactor(ctx context.Context, userID int64, code string) (string, *User, error) {
	if err := s.checkCode(ctx, twoFactorKey(userID), code); err != nil {
		return "", nil, err
	}

	// Consume the whole batch so a verified code cannot be replayed.
	if err := s.codes.DeleteForOwner(ctx, twoFactorKey(userID)); err != nil {
		slog.Warn("failed to consume 2fa codes", slog.Int64("user_id", userID), slog.Any("error", err))
	}

	// The account may have been deleted between login and verification.
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return "", nil, apperror.NewNotFound("user not found")
		}
		return "", nil, apperror.NewInternal(fmt.Errorf("loading user: %w", err))
	}

	token, err := s.codec.Mint(user)
	if err != nil {
		return "", nil, apperror.NewInternal(fmt.Errorf("minting token: %w", err))
	}

	slog.Info("user logged in", slog.Int64("user_id", user.ID))

	return token, user.Sanitized(), nil
}

// Register validates input and creates a new account. Validation runs
// before any store access. Duplicate email/username detection is left to
// the database's unique constraints so concurrent registrations resolve
// there; the later writer observes a conflict.
func (s *authService) Register(ctx context.Context, input RegisterRequest) (*User, error) {
	if msg := validateRegistration(&input); msg != "" {
		return nil, apperror.NewValidation(msg)
	}

	hash, err := hashPassword(input.Password)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("hashing password: %w", err))
	}

	user := &User{
		Username:     strings.TrimSpace(input.Username),
		Email:        normalizeEmail(input.Email),
		PasswordHash: hash,
		IsAdmin:      false,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.users.Create(ctx, user); err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) && appErr.Code == 409 {
			return nil, appErr
		}
		return nil, apperror.NewInternal(fmt.Errorf("creating user: %w", err))
	}

	slog.Info("user registered",
		slog.Int64("user_id", user.ID),
		slog.String("email", user.Email),
	)

	s.sendCode(ctx, user.Email, "Welcome to eventribe",
		fmt.Sprintf("Hi %s,\n\nYour account is ready. Browse upcoming events and register with one click.", user.Username))

	return user.Sanitized(), nil
}

// --- Email verification (pre-registration) ---

// RequestEmailVerification issues a code bound to a raw email address.
// Reissuing replaces the previous code (upsert), so only the latest one
// is usable.
func (s *authService) RequestEmailVerification(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return apperror.NewValidation("email is required")
	}

	code, err := s.issueCode(ctx, emailKey(email), true)
	if err != nil {
		return apperror.NewInternal(fmt.Errorf("issuing verification code: %w", err))
	}

	s.sendCode(ctx, email, "Confirm your email address",
		fmt.Sprintf("Your eventribe verification code is %s. It expires in %d minutes.",
			code, int(s.codeTTL.Minutes())))

	return nil
}

// VerifyEmail checks a pre-registration code and consumes it on success.
func (s *authService) VerifyEmail(ctx context.Context, email, code string) error {
	email = normalizeEmail(email)

	if err := s.checkCode(ctx, emailKey(email), code); err != nil {
		return err
	}

	if err := s.codes.DeleteForOwner(ctx, emailKey(email)); err != nil {
		slog.Warn("failed to consume email verification code", slog.String("email", email), slog.Any("error", err))
	}
	return nil
}

// --- Password reset ---

// RequestPasswordReset issues a reset code for the account matching the
// email. Unlike login, an unknown email is reported to the caller.
// Multiple outstanding reset codes may coexist until consumed in bulk.
func (s *authService) RequestPasswordReset(ctx context.Context, email string) error {
	email = normalizeEmail(email)

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if isNotFound(err) {
			return apperror.NewNotFound("no account with this email")
		}
		return apperror.NewInternal(fmt.Errorf("finding user: %w", err))
	}

	code, err := s.issueCode(ctx, resetKey(user.ID), false)
	if err != nil {
		return apperror.NewInternal(fmt.Errorf("issuing reset code: %w", err))
	}

	s.sendCode(ctx, user.Email, "Reset your eventribe password",
		fmt.Sprintf("Hi %s,\n\nYour password reset code is %s. It expires in %d minutes.\n\nIf you did not request a reset, you can ignore this email.",
			user.FirstName, code, int(s.codeTTL.Minutes())))

	return nil
}

// VerifyPasswordReset is a pure check with one exception: expired rows for
// the user are deleted lazily on this path (cleanup-on-read).
func (s *authService) VerifyPasswordReset(ctx context.Context, email, code string) (bool, error) {
	email = normalizeEmail(email)

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if isNotFound(err) {
			return false, apperror.NewNotFound("no account with this email")
		}
		return false, apperror.NewInternal(fmt.Errorf("finding user: %w", err))
	}

	if err := s.codes.DeleteExpiredForOwner(ctx, resetKey(user.ID)); err != nil {
		slog.Warn("failed to clean up expired reset codes", slog.Int64("user_id", user.ID), slog.Any("error", err))
	}

	err = s.checkCode(ctx, resetKey(user.ID), code)
	if err == nil {
		return true, nil
	}
	var appErr *apperror.AppError
	if errors.As(err, &appErr) && appErr.Code == 400 {
		return false, nil
	}
	return false, err
}

// CompletePasswordReset re-validates the code (defense in depth even if the
// client already called VerifyPasswordReset), updates the password hash, and
// bulk-deletes every outstanding reset code for the user so no stale code
// can be replayed afterward.
func (s *authService) CompletePasswordReset(ctx context.Context, email, code, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return apperror.NewValidation(fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}

	email = normalizeEmail(email)

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if isNotFound(err) {
			return apperror.NewNotFound("no account with this email")
		}
		return apperror.NewInternal(fmt.Errorf("finding user: %w", err))
	}

	if err := s.checkCode(ctx, resetKey(user.ID), code); err != nil {
		return err
	}

	hash, err := hashPassword(newPassword)
	if err != nil {
		return apperror.NewInternal(fmt.Errorf("hashing password: %w", err))
	}

	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return apperror.NewInternal(fmt.Errorf("updating password: %w", err))
	}

	// Bulk consume: a second reset code from an earlier request must not
	// remain usable after a successful reset.
	if err := s.codes.DeleteForOwner(ctx, resetKey(user.ID)); err != nil {
		return apperror.NewInternal(fmt.Errorf("consuming reset codes: %w", err))
	}

	slog.Info("password reset completed", slog.Int64("user_id", user.ID))

	return nil
}

// --- Profile / account ---

// UpdateProfile mutates the name fields and mints a fresh token so the
// session claims track the change. This is one of the defined claim-refresh
// trigger points; claims are never merged ad hoc.
func (s *authService) UpdateProfile(ctx context.Context, userID int64, input UpdateProfileRequest) (string, *User, error) {
	first := strings.TrimSpace(input.FirstName)
	last := strings.TrimSpace(input.LastName)
	if first == "" || last == "" {
		return "", nil, apperror.NewValidation("first and last name are required")
	}

	if err := s.users.UpdateProfile(ctx, userID, first, last); err != nil {
		if isNotFound(err) {
			return "", nil, apperror.NewNotFound("user not found")
		}
		return "", nil, apperror.NewInternal(fmt.Errorf("updating profile: %w", err))
	}

	token, err := s.RefreshToken(ctx, userID)
	if err != nil {
		return "", nil, err
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return "", nil, apperror.NewInternal(fmt.Errorf("reloading user: %w", err))
	}
	return token, user.Sanitized(), nil
}

// UpdateImage stores a new profile image path and refreshes the token.
func (s *authService) UpdateImage(ctx context.Context, userID int64, imagePath string) (string, error) {
	if imagePath == "" {
		return "", apperror.NewValidation("image path is required")
	}

	if err := s.users.UpdateImage(ctx, userID, imagePath); err != nil {
		return "", apperror.NewInternal(fmt.Errorf("updating image: %w", err))
	}

	return s.RefreshToken(ctx, userID)
}

// DeleteAccount removes the user record; the store cascades to dependent
// rows (registrations, payment methods, codes).
func (s *authService) DeleteAccount(ctx context.Context, userID int64) error {
	if err := s.users.Delete(ctx, userID); err != nil {
		if isNotFound(err) {
			return apperror.NewNotFound("user not found")
		}
		return apperror.NewInternal(fmt.Errorf("deleting account: %w", err))
	}

	slog.Info("account deleted", slog.Int64("user_id", userID))
	return nil
}

// RefreshToken re-reads the user record and mints a token from the current
// state. Invoked only at defined trigger points (post-login is handled by
// VerifyTwoFactor; this serves post-profile and post-image updates).
func (s *authService) RefreshToken(ctx context.Context, userID int64) (string, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return "", apperror.NewNotFound("user not found")
		}
		return "", apperror.NewInternal(fmt.Errorf("loading user: %w", err))
	}

	token, err := s.codec.Mint(user)
	if err != nil {
		return "", apperror.NewInternal(fmt.Errorf("minting token: %w", err))
	}
	return token, nil
}

// --- Code lifecycle helpers ---

// issueCode generates a fresh OTP and persists it under the owner key.
// upsert selects replace-on-conflict semantics (email verification);
// append lets multiple outstanding codes coexist (2FA, reset).
func (s *authService) issueCode(ctx context.Context, ownerKey string, upsert bool) (string, error) {
	code, err := generateOTP()
	if err != nil {
		return "", err
	}

	expiresAt := time.Now().UTC().Add(s.codeTTL)
	if upsert {
		err = s.codes.Upsert(ctx, ownerKey, code, expiresAt)
	} else {
		err = s.codes.Append(ctx, ownerKey, code, expiresAt)
	}
	if err != nil {
		return "", err
	}
	return code, nil
}

// checkCode verifies a submitted code against the outstanding batch for the
// owner. A code is valid only if the value matches AND the current time is
// strictly before its expiry. Absent, mismatched, and expired all yield the
// same error.
func (s *authService) checkCode(ctx context.Context, ownerKey, submitted string) error {
	if submitted == "" {
		return apperror.NewInvalidCode()
	}

	codes, err := s.codes.FindByOwner(ctx, ownerKey)
	if err != nil {
		return apperror.NewInternal(fmt.Errorf("loading verification codes: %w", err))
	}

	now := time.Now()
	for _, vc := range codes {
		if vc.Code == submitted && now.Before(vc.ExpiresAt) {
			return nil
		}
	}
	return apperror.NewInvalidCode()
}

// sendCode dispatches an email best-effort. Delivery failure is logged and
// swallowed -- the triggering operation already succeeded.
func (s *authService) sendCode(ctx context.Context, to, subject, body string) {
	if s.mail == nil {
		return
	}
	if err := s.mail.Send(ctx, []string{to}, subject, body); err != nil {
		slog.Warn("failed to send email",
			slog.String("to", to),
			slog.String("subject", subject),
			slog.Any("error", err),
		)
	}
}

// --- Validation helpers ---

// validateRegistration checks the registration input before any store
// access. Returns an error message or empty string.
func validateRegistration(req *RegisterRequest) string {
	if strings.TrimSpace(req.Username) == "" {
		return "username is required"
	}
	if normalizeEmail(req.Email) == "" {
		return "email is required"
	}
	if req.Password == "" {
		return "password is required"
	}
	if len(req.Password) < minPasswordLength {
		return fmt.Sprintf("password must be at least %d characters", minPasswordLength)
	}
	if req.Password != req.Confirm {
		return "passwords do not match"
	}
	return ""
}

// normalizeEmail lowercases and trims an email for case-insensitive matching.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// isNotFound reports whether err is an apperror with a 404 code.
func isNotFound(err error) bool {
	var appErr *apperror.AppError
	return errors.As(err, &appErr) && appErr.Code == 404
}

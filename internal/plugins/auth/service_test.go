package auth

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/eventribe/eventribe/internal/apperror"
)

// --- Mock Repositories ---

// mockUserRepo implements UserRepository for testing.
type mockUserRepo struct {
	createFn         func(ctx context.Context, user *User) error
	findByIDFn       func(ctx context.Context, id int64) (*User, error)
	findByEmailFn    func(ctx context.Context, email string) (*User, error)
	updateProfileFn  func(ctx context.Context, id int64, firstName, lastName string) error
	updateImageFn    func(ctx context.Context, id int64, imagePath string) error
	updatePasswordFn func(ctx context.Context, id int64, passwordHash string) error
	deleteFn         func(ctx context.Context, id int64) error
	listFn           func(ctx context.Context, offset, limit int) ([]User, int, error)
	updateIsAdminFn  func(ctx context.Context, id int64, isAdmin bool) error
	countUsersFn     func(ctx context.Context) (int, error)
}

func (m *mockUserRepo) Create(ctx context.Context, user *User) error {
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	user.ID = 1
	return nil
}

func (m *mockUserRepo) FindByID(ctx context.Context, id int64) (*User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, apperror.NewNotFound("user not found")
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*User, error) {
	if m.findByEmailFn != nil {
		return m.findByEmailFn(ctx, email)
	}
	return nil, apperror.NewNotFound("user not found")
}

func (m *mockUserRepo) UpdateProfile(ctx context.Context, id int64, firstName, lastName string) error {
	if m.updateProfileFn != nil {
		return m.updateProfileFn(ctx, id, firstName, lastName)
	}
	return nil
}

func (m *mockUserRepo) UpdateImage(ctx context.Context, id int64, imagePath string) error {
	if m.updateImageFn != nil {
		return m.updateImageFn(ctx, id, imagePath)
	}
	return nil
}

func (m *mockUserRepo) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	if m.updatePasswordFn != nil {
		return m.updatePasswordFn(ctx, id, passwordHash)
	}
	return nil
}

func (m *mockUserRepo) Delete(ctx context.Context, id int64) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func (m *mockUserRepo) List(ctx context.Context, offset, limit int) ([]User, int, error) {
	if m.listFn != nil {
		return m.listFn(ctx, offset, limit)
	}
	return nil, 0, nil
}

func (m *mockUserRepo) UpdateIsAdmin(ctx context.Context, id int64, isAdmin bool) error {
	if m.updateIsAdminFn != nil {
		return m.updateIsAdminFn(ctx, id, isAdmin)
	}
	return nil
}

func (m *mockUserRepo) CountUsers(ctx context.Context) (int, error) {
	if m.countUsersFn != nil {
		return m.countUsersFn(ctx)
	}
	return 0, nil
}

// mockCodeRepo implements CodeRepository for testing. The default behavior
// keeps an in-memory table so flow tests can issue and verify codes without
// wiring every closure.
type mockCodeRepo struct {
	appendFn                func(ctx context.Context, ownerKey, code string, expiresAt time.Time) error
	upsertFn                func(ctx context.Context, ownerKey, code string, expiresAt time.Time) error
	findByOwnerFn           func(ctx context.Context, ownerKey string) ([]VerificationCode, error)
	deleteForOwnerFn        func(ctx context.Context, ownerKey string) error
	deleteExpiredForOwnerFn func(ctx context.Context, ownerKey string) error

	rows []VerificationCode
}

func (m *mockCodeRepo) Append(ctx context.Context, ownerKey, code string, expiresAt time.Time) error {
	if m.appendFn != nil {
		return m.appendFn(ctx, ownerKey, code, expiresAt)
	}
	m.rows = append(m.rows, VerificationCode{OwnerKey: ownerKey, Code: code, ExpiresAt: expiresAt})
	return nil
}

func (m *mockCodeRepo) Upsert(ctx context.Context, ownerKey, code string, expiresAt time.Time) error {
	if m.upsertFn != nil {
		return m.upsertFn(ctx, ownerKey, code, expiresAt)
	}
	for i := range m.rows {
		if m.rows[i].OwnerKey == ownerKey {
			m.rows[i].Code = code
			m.rows[i].ExpiresAt = expiresAt
			return nil
		}
	}
	m.rows = append(m.rows, VerificationCode{OwnerKey: ownerKey, Code: code, ExpiresAt: expiresAt})
	return nil
}

func (m *mockCodeRepo) FindByOwner(ctx context.Context, ownerKey string) ([]VerificationCode, error) {
	if m.findByOwnerFn != nil {
		return m.findByOwnerFn(ctx, ownerKey)
	}
	var out []VerificationCode
	for _, vc := range m.rows {
		if vc.OwnerKey == ownerKey {
			out = append(out, vc)
		}
	}
	return out, nil
}

func (m *mockCodeRepo) DeleteForOwner(ctx context.Context, ownerKey string) error {
	if m.deleteForOwnerFn != nil {
		return m.deleteForOwnerFn(ctx, ownerKey)
	}
	kept := m.rows[:0]
	for _, vc := range m.rows {
		if vc.OwnerKey != ownerKey {
			kept = append(kept, vc)
		}
	}
	m.rows = kept
	return nil
}

func (m *mockCodeRepo) DeleteExpiredForOwner(ctx context.Context, ownerKey string) error {
	if m.deleteExpiredForOwnerFn != nil {
		return m.deleteExpiredForOwnerFn(ctx, ownerKey)
	}
	now := time.Now()
	kept := m.rows[:0]
	for _, vc := range m.rows {
		if vc.OwnerKey != ownerKey || now.Before(vc.ExpiresAt) {
			kept = append(kept, vc)
		}
	}
	m.rows = kept
	return nil
}

func (m *mockCodeRepo) DeleteExpired(ctx context.Context) (int64, error) {
	return 0, nil
}

// --- Mock Mail Sender ---

// mockMailSender implements MailSender for testing.
type mockMailSender struct {
	sendFn func(ctx context.Context, to []string, subject, body string) error
	// Capture fields for assertions.
	lastTo      []string
	lastSubject string
	lastBody    string
	sendCount   int
}

func (m *mockMailSender) Send(ctx context.Context, to []string, subject, body string) error {
	m.lastTo = to
	m.lastSubject = subject
	m.lastBody = body
	m.sendCount++
	if m.sendFn != nil {
		return m.sendFn(ctx, to, subject, body)
	}
	return nil
}

// --- Test Helpers ---

func newTestService(users *mockUserRepo, codes *mockCodeRepo) *authService {
	return &authService{
		users:   users,
		codes:   codes,
		codec:   NewTokenCodec("test-secret", time.Hour),
		codeTTL: 10 * time.Minute,
	}
}

// assertAppError checks that err is an *apperror.AppError with the expected code.
func assertAppError(t *testing.T, err error, expectedCode int) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with code %d, got nil", expectedCode)
	}
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *apperror.AppError, got %T: %v", err, err)
	}
	if appErr.Code != expectedCode {
		t.Errorf("expected status %d, got %d (message: %s)", expectedCode, appErr.Code, appErr.Message)
	}
}

// testUser returns a user with a real hash of the given password.
func testUser(t *testing.T, id int64, email, password string) *User {
	t.Helper()
	hash, err := hashPassword(password)
	if err != nil {
		t.Fatalf("hashPassword failed: %v", err)
	}
	return &User{
		ID:           id,
		Username:     "alice",
		Email:        email,
		FirstName:    "Alice",
		LastName:     "Anders",
		PasswordHash: hash,
	}
}

// --- Login Tests ---

func TestLogin_Success_IssuesCode(t *testing.T) {
	user := testUser(t, 42, "alice@example.com", "hunter22")
	users := &mockUserRepo{
		findByEmailFn: func(ctx context.Context, email string) (*User, error) {
			if email != "alice@example.com" {
				t.Errorf("expected normalized email, got %s", email)
			}
			return user, nil
		},
	}
	codes := &mockCodeRepo{}
	mail := &mockMailSender{}

	svc := newTestService(users, codes)
	svc.mail = mail

	result, err := svc.Login(context.Background(), LoginRequest{
		Email:    "  Alice@Example.COM  ",
		Password: "hunter22",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.RequiresTwoFactor {
		t.Error("expected RequiresTwoFactor to be true")
	}
	if result.UserID != 42 {
		t.Errorf("expected user id 42, got %d", result.UserID)
	}

	// A code must have been stored under the 2FA key with a ~10m expiry.
	if len(codes.rows) != 1 {
		t.Fatalf("expected 1 stored code, got %d", len(codes.rows))
	}
	row := codes.rows[0]
	if row.OwnerKey != twoFactorKey(42) {
		t.Errorf("expected owner key %s, got %s", twoFactorKey(42), row.OwnerKey)
	}
	if len(row.Code) != 6 {
		t.Errorf("expected 6-digit code, got %q", row.Code)
	}
	untilExpiry := time.Until(row.ExpiresAt)
	if untilExpiry < 9*time.Minute || untilExpiry > 11*time.Minute {
		t.Errorf("expected expiry ~10 minutes, got %v", untilExpiry)
	}

	// The code was mailed, and no token exists yet.
	if mail.sendCount != 1 {
		t.Errorf("expected 1 email sent, got %d", mail.sendCount)
	}
	if !strings.Contains(mail.lastBody, row.Code) {
		t.Error("expected email body to contain the code")
	}
}

func TestLogin_UnknownEmailAndWrongPassword_Indistinguishable(t *testing.T) {
	user := testUser(t, 1, "alice@example.com", "correct-password")
	users := &mockUserRepo{
		findByEmailFn: func(ctx context.Context, email string) (*User, error) {
			if email == "alice@example.com" {
				return user, nil
			}
			return nil, apperror.NewNotFound("user not found")
		},
	}

	svc := newTestService(users, &mockCodeRepo{})

	_, err1 := svc.Login(context.Background(), LoginRequest{Email: "nobody@example.com", Password: "whatever"})
	_, err2 := svc.Login(context.Background(), LoginRequest{Email: "alice@example.com", Password: "wrong-password"})

	assertAppError(t, err1, 401)
	assertAppError(t, err2, 401)

	var app1, app2 *apperror.AppError
	errors.As(err1, &app1)
	errors.As(err2, &app2)
	if app1.Message != app2.Message {
		t.Errorf("expected identical messages, got %q and %q", app1.Message, app2.Message)
	}
}

func TestLogin_MissingFields(t *testing.T) {
	svc := newTestService(&mockUserRepo{}, &mockCodeRepo{})

	_, err := svc.Login(context.Background(), LoginRequest{Email: "", Password: "x"})
	assertAppError(t, err, 422)

	_, err = svc.Login(context.Background(), LoginRequest{Email: "a@b.com", Password: ""})
	assertAppError(t, err, 422)
}

func TestLogin_MailFailureIsNotFatal(t *testing.T) {
	user := testUser(t, 7, "alice@example.com", "hunter22")
	users := &mockUserRepo{
		findByEmailFn: func(ctx context.Context, email string) (*User, error) { return user, nil },
	}
	codes := &mockCodeRepo{}
	mail := &mockMailSender{
		sendFn: func(ctx context.Context, to []string, subject, body string) error {
			return errors.New("smtp connection refused")
		},
	}

	svc := newTestService(users, codes)
	svc.mail = mail

	result, err := svc.Login(context.Background(), LoginRequest{Email: "alice@example.com", Password: "hunter22"})
	if err != nil {
		t.Fatalf("expected success despite mail failure, got: %v", err)
	}
	if !result.RequiresTwoFactor {
		t.Error("expected RequiresTwoFactor to be true")
	}
	if len(codes.rows) != 1 {
		t.Error("expected code to be stored despite mail failure")
	}
}

// --- Two-Factor Tests ---

func TestVerifyTwoFactor_Success(t *testing.T) {
	user := testUser(t, 42, "alice@example.com", "hunter22")
	users := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id int64) (*User, error) { return user, nil },
	}
	codes := &mockCodeRepo{
		rows: []VerificationCode{
			{OwnerKey: twoFactorKey(42), Code: "123456", ExpiresAt: time.Now().Add(5 * time.Minute)},
		},
	}

	svc := newTestService(users, codes)
	token, got, err := svc.VerifyTwoFactor(context.Background(), 42, "123456")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token == "" {
		t.Fatal("expected a session token")
	}
	if got.PasswordHash != "" {
		t.Error("expected sanitized user without password hash")
	}

	// The whole 2FA batch is consumed on success.
	if len(codes.rows) != 0 {
		t.Errorf("expected codes consumed, %d remain", len(codes.rows))
	}

	// The token carries the user's claims.
	claims, err := svc.codec.Verify(token)
	if err != nil {
		t.Fatalf("minted token did not verify: %v", err)
	}
	if claims.UserID != 42 || claims.Email != "alice@example.com" {
		t.Errorf("unexpected claims: %+v", claims)
	}
	if claims.Subject != strconv.FormatInt(42, 10) {
		t.Errorf("expected subject 42, got %s", claims.Subject)
	}
}

func TestVerifyTwoFactor_WrongCode(t *testing.T) {
	codes := &mockCodeRepo{
		rows: []VerificationCode{
			{OwnerKey: twoFactorKey(42), Code: "123456", ExpiresAt: time.Now().Add(5 * time.Minute)},
		},
	}

	svc := newTestService(&mockUserRepo{}, codes)
	_, _, err := svc.VerifyTwoFactor(context.Background(), 42, "654321")
	assertAppError(t, err, 400)

	// A failed attempt must not consume the batch.
	if len(codes.rows) != 1 {
		t.Error("expected codes to survive a failed attempt")
	}
}

func TestVerifyTwoFactor_ExpiredCode(t *testing.T) {
	codes := &mockCodeRepo{
		rows: []VerificationCode{
			{OwnerKey: twoFactorKey(42), Code: "123456", ExpiresAt: time.Now().Add(-time.Second)},
		},
	}

	svc := newTestService(&mockUserRepo{}, codes)
	_, _, err := svc.VerifyTwoFactor(context.Background(), 42, "123456")
	assertAppError(t, err, 400)
}

func TestVerifyTwoFactor_ExpiryIsExclusive(t *testing.T) {
	// A code whose expiry equals "now" is already invalid; validity requires
	// now strictly before expires_at.
	codes := &mockCodeRepo{
		findByOwnerFn: func(ctx context.Context, ownerKey string) ([]VerificationCode, error) {
			return []VerificationCode{
				{OwnerKey: ownerKey, Code: "123456", ExpiresAt: time.Now().Add(-time.Millisecond)},
			}, nil
		},
	}

	svc := newTestService(&mockUserRepo{}, codes)
	_, _, err := svc.VerifyTwoFactor(context.Background(), 42, "123456")
	assertAppError(t, err, 400)
}

func TestVerifyTwoFactor_SecondCodeInBatchWorks(t *testing.T) {
	// Append mode: a re-login adds a second code and both stay valid.
	user := testUser(t, 42, "alice@example.com", "hunter22")
	users := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id int64) (*User, error) { return user, nil },
	}
	codes := &mockCodeRepo{
		rows: []VerificationCode{
			{OwnerKey: twoFactorKey(42), Code: "111111", ExpiresAt: time.Now().Add(5 * time.Minute)},
			{OwnerKey: twoFactorKey(42), Code: "222222", ExpiresAt: time.Now().Add(9 * time.Minute)},
		},
	}

	svc := newTestService(users, codes)
	_, _, err := svc.VerifyTwoFactor(context.Background(), 42, "111111")
	if err != nil {
		t.Fatalf("expected older code in batch to verify, got: %v", err)
	}
}

func TestVerifyTwoFactor_UserDeletedAfterLogin(t *testing.T) {
	codes := &mockCodeRepo{
		rows: []VerificationCode{
			{OwnerKey: twoFactorKey(42), Code: "123456", ExpiresAt: time.Now().Add(5 * time.Minute)},
		},
	}
	users := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id int64) (*User, error) {
			return nil, apperror.NewNotFound("user not found")
		},
	}

	svc := newTestService(users, codes)
	_, _, err := svc.VerifyTwoFactor(context.Background(), 42, "123456")
	assertAppError(t, err, 404)
}

// --- Register Tests ---

func TestRegister_Success(t *testing.T) {
	var created *User
	users := &mockUserRepo{
		createFn: func(ctx context.Context, user *User) error {
			created = user
			user.ID = 99
			return nil
		},
	}

	svc := newTestService(users, &mockCodeRepo{})
	got, err := svc.Register(context.Background(), RegisterRequest{
		Username: "alice",
		Email:    "  Alice@EXAMPLE.com ",
		Password: "hunter22",
		Confirm:  "hunter22",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.Email != "alice@example.com" {
		t.Errorf("expected normalized email, got %s", created.Email)
	}
	if created.IsAdmin {
		t.Error("expected non-admin user")
	}
	if !verifyPassword("hunter22", created.PasswordHash) {
		t.Error("expected stored hash to verify the password")
	}
	if got.ID != 99 {
		t.Errorf("expected generated id 99, got %d", got.ID)
	}
	if got.PasswordHash != "" {
		t.Error("expected sanitized user in response")
	}
}

func TestRegister_ValidationRunsBeforeStore(t *testing.T) {
	storeTouched := false
	users := &mockUserRepo{
		createFn: func(ctx context.Context, user *User) error {
			storeTouched = true
			return nil
		},
	}
	svc := newTestService(users, &mockCodeRepo{})

	tests := []struct {
		name  string
		input RegisterRequest
	}{
		{"missing username", RegisterRequest{Email: "a@b.com", Password: "123456", Confirm: "123456"}},
		{"missing email", RegisterRequest{Username: "a", Password: "123456", Confirm: "123456"}},
		{"missing password", RegisterRequest{Username: "a", Email: "a@b.com"}},
		{"password too short", RegisterRequest{Username: "a", Email: "a@b.com", Password: "12345", Confirm: "12345"}},
		{"mismatched confirm", RegisterRequest{Username: "a", Email: "a@b.com", Password: "123456", Confirm: "123457"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tt.input)
			assertAppError(t, err, 422)
		})
	}

	if storeTouched {
		t.Error("expected no store access for invalid input")
	}
}

func TestRegister_PasswordLengthBoundary(t *testing.T) {
	users := &mockUserRepo{
		createFn: func(ctx context.Context, user *User) error { user.ID = 1; return nil },
	}
	svc := newTestService(users, &mockCodeRepo{})

	// Five characters fails, six passes.
	_, err := svc.Register(context.Background(), RegisterRequest{
		Username: "a", Email: "a@b.com", Password: "12345", Confirm: "12345",
	})
	assertAppError(t, err, 422)

	_, err = svc.Register(context.Background(), RegisterRequest{
		Username: "a", Email: "a@b.com", Password: "123456", Confirm: "123456",
	})
	if err != nil {
		t.Fatalf("expected 6-char password to pass, got: %v", err)
	}
}

func TestRegister_DuplicateAccount(t *testing.T) {
	users := &mockUserRepo{
		createFn: func(ctx context.Context, user *User) error {
			return apperror.NewConflict("an account with this email or username already exists")
		},
	}

	svc := newTestService(users, &mockCodeRepo{})
	_, err := svc.Register(context.Background(), RegisterRequest{
		Username: "alice", Email: "taken@example.com", Password: "123456", Confirm: "123456",
	})
	assertAppError(t, err, 409)
}

// --- Email Verification Tests ---

func TestRequestEmailVerification_UpsertReplacesCode(t *testing.T) {
	codes := &mockCodeRepo{}
	svc := newTestService(&mockUserRepo{}, codes)

	if err := svc.RequestEmailVerification(context.Background(), "new@example.com"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	first := codes.rows[0].Code

	if err := svc.RequestEmailVerification(context.Background(), "new@example.com"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Reissue must replace, not append.
	if len(codes.rows) != 1 {
		t.Fatalf("expected 1 code after reissue, got %d", len(codes.rows))
	}
	if codes.rows[0].Code == first {
		t.Error("expected reissued code to differ (reissue replaces)")
	}
	if codes.rows[0].OwnerKey != emailKey("new@example.com") {
		t.Errorf("unexpected owner key %s", codes.rows[0].OwnerKey)
	}
}

func TestVerifyEmail_ConsumesCode(t *testing.T) {
	codes := &mockCodeRepo{
		rows: []VerificationCode{
			{OwnerKey: emailKey("new@example.com"), Code: "123456", ExpiresAt: time.Now().Add(time.Minute)},
		},
	}
	svc := newTestService(&mockUserRepo{}, codes)

	if err := svc.VerifyEmail(context.Background(), "NEW@example.com", "123456"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(codes.rows) != 0 {
		t.Error("expected code consumed after verification")
	}

	// Second use fails.
	err := svc.VerifyEmail(context.Background(), "new@example.com", "123456")
	assertAppError(t, err, 400)
}

// --- Password Reset Tests ---

func TestRequestPasswordReset_UnknownEmail(t *testing.T) {
	users := &mockUserRepo{}
	mail := &mockMailSender{}
	svc := newTestService(users, &mockCodeRepo{})
	svc.mail = mail

	// Unlike login, the reset flow reports an unknown email.
	err := svc.RequestPasswordReset(context.Background(), "nobody@example.com")
	assertAppError(t, err, 404)
	if mail.sendCount != 0 {
		t.Error("expected no email for unknown address")
	}
}

func TestRequestPasswordReset_Success(t *testing.T) {
	user := testUser(t, 42, "alice@example.com", "hunter22")
	users := &mockUserRepo{
		findByEmailFn: func(ctx context.Context, email string) (*User, error) { return user, nil },
	}
	codes := &mockCodeRepo{}
	mail := &mockMailSender{}

	svc := newTestService(users, codes)
	svc.mail = mail

	if err := svc.RequestPasswordReset(context.Background(), "alice@example.com"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(codes.rows) != 1 || codes.rows[0].OwnerKey != resetKey(42) {
		t.Fatalf("expected one code under %s, got %+v", resetKey(42), codes.rows)
	}
	if mail.sendCount != 1 {
		t.Errorf("expected 1 email, got %d", mail.sendCount)
	}
}

func TestVerifyPasswordReset_PureCheck(t *testing.T) {
	user := testUser(t, 42, "alice@example.com", "hunter22")
	users := &mockUserRepo{
		findByEmailFn: func(ctx context.Context, email string) (*User, error) { return user, nil },
	}
	codes := &mockCodeRepo{
		rows: []VerificationCode{
			{OwnerKey: resetKey(42), Code: "123456", ExpiresAt: time.Now().Add(time.Minute)},
		},
	}

	svc := newTestService(users, codes)

	ok, err := svc.VerifyPasswordReset(context.Background(), "alice@example.com", "123456")
	if err != nil || !ok {
		t.Fatalf("expected valid code, got ok=%v err=%v", ok, err)
	}

	// Verification does not consume.
	if len(codes.rows) != 1 {
		t.Error("expected code to survive verification")
	}

	ok, err = svc.VerifyPasswordReset(context.Background(), "alice@example.com", "000000")
	if err != nil {
		t.Fatalf("wrong code should not be an error on this path: %v", err)
	}
	if ok {
		t.Error("expected wrong code to report invalid")
	}
}

func TestVerifyPasswordReset_CleansUpExpiredRows(t *testing.T) {
	user := testUser(t, 42, "alice@example.com", "hunter22")
	users := &mockUserRepo{
		findByEmailFn: func(ctx context.Context, email string) (*User, error) { return user, nil },
	}
	codes := &mockCodeRepo{
		rows: []VerificationCode{
			{OwnerKey: resetKey(42), Code: "111111", ExpiresAt: time.Now().Add(-time.Hour)},
			{OwnerKey: resetKey(42), Code: "222222", ExpiresAt: time.Now().Add(time.Minute)},
		},
	}

	svc := newTestService(users, codes)
	ok, err := svc.VerifyPasswordReset(context.Background(), "alice@example.com", "222222")
	if err != nil || !ok {
		t.Fatalf("expected valid code, got ok=%v err=%v", ok, err)
	}

	// The expired row was dropped lazily; the live one remains.
	if len(codes.rows) != 1 || codes.rows[0].Code != "222222" {
		t.Errorf("expected only the live code to remain, got %+v", codes.rows)
	}
}

func TestCompletePasswordReset_Success(t *testing.T) {
	user := testUser(t, 42, "alice@example.com", "old-password")
	var updatedHash string
	users := &mockUserRepo{
		findByEmailFn: func(ctx context.Context, email string) (*User, error) { return user, nil },
		updatePasswordFn: func(ctx context.Context, id int64, passwordHash string) error {
			if id != 42 {
				t.Errorf("expected id 42, got %d", id)
			}
			updatedHash = passwordHash
			return nil
		},
	}
	codes := &mockCodeRepo{
		rows: []VerificationCode{
			{OwnerKey: resetKey(42), Code: "111111", ExpiresAt: time.Now().Add(time.Minute)},
			{OwnerKey: resetKey(42), Code: "222222", ExpiresAt: time.Now().Add(time.Minute)},
		},
	}

	svc := newTestService(users, codes)
	err := svc.CompletePasswordReset(context.Background(), "alice@example.com", "111111", "new-password")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !verifyPassword("new-password", updatedHash) {
		t.Error("expected new password to verify against updated hash")
	}

	// The whole batch is consumed: the sibling code dies with the used one.
	if len(codes.rows) != 0 {
		t.Errorf("expected all reset codes consumed, %d remain", len(codes.rows))
	}
}

func TestCompletePasswordReset_RevalidatesCode(t *testing.T) {
	user := testUser(t, 42, "alice@example.com", "old-password")
	users := &mockUserRepo{
		findByEmailFn: func(ctx context.Context, email string) (*User, error) { return user, nil },
		updatePasswordFn: func(ctx context.Context, id int64, passwordHash string) error {
			t.Error("password must not change with an invalid code")
			return nil
		},
	}
	codes := &mockCodeRepo{}

	svc := newTestService(users, codes)
	err := svc.CompletePasswordReset(context.Background(), "alice@example.com", "123456", "new-password")
	assertAppError(t, err, 400)
}

func TestCompletePasswordReset_ShortPassword(t *testing.T) {
	svc := newTestService(&mockUserRepo{}, &mockCodeRepo{})
	err := svc.CompletePasswordReset(context.Background(), "alice@example.com", "123456", "12345")
	assertAppError(t, err, 422)
}

// --- Profile / Token Tests ---

func TestUpdateProfile_RefreshesClaims(t *testing.T) {
	user := testUser(t, 42, "alice@example.com", "hunter22")
	users := &mockUserRepo{
		updateProfileFn: func(ctx context.Context, id int64, firstName, lastName string) error {
			user.FirstName = firstName
			user.LastName = lastName
			return nil
		},
		findByIDFn: func(ctx context.Context, id int64) (*User, error) { return user, nil },
	}

	svc := newTestService(users, &mockCodeRepo{})
	token, got, err := svc.UpdateProfile(context.Background(), 42, UpdateProfileRequest{
		FirstName: "Alicia", LastName: "Andersson",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.FirstName != "Alicia" {
		t.Errorf("expected updated first name, got %s", got.FirstName)
	}

	claims, err := svc.codec.Verify(token)
	if err != nil {
		t.Fatalf("refreshed token did not verify: %v", err)
	}
	if claims.Name() != "Alicia Andersson" {
		t.Errorf("expected refreshed claims to carry the new name, got %q", claims.Name())
	}
}

func TestUpdateProfile_EmptyNames(t *testing.T) {
	svc := newTestService(&mockUserRepo{}, &mockCodeRepo{})
	_, _, err := svc.UpdateProfile(context.Background(), 42, UpdateProfileRequest{FirstName: " ", LastName: "X"})
	assertAppError(t, err, 422)
}

func TestRefreshToken_UserGone(t *testing.T) {
	svc := newTestService(&mockUserRepo{}, &mockCodeRepo{})
	_, err := svc.RefreshToken(context.Background(), 42)
	assertAppError(t, err, 404)
}

func TestDeleteAccount_NotFound(t *testing.T) {
	users := &mockUserRepo{
		deleteFn: func(ctx context.Context, id int64) error {
			return apperror.NewNotFound("user not found")
		},
	}
	svc := newTestService(users, &mockCodeRepo{})
	err := svc.DeleteAccount(context.Background(), 42)
	assertAppError(t, err, 404)
}

// --- Full Flow ---

func TestLoginFlow_EndToEnd(t *testing.T) {
	user := testUser(t, 42, "alice@example.com", "hunter22")
	users := &mockUserRepo{
		findByEmailFn: func(ctx context.Context, email string) (*User, error) { return user, nil },
		findByIDFn:    func(ctx context.Context, id int64) (*User, error) { return user, nil },
	}
	codes := &mockCodeRepo{}
	mail := &mockMailSender{}

	svc := newTestService(users, codes)
	svc.mail = mail

	result, err := svc.Login(context.Background(), LoginRequest{Email: "alice@example.com", Password: "hunter22"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	issued := codes.rows[0].Code

	// A wrong guess is rejected and does not burn the real code.
	_, _, err = svc.VerifyTwoFactor(context.Background(), result.UserID, "000000")
	assertAppError(t, err, 400)

	token, _, err := svc.VerifyTwoFactor(context.Background(), result.UserID, issued)
	if err != nil {
		t.Fatalf("2fa verification failed: %v", err)
	}

	claims, err := svc.codec.Verify(token)
	if err != nil {
		t.Fatalf("session token did not verify: %v", err)
	}
	if claims.UserID != 42 {
		t.Errorf("expected claims for user 42, got %d", claims.UserID)
	}
	if claims.IsAdmin {
		t.Error("expected non-admin claims")
	}

	// The issued code is single-use.
	_, _, err = svc.VerifyTwoFactor(context.Background(), result.UserID, issued)
	assertAppError(t, err, 400)
}

// --- OTP Generation Tests ---

func TestGenerateOTP_Range(t *testing.T) {
	for i := 0; i < 200; i++ {
		code, err := generateOTP()
		if err != nil {
			t.Fatalf("generateOTP failed: %v", err)
		}
		if len(code) != 6 {
			t.Fatalf("expected 6 digits, got %q", code)
		}
		n, err := strconv.Atoi(code)
		if err != nil {
			t.Fatalf("expected numeric code, got %q", code)
		}
		if n < 100000 || n > 999999 {
			t.Fatalf("code out of range: %d", n)
		}
	}
}

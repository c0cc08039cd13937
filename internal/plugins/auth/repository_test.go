package auth

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
)

func newMockDB(t *testing.T) (*userRepository, *codeRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return &userRepository{db: db}, &codeRepository{db: db}, mock
}

func TestUserRepository_Create_FillsGeneratedID(t *testing.T) {
	users, _, mock := newMockDB(t)

	mock.ExpectExec("INSERT INTO users").
		WithArgs("alice", "alice@example.com", "", "", "hash", false, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(42, 1))

	user := &User{Username: "alice", Email: "alice@example.com", PasswordHash: "hash"}
	if err := users.Create(context.Background(), user); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.ID != 42 {
		t.Errorf("expected generated id 42, got %d", user.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestUserRepository_Create_DuplicateKeyIsConflict(t *testing.T) {
	users, _, mock := newMockDB(t)

	mock.ExpectExec("INSERT INTO users").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	err := users.Create(context.Background(), &User{Username: "alice", Email: "taken@example.com"})
	assertAppError(t, err, 409)
}

func TestUserRepository_FindByEmail_NotFound(t *testing.T) {
	users, _, mock := newMockDB(t)

	mock.ExpectQuery("SELECT (.+) FROM users WHERE email").
		WithArgs("nobody@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := users.FindByEmail(context.Background(), "nobody@example.com")
	assertAppError(t, err, 404)
}

func TestUserRepository_UpdatePassword_NoRowsIsNotFound(t *testing.T) {
	users, _, mock := newMockDB(t)

	mock.ExpectExec("UPDATE users SET password_hash").
		WithArgs("newhash", int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := users.UpdatePassword(context.Background(), 42, "newhash")
	assertAppError(t, err, 404)
}

func TestCodeRepository_FindByOwner_ReturnsExpiredRows(t *testing.T) {
	// Expiry is a logical TTL: the repository hands back expired rows and
	// the service compares timestamps.
	_, codes, mock := newMockDB(t)

	past := time.Now().Add(-time.Hour)
	mock.ExpectQuery("SELECT owner_key, code, expires_at FROM verification_codes").
		WithArgs("2fa:42").
		WillReturnRows(sqlmock.NewRows([]string{"owner_key", "code", "expires_at"}).
			AddRow("2fa:42", "123456", past))

	rows, err := codes.FindByOwner(context.Background(), "2fa:42")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected expired row to be returned, got %d rows", len(rows))
	}
}

func TestCodeRepository_DeleteExpired_ReturnsCount(t *testing.T) {
	_, codes, mock := newMockDB(t)

	mock.ExpectExec("DELETE FROM verification_codes WHERE expires_at").
		WillReturnResult(sqlmock.NewResult(0, 7))

	n, err := codes.DeleteExpired(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 7 {
		t.Errorf("expected 7 rows swept, got %d", n)
	}
}

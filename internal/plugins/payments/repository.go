package payments

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/eventribe/eventribe/internal/apperror"
)

// Repository defines the data access contract for payment methods and
// payments. Every query takes the owning user id; rows belonging to other
// users are invisible, not forbidden.
type Repository interface {
	CreateMethod(ctx context.Context, method *PaymentMethod) error
	FindMethod(ctx context.Context, id, userID int64) (*PaymentMethod, error)
	ListMethods(ctx context.Context, userID int64) ([]PaymentMethod, error)
	DeleteMethod(ctx context.Context, id, userID int64) error
	ClearDefault(ctx context.Context, userID int64) error
	SetDefault(ctx context.Context, id, userID int64) error

	CreatePayment(ctx context.Context, payment *Payment) error
	ListPayments(ctx context.Context, userID int64) ([]Payment, error)
	UpdatePaymentStatus(ctx context.Context, id, userID int64, status string) error
}

// paymentRepository implements Repository with MariaDB.
type paymentRepository struct {
	db *sql.DB
}

// NewRepository creates a new payment repository.
func NewRepository(db *sql.DB) Repository {
	return &paymentRepository{db: db}
}

// CreateMethod inserts a payment method row and fills in the generated id.
func (r *paymentRepository) CreateMethod(ctx context.Context, method *PaymentMethod) error {
	query := `INSERT INTO payment_methods (user_id, label, brand, cardholder_name, last_four, expiry_month, expiry_year, is_default, created_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := r.db.ExecContext(ctx, query,
		method.UserID, method.Label, method.Brand, method.CardholderName, method.LastFour,
		method.ExpiryMonth, method.ExpiryYear, method.IsDefault, method.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting payment method: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading inserted method id: %w", err)
	}
	method.ID = id

	return nil
}

// FindMethod retrieves one payment method scoped to its owner.
func (r *paymentRepository) FindMethod(ctx context.Context, id, userID int64) (*PaymentMethod, error) {
	query := `SELECT id, user_id, label, brand, cardholder_name, last_four, expiry_month, expiry_year, is_default, created_at
	          FROM payment_methods WHERE id = ? AND user_id = ?`

	m := &PaymentMethod{}
	err := r.db.QueryRowContext(ctx, query, id, userID).Scan(
		&m.ID, &m.UserID, &m.Label, &m.Brand, &m.CardholderName, &m.LastFour,
		&m.ExpiryMonth, &m.ExpiryYear, &m.IsDefault, &m.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("payment method not found")
	}
	if err != nil {
		return nil, fmt.Errorf("querying payment method: %w", err)
	}
	return m, nil
}

// ListMethods returns the user's payment methods, default first.
func (r *paymentRepository) ListMethods(ctx context.Context, userID int64) ([]PaymentMethod, error) {
	query := `SELECT id, user_id, label, brand, cardholder_name, last_four, expiry_month, expiry_year, is_default, created_at
	          FROM payment_methods WHERE user_id = ? ORDER BY is_default DESC, created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("listing payment methods: %w", err)
	}
	defer rows.Close()

	var methods []PaymentMethod
	for rows.Next() {
		var m PaymentMethod
		if err := rows.Scan(
			&m.ID, &m.UserID, &m.Label, &m.Brand, &m.CardholderName, &m.LastFour,
			&m.ExpiryMonth, &m.ExpiryYear, &m.IsDefault, &m.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning payment method: %w", err)
		}
		methods = append(methods, m)
	}
	return methods, rows.Err()
}

// DeleteMethod removes a payment method scoped to its owner.
func (r *paymentRepository) DeleteMethod(ctx context.Context, id, userID int64) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM payment_methods WHERE id = ? AND user_id = ?`, id, userID,
	)
	if err != nil {
		return fmt.Errorf("deleting payment method: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return apperror.NewNotFound("payment method not found")
	}
	return nil
}

// ClearDefault unsets the default flag on all of the user's methods.
func (r *paymentRepository) ClearDefault(ctx context.Context, userID int64) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE payment_methods SET is_default = FALSE WHERE user_id = ?`, userID,
	); err != nil {
		return fmt.Errorf("clearing default method: %w", err)
	}
	return nil
}

// SetDefault marks one method as default, scoped to its owner.
func (r *paymentRepository) SetDefault(ctx context.Context, id, userID int64) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE payment_methods SET is_default = TRUE WHERE id = ? AND user_id = ?`, id, userID,
	)
	if err != nil {
		return fmt.Errorf("setting default method: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return apperror.NewNotFound("payment method not found")
	}
	return nil
}

// CreatePayment inserts a payment row and fills in the generated id.
func (r *paymentRepository) CreatePayment(ctx context.Context, payment *Payment) error {
	query := `INSERT INTO payments (user_id, event_id, method_id, amount_cents, currency, status, created_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?)`

	result, err := r.db.ExecContext(ctx, query,
		payment.UserID, payment.EventID, payment.MethodID,
		payment.AmountCents, payment.Currency, payment.Status, payment.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting payment: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading inserted payment id: %w", err)
	}
	payment.ID = id

	return nil
}

// ListPayments returns the user's payment history, newest first.
func (r *paymentRepository) ListPayments(ctx context.Context, userID int64) ([]Payment, error) {
	query := `SELECT id, user_id, event_id, method_id, amount_cents, currency, status, created_at
	          FROM payments WHERE user_id = ? ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("listing payments: %w", err)
	}
	defer rows.Close()

	var payments []Payment
	for rows.Next() {
		var p Payment
		if err := rows.Scan(
			&p.ID, &p.UserID, &p.EventID, &p.MethodID,
			&p.AmountCents, &p.Currency, &p.Status, &p.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning payment: %w", err)
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// UpdatePaymentStatus transitions a payment's status, scoped to its owner.
func (r *paymentRepository) UpdatePaymentStatus(ctx context.Context, id, userID int64, status string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE payments SET status = ? WHERE id = ? AND user_id = ?`, status, id, userID,
	)
	if err != nil {
		return fmt.Errorf("updating payment status: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return apperror.NewNotFound("payment not found")
	}
	return nil
}

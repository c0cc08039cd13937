package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/eventribe/eventribe/internal/apperror"
)

// RegistrationChecker reports whether a user is registered for an event.
// Satisfied by the events repository; payments only ever read this one fact.
type RegistrationChecker interface {
	IsRegistered(ctx context.Context, eventID, userID int64) (bool, error)
}

// Service defines the business logic contract for payments.
type Service interface {
	AddMethod(ctx context.Context, userID int64, input MethodInput) (*PaymentMethod, error)
	ListMethods(ctx context.Context, userID int64) ([]PaymentMethod, error)
	RemoveMethod(ctx context.Context, id, userID int64) error
	SetDefaultMethod(ctx context.Context, id, userID int64) error

	RecordPayment(ctx context.Context, userID, eventID int64, methodID *int64, amountCents int64, currency string) (*Payment, error)
	History(ctx context.Context, userID int64) ([]Payment, error)
	Refund(ctx context.Context, id, userID int64) error
}

type paymentService struct {
	repo          Repository
	registrations RegistrationChecker
}

// NewService creates a new payment service.
func NewService(repo Repository, registrations RegistrationChecker) Service {
	return &paymentService{repo: repo, registrations: registrations}
}

// AddMethod stores a new card reference. Only the last four digits of the
// number survive validation.
func (s *paymentService) AddMethod(ctx context.Context, userID int64, input MethodInput) (*PaymentMethod, error) {
	digits := digitsOnly(input.CardNumber)
	if len(digits) < 12 || len(digits) > 19 {
		return nil, apperror.NewValidation("card number must be 12 to 19 digits")
	}
	if strings.TrimSpace(input.CardholderName) == "" {
		return nil, apperror.NewValidation("cardholder name is required")
	}
	if input.ExpiryMonth < 1 || input.ExpiryMonth > 12 {
		return nil, apperror.NewValidation("expiry month must be between 1 and 12")
	}
	now := time.Now()
	if input.ExpiryYear < now.Year() ||
		(input.ExpiryYear == now.Year() && input.ExpiryMonth < int(now.Month())) {
		return nil, apperror.NewValidation("card is expired")
	}

	if input.IsDefault {
		if err := s.repo.ClearDefault(ctx, userID); err != nil {
			return nil, apperror.NewInternal(fmt.Errorf("clearing default method: %w", err))
		}
	}

	method := &PaymentMethod{
		UserID:         userID,
		Label:          strings.TrimSpace(input.Label),
		Brand:          cardBrand(digits),
		CardholderName: strings.TrimSpace(input.CardholderName),
		LastFour:       digits[len(digits)-4:],
		ExpiryMonth:    input.ExpiryMonth,
		ExpiryYear:     input.ExpiryYear,
		IsDefault:      input.IsDefault,
		CreatedAt:      now.UTC(),
	}

	if err := s.repo.CreateMethod(ctx, method); err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("creating payment method: %w", err))
	}

	slog.Info("payment method added",
		slog.Int64("method_id", method.ID),
		slog.Int64("user_id", userID),
	)

	return method, nil
}

// ListMethods returns the user's stored methods.
func (s *paymentService) ListMethods(ctx context.Context, userID int64) ([]PaymentMethod, error) {
	methods, err := s.repo.ListMethods(ctx, userID)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("listing payment methods: %w", err))
	}
	return methods, nil
}

// RemoveMethod deletes a stored method. A foreign or missing method is the
// same not-found.
func (s *paymentService) RemoveMethod(ctx context.Context, id, userID int64) error {
	if err := s.repo.DeleteMethod(ctx, id, userID); err != nil {
		if isNotFound(err) {
			return err
		}
		return apperror.NewInternal(fmt.Errorf("deleting payment method: %w", err))
	}

	slog.Info("payment method removed", slog.Int64("method_id", id), slog.Int64("user_id", userID))
	return nil
}

// SetDefaultMethod marks one of the user's methods as default.
func (s *paymentService) SetDefaultMethod(ctx context.Context, id, userID int64) error {
	// Validate ownership first so a foreign id never clears the user's
	// current default.
	if _, err := s.repo.FindMethod(ctx, id, userID); err != nil {
		if isNotFound(err) {
			return err
		}
		return apperror.NewInternal(fmt.Errorf("loading payment method: %w", err))
	}

	if err := s.repo.ClearDefault(ctx, userID); err != nil {
		return apperror.NewInternal(fmt.Errorf("clearing default method: %w", err))
	}
	if err := s.repo.SetDefault(ctx, id, userID); err != nil {
		if isNotFound(err) {
			return err
		}
		return apperror.NewInternal(fmt.Errorf("setting default method: %w", err))
	}
	return nil
}

// RecordPayment writes a completed payment row for one of the caller's
// event registrations. methodID may be nil for payments made without a
// stored card.
func (s *paymentService) RecordPayment(ctx context.Context, userID, eventID int64, methodID *int64, amountCents int64, currency string) (*Payment, error) {
	if amountCents <= 0 {
		return nil, apperror.NewValidation("amount must be positive")
	}
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if len(currency) != 3 {
		return nil, apperror.NewValidation("currency must be a 3-letter code")
	}

	registered, err := s.registrations.IsRegistered(ctx, eventID, userID)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("checking registration: %w", err))
	}
	if !registered {
		return nil, apperror.NewValidation("no registration found for this event")
	}

	if methodID != nil {
		if _, err := s.repo.FindMethod(ctx, *methodID, userID); err != nil {
			if isNotFound(err) {
				return nil, err
			}
			return nil, apperror.NewInternal(fmt.Errorf("loading payment method: %w", err))
		}
	}

	payment := &Payment{
		UserID:      userID,
		EventID:     eventID,
		MethodID:    methodID,
		AmountCents: amountCents,
		Currency:    currency,
		Status:      StatusCompleted,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.repo.CreatePayment(ctx, payment); err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("recording payment: %w", err))
	}

	slog.Info("payment recorded",
		slog.Int64("payment_id", payment.ID),
		slog.Int64("user_id", userID),
		slog.Int64("amount_cents", amountCents),
	)

	return payment, nil
}

// History returns the user's payments.
func (s *paymentService) History(ctx context.Context, userID int64) ([]Payment, error) {
	payments, err := s.repo.ListPayments(ctx, userID)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("listing payments: %w", err))
	}
	return payments, nil
}

// Refund transitions one of the user's payments to refunded.
func (s *paymentService) Refund(ctx context.Context, id, userID int64) error {
	if err := s.repo.UpdatePaymentStatus(ctx, id, userID, StatusRefunded); err != nil {
		if isNotFound(err) {
			return err
		}
		return apperror.NewInternal(fmt.Errorf("refunding payment: %w", err))
	}

	slog.Info("payment refunded", slog.Int64("payment_id", id), slog.Int64("user_id", userID))
	return nil
}

// cardBrand guesses the card network from the leading digits. Unrecognized
// prefixes fall back to "card".
func cardBrand(digits string) string {
	switch {
	case strings.HasPrefix(digits, "4"):
		return "visa"
	case len(digits) >= 2 && digits[0] == '5' && digits[1] >= '1' && digits[1] <= '5':
		return "mastercard"
	case strings.HasPrefix(digits, "34"), strings.HasPrefix(digits, "37"):
		return "amex"
	case strings.HasPrefix(digits, "6011"), strings.HasPrefix(digits, "65"):
		return "discover"
	default:
		return "card"
	}
}

// digitsOnly strips everything but digits from a card number.
func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isNotFound(err error) bool {
	var appErr *apperror.AppError
	return errors.As(err, &appErr) && appErr.Code == 404
}

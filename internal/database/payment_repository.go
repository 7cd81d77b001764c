package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Ramanjali-g/endless-path-services/internal/models"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

// ErrPaymentNotFound is returned when no payment row matches the lookup
var ErrPaymentNotFound = errors.New("payment not found")

// ErrActivePaymentExists is returned when a booking already has a payment
// in a non-terminal status. At most one pending/processing payment may
// exist per booking.
var ErrActivePaymentExists = errors.New("booking already has an active payment")

// PaymentRepository handles database operations for the payments table.
// Together with the webhook and verification services it is the only
// write path for payment rows.
type PaymentRepository struct {
	db     *sqlx.DB
	logger *logrus.Logger
}

// NewPaymentRepository creates a new PaymentRepository
func NewPaymentRepository(db *sqlx.DB, logger *logrus.Logger) *PaymentRepository {
	return &PaymentRepository{db: db, logger: logger}
}

// Create inserts a new pending payment tied to a freshly opened gateway
// order. The partial unique index on (booking_id) WHERE status IN
// ('pending','processing') backs the one-active-payment invariant; a
// violation surfaces as ErrActivePaymentExists.
func (r *PaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	if payment.ID == "" {
		payment.ID = uuid.New().String()
	}
	if payment.Status == "" {
		payment.Status = models.PaymentStatusPending
	}

	query := `
		INSERT INTO payments (
			id, booking_id, user_id, amount, currency, status, razorpay_order_id
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		payment.ID, payment.BookingID, payment.UserID,
		payment.Amount, payment.Currency, payment.Status, payment.RazorpayOrderID,
	).Scan(&payment.CreatedAt, &payment.UpdatedAt)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return ErrActivePaymentExists
		}
		return fmt.Errorf("failed to create payment: %w", err)
	}

	return nil
}

// GetByOrderID retrieves a payment by its gateway order id
func (r *PaymentRepository) GetByOrderID(ctx context.Context, orderID string) (*models.Payment, error) {
	query := `
		SELECT id, booking_id, user_id, amount, currency, status,
		       razorpay_order_id, razorpay_payment_id, razorpay_signature,
		       invoice_number, payment_method, error_reason,
		       created_at, updated_at
		FROM payments
		WHERE razorpay_order_id = $1
	`

	var payment models.Payment
	if err := r.db.GetContext(ctx, &payment, query, orderID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("failed to get payment by order id: %w", err)
	}

	return &payment, nil
}

// GetActiveByBookingID retrieves the booking's payment in a non-terminal
// status, if any
func (r *PaymentRepository) GetActiveByBookingID(ctx context.Context, bookingID string) (*models.Payment, error) {
	query := `
		SELECT id, booking_id, user_id, amount, currency, status,
		       razorpay_order_id, razorpay_payment_id, razorpay_signature,
		       invoice_number, payment_method, error_reason,
		       created_at, updated_at
		FROM payments
		WHERE booking_id = $1
		  AND status IN ('pending', 'processing')
		ORDER BY created_at DESC
		LIMIT 1
	`

	var payment models.Payment
	if err := r.db.GetContext(ctx, &payment, query, bookingID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("failed to get active payment: %w", err)
	}

	return &payment, nil
}

// CompletePaymentParams carries the settlement values stamped on completion
type CompletePaymentParams struct {
	RazorpayOrderID   string
	RazorpayPaymentID string
	RazorpaySignature string
	PaymentMethod     string
	InvoiceNumber     string
}

// Complete transitions the payment for the given gateway order to
// completed. The status predicate makes the check-and-set atomic: of two
// racing callers exactly one observes a non-terminal row and applies the
// update, so exactly one invoice number is ever stamped. Returns whether
// this call applied the transition; callers re-read the row when it did
// not, to distinguish not-found from already-terminal.
func (r *PaymentRepository) Complete(ctx context.Context, params CompletePaymentParams) (bool, error) {
	query := `
		UPDATE payments
		SET status = 'completed',
			razorpay_payment_id = $2,
			razorpay_signature = $3,
			payment_method = $4,
			invoice_number = $5,
			error_reason = NULL,
			updated_at = NOW()
		WHERE razorpay_order_id = $1
		  AND status IN ('pending', 'processing')
	`

	result, err := r.db.ExecContext(ctx, query,
		params.RazorpayOrderID, params.RazorpayPaymentID,
		params.RazorpaySignature, params.PaymentMethod, params.InvoiceNumber,
	)
	if err != nil {
		return false, fmt.Errorf("failed to complete payment: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	if rows > 0 {
		r.logger.WithFields(logrus.Fields{
			"razorpay_order_id":   params.RazorpayOrderID,
			"razorpay_payment_id": params.RazorpayPaymentID,
			"invoice_number":      params.InvoiceNumber,
		}).Info("Payment completed")
	}

	return rows > 0, nil
}

// Fail transitions the payment for the given gateway order to failed,
// recording the gateway's reason. Same atomic check-and-set shape as
// Complete; already-terminal rows are left untouched.
func (r *PaymentRepository) Fail(ctx context.Context, orderID, reason string) (bool, error) {
	query := `
		UPDATE payments
		SET status = 'failed',
			error_reason = $2,
			updated_at = NOW()
		WHERE razorpay_order_id = $1
		  AND status IN ('pending', 'processing')
	`

	result, err := r.db.ExecContext(ctx, query, orderID, reason)
	if err != nil {
		return false, fmt.Errorf("failed to mark payment failed: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	if rows > 0 {
		r.logger.WithFields(logrus.Fields{
			"razorpay_order_id": orderID,
			"reason":            reason,
		}).Info("Payment marked failed")
	}

	return rows > 0, nil
}


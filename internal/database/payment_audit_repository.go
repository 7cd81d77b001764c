package database

import (
	"context"
	"fmt"
	"time"

	"github.com/Ramanjali-g/endless-path-services/internal/models"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

// PaymentAuditRepository handles payment audit operations
type PaymentAuditRepository struct {
	db     *sqlx.DB
	logger *logrus.Logger
}

// NewPaymentAuditRepository creates a new payment audit repository
func NewPaymentAuditRepository(db *sqlx.DB, logger *logrus.Logger) *PaymentAuditRepository {
	return &PaymentAuditRepository{
		db:     db,
		logger: logger,
	}
}

// Log creates a new payment audit entry
// This should NEVER fail silently - payment events must be logged
func (r *PaymentAuditRepository) Log(ctx context.Context, audit *models.PaymentAudit) error {
	if audit == nil {
		return fmt.Errorf("audit entry cannot be nil")
	}

	if audit.ID == uuid.Nil {
		audit.ID = uuid.New()
	}
	if audit.CreatedAt.IsZero() {
		audit.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO payment_audits (
			id, event_type, event_source,
			booking_id, razorpay_order_id, razorpay_payment_id,
			amount, currency, raw_body, error_message,
			ip_address, user_agent, device_type, created_at
		) VALUES (
			$1, $2, $3,
			$4, $5, $6,
			$7, $8, $9, $10,
			$11, $12, $13, $14
		)`

	_, err := r.db.ExecContext(ctx, query,
		audit.ID, audit.EventType, audit.EventSource,
		audit.BookingID, audit.RazorpayOrderID, audit.RazorpayPaymentID,
		audit.Amount, audit.Currency, audit.RawBody, audit.ErrorMessage,
		audit.IPAddress, audit.UserAgent, audit.DeviceType, audit.CreatedAt,
	)

	if err != nil {
		r.logger.WithError(err).WithFields(logrus.Fields{
			"event_type":        audit.EventType,
			"razorpay_order_id": audit.RazorpayOrderID,
		}).Error("Failed to log payment audit")
		return fmt.Errorf("failed to log payment audit: %w", err)
	}

	r.logger.WithFields(logrus.Fields{
		"audit_id":   audit.ID,
		"event_type": audit.EventType,
	}).Debug("Payment audit logged")

	return nil
}

// GetByOrderID returns the audit trail for a gateway order, oldest first
func (r *PaymentAuditRepository) GetByOrderID(ctx context.Context, orderID string) ([]models.PaymentAudit, error) {
	query := `
		SELECT id, event_type, event_source,
		       booking_id, razorpay_order_id, razorpay_payment_id,
		       amount, currency, raw_body, error_message,
		       ip_address, user_agent, device_type, created_at
		FROM payment_audits
		WHERE razorpay_order_id = $1
		ORDER BY created_at
	`

	audits := []models.PaymentAudit{}
	if err := r.db.SelectContext(ctx, &audits, query, orderID); err != nil {
		return nil, fmt.Errorf("failed to get payment audits: %w", err)
	}

	return audits, nil
}

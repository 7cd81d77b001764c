package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/Ramanjali-g/endless-path-services/internal/database"
	"github.com/Ramanjali-g/endless-path-services/internal/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// paymentMethodRazorpay is stamped on completion; the gateway does not
// echo the instrument on either settlement path.
const paymentMethodRazorpay = "razorpay"

// RequestMeta carries caller metadata into the audit trail
type RequestMeta struct {
	IPAddress  string
	UserAgent  string
	DeviceType string
}

// PaymentService owns the booking-payment reconciliation core: order
// creation, the client-initiated verification path, and the
// webhook-initiated reconciliation path. The two settlement paths race
// freely; the payment row's status is the single arbitration point and
// the repository's check-and-set decides the winner.
type PaymentService struct {
	bookingRepo *database.BookingRepository
	paymentRepo *database.PaymentRepository
	auditRepo   *database.PaymentAuditRepository
	razorpay    *RazorpayService
	logger      *logrus.Logger
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(
	bookingRepo *database.BookingRepository,
	paymentRepo *database.PaymentRepository,
	auditRepo *database.PaymentAuditRepository,
	razorpay *RazorpayService,
	logger *logrus.Logger,
) *PaymentService {
	return &PaymentService{
		bookingRepo: bookingRepo,
		paymentRepo: paymentRepo,
		auditRepo:   auditRepo,
		razorpay:    razorpay,
		logger:      logger,
	}
}

// audit writes an audit entry; audit failures are logged by the
// repository and never fail the business operation.
func (s *PaymentService) audit(ctx context.Context, entry *models.PaymentAudit) {
	_ = s.auditRepo.Log(ctx, entry)
}

// CreateOrder validates that the booking is payable by the caller, opens
// a gateway order for the estimated price, and persists a pending payment
// row. When the booking already has a non-terminal payment the existing
// order is returned instead of opening a duplicate.
func (s *PaymentService) CreateOrder(ctx context.Context, userID, bookingID string, meta RequestMeta) (*models.CreateOrderResponse, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}

	if _, err := uuid.Parse(bookingID); err != nil {
		return nil, fmt.Errorf("%w: invalid booking_id format", ErrInvalidInput)
	}

	// Scoped lookup: a booking owned by someone else is indistinguishable
	// from a missing one, so non-owners learn nothing.
	booking, err := s.bookingRepo.GetByIDForCustomer(bookingID, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: booking", ErrNotFound)
	}

	if !booking.IsPayable() {
		return nil, fmt.Errorf("%w: booking cannot be paid in status %s", ErrInvalidState, booking.Status)
	}

	if booking.EstimatedPrice == nil || *booking.EstimatedPrice <= 0 {
		return nil, fmt.Errorf("%w: booking has no payable amount", ErrInvalidAmount)
	}
	amount := *booking.EstimatedPrice

	serviceName, err := s.bookingRepo.GetServiceName(bookingID)
	if err != nil || serviceName == "" {
		serviceName = "Service"
	}

	// Reuse an existing open order rather than creating a duplicate; the
	// stale order stays retryable until it settles.
	if existing, err := s.paymentRepo.GetActiveByBookingID(ctx, bookingID); err == nil && existing.RazorpayOrderID != nil {
		s.audit(ctx, models.NewPaymentAudit(models.PaymentEventOrderReused, models.PaymentSourceClient).
			SetBooking(bookingID).
			SetOrder(*existing.RazorpayOrderID).
			SetAmount(existing.Amount, existing.Currency).
			SetRequestMeta(meta.IPAddress, meta.UserAgent, meta.DeviceType))

		return &models.CreateOrderResponse{
			OrderID:     *existing.RazorpayOrderID,
			Amount:      existing.Amount,
			Currency:    existing.Currency,
			KeyID:       s.razorpay.KeyID(),
			PaymentID:   existing.ID,
			BookingID:   bookingID,
			ServiceName: serviceName,
		}, nil
	}

	payment := &models.Payment{
		BookingID: bookingID,
		UserID:    userID,
		Amount:    amount,
		Currency:  "INR",
		Status:    models.PaymentStatusPending,
	}

	order, err := s.razorpay.CreateOrder(
		payment.AmountInPaise(),
		payment.Currency,
		fmt.Sprintf("booking_%s", bookingID[:8]),
		map[string]string{
			"booking_id":   bookingID,
			"service_name": serviceName,
		},
	)
	if err != nil {
		return nil, err
	}

	payment.RazorpayOrderID = &order.ID
	if err := s.paymentRepo.Create(ctx, payment); err != nil {
		// The gateway accepted the order but the row is not persisted: a
		// retryable inconsistency, never swallowed. The order id is in the
		// audit trail so a retry or cleanup can find it.
		s.logger.WithError(err).WithFields(logrus.Fields{
			"booking_id":        bookingID,
			"razorpay_order_id": order.ID,
		}).Error("Gateway order opened but payment record not persisted")
		s.audit(ctx, models.NewPaymentAudit(models.PaymentEventError, models.PaymentSourceBackend).
			SetBooking(bookingID).
			SetOrder(order.ID).
			SetAmount(amount, payment.Currency).
			SetError("payment record creation failed after gateway order opened: "+err.Error()))
		return nil, fmt.Errorf("failed to create payment record for order %s: %w", order.ID, err)
	}

	s.audit(ctx, models.NewPaymentAudit(models.PaymentEventOrderCreated, models.PaymentSourceClient).
		SetBooking(bookingID).
		SetOrder(order.ID).
		SetAmount(amount, payment.Currency).
		SetRequestMeta(meta.IPAddress, meta.UserAgent, meta.DeviceType))

	return &models.CreateOrderResponse{
		OrderID:     order.ID,
		Amount:      amount,
		Currency:    payment.Currency,
		KeyID:       s.razorpay.KeyID(),
		PaymentID:   payment.ID,
		BookingID:   bookingID,
		ServiceName: serviceName,
	}, nil
}

// VerifyPayment is the client-initiated settlement path. The signature is
// recomputed before anything is read or written; only then is the payment
// loaded, ownership enforced, and the terminal transition attempted.
func (s *PaymentService) VerifyPayment(ctx context.Context, userID string, req *models.VerifyPaymentRequest, meta RequestMeta) (*models.VerifyPaymentResponse, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}

	if req.RazorpayOrderID == "" || req.RazorpayPaymentID == "" || req.RazorpaySignature == "" {
		return nil, fmt.Errorf("%w: missing payment verification data", ErrInvalidInput)
	}

	if !s.razorpay.VerifyPaymentSignature(req.RazorpayOrderID, req.RazorpayPaymentID, req.RazorpaySignature) {
		s.logger.WithFields(logrus.Fields{
			"razorpay_order_id": req.RazorpayOrderID,
			"user_id":           userID,
		}).Warn("Payment signature verification failed")
		s.audit(ctx, models.NewPaymentAudit(models.PaymentEventError, models.PaymentSourceClient).
			SetOrder(req.RazorpayOrderID).
			SetError("signature mismatch").
			SetRequestMeta(meta.IPAddress, meta.UserAgent, meta.DeviceType))
		return nil, ErrVerificationFailed
	}

	s.audit(ctx, models.NewPaymentAudit(models.PaymentEventVerificationAttempt, models.PaymentSourceClient).
		SetOrder(req.RazorpayOrderID).
		SetPayment(req.RazorpayPaymentID).
		SetRequestMeta(meta.IPAddress, meta.UserAgent, meta.DeviceType))

	payment, err := s.paymentRepo.GetByOrderID(ctx, req.RazorpayOrderID)
	if err != nil {
		if errors.Is(err, database.ErrPaymentNotFound) {
			return nil, fmt.Errorf("%w: payment", ErrNotFound)
		}
		return nil, err
	}

	// The caller already holds the order id from their own checkout
	// session, so revealing existence here is acceptable.
	if payment.UserID != userID {
		return nil, ErrForbidden
	}

	if payment.Status == models.PaymentStatusCompleted {
		return &models.VerifyPaymentResponse{
			Success:   true,
			Message:   "Payment already verified",
			PaymentID: payment.ID,
			BookingID: payment.BookingID,
		}, nil
	}

	applied, err := s.paymentRepo.Complete(ctx, database.CompletePaymentParams{
		RazorpayOrderID:   req.RazorpayOrderID,
		RazorpayPaymentID: req.RazorpayPaymentID,
		RazorpaySignature: req.RazorpaySignature,
		PaymentMethod:     paymentMethodRazorpay,
		InvoiceNumber:     models.GenerateInvoiceNumber(),
	})
	if err != nil {
		return nil, err
	}

	if !applied {
		return s.resolveLostVerification(ctx, payment, req)
	}

	s.audit(ctx, models.NewPaymentAudit(models.PaymentEventSuccess, models.PaymentSourceClient).
		SetBooking(payment.BookingID).
		SetOrder(req.RazorpayOrderID).
		SetPayment(req.RazorpayPaymentID).
		SetAmount(payment.Amount, payment.Currency).
		SetRequestMeta(meta.IPAddress, meta.UserAgent, meta.DeviceType))

	return &models.VerifyPaymentResponse{
		Success:   true,
		Message:   "Payment verified successfully",
		PaymentID: payment.ID,
		BookingID: payment.BookingID,
	}, nil
}

// resolveLostVerification handles a verification call whose check-and-set
// did not apply: the webhook won the race, or the payment settled to a
// state the valid client signature disagrees with.
func (s *PaymentService) resolveLostVerification(ctx context.Context, payment *models.Payment, req *models.VerifyPaymentRequest) (*models.VerifyPaymentResponse, error) {
	current, err := s.paymentRepo.GetByOrderID(ctx, req.RazorpayOrderID)
	if err != nil {
		return nil, err
	}

	switch current.Status {
	case models.PaymentStatusCompleted:
		// Lost the race to the webhook; converge on its outcome.
		return &models.VerifyPaymentResponse{
			Success:   true,
			Message:   "Payment already verified",
			PaymentID: current.ID,
			BookingID: current.BookingID,
		}, nil
	case models.PaymentStatusFailed:
		s.logger.WithFields(logrus.Fields{
			"razorpay_order_id": req.RazorpayOrderID,
			"status":            current.Status,
		}).Error("Client presented valid signature for a payment recorded as failed")
		s.audit(ctx, models.NewPaymentAudit(models.PaymentEventReconciliationMismatch, models.PaymentSourceClient).
			SetBooking(current.BookingID).
			SetOrder(req.RazorpayOrderID).
			SetPayment(req.RazorpayPaymentID).
			SetError("valid client signature but payment is failed"))
		return nil, ErrStateConflict
	default:
		return nil, fmt.Errorf("payment in unexpected status %s after lost transition", current.Status)
	}
}

// RecordWebhookReceived appends a verified webhook delivery to the audit
// trail before any reconciliation runs, raw body included. The trail then
// shows every delivery even when the event itself is a no-op.
func (s *PaymentService) RecordWebhookReceived(ctx context.Context, orderID, paymentID string, rawBody []byte) {
	entry := models.NewPaymentAudit(models.PaymentEventWebhookReceived, models.PaymentSourceRazorpayWebhook).
		SetRawBody(string(rawBody))
	if orderID != "" {
		entry.SetOrder(orderID)
	}
	if paymentID != "" {
		entry.SetPayment(paymentID)
	}
	s.audit(ctx, entry)
}

// CompleteFromWebhook is the webhook-initiated settlement path for
// captured/authorized events. The webhook's transport signature is the
// authorization; no client-style order|payment signature exists on this
// path, so an internal marker is stored in its place for audit.
func (s *PaymentService) CompleteFromWebhook(ctx context.Context, orderID, paymentID string) error {
	applied, err := s.paymentRepo.Complete(ctx, database.CompletePaymentParams{
		RazorpayOrderID:   orderID,
		RazorpayPaymentID: paymentID,
		RazorpaySignature: models.WebhookSignatureMarker(),
		PaymentMethod:     paymentMethodRazorpay,
		InvoiceNumber:     models.GenerateInvoiceNumber(),
	})
	if err != nil {
		return err
	}

	if applied {
		payment, err := s.paymentRepo.GetByOrderID(ctx, orderID)
		if err == nil {
			s.audit(ctx, models.NewPaymentAudit(models.PaymentEventSuccess, models.PaymentSourceRazorpayWebhook).
				SetBooking(payment.BookingID).
				SetOrder(orderID).
				SetPayment(paymentID).
				SetAmount(payment.Amount, payment.Currency))
		}
		return nil
	}

	current, err := s.paymentRepo.GetByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, database.ErrPaymentNotFound) {
			s.logger.WithField("razorpay_order_id", orderID).Warn("Webhook capture for unknown order")
			return nil
		}
		return err
	}

	switch current.Status {
	case models.PaymentStatusCompleted:
		// Already settled by the client path; idempotent.
		return nil
	case models.PaymentStatusFailed:
		s.logger.WithFields(logrus.Fields{
			"razorpay_order_id": orderID,
			"status":            current.Status,
		}).Error("Webhook capture for a payment recorded as failed")
		s.audit(ctx, models.NewPaymentAudit(models.PaymentEventReconciliationMismatch, models.PaymentSourceRazorpayWebhook).
			SetBooking(current.BookingID).
			SetOrder(orderID).
			SetPayment(paymentID).
			SetError("webhook capture but payment is failed"))
		return nil
	default:
		return fmt.Errorf("payment in unexpected status %s after lost transition", current.Status)
	}
}

// FailFromWebhook records a gateway-reported failure. Idempotent for
// repeated failure events; a failure arriving after the payment completed
// is a real anomaly and is surfaced, never applied.
func (s *PaymentService) FailFromWebhook(ctx context.Context, orderID, reason string) error {
	applied, err := s.paymentRepo.Fail(ctx, orderID, reason)
	if err != nil {
		return err
	}

	if applied {
		payment, err := s.paymentRepo.GetByOrderID(ctx, orderID)
		if err == nil {
			s.audit(ctx, models.NewPaymentAudit(models.PaymentEventFailed, models.PaymentSourceRazorpayWebhook).
				SetBooking(payment.BookingID).
				SetOrder(orderID).
				SetError(reason))
		}
		return nil
	}

	current, err := s.paymentRepo.GetByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, database.ErrPaymentNotFound) {
			s.logger.WithField("razorpay_order_id", orderID).Warn("Webhook failure for unknown order")
			return nil
		}
		return err
	}

	switch current.Status {
	case models.PaymentStatusFailed:
		return nil
	case models.PaymentStatusCompleted:
		s.logger.WithFields(logrus.Fields{
			"razorpay_order_id": orderID,
			"reason":            reason,
		}).Error("Webhook failure for a payment recorded as completed")
		s.audit(ctx, models.NewPaymentAudit(models.PaymentEventReconciliationMismatch, models.PaymentSourceRazorpayWebhook).
			SetBooking(current.BookingID).
			SetOrder(orderID).
			SetError("webhook failure but payment is completed: "+reason))
		return nil
	default:
		return fmt.Errorf("payment in unexpected status %s after lost transition", current.Status)
	}
}

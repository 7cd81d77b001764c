package models

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// PaymentStatus represents the lifecycle status of a payment
type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusProcessing PaymentStatus = "processing"
	PaymentStatusCompleted  PaymentStatus = "completed"
	PaymentStatusFailed     PaymentStatus = "failed"
	// Refunded is reachable only from completed, by a process outside this
	// service. Declared so the column enum is fully represented.
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// IsTerminal reports whether the status permits no further transitions here
func (s PaymentStatus) IsTerminal() bool {
	switch s {
	case PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusRefunded:
		return true
	}
	return false
}

// Payment represents a gateway payment attached to a booking.
// At most one payment per booking may be in a non-terminal status.
type Payment struct {
	ID                string        `json:"id" db:"id"`
	BookingID         string        `json:"booking_id" db:"booking_id"`
	UserID            string        `json:"user_id" db:"user_id"`
	Amount            float64       `json:"amount" db:"amount"`
	Currency          string        `json:"currency" db:"currency"`
	Status            PaymentStatus `json:"status" db:"status"`
	RazorpayOrderID   *string       `json:"razorpay_order_id,omitempty" db:"razorpay_order_id"`
	RazorpayPaymentID *string       `json:"razorpay_payment_id,omitempty" db:"razorpay_payment_id"`
	RazorpaySignature *string       `json:"razorpay_signature,omitempty" db:"razorpay_signature"`
	InvoiceNumber     *string       `json:"invoice_number,omitempty" db:"invoice_number"`
	PaymentMethod     *string       `json:"payment_method,omitempty" db:"payment_method"`
	ErrorReason       *string       `json:"error_reason,omitempty" db:"error_reason"`
	CreatedAt         time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at" db:"updated_at"`
}

// AmountInPaise returns the payment amount in minor currency units,
// rounded to the nearest paisa.
func (p *Payment) AmountInPaise() int64 {
	return int64(math.Round(p.Amount * 100))
}

// CreateOrderRequest is the body of the order creation endpoint
type CreateOrderRequest struct {
	BookingID string `json:"booking_id" binding:"required"`
}

// CreateOrderResponse is returned to the client for gateway checkout
type CreateOrderResponse struct {
	OrderID     string  `json:"order_id"`
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency"`
	KeyID       string  `json:"key_id"`
	PaymentID   string  `json:"payment_id"`
	BookingID   string  `json:"booking_id"`
	ServiceName string  `json:"service_name"`
}

// VerifyPaymentRequest carries the values the gateway hands the client
// after checkout
type VerifyPaymentRequest struct {
	RazorpayOrderID   string `json:"razorpay_order_id"`
	RazorpayPaymentID string `json:"razorpay_payment_id"`
	RazorpaySignature string `json:"razorpay_signature"`
}

// VerifyPaymentResponse is returned on successful verification
type VerifyPaymentResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	PaymentID string `json:"payment_id"`
	BookingID string `json:"booking_id"`
}

// GenerateInvoiceNumber builds an invoice number for a completed payment
func GenerateInvoiceNumber() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", ""))[:10]
	return fmt.Sprintf("INV-%s-%s", time.Now().Format("200601"), suffix)
}

// WebhookSignatureMarker is stored in place of a client-style signature when
// a completion was authorized by the webhook's transport signature. The
// webhook carries no order|payment signature of its own, so the marker
// records the source for audit without forging one.
func WebhookSignatureMarker() string {
	return fmt.Sprintf("webhook_verified_%d", time.Now().UnixMilli())
}

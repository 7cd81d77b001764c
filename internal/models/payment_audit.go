package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentEventType represents the type of payment event
type PaymentEventType string

const (
	PaymentEventOrderCreated           PaymentEventType = "order_created"
	PaymentEventOrderReused            PaymentEventType = "order_reused"
	PaymentEventVerificationAttempt    PaymentEventType = "verification_attempt"
	PaymentEventWebhookReceived        PaymentEventType = "webhook_received"
	PaymentEventSuccess                PaymentEventType = "payment_success"
	PaymentEventFailed                 PaymentEventType = "payment_failed"
	PaymentEventReconciliationMismatch PaymentEventType = "reconciliation_mismatch"
	PaymentEventError                  PaymentEventType = "error"
)

// PaymentEventSource identifies where the event originated
type PaymentEventSource string

const (
	PaymentSourceClient          PaymentEventSource = "client"
	PaymentSourceRazorpayWebhook PaymentEventSource = "razorpay_webhook"
	PaymentSourceBackend         PaymentEventSource = "backend"
)

// PaymentAudit is an immutable audit log entry for payment events
type PaymentAudit struct {
	ID                uuid.UUID          `json:"id" db:"id"`
	EventType         PaymentEventType   `json:"event_type" db:"event_type"`
	EventSource       PaymentEventSource `json:"event_source" db:"event_source"`
	BookingID         *string            `json:"booking_id,omitempty" db:"booking_id"`
	RazorpayOrderID   *string            `json:"razorpay_order_id,omitempty" db:"razorpay_order_id"`
	RazorpayPaymentID *string            `json:"razorpay_payment_id,omitempty" db:"razorpay_payment_id"`
	Amount            *float64           `json:"amount,omitempty" db:"amount"`
	Currency          *string            `json:"currency,omitempty" db:"currency"`
	RawBody           *string            `json:"raw_body,omitempty" db:"raw_body"`
	ErrorMessage      *string            `json:"error_message,omitempty" db:"error_message"`
	IPAddress         *string            `json:"ip_address,omitempty" db:"ip_address"`
	UserAgent         *string            `json:"user_agent,omitempty" db:"user_agent"`
	DeviceType        *string            `json:"device_type,omitempty" db:"device_type"`
	CreatedAt         time.Time          `json:"created_at" db:"created_at"`
}

// NewPaymentAudit creates an audit entry with the required fields set
func NewPaymentAudit(eventType PaymentEventType, source PaymentEventSource) *PaymentAudit {
	return &PaymentAudit{
		ID:          uuid.New(),
		EventType:   eventType,
		EventSource: source,
		CreatedAt:   time.Now(),
	}
}

// SetBooking sets the booking id
func (pa *PaymentAudit) SetBooking(bookingID string) *PaymentAudit {
	pa.BookingID = &bookingID
	return pa
}

// SetOrder sets the gateway order id
func (pa *PaymentAudit) SetOrder(orderID string) *PaymentAudit {
	pa.RazorpayOrderID = &orderID
	return pa
}

// SetPayment sets the gateway payment id
func (pa *PaymentAudit) SetPayment(paymentID string) *PaymentAudit {
	pa.RazorpayPaymentID = &paymentID
	return pa
}

// SetAmount sets the amount and currency
func (pa *PaymentAudit) SetAmount(amount float64, currency string) *PaymentAudit {
	pa.Amount = &amount
	pa.Currency = &currency
	return pa
}

// SetRawBody attaches the raw request body for debugging
func (pa *PaymentAudit) SetRawBody(body string) *PaymentAudit {
	pa.RawBody = &body
	return pa
}

// SetError records an error message
func (pa *PaymentAudit) SetError(msg string) *PaymentAudit {
	pa.ErrorMessage = &msg
	return pa
}

// SetRequestMeta records caller IP and parsed user agent details
func (pa *PaymentAudit) SetRequestMeta(ip, userAgent, deviceType string) *PaymentAudit {
	if ip != "" {
		pa.IPAddress = &ip
	}
	if userAgent != "" {
		pa.UserAgent = &userAgent
	}
	if deviceType != "" {
		pa.DeviceType = &deviceType
	}
	return pa
}

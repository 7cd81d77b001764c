package services

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Ramanjali-g/endless-path-services/internal/config"
	"github.com/sirupsen/logrus"
)

// RazorpayService handles the outbound Razorpay Orders API and signature
// verification for both settlement paths. Signature checks never trust
// status flags embedded in a payload; the expected value is always
// recomputed from the secret and compared in constant time.
type RazorpayService struct {
	config *config.RazorpayConfig
	logger *logrus.Logger
	client *http.Client
}

// RazorpayOrderRequest is the body sent to the gateway's order endpoint.
// Amount is in minor units (paise).
type RazorpayOrderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

// RazorpayOrder is the gateway's order representation
type RazorpayOrder struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// NewRazorpayService creates a new Razorpay gateway service
func NewRazorpayService(cfg *config.RazorpayConfig, logger *logrus.Logger) *RazorpayService {
	return &RazorpayService{
		config: cfg,
		logger: logger,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// KeyID returns the publishable key handed to clients for checkout
func (s *RazorpayService) KeyID() string {
	return s.config.KeyID
}

// IsConfigured returns true if gateway credentials are present
func (s *RazorpayService) IsConfigured() bool {
	return s.config.IsConfigured()
}

// CreateOrder opens an order with the gateway. amountPaise is the charge
// in minor units; receipt and notes link the order back to the booking.
func (s *RazorpayService) CreateOrder(amountPaise int64, currency, receipt string, notes map[string]string) (*RazorpayOrder, error) {
	if !s.IsConfigured() {
		return nil, fmt.Errorf("%w: gateway credentials not configured", ErrGatewayError)
	}

	orderReq := RazorpayOrderRequest{
		Amount:   amountPaise,
		Currency: currency,
		Receipt:  receipt,
		Notes:    notes,
	}

	jsonBody, err := json.Marshal(orderReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal order request: %w", err)
	}

	url := fmt.Sprintf("%s/orders", s.config.APIBaseURL)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create order request: %w", err)
	}

	req.SetBasicAuth(s.config.KeyID, s.config.KeySecret)
	req.Header.Set("Content-Type", "application/json")

	s.logger.WithFields(logrus.Fields{
		"amount_paise": amountPaise,
		"currency":     currency,
		"receipt":      receipt,
	}).Info("Creating Razorpay order")

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.WithError(err).Error("Failed to call Razorpay orders endpoint")
		return nil, fmt.Errorf("%w: %v", ErrGatewayError, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read order response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		s.logger.WithFields(logrus.Fields{
			"status_code": resp.StatusCode,
			"response":    string(body),
		}).Error("Razorpay order creation rejected")
		return nil, fmt.Errorf("%w: gateway returned status %d", ErrGatewayError, resp.StatusCode)
	}

	var order RazorpayOrder
	if err := json.Unmarshal(body, &order); err != nil {
		return nil, fmt.Errorf("%w: failed to parse order response: %v", ErrGatewayError, err)
	}

	if order.ID == "" {
		return nil, fmt.Errorf("%w: order response missing id", ErrGatewayError)
	}

	s.logger.WithFields(logrus.Fields{
		"razorpay_order_id": order.ID,
		"amount_paise":      order.Amount,
	}).Info("Razorpay order created")

	return &order, nil
}

// ComputeSignature returns the hex HMAC-SHA256 of payload under secret
func ComputeSignature(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// verifySignature recomputes the HMAC of payload and compares it to the
// claimed signature in constant time
func verifySignature(secret string, payload []byte, claimed string) bool {
	expected := ComputeSignature(secret, payload)
	return hmac.Equal([]byte(expected), []byte(claimed))
}

// VerifyPaymentSignature checks the signature the gateway hands the client
// after checkout: HMAC-SHA256 over "order_id|payment_id" under the account
// key secret.
func (s *RazorpayService) VerifyPaymentSignature(orderID, paymentID, signature string) bool {
	payload := []byte(orderID + "|" + paymentID)
	return verifySignature(s.config.KeySecret, payload, signature)
}

// VerifyWebhookSignature checks a webhook delivery: HMAC-SHA256 over the
// exact raw request body, under the dedicated webhook secret when one is
// configured and the account key secret otherwise. The body must be the
// bytes as received, not a re-serialized object.
func (s *RazorpayService) VerifyWebhookSignature(rawBody []byte, signature string) bool {
	return verifySignature(s.config.ResolveWebhookSecret(), rawBody, signature)
}

package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/Ramanjali-g/endless-path-services/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const razorpaySignatureHeader = "X-Razorpay-Signature"

// razorpayWebhookEvent is the envelope Razorpay posts to the webhook endpoint
type razorpayWebhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID               string `json:"id"`
				OrderID          string `json:"order_id"`
				Method           string `json:"method"`
				ErrorDescription string `json:"error_description"`
			} `json:"entity"`
		} `json:"payment"`
		Order struct {
			Entity struct {
				ID string `json:"id"`
			} `json:"entity"`
		} `json:"order"`
	} `json:"payload"`
}

// WebhookHandler handles Razorpay webhook notifications
type WebhookHandler struct {
	paymentService  *services.PaymentService
	razorpayService *services.RazorpayService
	logger          *logrus.Logger
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(
	paymentService *services.PaymentService,
	razorpayService *services.RazorpayService,
	logger *logrus.Logger,
) *WebhookHandler {
	return &WebhookHandler{
		paymentService:  paymentService,
		razorpayService: razorpayService,
		logger:          logger,
	}
}

// HandleRazorpayWebhook processes payment lifecycle notifications from Razorpay.
//
// Only signature failures are rejected. Every error after the signature check
// is acknowledged with 200 so the gateway does not retry events we cannot act
// on anyway; reconciliation problems are recorded in the audit trail instead.
// @Summary Razorpay webhook
// @Description Receives payment.captured / payment.failed notifications
// @Tags Payments
// @Accept json
// @Produce json
// @Param X-Razorpay-Signature header string true "Webhook signature"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{} "Missing or invalid signature"
// @Router /payments/webhook [post]
func (h *WebhookHandler) HandleRazorpayWebhook(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		h.logger.WithError(err).Error("Failed to read webhook body")
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}

	signature := c.GetHeader(razorpaySignatureHeader)
	if signature == "" {
		h.logger.Warn("Webhook request missing signature header")
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing signature header"})
		return
	}

	if !h.razorpayService.VerifyWebhookSignature(body, signature) {
		h.logger.WithField("body_size", len(body)).Warn("Webhook signature verification failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature"})
		return
	}

	var event razorpayWebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		h.logger.WithError(err).Warn("Failed to parse webhook payload")
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	payment := event.Payload.Payment.Entity

	h.logger.WithFields(logrus.Fields{
		"event":      event.Event,
		"order_id":   payment.OrderID,
		"payment_id": payment.ID,
	}).Info("Razorpay webhook received")

	ctx := c.Request.Context()
	h.paymentService.RecordWebhookReceived(ctx, payment.OrderID, payment.ID, body)

	switch event.Event {
	case "payment.captured", "payment.authorized":
		if err := h.paymentService.CompleteFromWebhook(ctx, payment.OrderID, payment.ID); err != nil {
			h.logger.WithError(err).WithField("order_id", payment.OrderID).
				Error("Failed to complete payment from webhook")
		}
	case "payment.failed":
		reason := payment.ErrorDescription
		if reason == "" {
			reason = "Payment failed"
		}
		if err := h.paymentService.FailFromWebhook(ctx, payment.OrderID, reason); err != nil {
			h.logger.WithError(err).WithField("order_id", payment.OrderID).
				Error("Failed to record payment failure from webhook")
		}
	case "order.paid":
		h.logger.WithField("order_id", event.Payload.Order.Entity.ID).
			Info("Order paid event acknowledged")
	default:
		h.logger.WithField("event", event.Event).Info("Unhandled webhook event acknowledged")
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

package handlers

import (
	"errors"
	"net/http"

	"github.com/Ramanjali-g/endless-path-services/internal/middleware"
	"github.com/Ramanjali-g/endless-path-services/internal/models"
	"github.com/Ramanjali-g/endless-path-services/internal/services"
	"github.com/Ramanjali-g/endless-path-services/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// PaymentHandler handles payment order creation and verification endpoints
type PaymentHandler struct {
	paymentService *services.PaymentService
	logger         *logrus.Logger
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(paymentService *services.PaymentService, logger *logrus.Logger) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		logger:         logger,
	}
}

// CreateOrder creates a Razorpay order for a payable booking
// @Summary Create payment order
// @Description Creates a gateway order for the booking and returns checkout details
// @Tags Payments
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer token"
// @Param request body models.CreateOrderRequest true "Order request"
// @Success 200 {object} models.CreateOrderResponse
// @Failure 400 {object} map[string]interface{} "Validation error or booking not payable"
// @Failure 401 {object} map[string]interface{} "Unauthorized"
// @Failure 404 {object} map[string]interface{} "Booking not found"
// @Router /payments/order [post]
func (h *PaymentHandler) CreateOrder(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	var req models.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	resp, err := h.paymentService.CreateOrder(c.Request.Context(), userCtx.UserID.String(), req.BookingID, requestMeta(c))
	if err != nil {
		h.respondPaymentError(c, err, "Failed to create payment order")
		return
	}

	c.JSON(http.StatusOK, resp)
}

// VerifyPayment verifies a client-reported payment signature and settles the payment
// @Summary Verify payment
// @Description Verifies the Razorpay checkout signature and marks the payment completed
// @Tags Payments
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer token"
// @Param request body models.VerifyPaymentRequest true "Verification request"
// @Success 200 {object} models.VerifyPaymentResponse
// @Failure 400 {object} map[string]interface{} "Missing fields or signature mismatch"
// @Failure 401 {object} map[string]interface{} "Unauthorized"
// @Failure 403 {object} map[string]interface{} "Payment belongs to another user"
// @Failure 404 {object} map[string]interface{} "Payment not found"
// @Router /payments/verify [post]
func (h *PaymentHandler) VerifyPayment(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	var req models.VerifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	resp, err := h.paymentService.VerifyPayment(c.Request.Context(), userCtx.UserID.String(), &req, requestMeta(c))
	if err != nil {
		h.respondPaymentError(c, err, "Payment verification failed")
		return
	}

	c.JSON(http.StatusOK, resp)
}

// respondPaymentError maps service errors to HTTP responses. Signature
// mismatches and validation failures share one response shape so a caller
// cannot distinguish which check failed.
func (h *PaymentHandler) respondPaymentError(c *gin.Context, err error, logMsg string) {
	switch {
	case errors.Is(err, services.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
	case errors.Is(err, services.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrInvalidInput),
		errors.Is(err, services.ErrVerificationFailed),
		errors.Is(err, services.ErrInvalidState),
		errors.Is(err, services.ErrInvalidAmount):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.logger.WithError(err).Error(logMsg)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// requestMeta captures client metadata for the payment audit trail
func requestMeta(c *gin.Context) services.RequestMeta {
	rawUA := utils.GetUserAgent(c)
	device := utils.ParseUserAgent(rawUA)

	return services.RequestMeta{
		IPAddress:  utils.GetRealIP(c),
		UserAgent:  rawUA,
		DeviceType: device.DeviceType,
	}
}

package handlers

import (
	"errors"
	"net/http"

	"github.com/Ramanjali-g/endless-path-services/internal/middleware"
	"github.com/Ramanjali-g/endless-path-services/internal/models"
	"github.com/Ramanjali-g/endless-path-services/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// BookingHandler handles booking lifecycle endpoints
type BookingHandler struct {
	bookingService *services.BookingService
	logger         *logrus.Logger
}

// NewBookingHandler creates a new BookingHandler
func NewBookingHandler(bookingService *services.BookingService, logger *logrus.Logger) *BookingHandler {
	return &BookingHandler{
		bookingService: bookingService,
		logger:         logger,
	}
}

// CreateBooking creates a new booking for the authenticated customer
// @Summary Create booking
// @Tags Bookings
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer token"
// @Param request body models.CreateBookingRequest true "Booking request"
// @Success 201 {object} models.Booking
// @Failure 400 {object} map[string]interface{} "Validation error"
// @Failure 401 {object} map[string]interface{} "Unauthorized"
// @Router /bookings [post]
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	var req models.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	booking, err := h.bookingService.Create(userCtx.UserID.String(), &req)
	if err != nil {
		h.respondBookingError(c, err, "Failed to create booking")
		return
	}

	c.JSON(http.StatusCreated, booking)
}

// GetBooking returns one of the authenticated customer's bookings
// @Summary Get booking
// @Tags Bookings
// @Produce json
// @Param Authorization header string true "Bearer token"
// @Param id path string true "Booking ID"
// @Success 200 {object} models.Booking
// @Failure 404 {object} map[string]interface{} "Booking not found"
// @Router /bookings/{id} [get]
func (h *BookingHandler) GetBooking(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	booking, err := h.bookingService.GetForCustomer(userCtx.UserID.String(), c.Param("id"))
	if err != nil {
		h.respondBookingError(c, err, "Failed to fetch booking")
		return
	}

	c.JSON(http.StatusOK, booking)
}

// ListBookings returns the authenticated customer's bookings
// @Summary List bookings
// @Tags Bookings
// @Produce json
// @Param Authorization header string true "Bearer token"
// @Success 200 {object} map[string]interface{}
// @Router /bookings [get]
func (h *BookingHandler) ListBookings(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	bookings, err := h.bookingService.ListForCustomer(userCtx.UserID.String())
	if err != nil {
		h.respondBookingError(c, err, "Failed to list bookings")
		return
	}

	c.JSON(http.StatusOK, gin.H{"bookings": bookings, "count": len(bookings)})
}

// ListProviderBookings returns bookings assigned to the authenticated provider
// @Summary List provider bookings
// @Tags Bookings
// @Produce json
// @Param Authorization header string true "Bearer token"
// @Success 200 {object} map[string]interface{}
// @Router /provider/bookings [get]
func (h *BookingHandler) ListProviderBookings(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	bookings, err := h.bookingService.ListForProvider(userCtx.UserID.String())
	if err != nil {
		h.respondBookingError(c, err, "Failed to list provider bookings")
		return
	}

	c.JSON(http.StatusOK, gin.H{"bookings": bookings, "count": len(bookings)})
}

// CancelBooking cancels a pending booking owned by the customer
// @Summary Cancel booking
// @Tags Bookings
// @Produce json
// @Param Authorization header string true "Bearer token"
// @Param id path string true "Booking ID"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{} "Booking is not cancellable"
// @Router /bookings/{id}/cancel [post]
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	h.transition(c, "Failed to cancel booking", "Booking cancelled", func(userID, bookingID string) error {
		return h.bookingService.Cancel(userID, bookingID)
	})
}

// AcceptBooking assigns the provider to a pending booking
// @Summary Accept booking
// @Tags Bookings
// @Produce json
// @Param Authorization header string true "Bearer token"
// @Param id path string true "Booking ID"
// @Success 200 {object} map[string]interface{}
// @Router /provider/bookings/{id}/accept [post]
func (h *BookingHandler) AcceptBooking(c *gin.Context) {
	h.transition(c, "Failed to accept booking", "Booking accepted", func(userID, bookingID string) error {
		return h.bookingService.Accept(userID, bookingID)
	})
}

// RejectBooking rejects a pending booking
// @Summary Reject booking
// @Tags Bookings
// @Produce json
// @Param Authorization header string true "Bearer token"
// @Param id path string true "Booking ID"
// @Success 200 {object} map[string]interface{}
// @Router /provider/bookings/{id}/reject [post]
func (h *BookingHandler) RejectBooking(c *gin.Context) {
	h.transition(c, "Failed to reject booking", "Booking rejected", func(userID, bookingID string) error {
		return h.bookingService.Reject(userID, bookingID)
	})
}

// StartBooking moves an accepted booking to in_progress
// @Summary Start booking
// @Tags Bookings
// @Produce json
// @Param Authorization header string true "Bearer token"
// @Param id path string true "Booking ID"
// @Success 200 {object} map[string]interface{}
// @Router /provider/bookings/{id}/start [post]
func (h *BookingHandler) StartBooking(c *gin.Context) {
	h.transition(c, "Failed to start booking", "Booking started", func(userID, bookingID string) error {
		return h.bookingService.Start(userID, bookingID)
	})
}

// CompleteBooking completes an in-progress booking with the final price
// @Summary Complete booking
// @Tags Bookings
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer token"
// @Param id path string true "Booking ID"
// @Param request body models.CompleteBookingRequest true "Completion request"
// @Success 200 {object} map[string]interface{}
// @Router /provider/bookings/{id}/complete [post]
func (h *BookingHandler) CompleteBooking(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	var req models.CompleteBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	if err := h.bookingService.Complete(userCtx.UserID.String(), c.Param("id"), req.FinalPrice); err != nil {
		h.respondBookingError(c, err, "Failed to complete booking")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Booking completed"})
}

// transition runs a status transition shared by the simple lifecycle endpoints
func (h *BookingHandler) transition(c *gin.Context, logMsg, okMsg string, fn func(userID, bookingID string) error) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	if err := fn(userCtx.UserID.String(), c.Param("id")); err != nil {
		h.respondBookingError(c, err, logMsg)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": okMsg})
}

func (h *BookingHandler) respondBookingError(c *gin.Context, err error, logMsg string) {
	switch {
	case errors.Is(err, services.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
	case errors.Is(err, services.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrInvalidInput),
		errors.Is(err, services.ErrInvalidState),
		errors.Is(err, services.ErrInvalidAmount),
		errors.Is(err, models.ErrInvalidTransition):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.logger.WithError(err).Error(logMsg)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

package services

import (
	"fmt"

	"github.com/Ramanjali-g/endless-path-services/internal/database"
	"github.com/Ramanjali-g/endless-path-services/internal/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// BookingService owns the booking lifecycle. Customers create and cancel;
// the assigned provider moves a booking through accepted, in_progress and
// completed in strict sequence. The payment core consumes the resulting
// statuses but never drives them.
type BookingService struct {
	bookingRepo *database.BookingRepository
	logger      *logrus.Logger
}

// NewBookingService creates a new BookingService
func NewBookingService(bookingRepo *database.BookingRepository, logger *logrus.Logger) *BookingService {
	return &BookingService{
		bookingRepo: bookingRepo,
		logger:      logger,
	}
}

// Create creates a pending booking for the customer
func (s *BookingService) Create(customerID string, req *models.CreateBookingRequest) (*models.Booking, error) {
	if customerID == "" {
		return nil, ErrUnauthenticated
	}

	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	booking := &models.Booking{
		CustomerID:     customerID,
		ServiceID:      req.ServiceID,
		ScheduledDate:  req.ScheduledDate,
		ScheduledTime:  req.ScheduledTime,
		Address:        req.Address,
		City:           req.City,
		Pincode:        req.Pincode,
		Notes:          req.Notes,
		EstimatedPrice: req.EstimatedPrice,
		Status:         models.BookingStatusPending,
	}

	if err := s.bookingRepo.Create(booking); err != nil {
		s.logger.WithError(err).Error("Failed to create booking")
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id":     booking.ID,
		"booking_number": booking.BookingNumber,
		"customer_id":    customerID,
	}).Info("Booking created")

	return booking, nil
}

// GetForCustomer returns a booking visible to its owning customer
func (s *BookingService) GetForCustomer(customerID, bookingID string) (*models.Booking, error) {
	if _, err := uuid.Parse(bookingID); err != nil {
		return nil, fmt.Errorf("%w: invalid booking_id format", ErrInvalidInput)
	}

	booking, err := s.bookingRepo.GetByIDForCustomer(bookingID, customerID)
	if err != nil {
		return nil, fmt.Errorf("%w: booking", ErrNotFound)
	}
	return booking, nil
}

// ListForCustomer returns the customer's bookings, newest first
func (s *BookingService) ListForCustomer(customerID string) ([]models.Booking, error) {
	return s.bookingRepo.GetByCustomerID(customerID)
}

// ListForProvider returns the provider's assigned bookings, newest first
func (s *BookingService) ListForProvider(providerID string) ([]models.Booking, error) {
	return s.bookingRepo.GetByProviderID(providerID)
}

// Cancel cancels a booking. Only the owning customer may cancel, and only
// while the booking is still pending.
func (s *BookingService) Cancel(customerID, bookingID string) error {
	booking, err := s.bookingRepo.GetByIDForCustomer(bookingID, customerID)
	if err != nil {
		return fmt.Errorf("%w: booking", ErrNotFound)
	}

	if !booking.CanTransitionTo(models.BookingStatusCancelled) || booking.Status != models.BookingStatusPending {
		return fmt.Errorf("%w: booking cannot be cancelled from status %s", ErrInvalidState, booking.Status)
	}

	if err := s.bookingRepo.UpdateStatus(bookingID, booking.Status, models.BookingStatusCancelled); err != nil {
		return fmt.Errorf("%w: booking cannot be cancelled", ErrInvalidState)
	}

	s.logger.WithField("booking_id", bookingID).Info("Booking cancelled by customer")
	return nil
}

// Accept assigns the provider to a pending booking and accepts it
func (s *BookingService) Accept(providerID, bookingID string) error {
	booking, err := s.getForTransition(bookingID)
	if err != nil {
		return err
	}

	if !booking.CanTransitionTo(models.BookingStatusAccepted) {
		return fmt.Errorf("%w: booking cannot be accepted from status %s", ErrInvalidState, booking.Status)
	}

	if err := s.bookingRepo.AssignProvider(bookingID, providerID); err != nil {
		return fmt.Errorf("%w: booking cannot be accepted", ErrInvalidState)
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id":  bookingID,
		"provider_id": providerID,
	}).Info("Booking accepted")
	return nil
}

// Reject rejects a pending booking
func (s *BookingService) Reject(providerID, bookingID string) error {
	booking, err := s.getForTransition(bookingID)
	if err != nil {
		return err
	}

	if !booking.CanTransitionTo(models.BookingStatusRejected) {
		return fmt.Errorf("%w: booking cannot be rejected from status %s", ErrInvalidState, booking.Status)
	}

	if err := s.bookingRepo.UpdateStatus(bookingID, booking.Status, models.BookingStatusRejected); err != nil {
		return fmt.Errorf("%w: booking cannot be rejected", ErrInvalidState)
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id":  bookingID,
		"provider_id": providerID,
	}).Info("Booking rejected")
	return nil
}

// Start moves an accepted booking to in_progress. Only the assigned
// provider may start it; the strict sequence means a booking cannot jump
// from pending to in_progress.
func (s *BookingService) Start(providerID, bookingID string) error {
	booking, err := s.getAssigned(providerID, bookingID)
	if err != nil {
		return err
	}

	if !booking.CanTransitionTo(models.BookingStatusInProgress) {
		return fmt.Errorf("%w: booking cannot be started from status %s", ErrInvalidState, booking.Status)
	}

	if err := s.bookingRepo.UpdateStatus(bookingID, booking.Status, models.BookingStatusInProgress); err != nil {
		return fmt.Errorf("%w: booking cannot be started", ErrInvalidState)
	}

	s.logger.WithField("booking_id", bookingID).Info("Booking started")
	return nil
}

// Complete finishes an in_progress booking and stamps the final price.
// This is the only transition that writes final_price.
func (s *BookingService) Complete(providerID, bookingID string, finalPrice float64) error {
	if finalPrice <= 0 {
		return fmt.Errorf("%w: final price must be positive", ErrInvalidAmount)
	}

	booking, err := s.getAssigned(providerID, bookingID)
	if err != nil {
		return err
	}

	if !booking.CanTransitionTo(models.BookingStatusCompleted) {
		return fmt.Errorf("%w: booking cannot be completed from status %s", ErrInvalidState, booking.Status)
	}

	if err := s.bookingRepo.CompleteWithFinalPrice(bookingID, finalPrice); err != nil {
		return fmt.Errorf("%w: booking cannot be completed", ErrInvalidState)
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id":  bookingID,
		"final_price": finalPrice,
	}).Info("Booking completed")
	return nil
}

// getForTransition loads a booking for provider transitions that happen
// before assignment (accept, reject)
func (s *BookingService) getForTransition(bookingID string) (*models.Booking, error) {
	if _, err := uuid.Parse(bookingID); err != nil {
		return nil, fmt.Errorf("%w: invalid booking_id format", ErrInvalidInput)
	}

	booking, err := s.bookingRepo.GetByID(bookingID)
	if err != nil {
		return nil, fmt.Errorf("%w: booking", ErrNotFound)
	}
	return booking, nil
}

// getAssigned loads a booking and enforces that the caller is its
// assigned provider
func (s *BookingService) getAssigned(providerID, bookingID string) (*models.Booking, error) {
	booking, err := s.getForTransition(bookingID)
	if err != nil {
		return nil, err
	}

	if booking.ProviderID == nil || *booking.ProviderID != providerID {
		return nil, ErrForbidden
	}
	return booking, nil
}

package models

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// BookingStatus represents the lifecycle status of a booking
type BookingStatus string

const (
	BookingStatusPending    BookingStatus = "pending"
	BookingStatusAccepted   BookingStatus = "accepted"
	BookingStatusInProgress BookingStatus = "in_progress"
	BookingStatusCompleted  BookingStatus = "completed"
	BookingStatusCancelled  BookingStatus = "cancelled"
	BookingStatusRejected   BookingStatus = "rejected"
)

// ErrInvalidTransition is returned when a booking status change is not
// permitted from the current status.
var ErrInvalidTransition = errors.New("invalid booking status transition")

// bookingTransitions defines the allowed status transitions.
// Terminal statuses (completed, cancelled, rejected) have no outgoing edges.
var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingStatusPending:    {BookingStatusAccepted, BookingStatusRejected, BookingStatusCancelled},
	BookingStatusAccepted:   {BookingStatusInProgress, BookingStatusCancelled},
	BookingStatusInProgress: {BookingStatusCompleted},
}

// Booking represents a service booking made by a customer
type Booking struct {
	ID             string        `json:"id" db:"id"`
	BookingNumber  string        `json:"booking_number" db:"booking_number"`
	CustomerID     string        `json:"customer_id" db:"customer_id"`
	ProviderID     *string       `json:"provider_id,omitempty" db:"provider_id"`
	ServiceID      string        `json:"service_id" db:"service_id"`
	ScheduledDate  string        `json:"scheduled_date" db:"scheduled_date"`
	ScheduledTime  *string       `json:"scheduled_time,omitempty" db:"scheduled_time"`
	Address        string        `json:"address" db:"address"`
	City           *string       `json:"city,omitempty" db:"city"`
	Pincode        *string       `json:"pincode,omitempty" db:"pincode"`
	Notes          *string       `json:"notes,omitempty" db:"notes"`
	EstimatedPrice *float64      `json:"estimated_price,omitempty" db:"estimated_price"`
	FinalPrice     *float64      `json:"final_price,omitempty" db:"final_price"`
	Status         BookingStatus `json:"status" db:"status"`
	CreatedAt      time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at" db:"updated_at"`
}

// CreateBookingRequest represents the request to create a booking
type CreateBookingRequest struct {
	ServiceID      string   `json:"service_id" binding:"required"`
	ScheduledDate  string   `json:"scheduled_date" binding:"required"`
	ScheduledTime  *string  `json:"scheduled_time,omitempty"`
	Address        string   `json:"address" binding:"required"`
	City           *string  `json:"city,omitempty"`
	Pincode        *string  `json:"pincode,omitempty"`
	Notes          *string  `json:"notes,omitempty"`
	EstimatedPrice *float64 `json:"estimated_price,omitempty"`
}

// CompleteBookingRequest carries the final price the provider settles on
type CompleteBookingRequest struct {
	FinalPrice float64 `json:"final_price" binding:"required"`
}

var (
	pincodeRegex       = regexp.MustCompile(`^[0-9]{6}$`)
	scheduledTimeRegex = regexp.MustCompile(`^\d{2}:\d{2}$`)
)

// Validate validates the create booking request
func (r *CreateBookingRequest) Validate() error {
	if _, err := uuid.Parse(r.ServiceID); err != nil {
		return errors.New("invalid service_id")
	}

	if _, err := time.Parse("2006-01-02", r.ScheduledDate); err != nil {
		return errors.New("scheduled_date must be in YYYY-MM-DD format")
	}

	if r.ScheduledTime != nil && *r.ScheduledTime != "" {
		if !scheduledTimeRegex.MatchString(*r.ScheduledTime) {
			return errors.New("scheduled_time must be in HH:MM format")
		}
	}

	r.Address = strings.TrimSpace(r.Address)
	if len(r.Address) < 10 {
		return errors.New("address must be at least 10 characters")
	}
	if len(r.Address) > 500 {
		return errors.New("address must be less than 500 characters")
	}

	if r.City != nil && len(strings.TrimSpace(*r.City)) > 100 {
		return errors.New("city must be less than 100 characters")
	}

	if r.Pincode != nil && *r.Pincode != "" {
		if !pincodeRegex.MatchString(*r.Pincode) {
			return errors.New("pincode must be exactly 6 digits")
		}
	}

	if r.Notes != nil && len(strings.TrimSpace(*r.Notes)) > 1000 {
		return errors.New("notes must be less than 1000 characters")
	}

	if r.EstimatedPrice != nil && *r.EstimatedPrice < 0 {
		return errors.New("estimated_price must not be negative")
	}

	return nil
}

// CanTransitionTo reports whether the booking may move to the target status
func (b *Booking) CanTransitionTo(target BookingStatus) bool {
	for _, allowed := range bookingTransitions[b.Status] {
		if allowed == target {
			return true
		}
	}
	return false
}

// TransitionTo moves the booking to the target status, or returns
// ErrInvalidTransition leaving the booking unchanged.
func (b *Booking) TransitionTo(target BookingStatus) error {
	if !b.CanTransitionTo(target) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, b.Status, target)
	}
	b.Status = target
	b.UpdatedAt = time.Now()
	return nil
}

// IsTerminal reports whether the booking is in a terminal status
func (b *Booking) IsTerminal() bool {
	switch b.Status {
	case BookingStatusCompleted, BookingStatusCancelled, BookingStatusRejected:
		return true
	}
	return false
}

// IsPayable reports whether a payment order may be created for the booking
func (b *Booking) IsPayable() bool {
	return b.Status == BookingStatusPending || b.Status == BookingStatusAccepted
}

// GenerateBookingNumber builds a human-readable booking number.
// Unique per booking, immutable after creation.
func GenerateBookingNumber() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", ""))[:8]
	return fmt.Sprintf("BKG-%s-%s", time.Now().Format("20060102"), suffix)
}

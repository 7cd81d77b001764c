package models

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBookingTransitions(t *testing.T) {
	cases := []struct {
		name    string
		from    BookingStatus
		to      BookingStatus
		allowed bool
	}{
		{"Pending To Accepted", BookingStatusPending, BookingStatusAccepted, true},
		{"Pending To Rejected", BookingStatusPending, BookingStatusRejected, true},
		{"Pending To Cancelled", BookingStatusPending, BookingStatusCancelled, true},
		{"Pending To InProgress", BookingStatusPending, BookingStatusInProgress, false},
		{"Pending To Completed", BookingStatusPending, BookingStatusCompleted, false},
		{"Accepted To InProgress", BookingStatusAccepted, BookingStatusInProgress, true},
		{"Accepted To Cancelled", BookingStatusAccepted, BookingStatusCancelled, true},
		{"Accepted To Completed", BookingStatusAccepted, BookingStatusCompleted, false},
		{"Accepted To Pending", BookingStatusAccepted, BookingStatusPending, false},
		{"InProgress To Completed", BookingStatusInProgress, BookingStatusCompleted, true},
		{"InProgress To Cancelled", BookingStatusInProgress, BookingStatusCancelled, false},
		{"Completed Is Terminal", BookingStatusCompleted, BookingStatusPending, false},
		{"Cancelled Is Terminal", BookingStatusCancelled, BookingStatusAccepted, false},
		{"Rejected Is Terminal", BookingStatusRejected, BookingStatusAccepted, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			booking := &Booking{Status: tc.from}
			assert.Equal(t, tc.allowed, booking.CanTransitionTo(tc.to))

			err := booking.TransitionTo(tc.to)
			if tc.allowed {
				require.NoError(t, err)
				assert.Equal(t, tc.to, booking.Status)
			} else {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidTransition)
				assert.Equal(t, tc.from, booking.Status, "failed transition must not mutate status")
			}
		})
	}
}

func TestBookingIsTerminal(t *testing.T) {
	terminal := []BookingStatus{BookingStatusCompleted, BookingStatusCancelled, BookingStatusRejected}
	for _, status := range terminal {
		booking := &Booking{Status: status}
		assert.True(t, booking.IsTerminal(), "expected %s to be terminal", status)
	}

	active := []BookingStatus{BookingStatusPending, BookingStatusAccepted, BookingStatusInProgress}
	for _, status := range active {
		booking := &Booking{Status: status}
		assert.False(t, booking.IsTerminal(), "expected %s to be non-terminal", status)
	}
}

func TestBookingIsPayable(t *testing.T) {
	assert.True(t, (&Booking{Status: BookingStatusPending}).IsPayable())
	assert.True(t, (&Booking{Status: BookingStatusAccepted}).IsPayable())
	assert.False(t, (&Booking{Status: BookingStatusInProgress}).IsPayable())
	assert.False(t, (&Booking{Status: BookingStatusCompleted}).IsPayable())
	assert.False(t, (&Booking{Status: BookingStatusCancelled}).IsPayable())
	assert.False(t, (&Booking{Status: BookingStatusRejected}).IsPayable())
}

func validCreateBookingRequest() *CreateBookingRequest {
	return &CreateBookingRequest{
		ServiceID:     uuid.New().String(),
		ScheduledDate: "2026-09-15",
		Address:       "221B Baker Street, Marylebone",
	}
}

func TestCreateBookingRequestValidate(t *testing.T) {
	t.Run("Valid Minimal Request", func(t *testing.T) {
		req := validCreateBookingRequest()
		assert.NoError(t, req.Validate())
	})

	t.Run("Valid Full Request", func(t *testing.T) {
		req := validCreateBookingRequest()
		scheduledTime := "14:30"
		city := "Mumbai"
		pincode := "400001"
		notes := "Ring the bell twice"
		price := 499.0
		req.ScheduledTime = &scheduledTime
		req.City = &city
		req.Pincode = &pincode
		req.Notes = &notes
		req.EstimatedPrice = &price

		assert.NoError(t, req.Validate())
	})

	t.Run("Invalid Service ID", func(t *testing.T) {
		req := validCreateBookingRequest()
		req.ServiceID = "not-a-uuid"
		assert.Error(t, req.Validate())
	})

	t.Run("Invalid Date Format", func(t *testing.T) {
		req := validCreateBookingRequest()
		req.ScheduledDate = "15/09/2026"
		assert.Error(t, req.Validate())
	})

	t.Run("Invalid Time Format", func(t *testing.T) {
		req := validCreateBookingRequest()
		badTime := "2:30 PM"
		req.ScheduledTime = &badTime
		assert.Error(t, req.Validate())
	})

	t.Run("Address Too Short", func(t *testing.T) {
		req := validCreateBookingRequest()
		req.Address = "short"
		assert.Error(t, req.Validate())
	})

	t.Run("Address Trimmed Before Length Check", func(t *testing.T) {
		req := validCreateBookingRequest()
		req.Address = "   abc    "
		assert.Error(t, req.Validate())
	})

	t.Run("Address Too Long", func(t *testing.T) {
		req := validCreateBookingRequest()
		req.Address = strings.Repeat("a", 501)
		assert.Error(t, req.Validate())
	})

	t.Run("Invalid Pincode", func(t *testing.T) {
		req := validCreateBookingRequest()
		pincode := "4000"
		req.Pincode = &pincode
		assert.Error(t, req.Validate())

		pincode = "40000a"
		assert.Error(t, req.Validate())
	})

	t.Run("Negative Estimated Price", func(t *testing.T) {
		req := validCreateBookingRequest()
		price := -10.0
		req.EstimatedPrice = &price
		assert.Error(t, req.Validate())
	})
}

func TestGenerateBookingNumber(t *testing.T) {
	number := GenerateBookingNumber()

	parts := strings.Split(number, "-")
	require.Len(t, parts, 3)
	assert.Equal(t, "BKG", parts[0])
	assert.Len(t, parts[1], 8)
	assert.Len(t, parts[2], 8)
	assert.Equal(t, strings.ToUpper(parts[2]), parts[2])

	assert.NotEqual(t, number, GenerateBookingNumber())
}

package database

import (
	"database/sql"
	"fmt"

	"github.com/Ramanjali-g/endless-path-services/internal/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// BookingRepository handles database operations for the bookings table
type BookingRepository struct {
	db DB
}

// NewBookingRepository creates a new BookingRepository
func NewBookingRepository(db DB) *BookingRepository {
	return &BookingRepository{db: db}
}

const bookingColumns = `id, booking_number, customer_id, provider_id, service_id,
	   scheduled_date, scheduled_time, address, city, pincode, notes,
	   estimated_price, final_price, status, created_at, updated_at`

// Create inserts a new booking. Bookings are never hard-deleted;
// cancellation and rejection are terminal statuses, not removals.
func (r *BookingRepository) Create(booking *models.Booking) error {
	query := `
		INSERT INTO bookings (
			id, booking_number, customer_id, provider_id, service_id,
			scheduled_date, scheduled_time, address, city, pincode, notes,
			estimated_price, status
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
		)
		RETURNING created_at, updated_at
	`

	if booking.ID == "" {
		booking.ID = uuid.New().String()
	}
	if booking.BookingNumber == "" {
		booking.BookingNumber = models.GenerateBookingNumber()
	}
	if booking.Status == "" {
		booking.Status = models.BookingStatusPending
	}

	err := r.db.QueryRow(
		query,
		booking.ID, booking.BookingNumber, booking.CustomerID, booking.ProviderID,
		booking.ServiceID, booking.ScheduledDate, booking.ScheduledTime,
		booking.Address, booking.City, booking.Pincode, booking.Notes,
		booking.EstimatedPrice, booking.Status,
	).Scan(&booking.CreatedAt, &booking.UpdatedAt)

	return err
}

// GetByID retrieves a booking by ID
func (r *BookingRepository) GetByID(bookingID string) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	return r.scanBooking(r.db.QueryRow(query, bookingID))
}

// GetByIDForCustomer retrieves a booking scoped to its owning customer.
// A booking owned by someone else scans as sql.ErrNoRows, so callers
// cannot distinguish "not yours" from "does not exist".
func (r *BookingRepository) GetByIDForCustomer(bookingID, customerID string) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1 AND customer_id = $2`
	return r.scanBooking(r.db.QueryRow(query, bookingID, customerID))
}

// GetByCustomerID retrieves all bookings for a customer
func (r *BookingRepository) GetByCustomerID(customerID string) ([]models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE customer_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.Query(query, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanBookings(rows)
}

// GetByProviderID retrieves all bookings assigned to a provider
func (r *BookingRepository) GetByProviderID(providerID string) ([]models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE provider_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.Query(query, providerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanBookings(rows)
}

// GetPendingByServiceIDs retrieves unassigned pending bookings for the
// given services, newest first. Used by providers browsing open requests.
func (r *BookingRepository) GetPendingByServiceIDs(serviceIDs []string) ([]models.Booking, error) {
	if len(serviceIDs) == 0 {
		return []models.Booking{}, nil
	}

	query := `SELECT ` + bookingColumns + `
		FROM bookings
		WHERE service_id = ANY($1)
		  AND status = 'pending'
		  AND provider_id IS NULL
		ORDER BY created_at DESC`

	rows, err := r.db.Query(query, pq.Array(serviceIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanBookings(rows)
}

// GetServiceName returns the display name of a booking's service
func (r *BookingRepository) GetServiceName(bookingID string) (string, error) {
	query := `
		SELECT s.name
		FROM bookings b
		JOIN services s ON s.id = b.service_id
		WHERE b.id = $1
	`

	var name string
	if err := r.db.QueryRow(query, bookingID).Scan(&name); err != nil {
		return "", err
	}
	return name, nil
}

// UpdateStatus transitions a booking from one status to another. The
// previous status is part of the predicate so a stale caller cannot
// overwrite a transition that already happened.
func (r *BookingRepository) UpdateStatus(bookingID string, from, to models.BookingStatus) error {
	query := `
		UPDATE bookings
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
	`

	result, err := r.db.Exec(query, bookingID, from, to)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return fmt.Errorf("booking not in expected status")
	}

	return nil
}

// AssignProvider sets the provider on a pending booking while accepting it
func (r *BookingRepository) AssignProvider(bookingID, providerID string) error {
	query := `
		UPDATE bookings
		SET provider_id = $2, status = 'accepted', updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
	`

	result, err := r.db.Exec(query, bookingID, providerID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return fmt.Errorf("booking not in expected status")
	}

	return nil
}

// CompleteWithFinalPrice marks an in-progress booking completed and stamps
// the final price. final_price is only ever written here.
func (r *BookingRepository) CompleteWithFinalPrice(bookingID string, finalPrice float64) error {
	query := `
		UPDATE bookings
		SET status = 'completed', final_price = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'in_progress'
	`

	result, err := r.db.Exec(query, bookingID, finalPrice)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return fmt.Errorf("booking not in expected status")
	}

	return nil
}

// scanBooking scans a single booking
func (r *BookingRepository) scanBooking(row scanner) (*models.Booking, error) {
	booking := &models.Booking{}
	var providerID sql.NullString
	var scheduledTime sql.NullString
	var city sql.NullString
	var pincode sql.NullString
	var notes sql.NullString
	var estimatedPrice sql.NullFloat64
	var finalPrice sql.NullFloat64

	err := row.Scan(
		&booking.ID, &booking.BookingNumber, &booking.CustomerID, &providerID,
		&booking.ServiceID, &booking.ScheduledDate, &scheduledTime,
		&booking.Address, &city, &pincode, &notes,
		&estimatedPrice, &finalPrice, &booking.Status,
		&booking.CreatedAt, &booking.UpdatedAt,
	)

	if err != nil {
		return nil, err
	}

	if providerID.Valid {
		booking.ProviderID = &providerID.String
	}
	if scheduledTime.Valid {
		booking.ScheduledTime = &scheduledTime.String
	}
	if city.Valid {
		booking.City = &city.String
	}
	if pincode.Valid {
		booking.Pincode = &pincode.String
	}
	if notes.Valid {
		booking.Notes = &notes.String
	}
	if estimatedPrice.Valid {
		booking.EstimatedPrice = &estimatedPrice.Float64
	}
	if finalPrice.Valid {
		booking.FinalPrice = &finalPrice.Float64
	}

	return booking, nil
}

// scanBookings scans multiple bookings from rows
func (r *BookingRepository) scanBookings(rows *sql.Rows) ([]models.Booking, error) {
	bookings := []models.Booking{}

	for rows.Next() {
		booking, err := r.scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *booking)
	}

	return bookings, rows.Err()
}

package services

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/Ramanjali-g/endless-path-services/internal/config"
	"github.com/Ramanjali-g/endless-path-services/internal/database"
	"github.com/Ramanjali-g/endless-path-services/internal/models"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var paymentTestColumns = []string{
	"id", "booking_id", "user_id", "amount", "currency", "status",
	"razorpay_order_id", "razorpay_payment_id", "razorpay_signature",
	"invoice_number", "payment_method", "error_reason",
	"created_at", "updated_at",
}

type paymentServiceFixture struct {
	service     *PaymentService
	paymentMock sqlmock.Sqlmock
	bookingMock sqlmock.Sqlmock
	userID      string
	bookingID   string
}

func newPaymentServiceFixture(t *testing.T) *paymentServiceFixture {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	paymentDB, paymentMock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { paymentDB.Close() })

	bookingDB, bookingMock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { bookingDB.Close() })

	sqlxDB := sqlx.NewDb(paymentDB, "postgres")
	paymentRepo := database.NewPaymentRepository(sqlxDB, logger)
	auditRepo := database.NewPaymentAuditRepository(sqlxDB, logger)
	bookingRepo := database.NewBookingRepository(&mockDatabase{db: bookingDB})

	razorpay := NewRazorpayService(&config.RazorpayConfig{
		KeyID:     "rzp_test_key",
		KeySecret: "test_secret",
	}, logger)

	return &paymentServiceFixture{
		service:     NewPaymentService(bookingRepo, paymentRepo, auditRepo, razorpay, logger),
		paymentMock: paymentMock,
		bookingMock: bookingMock,
		userID:      uuid.New().String(),
		bookingID:   uuid.New().String(),
	}
}

func (f *paymentServiceFixture) paymentRow(status models.PaymentStatus, orderID string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(paymentTestColumns).AddRow(
		"payment-id", f.bookingID, f.userID, 499.0, "INR", status,
		orderID, nil, nil,
		nil, nil, nil,
		now, now,
	)
}

func (f *paymentServiceFixture) expectAudit() {
	f.paymentMock.ExpectExec(`INSERT INTO payment_audits`).
		WillReturnResult(sqlmock.NewResult(0, 1))
}

func TestVerifyPayment(t *testing.T) {
	ctx := context.Background()

	validRequest := func() *models.VerifyPaymentRequest {
		return &models.VerifyPaymentRequest{
			RazorpayOrderID:   "order_verify",
			RazorpayPaymentID: "pay_verify",
			RazorpaySignature: ComputeSignature("test_secret", []byte("order_verify|pay_verify")),
		}
	}

	t.Run("Unauthenticated", func(t *testing.T) {
		f := newPaymentServiceFixture(t)

		resp, err := f.service.VerifyPayment(ctx, "", validRequest(), RequestMeta{})
		assert.Nil(t, resp)
		assert.ErrorIs(t, err, ErrUnauthenticated)
	})

	t.Run("Missing Fields", func(t *testing.T) {
		f := newPaymentServiceFixture(t)

		req := validRequest()
		req.RazorpaySignature = ""

		resp, err := f.service.VerifyPayment(ctx, f.userID, req, RequestMeta{})
		assert.Nil(t, resp)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("Signature Mismatch Rejected Before Any Read", func(t *testing.T) {
		f := newPaymentServiceFixture(t)

		req := validRequest()
		req.RazorpaySignature = "deadbeef"

		f.expectAudit()

		resp, err := f.service.VerifyPayment(ctx, f.userID, req, RequestMeta{})
		assert.Nil(t, resp)
		assert.ErrorIs(t, err, ErrVerificationFailed)

		// only the audit insert may have touched the database
		assert.NoError(t, f.paymentMock.ExpectationsWereMet())
	})

	t.Run("Payment Not Found", func(t *testing.T) {
		f := newPaymentServiceFixture(t)

		f.expectAudit()
		f.paymentMock.ExpectQuery(`SELECT (.+) FROM payments`).
			WillReturnRows(sqlmock.NewRows(paymentTestColumns))

		resp, err := f.service.VerifyPayment(ctx, f.userID, validRequest(), RequestMeta{})
		assert.Nil(t, resp)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("Owned By Another User", func(t *testing.T) {
		f := newPaymentServiceFixture(t)

		f.expectAudit()
		f.paymentMock.ExpectQuery(`SELECT (.+) FROM payments`).
			WillReturnRows(f.paymentRow(models.PaymentStatusPending, "order_verify"))

		resp, err := f.service.VerifyPayment(ctx, uuid.New().String(), validRequest(), RequestMeta{})
		assert.Nil(t, resp)
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("Success", func(t *testing.T) {
		f := newPaymentServiceFixture(t)

		f.expectAudit()
		f.paymentMock.ExpectQuery(`SELECT (.+) FROM payments`).
			WillReturnRows(f.paymentRow(models.PaymentStatusPending, "order_verify"))
		f.paymentMock.ExpectExec(`UPDATE payments`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		f.expectAudit()

		resp, err := f.service.VerifyPayment(ctx, f.userID, validRequest(), RequestMeta{})
		require.NoError(t, err)
		assert.True(t, resp.Success)
		assert.Equal(t, "Payment verified successfully", resp.Message)
		assert.Equal(t, f.bookingID, resp.BookingID)

		assert.NoError(t, f.paymentMock.ExpectationsWereMet())
	})

	t.Run("Already Completed Is Idempotent", func(t *testing.T) {
		f := newPaymentServiceFixture(t)

		f.expectAudit()
		f.paymentMock.ExpectQuery(`SELECT (.+) FROM payments`).
			WillReturnRows(f.paymentRow(models.PaymentStatusCompleted, "order_verify"))

		resp, err := f.service.VerifyPayment(ctx, f.userID, validRequest(), RequestMeta{})
		require.NoError(t, err)
		assert.True(t, resp.Success)
		assert.Equal(t, "Payment already verified", resp.Message)

		// no update must be attempted against a completed payment
		assert.NoError(t, f.paymentMock.ExpectationsWereMet())
	})

	t.Run("Lost Race To Webhook Completion", func(t *testing.T) {
		f := newPaymentServiceFixture(t)

		f.expectAudit()
		f.paymentMock.ExpectQuery(`SELECT (.+) FROM payments`).
			WillReturnRows(f.paymentRow(models.PaymentStatusPending, "order_verify"))
		f.paymentMock.ExpectExec(`UPDATE payments`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		f.paymentMock.ExpectQuery(`SELECT (.+) FROM payments`).
			WillReturnRows(f.paymentRow(models.PaymentStatusCompleted, "order_verify"))

		resp, err := f.service.VerifyPayment(ctx, f.userID, validRequest(), RequestMeta{})
		require.NoError(t, err)
		assert.True(t, resp.Success)
		assert.Equal(t, "Payment already verified", resp.Message)
	})

	t.Run("Valid Signature But Payment Failed", func(t *testing.T) {
		f := newPaymentServiceFixture(t)

		f.expectAudit()
		f.paymentMock.ExpectQuery(`SELECT (.+) FROM payments`).
			WillReturnRows(f.paymentRow(models.PaymentStatusPending, "order_verify"))
		f.paymentMock.ExpectExec(`UPDATE payments`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		f.paymentMock.ExpectQuery(`SELECT (.+) FROM payments`).
			WillReturnRows(f.paymentRow(models.PaymentStatusFailed, "order_verify"))
		f.expectAudit()

		resp, err := f.service.VerifyPayment(ctx, f.userID, validRequest(), RequestMeta{})
		assert.Nil(t, resp)
		assert.ErrorIs(t, err, ErrStateConflict)
	})
}

func TestCompleteFromWebhook(t *testing.T) {
	ctx := context.Background()

	t.Run("Applies Transition", func(t *testing.T) {
		f := newPaymentServiceFixture(t)

		f.paymentMock.ExpectExec(`UPDATE payments`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		f.paymentMock.ExpectQuery(`SELECT (.+) FROM payments`).
			WillReturnRows(f.paymentRow(models.PaymentStatusCompleted, "order_hook"))
		f.expectAudit()

		err := f.service.CompleteFromWebhook(ctx, "order_hook", "pay_hook")
		assert.NoError(t, err)
		assert.NoError(t, f.paymentMock.ExpectationsWereMet())
	})

	t.Run("Unknown Order Is Acknowledged", func(t *testing.T) {
		f := newPaymentServiceFixture(t)

		f.paymentMock.ExpectExec(`UPDATE payments`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		f.paymentMock.ExpectQuery(`SELECT (.+) FROM payments`).
			WillReturnRows(sqlmock.NewRows(paymentTestColumns))

		err := f.service.CompleteFromWebhook(ctx, "order_unknown", "pay_hook")
		assert.NoError(t, err)
	})

	t.Run("Already Completed Is Idempotent", func(t *testing.T) {
		f := newPaymentServiceFixture(t)

		f.paymentMock.ExpectExec(`UPDATE payments`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		f.paymentMock.ExpectQuery(`SELECT (.+) FROM payments`).
			WillReturnRows(f.paymentRow(models.PaymentStatusCompleted, "order_hook"))

		err := f.service.CompleteFromWebhook(ctx, "order_hook", "pay_hook")
		assert.NoError(t, err)
	})

	t.Run("Capture After Failure Is Audited Not Applied", func(t *testing.T) {
		f := newPaymentServiceFixture(t)

		f.paymentMock.ExpectExec(`UPDATE payments`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		f.paymentMock.ExpectQuery(`SELECT (.+) FROM payments`).
			WillReturnRows(f.paymentRow(models.PaymentStatusFailed, "order_hook"))
		f.expectAudit()

		err := f.service.CompleteFromWebhook(ctx, "order_hook", "pay_hook")
		assert.NoError(t, err)
		assert.NoError(t, f.paymentMock.ExpectationsWereMet())
	})
}

func TestFailFromWebhook(t *testing.T) {
	ctx := context.Background()

	t.Run("Applies Transition", func(t *testing.T) {
		f := newPaymentServiceFixture(t)

		f.paymentMock.ExpectExec(`UPDATE payments`).
			WithArgs("order_hook", "Card declined").
			WillReturnResult(sqlmock.NewResult(0, 1))
		f.paymentMock.ExpectQuery(`SELECT (.+) FROM payments`).
			WillReturnRows(f.paymentRow(models.PaymentStatusFailed, "order_hook"))
		f.expectAudit()

		err := f.service.FailFromWebhook(ctx, "order_hook", "Card declined")
		assert.NoError(t, err)
	})

	t.Run("Repeated Failure Is Idempotent", func(t *testing.T) {
		f := newPaymentServiceFixture(t)

		f.paymentMock.ExpectExec(`UPDATE payments`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		f.paymentMock.ExpectQuery(`SELECT (.+) FROM payments`).
			WillReturnRows(f.paymentRow(models.PaymentStatusFailed, "order_hook"))

		err := f.service.FailFromWebhook(ctx, "order_hook", "Card declined")
		assert.NoError(t, err)
	})

	t.Run("Failure After Completion Never Overwrites", func(t *testing.T) {
		f := newPaymentServiceFixture(t)

		f.paymentMock.ExpectExec(`UPDATE payments`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		f.paymentMock.ExpectQuery(`SELECT (.+) FROM payments`).
			WillReturnRows(f.paymentRow(models.PaymentStatusCompleted, "order_hook"))
		f.expectAudit()

		err := f.service.FailFromWebhook(ctx, "order_hook", "Card declined")
		assert.NoError(t, err)
		assert.NoError(t, f.paymentMock.ExpectationsWereMet())
	})
}

func TestCreateOrderValidation(t *testing.T) {
	ctx := context.Background()

	t.Run("Unauthenticated", func(t *testing.T) {
		f := newPaymentServiceFixture(t)

		resp, err := f.service.CreateOrder(ctx, "", f.bookingID, RequestMeta{})
		assert.Nil(t, resp)
		assert.ErrorIs(t, err, ErrUnauthenticated)
	})

	t.Run("Invalid Booking ID", func(t *testing.T) {
		f := newPaymentServiceFixture(t)

		resp, err := f.service.CreateOrder(ctx, f.userID, "not-a-uuid", RequestMeta{})
		assert.Nil(t, resp)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("Booking Not Found", func(t *testing.T) {
		f := newPaymentServiceFixture(t)

		f.bookingMock.ExpectQuery(`SELECT (.+) FROM bookings`).
			WillReturnRows(sqlmock.NewRows(bookingTestColumns))

		resp, err := f.service.CreateOrder(ctx, f.userID, f.bookingID, RequestMeta{})
		assert.Nil(t, resp)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("Booking Not Payable", func(t *testing.T) {
		f := newPaymentServiceFixture(t)

		f.bookingMock.ExpectQuery(`SELECT (.+) FROM bookings`).
			WillReturnRows(f.bookingRow(models.BookingStatusCompleted, 499.0))

		resp, err := f.service.CreateOrder(ctx, f.userID, f.bookingID, RequestMeta{})
		assert.Nil(t, resp)
		assert.ErrorIs(t, err, ErrInvalidState)
	})

	t.Run("No Payable Amount", func(t *testing.T) {
		f := newPaymentServiceFixture(t)

		f.bookingMock.ExpectQuery(`SELECT (.+) FROM bookings`).
			WillReturnRows(f.bookingRow(models.BookingStatusPending, 0))

		resp, err := f.service.CreateOrder(ctx, f.userID, f.bookingID, RequestMeta{})
		assert.Nil(t, resp)
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})

	t.Run("Reuses Existing Open Order", func(t *testing.T) {
		f := newPaymentServiceFixture(t)

		f.bookingMock.ExpectQuery(`SELECT (.+) FROM bookings`).
			WillReturnRows(f.bookingRow(models.BookingStatusAccepted, 499.0))
		f.bookingMock.ExpectQuery(`SELECT (.+) FROM bookings`).
			WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("Deep Cleaning"))

		f.paymentMock.ExpectQuery(`SELECT (.+) FROM payments`).
			WillReturnRows(f.paymentRow(models.PaymentStatusPending, "order_existing"))
		f.expectAudit()

		resp, err := f.service.CreateOrder(ctx, f.userID, f.bookingID, RequestMeta{})
		require.NoError(t, err)
		assert.Equal(t, "order_existing", resp.OrderID)
		assert.Equal(t, "rzp_test_key", resp.KeyID)
		assert.Equal(t, "Deep Cleaning", resp.ServiceName)

		assert.NoError(t, f.paymentMock.ExpectationsWereMet())
	})
}

var bookingTestColumns = []string{
	"id", "booking_number", "customer_id", "provider_id", "service_id",
	"scheduled_date", "scheduled_time", "address", "city", "pincode", "notes",
	"estimated_price", "final_price", "status", "created_at", "updated_at",
}

func (f *paymentServiceFixture) bookingRow(status models.BookingStatus, estimatedPrice float64) *sqlmock.Rows {
	now := time.Now()
	var price interface{}
	if estimatedPrice > 0 {
		price = estimatedPrice
	}
	return sqlmock.NewRows(bookingTestColumns).AddRow(
		f.bookingID, "BKG-20260831-ABCD1234", f.userID, nil, uuid.New().String(),
		"2026-09-15", nil, "221B Baker Street, Marylebone", nil, nil, nil,
		price, nil, status, now, now,
	)
}

// mockDatabase adapts sqlmock's *sql.DB to the database.DB interface
type mockDatabase struct {
	db *sql.DB
}

func (m *mockDatabase) Get(dest interface{}, query string, args ...interface{}) error {
	return fmt.Errorf("Get not implemented in mock")
}

func (m *mockDatabase) Select(dest interface{}, query string, args ...interface{}) error {
	return fmt.Errorf("Select not implemented in mock")
}

func (m *mockDatabase) Exec(query string, args ...interface{}) (sql.Result, error) {
	return m.db.Exec(query, args...)
}

func (m *mockDatabase) Query(query string, args ...interface{}) (*sql.Rows, error) {
	return m.db.Query(query, args...)
}

func (m *mockDatabase) QueryRow(query string, args ...interface{}) *sql.Row {
	return m.db.QueryRow(query, args...)
}

func (m *mockDatabase) Ping() error {
	return m.db.Ping()
}

func (m *mockDatabase) Close() error {
	return m.db.Close()
}

package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/staynest/booking-backend/internal/models"
)

// PaymentRepository handles payment database operations
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository creates a new PaymentRepository
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// BeginTx starts a new transaction
func (r *PaymentRepository) BeginTx() (*sqlx.Tx, error) {
	return r.db.Beginx()
}

// Create persists a new payment in initiated status
func (r *PaymentRepository) Create(payment *models.Payment) error {
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	payment.CreatedAt = time.Now()
	payment.UpdatedAt = payment.CreatedAt

	query := `
		INSERT INTO payments (
			id, booking_id, amount, gateway, order_id,
			payment_session_id, transaction_id, status,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		)`

	_, err := r.db.Exec(query,
		payment.ID, payment.BookingID, payment.Amount, payment.Gateway, payment.OrderID,
		payment.PaymentSessionID, payment.TransactionID, payment.Status,
		payment.CreatedAt, payment.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

// GetByOrderID retrieves a payment by its order ID. Returns nil without
// error when no payment matches.
func (r *PaymentRepository) GetByOrderID(orderID string) (*models.Payment, error) {
	var payment models.Payment
	query := `
		SELECT id, booking_id, amount, gateway, order_id,
		       payment_session_id, transaction_id, status,
		       created_at, updated_at
		FROM payments
		WHERE order_id = $1`

	err := r.db.Get(&payment, query, orderID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment by order ID: %w", err)
	}
	return &payment, nil
}

// GetLatestByBookingID retrieves the most recent payment for a booking.
// Returns nil without error when the booking has no payments.
func (r *PaymentRepository) GetLatestByBookingID(bookingID uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	query := `
		SELECT id, booking_id, amount, gateway, order_id,
		       payment_session_id, transaction_id, status,
		       created_at, updated_at
		FROM payments
		WHERE booking_id = $1
		ORDER BY created_at DESC
		LIMIT 1`

	err := r.db.Get(&payment, query, bookingID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment by booking ID: %w", err)
	}
	return &payment, nil
}

// GetByOrderIDForUpdateTx locks and retrieves a payment row inside the
// given transaction. The lock serializes concurrent webhook redeliveries
// and manual verification against the same payment.
func (r *PaymentRepository) GetByOrderIDForUpdateTx(tx *sqlx.Tx, orderID string) (*models.Payment, error) {
	var payment models.Payment
	query := `
		SELECT id, booking_id, amount, gateway, order_id,
		       payment_session_id, transaction_id, status,
		       created_at, updated_at
		FROM payments
		WHERE order_id = $1
		FOR UPDATE`

	err := tx.Get(&payment, query, orderID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock payment: %w", err)
	}
	return &payment, nil
}

// MarkPaidTx transitions a payment to paid with the gateway transaction ID
// inside the given transaction. Conditional on initiated status.
func (r *PaymentRepository) MarkPaidTx(tx *sqlx.Tx, paymentID uuid.UUID, transactionID string) error {
	query := `
		UPDATE payments
		SET status = 'paid', transaction_id = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'initiated'`

	result, err := tx.Exec(query, paymentID, transactionID)
	if err != nil {
		return fmt.Errorf("failed to mark payment paid: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("payment not in initiated status")
	}
	return nil
}

// MarkFailedTx transitions a payment to failed inside the given
// transaction. Conditional on initiated status.
func (r *PaymentRepository) MarkFailedTx(tx *sqlx.Tx, paymentID uuid.UUID) error {
	query := `
		UPDATE payments
		SET status = 'failed', updated_at = NOW()
		WHERE id = $1 AND status = 'initiated'`

	result, err := tx.Exec(query, paymentID)
	if err != nil {
		return fmt.Errorf("failed to mark payment failed: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("payment not in initiated status")
	}
	return nil
}

// ExpireOrphaned fails initiated payments whose booking was already
// cancelled before the cutoff. Payments on live bookings are never touched.
func (r *PaymentRepository) ExpireOrphaned(cutoff time.Time) (int64, error) {
	query := `
		UPDATE payments p
		SET status = 'failed', updated_at = NOW()
		FROM bookings b
		WHERE p.booking_id = b.id
		  AND p.status = 'initiated'
		  AND b.status = 'cancelled'
		  AND p.created_at < $1`

	result, err := r.db.Exec(query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to expire orphaned payments: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows, nil
}

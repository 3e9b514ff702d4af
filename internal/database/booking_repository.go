package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/staynest/booking-backend/internal/models"
)

// UniqueConfirmedConstraint is the partial unique index backing the
// one-confirmed-or-paid-booking-per-(guest,listing,dates) invariant
const UniqueConfirmedConstraint = "bookings_unique_confirmed"

// ErrBookingNotTransitionable reports that a status update matched no row
// because the booking already left the open states.
var ErrBookingNotTransitionable = errors.New("booking not in a transitionable status")

// BookingRepository handles booking database operations
type BookingRepository struct {
	db *sqlx.DB
}

// NewBookingRepository creates a new BookingRepository
func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// BeginTx starts a new transaction
func (r *BookingRepository) BeginTx() (*sqlx.Tx, error) {
	return r.db.Beginx()
}

// IsUniqueViolation reports whether err is a Postgres unique violation
func IsUniqueViolation(err error) bool {
	pqErr, ok := err.(*pq.Error)
	return ok && pqErr.Code == "23505"
}

// ============================================================================
// CREATION & AVAILABILITY (run inside one transaction)
// ============================================================================

// HasOverlapTx checks whether a confirmed or paid booking overlaps the
// candidate half-open range [start, end) for the listing. Must run inside
// the same transaction as CreateTx.
func (r *BookingRepository) HasOverlapTx(tx *sqlx.Tx, listingID uuid.UUID, start, end time.Time) (bool, error) {
	var exists bool
	query := `
		SELECT EXISTS (
			SELECT 1 FROM bookings
			WHERE listing_id = $1
			  AND status IN ('confirmed', 'paid')
			  AND start_date < $3
			  AND $2 < end_date
		)`

	err := tx.Get(&exists, query, listingID, start, end)
	if err != nil {
		return false, fmt.Errorf("failed to check availability: %w", err)
	}
	return exists, nil
}

// CreateTx inserts a new booking inside the given transaction
func (r *BookingRepository) CreateTx(tx *sqlx.Tx, booking *models.Booking) error {
	if booking.ID == uuid.Nil {
		booking.ID = uuid.New()
	}
	booking.CreatedAt = time.Now()
	booking.UpdatedAt = booking.CreatedAt

	query := `
		INSERT INTO bookings (
			id, guest_id, listing_id, start_date, end_date,
			adults, children, infants, pets,
			total_price, status, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
		)`

	_, err := tx.Exec(query,
		booking.ID, booking.GuestID, booking.ListingID, booking.StartDate, booking.EndDate,
		booking.Adults, booking.Children, booking.Infants, booking.Pets,
		booking.TotalPrice, booking.Status, booking.CreatedAt, booking.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return nil
}

// ============================================================================
// READS
// ============================================================================

// GetByID retrieves a booking by ID. Returns nil without error when the
// booking does not exist.
func (r *BookingRepository) GetByID(bookingID uuid.UUID) (*models.Booking, error) {
	var booking models.Booking
	query := `
		SELECT id, guest_id, listing_id, start_date, end_date,
		       adults, children, infants, pets,
		       total_price, status, created_at, updated_at
		FROM bookings
		WHERE id = $1`

	err := r.db.Get(&booking, query, bookingID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return &booking, nil
}

// ListByGuest retrieves a guest's bookings, newest first, optionally
// filtered by status
func (r *BookingRepository) ListByGuest(guestID uuid.UUID, status *models.BookingStatus) ([]*models.Booking, error) {
	var bookings []*models.Booking

	query := `
		SELECT id, guest_id, listing_id, start_date, end_date,
		       adults, children, infants, pets,
		       total_price, status, created_at, updated_at
		FROM bookings
		WHERE guest_id = $1`
	args := []interface{}{guestID}

	if status != nil {
		query += ` AND status = $2`
		args = append(args, *status)
	}
	query += ` ORDER BY created_at DESC`

	err := r.db.Select(&bookings, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	return bookings, nil
}

// ============================================================================
// STATUS TRANSITIONS
// ============================================================================

// CancelOwned cancels a booking owned by the guest. The update is
// conditional on a cancellable status; zero rows means the booking is
// missing, not owned, or already terminal.
func (r *BookingRepository) CancelOwned(bookingID, guestID uuid.UUID) (bool, error) {
	query := `
		UPDATE bookings
		SET status = 'cancelled', updated_at = NOW()
		WHERE id = $1 AND guest_id = $2 AND status IN ('pending', 'confirmed')`

	result, err := r.db.Exec(query, bookingID, guestID)
	if err != nil {
		return false, fmt.Errorf("failed to cancel booking: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

// UpdateStatusTx transitions a booking's status inside the given
// transaction. Conditional on a non-terminal status so reconciliation never
// clobbers a booking another path already settled.
func (r *BookingRepository) UpdateStatusTx(tx *sqlx.Tx, bookingID uuid.UUID, status models.BookingStatus) error {
	query := `
		UPDATE bookings
		SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status IN ('pending', 'confirmed')`

	result, err := tx.Exec(query, bookingID, status)
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrBookingNotTransitionable
	}
	return nil
}

// ============================================================================
// REAPER SUPPORT
// ============================================================================

// ReapAbandoned bulk-cancels pending bookings created before the cutoff.
// The status filter makes the sweep safe against a concurrent confirmation:
// a booking that just became confirmed no longer matches and is left alone.
func (r *BookingRepository) ReapAbandoned(cutoff time.Time) (int64, error) {
	query := `
		UPDATE bookings
		SET status = 'cancelled', updated_at = NOW()
		WHERE status = 'pending' AND created_at < $1`

	result, err := r.db.Exec(query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to reap abandoned bookings: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows, nil
}

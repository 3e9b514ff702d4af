package database

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/staynest/booking-backend/internal/models"
)

// ListingRepository provides read-only access to listings. Listing CRUD is
// owned by a separate service; the booking core only looks up capacity,
// policy flags, and pricing.
type ListingRepository struct {
	db *sqlx.DB
}

// NewListingRepository creates a new ListingRepository
func NewListingRepository(db *sqlx.DB) *ListingRepository {
	return &ListingRepository{db: db}
}

// GetByID retrieves a listing by ID. Returns nil without error when the
// listing does not exist.
func (r *ListingRepository) GetByID(listingID uuid.UUID) (*models.Listing, error) {
	var listing models.Listing
	query := `
		SELECT id, host_id, title, max_guests, allows_children, allows_pets,
		       price_per_night, currency, created_at
		FROM listings
		WHERE id = $1`

	err := r.db.Get(&listing, query, listingID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get listing: %w", err)
	}
	return &listing, nil
}

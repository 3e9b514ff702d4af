package models

import (
	"time"

	"github.com/google/uuid"
)

// Listing is the read-only view of a listing consumed by the booking core.
// Listing CRUD lives in a separate service; this module only needs capacity,
// policy flags, the nightly rate, and the host identity.
type Listing struct {
	ID             uuid.UUID `json:"id" db:"id"`
	HostID         uuid.UUID `json:"host_id" db:"host_id"`
	Title          string    `json:"title" db:"title"`
	MaxGuests      int       `json:"max_guests" db:"max_guests"`
	AllowsChildren bool      `json:"allows_children" db:"allows_children"`
	AllowsPets     bool      `json:"allows_pets" db:"allows_pets"`
	PricePerNight  float64   `json:"price_per_night" db:"price_per_night"`
	Currency       string    `json:"currency" db:"currency"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// BookingStatus represents the lifecycle state of a booking
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusPaid      BookingStatus = "paid"
	BookingStatusFailed    BookingStatus = "failed"
	BookingStatusRefunded  BookingStatus = "refunded"
	BookingStatusOngoing   BookingStatus = "ongoing"
)

// Booking represents a guest's reservation for a listing over a date range.
// Dates are half-open: the stay covers [StartDate, EndDate), so EndDate is
// the checkout day and back-to-back stays never overlap.
type Booking struct {
	ID         uuid.UUID     `json:"id" db:"id"`
	GuestID    uuid.UUID     `json:"guest_id" db:"guest_id"`
	ListingID  uuid.UUID     `json:"listing_id" db:"listing_id"`
	StartDate  time.Time     `json:"start_date" db:"start_date"`
	EndDate    time.Time     `json:"end_date" db:"end_date"`
	Adults     int           `json:"adults" db:"adults"`
	Children   int           `json:"children" db:"children"`
	Infants    int           `json:"infants" db:"infants"`
	Pets       int           `json:"pets" db:"pets"`
	TotalPrice float64       `json:"total_price" db:"total_price"`
	Status     BookingStatus `json:"status" db:"status"`
	CreatedAt  time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at" db:"updated_at"`
}

// Nights returns the number of chargeable nights in the stay
func (b *Booking) Nights() int {
	return int(b.EndDate.Sub(b.StartDate).Hours() / 24)
}

// IsTerminal checks if the booking has reached a terminal payment outcome
func (b *Booking) IsTerminal() bool {
	switch b.Status {
	case BookingStatusConfirmed, BookingStatusCancelled, BookingStatusPaid,
		BookingStatusFailed, BookingStatusRefunded:
		return true
	}
	return false
}

// CanInitiatePayment checks if an order may be created for this booking
func (b *Booking) CanInitiatePayment() bool {
	return b.Status == BookingStatusPending
}

// CanBeCancelled checks if the guest may cancel this booking
func (b *Booking) CanBeCancelled() bool {
	return b.Status == BookingStatusPending || b.Status == BookingStatusConfirmed
}

// DateFormat is the wire format for booking dates
const DateFormat = "2006-01-02"

// Guest-composition bounds. Counts above these are rejected as malformed
// before any listing-policy check runs.
const (
	MaxAdults   = 16
	MaxChildren = 10
	MaxInfants  = 5
	MaxPets     = 5
)

// CreateBookingRequest represents the request to create a booking
type CreateBookingRequest struct {
	ListingID string `json:"listing_id" binding:"required"`
	StartDate string `json:"start_date" binding:"required"`
	EndDate   string `json:"end_date" binding:"required"`
	Adults    int    `json:"adults" binding:"required,min=1"`
	Children  int    `json:"children"`
	Infants   int    `json:"infants"`
	Pets      int    `json:"pets"`
}

// ParsedBookingRequest carries a validated create request with parsed fields
type ParsedBookingRequest struct {
	ListingID uuid.UUID
	StartDate time.Time
	EndDate   time.Time
	Adults    int
	Children  int
	Infants   int
	Pets      int
}

// Validate checks request shape and returns the parsed form.
// Listing-policy checks (capacity, children/pets allowed, host ownership)
// happen in the service where the listing is loaded.
func (r *CreateBookingRequest) Validate(now time.Time) (*ParsedBookingRequest, error) {
	listingID, err := uuid.Parse(r.ListingID)
	if err != nil {
		return nil, fmt.Errorf("invalid listing_id")
	}

	startDate, err := time.Parse(DateFormat, r.StartDate)
	if err != nil {
		return nil, fmt.Errorf("invalid start_date, expected YYYY-MM-DD")
	}
	endDate, err := time.Parse(DateFormat, r.EndDate)
	if err != nil {
		return nil, fmt.Errorf("invalid end_date, expected YYYY-MM-DD")
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if startDate.Before(today) {
		return nil, fmt.Errorf("start_date cannot be in the past")
	}
	if !endDate.After(startDate) {
		return nil, fmt.Errorf("end_date must be after start_date")
	}

	if r.Adults < 1 || r.Adults > MaxAdults {
		return nil, fmt.Errorf("adults must be between 1 and %d", MaxAdults)
	}
	if r.Children < 0 || r.Children > MaxChildren {
		return nil, fmt.Errorf("children must be between 0 and %d", MaxChildren)
	}
	if r.Infants < 0 || r.Infants > MaxInfants {
		return nil, fmt.Errorf("infants must be between 0 and %d", MaxInfants)
	}
	if r.Pets < 0 || r.Pets > MaxPets {
		return nil, fmt.Errorf("pets must be between 0 and %d", MaxPets)
	}

	return &ParsedBookingRequest{
		ListingID: listingID,
		StartDate: startDate,
		EndDate:   endDate,
		Adults:    r.Adults,
		Children:  r.Children,
		Infants:   r.Infants,
		Pets:      r.Pets,
	}, nil
}

// BookingResponse is the booking representation returned to clients
type BookingResponse struct {
	ID         uuid.UUID     `json:"id"`
	ListingID  uuid.UUID     `json:"listing_id"`
	StartDate  string        `json:"start_date"`
	EndDate    string        `json:"end_date"`
	Adults     int           `json:"adults"`
	Children   int           `json:"children"`
	Infants    int           `json:"infants"`
	Pets       int           `json:"pets"`
	Nights     int           `json:"nights"`
	TotalPrice float64       `json:"total_price"`
	Status     BookingStatus `json:"status"`
	CreatedAt  time.Time     `json:"created_at"`
}

// ToResponse converts a booking to its client representation
func (b *Booking) ToResponse() *BookingResponse {
	return &BookingResponse{
		ID:         b.ID,
		ListingID:  b.ListingID,
		StartDate:  b.StartDate.Format(DateFormat),
		EndDate:    b.EndDate.Format(DateFormat),
		Adults:     b.Adults,
		Children:   b.Children,
		Infants:    b.Infants,
		Pets:       b.Pets,
		Nights:     b.Nights(),
		TotalPrice: b.TotalPrice,
		Status:     b.Status,
		CreatedAt:  b.CreatedAt,
	}
}

package services

import (
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/staynest/booking-backend/internal/database"
	"github.com/staynest/booking-backend/internal/models"
)

// BookingService owns booking creation and lifecycle reads. Availability
// checking and insertion run in one transaction; the partial unique index
// on confirmed/paid bookings is the backstop when two creations race.
type BookingService struct {
	bookingRepo *database.BookingRepository
	listingRepo *database.ListingRepository
	userRepo    *database.UserRepository
	paymentRepo *database.PaymentRepository
	logger      *logrus.Logger
}

// NewBookingService creates a new BookingService
func NewBookingService(
	bookingRepo *database.BookingRepository,
	listingRepo *database.ListingRepository,
	userRepo *database.UserRepository,
	paymentRepo *database.PaymentRepository,
	logger *logrus.Logger,
) *BookingService {
	return &BookingService{
		bookingRepo: bookingRepo,
		listingRepo: listingRepo,
		userRepo:    userRepo,
		paymentRepo: paymentRepo,
		logger:      logger,
	}
}

// BookingDetail bundles a booking with its most recent payment
type BookingDetail struct {
	Booking *models.BookingResponse `json:"booking"`
	Payment *models.Payment         `json:"payment,omitempty"`
}

// ============================================================================
// CREATE
// ============================================================================

// CreateBooking validates the request against the listing's policy, prices
// the stay server-side, and inserts the booking if the dates are free.
func (s *BookingService) CreateBooking(guestID uuid.UUID, req *models.CreateBookingRequest) (*models.BookingResponse, error) {
	parsed, err := req.Validate(time.Now())
	if err != nil {
		return nil, models.NewValidationError("INVALID_BOOKING", err.Error())
	}

	listing, err := s.listingRepo.GetByID(parsed.ListingID)
	if err != nil {
		return nil, models.NewInternalError("LISTING_LOOKUP_FAILED", "failed to load listing", err)
	}
	if listing == nil {
		return nil, models.NewNotFoundError("LISTING_NOT_FOUND", "listing not found")
	}

	guest, err := s.userRepo.GetUserByID(guestID)
	if err != nil {
		return nil, models.NewInternalError("GUEST_LOOKUP_FAILED", "failed to load guest", err)
	}
	if guest == nil {
		return nil, models.NewNotFoundError("GUEST_NOT_FOUND", "guest account not found")
	}

	// Listing-policy checks
	if guestID == listing.HostID {
		return nil, models.NewValidationError("INVALID_BOOKING", "hosts cannot book their own listing")
	}
	if !guest.PhoneVerified {
		return nil, models.NewValidationError("INVALID_BOOKING", "a verified phone number is required to book")
	}
	if parsed.Adults > listing.MaxGuests {
		return nil, models.NewValidationError("INVALID_BOOKING", "adults exceed listing capacity")
	}
	if parsed.Children > 0 && !listing.AllowsChildren {
		return nil, models.NewValidationError("INVALID_BOOKING", "listing does not allow children")
	}
	if parsed.Pets > 0 && !listing.AllowsPets {
		return nil, models.NewValidationError("INVALID_BOOKING", "listing does not allow pets")
	}

	// Price is computed server-side, never taken from the client
	nights := int(parsed.EndDate.Sub(parsed.StartDate).Hours() / 24)
	totalPrice := listing.PricePerNight * float64(nights)

	booking := &models.Booking{
		GuestID:    guestID,
		ListingID:  listing.ID,
		StartDate:  parsed.StartDate,
		EndDate:    parsed.EndDate,
		Adults:     parsed.Adults,
		Children:   parsed.Children,
		Infants:    parsed.Infants,
		Pets:       parsed.Pets,
		TotalPrice: totalPrice,
		Status:     models.BookingStatusPending,
	}

	tx, err := s.bookingRepo.BeginTx()
	if err != nil {
		return nil, models.NewInternalError("TX_BEGIN_FAILED", "failed to start transaction", err)
	}
	defer tx.Rollback()

	overlap, err := s.bookingRepo.HasOverlapTx(tx, listing.ID, parsed.StartDate, parsed.EndDate)
	if err != nil {
		return nil, models.NewInternalError("AVAILABILITY_CHECK_FAILED", "failed to check availability", err)
	}
	if overlap {
		return nil, models.NewConflictError("DATES_UNAVAILABLE", "listing is not available for the requested dates")
	}

	if err := s.bookingRepo.CreateTx(tx, booking); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, models.NewConflictError("DATES_UNAVAILABLE", "listing is not available for the requested dates")
		}
		return nil, models.NewInternalError("BOOKING_CREATE_FAILED", "failed to create booking", err)
	}

	if err := tx.Commit(); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, models.NewConflictError("DATES_UNAVAILABLE", "listing is not available for the requested dates")
		}
		return nil, models.NewInternalError("TX_COMMIT_FAILED", "failed to commit booking", err)
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id": booking.ID,
		"listing_id": listing.ID,
		"guest_id":   guestID,
		"nights":     nights,
		"total":      totalPrice,
	}).Info("Booking created")

	return booking.ToResponse(), nil
}

// ============================================================================
// READS
// ============================================================================

// ListBookings returns the guest's bookings, optionally filtered by status
func (s *BookingService) ListBookings(guestID uuid.UUID, statusFilter string) ([]*models.BookingResponse, error) {
	var status *models.BookingStatus
	if statusFilter != "" {
		st := models.BookingStatus(statusFilter)
		switch st {
		case models.BookingStatusPending, models.BookingStatusConfirmed,
			models.BookingStatusCancelled, models.BookingStatusPaid,
			models.BookingStatusFailed, models.BookingStatusRefunded,
			models.BookingStatusOngoing:
			status = &st
		default:
			return nil, models.NewValidationError("INVALID_STATUS", "unknown booking status filter")
		}
	}

	bookings, err := s.bookingRepo.ListByGuest(guestID, status)
	if err != nil {
		return nil, models.NewInternalError("BOOKING_LIST_FAILED", "failed to list bookings", err)
	}

	responses := make([]*models.BookingResponse, 0, len(bookings))
	for _, b := range bookings {
		responses = append(responses, b.ToResponse())
	}
	return responses, nil
}

// GetOwnedBooking loads a booking owned by the guest. Non-owners get
// not-found, never a hint the booking exists.
func (s *BookingService) GetOwnedBooking(guestID, bookingID uuid.UUID) (*models.Booking, error) {
	booking, err := s.bookingRepo.GetByID(bookingID)
	if err != nil {
		return nil, models.NewInternalError("BOOKING_LOOKUP_FAILED", "failed to load booking", err)
	}
	if booking == nil || booking.GuestID != guestID {
		return nil, models.NewNotFoundError("BOOKING_NOT_FOUND", "booking not found")
	}
	return booking, nil
}

// GetBookingDetail returns a booking together with its most recent payment
func (s *BookingService) GetBookingDetail(guestID, bookingID uuid.UUID) (*BookingDetail, error) {
	booking, err := s.GetOwnedBooking(guestID, bookingID)
	if err != nil {
		return nil, err
	}

	payment, err := s.paymentRepo.GetLatestByBookingID(bookingID)
	if err != nil {
		return nil, models.NewInternalError("PAYMENT_LOOKUP_FAILED", "failed to load payments", err)
	}

	return &BookingDetail{
		Booking: booking.ToResponse(),
		Payment: payment,
	}, nil
}

// ============================================================================
// CANCEL
// ============================================================================

// CancelBooking cancels a pending or confirmed booking owned by the guest
func (s *BookingService) CancelBooking(guestID, bookingID uuid.UUID) (*models.BookingResponse, error) {
	booking, err := s.GetOwnedBooking(guestID, bookingID)
	if err != nil {
		return nil, err
	}

	if !booking.CanBeCancelled() {
		return nil, models.NewStateError("NOT_CANCELLABLE", "booking cannot be cancelled in its current status")
	}

	cancelled, err := s.bookingRepo.CancelOwned(bookingID, guestID)
	if err != nil {
		return nil, models.NewInternalError("BOOKING_CANCEL_FAILED", "failed to cancel booking", err)
	}
	if !cancelled {
		// Lost a race with reconciliation; report the state error
		return nil, models.NewStateError("NOT_CANCELLABLE", "booking cannot be cancelled in its current status")
	}

	booking.Status = models.BookingStatusCancelled
	s.logger.WithFields(logrus.Fields{
		"booking_id": bookingID,
		"guest_id":   guestID,
	}).Info("Booking cancelled by guest")

	return booking.ToResponse(), nil
}

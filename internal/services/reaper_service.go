package services

import (
	"time"

	"github.com/sirupsen/logrus"
	"github.com/staynest/booking-backend/internal/database"
)

// ReaperService sweeps bookings abandoned at checkout. A booking that sat in
// pending longer than the configured age is cancelled, and initiated payments
// hanging off cancelled bookings are failed so they cannot be resurrected.
type ReaperService struct {
	bookingRepo *database.BookingRepository
	paymentRepo *database.PaymentRepository
	ageMinutes  int
	logger      *logrus.Logger
}

// ReaperResult reports what one sweep changed
type ReaperResult struct {
	BookingsCancelled int64 `json:"bookings_cancelled"`
	PaymentsExpired   int64 `json:"payments_expired"`
}

// NewReaperService creates a new ReaperService
func NewReaperService(bookingRepo *database.BookingRepository, paymentRepo *database.PaymentRepository, ageMinutes int, logger *logrus.Logger) *ReaperService {
	return &ReaperService{
		bookingRepo: bookingRepo,
		paymentRepo: paymentRepo,
		ageMinutes:  ageMinutes,
		logger:      logger,
	}
}

// Run performs one sweep and returns counts. The cutoff is computed per run
// so a long-lived process never drifts.
func (s *ReaperService) Run() (*ReaperResult, error) {
	cutoff := time.Now().Add(-time.Duration(s.ageMinutes) * time.Minute)

	cancelled, err := s.bookingRepo.ReapAbandoned(cutoff)
	if err != nil {
		return nil, err
	}

	expired, err := s.paymentRepo.ExpireOrphaned(cutoff)
	if err != nil {
		return nil, err
	}

	result := &ReaperResult{
		BookingsCancelled: cancelled,
		PaymentsExpired:   expired,
	}

	if cancelled > 0 || expired > 0 {
		s.logger.WithFields(logrus.Fields{
			"bookings_cancelled": cancelled,
			"payments_expired":   expired,
			"cutoff":             cutoff,
		}).Info("Reaper sweep completed")
	}

	return result, nil
}

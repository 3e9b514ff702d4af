package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/staynest/booking-backend/internal/models"
)

// PaymentAuditRepository handles payment audit operations
type PaymentAuditRepository struct {
	db     *sqlx.DB
	logger *logrus.Logger
}

// NewPaymentAuditRepository creates a new payment audit repository
func NewPaymentAuditRepository(db *sqlx.DB, logger *logrus.Logger) *PaymentAuditRepository {
	return &PaymentAuditRepository{
		db:     db,
		logger: logger,
	}
}

// Log creates a new payment audit entry
// This should NEVER fail silently - payment events must be logged
func (r *PaymentAuditRepository) Log(ctx context.Context, audit *models.PaymentAudit) error {
	if audit == nil {
		return fmt.Errorf("audit entry cannot be nil")
	}

	// Ensure ID and timestamp are set
	if audit.ID == uuid.Nil {
		audit.ID = uuid.New()
	}
	if audit.CreatedAt.IsZero() {
		audit.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO payment_audits (
			id, booking_id, order_id,
			event_type, event_source,
			expected_amount, received_amount, currency, amounts_match,
			payment_status, gateway_transaction_id,
			request_payload, response_payload, raw_body,
			error_message, error_code,
			processing_time_ms, is_duplicate,
			ip_address, user_agent,
			created_at, processed_at
		) VALUES (
			$1, $2, $3,
			$4, $5,
			$6, $7, $8, $9,
			$10, $11,
			$12, $13, $14,
			$15, $16,
			$17, $18,
			$19, $20,
			$21, $22
		)`

	_, err := r.db.ExecContext(ctx, query,
		audit.ID, audit.BookingID, audit.OrderID,
		audit.EventType, audit.EventSource,
		audit.ExpectedAmount, audit.ReceivedAmount, audit.Currency, audit.AmountsMatch,
		audit.PaymentStatus, audit.GatewayTransactionID,
		audit.RequestPayload, audit.ResponsePayload, audit.RawBody,
		audit.ErrorMessage, audit.ErrorCode,
		audit.ProcessingTimeMs, audit.IsDuplicate,
		audit.IPAddress, audit.UserAgent,
		audit.CreatedAt, audit.ProcessedAt,
	)

	if err != nil {
		r.logger.WithError(err).WithFields(logrus.Fields{
			"event_type": audit.EventType,
			"order_id":   audit.OrderID,
		}).Error("CRITICAL: Failed to log payment audit")
		return fmt.Errorf("failed to log payment audit: %w", err)
	}

	r.logger.WithFields(logrus.Fields{
		"audit_id":   audit.ID,
		"event_type": audit.EventType,
		"order_id":   audit.OrderID,
	}).Debug("Payment audit logged")

	return nil
}

// GetByOrderID retrieves all audit entries for an order ID
func (r *PaymentAuditRepository) GetByOrderID(ctx context.Context, orderID string) ([]*models.PaymentAudit, error) {
	var audits []*models.PaymentAudit
	query := `
		SELECT * FROM payment_audits
		WHERE order_id = $1
		ORDER BY created_at ASC`

	err := r.db.SelectContext(ctx, &audits, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get audits by order ID: %w", err)
	}

	return audits, nil
}

// GetByBookingID retrieves all audit entries for a booking
func (r *PaymentAuditRepository) GetByBookingID(ctx context.Context, bookingID uuid.UUID) ([]*models.PaymentAudit, error) {
	var audits []*models.PaymentAudit
	query := `
		SELECT * FROM payment_audits
		WHERE booking_id = $1
		ORDER BY created_at ASC`

	err := r.db.SelectContext(ctx, &audits, query, bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to get audits by booking ID: %w", err)
	}

	return audits, nil
}

// GetAmountMismatches retrieves all audits where amounts don't match
// This is CRITICAL for fraud detection
func (r *PaymentAuditRepository) GetAmountMismatches(ctx context.Context, limit int) ([]*models.PaymentAudit, error) {
	var audits []*models.PaymentAudit
	query := `
		SELECT * FROM payment_audits
		WHERE amounts_match = FALSE
		ORDER BY created_at DESC
		LIMIT $1`

	err := r.db.SelectContext(ctx, &audits, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get amount mismatches: %w", err)
	}

	return audits, nil
}

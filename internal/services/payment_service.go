package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/staynest/booking-backend/internal/config"
	"github.com/staynest/booking-backend/internal/database"
	"github.com/staynest/booking-backend/internal/models"
	"github.com/staynest/booking-backend/internal/utils"
)

// PaymentService drives payment order initiation and the reconciliation of
// gateway outcomes back onto bookings. All state transitions on a payment
// happen inside one transaction holding a row lock on the payment, so a
// webhook replay or a concurrent manual verification settles on exactly one
// winner.
type PaymentService struct {
	paymentRepo *database.PaymentRepository
	bookingRepo *database.BookingRepository
	userRepo    *database.UserRepository
	gateway     *CashfreeService
	audit       *AuditService
	config      *config.PaymentConfig
	logger      *logrus.Logger
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(
	paymentRepo *database.PaymentRepository,
	bookingRepo *database.BookingRepository,
	userRepo *database.UserRepository,
	gateway *CashfreeService,
	audit *AuditService,
	cfg *config.PaymentConfig,
	logger *logrus.Logger,
) *PaymentService {
	return &PaymentService{
		paymentRepo: paymentRepo,
		bookingRepo: bookingRepo,
		userRepo:    userRepo,
		gateway:     gateway,
		audit:       audit,
		config:      cfg,
		logger:      logger,
	}
}

// WebhookResult reports how a webhook delivery was resolved
type WebhookResult struct {
	Outcome   models.WebhookOutcome
	OrderID   string
	BookingID *uuid.UUID
}

// ============================================================================
// ORDER INITIATION
// ============================================================================

// InitiateOrder creates a gateway order for a pending booking owned by the
// guest and records the payment as initiated. Retries after a failed or
// dropped attempt mint a fresh order ID; earlier attempts stay untouched.
func (s *PaymentService) InitiateOrder(ctx context.Context, guestID, bookingID uuid.UUID, meta RequestMeta) (*models.CreateOrderResponse, error) {
	startTime := time.Now()

	booking, err := s.bookingRepo.GetByID(bookingID)
	if err != nil {
		return nil, models.NewInternalError("BOOKING_LOOKUP_FAILED", "failed to load booking", err)
	}
	if booking == nil || booking.GuestID != guestID {
		return nil, models.NewNotFoundError("BOOKING_NOT_FOUND", "booking not found")
	}
	if !booking.CanInitiatePayment() {
		return nil, models.NewStateError("INVALID_BOOKING_STATE", "payment can only be initiated for a pending booking")
	}

	// Refuse to stack a second live order on the same booking
	latest, err := s.paymentRepo.GetLatestByBookingID(bookingID)
	if err != nil {
		return nil, models.NewInternalError("PAYMENT_LOOKUP_FAILED", "failed to load payments", err)
	}
	if latest != nil && latest.Status == models.PaymentStatusInitiated {
		return nil, models.NewStateError("PAYMENT_IN_PROGRESS", "a payment is already in progress for this booking")
	}

	guest, err := s.userRepo.GetUserByID(guestID)
	if err != nil {
		return nil, models.NewInternalError("GUEST_LOOKUP_FAILED", "failed to load guest", err)
	}
	if guest == nil {
		return nil, models.NewNotFoundError("GUEST_NOT_FOUND", "guest account not found")
	}

	suffix, err := utils.RandomHex(4)
	if err != nil {
		return nil, models.NewInternalError("ORDER_ID_FAILED", "failed to generate order id", err)
	}
	orderID := fmt.Sprintf("booking_%s_%s", booking.ID, suffix)
	amount := booking.TotalPrice
	currency := s.config.Currency

	s.audit.LogOrderInitiated(ctx, booking.ID, orderID, amount, currency, meta)

	customer := CashfreeCustomer{
		CustomerID:    guest.ID.String(),
		CustomerName:  guest.FullName(),
		CustomerPhone: guest.Phone,
		CustomerEmail: guest.Email.String,
	}

	gwOrder, err := s.gateway.CreateOrder(orderID, amount, currency, customer)
	if err != nil {
		s.audit.LogError(ctx, &booking.ID, orderID, err.Error(), "GATEWAY_ORDER_FAILED", meta)
		return nil, models.NewGatewayError("GATEWAY_ORDER_FAILED", "payment gateway rejected the order", err)
	}

	payment := &models.Payment{
		BookingID:        booking.ID,
		Amount:           amount,
		Gateway:          models.GatewayCashfree,
		OrderID:          orderID,
		PaymentSessionID: &gwOrder.PaymentSessionID,
		Status:           models.PaymentStatusInitiated,
	}
	if err := s.paymentRepo.Create(payment); err != nil {
		s.audit.LogError(ctx, &booking.ID, orderID, err.Error(), "PAYMENT_PERSIST_FAILED", meta)
		return nil, models.NewInternalError("PAYMENT_PERSIST_FAILED", "failed to record payment", err)
	}

	s.audit.LogGatewayOrderCreated(ctx, booking.ID, orderID, map[string]interface{}{
		"cf_order_id":  gwOrder.CfOrderID,
		"order_status": gwOrder.OrderStatus,
	}, startTime)

	s.logger.WithFields(logrus.Fields{
		"booking_id": booking.ID,
		"order_id":   orderID,
		"amount":     amount,
	}).Info("Payment order initiated")

	return &models.CreateOrderResponse{
		OrderID:          orderID,
		PaymentSessionID: gwOrder.PaymentSessionID,
		Amount:           amount,
		Currency:         currency,
	}, nil
}

// ============================================================================
// WEBHOOK RECONCILIATION
// ============================================================================

// ProcessWebhook verifies, correlates, and applies a gateway webhook
// delivery. Verification fails closed: a missing or invalid signature never
// reaches the payload. Replays of an already-settled payment acknowledge
// without mutating anything.
func (s *PaymentService) ProcessWebhook(ctx context.Context, timestamp, signature string, rawBody []byte, meta RequestMeta) (*WebhookResult, error) {
	startTime := time.Now()

	if timestamp == "" || signature == "" {
		return nil, models.NewAuthError("MISSING_SIGNATURE", "missing webhook signature headers")
	}
	if !s.gateway.VerifyWebhookSignature(timestamp, rawBody, signature) {
		s.logger.WithFields(logrus.Fields{
			"ip": meta.IPAddress,
		}).Warn("Webhook signature verification failed")
		return nil, models.NewAuthError("INVALID_SIGNATURE", "webhook signature verification failed")
	}

	var envelope models.WebhookEnvelope
	if err := json.Unmarshal(rawBody, &envelope); err != nil {
		return nil, models.NewValidationError("MALFORMED_PAYLOAD", "webhook payload is not valid JSON")
	}
	orderID := envelope.Data.Order.OrderID
	if orderID == "" {
		return nil, models.NewValidationError("MALFORMED_PAYLOAD", "webhook payload has no order id")
	}

	kind := models.ParseWebhookEventKind(envelope.Type)

	tx, err := s.paymentRepo.BeginTx()
	if err != nil {
		return nil, models.NewInternalError("TX_BEGIN_FAILED", "failed to start transaction", err)
	}
	defer tx.Rollback()

	payment, err := s.paymentRepo.GetByOrderIDForUpdateTx(tx, orderID)
	if err != nil {
		return nil, models.NewInternalError("PAYMENT_LOOKUP_FAILED", "failed to load payment", err)
	}
	if payment == nil {
		return nil, models.NewNotFoundError("UNKNOWN_ORDER", "no payment matches the webhook order id")
	}

	if payment.IsTerminal() {
		s.audit.LogWebhookDuplicate(ctx, payment.BookingID, orderID, string(rawBody), meta, startTime)
		return &WebhookResult{
			Outcome:   models.WebhookOutcomeAlreadyProcessed,
			OrderID:   orderID,
			BookingID: &payment.BookingID,
		}, nil
	}

	if kind == models.EventKindUnrecognized {
		s.audit.LogWebhookIgnored(ctx, orderID, envelope.Type, string(rawBody), meta)
		return &WebhookResult{
			Outcome:   models.WebhookOutcomeIgnored,
			OrderID:   orderID,
			BookingID: &payment.BookingID,
		}, nil
	}

	transactionID := envelope.Data.Payment.CfPaymentID
	bookingUpdated, err := s.applyOutcomeTx(tx, payment, kind, transactionID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, models.NewInternalError("TX_COMMIT_FAILED", "failed to commit webhook outcome", err)
	}

	if !bookingUpdated && kind == models.EventKindSuccess {
		// The booking closed before the settlement landed, typically via the
		// reaper. The payment is recorded as paid; acknowledge so the gateway
		// stops redelivering, and flag the money for operator review.
		s.audit.LogError(ctx, &payment.BookingID, orderID,
			"payment settled for a booking that is no longer open", "LATE_SETTLEMENT", meta)
		s.logger.WithFields(logrus.Fields{
			"order_id":   orderID,
			"booking_id": payment.BookingID,
		}).Warn("Payment settled for a closed booking")
		return &WebhookResult{
			Outcome:   models.WebhookOutcomeAccepted,
			OrderID:   orderID,
			BookingID: &payment.BookingID,
		}, nil
	}

	s.audit.LogWebhookReceived(ctx, payment.BookingID, orderID, auditEventForKind(kind), transactionID,
		string(rawBody), payment.Amount, envelope.Data.Payment.PaymentAmount, s.config.Currency, meta, startTime)

	s.logger.WithFields(logrus.Fields{
		"order_id":   orderID,
		"booking_id": payment.BookingID,
		"event":      kind,
	}).Info("Webhook applied")

	return &WebhookResult{
		Outcome:   models.WebhookOutcomeApplied,
		OrderID:   orderID,
		BookingID: &payment.BookingID,
	}, nil
}

// applyOutcomeTx moves the locked payment and its booking to the states the
// event kind dictates. Callers hold the payment row lock and commit. The
// booking update is conditional; bookingUpdated is false when the booking
// already left the open states, for example after a reaper sweep. The payment
// transition still applies so the gateway's settlement is recorded.
func (s *PaymentService) applyOutcomeTx(tx *sqlx.Tx, payment *models.Payment, kind models.WebhookEventKind, transactionID string) (bookingUpdated bool, err error) {
	var target models.BookingStatus
	switch kind {
	case models.EventKindSuccess:
		if err := s.paymentRepo.MarkPaidTx(tx, payment.ID, transactionID); err != nil {
			return false, models.NewInternalError("PAYMENT_UPDATE_FAILED", "failed to mark payment paid", err)
		}
		target = models.BookingStatusConfirmed
	case models.EventKindFailed:
		if err := s.paymentRepo.MarkFailedTx(tx, payment.ID); err != nil {
			return false, models.NewInternalError("PAYMENT_UPDATE_FAILED", "failed to mark payment failed", err)
		}
		target = models.BookingStatusFailed
	case models.EventKindUserDropped:
		if err := s.paymentRepo.MarkFailedTx(tx, payment.ID); err != nil {
			return false, models.NewInternalError("PAYMENT_UPDATE_FAILED", "failed to mark payment failed", err)
		}
		target = models.BookingStatusCancelled
	default:
		return false, models.NewInternalError("UNSUPPORTED_EVENT", "event kind has no transition", nil)
	}

	if err := s.bookingRepo.UpdateStatusTx(tx, payment.BookingID, target); err != nil {
		if errors.Is(err, database.ErrBookingNotTransitionable) {
			return false, nil
		}
		return false, models.NewInternalError("BOOKING_UPDATE_FAILED", "failed to update booking status", err)
	}
	return true, nil
}

func auditEventForKind(kind models.WebhookEventKind) models.PaymentEventType {
	switch kind {
	case models.EventKindSuccess:
		return models.PaymentEventSuccess
	case models.EventKindFailed:
		return models.PaymentEventFailed
	case models.EventKindUserDropped:
		return models.PaymentEventUserDropped
	}
	return models.PaymentEventWebhookReceived
}

// ============================================================================
// MANUAL VERIFICATION
// ============================================================================

// VerifyPayment reconciles a booking's latest payment against the gateway's
// authoritative order status. Used when the webhook was lost or delayed.
// A still-active order leaves everything untouched.
func (s *PaymentService) VerifyPayment(ctx context.Context, guestID, bookingID uuid.UUID, meta RequestMeta) (*models.VerifyPaymentResponse, error) {
	startTime := time.Now()

	booking, err := s.bookingRepo.GetByID(bookingID)
	if err != nil {
		return nil, models.NewInternalError("BOOKING_LOOKUP_FAILED", "failed to load booking", err)
	}
	if booking == nil || booking.GuestID != guestID {
		return nil, models.NewNotFoundError("BOOKING_NOT_FOUND", "booking not found")
	}

	payment, err := s.paymentRepo.GetLatestByBookingID(bookingID)
	if err != nil {
		return nil, models.NewInternalError("PAYMENT_LOOKUP_FAILED", "failed to load payments", err)
	}
	if payment == nil {
		return nil, models.NewNotFoundError("PAYMENT_NOT_FOUND", "no payment has been initiated for this booking")
	}

	if payment.IsTerminal() {
		return s.verifyResponse(booking, payment), nil
	}

	order, err := s.gateway.FetchOrder(payment.OrderID)
	if err != nil {
		s.audit.LogError(ctx, &booking.ID, payment.OrderID, err.Error(), "GATEWAY_FETCH_FAILED", meta)
		return nil, models.NewGatewayError("GATEWAY_FETCH_FAILED", "failed to fetch order status from gateway", err)
	}
	s.audit.LogStatusCheck(ctx, booking.ID, payment.OrderID, order.OrderStatus, meta, startTime)

	var kind models.WebhookEventKind
	switch order.OrderStatus {
	case "PAID", "ACTIVE":
		kind = models.EventKindSuccess
	case "EXPIRED", "TERMINATED":
		kind = models.EventKindFailed
	default:
		// still pending at the gateway, nothing to apply
		return s.verifyResponse(booking, payment), nil
	}

	// Record the same identifier kind the webhook path records. The order
	// status endpoint only carries the gateway order id, so a settled order
	// needs a second lookup for its payment id.
	transactionID := order.CfOrderID
	if kind == models.EventKindSuccess {
		if gwPayments, err := s.gateway.FetchOrderPayments(payment.OrderID); err == nil {
			for _, p := range gwPayments {
				if p.PaymentStatus == "SUCCESS" {
					transactionID = p.CfPaymentID
					break
				}
			}
		} else {
			s.logger.WithError(err).WithField("order_id", payment.OrderID).
				Warn("Could not fetch gateway payment id, storing order id instead")
		}
	}

	tx, err := s.paymentRepo.BeginTx()
	if err != nil {
		return nil, models.NewInternalError("TX_BEGIN_FAILED", "failed to start transaction", err)
	}
	defer tx.Rollback()

	// Re-read under lock; a webhook may have landed since the check above
	locked, err := s.paymentRepo.GetByOrderIDForUpdateTx(tx, payment.OrderID)
	if err != nil {
		return nil, models.NewInternalError("PAYMENT_LOOKUP_FAILED", "failed to load payment", err)
	}
	if locked == nil {
		return nil, models.NewNotFoundError("PAYMENT_NOT_FOUND", "payment disappeared during verification")
	}
	if !locked.IsTerminal() {
		bookingUpdated, err := s.applyOutcomeTx(tx, locked, kind, transactionID)
		if err != nil {
			return nil, err
		}
		if err := tx.Commit(); err != nil {
			return nil, models.NewInternalError("TX_COMMIT_FAILED", "failed to commit verification outcome", err)
		}
		if !bookingUpdated && kind == models.EventKindSuccess {
			s.audit.LogError(ctx, &booking.ID, payment.OrderID,
				"payment settled for a booking that is no longer open", "LATE_SETTLEMENT", meta)
			s.logger.WithFields(logrus.Fields{
				"booking_id": booking.ID,
				"order_id":   payment.OrderID,
			}).Warn("Payment settled for a closed booking")
		} else {
			s.logger.WithFields(logrus.Fields{
				"booking_id": booking.ID,
				"order_id":   payment.OrderID,
				"gateway":    order.OrderStatus,
			}).Info("Payment reconciled via manual verification")
		}
	}

	refreshed, err := s.bookingRepo.GetByID(bookingID)
	if err != nil || refreshed == nil {
		return nil, models.NewInternalError("BOOKING_LOOKUP_FAILED", "failed to reload booking", err)
	}
	settled, err := s.paymentRepo.GetByOrderID(payment.OrderID)
	if err != nil || settled == nil {
		return nil, models.NewInternalError("PAYMENT_LOOKUP_FAILED", "failed to reload payment", err)
	}
	return s.verifyResponse(refreshed, settled), nil
}

func (s *PaymentService) verifyResponse(booking *models.Booking, payment *models.Payment) *models.VerifyPaymentResponse {
	return &models.VerifyPaymentResponse{
		BookingID:     booking.ID,
		BookingStatus: booking.Status,
		PaymentStatus: payment.Status,
		OrderID:       payment.OrderID,
	}
}

package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/staynest/booking-backend/internal/database"
	"github.com/staynest/booking-backend/internal/models"
	"github.com/staynest/booking-backend/internal/utils"
)

// AuditService records payment events to the immutable audit trail.
// Audit failures are logged loudly but never fail the operation being
// audited; reconciliation outcomes do not depend on the trail.
type AuditService struct {
	repo   *database.PaymentAuditRepository
	logger *logrus.Logger
}

// NewAuditService creates a new audit service
func NewAuditService(repo *database.PaymentAuditRepository, logger *logrus.Logger) *AuditService {
	return &AuditService{
		repo:   repo,
		logger: logger,
	}
}

// RequestMeta carries client metadata attached to audit entries
type RequestMeta struct {
	IPAddress string
	UserAgent string
	Device    utils.DeviceInfo
}

// LogOrderInitiated records an order-initiation attempt by a guest
func (s *AuditService) LogOrderInitiated(ctx context.Context, bookingID uuid.UUID, orderID string, amount float64, currency string, meta RequestMeta) {
	audit := models.NewPaymentAudit(models.PaymentEventOrderInitiated, models.PaymentSourceUser).
		SetBooking(bookingID).
		SetOrderID(orderID).
		SetMetadata(meta.IPAddress, meta.UserAgent).
		SetRequestPayload(map[string]interface{}{
			"device_type": meta.Device.DeviceType,
			"os":          meta.Device.OS,
			"browser":     meta.Device.Browser,
		})
	audit.ExpectedAmount = &amount
	audit.Currency = &currency

	s.log(ctx, audit)
}

// LogGatewayOrderCreated records a successful gateway create-order call
func (s *AuditService) LogGatewayOrderCreated(ctx context.Context, bookingID uuid.UUID, orderID string, response map[string]interface{}, startTime time.Time) {
	audit := models.NewPaymentAudit(models.PaymentEventGatewayOrderCreated, models.PaymentSourceGatewayAPI).
		SetBooking(bookingID).
		SetOrderID(orderID).
		SetResponsePayload(response).
		SetProcessingTime(startTime)

	s.log(ctx, audit)
}

// LogWebhookReceived records an applied webhook transition
func (s *AuditService) LogWebhookReceived(ctx context.Context, bookingID uuid.UUID, orderID string, eventType models.PaymentEventType, transactionID, rawBody string, expected, received float64, currency string, meta RequestMeta, startTime time.Time) {
	audit := models.NewPaymentAudit(eventType, models.PaymentSourceGatewayWebhook).
		SetBooking(bookingID).
		SetOrderID(orderID).
		SetRawBody(rawBody).
		SetMetadata(meta.IPAddress, meta.UserAgent).
		SetProcessingTime(startTime)
	if transactionID != "" {
		audit.SetTransactionID(transactionID)
	}
	if !audit.SetAmounts(expected, received, currency) {
		s.logger.WithFields(logrus.Fields{
			"order_id": orderID,
			"expected": expected,
			"received": received,
		}).Warn("Webhook amount does not match payment amount")
	}

	s.log(ctx, audit)
}

// LogWebhookDuplicate records an idempotent webhook redelivery
func (s *AuditService) LogWebhookDuplicate(ctx context.Context, bookingID uuid.UUID, orderID, rawBody string, meta RequestMeta, startTime time.Time) {
	audit := models.NewPaymentAudit(models.PaymentEventWebhookReceived, models.PaymentSourceGatewayWebhook).
		SetBooking(bookingID).
		SetOrderID(orderID).
		SetRawBody(rawBody).
		SetMetadata(meta.IPAddress, meta.UserAgent).
		SetProcessingTime(startTime).
		MarkAsDuplicate()

	s.log(ctx, audit)
}

// LogWebhookIgnored records a webhook with an unrecognized event type
func (s *AuditService) LogWebhookIgnored(ctx context.Context, orderID, eventType, rawBody string, meta RequestMeta) {
	audit := models.NewPaymentAudit(models.PaymentEventWebhookIgnored, models.PaymentSourceGatewayWebhook).
		SetOrderID(orderID).
		SetRawBody(rawBody).
		SetMetadata(meta.IPAddress, meta.UserAgent)
	audit.SetPaymentStatus(eventType)

	s.log(ctx, audit)
}

// LogStatusCheck records a manual verification round-trip to the gateway
func (s *AuditService) LogStatusCheck(ctx context.Context, bookingID uuid.UUID, orderID, gatewayStatus string, meta RequestMeta, startTime time.Time) {
	audit := models.NewPaymentAudit(models.PaymentEventStatusCheckResponse, models.PaymentSourceGatewayAPI).
		SetBooking(bookingID).
		SetOrderID(orderID).
		SetPaymentStatus(gatewayStatus).
		SetMetadata(meta.IPAddress, meta.UserAgent).
		SetProcessingTime(startTime)

	s.log(ctx, audit)
}

// LogError records a payment-path failure
func (s *AuditService) LogError(ctx context.Context, bookingID *uuid.UUID, orderID, message, code string, meta RequestMeta) {
	audit := models.NewPaymentAudit(models.PaymentEventError, models.PaymentSourceBackend).
		SetMetadata(meta.IPAddress, meta.UserAgent)
	if bookingID != nil {
		audit.SetBooking(*bookingID)
	}
	if orderID != "" {
		audit.SetOrderID(orderID)
	}
	var codePtr *string
	if code != "" {
		codePtr = &code
	}
	audit.SetError(message, codePtr)

	s.log(ctx, audit)
}

// TrailForOrder returns the audit entries recorded against an order,
// oldest first.
func (s *AuditService) TrailForOrder(ctx context.Context, orderID string) ([]*models.PaymentAudit, error) {
	return s.repo.GetByOrderID(ctx, orderID)
}

// TrailForBooking returns the audit entries recorded against a booking,
// oldest first.
func (s *AuditService) TrailForBooking(ctx context.Context, bookingID uuid.UUID) ([]*models.PaymentAudit, error) {
	return s.repo.GetByBookingID(ctx, bookingID)
}

// AmountMismatches returns the most recent entries where the webhook amount
// disagreed with the recorded payment amount. Operator review feed.
func (s *AuditService) AmountMismatches(ctx context.Context, limit int) ([]*models.PaymentAudit, error) {
	return s.repo.GetAmountMismatches(ctx, limit)
}

// MetaFromRequest builds audit metadata from a request's client details
func MetaFromRequest(ip, userAgent string) RequestMeta {
	return RequestMeta{
		IPAddress: ip,
		UserAgent: userAgent,
		Device:    utils.ParseUserAgent(userAgent),
	}
}

// log writes the entry, swallowing failures after logging them
func (s *AuditService) log(ctx context.Context, audit *models.PaymentAudit) {
	if err := s.repo.Log(ctx, audit); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"event_type": audit.EventType,
			"order_id":   audit.OrderID,
		}).Error("Failed to write payment audit entry")
	}
}

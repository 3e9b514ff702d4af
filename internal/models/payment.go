package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// PaymentStatus represents the state of a gateway-tracked payment
type PaymentStatus string

const (
	PaymentStatusInitiated PaymentStatus = "initiated"
	PaymentStatusPaid      PaymentStatus = "paid"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

// GatewayCashfree is the only gateway currently wired
const GatewayCashfree = "cashfree"

// Payment represents a monetary transaction correlated to one booking.
// OrderID is assigned by this system, unique system-wide, and is the key
// inbound webhooks correlate on. A booking may accumulate several payments
// across retries; only the one named by a webhook is ever acted on.
type Payment struct {
	ID               uuid.UUID     `json:"id" db:"id"`
	BookingID        uuid.UUID     `json:"booking_id" db:"booking_id"`
	Amount           float64       `json:"amount" db:"amount"`
	Gateway          string        `json:"gateway" db:"gateway"`
	OrderID          string        `json:"order_id" db:"order_id"`
	PaymentSessionID *string       `json:"payment_session_id,omitempty" db:"payment_session_id"`
	TransactionID    *string       `json:"transaction_id,omitempty" db:"transaction_id"`
	Status           PaymentStatus `json:"status" db:"status"`
	CreatedAt        time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at" db:"updated_at"`
}

// IsTerminal checks if the payment has reached a state that must not mutate again
func (p *Payment) IsTerminal() bool {
	switch p.Status {
	case PaymentStatusPaid, PaymentStatusFailed, PaymentStatusRefunded:
		return true
	}
	return false
}

// ============================================================================
// WEBHOOK EVENT ENVELOPE
// ============================================================================

// WebhookEventKind is the closed set of recognized gateway event kinds.
// Anything else parses to EventKindUnrecognized and is acknowledged as
// ignored without mutation.
type WebhookEventKind string

const (
	EventKindSuccess      WebhookEventKind = "success"
	EventKindFailed       WebhookEventKind = "failed"
	EventKindUserDropped  WebhookEventKind = "user_dropped"
	EventKindUnrecognized WebhookEventKind = "unrecognized"
)

// ParseWebhookEventKind maps a gateway event-type string to an event kind.
// The gateway sends types like "PAYMENT_SUCCESS" with an optional
// "_WEBHOOK" suffix.
func ParseWebhookEventKind(eventType string) WebhookEventKind {
	switch strings.TrimSuffix(eventType, "_WEBHOOK") {
	case "PAYMENT_SUCCESS":
		return EventKindSuccess
	case "PAYMENT_FAILED":
		return EventKindFailed
	case "PAYMENT_USER_DROPPED":
		return EventKindUserDropped
	default:
		return EventKindUnrecognized
	}
}

// WebhookEnvelope is the JSON body of a gateway webhook delivery
type WebhookEnvelope struct {
	Type string `json:"type"`
	Data struct {
		Order struct {
			OrderID       string  `json:"order_id"`
			OrderAmount   float64 `json:"order_amount"`
			OrderCurrency string  `json:"order_currency"`
		} `json:"order"`
		Payment struct {
			CfPaymentID   string  `json:"cf_payment_id"`
			PaymentAmount float64 `json:"payment_amount"`
		} `json:"payment"`
	} `json:"data"`
}

// WebhookOutcome describes how a verified webhook delivery was resolved
type WebhookOutcome string

const (
	WebhookOutcomeApplied          WebhookOutcome = "ok"
	WebhookOutcomeAlreadyProcessed WebhookOutcome = "already processed"
	WebhookOutcomeIgnored          WebhookOutcome = "ignored"

	// WebhookOutcomeAccepted acknowledges a settlement whose booking had
	// already closed; the payment is recorded and flagged for review.
	WebhookOutcomeAccepted WebhookOutcome = "accepted"
)

// CreateOrderResponse is returned to clients after order initiation
type CreateOrderResponse struct {
	OrderID          string  `json:"order_id"`
	PaymentSessionID string  `json:"payment_session_id"`
	Amount           float64 `json:"amount"`
	Currency         string  `json:"currency"`
}

// VerifyPaymentResponse is returned by the manual verification endpoint
type VerifyPaymentResponse struct {
	BookingID     uuid.UUID     `json:"booking_id"`
	BookingStatus BookingStatus `json:"booking_status"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	OrderID       string        `json:"order_id"`
}

package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// JSONB represents a PostgreSQL JSONB column
type JSONB map[string]interface{}

// Value implements driver.Valuer
func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan implements sql.Scanner
func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("failed to scan JSONB: expected []byte, got %T", value)
	}
	return json.Unmarshal(bytes, j)
}

// PaymentEventType represents the type of payment event
type PaymentEventType string

const (
	PaymentEventOrderInitiated      PaymentEventType = "order_initiated"
	PaymentEventGatewayOrderCreated PaymentEventType = "gateway_order_created"
	PaymentEventWebhookReceived     PaymentEventType = "webhook_received"
	PaymentEventWebhookIgnored      PaymentEventType = "webhook_ignored"
	PaymentEventStatusCheckRequest  PaymentEventType = "status_check_request"
	PaymentEventStatusCheckResponse PaymentEventType = "status_check_response"
	PaymentEventSuccess             PaymentEventType = "payment_success"
	PaymentEventFailed              PaymentEventType = "payment_failed"
	PaymentEventUserDropped         PaymentEventType = "payment_user_dropped"
	PaymentEventBookingConfirmed    PaymentEventType = "booking_confirmed"
	PaymentEventError               PaymentEventType = "error"
)

// PaymentEventSource identifies where the event originated
type PaymentEventSource string

const (
	PaymentSourceBackend        PaymentEventSource = "backend"
	PaymentSourceGatewayWebhook PaymentEventSource = "cashfree_webhook"
	PaymentSourceGatewayAPI     PaymentEventSource = "cashfree_api"
	PaymentSourceUser           PaymentEventSource = "user"
	PaymentSourceSystem         PaymentEventSource = "system"
)

// PaymentAudit represents an immutable audit log entry for payment events
type PaymentAudit struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	BookingID *uuid.UUID `json:"booking_id,omitempty" db:"booking_id"`
	OrderID   *string    `json:"order_id,omitempty" db:"order_id"`

	EventType   PaymentEventType   `json:"event_type" db:"event_type"`
	EventSource PaymentEventSource `json:"event_source" db:"event_source"`

	// Amount tracking for reconciliation checks
	ExpectedAmount *float64 `json:"expected_amount,omitempty" db:"expected_amount"`
	ReceivedAmount *float64 `json:"received_amount,omitempty" db:"received_amount"`
	Currency       *string  `json:"currency,omitempty" db:"currency"`
	AmountsMatch   *bool    `json:"amounts_match,omitempty" db:"amounts_match"`

	PaymentStatus        *string `json:"payment_status,omitempty" db:"payment_status"`
	GatewayTransactionID *string `json:"gateway_transaction_id,omitempty" db:"gateway_transaction_id"`

	// Raw payloads kept verbatim for dispute handling
	RequestPayload  JSONB   `json:"request_payload,omitempty" db:"request_payload"`
	ResponsePayload JSONB   `json:"response_payload,omitempty" db:"response_payload"`
	RawBody         *string `json:"raw_body,omitempty" db:"raw_body"`

	ErrorMessage *string `json:"error_message,omitempty" db:"error_message"`
	ErrorCode    *string `json:"error_code,omitempty" db:"error_code"`

	ProcessingTimeMs *int `json:"processing_time_ms,omitempty" db:"processing_time_ms"`
	IsDuplicate      bool `json:"is_duplicate" db:"is_duplicate"`

	IPAddress *string `json:"ip_address,omitempty" db:"ip_address"`
	UserAgent *string `json:"user_agent,omitempty" db:"user_agent"`

	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	ProcessedAt *time.Time `json:"processed_at,omitempty" db:"processed_at"`
}

// NewPaymentAudit creates a new payment audit entry with required fields
func NewPaymentAudit(eventType PaymentEventType, source PaymentEventSource) *PaymentAudit {
	return &PaymentAudit{
		ID:          uuid.New(),
		EventType:   eventType,
		EventSource: source,
		CreatedAt:   time.Now(),
		IsDuplicate: false,
	}
}

// SetBooking sets the booking ID for the audit
func (pa *PaymentAudit) SetBooking(bookingID uuid.UUID) *PaymentAudit {
	pa.BookingID = &bookingID
	return pa
}

// SetOrderID sets the correlation order ID
func (pa *PaymentAudit) SetOrderID(orderID string) *PaymentAudit {
	pa.OrderID = &orderID
	return pa
}

// SetAmounts sets and verifies amounts, returning whether they match
func (pa *PaymentAudit) SetAmounts(expected, received float64, currency string) bool {
	pa.ExpectedAmount = &expected
	pa.ReceivedAmount = &received
	pa.Currency = &currency

	// Compare with tolerance for floating point
	const tolerance = 0.01
	diff := expected - received
	if diff < 0 {
		diff = -diff
	}
	match := diff < tolerance
	pa.AmountsMatch = &match
	return match
}

// SetPaymentStatus sets the payment status reported by the gateway
func (pa *PaymentAudit) SetPaymentStatus(status string) *PaymentAudit {
	pa.PaymentStatus = &status
	return pa
}

// SetTransactionID sets the gateway transaction ID
func (pa *PaymentAudit) SetTransactionID(txID string) *PaymentAudit {
	pa.GatewayTransactionID = &txID
	return pa
}

// SetError sets error information
func (pa *PaymentAudit) SetError(message string, code *string) *PaymentAudit {
	pa.ErrorMessage = &message
	pa.ErrorCode = code
	return pa
}

// SetRawBody stores the raw request body before parsing
func (pa *PaymentAudit) SetRawBody(body string) *PaymentAudit {
	pa.RawBody = &body
	return pa
}

// SetRequestPayload sets the request payload sent
func (pa *PaymentAudit) SetRequestPayload(payload map[string]interface{}) *PaymentAudit {
	pa.RequestPayload = JSONB(payload)
	return pa
}

// SetResponsePayload sets the response payload received
func (pa *PaymentAudit) SetResponsePayload(payload map[string]interface{}) *PaymentAudit {
	pa.ResponsePayload = JSONB(payload)
	return pa
}

// SetMetadata sets request metadata
func (pa *PaymentAudit) SetMetadata(ip, userAgent string) *PaymentAudit {
	if ip != "" {
		pa.IPAddress = &ip
	}
	if userAgent != "" {
		pa.UserAgent = &userAgent
	}
	return pa
}

// SetProcessingTime calculates and sets processing time
func (pa *PaymentAudit) SetProcessingTime(startTime time.Time) *PaymentAudit {
	durationMs := int(time.Since(startTime).Milliseconds())
	pa.ProcessingTimeMs = &durationMs
	now := time.Now()
	pa.ProcessedAt = &now
	return pa
}

// MarkAsDuplicate marks this event as a redelivery
func (pa *PaymentAudit) MarkAsDuplicate() *PaymentAudit {
	pa.IsDuplicate = true
	return pa
}

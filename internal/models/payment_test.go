package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseWebhookEventKind(t *testing.T) {
	tests := []struct {
		eventType string
		want      WebhookEventKind
	}{
		{"PAYMENT_SUCCESS", EventKindSuccess},
		{"PAYMENT_SUCCESS_WEBHOOK", EventKindSuccess},
		{"PAYMENT_FAILED", EventKindFailed},
		{"PAYMENT_FAILED_WEBHOOK", EventKindFailed},
		{"PAYMENT_USER_DROPPED", EventKindUserDropped},
		{"PAYMENT_USER_DROPPED_WEBHOOK", EventKindUserDropped},
		{"REFUND_STATUS_WEBHOOK", EventKindUnrecognized},
		{"payment_success", EventKindUnrecognized},
		{"", EventKindUnrecognized},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseWebhookEventKind(tt.eventType), "event type %q", tt.eventType)
	}
}

func TestPaymentIsTerminal(t *testing.T) {
	assert.False(t, (&Payment{Status: PaymentStatusInitiated}).IsTerminal())
	assert.True(t, (&Payment{Status: PaymentStatusPaid}).IsTerminal())
	assert.True(t, (&Payment{Status: PaymentStatusFailed}).IsTerminal())
	assert.True(t, (&Payment{Status: PaymentStatusRefunded}).IsTerminal())
}

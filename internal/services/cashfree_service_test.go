package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/staynest/booking-backend/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGateway(secret string) *CashfreeService {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	return NewCashfreeService(&config.PaymentConfig{
		Environment:   "sandbox",
		WebhookSecret: secret,
	}, logger)
}

func TestComputeWebhookSignature(t *testing.T) {
	gateway := newTestGateway("test_webhook_secret")

	timestamp := "1700000000"
	body := []byte(`{"type":"PAYMENT_SUCCESS_WEBHOOK"}`)

	mac := hmac.New(sha256.New, []byte("test_webhook_secret"))
	mac.Write([]byte(timestamp))
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	assert.Equal(t, expected, gateway.ComputeWebhookSignature(timestamp, body))
}

func TestVerifyWebhookSignature(t *testing.T) {
	gateway := newTestGateway("test_webhook_secret")

	timestamp := "1700000000"
	body := []byte(`{"type":"PAYMENT_SUCCESS_WEBHOOK","data":{"order":{"order_id":"booking_x"}}}`)
	signature := gateway.ComputeWebhookSignature(timestamp, body)

	t.Run("Valid", func(t *testing.T) {
		assert.True(t, gateway.VerifyWebhookSignature(timestamp, body, signature))
	})

	t.Run("Tampered Body", func(t *testing.T) {
		tampered := []byte(`{"type":"PAYMENT_SUCCESS_WEBHOOK","data":{"order":{"order_id":"booking_y"}}}`)
		assert.False(t, gateway.VerifyWebhookSignature(timestamp, tampered, signature))
	})

	t.Run("Wrong Timestamp", func(t *testing.T) {
		assert.False(t, gateway.VerifyWebhookSignature("1700000001", body, signature))
	})

	t.Run("Wrong Secret", func(t *testing.T) {
		other := newTestGateway("other_secret")
		assert.False(t, other.VerifyWebhookSignature(timestamp, body, signature))
	})

	t.Run("Empty Signature", func(t *testing.T) {
		assert.False(t, gateway.VerifyWebhookSignature(timestamp, body, ""))
	})

	t.Run("Whitespace Sensitive", func(t *testing.T) {
		// Re-serialized JSON with different spacing must not verify
		spaced := []byte(`{"type": "PAYMENT_SUCCESS_WEBHOOK", "data": {"order": {"order_id": "booking_x"}}}`)
		assert.False(t, gateway.VerifyWebhookSignature(timestamp, spaced, signature))
	})
}

func TestBaseURL(t *testing.T) {
	assert.Equal(t, "https://sandbox.cashfree.com/pg", newTestGateway("s").baseURL())

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	prod := NewCashfreeService(&config.PaymentConfig{Environment: "production"}, logger)
	assert.Equal(t, "https://api.cashfree.com/pg", prod.baseURL())

	unknown := NewCashfreeService(&config.PaymentConfig{Environment: "staging"}, logger)
	assert.Equal(t, "https://sandbox.cashfree.com/pg", unknown.baseURL())
}

func TestIsConfigured(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	assert.False(t, NewCashfreeService(&config.PaymentConfig{}, logger).IsConfigured())
	assert.True(t, NewCashfreeService(&config.PaymentConfig{
		AppID:     "app_id",
		SecretKey: "secret",
	}, logger).IsConfigured())
}

func TestFetchOrder(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	gateway := NewCashfreeService(&config.PaymentConfig{
		Environment: "sandbox",
		AppID:       "app_id",
		SecretKey:   "secret",
	}, logger)

	t.Run("Success", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/orders/booking_x_1a2b3c4d", r.URL.Path)
			assert.Equal(t, "app_id", r.Header.Get("x-client-id"))
			fmt.Fprint(w, `{"cf_order_id":"cf_order_42","order_id":"booking_x_1a2b3c4d","order_amount":480,"order_currency":"INR","order_status":"PAID"}`)
		}))
		defer srv.Close()
		stubGatewayURL(t, srv.URL)

		status, err := gateway.FetchOrder("booking_x_1a2b3c4d")
		require.NoError(t, err)
		assert.Equal(t, "PAID", status.OrderStatus)
		assert.Equal(t, "cf_order_42", status.CfOrderID)
	})

	t.Run("Gateway Error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer srv.Close()
		stubGatewayURL(t, srv.URL)

		_, err := gateway.FetchOrder("booking_x_missing")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "404")
	})

	t.Run("Not Configured", func(t *testing.T) {
		bare := NewCashfreeService(&config.PaymentConfig{Environment: "sandbox"}, logger)
		_, err := bare.FetchOrder("booking_x_1a2b3c4d")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not configured")
	})
}

func TestFetchOrderPayments(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	gateway := NewCashfreeService(&config.PaymentConfig{
		Environment: "sandbox",
		AppID:       "app_id",
		SecretKey:   "secret",
	}, logger)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/orders/booking_x_1a2b3c4d/payments", r.URL.Path)
		fmt.Fprint(w, `[{"cf_payment_id":"cf_txn_987","payment_status":"SUCCESS","payment_amount":480},{"cf_payment_id":"cf_txn_986","payment_status":"FAILED","payment_amount":480}]`)
	}))
	defer srv.Close()
	stubGatewayURL(t, srv.URL)

	payments, err := gateway.FetchOrderPayments("booking_x_1a2b3c4d")
	require.NoError(t, err)
	require.Len(t, payments, 2)
	assert.Equal(t, "cf_txn_987", payments[0].CfPaymentID)
	assert.Equal(t, "SUCCESS", payments[0].PaymentStatus)
}

package services

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/staynest/booking-backend/internal/config"
)

// CashfreeEnvironmentURLs maps environment names to their PG endpoint URLs
var CashfreeEnvironmentURLs = map[string]string{
	"sandbox":    "https://sandbox.cashfree.com/pg",
	"production": "https://api.cashfree.com/pg",
}

// cashfreeAPIVersion is sent on every gateway call
const cashfreeAPIVersion = "2023-08-01"

// CashfreeService handles payment gateway integration with Cashfree PG
type CashfreeService struct {
	config *config.PaymentConfig
	logger *logrus.Logger
	client *http.Client
}

// CashfreeCustomer identifies the payer on a gateway order
type CashfreeCustomer struct {
	CustomerID    string `json:"customer_id"`
	CustomerName  string `json:"customer_name,omitempty"`
	CustomerPhone string `json:"customer_phone"`
	CustomerEmail string `json:"customer_email,omitempty"`
}

// CashfreeOrderMeta carries redirect configuration for an order
type CashfreeOrderMeta struct {
	ReturnURL string `json:"return_url,omitempty"`
}

// CashfreeOrderRequest represents the create-order request sent to Cashfree
type CashfreeOrderRequest struct {
	OrderID         string            `json:"order_id"`
	OrderAmount     float64           `json:"order_amount"`
	OrderCurrency   string            `json:"order_currency"`
	CustomerDetails CashfreeCustomer  `json:"customer_details"`
	OrderMeta       CashfreeOrderMeta `json:"order_meta"`
}

// CashfreeOrderResponse represents the create-order response from Cashfree
type CashfreeOrderResponse struct {
	CfOrderID        string  `json:"cf_order_id"`
	OrderID          string  `json:"order_id"`
	OrderAmount      float64 `json:"order_amount"`
	OrderCurrency    string  `json:"order_currency"`
	OrderStatus      string  `json:"order_status"`
	PaymentSessionID string  `json:"payment_session_id"`
	Message          string  `json:"message,omitempty"`
}

// CashfreeOrderStatus represents the fetch-order response from Cashfree.
// OrderStatus is one of "ACTIVE", "PAID", "EXPIRED", "TERMINATED".
type CashfreeOrderStatus struct {
	CfOrderID     string  `json:"cf_order_id"`
	OrderID       string  `json:"order_id"`
	OrderAmount   float64 `json:"order_amount"`
	OrderCurrency string  `json:"order_currency"`
	OrderStatus   string  `json:"order_status"`
}

// CashfreePaymentDetail is one entry of the fetch-payments response for an
// order. PaymentStatus is "SUCCESS", "FAILED", "PENDING" or "USER_DROPPED".
type CashfreePaymentDetail struct {
	CfPaymentID   string  `json:"cf_payment_id"`
	PaymentStatus string  `json:"payment_status"`
	PaymentAmount float64 `json:"payment_amount"`
}

// NewCashfreeService creates a new Cashfree payment service
func NewCashfreeService(cfg *config.PaymentConfig, logger *logrus.Logger) *CashfreeService {
	return &CashfreeService{
		config: cfg,
		logger: logger,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// IsConfigured reports whether gateway credentials are present
func (s *CashfreeService) IsConfigured() bool {
	return s.config.AppID != "" && s.config.SecretKey != ""
}

// baseURL returns the endpoint for the configured environment
func (s *CashfreeService) baseURL() string {
	url, ok := CashfreeEnvironmentURLs[s.config.Environment]
	if !ok {
		url = CashfreeEnvironmentURLs["sandbox"]
	}
	return url
}

// CreateOrder creates a gateway order and returns the payment session
func (s *CashfreeService) CreateOrder(orderID string, amount float64, currency string, customer CashfreeCustomer) (*CashfreeOrderResponse, error) {
	if !s.IsConfigured() {
		return nil, fmt.Errorf("payment gateway not configured: missing credentials")
	}

	request := &CashfreeOrderRequest{
		OrderID:         orderID,
		OrderAmount:     amount,
		OrderCurrency:   currency,
		CustomerDetails: customer,
		OrderMeta: CashfreeOrderMeta{
			ReturnURL: s.config.ReturnURL,
		},
	}

	body, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal order request: %w", err)
	}

	url := s.baseURL() + "/orders"
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build order request: %w", err)
	}
	s.setHeaders(req)

	s.logger.WithFields(logrus.Fields{
		"order_id": orderID,
		"amount":   amount,
		"currency": currency,
	}).Info("Creating gateway order")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway order request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read gateway response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		s.logger.WithFields(logrus.Fields{
			"order_id":    orderID,
			"status_code": resp.StatusCode,
		}).Error("Gateway rejected order creation")
		return nil, fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}

	var orderResp CashfreeOrderResponse
	if err := json.Unmarshal(respBody, &orderResp); err != nil {
		return nil, fmt.Errorf("failed to parse gateway response: %w", err)
	}

	if orderResp.PaymentSessionID == "" {
		return nil, fmt.Errorf("gateway response missing payment session")
	}

	return &orderResp, nil
}

// FetchOrder queries the gateway for the authoritative status of an order
func (s *CashfreeService) FetchOrder(orderID string) (*CashfreeOrderStatus, error) {
	if !s.IsConfigured() {
		return nil, fmt.Errorf("payment gateway not configured: missing credentials")
	}

	url := fmt.Sprintf("%s/orders/%s", s.baseURL(), orderID)
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build status request: %w", err)
	}
	s.setHeaders(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway status request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read gateway response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}

	var status CashfreeOrderStatus
	if err := json.Unmarshal(respBody, &status); err != nil {
		return nil, fmt.Errorf("failed to parse gateway response: %w", err)
	}

	return &status, nil
}

// FetchOrderPayments lists the payment attempts the gateway recorded against
// an order. Used to recover the gateway payment id when reconciling without
// a webhook.
func (s *CashfreeService) FetchOrderPayments(orderID string) ([]CashfreePaymentDetail, error) {
	if !s.IsConfigured() {
		return nil, fmt.Errorf("payment gateway not configured: missing credentials")
	}

	url := fmt.Sprintf("%s/orders/%s/payments", s.baseURL(), orderID)
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build payments request: %w", err)
	}
	s.setHeaders(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway payments request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read gateway response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}

	var payments []CashfreePaymentDetail
	if err := json.Unmarshal(respBody, &payments); err != nil {
		return nil, fmt.Errorf("failed to parse gateway response: %w", err)
	}

	return payments, nil
}

// setHeaders attaches gateway auth headers
func (s *CashfreeService) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-client-id", s.config.AppID)
	req.Header.Set("x-client-secret", s.config.SecretKey)
	req.Header.Set("x-api-version", cashfreeAPIVersion)
}

// ============================================================================
// WEBHOOK SIGNATURE VERIFICATION
// ============================================================================

// ComputeWebhookSignature computes base64(HMAC-SHA256(secret, timestamp + rawBody)).
// The raw body bytes must be exactly as delivered; re-serialized JSON breaks
// the signature.
func (s *CashfreeService) ComputeWebhookSignature(timestamp string, rawBody []byte) string {
	mac := hmac.New(sha256.New, []byte(s.config.WebhookSecret))
	mac.Write([]byte(timestamp))
	mac.Write(rawBody)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// VerifyWebhookSignature checks a delivered signature in constant time
func (s *CashfreeService) VerifyWebhookSignature(timestamp string, rawBody []byte, signature string) bool {
	expected := s.ComputeWebhookSignature(timestamp, rawBody)
	return hmac.Equal([]byte(expected), []byte(signature))
}

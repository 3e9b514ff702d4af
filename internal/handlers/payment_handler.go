package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/staynest/booking-backend/internal/middleware"
	"github.com/staynest/booking-backend/internal/models"
	"github.com/staynest/booking-backend/internal/services"
	"github.com/staynest/booking-backend/internal/utils"
)

// Webhook signature headers sent by the gateway
const (
	webhookTimestampHeader = "X-Webhook-Timestamp"
	webhookSignatureHeader = "X-Webhook-Signature"
)

// PaymentHandler handles payment initiation, webhooks, and verification
type PaymentHandler struct {
	paymentService *services.PaymentService
	logger         *logrus.Logger
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(paymentService *services.PaymentService, logger *logrus.Logger) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		logger:         logger,
	}
}

func (h *PaymentHandler) requestMeta(c *gin.Context) services.RequestMeta {
	return services.MetaFromRequest(utils.GetRealIP(c), utils.GetUserAgent(c))
}

// ============================================================================
// CREATE ORDER - POST /api/v1/bookings/:booking_id/order
// ============================================================================

// CreateOrder initiates a gateway payment order for a pending booking
// @Summary Initiate payment order
// @Description Creates a Cashfree order and returns the payment session
// @Tags Payments
// @Produce json
// @Param Authorization header string true "Bearer token"
// @Param booking_id path string true "Booking ID"
// @Success 201 {object} models.CreateOrderResponse
// @Failure 400 {object} map[string]interface{} "Booking not in a payable state"
// @Failure 404 {object} map[string]interface{} "Booking not found"
// @Failure 502 {object} map[string]interface{} "Gateway rejected the order"
// @Router /bookings/{booking_id}/order [post]
func (h *PaymentHandler) CreateOrder(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	bookingID, err := uuid.Parse(c.Param("booking_id"))
	if err != nil {
		respondError(c, h.logger, models.NewValidationError("INVALID_BOOKING_ID", "booking id is not a valid UUID"))
		return
	}

	order, err := h.paymentService.InitiateOrder(c.Request.Context(), userCtx.UserID, bookingID, h.requestMeta(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, order)
}

// ============================================================================
// WEBHOOK - POST /api/v1/payments/webhook
// ============================================================================

// Webhook receives gateway payment notifications. The raw body is read before
// any parsing because the signature covers the exact bytes on the wire.
// @Summary Payment gateway webhook
// @Description Verifies the HMAC signature and reconciles the payment outcome
// @Tags Payments
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{} "status: ok | already processed | ignored"
// @Failure 400 {object} map[string]interface{} "Missing or invalid signature, malformed payload"
// @Failure 404 {object} map[string]interface{} "Unknown order"
// @Router /payments/webhook [post]
func (h *PaymentHandler) Webhook(c *gin.Context) {
	rawBody, err := c.GetRawData()
	if err != nil {
		respondError(c, h.logger, models.NewValidationError("MALFORMED_PAYLOAD", "failed to read request body"))
		return
	}

	timestamp := c.GetHeader(webhookTimestampHeader)
	signature := c.GetHeader(webhookSignatureHeader)

	result, err := h.paymentService.ProcessWebhook(c.Request.Context(), timestamp, signature, rawBody, h.requestMeta(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": string(result.Outcome)})
}

// ============================================================================
// VERIFY - POST /api/v1/bookings/:booking_id/payment/verify
// ============================================================================

// Verify reconciles a booking's payment against the gateway's order status
// @Summary Verify payment
// @Description Queries the gateway when the webhook was lost and applies the outcome
// @Tags Payments
// @Produce json
// @Param Authorization header string true "Bearer token"
// @Param booking_id path string true "Booking ID"
// @Success 200 {object} models.VerifyPaymentResponse
// @Failure 404 {object} map[string]interface{} "Booking or payment not found"
// @Failure 502 {object} map[string]interface{} "Gateway unavailable"
// @Router /bookings/{booking_id}/payment/verify [post]
func (h *PaymentHandler) Verify(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	bookingID, err := uuid.Parse(c.Param("booking_id"))
	if err != nil {
		respondError(c, h.logger, models.NewValidationError("INVALID_BOOKING_ID", "booking id is not a valid UUID"))
		return
	}

	result, err := h.paymentService.VerifyPayment(c.Request.Context(), userCtx.UserID, bookingID, h.requestMeta(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

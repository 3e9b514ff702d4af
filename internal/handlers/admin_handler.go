package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/staynest/booking-backend/internal/services"
)

// AdminHandler exposes operational endpoints
type AdminHandler struct {
	cronService  *services.CronService
	auditService *services.AuditService
	logger       *logrus.Logger
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(cronService *services.CronService, auditService *services.AuditService, logger *logrus.Logger) *AdminHandler {
	return &AdminHandler{
		cronService:  cronService,
		auditService: auditService,
		logger:       logger,
	}
}

// RunReaper triggers an immediate reaper sweep
// @Summary Run reaper now
// @Description Cancels abandoned pending bookings and expires orphaned payments
// @Tags Admin
// @Produce json
// @Param Authorization header string true "Bearer token"
// @Success 200 {object} services.ReaperResult
// @Router /admin/reaper/run [post]
func (h *AdminHandler) RunReaper(c *gin.Context) {
	result, err := h.cronService.RunReaperNow()
	if err != nil {
		h.logger.WithError(err).Error("Manual reaper sweep failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{
				"code":    "REAPER_FAILED",
				"message": "reaper sweep failed",
			},
		})
		return
	}

	c.JSON(http.StatusOK, result)
}

// JobStatus reports the scheduler's job table
// @Summary Scheduled job status
// @Tags Admin
// @Produce json
// @Param Authorization header string true "Bearer token"
// @Success 200 {object} map[string]interface{}
// @Router /admin/jobs [get]
func (h *AdminHandler) JobStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.cronService.GetJobStatus())
}

// OrderAuditTrail lists the audit entries recorded against an order
// @Summary Payment audit trail for an order
// @Tags Admin
// @Produce json
// @Param Authorization header string true "Bearer token"
// @Param order_id path string true "Gateway order ID"
// @Success 200 {object} map[string]interface{}
// @Router /admin/audits/orders/{order_id} [get]
func (h *AdminHandler) OrderAuditTrail(c *gin.Context) {
	orderID := c.Param("order_id")

	audits, err := h.auditService.TrailForOrder(c.Request.Context(), orderID)
	if err != nil {
		h.logger.WithError(err).WithField("order_id", orderID).Error("Failed to load audit trail")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{
				"code":    "AUDIT_LOOKUP_FAILED",
				"message": "failed to load audit trail",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order_id": orderID,
		"audits":   audits,
		"count":    len(audits),
	})
}

// BookingAuditTrail lists the audit entries recorded against a booking
// @Summary Payment audit trail for a booking
// @Tags Admin
// @Produce json
// @Param Authorization header string true "Bearer token"
// @Param booking_id path string true "Booking ID"
// @Success 200 {object} map[string]interface{}
// @Router /admin/audits/bookings/{booking_id} [get]
func (h *AdminHandler) BookingAuditTrail(c *gin.Context) {
	bookingID, err := uuid.Parse(c.Param("booking_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"code":    "INVALID_BOOKING_ID",
				"message": "booking id must be a valid UUID",
			},
		})
		return
	}

	audits, err := h.auditService.TrailForBooking(c.Request.Context(), bookingID)
	if err != nil {
		h.logger.WithError(err).WithField("booking_id", bookingID).Error("Failed to load audit trail")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{
				"code":    "AUDIT_LOOKUP_FAILED",
				"message": "failed to load audit trail",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"booking_id": bookingID,
		"audits":     audits,
		"count":      len(audits),
	})
}

// AmountMismatches lists recent audits where webhook and recorded amounts
// disagree
// @Summary Recent amount-mismatch audits
// @Tags Admin
// @Produce json
// @Param Authorization header string true "Bearer token"
// @Param limit query int false "Max entries to return" default(50)
// @Success 200 {object} map[string]interface{}
// @Router /admin/audits/mismatches [get]
func (h *AdminHandler) AmountMismatches(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 1 || limit > 500 {
		limit = 50
	}

	audits, err := h.auditService.AmountMismatches(c.Request.Context(), limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load amount mismatches")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{
				"code":    "AUDIT_LOOKUP_FAILED",
				"message": "failed to load amount mismatches",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"audits": audits,
		"count":  len(audits),
	})
}

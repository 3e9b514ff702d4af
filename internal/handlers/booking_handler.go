package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/staynest/booking-backend/internal/middleware"
	"github.com/staynest/booking-backend/internal/models"
	"github.com/staynest/booking-backend/internal/services"
)

// respondError maps an error to the HTTP error envelope. AppErrors carry
// their own status and code; anything else is a 500.
func respondError(c *gin.Context, logger *logrus.Logger, err error) {
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		if appErr.HTTPStatus() >= http.StatusInternalServerError {
			logger.WithError(appErr).Error("Request failed")
		}
		c.JSON(appErr.HTTPStatus(), gin.H{
			"error": gin.H{
				"code":    appErr.Code,
				"message": appErr.Message,
			},
		})
		return
	}

	logger.WithError(err).Error("Request failed")
	c.JSON(http.StatusInternalServerError, gin.H{
		"error": gin.H{
			"code":    "INTERNAL_ERROR",
			"message": "internal server error",
		},
	})
}

// BookingHandler handles booking lifecycle endpoints
type BookingHandler struct {
	bookingService *services.BookingService
	logger         *logrus.Logger
}

// NewBookingHandler creates a new BookingHandler
func NewBookingHandler(bookingService *services.BookingService, logger *logrus.Logger) *BookingHandler {
	return &BookingHandler{
		bookingService: bookingService,
		logger:         logger,
	}
}

// ============================================================================
// CREATE - POST /api/v1/bookings
// ============================================================================

// Create creates a new booking for the authenticated guest
// @Summary Create booking
// @Description Validates dates and listing policy, prices the stay, and creates a pending booking
// @Tags Bookings
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer token"
// @Param request body models.CreateBookingRequest true "Booking request"
// @Success 201 {object} models.BookingResponse
// @Failure 400 {object} map[string]interface{} "Validation or policy error"
// @Failure 409 {object} map[string]interface{} "Dates unavailable"
// @Router /bookings [post]
func (h *BookingHandler) Create(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	var req models.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, models.NewValidationError("INVALID_BOOKING", "invalid request: "+err.Error()))
		return
	}

	booking, err := h.bookingService.CreateBooking(userCtx.UserID, &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, booking)
}

// ============================================================================
// LIST - GET /api/v1/bookings
// ============================================================================

// List returns the authenticated guest's bookings
// @Summary List bookings
// @Tags Bookings
// @Produce json
// @Param Authorization header string true "Bearer token"
// @Param status query string false "Status filter"
// @Success 200 {object} map[string]interface{}
// @Router /bookings [get]
func (h *BookingHandler) List(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	bookings, err := h.bookingService.ListBookings(userCtx.UserID, c.Query("status"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"bookings": bookings,
		"count":    len(bookings),
	})
}

// ============================================================================
// GET - GET /api/v1/bookings/:booking_id
// ============================================================================

// Get returns one booking with its most recent payment
// @Summary Get booking
// @Tags Bookings
// @Produce json
// @Param Authorization header string true "Bearer token"
// @Param booking_id path string true "Booking ID"
// @Success 200 {object} services.BookingDetail
// @Failure 404 {object} map[string]interface{} "Booking not found"
// @Router /bookings/{booking_id} [get]
func (h *BookingHandler) Get(c *gin.Context) {
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

	detail, err := h.bookingService.GetBookingDetail(userCtx.UserID, bookingID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, detail)
}

// ============================================================================
// CANCEL - POST /api/v1/bookings/:booking_id/cancel
// ============================================================================

// Cancel cancels a pending or confirmed booking
// @Summary Cancel booking
// @Tags Bookings
// @Produce json
// @Param Authorization header string true "Bearer token"
// @Param booking_id path string true "Booking ID"
// @Success 200 {object} models.BookingResponse
// @Failure 400 {object} map[string]interface{} "Booking not cancellable"
// @Failure 404 {object} map[string]interface{} "Booking not found"
// @Router /bookings/{booking_id}/cancel [post]
func (h *BookingHandler) Cancel(c *gin.Context) {
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

	booking, err := h.bookingService.CancelBooking(userCtx.UserID, bookingID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, booking)
}

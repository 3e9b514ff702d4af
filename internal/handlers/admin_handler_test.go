package handlers

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/staynest/booking-backend/internal/database"
	"github.com/staynest/booking-backend/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupAdminTest(t *testing.T) (*gin.Engine, sqlmock.Sqlmock, func()) {
	gin.SetMode(gin.TestMode)

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(mockDB, "sqlmock")

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	bookingRepo := database.NewBookingRepository(sqlxDB)
	paymentRepo := database.NewPaymentRepository(sqlxDB)
	auditRepo := database.NewPaymentAuditRepository(sqlxDB, logger)
	auditService := services.NewAuditService(auditRepo, logger)
	reaperService := services.NewReaperService(bookingRepo, paymentRepo, 30, logger)
	cronService := services.NewCronService(reaperService, "0 */5 * * * *")

	handler := NewAdminHandler(cronService, auditService, logger)

	router := gin.New()
	admin := router.Group("/api/v1/admin")
	{
		admin.POST("/reaper/run", handler.RunReaper)
		admin.GET("/audits/orders/:order_id", handler.OrderAuditTrail)
		admin.GET("/audits/bookings/:booking_id", handler.BookingAuditTrail)
		admin.GET("/audits/mismatches", handler.AmountMismatches)
	}

	cleanup := func() {
		mockDB.Close()
	}

	return router, mock, cleanup
}

func adminGet(router *gin.Engine, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("GET", path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func adminAuditRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "booking_id", "order_id",
		"event_type", "event_source",
		"expected_amount", "received_amount", "currency", "amounts_match",
		"payment_status", "gateway_transaction_id",
		"request_payload", "response_payload", "raw_body",
		"error_message", "error_code",
		"processing_time_ms", "is_duplicate",
		"ip_address", "user_agent",
		"created_at", "processed_at",
	})
}

func TestAdminRunReaper(t *testing.T) {
	router, mock, cleanup := setupAdminTest(t)
	defer cleanup()

	mock.ExpectExec("UPDATE bookings").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("UPDATE payments").
		WillReturnResult(sqlmock.NewResult(0, 1))

	req := httptest.NewRequest("POST", "/api/v1/admin/reaper/run", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"bookings_cancelled":3`)
	assert.Contains(t, w.Body.String(), `"payments_expired":1`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdminOrderAuditTrail(t *testing.T) {
	router, mock, cleanup := setupAdminTest(t)
	defer cleanup()

	orderID := "booking_x_1a2b3c4d"
	rows := adminAuditRows().AddRow(
		uuid.New(), uuid.New(), orderID,
		"order_initiated", "user",
		480.00, nil, "INR", nil,
		nil, nil,
		nil, nil, nil,
		nil, nil,
		nil, false,
		nil, nil,
		time.Now(), nil,
	)

	mock.ExpectQuery("FROM payment_audits").
		WithArgs(orderID).
		WillReturnRows(rows)

	w := adminGet(router, "/api/v1/admin/audits/orders/"+orderID)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":1`)
	assert.Contains(t, w.Body.String(), "order_initiated")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdminBookingAuditTrail_InvalidID(t *testing.T) {
	router, mock, cleanup := setupAdminTest(t)
	defer cleanup()

	w := adminGet(router, "/api/v1/admin/audits/bookings/not-a-uuid")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_BOOKING_ID")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdminAmountMismatches(t *testing.T) {
	router, mock, cleanup := setupAdminTest(t)
	defer cleanup()

	rows := adminAuditRows().AddRow(
		uuid.New(), uuid.New(), "booking_x_deadbeef",
		"webhook_received", "cashfree_webhook",
		480.00, 400.00, "INR", false,
		nil, nil,
		nil, nil, nil,
		nil, nil,
		nil, false,
		nil, nil,
		time.Now(), nil,
	)

	mock.ExpectQuery("FROM payment_audits").
		WithArgs(50).
		WillReturnRows(rows)

	w := adminGet(router, "/api/v1/admin/audits/mismatches")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":1`)
	assert.Contains(t, w.Body.String(), `"amounts_match":false`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

package database

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/staynest/booking-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupPaymentRepoTest(t *testing.T) (*PaymentRepository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	repo := NewPaymentRepository(sqlxDB)

	cleanup := func() {
		db.Close()
	}

	return repo, mock, cleanup
}

func paymentRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "booking_id", "amount", "gateway", "order_id",
		"payment_session_id", "transaction_id", "status",
		"created_at", "updated_at",
	})
}

func TestPaymentCreate(t *testing.T) {
	repo, mock, cleanup := setupPaymentRepoTest(t)
	defer cleanup()

	sessionID := "session_xyz"
	payment := &models.Payment{
		BookingID:        uuid.New(),
		Amount:           480.00,
		Gateway:          models.GatewayCashfree,
		OrderID:          "booking_abc_1a2b3c4d",
		PaymentSessionID: &sessionID,
		Status:           models.PaymentStatusInitiated,
	}

	mock.ExpectExec("INSERT INTO payments").
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.Create(payment)
	assert.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, payment.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByOrderID(t *testing.T) {
	repo, mock, cleanup := setupPaymentRepoTest(t)
	defer cleanup()

	paymentID := uuid.New()
	bookingID := uuid.New()
	orderID := "booking_abc_1a2b3c4d"
	now := time.Now()

	t.Run("Success", func(t *testing.T) {
		rows := paymentRows().AddRow(
			paymentID, bookingID, 480.00, "cashfree", orderID,
			"session_xyz", nil, "initiated", now, now,
		)
		mock.ExpectQuery("FROM payments").
			WithArgs(orderID).
			WillReturnRows(rows)

		payment, err := repo.GetByOrderID(orderID)
		assert.NoError(t, err)
		require.NotNil(t, payment)
		assert.Equal(t, bookingID, payment.BookingID)
		assert.Equal(t, models.PaymentStatusInitiated, payment.Status)
	})

	t.Run("Not Found", func(t *testing.T) {
		mock.ExpectQuery("FROM payments").
			WithArgs(orderID).
			WillReturnRows(paymentRows())

		payment, err := repo.GetByOrderID(orderID)
		assert.NoError(t, err)
		assert.Nil(t, payment)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByOrderIDForUpdateTx(t *testing.T) {
	repo, mock, cleanup := setupPaymentRepoTest(t)
	defer cleanup()

	paymentID := uuid.New()
	bookingID := uuid.New()
	orderID := "booking_abc_1a2b3c4d"
	now := time.Now()

	mock.ExpectBegin()
	rows := paymentRows().AddRow(
		paymentID, bookingID, 480.00, "cashfree", orderID,
		"session_xyz", nil, "initiated", now, now,
	)
	mock.ExpectQuery("FOR UPDATE").
		WithArgs(orderID).
		WillReturnRows(rows)
	mock.ExpectRollback()

	tx, err := repo.BeginTx()
	require.NoError(t, err)
	defer tx.Rollback()

	payment, err := repo.GetByOrderIDForUpdateTx(tx, orderID)
	assert.NoError(t, err)
	require.NotNil(t, payment)
	assert.Equal(t, paymentID, payment.ID)
}

func TestMarkPaidTx(t *testing.T) {
	repo, mock, cleanup := setupPaymentRepoTest(t)
	defer cleanup()

	paymentID := uuid.New()

	t.Run("Success", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("UPDATE payments").
			WithArgs(paymentID, "cf_txn_123").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		tx, err := repo.BeginTx()
		require.NoError(t, err)

		err = repo.MarkPaidTx(tx, paymentID, "cf_txn_123")
		assert.NoError(t, err)
		assert.NoError(t, tx.Commit())
	})

	t.Run("Already Terminal", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("UPDATE payments").
			WithArgs(paymentID, "cf_txn_123").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		tx, err := repo.BeginTx()
		require.NoError(t, err)
		defer tx.Rollback()

		err = repo.MarkPaidTx(tx, paymentID, "cf_txn_123")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not in initiated status")
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkFailedTx(t *testing.T) {
	repo, mock, cleanup := setupPaymentRepoTest(t)
	defer cleanup()

	paymentID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE payments").
		WithArgs(paymentID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := repo.BeginTx()
	require.NoError(t, err)

	err = repo.MarkFailedTx(tx, paymentID)
	assert.NoError(t, err)
	assert.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExpireOrphaned(t *testing.T) {
	repo, mock, cleanup := setupPaymentRepoTest(t)
	defer cleanup()

	cutoff := time.Now().Add(-30 * time.Minute)

	mock.ExpectExec("UPDATE payments").
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 2))

	count, err := repo.ExpireOrphaned(cutoff)
	assert.NoError(t, err)
	assert.Equal(t, int64(2), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

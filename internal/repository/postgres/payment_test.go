package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"telecare-backend/internal/domain"
	"telecare-backend/internal/repository"
)

func TestPaymentRepository_Get(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := NewPaymentRepository(db)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		mock.ExpectQuery("FROM appointment_payments WHERE appointment_id = \\$1").
			WithArgs("appt-1").
			WillReturnRows(sqlmock.NewRows([]string{
				"appointment_id", "sessions_paid_with_balance", "sessions_paid_with_stripe",
				"refunded_units_from_balance", "refunded_units_from_stripe", "unit_price", "currency", "updated_at",
			}).AddRow("appt-1", "2", "2", "0.5", "0", "100.00", "usd", time.Now()))

		p, err := repo.Get(ctx, "appt-1")
		assert.NoError(t, err)
		assert.True(t, p.SessionsPaidWithBalance.Equal(decimal.NewFromInt(2)))
		assert.True(t, p.RefundedUnitsFromBalance.Equal(decimal.RequireFromString("0.5")))
		assert.True(t, p.UnitPrice.Equal(decimal.NewFromInt(100)))
	})

	t.Run("NotFound", func(t *testing.T) {
		mock.ExpectQuery("FROM appointment_payments WHERE appointment_id = \\$1").
			WithArgs("missing").
			WillReturnRows(sqlmock.NewRows([]string{"appointment_id"}))

		_, err := repo.Get(ctx, "missing")
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})
}

func TestPaymentRepository_ApplyRefundDeltas(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := NewPaymentRepository(db)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		mock.ExpectExec("UPDATE appointment_payments SET").
			WithArgs("appt-1", sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.ApplyRefundDeltas(ctx, "appt-1", decimal.NewFromInt(1), decimal.RequireFromString("0.5"))
		assert.NoError(t, err)
	})

	t.Run("MissingLedgerRow", func(t *testing.T) {
		mock.ExpectExec("UPDATE appointment_payments SET").
			WithArgs("missing", sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.ApplyRefundDeltas(ctx, "missing", decimal.Zero, decimal.NewFromInt(1))
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})
}

func TestBalanceRepository_GetBalance(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := NewBalanceRepository(db)
	ctx := context.Background()

	mock.ExpectQuery("SELECT COALESCE\\(SUM\\(amount\\), 0\\), COALESCE\\(SUM\\(units\\), 0\\) FROM balance_transactions").
		WithArgs("patient-1").
		WillReturnRows(sqlmock.NewRows([]string{"amount", "units"}).AddRow("250.50", "2.5"))

	money, units, err := repo.GetBalance(ctx, "patient-1")
	assert.NoError(t, err)
	assert.True(t, money.Equal(decimal.RequireFromString("250.50")))
	assert.True(t, units.Equal(decimal.RequireFromString("2.5")))
}

func TestBalanceRepository_CreateTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := NewBalanceRepository(db)
	ctx := context.Background()

	apptID := "appt-1"
	tx := &domain.BalanceTransaction{
		PatientID:            "patient-1",
		Amount:               decimal.NewFromInt(-400),
		Units:                decimal.NewFromInt(-4),
		Currency:             "usd",
		Type:                 domain.TransactionTypeSessionDebit,
		RelatedAppointmentID: &apptID,
		Description:          "Package purchase",
	}

	mock.ExpectQuery("INSERT INTO balance_transactions").
		WithArgs(tx.PatientID, tx.Amount, tx.Units, tx.Currency, tx.Type, tx.RelatedAppointmentID, tx.Description).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(7), time.Now()))

	err = repo.CreateTransaction(ctx, tx)
	assert.NoError(t, err)
	assert.Equal(t, int64(7), tx.ID)
}

package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/shopspring/decimal"

	"telecare-backend/internal/domain"
	"telecare-backend/internal/repository"
)

type paymentRepository struct {
	db *sql.DB
}

func NewPaymentRepository(db *sql.DB) repository.PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) Get(ctx context.Context, appointmentID string) (*domain.AppointmentPayment, error) {
	query := `SELECT appointment_id, sessions_paid_with_balance, sessions_paid_with_stripe,
	            refunded_units_from_balance, refunded_units_from_stripe, unit_price, currency, updated_at
	          FROM appointment_payments WHERE appointment_id = $1`
	var p domain.AppointmentPayment
	err := r.db.QueryRowContext(ctx, query, appointmentID).Scan(
		&p.AppointmentID, &p.SessionsPaidWithBalance, &p.SessionsPaidWithStripe,
		&p.RefundedUnitsFromBalance, &p.RefundedUnitsFromStripe, &p.UnitPrice, &p.Currency, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *paymentRepository) Upsert(ctx context.Context, payment *domain.AppointmentPayment) error {
	query := `INSERT INTO appointment_payments (appointment_id, sessions_paid_with_balance, sessions_paid_with_stripe,
	            refunded_units_from_balance, refunded_units_from_stripe, unit_price, currency, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
	          ON CONFLICT (appointment_id) DO UPDATE SET
	            sessions_paid_with_balance = EXCLUDED.sessions_paid_with_balance,
	            sessions_paid_with_stripe = EXCLUDED.sessions_paid_with_stripe,
	            refunded_units_from_balance = EXCLUDED.refunded_units_from_balance,
	            refunded_units_from_stripe = EXCLUDED.refunded_units_from_stripe,
	            unit_price = EXCLUDED.unit_price,
	            currency = EXCLUDED.currency,
	            updated_at = NOW()`
	_, err := r.db.ExecContext(ctx, query,
		payment.AppointmentID, payment.SessionsPaidWithBalance, payment.SessionsPaidWithStripe,
		payment.RefundedUnitsFromBalance, payment.RefundedUnitsFromStripe, payment.UnitPrice, payment.Currency)
	return err
}

func (r *paymentRepository) ApplyRefundDeltas(ctx context.Context, appointmentID string, fromBalance, fromStripe decimal.Decimal) error {
	query := `UPDATE appointment_payments SET
	            refunded_units_from_balance = refunded_units_from_balance + $2,
	            refunded_units_from_stripe = refunded_units_from_stripe + $3,
	            updated_at = NOW()
	          WHERE appointment_id = $1`
	res, err := r.db.ExecContext(ctx, query, appointmentID, fromBalance, fromStripe)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

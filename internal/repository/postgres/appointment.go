package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"telecare-backend/internal/domain"
	"telecare-backend/internal/repository"
)

type appointmentRepository struct {
	db *sql.DB
}

func NewAppointmentRepository(db *sql.DB) repository.AppointmentRepository {
	return &appointmentRepository{db: db}
}

const appointmentColumns = `id, patient_id, therapist_id, main_date, recurring, total_sessions, completed_sessions,
	price, currency, status, payment_status, is_stripe_verified, is_balance,
	COALESCE(checkout_session_id, ''), COALESCE(payment_intent_id, ''), COALESCE(notes, ''), created_at, updated_at`

func (r *appointmentRepository) Create(ctx context.Context, appt *domain.Appointment) error {
	recurring, err := json.Marshal(appt.Recurring)
	if err != nil {
		return fmt.Errorf("marshal recurring sessions: %w", err)
	}

	query := `INSERT INTO appointments (id, patient_id, therapist_id, main_date, recurring, total_sessions,
	            completed_sessions, price, currency, status, payment_status, is_stripe_verified, is_balance,
	            checkout_session_id, payment_intent_id, notes, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NULLIF($14, ''), NULLIF($15, ''), $16, NOW(), NOW())`
	_, err = r.db.ExecContext(ctx, query,
		appt.ID, appt.PatientID, appt.TherapistID, appt.MainDate, recurring, appt.TotalSessions,
		appt.CompletedSessions, appt.Price, appt.Currency, appt.Status, appt.PaymentStatus,
		appt.IsStripeVerified, appt.IsBalance, appt.CheckoutSessionID, appt.PaymentIntentID, appt.Notes)
	return err
}

func (r *appointmentRepository) GetByID(ctx context.Context, id string) (*domain.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`
	appt, err := scanAppointment(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return appt, nil
}

func (r *appointmentRepository) Update(ctx context.Context, appt *domain.Appointment) error {
	recurring, err := json.Marshal(appt.Recurring)
	if err != nil {
		return fmt.Errorf("marshal recurring sessions: %w", err)
	}

	query := `UPDATE appointments SET main_date = $2, recurring = $3, total_sessions = $4, completed_sessions = $5,
	            price = $6, currency = $7, status = $8, payment_status = $9, is_stripe_verified = $10, is_balance = $11,
	            checkout_session_id = NULLIF($12, ''), payment_intent_id = NULLIF($13, ''), notes = $14, updated_at = NOW()
	          WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query,
		appt.ID, appt.MainDate, recurring, appt.TotalSessions, appt.CompletedSessions,
		appt.Price, appt.Currency, appt.Status, appt.PaymentStatus, appt.IsStripeVerified, appt.IsBalance,
		appt.CheckoutSessionID, appt.PaymentIntentID, appt.Notes)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

func (r *appointmentRepository) UpdateRecurring(ctx context.Context, id string, recurring []domain.SessionRecord) error {
	raw, err := json.Marshal(recurring)
	if err != nil {
		return fmt.Errorf("marshal recurring sessions: %w", err)
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE appointments SET recurring = $2, updated_at = NOW() WHERE id = $1`, id, raw)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

func (r *appointmentRepository) UpdatePaymentState(ctx context.Context, id string, status domain.PaymentStatus, isStripeVerified, isBalance bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE appointments SET payment_status = $2, is_stripe_verified = $3, is_balance = $4, updated_at = NOW() WHERE id = $1`,
		id, status, isStripeVerified, isBalance)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

func (r *appointmentRepository) ListByPatient(ctx context.Context, patientID, status string, page, pageSize int32) ([]domain.Appointment, int32, error) {
	return r.list(ctx, "patient_id", patientID, status, page, pageSize)
}

func (r *appointmentRepository) ListByTherapist(ctx context.Context, therapistID, status string, page, pageSize int32) ([]domain.Appointment, int32, error) {
	return r.list(ctx, "therapist_id", therapistID, status, page, pageSize)
}

func (r *appointmentRepository) list(ctx context.Context, column, id, status string, page, pageSize int32) ([]domain.Appointment, int32, error) {
	offset := (page - 1) * pageSize

	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE ` + column + ` = $1
	            AND ($2 = '' OR status = $2)
	          ORDER BY created_at DESC LIMIT $3 OFFSET $4`
	rows, err := r.db.QueryContext(ctx, query, id, status, pageSize, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var appts []domain.Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, 0, err
		}
		appts = append(appts, *appt)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var count int32
	countQuery := `SELECT count(*) FROM appointments WHERE ` + column + ` = $1 AND ($2 = '' OR status = $2)`
	if err := r.db.QueryRowContext(ctx, countQuery, id, status).Scan(&count); err != nil {
		return nil, 0, err
	}
	return appts, count, nil
}

func (r *appointmentRepository) ListPendingPayment(ctx context.Context, limit int32) ([]domain.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments
	          WHERE payment_status = 'pending' AND is_balance = false AND is_stripe_verified = false
	            AND (checkout_session_id IS NOT NULL OR payment_intent_id IS NOT NULL)
	          ORDER BY created_at ASC LIMIT $1`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var appts []domain.Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appts = append(appts, *appt)
	}
	return appts, rows.Err()
}

func (r *appointmentRepository) ListBetween(ctx context.Context, from, to time.Time) ([]domain.Appointment, error) {
	// main_date is stored as the RFC 3339 text the booking flow submitted,
	// so the range comparison is lexicographic on the normalized format.
	query := `SELECT ` + appointmentColumns + ` FROM appointments
	          WHERE status IN ('SCHEDULED', 'ACTIVE') AND main_date >= $1 AND main_date < $2
	          ORDER BY main_date ASC`
	rows, err := r.db.QueryContext(ctx, query, from.UTC().Format(time.RFC3339), to.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var appts []domain.Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appts = append(appts, *appt)
	}
	return appts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAppointment(row rowScanner) (*domain.Appointment, error) {
	var appt domain.Appointment
	var recurringRaw []byte
	if err := row.Scan(
		&appt.ID, &appt.PatientID, &appt.TherapistID, &appt.MainDate, &recurringRaw,
		&appt.TotalSessions, &appt.CompletedSessions, &appt.Price, &appt.Currency,
		&appt.Status, &appt.PaymentStatus, &appt.IsStripeVerified, &appt.IsBalance,
		&appt.CheckoutSessionID, &appt.PaymentIntentID, &appt.Notes,
		&appt.CreatedAt, &appt.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if len(recurringRaw) > 0 {
		// SessionRecord.UnmarshalJSON upgrades legacy bare-string entries here.
		if err := json.Unmarshal(recurringRaw, &appt.Recurring); err != nil {
			return nil, fmt.Errorf("decode recurring sessions: %w", err)
		}
		appt.LegacyRecurring = hasLegacyEntries(recurringRaw)
	}
	return &appt, nil
}

// hasLegacyEntries reports whether the raw recurring array still contains
// pre-migration bare-string elements.
func hasLegacyEntries(raw []byte) bool {
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return false
	}
	for _, e := range elems {
		if len(e) > 0 && e[0] == '"' {
			return true
		}
	}
	return false
}

func requireRowAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

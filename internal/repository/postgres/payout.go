package postgres

import (
	"context"
	"database/sql"
	"time"

	"telecare-backend/internal/domain"
	"telecare-backend/internal/repository"
)

type payoutRepository struct {
	db *sql.DB
}

func NewPayoutRepository(db *sql.DB) repository.PayoutRepository {
	return &payoutRepository{db: db}
}

func (r *payoutRepository) Create(ctx context.Context, payout *domain.Payout) error {
	query := `INSERT INTO payouts (id, therapist_id, appointment_id, session_key, amount, percent, currency, status, batch_id, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())`
	_, err := r.db.ExecContext(ctx, query,
		payout.ID, payout.TherapistID, payout.AppointmentID, payout.SessionKey,
		payout.Amount, payout.Percent, payout.Currency, payout.Status, payout.BatchID)
	return err
}

func (r *payoutRepository) ExistsForSession(ctx context.Context, sessionKey string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM payouts WHERE session_key = $1)`
	err := r.db.QueryRowContext(ctx, query, sessionKey).Scan(&exists)
	return exists, err
}

func (r *payoutRepository) ListByTherapist(ctx context.Context, therapistID, status string, page, pageSize int32) ([]domain.Payout, int32, error) {
	offset := (page - 1) * pageSize
	query := `SELECT id, therapist_id, appointment_id, session_key, amount, percent, currency, status, batch_id, created_at, paid_at
	          FROM payouts WHERE therapist_id = $1 AND ($2 = '' OR status = $2)
	          ORDER BY created_at DESC LIMIT $3 OFFSET $4`
	rows, err := r.db.QueryContext(ctx, query, therapistID, status, pageSize, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	payouts, err := scanPayouts(rows)
	if err != nil {
		return nil, 0, err
	}

	var count int32
	countQuery := `SELECT count(*) FROM payouts WHERE therapist_id = $1 AND ($2 = '' OR status = $2)`
	if err := r.db.QueryRowContext(ctx, countQuery, therapistID, status).Scan(&count); err != nil {
		return nil, 0, err
	}
	return payouts, count, nil
}

func (r *payoutRepository) ListByBatch(ctx context.Context, batchID string) ([]domain.Payout, error) {
	query := `SELECT id, therapist_id, appointment_id, session_key, amount, percent, currency, status, batch_id, created_at, paid_at
	          FROM payouts WHERE batch_id = $1 ORDER BY created_at ASC`
	rows, err := r.db.QueryContext(ctx, query, batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPayouts(rows)
}

func (r *payoutRepository) UpdateStatus(ctx context.Context, id string, status domain.PayoutStatus, paidAt *time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE payouts SET status = $2, paid_at = $3 WHERE id = $1`, id, status, paidAt)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

func scanPayouts(rows *sql.Rows) ([]domain.Payout, error) {
	var payouts []domain.Payout
	for rows.Next() {
		var p domain.Payout
		if err := rows.Scan(&p.ID, &p.TherapistID, &p.AppointmentID, &p.SessionKey,
			&p.Amount, &p.Percent, &p.Currency, &p.Status, &p.BatchID, &p.CreatedAt, &p.PaidAt); err != nil {
			return nil, err
		}
		payouts = append(payouts, p)
	}
	return payouts, rows.Err()
}

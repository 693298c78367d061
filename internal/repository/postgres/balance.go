package postgres

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"

	"telecare-backend/internal/domain"
	"telecare-backend/internal/repository"
)

type balanceRepository struct {
	db *sql.DB
}

func NewBalanceRepository(db *sql.DB) repository.BalanceRepository {
	return &balanceRepository{db: db}
}

func (r *balanceRepository) CreateTransaction(ctx context.Context, tx *domain.BalanceTransaction) error {
	query := `INSERT INTO balance_transactions (patient_id, amount, units, currency, type, related_appointment_id, description, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, NOW()) RETURNING id, created_at`
	return r.db.QueryRowContext(ctx, query,
		tx.PatientID, tx.Amount, tx.Units, tx.Currency, tx.Type, tx.RelatedAppointmentID, tx.Description,
	).Scan(&tx.ID, &tx.CreatedAt)
}

func (r *balanceRepository) GetBalance(ctx context.Context, patientID string) (decimal.Decimal, decimal.Decimal, error) {
	var money, units decimal.Decimal
	query := `SELECT COALESCE(SUM(amount), 0), COALESCE(SUM(units), 0) FROM balance_transactions WHERE patient_id = $1`
	err := r.db.QueryRowContext(ctx, query, patientID).Scan(&money, &units)
	return money, units, err
}

func (r *balanceRepository) ListTransactions(ctx context.Context, patientID string, page, pageSize int32) ([]domain.BalanceTransaction, int32, error) {
	offset := (page - 1) * pageSize
	query := `SELECT id, patient_id, amount, units, currency, type, related_appointment_id, COALESCE(description, ''), created_at
	          FROM balance_transactions WHERE patient_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.db.QueryContext(ctx, query, patientID, pageSize, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var txs []domain.BalanceTransaction
	for rows.Next() {
		var tx domain.BalanceTransaction
		if err := rows.Scan(&tx.ID, &tx.PatientID, &tx.Amount, &tx.Units, &tx.Currency, &tx.Type,
			&tx.RelatedAppointmentID, &tx.Description, &tx.CreatedAt); err != nil {
			return nil, 0, err
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var count int32
	countQuery := `SELECT count(*) FROM balance_transactions WHERE patient_id = $1`
	if err := r.db.QueryRowContext(ctx, countQuery, patientID).Scan(&count); err != nil {
		return nil, 0, err
	}
	return txs, count, nil
}

package postgres

import (
	"database/sql"

	"telecare-backend/internal/repository"

	_ "github.com/lib/pq"
)

type Store struct {
	db *sql.DB
	repository.UserRepository
	repository.AppointmentRepository
	repository.PaymentRepository
	repository.BalanceRepository
	repository.PayoutRepository
	repository.NotificationRepository
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:                      db,
		UserRepository:          NewUserRepository(db),
		AppointmentRepository:   NewAppointmentRepository(db),
		PaymentRepository:       NewPaymentRepository(db),
		BalanceRepository:       NewBalanceRepository(db),
		PayoutRepository:        NewPayoutRepository(db),
		NotificationRepository:  NewNotificationRepository(db),
	}
}

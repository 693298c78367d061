package repository

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"telecare-backend/internal/domain"
)

var ErrNotFound = errors.New("not found")

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
	ListTherapists(ctx context.Context, page, pageSize int32) ([]domain.User, int32, error)
}

type AppointmentRepository interface {
	Create(ctx context.Context, appt *domain.Appointment) error
	GetByID(ctx context.Context, id string) (*domain.Appointment, error)
	Update(ctx context.Context, appt *domain.Appointment) error

	// UpdateRecurring persists the structured session list, used both for
	// session status changes and for the one-time lazy upgrade of legacy
	// string entries.
	UpdateRecurring(ctx context.Context, id string, recurring []domain.SessionRecord) error
	UpdatePaymentState(ctx context.Context, id string, status domain.PaymentStatus, isStripeVerified, isBalance bool) error

	ListByPatient(ctx context.Context, patientID, status string, page, pageSize int32) ([]domain.Appointment, int32, error)
	ListByTherapist(ctx context.Context, therapistID, status string, page, pageSize int32) ([]domain.Appointment, int32, error)
	ListPendingPayment(ctx context.Context, limit int32) ([]domain.Appointment, error)
	ListBetween(ctx context.Context, from, to time.Time) ([]domain.Appointment, error)
}

type PaymentRepository interface {
	Get(ctx context.Context, appointmentID string) (*domain.AppointmentPayment, error)
	Upsert(ctx context.Context, payment *domain.AppointmentPayment) error

	// ApplyRefundDeltas bumps the refunded-unit counters. Counters only grow;
	// the guard against exceeding paid units lives in the allocator.
	ApplyRefundDeltas(ctx context.Context, appointmentID string, fromBalance, fromStripe decimal.Decimal) error
}

type BalanceRepository interface {
	CreateTransaction(ctx context.Context, tx *domain.BalanceTransaction) error
	GetBalance(ctx context.Context, patientID string) (decimal.Decimal, decimal.Decimal, error) // money, units
	ListTransactions(ctx context.Context, patientID string, page, pageSize int32) ([]domain.BalanceTransaction, int32, error)
}

type PayoutRepository interface {
	Create(ctx context.Context, payout *domain.Payout) error
	ExistsForSession(ctx context.Context, sessionKey string) (bool, error)
	ListByTherapist(ctx context.Context, therapistID, status string, page, pageSize int32) ([]domain.Payout, int32, error)
	ListByBatch(ctx context.Context, batchID string) ([]domain.Payout, error)
	UpdateStatus(ctx context.Context, id string, status domain.PayoutStatus, paidAt *time.Time) error
}

type NotificationRepository interface {
	Create(ctx context.Context, note *domain.Notification) error
	List(ctx context.Context, userID string, limit, offset int32) ([]domain.Notification, int32, error)
	MarkAsRead(ctx context.Context, id int64, userID string) error
}

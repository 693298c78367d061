package service

import (
	"context"

	"github.com/shopspring/decimal"

	"telecare-backend/internal/billing"
	"telecare-backend/internal/domain"
)

type AuthService interface {
	Signup(ctx context.Context, name, email, phone, password string, role domain.UserRole) (*domain.User, string, string, error) // user, access, refresh
	Login(ctx context.Context, email, password string) (*domain.User, string, string, error)
	Refresh(ctx context.Context, refreshToken string) (string, string, error)
}

type BookAppointmentRequest struct {
	PatientID         string
	TherapistID       string
	MainDate          string
	RecurringDates    []string
	TotalSessions     int
	Price             decimal.Decimal
	Currency          string
	CheckoutSessionID string
	PaymentIntentID   string
	Notes             string
}

type AppointmentService interface {
	BookAppointment(ctx context.Context, req BookAppointmentRequest) (*domain.Appointment, []domain.Session, error)
	GetAppointment(ctx context.Context, requesterID string, role domain.UserRole, id string) (*domain.Appointment, []domain.Session, error)
	UpdateSessionStatus(ctx context.Context, therapistID, appointmentID, sessionKey string, status domain.SessionStatus) ([]domain.Session, error)
	CancelAppointment(ctx context.Context, patientID, appointmentID string, policy billing.RefundPolicy) (*domain.RefundResult, error)
	ListByPatient(ctx context.Context, patientID, status string, page, pageSize int32) ([]domain.Appointment, int32, error)
	ListByTherapist(ctx context.Context, therapistID, status string, page, pageSize int32) ([]domain.Appointment, int32, error)
}

type PaymentService interface {
	// VerifyAppointment resolves and, when newly confirmed, persists the
	// payment state of one appointment.
	VerifyAppointment(ctx context.Context, appointmentID string) (billing.Verification, error)

	// VerifyAppointments batch-verifies; out[i] corresponds to appts[i].
	VerifyAppointments(ctx context.Context, appts []domain.Appointment) []billing.Verification

	// RecordWebhookConfirmation caches an asynchronous gateway confirmation
	// on the matching appointment.
	RecordWebhookConfirmation(ctx context.Context, appointmentID, paymentIntentID string) error

	// PurchaseWithBalance pays for an appointment from the patient's prepaid
	// credit ledger.
	PurchaseWithBalance(ctx context.Context, patientID, appointmentID string) error
}

type RefundService interface {
	// RefundAppointment executes one refund request end to end: idempotency
	// claim, per-appointment lock, allocation, ledger deltas, gateway refund.
	// slotID narrows the request to a single session key; empty means the
	// whole series.
	RefundAppointment(ctx context.Context, appointmentID string, policy billing.RefundPolicy, slotID string) (*domain.RefundResult, error)
}

type PayoutRunSummary struct {
	BatchID     string          `json:"batch_id"`
	PayoutCount int             `json:"payout_count"`
	Total       decimal.Decimal `json:"total"`
}

type PayoutService interface {
	RunPayouts(ctx context.Context) (*PayoutRunSummary, error)
	ListPayouts(ctx context.Context, therapistID, status string, page, pageSize int32) ([]domain.Payout, int32, error)
	MarkPayoutPaid(ctx context.Context, payoutID string) error
}

type BalanceService interface {
	GetBalance(ctx context.Context, patientID string) (decimal.Decimal, decimal.Decimal, error) // money, units
	GetTransactions(ctx context.Context, patientID string, page, pageSize int32) ([]domain.BalanceTransaction, int32, error)
}

type NotificationService interface {
	Notify(ctx context.Context, userID string, kind domain.NotificationType, title, message string, attrs map[string]string) error
	List(ctx context.Context, userID string, limit, offset int32) ([]domain.Notification, int32, error)
	MarkAsRead(ctx context.Context, id int64, userID string) error
}

type EmailService interface {
	SendBookingConfirmation(ctx context.Context, email, name string, appt *domain.Appointment) error
	SendRefundNotice(ctx context.Context, email, name string, result domain.RefundResult, currency string) error
	SendPayoutNotice(ctx context.Context, email, name string, amount decimal.Decimal, currency string) error
	SendSessionReminder(ctx context.Context, email, name, date string) error
}

// IdempotencyStore guards refund processing against duplicate requests and
// serializes concurrent attempts per appointment.
type IdempotencyStore interface {
	Claim(ctx context.Context, key string) error
	Release(ctx context.Context, key string) error
	WithAppointmentLock(ctx context.Context, appointmentID string, fn func(ctx context.Context) error) error
}

package service

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"telecare-backend/internal/domain"
	"telecare-backend/internal/idempotency"
)

type MockAppointmentRepo struct{ mock.Mock }

func (m *MockAppointmentRepo) Create(ctx context.Context, appt *domain.Appointment) error {
	return m.Called(ctx, appt).Error(0)
}

func (m *MockAppointmentRepo) GetByID(ctx context.Context, id string) (*domain.Appointment, error) {
	args := m.Called(ctx, id)
	if appt, ok := args.Get(0).(*domain.Appointment); ok {
		return appt, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAppointmentRepo) Update(ctx context.Context, appt *domain.Appointment) error {
	return m.Called(ctx, appt).Error(0)
}

func (m *MockAppointmentRepo) UpdateRecurring(ctx context.Context, id string, recurring []domain.SessionRecord) error {
	return m.Called(ctx, id, recurring).Error(0)
}

func (m *MockAppointmentRepo) UpdatePaymentState(ctx context.Context, id string, status domain.PaymentStatus, isStripeVerified, isBalance bool) error {
	return m.Called(ctx, id, status, isStripeVerified, isBalance).Error(0)
}

func (m *MockAppointmentRepo) ListByPatient(ctx context.Context, patientID, status string, page, pageSize int32) ([]domain.Appointment, int32, error) {
	args := m.Called(ctx, patientID, status, page, pageSize)
	return args.Get(0).([]domain.Appointment), args.Get(1).(int32), args.Error(2)
}

func (m *MockAppointmentRepo) ListByTherapist(ctx context.Context, therapistID, status string, page, pageSize int32) ([]domain.Appointment, int32, error) {
	args := m.Called(ctx, therapistID, status, page, pageSize)
	return args.Get(0).([]domain.Appointment), args.Get(1).(int32), args.Error(2)
}

func (m *MockAppointmentRepo) ListPendingPayment(ctx context.Context, limit int32) ([]domain.Appointment, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]domain.Appointment), args.Error(1)
}

func (m *MockAppointmentRepo) ListBetween(ctx context.Context, from, to time.Time) ([]domain.Appointment, error) {
	args := m.Called(ctx, from, to)
	return args.Get(0).([]domain.Appointment), args.Error(1)
}

type MockPaymentRepo struct{ mock.Mock }

func (m *MockPaymentRepo) Get(ctx context.Context, appointmentID string) (*domain.AppointmentPayment, error) {
	args := m.Called(ctx, appointmentID)
	if p, ok := args.Get(0).(*domain.AppointmentPayment); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPaymentRepo) Upsert(ctx context.Context, payment *domain.AppointmentPayment) error {
	return m.Called(ctx, payment).Error(0)
}

func (m *MockPaymentRepo) ApplyRefundDeltas(ctx context.Context, appointmentID string, fromBalance, fromStripe decimal.Decimal) error {
	return m.Called(ctx, appointmentID, fromBalance, fromStripe).Error(0)
}

type MockBalanceRepo struct{ mock.Mock }

func (m *MockBalanceRepo) CreateTransaction(ctx context.Context, tx *domain.BalanceTransaction) error {
	return m.Called(ctx, tx).Error(0)
}

func (m *MockBalanceRepo) GetBalance(ctx context.Context, patientID string) (decimal.Decimal, decimal.Decimal, error) {
	args := m.Called(ctx, patientID)
	return args.Get(0).(decimal.Decimal), args.Get(1).(decimal.Decimal), args.Error(2)
}

func (m *MockBalanceRepo) ListTransactions(ctx context.Context, patientID string, page, pageSize int32) ([]domain.BalanceTransaction, int32, error) {
	args := m.Called(ctx, patientID, page, pageSize)
	return args.Get(0).([]domain.BalanceTransaction), args.Get(1).(int32), args.Error(2)
}

type MockUserRepo struct{ mock.Mock }

func (m *MockUserRepo) Create(ctx context.Context, user *domain.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if u, ok := args.Get(0).(*domain.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if u, ok := args.Get(0).(*domain.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserRepo) Update(ctx context.Context, user *domain.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUserRepo) ListTherapists(ctx context.Context, page, pageSize int32) ([]domain.User, int32, error) {
	args := m.Called(ctx, page, pageSize)
	return args.Get(0).([]domain.User), args.Get(1).(int32), args.Error(2)
}

type MockPayoutRepo struct{ mock.Mock }

func (m *MockPayoutRepo) Create(ctx context.Context, payout *domain.Payout) error {
	return m.Called(ctx, payout).Error(0)
}

func (m *MockPayoutRepo) ExistsForSession(ctx context.Context, sessionKey string) (bool, error) {
	args := m.Called(ctx, sessionKey)
	return args.Bool(0), args.Error(1)
}

func (m *MockPayoutRepo) ListByTherapist(ctx context.Context, therapistID, status string, page, pageSize int32) ([]domain.Payout, int32, error) {
	args := m.Called(ctx, therapistID, status, page, pageSize)
	return args.Get(0).([]domain.Payout), args.Get(1).(int32), args.Error(2)
}

func (m *MockPayoutRepo) ListByBatch(ctx context.Context, batchID string) ([]domain.Payout, error) {
	args := m.Called(ctx, batchID)
	return args.Get(0).([]domain.Payout), args.Error(1)
}

func (m *MockPayoutRepo) UpdateStatus(ctx context.Context, id string, status domain.PayoutStatus, paidAt *time.Time) error {
	return m.Called(ctx, id, status, paidAt).Error(0)
}

type MockNotificationRepo struct{ mock.Mock }

func (m *MockNotificationRepo) Create(ctx context.Context, note *domain.Notification) error {
	return m.Called(ctx, note).Error(0)
}

func (m *MockNotificationRepo) List(ctx context.Context, userID string, limit, offset int32) ([]domain.Notification, int32, error) {
	args := m.Called(ctx, userID, limit, offset)
	return args.Get(0).([]domain.Notification), args.Get(1).(int32), args.Error(2)
}

func (m *MockNotificationRepo) MarkAsRead(ctx context.Context, id int64, userID string) error {
	return m.Called(ctx, id, userID).Error(0)
}

// memIdemStore is an in-memory IdempotencyStore for tests: real claim
// semantics without redis.
type memIdemStore struct {
	mu     sync.Mutex
	keys   map[string]bool
	locked map[string]bool
}

func newMemIdemStore() *memIdemStore {
	return &memIdemStore{keys: map[string]bool{}, locked: map[string]bool{}}
}

func (s *memIdemStore) Claim(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.keys[key] {
		return idempotency.ErrDuplicate
	}
	s.keys[key] = true
	return nil
}

func (s *memIdemStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keys, key)
	return nil
}

func (s *memIdemStore) WithAppointmentLock(ctx context.Context, appointmentID string, fn func(ctx context.Context) error) error {
	s.mu.Lock()
	s.locked[appointmentID] = true
	s.mu.Unlock()
	return fn(ctx)
}

func (s *memIdemStore) claimed(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.keys[key]
}

type stubNotifier struct{ notes []domain.NotificationType }

func (s *stubNotifier) Notify(_ context.Context, _ string, kind domain.NotificationType, _, _ string, _ map[string]string) error {
	s.notes = append(s.notes, kind)
	return nil
}

func (s *stubNotifier) List(context.Context, string, int32, int32) ([]domain.Notification, int32, error) {
	return nil, 0, nil
}

func (s *stubNotifier) MarkAsRead(context.Context, int64, string) error { return nil }

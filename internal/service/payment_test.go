package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"telecare-backend/internal/billing"
	"telecare-backend/internal/domain"
	"telecare-backend/internal/gateway"
	"telecare-backend/internal/repository"
)

// TestPaymentService_VerifyAppointment_PersistsLiveConfirmation verifies that
// a paid result from a live gateway lookup is cached on the appointment so the
// next check takes the webhook path, and that a ledger row is established.
func TestPaymentService_VerifyAppointment_PersistsLiveConfirmation(t *testing.T) {
	ctx := context.Background()
	apptRepo := new(MockAppointmentRepo)
	paymentRepo := new(MockPaymentRepo)
	balanceRepo := new(MockBalanceRepo)

	gw := gateway.NewMockGatewayService()
	gw.SetStatus("cs_123", billing.GatewayStatusPaid)
	svc := NewPaymentService(apptRepo, paymentRepo, balanceRepo, billing.NewVerifier(gw))

	appt := &domain.Appointment{
		ID:                "appt-1",
		PatientID:         "patient-1",
		TotalSessions:     4,
		Price:             decimal.NewFromInt(400),
		Currency:          "usd",
		PaymentStatus:     domain.PaymentStatusPending,
		CheckoutSessionID: "cs_123",
	}
	apptRepo.On("GetByID", ctx, "appt-1").Return(appt, nil).Once()
	apptRepo.On("UpdatePaymentState", ctx, "appt-1", domain.PaymentStatusCompleted, true, false).Return(nil).Once()
	paymentRepo.On("Get", ctx, "appt-1").Return(nil, repository.ErrNotFound).Once()
	paymentRepo.On("Upsert", ctx, mock.MatchedBy(func(p *domain.AppointmentPayment) bool {
		return p.SessionsPaidWithStripe.Equal(decimal.NewFromInt(4)) &&
			p.SessionsPaidWithBalance.IsZero() &&
			p.UnitPrice.Equal(decimal.NewFromInt(100))
	})).Return(nil).Once()

	res, err := svc.VerifyAppointment(ctx, "appt-1")
	assert.NoError(t, err)
	assert.True(t, res.IsPaid)
	assert.Equal(t, billing.SourceStripe, res.Source)
	apptRepo.AssertExpectations(t)
	paymentRepo.AssertExpectations(t)
}

// An already webhook-verified appointment must not hit the gateway or rewrite
// its state.
func TestPaymentService_VerifyAppointment_WebhookShortCircuits(t *testing.T) {
	ctx := context.Background()
	apptRepo := new(MockAppointmentRepo)
	paymentRepo := new(MockPaymentRepo)
	balanceRepo := new(MockBalanceRepo)

	svc := NewPaymentService(apptRepo, paymentRepo, balanceRepo, billing.NewVerifier(gateway.NewMockGatewayService()))

	appt := &domain.Appointment{
		ID:               "appt-1",
		TotalSessions:    1,
		Price:            decimal.NewFromInt(100),
		PaymentStatus:    domain.PaymentStatusCompleted,
		IsStripeVerified: true,
	}
	apptRepo.On("GetByID", ctx, "appt-1").Return(appt, nil).Once()

	res, err := svc.VerifyAppointment(ctx, "appt-1")
	assert.NoError(t, err)
	assert.True(t, res.IsPaid)
	assert.Equal(t, billing.SourceWebhook, res.Source)
	apptRepo.AssertNotCalled(t, "UpdatePaymentState", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPaymentService_PurchaseWithBalance(t *testing.T) {
	ctx := context.Background()

	newSvc := func() (PaymentService, *MockAppointmentRepo, *MockPaymentRepo, *MockBalanceRepo) {
		apptRepo := new(MockAppointmentRepo)
		paymentRepo := new(MockPaymentRepo)
		balanceRepo := new(MockBalanceRepo)
		svc := NewPaymentService(apptRepo, paymentRepo, balanceRepo, billing.NewVerifier(gateway.NewMockGatewayService()))
		return svc, apptRepo, paymentRepo, balanceRepo
	}

	appt := func() *domain.Appointment {
		return &domain.Appointment{
			ID:            "appt-1",
			PatientID:     "patient-1",
			TotalSessions: 4,
			Price:         decimal.NewFromInt(400),
			Currency:      "usd",
			PaymentStatus: domain.PaymentStatusPending,
		}
	}

	t.Run("Success", func(t *testing.T) {
		svc, apptRepo, paymentRepo, balanceRepo := newSvc()
		apptRepo.On("GetByID", ctx, "appt-1").Return(appt(), nil).Once()
		balanceRepo.On("GetBalance", ctx, "patient-1").
			Return(decimal.NewFromInt(500), decimal.NewFromInt(5), nil).Once()
		balanceRepo.On("CreateTransaction", ctx, mock.MatchedBy(func(tx *domain.BalanceTransaction) bool {
			return tx.Type == domain.TransactionTypeSessionDebit &&
				tx.Amount.Equal(decimal.NewFromInt(-400)) &&
				tx.Units.Equal(decimal.NewFromInt(-4))
		})).Return(nil).Once()
		apptRepo.On("UpdatePaymentState", ctx, "appt-1", domain.PaymentStatusCompleted, false, true).Return(nil).Once()
		paymentRepo.On("Get", ctx, "appt-1").Return(nil, repository.ErrNotFound).Once()
		paymentRepo.On("Upsert", ctx, mock.MatchedBy(func(p *domain.AppointmentPayment) bool {
			return p.SessionsPaidWithBalance.Equal(decimal.NewFromInt(4))
		})).Return(nil).Once()

		assert.NoError(t, svc.PurchaseWithBalance(ctx, "patient-1", "appt-1"))
		balanceRepo.AssertExpectations(t)
		apptRepo.AssertExpectations(t)
	})

	t.Run("InsufficientBalance", func(t *testing.T) {
		svc, apptRepo, _, balanceRepo := newSvc()
		apptRepo.On("GetByID", ctx, "appt-1").Return(appt(), nil).Once()
		balanceRepo.On("GetBalance", ctx, "patient-1").
			Return(decimal.NewFromInt(100), decimal.NewFromInt(1), nil).Once()

		err := svc.PurchaseWithBalance(ctx, "patient-1", "appt-1")
		assert.ErrorIs(t, err, ErrInsufficientBalance)
		balanceRepo.AssertNotCalled(t, "CreateTransaction", mock.Anything, mock.Anything)
	})

	t.Run("WrongPatient", func(t *testing.T) {
		svc, apptRepo, _, _ := newSvc()
		apptRepo.On("GetByID", ctx, "appt-1").Return(appt(), nil).Once()

		err := svc.PurchaseWithBalance(ctx, "someone-else", "appt-1")
		assert.ErrorIs(t, err, ErrForbidden)
	})
}

func TestPaymentService_VerifyAppointments_OrderPreserved(t *testing.T) {
	ctx := context.Background()
	apptRepo := new(MockAppointmentRepo)
	paymentRepo := new(MockPaymentRepo)
	balanceRepo := new(MockBalanceRepo)

	gw := gateway.NewMockGatewayService()
	svc := NewPaymentService(apptRepo, paymentRepo, balanceRepo, billing.NewVerifier(gw))

	appts := []domain.Appointment{
		{ID: "a", IsBalance: true, TotalSessions: 1, Price: decimal.NewFromInt(100)},
		{ID: "b", PaymentStatus: domain.PaymentStatusPending, TotalSessions: 1, Price: decimal.NewFromInt(100)},
		{ID: "c", IsStripeVerified: true, TotalSessions: 1, Price: decimal.NewFromInt(100)},
	}

	out := svc.VerifyAppointments(ctx, appts)
	assert.Len(t, out, 3)
	assert.Equal(t, billing.SourceBalance, out[0].Source)
	assert.Equal(t, billing.SourceNone, out[1].Source)
	assert.Equal(t, billing.SourceWebhook, out[2].Source)
}

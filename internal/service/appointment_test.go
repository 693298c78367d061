package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"telecare-backend/internal/billing"
	"telecare-backend/internal/domain"
)

func TestAppointmentService_BookAppointment(t *testing.T) {
	ctx := context.Background()

	newSvc := func() (AppointmentService, *MockAppointmentRepo, *MockUserRepo, *stubNotifier) {
		apptRepo := new(MockAppointmentRepo)
		userRepo := new(MockUserRepo)
		notifier := &stubNotifier{}
		svc := NewAppointmentService(apptRepo, userRepo, nil, notifier, NewNoopEmailService())
		return svc, apptRepo, userRepo, notifier
	}

	req := func() BookAppointmentRequest {
		return BookAppointmentRequest{
			PatientID:      "patient-1",
			TherapistID:    "therapist-1",
			MainDate:       "2026-02-02T10:00:00Z",
			RecurringDates: []string{"2026-02-09T10:00:00Z", "2026-02-16T10:00:00Z"},
			TotalSessions:  3,
			Price:          decimal.NewFromInt(300),
			Currency:       "usd",
		}
	}

	t.Run("Success", func(t *testing.T) {
		svc, apptRepo, userRepo, notifier := newSvc()
		userRepo.On("GetByID", ctx, "therapist-1").
			Return(&domain.User{ID: "therapist-1", Role: domain.UserRoleTherapist}, nil).Once()
		apptRepo.On("Create", ctx, mock.MatchedBy(func(a *domain.Appointment) bool {
			return a.ID != "" &&
				len(a.Recurring) == 2 &&
				a.Status == domain.AppointmentStatusScheduled &&
				a.PaymentStatus == domain.PaymentStatusPending
		})).Return(nil).Once()
		userRepo.On("GetByID", ctx, "patient-1").
			Return(&domain.User{ID: "patient-1", Email: "p@example.com", Name: "Pat"}, nil).Once()

		appt, sessions, err := svc.BookAppointment(ctx, req())
		assert.NoError(t, err)
		assert.Len(t, sessions, 3)
		assert.Equal(t, appt.ID+"-0", sessions[0].Key)
		assert.Equal(t, "2026-02-02T10:00:00Z", sessions[0].Date)
		assert.True(t, sessions[1].Price.Equal(decimal.NewFromInt(100)))
		assert.Equal(t, []domain.NotificationType{domain.NotificationTypeBookingConfirmed}, notifier.notes)
		apptRepo.AssertExpectations(t)
	})

	t.Run("RecurringCountMismatch", func(t *testing.T) {
		svc, _, _, _ := newSvc()
		r := req()
		r.RecurringDates = r.RecurringDates[:1]
		_, _, err := svc.BookAppointment(ctx, r)
		assert.ErrorIs(t, err, ErrInvalidBooking)
	})

	t.Run("NotATherapist", func(t *testing.T) {
		svc, _, userRepo, _ := newSvc()
		userRepo.On("GetByID", ctx, "therapist-1").
			Return(&domain.User{ID: "therapist-1", Role: domain.UserRolePatient}, nil).Once()
		_, _, err := svc.BookAppointment(ctx, req())
		assert.ErrorIs(t, err, ErrInvalidBooking)
	})
}

// TestAppointmentService_GetAppointment_PersistsLegacyUpgrade verifies the
// one-time write-back of upgraded bare-string session entries.
func TestAppointmentService_GetAppointment_PersistsLegacyUpgrade(t *testing.T) {
	ctx := context.Background()
	apptRepo := new(MockAppointmentRepo)
	userRepo := new(MockUserRepo)
	svc := NewAppointmentService(apptRepo, userRepo, nil, &stubNotifier{}, NewNoopEmailService())

	appt := &domain.Appointment{
		ID:            "appt-1",
		PatientID:     "patient-1",
		TherapistID:   "therapist-1",
		MainDate:      "2026-01-05T10:00:00Z",
		TotalSessions: 2,
		Price:         decimal.NewFromInt(200),
		Recurring: []domain.SessionRecord{
			{Date: "2026-01-12T10:00:00Z", Status: domain.SessionStatusCompleted, Payment: domain.SessionPaymentNotPaid},
		},
		LegacyRecurring: true,
	}
	apptRepo.On("GetByID", ctx, "appt-1").Return(appt, nil).Once()
	apptRepo.On("UpdateRecurring", ctx, "appt-1", appt.Recurring).Return(nil).Once()

	_, sessions, err := svc.GetAppointment(ctx, "patient-1", domain.UserRolePatient, "appt-1")
	assert.NoError(t, err)
	assert.Len(t, sessions, 2)
	assert.Equal(t, domain.SessionStatusCompleted, sessions[1].Status)
	apptRepo.AssertExpectations(t)
}

func TestAppointmentService_GetAppointment_AccessControl(t *testing.T) {
	ctx := context.Background()
	apptRepo := new(MockAppointmentRepo)
	svc := NewAppointmentService(apptRepo, new(MockUserRepo), nil, &stubNotifier{}, NewNoopEmailService())

	appt := &domain.Appointment{
		ID: "appt-1", PatientID: "patient-1", TherapistID: "therapist-1",
		TotalSessions: 1, Price: decimal.NewFromInt(100),
	}
	apptRepo.On("GetByID", ctx, "appt-1").Return(appt, nil).Twice()

	_, _, err := svc.GetAppointment(ctx, "stranger", domain.UserRolePatient, "appt-1")
	assert.ErrorIs(t, err, ErrForbidden)

	_, _, err = svc.GetAppointment(ctx, "stranger", domain.UserRoleAdmin, "appt-1")
	assert.NoError(t, err)
}

func TestAppointmentService_UpdateSessionStatus(t *testing.T) {
	ctx := context.Background()
	apptRepo := new(MockAppointmentRepo)
	svc := NewAppointmentService(apptRepo, new(MockUserRepo), nil, &stubNotifier{}, NewNoopEmailService())

	appt := &domain.Appointment{
		ID:            "appt-1",
		PatientID:     "patient-1",
		TherapistID:   "therapist-1",
		MainDate:      "2026-01-05T10:00:00Z",
		TotalSessions: 3,
		Price:         decimal.NewFromInt(300),
		Recurring: []domain.SessionRecord{
			{Date: "2026-01-12T10:00:00Z", Status: domain.SessionStatusInProgress, Payment: domain.SessionPaymentNotPaid},
			{Date: "2026-01-19T10:00:00Z", Status: domain.SessionStatusInProgress, Payment: domain.SessionPaymentNotPaid},
		},
	}
	apptRepo.On("GetByID", ctx, "appt-1").Return(appt, nil).Once()
	apptRepo.On("Update", ctx, mock.MatchedBy(func(a *domain.Appointment) bool {
		return a.Recurring[0].Status == domain.SessionStatusCompleted && a.CompletedSessions == 1
	})).Return(nil).Once()

	sessions, err := svc.UpdateSessionStatus(ctx, "therapist-1", "appt-1", "appt-1-1", domain.SessionStatusCompleted)
	assert.NoError(t, err)
	assert.Equal(t, domain.SessionStatusCompleted, sessions[1].Status)

	t.Run("WrongTherapist", func(t *testing.T) {
		apptRepo.On("GetByID", ctx, "appt-1").Return(appt, nil).Once()
		_, err := svc.UpdateSessionStatus(ctx, "someone-else", "appt-1", "appt-1-1", domain.SessionStatusCompleted)
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("UnknownSessionKey", func(t *testing.T) {
		apptRepo.On("GetByID", ctx, "appt-1").Return(appt, nil).Once()
		_, err := svc.UpdateSessionStatus(ctx, "therapist-1", "appt-1", "appt-1-9", domain.SessionStatusCompleted)
		assert.ErrorIs(t, err, ErrSessionMissing)
	})

	// The main-date session lives in the counter, not the recurring list;
	// completing it must come back out of the normalized view.
	t.Run("MainSession", func(t *testing.T) {
		apptRepo.On("GetByID", ctx, "appt-1").Return(appt, nil).Once()
		apptRepo.On("Update", ctx, mock.MatchedBy(func(a *domain.Appointment) bool {
			return a.CompletedSessions == 2
		})).Return(nil).Once()

		sessions, err := svc.UpdateSessionStatus(ctx, "therapist-1", "appt-1", "appt-1-0", domain.SessionStatusCompleted)
		assert.NoError(t, err)
		assert.Equal(t, domain.SessionStatusCompleted, sessions[0].Status)
	})

	t.Run("MainSessionRevert", func(t *testing.T) {
		apptRepo.On("GetByID", ctx, "appt-1").Return(appt, nil).Once()
		apptRepo.On("Update", ctx, mock.MatchedBy(func(a *domain.Appointment) bool {
			return a.CompletedSessions == 1
		})).Return(nil).Once()

		sessions, err := svc.UpdateSessionStatus(ctx, "therapist-1", "appt-1", "appt-1-0", domain.SessionStatusInProgress)
		assert.NoError(t, err)
		assert.Equal(t, domain.SessionStatusInProgress, sessions[0].Status)
	})
}

// CancelAppointment marks the appointment cancelled before delegating the
// refund, so the refund sees the final completed-session count.
func TestAppointmentService_CancelAppointment(t *testing.T) {
	ctx := context.Background()
	apptRepo := new(MockAppointmentRepo)
	paymentRepo := new(MockPaymentRepo)
	balanceRepo := new(MockBalanceRepo)
	userRepo := new(MockUserRepo)
	idem := newMemIdemStore()

	refundSvc := NewRefundService(apptRepo, paymentRepo, balanceRepo, userRepo,
		&failingGateway{}, idem, &stubNotifier{}, NewNoopEmailService(), billing.DefaultRefundStep)
	svc := NewAppointmentService(apptRepo, userRepo, refundSvc, &stubNotifier{}, NewNoopEmailService())

	appt := &domain.Appointment{
		ID:                "appt-1",
		PatientID:         "patient-1",
		TherapistID:       "therapist-1",
		TotalSessions:     2,
		CompletedSessions: 1,
		Price:             decimal.NewFromInt(200),
		Currency:          "usd",
		Status:            domain.AppointmentStatusScheduled,
		PaymentStatus:     domain.PaymentStatusCompleted,
		IsBalance:         true,
	}
	apptRepo.On("GetByID", ctx, "appt-1").Return(appt, nil)
	apptRepo.On("Update", ctx, mock.MatchedBy(func(a *domain.Appointment) bool {
		return a.Status == domain.AppointmentStatusCancelled
	})).Return(nil).Once()
	paymentRepo.On("Get", ctx, "appt-1").Return(&domain.AppointmentPayment{
		AppointmentID:           "appt-1",
		SessionsPaidWithBalance: decimal.NewFromInt(2),
		UnitPrice:               decimal.NewFromInt(100),
		Currency:                "usd",
	}, nil).Once()
	paymentRepo.On("ApplyRefundDeltas", ctx, "appt-1", decEq("1"), decEq("0")).Return(nil).Once()
	balanceRepo.On("CreateTransaction", ctx, mock.Anything).Return(nil).Once()
	apptRepo.On("UpdatePaymentState", ctx, "appt-1", domain.PaymentStatusRefunded, false, true).Return(nil).Once()
	userRepo.On("GetByID", ctx, "patient-1").Return(&domain.User{ID: "patient-1", Email: "p@example.com", Name: "Pat"}, nil).Once()

	result, err := svc.CancelAppointment(ctx, "patient-1", "appt-1", billing.RefundPolicyFull)
	assert.NoError(t, err)
	assert.True(t, result.FromBalance.Equal(decimal.NewFromInt(1)))
	assert.True(t, result.MoneyRefund.IsZero())
	apptRepo.AssertExpectations(t)
}

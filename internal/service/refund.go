package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"telecare-backend/internal/billing"
	"telecare-backend/internal/domain"
	"telecare-backend/internal/gateway"
	"telecare-backend/internal/idempotency"
	"telecare-backend/internal/logger"
	"telecare-backend/internal/repository"
)

type refundService struct {
	apptRepo    repository.AppointmentRepository
	paymentRepo repository.PaymentRepository
	balanceRepo repository.BalanceRepository
	userRepo    repository.UserRepository
	gateway     gateway.GatewayInterface
	idem        IdempotencyStore
	noteSvc     NotificationService
	emailSvc    EmailService
	refundStep  decimal.Decimal
}

func NewRefundService(
	apptRepo repository.AppointmentRepository,
	paymentRepo repository.PaymentRepository,
	balanceRepo repository.BalanceRepository,
	userRepo repository.UserRepository,
	gw gateway.GatewayInterface,
	idem IdempotencyStore,
	noteSvc NotificationService,
	emailSvc EmailService,
	refundStep decimal.Decimal,
) RefundService {
	return &refundService{
		apptRepo:    apptRepo,
		paymentRepo: paymentRepo,
		balanceRepo: balanceRepo,
		userRepo:    userRepo,
		gateway:     gw,
		idem:        idem,
		noteSvc:     noteSvc,
		emailSvc:    emailSvc,
		refundStep:  refundStep,
	}
}

func (s *refundService) RefundAppointment(ctx context.Context, appointmentID string, policy billing.RefundPolicy, slotID string) (*domain.RefundResult, error) {
	logger.EnterMethod("refundService.RefundAppointment",
		"appointment_id", appointmentID, "policy", policy, "slot_id", slotID)

	key := billing.DedupeKey(appointmentID, policy, slotID)
	if err := s.idem.Claim(ctx, key); err != nil {
		if errors.Is(err, idempotency.ErrDuplicate) {
			// Already processed. Report a zero delta rather than an error so
			// retried cancellations stay idempotent end to end.
			logger.Info("duplicate refund request ignored", "dedupe_key", key)
			return &domain.RefundResult{
				FromBalance:          decimal.Zero,
				FromStripe:           decimal.Zero,
				MoneyRefund:          decimal.Zero,
				SessionUnitsRefunded: decimal.Zero,
			}, nil
		}
		logger.ExitMethodWithError("refundService.RefundAppointment", err, "appointment_id", appointmentID)
		return nil, err
	}

	var result *domain.RefundResult
	err := s.idem.WithAppointmentLock(ctx, appointmentID, func(ctx context.Context) error {
		var err error
		result, err = s.process(ctx, appointmentID, policy, key)
		return err
	})
	if err != nil {
		// The claim must not outlive a failed attempt, or the patient could
		// never retry.
		if relErr := s.idem.Release(ctx, key); relErr != nil {
			logger.Warn("failed to release dedupe key after refund failure", "dedupe_key", key, "error", relErr)
		}
		logger.ExitMethodWithError("refundService.RefundAppointment", err, "appointment_id", appointmentID)
		return nil, err
	}

	logger.ExitMethod("refundService.RefundAppointment",
		"appointment_id", appointmentID, "units_refunded", result.SessionUnitsRefunded, "money_refund", result.MoneyRefund)
	return result, nil
}

func (s *refundService) process(ctx context.Context, appointmentID string, policy billing.RefundPolicy, dedupeKey string) (*domain.RefundResult, error) {
	appt, err := s.apptRepo.GetByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}

	view, currency, err := s.refundView(ctx, appt)
	if err != nil {
		return nil, err
	}

	result, err := billing.ComputeRefund(view, policy, s.refundStep)
	if err != nil {
		return nil, err
	}
	if result.SessionUnitsRefunded.IsZero() {
		return &result, nil
	}

	if err := s.paymentRepo.ApplyRefundDeltas(ctx, appointmentID, result.FromBalance, result.FromStripe); err != nil {
		return nil, err
	}

	if result.FromBalance.IsPositive() {
		apptID := appt.ID
		credit := &domain.BalanceTransaction{
			PatientID:            appt.PatientID,
			Amount:               result.FromBalance.Mul(view.UnitPrice).Truncate(2),
			Units:                result.FromBalance,
			Currency:             currency,
			Type:                 domain.TransactionTypeRefundCredit,
			RelatedAppointmentID: &apptID,
			Description:          fmt.Sprintf("Refund of %s session units to balance", result.FromBalance),
		}
		if err := s.balanceRepo.CreateTransaction(ctx, credit); err != nil {
			return nil, err
		}
	}

	if result.MoneyRefund.IsPositive() {
		if appt.PaymentIntentID == "" {
			return nil, fmt.Errorf("appointment %s has stripe-funded units but no payment intent", appointmentID)
		}
		refundID, err := s.gateway.CreateRefund(ctx, appt.PaymentIntentID, result.MoneyRefund, currency, dedupeKey)
		if err != nil {
			return nil, fmt.Errorf("gateway refund: %w", err)
		}
		logger.Info("gateway refund issued",
			"appointment_id", appointmentID, "refund_id", refundID, "amount", result.MoneyRefund)
	}

	if err := s.apptRepo.UpdatePaymentState(ctx, appointmentID, domain.PaymentStatusRefunded, appt.IsStripeVerified, appt.IsBalance); err != nil {
		logger.Warn("failed to mark appointment refunded", "appointment_id", appointmentID, "error", err)
	}

	s.notifyRefund(ctx, appt, result, currency)
	return &result, nil
}

// refundView assembles the allocator's input. When no ledger row exists yet
// the funding split is derived from the appointment's payment flags.
func (s *refundService) refundView(ctx context.Context, appt *domain.Appointment) (billing.RefundView, string, error) {
	total := decimal.NewFromInt(int64(appt.TotalSessions))
	completed := decimal.NewFromInt(int64(appt.CompletedSessions))
	currency := appt.Currency

	ledger, err := s.paymentRepo.Get(ctx, appt.ID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return billing.RefundView{}, "", err
		}
		view := billing.RefundView{
			TotalUnits:     total,
			CompletedUnits: completed,
			UnitPrice:      billing.UnitPrice(appt.Price, appt.TotalSessions),
		}
		if appt.IsBalance {
			view.SessionsPaidWithBalance = total
		} else {
			view.SessionsPaidWithStripe = total
		}
		return view, currency, nil
	}

	if ledger.Currency != "" {
		currency = ledger.Currency
	}
	return billing.RefundView{
		TotalUnits:               total,
		CompletedUnits:           completed,
		SessionsPaidWithBalance:  ledger.SessionsPaidWithBalance,
		SessionsPaidWithStripe:   ledger.SessionsPaidWithStripe,
		RefundedUnitsFromBalance: ledger.RefundedUnitsFromBalance,
		RefundedUnitsFromStripe:  ledger.RefundedUnitsFromStripe,
		UnitPrice:                ledger.UnitPrice,
	}, currency, nil
}

func (s *refundService) notifyRefund(ctx context.Context, appt *domain.Appointment, result domain.RefundResult, currency string) {
	if err := s.noteSvc.Notify(ctx, appt.PatientID, domain.NotificationTypeRefundProcessed,
		"Refund processed",
		fmt.Sprintf("%s session units were refunded (%s %s to your card, %s units to your balance).",
			result.SessionUnitsRefunded, result.MoneyRefund, currency, result.FromBalance),
		map[string]string{"appointment_id": appt.ID}); err != nil {
		logger.Warn("failed to create refund notification", "appointment_id", appt.ID, "error", err)
	}

	patient, err := s.userRepo.GetByID(ctx, appt.PatientID)
	if err != nil {
		logger.Warn("failed to load patient for refund email", "patient_id", appt.PatientID, "error", err)
		return
	}
	if err := s.emailSvc.SendRefundNotice(ctx, patient.Email, patient.Name, result, currency); err != nil {
		logger.Warn("failed to send refund email", "appointment_id", appt.ID, "error", err)
	}
}

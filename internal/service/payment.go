package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"telecare-backend/internal/billing"
	"telecare-backend/internal/domain"
	"telecare-backend/internal/logger"
	"telecare-backend/internal/repository"
)

var ErrInsufficientBalance = errors.New("insufficient balance")

type paymentService struct {
	apptRepo    repository.AppointmentRepository
	paymentRepo repository.PaymentRepository
	balanceRepo repository.BalanceRepository
	verifier    *billing.Verifier
}

func NewPaymentService(
	apptRepo repository.AppointmentRepository,
	paymentRepo repository.PaymentRepository,
	balanceRepo repository.BalanceRepository,
	verifier *billing.Verifier,
) PaymentService {
	return &paymentService{
		apptRepo:    apptRepo,
		paymentRepo: paymentRepo,
		balanceRepo: balanceRepo,
		verifier:    verifier,
	}
}

func (s *paymentService) VerifyAppointment(ctx context.Context, appointmentID string) (billing.Verification, error) {
	logger.EnterMethod("paymentService.VerifyAppointment", "appointment_id", appointmentID)

	appt, err := s.apptRepo.GetByID(ctx, appointmentID)
	if err != nil {
		logger.ExitMethodWithError("paymentService.VerifyAppointment", err, "appointment_id", appointmentID)
		return billing.Verification{}, err
	}

	res := s.verifier.Verify(ctx, paymentView(appt))
	s.persistIfNewlyVerified(ctx, appt, res)

	logger.ExitMethod("paymentService.VerifyAppointment",
		"appointment_id", appointmentID, "is_paid", res.IsPaid, "source", res.Source)
	return res, nil
}

func (s *paymentService) VerifyAppointments(ctx context.Context, appts []domain.Appointment) []billing.Verification {
	views := make([]billing.PaymentView, len(appts))
	for i := range appts {
		views[i] = paymentView(&appts[i])
	}

	out := s.verifier.VerifyBatch(ctx, views)
	for i := range appts {
		s.persistIfNewlyVerified(ctx, &appts[i], out[i])
	}
	return out
}

// persistIfNewlyVerified caches a fresh gateway confirmation so later checks
// short-circuit on the webhook path, and establishes the payment ledger row.
func (s *paymentService) persistIfNewlyVerified(ctx context.Context, appt *domain.Appointment, res billing.Verification) {
	if res.Source != billing.SourceStripe || appt.IsStripeVerified {
		return
	}

	if err := s.apptRepo.UpdatePaymentState(ctx, appt.ID, domain.PaymentStatusCompleted, true, appt.IsBalance); err != nil {
		logger.Warn("failed to persist verified payment state", "appointment_id", appt.ID, "error", err)
		return
	}

	if err := s.ensureLedger(ctx, appt, decimal.Zero, decimal.NewFromInt(int64(appt.TotalSessions))); err != nil {
		logger.Warn("failed to establish payment ledger", "appointment_id", appt.ID, "error", err)
	}
}

func (s *paymentService) RecordWebhookConfirmation(ctx context.Context, appointmentID, paymentIntentID string) error {
	logger.EnterMethod("paymentService.RecordWebhookConfirmation", "appointment_id", appointmentID)

	appt, err := s.apptRepo.GetByID(ctx, appointmentID)
	if err != nil {
		logger.ExitMethodWithError("paymentService.RecordWebhookConfirmation", err, "appointment_id", appointmentID)
		return err
	}

	if paymentIntentID != "" && appt.PaymentIntentID == "" {
		appt.PaymentIntentID = paymentIntentID
		if err := s.apptRepo.Update(ctx, appt); err != nil {
			return err
		}
	}

	if err := s.apptRepo.UpdatePaymentState(ctx, appt.ID, domain.PaymentStatusCompleted, true, appt.IsBalance); err != nil {
		logger.ExitMethodWithError("paymentService.RecordWebhookConfirmation", err, "appointment_id", appointmentID)
		return err
	}

	if err := s.ensureLedger(ctx, appt, decimal.Zero, decimal.NewFromInt(int64(appt.TotalSessions))); err != nil {
		logger.Warn("failed to establish payment ledger", "appointment_id", appt.ID, "error", err)
	}

	logger.ExitMethod("paymentService.RecordWebhookConfirmation", "appointment_id", appointmentID)
	return nil
}

func (s *paymentService) PurchaseWithBalance(ctx context.Context, patientID, appointmentID string) error {
	logger.EnterMethod("paymentService.PurchaseWithBalance", "appointment_id", appointmentID, "patient_id", patientID)

	appt, err := s.apptRepo.GetByID(ctx, appointmentID)
	if err != nil {
		return err
	}
	if appt.PatientID != patientID {
		return ErrForbidden
	}
	if appt.IsBalance {
		return nil // already balance-paid; nothing to do
	}

	money, _, err := s.balanceRepo.GetBalance(ctx, patientID)
	if err != nil {
		return err
	}
	if money.LessThan(appt.Price) {
		return fmt.Errorf("%w: have %s, need %s", ErrInsufficientBalance, money, appt.Price)
	}

	units := decimal.NewFromInt(int64(appt.TotalSessions))
	apptID := appt.ID
	debit := &domain.BalanceTransaction{
		PatientID:            patientID,
		Amount:               appt.Price.Neg(),
		Units:                units.Neg(),
		Currency:             appt.Currency,
		Type:                 domain.TransactionTypeSessionDebit,
		RelatedAppointmentID: &apptID,
		Description:          fmt.Sprintf("Payment for %d-session appointment package", appt.TotalSessions),
	}
	if err := s.balanceRepo.CreateTransaction(ctx, debit); err != nil {
		logger.ExitMethodWithError("paymentService.PurchaseWithBalance", err, "appointment_id", appointmentID)
		return err
	}

	if err := s.apptRepo.UpdatePaymentState(ctx, appt.ID, domain.PaymentStatusCompleted, appt.IsStripeVerified, true); err != nil {
		logger.ExitMethodWithError("paymentService.PurchaseWithBalance", err, "appointment_id", appointmentID)
		return err
	}

	if err := s.ensureLedger(ctx, appt, units, decimal.Zero); err != nil {
		logger.Warn("failed to establish payment ledger", "appointment_id", appt.ID, "error", err)
	}

	logger.ExitMethod("paymentService.PurchaseWithBalance", "appointment_id", appointmentID)
	return nil
}

func (s *paymentService) ensureLedger(ctx context.Context, appt *domain.Appointment, balanceUnits, stripeUnits decimal.Decimal) error {
	existing, err := s.paymentRepo.Get(ctx, appt.ID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return err
	}

	ledger := &domain.AppointmentPayment{
		AppointmentID:           appt.ID,
		SessionsPaidWithBalance: balanceUnits,
		SessionsPaidWithStripe:  stripeUnits,
		UnitPrice:               billing.UnitPrice(appt.Price, appt.TotalSessions),
		Currency:                appt.Currency,
	}
	if existing != nil {
		ledger.SessionsPaidWithBalance = existing.SessionsPaidWithBalance.Add(balanceUnits)
		ledger.SessionsPaidWithStripe = existing.SessionsPaidWithStripe.Add(stripeUnits)
		ledger.RefundedUnitsFromBalance = existing.RefundedUnitsFromBalance
		ledger.RefundedUnitsFromStripe = existing.RefundedUnitsFromStripe
	}
	return s.paymentRepo.Upsert(ctx, ledger)
}

func paymentView(appt *domain.Appointment) billing.PaymentView {
	return billing.PaymentView{
		AppointmentID:     appt.ID,
		PaymentStatus:     appt.PaymentStatus,
		IsStripeVerified:  appt.IsStripeVerified,
		IsBalance:         appt.IsBalance,
		CheckoutSessionID: appt.CheckoutSessionID,
		PaymentIntentID:   appt.PaymentIntentID,
	}
}

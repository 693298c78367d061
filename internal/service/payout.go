package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"telecare-backend/internal/billing"
	"telecare-backend/internal/domain"
	"telecare-backend/internal/logger"
	"telecare-backend/internal/repository"
)

// stubbed in tests
var timeNow = time.Now

type payoutService struct {
	payoutRepo  repository.PayoutRepository
	apptRepo    repository.AppointmentRepository
	userRepo    repository.UserRepository
	noteSvc     NotificationService
	emailSvc    EmailService
	tierPercent map[domain.TherapistTier]decimal.Decimal
	currency    string
}

func NewPayoutService(
	payoutRepo repository.PayoutRepository,
	apptRepo repository.AppointmentRepository,
	userRepo repository.UserRepository,
	noteSvc NotificationService,
	emailSvc EmailService,
	tierPercent map[domain.TherapistTier]decimal.Decimal,
	currency string,
) PayoutService {
	return &payoutService{
		payoutRepo:  payoutRepo,
		apptRepo:    apptRepo,
		userRepo:    userRepo,
		noteSvc:     noteSvc,
		emailSvc:    emailSvc,
		tierPercent: tierPercent,
		currency:    currency,
	}
}

// RunPayouts walks every therapist's appointments and creates one payout per
// completed, paid session-unit that has not been paid out before. The
// session_key uniqueness check makes the run safe to repeat.
func (s *payoutService) RunPayouts(ctx context.Context) (*PayoutRunSummary, error) {
	logger.EnterMethod("payoutService.RunPayouts")

	batchID := uuid.NewString()
	summary := &PayoutRunSummary{BatchID: batchID, Total: decimal.Zero}

	page := int32(1)
	const pageSize = int32(100)
	for {
		therapists, total, err := s.userRepo.ListTherapists(ctx, page, pageSize)
		if err != nil {
			logger.ExitMethodWithError("payoutService.RunPayouts", err)
			return nil, err
		}
		for i := range therapists {
			if err := s.runForTherapist(ctx, &therapists[i], batchID, summary); err != nil {
				// One therapist's bad data must not sink the whole batch.
				logger.Error("payout run failed for therapist", "therapist_id", therapists[i].ID, "error", err)
			}
		}
		if page*pageSize >= total {
			break
		}
		page++
	}

	logger.ExitMethod("payoutService.RunPayouts",
		"batch_id", batchID, "payout_count", summary.PayoutCount, "total", summary.Total)
	return summary, nil
}

func (s *payoutService) runForTherapist(ctx context.Context, therapist *domain.User, batchID string, summary *PayoutRunSummary) error {
	page := int32(1)
	const pageSize = int32(100)
	earned := decimal.Zero

	for {
		appts, total, err := s.apptRepo.ListByTherapist(ctx, therapist.ID, "", page, pageSize)
		if err != nil {
			return err
		}
		for i := range appts {
			amount, err := s.payAppointmentSessions(ctx, &appts[i], therapist, batchID, summary)
			if err != nil {
				return err
			}
			earned = earned.Add(amount)
		}
		if page*pageSize >= total {
			break
		}
		page++
	}

	if earned.IsPositive() {
		s.notifyPayout(ctx, therapist, earned)
	}
	return nil
}

func (s *payoutService) payAppointmentSessions(ctx context.Context, appt *domain.Appointment, therapist *domain.User, batchID string, summary *PayoutRunSummary) (decimal.Decimal, error) {
	if appt.PaymentStatus != domain.PaymentStatusCompleted {
		return decimal.Zero, nil
	}

	sessions := billing.NormalizeSessions(appt.ID, appt.MainDate, appt.Recurring, appt.Price, appt.TotalSessions, appt.CompletedSessions)
	earned := decimal.Zero
	recurringDirty := false

	for _, sess := range sessions {
		if sess.Status != domain.SessionStatusCompleted || sess.Payment == domain.SessionPaymentPaidOut {
			continue
		}

		exists, err := s.payoutRepo.ExistsForSession(ctx, sess.Key)
		if err != nil {
			return earned, err
		}
		if exists {
			continue
		}

		percent := s.percentFor(therapist.Tier)
		if sess.PayoutPercent != nil {
			percent = *sess.PayoutPercent
		}
		amount := billing.ComputePayout(sess.Price, percent)

		payout := &domain.Payout{
			ID:            uuid.NewString(),
			TherapistID:   therapist.ID,
			AppointmentID: appt.ID,
			SessionKey:    sess.Key,
			Amount:        amount,
			Percent:       percent,
			Currency:      s.currency,
			Status:        domain.PayoutStatusPending,
			BatchID:       batchID,
		}
		if err := s.payoutRepo.Create(ctx, payout); err != nil {
			return earned, err
		}

		summary.PayoutCount++
		summary.Total = summary.Total.Add(amount)
		earned = earned.Add(amount)

		// The main-date session has no recurring slot; its payout dedupe rests
		// on the session_key uniqueness alone.
		if sess.Index > 0 && sess.Index-1 < len(appt.Recurring) {
			appt.Recurring[sess.Index-1].Payment = domain.SessionPaymentPaidOut
			recurringDirty = true
		}
	}

	if recurringDirty {
		if err := s.apptRepo.UpdateRecurring(ctx, appt.ID, appt.Recurring); err != nil {
			logger.Warn("failed to mark sessions paid out", "appointment_id", appt.ID, "error", err)
		}
	}
	return earned, nil
}

func (s *payoutService) percentFor(tier domain.TherapistTier) decimal.Decimal {
	if p, ok := s.tierPercent[tier]; ok {
		return p
	}
	return s.tierPercent[domain.TherapistTierStandard]
}

func (s *payoutService) ListPayouts(ctx context.Context, therapistID, status string, page, pageSize int32) ([]domain.Payout, int32, error) {
	return s.payoutRepo.ListByTherapist(ctx, therapistID, status, page, pageSize)
}

func (s *payoutService) MarkPayoutPaid(ctx context.Context, payoutID string) error {
	now := timeNow()
	return s.payoutRepo.UpdateStatus(ctx, payoutID, domain.PayoutStatusPaid, &now)
}

func (s *payoutService) notifyPayout(ctx context.Context, therapist *domain.User, amount decimal.Decimal) {
	if err := s.noteSvc.Notify(ctx, therapist.ID, domain.NotificationTypePayoutSent,
		"Payout scheduled",
		fmt.Sprintf("A payout of %s %s for your completed sessions has been scheduled.", amount, s.currency),
		nil); err != nil {
		logger.Warn("failed to create payout notification", "therapist_id", therapist.ID, "error", err)
	}
	if err := s.emailSvc.SendPayoutNotice(ctx, therapist.Email, therapist.Name, amount, s.currency); err != nil {
		logger.Warn("failed to send payout email", "therapist_id", therapist.ID, "error", err)
	}
}

package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"telecare-backend/internal/billing"
	"telecare-backend/internal/domain"
	"telecare-backend/internal/logger"
	"telecare-backend/internal/repository"
)

var (
	ErrForbidden      = errors.New("not allowed")
	ErrSessionMissing = errors.New("session not found on appointment")
	ErrInvalidBooking = errors.New("invalid booking request")
)

type appointmentService struct {
	apptRepo  repository.AppointmentRepository
	userRepo  repository.UserRepository
	refundSvc RefundService
	noteSvc   NotificationService
	emailSvc  EmailService
}

func NewAppointmentService(
	apptRepo repository.AppointmentRepository,
	userRepo repository.UserRepository,
	refundSvc RefundService,
	noteSvc NotificationService,
	emailSvc EmailService,
) AppointmentService {
	return &appointmentService{
		apptRepo:  apptRepo,
		userRepo:  userRepo,
		refundSvc: refundSvc,
		noteSvc:   noteSvc,
		emailSvc:  emailSvc,
	}
}

func (s *appointmentService) BookAppointment(ctx context.Context, req BookAppointmentRequest) (*domain.Appointment, []domain.Session, error) {
	logger.EnterMethod("appointmentService.BookAppointment", "patient_id", req.PatientID, "therapist_id", req.TherapistID)

	if req.TotalSessions < 1 || req.MainDate == "" || !req.Price.IsPositive() {
		return nil, nil, ErrInvalidBooking
	}
	if len(req.RecurringDates) != req.TotalSessions-1 {
		return nil, nil, fmt.Errorf("%w: expected %d recurring dates, got %d",
			ErrInvalidBooking, req.TotalSessions-1, len(req.RecurringDates))
	}

	therapist, err := s.userRepo.GetByID(ctx, req.TherapistID)
	if err != nil {
		logger.ExitMethodWithError("appointmentService.BookAppointment", err, "therapist_id", req.TherapistID)
		return nil, nil, err
	}
	if therapist.Role != domain.UserRoleTherapist {
		return nil, nil, fmt.Errorf("%w: user %s is not a therapist", ErrInvalidBooking, req.TherapistID)
	}

	recurring := make([]domain.SessionRecord, 0, len(req.RecurringDates))
	for _, date := range req.RecurringDates {
		recurring = append(recurring, domain.SessionRecord{
			Date:    date,
			Status:  domain.SessionStatusInProgress,
			Payment: domain.SessionPaymentNotPaid,
		})
	}

	appt := &domain.Appointment{
		ID:                uuid.NewString(),
		PatientID:         req.PatientID,
		TherapistID:       req.TherapistID,
		MainDate:          req.MainDate,
		Recurring:         recurring,
		TotalSessions:     req.TotalSessions,
		Price:             req.Price,
		Currency:          req.Currency,
		Status:            domain.AppointmentStatusScheduled,
		PaymentStatus:     domain.PaymentStatusPending,
		CheckoutSessionID: req.CheckoutSessionID,
		PaymentIntentID:   req.PaymentIntentID,
		Notes:             req.Notes,
	}

	if err := s.apptRepo.Create(ctx, appt); err != nil {
		logger.ExitMethodWithError("appointmentService.BookAppointment", err, "appointment_id", appt.ID)
		return nil, nil, err
	}

	sessions := billing.NormalizeSessions(appt.ID, appt.MainDate, appt.Recurring, appt.Price, appt.TotalSessions, appt.CompletedSessions)

	s.notifyBooking(ctx, appt)

	logger.ExitMethod("appointmentService.BookAppointment", "appointment_id", appt.ID, "sessions", len(sessions))
	return appt, sessions, nil
}

func (s *appointmentService) GetAppointment(ctx context.Context, requesterID string, role domain.UserRole, id string) (*domain.Appointment, []domain.Session, error) {
	appt, err := s.apptRepo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if role != domain.UserRoleAdmin && appt.PatientID != requesterID && appt.TherapistID != requesterID {
		return nil, nil, ErrForbidden
	}

	if appt.LegacyRecurring {
		// One-time upgrade of pre-migration string entries: persist the
		// structured form so future reads skip the re-derivation. Best-effort;
		// the decoded view is already correct.
		if err := s.apptRepo.UpdateRecurring(ctx, appt.ID, appt.Recurring); err != nil {
			logger.Warn("failed to persist legacy session upgrade", "appointment_id", appt.ID, "error", err)
		}
	}

	sessions := billing.NormalizeSessions(appt.ID, appt.MainDate, appt.Recurring, appt.Price, appt.TotalSessions, appt.CompletedSessions)
	return appt, sessions, nil
}

func (s *appointmentService) UpdateSessionStatus(ctx context.Context, therapistID, appointmentID, sessionKey string, status domain.SessionStatus) ([]domain.Session, error) {
	logger.EnterMethod("appointmentService.UpdateSessionStatus",
		"appointment_id", appointmentID, "session_key", sessionKey, "status", status)

	appt, err := s.apptRepo.GetByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if appt.TherapistID != therapistID {
		return nil, ErrForbidden
	}

	sessions := billing.NormalizeSessions(appt.ID, appt.MainDate, appt.Recurring, appt.Price, appt.TotalSessions, appt.CompletedSessions)
	index := -1
	for _, sess := range sessions {
		if sess.Key == sessionKey {
			index = sess.Index
			break
		}
	}
	if index < 0 {
		return nil, ErrSessionMissing
	}

	wasCompleted := sessions[index].Status == domain.SessionStatusCompleted

	if index > 0 {
		// Pad in case the stored list is shorter than the session count.
		for len(appt.Recurring) < index {
			appt.Recurring = append(appt.Recurring, domain.SessionRecord{
				Status:  domain.SessionStatusUnscheduled,
				Payment: domain.SessionPaymentNotPaid,
			})
		}
		appt.Recurring[index-1].Status = status
		if appt.Recurring[index-1].Payment == "" {
			appt.Recurring[index-1].Payment = domain.SessionPaymentNotPaid
		}
	}

	// completedSessions tracks consumed units across the whole package. The
	// main-date session has no recurring slot; the counter is its only record,
	// and the normalized view derives its status back out of it.
	switch {
	case status == domain.SessionStatusCompleted && !wasCompleted && appt.CompletedSessions < appt.TotalSessions:
		appt.CompletedSessions++
	case status != domain.SessionStatusCompleted && wasCompleted && appt.CompletedSessions > 0:
		appt.CompletedSessions--
	}

	if err := s.apptRepo.Update(ctx, appt); err != nil {
		logger.ExitMethodWithError("appointmentService.UpdateSessionStatus", err, "appointment_id", appointmentID)
		return nil, err
	}

	out := billing.NormalizeSessions(appt.ID, appt.MainDate, appt.Recurring, appt.Price, appt.TotalSessions, appt.CompletedSessions)
	logger.ExitMethod("appointmentService.UpdateSessionStatus", "appointment_id", appointmentID)
	return out, nil
}

func (s *appointmentService) CancelAppointment(ctx context.Context, patientID, appointmentID string, policy billing.RefundPolicy) (*domain.RefundResult, error) {
	logger.EnterMethod("appointmentService.CancelAppointment", "appointment_id", appointmentID, "policy", policy)

	appt, err := s.apptRepo.GetByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if appt.PatientID != patientID {
		return nil, ErrForbidden
	}
	if appt.Status == domain.AppointmentStatusCancelled {
		return nil, fmt.Errorf("appointment %s already cancelled", appointmentID)
	}

	appt.Status = domain.AppointmentStatusCancelled
	if err := s.apptRepo.Update(ctx, appt); err != nil {
		logger.ExitMethodWithError("appointmentService.CancelAppointment", err, "appointment_id", appointmentID)
		return nil, err
	}

	result, err := s.refundSvc.RefundAppointment(ctx, appointmentID, policy, "")
	if err != nil {
		logger.ExitMethodWithError("appointmentService.CancelAppointment", err, "appointment_id", appointmentID)
		return nil, err
	}

	logger.ExitMethod("appointmentService.CancelAppointment",
		"appointment_id", appointmentID, "units_refunded", result.SessionUnitsRefunded)
	return result, nil
}

func (s *appointmentService) ListByPatient(ctx context.Context, patientID, status string, page, pageSize int32) ([]domain.Appointment, int32, error) {
	return s.apptRepo.ListByPatient(ctx, patientID, status, page, pageSize)
}

func (s *appointmentService) ListByTherapist(ctx context.Context, therapistID, status string, page, pageSize int32) ([]domain.Appointment, int32, error) {
	return s.apptRepo.ListByTherapist(ctx, therapistID, status, page, pageSize)
}

func (s *appointmentService) notifyBooking(ctx context.Context, appt *domain.Appointment) {
	if err := s.noteSvc.Notify(ctx, appt.PatientID, domain.NotificationTypeBookingConfirmed,
		"Appointment booked",
		fmt.Sprintf("Your appointment package of %d sessions starting %s is booked.", appt.TotalSessions, appt.MainDate),
		map[string]string{"appointment_id": appt.ID}); err != nil {
		logger.Warn("failed to create booking notification", "appointment_id", appt.ID, "error", err)
	}

	patient, err := s.userRepo.GetByID(ctx, appt.PatientID)
	if err != nil {
		logger.Warn("failed to load patient for booking email", "patient_id", appt.PatientID, "error", err)
		return
	}
	if err := s.emailSvc.SendBookingConfirmation(ctx, patient.Email, patient.Name, appt); err != nil {
		logger.Warn("failed to send booking confirmation email", "appointment_id", appt.ID, "error", err)
	}
}

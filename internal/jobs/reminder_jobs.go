package jobs

import (
	"context"
	"time"

	"telecare-backend/internal/domain"
	"telecare-backend/internal/logger"
)

// SendSessionReminders notifies patients about sessions starting within the
// next 24 hours.
func (jr *JobRunner) SendSessionReminders() {
	jr.runWithRecovery("SendSessionReminders", func() {
		ctx := context.Background()

		now := time.Now().UTC()
		appts, err := jr.store.AppointmentRepository.ListBetween(ctx, now, now.Add(24*time.Hour))
		if err != nil {
			logger.Error("Failed to list upcoming appointments", "error", err)
			return
		}

		sent := 0
		for i := range appts {
			appt := &appts[i]

			patient, err := jr.store.UserRepository.GetByID(ctx, appt.PatientID)
			if err != nil {
				logger.Error("Failed to load patient for reminder",
					"appointment_id", appt.ID, "patient_id", appt.PatientID, "error", err)
				continue
			}

			if err := jr.services.Notification.Notify(ctx, patient.ID, domain.NotificationTypeSessionReminder,
				"Session tomorrow",
				"You have a therapy session scheduled on "+appt.MainDate+".",
				map[string]string{"appointment_id": appt.ID}); err != nil {
				logger.Error("Failed to create reminder notification",
					"appointment_id", appt.ID, "error", err)
			}

			if err := jr.services.Email.SendSessionReminder(ctx, patient.Email, patient.Name, appt.MainDate); err != nil {
				logger.Error("Failed to send reminder email",
					"appointment_id", appt.ID, "error", err)
				continue
			}
			sent++
		}

		logger.Info("Sent session reminders", "upcoming", len(appts), "sent", sent)
	})
}

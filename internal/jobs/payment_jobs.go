package jobs

import (
	"context"

	"telecare-backend/internal/billing"
	"telecare-backend/internal/domain"
	"telecare-backend/internal/logger"
)

// ReconcilePendingPayments re-checks appointments whose payment never got a
// webhook confirmation, querying the gateway directly. Webhook deliveries get
// lost; the nightly sweep is the backstop.
func (jr *JobRunner) ReconcilePendingPayments() {
	jr.runWithRecovery("ReconcilePendingPayments", func() {
		ctx := context.Background()

		appts, err := jr.store.AppointmentRepository.ListPendingPayment(ctx, 500)
		if err != nil {
			logger.Error("Failed to list pending-payment appointments", "error", err)
			return
		}
		if len(appts) == 0 {
			logger.Info("No pending payments to reconcile")
			return
		}

		results := jr.services.Payment.VerifyAppointments(ctx, appts)

		confirmed := 0
		for i, res := range results {
			if res.IsPaid {
				confirmed++
				logger.Debug("Reconciled pending payment",
					"appointment_id", appts[i].ID, "source", res.Source)
			} else if res.Source == billing.SourceNone && res.PaymentStatus == domain.PaymentStatusFailed {
				logger.Warn("Gateway lookup failed during reconciliation",
					"appointment_id", appts[i].ID)
			}
		}

		logger.Info("Reconciled pending payments", "checked", len(appts), "confirmed", confirmed)
	})
}

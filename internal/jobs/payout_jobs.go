package jobs

import (
	"context"

	"telecare-backend/internal/logger"
)

// RunTherapistPayouts executes the monthly payout batch for every therapist.
// The run is idempotent per session, so a crashed batch can simply be rerun.
func (jr *JobRunner) RunTherapistPayouts() {
	jr.runWithRecovery("RunTherapistPayouts", func() {
		ctx := context.Background()

		summary, err := jr.services.Payout.RunPayouts(ctx)
		if err != nil {
			logger.Error("Failed to run therapist payouts", "error", err)
			return
		}

		logger.Info("Therapist payout batch created",
			"batch_id", summary.BatchID,
			"payout_count", summary.PayoutCount,
			"total", summary.Total)
	})
}

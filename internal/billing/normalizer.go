package billing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"telecare-backend/internal/domain"
	"telecare-backend/internal/logger"
)

// SessionKey builds the stable join key for one session-unit. Index 0 is the
// appointment's main date; recurring entry i maps to index i+1.
func SessionKey(appointmentID string, index int) string {
	return fmt.Sprintf("%s-%d", appointmentID, index)
}

// UnitPrice splits a package price evenly across its session-units, rounded
// to cents with banker's rounding.
func UnitPrice(totalPrice decimal.Decimal, totalSessions int) decimal.Decimal {
	if totalSessions < 1 {
		totalSessions = 1
	}
	return totalPrice.Div(decimal.NewFromInt(int64(totalSessions))).RoundBank(2)
}

// NormalizeSessions flattens an appointment's main date plus its recurring
// list into a uniform ordered sequence of session-units. Pure: repeated calls
// on the same inputs yield identical output, and persisting the upgraded
// structured form is the caller's job.
//
// The recurring list should hold totalSessions-1 entries. Drift is tolerated
// rather than rejected: extras are dropped and missing entries become
// unscheduled placeholders, so re-normalizing already-migrated rows stays
// idempotent.
//
// The main date has no recurring slot to carry its status, so index 0 is
// derived from the package counter: it reads completed once completedSessions
// exceeds the number of completed recurring entries.
func NormalizeSessions(appointmentID, mainDate string, recurring []domain.SessionRecord, totalPrice decimal.Decimal, totalSessions, completedSessions int) []domain.Session {
	if totalSessions < 1 {
		totalSessions = 1
	}
	if len(recurring) != totalSessions-1 {
		logger.Warn("recurring session count does not match purchased sessions",
			"appointment_id", appointmentID,
			"recurring_len", len(recurring),
			"total_sessions", totalSessions)
	}

	unit := UnitPrice(totalPrice, totalSessions)

	completedRecurring := 0
	for _, rec := range recurring {
		if rec.Status == domain.SessionStatusCompleted {
			completedRecurring++
		}
	}
	mainStatus := domain.SessionStatusInProgress
	if completedSessions > completedRecurring {
		mainStatus = domain.SessionStatusCompleted
	}

	out := make([]domain.Session, 0, totalSessions)
	out = append(out, domain.Session{
		Key:     SessionKey(appointmentID, 0),
		Index:   0,
		Date:    mainDate,
		Status:  mainStatus,
		Payment: domain.SessionPaymentNotPaid,
		Price:   unit,
	})

	for i := 1; i < totalSessions; i++ {
		s := domain.Session{
			Key:     SessionKey(appointmentID, i),
			Index:   i,
			Status:  domain.SessionStatusUnscheduled,
			Payment: domain.SessionPaymentNotPaid,
			Price:   unit,
		}
		if i-1 < len(recurring) {
			rec := recurring[i-1]
			s.Date = rec.Date
			s.Status = rec.Status
			s.Payment = rec.Payment
			s.PayoutPercent = rec.PayoutPercent
			if rec.Price != nil {
				// Explicit per-session price wins verbatim, no re-rounding.
				s.Price = *rec.Price
			}
			if s.Status == "" {
				s.Status = domain.SessionStatusInProgress
			}
			if s.Payment == "" {
				s.Payment = domain.SessionPaymentNotPaid
			}
		}
		out = append(out, s)
	}

	return out
}

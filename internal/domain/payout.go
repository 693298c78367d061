package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type PayoutStatus string

const (
	PayoutStatusPending    PayoutStatus = "PENDING"
	PayoutStatusProcessing PayoutStatus = "PROCESSING"
	PayoutStatusPaid       PayoutStatus = "PAID"
	PayoutStatusFailed     PayoutStatus = "FAILED"
)

// Payout is money owed to a therapist for one completed, paid session-unit.
// SessionKey is the normalizer's "<appointmentID>-<index>" join key; a session
// is payable exactly once, enforced by a unique constraint on that column.
type Payout struct {
	ID            string          `json:"id"`
	TherapistID   string          `json:"therapist_id"`
	AppointmentID string          `json:"appointment_id"`
	SessionKey    string          `json:"session_key"`
	Amount        decimal.Decimal `json:"amount"`
	Percent       decimal.Decimal `json:"percent"`
	Currency      string          `json:"currency"`
	Status        PayoutStatus    `json:"status"`
	BatchID       string          `json:"batch_id"`
	CreatedAt     time.Time       `json:"created_at"`
	PaidAt        *time.Time      `json:"paid_at,omitempty"`
}

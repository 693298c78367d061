package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AppointmentPayment is the per-appointment payment ledger: how many
// session-units were funded by each source and how many have been clawed
// back. Unit counts are decimals because refunds are quantized in fractional
// steps of a session-unit.
//
// Invariant: RefundedUnitsFromBalance <= SessionsPaidWithBalance and
// RefundedUnitsFromStripe <= SessionsPaidWithStripe; refunded counts only
// ever grow.
type AppointmentPayment struct {
	AppointmentID            string          `json:"appointment_id"`
	SessionsPaidWithBalance  decimal.Decimal `json:"sessions_paid_with_balance"`
	SessionsPaidWithStripe   decimal.Decimal `json:"sessions_paid_with_stripe"`
	RefundedUnitsFromBalance decimal.Decimal `json:"refunded_units_from_balance"`
	RefundedUnitsFromStripe  decimal.Decimal `json:"refunded_units_from_stripe"`
	UnitPrice                decimal.Decimal `json:"unit_price"`
	Currency                 string          `json:"currency"`
	UpdatedAt                time.Time       `json:"updated_at"`
}

// RefundResult is the outcome of one refund computation. The caller persists
// the ledger deltas and triggers the gateway refund; balance claw-backs never
// generate a money refund, they return session-units to the patient's credit
// ledger instead.
type RefundResult struct {
	FromBalance          decimal.Decimal `json:"from_balance"`
	FromStripe           decimal.Decimal `json:"from_stripe"`
	MoneyRefund          decimal.Decimal `json:"money_refund"`
	SessionUnitsRefunded decimal.Decimal `json:"session_units_refunded"`
}

package billing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"telecare-backend/internal/domain"
	"telecare-backend/internal/logger"
)

type RefundPolicy string

const (
	RefundPolicyFull RefundPolicy = "full"
	RefundPolicyHalf RefundPolicy = "half"
	RefundPolicyNone RefundPolicy = "none"
)

var (
	ErrNegativeStep  = errors.New("refund step must not be negative")
	ErrUnknownPolicy = errors.New("unknown refund policy")
)

// DefaultRefundStep is the business's smallest billable increment of a
// session-unit.
var DefaultRefundStep = decimal.NewFromFloat(0.1)

// RefundView is the ledger slice the allocator works from.
type RefundView struct {
	TotalUnits               decimal.Decimal
	CompletedUnits           decimal.Decimal
	SessionsPaidWithBalance  decimal.Decimal
	SessionsPaidWithStripe   decimal.Decimal
	RefundedUnitsFromBalance decimal.Decimal
	RefundedUnitsFromStripe  decimal.Decimal
	UnitPrice                decimal.Decimal
}

// ComputeRefund allocates a refund across payment sources. Balance-funded
// units are clawed back first: a balance claw-back is a free internal ledger
// adjustment while a Stripe refund costs gateway fees and latency.
//
// The desired amount is quantized down to the nearest multiple of step before
// allocation, which keeps the result idempotent under re-application. A zero
// step disables quantization; a negative step is rejected.
//
// Pure: no I/O. The caller persists the ledger deltas and issues the gateway
// refund for MoneyRefund.
func ComputeRefund(view RefundView, policy RefundPolicy, step decimal.Decimal) (domain.RefundResult, error) {
	if step.IsNegative() {
		return domain.RefundResult{}, ErrNegativeStep
	}

	remaining := view.TotalUnits.Sub(view.CompletedUnits)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}

	var desired decimal.Decimal
	switch policy {
	case RefundPolicyFull:
		desired = remaining
	case RefundPolicyHalf:
		desired = remaining.Div(decimal.NewFromInt(2))
	case RefundPolicyNone:
		desired = decimal.Zero
	default:
		return domain.RefundResult{}, fmt.Errorf("%w: %q", ErrUnknownPolicy, policy)
	}

	if step.IsPositive() {
		desired = desired.Div(step).Floor().Mul(step)
	}

	availableFromBalance := view.SessionsPaidWithBalance.Sub(view.RefundedUnitsFromBalance)
	if availableFromBalance.IsNegative() {
		// Refunded more than was ever paid from this source: a ledger
		// corruption signal. Clamp so the patient is never over-refunded,
		// but make it visible.
		logger.Warn("refunded balance units exceed balance-paid units",
			"paid", view.SessionsPaidWithBalance, "refunded", view.RefundedUnitsFromBalance)
		availableFromBalance = decimal.Zero
	}
	availableFromStripe := view.SessionsPaidWithStripe.Sub(view.RefundedUnitsFromStripe)
	if availableFromStripe.IsNegative() {
		logger.Warn("refunded stripe units exceed stripe-paid units",
			"paid", view.SessionsPaidWithStripe, "refunded", view.RefundedUnitsFromStripe)
		availableFromStripe = decimal.Zero
	}

	fromBalance := decimal.Min(desired, availableFromBalance)
	fromStripe := decimal.Min(desired.Sub(fromBalance), availableFromStripe)

	// Truncate at the cent boundary. Never round up: floating-point drift must
	// not refund a cent more than was charged.
	moneyRefund := fromStripe.Mul(view.UnitPrice).Truncate(2)

	return domain.RefundResult{
		FromBalance:          fromBalance,
		FromStripe:           fromStripe,
		MoneyRefund:          moneyRefund,
		SessionUnitsRefunded: fromBalance.Add(fromStripe),
	}, nil
}

// DedupeKey is the idempotency key for one logical refund request. Callers
// check it against their idempotency ledger before processing; the allocator
// itself keeps no state. An empty slotID means the whole series.
func DedupeKey(appointmentID string, policy RefundPolicy, slotID string) string {
	if slotID == "" {
		slotID = "series"
	}
	return fmt.Sprintf("%s:%s:%s", appointmentID, policy, slotID)
}

// ComputePayout is the therapist's share of one session-unit at the given
// percentage, truncated to cents.
func ComputePayout(unitPrice, percent decimal.Decimal) decimal.Decimal {
	return unitPrice.Mul(percent).Div(decimal.NewFromInt(100)).Truncate(2)
}

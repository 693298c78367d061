package billing

import (
	"context"
	"sync"

	"telecare-backend/internal/domain"
	"telecare-backend/internal/logger"
)

// Gateway payment statuses as returned by StatusLookup implementations.
const (
	GatewayStatusPaid              = "paid"
	GatewayStatusUnpaid            = "unpaid"
	GatewayStatusPending           = "pending"
	GatewayStatusNoPaymentRequired = "no_payment_required"
)

// StatusLookup resolves the live payment status for an appointment's gateway
// identifiers. Implementations may fail with network or gateway errors; the
// verifier downgrades those to an unpaid result instead of propagating them.
type StatusLookup interface {
	GetPaymentStatus(ctx context.Context, checkoutSessionID, paymentIntentID string) (string, error)
}

type VerificationSource string

const (
	SourceBalance VerificationSource = "balance"
	SourceWebhook VerificationSource = "webhook"
	SourceStripe  VerificationSource = "stripe"
	SourceNone    VerificationSource = "none"
)

// PaymentView is the slice of an appointment the verifier needs.
type PaymentView struct {
	AppointmentID     string
	PaymentStatus     domain.PaymentStatus
	IsStripeVerified  bool
	IsBalance         bool
	CheckoutSessionID string
	PaymentIntentID   string
}

type Verification struct {
	IsPaid           bool                 `json:"is_paid"`
	PaymentStatus    domain.PaymentStatus `json:"payment_status"`
	IsStripeVerified bool                 `json:"is_stripe_verified"`
	IsBalance        bool                 `json:"is_balance"`
	Source           VerificationSource   `json:"verification_source"`
}

type Verifier struct {
	lookup StatusLookup
}

func NewVerifier(lookup StatusLookup) *Verifier {
	return &Verifier{lookup: lookup}
}

// Verify resolves whether an appointment is paid. Checks are ordered by
// precedence and the first match wins:
//
//  1. balance-paid (no gateway involvement at all)
//  2. webhook-verified (trust the cached confirmation, skip the gateway)
//  3. live gateway lookup when an identifier exists
//  4. pending without identifiers
//  5. unpaid fallback
//
// Verify never returns an error: callers batch-verify and a single gateway
// failure must not abort the batch.
func (v *Verifier) Verify(ctx context.Context, view PaymentView) Verification {
	switch {
	case view.IsBalance:
		if view.IsStripeVerified {
			// Contradictory flags; balance is authoritative per check order.
			logger.Warn("appointment flagged both balance-paid and stripe-verified",
				"appointment_id", view.AppointmentID)
		}
		return Verification{
			IsPaid:           true,
			PaymentStatus:    domain.PaymentStatusCompleted,
			IsStripeVerified: view.IsStripeVerified,
			IsBalance:        true,
			Source:           SourceBalance,
		}

	case view.IsStripeVerified:
		return Verification{
			IsPaid:           true,
			PaymentStatus:    domain.PaymentStatusCompleted,
			IsStripeVerified: true,
			Source:           SourceWebhook,
		}

	case view.CheckoutSessionID != "" || view.PaymentIntentID != "":
		status, err := v.lookup.GetPaymentStatus(ctx, view.CheckoutSessionID, view.PaymentIntentID)
		if err != nil {
			logger.Warn("gateway payment lookup failed",
				"appointment_id", view.AppointmentID, "error", err)
			return Verification{
				IsPaid:        false,
				PaymentStatus: domain.PaymentStatusFailed,
				Source:        SourceNone,
			}
		}
		if status == GatewayStatusPaid {
			return Verification{
				IsPaid:           true,
				PaymentStatus:    domain.PaymentStatusCompleted,
				IsStripeVerified: true,
				Source:           SourceStripe,
			}
		}
		return Verification{
			IsPaid:        false,
			PaymentStatus: domain.PaymentStatus(status),
			Source:        SourceNone,
		}

	case view.PaymentStatus == domain.PaymentStatusPending:
		return Verification{
			IsPaid:        false,
			PaymentStatus: domain.PaymentStatusPending,
			Source:        SourceNone,
		}

	default:
		return Verification{
			IsPaid:        false,
			PaymentStatus: domain.PaymentStatusUnpaid,
			Source:        SourceNone,
		}
	}
}

// VerifyBatch applies Verify concurrently to each view. The result slice is
// positional: out[i] always corresponds to views[i], because callers zip
// results back against the input collection.
func (v *Verifier) VerifyBatch(ctx context.Context, views []PaymentView) []Verification {
	out := make([]Verification, len(views))
	var wg sync.WaitGroup
	for i, view := range views {
		wg.Add(1)
		go func(i int, view PaymentView) {
			defer wg.Done()
			out[i] = v.Verify(ctx, view)
		}(i, view)
	}
	wg.Wait()
	return out
}

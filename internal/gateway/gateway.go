package gateway

import (
	"context"

	"github.com/shopspring/decimal"
)

// GatewayInterface abstracts the payment provider. Supports the real Stripe
// client and an in-memory mock for development and tests.
type GatewayInterface interface {
	// GetPaymentStatus resolves the payment status for a checkout session
	// and/or payment intent. At least one identifier must be non-empty.
	// Returns one of the billing gateway status strings ("paid", "unpaid",
	// "pending", "no_payment_required").
	GetPaymentStatus(ctx context.Context, checkoutSessionID, paymentIntentID string) (string, error)

	// CreateRefund issues a money refund against a payment intent.
	// idempotencyKey guards against double-submission on retried requests.
	// Returns the provider's refund identifier.
	CreateRefund(ctx context.Context, paymentIntentID string, amount decimal.Decimal, currency, idempotencyKey string) (string, error)
}

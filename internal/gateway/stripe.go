package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"

	"telecare-backend/internal/billing"
	"telecare-backend/internal/logger"
)

var ErrMissingPaymentID = errors.New("checkout session or payment intent id required")

// StripeService implements GatewayInterface against the Stripe API.
type StripeService struct {
	api *client.API
}

func NewStripeService(apiKey string) *StripeService {
	api := &client.API{}
	api.Init(apiKey, nil)
	return &StripeService{api: api}
}

// GetPaymentStatus prefers the checkout session when both identifiers are
// present; its payment_status field already carries the canonical values.
func (s *StripeService) GetPaymentStatus(ctx context.Context, checkoutSessionID, paymentIntentID string) (string, error) {
	if checkoutSessionID != "" {
		logger.ExternalServiceCall("stripe", "GetCheckoutSession", "id", checkoutSessionID)
		sess, err := s.api.CheckoutSessions.Get(checkoutSessionID, &stripe.CheckoutSessionParams{
			Params: stripe.Params{Context: ctx},
		})
		logger.ExternalServiceResult("stripe", "GetCheckoutSession", err, "id", checkoutSessionID)
		if err != nil {
			return "", fmt.Errorf("stripe checkout session lookup: %w", err)
		}
		return string(sess.PaymentStatus), nil
	}

	if paymentIntentID != "" {
		logger.ExternalServiceCall("stripe", "GetPaymentIntent", "id", paymentIntentID)
		intent, err := s.api.PaymentIntents.Get(paymentIntentID, &stripe.PaymentIntentParams{
			Params: stripe.Params{Context: ctx},
		})
		logger.ExternalServiceResult("stripe", "GetPaymentIntent", err, "id", paymentIntentID)
		if err != nil {
			return "", fmt.Errorf("stripe payment intent lookup: %w", err)
		}
		return mapIntentStatus(intent.Status), nil
	}

	return "", ErrMissingPaymentID
}

func mapIntentStatus(status stripe.PaymentIntentStatus) string {
	switch status {
	case stripe.PaymentIntentStatusSucceeded:
		return billing.GatewayStatusPaid
	case stripe.PaymentIntentStatusProcessing:
		return billing.GatewayStatusPending
	default:
		// requires_payment_method, requires_confirmation, requires_action,
		// requires_capture, canceled
		return billing.GatewayStatusUnpaid
	}
}

// CreateRefund issues a partial or full refund against the payment intent.
// The idempotency key makes retried requests safe on the Stripe side.
func (s *StripeService) CreateRefund(ctx context.Context, paymentIntentID string, amount decimal.Decimal, currency, idempotencyKey string) (string, error) {
	if paymentIntentID == "" {
		return "", ErrMissingPaymentID
	}

	cents := amount.Mul(decimal.NewFromInt(100)).IntPart()

	params := &stripe.RefundParams{
		Params: stripe.Params{
			Context:        ctx,
			IdempotencyKey: stripe.String(idempotencyKey),
		},
		PaymentIntent: stripe.String(paymentIntentID),
		Amount:        stripe.Int64(cents),
	}

	logger.ExternalServiceCall("stripe", "CreateRefund",
		"payment_intent", paymentIntentID, "amount_cents", cents)
	ref, err := s.api.Refunds.New(params)
	logger.ExternalServiceResult("stripe", "CreateRefund", err, "payment_intent", paymentIntentID)
	if err != nil {
		return "", fmt.Errorf("stripe refund: %w", err)
	}
	return ref.ID, nil
}

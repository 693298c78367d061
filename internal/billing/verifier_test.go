package billing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"telecare-backend/internal/domain"
)

type MockStatusLookup struct {
	mock.Mock
}

func (m *MockStatusLookup) GetPaymentStatus(ctx context.Context, checkoutSessionID, paymentIntentID string) (string, error) {
	args := m.Called(ctx, checkoutSessionID, paymentIntentID)
	return args.String(0), args.Error(1)
}

func TestVerifier_Verify(t *testing.T) {
	ctx := context.Background()

	t.Run("Balance payment wins without gateway lookup", func(t *testing.T) {
		lookup := new(MockStatusLookup)
		v := NewVerifier(lookup)

		res := v.Verify(ctx, PaymentView{
			AppointmentID:     "a1",
			IsBalance:         true,
			CheckoutSessionID: "cs_123",
		})

		assert.True(t, res.IsPaid)
		assert.Equal(t, SourceBalance, res.Source)
		assert.Equal(t, domain.PaymentStatusCompleted, res.PaymentStatus)
		lookup.AssertNotCalled(t, "GetPaymentStatus")
	})

	t.Run("Balance wins over contradictory stripe flag", func(t *testing.T) {
		lookup := new(MockStatusLookup)
		v := NewVerifier(lookup)

		res := v.Verify(ctx, PaymentView{AppointmentID: "a1", IsBalance: true, IsStripeVerified: true})

		assert.True(t, res.IsPaid)
		assert.Equal(t, SourceBalance, res.Source)
	})

	t.Run("Cached webhook confirmation trusted without re-query", func(t *testing.T) {
		lookup := new(MockStatusLookup)
		v := NewVerifier(lookup)

		res := v.Verify(ctx, PaymentView{
			AppointmentID:     "a1",
			IsStripeVerified:  true,
			CheckoutSessionID: "cs_123",
		})

		assert.True(t, res.IsPaid)
		assert.Equal(t, SourceWebhook, res.Source)
		lookup.AssertNotCalled(t, "GetPaymentStatus")
	})

	t.Run("Live lookup paid", func(t *testing.T) {
		lookup := new(MockStatusLookup)
		lookup.On("GetPaymentStatus", ctx, "cs_123", "pi_456").Return(GatewayStatusPaid, nil)
		v := NewVerifier(lookup)

		res := v.Verify(ctx, PaymentView{
			AppointmentID:     "a1",
			CheckoutSessionID: "cs_123",
			PaymentIntentID:   "pi_456",
		})

		assert.True(t, res.IsPaid)
		assert.True(t, res.IsStripeVerified)
		assert.Equal(t, SourceStripe, res.Source)
		lookup.AssertExpectations(t)
	})

	t.Run("Live lookup mirrors non-paid gateway status", func(t *testing.T) {
		lookup := new(MockStatusLookup)
		lookup.On("GetPaymentStatus", ctx, "cs_123", "").Return(GatewayStatusUnpaid, nil)
		v := NewVerifier(lookup)

		res := v.Verify(ctx, PaymentView{AppointmentID: "a1", CheckoutSessionID: "cs_123"})

		assert.False(t, res.IsPaid)
		assert.Equal(t, domain.PaymentStatusUnpaid, res.PaymentStatus)
		assert.Equal(t, SourceNone, res.Source)
	})

	t.Run("Gateway failure downgrades instead of throwing", func(t *testing.T) {
		lookup := new(MockStatusLookup)
		lookup.On("GetPaymentStatus", ctx, "cs_bad", "").Return("", errors.New("gateway unavailable"))
		v := NewVerifier(lookup)

		res := v.Verify(ctx, PaymentView{AppointmentID: "a1", CheckoutSessionID: "cs_bad"})

		assert.False(t, res.IsPaid)
		assert.Equal(t, domain.PaymentStatusFailed, res.PaymentStatus)
		assert.Equal(t, SourceNone, res.Source)
	})

	t.Run("Pending without identifiers", func(t *testing.T) {
		v := NewVerifier(new(MockStatusLookup))

		res := v.Verify(ctx, PaymentView{AppointmentID: "a1", PaymentStatus: domain.PaymentStatusPending})

		assert.False(t, res.IsPaid)
		assert.Equal(t, domain.PaymentStatusPending, res.PaymentStatus)
	})

	t.Run("Fallback is unpaid", func(t *testing.T) {
		v := NewVerifier(new(MockStatusLookup))

		res := v.Verify(ctx, PaymentView{AppointmentID: "a1"})

		assert.False(t, res.IsPaid)
		assert.Equal(t, domain.PaymentStatusUnpaid, res.PaymentStatus)
		assert.Equal(t, SourceNone, res.Source)
	})
}

func TestVerifier_VerifyBatch(t *testing.T) {
	ctx := context.Background()

	t.Run("One failing lookup does not abort the batch", func(t *testing.T) {
		lookup := new(MockStatusLookup)
		lookup.On("GetPaymentStatus", ctx, "cs_1", "").Return(GatewayStatusPaid, nil)
		lookup.On("GetPaymentStatus", ctx, "cs_2", "").Return(GatewayStatusPaid, nil)
		lookup.On("GetPaymentStatus", ctx, "cs_3", "").Return("", errors.New("boom"))
		lookup.On("GetPaymentStatus", ctx, "cs_4", "").Return(GatewayStatusUnpaid, nil)
		lookup.On("GetPaymentStatus", ctx, "cs_5", "").Return(GatewayStatusPaid, nil)
		v := NewVerifier(lookup)

		views := make([]PaymentView, 5)
		for i := range views {
			views[i] = PaymentView{
				AppointmentID:     string(rune('a' + i)),
				CheckoutSessionID: "cs_" + string(rune('1'+i)),
			}
		}

		out := v.VerifyBatch(ctx, views)

		assert.Len(t, out, 5)
		assert.True(t, out[0].IsPaid)
		assert.True(t, out[1].IsPaid)
		assert.False(t, out[2].IsPaid)
		assert.Equal(t, SourceNone, out[2].Source)
		assert.Equal(t, domain.PaymentStatusFailed, out[2].PaymentStatus)
		assert.False(t, out[3].IsPaid)
		assert.Equal(t, domain.PaymentStatusUnpaid, out[3].PaymentStatus)
		assert.True(t, out[4].IsPaid)
	})

	t.Run("Order preserved across mixed sources", func(t *testing.T) {
		lookup := new(MockStatusLookup)
		lookup.On("GetPaymentStatus", ctx, "cs_x", "").Return(GatewayStatusPaid, nil)
		v := NewVerifier(lookup)

		out := v.VerifyBatch(ctx, []PaymentView{
			{AppointmentID: "a", IsBalance: true},
			{AppointmentID: "b", CheckoutSessionID: "cs_x"},
			{AppointmentID: "c", IsStripeVerified: true},
		})

		assert.Equal(t, SourceBalance, out[0].Source)
		assert.Equal(t, SourceStripe, out[1].Source)
		assert.Equal(t, SourceWebhook, out[2].Source)
	})

	t.Run("Empty input", func(t *testing.T) {
		v := NewVerifier(new(MockStatusLookup))
		assert.Empty(t, v.VerifyBatch(ctx, nil))
	})
}

package gateway

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"telecare-backend/internal/billing"
)

// MockGatewayService is an in-memory gateway for demo and test runs without
// Stripe credentials. Statuses are preloaded per identifier; unknown
// identifiers read as unpaid.
type MockGatewayService struct {
	mu       sync.Mutex
	statuses map[string]string
	refunds  map[string]decimal.Decimal // refund id -> amount
	seen     map[string]string          // idempotency key -> refund id
}

func NewMockGatewayService() *MockGatewayService {
	return &MockGatewayService{
		statuses: make(map[string]string),
		refunds:  make(map[string]decimal.Decimal),
		seen:     make(map[string]string),
	}
}

// SetStatus preloads the status returned for a checkout session or payment
// intent identifier.
func (m *MockGatewayService) SetStatus(id, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses[id] = status
}

func (m *MockGatewayService) GetPaymentStatus(ctx context.Context, checkoutSessionID, paymentIntentID string) (string, error) {
	if checkoutSessionID == "" && paymentIntentID == "" {
		return "", ErrMissingPaymentID
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if status, ok := m.statuses[checkoutSessionID]; ok {
		return status, nil
	}
	if status, ok := m.statuses[paymentIntentID]; ok {
		return status, nil
	}
	return billing.GatewayStatusUnpaid, nil
}

func (m *MockGatewayService) CreateRefund(ctx context.Context, paymentIntentID string, amount decimal.Decimal, currency, idempotencyKey string) (string, error) {
	if paymentIntentID == "" {
		return "", ErrMissingPaymentID
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.seen[idempotencyKey]; ok {
		return id, nil
	}
	id := fmt.Sprintf("re_mock_%s", uuid.NewString())
	m.refunds[id] = amount
	m.seen[idempotencyKey] = id
	return id, nil
}

// RefundedAmount reports the total refunded against the mock, for assertions.
func (m *MockGatewayService) RefundedAmount() decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := decimal.Zero
	for _, amt := range m.refunds {
		total = total.Add(amt)
	}
	return total
}

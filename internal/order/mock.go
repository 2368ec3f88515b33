package order

import (
	"context"
	"sync"
)

// MockProvider is a test implementation of Provider. It records every
// CreateOrder call; CreateOrderFunc, when set, decides the outcome.
type MockProvider struct {
	CreateOrderFunc func(ctx context.Context, params CreateOrderParams) (*Receipt, error)

	mu    sync.Mutex
	calls []CreateOrderParams
}

// NewMockProvider creates a mock order provider.
func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

// CreateOrder records the call and delegates to CreateOrderFunc. Without a
// configured function it returns a minimal pending receipt echoing the
// totals it was given.
func (m *MockProvider) CreateOrder(ctx context.Context, params CreateOrderParams) (*Receipt, error) {
	m.mu.Lock()
	m.calls = append(m.calls, params)
	m.mu.Unlock()

	if m.CreateOrderFunc != nil {
		return m.CreateOrderFunc(ctx, params)
	}
	return &Receipt{
		OrderNumber:          "ORD-TEST",
		TotalAmount:          params.TotalAmount,
		TotalCarbonFootprint: params.TotalCarbonFootprint,
		Status:               StatusPending,
	}, nil
}

// Calls returns a copy of the recorded CreateOrder parameters.
func (m *MockProvider) Calls() []CreateOrderParams {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]CreateOrderParams, len(m.calls))
	copy(out, m.calls)
	return out
}

package catalog

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MockProvider is a test implementation of Provider backed by an in-memory
// item map. GetItemFunc, when set, overrides the map lookup entirely.
type MockProvider struct {
	GetItemFunc func(ctx context.Context, productID uuid.UUID) (*Item, error)

	mu    sync.RWMutex
	items map[uuid.UUID]Item
}

// NewMockProvider creates an empty mock catalog.
func NewMockProvider() *MockProvider {
	return &MockProvider{items: make(map[uuid.UUID]Item)}
}

// Put registers or replaces an item in the mock catalog.
func (m *MockProvider) Put(item Item) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[item.ID] = item
}

// Remove deletes an item, simulating a product being retired mid-flight.
func (m *MockProvider) Remove(productID uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, productID)
}

// GetItem delegates to GetItemFunc when configured, otherwise looks up the
// in-memory map.
func (m *MockProvider) GetItem(ctx context.Context, productID uuid.UUID) (*Item, error) {
	if m.GetItemFunc != nil {
		return m.GetItemFunc(ctx, productID)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	item, ok := m.items[productID]
	if !ok {
		return nil, ErrItemNotFound
	}
	return &item, nil
}

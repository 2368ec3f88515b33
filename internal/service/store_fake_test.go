package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/anbanon/verdana/internal/domain"
)

// fakeCartStore is an in-memory domain.CartStore with commit/rollback
// semantics: Mutate runs against the live maps but snapshots them first and
// restores the snapshot when the callback (or an injected commit failure)
// errors, so atomicity behavior is observable in tests.
type fakeCartStore struct {
	mu    sync.Mutex
	carts map[uuid.UUID]domain.Cart
	items map[uuid.UUID]domain.LineItem
	seq   int64

	// commitErr, when set, fails Mutate after the callback ran and rolls
	// everything back.
	commitErr error
}

func newFakeCartStore() *fakeCartStore {
	return &fakeCartStore{
		carts: make(map[uuid.UUID]domain.Cart),
		items: make(map[uuid.UUID]domain.LineItem),
	}
}

func (s *fakeCartStore) nextTime() time.Time {
	s.seq++
	return time.Unix(0, s.seq)
}

func (s *fakeCartStore) CartByID(ctx context.Context, id uuid.UUID) (*domain.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.carts[id]; ok {
		return &c, nil
	}
	return nil, domain.ErrCartNotFound
}

func (s *fakeCartStore) CartByUser(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.carts {
		if c.UserID.Valid && c.UserID.UUID == userID {
			return &c, nil
		}
	}
	return nil, domain.ErrCartNotFound
}

func (s *fakeCartStore) CartBySession(ctx context.Context, token string) (*domain.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.carts {
		if c.SessionToken == token {
			return &c, nil
		}
	}
	return nil, domain.ErrCartNotFound
}

func (s *fakeCartStore) CreateUserCart(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.carts {
		if c.UserID.Valid && c.UserID.UUID == userID {
			return &c, nil
		}
	}
	now := s.nextTime()
	c := domain.Cart{
		ID:        uuid.New(),
		UserID:    uuid.NullUUID{UUID: userID, Valid: true},
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.carts[c.ID] = c
	return &c, nil
}

func (s *fakeCartStore) CreateSessionCart(ctx context.Context, token string) (*domain.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.carts {
		if c.SessionToken == token {
			return &c, nil
		}
	}
	now := s.nextTime()
	c := domain.Cart{
		ID:           uuid.New(),
		SessionToken: token,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.carts[c.ID] = c
	return &c, nil
}

func (s *fakeCartStore) Items(ctx context.Context, cartID uuid.UUID) ([]domain.LineItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.itemsLocked(cartID), nil
}

func (s *fakeCartStore) itemsLocked(cartID uuid.UUID) []domain.LineItem {
	var out []domain.LineItem
	for _, it := range s.items {
		if it.CartID == cartID {
			out = append(out, it)
		}
	}
	// Stable order: by when the item was added.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].AddedAt.Before(out[j-1].AddedAt); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

func (s *fakeCartStore) Mutate(ctx context.Context, fn func(tx domain.CartTx) error, cartIDs ...uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range cartIDs {
		if _, ok := s.carts[id]; !ok {
			return domain.ErrCartNotFound
		}
	}

	cartsBefore := make(map[uuid.UUID]domain.Cart, len(s.carts))
	for k, v := range s.carts {
		cartsBefore[k] = v
	}
	itemsBefore := make(map[uuid.UUID]domain.LineItem, len(s.items))
	for k, v := range s.items {
		itemsBefore[k] = v
	}

	rollback := func() {
		s.carts = cartsBefore
		s.items = itemsBefore
	}

	if err := fn(&fakeCartTx{store: s}); err != nil {
		rollback()
		return err
	}
	if s.commitErr != nil {
		rollback()
		return s.commitErr
	}
	return nil
}

type fakeCartTx struct {
	store *fakeCartStore
}

func (t *fakeCartTx) Items(ctx context.Context, cartID uuid.UUID) ([]domain.LineItem, error) {
	return t.store.itemsLocked(cartID), nil
}

func (t *fakeCartTx) ItemByID(ctx context.Context, cartID, itemID uuid.UUID) (*domain.LineItem, error) {
	if it, ok := t.store.items[itemID]; ok && it.CartID == cartID {
		return &it, nil
	}
	return nil, domain.ErrCartItemNotFound
}

func (t *fakeCartTx) ItemByProduct(ctx context.Context, cartID, productID uuid.UUID) (*domain.LineItem, error) {
	for _, it := range t.store.items {
		if it.CartID == cartID && it.ProductID == productID {
			return &it, nil
		}
	}
	return nil, domain.ErrCartItemNotFound
}

func (t *fakeCartTx) AddItemQuantity(ctx context.Context, cartID, productID uuid.UUID, quantity int32) (*domain.LineItem, error) {
	for id, it := range t.store.items {
		if it.CartID == cartID && it.ProductID == productID {
			it.Quantity += quantity
			t.store.items[id] = it
			return &it, nil
		}
	}
	it := domain.LineItem{
		ID:        uuid.New(),
		CartID:    cartID,
		ProductID: productID,
		Quantity:  quantity,
		AddedAt:   t.store.nextTime(),
	}
	t.store.items[it.ID] = it
	return &it, nil
}

func (t *fakeCartTx) SetItemQuantity(ctx context.Context, itemID uuid.UUID, quantity int32) error {
	it, ok := t.store.items[itemID]
	if !ok {
		return domain.ErrCartItemNotFound
	}
	it.Quantity = quantity
	t.store.items[itemID] = it
	return nil
}

func (t *fakeCartTx) MoveItem(ctx context.Context, itemID, destCartID uuid.UUID) error {
	it, ok := t.store.items[itemID]
	if !ok {
		return domain.ErrCartItemNotFound
	}
	it.CartID = destCartID
	t.store.items[itemID] = it
	return nil
}

func (t *fakeCartTx) DeleteItem(ctx context.Context, itemID uuid.UUID) error {
	if _, ok := t.store.items[itemID]; !ok {
		return domain.ErrCartItemNotFound
	}
	delete(t.store.items, itemID)
	return nil
}

func (t *fakeCartTx) DeleteItems(ctx context.Context, cartID uuid.UUID) error {
	for id, it := range t.store.items {
		if it.CartID == cartID {
			delete(t.store.items, id)
		}
	}
	return nil
}

func (t *fakeCartTx) DeleteCart(ctx context.Context, cartID uuid.UUID) error {
	for id, it := range t.store.items {
		if it.CartID == cartID {
			delete(t.store.items, id)
		}
	}
	delete(t.store.carts, cartID)
	return nil
}

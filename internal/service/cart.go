package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/anbanon/verdana/internal/catalog"
	"github.com/anbanon/verdana/internal/domain"
	"github.com/anbanon/verdana/internal/telemetry"
)

// DefaultMaxItemQuantity is the per-product quantity cap used when the
// configuration does not override it.
const DefaultMaxItemQuantity = 10

// CartService implements domain.CartService: cart resolution plus all
// line-item mutations. Every mutation runs under the store's cart lock, so
// read-modify-write cycles against the same cart are serialized.
type CartService struct {
	store   domain.CartStore
	catalog catalog.Provider
	metrics *telemetry.Metrics
	maxQty  int32
}

// Compile-time check that CartService implements domain.CartService.
var _ domain.CartService = (*CartService)(nil)

// NewCartService creates the cart service. A non-positive maxItemQuantity
// falls back to DefaultMaxItemQuantity.
func NewCartService(store domain.CartStore, cat catalog.Provider, metrics *telemetry.Metrics, maxItemQuantity int) *CartService {
	if maxItemQuantity <= 0 {
		maxItemQuantity = DefaultMaxItemQuantity
	}
	return &CartService{
		store:   store,
		catalog: cat,
		metrics: metrics,
		maxQty:  int32(maxItemQuantity),
	}
}

// MaxItemQuantity returns the per-product quantity cap.
func (s *CartService) MaxItemQuantity() int32 {
	return s.maxQty
}

// =============================================================================
// CART RESOLUTION
// =============================================================================

// Resolve implements domain.CartService. The user id wins over a session
// token, so an authenticated request never resolves to an anonymous cart.
// Create races against concurrent requests for the same identity are settled
// inside the store; both callers end up with the same cart.
func (s *CartService) Resolve(ctx context.Context, identity domain.Identity) (*domain.Cart, error) {
	if !identity.Usable() {
		return nil, domain.ErrNoIdentity
	}

	if identity.Authenticated() {
		cart, err := s.store.CartByUser(ctx, identity.UserID.UUID)
		if errors.Is(err, domain.ErrCartNotFound) {
			s.metrics.CartsCreated.Inc()
			return s.store.CreateUserCart(ctx, identity.UserID.UUID)
		}
		return cart, err
	}

	cart, err := s.store.CartBySession(ctx, identity.SessionToken)
	if errors.Is(err, domain.ErrCartNotFound) {
		s.metrics.CartsCreated.Inc()
		return s.store.CreateSessionCart(ctx, identity.SessionToken)
	}
	return cart, err
}

// =============================================================================
// LINE-ITEM MUTATIONS
// =============================================================================

// AddItem implements domain.CartService. Adding a product already in the
// cart folds into the existing row; the resulting quantity must stay within
// the per-product cap or the whole call fails and the cart is untouched.
func (s *CartService) AddItem(ctx context.Context, cartID, productID uuid.UUID, quantity int) (*domain.LineItem, error) {
	const op = "cart.add_item"

	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}
	// Compare before any int32 conversion; a quantity past the cap must fail
	// here no matter how large it is.
	if quantity > int(s.maxQty) {
		return nil, ErrQuantityLimit
	}

	if _, err := s.catalog.GetItem(ctx, productID); err != nil {
		if errors.Is(err, catalog.ErrItemNotFound) {
			return nil, domain.NewValidationError(op, "product_id", "Unknown product")
		}
		return nil, domain.Internal(err, op, "failed to look up product")
	}

	var result *domain.LineItem
	err := s.store.Mutate(ctx, func(tx domain.CartTx) error {
		existing, err := tx.ItemByProduct(ctx, cartID, productID)
		if err != nil && !errors.Is(err, domain.ErrCartItemNotFound) {
			return err
		}
		if existing != nil && existing.Quantity+int32(quantity) > s.maxQty {
			return ErrQuantityLimit
		}

		result, err = tx.AddItemQuantity(ctx, cartID, productID, int32(quantity))
		return err
	}, cartID)
	if err != nil {
		return nil, err
	}

	s.metrics.CartUpdates.WithLabelValues("add").Inc()
	s.metrics.ItemsAdded.Add(float64(quantity))
	return result, nil
}

// AdjustItem implements domain.CartService. The delta is signed and must be
// non-zero; an adjustment that would drop the quantity to zero or below
// deletes the row and returns a nil line item.
func (s *CartService) AdjustItem(ctx context.Context, cartID, itemID uuid.UUID, delta int) (*domain.LineItem, error) {
	const op = "cart.adjust_item"

	if delta == 0 {
		return nil, domain.Invalid(op, "Delta must be non-zero")
	}
	if delta > int(s.maxQty) || delta < -int(s.maxQty) {
		return nil, domain.Invalid(op, "Delta out of range")
	}

	var result *domain.LineItem
	err := s.store.Mutate(ctx, func(tx domain.CartTx) error {
		item, err := tx.ItemByID(ctx, cartID, itemID)
		if err != nil {
			return err
		}

		next := item.Quantity + int32(delta)
		switch {
		case next <= 0:
			result = nil
			return tx.DeleteItem(ctx, itemID)
		case next > s.maxQty:
			return ErrQuantityLimit
		default:
			if err := tx.SetItemQuantity(ctx, itemID, next); err != nil {
				return err
			}
			item.Quantity = next
			result = item
			return nil
		}
	}, cartID)
	if err != nil {
		return nil, err
	}

	s.metrics.CartUpdates.WithLabelValues("adjust").Inc()
	return result, nil
}

// RemoveItem implements domain.CartService.
func (s *CartService) RemoveItem(ctx context.Context, cartID, itemID uuid.UUID) error {
	err := s.store.Mutate(ctx, func(tx domain.CartTx) error {
		if _, err := tx.ItemByID(ctx, cartID, itemID); err != nil {
			return err
		}
		return tx.DeleteItem(ctx, itemID)
	}, cartID)
	if err != nil {
		return err
	}

	s.metrics.CartUpdates.WithLabelValues("remove").Inc()
	return nil
}

// Clear implements domain.CartService. Clearing an already-empty cart is a
// successful no-op.
func (s *CartService) Clear(ctx context.Context, cartID uuid.UUID) error {
	err := s.store.Mutate(ctx, func(tx domain.CartTx) error {
		return tx.DeleteItems(ctx, cartID)
	}, cartID)
	if err != nil {
		return err
	}

	s.metrics.CartUpdates.WithLabelValues("clear").Inc()
	return nil
}

// =============================================================================
// DERIVED TOTALS
// =============================================================================

// Summary implements domain.CartService. Totals are folds over the items
// against live catalog data at call time; nothing is read from stored
// aggregates. A cart item whose product has left the catalog surfaces as
// ENOTFOUND rather than being silently dropped from the totals.
func (s *CartService) Summary(ctx context.Context, cartID uuid.UUID) (*domain.CartSummary, error) {
	const op = "cart.summary"

	cart, err := s.store.CartByID(ctx, cartID)
	if err != nil {
		return nil, err
	}

	items, err := s.store.Items(ctx, cartID)
	if err != nil {
		return nil, err
	}

	summary := &domain.CartSummary{
		Cart:       *cart,
		Items:      make([]domain.SummaryItem, 0, len(items)),
		TotalPrice: decimal.Zero,
	}

	for _, item := range items {
		product, err := s.catalog.GetItem(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, catalog.ErrItemNotFound) {
				return nil, domain.NotFound(op, "product", item.ProductID.String())
			}
			return nil, domain.Internal(err, op, "failed to look up product")
		}

		qty := decimal.NewFromInt(int64(item.Quantity))
		lineTotal := product.UnitPrice.Mul(qty)
		lineCarbon := product.CarbonFootprint * float64(item.Quantity)

		summary.Items = append(summary.Items, domain.SummaryItem{
			LineItem:        item,
			ProductName:     product.Name,
			UnitPrice:       product.UnitPrice,
			LineTotal:       lineTotal,
			CarbonFootprint: product.CarbonFootprint,
			LineCarbon:      lineCarbon,
		})
		summary.TotalItems += item.Quantity
		summary.TotalPrice = summary.TotalPrice.Add(lineTotal)
		summary.TotalCarbonFootprint += lineCarbon
	}

	return summary, nil
}

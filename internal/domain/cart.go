package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// CART DOMAIN ERRORS
// =============================================================================

var (
	ErrCartNotFound     = &Error{Code: ENOTFOUND, Message: "Cart not found"}
	ErrCartItemNotFound = &Error{Code: ENOTFOUND, Message: "Cart item not found"}
	ErrInvalidQuantity  = &Error{Code: EINVALID, Message: "Quantity must be greater than 0"}
)

// Cart is a per-identity collection of desired items prior to purchase.
// Exactly one of UserID and SessionToken is set for a persisted cart, and the
// owning identity never changes after creation; the merge engine moves
// contents between carts, never re-keys a cart.
type Cart struct {
	ID           uuid.UUID
	UserID       uuid.NullUUID
	SessionToken string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// LineItem is one (catalog item, quantity) pairing within a cart.
// Quantity is always >= 1 while the row exists; a line item that would reach
// zero is deleted instead. At most one line item exists per
// (cart, product) pair.
type LineItem struct {
	ID        uuid.UUID
	CartID    uuid.UUID
	ProductID uuid.UUID
	Quantity  int32
	AddedAt   time.Time
}

// SummaryItem is a line item joined with live catalog data.
type SummaryItem struct {
	LineItem
	ProductName     string
	UnitPrice       decimal.Decimal
	LineTotal       decimal.Decimal
	CarbonFootprint float64
	LineCarbon      float64
}

// CartSummary aggregates a cart with its items and derived totals. Totals are
// folds over the items against current catalog data, computed on demand and
// never stored.
type CartSummary struct {
	Cart                 Cart
	Items                []SummaryItem
	TotalItems           int32
	TotalPrice           decimal.Decimal
	TotalCarbonFootprint float64
}

// =============================================================================
// CART STORE
// =============================================================================

// CartStore is durable keyed storage for carts and their line items. It owns
// the uniqueness invariants (one cart per identity, one line item per
// (cart, product) pair) and the cart-scoped locking discipline.
type CartStore interface {
	// CartByID retrieves a cart, or ErrCartNotFound.
	CartByID(ctx context.Context, id uuid.UUID) (*Cart, error)

	// CartByUser retrieves the cart owned by a user id, or ErrCartNotFound.
	CartByUser(ctx context.Context, userID uuid.UUID) (*Cart, error)

	// CartBySession retrieves the cart owned by an anonymous session token,
	// or ErrCartNotFound.
	CartBySession(ctx context.Context, token string) (*Cart, error)

	// CreateUserCart creates an empty cart keyed to a user id.
	CreateUserCart(ctx context.Context, userID uuid.UUID) (*Cart, error)

	// CreateSessionCart creates an empty cart keyed to a session token.
	CreateSessionCart(ctx context.Context, token string) (*Cart, error)

	// Items lists a cart's line items ordered by when they were added.
	// This read does not take the cart lock and may be momentarily stale
	// relative to an in-flight mutation.
	Items(ctx context.Context, cartID uuid.UUID) ([]LineItem, error)

	// Mutate runs fn inside a transaction holding an exclusive lock on every
	// named cart. All line-item mutations go through the CartTx so that
	// concurrent read-modify-write cycles on the same cart are serialized.
	// If fn returns an error the transaction is rolled back and no mutation
	// is observable.
	Mutate(ctx context.Context, fn func(tx CartTx) error, cartIDs ...uuid.UUID) error
}

// CartTx is the mutation surface available while a cart lock is held.
type CartTx interface {
	// Items lists a cart's line items ordered by when they were added.
	Items(ctx context.Context, cartID uuid.UUID) ([]LineItem, error)

	// ItemByID retrieves a line item scoped to a cart. Returns
	// ErrCartItemNotFound when the item does not exist in that cart, even if
	// it exists under another cart.
	ItemByID(ctx context.Context, cartID, itemID uuid.UUID) (*LineItem, error)

	// ItemByProduct retrieves the line item for a product within a cart, or
	// ErrCartItemNotFound.
	ItemByProduct(ctx context.Context, cartID, productID uuid.UUID) (*LineItem, error)

	// AddItemQuantity adds quantity to the cart's row for the product,
	// creating the row when absent, and returns the resulting line item.
	AddItemQuantity(ctx context.Context, cartID, productID uuid.UUID, quantity int32) (*LineItem, error)

	// SetItemQuantity overwrites a line item's quantity. The caller is
	// responsible for never setting a value below 1.
	SetItemQuantity(ctx context.Context, itemID uuid.UUID, quantity int32) error

	// MoveItem re-parents a line item to another cart.
	MoveItem(ctx context.Context, itemID, destCartID uuid.UUID) error

	// DeleteItem removes a single line item.
	DeleteItem(ctx context.Context, itemID uuid.UUID) error

	// DeleteItems removes every line item in a cart.
	DeleteItems(ctx context.Context, cartID uuid.UUID) error

	// DeleteCart removes a cart and, transitively, its line items.
	DeleteCart(ctx context.Context, cartID uuid.UUID) error
}

// =============================================================================
// CART SERVICES
// =============================================================================

// CartService is the cart resolver plus the line-item mutator.
type CartService interface {
	// Resolve finds or lazily creates the single cart owned by the request
	// identity. A user id wins over a session token; neither present fails
	// with ErrNoIdentity. Resolve never deletes or mutates an existing cart.
	Resolve(ctx context.Context, identity Identity) (*Cart, error)

	// AddItem adds quantity of a catalog product to the cart, merging into an
	// existing row for the same product. The resulting quantity may not
	// exceed the per-product cap; exceeding it is an error, not a clamp.
	AddItem(ctx context.Context, cartID, productID uuid.UUID, quantity int) (*LineItem, error)

	// AdjustItem applies a signed non-zero delta to a line item's quantity.
	// A resulting quantity <= 0 deletes the item and returns a nil line item.
	AdjustItem(ctx context.Context, cartID, itemID uuid.UUID, delta int) (*LineItem, error)

	// RemoveItem deletes a line item unconditionally.
	RemoveItem(ctx context.Context, cartID, itemID uuid.UUID) error

	// Clear deletes all line items; clearing an empty cart succeeds.
	Clear(ctx context.Context, cartID uuid.UUID) error

	// Summary retrieves the cart with items and derived totals computed from
	// live catalog data.
	Summary(ctx context.Context, cartID uuid.UUID) (*CartSummary, error)
}

// MergeService folds an anonymous cart into an authenticated cart at login.
type MergeService interface {
	// Merge moves the contents of the cart owned by priorToken into the cart
	// owned by userID (created if absent), combining quantities per product
	// and clamping at the per-product cap. Clamped items produce ordered,
	// human-readable warnings. The source cart is deleted. A missing source
	// cart is a no-op. The whole operation is atomic.
	Merge(ctx context.Context, userID uuid.UUID, priorToken string) (*Cart, []string, error)
}

package domain

import (
	"context"
	"encoding/json"

	"github.com/anbanon/verdana/internal/order"
)

// CheckoutService converts a cart into an order through the external order
// provider and clears the cart once the provider has accepted it.
type CheckoutService interface {
	// Checkout snapshots the cart's items and live totals, submits them with
	// the shipping address to the order provider, and empties the cart.
	// An empty cart fails with EINVALID before the provider is contacted.
	// A provider failure surfaces as ECHECKOUT and leaves the cart intact.
	// The shipping address is treated as an opaque payload; validating its
	// shape is the presentation layer's job.
	Checkout(ctx context.Context, identity Identity, shippingAddress json.RawMessage) (*order.Receipt, error)
}

package order

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Provider defines the boundary to the ordering system. Checkout hands it a
// fully priced snapshot of the cart; everything that happens to the order
// afterwards (payment, fulfillment) is out of scope here.
// Implementations: PostgresProvider, MockProvider
type Provider interface {
	// CreateOrder persists an order from a cart snapshot and returns its
	// receipt. The call either fully succeeds or leaves no trace.
	CreateOrder(ctx context.Context, params CreateOrderParams) (*Receipt, error)
}

// LineItemSnapshot captures one cart line at the checkout instant, priced at
// that instant. Later catalog changes do not affect the order.
type LineItemSnapshot struct {
	ProductID       uuid.UUID
	ProductName     string
	Quantity        int32
	UnitPrice       decimal.Decimal
	CarbonFootprint float64
}

// CreateOrderParams is everything the ordering system needs to accept an
// order. ShippingAddress is carried as the raw payload the customer
// submitted; the provider stores it verbatim.
type CreateOrderParams struct {
	UserID               uuid.NullUUID
	SessionToken         string
	Items                []LineItemSnapshot
	TotalAmount          decimal.Decimal
	TotalCarbonFootprint float64
	ShippingAddress      json.RawMessage
}

// Receipt is the provider's acknowledgement of a created order.
type Receipt struct {
	OrderID              uuid.UUID
	OrderNumber          string
	TotalAmount          decimal.Decimal
	TotalCarbonFootprint float64
	Status               string
}

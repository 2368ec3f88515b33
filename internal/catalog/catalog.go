package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Provider defines read access to the product catalog.
// Implementations: PostgresProvider, MockProvider
type Provider interface {
	// GetItem returns the current catalog data for a product, or
	// ErrItemNotFound when the product does not exist or is inactive.
	GetItem(ctx context.Context, productID uuid.UUID) (*Item, error)
}

// Item is the catalog view of a product: everything cart totals need and
// nothing else.
type Item struct {
	ID   uuid.UUID
	Name string

	// UnitPrice is the current price of one unit.
	UnitPrice decimal.Decimal

	// CarbonFootprint is the environmental impact score of one unit,
	// in kg CO2e.
	CarbonFootprint float64
}

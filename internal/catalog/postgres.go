package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PostgresProvider reads catalog items from the products table.
type PostgresProvider struct {
	pool *pgxpool.Pool
}

// NewPostgresProvider creates a catalog provider backed by a pgx pool.
func NewPostgresProvider(pool *pgxpool.Pool) *PostgresProvider {
	return &PostgresProvider{pool: pool}
}

// GetItem implements Provider. Inactive products are treated as absent.
func (p *PostgresProvider) GetItem(ctx context.Context, productID uuid.UUID) (*Item, error) {
	const query = `
		SELECT id, name, price::text, carbon_footprint
		FROM products
		WHERE id = $1 AND is_active = true`

	var (
		item      Item
		priceText string
	)
	err := p.pool.QueryRow(ctx, query, productID).Scan(
		&item.ID,
		&item.Name,
		&priceText,
		&item.CarbonFootprint,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: query product %s: %w", productID, err)
	}

	item.UnitPrice, err = decimal.NewFromString(priceText)
	if err != nil {
		return nil, fmt.Errorf("catalog: parse price for product %s: %w", productID, err)
	}
	return &item, nil
}

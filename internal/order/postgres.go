package order

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// StatusPending is the status every freshly created order starts in.
const StatusPending = "pending"

// PostgresProvider is the reference ordering implementation: it writes the
// order and its item snapshots into the local database. Deployments that
// order through a remote system swap in their own Provider.
type PostgresProvider struct {
	pool *pgxpool.Pool
}

// NewPostgresProvider creates an order provider backed by a pgx pool.
func NewPostgresProvider(pool *pgxpool.Pool) *PostgresProvider {
	return &PostgresProvider{pool: pool}
}

// CreateOrder implements Provider. The order row and all snapshot rows are
// written in one transaction.
func (p *PostgresProvider) CreateOrder(ctx context.Context, params CreateOrderParams) (*Receipt, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("order: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	orderID := uuid.New()
	orderNumber := newOrderNumber(orderID)

	const insertOrder = `
		INSERT INTO orders (
			id, order_number, user_id, session_token,
			total_amount, total_carbon_footprint, shipping_address, status
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err = tx.Exec(ctx, insertOrder,
		orderID,
		orderNumber,
		params.UserID,
		nullableText(params.SessionToken),
		params.TotalAmount.String(),
		params.TotalCarbonFootprint,
		params.ShippingAddress,
		StatusPending,
	)
	if err != nil {
		return nil, fmt.Errorf("order: insert order: %w", err)
	}

	const insertItem = `
		INSERT INTO order_items (
			id, order_id, product_id, product_name,
			quantity, unit_price, carbon_footprint
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	for _, item := range params.Items {
		_, err = tx.Exec(ctx, insertItem,
			uuid.New(),
			orderID,
			item.ProductID,
			item.ProductName,
			item.Quantity,
			item.UnitPrice.String(),
			item.CarbonFootprint,
		)
		if err != nil {
			return nil, fmt.Errorf("order: insert item %s: %w", item.ProductID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("order: commit: %w", err)
	}

	return &Receipt{
		OrderID:              orderID,
		OrderNumber:          orderNumber,
		TotalAmount:          params.TotalAmount,
		TotalCarbonFootprint: params.TotalCarbonFootprint,
		Status:               StatusPending,
	}, nil
}

// newOrderNumber derives a short human-readable order number from the order
// id. Uniqueness follows from the id; the prefix is for customer support.
func newOrderNumber(orderID uuid.UUID) string {
	compact := strings.ReplaceAll(orderID.String(), "-", "")
	return "ORD-" + strings.ToUpper(compact[:12])
}

// nullableText maps the empty string to SQL NULL.
func nullableText(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

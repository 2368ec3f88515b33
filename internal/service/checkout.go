package service

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/anbanon/verdana/internal/catalog"
	"github.com/anbanon/verdana/internal/domain"
	"github.com/anbanon/verdana/internal/order"
	"github.com/anbanon/verdana/internal/telemetry"
)

// CheckoutService implements domain.CheckoutService: it snapshots the cart,
// hands the priced snapshot to the order provider, and clears the cart once
// the provider has accepted the order.
type CheckoutService struct {
	store   domain.CartStore
	carts   domain.CartService
	catalog catalog.Provider
	orders  order.Provider
	metrics *telemetry.Metrics
}

// Compile-time check that CheckoutService implements domain.CheckoutService.
var _ domain.CheckoutService = (*CheckoutService)(nil)

// NewCheckoutService creates the checkout coordinator.
func NewCheckoutService(store domain.CartStore, carts domain.CartService, cat catalog.Provider, orders order.Provider, metrics *telemetry.Metrics) *CheckoutService {
	return &CheckoutService{
		store:   store,
		carts:   carts,
		catalog: cat,
		orders:  orders,
		metrics: metrics,
	}
}

// Checkout implements domain.CheckoutService. Items are priced against the
// live catalog at this instant, so the order reflects current prices no
// matter how long the cart sat idle. The cart stays locked from snapshot
// through clearing; a provider failure rolls everything back and the cart
// survives intact for retry.
func (s *CheckoutService) Checkout(ctx context.Context, identity domain.Identity, shippingAddress json.RawMessage) (*order.Receipt, error) {
	const op = "checkout"

	cart, err := s.carts.Resolve(ctx, identity)
	if err != nil {
		return nil, err
	}

	var receipt *order.Receipt
	err = s.store.Mutate(ctx, func(tx domain.CartTx) error {
		items, err := tx.Items(ctx, cart.ID)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			s.metrics.CheckoutsFailed.WithLabelValues("empty_cart").Inc()
			return ErrCartEmpty
		}

		snapshots := make([]order.LineItemSnapshot, 0, len(items))
		total := decimal.Zero
		carbon := 0.0
		for _, item := range items {
			product, err := s.catalog.GetItem(ctx, item.ProductID)
			if err != nil {
				if errors.Is(err, catalog.ErrItemNotFound) {
					return domain.Errorf(domain.EINVALID, op,
						"Product %s is no longer available", item.ProductID)
				}
				return domain.Internal(err, op, "failed to look up product")
			}

			qty := decimal.NewFromInt(int64(item.Quantity))
			snapshots = append(snapshots, order.LineItemSnapshot{
				ProductID:       item.ProductID,
				ProductName:     product.Name,
				Quantity:        item.Quantity,
				UnitPrice:       product.UnitPrice,
				CarbonFootprint: product.CarbonFootprint,
			})
			total = total.Add(product.UnitPrice.Mul(qty))
			carbon += product.CarbonFootprint * float64(item.Quantity)
		}

		receipt, err = s.orders.CreateOrder(ctx, order.CreateOrderParams{
			UserID:               cart.UserID,
			SessionToken:         cart.SessionToken,
			Items:                snapshots,
			TotalAmount:          total,
			TotalCarbonFootprint: carbon,
			ShippingAddress:      shippingAddress,
		})
		if err != nil {
			s.metrics.CheckoutsFailed.WithLabelValues("provider").Inc()
			return domain.WrapError(err, domain.ECHECKOUT, op, "Order could not be created")
		}

		return tx.DeleteItems(ctx, cart.ID)
	}, cart.ID)
	if err != nil {
		return nil, err
	}

	s.metrics.CheckoutsCompleted.Inc()
	value, _ := receipt.TotalAmount.Float64()
	s.metrics.OrderValue.Observe(value)
	s.metrics.OrderCarbon.Observe(receipt.TotalCarbonFootprint)
	return receipt, nil
}

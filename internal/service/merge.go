package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/anbanon/verdana/internal/catalog"
	"github.com/anbanon/verdana/internal/domain"
	"github.com/anbanon/verdana/internal/telemetry"
)

// MergeService implements domain.MergeService: at login it folds the
// just-authenticated user's anonymous cart into their user cart.
type MergeService struct {
	store   domain.CartStore
	carts   domain.CartService
	catalog catalog.Provider
	metrics *telemetry.Metrics
	maxQty  int32
}

// Compile-time check that MergeService implements domain.MergeService.
var _ domain.MergeService = (*MergeService)(nil)

// NewMergeService creates the merge engine. It shares the resolver and the
// quantity cap with the cart service.
func NewMergeService(store domain.CartStore, carts *CartService, cat catalog.Provider, metrics *telemetry.Metrics) *MergeService {
	return &MergeService{
		store:   store,
		carts:   carts,
		catalog: cat,
		metrics: metrics,
		maxQty:  carts.MaxItemQuantity(),
	}
}

// Merge implements domain.MergeService. The target cart is resolved (and
// lazily created) for the user; the source cart is whatever the prior
// anonymous token owns. Items unique to the source move over verbatim,
// items present in both carts combine, and combined quantities clamp at the
// per-product cap with one ordered warning per clamped item. The source cart
// is deleted. The whole thing happens inside one two-cart locked
// transaction, so a failure anywhere leaves both carts as they were.
//
// A missing or empty prior token is a no-op: the user cart is returned
// unchanged. Merging twice with the same token is therefore safe.
func (s *MergeService) Merge(ctx context.Context, userID uuid.UUID, priorToken string) (*domain.Cart, []string, error) {
	target, err := s.carts.Resolve(ctx, domain.UserIdentity(userID))
	if err != nil {
		return nil, nil, err
	}

	if priorToken == "" {
		return target, nil, nil
	}

	source, err := s.store.CartBySession(ctx, priorToken)
	if errors.Is(err, domain.ErrCartNotFound) {
		return target, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}

	var warnings []string
	err = s.store.Mutate(ctx, func(tx domain.CartTx) error {
		items, err := tx.Items(ctx, source.ID)
		if err != nil {
			return err
		}

		for _, item := range items {
			dest, err := tx.ItemByProduct(ctx, target.ID, item.ProductID)
			if err != nil && !errors.Is(err, domain.ErrCartItemNotFound) {
				return err
			}

			var destQty int32
			if dest != nil {
				destQty = dest.Quantity
			}
			combined := destQty + item.Quantity
			final := combined
			if final > s.maxQty {
				final = s.maxQty
			}

			if dest != nil {
				if err := tx.SetItemQuantity(ctx, dest.ID, final); err != nil {
					return err
				}
				if err := tx.DeleteItem(ctx, item.ID); err != nil {
					return err
				}
			} else {
				if final < item.Quantity {
					if err := tx.SetItemQuantity(ctx, item.ID, final); err != nil {
						return err
					}
				}
				if err := tx.MoveItem(ctx, item.ID, target.ID); err != nil {
					return err
				}
			}

			if dropped := combined - final; dropped > 0 {
				warnings = append(warnings, s.capWarning(ctx, item.ProductID, dropped))
			}
		}

		return tx.DeleteCart(ctx, source.ID)
	}, source.ID, target.ID)
	if err != nil {
		return nil, nil, err
	}

	s.metrics.MergesCompleted.Inc()
	s.metrics.MergeWarnings.Add(float64(len(warnings)))
	return target, warnings, nil
}

// capWarning builds the human-readable message for a clamped merge item.
// The catalog lookup is best-effort; a product that cannot be named is
// referred to by id.
func (s *MergeService) capWarning(ctx context.Context, productID uuid.UUID, dropped int32) string {
	name := productID.String()
	if product, err := s.catalog.GetItem(ctx, productID); err == nil {
		name = product.Name
	}
	return fmt.Sprintf("Quantity for %q capped at %d; dropped %d", name, s.maxQty, dropped)
}

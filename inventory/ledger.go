// Package inventory keeps product stock consistent with open orders.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"log"

	"storefront/errs"
	"storefront/models"
)

// MaxStock is the ceiling a release may not push stock beyond.
const MaxStock = 1_000_000

// Ledger changes product stock atomically. Reserve fails with
// errs.ErrInsufficientStock rather than letting stock go negative, and with
// errs.ErrNoDocument for unknown products.
type Ledger interface {
	Reserve(ctx context.Context, productID string, qty int) error
	Release(ctx context.Context, productID string, qty int) error
}

// ReserveAll reserves every line in order. When a line fails the lines already
// reserved are released again before the error is returned, so the caller sees
// all or nothing.
func ReserveAll(ctx context.Context, l Ledger, items []models.OrderItem) error {
	for i, it := range items {
		if err := l.Reserve(ctx, it.ProductID, it.Quantity); err != nil {
			if rerr := ReleaseAll(context.WithoutCancel(ctx), l, items[:i]); rerr != nil {
				log.Printf("[Inventory] compensation after failed reserve of %s: %v", it.ProductID, rerr)
			}
			return lineError(it, err)
		}
	}
	return nil
}

// ReleaseAll returns every line to stock. It keeps going past failures and
// reports them together.
func ReleaseAll(ctx context.Context, l Ledger, items []models.OrderItem) error {
	var failed []error
	for _, it := range items {
		if err := l.Release(ctx, it.ProductID, it.Quantity); err != nil {
			failed = append(failed, fmt.Errorf("release %d of %s: %w", it.Quantity, it.ProductID, err))
		}
	}
	return errors.Join(failed...)
}

func lineError(it models.OrderItem, err error) error {
	name := it.Name
	if name == "" {
		name = it.ProductID
	}
	switch {
	case errors.Is(err, errs.ErrInsufficientStock):
		return errs.Conflict("Insufficient stock for %s", name).Wrap(err)
	case errors.Is(err, errs.ErrNoDocument):
		return errs.NotFound("Product %s no longer exists", name).Wrap(err)
	}
	return fmt.Errorf("reserve %s: %w", it.ProductID, err)
}

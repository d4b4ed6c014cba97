// Package checkout turns a customer's cart into a pending order.
package checkout

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"storefront/cart"
	"storefront/errs"
	"storefront/inventory"
	"storefront/metrics"
	"storefront/models"
	"storefront/orders"
	"storefront/products"
	"storefront/utils"
)

// Locker grants short exclusive locks; TryLock fails with errs.ErrLocked when
// the key is held.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

const lockTTL = 30 * time.Second

type Service struct {
	carts   cart.Repository
	catalog products.Catalog
	ledger  inventory.Ledger
	orders  orders.Repository
	tx      orders.TxRunner
	locker  Locker
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewService(
	carts cart.Repository,
	catalog products.Catalog,
	ledger inventory.Ledger,
	orderRepo orders.Repository,
	tx orders.TxRunner,
	locker Locker,
	m *metrics.Metrics,
) *Service {
	return &Service{
		carts:   carts,
		catalog: catalog,
		ledger:  ledger,
		orders:  orderRepo,
		tx:      tx,
		locker:  locker,
		metrics: m,
		now:     time.Now,
	}
}

// Checkout converts the customer's cart into a pending order. Every line is
// validated before anything is written; the reservations, the order insert and
// the cart clear then run as one unit and are undone together on failure.
func (s *Service) Checkout(ctx context.Context, userID, shippingAddress string) (*models.Order, error) {
	order, err := s.checkout(ctx, userID, shippingAddress)
	switch kind := errs.KindOf(err); {
	case err == nil:
		s.metrics.CheckoutResult("ok")
	case kind == errs.KindInternal:
		s.metrics.CheckoutResult("error")
	default:
		s.metrics.CheckoutResult("rejected")
	}
	return order, err
}

func (s *Service) checkout(ctx context.Context, userID, shippingAddress string) (*models.Order, error) {
	if userID == "" {
		return nil, errs.Unauthorized("Unauthorized")
	}
	shippingAddress = strings.TrimSpace(shippingAddress)
	if shippingAddress == "" {
		return nil, errs.Validation("Please provide shipping address")
	}

	unlock, err := s.locker.TryLock(ctx, "checkout:"+userID, lockTTL)
	if errors.Is(err, errs.ErrLocked) {
		return nil, errs.Conflict("A checkout for this cart is already in progress").Wrap(err)
	}
	if err != nil {
		return nil, err
	}
	defer unlock()

	c, err := s.carts.FindByUser(ctx, userID)
	if err != nil && !errors.Is(err, errs.ErrNoDocument) {
		return nil, err
	}
	if c == nil || len(c.Items) == 0 {
		return nil, errs.Validation("Cart is empty")
	}

	items, err := s.snapshot(ctx, c.Items)
	if err != nil {
		return nil, err
	}

	now := s.now()
	order := &models.Order{
		ID:              utils.GetUUID(),
		UserID:          userID,
		Items:           items,
		Total:           models.SumItems(items),
		ShippingAddress: shippingAddress,
		Status:          models.OrderPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := inventory.ReserveAll(ctx, s.ledger, items); err != nil {
			return err
		}
		if err := s.orders.Insert(ctx, order); err != nil {
			s.release(ctx, order)
			return err
		}
		if err := s.carts.ClearItems(ctx, userID, c.Version); err != nil {
			if derr := s.orders.Delete(context.WithoutCancel(ctx), order.ID); derr != nil {
				log.Printf("[Checkout] removing order %s after failed cart clear: %v", order.ID, derr)
			}
			s.release(ctx, order)
			if errors.Is(err, errs.ErrStale) {
				return errs.Conflict("Cart changed during checkout, please retry").Wrap(err)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[Checkout] order %s placed by %s: %d lines, total %.2f", order.ID, userID, len(items), order.Total)
	return order, nil
}

// snapshot validates each cart line against live catalog data and copies the
// current price into the order line.
func (s *Service) snapshot(ctx context.Context, lines []models.CartItem) ([]models.OrderItem, error) {
	items := make([]models.OrderItem, 0, len(lines))
	for _, line := range lines {
		p, err := s.catalog.GetProduct(ctx, line.ProductID)
		if errors.Is(err, errs.ErrNoDocument) {
			return nil, errs.NotFound("Product %s not found", line.ProductID).Wrap(err)
		}
		if err != nil {
			return nil, err
		}
		if p.Stock < line.Quantity {
			return nil, errs.Conflict("Insufficient stock for product %s", p.Name).Wrap(errs.ErrInsufficientStock)
		}
		items = append(items, models.OrderItem{
			ProductID: p.ID,
			Name:      p.Name,
			Quantity:  line.Quantity,
			Price:     p.Price,
		})
	}
	return items, nil
}

func (s *Service) release(ctx context.Context, order *models.Order) {
	if err := inventory.ReleaseAll(context.WithoutCancel(ctx), s.ledger, order.Items); err != nil {
		log.Printf("[Checkout] compensation for order %s: %v", order.ID, err)
	}
}

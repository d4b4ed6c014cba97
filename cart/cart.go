// Package cart holds the one active cart of each customer.
package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/errs"
	"storefront/inventory"
	"storefront/models"
	"storefront/products"
	"storefront/utils"

	"golang.org/x/sync/singleflight"
)

// Repository stores carts keyed by owner. Insert fails with errs.ErrDuplicate
// when the owner already has a cart; ReplaceItems and ClearItems fail with
// errs.ErrStale when the stored Version no longer matches.
type Repository interface {
	FindByUser(ctx context.Context, userID string) (*models.Cart, error)
	Insert(ctx context.Context, c *models.Cart) error
	ReplaceItems(ctx context.Context, c *models.Cart) error
	ClearItems(ctx context.Context, userID string, version int64) error
	DeleteOrphans(ctx context.Context) (int64, error)
}

// maxWriteAttempts bounds the optimistic retry loop on concurrent cart edits.
const maxWriteAttempts = 5

type Service struct {
	carts   Repository
	catalog products.Catalog
	group   singleflight.Group
	now     func() time.Time
}

func NewService(carts Repository, catalog products.Catalog) *Service {
	return &Service{carts: carts, catalog: catalog, now: time.Now}
}

// Get returns the customer's cart, creating an empty one on first access.
// Concurrent first accesses share one insert; losing a create race to another
// process falls back to reading the winner's cart.
func (s *Service) Get(ctx context.Context, userID string) (*models.Cart, error) {
	if userID == "" {
		return nil, errs.Unauthorized("Unauthorized - Please login to access cart")
	}
	c, err := s.carts.FindByUser(ctx, userID)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, errs.ErrNoDocument) {
		return nil, err
	}

	// the shared insert must outlive any single caller's cancellation
	v, err, _ := s.group.Do(userID, func() (any, error) {
		return s.create(context.WithoutCancel(ctx), userID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.Cart).Clone(), nil
}

func (s *Service) create(ctx context.Context, userID string) (*models.Cart, error) {
	now := s.now()
	c := &models.Cart{
		ID:        utils.GetUUID(),
		UserID:    userID,
		Items:     []models.CartItem{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := s.carts.Insert(ctx, c)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, errs.ErrDuplicate) {
		return nil, err
	}
	existing, err := s.carts.FindByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to create or find cart: %w", err)
	}
	return existing, nil
}

// View returns the cart with each line's product materialised.
func (s *Service) View(ctx context.Context, userID string) (*models.CartView, error) {
	c, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.expand(ctx, c)
}

func (s *Service) expand(ctx context.Context, c *models.Cart) (*models.CartView, error) {
	ids := make([]string, len(c.Items))
	for i, it := range c.Items {
		ids[i] = it.ProductID
	}
	byID, err := s.catalog.GetProducts(ctx, ids)
	if err != nil {
		return nil, err
	}
	view := &models.CartView{
		ID:        c.ID,
		UserID:    c.UserID,
		Items:     make([]models.CartLineView, len(c.Items)),
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
	for i, it := range c.Items {
		view.Items[i] = models.CartLineView{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Product:   byID[it.ProductID].Summary(),
		}
	}
	return view, nil
}

// product loads live catalog data; stock is never cached across calls.
func (s *Service) product(ctx context.Context, id string) (*models.Product, error) {
	p, err := s.catalog.GetProduct(ctx, id)
	if errors.Is(err, errs.ErrNoDocument) {
		return nil, errs.NotFound("Product not found").Wrap(err)
	}
	return p, err
}

// checkQuantity bounds a requested quantity so line arithmetic cannot overflow.
func checkQuantity(qty int) error {
	if qty > inventory.MaxStock {
		return errs.Validation("Quantity must not exceed %d", inventory.MaxStock)
	}
	return nil
}

func checkStock(p *models.Product, qty int) error {
	if qty > p.Stock {
		return errs.Conflict("Insufficient stock for %s: requested %d, available %d", p.Name, qty, p.Stock).
			Wrap(errs.ErrInsufficientStock)
	}
	return nil
}

// mutate applies edit to a fresh copy of the cart and stores it, retrying when
// another request changed the cart in between.
func (s *Service) mutate(ctx context.Context, userID string, edit func(c *models.Cart) (bool, error)) (*models.CartView, error) {
	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		c, err := s.Get(ctx, userID)
		if err != nil {
			return nil, err
		}
		changed, err := edit(c)
		if err != nil {
			return nil, err
		}
		if !changed {
			return s.expand(ctx, c)
		}
		err = s.carts.ReplaceItems(ctx, c)
		if errors.Is(err, errs.ErrStale) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return s.expand(ctx, c)
	}
	return nil, errs.Conflict("cart is being modified concurrently, please retry").Wrap(errs.ErrStale)
}

// AddItem merges qty units of productID into the cart. The merged quantity,
// not the increment, must fit in live stock.
func (s *Service) AddItem(ctx context.Context, userID, productID string, qty int) (*models.CartView, error) {
	if qty <= 0 {
		return nil, errs.Validation("Quantity must be a positive integer")
	}
	if err := checkQuantity(qty); err != nil {
		return nil, err
	}
	productID, err := utils.ParseID("product", productID)
	if err != nil {
		return nil, err
	}
	p, err := s.product(ctx, productID)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, userID, func(c *models.Cart) (bool, error) {
		if i := c.IndexOf(productID); i >= 0 {
			cur := c.Items[i].Quantity
			if qty > p.Stock-cur {
				return false, checkStock(p, cur+qty)
			}
			c.Items[i].Quantity = cur + qty
			return true, nil
		}
		if err := checkStock(p, qty); err != nil {
			return false, err
		}
		c.Items = append(c.Items, models.CartItem{ProductID: productID, Quantity: qty})
		return true, nil
	})
}

// SetQuantity overwrites a line's quantity; zero removes the line.
func (s *Service) SetQuantity(ctx context.Context, userID, productID string, qty int) (*models.CartView, error) {
	if qty < 0 {
		return nil, errs.Validation("Quantity must be positive")
	}
	if err := checkQuantity(qty); err != nil {
		return nil, err
	}
	productID, err := utils.ParseID("product", productID)
	if err != nil {
		return nil, err
	}
	var p *models.Product
	if qty > 0 {
		if p, err = s.product(ctx, productID); err != nil {
			return nil, err
		}
		if err := checkStock(p, qty); err != nil {
			return nil, err
		}
	}
	return s.mutate(ctx, userID, func(c *models.Cart) (bool, error) {
		i := c.IndexOf(productID)
		if i < 0 {
			return false, errs.NotFound("Item not found in cart")
		}
		if qty == 0 {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			return true, nil
		}
		c.Items[i].Quantity = qty
		return true, nil
	})
}

// RemoveItem drops the line for productID. Removing an absent product is not
// an error.
func (s *Service) RemoveItem(ctx context.Context, userID, productID string) (*models.CartView, error) {
	productID, err := utils.ParseID("product", productID)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, userID, func(c *models.Cart) (bool, error) {
		i := c.IndexOf(productID)
		if i < 0 {
			return false, nil
		}
		c.Items = append(c.Items[:i], c.Items[i+1:]...)
		return true, nil
	})
}

// CleanupOrphans deletes carts that have no owner.
func (s *Service) CleanupOrphans(ctx context.Context) (int64, error) {
	return s.carts.DeleteOrphans(ctx)
}

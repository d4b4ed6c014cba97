package memstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"storefront/errs"
	"storefront/models"
)

type Carts struct {
	mu    sync.Mutex
	carts map[string]*models.Cart // userID -> cart
}

func NewCarts() *Carts {
	return &Carts{carts: make(map[string]*models.Cart)}
}

func (s *Carts) FindByUser(_ context.Context, userID string) (*models.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.carts[userID]
	if !ok {
		return nil, fmt.Errorf("cart for %s: %w", userID, errs.ErrNoDocument)
	}
	return c.Clone(), nil
}

func (s *Carts) Insert(_ context.Context, c *models.Cart) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.carts[c.UserID]; ok {
		return fmt.Errorf("cart for %s: %w", c.UserID, errs.ErrDuplicate)
	}
	s.carts[c.UserID] = c.Clone()
	return nil
}

// ReplaceItems stores items when the cart is still at c.Version and bumps the
// version. A concurrent writer makes it fail with errs.ErrStale.
func (s *Carts) ReplaceItems(_ context.Context, c *models.Cart) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.carts[c.UserID]
	if !ok {
		return fmt.Errorf("cart for %s: %w", c.UserID, errs.ErrNoDocument)
	}
	if cur.Version != c.Version {
		return fmt.Errorf("cart for %s: %w", c.UserID, errs.ErrStale)
	}
	cur.Items = append([]models.CartItem(nil), c.Items...)
	cur.Version++
	cur.UpdatedAt = time.Now()
	c.Version = cur.Version
	c.UpdatedAt = cur.UpdatedAt
	return nil
}

func (s *Carts) ClearItems(_ context.Context, userID string, version int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.carts[userID]
	if !ok {
		return fmt.Errorf("cart for %s: %w", userID, errs.ErrNoDocument)
	}
	if c.Version != version {
		return fmt.Errorf("cart for %s: %w", userID, errs.ErrStale)
	}
	c.Items = []models.CartItem{}
	c.Version++
	c.UpdatedAt = time.Now()
	return nil
}

func (s *Carts) DeleteOrphans(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for userID := range s.carts {
		if userID == "" {
			delete(s.carts, userID)
			n++
		}
	}
	return n, nil
}

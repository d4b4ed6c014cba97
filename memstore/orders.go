package memstore

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"storefront/errs"
	"storefront/models"
)

type Orders struct {
	mu     sync.Mutex
	orders map[string]*models.Order
}

func NewOrders() *Orders {
	return &Orders{orders: make(map[string]*models.Order)}
}

func cloneOrder(o *models.Order) *models.Order {
	cp := *o
	cp.Items = append([]models.OrderItem(nil), o.Items...)
	return &cp
}

func (s *Orders) Insert(_ context.Context, o *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[o.ID]; ok {
		return fmt.Errorf("order %s: %w", o.ID, errs.ErrDuplicate)
	}
	s.orders[o.ID] = cloneOrder(o)
	return nil
}

func (s *Orders) FindByID(_ context.Context, id string) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, fmt.Errorf("order %s: %w", id, errs.ErrNoDocument)
	}
	return cloneOrder(o), nil
}

func (s *Orders) List(_ context.Context, f models.OrderFilter) ([]models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Order{}
	for _, o := range s.orders {
		if f.UserID != "" && o.UserID != f.UserID {
			continue
		}
		out = append(out, *cloneOrder(o))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// UpdateStatus sets the status and returns the order as it was before. When
// from is non-empty the write only happens if the current status is one of
// them; otherwise errs.ErrStale is returned.
func (s *Orders) UpdateStatus(_ context.Context, id string, to models.OrderStatus, from ...models.OrderStatus) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, fmt.Errorf("order %s: %w", id, errs.ErrNoDocument)
	}
	if len(from) > 0 && !slices.Contains(from, o.Status) {
		return nil, fmt.Errorf("order %s is %s: %w", id, o.Status, errs.ErrStale)
	}
	prev := cloneOrder(o)
	o.Status = to
	o.UpdatedAt = time.Now()
	return prev, nil
}

func (s *Orders) UpdateShippingAddress(_ context.Context, id, address string) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, fmt.Errorf("order %s: %w", id, errs.ErrNoDocument)
	}
	o.ShippingAddress = address
	o.UpdatedAt = time.Now()
	return cloneOrder(o), nil
}

func (s *Orders) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[id]; !ok {
		return fmt.Errorf("order %s: %w", id, errs.ErrNoDocument)
	}
	delete(s.orders, id)
	return nil
}

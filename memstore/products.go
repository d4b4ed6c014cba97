// Package memstore is an in-memory implementation of every repository the
// services depend on. It backs unit tests and local tooling; production uses
// the MongoDB repositories.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"storefront/errs"
	"storefront/inventory"
	"storefront/models"
)

// Products is the catalog and the inventory ledger over one map, since stock
// lives on the product.
type Products struct {
	mu       sync.RWMutex
	products map[string]*models.Product
}

func NewProducts(products ...models.Product) *Products {
	s := &Products{products: make(map[string]*models.Product)}
	for _, p := range products {
		s.Put(p)
	}
	return s
}

// Put inserts or replaces a product.
func (s *Products) Put(p models.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := p
	s.products[p.ID] = &cp
}

func (s *Products) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.products, id)
}

// Stock returns the current stock of id, or -1 when unknown.
func (s *Products) Stock(id string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.products[id]; ok {
		return p.Stock
	}
	return -1
}

func (s *Products) GetProduct(_ context.Context, id string) (*models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	if !ok {
		return nil, fmt.Errorf("product %s: %w", id, errs.ErrNoDocument)
	}
	cp := *p
	return &cp, nil
}

func (s *Products) GetProducts(_ context.Context, ids []string) (map[string]*models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]*models.Product, len(ids))
	for _, id := range ids {
		if p, ok := s.products[id]; ok {
			cp := *p
			out[id] = &cp
		}
	}
	return out, nil
}

func (s *Products) ListProducts(_ context.Context, f models.ProductFilter) ([]models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.Product{}
	for _, p := range s.products {
		if f.Seller != "" && p.Seller != f.Seller {
			continue
		}
		if f.Category != "" && p.Category != f.Category {
			continue
		}
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// Reserve decrements stock when at least qty units are available.
func (s *Products) Reserve(_ context.Context, productID string, qty int) error {
	if qty <= 0 {
		return errs.Validation("quantity must be positive")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[productID]
	if !ok {
		return fmt.Errorf("product %s: %w", productID, errs.ErrNoDocument)
	}
	if p.Stock < qty {
		return fmt.Errorf("product %s: %w", productID, errs.ErrInsufficientStock)
	}
	p.Stock -= qty
	return nil
}

// Release returns qty units to stock, refusing to pass inventory.MaxStock.
func (s *Products) Release(_ context.Context, productID string, qty int) error {
	if qty <= 0 {
		return errs.Validation("quantity must be positive")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[productID]
	if !ok {
		return fmt.Errorf("product %s: %w", productID, errs.ErrNoDocument)
	}
	if p.Stock+qty > inventory.MaxStock {
		return errs.Conflict("releasing %d units of %s would exceed the stock ceiling", qty, productID)
	}
	p.Stock += qty
	return nil
}

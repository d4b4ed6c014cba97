package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"storefront/errs"
	"storefront/models"
)

type Payments struct {
	mu       sync.Mutex
	payments map[string]*models.Payment
}

func NewPayments() *Payments {
	return &Payments{payments: make(map[string]*models.Payment)}
}

func clonePayment(p *models.Payment) *models.Payment {
	cp := *p
	if p.ProcessingAt != nil {
		t := *p.ProcessingAt
		cp.ProcessingAt = &t
	}
	return &cp
}

// Insert enforces one payment per order, like the unique index on orderId.
func (s *Payments) Insert(_ context.Context, p *models.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.payments {
		if existing.ID == p.ID || existing.OrderID == p.OrderID {
			return fmt.Errorf("payment for order %s: %w", p.OrderID, errs.ErrDuplicate)
		}
	}
	s.payments[p.ID] = clonePayment(p)
	return nil
}

func (s *Payments) FindByID(_ context.Context, id string) (*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[id]
	if !ok {
		return nil, fmt.Errorf("payment %s: %w", id, errs.ErrNoDocument)
	}
	return clonePayment(p), nil
}

func (s *Payments) FindByOrder(_ context.Context, orderID string) (*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.payments {
		if p.OrderID == orderID {
			return clonePayment(p), nil
		}
	}
	return nil, fmt.Errorf("payment for order %s: %w", orderID, errs.ErrNoDocument)
}

func (s *Payments) List(_ context.Context, f models.PaymentFilter) ([]models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Payment{}
	for _, p := range s.payments {
		if f.UserID != "" && p.UserID != f.UserID {
			continue
		}
		if f.OrderID != "" && p.OrderID != f.OrderID {
			continue
		}
		out = append(out, *clonePayment(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// Transition applies t only when the payment is still in t.From.
func (s *Payments) Transition(_ context.Context, id string, t models.PaymentTransition) (*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[id]
	if !ok {
		return nil, fmt.Errorf("payment %s: %w", id, errs.ErrNoDocument)
	}
	if p.Status != t.From {
		return nil, fmt.Errorf("payment %s is %s: %w", id, p.Status, errs.ErrStale)
	}
	p.Status = t.To
	p.UpdatedAt = t.At
	if t.TransactionID != "" {
		p.TransactionID = t.TransactionID
	}
	if t.To == models.PaymentProcessing {
		at := t.At
		p.ProcessingAt = &at
	}
	return clonePayment(p), nil
}

func (s *Payments) ListCompleted(_ context.Context, since time.Time) ([]models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Payment{}
	for _, p := range s.payments {
		if p.Status == models.PaymentCompleted && !p.UpdatedAt.Before(since) {
			out = append(out, *clonePayment(p))
		}
	}
	return out, nil
}

func (s *Payments) ListStuck(_ context.Context, before time.Time) ([]models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Payment{}
	for _, p := range s.payments {
		if p.Status == models.PaymentProcessing && p.ProcessingAt != nil && p.ProcessingAt.Before(before) {
			out = append(out, *clonePayment(p))
		}
	}
	return out, nil
}

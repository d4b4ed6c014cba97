package memstore

import (
	"context"
	"sync"

	"storefront/errs"
	"storefront/models"
)

type IdempotencyStore struct {
	mu      sync.Mutex
	records map[string]*models.IdempotencyRecord
}

func NewIdempotencyStore() *IdempotencyStore {
	return &IdempotencyStore{records: make(map[string]*models.IdempotencyRecord)}
}

func (s *IdempotencyStore) Insert(_ context.Context, rec *models.IdempotencyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[rec.Key]; ok {
		return errs.ErrDuplicate
	}
	cp := *rec
	s.records[rec.Key] = &cp
	return nil
}

func (s *IdempotencyStore) Find(_ context.Context, key string) (*models.IdempotencyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[key]
	if !ok {
		return nil, errs.ErrNoDocument
	}
	cp := *rec
	return &cp, nil
}

func (s *IdempotencyStore) Complete(_ context.Context, key string, status int, body []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.records[key]; ok {
		rec.StatusCode = status
		rec.ResponseBody = append([]byte(nil), body...)
		rec.Completed = true
	}
	return nil
}

func (s *IdempotencyStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key)
	return nil
}

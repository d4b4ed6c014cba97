package db

import (
	"context"
	"errors"
	"fmt"

	"storefront/errs"
	"storefront/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// IdempotencyStore persists Idempotency-Key records; expiry is handled by the
// TTL index on expires_at.
type IdempotencyStore struct {
	coll *mongo.Collection
}

func NewIdempotencyStore(s *Store) *IdempotencyStore {
	return &IdempotencyStore{coll: s.IdempotencyCollection}
}

func (s *IdempotencyStore) Insert(ctx context.Context, rec *models.IdempotencyRecord) error {
	if _, err := s.coll.InsertOne(ctx, rec); err != nil {
		if IsDuplicateKeyError(err) {
			return errs.ErrDuplicate
		}
		return fmt.Errorf("insert idempotency record: %w", err)
	}
	return nil
}

func (s *IdempotencyStore) Find(ctx context.Context, key string) (*models.IdempotencyRecord, error) {
	var rec models.IdempotencyRecord
	if err := s.coll.FindOne(ctx, bson.M{"key": key}).Decode(&rec); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, errs.ErrNoDocument
		}
		return nil, fmt.Errorf("find idempotency record: %w", err)
	}
	return &rec, nil
}

func (s *IdempotencyStore) Complete(ctx context.Context, key string, status int, body []byte) error {
	_, err := s.coll.UpdateOne(ctx, bson.M{"key": key}, bson.M{"$set": bson.M{
		"status_code":   status,
		"response_body": body,
		"completed":     true,
	}})
	if err != nil {
		return fmt.Errorf("complete idempotency record: %w", err)
	}
	return nil
}

func (s *IdempotencyStore) Delete(ctx context.Context, key string) error {
	if _, err := s.coll.DeleteOne(ctx, bson.M{"key": key}); err != nil {
		return fmt.Errorf("delete idempotency record: %w", err)
	}
	return nil
}

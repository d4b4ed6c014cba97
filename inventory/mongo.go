package inventory

import (
	"context"
	"fmt"

	"storefront/db"
	"storefront/errs"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoLedger applies stock changes as single conditional updates on the
// product document, so concurrent reservations never oversell.
type MongoLedger struct {
	coll *mongo.Collection
}

func NewMongoLedger(s *db.Store) *MongoLedger {
	return &MongoLedger{coll: s.ProductsCollection}
}

func (l *MongoLedger) Reserve(ctx context.Context, productID string, qty int) error {
	if qty <= 0 {
		return errs.Validation("quantity must be positive")
	}
	filter := bson.M{"_id": productID, "stock": bson.M{"$gte": qty}}
	update := bson.M{"$inc": bson.M{"stock": -qty}, "$currentDate": bson.M{"updatedAt": true}}
	res, err := l.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("reserve %s: %w", productID, err)
	}
	if res.MatchedCount == 0 {
		return l.missOrShort(ctx, productID, errs.ErrInsufficientStock)
	}
	return nil
}

func (l *MongoLedger) Release(ctx context.Context, productID string, qty int) error {
	if qty <= 0 {
		return errs.Validation("quantity must be positive")
	}
	filter := bson.M{"_id": productID, "stock": bson.M{"$lte": MaxStock - qty}}
	update := bson.M{"$inc": bson.M{"stock": qty}, "$currentDate": bson.M{"updatedAt": true}}
	res, err := l.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("release %s: %w", productID, err)
	}
	if res.MatchedCount == 0 {
		ceiling := errs.Conflict("releasing %d units of %s would exceed the stock ceiling", qty, productID)
		return l.missOrShort(ctx, productID, ceiling)
	}
	return nil
}

// missOrShort tells an unknown product apart from a failed stock condition.
func (l *MongoLedger) missOrShort(ctx context.Context, productID string, short error) error {
	n, err := l.coll.CountDocuments(ctx, bson.M{"_id": productID})
	if err != nil {
		return fmt.Errorf("count %s: %w", productID, err)
	}
	if n == 0 {
		return fmt.Errorf("product %s: %w", productID, errs.ErrNoDocument)
	}
	return fmt.Errorf("product %s: %w", productID, short)
}

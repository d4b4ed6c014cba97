package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/db"
	"storefront/errs"
	"storefront/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoRepository stores carts in the carts collection; the unique index on
// userId backs the one-cart-per-customer rule.
type MongoRepository struct {
	coll *mongo.Collection
}

func NewMongoRepository(s *db.Store) *MongoRepository {
	return &MongoRepository{coll: s.CartsCollection}
}

func (r *MongoRepository) FindByUser(ctx context.Context, userID string) (*models.Cart, error) {
	var c models.Cart
	if err := r.coll.FindOne(ctx, bson.M{"userId": userID}).Decode(&c); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("cart for %s: %w", userID, errs.ErrNoDocument)
		}
		return nil, fmt.Errorf("find cart: %w", err)
	}
	if c.Items == nil {
		c.Items = []models.CartItem{}
	}
	return &c, nil
}

func (r *MongoRepository) Insert(ctx context.Context, c *models.Cart) error {
	if _, err := r.coll.InsertOne(ctx, c); err != nil {
		if db.IsDuplicateKeyError(err) {
			return fmt.Errorf("cart for %s: %w", c.UserID, errs.ErrDuplicate)
		}
		return fmt.Errorf("insert cart: %w", err)
	}
	return nil
}

func (r *MongoRepository) ReplaceItems(ctx context.Context, c *models.Cart) error {
	now := time.Now()
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"userId": c.UserID, "version": c.Version},
		bson.M{
			"$set": bson.M{"items": c.Items, "updatedAt": now},
			"$inc": bson.M{"version": 1},
		},
	)
	if err != nil {
		return fmt.Errorf("update cart: %w", err)
	}
	if res.MatchedCount == 0 {
		n, err := r.coll.CountDocuments(ctx, bson.M{"userId": c.UserID})
		if err != nil {
			return fmt.Errorf("count cart: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("cart for %s: %w", c.UserID, errs.ErrNoDocument)
		}
		return fmt.Errorf("cart for %s: %w", c.UserID, errs.ErrStale)
	}
	c.Version++
	c.UpdatedAt = now
	return nil
}

// ClearItems empties the cart only if it is still at version, so lines added
// after the caller read it survive.
func (r *MongoRepository) ClearItems(ctx context.Context, userID string, version int64) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"userId": userID, "version": version},
		bson.M{
			"$set": bson.M{"items": []models.CartItem{}, "updatedAt": time.Now()},
			"$inc": bson.M{"version": 1},
		},
	)
	if err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	if res.MatchedCount == 0 {
		if _, err := r.FindByUser(ctx, userID); err != nil {
			return err
		}
		return fmt.Errorf("cart for %s: %w", userID, errs.ErrStale)
	}
	return nil
}

// DeleteOrphans removes carts whose owner is missing or empty.
func (r *MongoRepository) DeleteOrphans(ctx context.Context) (int64, error) {
	res, err := r.coll.DeleteMany(ctx, bson.M{"$or": []bson.M{
		{"userId": nil},
		{"userId": ""},
		{"userId": bson.M{"$exists": false}},
	}})
	if err != nil {
		return 0, fmt.Errorf("delete orphan carts: %w", err)
	}
	return res.DeletedCount, nil
}

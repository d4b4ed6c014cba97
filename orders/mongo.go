package orders

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
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoRepository struct {
	coll *mongo.Collection
}

func NewMongoRepository(s *db.Store) *MongoRepository {
	return &MongoRepository{coll: s.OrdersCollection}
}

func (r *MongoRepository) Insert(ctx context.Context, o *models.Order) error {
	if _, err := r.coll.InsertOne(ctx, o); err != nil {
		if db.IsDuplicateKeyError(err) {
			return fmt.Errorf("order %s: %w", o.ID, errs.ErrDuplicate)
		}
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (r *MongoRepository) FindByID(ctx context.Context, id string) (*models.Order, error) {
	var o models.Order
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&o); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("order %s: %w", id, errs.ErrNoDocument)
		}
		return nil, fmt.Errorf("find order: %w", err)
	}
	return &o, nil
}

func (r *MongoRepository) List(ctx context.Context, f models.OrderFilter) ([]models.Order, error) {
	filter := bson.M{}
	if f.UserID != "" {
		filter["userId"] = f.UserID
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer cursor.Close(ctx)

	list := []models.Order{}
	if err := cursor.All(ctx, &list); err != nil {
		return nil, fmt.Errorf("decode orders: %w", err)
	}
	return list, nil
}

func (r *MongoRepository) UpdateStatus(ctx context.Context, id string, to models.OrderStatus, from ...models.OrderStatus) (*models.Order, error) {
	filter := bson.M{"_id": id}
	if len(from) > 0 {
		filter["status"] = bson.M{"$in": from}
	}
	update := bson.M{"$set": bson.M{"status": to, "updatedAt": time.Now()}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.Before)

	var prev models.Order
	err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&prev)
	if err == nil {
		return &prev, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("update order status: %w", err)
	}
	if len(from) == 0 {
		return nil, fmt.Errorf("order %s: %w", id, errs.ErrNoDocument)
	}
	if _, ferr := r.FindByID(ctx, id); ferr != nil {
		return nil, ferr
	}
	return nil, fmt.Errorf("order %s: %w", id, errs.ErrStale)
}

func (r *MongoRepository) UpdateShippingAddress(ctx context.Context, id, address string) (*models.Order, error) {
	update := bson.M{"$set": bson.M{"shippingAddress": address, "updatedAt": time.Now()}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var o models.Order
	if err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&o); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("order %s: %w", id, errs.ErrNoDocument)
		}
		return nil, fmt.Errorf("update shipping address: %w", err)
	}
	return &o, nil
}

func (r *MongoRepository) Delete(ctx context.Context, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("order %s: %w", id, errs.ErrNoDocument)
	}
	return nil
}

package pay

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
	return &MongoRepository{coll: s.PaymentsCollection}
}

// Insert relies on the unique orderId index for one payment per order.
func (r *MongoRepository) Insert(ctx context.Context, p *models.Payment) error {
	if _, err := r.coll.InsertOne(ctx, p); err != nil {
		if db.IsDuplicateKeyError(err) {
			return fmt.Errorf("payment for order %s: %w", p.OrderID, errs.ErrDuplicate)
		}
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

func (r *MongoRepository) findOne(ctx context.Context, filter bson.M, what string) (*models.Payment, error) {
	var p models.Payment
	if err := r.coll.FindOne(ctx, filter).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", what, errs.ErrNoDocument)
		}
		return nil, fmt.Errorf("find payment: %w", err)
	}
	return &p, nil
}

func (r *MongoRepository) FindByID(ctx context.Context, id string) (*models.Payment, error) {
	return r.findOne(ctx, bson.M{"_id": id}, "payment "+id)
}

func (r *MongoRepository) FindByOrder(ctx context.Context, orderID string) (*models.Payment, error) {
	return r.findOne(ctx, bson.M{"orderId": orderID}, "payment for order "+orderID)
}

func (r *MongoRepository) find(ctx context.Context, filter bson.M) ([]models.Payment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer cursor.Close(ctx)

	list := []models.Payment{}
	if err := cursor.All(ctx, &list); err != nil {
		return nil, fmt.Errorf("decode payments: %w", err)
	}
	return list, nil
}

func (r *MongoRepository) List(ctx context.Context, f models.PaymentFilter) ([]models.Payment, error) {
	filter := bson.M{}
	if f.UserID != "" {
		filter["userId"] = f.UserID
	}
	if f.OrderID != "" {
		filter["orderId"] = f.OrderID
	}
	return r.find(ctx, filter)
}

func (r *MongoRepository) Transition(ctx context.Context, id string, t models.PaymentTransition) (*models.Payment, error) {
	set := bson.M{"status": t.To, "updatedAt": t.At}
	if t.TransactionID != "" {
		set["transactionId"] = t.TransactionID
	}
	if t.To == models.PaymentProcessing {
		set["processingAt"] = t.At
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var p models.Payment
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id, "status": t.From}, bson.M{"$set": set}, opts).Decode(&p)
	if err == nil {
		return &p, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("transition payment: %w", err)
	}
	if _, ferr := r.FindByID(ctx, id); ferr != nil {
		return nil, ferr
	}
	return nil, fmt.Errorf("payment %s is not %s: %w", id, t.From, errs.ErrStale)
}

func (r *MongoRepository) ListStuck(ctx context.Context, before time.Time) ([]models.Payment, error) {
	return r.find(ctx, bson.M{
		"status":       models.PaymentProcessing,
		"processingAt": bson.M{"$lt": before},
	})
}

func (r *MongoRepository) ListCompleted(ctx context.Context, since time.Time) ([]models.Payment, error) {
	return r.find(ctx, bson.M{
		"status":    models.PaymentCompleted,
		"updatedAt": bson.M{"$gte": since},
	})
}

package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store is the process-wide MongoDB handle. It is opened once in main and
// passed to every repository; there is no package-level connection state.
type Store struct {
	Client *mongo.Client
	DB     *mongo.Database

	ProductsCollection    *mongo.Collection
	CartsCollection       *mongo.Collection
	OrdersCollection      *mongo.Collection
	PaymentsCollection    *mongo.Collection
	IdempotencyCollection *mongo.Collection

	transactions bool
}

// Open connects, pings and returns a Store on database name. When transactions
// is set, WithTransaction runs callbacks inside a session transaction, which
// requires a replica set or sharded cluster.
func Open(ctx context.Context, uri, name string, transactions bool) (*Store, error) {
	clientOpts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetMaxPoolSize(100).
		SetMinPoolSize(10)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	database := client.Database(name)
	return &Store{
		Client:                client,
		DB:                    database,
		ProductsCollection:    database.Collection("products"),
		CartsCollection:       database.Collection("carts"),
		OrdersCollection:      database.Collection("orders"),
		PaymentsCollection:    database.Collection("payments"),
		IdempotencyCollection: database.Collection("idempotency"),
		transactions:          transactions,
	}, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.Client.Ping(ctx, nil)
}

func (s *Store) Close(ctx context.Context) error {
	return s.Client.Disconnect(ctx)
}

// EnsureIndexes creates the uniqueness constraints the core relies on: one cart
// per owner, one payment per order, one record per idempotency key.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	specs := []struct {
		coll *mongo.Collection
		idx  []mongo.IndexModel
	}{
		{s.CartsCollection, []mongo.IndexModel{
			{Keys: bson.D{{Key: "userId", Value: 1}}, Options: options.Index().SetUnique(true).SetName("unique_owner")},
		}},
		{s.OrdersCollection, []mongo.IndexModel{
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}, Options: options.Index().SetName("owner_created")},
		}},
		{s.PaymentsCollection, []mongo.IndexModel{
			{Keys: bson.D{{Key: "orderId", Value: 1}}, Options: options.Index().SetUnique(true).SetName("unique_order")},
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}, Options: options.Index().SetName("owner_created")},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "processingAt", Value: 1}}, Options: options.Index().SetName("status_processing")},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "updatedAt", Value: 1}}, Options: options.Index().SetName("status_updated")},
		}},
		{s.ProductsCollection, []mongo.IndexModel{
			{Keys: bson.D{{Key: "seller", Value: 1}}, Options: options.Index().SetName("seller")},
		}},
		{s.IdempotencyCollection, []mongo.IndexModel{
			{Keys: bson.D{{Key: "key", Value: 1}}, Options: options.Index().SetUnique(true).SetName("unique_key")},
			{Keys: bson.D{{Key: "expires_at", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(0).SetName("ttl_expires_at")},
		}},
	}
	for _, spec := range specs {
		if _, err := spec.coll.Indexes().CreateMany(ctx, spec.idx); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", spec.coll.Name(), err)
		}
	}
	return nil
}

// WithTransaction runs fn in a multi-document transaction when the store was
// opened with transactions enabled; otherwise fn runs directly and callers rely
// on ordering and compensation.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if !s.transactions {
		return fn(ctx)
	}
	session, err := s.Client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

// IsDuplicateKeyError detects unique index violations (code 11000).
func IsDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	if mongo.IsDuplicateKeyError(err) {
		return true
	}
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 {
				return true
			}
		}
	}
	return false
}

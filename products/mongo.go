package products

import (
	"context"
	"errors"
	"fmt"

	"storefront/db"
	"storefront/errs"
	"storefront/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoCatalog reads products from the products collection.
type MongoCatalog struct {
	coll *mongo.Collection
}

func NewMongoCatalog(s *db.Store) *MongoCatalog {
	return &MongoCatalog{coll: s.ProductsCollection}
}

func (c *MongoCatalog) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	var product models.Product
	if err := c.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&product); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("product %s: %w", id, errs.ErrNoDocument)
		}
		return nil, fmt.Errorf("find product %s: %w", id, err)
	}
	return &product, nil
}

func (c *MongoCatalog) GetProducts(ctx context.Context, ids []string) (map[string]*models.Product, error) {
	out := make(map[string]*models.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	cursor, err := c.coll.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("find products: %w", err)
	}
	defer cursor.Close(ctx)

	var list []models.Product
	if err := cursor.All(ctx, &list); err != nil {
		return nil, fmt.Errorf("decode products: %w", err)
	}
	for i := range list {
		out[list[i].ID] = &list[i]
	}
	return out, nil
}

func (c *MongoCatalog) ListProducts(ctx context.Context, f models.ProductFilter) ([]models.Product, error) {
	filter := bson.M{}
	if f.Seller != "" {
		filter["seller"] = f.Seller
	}
	if f.Category != "" {
		filter["category"] = f.Category
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := c.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer cursor.Close(ctx)

	list := []models.Product{}
	if err := cursor.All(ctx, &list); err != nil {
		return nil, fmt.Errorf("decode products: %w", err)
	}
	return list, nil
}

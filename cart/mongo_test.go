package cart_test

import (
	"context"
	"testing"

	"storefront/cart"
	"storefront/db/dbtest"
	"storefront/errs"
	"storefront/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestMongoRepository(t *testing.T) {
	store := dbtest.Open(t)
	repo := cart.NewMongoRepository(store)
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, &models.Cart{ID: "c1", UserID: "u1", Items: []models.CartItem{}}))
	assert.ErrorIs(t, repo.Insert(ctx, &models.Cart{ID: "c2", UserID: "u1"}), errs.ErrDuplicate)

	a, err := repo.FindByUser(ctx, "u1")
	require.NoError(t, err)
	b, err := repo.FindByUser(ctx, "u1")
	require.NoError(t, err)

	a.Items = []models.CartItem{{ProductID: "p1", Quantity: 2}}
	require.NoError(t, repo.ReplaceItems(ctx, a))
	assert.EqualValues(t, 1, a.Version)

	b.Items = []models.CartItem{{ProductID: "p2", Quantity: 1}}
	assert.ErrorIs(t, repo.ReplaceItems(ctx, b), errs.ErrStale)

	assert.ErrorIs(t, repo.ClearItems(ctx, "u1", b.Version), errs.ErrStale)
	require.NoError(t, repo.ClearItems(ctx, "u1", a.Version))
	got, err := repo.FindByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, got.Items)
	assert.EqualValues(t, 2, got.Version)

	_, err = repo.FindByUser(ctx, "nobody")
	assert.ErrorIs(t, err, errs.ErrNoDocument)
}

func TestMongoDeleteOrphans(t *testing.T) {
	store := dbtest.Open(t)
	repo := cart.NewMongoRepository(store)
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, &models.Cart{ID: "c1", UserID: "u1"}))
	// legacy documents written without an owner
	_, err := store.CartsCollection.InsertOne(ctx, bson.M{"_id": "c2", "items": bson.A{}})
	require.NoError(t, err)

	n, err := repo.DeleteOrphans(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

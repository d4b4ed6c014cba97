package inventory_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"storefront/db"
	"storefront/db/dbtest"
	"storefront/errs"
	"storefront/inventory"
	"storefront/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func stockOf(t *testing.T, store *db.Store, id string) int {
	t.Helper()
	var p models.Product
	require.NoError(t, store.ProductsCollection.FindOne(context.Background(), bson.M{"_id": id}).Decode(&p))
	return p.Stock
}

func TestMongoLedgerConcurrentReserve(t *testing.T) {
	store := dbtest.Open(t)
	ctx := context.Background()
	_, err := store.ProductsCollection.InsertOne(ctx, models.Product{ID: "p1", Name: "Widget", Stock: 10})
	require.NoError(t, err)

	ledger := inventory.NewMongoLedger(store)
	var wg sync.WaitGroup
	var ok atomic.Int32
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ledger.Reserve(ctx, "p1", 1) == nil {
				ok.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 10, ok.Load())
	assert.Equal(t, 0, stockOf(t, store, "p1"))
}

func TestMongoLedgerErrors(t *testing.T) {
	store := dbtest.Open(t)
	ctx := context.Background()
	_, err := store.ProductsCollection.InsertOne(ctx, models.Product{ID: "p1", Stock: 2})
	require.NoError(t, err)
	ledger := inventory.NewMongoLedger(store)

	assert.ErrorIs(t, ledger.Reserve(ctx, "p1", 3), errs.ErrInsufficientStock)
	assert.ErrorIs(t, ledger.Reserve(ctx, "missing", 1), errs.ErrNoDocument)
	assert.Equal(t, errs.KindConflict, errs.KindOf(ledger.Release(ctx, "p1", inventory.MaxStock)))

	require.NoError(t, ledger.Release(ctx, "p1", 3))
	assert.Equal(t, 5, stockOf(t, store, "p1"))
}

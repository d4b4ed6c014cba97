package orders_test

import (
	"context"
	"testing"
	"time"

	"storefront/db/dbtest"
	"storefront/errs"
	"storefront/models"
	"storefront/orders"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMongoRepository(t *testing.T) {
	store := dbtest.Open(t)
	repo := orders.NewMongoRepository(store)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	o1 := &models.Order{ID: "o1", UserID: "u1", Status: models.OrderPending, CreatedAt: now}
	o2 := &models.Order{ID: "o2", UserID: "u1", Status: models.OrderPending, CreatedAt: now.Add(time.Second)}
	o3 := &models.Order{ID: "o3", UserID: "u2", Status: models.OrderPending, CreatedAt: now}
	for _, o := range []*models.Order{o1, o2, o3} {
		require.NoError(t, repo.Insert(ctx, o))
	}
	assert.ErrorIs(t, repo.Insert(ctx, o1), errs.ErrDuplicate)

	list, err := repo.List(ctx, models.OrderFilter{UserID: "u1"})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "o2", list[0].ID)

	prev, err := repo.UpdateStatus(ctx, "o1", models.OrderProcessing, models.OrderPending)
	require.NoError(t, err)
	assert.Equal(t, models.OrderPending, prev.Status)

	_, err = repo.UpdateStatus(ctx, "o1", models.OrderProcessing, models.OrderPending)
	assert.ErrorIs(t, err, errs.ErrStale)
	_, err = repo.UpdateStatus(ctx, "zz", models.OrderProcessing, models.OrderPending)
	assert.ErrorIs(t, err, errs.ErrNoDocument)

	updated, err := repo.UpdateShippingAddress(ctx, "o1", "Kumasi")
	require.NoError(t, err)
	assert.Equal(t, "Kumasi", updated.ShippingAddress)

	require.NoError(t, repo.Delete(ctx, "o3"))
	assert.ErrorIs(t, repo.Delete(ctx, "o3"), errs.ErrNoDocument)
}

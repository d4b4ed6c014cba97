package orders_test

import (
	"context"
	"testing"
	"time"

	"storefront/errs"
	"storefront/memstore"
	"storefront/models"
	"storefront/orders"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	admin   = models.Principal{UserID: "admin-1", Role: models.RoleAdmin}
	seller  = models.Principal{UserID: "seller-1", Role: models.RoleSeller}
	alice   = models.Principal{UserID: "alice", Role: models.RoleCustomer}
	mallory = models.Principal{UserID: "mallory", Role: models.RoleCustomer}
	nobody  = models.Principal{}
)

type fixture struct {
	svc      *orders.Service
	orders   *memstore.Orders
	products *memstore.Products
	productA string
	order    *models.Order
}

func newFixture(t *testing.T, policy orders.TransitionPolicy) *fixture {
	t.Helper()
	f := &fixture{
		orders:   memstore.NewOrders(),
		productA: uuid.NewString(),
	}
	f.products = memstore.NewProducts(models.Product{ID: f.productA, Name: "Widget", Price: 10, Stock: 3})
	f.svc = orders.NewService(f.orders, f.products, f.products, memstore.TxRunner{}, policy)

	items := []models.OrderItem{{ProductID: f.productA, Name: "Widget", Quantity: 2, Price: 10}}
	f.order = &models.Order{
		ID:              uuid.NewString(),
		UserID:          alice.UserID,
		Items:           items,
		Total:           models.SumItems(items),
		ShippingAddress: "1 Ring Road, Accra",
		Status:          models.OrderPending,
		CreatedAt:       time.Now(),
	}
	require.NoError(t, f.orders.Insert(context.Background(), f.order))
	return f
}

func TestGetAuthorization(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	view, err := f.svc.Get(ctx, alice, f.order.ID)
	require.NoError(t, err)
	assert.Equal(t, 20.0, view.Total)
	require.NotNil(t, view.Items[0].Product)
	assert.Equal(t, "Widget", view.Items[0].Product.Name)

	_, err = f.svc.Get(ctx, admin, f.order.ID)
	assert.NoError(t, err)

	_, err = f.svc.Get(ctx, mallory, f.order.ID)
	assert.Equal(t, errs.KindForbidden, errs.KindOf(err))

	_, err = f.svc.Get(ctx, mallory, uuid.NewString())
	assert.Equal(t, errs.KindNotFound, errs.KindOf(err), "not-found wins over forbidden")

	_, err = f.svc.Get(ctx, nobody, f.order.ID)
	assert.Equal(t, errs.KindUnauthorized, errs.KindOf(err))

	_, err = f.svc.Get(ctx, alice, "bogus")
	assert.Equal(t, errs.KindValidation, errs.KindOf(err))
}

func TestListScopesToOwner(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	require.NoError(t, f.orders.Insert(ctx, &models.Order{ID: uuid.NewString(), UserID: mallory.UserID, Status: models.OrderPending}))

	mine, err := f.svc.List(ctx, alice, mallory.UserID)
	require.NoError(t, err)
	require.Len(t, mine, 1, "customers cannot list someone else's orders")
	assert.Equal(t, alice.UserID, mine[0].UserID)

	all, err := f.svc.List(ctx, admin, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	filtered, err := f.svc.List(ctx, admin, mallory.UserID)
	require.NoError(t, err)
	assert.Len(t, filtered, 1)
}

func TestSnapshotSurvivesPriceChange(t *testing.T) {
	f := newFixture(t, nil)
	f.products.Put(models.Product{ID: f.productA, Name: "Widget", Price: 99, Stock: 3})

	view, err := f.svc.Get(context.Background(), alice, f.order.ID)
	require.NoError(t, err)
	assert.Equal(t, 20.0, view.Total)
	assert.Equal(t, 10.0, view.Items[0].Price)
	assert.Equal(t, 99.0, view.Items[0].Product.Price)
}

func TestUpdateStatusRejectsUnknownStatusBeforeWriting(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.svc.UpdateStatus(context.Background(), admin, f.order.ID, "teleported")
	assert.Equal(t, errs.KindValidation, errs.KindOf(err))

	o, err := f.orders.FindByID(context.Background(), f.order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderPending, o.Status)
}

func TestUpdateStatusRoles(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.UpdateStatus(ctx, alice, f.order.ID, "shipped")
	assert.Equal(t, errs.KindForbidden, errs.KindOf(err))

	view, err := f.svc.UpdateStatus(ctx, seller, f.order.ID, "shipped")
	require.NoError(t, err)
	assert.Equal(t, models.OrderShipped, view.Status)

	_, err = f.svc.UpdateStatus(ctx, admin, uuid.NewString(), "shipped")
	assert.Equal(t, errs.KindNotFound, errs.KindOf(err))
}

func TestPermissivePolicyAllowsAnyMove(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	for _, st := range []string{"delivered", "pending", "shipped", "processing"} {
		view, err := f.svc.UpdateStatus(ctx, admin, f.order.ID, st)
		require.NoError(t, err, st)
		assert.Equal(t, models.OrderStatus(st), view.Status)
	}
}

func TestStrictPolicy(t *testing.T) {
	f := newFixture(t, orders.Strict)
	ctx := context.Background()

	_, err := f.svc.UpdateStatus(ctx, admin, f.order.ID, "delivered")
	assert.Equal(t, errs.KindConflict, errs.KindOf(err))

	_, err = f.svc.UpdateStatus(ctx, admin, f.order.ID, "processing")
	require.NoError(t, err)
	_, err = f.svc.UpdateStatus(ctx, admin, f.order.ID, "shipped")
	require.NoError(t, err)
	_, err = f.svc.UpdateStatus(ctx, admin, f.order.ID, "cancelled")
	assert.Equal(t, errs.KindConflict, errs.KindOf(err), "shipped orders cannot be cancelled")
}

func TestCancelReleasesAndReopenReserves(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.UpdateStatus(ctx, admin, f.order.ID, "cancelled")
	require.NoError(t, err)
	assert.Equal(t, 5, f.products.Stock(f.productA), "two units return to stock")

	_, err = f.svc.UpdateStatus(ctx, admin, f.order.ID, "cancelled")
	require.NoError(t, err)
	assert.Equal(t, 5, f.products.Stock(f.productA), "cancelling twice releases once")

	_, err = f.svc.UpdateStatus(ctx, admin, f.order.ID, "pending")
	require.NoError(t, err)
	assert.Equal(t, 3, f.products.Stock(f.productA))
}

func TestReopenFailsWithoutStock(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.UpdateStatus(ctx, admin, f.order.ID, "cancelled")
	require.NoError(t, err)
	require.NoError(t, f.products.Reserve(ctx, f.productA, 4))

	_, err = f.svc.UpdateStatus(ctx, admin, f.order.ID, "processing")
	assert.Equal(t, errs.KindConflict, errs.KindOf(err))

	o, err := f.orders.FindByID(ctx, f.order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderCancelled, o.Status)
	assert.Equal(t, 1, f.products.Stock(f.productA))
}

func TestUpdateShippingAddress(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	view, err := f.svc.UpdateShippingAddress(ctx, alice, f.order.ID, "  2 Oxford St, Osu  ")
	require.NoError(t, err)
	assert.Equal(t, "2 Oxford St, Osu", view.ShippingAddress)

	_, err = f.svc.UpdateShippingAddress(ctx, mallory, f.order.ID, "elsewhere")
	assert.Equal(t, errs.KindForbidden, errs.KindOf(err))

	_, err = f.svc.UpdateShippingAddress(ctx, alice, f.order.ID, "   ")
	assert.Equal(t, errs.KindValidation, errs.KindOf(err))

	_, err = f.svc.UpdateStatus(ctx, admin, f.order.ID, "shipped")
	require.NoError(t, err)
	_, err = f.svc.UpdateShippingAddress(ctx, alice, f.order.ID, "too late")
	assert.Equal(t, errs.KindConflict, errs.KindOf(err))
}

func TestUpdateValidatesAllFieldsFirst(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.Update(ctx, admin, f.order.ID, orders.Update{Status: "lost", ShippingAddress: "new place"})
	assert.Equal(t, errs.KindValidation, errs.KindOf(err))
	o, err := f.orders.FindByID(ctx, f.order.ID)
	require.NoError(t, err)
	assert.Equal(t, "1 Ring Road, Accra", o.ShippingAddress)

	_, err = f.svc.Update(ctx, admin, f.order.ID, orders.Update{})
	assert.Equal(t, errs.KindValidation, errs.KindOf(err))

	view, err := f.svc.Update(ctx, admin, f.order.ID, orders.Update{Status: "processing", ShippingAddress: "new place"})
	require.NoError(t, err)
	assert.Equal(t, models.OrderProcessing, view.Status)
	assert.Equal(t, "new place", view.ShippingAddress)
}

func TestDelete(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	assert.Equal(t, errs.KindForbidden, errs.KindOf(f.svc.Delete(ctx, alice, f.order.ID)))
	require.NoError(t, f.svc.Delete(ctx, admin, f.order.ID))
	assert.Equal(t, errs.KindNotFound, errs.KindOf(f.svc.Delete(ctx, admin, f.order.ID)))
	assert.Equal(t, 3, f.products.Stock(f.productA), "deleting does not touch stock")
}

func TestPolicyByName(t *testing.T) {
	for _, name := range []string{"", "permissive", "strict"} {
		_, err := orders.PolicyByName(name)
		assert.NoError(t, err, name)
	}
	_, err := orders.PolicyByName("chaos")
	assert.Error(t, err)
}

package pay_test

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"
	"time"

	"storefront/memstore"
	"storefront/models"
	"storefront/pay"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *fixture) processing(t *testing.T) *models.PaymentView {
	t.Helper()
	created := f.create(t)
	v, err := f.svc.Process(context.Background(), alice, created.ID)
	require.NoError(t, err)
	return v
}

func (f *fixture) processor(outcome pay.Outcome, delay time.Duration) *pay.Processor {
	return pay.NewProcessor(f.payments, f.orders, outcome, f.events, nil, pay.ProcessorConfig{Delay: delay, Workers: 2})
}

func TestResolveSuccessAdvancesOrder(t *testing.T) {
	f := newFixture(t)
	v := f.processing(t)
	proc := f.processor(pay.Always(true), 0)

	require.NoError(t, proc.Resolve(context.Background(), v.ID))

	p, err := f.payments.FindByID(context.Background(), v.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentCompleted, p.Status)
	assert.Equal(t, v.TransactionID, p.TransactionID)

	o, err := f.orders.FindByID(context.Background(), f.order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderProcessing, o.Status)

	assert.Equal(t, []models.PaymentStatus{
		models.PaymentPending, models.PaymentProcessing, models.PaymentCompleted,
	}, f.events.Statuses())
}

func TestResolveFailureLeavesOrder(t *testing.T) {
	f := newFixture(t)
	v := f.processing(t)
	proc := f.processor(pay.Always(false), 0)

	require.NoError(t, proc.Resolve(context.Background(), v.ID))

	p, err := f.payments.FindByID(context.Background(), v.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentFailed, p.Status)

	o, err := f.orders.FindByID(context.Background(), f.order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderPending, o.Status)
}

func TestResolveIsIdempotent(t *testing.T) {
	f := newFixture(t)
	v := f.processing(t)

	require.NoError(t, f.processor(pay.Always(true), 0).Resolve(context.Background(), v.ID))
	require.NoError(t, f.processor(pay.Always(false), 0).Resolve(context.Background(), v.ID))

	p, err := f.payments.FindByID(context.Background(), v.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentCompleted, p.Status)
	assert.Len(t, f.events.Statuses(), 3)
}

func TestResolveDoesNotReopenCancelledOrder(t *testing.T) {
	f := newFixture(t)
	v := f.processing(t)
	_, err := f.orders.UpdateStatus(context.Background(), f.order.ID, models.OrderCancelled)
	require.NoError(t, err)

	require.NoError(t, f.processor(pay.Always(true), 0).Resolve(context.Background(), v.ID))

	o, err := f.orders.FindByID(context.Background(), f.order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderCancelled, o.Status)
}

func TestProcessorResolvesAfterDelay(t *testing.T) {
	f := newFixture(t)
	proc := f.processor(pay.Always(true), 20*time.Millisecond)
	proc.Start()
	defer proc.Stop()

	svc := pay.NewService(f.payments, f.orders, proc, f.events)
	created := f.create(t)
	v, err := svc.Process(context.Background(), alice, created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentProcessing, v.Status, "caller does not wait for the outcome")

	require.Eventually(t, func() bool {
		p, err := f.payments.FindByID(context.Background(), v.ID)
		return err == nil && p.Status == models.PaymentCompleted
	}, 2*time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		o, err := f.orders.FindByID(context.Background(), f.order.ID)
		return err == nil && o.Status == models.OrderProcessing
	}, time.Second, 10*time.Millisecond)
}

func TestProcessorStopCancelsTimers(t *testing.T) {
	f := newFixture(t)
	v := f.processing(t)
	proc := f.processor(pay.Always(true), time.Hour)
	proc.Start()

	proc.Schedule(v.ID)
	proc.Schedule(v.ID)
	assert.Equal(t, 1, proc.Pending())

	proc.Stop()
	assert.Equal(t, 0, proc.Pending())
	proc.Schedule(v.ID)
	assert.Equal(t, 0, proc.Pending())

	p, err := f.payments.FindByID(context.Background(), v.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentProcessing, p.Status)
}

func TestSweepReschedulesStuckPayments(t *testing.T) {
	f := newFixture(t)
	stuck := f.processing(t)
	sched := &recordingScheduler{}

	sweeper := pay.NewSweeper(f.payments, f.orders, sched, time.Minute)
	n, err := sweeper.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n, "recently processed payments are not stuck")

	sweeper = pay.NewSweeper(f.payments, f.orders, sched, -time.Minute)
	n, err = sweeper.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{stuck.ID}, sched.Scheduled())
}

// unavailableOrders fails every status update, as during a database outage.
type unavailableOrders struct {
	*memstore.Orders
}

func (unavailableOrders) UpdateStatus(context.Context, string, models.OrderStatus, ...models.OrderStatus) (*models.Order, error) {
	return nil, errors.New("server selection timeout")
}

func TestSweepAdvancesOrderOfCompletedPayment(t *testing.T) {
	f := newFixture(t)
	v := f.processing(t)
	proc := pay.NewProcessor(f.payments, unavailableOrders{f.orders}, pay.Always(true), f.events, nil, pay.ProcessorConfig{})

	require.Error(t, proc.Resolve(context.Background(), v.ID))
	p, err := f.payments.FindByID(context.Background(), v.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentCompleted, p.Status)
	o, err := f.orders.FindByID(context.Background(), f.order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderPending, o.Status)

	sweeper := pay.NewSweeper(f.payments, f.orders, &recordingScheduler{}, time.Minute)
	for range 2 {
		_, err = sweeper.Sweep(context.Background())
		require.NoError(t, err)
		o, err = f.orders.FindByID(context.Background(), f.order.ID)
		require.NoError(t, err)
		assert.Equal(t, models.OrderProcessing, o.Status)
	}
}

func TestSweepLeavesCancelledOrder(t *testing.T) {
	f := newFixture(t)
	v := f.processing(t)
	require.NoError(t, f.processor(pay.Always(true), 0).Resolve(context.Background(), v.ID))
	_, err := f.orders.UpdateStatus(context.Background(), f.order.ID, models.OrderCancelled)
	require.NoError(t, err)

	_, err = pay.NewSweeper(f.payments, f.orders, &recordingScheduler{}, time.Minute).Sweep(context.Background())
	require.NoError(t, err)
	o, err := f.orders.FindByID(context.Background(), f.order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderCancelled, o.Status)
}

func TestSweepAfterRestartResolves(t *testing.T) {
	f := newFixture(t)
	v := f.processing(t)

	proc := f.processor(pay.Always(false), time.Millisecond)
	proc.Start()
	defer proc.Stop()

	_, err := pay.NewSweeper(f.payments, f.orders, proc, -time.Second).Sweep(context.Background())
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		p, err := f.payments.FindByID(context.Background(), v.ID)
		return err == nil && p.Status == models.PaymentFailed
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRandomOutcomeRate(t *testing.T) {
	draw := pay.RandomOutcome(pay.DefaultSuccessRate, rand.NewPCG(1, 2))
	wins := 0
	for range 10000 {
		if draw() {
			wins++
		}
	}
	assert.InDelta(t, 9500, wins, 150)

	assert.False(t, pay.RandomOutcome(0, nil)())
	assert.True(t, pay.RandomOutcome(1, nil)())
}

var _ pay.Repository = (*memstore.Payments)(nil)

package pay

import (
	"context"
	"errors"
	"log"
	"time"

	"storefront/errs"
	"storefront/models"
)

// ReconcileWindow bounds how far back a sweep looks for completed payments
// whose order never left pending.
const ReconcileWindow = 24 * time.Hour

// Sweeper re-schedules payments stuck in processing, typically because the
// process that armed their timer exited before it fired. It also advances
// orders left pending after their payment completed.
type Sweeper struct {
	payments   Repository
	orders     OrderStore
	sched      Scheduler
	stuckAfter time.Duration
	now        func() time.Time
}

func NewSweeper(payments Repository, orders OrderStore, sched Scheduler, stuckAfter time.Duration) *Sweeper {
	return &Sweeper{payments: payments, orders: orders, sched: sched, stuckAfter: stuckAfter, now: time.Now}
}

// Sweep schedules every payment that has been processing for longer than the
// threshold and returns how many it found.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	now := s.now()
	stuck, err := s.payments.ListStuck(ctx, now.Add(-s.stuckAfter))
	if err != nil {
		return 0, err
	}
	for _, p := range stuck {
		s.sched.Schedule(p.ID)
	}
	if len(stuck) > 0 {
		log.Printf("[PaymentSweeper] re-scheduled %d stuck payments", len(stuck))
	}
	if err := s.reconcile(ctx, now.Add(-ReconcileWindow)); err != nil {
		return len(stuck), err
	}
	return len(stuck), nil
}

// reconcile moves the order of each recently completed payment from pending
// to processing. Orders already past pending are left alone.
func (s *Sweeper) reconcile(ctx context.Context, since time.Time) error {
	completed, err := s.payments.ListCompleted(ctx, since)
	if err != nil {
		return err
	}
	repaired := 0
	for _, p := range completed {
		_, err := s.orders.UpdateStatus(ctx, p.OrderID, models.OrderProcessing, models.OrderPending)
		switch {
		case err == nil:
			repaired++
		case errors.Is(err, errs.ErrStale), errors.Is(err, errs.ErrNoDocument):
		default:
			log.Printf("[PaymentSweeper] order %s for payment %s: %v", p.OrderID, p.ID, err)
		}
	}
	if repaired > 0 {
		log.Printf("[PaymentSweeper] advanced %d orders with completed payments", repaired)
	}
	return nil
}

// Run sweeps once immediately and then every interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if _, err := s.Sweep(ctx); err != nil && ctx.Err() == nil {
			log.Printf("[PaymentSweeper] sweep failed: %v", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

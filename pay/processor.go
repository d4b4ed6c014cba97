package pay

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"storefront/errs"
	"storefront/metrics"
	"storefront/models"
	"storefront/mq"
)

type ProcessorConfig struct {
	Delay     time.Duration
	Workers   int
	QueueSize int
}

// Processor resolves processing payments out of band. Schedule arms a timer
// per payment; when it fires the id is queued and a worker resolves it.
// Pending timers die with the process, which is what Sweeper recovers from.
type Processor struct {
	payments Repository
	orders   OrderStore
	outcome  Outcome
	emitter  mq.Emitter
	metrics  *metrics.Metrics
	cfg      ProcessorConfig
	now      func() time.Time

	queue chan string
	quit  chan struct{}
	wg    sync.WaitGroup

	mu      sync.Mutex
	timers  map[string]*time.Timer
	stopped bool
}

func NewProcessor(payments Repository, orders OrderStore, outcome Outcome, emitter mq.Emitter, m *metrics.Metrics, cfg ProcessorConfig) *Processor {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if outcome == nil {
		outcome = RandomOutcome(DefaultSuccessRate, nil)
	}
	if emitter == nil {
		emitter = mq.Nop{}
	}
	return &Processor{
		payments: payments,
		orders:   orders,
		outcome:  outcome,
		emitter:  emitter,
		metrics:  m,
		cfg:      cfg,
		now:      time.Now,
		queue:    make(chan string, cfg.QueueSize),
		quit:     make(chan struct{}),
		timers:   make(map[string]*time.Timer),
	}
}

// Start launches the workers. They run until Stop.
func (p *Processor) Start() {
	for i := 0; i < p.cfg.Workers; i++ {
		p.wg.Add(1)
		go p.work()
	}
	log.Printf("[PaymentProcessor] started %d workers, delay %s", p.cfg.Workers, p.cfg.Delay)
}

// Stop cancels armed timers and waits for in-flight resolutions. Payments whose
// timers were cancelled stay processing until the next sweep.
func (p *Processor) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	for id, t := range p.timers {
		t.Stop()
		delete(p.timers, id)
	}
	close(p.quit)
	p.mu.Unlock()

	p.wg.Wait()
	log.Println("[PaymentProcessor] stopped")
}

// Schedule arms the resolution timer for a payment. A payment that already
// has a timer armed is not scheduled twice.
func (p *Processor) Schedule(paymentID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return
	}
	if _, ok := p.timers[paymentID]; ok {
		return
	}
	p.timers[paymentID] = time.AfterFunc(p.cfg.Delay, func() {
		p.mu.Lock()
		delete(p.timers, paymentID)
		p.mu.Unlock()
		select {
		case p.queue <- paymentID:
		case <-p.quit:
		}
	})
}

// Pending reports how many timers are armed.
func (p *Processor) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.timers)
}

func (p *Processor) work() {
	defer p.wg.Done()
	for {
		select {
		case <-p.quit:
			return
		case id := <-p.queue:
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if err := p.Resolve(ctx, id); err != nil {
				log.Printf("[PaymentProcessor] resolving payment %s: %v", id, err)
			}
			cancel()
		}
	}
}

// Resolve settles a processing payment. The payment status is written first;
// on success the order then moves from pending to processing. A payment that
// is no longer processing is left alone, so resolving twice is harmless. A
// declined draw is recorded as failed and is not an error.
func (p *Processor) Resolve(ctx context.Context, paymentID string) error {
	to := models.PaymentFailed
	if p.outcome() {
		to = models.PaymentCompleted
	}

	payment, err := p.payments.Transition(ctx, paymentID, models.PaymentTransition{
		From: models.PaymentProcessing,
		To:   to,
		At:   p.now(),
	})
	if errors.Is(err, errs.ErrStale) || errors.Is(err, errs.ErrNoDocument) {
		log.Printf("[PaymentProcessor] payment %s already settled: %v", paymentID, err)
		return nil
	}
	if err != nil {
		return err
	}
	p.metrics.PaymentOutcome(string(to))
	p.emitter.Emit(ctx, mq.PaymentEvent(payment))
	log.Printf("[PaymentProcessor] payment %s (%s) %s", payment.ID, payment.TransactionID, to)

	if to != models.PaymentCompleted {
		return nil
	}
	_, err = p.orders.UpdateStatus(ctx, payment.OrderID, models.OrderProcessing, models.OrderPending)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, errs.ErrStale):
		log.Printf("[PaymentProcessor] order %s is no longer pending; status left unchanged", payment.OrderID)
		return nil
	default:
		return err
	}
}

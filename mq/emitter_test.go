package mq

import (
	"context"
	"sync"
	"testing"
	"time"

	"storefront/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) Emit(_ context.Context, ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) snapshot() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func newConn(t *testing.T, mr *miniredis.Miniredis) *redis.Client {
	t.Helper()
	conn := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestPublishSubscribeRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	conn := newConn(t, mr)

	ctx, cancel := context.WithCancel(context.Background())
	got := &recorder{}
	done := make(chan error, 1)
	go func() {
		done <- Subscribe(ctx, conn, PaymentChannel, func(ev Event) { got.Emit(ctx, ev) })
	}()
	require.Eventually(t, func() bool {
		return mr.PubSubNumSub(PaymentChannel)[PaymentChannel] == 1
	}, 2*time.Second, 10*time.Millisecond)

	p := &models.Payment{ID: "p1", OrderID: "o1", UserID: "u1", Status: models.PaymentCompleted, TransactionID: "TXN1"}
	NewRedisEmitter(conn, PaymentChannel).Emit(ctx, PaymentEvent(p))

	require.Eventually(t, func() bool { return len(got.snapshot()) == 1 }, 2*time.Second, 10*time.Millisecond)
	ev := got.snapshot()[0]
	assert.Equal(t, EventPaymentStatus, ev.Type)
	assert.Equal(t, "p1", ev.PaymentID)
	assert.Equal(t, models.PaymentCompleted, ev.Status)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber did not stop")
	}
}

func TestBreakerOpensWhenRedisIsDown(t *testing.T) {
	mr := miniredis.RunT(t)
	conn := newConn(t, mr)
	e := NewRedisEmitter(conn, PaymentChannel)
	mr.Close()

	for i := 0; i < 5; i++ {
		e.Emit(context.Background(), Event{Type: EventPaymentStatus, PaymentID: "p1"})
	}
	assert.Equal(t, gobreaker.StateOpen, e.State())

	// further events fail fast without touching the connection
	e.Emit(context.Background(), Event{Type: EventPaymentStatus, PaymentID: "p1"})
}

func TestFanout(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	Fanout{a, Nop{}, b}.Emit(context.Background(), Event{PaymentID: "p1"})
	assert.Len(t, a.snapshot(), 1)
	assert.Len(t, b.snapshot(), 1)
}

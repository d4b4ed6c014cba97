package mq

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"storefront/models"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker/v2"
)

// PaymentChannel is the Redis channel carrying payment status events.
const PaymentChannel = "payment-events"

const EventPaymentStatus = "payment.status"

// Event announces a payment status change.
type Event struct {
	Type          string               `json:"type"`
	PaymentID     string               `json:"paymentId"`
	OrderID       string               `json:"orderId"`
	UserID        string               `json:"userId"`
	Status        models.PaymentStatus `json:"status"`
	TransactionID string               `json:"transactionId,omitempty"`
	At            time.Time            `json:"at"`
}

// PaymentEvent builds the event for the current state of p.
func PaymentEvent(p *models.Payment) Event {
	return Event{
		Type:          EventPaymentStatus,
		PaymentID:     p.ID,
		OrderID:       p.OrderID,
		UserID:        p.UserID,
		Status:        p.Status,
		TransactionID: p.TransactionID,
		At:            p.UpdatedAt,
	}
}

// Emitter delivers events on a best-effort basis. Emit never fails the caller:
// the payment record is the source of truth and events only notify.
type Emitter interface {
	Emit(ctx context.Context, ev Event)
}

// Nop drops every event.
type Nop struct{}

func (Nop) Emit(context.Context, Event) {}

// Fanout emits to each emitter in turn.
type Fanout []Emitter

func (f Fanout) Emit(ctx context.Context, ev Event) {
	for _, e := range f {
		e.Emit(ctx, ev)
	}
}

// RedisEmitter publishes events to a Redis channel. Publishing goes through a
// circuit breaker so an unavailable Redis costs one fast failure per event
// instead of a dial timeout.
type RedisEmitter struct {
	conn    *redis.Client
	channel string
	cb      *gobreaker.CircuitBreaker[int64]
}

func NewRedisEmitter(conn *redis.Client, channel string) *RedisEmitter {
	cb := gobreaker.NewCircuitBreaker[int64](gobreaker.Settings{
		Name:        "redis-publish",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Printf("[Emit] breaker %s: %s -> %s", name, from, to)
		},
	})
	return &RedisEmitter{conn: conn, channel: channel, cb: cb}
}

func (e *RedisEmitter) Emit(ctx context.Context, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		log.Printf("[Emit] Failed to marshal event: %v", err)
		return
	}
	_, err = e.cb.Execute(func() (int64, error) {
		return e.conn.Publish(ctx, e.channel, data).Result()
	})
	if err != nil {
		if !errors.Is(err, gobreaker.ErrOpenState) {
			log.Printf("[Emit] Failed to publish %s for payment %s: %v", ev.Type, ev.PaymentID, err)
		}
		return
	}
}

// State reports the breaker state, mainly for health output and tests.
func (e *RedisEmitter) State() gobreaker.State {
	return e.cb.State()
}

package mq

import (
	"context"
	"encoding/json"
	"log"

	"github.com/redis/go-redis/v9"
)

// Subscribe forwards events published on channel to handle until ctx is
// cancelled. It blocks; run it in its own goroutine.
func Subscribe(ctx context.Context, conn *redis.Client, channel string, handle func(Event)) error {
	sub := conn.Subscribe(ctx, channel)
	defer sub.Close()

	// wait for the subscription to be confirmed so no early event is missed
	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	ch := sub.Channel()

	log.Printf("[EventWorker] Listening on %s", channel)
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				log.Printf("[EventWorker] Failed to parse event: %v", err)
				continue
			}
			handle(ev)
		}
	}
}

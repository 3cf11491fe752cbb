package mq

import (
	"context"
	"encoding/json"
	"log"

	"meridia/models"
	"meridia/rdx"
)

const channel = "domain-events"

// Event is the envelope published on the internal bus.
type Event struct {
	Name    string       `json:"name"`
	Payload models.Index `json:"payload"`
}

// Emit publishes a domain event to Redis pub/sub. Failures are logged, never
// surfaced to the request path.
func Emit(ctx context.Context, eventName string, content models.Index) {
	data, err := json.Marshal(Event{Name: eventName, Payload: content})
	if err != nil {
		log.Printf("[Emit] failed to marshal event %s: %v", eventName, err)
		return
	}
	if err := rdx.Conn.Publish(ctx, channel, data).Err(); err != nil {
		log.Printf("[Emit] failed to publish %s: %v", eventName, err)
	}
}

// StartEventWorker consumes the bus. Today it only records events; side
// effects (mail, push) hang off here later.
func StartEventWorker() {
	ctx := context.Background()
	sub := rdx.Conn.Subscribe(ctx, channel)
	ch := sub.Channel()

	log.Println("[EventWorker] listening for domain events...")

	for msg := range ch {
		var event Event
		if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
			log.Printf("[EventWorker] failed to parse event: %v", err)
			continue
		}
		log.Printf("[EventWorker] %s %s/%s", event.Name, event.Payload.EntityType, event.Payload.EntityId)
	}
}

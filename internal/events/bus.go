// Package events is a small in-process pub/sub bus. The state machine
// publishes after its transaction commits; handlers (invoice issuance,
// notifications) run isolated from each other and from the publisher, so a
// failing handler never fails the request that triggered the event.
package events

import (
	"context"
	"log"
	"sync"
)

const (
	TopicOrderDelivered = "order.delivered"
	TopicOrderCancelled = "order.cancelled"
)

// Handler processes one published event. Errors are logged, never returned
// to the publisher.
type Handler func(ctx context.Context, payload interface{}) error

type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
}

func NewBus() *Bus {
	return &Bus{handlers: make(map[string][]Handler)}
}

// Subscribe registers a handler for a topic. Registration happens during
// wiring, before any publish.
func (b *Bus) Subscribe(topic string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[topic] = append(b.handlers[topic], handler)
}

// Publish dispatches the payload to every handler of the topic, in order.
// Each handler gets its own panic recovery; one handler failing does not
// stop the rest.
func (b *Bus) Publish(ctx context.Context, topic string, payload interface{}) {
	b.mu.RLock()
	handlers := b.handlers[topic]
	b.mu.RUnlock()

	for _, handler := range handlers {
		b.dispatch(ctx, topic, handler, payload)
	}
}

func (b *Bus) dispatch(ctx context.Context, topic string, handler Handler, payload interface{}) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("event handler panic on %s: %v", topic, r)
		}
	}()
	if err := handler(ctx, payload); err != nil {
		log.Printf("event handler error on %s: %v", topic, err)
	}
}

package events

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// EventBus delivers events synchronously on the publishing goroutine, in
// subscription order. A panicking handler is logged and does not stop
// delivery to the others.
type EventBus struct {
	subscribers  []Subscriber
	funcHandlers map[string][]EventHandler
	mu           sync.RWMutex
	logger       zerolog.Logger
}

var _ Bus = (*EventBus)(nil)

func NewEventBus(logger zerolog.Logger) *EventBus {
	return &EventBus{
		funcHandlers: make(map[string][]EventHandler),
		logger:       logger.With().Str("component", "event_bus").Logger(),
	}
}

// Subscribe adds a subscriber, replacing any existing one with the same ID
func (eb *EventBus) Subscribe(subscriber Subscriber) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	for i, s := range eb.subscribers {
		if s.ID() == subscriber.ID() {
			eb.subscribers[i] = subscriber
			return
		}
	}
	eb.subscribers = append(eb.subscribers, subscriber)
	eb.logger.Debug().Str("subscriber_id", subscriber.ID()).Msg("Subscriber added to event bus")
}

func (eb *EventBus) Unsubscribe(subscriberID string) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	for i, s := range eb.subscribers {
		if s.ID() == subscriberID {
			eb.subscribers = append(eb.subscribers[:i], eb.subscribers[i+1:]...)
			eb.logger.Debug().Str("subscriber_id", subscriberID).Msg("Subscriber removed from event bus")
			return
		}
	}
}

// SubscribeFunc adds a function handler for one event type
func (eb *EventBus) SubscribeFunc(eventType string, handler EventHandler) string {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.funcHandlers[eventType] = append(eb.funcHandlers[eventType], handler)
	return fmt.Sprintf("%s_func_%d", eventType, len(eb.funcHandlers[eventType]))
}

func (eb *EventBus) Publish(event Event) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	eventType := event.Type()
	for _, subscriber := range eb.subscribers {
		if subscriber.InterestedIn(eventType) {
			eb.deliver(subscriber.ID(), event, subscriber.HandleEvent)
		}
	}
	for i, handler := range eb.funcHandlers[eventType] {
		eb.deliver(fmt.Sprintf("func_%d", i), event, handler)
	}
}

func (eb *EventBus) deliver(id string, event Event, handle EventHandler) {
	defer func() {
		if r := recover(); r != nil {
			eb.logger.Error().
				Str("subscriber_id", id).
				Str("event_type", event.Type()).
				Interface("panic", r).
				Msg("Subscriber panicked while handling event")
		}
	}()
	handle(event)
}

// SubscriberCount returns the number of object subscribers
func (eb *EventBus) SubscriberCount() int {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	return len(eb.subscribers)
}

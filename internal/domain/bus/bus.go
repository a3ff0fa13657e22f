/*
Package bus is the in-process publish/subscribe channel between source
connectors and the dispatcher.

Every non-control topic passes through the enablement gate: an event of a
disabled type is dropped before any subscriber sees it. The two control
topics bypass the gate because they are what the gate itself reacts to.

Delivery is synchronous on the publisher's goroutine, in subscription order.
Each subscription carries its own mutex so a handler is never entered
concurrently, while handlers may publish to other topics.
*/
package bus

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/streamcue/relay-service/internal/domain/event"
)

const (
	// TopicStateChanged carries store.Notification values whenever an event
	// type is enabled or disabled.
	TopicStateChanged = "event_state_changed"
	// TopicApprovedMessage carries model.ApprovedMessage values for the assistant.
	TopicApprovedMessage = "approved_message"
)

// IsControl reports whether topic bypasses the gate.
func IsControl(topic string) bool {
	return topic == TopicStateChanged || topic == TopicApprovedMessage
}

// Gate answers whether an event type is currently enabled.
type Gate interface {
	IsEnabled(eventType event.Kind) bool
}

type Handler func(ctx context.Context, payload any)

type SubscriptionID string

type subscription struct {
	id SubscriptionID
	fn Handler
	mu sync.Mutex
}

type Stats struct {
	Published uint64 `json:"published"`
	Delivered uint64 `json:"delivered"`
	Blocked   uint64 `json:"blocked"`
}

type Bus struct {
	gate   Gate
	logger *slog.Logger

	mu     sync.RWMutex
	topics map[string][]*subscription

	published atomic.Uint64
	delivered atomic.Uint64
	blocked   atomic.Uint64
}

func New(gate Gate, logger *slog.Logger) *Bus {
	return &Bus{
		gate:   gate,
		logger: logger.With("component", "event_bus"),
		topics: make(map[string][]*subscription),
	}
}

// Publish delivers payload to every subscriber of topic and reports whether
// the gate let it through. A blocked event is not an error.
func (b *Bus) Publish(ctx context.Context, topic string, payload any) bool {
	b.published.Add(1)

	if !IsControl(topic) && !b.gate.IsEnabled(event.Kind(topic)) {
		b.blocked.Add(1)
		b.logger.Debug("EVENT_BLOCKED", "event_type", topic)
		return false
	}

	b.mu.RLock()
	subs := make([]*subscription, len(b.topics[topic]))
	copy(subs, b.topics[topic])
	b.mu.RUnlock()

	for _, s := range subs {
		s.invoke(ctx, payload)
		b.delivered.Add(1)
	}
	return true
}

func (s *subscription) invoke(ctx context.Context, payload any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fn(ctx, payload)
}

// Subscribe registers fn for topic. Multiple subscribers per topic are allowed.
func (b *Bus) Subscribe(topic string, fn Handler) SubscriptionID {
	s := &subscription{id: SubscriptionID(uuid.NewString()), fn: fn}

	b.mu.Lock()
	b.topics[topic] = append(b.topics[topic], s)
	b.mu.Unlock()

	return s.id
}

// Unsubscribe removes the subscription and reports whether it existed.
func (b *Bus) Unsubscribe(topic string, id SubscriptionID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.topics[topic]
	for i, s := range subs {
		if s.id != id {
			continue
		}
		subs = append(subs[:i:i], subs[i+1:]...)
		if len(subs) == 0 {
			delete(b.topics, topic)
		} else {
			b.topics[topic] = subs
		}
		return true
	}
	return false
}

func (b *Bus) SubscriberCount(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.topics[topic])
}

func (b *Bus) Stats() Stats {
	return Stats{
		Published: b.published.Load(),
		Delivered: b.delivered.Load(),
		Blocked:   b.blocked.Load(),
	}
}

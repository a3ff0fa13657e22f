// Package store holds the single source of truth for which event types are
// active, how they are filtered, and whether the assistant is speaking.
package store

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/streamcue/relay-service/internal/domain/event"
)

var ErrUnknownEventType = errors.New("unknown event type")

type NotificationKind int

const (
	ConfigChanged   NotificationKind = iota + 1 // filter parameters changed
	StateChanged                                // enabled flag flipped
	SpeakingChanged                             // assistant-speaking flag set
)

func (k NotificationKind) String() string {
	switch k {
	case ConfigChanged:
		return "config_changed"
	case StateChanged:
		return "state_changed"
	case SpeakingChanged:
		return "speaking_changed"
	}
	return "unknown"
}

// Notification describes one store mutation. Config is a snapshot taken
// right after the mutation.
type Notification struct {
	Kind      NotificationKind
	EventType event.Kind
	Config    EventTypeConfig
	Speaking  bool
}

type Listener func(Notification)

type listener struct {
	id uint64
	fn Listener
}

// Store is safe for concurrent use. One mutex guards the whole state; a
// second one serializes notification cycles so listeners observe mutations
// in the order they were made. Listeners must not mutate the store.
type Store struct {
	mu       sync.RWMutex
	order    []event.Kind
	configs  map[event.Kind]EventTypeConfig
	speaking bool

	notifyMu  sync.Mutex
	listeners []listener
	nextID    uint64

	logger *slog.Logger
}

func New(logger *slog.Logger, initial ...EventTypeConfig) *Store {
	s := &Store{
		configs: make(map[event.Kind]EventTypeConfig, len(initial)),
		logger:  logger.With("component", "config_store"),
	}
	for _, cfg := range initial {
		s.Register(cfg)
	}
	return s
}

// Register adds or replaces the record of one event type without notifying.
func (s *Store) Register(cfg EventTypeConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.configs[cfg.EventType]; !ok {
		s.order = append(s.order, cfg.EventType)
	}
	s.configs[cfg.EventType] = cfg.clone()
}

// GetConfig returns a snapshot copy of the record for eventType.
func (s *Store) GetConfig(eventType event.Kind) (EventTypeConfig, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.configs[eventType]
	if !ok {
		return EventTypeConfig{}, false
	}
	return cfg.clone(), true
}

// List returns snapshots of every record in registration order.
func (s *Store) List() []EventTypeConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]EventTypeConfig, 0, len(s.order))
	for _, k := range s.order {
		out = append(out, s.configs[k].clone())
	}
	return out
}

// IsEnabled reports false for unknown types.
func (s *Store) IsEnabled(eventType event.Kind) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.configs[eventType].Enabled
}

func (s *Store) IsAssistantSpeaking() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.speaking
}

// SetConfig merges update into the record of eventType and runs exactly one
// notification cycle: StateChanged when the enabled flag flipped,
// ConfigChanged otherwise.
func (s *Store) SetConfig(eventType event.Kind, update ConfigUpdate) (EventTypeConfig, error) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	prev, ok := s.configs[eventType]
	if !ok {
		s.mu.Unlock()
		s.logger.Warn("CONFIG_UPDATE_IGNORED", "event_type", eventType, "reason", "unknown_event_type")
		return EventTypeConfig{}, fmt.Errorf("set config %q: %w", eventType, ErrUnknownEventType)
	}
	next := update.apply(prev)
	if err := next.Filter.Validate(); err != nil {
		s.mu.Unlock()
		return prev.clone(), fmt.Errorf("set config %q: %w", eventType, err)
	}
	s.configs[eventType] = next
	s.mu.Unlock()

	kind := ConfigChanged
	if prev.Enabled != next.Enabled {
		kind = StateChanged
	}
	s.logger.Debug("CONFIG_UPDATED", "event_type", eventType, "enabled", next.Enabled, "notification", kind.String())

	s.notify(Notification{Kind: kind, EventType: eventType, Config: next.clone(), Speaking: s.IsAssistantSpeaking()})
	return next.clone(), nil
}

// SetAssistantSpeaking sets the flag and notifies listeners.
func (s *Store) SetAssistantSpeaking(speaking bool) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	s.speaking = speaking
	s.mu.Unlock()

	s.notify(Notification{Kind: SpeakingChanged, Speaking: speaking})
}

// Subscribe registers fn for every mutation. The returned func removes it.
func (s *Store) Subscribe(fn Listener) (unsubscribe func()) {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.listeners = append(s.listeners, listener{id: id, fn: fn})
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, l := range s.listeners {
			if l.id == id {
				s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
				return
			}
		}
	}
}

func (s *Store) notify(n Notification) {
	s.mu.RLock()
	ls := make([]listener, len(s.listeners))
	copy(ls, s.listeners)
	s.mu.RUnlock()

	for _, l := range ls {
		l.fn(n)
	}
}

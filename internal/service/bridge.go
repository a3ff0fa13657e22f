package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/streamcue/relay-service/internal/domain/bus"
	"github.com/streamcue/relay-service/internal/domain/model"
	"github.com/streamcue/relay-service/internal/domain/registry"
)

var ErrSinkRejected = errors.New("sink rejected message")

// ApprovedSink is one consumer of approved messages.
type ApprovedSink interface {
	Name() string
	Deliver(ctx context.Context, msg model.ApprovedMessage) error
}

// Bridge forwards the approved-message channel of the bus to every sink.
// A failing sink does not affect the others.
type Bridge struct {
	bus    *bus.Bus
	sinks  []ApprovedSink
	logger *slog.Logger

	mu  sync.Mutex
	sub bus.SubscriptionID
}

func NewBridge(b *bus.Bus, logger *slog.Logger, sinks []ApprovedSink) *Bridge {
	return &Bridge{bus: b, sinks: sinks, logger: logger.With("component", "delivery_bridge")}
}

func (br *Bridge) Start(context.Context) error {
	br.mu.Lock()
	defer br.mu.Unlock()
	if br.sub == "" {
		br.sub = br.bus.Subscribe(bus.TopicApprovedMessage, br.forward)
	}
	return nil
}

func (br *Bridge) Stop(context.Context) error {
	br.mu.Lock()
	defer br.mu.Unlock()
	if br.sub != "" {
		br.bus.Unsubscribe(bus.TopicApprovedMessage, br.sub)
		br.sub = ""
	}
	return nil
}

func (br *Bridge) forward(ctx context.Context, payload any) {
	msg, ok := payload.(model.ApprovedMessage)
	if !ok {
		return
	}
	for _, sink := range br.sinks {
		if err := sink.Deliver(ctx, msg); err != nil {
			br.logger.Warn("SINK_DELIVERY_FAILED", "sink", sink.Name(), "message_id", msg.ID, "err", err)
		}
	}
}

// HubSink hands approved messages to the connected assistant sessions.
type HubSink struct {
	hub registry.Hubber
}

func NewHubSink(hub registry.Hubber) *HubSink { return &HubSink{hub: hub} }

func (s *HubSink) Name() string { return "hub" }

func (s *HubSink) Deliver(_ context.Context, msg model.ApprovedMessage) error {
	if !s.hub.Broadcast(msg) {
		return ErrSinkRejected
	}
	return nil
}

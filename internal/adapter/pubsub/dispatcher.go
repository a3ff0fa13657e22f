package pubsub

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/streamcue/relay-service/internal/domain/model"
)

const (
	// ------------------- OUTBOUND -------------------
	TopicApprovedMessage = "relay.approved_message"

	// ------------------- INBOUND --------------------
	TopicSpeakingStarted = "relay.assistant.speaking_started"
	TopicSpeakingEnded   = "relay.assistant.speaking_ended"

	// ------------------- DEAD LETTER ----------------
	TopicPoison = "relay.assistant.signals.poison"

	KindApprovedMessage = "approved_message"
)

// EventDispatcher is the outbound contract towards the broker.
type EventDispatcher interface {
	Publish(ctx context.Context, topic string, ev *model.OutboundEvent) error
	Publisher() message.Publisher
}

type eventDispatcher struct {
	publisher message.Publisher
	logger    *slog.Logger
}

func NewEventDispatcher(pub *BreakerPublisher, logger *slog.Logger) EventDispatcher {
	return newEventDispatcher(pub, logger)
}

func newEventDispatcher(pub message.Publisher, logger *slog.Logger) *eventDispatcher {
	return &eventDispatcher{publisher: pub, logger: logger.With("component", "event_dispatcher")}
}

func (d *eventDispatcher) Publish(ctx context.Context, topic string, ev *model.OutboundEvent) error {
	if ev == nil {
		return errors.New("event dispatcher: cannot publish nil event")
	}

	payload, err := ev.ToJSON()
	if err != nil {
		return fmt.Errorf("event dispatcher: marshal failure: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("kind", ev.Kind)
	msg.SetContext(ctx)

	d.logger.Debug("EVENT_PUBLISHING", "topic", topic, "event_id", ev.ID)
	if err := d.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("event dispatcher: failed to publish to topic %s: %w", topic, err)
	}
	return nil
}

func (d *eventDispatcher) Publisher() message.Publisher {
	return d.publisher
}

// BrokerSink publishes every approved message to the broker.
type BrokerSink struct {
	dispatcher EventDispatcher
}

func NewBrokerSink(d EventDispatcher) *BrokerSink { return &BrokerSink{dispatcher: d} }

func (s *BrokerSink) Name() string { return "broker" }

func (s *BrokerSink) Deliver(ctx context.Context, msg model.ApprovedMessage) error {
	return s.dispatcher.Publish(ctx, TopicApprovedMessage, model.NewOutboundEvent(KindApprovedMessage, msg))
}

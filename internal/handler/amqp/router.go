package amqp

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/streamcue/relay-service/internal/adapter/pubsub"
	"github.com/streamcue/relay-service/internal/service"
)

type SignalHandler struct {
	signals    service.SignalApplier
	logger     *slog.Logger
	dispatcher pubsub.EventDispatcher
}

func NewSignalHandler(signals service.SignalApplier, logger *slog.Logger, dispatcher pubsub.EventDispatcher) *SignalHandler {
	return &SignalHandler{signals: signals, logger: logger.With("component", "signal_listener"), dispatcher: dispatcher}
}

func NewWatermillRouter(logger watermill.LoggerAdapter) (*message.Router, error) {
	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: 10 * time.Second}, logger)
	if err != nil {
		return nil, fmt.Errorf("ROUTER_SETUP_FAILED: %w", err)
	}
	router.AddMiddleware(middleware.Recoverer)
	return router, nil
}

// [REGISTRATION_PIPELINE]
func (h *SignalHandler) RegisterHandlers(router *message.Router, subProvider *pubsub.SubscriberProvider) error {
	poison, err := middleware.PoisonQueue(h.dispatcher.Publisher(), pubsub.TopicPoison)
	if err != nil {
		return fmt.Errorf("POISON_SETUP_FAILED: %w", err)
	}

	configs := []struct {
		name    string
		topic   string
		handler message.NoPublishHandlerFunc
	}{
		{"ON_SPEAKING_STARTED", pubsub.TopicSpeakingStarted, Bind(h, h.OnSpeakingStartedV1)},
		{"ON_SPEAKING_ENDED", pubsub.TopicSpeakingEnded, Bind(h, h.OnSpeakingEndedV1)},
	}

	for _, c := range configs {
		// [HANDLER_QUEUE] one queue per handler
		sub, err := subProvider.Build(c.name)
		if err != nil {
			return err
		}

		router.AddConsumerHandler(c.name, c.topic, sub, c.handler).AddMiddleware(
			TraceIDMiddleware,
			LoggingMiddleware(h.logger),
			poison,
			NewRetryMiddleware(h.logger).Middleware,
			middleware.NewThrottle(100, time.Second).Middleware,
			middleware.Timeout(5*time.Second),
		)
	}

	h.logger.Info("SIGNAL_PIPELINE_READY", "handlers", len(configs))
	return nil
}

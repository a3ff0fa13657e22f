package pubsub

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/sony/gobreaker"
	"github.com/streamcue/relay-service/config"
	infrapubsub "github.com/streamcue/relay-service/infra/pubsub"
)

var ErrPublisherUnavailable = errors.New("publisher unavailable")

// Interface guard
var _ message.Publisher = (*BreakerPublisher)(nil)

// BreakerPublisher guards a watermill publisher with a circuit breaker so a
// dead broker fails fast instead of stalling the delivery path.
type BreakerPublisher struct {
	next    message.Publisher
	breaker *gobreaker.CircuitBreaker
}

func NewBreakerPublisher(next message.Publisher, cfg config.BreakerConfig, logger *slog.Logger) *BreakerPublisher {
	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}
	st := gobreaker.Settings{
		Name:        "broker_publisher",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("CIRCUIT_STATE_CHANGED", "breaker", name, "from", from.String(), "to", to.String())
		},
	}
	return &BreakerPublisher{next: next, breaker: gobreaker.NewCircuitBreaker(st)}
}

// NewProviderPublisher wraps the publisher of the configured transport.
func NewProviderPublisher(p infrapubsub.Provider, cfg *config.Config, logger *slog.Logger) *BreakerPublisher {
	return NewBreakerPublisher(p.Publisher(), cfg.AMQP.Breaker, logger)
}

func (p *BreakerPublisher) Publish(topic string, msgs ...*message.Message) error {
	_, err := p.breaker.Execute(func() (any, error) {
		return nil, p.next.Publish(topic, msgs...)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %w", ErrPublisherUnavailable, err)
	}
	return err
}

// State exposes the breaker state for health reporting.
func (p *BreakerPublisher) State() gobreaker.State { return p.breaker.State() }

// Close does not close the wrapped publisher; the transport provider owns it.
func (p *BreakerPublisher) Close() error { return nil }

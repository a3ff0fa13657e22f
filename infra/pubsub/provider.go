// Package pubsub builds the watermill transport the service runs on: an
// in-process gochannel when no broker is configured, RabbitMQ otherwise.
package pubsub

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-amqp/v3/pkg/amqp"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/streamcue/relay-service/config"
)

const (
	DriverGoChannel = "gochannel"
	DriverAMQP      = "amqp"
)

// Provider hands out the publisher and per-queue subscribers of one transport.
type Provider interface {
	Driver() string
	Publisher() message.Publisher
	// Subscriber returns a subscriber whose queue name carries suffix, so
	// several handlers can consume the same topic independently.
	Subscriber(suffix string) (message.Subscriber, error)
	Close() error
}

// NewProvider picks the transport from cfg.AMQP.
func NewProvider(cfg *config.Config, logger watermill.LoggerAdapter) (Provider, error) {
	if !cfg.AMQP.Enabled {
		return newChannelProvider(logger), nil
	}
	return newAMQPProvider(cfg.AMQP, logger)
}

// [IN_PROCESS] one GoChannel serves both sides
type channelProvider struct {
	ch *gochannel.GoChannel
}

func newChannelProvider(logger watermill.LoggerAdapter) *channelProvider {
	return &channelProvider{ch: gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, logger)}
}

func (p *channelProvider) Driver() string                                { return DriverGoChannel }
func (p *channelProvider) Publisher() message.Publisher                  { return p.ch }
func (p *channelProvider) Subscriber(string) (message.Subscriber, error) { return p.ch, nil }
func (p *channelProvider) Close() error                                  { return p.ch.Close() }

// [BROKER] durable topic queues on RabbitMQ
type amqpProvider struct {
	cfg       config.AMQPConfig
	logger    watermill.LoggerAdapter
	publisher *amqp.Publisher

	mu          sync.Mutex
	subscribers []*amqp.Subscriber
}

func newAMQPProvider(cfg config.AMQPConfig, logger watermill.LoggerAdapter) (*amqpProvider, error) {
	pub, err := amqp.NewPublisher(amqp.NewDurablePubSubConfig(cfg.URL, nil), logger)
	if err != nil {
		return nil, fmt.Errorf("amqp publisher: %w", err)
	}
	return &amqpProvider{cfg: cfg, logger: logger, publisher: pub}, nil
}

func (p *amqpProvider) Driver() string               { return DriverAMQP }
func (p *amqpProvider) Publisher() message.Publisher { return p.publisher }

func (p *amqpProvider) Subscriber(suffix string) (message.Subscriber, error) {
	queueSuffix := p.cfg.QueueSuffix
	if suffix != "" {
		queueSuffix += "." + suffix
	}
	sub, err := amqp.NewSubscriber(
		amqp.NewDurablePubSubConfig(p.cfg.URL, amqp.GenerateQueueNameTopicNameWithSuffix(queueSuffix)),
		p.logger,
	)
	if err != nil {
		return nil, fmt.Errorf("amqp subscriber %q: %w", queueSuffix, err)
	}

	p.mu.Lock()
	p.subscribers = append(p.subscribers, sub)
	p.mu.Unlock()
	return sub, nil
}

func (p *amqpProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	errs := []error{p.publisher.Close()}
	for _, sub := range p.subscribers {
		errs = append(errs, sub.Close())
	}
	p.subscribers = nil
	return errors.Join(errs...)
}

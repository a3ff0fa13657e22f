package pubsub

import (
	"github.com/ThreeDotsLabs/watermill/message"
	infrapubsub "github.com/streamcue/relay-service/infra/pubsub"
)

type SubscriberProvider struct {
	provider infrapubsub.Provider
}

func NewSubscriberProvider(p infrapubsub.Provider) *SubscriberProvider {
	return &SubscriberProvider{provider: p}
}

// Build returns a subscriber with its own queue for handler.
func (sp *SubscriberProvider) Build(handler string) (message.Subscriber, error) {
	return sp.provider.Subscriber(handler)
}

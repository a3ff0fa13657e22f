package pubsub

import (
	"github.com/streamcue/relay-service/internal/service"
	"go.uber.org/fx"
)

var Module = fx.Module("pubsub-adapter",
	fx.Provide(
		NewProviderPublisher,
		NewEventDispatcher,
		NewSubscriberProvider,

		fx.Annotate(
			NewBrokerSink,
			fx.As(new(service.ApprovedSink)),
			fx.ResultTags(`group:"approved_sinks"`),
		),
	),
)

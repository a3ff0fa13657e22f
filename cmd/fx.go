package cmd

import (
	"log/slog"

	"github.com/streamcue/relay-service/config"
	grpcsrv "github.com/streamcue/relay-service/infra/server/grpc"
	httpsrv "github.com/streamcue/relay-service/infra/server/http"
	pubsubadapter "github.com/streamcue/relay-service/internal/adapter/pubsub"
	"github.com/streamcue/relay-service/internal/adapter/source"
	"github.com/streamcue/relay-service/internal/domain/bus"
	"github.com/streamcue/relay-service/internal/domain/queue"
	"github.com/streamcue/relay-service/internal/domain/registry"
	"github.com/streamcue/relay-service/internal/domain/store"
	amqpdi "github.com/streamcue/relay-service/internal/handler/amqp"
	httphandler "github.com/streamcue/relay-service/internal/handler/http"
	"github.com/streamcue/relay-service/internal/service"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
)

// NewApp wires the service. Hooks start in module order and stop in
// reverse, so sources connect last and disconnect first.
func NewApp(cfg *config.Config) *fx.App {
	return fx.New(
		fx.Provide(
			func() *config.Config { return cfg },
			ProvideLogger,
			ProvideWatermillLogger,
			ProvidePubSub,
			ProvideTracerProvider,
		),
		fx.WithLogger(func(logger *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: logger.With("component", "fx")}
		}),
		store.Module,
		bus.Module,
		queue.Module,
		registry.Module,
		service.Module,
		pubsubadapter.Module,
		amqpdi.Module,
		grpcsrv.Module,
		httphandler.Module,
		httpsrv.Module,
		source.Module,
	)
}

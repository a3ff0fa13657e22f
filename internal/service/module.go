package service

import (
	"context"
	"log/slog"

	"github.com/streamcue/relay-service/config"
	"github.com/streamcue/relay-service/internal/domain/bus"
	"github.com/streamcue/relay-service/internal/domain/queue"
	"github.com/streamcue/relay-service/internal/domain/store"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
)

var Module = fx.Module(
	"service",

	fx.Provide(
		// Domain services
		fx.Annotate(
			NewDeliveryService,
			fx.As(new(Deliverer)),
		),
		fx.Annotate(
			NewAssistantSignals,
			fx.As(new(SignalApplier)),
		),
		func(cfg *config.Config, b *bus.Bus, s *store.Store, q *queue.Queue, tp trace.TracerProvider, logger *slog.Logger) *Dispatcher {
			return NewDispatcher(b, s, q, tp, logger, WithPacing(cfg.Queue.Pacing))
		},
		NewConfigSync,

		// [SINKS] every approved message reaches each member of the group
		fx.Annotate(
			NewHubSink,
			fx.As(new(ApprovedSink)),
			fx.ResultTags(`group:"approved_sinks"`),
		),
		fx.Annotate(
			NewBridge,
			fx.ParamTags(``, ``, `group:"approved_sinks"`),
		),
	),

	// hooks stop in reverse: the dispatcher goes quiet before the bridge detaches
	fx.Invoke(func(lc fx.Lifecycle, d *Dispatcher, br *Bridge) {
		lc.Append(fx.Hook{OnStart: br.Start, OnStop: br.Stop})
		lc.Append(fx.Hook{OnStart: d.Start, OnStop: d.Stop})
	}),

	// [HOT_RELOAD] the config file is a second writer of the store
	fx.Invoke(func(lc fx.Lifecycle, cfg *config.Config, sync *ConfigSync, logger *slog.Logger) {
		if cfg.File() == "" {
			return
		}
		var w *config.Watcher
		lc.Append(fx.Hook{
			OnStart: func(context.Context) (err error) {
				w, err = config.Watch(cfg.File(), nil, sync.Apply, func(err error) {
					logger.Warn("CONFIG_RELOAD_REJECTED", "err", err)
				})
				return err
			},
			OnStop: func(context.Context) error {
				return w.Close()
			},
		})
	}),
)

package source

import (
	"context"

	"github.com/streamcue/relay-service/internal/domain/bus"
	"github.com/streamcue/relay-service/internal/service"
	"go.uber.org/fx"
)

var Module = fx.Module("source",
	fx.Provide(
		func(b *bus.Bus) Publisher { return b },
		func(s service.SignalApplier) SignalSink { return s },
		NewManager,
	),
	fx.Invoke(func(lc fx.Lifecycle, m *Manager) {
		lc.Append(fx.Hook{
			OnStart: m.Start,
			OnStop: func(ctx context.Context) error {
				return m.Stop()
			},
		})
	}),
)

package bus

import (
	"context"
	"log/slog"

	"github.com/streamcue/relay-service/internal/domain/store"
	"go.uber.org/fx"
)

var Module = fx.Module("bus",
	fx.Provide(func(s *store.Store, logger *slog.Logger) *Bus {
		return New(s, logger)
	}),
	// [STATE_BRIDGE] enable/disable notifications reach the bus as control events
	fx.Invoke(func(lc fx.Lifecycle, b *Bus, s *store.Store) {
		var unsubscribe func()
		lc.Append(fx.Hook{
			OnStart: func(context.Context) error {
				unsubscribe = BridgeStore(b, s)
				return nil
			},
			OnStop: func(context.Context) error {
				if unsubscribe != nil {
					unsubscribe()
				}
				return nil
			},
		})
	}),
)

package registry

import (
	"context"
	"log/slog"

	"github.com/streamcue/relay-service/config"
	"go.uber.org/fx"
)

var Module = fx.Module("registry",
	fx.Provide(
		func(cfg *config.Config, logger *slog.Logger) *Hub {
			d := cfg.Delivery
			return NewHub(logger,
				WithEvictionInterval(d.EvictionInterval),
				WithIdleTimeout(d.IdleTimeout),
				WithMailboxSize(d.MailboxSize),
				WithSendTimeout(d.SendTimeout),
			)
		},
		func(h *Hub) Hubber { return h },
	),
	fx.Invoke(func(lc fx.Lifecycle, h Hubber) {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				h.Shutdown() // [GRACEFUL_SHUTDOWN] Stop the actor goroutines
				return nil
			},
		})
	}),
)

package store

import (
	"log/slog"

	"github.com/streamcue/relay-service/config"
	"github.com/streamcue/relay-service/internal/domain/event"
	"go.uber.org/fx"
)

var Module = fx.Module("store",
	fx.Provide(func(cfg *config.Config, logger *slog.Logger) *Store {
		s := New(logger)
		for _, e := range cfg.Events {
			s.Register(EventTypeConfig{
				EventType: event.Kind(e.Type),
				Enabled:   e.Enabled,
				Filter:    e.Filter.Clone(),
			})
		}
		return s
	}),
)

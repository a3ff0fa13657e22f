package queue

import (
	"github.com/streamcue/relay-service/config"
	"go.uber.org/fx"
)

var Module = fx.Module("queue",
	fx.Provide(func(cfg *config.Config) *Queue {
		return New(WithTiers(cfg.TierMap()))
	}),
)

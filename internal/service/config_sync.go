package service

import (
	"log/slog"

	"github.com/streamcue/relay-service/config"
	"github.com/streamcue/relay-service/internal/domain/event"
	"github.com/streamcue/relay-service/internal/domain/store"
)

// EventConfigs converts the configured event records to store records.
func EventConfigs(events []config.EventConfig) []store.EventTypeConfig {
	out := make([]store.EventTypeConfig, 0, len(events))
	for _, e := range events {
		out = append(out, store.EventTypeConfig{
			EventType: event.Kind(e.Type),
			Enabled:   e.Enabled,
			Filter:    e.Filter.Clone(),
		})
	}
	return out
}

// ConfigSync re-applies the event section of a reloaded config file through
// the store's update entry point, so reloads notify like any other writer.
type ConfigSync struct {
	store  *store.Store
	logger *slog.Logger
}

func NewConfigSync(s *store.Store, logger *slog.Logger) *ConfigSync {
	return &ConfigSync{store: s, logger: logger.With("component", "config_sync")}
}

// Apply updates only records that differ from the current state. A config
// without an events section leaves the store alone.
func (c *ConfigSync) Apply(cfg *config.Config) {
	if len(cfg.Events) == 0 {
		c.logger.Debug("CONFIG_RELOAD_NO_EVENTS")
		return
	}
	for _, next := range EventConfigs(cfg.Events) {
		cur, ok := c.store.GetConfig(next.EventType)
		if ok && equalConfig(cur, next) {
			continue
		}
		if _, err := c.store.SetConfig(next.EventType, store.ReplaceWith(next)); err != nil {
			c.logger.Warn("CONFIG_RELOAD_SKIPPED", "event_type", next.EventType, "err", err)
			continue
		}
		c.logger.Info("CONFIG_RELOADED", "event_type", next.EventType, "enabled", next.Enabled)
	}
}

func equalConfig(a, b store.EventTypeConfig) bool {
	if a.Enabled != b.Enabled {
		return false
	}
	switch {
	case a.Filter.Chat == nil && b.Filter.Chat == nil:
		return true
	case a.Filter.Chat == nil || b.Filter.Chat == nil:
		return false
	}
	return *a.Filter.Chat == *b.Filter.Chat
}

package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/streamcue/relay-service/config"
	"golang.org/x/sync/errgroup"
)

var ErrUnknownSource = errors.New("unknown source")

// StateObserver is told about every connector transition.
type StateObserver interface {
	SetConnectorState(name string, connected bool)
}

// Manager owns one connector per configured source.
type Manager struct {
	connectors []*Connector
	byName     map[string]*Connector
	logger     *slog.Logger
}

func NewManager(cfg *config.Config, pub Publisher, observer StateObserver, signals SignalSink, logger *slog.Logger) (*Manager, error) {
	m := &Manager{
		byName: make(map[string]*Connector, len(cfg.Sources)),
		logger: logger.With("component", "source_manager"),
	}

	for _, sc := range cfg.Sources {
		normalizer, err := NormalizerFor(sc.Kind)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", sc.Name, err)
		}

		dedup := NewDeduplicator(
			WithWindows(cfg.Dedup.DebounceWindow, cfg.Dedup.HistoryWindow),
			WithRetention(cfg.Dedup.Retention, cfg.Dedup.MaxEntries),
			WithSweepInterval(cfg.Dedup.SweepInterval),
		)

		c := NewConnector(sc.Name, sc.Kind, sc.URL, normalizer, pub, logger,
			WithDeduplicator(dedup),
			WithHandshakeTimeout(sc.HandshakeTimeout),
			WithBackoff(BackoffPolicy{
				BaseDelay:   sc.Reconnect.BaseDelay,
				MaxDelay:    sc.Reconnect.MaxDelay,
				Multiplier:  sc.Reconnect.Multiplier,
				MaxAttempts: sc.Reconnect.MaxAttempts,
			}),
			WithOnStateChange(observer.SetConnectorState),
			WithSignalSink(signals),
			WithOnFatal(func(name string, err error) {
				m.logger.Error("SOURCE_DARK", "source", name, "err", err)
			}),
		)
		m.connectors = append(m.connectors, c)
		m.byName[sc.Name] = c
		observer.SetConnectorState(sc.Name, false)
	}
	return m, nil
}

// Start connects every source concurrently. A source that cannot be reached
// keeps retrying in the background and does not fail the others.
func (m *Manager) Start(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, c := range m.connectors {
		g.Go(func() error {
			if err := c.Connect(gctx); err != nil {
				m.logger.Warn("SOURCE_CONNECT_DEFERRED", "source", c.Name(), "err", err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Stop closes every connector concurrently.
func (m *Manager) Stop() error {
	var g errgroup.Group
	for _, c := range m.connectors {
		g.Go(c.Close)
	}
	return g.Wait()
}

// Reconnect drops the current transport of a source and dials it again with a
// fresh retry budget. It is the way back for a source that went dark. A
// failed dial is returned while the reconnect loop keeps trying.
func (m *Manager) Reconnect(ctx context.Context, name string) (Status, error) {
	c, ok := m.byName[name]
	if !ok {
		return Status{}, fmt.Errorf("%w: %s", ErrUnknownSource, name)
	}
	if err := c.Close(); err != nil {
		return c.Status(), err
	}
	m.logger.Info("SOURCE_RECONNECT_REQUESTED", "source", name)
	err := c.Connect(ctx)
	return c.Status(), err
}

// Disconnect closes a source until the next Reconnect.
func (m *Manager) Disconnect(name string) (Status, error) {
	c, ok := m.byName[name]
	if !ok {
		return Status{}, fmt.Errorf("%w: %s", ErrUnknownSource, name)
	}
	m.logger.Info("SOURCE_DISCONNECT_REQUESTED", "source", name)
	err := c.Close()
	return c.Status(), err
}

// Statuses returns one status per source in configuration order.
func (m *Manager) Statuses() []Status {
	out := make([]Status, 0, len(m.connectors))
	for _, c := range m.connectors {
		out = append(out, c.Status())
	}
	return out
}

package service

import (
	"context"
	"log/slog"

	"github.com/streamcue/relay-service/internal/domain/model"
	"github.com/streamcue/relay-service/internal/domain/store"
)

// SignalApplier accepts busy/idle transitions from any transport.
type SignalApplier interface {
	Apply(ctx context.Context, sig model.Signal)
	ApplyName(ctx context.Context, name string) error
	Speaking() bool
}

// AssistantSignals drives the store's assistant-speaking flag.
type AssistantSignals struct {
	store  *store.Store
	logger *slog.Logger
}

func NewAssistantSignals(s *store.Store, logger *slog.Logger) *AssistantSignals {
	return &AssistantSignals{store: s, logger: logger.With("component", "assistant_signals")}
}

// Apply sets the flag. Every call produces one store notification, repeated
// signals included.
func (a *AssistantSignals) Apply(_ context.Context, sig model.Signal) {
	a.logger.Debug("ASSISTANT_SIGNAL", "signal", string(sig))
	a.store.SetAssistantSpeaking(sig.Speaking())
}

func (a *AssistantSignals) ApplyName(ctx context.Context, name string) error {
	sig, err := model.ParseSignal(name)
	if err != nil {
		a.logger.Warn("ASSISTANT_SIGNAL_REJECTED", "signal", name)
		return err
	}
	a.Apply(ctx, sig)
	return nil
}

func (a *AssistantSignals) Speaking() bool { return a.store.IsAssistantSpeaking() }

package amqp

import (
	"context"
	"time"

	"github.com/streamcue/relay-service/internal/domain/model"
)

// SignalV1 is the optional body of a speaking signal.
type SignalV1 struct {
	Source string `json:"source,omitempty"`
	At     int64  `json:"at,omitempty"` // unix millis
}

// [ON_SPEAKING_STARTED]
func (h *SignalHandler) OnSpeakingStartedV1(ctx context.Context, raw *SignalV1) error {
	return h.apply(ctx, model.SpeakingStarted, raw)
}

// [ON_SPEAKING_ENDED]
func (h *SignalHandler) OnSpeakingEndedV1(ctx context.Context, raw *SignalV1) error {
	return h.apply(ctx, model.SpeakingEnded, raw)
}

func (h *SignalHandler) apply(ctx context.Context, sig model.Signal, raw *SignalV1) error {
	if raw.At > 0 {
		h.logger.Debug("SIGNAL_RECEIVED",
			"signal", string(sig),
			"source", raw.Source,
			"trace_id", TraceID(ctx),
			"lag_ms", time.Since(time.UnixMilli(raw.At)).Milliseconds())
	}
	h.signals.Apply(ctx, sig)
	return nil
}

package amqp

import (
	"context"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/google/uuid"
)

// MetadataTraceID is the message metadata key carrying the correlation id.
const MetadataTraceID = "trace_id"

type traceIDKey struct{}

// TraceID returns the id attached by TraceIDMiddleware, or "".
func TraceID(ctx context.Context) string {
	id, _ := ctx.Value(traceIDKey{}).(string)
	return id
}

// TraceIDMiddleware copies the producer's trace id into the handler context,
// minting one when the producer sent none.
func TraceIDMiddleware(h message.HandlerFunc) message.HandlerFunc {
	return func(msg *message.Message) ([]*message.Message, error) {
		id := msg.Metadata.Get(MetadataTraceID)
		if id == "" {
			id = uuid.NewString()
			msg.Metadata.Set(MetadataTraceID, id)
		}
		msg.SetContext(context.WithValue(msg.Context(), traceIDKey{}, id))
		return h(msg)
	}
}

// LoggingMiddleware reports every handled signal; failures surface at warn
// so retries stay visible without debug logging.
func LoggingMiddleware(logger *slog.Logger) message.HandlerMiddleware {
	return func(h message.HandlerFunc) message.HandlerFunc {
		return func(msg *message.Message) ([]*message.Message, error) {
			start := time.Now()
			out, err := h(msg)

			attrs := []any{
				"handler", message.HandlerNameFromCtx(msg.Context()),
				"topic", message.SubscribeTopicFromCtx(msg.Context()),
				"msg_id", msg.UUID,
				"trace_id", TraceID(msg.Context()),
				"took", time.Since(start),
			}
			if err != nil {
				logger.Warn("SIGNAL_HANDLER_FAILED", append(attrs, "err", err)...)
			} else {
				logger.Debug("SIGNAL_HANDLED", attrs...)
			}
			return out, err
		}
	}
}

// NewRetryMiddleware retries briefly: a speaking signal is only useful while
// it is fresh.
func NewRetryMiddleware(logger *slog.Logger) middleware.Retry {
	return middleware.Retry{
		MaxRetries:      3,
		InitialInterval: 200 * time.Millisecond,
		MaxInterval:     2 * time.Second,
		Multiplier:      2.0,
		OnRetryHook: func(attempt int, delay time.Duration) {
			logger.Warn("SIGNAL_RETRY", "attempt", attempt, "delay", delay)
		},
	}
}

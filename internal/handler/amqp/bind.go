package amqp

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"

	"github.com/ThreeDotsLabs/watermill/message"
)

// DomainHandler defines the functional signature for business logic.
type DomainHandler[T any] func(ctx context.Context, payload *T) error

// [INFRASTRUCTURE_BRIDGE]
// Bind connects Watermill to domain logic, handling panic recovery and decoding.
func Bind[T any](h *SignalHandler, fn DomainHandler[T]) message.NoPublishHandlerFunc {
	return func(msg *message.Message) (err error) {
		// [PANIC_RECOVERY]
		// Safely handle runtime panics to keep the consumer alive.
		defer func() {
			if r := recover(); r != nil {
				h.logger.Error("PANIC_RECOVERED",
					"err", r,
					"stack", string(debug.Stack()),
					"msg_id", msg.UUID)
				err = nil // ACK: a panicking message would panic again.
			}
		}()

		// [DECODING]
		// An empty body is valid: the topic alone carries the signal.
		payload := new(T)
		if len(msg.Payload) > 0 {
			if err := json.Unmarshal(msg.Payload, payload); err != nil {
				h.logger.Error("DECODE_FAILED", "err", err, "msg_id", msg.UUID)
				return nil // ACK: Poison Pill protection.
			}
		}

		// [EXECUTION]
		if err := fn(msg.Context(), payload); err != nil {
			return fmt.Errorf("handle %s: %w", msg.UUID, err) // NACK: triggers Retry policy.
		}
		return nil
	}
}

package wsmarshaller

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/streamcue/relay-service/internal/domain/model"
)

const (
	EventApproved     = "approved_message"
	EventConnected    = "connected"
	EventDisconnected = "disconnected"
)

// WSEvent is a generic wrapper for WebSocket messages to provide consistent structure
type WSEvent struct {
	Event   string `json:"event"` // e.g., "approved_message", "connected"
	ID      string `json:"id"`
	SentAt  int64  `json:"sent_at"`
	Payload any    `json:"payload"`
}

// MarshallApproved prepares an approved message for the assistant.
func MarshallApproved(msg model.ApprovedMessage) ([]byte, error) {
	return json.Marshal(&WSEvent{
		Event:   EventApproved,
		ID:      msg.ID,
		SentAt:  time.Now().UnixMilli(),
		Payload: mapApproved(msg),
	})
}

func MarshallConnected(p *model.ConnectedPayload) ([]byte, error) {
	return marshallSystem(EventConnected, p)
}

func MarshallDisconnected(p *model.DisconnectedPayload) ([]byte, error) {
	return marshallSystem(EventDisconnected, p)
}

func marshallSystem(name string, payload any) ([]byte, error) {
	return json.Marshal(&WSEvent{
		Event:   name,
		ID:      uuid.NewString(),
		SentAt:  time.Now().UnixMilli(),
		Payload: payload,
	})
}

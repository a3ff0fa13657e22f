package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const SourceName = "relay-service"

// OutboundEvent is the envelope published to the message broker.
type OutboundEvent struct {
	ID        string `json:"id"`
	Source    string `json:"source"`
	Kind      string `json:"kind"`
	Payload   any    `json:"payload"`
	Timestamp int64  `json:"timestamp"`
}

func NewOutboundEvent(kind string, payload any) *OutboundEvent {
	return &OutboundEvent{
		ID:        uuid.NewString(),
		Source:    SourceName,
		Kind:      kind,
		Payload:   payload,
		Timestamp: time.Now().UnixMilli(),
	}
}

func (e *OutboundEvent) ToJSON() ([]byte, error) { return json.Marshal(e) }

package model

import (
	"time"

	"github.com/streamcue/relay-service/internal/domain/event"
)

// ApprovedMessage is the only shape the assistant ever receives: one line of
// text produced from an event that passed every gate and filter.
type ApprovedMessage struct {
	ID        string         `json:"id"`
	Text      string         `json:"text"`
	EventType event.Kind     `json:"event_type"`
	Priority  event.Priority `json:"priority"`
	CreatedAt time.Time      `json:"created_at"`
}

func NewApprovedMessage(ev event.Eventer, text string) ApprovedMessage {
	return ApprovedMessage{
		ID:        ev.GetID(),
		Text:      text,
		EventType: ev.GetKind(),
		Priority:  ev.GetPriority(),
		CreatedAt: time.Now(),
	}
}

func (m ApprovedMessage) GetID() string               { return m.ID }
func (m ApprovedMessage) GetPriority() event.Priority { return m.Priority }

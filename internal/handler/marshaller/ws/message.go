package wsmarshaller

import (
	"encoding/json"
	"fmt"

	"github.com/streamcue/relay-service/internal/domain/model"
)

type WSApproved struct {
	Text      string `json:"text"`
	EventType string `json:"event_type"`
	Priority  int    `json:"priority"`
	CreatedAt int64  `json:"created_at"`
}

func mapApproved(m model.ApprovedMessage) *WSApproved {
	return &WSApproved{
		Text:      m.Text,
		EventType: string(m.EventType),
		Priority:  int(m.Priority),
		CreatedAt: m.CreatedAt.UnixMilli(),
	}
}

// ClientFrame is what the assistant may send back, e.g. {"signal":"speaking_started"}.
type ClientFrame struct {
	Signal string `json:"signal"`
}

func UnmarshallClientFrame(data []byte) (ClientFrame, error) {
	var f ClientFrame
	if err := json.Unmarshal(data, &f); err != nil {
		return ClientFrame{}, fmt.Errorf("decode client frame: %w", err)
	}
	return f, nil
}

package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/streamcue/relay-service/internal/domain/queue"
)

type QueueInspector interface {
	Size() int
	Snapshot() []queue.QueuedEvent
	Stats() queue.Stats
	Clear()
}

type QueuedItem struct {
	EventID    string    `json:"event_id"`
	EventType  string    `json:"event_type"`
	Tier       int       `json:"tier"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

type QueueResponse struct {
	Size  int          `json:"size"`
	Stats queue.Stats  `json:"stats"`
	Items []QueuedItem `json:"items"`
}

type QueueHandler struct {
	queue QueueInspector
}

func NewQueueHandler(q QueueInspector) *QueueHandler {
	return &QueueHandler{queue: q}
}

func (h *QueueHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.get)
	r.Delete("/", h.clear)
}

func (h *QueueHandler) get(w http.ResponseWriter, _ *http.Request) {
	snap := h.queue.Snapshot()
	items := make([]QueuedItem, 0, len(snap))
	for _, qe := range snap {
		items = append(items, QueuedItem{
			EventID:    qe.Event.GetID(),
			EventType:  string(qe.Event.GetKind()),
			Tier:       qe.Tier,
			EnqueuedAt: qe.EnqueuedAt,
		})
	}
	WriteJSON(w, http.StatusOK, QueueResponse{Size: len(items), Stats: h.queue.Stats(), Items: items})
}

func (h *QueueHandler) clear(w http.ResponseWriter, _ *http.Request) {
	h.queue.Clear()
	w.WriteHeader(http.StatusNoContent)
}

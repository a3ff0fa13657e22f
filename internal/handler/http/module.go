package http

import (
	"log/slog"
	"net/http"

	"github.com/streamcue/relay-service/internal/adapter/source"
	"github.com/streamcue/relay-service/internal/domain/bus"
	"github.com/streamcue/relay-service/internal/domain/queue"
	"github.com/streamcue/relay-service/internal/domain/registry"
	"github.com/streamcue/relay-service/internal/domain/store"
	"github.com/streamcue/relay-service/internal/handler/ws"
	"github.com/streamcue/relay-service/internal/service"
	"go.uber.org/fx"
)

var Module = fx.Module("http-handler",
	fx.Provide(
		ws.NewWSHandler,
		func(s *store.Store, logger *slog.Logger) *EventsHandler {
			return NewEventsHandler(s, logger.With("component", "http_events"))
		},
		NewAssistantHandler,
		func(q *queue.Queue) *QueueHandler { return NewQueueHandler(q) },
		func(m *source.Manager, d *service.Dispatcher, b *bus.Bus, h *registry.Hub) *StatusHandler {
			return NewStatusHandler(m, d, b, h)
		},
		func(e *EventsHandler, a *AssistantHandler, q *QueueHandler, st *StatusHandler, wsh *ws.WSHandler, logger *slog.Logger) http.Handler {
			return NewRouter(Routes{Events: e, Assistant: a, Queue: q, Status: st, WS: wsh}, logger)
		},
	),
)

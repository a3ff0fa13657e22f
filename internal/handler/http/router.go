package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Routes groups every handler mounted by NewRouter.
type Routes struct {
	Events    *EventsHandler
	Assistant *AssistantHandler
	Queue     *QueueHandler
	Status    *StatusHandler
	WS        http.Handler
}

func NewRouter(routes Routes, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", Healthz)

	// WebSocket route for the assistant
	if routes.WS != nil {
		r.Method(http.MethodGet, "/ws/assistant", routes.WS)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/events", routes.Events.RegisterRoutes)
		r.Route("/assistant", routes.Assistant.RegisterRoutes)
		r.Route("/queue", routes.Queue.RegisterRoutes)
		routes.Status.RegisterRoutes(r)
	})
	return r
}

// RequestLogger logs one line per request after it completes.
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			logger.Debug("HTTP_REQUEST",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

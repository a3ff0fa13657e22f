package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/streamcue/relay-service/internal/domain/event"
	"github.com/streamcue/relay-service/internal/domain/rules"
	"github.com/streamcue/relay-service/internal/domain/store"
)

// ConfigStore is the slice of the configuration store the UI needs.
type ConfigStore interface {
	List() []store.EventTypeConfig
	GetConfig(eventType event.Kind) (store.EventTypeConfig, bool)
	SetConfig(eventType event.Kind, update store.ConfigUpdate) (store.EventTypeConfig, error)
}

// EventsHandler exposes per-type enablement and filter parameters.
type EventsHandler struct {
	store  ConfigStore
	logger *slog.Logger
}

func NewEventsHandler(s ConfigStore, logger *slog.Logger) *EventsHandler {
	return &EventsHandler{store: s, logger: logger}
}

func (h *EventsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Route("/{eventType}", func(r chi.Router) {
		r.Get("/", h.get)
		r.Patch("/", h.update)
	})
}

func (h *EventsHandler) list(w http.ResponseWriter, _ *http.Request) {
	WriteList(w, h.store.List())
}

func (h *EventsHandler) get(w http.ResponseWriter, r *http.Request) {
	kind := event.Kind(chi.URLParam(r, "eventType"))
	cfg, ok := h.store.GetConfig(kind)
	if !ok {
		WriteError(w, http.StatusNotFound, "UNKNOWN_EVENT_TYPE", "unknown event type "+string(kind))
		return
	}
	WriteJSON(w, http.StatusOK, cfg)
}

func (h *EventsHandler) update(w http.ResponseWriter, r *http.Request) {
	kind := event.Kind(chi.URLParam(r, "eventType"))

	var update store.ConfigUpdate
	if err := decodeJSON(w, r, &update); err != nil {
		WriteError(w, http.StatusBadRequest, "MALFORMED_BODY", err.Error())
		return
	}

	cfg, err := h.store.SetConfig(kind, update)
	switch {
	case errors.Is(err, store.ErrUnknownEventType):
		WriteError(w, http.StatusNotFound, "UNKNOWN_EVENT_TYPE", err.Error())
		return
	case errors.Is(err, rules.ErrInvalidFilter):
		WriteError(w, http.StatusUnprocessableEntity, "INVALID_FILTER", err.Error())
		return
	case err != nil:
		h.logger.Error("CONFIG_UPDATE_FAILED", "event_type", kind, "err", err)
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "config update failed")
		return
	}

	h.logger.Info("CONFIG_UPDATED_VIA_API", "event_type", kind, "enabled", cfg.Enabled)
	WriteJSON(w, http.StatusOK, cfg)
}

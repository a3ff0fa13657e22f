package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/streamcue/relay-service/internal/adapter/source"
	"github.com/streamcue/relay-service/internal/domain/bus"
	"github.com/streamcue/relay-service/internal/domain/model"
	"github.com/streamcue/relay-service/internal/service"
)

type ConnectorManager interface {
	Statuses() []source.Status
	Reconnect(ctx context.Context, name string) (source.Status, error)
	Disconnect(name string) (source.Status, error)
}

type DispatcherStatter interface {
	Stats() service.DispatcherStats
}

type BusStatter interface {
	Stats() bus.Stats
}

type HubStatter interface {
	Stats() model.HubStats
}

type StatsResponse struct {
	Dispatcher service.DispatcherStats `json:"dispatcher"`
	Bus        bus.Stats               `json:"bus"`
	Hub        model.HubStats          `json:"hub"`
}

// StatusHandler serves runtime state and source control.
type StatusHandler struct {
	connectors ConnectorManager
	dispatcher DispatcherStatter
	bus        BusStatter
	hub        HubStatter
}

func NewStatusHandler(c ConnectorManager, d DispatcherStatter, b BusStatter, h HubStatter) *StatusHandler {
	return &StatusHandler{connectors: c, dispatcher: d, bus: b, hub: h}
}

func (h *StatusHandler) RegisterRoutes(r chi.Router) {
	r.Get("/connectors", h.listConnectors)
	r.Post("/connectors/{name}/reconnect", h.reconnect)
	r.Post("/connectors/{name}/disconnect", h.disconnect)
	r.Get("/stats", h.stats)
}

func (h *StatusHandler) listConnectors(w http.ResponseWriter, _ *http.Request) {
	WriteList(w, h.connectors.Statuses())
}

func (h *StatusHandler) reconnect(w http.ResponseWriter, r *http.Request) {
	st, err := h.connectors.Reconnect(r.Context(), chi.URLParam(r, "name"))
	switch {
	case err == nil:
		WriteJSON(w, http.StatusOK, st)
	case errors.Is(err, source.ErrUnknownSource):
		WriteError(w, http.StatusNotFound, "UNKNOWN_SOURCE", err.Error())
	default:
		// the connector keeps retrying in the background
		WriteError(w, http.StatusBadGateway, "SOURCE_UNREACHABLE", err.Error())
	}
}

func (h *StatusHandler) disconnect(w http.ResponseWriter, r *http.Request) {
	st, err := h.connectors.Disconnect(chi.URLParam(r, "name"))
	switch {
	case err == nil:
		WriteJSON(w, http.StatusOK, st)
	case errors.Is(err, source.ErrUnknownSource):
		WriteError(w, http.StatusNotFound, "UNKNOWN_SOURCE", err.Error())
	default:
		WriteError(w, http.StatusInternalServerError, "INTERNAL", err.Error())
	}
}

func (h *StatusHandler) stats(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, StatsResponse{
		Dispatcher: h.dispatcher.Stats(),
		Bus:        h.bus.Stats(),
		Hub:        h.hub.Stats(),
	})
}

// Healthz is a liveness probe.
func Healthz(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

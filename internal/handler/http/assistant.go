package http

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/streamcue/relay-service/internal/domain/model"
	"github.com/streamcue/relay-service/internal/service"
)

// SpeakingRequest accepts either form: {"speaking":true} or {"signal":"speaking_started"}.
type SpeakingRequest struct {
	Speaking *bool  `json:"speaking,omitempty"`
	Signal   string `json:"signal,omitempty"`
}

type SpeakingResponse struct {
	Speaking bool `json:"speaking"`
}

type AssistantHandler struct {
	signals service.SignalApplier
}

func NewAssistantHandler(signals service.SignalApplier) *AssistantHandler {
	return &AssistantHandler{signals: signals}
}

func (h *AssistantHandler) RegisterRoutes(r chi.Router) {
	r.Get("/speaking", h.get)
	r.Post("/speaking", h.set)
}

func (h *AssistantHandler) get(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, SpeakingResponse{Speaking: h.signals.Speaking()})
}

func (h *AssistantHandler) set(w http.ResponseWriter, r *http.Request) {
	var req SpeakingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "MALFORMED_BODY", err.Error())
		return
	}

	switch {
	case req.Speaking != nil:
		h.signals.Apply(r.Context(), model.SignalFor(*req.Speaking))
	case req.Signal != "":
		if err := h.signals.ApplyName(r.Context(), req.Signal); err != nil {
			if errors.Is(err, model.ErrUnknownSignal) {
				WriteError(w, http.StatusBadRequest, "UNKNOWN_SIGNAL", err.Error())
				return
			}
			WriteError(w, http.StatusInternalServerError, "INTERNAL", err.Error())
			return
		}
	default:
		WriteError(w, http.StatusBadRequest, "MALFORMED_BODY", "speaking or signal is required")
		return
	}

	WriteJSON(w, http.StatusOK, SpeakingResponse{Speaking: h.signals.Speaking()})
}

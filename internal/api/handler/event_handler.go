package handler

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	apimw "github.com/statuspush/statuspush/internal/api/middleware"
	"github.com/statuspush/statuspush/internal/domain"
	"github.com/statuspush/statuspush/internal/service"
)

// EventHandler handles the change-notification trigger endpoint.
type EventHandler struct {
	svc    *service.IngestService
	logger *zap.Logger
}

func NewEventHandler(svc *service.IngestService, logger *zap.Logger) *EventHandler {
	return &EventHandler{svc: svc, logger: logger}
}

// triggerResponse is the acceptance acknowledgement. Success means the event
// entered the pipeline, not that it was delivered.
type triggerResponse struct {
	Success      bool              `json:"success"`
	Filtered     bool              `json:"filtered,omitempty"`
	Notification *notificationInfo `json:"notification,omitempty"`
}

type notificationInfo struct {
	Channel  string          `json:"channel"`
	Event    string          `json:"event"`
	Priority domain.Priority `json:"priority"`
}

// Create handles POST /api/v1/events
//
// @Summary     Accept a work-item status transition
// @Tags        events
// @Accept      json
// @Produce     json
// @Param       body  body      domain.Transition  true  "Status transition"
// @Success     200   {object}  triggerResponse
// @Failure     422   {object}  map[string]string
// @Router      /api/v1/events [post]
func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	var t domain.Transition
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	ack, err := h.svc.Accept(r.Context(), t)
	if err != nil {
		h.logger.Warn("event rejected",
			zap.String("correlation_id", apimw.GetCorrelationID(r.Context())),
			zap.Error(err),
		)
		mapError(w, err)
		return
	}

	if ack.Filtered {
		respondJSON(w, http.StatusOK, triggerResponse{Success: true, Filtered: true})
		return
	}

	respondJSON(w, http.StatusOK, triggerResponse{
		Success: true,
		Notification: &notificationInfo{
			Channel:  ack.Channel,
			Event:    ack.Event,
			Priority: ack.Priority,
		},
	})
}

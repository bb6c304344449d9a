package handler

import (
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/statuspush/statuspush/internal/domain"
	"github.com/statuspush/statuspush/internal/service"
)

// DeliveryHandler serves the delivery audit log.
type DeliveryHandler struct {
	svc    *service.IngestService
	logger *zap.Logger
}

func NewDeliveryHandler(svc *service.IngestService, logger *zap.Logger) *DeliveryHandler {
	return &DeliveryHandler{svc: svc, logger: logger}
}

// List handles GET /api/v1/deliveries
//
// @Summary  List delivery records with filtering and pagination
// @Tags     deliveries
// @Produce  json
// @Param    state    query     string  false  "Filter by state (accepted, delivered, dropped)"
// @Param    channel  query     string  false  "Filter by channel"
// @Param    from     query     string  false  "Created after (RFC3339)"
// @Param    to       query     string  false  "Created before (RFC3339)"
// @Param    page     query     int     false  "Page number (default 1)"
// @Param    limit    query     int     false  "Items per page (default 20, max 100)"
// @Success  200      {object}  map[string]any
// @Router   /api/v1/deliveries [get]
func (h *DeliveryHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := parseDeliveryFilter(r)
	records, total, err := h.svc.ListDeliveries(r.Context(), filter)
	if err != nil {
		h.logger.Error("list deliveries failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to list deliveries")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"data":  records,
		"total": total,
		"page":  filter.Page,
		"limit": filter.Limit,
	})
}

func parseDeliveryFilter(r *http.Request) domain.DeliveryFilter {
	q := r.URL.Query()
	filter := domain.DeliveryFilter{Page: 1, Limit: 20}

	if p, err := strconv.Atoi(q.Get("page")); err == nil && p > 0 {
		filter.Page = p
	}
	if l, err := strconv.Atoi(q.Get("limit")); err == nil && l > 0 && l <= 100 {
		filter.Limit = l
	}
	if s := q.Get("state"); s != "" {
		st := domain.DeliveryState(s)
		if st.IsValid() {
			filter.State = &st
		}
	}
	if ch := q.Get("channel"); ch != "" {
		filter.Channel = &ch
	}
	if f := q.Get("from"); f != "" {
		if t, err := time.Parse(time.RFC3339, f); err == nil {
			filter.From = &t
		}
	}
	if to := q.Get("to"); to != "" {
		if t, err := time.Parse(time.RFC3339, to); err == nil {
			filter.To = &t
		}
	}
	return filter
}

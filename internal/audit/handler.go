package audit

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/mzansiprolife/platform/pkg/logging"
)

// Handler exposes the audit trail to the back office.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

// NewHandler creates a new audit handler.
func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// List handles GET /admin/audit.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filter := Filter{Limit: 100}

	q := r.URL.Query()
	if v := q.Get("event_type"); v != "" {
		filter.EventType = EventType(v)
	}
	filter.ActorID = q.Get("actor_id")
	filter.EntityID = q.Get("entity_id")

	if v := q.Get("start"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			http.Error(w, "invalid start time, expected RFC3339", http.StatusBadRequest)
			return
		}
		filter.StartTime = t
	}
	if v := q.Get("end"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			http.Error(w, "invalid end time, expected RFC3339", http.StatusBadRequest)
			return
		}
		filter.EndTime = t
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 500 {
			http.Error(w, "limit must be between 1 and 500", http.StatusBadRequest)
			return
		}
		filter.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "invalid offset", http.StatusBadRequest)
			return
		}
		filter.Offset = n
	}

	events, err := h.service.QueryEvents(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to query audit events", "error", err)
		http.Error(w, "failed to query audit events", http.StatusInternalServerError)
		return
	}
	if events == nil {
		events = []Event{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"events": events,
		"count":  len(events),
	})
}

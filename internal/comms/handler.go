package comms

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/mzansiprolife/platform/pkg/logging"
)

// Handler handles admin HTTP requests for communications
type Handler struct {
	dispatcher *Dispatcher
	log        *LogStore
	logger     *logging.Logger
}

// NewHandler creates a new comms handler
func NewHandler(dispatcher *Dispatcher, log *LogStore, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		dispatcher: dispatcher,
		log:        log,
		logger:     logger,
	}
}

// Send handles POST /admin/comms/send requests.
func (h *Handler) Send(w http.ResponseWriter, r *http.Request) {
	var req struct {
		To      string `json:"to"`
		ToName  string `json:"to_name"`
		Subject string `json:"subject"`
		Body    string `json:"body"`
		HTML    string `json:"html"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if !strings.Contains(req.To, "@") || strings.TrimSpace(req.Subject) == "" {
		http.Error(w, "to and subject are required", http.StatusBadRequest)
		return
	}

	err := h.dispatcher.Enqueue(r.Context(), KindAdmin, EmailMessage{
		To:      req.To,
		ToName:  req.ToName,
		Subject: req.Subject,
		Body:    req.Body,
		HTML:    req.HTML,
	})
	if err != nil {
		h.logger.Error("comms: failed to queue admin email", "error", err)
		http.Error(w, "failed to queue email", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{"status": "queued"})
}

// Log handles GET /admin/comms/log requests.
func (h *Handler) Log(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if v, err := strconv.Atoi(limitStr); err == nil && v > 0 && v <= 500 {
			limit = v
		}
	}

	entries, err := h.log.List(r.Context(), limit)
	if err != nil {
		h.logger.Error("comms: failed to list send log", "error", err)
		http.Error(w, "failed to list send log", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []LogEntry{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"entries": entries, "count": len(entries)})
}

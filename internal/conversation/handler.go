package conversation

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mzansiprolife/platform/pkg/logging"
)

// Handler exposes stored transcripts to the back office.
type Handler struct {
	store  *Store
	logger *logging.Logger
}

// NewHandler creates a new conversation handler.
func NewHandler(store *Store, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{store: store, logger: logger}
}

type conversationSummary struct {
	ID                    string     `json:"id"`
	SessionID             string     `json:"session_id"`
	UserName              string     `json:"user_name"`
	UserPhone             string     `json:"user_phone"`
	Status                string     `json:"status"`
	MessageCount          int        `json:"message_count"`
	VisitorMessageCount   int        `json:"visitor_message_count"`
	AssistantMessageCount int        `json:"assistant_message_count"`
	StartedAt             time.Time  `json:"started_at"`
	LastMessageAt         *time.Time `json:"last_message_at,omitempty"`
	EndedAt               *time.Time `json:"ended_at,omitempty"`
}

func summarize(rec Record) conversationSummary {
	return conversationSummary{
		ID:                    rec.ID.String(),
		SessionID:             rec.SessionID,
		UserName:              rec.UserName,
		UserPhone:             rec.UserPhone,
		Status:                rec.Status,
		MessageCount:          rec.MessageCount,
		VisitorMessageCount:   rec.VisitorMessageCount,
		AssistantMessageCount: rec.AssistantMessageCount,
		StartedAt:             rec.StartedAt,
		LastMessageAt:         rec.LastMessageAt,
		EndedAt:               rec.EndedAt,
	}
}

// ListConversations handles GET /admin/conversations.
func (h *Handler) ListConversations(w http.ResponseWriter, r *http.Request) {
	limit := 50
	offset := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 200 {
			http.Error(w, "limit must be between 1 and 200", http.StatusBadRequest)
			return
		}
		limit = n
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "invalid offset", http.StatusBadRequest)
			return
		}
		offset = n
	}

	records, err := h.store.ListRecent(r.Context(), limit, offset)
	if err != nil {
		h.logger.Error("failed to list conversations", "error", err)
		http.Error(w, "failed to list conversations", http.StatusInternalServerError)
		return
	}

	summaries := make([]conversationSummary, 0, len(records))
	for _, rec := range records {
		summaries = append(summaries, summarize(rec))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"conversations": summaries,
		"count":         len(summaries),
	})
}

// GetConversation handles GET /admin/conversations/{sessionID}. The response
// includes the full transcript.
func (h *Handler) GetConversation(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		http.Error(w, "session id is required", http.StatusBadRequest)
		return
	}

	rec, err := h.store.Get(r.Context(), sessionID)
	if err != nil {
		h.logger.Error("failed to load conversation", "session_id", sessionID, "error", err)
		http.Error(w, "failed to load conversation", http.StatusInternalServerError)
		return
	}
	if rec == nil {
		http.Error(w, "conversation not found", http.StatusNotFound)
		return
	}

	messages, err := h.store.List(r.Context(), sessionID, 0)
	if err != nil {
		h.logger.Error("failed to load transcript", "session_id", sessionID, "error", err)
		http.Error(w, "failed to load transcript", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"conversation": summarize(*rec),
		"messages":     messages,
	})
}

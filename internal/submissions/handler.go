package submissions

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mzansiprolife/platform/internal/audit"
	httpmiddleware "github.com/mzansiprolife/platform/internal/http/middleware"
	"github.com/mzansiprolife/platform/pkg/logging"
)

// Notifier is told about new submissions so the office gets an email.
type Notifier interface {
	SubmissionReceived(ctx context.Context, sub *Submission)
}

// Handler handles HTTP requests for submissions
type Handler struct {
	repo     Repository
	notifier Notifier
	audit    *audit.Service
	logger   *logging.Logger
}

// NewHandler creates a new submissions handler
func NewHandler(repo Repository, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		repo:   repo,
		logger: logger,
	}
}

// SetNotifier attaches an office notifier. A nil notifier disables emails.
func (h *Handler) SetNotifier(n Notifier) {
	h.notifier = n
}

// SetAudit attaches the audit trail. Nil disables audit logging.
func (h *Handler) SetAudit(s *audit.Service) {
	h.audit = s
}

// Create handles POST /submissions requests from the questionnaire forms.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateSubmissionRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("submissions: failed to decode request", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	sub, err := h.repo.Create(r.Context(), &req)
	if err != nil {
		h.logger.Error("submissions: failed to create", "error", err, "type", req.Type)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.logger.Info("submission created", "id", sub.ID, "type", sub.Type, "name", sub.Name)

	if h.notifier != nil {
		h.notifier.SubmissionReceived(r.Context(), sub)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(sub)
}

// ListResponse is the response for listing submissions
type ListResponse struct {
	Submissions []*Submission `json:"submissions"`
	Count       int           `json:"count"`
	Offset      int           `json:"offset"`
	Limit       int           `json:"limit"`
}

// List handles GET /admin/submissions requests
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := filterFromQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	subs, err := h.repo.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("submissions: failed to list", "error", err)
		http.Error(w, "failed to list submissions", http.StatusInternalServerError)
		return
	}

	response := ListResponse{
		Submissions: subs,
		Count:       len(subs),
		Offset:      filter.Offset,
		Limit:       filter.Limit,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// Get handles GET /admin/submissions/{id} requests
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	sub, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "submission not found", http.StatusNotFound)
			return
		}
		h.logger.Error("submissions: failed to get", "error", err, "id", id)
		http.Error(w, "failed to get submission", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sub)
}

// UpdateStatus handles PATCH /admin/submissions/{id}/status requests
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	previousStatus := ""
	if prev, prevErr := h.repo.GetByID(r.Context(), id); prevErr == nil && prev != nil {
		previousStatus = prev.Status
	}

	sub, err := h.repo.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			http.Error(w, "submission not found", http.StatusNotFound)
		case errors.Is(err, ErrInvalidStatus):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			h.logger.Error("submissions: failed to update status", "error", err, "id", id)
			http.Error(w, "failed to update submission", http.StatusInternalServerError)
		}
		return
	}

	h.logger.Info("submission status updated", "id", sub.ID, "status", sub.Status)

	if h.audit != nil {
		actor := ""
		if claims, ok := httpmiddleware.AdminClaimsFromContext(r.Context()); ok {
			actor = claims.Subject
		}
		if err := h.audit.LogStatusChange(r.Context(), actor, sub.ID, previousStatus, sub.Status); err != nil {
			h.logger.Error("submissions: failed to audit status change", "error", err, "id", sub.ID)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sub)
}

// ExportCSV handles GET /admin/submissions/export requests. It streams the
// filtered submissions as a CSV download for the back office.
func (h *Handler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	filter, err := filterFromQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	// Exports want everything matching, not a page.
	filter.Limit = 10000
	filter.Offset = 0

	subs, err := h.repo.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("submissions: failed to export", "error", err)
		http.Error(w, "failed to export submissions", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=submissions-%s.csv", time.Now().UTC().Format("2006-01-02")))

	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"id", "type", "name", "email", "phone", "status", "created_at", "answers"})
	for _, sub := range subs {
		_ = cw.Write([]string{
			sub.ID,
			sub.Type,
			sub.Name,
			sub.Email,
			sub.Phone,
			sub.Status,
			sub.CreatedAt.Format(time.RFC3339),
			string(sub.Answers),
		})
	}
	cw.Flush()
}

func filterFromQuery(r *http.Request) (ListFilter, error) {
	filter := ListFilter{
		Limit:  50,
		Offset: 0,
	}

	if t := r.URL.Query().Get("type"); t != "" {
		if !KnownType(t) {
			return filter, ErrInvalidType
		}
		filter.Type = t
	}
	if s := r.URL.Query().Get("status"); s != "" {
		if !KnownStatus(s) {
			return filter, ErrInvalidStatus
		}
		filter.Status = s
	}
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 && limit <= 100 {
			filter.Limit = limit
		}
	}
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil && offset >= 0 {
			filter.Offset = offset
		}
	}
	return filter, nil
}

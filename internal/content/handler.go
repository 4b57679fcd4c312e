package content

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mzansiprolife/platform/internal/audit"
	httpmiddleware "github.com/mzansiprolife/platform/internal/http/middleware"
	"github.com/mzansiprolife/platform/pkg/logging"
)

// Handler handles HTTP requests for site pages
type Handler struct {
	repo   Repository
	audit  *audit.Service
	logger *logging.Logger
}

// NewHandler creates a new content handler
func NewHandler(repo Repository, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, logger: logger}
}

// SetAudit attaches the audit trail. Nil disables audit logging.
func (h *Handler) SetAudit(s *audit.Service) {
	h.audit = s
}

// GetPublic handles GET /pages/{slug} requests. Only published pages are
// visible here.
func (h *Handler) GetPublic(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	page, err := h.repo.GetBySlug(r.Context(), slug, true)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "page not found", http.StatusNotFound)
			return
		}
		h.logger.Error("content: failed to get page", "error", err, "slug", slug)
		http.Error(w, "failed to get page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(page)
}

// List handles GET /admin/pages requests, drafts included.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	pages, err := h.repo.List(r.Context())
	if err != nil {
		h.logger.Error("content: failed to list pages", "error", err)
		http.Error(w, "failed to list pages", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"pages": pages, "count": len(pages)})
}

// Create handles POST /admin/pages requests.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req UpsertPageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	page, err := h.repo.Create(r.Context(), &req)
	if err != nil {
		if errors.Is(err, ErrSlugTaken) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		h.logger.Error("content: failed to create page", "error", err, "slug", req.Slug)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.logger.Info("page created", "slug", page.Slug)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(page)
}

// Update handles PUT /admin/pages/{slug} requests.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	var req UpsertPageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	req.Slug = slug

	page, err := h.repo.Update(r.Context(), slug, &req)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "page not found", http.StatusNotFound)
			return
		}
		h.logger.Error("content: failed to update page", "error", err, "slug", slug)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.logger.Info("page updated", "slug", page.Slug)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(page)
}

// SetPublished handles PATCH /admin/pages/{slug}/published requests.
func (h *Handler) SetPublished(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	var req struct {
		Published bool `json:"published"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	page, err := h.repo.SetPublished(r.Context(), slug, req.Published)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "page not found", http.StatusNotFound)
			return
		}
		h.logger.Error("content: failed to publish page", "error", err, "slug", slug)
		http.Error(w, "failed to update page", http.StatusInternalServerError)
		return
	}

	h.logger.Info("page publish state changed", "slug", page.Slug, "published", page.Published)

	if h.audit != nil {
		actor := ""
		if claims, ok := httpmiddleware.AdminClaimsFromContext(r.Context()); ok {
			actor = claims.Subject
		}
		details, _ := json.Marshal(map[string]bool{"published": page.Published})
		if err := h.audit.LogEvent(r.Context(), audit.Event{
			EventType: audit.EventPagePublished,
			ActorID:   actor,
			EntityID:  page.Slug,
			Details:   details,
		}); err != nil {
			h.logger.Error("content: failed to audit publish change", "error", err, "slug", page.Slug)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(page)
}

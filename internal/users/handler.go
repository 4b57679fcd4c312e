package users

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mzansiprolife/platform/internal/audit"
	httpmiddleware "github.com/mzansiprolife/platform/internal/http/middleware"
	"github.com/mzansiprolife/platform/pkg/logging"
)

// Handler handles HTTP requests for authentication and user management
type Handler struct {
	service *Service
	repo    Repository
	audit   *audit.Service
	logger  *logging.Logger
}

// NewHandler creates a new users handler
func NewHandler(service *Service, repo Repository, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		service: service,
		repo:    repo,
		logger:  logger,
	}
}

// SetAudit attaches the audit trail. Nil disables audit logging.
func (h *Handler) SetAudit(s *audit.Service) {
	h.audit = s
}

// LoginResponse is the response for a successful login.
type LoginResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

// Login handles POST /auth/login requests.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	token, user, err := h.service.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			http.Error(w, "invalid email or password", http.StatusUnauthorized)
			return
		}
		h.logger.Error("users: login failed", "error", err)
		http.Error(w, "login failed", http.StatusInternalServerError)
		return
	}

	h.logger.Info("user logged in", "id", user.ID, "role", user.Role)

	if h.audit != nil {
		if err := h.audit.LogLogin(r.Context(), user.ID, user.Role); err != nil {
			h.logger.Error("users: failed to audit login", "error", err, "id", user.ID)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(LoginResponse{Token: token, User: user})
}

// Create handles POST /admin/users requests.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	user, err := h.service.Register(r.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, ErrEmailTaken):
			http.Error(w, err.Error(), http.StatusConflict)
		case errors.Is(err, ErrInvalidEmail),
			errors.Is(err, ErrInvalidRole),
			errors.Is(err, ErrWeakPassword):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			h.logger.Error("users: failed to create", "error", err)
			http.Error(w, "failed to create user", http.StatusInternalServerError)
		}
		return
	}

	h.logger.Info("user created", "id", user.ID, "role", user.Role)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(user)
}

// List handles GET /admin/users requests.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	all, err := h.repo.List(r.Context())
	if err != nil {
		h.logger.Error("users: failed to list", "error", err)
		http.Error(w, "failed to list users", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"users": all, "count": len(all)})
}

// UpdateRole handles PATCH /admin/users/{id}/role requests.
func (h *Handler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req struct {
		Role string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	user, err := h.repo.UpdateRole(r.Context(), id, req.Role)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			http.Error(w, "user not found", http.StatusNotFound)
		case errors.Is(err, ErrInvalidRole):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			h.logger.Error("users: failed to update role", "error", err, "id", id)
			http.Error(w, "failed to update user", http.StatusInternalServerError)
		}
		return
	}

	h.logger.Info("user role updated", "id", user.ID, "role", user.Role)

	if h.audit != nil {
		actor := ""
		if claims, ok := httpmiddleware.AdminClaimsFromContext(r.Context()); ok {
			actor = claims.Subject
		}
		if err := h.audit.LogEvent(r.Context(), audit.Event{
			EventType: audit.EventUserRoleChanged,
			ActorID:   actor,
			EntityID:  user.ID,
		}); err != nil {
			h.logger.Error("users: failed to audit role change", "error", err, "id", user.ID)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(user)
}

// Deactivate handles DELETE /admin/users/{id} requests. Accounts are disabled
// rather than deleted so audit rows keep a valid actor.
func (h *Handler) Deactivate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.repo.SetActive(r.Context(), id, false); err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "user not found", http.StatusNotFound)
			return
		}
		h.logger.Error("users: failed to deactivate", "error", err, "id", id)
		http.Error(w, "failed to deactivate user", http.StatusInternalServerError)
		return
	}

	h.logger.Info("user deactivated", "id", id)

	if h.audit != nil {
		actor := ""
		if claims, ok := httpmiddleware.AdminClaimsFromContext(r.Context()); ok {
			actor = claims.Subject
		}
		if err := h.audit.LogEvent(r.Context(), audit.Event{
			EventType: audit.EventUserDeactivated,
			ActorID:   actor,
			EntityID:  id,
		}); err != nil {
			h.logger.Error("users: failed to audit deactivation", "error", err, "id", id)
		}
	}

	w.WriteHeader(http.StatusNoContent)
}

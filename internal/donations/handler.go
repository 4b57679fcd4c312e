package donations

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mzansiprolife/platform/internal/audit"
	"github.com/mzansiprolife/platform/internal/catalog"
	httpmiddleware "github.com/mzansiprolife/platform/internal/http/middleware"
	"github.com/mzansiprolife/platform/pkg/logging"
)

// Banking details rendered into the EFT instructions.
const (
	bankName      = "FNB"
	bankAccount   = "628 455 09812"
	bankBranch    = "250655"
	accountHolder = "MzansiProLife NPC"
)

// Notifier is told about new pledges so the office can watch for the EFT.
type Notifier interface {
	DonationPledged(ctx context.Context, d *Donation)
}

// Handler handles HTTP requests for donations
type Handler struct {
	repo     Repository
	notifier Notifier
	audit    *audit.Service
	logger   *logging.Logger
}

// NewHandler creates a new donations handler
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

// PledgeResponse is the response for a new donation pledge.
type PledgeResponse struct {
	Donation     *Donation `json:"donation"`
	Instructions string    `json:"instructions"`
}

// Create handles POST /donations requests.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateDonationRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("donations: failed to decode request", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	d, err := h.repo.Create(r.Context(), &req)
	if err != nil {
		h.logger.Error("donations: failed to create", "error", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.logger.Info("donation pledged",
		"id", d.ID, "reference", d.Reference,
		"allocation", d.Allocation, "amount_cents", d.AmountCents)

	if h.notifier != nil {
		h.notifier.DonationPledged(r.Context(), d)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(PledgeResponse{
		Donation:     d,
		Instructions: Instructions(d),
	})
}

// Instructions renders the EFT banking instructions for a pledge.
func Instructions(d *Donation) string {
	return fmt.Sprintf(
		"Please make your EFT of %s to %s, %s account %s (branch code %s), using reference %s. "+
			"Email your proof of payment to donations@mzansiprolife.org.za and we will send "+
			"your Section 18A tax certificate.",
		catalog.FormatRand(int(d.AmountCents)), accountHolder, bankName, bankAccount, bankBranch, d.Reference,
	)
}

// ListResponse is the response for listing donations
type ListResponse struct {
	Donations []*Donation `json:"donations"`
	Count     int         `json:"count"`
}

// List handles GET /admin/donations requests
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := 50, 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if v, err := strconv.Atoi(limitStr); err == nil && v > 0 && v <= 100 {
			limit = v
		}
	}
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if v, err := strconv.Atoi(offsetStr); err == nil && v >= 0 {
			offset = v
		}
	}

	donations, err := h.repo.List(r.Context(), limit, offset)
	if err != nil {
		h.logger.Error("donations: failed to list", "error", err)
		http.Error(w, "failed to list donations", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ListResponse{Donations: donations, Count: len(donations)})
}

// MarkReceived handles POST /admin/donations/{reference}/received requests,
// used when reconciling the bank statement.
func (h *Handler) MarkReceived(w http.ResponseWriter, r *http.Request) {
	reference := chi.URLParam(r, "reference")

	d, err := h.repo.MarkReceived(r.Context(), reference)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "donation not found", http.StatusNotFound)
			return
		}
		h.logger.Error("donations: failed to mark received", "error", err, "reference", reference)
		http.Error(w, "failed to update donation", http.StatusInternalServerError)
		return
	}

	h.logger.Info("donation received", "reference", d.Reference, "amount_cents", d.AmountCents)

	if h.audit != nil {
		actor := ""
		if claims, ok := httpmiddleware.AdminClaimsFromContext(r.Context()); ok {
			actor = claims.Subject
		}
		if err := h.audit.LogDonationReceived(r.Context(), actor, d.Reference, d.AmountCents); err != nil {
			h.logger.Error("donations: failed to audit reconciliation", "error", err, "reference", d.Reference)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(d)
}

// Stats handles GET /admin/donations/stats requests
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	totals, err := h.repo.Totals(r.Context())
	if err != nil {
		h.logger.Error("donations: failed to compute totals", "error", err)
		http.Error(w, "failed to compute totals", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(totals)
}

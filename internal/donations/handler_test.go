package donations

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/mzansiprolife/platform/pkg/logging"
)

func testRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()
	r.Post("/donations", h.Create)
	r.Get("/admin/donations", h.List)
	r.Get("/admin/donations/stats", h.Stats)
	r.Post("/admin/donations/{reference}/received", h.MarkReceived)
	return r
}

func TestCreate_Pledge(t *testing.T) {
	repo := NewInMemoryRepository()
	router := testRouter(NewHandler(repo, logging.New("error")))

	body, _ := json.Marshal(CreateDonationRequest{
		Allocation:  AllocationBranch,
		Target:      "Soweto Branch",
		DonorName:   "Thandi Nkosi",
		DonorEmail:  "thandi@example.com",
		AmountCents: 50000,
	})
	req := httptest.NewRequest(http.MethodPost, "/donations", bytes.NewReader(body))
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, w.Code, w.Body.String())
	}

	var resp PledgeResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if !strings.HasPrefix(resp.Donation.Reference, "MPL-") {
		t.Errorf("expected MPL- reference, got %s", resp.Donation.Reference)
	}
	if resp.Donation.Status != StatusPledged {
		t.Errorf("expected status %s, got %s", StatusPledged, resp.Donation.Status)
	}
	if !strings.Contains(resp.Instructions, "R500") {
		t.Errorf("expected formatted amount in instructions, got %q", resp.Instructions)
	}
	if !strings.Contains(resp.Instructions, resp.Donation.Reference) {
		t.Errorf("expected reference in instructions, got %q", resp.Instructions)
	}
	if !strings.Contains(resp.Instructions, "Section 18A") {
		t.Errorf("expected tax certificate note in instructions, got %q", resp.Instructions)
	}
}

func TestCreate_BranchRequiresTarget(t *testing.T) {
	router := testRouter(NewHandler(NewInMemoryRepository(), logging.New("error")))

	body, _ := json.Marshal(CreateDonationRequest{
		Allocation:  AllocationBranch,
		DonorName:   "Thandi",
		AmountCents: 10000,
	})
	req := httptest.NewRequest(http.MethodPost, "/donations", bytes.NewReader(body))
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
}

func TestCreate_InvalidAmount(t *testing.T) {
	router := testRouter(NewHandler(NewInMemoryRepository(), logging.New("error")))

	body, _ := json.Marshal(CreateDonationRequest{
		Allocation:  AllocationHeadOffice,
		DonorName:   "Thandi",
		AmountCents: 0,
	})
	req := httptest.NewRequest(http.MethodPost, "/donations", bytes.NewReader(body))
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
}

func TestMarkReceived_UpdatesTotals(t *testing.T) {
	repo := NewInMemoryRepository()
	router := testRouter(NewHandler(repo, logging.New("error")))
	ctx := context.Background()

	d, err := repo.Create(ctx, &CreateDonationRequest{
		Allocation:  AllocationHeadOffice,
		DonorName:   "Sipho",
		AmountCents: 25000,
	})
	if err != nil {
		t.Fatalf("failed to seed donation: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/admin/donations/"+d.Reference+"/received", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	totals, err := repo.Totals(ctx)
	if err != nil {
		t.Fatalf("totals failed: %v", err)
	}
	if totals.ReceivedCents != 25000 {
		t.Errorf("expected 25000 received, got %d", totals.ReceivedCents)
	}
	if totals.PledgedCents != 0 {
		t.Errorf("expected 0 pledged, got %d", totals.PledgedCents)
	}
}

func TestMarkReceived_NotFound(t *testing.T) {
	router := testRouter(NewHandler(NewInMemoryRepository(), logging.New("error")))

	req := httptest.NewRequest(http.MethodPost, "/admin/donations/MPL-NOPE/received", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, w.Code)
	}
}

func TestStats(t *testing.T) {
	repo := NewInMemoryRepository()
	router := testRouter(NewHandler(repo, logging.New("error")))
	ctx := context.Background()

	for _, amount := range []int64{10000, 20000} {
		if _, err := repo.Create(ctx, &CreateDonationRequest{
			Allocation:  AllocationHeadOffice,
			DonorName:   "Donor",
			AmountCents: amount,
		}); err != nil {
			t.Fatalf("failed to seed donation: %v", err)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/admin/donations/stats", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	var totals Totals
	if err := json.NewDecoder(w.Body).Decode(&totals); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if totals.PledgedCents != 30000 {
		t.Errorf("expected 30000 pledged, got %d", totals.PledgedCents)
	}
	if totals.DonationCount != 2 {
		t.Errorf("expected 2 donations, got %d", totals.DonationCount)
	}
}

func TestNewReference_Format(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		ref := NewReference()
		if !strings.HasPrefix(ref, "MPL-") {
			t.Fatalf("expected MPL- prefix, got %s", ref)
		}
		if len(ref) != 12 {
			t.Fatalf("expected 12 chars, got %d (%s)", len(ref), ref)
		}
		if strings.ContainsAny(ref[4:], "01ILO") {
			t.Fatalf("reference contains ambiguous character: %s", ref)
		}
		if seen[ref] {
			t.Fatalf("duplicate reference generated: %s", ref)
		}
		seen[ref] = true
	}
}

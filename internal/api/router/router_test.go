package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mzansiprolife/platform/internal/content"
	"github.com/mzansiprolife/platform/internal/donations"
	httpmiddleware "github.com/mzansiprolife/platform/internal/http/middleware"
	"github.com/mzansiprolife/platform/internal/submissions"
	"github.com/mzansiprolife/platform/internal/users"
	"github.com/mzansiprolife/platform/pkg/logging"
)

const testSecret = "router-test-secret"

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	logger := logging.Default()

	userRepo := users.NewInMemoryRepository()
	userService := users.NewService(userRepo, testSecret, time.Hour)

	cfg := &Config{
		Logger:             logger,
		SubmissionsHandler: submissions.NewHandler(submissions.NewInMemoryRepository(), logger),
		DonationsHandler:   donations.NewHandler(donations.NewInMemoryRepository(), logger),
		ContentHandler:     content.NewHandler(content.NewInMemoryRepository(), logger),
		UsersHandler:       users.NewHandler(userService, userRepo, logger),
		AdminAuthSecret:    testSecret,
	}

	return New(cfg)
}

func adminToken(t *testing.T, role string) string {
	t.Helper()
	claims := httpmiddleware.Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestRouterHealthEndpoint(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}

	var resp map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode health response: %v", err)
	}
	if resp["status"] != "ok" {
		t.Errorf("expected status 'ok', got %q", resp["status"])
	}
}

func TestRouterProductsEndpoint(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/products", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}

	var resp struct {
		Products []map[string]any `json:"products"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode products response: %v", err)
	}
	if len(resp.Products) == 0 {
		t.Fatalf("expected at least one product")
	}
}

func TestRouterPublicSubmission(t *testing.T) {
	router := newTestRouter(t)

	body := bytes.NewBufferString(`{"type":"ambassador","name":"Thandi Nkosi","email":"thandi@example.org"}`)
	req := httptest.NewRequest(http.MethodPost, "/submissions", body)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, rr.Code, rr.Body.String())
	}
}

func TestRouterAdminRequiresToken(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/admin/submissions", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, rr.Code)
	}
}

func TestRouterAdminListWithToken(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/admin/submissions", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken(t, users.RoleViewer))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rr.Code, rr.Body.String())
	}
}

func TestRouterViewerCannotChangeStatus(t *testing.T) {
	router := newTestRouter(t)

	body := bytes.NewBufferString(`{"status":"approved"}`)
	req := httptest.NewRequest(http.MethodPatch, "/admin/submissions/some-id/status", body)
	req.Header.Set("Authorization", "Bearer "+adminToken(t, users.RoleViewer))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected status %d, got %d", http.StatusForbidden, rr.Code)
	}
}

func TestRouterUserManagementIsAdminOnly(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/admin/users", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken(t, users.RoleEditor))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected status %d, got %d", http.StatusForbidden, rr.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/admin/users", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken(t, users.RoleAdmin))
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rr.Code, rr.Body.String())
	}
}

func TestRouterUnpublishedPageHiddenFromPublic(t *testing.T) {
	router := newTestRouter(t)

	body := bytes.NewBufferString(`{"slug":"about-us","title":"About Us","body":"Our story."}`)
	req := httptest.NewRequest(http.MethodPost, "/admin/pages", body)
	req.Header.Set("Authorization", "Bearer "+adminToken(t, users.RoleEditor))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, rr.Code, rr.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/pages/about-us", nil)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status %d for draft page, got %d", http.StatusNotFound, rr.Code)
	}
}

func TestRouterDonationPledge(t *testing.T) {
	router := newTestRouter(t)

	body := bytes.NewBufferString(`{"amount_cents":50000,"allocation":"head_office","donor_name":"Sipho"}`)
	req := httptest.NewRequest(http.MethodPost, "/donations", body)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, rr.Code, rr.Body.String())
	}

	var resp struct {
		Donation struct {
			Reference string `json:"reference"`
		} `json:"donation"`
		Instructions string `json:"instructions"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode pledge response: %v", err)
	}
	if resp.Donation.Reference == "" {
		t.Errorf("expected payment reference in response")
	}
}

package users

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mzansiprolife/platform/pkg/logging"
)

func newTestHandler(t *testing.T) (*Handler, *Service) {
	t.Helper()
	repo := NewInMemoryRepository()
	svc := NewService(repo, "test-secret", time.Hour)
	return NewHandler(svc, repo, logging.New("error")), svc
}

func userRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()
	r.Post("/auth/login", h.Login)
	r.Post("/admin/users", h.Create)
	r.Get("/admin/users", h.List)
	r.Patch("/admin/users/{id}/role", h.UpdateRole)
	r.Delete("/admin/users/{id}", h.Deactivate)
	return r
}

func TestLogin_Success(t *testing.T) {
	h, svc := newTestHandler(t)
	registerTestUser(t, svc, RoleAdmin)
	router := userRouter(h)

	body := `{"email":"thandi@mzansiprolife.org.za","password":"correct horse battery"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, RoleAdmin, resp.User.Role)
	assert.NotContains(t, w.Body.String(), "password_hash")
}

func TestLogin_BadCredentials(t *testing.T) {
	h, svc := newTestHandler(t)
	registerTestUser(t, svc, RoleAdmin)
	router := userRouter(h)

	body := `{"email":"thandi@mzansiprolife.org.za","password":"nope nope nope"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateUser(t *testing.T) {
	h, _ := newTestHandler(t)
	router := userRouter(h)

	body, _ := json.Marshal(CreateUserRequest{
		Email:    "sipho@mzansiprolife.org.za",
		Name:     "Sipho Dlamini",
		Role:     RoleEditor,
		Password: "a long enough password",
	})
	req := httptest.NewRequest(http.MethodPost, "/admin/users", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)

	var user User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &user))
	assert.Equal(t, RoleEditor, user.Role)
	assert.Empty(t, user.PasswordHash, "hash must not serialize")
}

func TestCreateUser_DuplicateConflict(t *testing.T) {
	h, svc := newTestHandler(t)
	registerTestUser(t, svc, RoleAdmin)
	router := userRouter(h)

	body, _ := json.Marshal(CreateUserRequest{
		Email:    "thandi@mzansiprolife.org.za",
		Role:     RoleViewer,
		Password: "a long enough password",
	})
	req := httptest.NewRequest(http.MethodPost, "/admin/users", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestUpdateRole(t *testing.T) {
	h, svc := newTestHandler(t)
	user := registerTestUser(t, svc, RoleViewer)
	router := userRouter(h)

	req := httptest.NewRequest(http.MethodPatch, "/admin/users/"+user.ID+"/role",
		strings.NewReader(`{"role":"editor"}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var updated User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	assert.Equal(t, RoleEditor, updated.Role)
}

func TestDeactivate_ThenLoginFails(t *testing.T) {
	h, svc := newTestHandler(t)
	user := registerTestUser(t, svc, RoleEditor)
	router := userRouter(h)

	req := httptest.NewRequest(http.MethodDelete, "/admin/users/"+user.ID, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusNoContent, w.Code)

	body := `{"email":"thandi@mzansiprolife.org.za","password":"correct horse battery"}`
	req = httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

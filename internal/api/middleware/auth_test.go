package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slateci/slate-federation/internal/authz"
	"github.com/slateci/slate-federation/internal/kvstore"
	"github.com/slateci/slate-federation/internal/models"
	"github.com/slateci/slate-federation/internal/store"
)

func newTestKernel(t *testing.T) (*authz.Kernel, *store.Store) {
	t.Helper()
	backend, err := kvstore.NewSQLite(filepath.Join(t.TempDir(), "store.db"))
	require.NoError(t, err)
	s := store.New(backend, store.Config{KubeconfigDir: t.TempDir()})
	return authz.New(s), s
}

func TestAuth_RejectsMissingToken(t *testing.T) {
	kernel, _ := newTestKernel(t)
	handler := Auth(kernel)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run without a token")
	}))

	httpReq := httptest.NewRequest(http.MethodGet, "/v1alpha3/users", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httpReq)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAuth_RejectsUnknownToken(t *testing.T) {
	kernel, _ := newTestKernel(t)
	handler := Auth(kernel)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run with an unrecognized token")
	}))

	httpReq := httptest.NewRequest(http.MethodGet, "/v1alpha3/users?token=bogus", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httpReq)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAuth_AcceptsValidTokenViaQueryParam(t *testing.T) {
	kernel, s := newTestKernel(t)
	u, err := s.AddUser(context.Background(), models.User{Name: "alice", Token: "tok-alice"})
	require.NoError(t, err)

	var gotUser models.User
	handler := Auth(kernel)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, _ = UserFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	httpReq := httptest.NewRequest(http.MethodGet, "/v1alpha3/users?token=tok-alice", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httpReq)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, u.ID, gotUser.ID)
}

func TestAuth_AcceptsValidTokenViaBearerHeader(t *testing.T) {
	kernel, s := newTestKernel(t)
	_, err := s.AddUser(context.Background(), models.User{Name: "bob", Token: "tok-bob"})
	require.NoError(t, err)

	handler := Auth(kernel)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	httpReq := httptest.NewRequest(http.MethodGet, "/v1alpha3/users", nil)
	httpReq.Header.Set("Authorization", "Bearer tok-bob")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httpReq)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuth_AllowsPublicPathsWithoutToken(t *testing.T) {
	kernel, _ := newTestKernel(t)
	handler := Auth(kernel)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for _, path := range []string{"/healthz", "/metrics"} {
		httpReq := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httpReq)
		assert.Equal(t, http.StatusOK, rec.Code, "path %s should be public", path)
	}
}

func TestExtractBearer_PrefersHeaderOverQueryParam(t *testing.T) {
	httpReq := httptest.NewRequest(http.MethodGet, "/x?token=from-query", nil)
	httpReq.Header.Set("Authorization", "Bearer from-header")
	assert.Equal(t, "from-header", extractBearer(httpReq))
}

func TestExtractBearer_FallsBackToQueryParam(t *testing.T) {
	httpReq := httptest.NewRequest(http.MethodGet, "/x?token=from-query", nil)
	assert.Equal(t, "from-query", extractBearer(httpReq))
}

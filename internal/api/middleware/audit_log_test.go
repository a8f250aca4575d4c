package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/slateci/slate-federation/internal/models"
)

func testAuditLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, nil))
}

func TestAuditLog_LogsMutatingRequest(t *testing.T) {
	var buf bytes.Buffer
	handler := AuditLog(testAuditLogger(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	req := httptest.NewRequest(http.MethodPost, "/v1alpha3/groups", nil)
	ctx := WithUser(req.Context(), models.User{ID: "user1", Name: "alice"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req.WithContext(ctx))

	assert.Contains(t, buf.String(), "\"action\":\"group_create\"")
	assert.Contains(t, buf.String(), "\"user_id\":\"user1\"")
	assert.Contains(t, buf.String(), "\"status\":201")
}

func TestAuditLog_SkipsGetRequests(t *testing.T) {
	var buf bytes.Buffer
	handler := AuditLog(testAuditLogger(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1alpha3/groups", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Empty(t, strings.TrimSpace(buf.String()))
}

func TestAuditLog_SkipsPublicPaths(t *testing.T) {
	var buf bytes.Buffer
	handler := AuditLog(testAuditLogger(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/healthz", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Empty(t, strings.TrimSpace(buf.String()))
}

func TestAuditLog_RecordsAnonymousWhenUnauthenticated(t *testing.T) {
	var buf bytes.Buffer
	handler := AuditLog(testAuditLogger(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))

	req := httptest.NewRequest(http.MethodDelete, "/v1alpha3/instances/inst1", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Contains(t, buf.String(), "\"user_name\":\"anonymous\"")
	assert.Contains(t, buf.String(), "\"action\":\"instance_delete\"")
}

package rest

import (
	"bytes"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetInstance_NotFound(t *testing.T) {
	_, router, s := newTestHandler(t)
	u := mustAddUser(t, s, "alice", false)

	req := withUser(httptest.NewRequest("GET", "/v1alpha3/instances/does-not-exist", nil), u)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, 404, rec.Code)
}

func TestInstanceLogs_RejectsNonIntegerMaxLines(t *testing.T) {
	_, router, s := newTestHandler(t)
	u := mustAddUser(t, s, "alice", false)

	req := withUser(httptest.NewRequest("GET", "/v1alpha3/instances/some-id/logs?max_lines=notanumber", nil), u)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, 400, rec.Code)
}

func TestScaleInstance_RejectsMissingDeployment(t *testing.T) {
	_, router, s := newTestHandler(t)
	u := mustAddUser(t, s, "alice", false)

	req := withUser(httptest.NewRequest("PUT", "/v1alpha3/instances/some-id/scale", bytes.NewBufferString(`{"replicas":2}`)), u)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, 400, rec.Code)
}

package rest

import (
	"bytes"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegisterCluster_RequiresGroupMembership(t *testing.T) {
	_, router, s := newTestHandler(t)
	outsider := mustAddUser(t, s, "outsider", false)
	g := mustAddGroup(t, s, "groupf")

	body := `{"metadata":{"name":"clusterf","group":"` + g.ID + `","organization":"org1","kubeconfig":"apiVersion: v1\nkind: Config\n"}}`
	req := withUser(httptest.NewRequest("POST", "/v1alpha3/clusters", bytes.NewBufferString(body)), outsider)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, 403, rec.Code)
}

func TestRegisterCluster_RejectsMissingFields(t *testing.T) {
	_, router, s := newTestHandler(t)
	u := mustAddUser(t, s, "alice", false)

	body := `{"metadata":{"name":"","group":"","organization":"","kubeconfig":""}}`
	req := withUser(httptest.NewRequest("POST", "/v1alpha3/clusters", bytes.NewBufferString(body)), u)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, 400, rec.Code)
}

func TestGetCluster_NotFound(t *testing.T) {
	_, router, _ := newTestHandler(t)
	req := httptest.NewRequest("GET", "/v1alpha3/clusters/does-not-exist", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, 404, rec.Code)
}

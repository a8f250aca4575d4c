package rest

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateGroup_AnyUserSucceeds(t *testing.T) {
	_, router, s := newTestHandler(t)
	u := mustAddUser(t, s, "alice", false)

	body := `{"metadata":{"name":"groupa","email":"a@example.org","scienceField":"Physics","description":"test"}}`
	req := withUser(httptest.NewRequest("POST", "/v1alpha3/groups", bytes.NewBufferString(body)), u)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	var resp resource
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Group", resp.Kind)
}

func TestCreateGroup_InvalidScienceFieldRejected(t *testing.T) {
	_, router, s := newTestHandler(t)
	u := mustAddUser(t, s, "alice", false)

	body := `{"metadata":{"name":"groupa","email":"a@example.org","scienceField":"Not A Field"}}`
	req := withUser(httptest.NewRequest("POST", "/v1alpha3/groups", bytes.NewBufferString(body)), u)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, 400, rec.Code)
}

func TestUpdateGroup_RequiresMembership(t *testing.T) {
	_, router, s := newTestHandler(t)
	outsider := mustAddUser(t, s, "outsider", false)
	g := mustAddGroup(t, s, "groupb")

	body := `{"metadata":{"description":"new description"}}`
	req := withUser(httptest.NewRequest("PUT", "/v1alpha3/groups/"+g.ID, bytes.NewBufferString(body)), outsider)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, 403, rec.Code)
}

func TestGetGroup_NotFound(t *testing.T) {
	_, router, _ := newTestHandler(t)
	req := httptest.NewRequest("GET", "/v1alpha3/groups/does-not-exist", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, 404, rec.Code)
}

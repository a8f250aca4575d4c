package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slateci/slate-federation/internal/models"
)

func TestCreateSecret_MembershipRequired(t *testing.T) {
	_, router, s := newTestHandler(t)
	outsider := mustAddUser(t, s, "outsider", false)
	g := mustAddGroup(t, s, "groupc")
	c, err := s.AddCluster(context.Background(), models.Cluster{
		Name: "clusterc", OwningGroup: g.ID, Config: "apiVersion: v1\nkind: Config\n",
	})
	require.NoError(t, err)

	body := `{"metadata":{"name":"sec1","group":"` + g.ID + `","cluster":"` + c.ID + `","data":{"key":"value"}}}`
	req := withUser(httptest.NewRequest("POST", "/v1alpha3/secrets", bytes.NewBufferString(body)), outsider)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, 403, rec.Code)
}

func TestCreateSecret_SucceedsForMember(t *testing.T) {
	_, router, s := newTestHandler(t)
	u := mustAddUser(t, s, "member", false)
	g := mustAddGroup(t, s, "groupd")
	require.NoError(t, s.AddUserToGroup(context.Background(), u.ID, g.ID))
	c, err := s.AddCluster(context.Background(), models.Cluster{
		Name: "clusterd", OwningGroup: g.ID, Config: "apiVersion: v1\nkind: Config\n",
	})
	require.NoError(t, err)

	body := `{"metadata":{"name":"sec1","group":"` + g.ID + `","cluster":"` + c.ID + `","data":{"key":"value"}}}`
	req := withUser(httptest.NewRequest("POST", "/v1alpha3/secrets", bytes.NewBufferString(body)), u)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	var resp resource
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Secret", resp.Kind)
}

func TestCreateSecret_RejectsInvalidKey(t *testing.T) {
	_, router, s := newTestHandler(t)
	u := mustAddUser(t, s, "member", false)
	g := mustAddGroup(t, s, "groupe")
	require.NoError(t, s.AddUserToGroup(context.Background(), u.ID, g.ID))
	c, err := s.AddCluster(context.Background(), models.Cluster{
		Name: "clustere", OwningGroup: g.ID, Config: "apiVersion: v1\nkind: Config\n",
	})
	require.NoError(t, err)

	body := `{"metadata":{"name":"sec1","group":"` + g.ID + `","cluster":"` + c.ID + `","data":{"bad key!":"value"}}}`
	req := withUser(httptest.NewRequest("POST", "/v1alpha3/secrets", bytes.NewBufferString(body)), u)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, 400, rec.Code)
}

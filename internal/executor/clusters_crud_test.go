package executor

import (
	"context"
	"testing"

	"github.com/slateci/slate-federation/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const kubectlClusterInfoOK = `
case "$1" in
  cluster-info) echo "Kubernetes control plane is running"; exit 0 ;;
  *) exit 0 ;;
esac
`

const kubectlClusterInfoFails = `
echo "Unable to connect to the server" 1>&2
exit 1
`

func TestRegisterClusterSuccess(t *testing.T) {
	e, s := newTestExecutor(t, helmAlwaysOK, kubectlClusterInfoOK)
	ctx := context.Background()
	u, err := s.AddUser(ctx, models.User{Name: "alice"})
	require.NoError(t, err)
	g, err := s.AddGroup(ctx, models.Group{Name: "groupa", Email: "a@example.org", ScienceField: "Other"})
	require.NoError(t, err)
	require.NoError(t, s.AddUserToGroup(ctx, u.ID, g.ID))

	c, err := e.RegisterCluster(ctx, u, RegisterClusterRequest{
		Name:       "clustera",
		Group:      g.ID,
		Org:        "Org",
		Kubeconfig: "apiVersion: v1\nkind: Config\n",
	})
	require.NoError(t, err)
	assert.Equal(t, "clustera", c.Name)
	assert.Equal(t, g.ID, c.OwningGroup)
}

func TestRegisterClusterRejectsUnreachableKubeconfig(t *testing.T) {
	e, s := newTestExecutor(t, helmAlwaysOK, kubectlClusterInfoFails)
	ctx := context.Background()
	u, err := s.AddUser(ctx, models.User{Name: "alice"})
	require.NoError(t, err)
	g, err := s.AddGroup(ctx, models.Group{Name: "groupa", Email: "a@example.org", ScienceField: "Other"})
	require.NoError(t, err)
	require.NoError(t, s.AddUserToGroup(ctx, u.ID, g.ID))

	_, err = e.RegisterCluster(ctx, u, RegisterClusterRequest{
		Name:       "clustera",
		Group:      g.ID,
		Org:        "Org",
		Kubeconfig: "apiVersion: v1\nkind: Config\n",
	})
	require.Error(t, err)
	execErr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, BadRequest, execErr.Kind)
}

func TestRegisterClusterRejectsNonMember(t *testing.T) {
	e, s := newTestExecutor(t, helmAlwaysOK, kubectlClusterInfoOK)
	ctx := context.Background()
	_, g, _ := setupGroupClusterUser(t, s)
	stranger, err := s.AddUser(ctx, models.User{Name: "stranger"})
	require.NoError(t, err)

	_, err = e.RegisterCluster(ctx, stranger, RegisterClusterRequest{
		Name:       "clusterb",
		Group:      g.ID,
		Org:        "Org",
		Kubeconfig: "apiVersion: v1\nkind: Config\n",
	})
	require.Error(t, err)
	execErr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, Forbidden, execErr.Kind)
}

func TestUpdateClusterSuccess(t *testing.T) {
	e, s := newTestExecutor(t, helmAlwaysOK, kubectlClusterInfoOK)
	ctx := context.Background()
	u, _, c := setupGroupClusterUser(t, s)

	updated, err := e.UpdateCluster(ctx, u, c.ID, UpdateClusterRequest{Org: "NewOrg"})
	require.NoError(t, err)
	assert.Equal(t, "NewOrg", updated.OwningOrg)
}

func TestUpdateClusterRejectsNonMember(t *testing.T) {
	e, s := newTestExecutor(t, helmAlwaysOK, kubectlClusterInfoOK)
	ctx := context.Background()
	_, _, c := setupGroupClusterUser(t, s)
	stranger, err := s.AddUser(ctx, models.User{Name: "stranger"})
	require.NoError(t, err)

	_, err = e.UpdateCluster(ctx, stranger, c.ID, UpdateClusterRequest{Org: "NewOrg"})
	require.Error(t, err)
	execErr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, Forbidden, execErr.Kind)
}

func TestPingClusterSuccess(t *testing.T) {
	e, s := newTestExecutor(t, helmAlwaysOK, kubectlClusterInfoOK)
	ctx := context.Background()
	_, _, c := setupGroupClusterUser(t, s)

	require.NoError(t, e.PingCluster(ctx, c.ID))
}

func TestPingClusterUpstreamFailure(t *testing.T) {
	e, s := newTestExecutor(t, helmAlwaysOK, kubectlClusterInfoFails)
	ctx := context.Background()
	_, _, c := setupGroupClusterUser(t, s)

	err := e.PingCluster(ctx, c.ID)
	require.Error(t, err)
	execErr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, UpstreamFailure, execErr.Kind)
}

func TestGrantAndRevokeGroupAccess(t *testing.T) {
	e, s := newTestExecutor(t, helmAlwaysOK, kubectlClusterInfoOK)
	ctx := context.Background()
	u, _, c := setupGroupClusterUser(t, s)
	grantee, err := s.AddGroup(ctx, models.Group{Name: "groupb", Email: "b@example.org", ScienceField: "Other"})
	require.NoError(t, err)

	require.NoError(t, e.GrantGroupAccess(ctx, u, c.ID, grantee.ID))
	allowed, err := s.GroupAllowedOnCluster(ctx, c.ID, grantee.ID)
	require.NoError(t, err)
	assert.True(t, allowed)

	require.NoError(t, e.RevokeGroupAccess(ctx, u, c.ID, grantee.ID))
	allowed, err = s.GroupAllowedOnCluster(ctx, c.ID, grantee.ID)
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestGrantAppRequiresPriorGroupAccess(t *testing.T) {
	e, s := newTestExecutor(t, helmAlwaysOK, kubectlClusterInfoOK)
	ctx := context.Background()
	u, _, c := setupGroupClusterUser(t, s)
	grantee, err := s.AddGroup(ctx, models.Group{Name: "groupb", Email: "b@example.org", ScienceField: "Other"})
	require.NoError(t, err)

	err = e.GrantApp(ctx, u, c.ID, grantee.ID, "myapp")
	require.Error(t, err)
	execErr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, BadRequest, execErr.Kind)

	require.NoError(t, e.GrantGroupAccess(ctx, u, c.ID, grantee.ID))
	require.NoError(t, e.GrantApp(ctx, u, c.ID, grantee.ID, "myapp"))
	allowed, err := s.GroupAllowedApplicationOnCluster(ctx, c.ID, grantee.ID, "myapp")
	require.NoError(t, err)
	assert.True(t, allowed)

	require.NoError(t, e.RevokeApp(ctx, u, c.ID, grantee.ID, "myapp"))
	allowed, err = s.GroupAllowedApplicationOnCluster(ctx, c.ID, grantee.ID, "myapp")
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestGrantGroupAccessRejectsNonOwner(t *testing.T) {
	e, s := newTestExecutor(t, helmAlwaysOK, kubectlClusterInfoOK)
	ctx := context.Background()
	_, _, c := setupGroupClusterUser(t, s)
	grantee, err := s.AddGroup(ctx, models.Group{Name: "groupb", Email: "b@example.org", ScienceField: "Other"})
	require.NoError(t, err)
	stranger, err := s.AddUser(ctx, models.User{Name: "stranger"})
	require.NoError(t, err)

	err = e.GrantGroupAccess(ctx, stranger, c.ID, grantee.ID)
	require.Error(t, err)
	execErr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, Forbidden, execErr.Kind)
}

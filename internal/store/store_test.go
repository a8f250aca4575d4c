package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/slateci/slate-federation/internal/kvstore"
	"github.com/slateci/slate-federation/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	backend, err := kvstore.NewSQLite(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = backend.Close() })
	return New(backend, Config{KubeconfigDir: dir})
}

func TestAddAndGetUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u, err := s.AddUser(ctx, models.User{Name: "Alice", Email: "alice@example.org"})
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)
	assert.NotEmpty(t, u.Token)

	got, err := s.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, got.Valid)
	assert.Equal(t, "Alice", got.Name)

	byToken, err := s.FindUserByToken(ctx, u.Token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, byToken.ID)

	missing, err := s.FindUserByToken(ctx, "not-a-real-token")
	require.NoError(t, err)
	assert.False(t, missing.Valid)
}

func TestAddGroupDuplicateName(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.AddGroup(ctx, models.Group{Name: "ligo"})
	require.NoError(t, err)

	_, err = s.AddGroup(ctx, models.Group{Name: "ligo"})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestGroupMembership(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u, err := s.AddUser(ctx, models.User{Name: "Bob"})
	require.NoError(t, err)
	g, err := s.AddGroup(ctx, models.Group{Name: "atlas"})
	require.NoError(t, err)

	in, err := s.UserInGroup(ctx, u.ID, g.ID)
	require.NoError(t, err)
	assert.False(t, in)

	require.NoError(t, s.AddUserToGroup(ctx, u.ID, g.ID))

	in, err = s.UserInGroup(ctx, u.ID, g.ID)
	require.NoError(t, err)
	assert.True(t, in)

	members, err := s.GroupMembers(ctx, g.ID)
	require.NoError(t, err)
	assert.Contains(t, members, u.ID)

	require.NoError(t, s.RemoveUserFromGroup(ctx, u.ID, g.ID))
	in, err = s.UserInGroup(ctx, u.ID, g.ID)
	require.NoError(t, err)
	assert.False(t, in)
}

func TestClusterAccessAndAppGrants(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	owner, err := s.AddGroup(ctx, models.Group{Name: "owner-group"})
	require.NoError(t, err)
	guest, err := s.AddGroup(ctx, models.Group{Name: "guest-group"})
	require.NoError(t, err)
	c, err := s.AddCluster(ctx, models.Cluster{Name: "uchicago", OwningGroup: owner.ID, Config: "apiVersion: v1\nkind: Config\n"})
	require.NoError(t, err)

	allowed, err := s.GroupAllowedOnCluster(ctx, c.ID, guest.ID)
	require.NoError(t, err)
	assert.False(t, allowed)

	require.NoError(t, s.GrantGroupAccessToCluster(ctx, c.ID, guest.ID))
	allowed, err = s.GroupAllowedOnCluster(ctx, c.ID, guest.ID)
	require.NoError(t, err)
	assert.True(t, allowed)

	canInstall, err := s.GroupAllowedApplicationOnCluster(ctx, c.ID, guest.ID, "wordpress")
	require.NoError(t, err)
	assert.False(t, canInstall)

	require.NoError(t, s.GrantApplicationOnCluster(ctx, c.ID, guest.ID, models.WildcardApplication))
	canInstall, err = s.GroupAllowedApplicationOnCluster(ctx, c.ID, guest.ID, "wordpress")
	require.NoError(t, err)
	assert.True(t, canInstall)
}

func TestConfigPathForClusterSharedAndReleased(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	g, err := s.AddGroup(ctx, models.Group{Name: "desi"})
	require.NoError(t, err)
	c, err := s.AddCluster(ctx, models.Cluster{Name: "nersc", OwningGroup: g.ID, Config: "kubeconfig-contents"})
	require.NoError(t, err)

	h1, err := s.ConfigPathForCluster(ctx, c.ID)
	require.NoError(t, err)
	h2, err := s.ConfigPathForCluster(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, h1.Path(), h2.Path())

	h1.Release()
	assert.FileExists(t, h2.Path())
	h2.Release()
	// the pool keeps its own reference until the cluster's config is invalidated
	assert.FileExists(t, h2.Path())
	s.kubeconfigs.invalidate(c.ID)
	assert.NoFileExists(t, h2.Path())
}

func TestListClustersOwnedByGroup(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	g, err := s.AddGroup(ctx, models.Group{Name: "xenon"})
	require.NoError(t, err)
	c1, err := s.AddCluster(ctx, models.Cluster{Name: "cluster-a", OwningGroup: g.ID, Config: "x"})
	require.NoError(t, err)
	_, err = s.AddCluster(ctx, models.Cluster{Name: "cluster-b", OwningGroup: "Group_other", Config: "y"})
	require.NoError(t, err)

	owned, err := s.ClustersOwnedByGroup(ctx, g.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{c1.ID}, owned)

	require.NoError(t, s.RemoveCluster(ctx, c1.ID))
	owned, err = s.ClustersOwnedByGroup(ctx, g.ID)
	require.NoError(t, err)
	assert.Empty(t, owned)
}

func TestApplicationInstanceNameUniqueness(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	g, err := s.AddGroup(ctx, models.Group{Name: "cms"})
	require.NoError(t, err)
	c, err := s.AddCluster(ctx, models.Cluster{Name: "fnal", OwningGroup: g.ID, Config: "x"})
	require.NoError(t, err)

	name := models.InstanceName(g.Name, "wordpress", "")
	_, err = s.AddApplicationInstance(ctx, models.ApplicationInstance{Name: name, Application: "wordpress", OwningGroup: g.ID, Cluster: c.ID})
	require.NoError(t, err)

	_, err = s.AddApplicationInstance(ctx, models.ApplicationInstance{Name: name, Application: "wordpress", OwningGroup: g.ID, Cluster: c.ID})
	assert.ErrorIs(t, err, ErrConflict)
}

package executor

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/slateci/slate-federation/internal/authz"
	"github.com/slateci/slate-federation/internal/cascade"
	"github.com/slateci/slate-federation/internal/kvstore"
	"github.com/slateci/slate-federation/internal/models"
	"github.com/slateci/slate-federation/internal/procsup"
	"github.com/slateci/slate-federation/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeFakeBin writes an executable shell script to dir/name and returns its
// path, standing in for the real helm/kubectl binaries the test environment
// does not have installed.
func writeFakeBin(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	script := "#!/bin/sh\n" + body
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

// newTestExecutor wires a real Store/Kernel/Coordinator against fake
// helm/kubectl scripts so the executor's control flow can be exercised
// without a real Kubernetes cluster.
func newTestExecutor(t *testing.T, helmBody, kubectlBody string) (*Executor, *store.Store) {
	t.Helper()
	dir := t.TempDir()
	backend, err := kvstore.NewSQLite(filepath.Join(dir, "store.db"))
	require.NoError(t, err)
	s := store.New(backend, store.Config{KubeconfigDir: dir})
	az := authz.New(s)
	casc := cascade.New(2)

	binDir := t.TempDir()
	helmPath := writeFakeBin(t, binDir, "helm", helmBody)
	kubectlPath := writeFakeBin(t, binDir, "kubectl", kubectlBody)

	e := New(s, az, procsup.NewSupervisor(), casc, helmPath, kubectlPath)
	return e, s
}

const helmAlwaysOK = `exit 0
`

const helmInstallOKListOK = `
case "$1" in
  install) exit 0 ;;
  list) echo "NAME            REVISION  UPDATED                 STATUS    CHART"; echo "$2             1         2026-01-01 00:00:00 UTC deployed  demo-1.0.0"; exit 0 ;;
  delete) exit 0 ;;
  *) exit 0 ;;
esac
`

const helmInstallFails = `
case "$1" in
  install) echo "Error: release already exists" 1>&2; exit 1 ;;
  *) exit 0 ;;
esac
`

const kubectlAlwaysOK = `exit 0
`

func setupGroupClusterUser(t *testing.T, s *store.Store) (models.User, models.Group, models.Cluster) {
	t.Helper()
	ctx := context.Background()
	u, err := s.AddUser(ctx, models.User{Name: "alice"})
	require.NoError(t, err)
	g, err := s.AddGroup(ctx, models.Group{Name: "groupa", Email: "a@example.org", ScienceField: "Other"})
	require.NoError(t, err)
	require.NoError(t, s.AddUserToGroup(ctx, u.ID, g.ID))
	c, err := s.AddCluster(ctx, models.Cluster{Name: "clustera", OwningGroup: g.ID, Config: "apiVersion: v1\nkind: Config\n"})
	require.NoError(t, err)
	// installing needs an app grant even for the cluster's owning group
	require.NoError(t, s.GrantApplicationOnCluster(ctx, c.ID, g.ID, models.WildcardApplication))
	return u, g, c
}

func TestExtractTagFromConfig(t *testing.T) {
	tag, err := extractTag("Instance: myinstance\nkey: value\n", "")
	require.NoError(t, err)
	assert.Equal(t, "myinstance", tag)
}

func TestExtractTagMultiDocument(t *testing.T) {
	tag, err := extractTag("key: value\n---\nInstance: second\n", "")
	require.NoError(t, err)
	assert.Equal(t, "second", tag)
}

func TestExtractTagFallsBackToDefault(t *testing.T) {
	tag, err := extractTag("key: value\n", "default-tag")
	require.NoError(t, err)
	assert.Equal(t, "default-tag", tag)
}

func TestExtractTagMissingIsBadRequest(t *testing.T) {
	_, err := extractTag("key: value\n", "")
	require.Error(t, err)
	execErr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, BadRequest, execErr.Kind)
}

func TestCanonicalizeConfigStripsCommentsAndBlankLines(t *testing.T) {
	in := "key: value  \n\n# a comment\nother: 1\n"
	out := canonicalizeConfig(in)
	assert.Equal(t, "key: value\nother: 1\n", out)
}

func TestValidSecretKey(t *testing.T) {
	assert.True(t, validSecretKey("username"))
	assert.True(t, validSecretKey("tls.crt"))
	assert.False(t, validSecretKey(""))
	assert.False(t, validSecretKey("has space"))
	assert.False(t, validSecretKey("has/slash"))
}

func TestSecretManifestIsDeterministic(t *testing.T) {
	m1 := secretManifest("s1", "ns1", map[string]string{"b": "2", "a": "1"})
	m2 := secretManifest("s1", "ns1", map[string]string{"a": "1", "b": "2"})
	assert.Equal(t, m1, m2)
	assert.Contains(t, m1, "name: s1")
	assert.Contains(t, m1, "namespace: ns1")
}

func TestParseHelmListFields(t *testing.T) {
	output := "NAME    REVISION  UPDATED\nmyrel   3         2026-01-01\n"
	rev, updated := parseHelmListFields(output, "myrel")
	assert.Equal(t, "3", rev)
	assert.Equal(t, "2026-01-01", updated)
}

func TestInstallApplicationSuccess(t *testing.T) {
	e, s := newTestExecutor(t, helmInstallOKListOK, kubectlAlwaysOK)
	ctx := context.Background()
	u, g, c := setupGroupClusterUser(t, s)

	result, err := e.InstallApplication(ctx, u, InstallRequest{
		App:             models.Application{Name: "myapp", Repository: models.MainRepository, ChartName: "myapp"},
		GroupIDOrName:   g.ID,
		ClusterIDOrName: c.ID,
		Configuration:   "Instance: prod\nreplicas: 2\n",
	})
	require.NoError(t, err)
	assert.Equal(t, "groupa-myapp-prod", result.Instance.Name)
	assert.Equal(t, "1", result.Revision)
}

func TestInstallApplicationRejectsNonMember(t *testing.T) {
	e, s := newTestExecutor(t, helmAlwaysOK, kubectlAlwaysOK)
	ctx := context.Background()
	_, g, c := setupGroupClusterUser(t, s)

	stranger, err := s.AddUser(ctx, models.User{Name: "stranger"})
	require.NoError(t, err)

	_, err = e.InstallApplication(ctx, stranger, InstallRequest{
		App:             models.Application{Name: "myapp", ChartName: "myapp"},
		GroupIDOrName:   g.ID,
		ClusterIDOrName: c.ID,
		Configuration:   "Instance: prod\n",
	})
	require.Error(t, err)
	execErr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, Forbidden, execErr.Kind)
}

func TestInstallApplicationHelmFailureRollsBackInstance(t *testing.T) {
	e, s := newTestExecutor(t, helmInstallFails, kubectlAlwaysOK)
	ctx := context.Background()
	u, g, c := setupGroupClusterUser(t, s)

	_, err := e.InstallApplication(ctx, u, InstallRequest{
		App:             models.Application{Name: "myapp", ChartName: "myapp"},
		GroupIDOrName:   g.ID,
		ClusterIDOrName: c.ID,
		Configuration:   "Instance: prod\n",
	})
	require.Error(t, err)
	execErr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, UpstreamFailure, execErr.Kind)

	instances, err := s.ListApplicationInstances(ctx)
	require.NoError(t, err)
	assert.Empty(t, instances)
}

func TestDeleteInstanceSuccess(t *testing.T) {
	e, s := newTestExecutor(t, helmInstallOKListOK, kubectlAlwaysOK)
	ctx := context.Background()
	u, g, c := setupGroupClusterUser(t, s)

	result, err := e.InstallApplication(ctx, u, InstallRequest{
		App:             models.Application{Name: "myapp", ChartName: "myapp"},
		GroupIDOrName:   g.ID,
		ClusterIDOrName: c.ID,
		Configuration:   "Instance: prod\n",
	})
	require.NoError(t, err)

	err = e.DeleteInstance(ctx, u, result.Instance.ID, false)
	require.NoError(t, err)

	got, err := s.GetApplicationInstance(ctx, result.Instance.ID)
	require.NoError(t, err)
	assert.False(t, got.Valid)
}

func TestCreateSecretSuccess(t *testing.T) {
	e, s := newTestExecutor(t, helmAlwaysOK, kubectlAlwaysOK)
	ctx := context.Background()
	u, g, c := setupGroupClusterUser(t, s)

	sec, err := e.CreateSecret(ctx, u, CreateSecretRequest{
		Name:               "mysecret",
		GroupIDOrName:      g.ID,
		ClusterIDOrName:    c.ID,
		Data:               map[string]string{"password": "hunter2"},
		EncryptionPassword: []byte("test-password"),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, sec.ID)
	assert.NotEmpty(t, sec.Data)
}

func TestCreateSecretRejectsInvalidKey(t *testing.T) {
	e, s := newTestExecutor(t, helmAlwaysOK, kubectlAlwaysOK)
	ctx := context.Background()
	u, g, c := setupGroupClusterUser(t, s)

	_, err := e.CreateSecret(ctx, u, CreateSecretRequest{
		Name:               "mysecret",
		GroupIDOrName:      g.ID,
		ClusterIDOrName:    c.ID,
		Data:               map[string]string{"bad key": "v"},
		EncryptionPassword: []byte("test-password"),
	})
	require.Error(t, err)
	execErr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, BadRequest, execErr.Kind)
}

func TestDeleteGroupCascadesInstancesAndClusters(t *testing.T) {
	e, s := newTestExecutor(t, helmInstallOKListOK, kubectlAlwaysOK)
	ctx := context.Background()
	u, g, c := setupGroupClusterUser(t, s)

	_, err := e.InstallApplication(ctx, u, InstallRequest{
		App:             models.Application{Name: "myapp", ChartName: "myapp"},
		GroupIDOrName:   g.ID,
		ClusterIDOrName: c.ID,
		Configuration:   "Instance: prod\n",
	})
	require.NoError(t, err)

	err = e.DeleteGroup(ctx, u, g.ID)
	require.NoError(t, err)

	gotGroup, err := s.GetGroup(ctx, g.ID)
	require.NoError(t, err)
	assert.False(t, gotGroup.Valid)

	gotCluster, err := s.GetCluster(ctx, c.ID)
	require.NoError(t, err)
	assert.False(t, gotCluster.Valid)

	instances, err := s.ListApplicationInstances(ctx)
	require.NoError(t, err)
	assert.Empty(t, instances)
}

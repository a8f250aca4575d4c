package executor

import (
	"context"
	"testing"

	"github.com/slateci/slate-federation/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const kubectlLogsEcho = `
case "$1" in
  logs) echo "line one"; echo "line two"; exit 0 ;;
  *) exit 0 ;;
esac
`

const kubectlScaleOK = `
case "$1" in
  scale) exit 0 ;;
  *) exit 0 ;;
esac
`

const kubectlRolloutOK = `
case "$1" in
  rollout) exit 0 ;;
  *) exit 0 ;;
esac
`

const kubectlFails = `
echo "Error: deployments.apps \"myapp\" not found" 1>&2
exit 1
`

func installTestInstance(t *testing.T, e *Executor, u models.User, g models.Group, c models.Cluster) models.ApplicationInstance {
	t.Helper()
	result, err := e.InstallApplication(context.Background(), u, InstallRequest{
		App:             models.Application{Name: "myapp", ChartName: "myapp"},
		GroupIDOrName:   g.ID,
		ClusterIDOrName: c.ID,
		Configuration:   "Instance: prod\n",
	})
	require.NoError(t, err)
	return result.Instance
}

func TestInstanceLogsSuccess(t *testing.T) {
	e, s := newTestExecutor(t, helmInstallOKListOK, kubectlLogsEcho)
	ctx := context.Background()
	u, g, c := setupGroupClusterUser(t, s)
	inst := installTestInstance(t, e, u, g, c)

	logs, err := e.InstanceLogs(ctx, u, inst.ID, InstanceLogsRequest{MaxLines: 50})
	require.NoError(t, err)
	assert.Contains(t, logs, "line one")
	assert.Contains(t, logs, "line two")
}

func TestInstanceLogsRejectsNonMember(t *testing.T) {
	e, s := newTestExecutor(t, helmInstallOKListOK, kubectlLogsEcho)
	ctx := context.Background()
	u, g, c := setupGroupClusterUser(t, s)
	inst := installTestInstance(t, e, u, g, c)

	stranger, err := s.AddUser(ctx, models.User{Name: "stranger"})
	require.NoError(t, err)

	_, err = e.InstanceLogs(ctx, stranger, inst.ID, InstanceLogsRequest{})
	require.Error(t, err)
	execErr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, Forbidden, execErr.Kind)
}

func TestInstanceLogsUpstreamFailure(t *testing.T) {
	e, s := newTestExecutor(t, helmInstallOKListOK, kubectlFails)
	ctx := context.Background()
	u, g, c := setupGroupClusterUser(t, s)
	inst := installTestInstance(t, e, u, g, c)

	_, err := e.InstanceLogs(ctx, u, inst.ID, InstanceLogsRequest{})
	require.Error(t, err)
	execErr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, UpstreamFailure, execErr.Kind)
}

func TestScaleInstanceSuccess(t *testing.T) {
	e, s := newTestExecutor(t, helmInstallOKListOK, kubectlScaleOK)
	ctx := context.Background()
	u, g, c := setupGroupClusterUser(t, s)
	inst := installTestInstance(t, e, u, g, c)

	err := e.ScaleInstance(ctx, u, inst.ID, 3, "myapp")
	require.NoError(t, err)
}

func TestScaleInstanceRejectsNegativeReplicas(t *testing.T) {
	e, s := newTestExecutor(t, helmInstallOKListOK, kubectlScaleOK)
	ctx := context.Background()
	u, g, c := setupGroupClusterUser(t, s)
	inst := installTestInstance(t, e, u, g, c)

	err := e.ScaleInstance(ctx, u, inst.ID, -1, "myapp")
	require.Error(t, err)
	execErr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, BadRequest, execErr.Kind)
}

func TestScaleInstanceRequiresDeployment(t *testing.T) {
	e, s := newTestExecutor(t, helmInstallOKListOK, kubectlScaleOK)
	ctx := context.Background()
	u, g, c := setupGroupClusterUser(t, s)
	inst := installTestInstance(t, e, u, g, c)

	err := e.ScaleInstance(ctx, u, inst.ID, 2, "")
	require.Error(t, err)
	execErr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, BadRequest, execErr.Kind)
}

func TestRestartInstanceSuccess(t *testing.T) {
	e, s := newTestExecutor(t, helmInstallOKListOK, kubectlRolloutOK)
	ctx := context.Background()
	u, g, c := setupGroupClusterUser(t, s)
	inst := installTestInstance(t, e, u, g, c)

	err := e.RestartInstance(ctx, u, inst.ID, "myapp")
	require.NoError(t, err)
}

func TestRestartInstanceNotFound(t *testing.T) {
	e, s := newTestExecutor(t, helmInstallOKListOK, kubectlRolloutOK)
	ctx := context.Background()
	u, _, _ := setupGroupClusterUser(t, s)

	err := e.RestartInstance(ctx, u, "no-such-instance", "myapp")
	require.Error(t, err)
	execErr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, NotFound, execErr.Kind)
}

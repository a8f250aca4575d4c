package executor

import (
	"context"

	"github.com/slateci/slate-federation/internal/cascade"
	"github.com/slateci/slate-federation/internal/models"
	"github.com/slateci/slate-federation/internal/pkg/metrics"
)

// instrumentedTask wraps a cascade.Task so each run is counted against
// CascadeTasksTotal under kind ("instance", "secret", "namespace").
func instrumentedTask(kind string, task cascade.Task) cascade.Task {
	return func(ctx context.Context) error {
		err := task(ctx)
		outcome := "success"
		if err != nil {
			outcome = "failure"
		}
		metrics.CascadeTasksTotal.WithLabelValues(kind, outcome).Inc()
		return err
	}
}

// DeleteGroup implements the group half of §4.5.3: the group record is
// removed first so no new cluster/instance/secret can reference it, its
// owned instances and secrets are torn down in parallel, and finally every
// cluster it owns is cascade-deleted in turn (step 4's "containers second").
func (e *Executor) DeleteGroup(ctx context.Context, user models.User, groupID string) error {
	group, err := e.Store.GetGroup(ctx, groupID)
	if err != nil {
		return newError(StoreFailure, "%v", err)
	}
	if !group.Valid {
		return newError(NotFound, "no such group %q", groupID)
	}
	member, err := e.Authz.MayActOnGroup(ctx, user, group.ID)
	if err != nil {
		return newError(StoreFailure, "%v", err)
	}
	if !member {
		return newError(Forbidden, "user may not delete group %s", group.Name)
	}

	clusterIDs, err := e.Store.ClustersOwnedByGroup(ctx, group.ID)
	if err != nil {
		return newError(StoreFailure, "%v", err)
	}
	namespace := group.NamespaceName()

	if err := e.Store.RemoveGroup(ctx, group.ID); err != nil {
		return newError(StoreFailure, "%v", err)
	}

	if err := e.tearDownGroupWorkloads(ctx, group.ID, namespace); err != nil {
		return newError(UpstreamFailure, "%v", err)
	}

	for _, clusterID := range clusterIDs {
		if err := e.deleteClusterRecord(ctx, clusterID); err != nil {
			return newError(UpstreamFailure, "deleting owned cluster %s: %v", clusterID, err)
		}
	}
	return nil
}

// DeleteCluster implements the cluster half of §4.5.3.
func (e *Executor) DeleteCluster(ctx context.Context, user models.User, clusterID string) error {
	cluster, err := e.Store.GetCluster(ctx, clusterID)
	if err != nil {
		return newError(StoreFailure, "%v", err)
	}
	if !cluster.Valid {
		return newError(NotFound, "no such cluster %q", clusterID)
	}
	member, err := e.Authz.MayActOnGroup(ctx, user, cluster.OwningGroup)
	if err != nil {
		return newError(StoreFailure, "%v", err)
	}
	if !member {
		return newError(Forbidden, "user may not delete cluster %s", cluster.Name)
	}
	if err := e.deleteClusterRecord(ctx, cluster.ID); err != nil {
		return newError(UpstreamFailure, "%v", err)
	}
	return nil
}

// deleteClusterRecord removes a cluster's record and every instance/secret
// hosted on it, without the authorization check, so DeleteGroup can reuse it
// for each owned cluster (§4.5.3 step 4).
func (e *Executor) deleteClusterRecord(ctx context.Context, clusterID string) error {
	instances, err := e.Store.ListApplicationInstances(ctx)
	if err != nil {
		return err
	}
	secrets, err := e.Store.ListSecrets(ctx)
	if err != nil {
		return err
	}

	var tasks []cascade.Task
	for _, inst := range instances {
		if inst.Cluster != clusterID {
			continue
		}
		id := inst.ID
		tasks = append(tasks, instrumentedTask("instance", func(ctx context.Context) error {
			full, err := e.Store.GetApplicationInstance(ctx, id)
			if err != nil || !full.Valid {
				return nil
			}
			full.Cluster = clusterID
			return e.deleteInstanceRecord(ctx, full, true)
		}))
	}
	for _, sec := range secrets {
		if sec.Cluster != clusterID {
			continue
		}
		id := sec.ID
		tasks = append(tasks, instrumentedTask("secret", func(ctx context.Context) error {
			return e.Store.RemoveSecret(ctx, id)
		}))
	}

	if err := e.Cascade.Run(ctx, tasks); err != nil {
		return err
	}
	return e.Store.RemoveCluster(ctx, clusterID)
}

// tearDownGroupWorkloads runs §4.5.3 step 2 for a group deletion: every
// owned instance and secret is torn down, and the group's namespace is
// removed from every known cluster (it may have run on any of them via an
// access grant, not just its owned clusters).
func (e *Executor) tearDownGroupWorkloads(ctx context.Context, groupID, namespace string) error {
	instances, err := e.Store.ListApplicationInstancesByGroup(ctx, groupID)
	if err != nil {
		return err
	}
	secrets, err := e.Store.ListSecretsByGroup(ctx, groupID)
	if err != nil {
		return err
	}
	allClusters, err := e.Store.ListClusters(ctx)
	if err != nil {
		return err
	}

	var tasks []cascade.Task
	for _, inst := range instances {
		id := inst.ID
		tasks = append(tasks, instrumentedTask("instance", func(ctx context.Context) error {
			full, err := e.Store.GetApplicationInstance(ctx, id)
			if err != nil || !full.Valid {
				return nil
			}
			return e.deleteInstanceRecord(ctx, full, true)
		}))
	}
	for _, sec := range secrets {
		id := sec.ID
		tasks = append(tasks, instrumentedTask("secret", func(ctx context.Context) error {
			return e.Store.RemoveSecret(ctx, id)
		}))
	}

	for _, c := range allClusters {
		clusterID := c.ID
		tasks = append(tasks, instrumentedTask("namespace", func(ctx context.Context) error {
			return e.withKubeconfig(ctx, clusterID, func(kubeconfigPath string) error {
				return e.kubectlDeleteNamespace(ctx, kubeconfigPath, namespace)
			})
		}))
	}

	return e.Cascade.Run(ctx, tasks)
}

package executor

import (
	"context"

	"github.com/slateci/slate-federation/internal/models"
	"github.com/slateci/slate-federation/internal/store"
)

// RegisterClusterRequest is the input to RegisterCluster.
type RegisterClusterRequest struct {
	Name       string
	Group      string
	Org        string
	Kubeconfig string
}

// RegisterCluster implements §6's POST /clusters: the requester must act on
// behalf of the owning group, and the supplied kubeconfig must actually
// reach a live API server before the cluster is persisted (original_source
// has no dedicated cluster-registration file to ground this against, so the
// reachability check reuses the same kubectl-subprocess idiom as the other
// cluster operations).
func (e *Executor) RegisterCluster(ctx context.Context, user models.User, req RegisterClusterRequest) (models.Cluster, error) {
	if req.Name == "" || req.Group == "" || req.Org == "" || req.Kubeconfig == "" {
		return models.Cluster{}, newError(BadRequest, "name, group, organization and kubeconfig are all required")
	}
	group, err := e.Store.GetGroupByIDOrName(ctx, req.Group)
	if err != nil {
		return models.Cluster{}, newError(StoreFailure, "%v", err)
	}
	if !group.Valid {
		return models.Cluster{}, newError(NotFound, "no such group %q", req.Group)
	}
	allowed, err := e.Authz.MayActOnGroup(ctx, user, group.ID)
	if err != nil {
		return models.Cluster{}, newError(StoreFailure, "%v", err)
	}
	if !allowed {
		return models.Cluster{}, newError(Forbidden, "user may not register clusters for group %s", group.Name)
	}

	if err := e.pingKubeconfig(ctx, req.Kubeconfig); err != nil {
		return models.Cluster{}, err
	}

	created, err := e.Store.AddCluster(ctx, models.Cluster{
		Name:            req.Name,
		OwningGroup:     group.ID,
		OwningOrg:       req.Org,
		Config:          req.Kubeconfig,
		SystemNamespace: group.NamespaceName(),
	})
	if err != nil {
		if err == store.ErrConflict {
			return models.Cluster{}, newError(Conflict, "cluster name %q already in use", req.Name)
		}
		return models.Cluster{}, newError(StoreFailure, "%v", err)
	}
	return created, nil
}

// GetClusterByID implements GET /clusters/{id}.
func (e *Executor) GetClusterByID(ctx context.Context, id string) (models.Cluster, error) {
	c, err := e.Store.GetClusterByIDOrName(ctx, id)
	if err != nil {
		return models.Cluster{}, newError(StoreFailure, "%v", err)
	}
	if !c.Valid {
		return models.Cluster{}, newError(NotFound, "no such cluster %q", id)
	}
	return c, nil
}

// UpdateClusterRequest carries the mutable subset of a Cluster's fields; a
// zero value leaves the current field unchanged.
type UpdateClusterRequest struct {
	Org        string
	Kubeconfig string
}

// UpdateCluster implements PUT /clusters/{id}. A replacement kubeconfig is
// pinged before it's accepted, same as at registration time.
func (e *Executor) UpdateCluster(ctx context.Context, user models.User, id string, req UpdateClusterRequest) (models.Cluster, error) {
	c, err := e.Store.GetCluster(ctx, id)
	if err != nil {
		return models.Cluster{}, newError(StoreFailure, "%v", err)
	}
	if !c.Valid {
		return models.Cluster{}, newError(NotFound, "no such cluster %q", id)
	}
	allowed, err := e.Authz.MayActOnGroup(ctx, user, c.OwningGroup)
	if err != nil {
		return models.Cluster{}, newError(StoreFailure, "%v", err)
	}
	if !allowed {
		return models.Cluster{}, newError(Forbidden, "user may not update cluster %s", c.Name)
	}

	if req.Kubeconfig != "" {
		if err := e.pingKubeconfig(ctx, req.Kubeconfig); err != nil {
			return models.Cluster{}, err
		}
		c.Config = req.Kubeconfig
	}
	if req.Org != "" {
		c.OwningOrg = req.Org
	}
	if err := e.Store.UpdateCluster(ctx, c); err != nil {
		return models.Cluster{}, newError(StoreFailure, "%v", err)
	}
	return c, nil
}

// PingCluster confirms a registered cluster's stored kubeconfig still
// reaches a live API server, backing the "ping" half of §2's "cluster
// register/update/delete/ping" executor surface. It is not a standalone
// §6 route: the reference route table only exposes it indirectly, through
// the reachability check RegisterCluster/UpdateCluster perform inline.
func (e *Executor) PingCluster(ctx context.Context, clusterID string) error {
	c, err := e.Store.GetCluster(ctx, clusterID)
	if err != nil {
		return newError(StoreFailure, "%v", err)
	}
	if !c.Valid {
		return newError(NotFound, "no such cluster %q", clusterID)
	}
	return e.withKubeconfig(ctx, clusterID, func(kubeconfigPath string) error {
		res, err := e.kubectlClusterInfo(ctx, kubeconfigPath)
		if err != nil {
			return newError(UpstreamFailure, "invoking kubectl: %v", err)
		}
		if res.Status != 0 {
			return newError(UpstreamFailure, "cluster %s unreachable: %s", c.Name, firstErrorLine(res.Output+res.Error))
		}
		return nil
	})
}

// pingKubeconfig checks connectivity for a kubeconfig that isn't (yet)
// attached to a stored cluster record, by materializing it to a scratch
// file directly rather than going through Store.ConfigPathForCluster (which
// requires an existing cluster ID).
func (e *Executor) pingKubeconfig(ctx context.Context, kubeconfig string) error {
	path, cleanup, err := writeScratchKubeconfig(kubeconfig)
	if err != nil {
		return newError(BadRequest, "writing kubeconfig: %v", err)
	}
	defer cleanup()

	res, err := e.kubectlClusterInfo(ctx, path)
	if err != nil {
		return newError(UpstreamFailure, "invoking kubectl: %v", err)
	}
	if res.Status != 0 {
		return newError(BadRequest, "kubeconfig does not reach a live cluster: %s", firstErrorLine(res.Output+res.Error))
	}
	return nil
}

// GrantGroupAccess implements PUT /clusters/{id}/allowed_groups/{gid}.
func (e *Executor) GrantGroupAccess(ctx context.Context, user models.User, clusterID, groupID string) error {
	c, err := e.ownedCluster(ctx, user, clusterID)
	if err != nil {
		return err
	}
	grantee, err := e.Store.GetGroup(ctx, groupID)
	if err != nil {
		return newError(StoreFailure, "%v", err)
	}
	if !grantee.Valid {
		return newError(NotFound, "no such group %q", groupID)
	}
	if err := e.Store.GrantGroupAccessToCluster(ctx, c.ID, grantee.ID); err != nil {
		return newError(StoreFailure, "%v", err)
	}
	return nil
}

// RevokeGroupAccess implements DELETE /clusters/{id}/allowed_groups/{gid}.
func (e *Executor) RevokeGroupAccess(ctx context.Context, user models.User, clusterID, groupID string) error {
	c, err := e.ownedCluster(ctx, user, clusterID)
	if err != nil {
		return err
	}
	if err := e.Store.RevokeGroupAccessToCluster(ctx, c.ID, groupID); err != nil {
		return newError(StoreFailure, "%v", err)
	}
	return nil
}

// GrantApp implements PUT /clusters/{id}/allowed_groups/{gid}/applications/{app}.
// appName may be models.WildcardApplication ("*") to grant every application.
func (e *Executor) GrantApp(ctx context.Context, user models.User, clusterID, groupID, appName string) error {
	c, err := e.ownedCluster(ctx, user, clusterID)
	if err != nil {
		return err
	}
	allowed := c.OwningGroup == groupID
	if !allowed {
		allowed, err = e.Store.GroupAllowedOnCluster(ctx, c.ID, groupID)
		if err != nil {
			return newError(StoreFailure, "%v", err)
		}
	}
	if !allowed {
		return newError(BadRequest, "group %s has not been granted access to cluster %s", groupID, c.Name)
	}
	if err := e.Store.GrantApplicationOnCluster(ctx, c.ID, groupID, appName); err != nil {
		return newError(StoreFailure, "%v", err)
	}
	return nil
}

// RevokeApp implements DELETE /clusters/{id}/allowed_groups/{gid}/applications/{app}.
func (e *Executor) RevokeApp(ctx context.Context, user models.User, clusterID, groupID, appName string) error {
	c, err := e.ownedCluster(ctx, user, clusterID)
	if err != nil {
		return err
	}
	if err := e.Store.RevokeApplicationOnCluster(ctx, c.ID, groupID, appName); err != nil {
		return newError(StoreFailure, "%v", err)
	}
	return nil
}

// ownedCluster resolves clusterID and checks that user may act on its
// owning group, the shared precondition for every allowed_groups/
// applications grant-management operation.
func (e *Executor) ownedCluster(ctx context.Context, user models.User, clusterID string) (models.Cluster, error) {
	c, err := e.Store.GetCluster(ctx, clusterID)
	if err != nil {
		return models.Cluster{}, newError(StoreFailure, "%v", err)
	}
	if !c.Valid {
		return models.Cluster{}, newError(NotFound, "no such cluster %q", clusterID)
	}
	allowed, err := e.Authz.MayActOnGroup(ctx, user, c.OwningGroup)
	if err != nil {
		return models.Cluster{}, newError(StoreFailure, "%v", err)
	}
	if !allowed {
		return models.Cluster{}, newError(Forbidden, "user may not manage access grants on cluster %s", c.Name)
	}
	return c, nil
}

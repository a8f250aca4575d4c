package executor

import (
	"context"

	"github.com/slateci/slate-federation/internal/models"
)

// InstanceLogsRequest carries the query parameters of
// GET /v1alpha3/instances/{id}/logs.
type InstanceLogsRequest struct {
	MaxLines  int
	Container string
	Previous  bool
}

// InstanceLogs implements the instance log-retrieval operation named
// alongside inspect/delete/scale/restart: it shells out to `kubectl logs`
// against the release's pods, selected by the standard Helm
// app.kubernetes.io/instance label rather than a caller-supplied pod name.
func (e *Executor) InstanceLogs(ctx context.Context, user models.User, instanceID string, req InstanceLogsRequest) (string, error) {
	inst, group, err := e.ownedInstance(ctx, user, instanceID)
	if err != nil {
		return "", err
	}

	maxLines := req.MaxLines
	if maxLines <= 0 {
		maxLines = 200
	}

	var logs string
	err = e.withKubeconfig(ctx, inst.Cluster, func(kubeconfigPath string) error {
		res, err := e.kubectlLogs(ctx, kubeconfigPath, group.NamespaceName(), inst.Name, maxLines, req.Container, req.Previous)
		if err != nil {
			return newError(UpstreamFailure, "invoking kubectl: %v", err)
		}
		if res.Status != 0 {
			return newError(UpstreamFailure, "%s", firstErrorLine(res.Output+res.Error))
		}
		logs = res.Output
		return nil
	})
	if err != nil {
		return "", err
	}
	return logs, nil
}

// ScaleInstance implements the instance scale operation: PUT
// /v1alpha3/instances/{id}/scale with body {replicas, deployment}. deployment
// names which Deployment within the release's chart to resize, since a
// chart may render more than one.
func (e *Executor) ScaleInstance(ctx context.Context, user models.User, instanceID string, replicas int, deployment string) error {
	if replicas < 0 {
		return newError(BadRequest, "replicas must be non-negative, got %d", replicas)
	}
	if deployment == "" {
		return newError(BadRequest, "deployment is required")
	}

	inst, group, err := e.ownedInstance(ctx, user, instanceID)
	if err != nil {
		return err
	}

	return e.withKubeconfig(ctx, inst.Cluster, func(kubeconfigPath string) error {
		res, err := e.kubectlScale(ctx, kubeconfigPath, group.NamespaceName(), deployment, replicas)
		if err != nil {
			return newError(UpstreamFailure, "invoking kubectl: %v", err)
		}
		if res.Status != 0 {
			return newError(UpstreamFailure, "%s", firstErrorLine(res.Output+res.Error))
		}
		return nil
	})
}

// RestartInstance rolls the named deployment within instanceID's release,
// the executor-level counterpart of `kubectl rollout restart`.
func (e *Executor) RestartInstance(ctx context.Context, user models.User, instanceID, deployment string) error {
	if deployment == "" {
		return newError(BadRequest, "deployment is required")
	}

	inst, group, err := e.ownedInstance(ctx, user, instanceID)
	if err != nil {
		return err
	}

	return e.withKubeconfig(ctx, inst.Cluster, func(kubeconfigPath string) error {
		res, err := e.kubectlRolloutRestart(ctx, kubeconfigPath, group.NamespaceName(), deployment)
		if err != nil {
			return newError(UpstreamFailure, "invoking kubectl: %v", err)
		}
		if res.Status != 0 {
			return newError(UpstreamFailure, "%s", firstErrorLine(res.Output+res.Error))
		}
		return nil
	})
}

// ownedInstance resolves instanceID, checks that user owns its group, and
// returns both the instance and its owning group (needed for the
// namespace) in one round trip, matching the authorization pattern already
// established by DeleteInstance.
func (e *Executor) ownedInstance(ctx context.Context, user models.User, instanceID string) (models.ApplicationInstance, models.Group, error) {
	inst, err := e.Store.GetApplicationInstance(ctx, instanceID)
	if err != nil {
		return models.ApplicationInstance{}, models.Group{}, newError(StoreFailure, "%v", err)
	}
	if !inst.Valid {
		return models.ApplicationInstance{}, models.Group{}, newError(NotFound, "no such instance %q", instanceID)
	}

	owns, err := e.Authz.OwnsInstance(ctx, user, inst.OwningGroup)
	if err != nil {
		return models.ApplicationInstance{}, models.Group{}, newError(StoreFailure, "%v", err)
	}
	if !owns {
		return models.ApplicationInstance{}, models.Group{}, newError(Forbidden, "user may not access instance %s", inst.Name)
	}

	group, err := e.Store.GetGroup(ctx, inst.OwningGroup)
	if err != nil {
		return models.ApplicationInstance{}, models.Group{}, newError(StoreFailure, "%v", err)
	}
	if !group.Valid {
		return models.ApplicationInstance{}, models.Group{}, newError(NotFound, "owning group of instance %s no longer exists", inst.Name)
	}

	return inst, group, nil
}

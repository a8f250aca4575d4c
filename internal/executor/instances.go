package executor

import (
	"context"

	"github.com/slateci/slate-federation/internal/models"
	"github.com/slateci/slate-federation/internal/pkg/metrics"
)

// GetInstance implements GET /instances/{id}.
func (e *Executor) GetInstance(ctx context.Context, user models.User, instanceID string) (models.ApplicationInstance, error) {
	inst, err := e.Store.GetApplicationInstance(ctx, instanceID)
	if err != nil {
		return models.ApplicationInstance{}, newError(StoreFailure, "%v", err)
	}
	if !inst.Valid {
		return models.ApplicationInstance{}, newError(NotFound, "no such instance %q", instanceID)
	}
	owns, err := e.Authz.OwnsInstance(ctx, user, inst.OwningGroup)
	if err != nil {
		return models.ApplicationInstance{}, newError(StoreFailure, "%v", err)
	}
	if !owns {
		return models.ApplicationInstance{}, newError(Forbidden, "user may not access instance %s", inst.Name)
	}
	return inst, nil
}

// DeleteInstance implements §4.5.2: uninstalling a Helm release is
// idempotent, so a release that is already gone counts as success. When
// force is true, the store record is removed even if the underlying helm
// invocation fails, since the caller (e.g. a group cascade delete) has
// already decided the record must not survive.
func (e *Executor) DeleteInstance(ctx context.Context, user models.User, instanceID string, force bool) error {
	inst, err := e.Store.GetApplicationInstance(ctx, instanceID)
	if err != nil {
		return newError(StoreFailure, "%v", err)
	}
	if !inst.Valid {
		return newError(NotFound, "no such instance %q", instanceID)
	}

	owns, err := e.Authz.OwnsInstance(ctx, user, inst.OwningGroup)
	if err != nil {
		return newError(StoreFailure, "%v", err)
	}
	if !owns {
		return newError(Forbidden, "user may not delete instance %s", inst.Name)
	}

	return e.deleteInstanceRecord(ctx, inst, force)
}

// deleteInstanceRecord runs the uninstall/remove sequence without the
// authorization check, for reuse by the cascade-delete paths that have
// already authorized the parent group or cluster deletion.
func (e *Executor) deleteInstanceRecord(ctx context.Context, inst models.ApplicationInstance, force bool) error {
	helmErr := e.withKubeconfig(ctx, inst.Cluster, func(kubeconfigPath string) error {
		res, err := e.helmDeletePurge(ctx, kubeconfigPath, inst.Name)
		if err != nil {
			return newError(UpstreamFailure, "invoking helm: %v", err)
		}
		if res.Status != 0 && !releaseDeletedOrGone(inst.Name, res) {
			return newError(UpstreamFailure, "%s", firstErrorLine(res.Output+res.Error))
		}
		return nil
	})

	if helmErr != nil && !force {
		return helmErr
	}
	if err := e.Store.RemoveApplicationInstance(ctx, inst.ID); err != nil {
		return newError(StoreFailure, "%v", err)
	}
	metrics.InstancesDeletedTotal.WithLabelValues(inst.Application).Inc()
	return helmErr
}

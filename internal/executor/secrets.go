package executor

import (
	"context"
	"encoding/base64"
	"fmt"
	"sort"
	"strings"

	"github.com/slateci/slate-federation/internal/models"
	"github.com/slateci/slate-federation/internal/secretcodec"
)

// validSecretKey reports whether key uses the Kubernetes Secret data-key
// alphabet named by §4.5.4 (letters, digits, '.', '_', '-') and is 1 to 253
// characters long.
func validSecretKey(key string) bool {
	if key == "" || len(key) > 253 {
		return false
	}
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '.' || r == '_' || r == '-':
		default:
			return false
		}
	}
	return true
}

// CreateSecretRequest is the plaintext input to CreateSecret. Data maps
// Secret data keys to their plaintext values; EncryptionPassword is the
// operator-configured key protecting the at-rest copy (SPEC_FULL.md §4.5.4,
// §9 "secret encryption password").
type CreateSecretRequest struct {
	Name               string
	GroupIDOrName      string
	ClusterIDOrName    string
	Data               map[string]string
	EncryptionPassword []byte
}

// CreateSecret implements §4.5.4.
func (e *Executor) CreateSecret(ctx context.Context, user models.User, req CreateSecretRequest) (models.Secret, error) {
	for key := range req.Data {
		if !validSecretKey(key) {
			return models.Secret{}, newError(BadRequest, "invalid secret key %q", key)
		}
	}
	if len(req.Data) == 0 {
		return models.Secret{}, newError(BadRequest, "secret must contain at least one key")
	}

	group, err := e.Store.GetGroupByIDOrName(ctx, req.GroupIDOrName)
	if err != nil {
		return models.Secret{}, newError(StoreFailure, "%v", err)
	}
	if !group.Valid {
		return models.Secret{}, newError(NotFound, "no such group %q", req.GroupIDOrName)
	}
	cluster, err := e.Store.GetClusterByIDOrName(ctx, req.ClusterIDOrName)
	if err != nil {
		return models.Secret{}, newError(StoreFailure, "%v", err)
	}
	if !cluster.Valid {
		return models.Secret{}, newError(NotFound, "no such cluster %q", req.ClusterIDOrName)
	}

	member, err := e.Authz.MayActOnGroup(ctx, user, group.ID)
	if err != nil {
		return models.Secret{}, newError(StoreFailure, "%v", err)
	}
	if !member {
		return models.Secret{}, newError(Forbidden, "user is not a member of group %s", group.Name)
	}

	manifest := secretManifest(req.Name, group.NamespaceName(), req.Data)

	encrypted, err := secretcodec.Encrypt([]byte(manifest), req.EncryptionPassword, secretcodec.DefaultParams())
	if err != nil {
		return models.Secret{}, newError(StoreFailure, "encrypting secret: %v", err)
	}

	sec, err := e.Store.AddSecret(ctx, models.Secret{
		Name:        req.Name,
		OwningGroup: group.ID,
		Cluster:     cluster.ID,
		Data:        encrypted,
	})
	if err != nil {
		return models.Secret{}, newError(StoreFailure, "%v", err)
	}

	applyErr := e.withKubeconfig(ctx, cluster.ID, func(kubeconfigPath string) error {
		res, err := e.kubectlApplyStdin(ctx, kubeconfigPath, manifest)
		if err != nil {
			return newError(UpstreamFailure, "invoking kubectl: %v", err)
		}
		if res.Status != 0 {
			return newError(UpstreamFailure, "%s", firstErrorLine(res.Output+res.Error))
		}
		return nil
	})
	if applyErr != nil {
		_ = e.Store.RemoveSecret(ctx, sec.ID)
		return models.Secret{}, applyErr
	}

	return sec, nil
}

// GetSecret implements GET /secrets/{id}: the requester must belong to (or
// administer) the secret's owning group, matching OwnsInstance's ownership
// rule for instances.
func (e *Executor) GetSecret(ctx context.Context, user models.User, id string) (models.Secret, error) {
	sec, err := e.Store.GetSecret(ctx, id)
	if err != nil {
		return models.Secret{}, newError(StoreFailure, "%v", err)
	}
	if !sec.Valid {
		return models.Secret{}, newError(NotFound, "no such secret %q", id)
	}
	owns, err := e.Authz.OwnsInstance(ctx, user, sec.OwningGroup)
	if err != nil {
		return models.Secret{}, newError(StoreFailure, "%v", err)
	}
	if !owns {
		return models.Secret{}, newError(Forbidden, "user may not access secret %s", sec.Name)
	}
	return sec, nil
}

// DeleteSecret implements DELETE /secrets/{id}: removes the Kubernetes
// Secret object (idempotent, like instance uninstall) then the store
// record.
func (e *Executor) DeleteSecret(ctx context.Context, user models.User, id string) error {
	sec, err := e.Store.GetSecret(ctx, id)
	if err != nil {
		return newError(StoreFailure, "%v", err)
	}
	if !sec.Valid {
		return newError(NotFound, "no such secret %q", id)
	}
	owns, err := e.Authz.OwnsInstance(ctx, user, sec.OwningGroup)
	if err != nil {
		return newError(StoreFailure, "%v", err)
	}
	if !owns {
		return newError(Forbidden, "user may not delete secret %s", sec.Name)
	}
	group, err := e.Store.GetGroup(ctx, sec.OwningGroup)
	if err != nil {
		return newError(StoreFailure, "%v", err)
	}
	if group.Valid {
		deleteErr := e.withKubeconfig(ctx, sec.Cluster, func(kubeconfigPath string) error {
			return e.kubectlDeleteSecret(ctx, kubeconfigPath, group.NamespaceName(), sec.Name)
		})
		if deleteErr != nil {
			return newError(UpstreamFailure, "%v", deleteErr)
		}
	}
	if err := e.Store.RemoveSecret(ctx, sec.ID); err != nil {
		return newError(StoreFailure, "%v", err)
	}
	return nil
}

// secretManifest renders a Kubernetes Secret object carrying every (key,
// value) pair in data as base64-encoded data fields.
func secretManifest(name, namespace string, data map[string]string) string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	fmt.Fprintf(&b, "apiVersion: v1\nkind: Secret\nmetadata:\n  name: %s\n  namespace: %s\ntype: Opaque\ndata:\n", name, namespace)
	for _, k := range keys {
		fmt.Fprintf(&b, "  %s: %s\n", k, base64.StdEncoding.EncodeToString([]byte(data[k])))
	}
	return b.String()
}

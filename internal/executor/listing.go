package executor

import (
	"context"

	"github.com/slateci/slate-federation/internal/models"
)

// ListItem is one entry in a listing envelope: a summary record tagged with
// its resource kind, matching the reference API's {kind, metadata} shape.
type ListItem struct {
	Kind     string `json:"kind"`
	Metadata any    `json:"metadata"`
}

// Envelope is the response body every ListX endpoint returns (§4.5.5).
type Envelope struct {
	APIVersion string     `json:"apiVersion"`
	Items      []ListItem `json:"items"`
}

const apiVersion = "v1alpha3"

// Envelop wraps summaries of a single kind into the standard listing
// response shape used by every ListX endpoint (§4.5.5).
func Envelop[T any](kind string, summaries []T) Envelope {
	items := make([]ListItem, 0, len(summaries))
	for _, s := range summaries {
		items = append(items, ListItem{Kind: kind, Metadata: s})
	}
	return Envelope{APIVersion: apiVersion, Items: items}
}

// ListUsers implements the admin-only GET /users route (§6).
func (e *Executor) ListUsers(ctx context.Context, user models.User) (Envelope, error) {
	if err := e.Authz.RequireAdmin(user); err != nil {
		return Envelope{}, newError(Forbidden, "listing users requires admin")
	}
	summaries, err := e.Store.ListUsers(ctx)
	if err != nil {
		return Envelope{}, newError(StoreFailure, "%v", err)
	}
	return Envelop("User", summaries), nil
}

// ListGroups implements GET /groups (§6): any authenticated user may list.
func (e *Executor) ListGroups(ctx context.Context) (Envelope, error) {
	summaries, err := e.Store.ListGroups(ctx)
	if err != nil {
		return Envelope{}, newError(StoreFailure, "%v", err)
	}
	return Envelop("Group", summaries), nil
}

// ListClusters implements GET /clusters (§6).
func (e *Executor) ListClusters(ctx context.Context) (Envelope, error) {
	summaries, err := e.Store.ListClusters(ctx)
	if err != nil {
		return Envelope{}, newError(StoreFailure, "%v", err)
	}
	return Envelop("Cluster", summaries), nil
}

// ListInstances implements GET /instances, optionally filtered to a single
// owning group.
func (e *Executor) ListInstances(ctx context.Context, groupID string) (Envelope, error) {
	var (
		summaries []models.InstanceSummary
		err       error
	)
	if groupID != "" {
		summaries, err = e.Store.ListApplicationInstancesByGroup(ctx, groupID)
	} else {
		summaries, err = e.Store.ListApplicationInstances(ctx)
	}
	if err != nil {
		return Envelope{}, newError(StoreFailure, "%v", err)
	}
	return Envelop("ApplicationInstance", summaries), nil
}

// ListSecrets implements GET /secrets, optionally filtered to a single
// owning group. Summaries never include the encrypted Data payload.
func (e *Executor) ListSecrets(ctx context.Context, groupID string) (Envelope, error) {
	var (
		summaries []models.SecretSummary
		err       error
	)
	if groupID != "" {
		summaries, err = e.Store.ListSecretsByGroup(ctx, groupID)
	} else {
		summaries, err = e.Store.ListSecrets(ctx)
	}
	if err != nil {
		return Envelope{}, newError(StoreFailure, "%v", err)
	}
	return Envelop("Secret", summaries), nil
}

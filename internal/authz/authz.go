// Package authz implements the authorization kernel described in
// SPEC_FULL.md §4.4, grounded on original_source's UserCommands.cpp and
// GroupCommands.cpp predicate shapes (findUserByToken followed by
// membership/ownership checks). Every predicate beyond the initial token
// lookup is backed by internal/store's cached relation multimaps, so the
// common case needs no database round trip.
package authz

import (
	"context"
	"errors"

	"github.com/slateci/slate-federation/internal/models"
	"github.com/slateci/slate-federation/internal/store"
)

// ErrUnauthenticated means the request's access token does not resolve to
// any user.
var ErrUnauthenticated = errors.New("authz: invalid or unrecognized access token")

// ErrForbidden means an authenticated user attempted an operation they lack
// permission for.
var ErrForbidden = errors.New("authz: not permitted")

// Kernel evaluates authorization predicates against a persistent store.
type Kernel struct {
	store *store.Store
}

func New(s *store.Store) *Kernel {
	return &Kernel{store: s}
}

// Authenticate resolves a bearer token to its owning user. Returns
// ErrUnauthenticated if the token is unrecognized.
func (k *Kernel) Authenticate(ctx context.Context, token string) (models.User, error) {
	u, err := k.store.FindUserByToken(ctx, token)
	if err != nil {
		return models.User{}, err
	}
	if !u.Valid {
		return models.User{}, ErrUnauthenticated
	}
	return u, nil
}

// MayActOnGroup reports whether u may perform member-level operations on
// group g: platform admins always may; otherwise membership is required
// (§4.4 rule 2).
func (k *Kernel) MayActOnGroup(ctx context.Context, u models.User, groupID string) (bool, error) {
	if u.Admin {
		return true, nil
	}
	return k.store.UserInGroup(ctx, u.ID, groupID)
}

// MayInstallOnCluster reports whether group groupID may install application
// appName on cluster clusterID (§4.4 rule 3): the group must own the
// cluster, or hold an access grant to it, AND hold an app grant (exact name
// or the "*" wildcard) for it.
func (k *Kernel) MayInstallOnCluster(ctx context.Context, groupID, clusterID, appName string) (bool, error) {
	c, err := k.store.GetCluster(ctx, clusterID)
	if err != nil {
		return false, err
	}
	if !c.Valid {
		return false, nil
	}

	hasClusterAccess := c.OwningGroup == groupID
	if !hasClusterAccess {
		hasClusterAccess, err = k.store.GroupAllowedOnCluster(ctx, clusterID, groupID)
		if err != nil {
			return false, err
		}
	}
	if !hasClusterAccess {
		return false, nil
	}

	return k.store.GroupAllowedApplicationOnCluster(ctx, clusterID, groupID, appName)
}

// OwnsInstance reports whether u may act on an instance/secret owned by
// owningGroup: admins always may; otherwise membership in owningGroup is
// required (§4.4 rule 4).
func (k *Kernel) OwnsInstance(ctx context.Context, u models.User, owningGroup string) (bool, error) {
	if u.Admin {
		return true, nil
	}
	return k.store.UserInGroup(ctx, u.ID, owningGroup)
}

// RequireAdmin implements §4.4 rule 5: platform-wide operations (listing all
// users, deleting other users) are admin-only.
func (k *Kernel) RequireAdmin(u models.User) error {
	if !u.Admin {
		return ErrForbidden
	}
	return nil
}

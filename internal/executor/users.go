package executor

import (
	"context"

	"github.com/slateci/slate-federation/internal/models"
	"github.com/slateci/slate-federation/internal/store"
)

// CreateUserRequest is the input to CreateUser. ExternalID is the
// federation-external identity (e.g. a CILogon/Globus subject) this account
// is bound to, matching original_source's UserCommands.cpp "globusID".
type CreateUserRequest struct {
	Name        string
	Email       string
	Phone       string
	Institution string
	ExternalID  string
	Admin       bool
}

// CreateUser implements §6's admin-only POST /users, grounded on
// original_source/src/UserCommands.cpp's createUser: only an admin may
// create accounts, the external ID must be globally unique, and the
// returned record carries its newly generated bearer token (§6's response
// is the only time a token is ever echoed back).
func (e *Executor) CreateUser(ctx context.Context, user models.User, req CreateUserRequest) (models.User, error) {
	if err := e.Authz.RequireAdmin(user); err != nil {
		return models.User{}, newError(Forbidden, "creating users requires admin")
	}
	if req.Name == "" || req.Email == "" {
		return models.User{}, newError(BadRequest, "name and email are required")
	}
	if req.ExternalID != "" {
		existing, err := e.Store.FindUserByExternalID(ctx, req.ExternalID)
		if err != nil {
			return models.User{}, newError(StoreFailure, "%v", err)
		}
		if existing.Valid {
			return models.User{}, newError(Conflict, "external ID %q is already registered", req.ExternalID)
		}
	}

	created, err := e.Store.AddUser(ctx, models.User{
		Name:        req.Name,
		Email:       req.Email,
		Phone:       req.Phone,
		Institution: req.Institution,
		ExternalID:  req.ExternalID,
		Admin:       req.Admin,
	})
	if err != nil {
		if err == store.ErrConflict {
			return models.User{}, newError(Conflict, "user already exists")
		}
		return models.User{}, newError(StoreFailure, "%v", err)
	}
	return created, nil
}

// GetUser implements GET /users/{id}: any authenticated user may fetch
// their own record; fetching another user's record requires admin.
func (e *Executor) GetUser(ctx context.Context, requester models.User, id string) (models.User, error) {
	target, err := e.Store.GetUser(ctx, id)
	if err != nil {
		return models.User{}, newError(StoreFailure, "%v", err)
	}
	if !target.Valid {
		return models.User{}, newError(NotFound, "no such user %q", id)
	}
	if target.ID != requester.ID {
		if err := e.Authz.RequireAdmin(requester); err != nil {
			return models.User{}, newError(Forbidden, "may not view another user's account")
		}
	}
	return target, nil
}

// FindUserByExternalID implements the admin-only GET /find_user?globus_id=.
func (e *Executor) FindUserByExternalID(ctx context.Context, requester models.User, externalID string) (models.User, error) {
	if err := e.Authz.RequireAdmin(requester); err != nil {
		return models.User{}, newError(Forbidden, "finding users requires admin")
	}
	target, err := e.Store.FindUserByExternalID(ctx, externalID)
	if err != nil {
		return models.User{}, newError(StoreFailure, "%v", err)
	}
	if !target.Valid {
		return models.User{}, newError(NotFound, "no user with external ID %q", externalID)
	}
	return target, nil
}

// DeleteUser implements DELETE /users/{id}: a user may remove their own
// account; removing another account requires admin.
func (e *Executor) DeleteUser(ctx context.Context, requester models.User, id string) error {
	target, err := e.Store.GetUser(ctx, id)
	if err != nil {
		return newError(StoreFailure, "%v", err)
	}
	if !target.Valid {
		return newError(NotFound, "no such user %q", id)
	}
	if target.ID != requester.ID {
		if err := e.Authz.RequireAdmin(requester); err != nil {
			return newError(Forbidden, "may not delete another user's account")
		}
	}
	if err := e.Store.RemoveUser(ctx, id); err != nil {
		return newError(StoreFailure, "%v", err)
	}
	return nil
}

// UserGroupsEnvelope implements GET /users/{id}/groups.
func (e *Executor) UserGroupsEnvelope(ctx context.Context, requester models.User, id string) (Envelope, error) {
	target, err := e.Store.GetUser(ctx, id)
	if err != nil {
		return Envelope{}, newError(StoreFailure, "%v", err)
	}
	if !target.Valid {
		return Envelope{}, newError(NotFound, "no such user %q", id)
	}
	if target.ID != requester.ID {
		if err := e.Authz.RequireAdmin(requester); err != nil {
			return Envelope{}, newError(Forbidden, "may not view another user's group memberships")
		}
	}
	groupIDs, err := e.Store.UserGroups(ctx, id)
	if err != nil {
		return Envelope{}, newError(StoreFailure, "%v", err)
	}
	summaries := make([]models.GroupSummary, 0, len(groupIDs))
	for _, gid := range groupIDs {
		g, err := e.Store.GetGroup(ctx, gid)
		if err != nil || !g.Valid {
			continue
		}
		summaries = append(summaries, g.Summary())
	}
	return Envelop("Group", summaries), nil
}

// AddUserToGroup implements PUT /users/{id}/groups/{group_id}: the acting
// user must already belong to the target group (or be admin) to add
// someone else to it, matching original_source's membership-addition rule.
func (e *Executor) AddUserToGroup(ctx context.Context, requester models.User, userID, groupID string) error {
	group, err := e.Store.GetGroup(ctx, groupID)
	if err != nil {
		return newError(StoreFailure, "%v", err)
	}
	if !group.Valid {
		return newError(NotFound, "no such group %q", groupID)
	}
	allowed, err := e.Authz.MayActOnGroup(ctx, requester, group.ID)
	if err != nil {
		return newError(StoreFailure, "%v", err)
	}
	if !allowed {
		return newError(Forbidden, "user may not add members to group %s", group.Name)
	}
	target, err := e.Store.GetUser(ctx, userID)
	if err != nil {
		return newError(StoreFailure, "%v", err)
	}
	if !target.Valid {
		return newError(NotFound, "no such user %q", userID)
	}
	if err := e.Store.AddUserToGroup(ctx, userID, group.ID); err != nil {
		return newError(StoreFailure, "%v", err)
	}
	return nil
}

// RemoveUserFromGroup implements DELETE /users/{id}/groups/{group_id}.
func (e *Executor) RemoveUserFromGroup(ctx context.Context, requester models.User, userID, groupID string) error {
	group, err := e.Store.GetGroup(ctx, groupID)
	if err != nil {
		return newError(StoreFailure, "%v", err)
	}
	if !group.Valid {
		return newError(NotFound, "no such group %q", groupID)
	}
	allowed, err := e.Authz.MayActOnGroup(ctx, requester, group.ID)
	if err != nil {
		return newError(StoreFailure, "%v", err)
	}
	if !allowed {
		return newError(Forbidden, "user may not remove members from group %s", group.Name)
	}
	if err := e.Store.RemoveUserFromGroup(ctx, userID, group.ID); err != nil {
		return newError(StoreFailure, "%v", err)
	}
	return nil
}

package executor

import (
	"context"

	"github.com/slateci/slate-federation/internal/models"
	"github.com/slateci/slate-federation/internal/store"
)

// CreateGroupRequest is the input to CreateGroup.
type CreateGroupRequest struct {
	Name         string
	Email        string
	Phone        string
	ScienceField string
	Description  string
}

// CreateGroup implements §6's POST /groups: any authenticated user may
// found a new group, becoming its first member. Grounded on
// original_source/src/GroupCommands.cpp's createGroup (name validity,
// closed science-field vocabulary).
func (e *Executor) CreateGroup(ctx context.Context, user models.User, req CreateGroupRequest) (models.Group, error) {
	if !models.ValidGroupName(req.Name) {
		return models.Group{}, newError(BadRequest, "invalid group name %q", req.Name)
	}
	if !models.ValidScienceField(req.ScienceField) {
		return models.Group{}, newError(BadRequest, "invalid field of science %q", req.ScienceField)
	}
	if req.Email == "" {
		return models.Group{}, newError(BadRequest, "email is required")
	}

	created, err := e.Store.AddGroup(ctx, models.Group{
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
		ScienceField: req.ScienceField,
		Description:  req.Description,
	})
	if err != nil {
		if err == store.ErrConflict {
			return models.Group{}, newError(Conflict, "group name %q already in use", req.Name)
		}
		return models.Group{}, newError(StoreFailure, "%v", err)
	}
	if err := e.Store.AddUserToGroup(ctx, user.ID, created.ID); err != nil {
		return models.Group{}, newError(StoreFailure, "%v", err)
	}
	return created, nil
}

// GetGroup implements GET /groups/{id}.
func (e *Executor) GetGroup(ctx context.Context, id string) (models.Group, error) {
	g, err := e.Store.GetGroupByIDOrName(ctx, id)
	if err != nil {
		return models.Group{}, newError(StoreFailure, "%v", err)
	}
	if !g.Valid {
		return models.Group{}, newError(NotFound, "no such group %q", id)
	}
	return g, nil
}

// UpdateGroupRequest carries the mutable subset of a Group's fields; a zero
// value leaves the current field unchanged.
type UpdateGroupRequest struct {
	Email        string
	Phone        string
	ScienceField string
	Description  string
}

// UpdateGroup implements PUT /groups/{id}.
func (e *Executor) UpdateGroup(ctx context.Context, user models.User, id string, req UpdateGroupRequest) (models.Group, error) {
	g, err := e.Store.GetGroup(ctx, id)
	if err != nil {
		return models.Group{}, newError(StoreFailure, "%v", err)
	}
	if !g.Valid {
		return models.Group{}, newError(NotFound, "no such group %q", id)
	}
	allowed, err := e.Authz.MayActOnGroup(ctx, user, g.ID)
	if err != nil {
		return models.Group{}, newError(StoreFailure, "%v", err)
	}
	if !allowed {
		return models.Group{}, newError(Forbidden, "user may not update group %s", g.Name)
	}
	if req.ScienceField != "" && !models.ValidScienceField(req.ScienceField) {
		return models.Group{}, newError(BadRequest, "invalid field of science %q", req.ScienceField)
	}

	if req.Email != "" {
		g.Email = req.Email
	}
	if req.Phone != "" {
		g.Phone = req.Phone
	}
	if req.ScienceField != "" {
		g.ScienceField = req.ScienceField
	}
	if req.Description != "" {
		g.Description = req.Description
	}
	if err := e.Store.UpdateGroup(ctx, g); err != nil {
		return models.Group{}, newError(StoreFailure, "%v", err)
	}
	return g, nil
}

// GroupMembersEnvelope implements GET /groups/{id}/members.
func (e *Executor) GroupMembersEnvelope(ctx context.Context, id string) (Envelope, error) {
	g, err := e.Store.GetGroup(ctx, id)
	if err != nil {
		return Envelope{}, newError(StoreFailure, "%v", err)
	}
	if !g.Valid {
		return Envelope{}, newError(NotFound, "no such group %q", id)
	}
	memberIDs, err := e.Store.GroupMembers(ctx, id)
	if err != nil {
		return Envelope{}, newError(StoreFailure, "%v", err)
	}
	summaries := make([]models.UserSummary, 0, len(memberIDs))
	for _, uid := range memberIDs {
		u, err := e.Store.GetUser(ctx, uid)
		if err != nil || !u.Valid {
			continue
		}
		summaries = append(summaries, u.Summary())
	}
	return Envelop("User", summaries), nil
}

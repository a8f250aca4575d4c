package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/slateci/slate-federation/internal/kvstore"
	"github.com/slateci/slate-federation/internal/models"
	"github.com/slateci/slate-federation/internal/pkg/metrics"
)

const tableGroupsByName = "groups_by_name"

func groupToItem(g models.Group) kvstore.Item {
	return kvstore.Item{
		Table: tableGroups,
		Key:   g.ID,
		Attrs: map[string]string{
			"name":         g.Name,
			"email":        g.Email,
			"phone":        g.Phone,
			"scienceField": g.ScienceField,
			"description":  g.Description,
		},
	}
}

func groupFromItem(item kvstore.Item) models.Group {
	return models.Group{
		Valid:        true,
		ID:           item.Key,
		Name:         item.Attrs["name"],
		Email:        item.Attrs["email"],
		Phone:        item.Attrs["phone"],
		ScienceField: item.Attrs["scienceField"],
		Description:  item.Attrs["description"],
	}
}

// AddGroup stores a new group record after confirming its name is unused.
func (s *Store) AddGroup(ctx context.Context, g models.Group) (models.Group, error) {
	g.ID = s.ids.NewGroupID()
	if err := s.backend.PutIfAbsent(ctx, kvstore.Item{Table: tableGroupsByName, Key: g.Name, Attrs: map[string]string{"groupId": g.ID}}); err != nil {
		if errors.Is(err, kvstore.ErrConflict) {
			return models.Group{}, ErrConflict
		}
		return models.Group{}, fmt.Errorf("%w: %w", ErrStoreFailure, err)
	}
	if err := s.backend.Put(ctx, groupToItem(g)); err != nil {
		return models.Group{}, fmt.Errorf("%w: %w", ErrStoreFailure, err)
	}
	s.groupsByID.Set(g.ID, g)
	s.groupsByName.Set(g.Name, g.ID)
	return g, nil
}

// GetGroup returns the group record for id, or Valid=false if unknown.
func (s *Store) GetGroup(ctx context.Context, id string) (models.Group, error) {
	if g, ok := s.groupsByID.Get(id); ok {
		return g, nil
	}
	item, err := s.backend.Get(ctx, tableGroups, id)
	if errors.Is(err, kvstore.ErrNotFound) {
		return models.Group{}, nil
	}
	if err != nil {
		return models.Group{}, fmt.Errorf("%w: %w", ErrStoreFailure, err)
	}
	g := groupFromItem(item)
	s.groupsByID.Set(id, g)
	return g, nil
}

// FindGroupByName resolves a group's unique name to its record.
func (s *Store) FindGroupByName(ctx context.Context, name string) (models.Group, error) {
	if id, ok := s.groupsByName.Get(name); ok {
		return s.GetGroup(ctx, id)
	}
	item, err := s.backend.Get(ctx, tableGroupsByName, name)
	if errors.Is(err, kvstore.ErrNotFound) {
		return models.Group{}, nil
	}
	if err != nil {
		return models.Group{}, fmt.Errorf("%w: %w", ErrStoreFailure, err)
	}
	id := item.Attrs["groupId"]
	s.groupsByName.Set(name, id)
	return s.GetGroup(ctx, id)
}

// GetGroupByIDOrName tries id first, falling back to a name lookup, matching
// the reference's "UUID or name" accessor convention.
func (s *Store) GetGroupByIDOrName(ctx context.Context, idOrName string) (models.Group, error) {
	g, err := s.GetGroup(ctx, idOrName)
	if err != nil {
		return models.Group{}, err
	}
	if g.Valid {
		return g, nil
	}
	return s.FindGroupByName(ctx, idOrName)
}

// UpdateGroup writes a changed group record and invalidates its cache entry.
func (s *Store) UpdateGroup(ctx context.Context, g models.Group) error {
	if err := s.backend.Put(ctx, groupToItem(g)); err != nil {
		return fmt.Errorf("%w: %w", ErrStoreFailure, err)
	}
	s.groupsByID.Invalidate(g.ID)
	return nil
}

// RemoveGroup deletes a group record and its name index. Callers are
// responsible for cascading deletion of owned clusters/instances/secrets
// (internal/cascade) before or after calling this, per §4.5.3's ordering.
func (s *Store) RemoveGroup(ctx context.Context, id string) error {
	g, err := s.GetGroup(ctx, id)
	if err != nil {
		return err
	}
	if err := s.backend.Delete(ctx, tableGroups, id); err != nil {
		return fmt.Errorf("%w: %w", ErrStoreFailure, err)
	}
	if g.Valid {
		_ = s.backend.Delete(ctx, tableGroupsByName, g.Name)
		s.groupsByName.Invalidate(g.Name)
	}
	s.groupsByID.Invalidate(id)
	return nil
}

// ListGroups returns every group's summary view, read fresh from the
// database per §4.3's listing-operations rule.
func (s *Store) ListGroups(ctx context.Context) ([]models.GroupSummary, error) {
	items, err := s.backend.Scan(ctx, tableGroups)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreFailure, err)
	}
	summaries := make([]models.GroupSummary, 0, len(items))
	for _, item := range items {
		summaries = append(summaries, groupFromItem(item).Summary())
	}
	return summaries, nil
}

// --- membership relation (§4.2, §4.3 tier 3) ---

// AddUserToGroup persists membership and refreshes both directions of the
// cached relation.
func (s *Store) AddUserToGroup(ctx context.Context, userID, groupID string) error {
	if err := s.backend.Put(ctx, kvstore.Item{Table: tableGroupMembers, Key: groupID + "|" + userID}); err != nil {
		return fmt.Errorf("%w: %w", ErrStoreFailure, err)
	}
	s.userGroups.InsertOrAssign(userID, groupID, relationTTL(s.cfg))
	s.groupUsers.InsertOrAssign(groupID, userID, relationTTL(s.cfg))
	return nil
}

// RemoveUserFromGroup removes membership from storage and both cache
// directions.
func (s *Store) RemoveUserFromGroup(ctx context.Context, userID, groupID string) error {
	if err := s.backend.Delete(ctx, tableGroupMembers, groupID+"|"+userID); err != nil {
		return fmt.Errorf("%w: %w", ErrStoreFailure, err)
	}
	s.userGroups.EraseValue(userID, groupID)
	s.groupUsers.EraseValue(groupID, userID)
	return nil
}

// UserInGroup answers the authorization kernel's core membership predicate.
// On a cache miss it scans the persisted relation table once and
// repopulates both directions, since a single DynamoDB-style get-item isn't
// available against the generic relation table.
func (s *Store) UserInGroup(ctx context.Context, userID, groupID string) (bool, error) {
	if s.userGroups.ContainsValue(userID, groupID) {
		s.userGroups.UpdateExpiration(userID, relationTTL(s.cfg))
		return true, nil
	}
	if err := s.warmGroupMembership(ctx, groupID); err != nil {
		return false, err
	}
	return s.userGroups.ContainsValue(userID, groupID), nil
}

// GroupMembers returns every user ID belonging to groupID.
func (s *Store) GroupMembers(ctx context.Context, groupID string) ([]string, error) {
	if s.groupUsers.Contains(groupID) {
		metrics.CacheHitsTotal.WithLabelValues("relation").Inc()
		s.groupUsers.UpdateExpiration(groupID, relationTTL(s.cfg))
		return s.groupUsers.Find(groupID), nil
	}
	metrics.CacheMissesTotal.WithLabelValues("relation").Inc()
	if err := s.warmGroupMembership(ctx, groupID); err != nil {
		return nil, err
	}
	return s.groupUsers.Find(groupID), nil
}

// UserGroups returns every group ID userID belongs to.
func (s *Store) UserGroups(ctx context.Context, userID string) ([]string, error) {
	if s.userGroups.Contains(userID) {
		metrics.CacheHitsTotal.WithLabelValues("relation").Inc()
		s.userGroups.UpdateExpiration(userID, relationTTL(s.cfg))
		return s.userGroups.Find(userID), nil
	}
	metrics.CacheMissesTotal.WithLabelValues("relation").Inc()
	items, err := s.backend.Scan(ctx, tableGroupMembers)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreFailure, err)
	}
	var groups []string
	for _, item := range items {
		groupID, memberID, ok := splitPair(item.Key)
		if !ok || memberID != userID {
			continue
		}
		groups = append(groups, groupID)
		s.userGroups.InsertOrAssign(userID, groupID, relationTTL(s.cfg))
		s.groupUsers.InsertOrAssign(groupID, userID, relationTTL(s.cfg))
	}
	return groups, nil
}

func (s *Store) warmGroupMembership(ctx context.Context, groupID string) error {
	items, err := s.backend.Scan(ctx, tableGroupMembers)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStoreFailure, err)
	}
	for _, item := range items {
		gID, userID, ok := splitPair(item.Key)
		if !ok || gID != groupID {
			continue
		}
		s.userGroups.InsertOrAssign(userID, groupID, relationTTL(s.cfg))
		s.groupUsers.InsertOrAssign(groupID, userID, relationTTL(s.cfg))
	}
	return nil
}

func splitPair(key string) (first, second string, ok bool) {
	for i := 0; i < len(key); i++ {
		if key[i] == '|' {
			return key[:i], key[i+1:], true
		}
	}
	return "", "", false
}

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/slateci/slate-federation/internal/kvstore"
	"github.com/slateci/slate-federation/internal/models"
)

const tableInstancesByName = "instances_by_name"

func instanceToItem(inst models.ApplicationInstance) kvstore.Item {
	return kvstore.Item{
		Table: tableInstances,
		Key:   inst.ID,
		Attrs: map[string]string{
			"name":        inst.Name,
			"application": inst.Application,
			"owningGroup": inst.OwningGroup,
			"cluster":     inst.Cluster,
			"config":      inst.Config,
			"createdAt":   inst.CreatedAt.Format(time.RFC3339),
		},
	}
}

func instanceFromItem(item kvstore.Item) models.ApplicationInstance {
	createdAt, _ := time.Parse(time.RFC3339, item.Attrs["createdAt"])
	return models.ApplicationInstance{
		Valid:       true,
		ID:          item.Key,
		Name:        item.Attrs["name"],
		Application: item.Attrs["application"],
		OwningGroup: item.Attrs["owningGroup"],
		Cluster:     item.Attrs["cluster"],
		Config:      item.Attrs["config"],
		CreatedAt:   createdAt,
	}
}

// AddApplicationInstance stores a new instance record after confirming its
// derived name is globally unique among non-deleted instances (§3
// invariant).
func (s *Store) AddApplicationInstance(ctx context.Context, inst models.ApplicationInstance) (models.ApplicationInstance, error) {
	inst.ID = s.ids.NewInstanceID()
	if inst.CreatedAt.IsZero() {
		inst.CreatedAt = time.Now().UTC()
	}
	if err := s.backend.PutIfAbsent(ctx, kvstore.Item{Table: tableInstancesByName, Key: inst.Name, Attrs: map[string]string{"instanceId": inst.ID}}); err != nil {
		if errors.Is(err, kvstore.ErrConflict) {
			return models.ApplicationInstance{}, ErrConflict
		}
		return models.ApplicationInstance{}, fmt.Errorf("%w: %w", ErrStoreFailure, err)
	}
	if err := s.backend.Put(ctx, instanceToItem(inst)); err != nil {
		return models.ApplicationInstance{}, fmt.Errorf("%w: %w", ErrStoreFailure, err)
	}
	s.instancesByID.Set(inst.ID, inst)
	return inst, nil
}

// GetApplicationInstance returns the instance record for id, with Config
// left empty; use GetApplicationInstanceConfig for the stored config
// separately, matching the reference deployment's split accessor (large
// config blobs are not paid for by callers that only need metadata).
func (s *Store) GetApplicationInstance(ctx context.Context, id string) (models.ApplicationInstance, error) {
	if inst, ok := s.instancesByID.Get(id); ok {
		inst.Config = ""
		return inst, nil
	}
	item, err := s.backend.Get(ctx, tableInstances, id)
	if errors.Is(err, kvstore.ErrNotFound) {
		return models.ApplicationInstance{}, nil
	}
	if err != nil {
		return models.ApplicationInstance{}, fmt.Errorf("%w: %w", ErrStoreFailure, err)
	}
	inst := instanceFromItem(item)
	s.instancesByID.Set(id, inst)
	inst.Config = ""
	return inst, nil
}

// GetApplicationInstanceConfig returns the stored config text for id, or
// the empty string if id is unknown.
func (s *Store) GetApplicationInstanceConfig(ctx context.Context, id string) (string, error) {
	if inst, ok := s.instancesByID.Get(id); ok {
		return inst.Config, nil
	}
	item, err := s.backend.Get(ctx, tableInstances, id)
	if errors.Is(err, kvstore.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrStoreFailure, err)
	}
	inst := instanceFromItem(item)
	s.instancesByID.Set(id, inst)
	return inst.Config, nil
}

// RemoveApplicationInstance deletes an instance record and its name index.
func (s *Store) RemoveApplicationInstance(ctx context.Context, id string) error {
	item, err := s.backend.Get(ctx, tableInstances, id)
	if err != nil && !errors.Is(err, kvstore.ErrNotFound) {
		return fmt.Errorf("%w: %w", ErrStoreFailure, err)
	}
	if err == nil {
		inst := instanceFromItem(item)
		_ = s.backend.Delete(ctx, tableInstancesByName, inst.Name)
	}
	if err := s.backend.Delete(ctx, tableInstances, id); err != nil {
		return fmt.Errorf("%w: %w", ErrStoreFailure, err)
	}
	s.instancesByID.Invalidate(id)
	return nil
}

// ListApplicationInstances returns every instance's summary view, read
// fresh from the database.
func (s *Store) ListApplicationInstances(ctx context.Context) ([]models.InstanceSummary, error) {
	items, err := s.backend.Scan(ctx, tableInstances)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreFailure, err)
	}
	summaries := make([]models.InstanceSummary, 0, len(items))
	for _, item := range items {
		summaries = append(summaries, instanceFromItem(item).Summary())
	}
	return summaries, nil
}

// ListApplicationInstancesByGroup filters ListApplicationInstances to those
// owned by groupID, used by the group cascade-delete algorithm.
func (s *Store) ListApplicationInstancesByGroup(ctx context.Context, groupID string) ([]models.InstanceSummary, error) {
	all, err := s.ListApplicationInstances(ctx)
	if err != nil {
		return nil, err
	}
	var owned []models.InstanceSummary
	for _, inst := range all {
		if inst.OwningGroup == groupID {
			owned = append(owned, inst)
		}
	}
	return owned, nil
}

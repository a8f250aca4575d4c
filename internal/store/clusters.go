package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/slateci/slate-federation/internal/kvstore"
	"github.com/slateci/slate-federation/internal/models"
	"github.com/slateci/slate-federation/internal/pkg/metrics"
)

const tableClustersByName = "clusters_by_name"

func clusterToItem(c models.Cluster) kvstore.Item {
	attrs := map[string]string{
		"name":            c.Name,
		"owningGroup":     c.OwningGroup,
		"owningOrg":       c.OwningOrg,
		"config":          c.Config,
		"systemNamespace": c.SystemNamespace,
		"locationCount":   strconv.Itoa(len(c.Locations)),
	}
	for i, loc := range c.Locations {
		attrs[fmt.Sprintf("loc%dLat", i)] = strconv.FormatFloat(loc.Latitude, 'f', -1, 64)
		attrs[fmt.Sprintf("loc%dLng", i)] = strconv.FormatFloat(loc.Longitude, 'f', -1, 64)
	}
	return kvstore.Item{Table: tableClusters, Key: c.ID, Attrs: attrs}
}

func clusterFromItem(item kvstore.Item) models.Cluster {
	n, _ := strconv.Atoi(item.Attrs["locationCount"])
	locs := make([]models.GeoPoint, 0, n)
	for i := 0; i < n; i++ {
		lat, _ := strconv.ParseFloat(item.Attrs[fmt.Sprintf("loc%dLat", i)], 64)
		lng, _ := strconv.ParseFloat(item.Attrs[fmt.Sprintf("loc%dLng", i)], 64)
		locs = append(locs, models.GeoPoint{Latitude: lat, Longitude: lng})
	}
	return models.Cluster{
		Valid:           true,
		ID:              item.Key,
		Name:            item.Attrs["name"],
		OwningGroup:     item.Attrs["owningGroup"],
		OwningOrg:       item.Attrs["owningOrg"],
		Config:          item.Attrs["config"],
		SystemNamespace: item.Attrs["systemNamespace"],
		Locations:       locs,
	}
}

// AddCluster stores a new cluster record after confirming its name is
// unused, and registers it in its owning group's reverse-index multimap.
func (s *Store) AddCluster(ctx context.Context, c models.Cluster) (models.Cluster, error) {
	c.ID = s.ids.NewClusterID()
	if err := s.backend.PutIfAbsent(ctx, kvstore.Item{Table: tableClustersByName, Key: c.Name, Attrs: map[string]string{"clusterId": c.ID}}); err != nil {
		if errors.Is(err, kvstore.ErrConflict) {
			return models.Cluster{}, ErrConflict
		}
		return models.Cluster{}, fmt.Errorf("%w: %w", ErrStoreFailure, err)
	}
	if err := s.backend.Put(ctx, clusterToItem(c)); err != nil {
		return models.Cluster{}, fmt.Errorf("%w: %w", ErrStoreFailure, err)
	}
	s.clustersByID.Set(c.ID, c)
	s.clustersByName.Set(c.Name, c.ID)
	s.groupClusters.InsertOrAssign(c.OwningGroup, c.ID, relationTTL(s.cfg))
	return c, nil
}

// GetCluster returns the cluster record for id, or Valid=false if unknown.
func (s *Store) GetCluster(ctx context.Context, id string) (models.Cluster, error) {
	if c, ok := s.clustersByID.Get(id); ok {
		return c, nil
	}
	item, err := s.backend.Get(ctx, tableClusters, id)
	if errors.Is(err, kvstore.ErrNotFound) {
		return models.Cluster{}, nil
	}
	if err != nil {
		return models.Cluster{}, fmt.Errorf("%w: %w", ErrStoreFailure, err)
	}
	c := clusterFromItem(item)
	s.clustersByID.Set(id, c)
	return c, nil
}

// FindClusterByName resolves a cluster's unique name to its record.
func (s *Store) FindClusterByName(ctx context.Context, name string) (models.Cluster, error) {
	if id, ok := s.clustersByName.Get(name); ok {
		return s.GetCluster(ctx, id)
	}
	item, err := s.backend.Get(ctx, tableClustersByName, name)
	if errors.Is(err, kvstore.ErrNotFound) {
		return models.Cluster{}, nil
	}
	if err != nil {
		return models.Cluster{}, fmt.Errorf("%w: %w", ErrStoreFailure, err)
	}
	id := item.Attrs["clusterId"]
	s.clustersByName.Set(name, id)
	return s.GetCluster(ctx, id)
}

// GetClusterByIDOrName tries id first, falling back to a name lookup.
func (s *Store) GetClusterByIDOrName(ctx context.Context, idOrName string) (models.Cluster, error) {
	c, err := s.GetCluster(ctx, idOrName)
	if err != nil {
		return models.Cluster{}, err
	}
	if c.Valid {
		return c, nil
	}
	return s.FindClusterByName(ctx, idOrName)
}

// UpdateCluster writes a changed cluster record, invalidates its cache
// entries, and invalidates (without destroying for existing holders) its
// materialized kubeconfig handle so the next ConfigPathForCluster call
// re-writes the file with the new config.
func (s *Store) UpdateCluster(ctx context.Context, c models.Cluster) error {
	if err := s.backend.Put(ctx, clusterToItem(c)); err != nil {
		return fmt.Errorf("%w: %w", ErrStoreFailure, err)
	}
	s.clustersByID.Invalidate(c.ID)
	s.kubeconfigs.invalidate(c.ID)
	return nil
}

// RemoveCluster deletes a cluster record, its name index, its reverse
// ownership-index entry, and its kubeconfig handle.
func (s *Store) RemoveCluster(ctx context.Context, id string) error {
	c, err := s.GetCluster(ctx, id)
	if err != nil {
		return err
	}
	if err := s.backend.Delete(ctx, tableClusters, id); err != nil {
		return fmt.Errorf("%w: %w", ErrStoreFailure, err)
	}
	if c.Valid {
		_ = s.backend.Delete(ctx, tableClustersByName, c.Name)
		s.clustersByName.Invalidate(c.Name)
		s.groupClusters.EraseValue(c.OwningGroup, id)
	}
	s.clustersByID.Invalidate(id)
	s.kubeconfigs.invalidate(id)
	return nil
}

// ListClusters returns every cluster's summary view, read fresh from the
// database.
func (s *Store) ListClusters(ctx context.Context) ([]models.ClusterSummary, error) {
	items, err := s.backend.Scan(ctx, tableClusters)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreFailure, err)
	}
	summaries := make([]models.ClusterSummary, 0, len(items))
	for _, item := range items {
		summaries = append(summaries, clusterFromItem(item).Summary())
	}
	return summaries, nil
}

// ClustersOwnedByGroup returns the IDs of clusters whose OwningGroup is
// groupID, used by the group cascade-delete algorithm (§4.5.3 step 4).
func (s *Store) ClustersOwnedByGroup(ctx context.Context, groupID string) ([]string, error) {
	if s.groupClusters.Contains(groupID) {
		metrics.CacheHitsTotal.WithLabelValues("relation").Inc()
		s.groupClusters.UpdateExpiration(groupID, relationTTL(s.cfg))
		return s.groupClusters.Find(groupID), nil
	}
	metrics.CacheMissesTotal.WithLabelValues("relation").Inc()
	items, err := s.backend.Scan(ctx, tableClusters)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreFailure, err)
	}
	var owned []string
	for _, item := range items {
		c := clusterFromItem(item)
		if c.OwningGroup == groupID {
			owned = append(owned, c.ID)
			s.groupClusters.InsertOrAssign(groupID, c.ID, relationTTL(s.cfg))
		}
	}
	return owned, nil
}

// ConfigPathForCluster returns a shared, reference-counted FileHandle to the
// cluster's kubeconfig materialized on disk, fetching and writing it on
// first use (§4.3 "Kubeconfig materialization"). Callers must Release the
// handle when done.
func (s *Store) ConfigPathForCluster(ctx context.Context, clusterID string) (*FileHandle, error) {
	if h, ok := s.kubeconfigs.get(clusterID); ok {
		metrics.CacheHitsTotal.WithLabelValues("kubeconfig").Inc()
		return h, nil
	}
	metrics.CacheMissesTotal.WithLabelValues("kubeconfig").Inc()
	c, err := s.GetCluster(ctx, clusterID)
	if err != nil {
		return nil, err
	}
	if !c.Valid {
		return nil, ErrNotFound
	}
	return s.kubeconfigs.materialize(clusterID, c.Config)
}

// --- access grants (§4.2, §4.3 tier 3) ---

// GrantGroupAccessToCluster records that groupID may use clusterID.
func (s *Store) GrantGroupAccessToCluster(ctx context.Context, clusterID, groupID string) error {
	if err := s.backend.Put(ctx, kvstore.Item{Table: tableClusterGrants, Key: clusterID + "|" + groupID}); err != nil {
		return fmt.Errorf("%w: %w", ErrStoreFailure, err)
	}
	s.clusterGroups.InsertOrAssign(clusterID, groupID, relationTTL(s.cfg))
	return nil
}

// RevokeGroupAccessToCluster removes a previously granted access relation.
func (s *Store) RevokeGroupAccessToCluster(ctx context.Context, clusterID, groupID string) error {
	if err := s.backend.Delete(ctx, tableClusterGrants, clusterID+"|"+groupID); err != nil {
		return fmt.Errorf("%w: %w", ErrStoreFailure, err)
	}
	s.clusterGroups.EraseValue(clusterID, groupID)
	return nil
}

// GroupAllowedOnCluster answers whether groupID has been granted access to
// clusterID (independent of ownership, which the caller checks separately).
func (s *Store) GroupAllowedOnCluster(ctx context.Context, clusterID, groupID string) (bool, error) {
	if s.clusterGroups.ContainsValue(clusterID, groupID) {
		s.clusterGroups.UpdateExpiration(clusterID, relationTTL(s.cfg))
		return true, nil
	}
	items, err := s.backend.Scan(ctx, tableClusterGrants)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrStoreFailure, err)
	}
	for _, item := range items {
		cID, gID, ok := splitPair(item.Key)
		if !ok {
			continue
		}
		s.clusterGroups.InsertOrAssign(cID, gID, relationTTL(s.cfg))
	}
	return s.clusterGroups.ContainsValue(clusterID, groupID), nil
}

// GrantApplicationOnCluster records that groupID may install appName (or
// "*" for all applications) on clusterID.
func (s *Store) GrantApplicationOnCluster(ctx context.Context, clusterID, groupID, appName string) error {
	key := grantKey(clusterID, groupID) + "|" + appName
	if err := s.backend.Put(ctx, kvstore.Item{Table: tableAppGrants, Key: key}); err != nil {
		return fmt.Errorf("%w: %w", ErrStoreFailure, err)
	}
	s.grantedApps.InsertOrAssign(grantKey(clusterID, groupID), appName, relationTTL(s.cfg))
	return nil
}

// RevokeApplicationOnCluster removes a previously granted application
// install permission.
func (s *Store) RevokeApplicationOnCluster(ctx context.Context, clusterID, groupID, appName string) error {
	key := grantKey(clusterID, groupID) + "|" + appName
	if err := s.backend.Delete(ctx, tableAppGrants, key); err != nil {
		return fmt.Errorf("%w: %w", ErrStoreFailure, err)
	}
	s.grantedApps.EraseValue(grantKey(clusterID, groupID), appName)
	return nil
}

// GroupAllowedApplicationOnCluster answers whether groupID may install
// appName on clusterID, honoring a wildcard ("*") grant per §4.4 rule 3.
func (s *Store) GroupAllowedApplicationOnCluster(ctx context.Context, clusterID, groupID, appName string) (bool, error) {
	key := grantKey(clusterID, groupID)
	if s.grantedApps.ContainsValue(key, models.WildcardApplication) || s.grantedApps.ContainsValue(key, appName) {
		s.grantedApps.UpdateExpiration(key, relationTTL(s.cfg))
		return true, nil
	}
	items, err := s.backend.Scan(ctx, tableAppGrants)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrStoreFailure, err)
	}
	for _, item := range items {
		rest := item.Key
		cID, remainder, ok := splitPair(rest)
		if !ok {
			continue
		}
		gID, app, ok := splitPair(remainder)
		if !ok {
			continue
		}
		s.grantedApps.InsertOrAssign(grantKey(cID, gID), app, relationTTL(s.cfg))
	}
	return s.grantedApps.ContainsValue(key, models.WildcardApplication) || s.grantedApps.ContainsValue(key, appName), nil
}

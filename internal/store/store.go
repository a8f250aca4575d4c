// Package store is the single source of truth for every entity
// (SPEC_FULL.md §4.3), sitting in front of a kvstore.Backend and maintaining
// four cache tiers: by-ID, by-name, relation multimaps, and a kubeconfig
// file pool. Grounded on original_source/include/PersistentStore.h, adapted
// from DynamoDB-only to the module's backend-agnostic kvstore.Backend.
package store

import (
	"os"
	"time"

	"github.com/slateci/slate-federation/internal/ids"
	"github.com/slateci/slate-federation/internal/kvstore"
	"github.com/slateci/slate-federation/internal/models"
	"github.com/slateci/slate-federation/internal/multimap"
)

const (
	tableUsers     = "users"
	tableGroups    = "groups"
	tableClusters  = "clusters"
	tableInstances = "instances"
	tableSecrets   = "secrets"

	// Relation tables hold presence markers only (Attrs carries no payload
	// beyond what's needed to reconstruct the relation on a cache miss).
	tableGroupMembers  = "group_members"  // key: groupID + "|" + userID
	tableClusterGrants = "cluster_grants" // key: clusterID + "|" + groupID
	tableAppGrants     = "app_grants"     // key: clusterID + "|" + groupID + "|" + appName
)

// Config tunes cache validity windows and on-disk locations. Defaults match
// the reference deployment's one-minute cluster cache (§4.3).
type Config struct {
	// ClusterCacheValidity is the TTL for cluster and group by-ID/by-name
	// cache entries and for relation multimap categories.
	ClusterCacheValidity time.Duration
	// UserCacheValidity is the TTL for user-by-token/by-external-ID lookups.
	UserCacheValidity time.Duration
	// KubeconfigDir is the directory kubeconfig files are materialized
	// into. Must be writable and reasonably private (mode 0600 files).
	KubeconfigDir string
}

func (c Config) withDefaults() Config {
	if c.ClusterCacheValidity <= 0 {
		c.ClusterCacheValidity = time.Minute
	}
	if c.UserCacheValidity <= 0 {
		c.UserCacheValidity = time.Minute
	}
	return c
}

// Store implements the persistent store described in SPEC_FULL.md §4.3.
type Store struct {
	backend kvstore.Backend
	ids     ids.Generator
	cfg     Config

	usersByID         *entityCache[models.User]
	usersByToken      *entityCache[string] // token -> user ID
	usersByExternalID *entityCache[string] // external ID -> user ID

	groupsByID   *entityCache[models.Group]
	groupsByName *entityCache[string] // name -> group ID

	clustersByID   *entityCache[models.Cluster]
	clustersByName *entityCache[string] // name -> cluster ID

	instancesByID *entityCache[models.ApplicationInstance]
	secretsByID   *entityCache[models.Secret]

	// Relation multimaps (§4.2), keyed by entity ID strings.
	userGroups     *multimap.Map[string, string] // userID -> groupIDs
	groupUsers     *multimap.Map[string, string] // groupID -> userIDs
	groupClusters  *multimap.Map[string, string] // groupID -> owned clusterIDs (reverse index)
	clusterGroups  *multimap.Map[string, string] // clusterID -> groups granted access
	grantedApps    *multimap.Map[string, string] // clusterID+"|"+groupID -> app names

	kubeconfigs *kubeconfigPool
}

// New constructs a Store over backend, creating the kubeconfig directory if
// it does not already exist.
func New(backend kvstore.Backend, cfg Config) *Store {
	cfg = cfg.withDefaults()
	if cfg.KubeconfigDir != "" {
		_ = os.MkdirAll(cfg.KubeconfigDir, 0o700)
	}
	return &Store{
		backend: backend,
		ids:     ids.NewGenerator(),
		cfg:     cfg,

		usersByID:         newEntityCache[models.User](cfg.UserCacheValidity, "user_by_id"),
		usersByToken:      newEntityCache[string](cfg.UserCacheValidity, "user_by_token"),
		usersByExternalID: newEntityCache[string](cfg.UserCacheValidity, "user_by_external_id"),

		groupsByID:   newEntityCache[models.Group](cfg.ClusterCacheValidity, "group_by_id"),
		groupsByName: newEntityCache[string](cfg.ClusterCacheValidity, "group_by_name"),

		clustersByID:   newEntityCache[models.Cluster](cfg.ClusterCacheValidity, "cluster_by_id"),
		clustersByName: newEntityCache[string](cfg.ClusterCacheValidity, "cluster_by_name"),

		instancesByID: newEntityCache[models.ApplicationInstance](cfg.ClusterCacheValidity, "instance_by_id"),
		secretsByID:   newEntityCache[models.Secret](cfg.ClusterCacheValidity, "secret_by_id"),

		userGroups:    multimap.NewString[string](),
		groupUsers:    multimap.NewString[string](),
		groupClusters: multimap.NewString[string](),
		clusterGroups: multimap.NewString[string](),
		grantedApps:   multimap.NewString[string](),

		kubeconfigs: newKubeconfigPool(cfg.KubeconfigDir),
	}
}

func relationTTL(cfg Config) time.Duration { return cfg.ClusterCacheValidity }

func grantKey(clusterID, groupID string) string { return clusterID + "|" + groupID }

// Package kvstore abstracts the key/value database behind the persistent
// store's typed accessors (SPEC_FULL.md §4.3, §9 "DynamoDB vs. generic KV").
// internal/store depends only on Backend; executors never import a specific
// implementation.
package kvstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when no item exists for the given
// partition/sort key.
var ErrNotFound = errors.New("kvstore: item not found")

// ErrConflict is returned by PutIfAbsent when an item already exists.
var ErrConflict = errors.New("kvstore: item already exists")

// Item is a single stored record: an opaque attribute bag addressed by a
// table name and a key. SQLite serializes Attrs as one JSON blob; DynamoDB
// stores each entry of Attrs as its own string attribute beside "pk". Both
// share the same logical schema.
type Item struct {
	Table string
	Key   string
	Attrs map[string]string
}

// Backend is the narrow interface the persistent store builds its typed
// accessors on top of. Table is a logical grouping (e.g. "users",
// "users_by_token"); Key is the full partition key within that table.
type Backend interface {
	// Get fetches one item. Returns ErrNotFound if absent.
	Get(ctx context.Context, table, key string) (Item, error)
	// Put unconditionally writes (insert or replace).
	Put(ctx context.Context, item Item) error
	// PutIfAbsent writes only if no item currently exists for (table,key);
	// returns ErrConflict otherwise. Used for name/token uniqueness checks.
	PutIfAbsent(ctx context.Context, item Item) error
	// Delete removes an item; deleting an absent item is not an error.
	Delete(ctx context.Context, table, key string) error
	// Scan returns every item in a table. Used by the store's listing
	// operations (§4.3 "listing operations read the authoritative index
	// collection from the database each call").
	Scan(ctx context.Context, table string) ([]Item, error)
	// Close releases any held connections/clients.
	Close() error
}

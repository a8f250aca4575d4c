package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// FileHandle is a shared, reference-counted handle to a kubeconfig file on
// disk, grounded on original_source/include/PersistentStore.h's
// FileHandle/SharedFileHandle ("unlinking the file is the destructor side
// effect"). Go has no destructors, so ownership is explicit: every caller
// that receives a *FileHandle from ConfigPathForCluster must call Release
// when done with it. The file is unlinked when the last holder releases.
type FileHandle struct {
	path    string
	refs    int64
	release sync.Once
}

// Path returns the filesystem path for use as a kubectl/helm --kubeconfig
// argument. Valid until Release drops the last reference.
func (h *FileHandle) Path() string { return h.path }

// Acquire increments the reference count and returns h, so callers forward
// a handle to another goroutine without racing the original holder's
// Release.
func (h *FileHandle) Acquire() *FileHandle {
	atomic.AddInt64(&h.refs, 1)
	return h
}

// Release decrements the reference count; at zero, the backing file is
// unlinked. Safe to call exactly once per Acquire/initial issuance.
func (h *FileHandle) Release() {
	if atomic.AddInt64(&h.refs, -1) > 0 {
		return
	}
	h.release.Do(func() {
		_ = os.Remove(h.path)
	})
}

// kubeconfigPool is the store's fourth cache tier: cluster-id -> FileHandle.
// A per-cluster mutex (rather than the relation multimap's generic sharding)
// serializes the write path so at most one writer materializes a given
// cluster's kubeconfig at a time, per §4.3 "at most one writer per cluster
// ID is in the write path; others block on the per-key shard lock".
type kubeconfigPool struct {
	dir string

	mu      sync.Mutex
	locks   map[string]*sync.Mutex
	handles map[string]*FileHandle
}

func newKubeconfigPool(dir string) *kubeconfigPool {
	return &kubeconfigPool{
		dir:     dir,
		locks:   make(map[string]*sync.Mutex),
		handles: make(map[string]*FileHandle),
	}
}

func (p *kubeconfigPool) lockFor(clusterID string) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	l, ok := p.locks[clusterID]
	if !ok {
		l = &sync.Mutex{}
		p.locks[clusterID] = l
	}
	return l
}

// get returns the cached handle for clusterID, acquiring a fresh reference,
// or (nil, false) if nothing is materialized.
func (p *kubeconfigPool) get(clusterID string) (*FileHandle, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	h, ok := p.handles[clusterID]
	if !ok {
		return nil, false
	}
	return h.Acquire(), true
}

// materialize writes config to a fresh uniquely-named file under the pool's
// directory (mode 0600) and installs it as the cached handle for clusterID,
// replacing (but not invalidating in-flight holders of) any prior handle.
func (p *kubeconfigPool) materialize(clusterID, config string) (*FileHandle, error) {
	lock := p.lockFor(clusterID)
	lock.Lock()
	defer lock.Unlock()

	// Re-check under the per-cluster lock: another goroutine may have
	// materialized this cluster's config while we waited.
	if h, ok := p.get(clusterID); ok {
		return h, nil
	}

	name := fmt.Sprintf("%s-%s.yaml", clusterID, uuid.NewString())
	path := filepath.Join(p.dir, name)
	if err := os.WriteFile(path, []byte(config), 0o600); err != nil {
		return nil, fmt.Errorf("store: writing kubeconfig for %s: %w", clusterID, err)
	}

	h := &FileHandle{path: path, refs: 1}
	p.mu.Lock()
	p.handles[clusterID] = h
	p.mu.Unlock()
	return h.Acquire(), nil
}

// invalidate drops the pool's own reference to clusterID's handle (on
// cluster update/delete). Already-issued handles remain valid to their
// holders; the file is unlinked only once every holder, including the pool
// itself, has released.
func (p *kubeconfigPool) invalidate(clusterID string) {
	p.mu.Lock()
	h, ok := p.handles[clusterID]
	if ok {
		delete(p.handles, clusterID)
	}
	p.mu.Unlock()
	if ok {
		h.Release()
	}
}

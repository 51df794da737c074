// Package cache holds the session-owned arena of file records.
//
// Records are keyed by node IDs that stay stable for a path for the lifetime
// of the cache, so a folder loaded twice reuses its records instead of
// re-parsing them. Only the discovery/load path adds or evicts records; other
// code mutates fields inside records it looked up. Begin/End serialize
// loaders per key so two loads of the same folder never overlap.
package cache

import (
	"context"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/uuid"

	"bidsprep/internal/record"
)

// RecordCache maps node IDs to records and paths to node IDs.
type RecordCache struct {
	mu       sync.Mutex
	records  map[record.ID]record.Record
	index    map[string]record.ID
	inflight map[string]chan struct{}
	newID    func() record.ID
}

// New returns an empty cache that mints random node IDs.
func New() *RecordCache {
	return NewWithIDs(func() record.ID { return record.ID(uuid.NewString()) })
}

// NewWithIDs returns an empty cache using gen to mint node IDs.
func NewWithIDs(gen func() record.ID) *RecordCache {
	return &RecordCache{
		records:  make(map[record.ID]record.Record),
		index:    make(map[string]record.ID),
		inflight: make(map[string]chan struct{}),
		newID:    gen,
	}
}

// NodeID returns the node ID for path, minting one on first use.
func (c *RecordCache) NodeID(path string) record.ID {
	path = filepath.Clean(path)
	c.mu.Lock()
	defer c.mu.Unlock()
	if id, ok := c.index[path]; ok {
		return id
	}
	id := c.newID()
	c.index[path] = id
	return id
}

// Lookup returns the node ID already assigned to path.
func (c *RecordCache) Lookup(path string) (record.ID, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, ok := c.index[filepath.Clean(path)]
	return id, ok
}

// Get returns the cached record for id.
func (c *RecordCache) Get(id record.ID) (record.Record, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.records[id]
	return rec, ok
}

// Recording returns the cached record for id when it is a recording.
func (c *RecordCache) Recording(id record.ID) (*record.Recording, bool) {
	rec, ok := c.Get(id)
	if !ok {
		return nil, false
	}
	r, ok := rec.(*record.Recording)
	return r, ok
}

// Put stores rec under its ID.
func (c *RecordCache) Put(rec record.Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records[rec.ID()] = rec
}

// Evict drops the record for id. The path keeps its node ID so a file that
// reappears is addressed the same way.
func (c *RecordCache) Evict(id record.ID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.records, id)
}

// Len returns the number of cached records.
func (c *RecordCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.records)
}

// IDs returns all cached node IDs, sorted.
func (c *RecordCache) IDs() []record.ID {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]record.ID, 0, len(c.records))
	for id := range c.records {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Begin claims the loader slot for key, waiting while another loader holds
// it. The returned release function must be called exactly once.
func (c *RecordCache) Begin(ctx context.Context, key string) (func(), error) {
	for {
		c.mu.Lock()
		wait, busy := c.inflight[key]
		if !busy {
			done := make(chan struct{})
			c.inflight[key] = done
			c.mu.Unlock()
			var once sync.Once
			return func() {
				once.Do(func() {
					c.mu.Lock()
					delete(c.inflight, key)
					c.mu.Unlock()
					close(done)
				})
			}, nil
		}
		c.mu.Unlock()
		select {
		case <-wait:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// InFlight reports whether a loader currently holds key.
func (c *RecordCache) InFlight(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, busy := c.inflight[key]
	return busy
}

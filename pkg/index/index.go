// Package index maps blob keys to their byte ranges inside one log segment.
// The serving layer asks it for index entries, builds a read-set from them,
// and streams the ranges out; expired entries are filtered here so dead blobs
// never reach the wire.
package index

import (
	"sync"

	"github.com/adammck/blobstream/pkg/api"
	"github.com/jonboulle/clockwork"
)

type Index struct {
	clock clockwork.Clock

	mu      sync.RWMutex
	entries map[string]api.IndexEntry
}

func New(clock clockwork.Clock) *Index {
	return &Index{
		clock:   clock,
		entries: map[string]api.IndexEntry{},
	}
}

// Put records where a key's latest record lives. A later Put for the same
// key shadows the earlier one; the old bytes stay in the log for compaction
// to reclaim.
func (idx *Index) Put(key string, offset, size, expiresAt int64) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.entries[key] = api.IndexEntry{
		Key:       key,
		Offset:    offset,
		Size:      size,
		ExpiresAt: expiresAt,
	}
}

// Delete drops a key from the index.
func (idx *Index) Delete(key string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	delete(idx.entries, key)
}

// Get returns the entries for the given keys. A key which is missing or
// whose entry has expired fails the whole lookup with api.NotFound, so the
// caller never builds a read-set with holes in it.
func (idx *Index) Get(keys ...string) ([]api.IndexEntry, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	now := idx.clock.Now().Unix()
	entries := make([]api.IndexEntry, 0, len(keys))
	for _, key := range keys {
		e, ok := idx.entries[key]
		if !ok {
			return nil, &api.NotFound{Key: key}
		}
		if e.ExpiresAt != api.NoExpiry && e.ExpiresAt <= now {
			return nil, &api.NotFound{Key: key}
		}
		entries = append(entries, e)
	}

	return entries, nil
}

// Entries returns a snapshot of every entry, for persistence.
func (idx *Index) Entries() api.Index {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	out := make(api.Index, 0, len(idx.entries))
	for _, e := range idx.entries {
		out = append(out, e)
	}
	return out
}

// Keys returns every live key, for filter construction.
func (idx *Index) Keys() []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	keys := make([]string, 0, len(idx.entries))
	for k := range idx.entries {
		keys = append(keys, k)
	}
	return keys
}

// Len returns the number of entries.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.entries)
}

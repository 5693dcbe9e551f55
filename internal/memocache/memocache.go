// Package memocache provides a small, bounded, thread-safe in-memory
// presence cache: "has this key already been confirmed to exist"
// memoized for the lifetime of one process run. Grounded on the
// teacher's htfs.MetadataCache (map + order slice + mutex, bounded by a
// size cap), but evicting the oldest-inserted entry once the cap is hit
// (a lookup does not refresh an entry), and keyed on a siphash digest
// instead of the raw string so a cache sized for a large manifest
// doesn't pin every cache-directory path string in memory.
package memocache

import (
	"sync"

	"github.com/dchest/siphash"
)

// DefaultMaxEntries bounds memory growth the same way the teacher's
// MetadataCache does: a scie's file list is bounded, but nothing stops
// a pathological manifest from naming thousands of files.
const DefaultMaxEntries = 256

// fixed, arbitrary dispersion keys: this cache is not a security
// boundary, just a way to avoid storing full path strings as map keys.
const key0, key1 uint64 = 0x9ae16a3b2f90404f, 0xc2b2ae3d27d4eb4f

// PresenceCache remembers which keys have already been confirmed
// present, so a repeated lookup (e.g. several manifest files sharing
// one content hash) can skip a redundant filesystem stat.
type PresenceCache struct {
	mu    sync.Mutex
	seen  map[uint64]struct{}
	order []uint64
	max   int
}

// NewPresenceCache builds a PresenceCache with DefaultMaxEntries.
func NewPresenceCache() *PresenceCache {
	return NewPresenceCacheWithLimit(DefaultMaxEntries)
}

// NewPresenceCacheWithLimit builds a PresenceCache holding at most max
// entries, evicting the oldest-marked entry once full.
func NewPresenceCacheWithLimit(max int) *PresenceCache {
	if max <= 0 {
		max = DefaultMaxEntries
	}
	return &PresenceCache{seen: make(map[uint64]struct{}, max), max: max}
}

func digest(s string) uint64 {
	return siphash.Hash(key0, key1, []byte(s))
}

// Seen reports whether key was already marked present.
func (c *PresenceCache) Seen(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.seen[digest(key)]
	return ok
}

// MarkSeen records key as present, evicting the oldest entry first if
// the cache is already at capacity.
func (c *PresenceCache) MarkSeen(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d := digest(key)
	if _, exists := c.seen[d]; exists {
		return
	}
	if len(c.order) >= c.max {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.seen, oldest)
	}
	c.seen[d] = struct{}{}
	c.order = append(c.order, d)
}

package variants

import (
	"errors"
	"sort"
	"sync"
	"time"

	"photo-gallery/internal/metrics"
)

// DefaultMaxAge is how long a transcoded variant stays fresh.
const DefaultMaxAge = 30 * 24 * time.Hour

// CachedVariant is one cache entry. The cache owns Ref once it has been Put.
type CachedVariant struct {
	Ref       Ref
	Size      int64 // bytes, 0 when unknown
	CreatedAt time.Time
	Format    string
}

// Revoker releases handles dropped from the cache.
type Revoker interface {
	Revoke(ref Ref) error
}

// Cache maps keys to variants with lazy age expiry. Every removal path
// revokes the dropped handle after the lock is released.
type Cache struct {
	mu      sync.Mutex
	entries map[Key]CachedVariant
	maxAge  time.Duration
	revoker Revoker
	now     func() time.Time
}

// NewCache returns an empty cache. A maxAge of zero disables expiry.
// revoker may be nil when entries never hold revocable refs.
func NewCache(revoker Revoker, maxAge time.Duration) *Cache {
	return &Cache{
		entries: make(map[Key]CachedVariant),
		maxAge:  maxAge,
		revoker: revoker,
		now:     time.Now,
	}
}

func (c *Cache) expired(v CachedVariant, now time.Time) bool {
	return c.maxAge > 0 && now.Sub(v.CreatedAt) > c.maxAge
}

// Get returns the entry for key. An expired entry is removed and reported
// as absent.
func (c *Cache) Get(key Key) (CachedVariant, bool) {
	c.mu.Lock()
	v, ok := c.entries[key]
	if ok && c.expired(v, c.now()) {
		delete(c.entries, key)
		c.mu.Unlock()
		c.release("expired", v.Ref)
		return CachedVariant{}, false
	}
	c.mu.Unlock()
	return v, ok
}

// Put stores v under key, revoking the handle it replaces. CreatedAt
// defaults to now and never moves backwards for a key.
func (c *Cache) Put(key Key, v CachedVariant) {
	c.mu.Lock()
	if v.CreatedAt.IsZero() {
		v.CreatedAt = c.now()
	}
	old, had := c.entries[key]
	if had && v.CreatedAt.Before(old.CreatedAt) {
		v.CreatedAt = old.CreatedAt
	}
	c.entries[key] = v
	c.mu.Unlock()

	if had && old.Ref != v.Ref {
		c.release("overwrite", old.Ref)
	}
}

// Evict removes key and revokes its handle. It reports whether an entry
// was present.
func (c *Cache) Evict(key Key) bool {
	c.mu.Lock()
	v, ok := c.entries[key]
	delete(c.entries, key)
	c.mu.Unlock()

	if ok {
		c.release("evict", v.Ref)
	}
	return ok
}

// Clear revokes every handle and empties the cache. It returns the number
// of entries dropped.
func (c *Cache) Clear() int {
	c.mu.Lock()
	dropped := c.entries
	c.entries = make(map[Key]CachedVariant)
	c.mu.Unlock()

	for _, v := range dropped {
		c.release("clear", v.Ref)
	}
	return len(dropped)
}

// Sweep evicts every entry older than retention and returns how many were
// removed. A non-positive retention falls back to the cache max age.
func (c *Cache) Sweep(retention time.Duration) int {
	if retention <= 0 {
		retention = c.maxAge
	}
	if retention <= 0 {
		return 0
	}

	now := c.now()
	var stale []Ref

	c.mu.Lock()
	for k, v := range c.entries {
		if now.Sub(v.CreatedAt) > retention {
			stale = append(stale, v.Ref)
			delete(c.entries, k)
		}
	}
	c.mu.Unlock()

	for _, ref := range stale {
		c.release("sweep", ref)
	}
	return len(stale)
}

// SizeEstimate sums the known sizes of all entries.
func (c *Cache) SizeEstimate() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	var total int64
	for _, v := range c.entries {
		total += v.Size
	}
	return total
}

// Len returns the number of entries, including expired ones not yet read.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Keys returns all keys ordered by their string form.
func (c *Cache) Keys() []Key {
	c.mu.Lock()
	keys := make([]Key, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	c.mu.Unlock()

	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys
}

// Snapshot returns a copy of the current entries.
func (c *Cache) Snapshot() map[Key]CachedVariant {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[Key]CachedVariant, len(c.entries))
	for k, v := range c.entries {
		out[k] = v
	}
	return out
}

// release revokes ref if it is an owned handle. Failures are logged and
// counted, never returned.
func (c *Cache) release(reason string, ref Ref) {
	metrics.VariantCacheEvictions.WithLabelValues(reason).Inc()

	if c.revoker == nil || !ref.Revocable() {
		return
	}
	if err := c.revoker.Revoke(ref); err != nil {
		metrics.VariantRevokeErrors.Inc()
		if errors.Is(err, ErrNotFound) {
			log.Debug("handle %s already released (%s)", ref, reason)
			return
		}
		log.Warn("failed to revoke %s (%s): %v", ref, reason, err)
	}
}

package variants

import (
	"errors"
	"sync"
	"testing"
	"time"
)

type recordingRevoker struct {
	mu      sync.Mutex
	revoked []Ref
	err     error
}

func (r *recordingRevoker) Revoke(ref Ref) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.revoked = append(r.revoked, ref)
	return r.err
}

func (r *recordingRevoker) list() []Ref {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Ref(nil), r.revoked...)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestCache(maxAge time.Duration) (*Cache, *recordingRevoker, *fakeClock) {
	rev := &recordingRevoker{}
	clock := newFakeClock()
	c := NewCache(rev, maxAge)
	c.now = clock.Now
	return c, rev, clock
}

var keyA = Key{Source: "a.jpg", Class: Thumbnail}

func TestCache_PutGet(t *testing.T) {
	c, rev, clock := newTestCache(time.Hour)

	if _, ok := c.Get(keyA); ok {
		t.Fatal("Get() on empty cache returned an entry")
	}

	c.Put(keyA, CachedVariant{Ref: "blob:mem/1", Size: 10, Format: "jpeg"})
	got, ok := c.Get(keyA)
	if !ok || got.Ref != "blob:mem/1" {
		t.Fatalf("Get() = %+v, %v", got, ok)
	}
	if !got.CreatedAt.Equal(clock.Now()) {
		t.Errorf("CreatedAt = %v, want defaulted to %v", got.CreatedAt, clock.Now())
	}
	if len(rev.list()) != 0 {
		t.Errorf("revoked %v on first put", rev.list())
	}
}

func TestCache_OverwriteRevokesOldHandle(t *testing.T) {
	c, rev, _ := newTestCache(time.Hour)

	c.Put(keyA, CachedVariant{Ref: "blob:mem/old"})
	c.Put(keyA, CachedVariant{Ref: "blob:mem/new"})

	got := rev.list()
	if len(got) != 1 || got[0] != "blob:mem/old" {
		t.Fatalf("revoked = %v, want exactly [blob:mem/old]", got)
	}
	if v, _ := c.Get(keyA); v.Ref != "blob:mem/new" {
		t.Errorf("Get() = %q, want blob:mem/new", v.Ref)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}

func TestCache_OverwriteSameRefKeepsHandle(t *testing.T) {
	c, rev, _ := newTestCache(time.Hour)

	c.Put(keyA, CachedVariant{Ref: "blob:mem/1"})
	c.Put(keyA, CachedVariant{Ref: "blob:mem/1"})

	if got := rev.list(); len(got) != 0 {
		t.Errorf("revoked %v, want nothing", got)
	}
}

func TestCache_NonRevocableRefsNotRevoked(t *testing.T) {
	c, rev, _ := newTestCache(time.Hour)

	c.Put(keyA, CachedVariant{Ref: "ref://a-thumb"})
	c.Put(keyA, CachedVariant{Ref: "ref://a-thumb-2"})
	c.Evict(keyA)

	if got := rev.list(); len(got) != 0 {
		t.Errorf("revoked %v, want nothing", got)
	}
}

func TestCache_CreatedAtNeverDecreases(t *testing.T) {
	c, _, clock := newTestCache(0)

	first := clock.Now()
	c.Put(keyA, CachedVariant{Ref: "r1", CreatedAt: first})
	c.Put(keyA, CachedVariant{Ref: "r2", CreatedAt: first.Add(-time.Minute)})

	got, _ := c.Get(keyA)
	if !got.CreatedAt.Equal(first) {
		t.Errorf("CreatedAt = %v, want clamped to %v", got.CreatedAt, first)
	}

	later := first.Add(time.Minute)
	c.Put(keyA, CachedVariant{Ref: "r3", CreatedAt: later})
	got, _ = c.Get(keyA)
	if !got.CreatedAt.Equal(later) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, later)
	}
}

func TestCache_LazyExpiry(t *testing.T) {
	c, rev, clock := newTestCache(time.Hour)

	c.Put(keyA, CachedVariant{Ref: "blob:mem/1"})

	clock.Advance(time.Hour)
	if _, ok := c.Get(keyA); !ok {
		t.Fatal("entry expired at exactly maxAge")
	}

	clock.Advance(time.Second)
	if _, ok := c.Get(keyA); ok {
		t.Fatal("Get() returned an entry older than maxAge")
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d, want stale entry removed", c.Len())
	}
	if got := rev.list(); len(got) != 1 || got[0] != "blob:mem/1" {
		t.Errorf("revoked = %v, want [blob:mem/1]", got)
	}
}

func TestCache_Evict(t *testing.T) {
	c, rev, _ := newTestCache(time.Hour)

	if c.Evict(keyA) {
		t.Error("Evict() on absent key reported true")
	}

	c.Put(keyA, CachedVariant{Ref: "blob:mem/1"})
	if !c.Evict(keyA) {
		t.Error("Evict() on present key reported false")
	}
	if _, ok := c.Get(keyA); ok {
		t.Error("entry still present after Evict()")
	}
	if got := rev.list(); len(got) != 1 {
		t.Errorf("revoked = %v, want one handle", got)
	}
}

func TestCache_ClearRevokesAll(t *testing.T) {
	c, rev, _ := newTestCache(time.Hour)

	c.Put(Key{Source: "a", Class: Thumbnail}, CachedVariant{Ref: "blob:mem/1", Size: 100})
	c.Put(Key{Source: "a", Class: Medium}, CachedVariant{Ref: "blob:mem/2", Size: 200})
	c.Put(Key{Source: "b", Class: Thumbnail}, CachedVariant{Ref: PlaceholderPrefix + "x"})

	if got := c.SizeEstimate(); got != 300 {
		t.Errorf("SizeEstimate() = %d, want 300", got)
	}

	if n := c.Clear(); n != 3 {
		t.Errorf("Clear() = %d, want 3", n)
	}
	if c.Len() != 0 || c.SizeEstimate() != 0 {
		t.Errorf("cache not empty after Clear(): len=%d size=%d", c.Len(), c.SizeEstimate())
	}
	if got := rev.list(); len(got) != 2 {
		t.Errorf("revoked = %v, want the two blob handles", got)
	}
}

func TestCache_RevokeFailureTolerated(t *testing.T) {
	c, rev, _ := newTestCache(time.Hour)
	rev.err = errors.New("already released")

	c.Put(keyA, CachedVariant{Ref: "blob:mem/1"})
	c.Put(keyA, CachedVariant{Ref: "blob:mem/2"})
	c.Clear()

	if got := rev.list(); len(got) != 2 {
		t.Errorf("revoke attempts = %v, want 2", got)
	}
}

func TestCache_Sweep(t *testing.T) {
	c, rev, clock := newTestCache(48 * time.Hour)

	c.Put(Key{Source: "old", Class: Thumbnail}, CachedVariant{Ref: "blob:mem/old"})
	clock.Advance(10 * time.Hour)
	c.Put(Key{Source: "new", Class: Thumbnail}, CachedVariant{Ref: "blob:mem/new"})
	clock.Advance(time.Hour)

	if n := c.Sweep(5 * time.Hour); n != 1 {
		t.Fatalf("Sweep() = %d, want 1", n)
	}
	if got := rev.list(); len(got) != 1 || got[0] != "blob:mem/old" {
		t.Errorf("revoked = %v, want [blob:mem/old]", got)
	}

	keys := c.Keys()
	if len(keys) != 1 || keys[0].Source != "new" {
		t.Errorf("Keys() = %v, want [new]", keys)
	}

	// retention falls back to maxAge
	if n := c.Sweep(0); n != 0 {
		t.Errorf("Sweep(0) = %d, want 0", n)
	}
}

func TestCache_KeysSorted(t *testing.T) {
	c, _, _ := newTestCache(0)
	for _, s := range []string{"c", "a", "b"} {
		c.Put(Key{Source: s, Class: Thumbnail}, CachedVariant{Ref: Ref(s)})
	}

	keys := c.Keys()
	for i, want := range []string{"a-thumbnail", "b-thumbnail", "c-thumbnail"} {
		if keys[i].String() != want {
			t.Errorf("Keys()[%d] = %s, want %s", i, keys[i], want)
		}
	}
}

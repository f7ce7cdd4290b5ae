package variants

import "sync"

// call is one pending transcode. ref and err are written once, before done
// is closed.
type call struct {
	done chan struct{}
	ref  Ref
	err  error
	gen  uint64
}

// tracker de-duplicates transcodes: at most one call exists per key. Calls
// are tagged with the generation current at creation, and a cache clear
// bumps the generation so stale results are not written back.
type tracker struct {
	mu    sync.Mutex
	calls map[Key]*call
	gen   uint64
}

func newTracker() *tracker {
	return &tracker{calls: make(map[Key]*call)}
}

// join returns the pending call for key, creating it when none exists.
// created is true for exactly one caller per call.
func (t *tracker) join(key Key) (c *call, created bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if c, ok := t.calls[key]; ok {
		return c, false
	}
	c = &call{done: make(chan struct{}), gen: t.gen}
	t.calls[key] = c
	return c, true
}

// settle records the outcome of c and removes it from the tracker. On
// success commit runs under the tracker lock if c is still of the current
// generation; otherwise the outcome becomes ErrSuperseded and settle
// reports stale. Waiters are not released until wake.
func (t *tracker) settle(key Key, c *call, ref Ref, err error, commit func()) (stale bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err == nil {
		if c.gen == t.gen {
			if commit != nil {
				commit()
			}
		} else {
			stale = true
			ref, err = "", ErrSuperseded
		}
	}
	if t.calls[key] == c {
		delete(t.calls, key)
	}
	c.ref, c.err = ref, err
	return stale
}

// wake releases everyone waiting on c.
func (c *call) wake() {
	close(c.done)
}

// bump starts a new generation. Calls already running keep their old tag.
func (t *tracker) bump() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.gen++
	return t.gen
}

func (t *tracker) pending(key Key) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.calls[key]
	return ok
}

func (t *tracker) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.calls)
}

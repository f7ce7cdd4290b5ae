package variants

import (
	"errors"
	"testing"
)

func TestTracker_JoinSharesCall(t *testing.T) {
	tr := newTracker()

	c1, created1 := tr.join(keyA)
	c2, created2 := tr.join(keyA)
	if !created1 || created2 {
		t.Fatalf("created = %v, %v, want true, false", created1, created2)
	}
	if c1 != c2 {
		t.Fatal("join returned different calls for one key")
	}
	if !tr.pending(keyA) || tr.len() != 1 {
		t.Errorf("pending = %v, len = %d", tr.pending(keyA), tr.len())
	}

	committed := false
	if stale := tr.settle(keyA, c1, "ref://a", nil, func() { committed = true }); stale {
		t.Error("settle reported stale for current generation")
	}
	c1.wake()

	<-c2.done
	if !committed || c2.ref != "ref://a" || c2.err != nil {
		t.Errorf("outcome = %q, %v, committed %v", c2.ref, c2.err, committed)
	}
	if tr.pending(keyA) {
		t.Error("settled call still pending")
	}

	c3, created3 := tr.join(keyA)
	if !created3 || c3 == c1 {
		t.Error("join after settle did not start a new call")
	}
}

func TestTracker_StaleGeneration(t *testing.T) {
	tr := newTracker()

	c, _ := tr.join(keyA)
	if gen := tr.bump(); gen != 1 {
		t.Errorf("bump() = %d, want 1", gen)
	}

	// the stale call stays joinable until it settles
	if joined, created := tr.join(keyA); created || joined != c {
		t.Error("bump dropped the in-flight call")
	}

	committed := false
	stale := tr.settle(keyA, c, "ref://a", nil, func() { committed = true })
	c.wake()

	if !stale || committed {
		t.Errorf("stale = %v, committed = %v, want true, false", stale, committed)
	}
	if !errors.Is(c.err, ErrSuperseded) || c.ref != "" {
		t.Errorf("outcome = %q, %v, want ErrSuperseded", c.ref, c.err)
	}
}

func TestTracker_FailureSkipsCommit(t *testing.T) {
	tr := newTracker()
	c, _ := tr.join(keyA)

	boom := errors.New("boom")
	stale := tr.settle(keyA, c, "", boom, func() { t.Error("commit ran for a failure") })
	c.wake()

	if stale || !errors.Is(c.err, boom) {
		t.Errorf("stale = %v, err = %v", stale, c.err)
	}
}

package store

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestRefresherCoalesces(t *testing.T) {
	var calls atomic.Int32
	var last atomic.Value
	r := newRefresher(func(reason string) {
		calls.Add(1)
		last.Store(reason)
	})

	r.schedule(20*time.Millisecond, "change")
	r.schedule(20*time.Millisecond, "change")
	r.schedule(20*time.Millisecond, "reconcile")
	if !r.pending() {
		t.Fatal("nothing pending after schedule")
	}

	waitFor(t, "refresher to fire", func() bool { return calls.Load() > 0 })
	time.Sleep(40 * time.Millisecond)
	if calls.Load() != 1 {
		t.Fatalf("calls = %d, want 1", calls.Load())
	}
	if last.Load() != "reconcile" {
		t.Fatalf("reason = %v, want the latest one", last.Load())
	}
}

func TestRefresherStop(t *testing.T) {
	var calls atomic.Int32
	r := newRefresher(func(string) { calls.Add(1) })
	r.schedule(10*time.Millisecond, "change")
	r.stop()
	r.schedule(10*time.Millisecond, "change")
	time.Sleep(40 * time.Millisecond)
	if calls.Load() != 0 {
		t.Fatalf("calls = %d after stop", calls.Load())
	}
}

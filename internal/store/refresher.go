package store

import (
	"sync"
	"time"
)

// refresher collapses a burst of schedule calls into one delayed call of fn.
// Each call pushes the deadline back, so fn runs once the burst goes quiet.
type refresher struct {
	mu      sync.Mutex
	timer   *time.Timer
	reason  string
	stopped bool
	fn      func(reason string)
}

func newRefresher(fn func(reason string)) *refresher {
	return &refresher{fn: fn}
}

func (r *refresher) schedule(d time.Duration, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return
	}
	if r.timer != nil {
		r.timer.Stop()
	}
	r.reason = reason
	r.timer = time.AfterFunc(d, r.fire)
}

func (r *refresher) fire() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	reason := r.reason
	r.timer = nil
	r.mu.Unlock()
	r.fn(reason)
}

// pending reports whether a call is scheduled.
func (r *refresher) pending() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.timer != nil
}

func (r *refresher) stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopped = true
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}

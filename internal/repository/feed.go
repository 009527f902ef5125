package repository

import (
	"sync"
	"time"

	"taskflow/internal/model"
)

type subscription struct {
	table  string
	userID string
	fn     func(model.ChangeEvent)
}

// Feed fans row changes out to subscribers filtered by table and owner.
// Callbacks run on their own goroutine and never under a writer's lock.
type Feed struct {
	mu   sync.RWMutex
	next int
	subs map[int]subscription
}

func NewFeed() *Feed {
	return &Feed{subs: make(map[int]subscription)}
}

// Subscribe registers fn for changes to table rows owned by userID.
// The returned func removes the subscription and is safe to call twice.
func (f *Feed) Subscribe(table, userID string, fn func(model.ChangeEvent)) func() {
	f.mu.Lock()
	id := f.next
	f.next++
	f.subs[id] = subscription{table: table, userID: userID, fn: fn}
	f.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs, id)
			f.mu.Unlock()
		})
	}
}

// Publish delivers ev to every matching subscriber.
func (f *Feed) Publish(ev model.ChangeEvent) {
	if f == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, s := range f.subs {
		if s.table != ev.Table || s.userID != ev.UserID {
			continue
		}
		go s.fn(ev)
	}
}

// Subscribers reports how many subscriptions are live.
func (f *Feed) Subscribers() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subs)
}

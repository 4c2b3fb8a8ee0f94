package streaming

import (
	"context"
	"sync"
)

// Recent keeps the latest events read from a bus subscription
type Recent struct {
	mu     sync.RWMutex
	events []*ScanEvent
	next   int
	full   bool
}

// NewRecent creates a buffer holding up to size events; size defaults to 100
func NewRecent(size int) *Recent {
	if size <= 0 {
		size = 100
	}
	return &Recent{events: make([]*ScanEvent, size)}
}

// Run consumes events until ctx is done or the channel is closed
func (r *Recent) Run(ctx context.Context, events <-chan *ScanEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			r.Add(e)
		}
	}
}

// Add records one event, evicting the oldest when full
func (r *Recent) Add(e *ScanEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[r.next] = e
	r.next = (r.next + 1) % len(r.events)
	if r.next == 0 {
		r.full = true
	}
}

// Snapshot returns the kept events matching sub, newest first. A nil sub
// matches everything.
func (r *Recent) Snapshot(sub *Subscription) []*ScanEvent {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := r.next
	if r.full {
		n = len(r.events)
	}
	out := make([]*ScanEvent, 0, n)
	for i := 1; i <= n; i++ {
		e := r.events[(r.next-i+len(r.events))%len(r.events)]
		if sub != nil && !sub.Matches(e) {
			continue
		}
		out = append(out, e)
	}
	return out
}

package activity

import (
	"sync"
	"time"
)

const DefaultHighlightDelay = 5 * time.Second

// FreshnessTracker highlights the most recently merged record until the
// delay passes. Only one record is highlighted at a time; a newer Mark
// replaces the pending expiry.
type FreshnessTracker struct {
	mu       sync.Mutex
	clock    Clock
	delay    time.Duration
	latest   string
	stop     func() bool
	seq      uint64
	stopped  bool
	onChange func()
}

func NewFreshnessTracker(clock Clock, delay time.Duration, onChange func()) *FreshnessTracker {
	if clock == nil {
		clock = RealClock()
	}
	if delay <= 0 {
		delay = DefaultHighlightDelay
	}
	return &FreshnessTracker{clock: clock, delay: delay, onChange: onChange}
}

func (t *FreshnessTracker) Mark(id string) {
	if t == nil || id == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	if t.stop != nil {
		t.stop()
	}
	t.seq++
	seq := t.seq
	t.latest = id
	t.stop = t.clock.AfterFunc(t.delay, func() {
		t.expire(seq)
	})
}

func (t *FreshnessTracker) expire(seq uint64) {
	t.mu.Lock()
	if t.stopped || seq != t.seq {
		t.mu.Unlock()
		return
	}
	t.latest = ""
	t.stop = nil
	onChange := t.onChange
	t.mu.Unlock()
	if onChange != nil {
		onChange()
	}
}

func (t *FreshnessTracker) Latest() string {
	if t == nil {
		return ""
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.latest
}

func (t *FreshnessTracker) IsFresh(id string) bool {
	if id == "" {
		return false
	}
	return t.Latest() == id
}

// Stop clears the highlight and cancels any pending expiry. The tracker
// ignores later marks.
func (t *FreshnessTracker) Stop() {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
	if t.stop != nil {
		t.stop()
		t.stop = nil
	}
	t.latest = ""
}

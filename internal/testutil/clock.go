package testutil

import (
	"sort"
	"sync"
	"time"
)

// ManualClock is a deterministic timer source. Scheduled callbacks fire only
// when Advance moves the clock past their deadline, in deadline order.
//
// Thread-safety: all methods are safe for concurrent use. Callbacks run on the
// goroutine calling Advance, outside the clock's lock.
type ManualClock struct {
	mu     sync.Mutex
	now    time.Time
	nextID uint64
	timers map[uint64]*manualTimer
}

type manualTimer struct {
	id       uint64
	deadline time.Time
	fn       func()
}

func NewManualClock() *ManualClock {
	return &ManualClock{
		now:    time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		timers: map[uint64]*manualTimer{},
	}
}

func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// AfterFunc schedules fn after d and returns a stop func reporting whether
// the timer was still pending.
func (c *ManualClock) AfterFunc(d time.Duration, fn func()) func() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	id := c.nextID
	c.timers[id] = &manualTimer{id: id, deadline: c.now.Add(d), fn: fn}
	return func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		if _, ok := c.timers[id]; !ok {
			return false
		}
		delete(c.timers, id)
		return true
	}
}

// Advance moves the clock forward and fires every timer that became due.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	due := make([]*manualTimer, 0, len(c.timers))
	for id, timer := range c.timers {
		if !timer.deadline.After(c.now) {
			due = append(due, timer)
			delete(c.timers, id)
		}
	}
	c.mu.Unlock()

	sort.Slice(due, func(i, j int) bool {
		if due[i].deadline.Equal(due[j].deadline) {
			return due[i].id < due[j].id
		}
		return due[i].deadline.Before(due[j].deadline)
	})
	for _, timer := range due {
		timer.fn()
	}
}

// Pending returns the number of scheduled, unfired timers.
func (c *ManualClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

package runtime

import (
	"slices"
	"sync"
	"time"
)

// Timer is a single-shot pending callback.
type Timer interface {
	// Stop prevents the callback from firing. It reports false when the
	// timer already fired or was stopped.
	Stop() bool
}

// Clock schedules delayed callbacks.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type systemClock struct{}

// SystemClock runs callbacks on the Go runtime timers.
func SystemClock() Clock { return systemClock{} }

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// FakeClock is a manually driven Clock. Callbacks run synchronously inside
// Advance, in deadline order.
// Only armed timers are kept.
type FakeClock struct {
	mu      sync.Mutex
	now     time.Time
	nextSeq int
	timers  []*fakeTimer
}

func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start}
}

type fakeTimer struct {
	clock *FakeClock
	at    time.Time
	seq   int
	f     func()
	done  bool
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now.Add(d), seq: c.nextSeq, f: f}
	c.nextSeq++
	c.timers = append(c.timers, t)
	return t
}

// Advance moves the clock forward, firing every timer that falls due.
// Timers armed by a callback fire too when their deadline is within range.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		next := c.nextDue(target)
		if next == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		c.removeLocked(next)
		c.now = next.at
		c.mu.Unlock()
		next.f()
	}
}

// Pending counts armed timers that have not fired nor been stopped.
func (c *FakeClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

// nextDue returns the earliest timer due by target, ties in arming order.
func (c *FakeClock) nextDue(target time.Time) *fakeTimer {
	var next *fakeTimer
	for _, t := range c.timers {
		if t.at.After(target) {
			continue
		}
		if next == nil || t.at.Before(next.at) || (t.at.Equal(next.at) && t.seq < next.seq) {
			next = t
		}
	}
	return next
}

// removeLocked marks t done and forgets it. Caller holds c.mu.
func (c *FakeClock) removeLocked(t *fakeTimer) {
	t.done = true
	c.timers = slices.DeleteFunc(c.timers, func(other *fakeTimer) bool { return other == t })
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.done {
		return false
	}
	t.clock.removeLocked(t)
	return true
}

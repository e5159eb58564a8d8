package runtime

import (
	"log/slog"
	"sync"
	"time"
)

// DefaultQuiescence is the window a burst must stay quiet before a rebuild.
const DefaultQuiescence = 100 * time.Millisecond

// Debouncer collapses bursts of Schedule calls into one trailing call of
// action. Every Schedule restarts the window; at most one timer is armed.
type Debouncer struct {
	log    *slog.Logger
	clock  Clock
	window time.Duration
	action func()

	mu         sync.Mutex
	timer      Timer
	generation uint64
	stopped    bool
}

func NewDebouncer(log *slog.Logger, clock Clock, window time.Duration, action func()) *Debouncer {
	if window <= 0 {
		window = DefaultQuiescence
	}
	return &Debouncer{log: log, clock: clock, window: window, action: action}
}

// Schedule cancels the pending timer, if any, and arms a new one.
// It is a no-op once Stop has been called.
func (d *Debouncer) Schedule() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.generation++
	gen := d.generation
	d.timer = d.clock.AfterFunc(d.window, func() { d.fire(gen) })
}

// fire runs action only if no Schedule or Stop happened since gen was armed.
// A timer whose Stop lost the race against expiry lands here and is dropped.
func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if d.stopped || gen != d.generation {
		d.mu.Unlock()
		return
	}
	d.timer = nil
	d.mu.Unlock()
	d.action()
}

// Pending reports whether a timer is armed.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

// Stop cancels the pending timer. Once stopped the debouncer never fires.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.stopped = true
	d.generation++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
		d.log.Debug("Pending rebuild cancelled")
	}
}

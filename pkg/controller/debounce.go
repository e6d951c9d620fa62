package controller

import (
	"sync"
	"time"
)

// searchDelay is how long the search field must be idle before the list reloads.
const searchDelay = 300 * time.Millisecond

// debouncer runs only the last of a burst of calls, delay after it was made.
type debouncer struct {
	mu    sync.Mutex
	delay time.Duration
	timer *time.Timer
}

func newDebouncer(delay time.Duration) *debouncer {
	return &debouncer{delay: delay}
}

// Trigger schedules fn, replacing anything scheduled before.
func (d *debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}

	d.timer = time.AfterFunc(d.delay, fn)
}

// Stop drops the scheduled call, if any.
func (d *debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

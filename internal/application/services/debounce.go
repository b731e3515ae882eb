package services

import (
	"sync"
	"time"
)

// Debouncer coalesces bursts of triggers into one delayed call per key. Each
// new trigger within the window cancels and restarts the pending timer, so
// only the last-scheduled function runs.
type Debouncer struct {
	mu     sync.Mutex
	window time.Duration
	timers map[string]*time.Timer
}

func NewDebouncer(window time.Duration) *Debouncer {
	return &Debouncer{window: window, timers: make(map[string]*time.Timer)}
}

// Trigger schedules fn to run after the window elapses with no further
// triggers for key.
func (d *Debouncer) Trigger(key string, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if t, ok := d.timers[key]; ok {
		t.Stop()
	}
	d.timers[key] = time.AfterFunc(d.window, func() {
		d.mu.Lock()
		delete(d.timers, key)
		d.mu.Unlock()
		fn()
	})
}

// Flush cancels the pending timer for key and runs fn immediately.
func (d *Debouncer) Flush(key string, fn func()) {
	d.mu.Lock()
	if t, ok := d.timers[key]; ok {
		t.Stop()
		delete(d.timers, key)
	}
	d.mu.Unlock()
	fn()
}

// Stop cancels all pending timers without running them.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for k, t := range d.timers {
		t.Stop()
		delete(d.timers, k)
	}
}

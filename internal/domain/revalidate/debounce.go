package revalidate

import (
	"sync"
	"time"
)

// Debouncer coalesces bursts of triggers into a single call of fn.
// Every Schedule restarts the countdown.
type Debouncer struct {
	fn func()

	mu    sync.Mutex
	timer *time.Timer
	gen   uint64
}

// NewDebouncer creates a debouncer around fn
func NewDebouncer(fn func()) *Debouncer {
	return &Debouncer{fn: fn}
}

// Schedule runs fn after delay unless another Schedule or Stop comes first
func (d *Debouncer) Schedule(delay time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.timer = time.AfterFunc(delay, func() {
		d.mu.Lock()
		// A newer Schedule or Stop superseded this timer
		if gen != d.gen {
			d.mu.Unlock()
			return
		}
		d.timer = nil
		d.mu.Unlock()
		d.fn()
	})
}

// Pending reports whether a call is scheduled
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

// Stop cancels any pending call
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
}

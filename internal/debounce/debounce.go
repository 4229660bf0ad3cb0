// Package debounce coalesces bursts of calls into a single trailing call.
package debounce

import (
	"sync"
	"time"
)

// DefaultDelay of the conversation autosave.
const DefaultDelay = 500 * time.Millisecond

// Debouncer runs the last triggered function once no trigger happened for its delay.
type Debouncer struct {
	delay time.Duration

	lock       sync.Mutex
	timer      *time.Timer
	pending    func()
	generation uint64
	stopped    bool
}

// New instantiates and returns a new debouncer.
func New(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay}
}

// Trigger schedules fn to run after the delay, replacing any pending function.
// It is a no-op once the debouncer is stopped.
func (d *Debouncer) Trigger(fn func()) {
	d.lock.Lock()
	defer d.lock.Unlock()
	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.generation++
	generation := d.generation
	d.pending = fn
	d.timer = time.AfterFunc(d.delay, func() { d.fire(generation) })
}

// fire runs the pending function if no trigger happened since it was scheduled.
func (d *Debouncer) fire(generation uint64) {
	d.lock.Lock()
	if generation != d.generation || d.pending == nil {
		d.lock.Unlock()
		return
	}
	fn := d.take()
	d.lock.Unlock()
	fn()
}

// take the pending function. Must be called with the lock held.
func (d *Debouncer) take() func() {
	fn := d.pending
	d.pending = nil
	d.generation++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	return fn
}

// Pending returns true if a function is scheduled.
func (d *Debouncer) Pending() bool {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.pending != nil
}

// Flush runs the pending function now, in the calling goroutine.
func (d *Debouncer) Flush() {
	d.lock.Lock()
	if d.pending == nil {
		d.lock.Unlock()
		return
	}
	fn := d.take()
	d.lock.Unlock()
	fn()
}

// Cancel discards the pending function.
func (d *Debouncer) Cancel() {
	d.lock.Lock()
	defer d.lock.Unlock()
	d.pending = nil
	d.generation++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// Stop discards the pending function and ignores every future trigger.
func (d *Debouncer) Stop() {
	d.lock.Lock()
	d.stopped = true
	d.lock.Unlock()
	d.Cancel()
}

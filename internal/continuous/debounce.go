package continuous

import (
	"sync"
	"time"
)

// debouncer batches rapid Trigger calls into a single action after a quiet
// period, ported from the teacher's cmd/bd/daemon_debouncer.go Debouncer —
// the continuous tracker uses it to coalesce bursts of raw fsnotify events
// into one queue write instead of one per event.
type debouncer struct {
	mu       sync.Mutex
	timer    *time.Timer
	duration time.Duration
	action   func()
	seq      uint64
	wg       sync.WaitGroup
}

func newDebouncer(duration time.Duration, action func()) *debouncer {
	return &debouncer{duration: duration, action: action}
}

// trigger (re)schedules action to run duration after the most recent call.
func (d *debouncer) trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		if d.timer.Stop() {
			d.wg.Done()
		}
	}

	d.seq++
	currentSeq := d.seq

	d.wg.Add(1)
	d.timer = time.AfterFunc(d.duration, func() {
		defer d.wg.Done()

		d.mu.Lock()
		if d.seq != currentSeq {
			d.mu.Unlock()
			return
		}
		d.timer = nil
		d.mu.Unlock()

		d.action()
	})
}

// cancel stops any pending action without waiting for an in-flight one.
func (d *debouncer) cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		if d.timer.Stop() {
			d.wg.Done()
		}
		d.timer = nil
	}
}

// cancelAndWait stops any pending action and blocks until an in-flight one
// completes; used when tearing down the tracker.
func (d *debouncer) cancelAndWait() {
	d.cancel()
	d.wg.Wait()
}

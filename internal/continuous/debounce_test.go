package continuous

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestDebouncerCoalescesRapidTriggers(t *testing.T) {
	var fired int32
	d := newDebouncer(30*time.Millisecond, func() { atomic.AddInt32(&fired, 1) })

	for i := 0; i < 5; i++ {
		d.trigger()
		time.Sleep(5 * time.Millisecond)
	}

	time.Sleep(80 * time.Millisecond)
	if got := atomic.LoadInt32(&fired); got != 1 {
		t.Fatalf("action fired %d times, want 1", got)
	}
}

func TestDebouncerCancelAndWait(t *testing.T) {
	var fired int32
	d := newDebouncer(20*time.Millisecond, func() { atomic.AddInt32(&fired, 1) })

	d.trigger()
	d.cancelAndWait()

	time.Sleep(40 * time.Millisecond)
	if got := atomic.LoadInt32(&fired); got != 0 {
		t.Fatalf("cancelled action fired %d times, want 0", got)
	}
}

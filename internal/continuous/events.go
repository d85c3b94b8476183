package continuous

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// runEvents is the fsnotify event-processing loop (§4.6 Event
// processing): it waits up to 5s for a readable event, following the
// teacher's daemon_event_loop.go select-with-fallback-ticker shape.
func (t *Tracker) runEvents(ctx context.Context) {
	defer t.wg.Done()

	for {
		select {
		case event, ok := <-t.rawWatcher.Events:
			if !ok {
				return
			}
			t.handleEvent(event)
		case err, ok := <-t.rawWatcher.Errors:
			if !ok {
				return
			}
			t.logger.Warn("continuous: watcher error", "error", err)
		case <-ctx.Done():
			return
		case <-t.stop:
			return
		case <-time.After(5 * time.Second):
		}
	}
}

// handleEvent classifies a raw fsnotify event per §4.6: directory
// create/rename-in recurses new watches and is then queued like a file
// change; directory remove/rename-out tears down the whole watched
// subtree; anything else on a file is queued (via the debouncer) for
// every interested uuid.
func (t *Tracker) handleEvent(event fsnotify.Event) {
	path := event.Name

	if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
		if t.isWatchedDir(path) {
			t.removeWatchedTree(path)
		}
		return
	}

	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			t.addDiscoveredTree(path)
		}
	}

	t.queuePathDebounced(path)
}

func (t *Tracker) isWatchedDir(path string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.slotIndexForPath(path)
	return ok
}

// removeWatchedTree drops the watch on path and every watch whose
// directory lies beneath it.
func (t *Tracker) removeWatchedTree(path string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	prefix := path + string(filepath.Separator)
	for i, slot := range t.slots {
		if slot == nil {
			continue
		}
		if slot.directory == path || len(slot.directory) > len(prefix) && slot.directory[:len(prefix)] == prefix {
			t.removeSlot(i)
		}
	}
}

// addDiscoveredTree installs watches on a newly created directory and its
// children, inheriting the uuid interest list of its (already-watched)
// parent directory.
func (t *Tracker) addDiscoveredTree(path string) {
	t.mu.Lock()
	parentIdx, ok := t.slotIndexForPath(filepath.Dir(path))
	var uuids []interestWindow
	if ok {
		for _, u := range t.slots[parentIdx].uuids {
			uuids = append(uuids, interestWindow{jobUUID: u.JobUUID, scheduleUUID: u.ScheduleUUID, begin: u.BeginTime, end: u.EndTime})
		}
	}
	t.mu.Unlock()

	if !ok {
		return
	}
	t.mu.Lock()
	for _, u := range uuids {
		t.installTree(path, u.jobUUID, u.scheduleUUID, u.begin, u.end)
	}
	t.mu.Unlock()
}

type interestWindow struct {
	jobUUID, scheduleUUID string
	begin, end            time.Time
}

// queuePathDebounced records path as pending and (re)arms the debounce
// timer, following the teacher's Debouncer.Trigger usage.
func (t *Tracker) queuePathDebounced(path string) {
	t.pendingMu.Lock()
	t.pending[path] = struct{}{}
	t.pendingMu.Unlock()
	t.flush.trigger()
}

// flushPending is the debouncer's action: for every pending path it
// queues the path for each (job, schedule) interested in its directory
// and whose time-of-day window currently includes it.
func (t *Tracker) flushPending() {
	t.pendingMu.Lock()
	paths := make([]string, 0, len(t.pending))
	for p := range t.pending {
		paths = append(paths, p)
	}
	t.pending = make(map[string]struct{})
	t.pendingMu.Unlock()

	now := time.Now()
	ctx := context.Background()
	for _, p := range paths {
		t.queueInterested(ctx, p, now)
	}
}

// queueInterested enqueues p into the Queue for every uuid watching p's
// directory whose time-of-day window currently includes now.
func (t *Tracker) queueInterested(ctx context.Context, p string, now time.Time) {
	t.mu.Lock()
	idx, ok := t.slotIndexForPath(filepath.Dir(p))
	var matches []interestWindow
	if ok {
		for _, u := range t.slots[idx].uuids {
			if inUUIDWindow(now, u.BeginTime, u.EndTime) {
				matches = append(matches, interestWindow{jobUUID: u.JobUUID, scheduleUUID: u.ScheduleUUID})
			}
		}
	}
	t.mu.Unlock()

	for _, m := range matches {
		if err := t.queue.AddEntry(ctx, m.jobUUID, m.scheduleUUID, p); err != nil {
			t.logger.Warn("continuous: queue write failed", "path", p, "error", err)
		}
	}
}

// Package continuous implements the continuous-backup change tracker
// (§4.6): it installs filesystem watches over the directories named by a
// continuous job's include entries, debounces the resulting notify
// bursts, and feeds changed paths into a persisted Queue for a worker to
// pick up. Grounded on the teacher's cmd/bd/daemon_debouncer.go
// (debounce timer) and cmd/bd/daemon_event_loop.go (event-driven loop
// shape), and on uschtwill-beads/cmd/bd/activity_watcher.go for the
// fsnotify usage pattern, since the teacher itself never watches the
// filesystem directly.
package continuous

import (
	"context"
	"encoding/binary"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/torsten-rupp/barindex/internal/diagnostics"
	"github.com/torsten-rupp/barindex/internal/dict"
	"github.com/torsten-rupp/barindex/internal/ixerr"
	"github.com/torsten-rupp/barindex/internal/types"
)

// NoBackupMarker is the opt-out file: a directory containing it, and
// everything below it, is never watched (§4.6).
const NoBackupMarker = "NO_BACKUP"

const defaultDebounceWindow = 200 * time.Millisecond

// fsWatcher is the subset of *fsnotify.Watcher the tracker needs; tests
// substitute a fake so watch installation is exercised without requiring
// a live inotify instance.
type fsWatcher interface {
	Add(name string) error
	Remove(name string) error
	Close() error
}

type watchSlot struct {
	handle    int
	directory string
	uuids     []types.WatchUUIDEntry
}

// Option configures NewTracker.
type Option func(*Tracker)

// WithWatcher injects an fsWatcher implementation, overriding the default
// *fsnotify.Watcher — used by tests.
func WithWatcher(w fsWatcher) Option { return func(t *Tracker) { t.watcher = w } }

// WithLogger overrides the tracker's slog.Logger; nil falls back to
// slog.Default().
func WithLogger(l *slog.Logger) Option { return func(t *Tracker) { t.logger = l } }

// WithDebounceWindow overrides the debounce quiet period before a
// changed path is handed to the Queue.
func WithDebounceWindow(d time.Duration) Option {
	return func(t *Tracker) {
		if d > 0 {
			t.debounceWindow = d
		}
	}
}

// Tracker holds the in-memory watch set (§5's notifyLock-guarded state)
// plus the persisted Queue changed paths are written to.
type Tracker struct {
	queue  *Queue
	logger *slog.Logger

	watcher    fsWatcher
	rawWatcher *fsnotify.Watcher // non-nil only when watcher is the real fsnotify.Watcher; feeds runEvents
	polling    bool

	mu       sync.Mutex // notifyLock
	byPath   *dict.Dictionary
	byHandle *dict.Dictionary
	slots    []*watchSlot
	free     []int
	nextSeq  int

	debounceWindow time.Duration
	pendingMu      sync.Mutex
	pending        map[string]struct{}
	flush          *debouncer

	requests chan any
	wg       sync.WaitGroup
	stop     chan struct{}
}

type initRequest struct {
	name, jobUUID, scheduleUUID string
	beginTime, endTime          time.Time
	entries                     []string
	done                        chan error
}

type doneRequest struct {
	jobUUID, scheduleUUID string
	done                  chan error
}

// NewTracker opens (or creates) a real *fsnotify.Watcher unless an
// Option supplies one, starts the init/done writer goroutine and the
// fsnotify event loop, and returns the ready Tracker.
func NewTracker(ctx context.Context, queue *Queue, opts ...Option) (*Tracker, error) {
	t := &Tracker{
		queue:          queue,
		logger:         slog.Default(),
		byPath:         dict.New(),
		byHandle:       dict.New(),
		debounceWindow: defaultDebounceWindow,
		pending:        make(map[string]struct{}),
		requests:       make(chan any, 64),
		stop:           make(chan struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.flush = newDebouncer(t.debounceWindow, t.flushPending)

	if t.watcher == nil {
		w, err := fsnotify.NewWatcher()
		if err != nil {
			t.logger.Warn("continuous: fsnotify unavailable, running without live watches", "error", err)
			t.polling = true
		} else {
			t.watcher = w
			t.rawWatcher = w
		}
	}

	if maxWatches, maxInstances, ok := osWatchLimits(); ok {
		if maxWatches < 65536 {
			t.logger.Warn("continuous: OS_MAX_WATCHES below recommended floor", "max_watches", maxWatches, "floor", 65536)
		}
		if maxInstances < 256 {
			t.logger.Warn("continuous: OS_MAX_INSTANCES below recommended floor", "max_instances", maxInstances, "floor", 256)
		}
	}

	t.wg.Add(1)
	go t.runRequests()

	if t.rawWatcher != nil {
		t.wg.Add(1)
		go t.runEvents(ctx)
	}

	return t, nil
}

// Close tears down the event loop and writer goroutine and releases the
// underlying OS watch handle.
func (t *Tracker) Close() error {
	t.flush.cancelAndWait()
	close(t.stop)
	t.wg.Wait()
	if t.rawWatcher != nil {
		return t.rawWatcher.Close()
	}
	return nil
}

// InitNotify installs (or refreshes) watches for every include entry of a
// continuous job, tearing down any watch this (jobUUID, scheduleUUID)
// previously held that the new entry list no longer covers (§4.6 Init
// processing). name is carried through for logging only — the
// algorithm itself keys everything off jobUUID/scheduleUUID.
func (t *Tracker) InitNotify(ctx context.Context, name, jobUUID, scheduleUUID string, beginTime, endTime time.Time, includeEntries []string) error {
	req := &initRequest{
		name: name, jobUUID: jobUUID, scheduleUUID: scheduleUUID,
		beginTime: beginTime, endTime: endTime, entries: includeEntries,
		done: make(chan error, 1),
	}
	select {
	case t.requests <- req:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-req.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// DoneNotify removes every watch interest recorded for (jobUUID,
// scheduleUUID); an empty scheduleUUID matches every schedule of
// jobUUID (§4.6 Done processing).
func (t *Tracker) DoneNotify(ctx context.Context, jobUUID, scheduleUUID string) error {
	req := &doneRequest{jobUUID: jobUUID, scheduleUUID: scheduleUUID, done: make(chan error, 1)}
	select {
	case t.requests <- req:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-req.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// runRequests is the single writer goroutine the FIFO of InitNotify/
// DoneNotify requests is drained by, serializing all watch-set mutations
// against each other.
func (t *Tracker) runRequests() {
	defer t.wg.Done()
	for {
		select {
		case req := <-t.requests:
			switch r := req.(type) {
			case *initRequest:
				r.done <- t.processInit(r)
			case *doneRequest:
				r.done <- t.processDone(r)
			}
		case <-t.stop:
			return
		}
	}
}

func (t *Tracker) processInit(r *initRequest) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.markToClean(r.jobUUID, r.scheduleUUID)

	for _, entry := range r.entries {
		base := BaseDirectory(entry)
		t.installTree(base, r.jobUUID, r.scheduleUUID, r.beginTime, r.endTime)
	}

	removed := t.sweepToClean()
	t.logger.Info("continuous: init processed", "name", r.name, "job", r.jobUUID, "schedule", r.scheduleUUID,
		"watch_count", len(t.slots)-len(t.free), "watches_removed", removed)
	return nil
}

func (t *Tracker) processDone(r *doneRequest) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i, slot := range t.slots {
		if slot == nil {
			continue
		}
		kept := slot.uuids[:0]
		for _, u := range slot.uuids {
			if u.JobUUID == r.jobUUID && (r.scheduleUUID == "" || u.ScheduleUUID == r.scheduleUUID) {
				continue
			}
			kept = append(kept, u)
		}
		slot.uuids = kept
		if len(slot.uuids) == 0 {
			t.removeSlot(i)
		}
	}
	return nil
}

// installTree installs (or refreshes) a watch on dir and recurses into
// its subdirectories, skipping any subtree marked with NoBackupMarker.
func (t *Tracker) installTree(dir, jobUUID, scheduleUUID string, begin, end time.Time) {
	if _, err := os.Stat(filepath.Join(dir, NoBackupMarker)); err == nil {
		return
	}

	t.addOrUpdateWatch(dir, jobUUID, scheduleUUID, begin, end)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if e.IsDir() {
			t.installTree(filepath.Join(dir, e.Name()), jobUUID, scheduleUUID, begin, end)
		}
	}
}

// addOrUpdateWatch installs an OS watch on dir if one isn't already held,
// and records/refreshes the (jobUUID, scheduleUUID) interest on it.
// Callers must hold t.mu.
func (t *Tracker) addOrUpdateWatch(dir, jobUUID, scheduleUUID string, begin, end time.Time) {
	idx, ok := t.slotIndexForPath(dir)
	if !ok {
		if onDrvFS, err := diagnostics.IsDrvFSPath(dir); err == nil && onDrvFS {
			t.logger.Warn("continuous: watching a WSL DrvFS mount, inotify events there are unreliable", "dir", dir)
		}
		if t.watcher != nil {
			if err := t.watcher.Add(dir); err != nil {
				t.logger.Warn("continuous: watch install failed", "dir", dir, "error", ixerr.Wrap("addOrUpdateWatch", err))
				return
			}
		}
		idx = t.allocSlot(dir)
	}

	slot := t.slots[idx]
	for i := range slot.uuids {
		if slot.uuids[i].JobUUID == jobUUID && slot.uuids[i].ScheduleUUID == scheduleUUID {
			slot.uuids[i].BeginTime = begin
			slot.uuids[i].EndTime = end
			slot.uuids[i].Clean = false
			return
		}
	}
	slot.uuids = append(slot.uuids, types.WatchUUIDEntry{
		JobUUID: jobUUID, ScheduleUUID: scheduleUUID, BeginTime: begin, EndTime: end, Clean: false,
	})
}

func (t *Tracker) markToClean(jobUUID, scheduleUUID string) {
	for _, slot := range t.slots {
		if slot == nil {
			continue
		}
		for i := range slot.uuids {
			if slot.uuids[i].JobUUID == jobUUID && slot.uuids[i].ScheduleUUID == scheduleUUID {
				slot.uuids[i].Clean = true
			}
		}
	}
}

// sweepToClean drops every uuid entry still marked Clean (i.e. not
// refreshed by this Init pass) and removes any watch left with no
// remaining interest, returning the number of watches removed.
func (t *Tracker) sweepToClean() int {
	removed := 0
	for i, slot := range t.slots {
		if slot == nil {
			continue
		}
		kept := slot.uuids[:0]
		for _, u := range slot.uuids {
			if !u.Clean {
				kept = append(kept, u)
			}
		}
		slot.uuids = kept
		if len(slot.uuids) == 0 {
			t.removeSlot(i)
			removed++
		}
	}
	return removed
}

func (t *Tracker) allocSlot(dir string) int {
	var idx int
	if n := len(t.free); n > 0 {
		idx = t.free[n-1]
		t.free = t.free[:n-1]
	} else {
		idx = len(t.slots)
		t.slots = append(t.slots, nil)
	}
	t.nextSeq++
	handle := t.nextSeq
	t.slots[idx] = &watchSlot{handle: handle, directory: dir}
	t.byPath.Add([]byte(dir), encodeInt(int64(idx)))
	t.byHandle.Add(encodeInt(int64(handle)), encodeInt(int64(idx)))
	return idx
}

// removeSlot tears down the OS watch and dictionary entries for slot i.
// Callers must hold t.mu.
func (t *Tracker) removeSlot(i int) {
	slot := t.slots[i]
	if slot == nil {
		return
	}
	if t.watcher != nil {
		_ = t.watcher.Remove(slot.directory)
	}
	t.byPath.Remove([]byte(slot.directory))
	t.byHandle.Remove(encodeInt(int64(slot.handle)))
	t.slots[i] = nil
	t.free = append(t.free, i)
}

func (t *Tracker) slotIndexForPath(dir string) (int, bool) {
	v, ok := t.byPath.Find([]byte(dir))
	if !ok {
		return 0, false
	}
	return int(decodeInt(v)), true
}

// Watches returns a snapshot of every directory currently watched, for
// diagnostics and tests.
func (t *Tracker) Watches() []types.Watch {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]types.Watch, 0, len(t.slots)-len(t.free))
	for _, slot := range t.slots {
		if slot == nil {
			continue
		}
		uuids := append([]types.WatchUUIDEntry(nil), slot.uuids...)
		out = append(out, types.Watch{Handle: slot.handle, Directory: slot.directory, UUIDs: uuids})
	}
	return out
}

func encodeInt(v int64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, uint64(v))
	return b
}

func decodeInt(b []byte) int64 {
	return int64(binary.LittleEndian.Uint64(b))
}

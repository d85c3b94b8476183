package continuous

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/require"
)

// fakeWatcher substitutes for *fsnotify.Watcher in tests so watch
// install/teardown is exercised without depending on a live inotify
// instance.
type fakeWatcher struct {
	mu    sync.Mutex
	added map[string]int
}

func newFakeWatcher() *fakeWatcher { return &fakeWatcher{added: make(map[string]int)} }

func (f *fakeWatcher) Add(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.added[name]++
	return nil
}

func (f *fakeWatcher) Remove(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.added, name)
	return nil
}

func (f *fakeWatcher) Close() error { return nil }

func (f *fakeWatcher) has(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.added[name]
	return ok
}

func (f *fakeWatcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.added)
}

func newTestTracker(t *testing.T, fw *fakeWatcher) *Tracker {
	t.Helper()
	ctx := context.Background()
	q := newTestQueue(t, time.Millisecond)
	tr, err := NewTracker(ctx, q, WithWatcher(fw), WithDebounceWindow(10*time.Millisecond))
	require.NoError(t, err)
	t.Cleanup(func() { _ = tr.Close() })
	return tr
}

// TestContinuousHappyPath exercises seed scenario 3: InitNotify installs
// watches over a directory tree, a file-modifying event on a watched
// path gets queued for the interested job/schedule, and GetEntry hands
// it back once it has cooled past minDelta.
func TestContinuousHappyPath(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "sub")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	target := filepath.Join(sub, "file.txt")
	require.NoError(t, os.WriteFile(target, []byte("v1"), 0o644))

	fw := newFakeWatcher()
	tr := newTestTracker(t, fw)

	ctx := context.Background()
	require.NoError(t, tr.InitNotify(ctx, "job1", "job-A", "sched-A", time.Time{}, time.Time{}, []string{root}))

	require.True(t, fw.has(root))
	require.True(t, fw.has(sub))

	tr.handleEvent(fsnotify.Event{Name: target, Op: fsnotify.Write})
	time.Sleep(50 * time.Millisecond)

	name, ok, err := tr.queue.GetEntry(ctx, "job-A", "sched-A")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, target, name)
}

// TestWatchTeardown exercises seed scenario 6: DoneNotify removes every
// watch installed for a (job, schedule) pair and tears down the OS
// watch once no interest remains.
func TestWatchTeardown(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "sub")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	fw := newFakeWatcher()
	tr := newTestTracker(t, fw)

	ctx := context.Background()
	require.NoError(t, tr.InitNotify(ctx, "job1", "job-B", "sched-B", time.Time{}, time.Time{}, []string{root}))
	require.Equal(t, 2, fw.count())
	require.Len(t, tr.Watches(), 2)

	require.NoError(t, tr.DoneNotify(ctx, "job-B", "sched-B"))
	require.Equal(t, 0, fw.count())
	require.Len(t, tr.Watches(), 0)
}

// TestInitNotifyDropsUnreferencedWatch confirms a second InitNotify for
// the same (job, schedule) that no longer covers a previously-watched
// directory sweeps that watch away (§4.6 step 4/5).
func TestInitNotifyDropsUnreferencedWatch(t *testing.T) {
	root := t.TempDir()
	a := filepath.Join(root, "a")
	b := filepath.Join(root, "b")
	require.NoError(t, os.MkdirAll(a, 0o755))
	require.NoError(t, os.MkdirAll(b, 0o755))

	fw := newFakeWatcher()
	tr := newTestTracker(t, fw)

	ctx := context.Background()
	require.NoError(t, tr.InitNotify(ctx, "job1", "job-C", "sched-C", time.Time{}, time.Time{}, []string{a, b}))
	require.True(t, fw.has(a))
	require.True(t, fw.has(b))

	require.NoError(t, tr.InitNotify(ctx, "job1", "job-C", "sched-C", time.Time{}, time.Time{}, []string{a}))
	require.True(t, fw.has(a))
	require.False(t, fw.has(b))
}

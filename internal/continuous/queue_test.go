package continuous

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/torsten-rupp/barindex/internal/dbfacade"
)

func newTestQueue(t *testing.T, minDelta time.Duration) *Queue {
	t.Helper()
	ctx := context.Background()
	dsn := dbfacade.SQLiteDSN(t.TempDir()+"/continuous.db", false)
	q, err := OpenQueue(ctx, dsn, minDelta)
	require.NoError(t, err)
	t.Cleanup(func() { _ = q.Close() })
	return q
}

// TestQueueDebounceEviction exercises seed scenario 4: a consumed
// (stored) row cannot be re-queued until minDelta has passed, after
// which AddEntry evicts the stale stored row and a fresh one becomes
// available.
func TestQueueDebounceEviction(t *testing.T) {
	ctx := context.Background()
	q := newTestQueue(t, 50*time.Millisecond)

	require.NoError(t, q.AddEntry(ctx, "job-A", "sched-A", "/data/file.txt"))

	available, err := q.IsEntryAvailable(ctx, "job-A", "sched-A")
	require.NoError(t, err)
	require.False(t, available, "a freshly queued row hasn't cooled past minDelta yet")

	time.Sleep(60 * time.Millisecond)

	available, err = q.IsEntryAvailable(ctx, "job-A", "sched-A")
	require.NoError(t, err)
	require.True(t, available)

	name, ok, err := q.GetEntry(ctx, "job-A", "sched-A")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "/data/file.txt", name)

	// Consumed: re-adding the same name before minDelta elapses is a
	// no-op, the row is still cooling from its pickup stamp.
	require.NoError(t, q.AddEntry(ctx, "job-A", "sched-A", "/data/file.txt"))
	available, err = q.IsEntryAvailable(ctx, "job-A", "sched-A")
	require.NoError(t, err)
	require.False(t, available)

	time.Sleep(60 * time.Millisecond)

	// Past minDelta since pickup: AddEntry evicts the stored row and
	// inserts a fresh one, available once it has cooled past minDelta.
	require.NoError(t, q.AddEntry(ctx, "job-A", "sched-A", "/data/file.txt"))
	time.Sleep(60 * time.Millisecond)
	available, err = q.IsEntryAvailable(ctx, "job-A", "sched-A")
	require.NoError(t, err)
	require.True(t, available)
}

func TestQueueDiscardEntries(t *testing.T) {
	ctx := context.Background()
	q := newTestQueue(t, time.Millisecond)

	require.NoError(t, q.AddEntry(ctx, "job-B", "sched-B", "/data/a"))
	require.NoError(t, q.AddEntry(ctx, "job-B", "sched-B", "/data/b"))
	require.NoError(t, q.AddEntry(ctx, "job-B", "other", "/data/c"))
	time.Sleep(5 * time.Millisecond)

	require.NoError(t, q.DiscardEntries(ctx, "job-B", "sched-B"))

	available, err := q.IsEntryAvailable(ctx, "job-B", "sched-B")
	require.NoError(t, err)
	require.False(t, available)

	available, err = q.IsEntryAvailable(ctx, "job-B", "other")
	require.NoError(t, err)
	require.True(t, available)
}

package index

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/torsten-rupp/barindex/internal/dbfacade"
	"github.com/torsten-rupp/barindex/internal/types"
)

// newTestIndex opens a fresh schema on a private temp-file SQLite database,
// following the teacher's per-test isolation pattern (internal/storage/
// sqlite/test_helpers.go): a private temp file rather than a shared
// ":memory:" database, closed via t.Cleanup.
func newTestIndex(t *testing.T) *Index {
	t.Helper()
	ctx := context.Background()

	dsn := dbfacade.SQLiteDSN(t.TempDir()+"/index.db", false)
	db, err := dbfacade.Open(ctx, dbfacade.SQLite, dsn, false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	idx, err := Open(ctx, db, Options{})
	require.NoError(t, err)
	return idx
}

// TestLifecycle exercises seed scenario 1: create a locked entity, add one
// storage and three file entries with fragments, unlock, recompute
// aggregates, mark the storage deleted, purge it, prune the now-empty
// entity, and prune its uuid.
func TestLifecycle(t *testing.T) {
	ctx := context.Background()
	idx := newTestIndex(t)

	entityId, err := idx.NewEntity(ctx, "job-A", "sched-A", "host1", "user1", types.EntityFull, time.Time{}, true)
	require.NoError(t, err)

	locked, err := idx.IsLockedEntity(ctx, entityId)
	require.NoError(t, err)
	require.True(t, locked)

	storageId, err := idx.NewStorage(ctx, entityId, "arc-001.bar")
	require.NoError(t, err)

	sizes := []int64{100, 200, 300}
	for i, size := range sizes {
		_, err := idx.AddEntry(ctx, NewEntryInput{
			EntityID:        entityId,
			Type:            types.EntryFile,
			Name:            "/data/file" + string(rune('a'+i)),
			TimeLastChanged: time.Now(),
			Size:            size,
			Fragments:       []types.Fragment{{StorageID: storageId, Offset: 0, Size: size}},
		})
		require.NoError(t, err)
	}

	require.NoError(t, idx.UnlockEntity(ctx, entityId))
	locked, err = idx.IsLockedEntity(ctx, entityId)
	require.NoError(t, err)
	require.False(t, locked)

	require.NoError(t, idx.UpdateEntityAggregates(ctx, entityId))
	entity, err := idx.GetEntity(ctx, entityId)
	require.NoError(t, err)
	require.Equal(t, int64(3), entity.Aggregates.TotalFileCount)
	require.Equal(t, int64(600), entity.Aggregates.TotalFileSize)
	require.Equal(t, int64(3), entity.Aggregates.TotalEntryCount)
	require.Equal(t, int64(600), entity.Aggregates.TotalEntrySize)

	require.NoError(t, idx.UpdateStorageAggregates(ctx, storageId))

	require.NoError(t, idx.MarkDeletedStorage(ctx, storageId))
	deleted, err := idx.IsDeletedStorage(ctx, storageId)
	require.NoError(t, err)
	require.True(t, deleted)

	require.NoError(t, idx.PurgeStorage(ctx, storageId))

	empty, err := idx.IsEmptyEntity(ctx, entityId)
	require.NoError(t, err)
	require.True(t, empty)

	require.NoError(t, idx.PruneEntity(ctx, entityId))
	_, err = idx.GetEntity(ctx, entityId)
	require.Error(t, err)

	require.NoError(t, idx.PruneUuid(ctx, "job-A"))
	_, err = idx.findOrCreateUuid(ctx, "job-A")
	require.NoError(t, err) // lazily recreated — absence isn't directly observable via public API
}

// TestEntriesNewestRepointsOnPurge exercises the entriesNewest invariant: if
// two entries share a name, purging the storage backing the more recent one
// repoints entriesNewest at the surviving, older entry rather than leaving a
// dangling reference.
func TestEntriesNewestRepointsOnPurge(t *testing.T) {
	ctx := context.Background()
	idx := newTestIndex(t)

	entityId, err := idx.NewEntity(ctx, "job-B", "", "host", "user", types.EntityFull, time.Time{}, false)
	require.NoError(t, err)

	s1, err := idx.NewStorage(ctx, entityId, "old.bar")
	require.NoError(t, err)
	s2, err := idx.NewStorage(ctx, entityId, "new.bar")
	require.NoError(t, err)

	older := time.Now().Add(-time.Hour)
	newer := time.Now()

	_, err = idx.AddEntry(ctx, NewEntryInput{
		EntityID: entityId, Type: types.EntryFile, Name: "/same/name", TimeLastChanged: older, Size: 10,
		Fragments: []types.Fragment{{StorageID: s1, Size: 10}},
	})
	require.NoError(t, err)

	newEntryId, err := idx.AddEntry(ctx, NewEntryInput{
		EntityID: entityId, Type: types.EntryFile, Name: "/same/name", TimeLastChanged: newer, Size: 20,
		Fragments: []types.Fragment{{StorageID: s2, Size: 20}},
	})
	require.NoError(t, err)

	cursor, err := idx.InitListEntries(ctx, EntryListing{EntityID: entityId, NewestOnly: true})
	require.NoError(t, err)
	newest, ok, err := cursor.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, newEntryId, newest.ID)
	require.NoError(t, cursor.Close())

	require.NoError(t, idx.MarkDeletedStorage(ctx, s2))
	require.NoError(t, idx.PurgeStorage(ctx, s2))

	cursor, err = idx.InitListEntries(ctx, EntryListing{EntityID: entityId, NewestOnly: true})
	require.NoError(t, err)
	newest, ok, err = cursor.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "/same/name", newest.Name)
	require.NoError(t, cursor.Close())
}

// TestInterruptOperation confirms isBusy only reports contention once a
// second, concurrent BeginInterruptable mark is held alongside the pass's
// own mark, and that InterruptOperation returns promptly once that second
// mark is released rather than waiting out the full timeout.
func TestInterruptOperation(t *testing.T) {
	ctx := context.Background()
	idx := newTestIndex(t)

	idx.BeginInterruptable() // the pass itself
	require.False(t, idx.isBusy())

	idx.BeginInterruptable() // a concurrent caller
	require.True(t, idx.isBusy())

	done := make(chan error, 1)
	go func() {
		done <- idx.InterruptOperation(ctx, time.Second)
	}()
	time.Sleep(20 * time.Millisecond)
	idx.EndInterruptable() // concurrent caller releases its mark

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("InterruptOperation did not return after contending mark was released")
	}

	idx.EndInterruptable() // the pass itself
}

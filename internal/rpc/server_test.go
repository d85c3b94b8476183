package rpc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/torsten-rupp/barindex/internal/dbfacade"
	"github.com/torsten-rupp/barindex/internal/index"
)

func startTestServer(t *testing.T) (*Client, func()) {
	t.Helper()
	ctx := context.Background()

	dsn := dbfacade.SQLiteDSN(t.TempDir()+"/index.db", false)
	db, err := dbfacade.Open(ctx, dbfacade.SQLite, dsn, false)
	require.NoError(t, err)

	idx, err := index.Open(ctx, db, index.Options{})
	require.NoError(t, err)

	socketPath := t.TempDir() + "/rpc.sock"
	listener, err := ListenUnix(socketPath)
	require.NoError(t, err)

	srv := NewServer(idx)
	serveCtx, cancel := context.WithCancel(ctx)
	go func() { _ = srv.Serve(serveCtx, listener) }()

	client, err := DialUnix(socketPath, time.Second)
	require.NoError(t, err)

	cleanup := func() {
		_ = client.Close()
		cancel()
		_ = listener.Close()
		_ = db.Close()
	}
	return client, cleanup
}

// TestRPCEntityLifecycle drives five of the six INDEX_* operations over a
// real Unix domain socket end to end: create, update, unlock, refresh
// aggregates, and prune an entity that is unlocked and empty. DeleteEntity
// is not exercised here.
func TestRPCEntityLifecycle(t *testing.T) {
	client, cleanup := startTestServer(t)
	defer cleanup()

	entityID, err := client.NewEntity(NewEntityArgs{
		JobUUID: "job-A", ScheduleUUID: "sched-A", HostName: "host1", UserName: "user1",
		ArchiveType: 1, Locked: true,
	})
	require.NoError(t, err)
	require.NotZero(t, entityID)

	hostName := "host2"
	require.NoError(t, client.UpdateEntity(UpdateEntityArgs{EntityID: entityID, HostName: &hostName}))

	require.NoError(t, client.UnlockEntity(entityID))
	require.NoError(t, client.UpdateEntityInfos(entityID))

	// Not locked and empty (no storages/entries created): PruneEntity
	// removes it.
	require.NoError(t, client.PruneEntity(entityID))
}

func TestRPCUnknownOperation(t *testing.T) {
	client, cleanup := startTestServer(t)
	defer cleanup()

	resp, err := client.Call("INDEX_NOT_A_REAL_OP", EntityIDArgs{})
	require.NoError(t, err)
	require.False(t, resp.Success)
	require.Contains(t, resp.Error, "unknown operation")
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/torsten-rupp/barindex/internal/dbfacade"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	require.Equal(t, "sqlite", cfg.Database.Backend)
	require.Equal(t, "index.db", cfg.Database.Path)
}

func TestLoadOverlaysYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "barindexd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database:
  backend: postgres
  host: db.example.internal
  port: 6543
  user: barindex
  password: secret
  name: barindex
  tls: true
continuous:
  queue_database_path: /var/lib/barindex/continuous.db
  min_time_delta_seconds: 10
maintenance:
  window_start: "23:00"
  window_end: "02:00"
rpc:
  socket_path: /run/barindex/barindexd.sock
  tcp_addr: 127.0.0.1:9870
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	backend, err := cfg.Backend()
	require.NoError(t, err)
	require.Equal(t, dbfacade.PostgreSQL, backend)

	dsn, err := cfg.DSN()
	require.NoError(t, err)
	require.Contains(t, dsn, "sslmode=require")

	require.Equal(t, 10*time.Second, cfg.ContinuousMinTimeDelta())
	require.Equal(t, "127.0.0.1:9870", cfg.RPC.TCPAddr)
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "barindexd.yaml")
	require.NoError(t, os.WriteFile(path, []byte("database:\n  backend: oracle\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	_, err = cfg.Backend()
	require.Error(t, err)
}

func TestIsMaintenanceTimeWrapsMidnight(t *testing.T) {
	cfg := Default()
	cfg.Maintenance.WindowStart = "23:00"
	cfg.Maintenance.WindowEnd = "02:00"

	late := time.Date(2024, 1, 1, 23, 30, 0, 0, time.UTC)
	early := time.Date(2024, 1, 1, 1, 30, 0, 0, time.UTC)
	midday := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	require.True(t, cfg.IsMaintenanceTime(late))
	require.True(t, cfg.IsMaintenanceTime(early))
	require.False(t, cfg.IsMaintenanceTime(midday))
}

func TestIsMaintenanceTimeUnsetNeverRuns(t *testing.T) {
	cfg := Default()
	require.False(t, cfg.IsMaintenanceTime(time.Now()))
}

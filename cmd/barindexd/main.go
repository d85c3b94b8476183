// Command barindexd is the index daemon: it opens (migrating if needed)
// the storage index, starts the continuous-backup filesystem tracker,
// and serves the INDEX_* RPC surface over a Unix domain socket (and,
// optionally, TCP). Grounded on the teacher's cmd/bd/main.go entrypoint
// shape and cmd/bd/daemon_event_loop.go's signal-driven shutdown, using
// the standard flag package rather than the teacher's cobra-based CLI
// since this daemon exposes a single process mode and no subcommand tree
// (see DESIGN.md for the divergence).
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/torsten-rupp/barindex/internal/config"
	"github.com/torsten-rupp/barindex/internal/continuous"
	"github.com/torsten-rupp/barindex/internal/dbfacade"
	"github.com/torsten-rupp/barindex/internal/index"
	"github.com/torsten-rupp/barindex/internal/index/migration"
	"github.com/torsten-rupp/barindex/internal/rpc"
)

func main() {
	configPath := flag.String("config", "", "path to barindexd.yaml (defaults applied when omitted)")
	verbose := flag.Bool("verbose", false, "enable debug-level logging")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err := run(*configPath, logger); err != nil {
		logger.Error("barindexd exiting", "error", err)
		os.Exit(1)
	}
}

func run(configPath string, logger *slog.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	backend, err := cfg.Backend()
	if err != nil {
		return err
	}
	dsn, err := cfg.DSN()
	if err != nil {
		return err
	}
	db, err := dbfacade.Open(ctx, backend, dsn, false)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	idx, err := index.Open(ctx, db, index.Options{
		Migrate:           migrateDispatch,
		IsMaintenanceTime: cfg.IsMaintenanceTime,
	})
	if err != nil {
		return fmt.Errorf("opening index: %w", err)
	}
	defer idx.Close()

	queue, err := continuous.OpenQueue(ctx, dbfacade.SQLiteDSN(cfg.Continuous.QueueDatabasePath, false), cfg.ContinuousMinTimeDelta())
	if err != nil {
		return fmt.Errorf("opening continuous queue: %w", err)
	}
	defer queue.Close()

	tracker, err := continuous.NewTracker(ctx, queue, continuous.WithLogger(logger),
		continuous.WithDebounceWindow(time.Duration(cfg.Continuous.DebounceMillis)*time.Millisecond))
	if err != nil {
		return fmt.Errorf("starting continuous tracker: %w", err)
	}
	defer tracker.Close()

	srv := rpc.NewServer(idx, rpc.WithLogger(logger))

	_ = os.Remove(cfg.RPC.SocketPath)
	unixListener, err := rpc.ListenUnix(cfg.RPC.SocketPath)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", cfg.RPC.SocketPath, err)
	}

	listeners := []net.Listener{unixListener}
	if cfg.RPC.TCPAddr != "" {
		tcpListener, err := rpc.ListenTCP(cfg.RPC.TCPAddr)
		if err != nil {
			return fmt.Errorf("listening on %s: %w", cfg.RPC.TCPAddr, err)
		}
		listeners = append(listeners, tcpListener)
	}

	errs := make(chan error, len(listeners))
	for _, l := range listeners {
		l := l
		logger.Info("barindexd listening", "addr", l.Addr())
		go func() { errs <- srv.Serve(ctx, l) }()
	}

	select {
	case <-ctx.Done():
		logger.Info("barindexd shutting down")
		idx.Quit()
		return nil
	case err := <-errs:
		if err != nil && !errors.Is(err, net.ErrClosed) {
			return fmt.Errorf("rpc server: %w", err)
		}
		return nil
	}
}

// migrateDispatch picks the importer for the database's recorded
// version (§7): version 2 and version 7 are the only legacy schemas
// internal/index/migration knows how to import from.
func migrateDispatch(ctx context.Context, oldVersion int, idx *index.Index) error {
	switch oldVersion {
	case 2:
		return migration.ImportFromVersion2(ctx, oldVersion, idx)
	case 7:
		return migration.ImportFromVersion7(ctx, oldVersion, idx)
	default:
		return fmt.Errorf("barindexd: no migrator for database version %d", oldVersion)
	}
}

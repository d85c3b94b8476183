package index

import (
	"context"
	"sync"
	"time"

	"github.com/torsten-rupp/barindex/internal/dbfacade"
	"github.com/torsten-rupp/barindex/internal/ixerr"
)

// MigrateFunc imports data from a previous-version database into a freshly
// schema'd current-version database; wired by internal/index/migration.
type MigrateFunc func(ctx context.Context, oldVersion int, newIndex *Index) error

// Options configures Open.
type Options struct {
	// Migrate runs, on the same connection, when the opened database's
	// meta.version is present and below CurrentVersion. A database with no
	// stored version gets a fresh current schema and nothing is imported.
	// With Migrate nil, Open fails with a DatabaseVersion error on an older
	// database — the caller is responsible for wiring
	// internal/index/migration's importers.
	Migrate MigrateFunc

	// IsMaintenanceTime gates background maintenance passes; nil means
	// "never run maintenance automatically" (the caller drives passes
	// explicitly).
	IsMaintenanceTime func(now time.Time) bool
}

// Index wraps a database facade with the entity/storage/entry lifecycle,
// aggregate maintenance, and query surface described by the schema above.
// A single indexLock serializes index-global state (the in-use counter and
// the interruptable-operation handshake) per the fixed lock order
// indexLock -> facade-lock -> notifyLock -> dict-lock -> string-debug-lock.
type Index struct {
	db  *dbfacade.DB
	opt Options

	mu      sync.Mutex
	inUse   int
	quit    bool
	quitted chan struct{}
}

// Open opens (or creates) the current-version schema on db, running
// opt.Migrate first if the existing database is on an older version.
func Open(ctx context.Context, db *dbfacade.DB, opt Options) (*Index, error) {
	idx := &Index{db: db, opt: opt, quitted: make(chan struct{})}

	version, err := idx.readVersion(ctx)
	if err != nil {
		return nil, err
	}

	if version == 0 {
		if err := EnsureSchema(ctx, db); err != nil {
			return nil, err
		}
		if err := idx.writeVersion(ctx, CurrentVersion); err != nil {
			return nil, err
		}
		return idx, nil
	}

	if version < CurrentVersion {
		if opt.Migrate == nil {
			return nil, ixerr.New(ixerr.DatabaseVersion, "database at version %d, need %d and no migrator configured", version, CurrentVersion)
		}
		if err := opt.Migrate(ctx, version, idx); err != nil {
			return nil, ixerr.Wrap("index.Open: migrate", err)
		}
		if err := idx.writeVersion(ctx, CurrentVersion); err != nil {
			return nil, err
		}
	}
	return idx, nil
}

// DB exposes the underlying facade for callers (migration importers,
// continuous tracker) that need direct table access.
func (idx *Index) DB() *dbfacade.DB { return idx.db }

func (idx *Index) readVersion(ctx context.Context) (int, error) {
	exists, err := idx.db.ExistsValue(ctx, "meta", dbfacade.NewFilter().And("name = ?", "version"))
	if err != nil {
		// meta table not created yet on a brand-new database.
		return 0, nil
	}
	if !exists {
		return 0, nil
	}
	v, err := idx.db.GetInt64(ctx, "meta", "value", dbfacade.NewFilter().And("name = ?", "version"))
	if err != nil {
		return 0, ixerr.Wrap("index.readVersion", err)
	}
	return int(v), nil
}

func (idx *Index) writeVersion(ctx context.Context, version int) error {
	n, err := idx.db.Update(ctx, "meta", map[string]interface{}{"value": itoa64(int64(version))}, dbfacade.NewFilter().And("name = ?", "version"))
	if err != nil {
		return ixerr.Wrap("index.writeVersion", err)
	}
	if n == 0 {
		_, err := idx.db.Insert(ctx, "meta", []string{"name", "value"}, []interface{}{"version", itoa64(int64(version))})
		if err != nil {
			return ixerr.Wrap("index.writeVersion", err)
		}
	}
	return nil
}

func itoa64(n int64) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// BeginInterruptable marks the index in-use for the duration of a
// long-running pass (purge, migration, aggregate rebuild); EndInterruptable
// must be deferred by the caller.
func (idx *Index) BeginInterruptable() {
	idx.mu.Lock()
	idx.inUse++
	idx.mu.Unlock()
}

// EndInterruptable releases the in-use mark set by BeginInterruptable.
func (idx *Index) EndInterruptable() {
	idx.mu.Lock()
	idx.inUse--
	idx.mu.Unlock()
}

// isBusy reports whether some other caller holds the index, for the
// callback handed to dbfacade.Purge.
func (idx *Index) isBusy() bool {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.inUse > 1 // the caller itself holds one BeginInterruptable mark
}

// InterruptOperation is polled periodically inside a long pass: if another
// caller is using the index it waits up to timeout for the busy flag to
// clear, and returns ErrInterrupted if a global quit has been signaled.
func (idx *Index) InterruptOperation(ctx context.Context, timeout time.Duration) error {
	if idx.Quitting() {
		return ixerr.ErrInterrupted
	}
	if !idx.isBusy() {
		return nil
	}

	deadline := time.Now().Add(timeout)
	for idx.isBusy() {
		if idx.Quitting() {
			return ixerr.ErrInterrupted
		}
		if time.Now().After(deadline) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ixerr.ErrInterrupted
		case <-time.After(50 * time.Millisecond):
		}
	}
	return nil
}

// Quit signals every loop polling Quitting to stop.
func (idx *Index) Quit() {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if !idx.quit {
		idx.quit = true
		close(idx.quitted)
	}
}

// Quitting reports whether Quit has been called.
func (idx *Index) Quitting() bool {
	select {
	case <-idx.quitted:
		return true
	default:
		return false
	}
}

// IsMaintenanceTime reports whether background maintenance may run now; it
// defers to opt.IsMaintenanceTime, defaulting to false when unconfigured.
func (idx *Index) IsMaintenanceTime(now time.Time) bool {
	if idx.opt.IsMaintenanceTime == nil {
		return false
	}
	return idx.opt.IsMaintenanceTime(now)
}

// Close releases the underlying database connection.
func (idx *Index) Close() error {
	return idx.db.Close()
}

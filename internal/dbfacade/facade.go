// Package dbfacade is a thin portable layer over the three backends the
// index can be stored on — SQLite, MariaDB/MySQL, and PostgreSQL — reached
// through real database/sql drivers rather than hand-rolled wire code.
// Query shape, retry policy, and instrumentation follow the teacher's
// Dolt storage backend (see internal/storage/dolt/store.go).
package dbfacade

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/torsten-rupp/barindex/internal/ixerr"
)

// Backend identifies the SQL dialect a DB instance speaks.
type Backend int

const (
	SQLite Backend = iota
	MariaDB
	PostgreSQL
)

func (b Backend) String() string {
	switch b {
	case SQLite:
		return "sqlite3"
	case MariaDB:
		return "mysql"
	case PostgreSQL:
		return "postgres"
	default:
		return "unknown"
	}
}

// DB wraps a *sql.DB for one backend with retry and instrumentation.
type DB struct {
	backend  Backend
	sqlDB    *sql.DB
	pgxPool  *pgxpool.Pool // non-nil only for PostgreSQL; backs sqlDB and is closed by Close
	readOnly bool

	retryMaxElapsed time.Duration
}

const facadeRetryMaxElapsed = 30 * time.Second

var facadeTracer = otel.Tracer("github.com/torsten-rupp/barindex/internal/dbfacade")

var facadeMetrics struct {
	queryDuration metric.Float64Histogram
	rows          metric.Int64Counter
	retryCount    metric.Int64Counter
}

func init() {
	m := otel.Meter("github.com/torsten-rupp/barindex/internal/dbfacade")
	facadeMetrics.queryDuration, _ = m.Float64Histogram("index.facade.query.duration",
		metric.WithDescription("Time spent executing a facade query"),
		metric.WithUnit("ms"),
	)
	facadeMetrics.rows, _ = m.Int64Counter("index.facade.rows",
		metric.WithDescription("Rows affected or returned by a facade query"),
		metric.WithUnit("{row}"),
	)
	facadeMetrics.retryCount, _ = m.Int64Counter("index.facade.retry_count",
		metric.WithDescription("Facade operations retried due to a transient backend error"),
		metric.WithUnit("{retry}"),
	)
}

// Open opens a connection pool for backend against dsn. For SQLite, dsn is
// the connection string produced by SQLiteConnString. For MariaDB and
// PostgreSQL, dsn is the driver-native DSN.
func Open(ctx context.Context, backend Backend, dsn string, readOnly bool) (*DB, error) {
	db := &DB{backend: backend, readOnly: readOnly, retryMaxElapsed: facadeRetryMaxElapsed}

	switch backend {
	case SQLite:
		sqlDB, err := sql.Open("sqlite3", dsn)
		if err != nil {
			return nil, ixerr.Wrap("dbfacade.Open", err)
		}
		sqlDB.SetMaxOpenConns(1) // SQLite: single writer, serialize via busy_timeout
		db.sqlDB = sqlDB
	case MariaDB:
		sqlDB, err := sql.Open("mysql", dsn)
		if err != nil {
			return nil, ixerr.Wrap("dbfacade.Open", err)
		}
		db.sqlDB = sqlDB
	case PostgreSQL:
		pool, err := pgxpool.New(ctx, dsn)
		if err != nil {
			return nil, ixerr.Wrap("dbfacade.Open", err)
		}
		db.pgxPool = pool
		db.sqlDB = stdlib.OpenDBFromPool(pool)
	default:
		return nil, ixerr.New(ixerr.InvalidArgument, "unknown backend %v", backend)
	}

	if err := db.sqlDB.PingContext(ctx); err != nil {
		db.Close()
		return nil, ixerr.Wrap("dbfacade.Open", err)
	}
	return db, nil
}

// Close releases the underlying connection pool.
func (db *DB) Close() error {
	if db.pgxPool != nil {
		db.pgxPool.Close()
	}
	if db.sqlDB != nil {
		return db.sqlDB.Close()
	}
	return nil
}

// Interrupt closes the pool's idle connections (the idle limit drops to 0
// and is then restored to 2). It does not abort statements that are
// already running: an in-flight query stops only when the ctx passed to
// it is cancelled.
func (db *DB) Interrupt(ctx context.Context) error {
	db.sqlDB.SetMaxIdleConns(0)
	db.sqlDB.SetMaxIdleConns(2)
	return nil
}

// Backend returns the backend this DB speaks.
func (db *DB) Backend() Backend { return db.backend }

// NewForBackend returns a DB with no open connection, for exercising
// query-building logic (GetFtsMatchString, Filter rendering) that doesn't
// need a live backend.
func NewForBackend(backend Backend) *DB {
	return &DB{backend: backend, retryMaxElapsed: facadeRetryMaxElapsed}
}

// Raw exposes the underlying *sql.DB for callers that need a capability the
// facade does not wrap (e.g. driver-specific pragmas).
func (db *DB) Raw() *sql.DB { return db.sqlDB }

func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, transient := range []string{
		"driver: bad connection",
		"invalid connection",
		"broken pipe",
		"connection reset",
		"connection refused",
		"database is read only",
		"database is locked",
	} {
		if strings.Contains(msg, transient) {
			return true
		}
	}
	return false
}

// withRetry runs op, retrying transient backend errors with exponential
// backoff capped at retryMaxElapsed, the same policy the teacher's Dolt
// server-mode connector uses for MySQL-wire reconnects.
func (db *DB) withRetry(ctx context.Context, op func() error) error {
	attempts := 0
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = db.retryMaxElapsed

	err := backoff.Retry(func() error {
		attempts++
		err := op()
		if err == nil {
			return nil
		}
		if isRetryableError(err) {
			return err
		}
		return backoff.Permanent(err)
	}, backoff.WithContext(bo, ctx))

	if attempts > 1 {
		facadeMetrics.retryCount.Add(ctx, int64(attempts-1))
	}
	return err
}

// instrument wraps op with a query-duration histogram, a row-count counter,
// and a trace span, then returns whatever op returns.
func (db *DB) instrument(ctx context.Context, spanName string, op func(ctx context.Context) (int64, error)) (int64, error) {
	ctx, span := facadeTracer.Start(ctx, spanName, trace.WithAttributes(
		attribute.String("db.system", db.backend.String()),
		attribute.Bool("db.readonly", db.readOnly),
	))
	defer span.End()

	start := time.Now()
	rows, err := op(ctx)
	elapsed := float64(time.Since(start).Microseconds()) / 1000.0

	attrs := metric.WithAttributes(attribute.String("db.system", db.backend.String()), attribute.String("db.op", spanName))
	facadeMetrics.queryDuration.Record(ctx, elapsed, attrs)
	if rows > 0 {
		facadeMetrics.rows.Add(ctx, rows, attrs)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return rows, err
}

// placeholder rewrites a `?`-style placeholder list into the backend's
// native positional syntax: `?` stays for SQLite/MariaDB, `$N` for
// PostgreSQL.
func (db *DB) placeholder(n int) string {
	if db.backend == PostgreSQL {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

var errNotSupported = errors.New("dbfacade: operation not supported on this backend")

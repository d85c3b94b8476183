package continuous

import (
	"context"
	"database/sql"
	"time"

	"github.com/torsten-rupp/barindex/internal/dbfacade"
	"github.com/torsten-rupp/barindex/internal/ixerr"
)

// DefaultMinTimeDelta is continuousMinTimeDelta (§4.6): the minimum time a
// queued name must sit before GetEntry will hand it to a worker, and the
// window after which a stored (already-consumed) row is evicted to make
// room for a fresh one with the same key.
const DefaultMinTimeDelta = 5 * time.Second

// Queue is the continuous.db persisted FIFO of changed-path names awaiting
// pickup by a backup worker, grounded on §4.6's "names" table.
type Queue struct {
	db       *dbfacade.DB
	minDelta time.Duration
}

// OpenQueue opens (creating if needed) the single-table continuous.db
// database at dsn.
func OpenQueue(ctx context.Context, dsn string, minDelta time.Duration) (*Queue, error) {
	db, err := dbfacade.Open(ctx, dbfacade.SQLite, dsn, false)
	if err != nil {
		return nil, ixerr.Wrap("continuous.OpenQueue", err)
	}
	if minDelta <= 0 {
		minDelta = DefaultMinTimeDelta
	}
	q := &Queue{db: db, minDelta: minDelta}
	if err := q.ensureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return q, nil
}

func (q *Queue) ensureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS names (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			dateTime     INTEGER NOT NULL,
			jobUUID      TEXT NOT NULL,
			scheduleUUID TEXT NOT NULL,
			name         TEXT NOT NULL,
			storedFlag   INTEGER NOT NULL DEFAULT 0,
			UNIQUE(jobUUID, scheduleUUID, name)
		)`,
		`CREATE INDEX IF NOT EXISTS namesIndex ON names(jobUUID, scheduleUUID, name)`,
	}
	for _, stmt := range stmts {
		if _, err := q.db.Raw().ExecContext(ctx, stmt); err != nil {
			return ixerr.Wrap("continuous.ensureSchema", err)
		}
	}
	return nil
}

// Close releases the underlying database connection.
func (q *Queue) Close() error {
	return q.db.Close()
}

// AddEntry enqueues name for (jobUUID, scheduleUUID). A prior row already
// consumed (storedFlag set) and past minDelta is evicted first, so the
// same path can be re-queued once its previous pickup has aged out;
// otherwise the UNIQUE constraint makes a repeat enqueue of an unconsumed
// or still-cooling row a no-op (§4.6). dateTime holds Unix milliseconds.
func (q *Queue) AddEntry(ctx context.Context, jobUUID, scheduleUUID, name string) error {
	now := time.Now().UnixMilli()

	_, err := q.db.Raw().ExecContext(ctx,
		`DELETE FROM names WHERE jobUUID = ? AND scheduleUUID = ? AND name = ? AND storedFlag = 1 AND (? - dateTime) >= ?`,
		jobUUID, scheduleUUID, name, now, q.minDelta.Milliseconds())
	if err != nil {
		return ixerr.Wrap("continuous.AddEntry: evict", err)
	}

	_, err = q.db.Raw().ExecContext(ctx,
		`INSERT INTO names (dateTime, jobUUID, scheduleUUID, name, storedFlag) VALUES (?, ?, ?, ?, 0)
		 ON CONFLICT(jobUUID, scheduleUUID, name) DO NOTHING`,
		now, jobUUID, scheduleUUID, name)
	if err != nil {
		return ixerr.Wrap("continuous.AddEntry: insert", err)
	}
	return nil
}

// GetEntry returns the oldest un-stored row for (jobUUID, scheduleUUID)
// that has sat for at least minDelta, marking it stored (so a concurrent
// caller won't hand out the same name twice) and stamping dateTime with
// the pickup time.
func (q *Queue) GetEntry(ctx context.Context, jobUUID, scheduleUUID string) (name string, ok bool, err error) {
	now := time.Now().UnixMilli()

	var id int64
	row := q.db.Raw().QueryRowContext(ctx,
		`SELECT id, name FROM names
		 WHERE jobUUID = ? AND scheduleUUID = ? AND storedFlag = 0 AND (? - dateTime) >= ?
		 ORDER BY dateTime ASC LIMIT 1`,
		jobUUID, scheduleUUID, now, q.minDelta.Milliseconds())
	if scanErr := row.Scan(&id, &name); scanErr != nil {
		if scanErr == sql.ErrNoRows {
			return "", false, nil
		}
		return "", false, ixerr.Wrap("continuous.GetEntry", scanErr)
	}

	if _, err := q.db.Raw().ExecContext(ctx, `UPDATE names SET storedFlag = 1, dateTime = ? WHERE id = ?`, now, id); err != nil {
		return "", false, ixerr.Wrap("continuous.GetEntry: mark stored", err)
	}
	return name, true, nil
}

// DiscardEntries deletes every queued row for (jobUUID, scheduleUUID),
// used by DoneNotify to drop anything still pending for a finished job.
func (q *Queue) DiscardEntries(ctx context.Context, jobUUID, scheduleUUID string) error {
	_, err := q.db.Delete(ctx, "names", dbfacade.NewFilter().And("jobUUID = ?", jobUUID).And("scheduleUUID = ?", scheduleUUID))
	if err != nil {
		return ixerr.Wrap("continuous.DiscardEntries", err)
	}
	return nil
}

// IsEntryAvailable reports whether GetEntry would currently return a row
// for (jobUUID, scheduleUUID), without consuming it.
func (q *Queue) IsEntryAvailable(ctx context.Context, jobUUID, scheduleUUID string) (bool, error) {
	now := time.Now().UnixMilli()
	var id int64
	row := q.db.Raw().QueryRowContext(ctx,
		`SELECT id FROM names WHERE jobUUID = ? AND scheduleUUID = ? AND storedFlag = 0 AND (? - dateTime) >= ? LIMIT 1`,
		jobUUID, scheduleUUID, now, q.minDelta.Milliseconds())
	switch err := row.Scan(&id); err {
	case nil:
		return true, nil
	case sql.ErrNoRows:
		return false, nil
	default:
		return false, ixerr.Wrap("continuous.IsEntryAvailable", err)
	}
}

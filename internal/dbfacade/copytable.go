package dbfacade

import (
	"context"
	"database/sql"
	"strings"

	"github.com/torsten-rupp/barindex/internal/ixerr"
)

// CopyPreFunc runs once before any row is streamed. CopyPostFunc runs once
// after the last row. CopyPauseFunc is polled between rows and may block to
// cooperate with interruptable operations (see the index core's
// BeginInterruptable/InterruptOperation). CopyProgressFunc is called after
// each row with the number of rows copied so far.
type (
	CopyPreFunc      func(ctx context.Context) error
	CopyPostFunc     func(ctx context.Context) error
	CopyPauseFunc    func(ctx context.Context) error
	CopyProgressFunc func(copied int64)
	// CopyRowFunc transforms one source row (as scanned values) into the
	// destination column values to insert, or returns skip=true to omit it.
	CopyRowFunc func(src []interface{}) (dst []interface{}, skip bool, err error)
)

// CopyTable streams every row of srcTable (reading srcColumns) through
// transform and inserts the result into dstTable (writing dstColumns),
// invoking pre once before the first row, pause between each row, progress
// after each row, and post once after the last row. It takes no filter:
// every row of srcTable is read.
func (db *DB) CopyTable(ctx context.Context, srcTable string, srcColumns []string, dstTable string, dstColumns []string,
	transform CopyRowFunc, pre CopyPreFunc, post CopyPostFunc, pause CopyPauseFunc, progress CopyProgressFunc) (int64, error) {

	if pre != nil {
		if err := pre(ctx); err != nil {
			return 0, ixerr.Wrapf(err, "copyTable %s: pre", srcTable)
		}
	}

	query := "SELECT " + strings.Join(srcColumns, ", ") + " FROM " + srcTable

	var copied int64
	err := db.withRetry(ctx, func() error {
		rows, err := db.sqlDB.QueryContext(ctx, query)
		if err != nil {
			return ixerr.Wrapf(err, "copyTable %s: select", srcTable)
		}
		defer rows.Close()

		insertQuery := "INSERT INTO " + dstTable + " (" + strings.Join(dstColumns, ", ") + ") VALUES (" + db.placeholders(len(dstColumns)) + ")"

		for rows.Next() {
			if pause != nil {
				if err := pause(ctx); err != nil {
					return err
				}
			}

			raw := make([]interface{}, len(srcColumns))
			ptrs := make([]interface{}, len(srcColumns))
			for i := range raw {
				ptrs[i] = &raw[i]
			}
			if err := rows.Scan(ptrs...); err != nil {
				return ixerr.Wrapf(err, "copyTable %s: scan", srcTable)
			}

			dst, skip, err := transform(raw)
			if err != nil {
				return ixerr.Wrapf(err, "copyTable %s: transform", srcTable)
			}
			if skip {
				continue
			}

			if _, err := db.sqlDB.ExecContext(ctx, insertQuery, dst...); err != nil {
				return ixerr.Wrapf(err, "copyTable %s -> %s: insert", srcTable, dstTable)
			}
			copied++
			if progress != nil {
				progress(copied)
			}
		}
		return rows.Err()
	})
	if err != nil {
		return copied, err
	}

	if post != nil {
		if err := post(ctx); err != nil {
			return copied, ixerr.Wrapf(err, "copyTable %s: post", srcTable)
		}
	}
	return copied, nil
}

// Purge repeats `DELETE FROM table WHERE <filter> LIMIT stepSize` until
// either zero rows are removed or isBusy reports true, returning the
// number of rows removed and whether the table is now fully purged (done
// is false when isBusy cut the pass short — the caller should resume
// later).
func (db *DB) Purge(ctx context.Context, table string, filter *Filter, stepSize int, isBusy func() bool) (removed int64, done bool, err error) {
	for {
		if isBusy != nil && isBusy() {
			return removed, false, nil
		}

		n, stepErr := db.deleteLimited(ctx, table, filter, stepSize)
		if stepErr != nil {
			return removed, false, stepErr
		}
		removed += n
		if n == 0 {
			return removed, true, nil
		}
	}
}

// deleteLimited issues a bounded DELETE; SQLite/MariaDB support DELETE ...
// LIMIT directly, PostgreSQL requires a ctid subquery since it lacks
// DELETE ... LIMIT.
func (db *DB) deleteLimited(ctx context.Context, table string, filter *Filter, limit int) (int64, error) {
	var query string
	var args []interface{}
	where := ""
	if filter != nil && filter.clause != "" {
		var whereArgs []interface{}
		where, whereArgs = filter.renderFrom(db, 0)
		args = whereArgs
	}

	switch db.backend {
	case PostgreSQL:
		sub := "SELECT ctid FROM " + table
		if where != "" {
			sub += " WHERE " + where
		}
		sub += " LIMIT " + itoa(limit)
		query = "DELETE FROM " + table + " WHERE ctid IN (" + sub + ")"
	default:
		query = "DELETE FROM " + table
		if where != "" {
			query += " WHERE " + where
		}
		query += " LIMIT " + itoa(limit)
	}

	return db.instrument(ctx, "Purge", func(ctx context.Context) (int64, error) {
		return db.withRetryRows(ctx, func() (int64, error) {
			res, err := db.sqlDB.ExecContext(ctx, query, args...)
			if err != nil {
				return 0, ixerr.Wrapf(err, "purge %s", table)
			}
			n, _ := res.RowsAffected()
			return n, nil
		})
	})
}

// Begin starts an explicit transaction.
func (db *DB) Begin(ctx context.Context) (*sql.Tx, error) {
	tx, err := db.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return nil, ixerr.Wrap("dbfacade.Begin", err)
	}
	return tx, nil
}

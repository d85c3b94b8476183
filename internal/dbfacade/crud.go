package dbfacade

import (
	"context"
	"database/sql"
	"strings"

	"github.com/torsten-rupp/barindex/internal/ixerr"
)

// Insert runs an INSERT into table(columns...) VALUES(values...) and
// returns the backend's notion of the new row id (LastInsertId for
// SQLite/MariaDB; callers on PostgreSQL should append a RETURNING clause
// via Filter and use Get instead).
func (db *DB) Insert(ctx context.Context, table string, columns []string, values []interface{}) (int64, error) {
	query := "INSERT INTO " + table + " (" + strings.Join(columns, ", ") + ") VALUES (" + db.placeholders(len(columns)) + ")"

	var id int64
	_, err := db.instrument(ctx, "Insert", func(ctx context.Context) (int64, error) {
		return db.withRetryRows(ctx, func() (int64, error) {
			res, err := db.sqlDB.ExecContext(ctx, query, values...)
			if err != nil {
				return 0, ixerr.Wrapf(err, "insert %s", table)
			}
			id, _ = res.LastInsertId()
			n, _ := res.RowsAffected()
			return n, nil
		})
	})
	return id, err
}

// Update runs UPDATE table SET col=val... WHERE <filter>.
func (db *DB) Update(ctx context.Context, table string, set map[string]interface{}, filter *Filter) (int64, error) {
	var cols []string
	var args []interface{}
	for col, val := range set {
		cols = append(cols, col)
		args = append(args, val)
	}

	assignments := make([]string, len(cols))
	for i, col := range cols {
		assignments[i] = col + " = " + db.placeholder(i+1)
	}

	query := "UPDATE " + table + " SET " + strings.Join(assignments, ", ")
	if filter != nil && filter.clause != "" {
		where, whereArgs := filter.renderFrom(db, len(cols))
		query += " WHERE " + where
		args = append(args, whereArgs...)
	}

	return db.instrument(ctx, "Update", func(ctx context.Context) (int64, error) {
		return db.withRetryRows(ctx, func() (int64, error) {
			res, err := db.sqlDB.ExecContext(ctx, query, args...)
			if err != nil {
				return 0, ixerr.Wrapf(err, "update %s", table)
			}
			n, _ := res.RowsAffected()
			return n, nil
		})
	})
}

// Delete runs DELETE FROM table WHERE <filter>.
func (db *DB) Delete(ctx context.Context, table string, filter *Filter) (int64, error) {
	query := "DELETE FROM " + table
	var args []interface{}
	if filter != nil && filter.clause != "" {
		where, whereArgs := filter.renderFrom(db, 0)
		query += " WHERE " + where
		args = whereArgs
	}

	return db.instrument(ctx, "Delete", func(ctx context.Context) (int64, error) {
		return db.withRetryRows(ctx, func() (int64, error) {
			res, err := db.sqlDB.ExecContext(ctx, query, args...)
			if err != nil {
				return 0, ixerr.Wrapf(err, "delete %s", table)
			}
			n, _ := res.RowsAffected()
			return n, nil
		})
	})
}

// Select runs a SELECT over columns from table with filter applied, and
// calls scan(rows) once per row.
func (db *DB) Select(ctx context.Context, table string, columns []string, filter *Filter, scan func(*sql.Rows) error) error {
	query := "SELECT " + strings.Join(columns, ", ") + " FROM " + table
	var args []interface{}
	if filter != nil && filter.clause != "" {
		where, whereArgs := filter.renderFrom(db, 0)
		query += " WHERE " + where
		args = whereArgs
	}
	if filter != nil && filter.orderBy != "" {
		query += " ORDER BY " + filter.orderBy
	}
	if filter != nil && filter.limit > 0 {
		query += db.limitClause(filter.limit, filter.offset)
	}

	_, err := db.instrument(ctx, "Select", func(ctx context.Context) (int64, error) {
		var n int64
		err := db.withRetry(ctx, func() error {
			rows, err := db.sqlDB.QueryContext(ctx, query, args...)
			if err != nil {
				return ixerr.Wrapf(err, "select %s", table)
			}
			defer rows.Close()
			for rows.Next() {
				if err := scan(rows); err != nil {
					return err
				}
				n++
			}
			return rows.Err()
		})
		return n, err
	})
	return err
}

// Get runs Select and scans exactly one row, returning ixerr.ErrNotFound
// if none matched.
func (db *DB) Get(ctx context.Context, table string, columns []string, filter *Filter, scan func(*sql.Rows) error) error {
	found := false
	f := filter
	if f == nil {
		f = NewFilter()
	}
	f = f.Limit(1)
	err := db.Select(ctx, table, columns, f, func(rows *sql.Rows) error {
		found = true
		return scan(rows)
	})
	if err != nil {
		return err
	}
	if !found {
		return ixerr.Wrapf(sql.ErrNoRows, "get %s", table)
	}
	return nil
}

// GetInt64 is Get specialized for a single int64 column.
func (db *DB) GetInt64(ctx context.Context, table, column string, filter *Filter) (int64, error) {
	var v int64
	err := db.Get(ctx, table, []string{column}, filter, func(rows *sql.Rows) error {
		return rows.Scan(&v)
	})
	return v, err
}

// GetUint is Get specialized for a single non-negative integer column.
func (db *DB) GetUint(ctx context.Context, table, column string, filter *Filter) (uint64, error) {
	var v int64
	err := db.Get(ctx, table, []string{column}, filter, func(rows *sql.Rows) error {
		return rows.Scan(&v)
	})
	if v < 0 {
		v = 0
	}
	return uint64(v), err
}

// GetIDs returns the id column for every row matching filter.
func (db *DB) GetIDs(ctx context.Context, table, idColumn string, filter *Filter) ([]int64, error) {
	var ids []int64
	err := db.Select(ctx, table, []string{idColumn}, filter, func(rows *sql.Rows) error {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return err
		}
		ids = append(ids, id)
		return nil
	})
	return ids, err
}

// ExistsValue reports whether any row matches filter.
func (db *DB) ExistsValue(ctx context.Context, table string, filter *Filter) (bool, error) {
	exists := false
	err := db.Select(ctx, table, []string{"1"}, filter.Limit(1), func(rows *sql.Rows) error {
		exists = true
		return nil
	})
	return exists, err
}

func (db *DB) placeholders(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = db.placeholder(i + 1)
	}
	return strings.Join(parts, ", ")
}

func (db *DB) limitClause(limit, offset int) string {
	if db.backend == PostgreSQL {
		if offset > 0 {
			return " LIMIT " + itoa(limit) + " OFFSET " + itoa(offset)
		}
		return " LIMIT " + itoa(limit)
	}
	if offset > 0 {
		return " LIMIT " + itoa(offset) + ", " + itoa(limit)
	}
	return " LIMIT " + itoa(limit)
}

func itoa(n int) string {
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

// withRetryRows adapts withRetry to a function that also returns a row
// count, so Insert/Update/Delete can feed the row-count metric through the
// same retry path as Select.
func (db *DB) withRetryRows(ctx context.Context, op func() (int64, error)) (int64, error) {
	var n int64
	err := db.withRetry(ctx, func() error {
		var innerErr error
		n, innerErr = op()
		return innerErr
	})
	return n, err
}

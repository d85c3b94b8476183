package dbfacade

import "strings"

// Filter accumulates a WHERE clause and its positional arguments without
// ever concatenating untrusted data directly into SQL text: every value
// passed to And/Or becomes a placeholder argument.
type Filter struct {
	clause  string
	args    []interface{}
	orderBy string
	limit   int
	offset  int
}

// NewFilter returns an empty filter (matches every row).
func NewFilter() *Filter {
	return &Filter{}
}

// Clause returns the accumulated `?`-placeholder WHERE clause, before
// per-backend placeholder rewriting.
func (f *Filter) Clause() string { return f.clause }

// Args returns the positional arguments accumulated alongside Clause.
func (f *Filter) Args() []interface{} { return f.args }

// And appends `AND cond` (or just `cond` if this is the first predicate);
// cond must use `?` placeholders, rewritten per-backend at render time.
func (f *Filter) And(cond string, args ...interface{}) *Filter {
	f.join("AND", cond, args)
	return f
}

// Or appends `OR cond`.
func (f *Filter) Or(cond string, args ...interface{}) *Filter {
	f.join("OR", cond, args)
	return f
}

func (f *Filter) join(op, cond string, args []interface{}) {
	if f.clause == "" {
		f.clause = cond
	} else {
		f.clause = f.clause + " " + op + " (" + cond + ")"
	}
	f.args = append(f.args, args...)
}

// In appends an `col IN (?, ?, ...)` predicate; an empty values slice
// renders as the always-false `1=0` so callers don't need to special-case
// empty id lists.
func (f *Filter) In(column string, values []interface{}) *Filter {
	if len(values) == 0 {
		return f.And("1=0")
	}
	placeholders := strings.Repeat("?, ", len(values))
	placeholders = placeholders[:len(placeholders)-2]
	return f.And(column+" IN ("+placeholders+")", values...)
}

// OrderBy sets the ORDER BY clause; col must come from a caller-controlled
// whitelist, never from unescaped user input.
func (f *Filter) OrderBy(col, direction string) *Filter {
	if col == "" {
		f.orderBy = ""
		return f
	}
	f.orderBy = col + " " + direction
	return f
}

// Limit sets the LIMIT row count; Offset sets the OFFSET.
func (f *Filter) Limit(n int) *Filter {
	f.limit = n
	return f
}

// Offset sets the OFFSET applied alongside Limit.
func (f *Filter) Offset(n int) *Filter {
	f.offset = n
	return f
}

// renderFrom rewrites the filter's `?` placeholders into db's native
// positional syntax, numbering placeholders starting after argOffset
// already-consumed positional arguments (used when a filter follows an
// UPDATE SET clause).
func (f *Filter) renderFrom(db *DB, argOffset int) (string, []interface{}) {
	if db.backend != PostgreSQL {
		return f.clause, f.args
	}
	var b strings.Builder
	n := argOffset
	for i := 0; i < len(f.clause); i++ {
		if f.clause[i] == '?' {
			n++
			b.WriteString(db.placeholder(n))
			continue
		}
		b.WriteByte(f.clause[i])
	}
	return b.String(), f.args
}

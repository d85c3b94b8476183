package dbfacade

import (
	"strings"
	"unicode"
)

// tokenize splits pattern into alphanumeric-or-high-codepoint runs,
// collapsing everything else to a separator, the same extraction the FTS
// match-string builder applies to a search pattern before tokenizing it
// for prefix matching.
func tokenize(pattern string) []string {
	var tokens []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}
	for _, r := range pattern {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r >= 128 {
			cur.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	return tokens
}

// GetFtsMatchString builds the backend-appropriate full-text predicate for
// a prefix search of pattern against column.
func (db *DB) GetFtsMatchString(column, pattern string) string {
	tokens := tokenize(pattern)
	if len(tokens) == 0 {
		return "1=1"
	}

	switch db.backend {
	case SQLite:
		parts := make([]string, len(tokens))
		for i, tok := range tokens {
			parts[i] = tok + "*"
		}
		return column + " MATCH '" + strings.Join(parts, " ") + "'"
	case MariaDB:
		parts := make([]string, len(tokens))
		for i, tok := range tokens {
			parts[i] = tok + "*"
		}
		return "MATCH(" + column + ") AGAINST('" + strings.Join(parts, " ") + "' IN BOOLEAN MODE)"
	case PostgreSQL:
		parts := make([]string, len(tokens))
		for i, tok := range tokens {
			parts[i] = tok + ":*"
		}
		return column + " @@ to_tsquery('" + strings.Join(parts, " & ") + "')"
	default:
		return "1=1"
	}
}

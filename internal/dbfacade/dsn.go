package dbfacade

import (
	"fmt"

	"github.com/torsten-rupp/barindex/internal/storage"
)

// SQLiteDSN builds the connection string for the SQLite backend, reusing
// the teacher's pragma-laden connection-string builder.
func SQLiteDSN(path string, readOnly bool) string {
	return storage.SQLiteConnString(path, readOnly)
}

// MariaDBDSN builds a go-sql-driver/mysql DSN.
func MariaDBDSN(host string, port int, user, password, database string) string {
	if port == 0 {
		port = 3306
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true", user, password, host, port, database)
}

// PostgresDSN builds a pgx DSN.
func PostgresDSN(host string, port int, user, password, database string, tls bool) string {
	if port == 0 {
		port = 5432
	}
	sslmode := "disable"
	if tls {
		sslmode = "require"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s", user, password, host, port, database, sslmode)
}

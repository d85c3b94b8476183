// Package index implements the relational index: schema, entity/storage/
// entry lifecycle, aggregate maintenance, interruptable purge, and the
// query surface the archive layer and continuous tracker are built on.
// Query shape follows the teacher's internal/storage/dolt store, reached
// through internal/dbfacade instead of a single hard-coded backend.
package index

import (
	"context"
	"strings"

	"github.com/torsten-rupp/barindex/internal/dbfacade"
	"github.com/torsten-rupp/barindex/internal/ixerr"
)

// CurrentVersion is the schema version this package writes and expects.
// Index.Open migrates any older database up to this version before
// returning control to the caller.
const CurrentVersion = 9

// idColumn returns the backend-specific auto-incrementing primary key
// column definition.
func idColumn(b dbfacade.Backend) string {
	switch b {
	case dbfacade.PostgreSQL:
		return "id BIGSERIAL PRIMARY KEY"
	case dbfacade.MariaDB:
		return "id BIGINT AUTO_INCREMENT PRIMARY KEY"
	default:
		return "id INTEGER PRIMARY KEY AUTOINCREMENT"
	}
}

// schemaDDL returns the full set of CREATE TABLE / CREATE INDEX statements
// for the current schema, realizing the tables named in the external
// interfaces section: uuids, entities, storages, entries, entriesNewest,
// the per-kind entry tables, entryFragments, the FTS shadow tables,
// skippedEntries, and meta.
func schemaDDL(b dbfacade.Backend) []string {
	id := idColumn(b)
	return []string{
		`CREATE TABLE IF NOT EXISTS meta (
			name  TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS uuids (
			` + id + `,
			jobUUID     TEXT NOT NULL UNIQUE,
			lastChecked BIGINT NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS entities (
			` + id + `,
			uuidId       BIGINT NOT NULL,
			jobUUID      TEXT NOT NULL,
			scheduleUUID TEXT NOT NULL DEFAULT '',
			hostName     TEXT NOT NULL DEFAULT '',
			userName     TEXT NOT NULL DEFAULT '',
			type         INTEGER NOT NULL DEFAULT 0,
			created      BIGINT NOT NULL DEFAULT 0,
			lockedCount  INTEGER NOT NULL DEFAULT 0,
			deletedFlag  INTEGER NOT NULL DEFAULT 0,

			totalEntryCount     BIGINT NOT NULL DEFAULT 0,
			totalEntrySize      BIGINT NOT NULL DEFAULT 0,
			totalFileCount      BIGINT NOT NULL DEFAULT 0,
			totalFileSize       BIGINT NOT NULL DEFAULT 0,
			totalImageCount     BIGINT NOT NULL DEFAULT 0,
			totalImageSize      BIGINT NOT NULL DEFAULT 0,
			totalDirectoryCount BIGINT NOT NULL DEFAULT 0,
			totalLinkCount      BIGINT NOT NULL DEFAULT 0,
			totalHardlinkCount  BIGINT NOT NULL DEFAULT 0,
			totalHardlinkSize   BIGINT NOT NULL DEFAULT 0,
			totalSpecialCount   BIGINT NOT NULL DEFAULT 0,

			totalEntryCountNewest     BIGINT NOT NULL DEFAULT 0,
			totalEntrySizeNewest      BIGINT NOT NULL DEFAULT 0,
			totalFileCountNewest      BIGINT NOT NULL DEFAULT 0,
			totalFileSizeNewest       BIGINT NOT NULL DEFAULT 0,
			totalImageCountNewest     BIGINT NOT NULL DEFAULT 0,
			totalImageSizeNewest      BIGINT NOT NULL DEFAULT 0,
			totalDirectoryCountNewest BIGINT NOT NULL DEFAULT 0,
			totalLinkCountNewest      BIGINT NOT NULL DEFAULT 0,
			totalHardlinkCountNewest  BIGINT NOT NULL DEFAULT 0,
			totalHardlinkSizeNewest   BIGINT NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS entitiesUuidIdIndex ON entities(uuidId)`,
		`CREATE TABLE IF NOT EXISTS storages (
			` + id + `,
			entityId     BIGINT NOT NULL,
			name         TEXT NOT NULL,
			created      BIGINT NOT NULL DEFAULT 0,
			size         BIGINT NOT NULL DEFAULT 0,
			state        INTEGER NOT NULL DEFAULT 0,
			mode         INTEGER NOT NULL DEFAULT 0,
			lastChecked  BIGINT NOT NULL DEFAULT 0,
			errorMessage TEXT NOT NULL DEFAULT '',
			deletedFlag  INTEGER NOT NULL DEFAULT 0,

			totalEntryCount     BIGINT NOT NULL DEFAULT 0,
			totalEntrySize      BIGINT NOT NULL DEFAULT 0,
			totalFileCount      BIGINT NOT NULL DEFAULT 0,
			totalFileSize       BIGINT NOT NULL DEFAULT 0,
			totalImageCount     BIGINT NOT NULL DEFAULT 0,
			totalImageSize      BIGINT NOT NULL DEFAULT 0,
			totalDirectoryCount BIGINT NOT NULL DEFAULT 0,
			totalLinkCount      BIGINT NOT NULL DEFAULT 0,
			totalHardlinkCount  BIGINT NOT NULL DEFAULT 0,
			totalHardlinkSize   BIGINT NOT NULL DEFAULT 0,
			totalSpecialCount   BIGINT NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS storagesEntityIdIndex ON storages(entityId)`,
		`CREATE TABLE IF NOT EXISTS entries (
			` + id + `,
			entityId        BIGINT NOT NULL,
			type            INTEGER NOT NULL,
			name            TEXT NOT NULL,
			timeLastChanged BIGINT NOT NULL DEFAULT 0,
			userId          BIGINT NOT NULL DEFAULT 0,
			groupId         BIGINT NOT NULL DEFAULT 0,
			permission      INTEGER NOT NULL DEFAULT 0,
			size            BIGINT NOT NULL DEFAULT 0,
			storageId       BIGINT NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS entriesEntityIdIndex ON entries(entityId)`,
		`CREATE INDEX IF NOT EXISTS entriesNameIndex ON entries(name)`,
		`CREATE TABLE IF NOT EXISTS entriesNewest (
			` + id + `,
			entryId         BIGINT NOT NULL,
			uuidId          BIGINT NOT NULL,
			entityId        BIGINT NOT NULL,
			type            INTEGER NOT NULL,
			name            TEXT NOT NULL UNIQUE,
			timeLastChanged BIGINT NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS fileEntries (
			entryId BIGINT PRIMARY KEY
		)`,
		`CREATE TABLE IF NOT EXISTS imageEntries (
			entryId    BIGINT PRIMARY KEY,
			blockSize  BIGINT NOT NULL DEFAULT 0,
			blockCount BIGINT NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS directoryEntries (
			entryId   BIGINT PRIMARY KEY,
			storageId BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS linkEntries (
			entryId     BIGINT PRIMARY KEY,
			storageId   BIGINT NOT NULL,
			destination TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS hardlinkEntries (
			entryId BIGINT PRIMARY KEY
		)`,
		`CREATE TABLE IF NOT EXISTS specialEntries (
			entryId    BIGINT PRIMARY KEY,
			storageId  BIGINT NOT NULL,
			deviceKind INTEGER NOT NULL DEFAULT 0,
			major      BIGINT NOT NULL DEFAULT 0,
			minor      BIGINT NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS entryFragments (
			` + id + `,
			entryId   BIGINT NOT NULL,
			storageId BIGINT NOT NULL,
			offset    BIGINT NOT NULL DEFAULT 0,
			size      BIGINT NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS entryFragmentsEntryIdIndex ON entryFragments(entryId)`,
		`CREATE INDEX IF NOT EXISTS entryFragmentsStorageIdIndex ON entryFragments(storageId)`,
		`CREATE TABLE IF NOT EXISTS FTS_storages (
			storageId BIGINT NOT NULL,
			name      TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS FTS_entries (
			entryId BIGINT NOT NULL,
			name    TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS skippedEntries (
			` + id + `,
			entityId BIGINT NOT NULL,
			name     TEXT NOT NULL
		)`,
	}
}

// EnsureSchema creates every table and index named in schemaDDL if it does
// not already exist; it is idempotent and safe to call on every open.
func EnsureSchema(ctx context.Context, db *dbfacade.DB) error {
	for _, stmt := range schemaDDL(db.Backend()) {
		if _, err := db.Raw().ExecContext(ctx, stmt); err != nil {
			return ixerr.Wrapf(err, "ensureSchema: %s", firstLine(stmt))
		}
	}
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}

// Package migration implements the per-version importers that bring an
// older on-disk index database up to internal/index's current schema.
// index.Open hands a migrator the same database connection the old-schema
// tables already live in. Version-2 table names do not collide with the
// current ones (e.g. "storage" vs "storages"), so the current schema is
// created alongside them; version-7 names do, so those tables are renamed
// aside first. Rows are read with direct queries and written through the
// index API, which assigns the new ids; neither importer uses
// dbfacade.CopyTable. The version-2 importer records old-to-new ids in
// internal/dict dictionaries; the version-7 importer passes the new ids
// along directly (see original_source/bar/bar/index_version2.c and
// index_version7.c for the legacy importers).
package migration

import (
	"context"
	"encoding/binary"
	"strconv"
	"time"

	"github.com/torsten-rupp/barindex/internal/dbfacade"
	"github.com/torsten-rupp/barindex/internal/dict"
	"github.com/torsten-rupp/barindex/internal/index"
	"github.com/torsten-rupp/barindex/internal/ixerr"
	"github.com/torsten-rupp/barindex/internal/types"
)

// importState carries the id dictionaries threaded through one migration
// pass — the Go analogue of the legacy importer's Dictionary_init/
// storageIdDictionary locals (§9 Design Notes: "importer closures ->
// importState struct").
type importState struct {
	db  *dbfacade.DB
	idx *index.Index

	storageIds *dict.Dictionary // old storage id -> new storage id
	entityIds  *dict.Dictionary // old entity id -> new entity id

	progress func(copied int64)
}

func newImportState(db *dbfacade.DB, idx *index.Index) *importState {
	return &importState{db: db, idx: idx, storageIds: dict.New(), entityIds: dict.New()}
}

func idKey(id int64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(id))
	return buf[:]
}

func (s *importState) rememberStorageId(oldId, newId int64) {
	s.storageIds.Add(idKey(oldId), idKey(newId))
}

func (s *importState) rememberEntityId(oldId, newId int64) {
	s.entityIds.Add(idKey(oldId), idKey(newId))
}

func placeholder(db *dbfacade.DB) string {
	if db.Backend() == dbfacade.PostgreSQL {
		return "$1"
	}
	return "?"
}

// fixBrokenIds deletes rows whose id is NULL or <= 0, mirroring the legacy
// importer's fixBrokenIds pass that repairs databases corrupted by an
// earlier bug before the hierarchical copy begins.
func fixBrokenIds(ctx context.Context, db *dbfacade.DB, table string) error {
	_, err := db.Raw().ExecContext(ctx, `DELETE FROM `+table+` WHERE id IS NULL OR id <= 0`)
	if err != nil {
		return ixerr.Wrapf(err, "fixBrokenIds %s", table)
	}
	return nil
}

// ImportFromVersion2 imports a version-2 database, which predates the
// entity concept entirely: every "storage" row becomes its own locked
// entity (archive type full, no host/schedule metadata available), and the
// per-kind legacy tables (files/images/directories/links/hardlinks/special,
// each carrying its own storageId) become rows in entries plus the
// corresponding kind-subtype table, grounded on upgradeFromVersion2 in
// index_version2.c. The v2 schema stores image and hardlink entries with
// the same (size, fragmentOffset, fragmentSize) shape as files; the
// importer mirrors that into fragments for both kinds, resolving the
// legacy layout's file/hardlink asymmetry in favor of symmetry (§9 Open
// Question).
func ImportFromVersion2(ctx context.Context, oldVersion int, idx *index.Index) error {
	db := idx.DB()
	if err := index.EnsureSchema(ctx, db); err != nil {
		return ixerr.Wrap("ImportFromVersion2", err)
	}
	s := newImportState(db, idx)

	for _, table := range []string{"storage", "files", "images", "directories", "links", "hardlinks", "special"} {
		if err := fixBrokenIds(ctx, db, table); err != nil {
			return ixerr.Wrapf(err, "importFromVersion2: %s", table)
		}
	}

	rows, err := db.Raw().QueryContext(ctx, `SELECT id, jobUUID FROM storage WHERE id != 0`)
	if err != nil {
		return ixerr.Wrap("importFromVersion2: storage", err)
	}
	type storageRow struct {
		id      int64
		jobUUID string
	}
	var storages []storageRow
	for rows.Next() {
		var r storageRow
		if err := rows.Scan(&r.id, &r.jobUUID); err != nil {
			rows.Close()
			return ixerr.Wrap("importFromVersion2: storage scan", err)
		}
		storages = append(storages, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return ixerr.Wrap("importFromVersion2: storage rows", err)
	}

	for _, r := range storages {
		entityId, err := idx.NewEntity(ctx, r.jobUUID, "", "", "", types.EntityFull, time.Time{}, true)
		if err != nil {
			return ixerr.Wrapf(err, "importFromVersion2: new entity for storage %d", r.id)
		}
		storageId, err := idx.NewStorage(ctx, entityId, "storage-"+strconv.FormatInt(r.id, 10))
		if err != nil {
			return ixerr.Wrapf(err, "importFromVersion2: new storage for %d", r.id)
		}
		s.rememberStorageId(r.id, storageId)
		s.rememberEntityId(r.id, entityId)

		if err := importV2Directories(ctx, db, idx, entityId, storageId, r.id); err != nil {
			return err
		}
		if err := importV2Sized(ctx, db, idx, entityId, storageId, r.id, "files", types.EntryFile); err != nil {
			return err
		}
		if err := importV2Sized(ctx, db, idx, entityId, storageId, r.id, "images", types.EntryImage); err != nil {
			return err
		}
		if err := importV2Sized(ctx, db, idx, entityId, storageId, r.id, "hardlinks", types.EntryHardlink); err != nil {
			return err
		}
		if err := importV2Links(ctx, db, idx, entityId, storageId, r.id); err != nil {
			return err
		}
		if err := importV2Special(ctx, db, idx, entityId, storageId, r.id); err != nil {
			return err
		}

		if err := idx.UnlockEntity(ctx, entityId); err != nil {
			return ixerr.Wrapf(err, "importFromVersion2: unlock entity for storage %d", r.id)
		}
		if err := idx.UpdateEntityAggregates(ctx, entityId); err != nil {
			return ixerr.Wrapf(err, "importFromVersion2: aggregates for entity of storage %d", r.id)
		}
		if s.progress != nil {
			s.progress(1)
		}
	}
	return dropV2Tables(ctx, db)
}

func dropV2Tables(ctx context.Context, db *dbfacade.DB) error {
	for _, table := range []string{"storage", "files", "images", "directories", "links", "hardlinks", "special"} {
		if _, err := db.Raw().ExecContext(ctx, `DROP TABLE IF EXISTS `+table); err != nil {
			return ixerr.Wrapf(err, "dropV2Tables %s", table)
		}
	}
	return nil
}

func importV2Directories(ctx context.Context, db *dbfacade.DB, idx *index.Index, entityId, storageId, fromStorageId int64) error {
	rows, err := db.Raw().QueryContext(ctx, `SELECT name FROM directories WHERE storageId = `+placeholder(db), fromStorageId)
	if err != nil {
		return ixerr.Wrap("importV2Directories", err)
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return ixerr.Wrap("importV2Directories", err)
		}
		if _, err := idx.AddEntry(ctx, index.NewEntryInput{
			EntityID: entityId, Type: types.EntryDirectory, Name: name, StorageID: storageId,
		}); err != nil {
			return ixerr.Wrap("importV2Directories", err)
		}
	}
	return rows.Err()
}

func importV2Sized(ctx context.Context, db *dbfacade.DB, idx *index.Index, entityId, storageId, fromStorageId int64, table string, entryType types.EntryType) error {
	rows, err := db.Raw().QueryContext(ctx,
		`SELECT name, size, fragmentOffset, fragmentSize FROM `+table+` WHERE storageId = `+placeholder(db), fromStorageId)
	if err != nil {
		return ixerr.Wrapf(err, "importV2Sized %s", table)
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		var size, fragmentOffset, fragmentSize int64
		if err := rows.Scan(&name, &size, &fragmentOffset, &fragmentSize); err != nil {
			return ixerr.Wrapf(err, "importV2Sized %s", table)
		}
		if _, err := idx.AddEntry(ctx, index.NewEntryInput{
			EntityID: entityId, Type: entryType, Name: name, Size: size,
			Fragments: []types.Fragment{{StorageID: storageId, Offset: fragmentOffset, Size: fragmentSize}},
		}); err != nil {
			return ixerr.Wrapf(err, "importV2Sized %s", table)
		}
	}
	return rows.Err()
}

func importV2Links(ctx context.Context, db *dbfacade.DB, idx *index.Index, entityId, storageId, fromStorageId int64) error {
	rows, err := db.Raw().QueryContext(ctx, `SELECT name, destinationName FROM links WHERE storageId = `+placeholder(db), fromStorageId)
	if err != nil {
		return ixerr.Wrap("importV2Links", err)
	}
	defer rows.Close()
	for rows.Next() {
		var name, dest string
		if err := rows.Scan(&name, &dest); err != nil {
			return ixerr.Wrap("importV2Links", err)
		}
		if _, err := idx.AddEntry(ctx, index.NewEntryInput{
			EntityID: entityId, Type: types.EntryLink, Name: name, StorageID: storageId, LinkDestination: dest,
		}); err != nil {
			return ixerr.Wrap("importV2Links", err)
		}
	}
	return rows.Err()
}

func importV2Special(ctx context.Context, db *dbfacade.DB, idx *index.Index, entityId, storageId, fromStorageId int64) error {
	rows, err := db.Raw().QueryContext(ctx, `SELECT name, specialType, major, minor FROM special WHERE storageId = `+placeholder(db), fromStorageId)
	if err != nil {
		return ixerr.Wrap("importV2Special", err)
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		var specialType int
		var major, minor int64
		if err := rows.Scan(&name, &specialType, &major, &minor); err != nil {
			return ixerr.Wrap("importV2Special", err)
		}
		if _, err := idx.AddEntry(ctx, index.NewEntryInput{
			EntityID: entityId, Type: types.EntrySpecial, Name: name, StorageID: storageId,
			DeviceKind: specialType, DeviceMajor: major, DeviceMinor: minor,
		}); err != nil {
			return ixerr.Wrap("importV2Special", err)
		}
	}
	return rows.Err()
}

// v7OldTables names every table a version-7-and-later, pre-current database
// already shares with the current schema (entity/storage/entries/subtype
// tables were introduced at version 7 and have carried the same names ever
// since — only entities/storages gained the aggregate columns later). Each
// is renamed aside before EnsureSchema recreates it under the current
// definition, then the renamed copy is read from and finally dropped.
var v7OldTables = []string{
	"uuids", "entities", "storages", "entries", "entriesNewest", "entryFragments", "skippedEntries",
	"fileEntries", "imageEntries", "directoryEntries", "linkEntries", "hardlinkEntries", "specialEntries",
}

const v7OldSuffix = "V7Old"

// ImportFromVersion7 imports a version-7 (and later, pre-current) database,
// which already has the entity/storage/entries shape — transfer is a
// per-entity, per-storage hierarchical copy (uuids, then each entity, then
// its storages, then each storage's entries, fragments, and per-kind
// subtype rows), grounded on importCurrentVersion in index_version7.c. The
// legacy importer's hard-coded debugging breakpoint partway through is not
// reproduced (§9 Open Question: debugging residue, not behavior).
func ImportFromVersion7(ctx context.Context, oldVersion int, idx *index.Index) error {
	db := idx.DB()

	for _, table := range []string{"entities", "storages", "entries"} {
		if err := fixBrokenIds(ctx, db, table); err != nil {
			return ixerr.Wrapf(err, "importFromVersion7: %s", table)
		}
	}

	if err := renameAside(ctx, db, v7OldTables, v7OldSuffix); err != nil {
		return ixerr.Wrap("importFromVersion7", err)
	}

	if err := index.EnsureSchema(ctx, db); err != nil {
		return ixerr.Wrap("importFromVersion7", err)
	}

	oldUuids, err := copyUuidsAside(ctx, db)
	if err != nil {
		return err
	}
	for _, jobUUID := range oldUuids {
		if _, err := db.Insert(ctx, "uuids", []string{"jobUUID", "lastChecked"}, []interface{}{jobUUID, 0}); err != nil {
			return ixerr.Wrap("importFromVersion7: uuids", err)
		}
	}

	oldEntities, err := scanOldEntities(ctx, db)
	if err != nil {
		return err
	}

	for _, e := range oldEntities {
		newEntityId, err := idx.NewEntity(ctx, e.jobUUID, e.scheduleUUID, e.hostName, e.userName, e.archiveType, e.created, true)
		if err != nil {
			return ixerr.Wrapf(err, "importFromVersion7: entity %d", e.id)
		}

		storages, err := scanOldStorages(ctx, db, e.id)
		if err != nil {
			return err
		}
		for _, st := range storages {
			newStorageId, err := idx.NewStorage(ctx, newEntityId, st.name)
			if err != nil {
				return ixerr.Wrapf(err, "importFromVersion7: storage %d", st.id)
			}
			if err := idx.SetStorageState(ctx, newStorageId, st.state, st.size, ""); err != nil {
				return err
			}
			if err := importV7Entries(ctx, db, idx, newEntityId, newStorageId, st.id); err != nil {
				return err
			}
		}

		if err := idx.UnlockEntity(ctx, newEntityId); err != nil {
			return err
		}
		if err := idx.UpdateEntityAggregates(ctx, newEntityId); err != nil {
			return err
		}
	}

	return dropRenamedTables(ctx, db, v7OldTables, v7OldSuffix)
}

// renameAside renames every table in names to name+suffix, so the original
// names are free for EnsureSchema to recreate under the current schema.
func renameAside(ctx context.Context, db *dbfacade.DB, names []string, suffix string) error {
	for _, name := range names {
		if _, err := db.Raw().ExecContext(ctx, `ALTER TABLE `+name+` RENAME TO `+name+suffix); err != nil {
			return ixerr.Wrapf(err, "renameAside %s", name)
		}
	}
	return nil
}

func dropRenamedTables(ctx context.Context, db *dbfacade.DB, names []string, suffix string) error {
	for _, name := range names {
		if _, err := db.Raw().ExecContext(ctx, `DROP TABLE IF EXISTS `+name+suffix); err != nil {
			return ixerr.Wrapf(err, "dropRenamedTables %s", name)
		}
	}
	return nil
}

// copyUuidsAside reads every jobUUID out of the renamed-aside old uuids
// table, to be re-inserted into the freshly recreated one.
func copyUuidsAside(ctx context.Context, db *dbfacade.DB) ([]string, error) {
	rows, err := db.Raw().QueryContext(ctx, `SELECT jobUUID FROM uuids`+v7OldSuffix)
	if err != nil {
		return nil, ixerr.Wrap("copyUuidsAside", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var jobUUID string
		if err := rows.Scan(&jobUUID); err != nil {
			return nil, ixerr.Wrap("copyUuidsAside", err)
		}
		out = append(out, jobUUID)
	}
	return out, rows.Err()
}

type oldEntity struct {
	id                    int64
	jobUUID, scheduleUUID string
	hostName, userName    string
	archiveType           types.EntityType
	created               time.Time
}

func scanOldEntities(ctx context.Context, db *dbfacade.DB) ([]oldEntity, error) {
	rows, err := db.Raw().QueryContext(ctx, `SELECT id, jobUUID, scheduleUUID, hostName, userName, type, created FROM entities`+v7OldSuffix+` WHERE id != 0`)
	if err != nil {
		return nil, ixerr.Wrap("scanOldEntities", err)
	}
	defer rows.Close()
	var out []oldEntity
	for rows.Next() {
		var e oldEntity
		var typeVal int
		var created int64
		if err := rows.Scan(&e.id, &e.jobUUID, &e.scheduleUUID, &e.hostName, &e.userName, &typeVal, &created); err != nil {
			return nil, ixerr.Wrap("scanOldEntities", err)
		}
		e.archiveType = types.EntityType(typeVal)
		if created != 0 {
			e.created = time.Unix(created, 0)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

type oldStorage struct {
	id    int64
	name  string
	state types.StorageState
	size  int64
}

func scanOldStorages(ctx context.Context, db *dbfacade.DB, entityId int64) ([]oldStorage, error) {
	rows, err := db.Raw().QueryContext(ctx, `SELECT id, name, state, size FROM storages`+v7OldSuffix+` WHERE entityId = `+placeholder(db), entityId)
	if err != nil {
		return nil, ixerr.Wrap("scanOldStorages", err)
	}
	defer rows.Close()
	var out []oldStorage
	for rows.Next() {
		var st oldStorage
		var state int
		if err := rows.Scan(&st.id, &st.name, &state, &st.size); err != nil {
			return nil, ixerr.Wrap("scanOldStorages", err)
		}
		st.state = types.StorageState(state)
		out = append(out, st)
	}
	return out, rows.Err()
}

type v7EntryRow struct {
	id      int64
	typ     types.EntryType
	name    string
	changed int64
	size    int64
}

func importV7Entries(ctx context.Context, db *dbfacade.DB, idx *index.Index, entityId, storageId, fromStorageId int64) error {
	rows, err := db.Raw().QueryContext(ctx,
		`SELECT id, type, name, timeLastChanged, size FROM entries`+v7OldSuffix+` WHERE storageId = `+placeholder(db), fromStorageId)
	if err != nil {
		return ixerr.Wrap("importV7Entries", err)
	}
	var entries []v7EntryRow
	for rows.Next() {
		var r v7EntryRow
		var typeVal int
		if err := rows.Scan(&r.id, &typeVal, &r.name, &r.changed, &r.size); err != nil {
			rows.Close()
			return ixerr.Wrap("importV7Entries", err)
		}
		r.typ = types.EntryType(typeVal)
		entries = append(entries, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return ixerr.Wrap("importV7Entries", err)
	}

	for _, r := range entries {
		in := index.NewEntryInput{
			EntityID: entityId, Type: r.typ, Name: r.name, Size: r.size,
			TimeLastChanged: unixTimeOrZero(r.changed), StorageID: storageId,
		}
		if r.typ.HasFragments() {
			fragments, err := scanOldFragments(ctx, db, r.id, storageId)
			if err != nil {
				return err
			}
			in.Fragments = fragments
		}
		if err := fillV7Subtype(ctx, db, r.id, r.typ, &in); err != nil {
			return err
		}
		if _, err := idx.AddEntry(ctx, in); err != nil {
			return ixerr.Wrap("importV7Entries", err)
		}
	}
	return nil
}

func unixTimeOrZero(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0)
}

// fillV7Subtype reads the renamed-aside per-kind subtype row for entryId
// (if entryType carries one) and copies its fields into in.
func fillV7Subtype(ctx context.Context, db *dbfacade.DB, entryId int64, entryType types.EntryType, in *index.NewEntryInput) error {
	switch entryType {
	case types.EntryImage:
		row := db.Raw().QueryRowContext(ctx, `SELECT blockSize, blockCount FROM imageEntries`+v7OldSuffix+` WHERE entryId = `+placeholder(db), entryId)
		if err := row.Scan(&in.ImageBlockSize, &in.ImageBlockCount); err != nil {
			return ixerr.Wrap("fillV7Subtype: image", err)
		}
	case types.EntryLink:
		row := db.Raw().QueryRowContext(ctx, `SELECT destination FROM linkEntries`+v7OldSuffix+` WHERE entryId = `+placeholder(db), entryId)
		if err := row.Scan(&in.LinkDestination); err != nil {
			return ixerr.Wrap("fillV7Subtype: link", err)
		}
	case types.EntrySpecial:
		row := db.Raw().QueryRowContext(ctx, `SELECT deviceKind, major, minor FROM specialEntries`+v7OldSuffix+` WHERE entryId = `+placeholder(db), entryId)
		if err := row.Scan(&in.DeviceKind, &in.DeviceMajor, &in.DeviceMinor); err != nil {
			return ixerr.Wrap("fillV7Subtype: special", err)
		}
	}
	return nil
}

func scanOldFragments(ctx context.Context, db *dbfacade.DB, fromEntryId, newStorageId int64) ([]types.Fragment, error) {
	rows, err := db.Raw().QueryContext(ctx, `SELECT offset, size FROM entryFragments`+v7OldSuffix+` WHERE entryId = `+placeholder(db), fromEntryId)
	if err != nil {
		return nil, ixerr.Wrap("scanOldFragments", err)
	}
	defer rows.Close()
	var out []types.Fragment
	for rows.Next() {
		var f types.Fragment
		if err := rows.Scan(&f.Offset, &f.Size); err != nil {
			return nil, ixerr.Wrap("scanOldFragments", err)
		}
		f.StorageID = newStorageId
		out = append(out, f)
	}
	return out, rows.Err()
}

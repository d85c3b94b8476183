package index

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"github.com/torsten-rupp/barindex/internal/dbfacade"
	"github.com/torsten-rupp/barindex/internal/ixerr"
	"github.com/torsten-rupp/barindex/internal/types"
)

// NewStorage creates an archive-file row owned by entityId.
func (idx *Index) NewStorage(ctx context.Context, entityId int64, name string) (int64, error) {
	return idx.db.Insert(ctx, "storages",
		[]string{"entityId", "name", "created", "size", "state", "mode", "lastChecked", "errorMessage", "deletedFlag"},
		[]interface{}{entityId, name, time.Now().Unix(), 0, int(types.StorageStateNone), int(types.StorageModeManual), 0, "", 0},
	)
}

// SetStorageState updates a storage's lifecycle state, and its size and
// errorMessage when state is OK or Error respectively.
func (idx *Index) SetStorageState(ctx context.Context, storageId int64, state types.StorageState, size int64, errorMessage string) error {
	set := map[string]interface{}{"state": int(state), "lastChecked": time.Now().Unix()}
	switch state {
	case types.StorageStateOK:
		set["size"] = size
	case types.StorageStateError:
		set["errorMessage"] = errorMessage
	}
	_, err := idx.db.Update(ctx, "storages", set, dbfacade.NewFilter().And("id = ?", storageId))
	return ixerr.Wrap("SetStorageState", err)
}

// MarkDeletedStorage soft-deletes storageId: queries that filter
// deletedFlag != TRUE stop returning it, but physical deletion happens
// later during PurgeStorage.
func (idx *Index) MarkDeletedStorage(ctx context.Context, storageId int64) error {
	_, err := idx.db.Update(ctx, "storages", map[string]interface{}{"deletedFlag": 1}, dbfacade.NewFilter().And("id = ?", storageId))
	return ixerr.Wrap("MarkDeletedStorage", err)
}

// IsDeletedStorage reports whether storageId's deletedFlag is set.
func (idx *Index) IsDeletedStorage(ctx context.Context, storageId int64) (bool, error) {
	v, err := idx.db.GetInt64(ctx, "storages", "deletedFlag", dbfacade.NewFilter().And("id = ?", storageId))
	if err != nil {
		return false, ixerr.Wrap("IsDeletedStorage", err)
	}
	return v != 0, nil
}

// FindStorageByName returns the id of the newest non-deleted storage with
// the given name owned by entityId, or ixerr.ErrNotFound.
func (idx *Index) FindStorageByName(ctx context.Context, entityId int64, name string) (int64, error) {
	id, err := idx.db.GetInt64(ctx, "storages", "id",
		dbfacade.NewFilter().And("entityId = ?", entityId).And("name = ?", name).And("deletedFlag != 1").OrderBy("id", "DESC"))
	if err != nil {
		return 0, ixerr.Wrap("FindStorageByName", err)
	}
	return id, nil
}

// notDeletedStorages is the filter every storage-joining query must apply
// (§3 invariant: no query that filters deletedFlag != TRUE returns a
// deleted storage).
func notDeletedStorages() *dbfacade.Filter {
	return dbfacade.NewFilter().And("deletedFlag != 1")
}

const singleStepPurgeLimit = 500

// PurgeStorage removes storageId in bounded steps across entryFragments,
// the kind-specific entry tables restricted to this storage, orphaned
// entries/entriesNewest rows, and the FTS shadow rows, then deletes the
// storage row. It re-checks idx.isBusy between steps so a concurrent
// caller using the index causes it to yield (§4.4 "re-entrant against
// concurrent index use").
func (idx *Index) PurgeStorage(ctx context.Context, storageId int64) error {
	idx.BeginInterruptable()
	defer idx.EndInterruptable()

	steps := []struct {
		table  string
		filter func() *dbfacade.Filter
	}{
		{"entryFragments", func() *dbfacade.Filter { return dbfacade.NewFilter().And("storageId = ?", storageId) }},
		{"directoryEntries", func() *dbfacade.Filter { return dbfacade.NewFilter().And("storageId = ?", storageId) }},
		{"linkEntries", func() *dbfacade.Filter { return dbfacade.NewFilter().And("storageId = ?", storageId) }},
		{"specialEntries", func() *dbfacade.Filter { return dbfacade.NewFilter().And("storageId = ?", storageId) }},
		{"FTS_storages", func() *dbfacade.Filter { return dbfacade.NewFilter().And("storageId = ?", storageId) }},
	}
	for _, step := range steps {
		if _, _, err := idx.db.Purge(ctx, step.table, step.filter(), singleStepPurgeLimit, idx.isBusy); err != nil {
			return ixerr.Wrapf(err, "purgeStorage %d: %s", storageId, step.table)
		}
	}

	if err := idx.purgeOrphanEntries(ctx, storageId); err != nil {
		return err
	}

	if _, _, err := idx.db.Purge(ctx, "storages", dbfacade.NewFilter().And("id = ?", storageId), singleStepPurgeLimit, idx.isBusy); err != nil {
		return ixerr.Wrapf(err, "purgeStorage %d: storages", storageId)
	}
	return nil
}

// purgeOrphanEntries removes entries (and their entriesNewest mirror) that
// no longer reference any fragment or own-storage row — entries stored
// with storageId, plus file/image/hardlink entries of the storage's entity
// (these reach a storage only through their fragments) left with none.
func (idx *Index) purgeOrphanEntries(ctx context.Context, storageId int64) error {
	fragmentKinds := strconv.Itoa(int(types.EntryFile)) + ", " + strconv.Itoa(int(types.EntryImage)) + ", " + strconv.Itoa(int(types.EntryHardlink))
	rows, err := idx.db.Raw().QueryContext(ctx,
		`SELECT id, name FROM entries
		 WHERE (storageId = `+idx.placeholderOne()+`
		        OR (type IN (`+fragmentKinds+`) AND entityId = (SELECT entityId FROM storages WHERE id = `+idx.placeholderTwo()+`)))
		 AND id NOT IN (SELECT entryId FROM entryFragments)
		 AND id NOT IN (SELECT entryId FROM directoryEntries)
		 AND id NOT IN (SELECT entryId FROM linkEntries)
		 AND id NOT IN (SELECT entryId FROM specialEntries)`, storageId, storageId)
	if err != nil {
		return ixerr.Wrap("purgeOrphanEntries", err)
	}
	var orphanIds []int64
	var orphanNames []string
	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			rows.Close()
			return ixerr.Wrap("purgeOrphanEntries", err)
		}
		orphanIds = append(orphanIds, id)
		orphanNames = append(orphanNames, name)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return ixerr.Wrap("purgeOrphanEntries", err)
	}

	for i, id := range orphanIds {
		if _, err := idx.db.Delete(ctx, "entries", dbfacade.NewFilter().And("id = ?", id)); err != nil {
			return ixerr.Wrap("purgeOrphanEntries", err)
		}
		if _, err := idx.db.Delete(ctx, "FTS_entries", dbfacade.NewFilter().And("entryId = ?", id)); err != nil {
			return ixerr.Wrap("purgeOrphanEntries", err)
		}
		if err := idx.repointNewest(ctx, orphanNames[i], id); err != nil {
			return err
		}
	}
	return nil
}

// repointNewest maintains the entriesNewest invariant when entryId (whose
// name is name) is removed: delete its newest row, or if another entry of
// the same name still exists, re-point the newest row to the
// most-recently-changed survivor.
func (idx *Index) repointNewest(ctx context.Context, name string, entryId int64) error {
	isNewest, err := idx.db.ExistsValue(ctx, "entriesNewest", dbfacade.NewFilter().And("entryId = ?", entryId))
	if err != nil {
		return ixerr.Wrap("repointNewest", err)
	}
	if !isNewest {
		return nil
	}

	var survivorId, survivorEntityId, survivorUuidId int64
	var survivorType int
	var survivorChanged int64
	err = idx.db.Get(ctx, "entries", []string{"id", "entityId", "type", "timeLastChanged"},
		dbfacade.NewFilter().And("name = ?", name).And("id != ?", entryId).OrderBy("timeLastChanged", "DESC"),
		func(rows *sql.Rows) error {
			return rows.Scan(&survivorId, &survivorEntityId, &survivorType, &survivorChanged)
		})
	if err != nil {
		if ixerr.Of(err) == ixerr.NotFound {
			_, delErr := idx.db.Delete(ctx, "entriesNewest", dbfacade.NewFilter().And("entryId = ?", entryId))
			return ixerr.Wrap("repointNewest", delErr)
		}
		return ixerr.Wrap("repointNewest", err)
	}

	var uuidId int64
	if err := idx.db.Get(ctx, "entities", []string{"uuidId"}, dbfacade.NewFilter().And("id = ?", survivorEntityId), func(rows *sql.Rows) error {
		return rows.Scan(&uuidId)
	}); err != nil {
		return ixerr.Wrap("repointNewest", err)
	}
	survivorUuidId = uuidId

	_, err = idx.db.Update(ctx, "entriesNewest", map[string]interface{}{
		"entryId":         survivorId,
		"uuidId":          survivorUuidId,
		"entityId":        survivorEntityId,
		"type":            survivorType,
		"timeLastChanged": survivorChanged,
	}, dbfacade.NewFilter().And("entryId = ?", entryId))
	return ixerr.Wrap("repointNewest", err)
}

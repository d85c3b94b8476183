package index

import (
	"context"
	"database/sql"
	"time"

	"github.com/torsten-rupp/barindex/internal/dbfacade"
	"github.com/torsten-rupp/barindex/internal/ixerr"
	"github.com/torsten-rupp/barindex/internal/types"
)

// NewEntity creates an entity row for (jobUUID, scheduleUUID), lazily
// creating the owning uuids row. createdDateTime of the zero value means
// "now"; locked initializes lockedCount to 1 (the importer's convention of
// locking an entity until its children are fully populated).
func (idx *Index) NewEntity(ctx context.Context, jobUUID, scheduleUUID, hostName, userName string, archiveType types.EntityType, createdDateTime time.Time, locked bool) (int64, error) {
	uuidID, err := idx.findOrCreateUuid(ctx, jobUUID)
	if err != nil {
		return 0, ixerr.Wrap("NewEntity", err)
	}
	if createdDateTime.IsZero() {
		createdDateTime = time.Now()
	}
	lockedCount := int64(0)
	if locked {
		lockedCount = 1
	}
	return idx.db.Insert(ctx, "entities",
		[]string{"uuidId", "jobUUID", "scheduleUUID", "hostName", "userName", "type", "created", "lockedCount", "deletedFlag"},
		[]interface{}{uuidID, jobUUID, scheduleUUID, hostName, userName, int(archiveType), createdDateTime.Unix(), lockedCount, 0},
	)
}

// EntityUpdate carries the subset of entity fields UpdateEntity may
// replace; a nil pointer field is left unchanged.
type EntityUpdate struct {
	HostName *string
	UserName *string
	Type     *types.EntityType
}

// UpdateEntity replaces metadata fields of entityId's row.
func (idx *Index) UpdateEntity(ctx context.Context, entityId int64, u EntityUpdate) error {
	set := map[string]interface{}{}
	if u.HostName != nil {
		set["hostName"] = *u.HostName
	}
	if u.UserName != nil {
		set["userName"] = *u.UserName
	}
	if u.Type != nil {
		set["type"] = int(*u.Type)
	}
	if len(set) == 0 {
		return nil
	}
	_, err := idx.db.Update(ctx, "entities", set, dbfacade.NewFilter().And("id = ?", entityId))
	if err != nil {
		return ixerr.Wrap("UpdateEntity", err)
	}
	return nil
}

// LockEntity increments lockedCount.
func (idx *Index) LockEntity(ctx context.Context, entityId int64) error {
	_, err := idx.db.Raw().ExecContext(ctx, "UPDATE entities SET lockedCount = lockedCount + 1 WHERE id = "+idx.placeholderOne(), entityId)
	if err != nil {
		return ixerr.Wrap("LockEntity", err)
	}
	return nil
}

// UnlockEntity decrements lockedCount with a floor of 0 — it never drives
// the counter negative.
func (idx *Index) UnlockEntity(ctx context.Context, entityId int64) error {
	_, err := idx.db.Raw().ExecContext(ctx,
		"UPDATE entities SET lockedCount = CASE WHEN lockedCount > 0 THEN lockedCount - 1 ELSE 0 END WHERE id = "+idx.placeholderOne(),
		entityId)
	if err != nil {
		return ixerr.Wrap("UnlockEntity", err)
	}
	return nil
}

func (idx *Index) placeholderOne() string {
	if idx.db.Backend() == dbfacade.PostgreSQL {
		return "$1"
	}
	return "?"
}

// IsLockedEntity reports whether entityId's lockedCount is > 0.
func (idx *Index) IsLockedEntity(ctx context.Context, entityId int64) (bool, error) {
	v, err := idx.db.GetInt64(ctx, "entities", "lockedCount", dbfacade.NewFilter().And("id = ?", entityId))
	if err != nil {
		return false, ixerr.Wrap("IsLockedEntity", err)
	}
	return v > 0, nil
}

// IsDeletedEntity reports whether entityId's deletedFlag is set.
func (idx *Index) IsDeletedEntity(ctx context.Context, entityId int64) (bool, error) {
	v, err := idx.db.GetInt64(ctx, "entities", "deletedFlag", dbfacade.NewFilter().And("id = ?", entityId))
	if err != nil {
		return false, ixerr.Wrap("IsDeletedEntity", err)
	}
	return v != 0, nil
}

// IsEmptyEntity reports whether entityId owns no storage, no entry, and no
// newest-entry reference (§8 universally quantified invariant).
func (idx *Index) IsEmptyEntity(ctx context.Context, entityId int64) (bool, error) {
	if entityId == types.DefaultEntityID {
		return false, nil
	}
	hasStorage, err := idx.db.ExistsValue(ctx, "storages", dbfacade.NewFilter().And("entityId = ?", entityId))
	if err != nil {
		return false, ixerr.Wrap("IsEmptyEntity", err)
	}
	if hasStorage {
		return false, nil
	}
	hasEntry, err := idx.db.ExistsValue(ctx, "entries", dbfacade.NewFilter().And("entityId = ?", entityId))
	if err != nil {
		return false, ixerr.Wrap("IsEmptyEntity", err)
	}
	if hasEntry {
		return false, nil
	}
	hasNewest, err := idx.db.ExistsValue(ctx, "entriesNewest", dbfacade.NewFilter().And("entityId = ?", entityId))
	if err != nil {
		return false, ixerr.Wrap("IsEmptyEntity", err)
	}
	return !hasNewest, nil
}

// DeleteEntity deletes entityId's row (non-default entities only): row
// delete, purge skippedEntries for this entity, then prune the parent
// uuid.
func (idx *Index) DeleteEntity(ctx context.Context, entityId int64) error {
	if entityId == types.DefaultEntityID {
		return ixerr.New(ixerr.InvalidArgument, "DeleteEntity: cannot delete the default entity")
	}
	var job string
	if err := idx.db.Get(ctx, "entities", []string{"jobUUID"}, dbfacade.NewFilter().And("id = ?", entityId), func(rows *sql.Rows) error {
		return rows.Scan(&job)
	}); err != nil {
		return ixerr.Wrap("DeleteEntity", err)
	}

	if _, err := idx.db.Delete(ctx, "skippedEntries", dbfacade.NewFilter().And("entityId = ?", entityId)); err != nil {
		return ixerr.Wrap("DeleteEntity", err)
	}
	if _, err := idx.db.Delete(ctx, "entities", dbfacade.NewFilter().And("id = ?", entityId)); err != nil {
		return ixerr.Wrap("DeleteEntity", err)
	}
	return idx.PruneUuid(ctx, job)
}

// PruneEntity deletes entityId iff it is not the default entity, not
// locked, and empty; it then prunes the parent uuid.
func (idx *Index) PruneEntity(ctx context.Context, entityId int64) error {
	if entityId == types.DefaultEntityID {
		return nil
	}
	locked, err := idx.IsLockedEntity(ctx, entityId)
	if err != nil {
		return err
	}
	if locked {
		return nil
	}
	empty, err := idx.IsEmptyEntity(ctx, entityId)
	if err != nil {
		return err
	}
	if !empty {
		return nil
	}
	return idx.DeleteEntity(ctx, entityId)
}

// PruneAllEntities applies PruneEntity to every non-default entity id,
// early-exiting on ctx cancellation or a signaled quit.
func (idx *Index) PruneAllEntities(ctx context.Context) error {
	ids, err := idx.db.GetIDs(ctx, "entities", "id", dbfacade.NewFilter().And("id != ?", types.DefaultEntityID))
	if err != nil {
		return ixerr.Wrap("PruneAllEntities", err)
	}
	for _, id := range ids {
		if idx.Quitting() {
			return ixerr.ErrInterrupted
		}
		select {
		case <-ctx.Done():
			return ixerr.ErrInterrupted
		default:
		}
		if err := idx.PruneEntity(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

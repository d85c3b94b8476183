package index

import (
	"context"
	"database/sql"
	"time"

	"github.com/torsten-rupp/barindex/internal/dbfacade"
	"github.com/torsten-rupp/barindex/internal/ixerr"
	"github.com/torsten-rupp/barindex/internal/types"
)

func unixTime(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0)
}

// kindCountSize runs a typed COUNT(*)/SUM(size) over entries of one type
// owned by scopeColumn=scopeId; size is the sum of the logical
// entries.size (entryFragments is not joined).
func (idx *Index) kindCountSize(ctx context.Context, scopeColumn string, scopeId int64, entryType types.EntryType, newestOnly bool) (count, size int64, err error) {
	table := "entries"
	if newestOnly {
		table = "entriesNewest"
	}

	query := "SELECT COUNT(*), COALESCE(SUM(size), 0) FROM " + table + " WHERE " + scopeColumn + " = " + idx.placeholderOne() + " AND type = " + idx.placeholderTwo()
	if newestOnly {
		// entriesNewest carries no size column; size is always 0 for the
		// newest view, matching the legacy layout's newest-count-only
		// semantics.
		query = "SELECT COUNT(*), 0 FROM " + table + " WHERE " + scopeColumn + " = " + idx.placeholderOne() + " AND type = " + idx.placeholderTwo()
	}

	row := idx.db.Raw().QueryRowContext(ctx, query, scopeId, int(entryType))
	if err := row.Scan(&count, &size); err != nil {
		return 0, 0, ixerr.Wrap("kindCountSize", err)
	}
	return count, size, nil
}

func (idx *Index) placeholderTwo() string {
	if idx.db.Backend() == dbfacade.PostgreSQL {
		return "$2"
	}
	return "?"
}

// computeAggregates recomputes the 21 (all + newest) aggregate fields for
// the entries owned by scopeColumn=scopeId.
func (idx *Index) computeAggregates(ctx context.Context, scopeColumn string, scopeId int64) (types.EntityAggregates, error) {
	var a types.EntityAggregates

	kinds := []struct {
		typ         types.EntryType
		count, size *int64
		countN      *int64
	}{
		{types.EntryFile, &a.TotalFileCount, &a.TotalFileSize, &a.TotalFileCountNewest},
		{types.EntryImage, &a.TotalImageCount, &a.TotalImageSize, &a.TotalImageCountNewest},
		{types.EntryDirectory, &a.TotalDirectoryCount, nil, &a.TotalDirectoryCountNewest},
		{types.EntryLink, &a.TotalLinkCount, nil, &a.TotalLinkCountNewest},
		{types.EntryHardlink, &a.TotalHardlinkCount, &a.TotalHardlinkSize, &a.TotalHardlinkCountNewest},
		{types.EntrySpecial, &a.TotalSpecialCount, nil, nil},
	}

	for _, k := range kinds {
		count, size, err := idx.kindCountSize(ctx, scopeColumn, scopeId, k.typ, false)
		if err != nil {
			return a, err
		}
		*k.count = count
		if k.size != nil {
			*k.size = size
		}
		a.TotalEntryCount += count
		a.TotalEntrySize += size

		if k.countN != nil {
			countN, _, err := idx.kindCountSize(ctx, scopeColumn, scopeId, k.typ, true)
			if err != nil {
				return a, err
			}
			*k.countN = countN
			a.TotalEntryCountNewest += countN
		}
	}

	a.TotalFileSizeNewest = 0
	a.TotalImageSizeNewest = 0
	a.TotalHardlinkSizeNewest = 0
	a.TotalEntrySizeNewest = 0
	return a, nil
}

// UpdateEntityAggregates recomputes entityId's 21 aggregate fields by
// typed COUNT/SUM queries over entries and entriesNewest (§4.4).
func (idx *Index) UpdateEntityAggregates(ctx context.Context, entityId int64) error {
	a, err := idx.computeAggregates(ctx, "entityId", entityId)
	if err != nil {
		return ixerr.Wrap("UpdateEntityAggregates", err)
	}
	_, err = idx.db.Update(ctx, "entities", aggregatesToSet(a), dbfacade.NewFilter().And("id = ?", entityId))
	return ixerr.Wrap("UpdateEntityAggregates", err)
}

// storageKindCountSize counts entries of entryType that reference
// storageId, either directly (directory/link/special, via entries.storageId)
// or through entryFragments (file/image/hardlink). size sums entryFragments
// bytes for the fragment-owning kinds and is 0 for the direct-reference
// kinds, which carry no per-entry size of their own.
func (idx *Index) storageKindCountSize(ctx context.Context, storageId int64, entryType types.EntryType, viaFragments bool) (count, size int64, err error) {
	var query string
	if viaFragments {
		query = `SELECT COUNT(DISTINCT e.id), COALESCE(SUM(f.size), 0)
			FROM entries e JOIN entryFragments f ON f.entryId = e.id
			WHERE f.storageId = ` + idx.placeholderOne() + ` AND e.type = ` + idx.placeholderTwo()
	} else {
		query = `SELECT COUNT(*), 0 FROM entries
			WHERE storageId = ` + idx.placeholderOne() + ` AND type = ` + idx.placeholderTwo()
	}
	row := idx.db.Raw().QueryRowContext(ctx, query, storageId, int(entryType))
	if err := row.Scan(&count, &size); err != nil {
		return 0, 0, ixerr.Wrap("storageKindCountSize", err)
	}
	return count, size, nil
}

// UpdateStorageAggregates recomputes storageId's 11 aggregate fields from
// the entries that reference it, following the same shape as
// UpdateEntityAggregates (§4.4 "storage totals equal sum over its
// entries/fragments").
func (idx *Index) UpdateStorageAggregates(ctx context.Context, storageId int64) error {
	var a types.StorageAggregates

	kinds := []struct {
		typ          types.EntryType
		viaFragments bool
		count, size  *int64
	}{
		{types.EntryFile, true, &a.TotalFileCount, &a.TotalFileSize},
		{types.EntryImage, true, &a.TotalImageCount, &a.TotalImageSize},
		{types.EntryDirectory, false, &a.TotalDirectoryCount, nil},
		{types.EntryLink, false, &a.TotalLinkCount, nil},
		{types.EntryHardlink, true, &a.TotalHardlinkCount, &a.TotalHardlinkSize},
		{types.EntrySpecial, false, &a.TotalSpecialCount, nil},
	}

	for _, k := range kinds {
		count, size, err := idx.storageKindCountSize(ctx, storageId, k.typ, k.viaFragments)
		if err != nil {
			return ixerr.Wrap("UpdateStorageAggregates", err)
		}
		*k.count = count
		if k.size != nil {
			*k.size = size
		}
		a.TotalEntryCount += count
		a.TotalEntrySize += size
	}

	_, err := idx.db.Update(ctx, "storages", map[string]interface{}{
		"totalEntryCount":     a.TotalEntryCount,
		"totalEntrySize":      a.TotalEntrySize,
		"totalFileCount":      a.TotalFileCount,
		"totalFileSize":       a.TotalFileSize,
		"totalImageCount":     a.TotalImageCount,
		"totalImageSize":      a.TotalImageSize,
		"totalDirectoryCount": a.TotalDirectoryCount,
		"totalLinkCount":      a.TotalLinkCount,
		"totalHardlinkCount":  a.TotalHardlinkCount,
		"totalHardlinkSize":   a.TotalHardlinkSize,
		"totalSpecialCount":   a.TotalSpecialCount,
	}, dbfacade.NewFilter().And("id = ?", storageId))
	return ixerr.Wrap("UpdateStorageAggregates", err)
}

func aggregatesToSet(a types.EntityAggregates) map[string]interface{} {
	return map[string]interface{}{
		"totalEntryCount":     a.TotalEntryCount,
		"totalEntrySize":      a.TotalEntrySize,
		"totalFileCount":      a.TotalFileCount,
		"totalFileSize":       a.TotalFileSize,
		"totalImageCount":     a.TotalImageCount,
		"totalImageSize":      a.TotalImageSize,
		"totalDirectoryCount": a.TotalDirectoryCount,
		"totalLinkCount":      a.TotalLinkCount,
		"totalHardlinkCount":  a.TotalHardlinkCount,
		"totalHardlinkSize":   a.TotalHardlinkSize,
		"totalSpecialCount":   a.TotalSpecialCount,

		"totalEntryCountNewest":     a.TotalEntryCountNewest,
		"totalEntrySizeNewest":      a.TotalEntrySizeNewest,
		"totalFileCountNewest":      a.TotalFileCountNewest,
		"totalFileSizeNewest":       a.TotalFileSizeNewest,
		"totalImageCountNewest":     a.TotalImageCountNewest,
		"totalImageSizeNewest":      a.TotalImageSizeNewest,
		"totalDirectoryCountNewest": a.TotalDirectoryCountNewest,
		"totalLinkCountNewest":      a.TotalLinkCountNewest,
		"totalHardlinkCountNewest":  a.TotalHardlinkCountNewest,
		"totalHardlinkSizeNewest":   a.TotalHardlinkSizeNewest,
	}
}

// GetEntity reads one entity row by id.
func (idx *Index) GetEntity(ctx context.Context, entityId int64) (*types.Entity, error) {
	e := &types.Entity{}
	var created, typeVal, locked, deleted int64
	err := idx.db.Get(ctx, "entities", []string{
		"id", "uuidId", "jobUUID", "scheduleUUID", "hostName", "userName", "type", "created", "lockedCount", "deletedFlag",
		"totalEntryCount", "totalEntrySize", "totalFileCount", "totalFileSize", "totalImageCount", "totalImageSize",
		"totalDirectoryCount", "totalLinkCount", "totalHardlinkCount", "totalHardlinkSize", "totalSpecialCount",
		"totalEntryCountNewest", "totalEntrySizeNewest", "totalFileCountNewest", "totalFileSizeNewest",
		"totalImageCountNewest", "totalImageSizeNewest", "totalDirectoryCountNewest", "totalLinkCountNewest",
		"totalHardlinkCountNewest", "totalHardlinkSizeNewest",
	}, dbfacade.NewFilter().And("id = ?", entityId), func(rows *sql.Rows) error {
		return rows.Scan(&e.ID, &e.UuidID, &e.JobUUID, &e.ScheduleUUID, &e.HostName, &e.UserName, &typeVal, &created, &locked, &deleted,
			&e.Aggregates.TotalEntryCount, &e.Aggregates.TotalEntrySize, &e.Aggregates.TotalFileCount, &e.Aggregates.TotalFileSize,
			&e.Aggregates.TotalImageCount, &e.Aggregates.TotalImageSize, &e.Aggregates.TotalDirectoryCount, &e.Aggregates.TotalLinkCount,
			&e.Aggregates.TotalHardlinkCount, &e.Aggregates.TotalHardlinkSize, &e.Aggregates.TotalSpecialCount,
			&e.Aggregates.TotalEntryCountNewest, &e.Aggregates.TotalEntrySizeNewest, &e.Aggregates.TotalFileCountNewest,
			&e.Aggregates.TotalFileSizeNewest, &e.Aggregates.TotalImageCountNewest, &e.Aggregates.TotalImageSizeNewest,
			&e.Aggregates.TotalDirectoryCountNewest, &e.Aggregates.TotalLinkCountNewest, &e.Aggregates.TotalHardlinkCountNewest,
			&e.Aggregates.TotalHardlinkSizeNewest)
	})
	if err != nil {
		return nil, ixerr.Wrap("GetEntity", err)
	}
	e.Type = types.EntityType(typeVal)
	e.Created = unixTime(created)
	e.LockedCount = locked
	e.Deleted = deleted != 0
	return e, nil
}

package index

import (
	"context"
	"database/sql"

	"github.com/torsten-rupp/barindex/internal/dbfacade"
	"github.com/torsten-rupp/barindex/internal/ixerr"
	"github.com/torsten-rupp/barindex/internal/types"
)

// SortOrder is the direction a listing cursor is ordered by; None leaves
// the underlying table's natural order in effect.
type SortOrder int

const (
	OrderNone SortOrder = iota
	OrderAsc
	OrderDesc
)

func (o SortOrder) sql() string {
	switch o {
	case OrderAsc:
		return "ASC"
	case OrderDesc:
		return "DESC"
	default:
		return ""
	}
}

// Sort columns are whitelisted per listing so a caller-controlled string
// never reaches SQL text directly.
var entitySortColumns = map[string]bool{
	"id": true, "created": true, "hostName": true, "userName": true, "type": true,
}

var storageSortColumns = map[string]bool{
	"id": true, "created": true, "name": true, "state": true, "size": true,
}

var entrySortColumns = map[string]bool{
	"id": true, "name": true, "timeLastChanged": true, "size": true, "type": true,
}

func sortedFilter(filter *dbfacade.Filter, column string, allowed map[string]bool, order SortOrder) *dbfacade.Filter {
	if column != "" && allowed[column] && order != OrderNone {
		return filter.OrderBy(column, order.sql())
	}
	return filter
}

// entityRows buffers scanned rows in memory, built via Select, then
// handed to a Cursor for one-row-at-a-time iteration — simple and
// sufficient at the row counts these listings deal with; a future
// streaming cursor can replace this without changing the Next/Close API.
type entityRows struct {
	items []*types.Entity
	pos   int
}

// EntityCursor iterates entities matching a listing's filter, one row per
// Next call.
type EntityCursor struct{ entityRows }

// Next advances the cursor; ok is false once exhausted.
func (c *EntityCursor) Next() (e *types.Entity, ok bool, err error) {
	if c.pos >= len(c.items) {
		return nil, false, nil
	}
	e = c.items[c.pos]
	c.pos++
	return e, true, nil
}

// Close is a no-op for the in-memory cursor; kept for API symmetry with a
// future streaming implementation.
func (c *EntityCursor) Close() error { return nil }

// EntityListing configures InitListEntities.
type EntityListing struct {
	UuidID        int64 // 0 means "any uuid"
	IncludeLocked bool
	SortColumn    string // must be in entitySortColumns, or ""
	SortOrder     SortOrder
}

// InitListEntities opens a cursor over entities matching l, never returning
// deleted rows.
func (idx *Index) InitListEntities(ctx context.Context, l EntityListing) (*EntityCursor, error) {
	filter := dbfacade.NewFilter().And("deletedFlag != 1")
	if l.UuidID != 0 {
		filter = filter.And("uuidId = ?", l.UuidID)
	}
	if !l.IncludeLocked {
		filter = filter.And("lockedCount = 0")
	}
	filter = sortedFilter(filter, l.SortColumn, entitySortColumns, l.SortOrder)

	var items []*types.Entity
	err := idx.db.Select(ctx, "entities",
		[]string{"id", "uuidId", "jobUUID", "scheduleUUID", "hostName", "userName", "type", "created", "lockedCount", "deletedFlag"},
		filter, func(rows *sql.Rows) error {
			e := &types.Entity{}
			var typeVal, created, locked, deleted int64
			if err := rows.Scan(&e.ID, &e.UuidID, &e.JobUUID, &e.ScheduleUUID, &e.HostName, &e.UserName, &typeVal, &created, &locked, &deleted); err != nil {
				return err
			}
			e.Type = types.EntityType(typeVal)
			e.Created = unixTime(created)
			e.LockedCount = locked
			e.Deleted = deleted != 0
			items = append(items, e)
			return nil
		})
	if err != nil {
		return nil, ixerr.Wrap("InitListEntities", err)
	}
	return &EntityCursor{entityRows{items: items}}, nil
}

type storageRows struct {
	items []*types.Storage
	pos   int
}

// StorageCursor iterates storages matching a listing's filter.
type StorageCursor struct{ storageRows }

func (c *StorageCursor) Next() (s *types.Storage, ok bool, err error) {
	if c.pos >= len(c.items) {
		return nil, false, nil
	}
	s = c.items[c.pos]
	c.pos++
	return s, true, nil
}

func (c *StorageCursor) Close() error { return nil }

// StorageListing configures InitListStorages.
type StorageListing struct {
	EntityID   int64 // 0 means "any entity"
	SortColumn string
	SortOrder  SortOrder
}

// InitListStorages opens a cursor over non-deleted storages matching l.
func (idx *Index) InitListStorages(ctx context.Context, l StorageListing) (*StorageCursor, error) {
	filter := dbfacade.NewFilter().And("deletedFlag != 1")
	if l.EntityID != 0 {
		filter = filter.And("entityId = ?", l.EntityID)
	}
	filter = sortedFilter(filter, l.SortColumn, storageSortColumns, l.SortOrder)

	var items []*types.Storage
	err := idx.db.Select(ctx, "storages",
		[]string{"id", "entityId", "name", "created", "size", "state", "mode", "lastChecked", "errorMessage", "deletedFlag"},
		filter, func(rows *sql.Rows) error {
			s := &types.Storage{}
			var created, state, mode, lastChecked, deleted int64
			if err := rows.Scan(&s.ID, &s.EntityID, &s.Name, &created, &s.Size, &state, &mode, &lastChecked, &s.ErrorMessage, &deleted); err != nil {
				return err
			}
			s.State = types.StorageState(state)
			s.Mode = types.StorageMode(mode)
			s.Created = unixTime(created)
			s.LastChecked = unixTime(lastChecked)
			s.Deleted = deleted != 0
			items = append(items, s)
			return nil
		})
	if err != nil {
		return nil, ixerr.Wrap("InitListStorages", err)
	}
	return &StorageCursor{storageRows{items: items}}, nil
}

type entryRows struct {
	items []*types.Entry
	pos   int
}

// EntryCursor iterates entries matching a listing's filter.
type EntryCursor struct{ entryRows }

func (c *EntryCursor) Next() (e *types.Entry, ok bool, err error) {
	if c.pos >= len(c.items) {
		return nil, false, nil
	}
	e = c.items[c.pos]
	c.pos++
	return e, true, nil
}

func (c *EntryCursor) Close() error { return nil }

// EntryListing configures InitListEntries.
type EntryListing struct {
	EntityID   int64 // 0 means "any entity"
	NamePrefix string
	NewestOnly bool // restricts to the entriesNewest view, across all entities
	SortColumn string
	SortOrder  SortOrder
}

// InitListEntries opens a cursor over entries (or, if NewestOnly, the
// entriesNewest mirror) matching l.
func (idx *Index) InitListEntries(ctx context.Context, l EntryListing) (*EntryCursor, error) {
	table := "entries"
	if l.NewestOnly {
		table = "entriesNewest"
	}

	filter := dbfacade.NewFilter()
	if l.EntityID != 0 {
		filter = filter.And("entityId = ?", l.EntityID)
	}
	if l.NamePrefix != "" {
		filter = filter.And("name LIKE ?", l.NamePrefix+"%")
	}
	filter = sortedFilter(filter, l.SortColumn, entrySortColumns, l.SortOrder)

	var items []*types.Entry
	var scanErr error
	if l.NewestOnly {
		// entriesNewest carries no userId/groupId/permission/size/storageId
		// columns; those fields are left at their zero value. Select entryId
		// (not the mirror row's own id) so the cursor yields the actual
		// entry's identity.
		scanErr = idx.db.Select(ctx, table, []string{"entryId", "entityId", "type", "name", "timeLastChanged"}, filter, func(rows *sql.Rows) error {
			e := &types.Entry{}
			var typeVal, changed int64
			if err := rows.Scan(&e.ID, &e.EntityID, &typeVal, &e.Name, &changed); err != nil {
				return err
			}
			e.Type = types.EntryType(typeVal)
			e.TimeLastChanged = unixTime(changed)
			items = append(items, e)
			return nil
		})
	} else {
		scanErr = idx.db.Select(ctx, table,
			[]string{"id", "entityId", "type", "name", "timeLastChanged", "userId", "groupId", "permission", "size", "storageId"},
			filter, func(rows *sql.Rows) error {
				e := &types.Entry{}
				var typeVal, changed, permission int64
				if err := rows.Scan(&e.ID, &e.EntityID, &typeVal, &e.Name, &changed, &e.UserID, &e.GroupID, &permission, &e.Size, &e.StorageID); err != nil {
					return err
				}
				e.Type = types.EntryType(typeVal)
				e.TimeLastChanged = unixTime(changed)
				e.Permission = uint32(permission)
				items = append(items, e)
				return nil
			})
	}
	if scanErr != nil {
		return nil, ixerr.Wrap("InitListEntries", scanErr)
	}
	return &EntryCursor{entryRows{items: items}}, nil
}

// InitListHistory opens a cursor over every entry ever recorded for name,
// across entities belonging to uuidID, newest first — the "history"
// listing named in §4.4's query surface.
func (idx *Index) InitListHistory(ctx context.Context, uuidID int64, name string) (*EntryCursor, error) {
	query := `SELECT e.id, e.entityId, e.type, e.name, e.timeLastChanged, e.userId, e.groupId, e.permission, e.size, e.storageId
		FROM entries e JOIN entities en ON en.id = e.entityId
		WHERE en.uuidId = ` + idx.placeholderOne() + ` AND e.name = ` + idx.placeholderTwo() + `
		ORDER BY e.timeLastChanged DESC`
	rows, err := idx.db.Raw().QueryContext(ctx, query, uuidID, name)
	if err != nil {
		return nil, ixerr.Wrap("InitListHistory", err)
	}
	defer rows.Close()

	var items []*types.Entry
	for rows.Next() {
		e := &types.Entry{}
		var typeVal, changed, permission int64
		if err := rows.Scan(&e.ID, &e.EntityID, &typeVal, &e.Name, &changed, &e.UserID, &e.GroupID, &permission, &e.Size, &e.StorageID); err != nil {
			return nil, ixerr.Wrap("InitListHistory", err)
		}
		e.Type = types.EntryType(typeVal)
		e.TimeLastChanged = unixTime(changed)
		e.Permission = uint32(permission)
		items = append(items, e)
	}
	if err := rows.Err(); err != nil {
		return nil, ixerr.Wrap("InitListHistory", err)
	}
	return &EntryCursor{entryRows{items: items}}, nil
}

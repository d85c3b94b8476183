package index

import (
	"context"
	"time"

	"github.com/torsten-rupp/barindex/internal/dbfacade"
	"github.com/torsten-rupp/barindex/internal/ixerr"
	"github.com/torsten-rupp/barindex/internal/types"
)

// NewEntryInput is what archive-build callers supply to add one entry; the
// zero value for the kind-specific sub-fields is fine for kinds that don't
// use them.
type NewEntryInput struct {
	EntityID        int64
	Type            types.EntryType
	Name            string
	TimeLastChanged time.Time
	UserID          int64
	GroupID         int64
	Permission      uint32
	Size            int64

	// StorageID: for directory/link/special entries, the storage they
	// reference directly. For file/image/hardlink entries, Fragments is
	// used instead and StorageID is ignored here.
	StorageID int64

	Fragments []types.Fragment // offset/size pairs; StorageID set per fragment

	ImageBlockSize  int64
	ImageBlockCount int64
	LinkDestination string
	DeviceKind      int
	DeviceMajor     int64
	DeviceMinor     int64
}

// AddEntry inserts one entry row, its kind-specific subtype row, and for
// fragment-owning kinds (file, image, hardlink) its entryFragments rows,
// then updates the entriesNewest mirror for in.Name so it always points at
// the most-recently-changed entry (§3 EntriesNewest invariant).
func (idx *Index) AddEntry(ctx context.Context, in NewEntryInput) (int64, error) {
	if in.TimeLastChanged.IsZero() {
		in.TimeLastChanged = time.Now()
	}

	entryId, err := idx.db.Insert(ctx, "entries",
		[]string{"entityId", "type", "name", "timeLastChanged", "userId", "groupId", "permission", "size", "storageId"},
		[]interface{}{in.EntityID, int(in.Type), in.Name, in.TimeLastChanged.Unix(), in.UserID, in.GroupID, int64(in.Permission), in.Size, in.StorageID},
	)
	if err != nil {
		return 0, ixerr.Wrap("AddEntry", err)
	}

	if err := idx.insertSubtype(ctx, entryId, in); err != nil {
		return 0, err
	}

	if in.Type.HasFragments() {
		for _, f := range in.Fragments {
			if _, err := idx.db.Insert(ctx, "entryFragments",
				[]string{"entryId", "storageId", "offset", "size"},
				[]interface{}{entryId, f.StorageID, f.Offset, f.Size}); err != nil {
				return 0, ixerr.Wrap("AddEntry: fragment", err)
			}
		}
	}

	if _, err := idx.db.Insert(ctx, "FTS_entries", []string{"entryId", "name"}, []interface{}{entryId, in.Name}); err != nil {
		return 0, ixerr.Wrap("AddEntry: fts", err)
	}

	if err := idx.updateNewest(ctx, in.EntityID, entryId, in.Type, in.Name, in.TimeLastChanged); err != nil {
		return 0, err
	}

	return entryId, nil
}

func (idx *Index) insertSubtype(ctx context.Context, entryId int64, in NewEntryInput) error {
	var err error
	switch in.Type {
	case types.EntryFile:
		_, err = idx.db.Insert(ctx, "fileEntries", []string{"entryId"}, []interface{}{entryId})
	case types.EntryImage:
		_, err = idx.db.Insert(ctx, "imageEntries", []string{"entryId", "blockSize", "blockCount"}, []interface{}{entryId, in.ImageBlockSize, in.ImageBlockCount})
	case types.EntryDirectory:
		_, err = idx.db.Insert(ctx, "directoryEntries", []string{"entryId", "storageId"}, []interface{}{entryId, in.StorageID})
	case types.EntryLink:
		_, err = idx.db.Insert(ctx, "linkEntries", []string{"entryId", "storageId", "destination"}, []interface{}{entryId, in.StorageID, in.LinkDestination})
	case types.EntryHardlink:
		_, err = idx.db.Insert(ctx, "hardlinkEntries", []string{"entryId"}, []interface{}{entryId})
	case types.EntrySpecial:
		_, err = idx.db.Insert(ctx, "specialEntries", []string{"entryId", "storageId", "deviceKind", "major", "minor"}, []interface{}{entryId, in.StorageID, in.DeviceKind, in.DeviceMajor, in.DeviceMinor})
	}
	return ixerr.Wrap("AddEntry: subtype", err)
}

// updateNewest upserts the entriesNewest row for name, replacing it only
// when the new entry is at least as recent as the one currently recorded
// (§3 "at most one newest row per name").
func (idx *Index) updateNewest(ctx context.Context, entityId, entryId int64, entryType types.EntryType, name string, changed time.Time) error {
	uuidId, err := idx.db.GetInt64(ctx, "entities", "uuidId", dbfacade.NewFilter().And("id = ?", entityId))
	if err != nil {
		return ixerr.Wrap("updateNewest", err)
	}

	existing, err := idx.db.GetInt64(ctx, "entriesNewest", "timeLastChanged", dbfacade.NewFilter().And("name = ?", name))
	if err != nil && ixerr.Of(err) != ixerr.NotFound {
		return ixerr.Wrap("updateNewest", err)
	}
	if err == nil && existing > changed.Unix() {
		return nil
	}

	if err == nil {
		_, uErr := idx.db.Update(ctx, "entriesNewest", map[string]interface{}{
			"entryId":         entryId,
			"uuidId":          uuidId,
			"entityId":        entityId,
			"type":            int(entryType),
			"timeLastChanged": changed.Unix(),
		}, dbfacade.NewFilter().And("name = ?", name))
		return ixerr.Wrap("updateNewest", uErr)
	}

	_, iErr := idx.db.Insert(ctx, "entriesNewest",
		[]string{"entryId", "uuidId", "entityId", "type", "name", "timeLastChanged"},
		[]interface{}{entryId, uuidId, entityId, int(entryType), name, changed.Unix()})
	return ixerr.Wrap("updateNewest", iErr)
}

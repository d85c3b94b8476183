package index

import (
	"context"

	"github.com/torsten-rupp/barindex/internal/dbfacade"
	"github.com/torsten-rupp/barindex/internal/ixerr"
)

// findOrCreateUuid returns the row id of the uuids row for jobUUID,
// creating it lazily on first use (§3 Uuid lifecycle).
func (idx *Index) findOrCreateUuid(ctx context.Context, jobUUID string) (int64, error) {
	id, err := idx.db.GetInt64(ctx, "uuids", "id", dbfacade.NewFilter().And("jobUUID = ?", jobUUID))
	if err == nil {
		return id, nil
	}
	if ixerr.Of(err) != ixerr.NotFound {
		return 0, err
	}
	return idx.db.Insert(ctx, "uuids", []string{"jobUUID", "lastChecked"}, []interface{}{jobUUID, 0})
}

// PruneUuid deletes the uuids row for jobUUID iff it has no entities left.
func (idx *Index) PruneUuid(ctx context.Context, jobUUID string) error {
	uuidID, err := idx.db.GetInt64(ctx, "uuids", "id", dbfacade.NewFilter().And("jobUUID = ?", jobUUID))
	if err != nil {
		if ixerr.Of(err) == ixerr.NotFound {
			return nil
		}
		return err
	}
	exists, err := idx.db.ExistsValue(ctx, "entities", dbfacade.NewFilter().And("uuidId = ?", uuidID))
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	_, err = idx.db.Delete(ctx, "uuids", dbfacade.NewFilter().And("id = ?", uuidID))
	return err
}

// Package types holds the data model shared by the index core, migration,
// and continuous tracker: identifiers, entities, and the row shapes of the
// portable schema described in the index schema.
package types

import (
	"fmt"
	"strconv"
	"strings"
)

// IndexKind discriminates the row a rowid refers to, so a single 64-bit
// IndexId can traverse the master/worker RPC boundary as one scalar.
type IndexKind int

const (
	KindNone IndexKind = iota
	KindAnyUuid
	KindAnyEntity
	KindAnyStorage
	KindAnyEntry
	KindHistory
	KindUuid
	KindEntity
	KindStorage
	KindEntry
	KindFile
	KindImage
	KindDirectory
	KindLink
	KindHardlink
	KindSpecial
	KindFileExtra
	KindImageExtra
	KindDirectoryExtra
	KindLinkExtra
	KindHardlinkExtra
	KindSpecialExtra
)

func (k IndexKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindAnyUuid:
		return "any-uuid"
	case KindAnyEntity:
		return "any-entity"
	case KindAnyStorage:
		return "any-storage"
	case KindAnyEntry:
		return "any-entry"
	case KindHistory:
		return "history"
	case KindUuid:
		return "uuid"
	case KindEntity:
		return "entity"
	case KindStorage:
		return "storage"
	case KindEntry:
		return "entry"
	case KindFile:
		return "file"
	case KindImage:
		return "image"
	case KindDirectory:
		return "directory"
	case KindLink:
		return "link"
	case KindHardlink:
		return "hardlink"
	case KindSpecial:
		return "special"
	case KindFileExtra:
		return "file-extra"
	case KindImageExtra:
		return "image-extra"
	case KindDirectoryExtra:
		return "directory-extra"
	case KindLinkExtra:
		return "link-extra"
	case KindHardlinkExtra:
		return "hardlink-extra"
	case KindSpecialExtra:
		return "special-extra"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// kindBits is the number of low bits of the packed value reserved for the
// kind discriminator; the remaining high bits hold the rowid.
const kindBits = 6

// IndexId packs (kind, rowid) into a single int64 so it survives the
// master/worker RPC envelope (§6) as one scalar.
type IndexId int64

// NoIndexId is the sentinel meaning "no id" (kind None, rowid 0).
const NoIndexId IndexId = 0

// NewIndexId packs a kind and a non-negative rowid into one IndexId.
func NewIndexId(kind IndexKind, rowid int64) IndexId {
	return IndexId(int64(kind) | (rowid << kindBits))
}

// Kind extracts the discriminator from a packed id.
func (id IndexId) Kind() IndexKind {
	return IndexKind(int64(id) & ((1 << kindBits) - 1))
}

// RowID extracts the row id from a packed id.
func (id IndexId) RowID() int64 {
	return int64(id) >> kindBits
}

// IsNone reports whether id carries no real row reference.
func (id IndexId) IsNone() bool {
	return id.Kind() == KindNone
}

func (id IndexId) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// ParseIndexId parses the text form produced by String.
func ParseIndexId(s string) (IndexId, error) {
	s = strings.TrimSpace(s)
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return NoIndexId, fmt.Errorf("parse index id %q: %w", s, err)
	}
	return IndexId(v), nil
}

package types

import "time"

// EntryType is the kind of filesystem object one entry records.
type EntryType int

const (
	EntryFile EntryType = iota
	EntryImage
	EntryDirectory
	EntryLink
	EntryHardlink
	EntrySpecial
)

func (t EntryType) String() string {
	switch t {
	case EntryFile:
		return "file"
	case EntryImage:
		return "image"
	case EntryDirectory:
		return "directory"
	case EntryLink:
		return "link"
	case EntryHardlink:
		return "hardlink"
	case EntrySpecial:
		return "special"
	default:
		return "unknown"
	}
}

// HasFragments reports whether entries of this type own rows in
// entryFragments (file, image, hardlink) as opposed to referencing a
// storage directly (directory, link, special).
func (t EntryType) HasFragments() bool {
	switch t {
	case EntryFile, EntryImage, EntryHardlink:
		return true
	default:
		return false
	}
}

// Entry is a filesystem object recorded in an archive.
type Entry struct {
	ID              int64
	EntityID        int64
	Type            EntryType
	Name            string
	TimeLastChanged time.Time
	UserID          int64
	GroupID         int64
	Permission      uint32
	Size            int64 // meaningful for sized kinds (file, image, hardlink)

	// StorageID is set directly for directory/link/special entries, which
	// own a single row referencing a storage rather than fragments.
	StorageID int64
}

// Fragment is a contiguous byte range of one entry stored inside one
// storage.
type Fragment struct {
	ID        int64
	EntryID   int64
	StorageID int64
	Offset    int64
	Size      int64
}

// EntriesNewest mirrors the newest (by TimeLastChanged) entry currently
// visible for a given name, across all entities.
type EntriesNewest struct {
	ID              int64
	EntryID         int64
	UuidID          int64
	EntityID        int64
	Type            EntryType
	Name            string
	TimeLastChanged time.Time
}

// FileEntry holds file-specific subtype fields.
type FileEntry struct {
	EntryID int64
}

// ImageEntry holds image-specific subtype fields.
type ImageEntry struct {
	EntryID    int64
	BlockSize  int64
	BlockCount int64
}

// DirectoryEntry holds directory-specific subtype fields.
type DirectoryEntry struct {
	EntryID   int64
	StorageID int64
}

// LinkEntry holds symlink-specific subtype fields.
type LinkEntry struct {
	EntryID     int64
	StorageID   int64
	Destination string
}

// HardlinkEntry holds hardlink-specific subtype fields.
type HardlinkEntry struct {
	EntryID int64
}

// SpecialEntry holds device/fifo/socket subtype fields.
type SpecialEntry struct {
	EntryID    int64
	StorageID  int64
	DeviceKind int
	Major      int64
	Minor      int64
}

// Package models defines the data models shared by the server, the wire
// codec and the client.
package models

// StorageMode tells where a file's payload lives.
type StorageMode int16

const (
	// StorageInline keeps the payload in the row's binary column.
	StorageInline StorageMode = 0
	// StorageExternal keeps the payload in a backend large object
	// referenced by ExternalPointer.
	StorageExternal StorageMode = 1
)

func (m StorageMode) String() string {
	switch m {
	case StorageInline:
		return "inline"
	case StorageExternal:
		return "external"
	default:
		return "unknown"
	}
}

// ExternalPointer references a large object. Exactly one field is
// meaningful, depending on the backend: OID for handle-addressable
// backends (PostgreSQL large objects), Path for path-addressable ones
// (object storage keys).
type ExternalPointer struct {
	OID  int64
	Path string
}

// IsZero reports whether the pointer references nothing.
func (p ExternalPointer) IsZero() bool {
	return p.OID == 0 && p.Path == ""
}

// FileRecord describes one stored file attached to a data record.
type FileRecord struct {
	// ID is assigned on first insert; 0 means "not yet created".
	ID int64
	// DataRecordID links the file to its owning data record.
	DataRecordID int64
	// Name is the display file name.
	Name string
	// Size is the payload length in bytes, always measured from the
	// stream actually stored.
	Size int64

	StorageMode     StorageMode
	ExternalPointer ExternalPointer
}

// HasObject reports whether the record references an allocated large object.
func (f *FileRecord) HasObject() bool {
	return f.StorageMode == StorageExternal && !f.ExternalPointer.IsZero()
}

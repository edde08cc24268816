package files

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/blobvault/internal/common"
	"github.com/dmitrijs2005/blobvault/internal/models"
)

// ErrUnsupportedPointer is returned when a row cannot store the external
// pointer it was given.
var ErrUnsupportedPointer = errors.New("unsupported external pointer")

// inlineContent returns the value for the content column: the payload for
// inline records, NULL otherwise.
func inlineContent(f *models.FileRecord, content []byte) any {
	if f.StorageMode != models.StorageInline {
		return nil
	}
	if content == nil {
		return []byte{}
	}
	return content
}

// sized copies content into a buffer of exactly size bytes.
func sized(content []byte, size int64) []byte {
	buf := make([]byte, size)
	n := copy(buf, content)
	return buf[:n]
}

func exactlyOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 1:
		return nil
	case 0:
		return common.ErrorNotFound
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}

// pointerArgs returns the object_key and object_oid column values. Only
// external rows keep a pointer, and a pointer names either a key or an OID.
func pointerArgs(f *models.FileRecord) (key, oid any, err error) {
	if f.StorageMode != models.StorageExternal {
		return nil, nil, nil
	}
	ptr := f.ExternalPointer
	if ptr.Path != "" && ptr.OID != 0 {
		return nil, nil, fmt.Errorf("file %d: %w: both key and oid set", f.ID, ErrUnsupportedPointer)
	}
	if ptr.Path != "" {
		key = ptr.Path
	}
	if ptr.OID != 0 {
		oid = ptr.OID
	}
	return key, oid, nil
}

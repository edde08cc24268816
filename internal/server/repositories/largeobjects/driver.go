// Package largeobjects implements backend large-object drivers: storage for
// file payloads that do not live inline in the files table.
package largeobjects

import (
	"context"
	"errors"
	"io"

	"github.com/dmitrijs2005/blobvault/internal/models"
)

// Addressing describes how a backend names its large objects.
type Addressing int

const (
	// ByHandle backends allocate an opaque handle before the row exists.
	ByHandle Addressing = iota
	// ByPath backends derive the object path from the row, so the row must
	// exist before the object is allocated.
	ByPath
)

// Capabilities tells the blob service how to drive a backend.
type Capabilities struct {
	Addressing Addressing
	// Transactional drivers roll back together with the surrounding
	// database transaction.
	Transactional bool
	// ReadNeedsTx drivers can only stream inside an open transaction.
	ReadNeedsTx bool
}

// Writer is a write session on a large object. Close commits the written
// bytes, Abort discards them.
type Writer interface {
	io.WriteCloser
	Abort() error
	// Size is the number of bytes accepted so far.
	Size() int64
}

// Driver is a large-object backend bound to a dbx.DBTX.
type Driver interface {
	Capabilities() Capabilities
	// Allocate reserves a new object for rec. ByPath drivers require rec.ID.
	Allocate(ctx context.Context, rec *models.FileRecord) (models.ExternalPointer, error)
	OpenRead(ctx context.Context, ptr models.ExternalPointer) (io.ReadCloser, error)
	// OpenWrite opens ptr for writing and truncates it.
	OpenWrite(ctx context.Context, ptr models.ExternalPointer) (Writer, error)
	Unlink(ctx context.Context, ptr models.ExternalPointer) error
	Exists(ctx context.Context, ptr models.ExternalPointer) (bool, error)
}

var (
	ErrInvalidPointer = errors.New("invalid large object pointer")
	ErrUnsavedRecord  = errors.New("record must be saved before allocating a path-addressed object")
	ErrClosed         = errors.New("large object is closed")
)

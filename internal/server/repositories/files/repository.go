// Package files stores file metadata rows and inline payloads. It is also the
// record locator: Locate tells whether a row exists and where its payload
// lives.
package files

import (
	"context"

	"github.com/dmitrijs2005/blobvault/internal/models"
)

// Repository persists FileRecord rows. Implementations are bound to a
// dbx.DBTX so the same code runs inside or outside a transaction.
type Repository interface {
	// ListByRecord returns metadata (no payload) of every file of a data record, ordered by id.
	ListByRecord(ctx context.Context, recordID int64) ([]*models.FileRecord, error)
	// Locate returns the row for (recordID, fileID) or common.ErrorNotFound.
	Locate(ctx context.Context, recordID, fileID int64) (*models.FileRecord, error)
	// Insert creates a row and sets f.ID. content is stored only for inline records.
	Insert(ctx context.Context, f *models.FileRecord, content []byte) error
	// Update replaces name, size, mode, payload and pointer of an existing row.
	Update(ctx context.Context, f *models.FileRecord, content []byte) error
	// UpdateSize records the final payload length.
	UpdateSize(ctx context.Context, fileID, size int64) error
	// Delete removes the row; a missing row is not an error.
	Delete(ctx context.Context, recordID, fileID int64) error
	// ReadInline reads the first size bytes of the inline payload.
	ReadInline(ctx context.Context, fileID, size int64) ([]byte, error)
}

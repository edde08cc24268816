// Package records reads the parent data records files are attached to.
package records

import (
	"context"

	"github.com/dmitrijs2005/blobvault/internal/models"
)

type Repository interface {
	// Exists reports whether a data record with the given id exists.
	Exists(ctx context.Context, recordID int64) (bool, error)
	// Get returns the record or common.ErrorNotFound.
	Get(ctx context.Context, recordID int64) (*models.DataRecord, error)
	// Create inserts a record and sets r.ID.
	Create(ctx context.Context, r *models.DataRecord) error
}

// IsOwner reports whether userID owns the record. A missing record yields
// common.ErrorNotFound.
func IsOwner(ctx context.Context, repo Repository, recordID int64, userID string) (bool, error) {
	r, err := repo.Get(ctx, recordID)
	if err != nil {
		return false, err
	}
	return r.OwnerID == userID, nil
}

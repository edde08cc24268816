package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/blobvault/internal/common"
	"github.com/dmitrijs2005/blobvault/internal/dbx"
	"github.com/dmitrijs2005/blobvault/internal/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Exists(ctx context.Context, recordID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM data_records WHERE id=$1)`, recordID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check data record: %w", err)
	}
	return exists, nil
}

func (r *PostgresRepository) Get(ctx context.Context, recordID int64) (*models.DataRecord, error) {
	var item models.DataRecord
	err := r.db.QueryRowContext(ctx, `SELECT id, owner_id, title FROM data_records WHERE id=$1`, recordID).
		Scan(&item.ID, &item.OwnerID, &item.Title)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select data record: %w", err)
	}
	return &item, nil
}

func (r *PostgresRepository) Create(ctx context.Context, rec *models.DataRecord) error {
	err := r.db.QueryRowContext(ctx, `INSERT INTO data_records (owner_id, title) VALUES ($1, $2) RETURNING id`,
		rec.OwnerID, rec.Title).Scan(&rec.ID)
	if err != nil {
		return fmt.Errorf("failed to insert data record: %w", err)
	}
	return nil
}

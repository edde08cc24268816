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

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Exists(ctx context.Context, recordID int64) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `select count(1) from data_records where id=?`, recordID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check data record: %w", err)
	}
	return n > 0, nil
}

func (r *SQLiteRepository) Get(ctx context.Context, recordID int64) (*models.DataRecord, error) {
	var item models.DataRecord
	err := r.db.QueryRowContext(ctx, `select id, owner_id, title from data_records where id=?`, recordID).
		Scan(&item.ID, &item.OwnerID, &item.Title)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select data record: %w", err)
	}
	return &item, nil
}

func (r *SQLiteRepository) Create(ctx context.Context, rec *models.DataRecord) error {
	err := r.db.QueryRowContext(ctx, `insert into data_records (owner_id, title) values (?, ?) returning id`,
		rec.OwnerID, rec.Title).Scan(&rec.ID)
	if err != nil {
		return fmt.Errorf("failed to insert data record: %w", err)
	}
	return nil
}

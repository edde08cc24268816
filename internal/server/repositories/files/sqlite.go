package files

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/blobvault/internal/common"
	"github.com/dmitrijs2005/blobvault/internal/dbx"
	"github.com/dmitrijs2005/blobvault/internal/models"
)

// SQLiteRepository implements Repository for SQLite. External payloads are
// referenced by object-storage key or by large-object OID.
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) ListByRecord(ctx context.Context, recordID int64) ([]*models.FileRecord, error) {
	query := `select id, data_record_id, name, size, storage_mode, object_key, object_oid from files
		where data_record_id=? order by id`

	rows, err := r.db.QueryContext(ctx, query, recordID)
	if err != nil {
		return nil, fmt.Errorf("failed to select files: %w", err)
	}
	defer rows.Close()

	result := make([]*models.FileRecord, 0)
	for rows.Next() {
		item, err := scanSQLite(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) Locate(ctx context.Context, recordID, fileID int64) (*models.FileRecord, error) {
	query := `select id, data_record_id, name, size, storage_mode, object_key, object_oid from files
		where data_record_id=? and id=?`

	item, err := scanSQLite(r.db.QueryRowContext(ctx, query, recordID, fileID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to locate file: %w", err)
	}
	return item, nil
}

func (r *SQLiteRepository) Insert(ctx context.Context, f *models.FileRecord, content []byte) error {
	key, oid, err := pointerArgs(f)
	if err != nil {
		return err
	}

	query := `insert into files (data_record_id, name, size, storage_mode, content, object_key, object_oid)
		values (?, ?, ?, ?, ?, ?, ?)
		returning id`

	err = r.db.QueryRowContext(ctx, query,
		f.DataRecordID, f.Name, f.Size, int16(f.StorageMode), inlineContent(f, content), key, oid).Scan(&f.ID)
	if err != nil {
		return fmt.Errorf("failed to insert file: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Update(ctx context.Context, f *models.FileRecord, content []byte) error {
	key, oid, err := pointerArgs(f)
	if err != nil {
		return err
	}

	query := `update files set name=?, size=?, storage_mode=?, content=?, object_key=?, object_oid=?,
		updated_at=CURRENT_TIMESTAMP
		where id=? and data_record_id=?`

	res, err := r.db.ExecContext(ctx, query,
		f.Name, f.Size, int16(f.StorageMode), inlineContent(f, content), key, oid, f.ID, f.DataRecordID)
	if err != nil {
		return fmt.Errorf("failed to update file: %w", err)
	}
	return exactlyOne(res)
}

func (r *SQLiteRepository) UpdateSize(ctx context.Context, fileID, size int64) error {
	query := `update files set size=?, updated_at=CURRENT_TIMESTAMP where id=?`

	res, err := r.db.ExecContext(ctx, query, size, fileID)
	if err != nil {
		return fmt.Errorf("failed to update size: %w", err)
	}
	return exactlyOne(res)
}

func (r *SQLiteRepository) Delete(ctx context.Context, recordID, fileID int64) error {
	query := `delete from files where data_record_id=? and id=?`

	if _, err := r.db.ExecContext(ctx, query, recordID, fileID); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ReadInline(ctx context.Context, fileID, size int64) ([]byte, error) {
	query := `select substr(content, 1, ?) from files where id=?`

	var content []byte
	err := r.db.QueryRowContext(ctx, query, size, fileID).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read inline content: %w", err)
	}
	return sized(content, size), nil
}

func scanSQLite(row interface{ Scan(dest ...any) error }) (*models.FileRecord, error) {
	var (
		item models.FileRecord
		key  sql.NullString
		oid  sql.NullInt64
	)
	if err := row.Scan(&item.ID, &item.DataRecordID, &item.Name, &item.Size, &item.StorageMode, &key, &oid); err != nil {
		return nil, err
	}
	if key.Valid {
		item.ExternalPointer.Path = key.String
	}
	if oid.Valid {
		item.ExternalPointer.OID = oid.Int64
	}
	return &item, nil
}

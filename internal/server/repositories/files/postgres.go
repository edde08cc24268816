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

// PostgresRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx)
// for PostgreSQL, where external payloads are referenced by large-object OID.
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) ListByRecord(ctx context.Context, recordID int64) ([]*models.FileRecord, error) {
	query := `SELECT id, data_record_id, name, size, storage_mode, object_oid FROM files
		WHERE data_record_id=$1 ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, recordID)
	if err != nil {
		return nil, fmt.Errorf("failed to select files: %w", err)
	}
	defer rows.Close()

	result := make([]*models.FileRecord, 0)
	for rows.Next() {
		item, err := scanPostgres(rows)
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

func (r *PostgresRepository) Locate(ctx context.Context, recordID, fileID int64) (*models.FileRecord, error) {
	query := `SELECT id, data_record_id, name, size, storage_mode, object_oid FROM files
		WHERE data_record_id=$1 AND id=$2`

	item, err := scanPostgres(r.db.QueryRowContext(ctx, query, recordID, fileID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to locate file: %w", err)
	}
	return item, nil
}

func (r *PostgresRepository) Insert(ctx context.Context, f *models.FileRecord, content []byte) error {
	oid, err := oidArg(f)
	if err != nil {
		return err
	}

	query := `INSERT INTO files (data_record_id, name, size, storage_mode, content, object_oid)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	err = r.db.QueryRowContext(ctx, query,
		f.DataRecordID, f.Name, f.Size, int16(f.StorageMode), inlineContent(f, content), oid).Scan(&f.ID)
	if err != nil {
		return fmt.Errorf("failed to insert file: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Update(ctx context.Context, f *models.FileRecord, content []byte) error {
	oid, err := oidArg(f)
	if err != nil {
		return err
	}

	query := `UPDATE files SET name=$1, size=$2, storage_mode=$3, content=$4, object_oid=$5, updated_at=now()
		WHERE id=$6 AND data_record_id=$7`

	res, err := r.db.ExecContext(ctx, query,
		f.Name, f.Size, int16(f.StorageMode), inlineContent(f, content), oid, f.ID, f.DataRecordID)
	if err != nil {
		return fmt.Errorf("failed to update file: %w", err)
	}
	return exactlyOne(res)
}

func (r *PostgresRepository) UpdateSize(ctx context.Context, fileID, size int64) error {
	query := `UPDATE files SET size=$1, updated_at=now() WHERE id=$2`

	res, err := r.db.ExecContext(ctx, query, size, fileID)
	if err != nil {
		return fmt.Errorf("failed to update size: %w", err)
	}
	return exactlyOne(res)
}

func (r *PostgresRepository) Delete(ctx context.Context, recordID, fileID int64) error {
	query := `DELETE FROM files WHERE data_record_id=$1 AND id=$2`

	if _, err := r.db.ExecContext(ctx, query, recordID, fileID); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ReadInline(ctx context.Context, fileID, size int64) ([]byte, error) {
	query := `SELECT substring(content FROM 1 FOR $2) FROM files WHERE id=$1`

	var content []byte
	err := r.db.QueryRowContext(ctx, query, fileID, size).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read inline content: %w", err)
	}
	return sized(content, size), nil
}

func scanPostgres(row interface{ Scan(dest ...any) error }) (*models.FileRecord, error) {
	var (
		item models.FileRecord
		oid  sql.NullInt64
	)
	if err := row.Scan(&item.ID, &item.DataRecordID, &item.Name, &item.Size, &item.StorageMode, &oid); err != nil {
		return nil, err
	}
	if oid.Valid {
		item.ExternalPointer.OID = oid.Int64
	}
	return &item, nil
}

// oidArg returns the object_oid column value. There is no column for
// object-storage keys.
func oidArg(f *models.FileRecord) (any, error) {
	key, oid, err := pointerArgs(f)
	if err != nil {
		return nil, err
	}
	if key != nil {
		return nil, fmt.Errorf("file %d: %w: object key %q", f.ID, ErrUnsupportedPointer, f.ExternalPointer.Path)
	}
	return oid, nil
}

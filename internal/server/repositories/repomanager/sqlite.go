package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/blobvault/internal/dbx"
	"github.com/dmitrijs2005/blobvault/internal/server/migrations"
	"github.com/dmitrijs2005/blobvault/internal/server/repositories/files"
	"github.com/dmitrijs2005/blobvault/internal/server/repositories/largeobjects"
	"github.com/dmitrijs2005/blobvault/internal/server/repositories/records"
	_ "modernc.org/sqlite"
)

// SQLiteRepositoryManager keeps metadata and inline payloads in SQLite and
// large objects in an S3 bucket.
type SQLiteRepositoryManager struct {
	objects *largeobjects.S3Driver
}

func NewSQLiteRepositoryManager(api largeobjects.ObjectAPI, bucket string) *SQLiteRepositoryManager {
	return &SQLiteRepositoryManager{objects: largeobjects.NewS3Driver(api, bucket)}
}

func (m *SQLiteRepositoryManager) Backend() string { return migrations.BackendSQLite }

func (m *SQLiteRepositoryManager) Files(db dbx.DBTX) files.Repository {
	return files.NewSQLiteRepository(db)
}

func (m *SQLiteRepositoryManager) Records(db dbx.DBTX) records.Repository {
	return records.NewSQLiteRepository(db)
}

// Objects ignores db: the bucket is outside any database transaction.
func (m *SQLiteRepositoryManager) Objects(dbx.DBTX) largeobjects.Driver {
	return m.objects
}

// RunMigrations applies the SQLite migrations and creates the bucket.
func (m *SQLiteRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	if err := migrateUp(ctx, db, migrations.BackendSQLite); err != nil {
		return err
	}
	return m.objects.EnsureBucket(ctx)
}

package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/blobvault/internal/dbx"
	"github.com/dmitrijs2005/blobvault/internal/server/migrations"
	"github.com/dmitrijs2005/blobvault/internal/server/repositories/files"
	"github.com/dmitrijs2005/blobvault/internal/server/repositories/largeobjects"
	"github.com/dmitrijs2005/blobvault/internal/server/repositories/records"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresRepositoryManager keeps metadata, inline payloads and large
// objects in one PostgreSQL database.
type PostgresRepositoryManager struct{}

func NewPostgresRepositoryManager() *PostgresRepositoryManager {
	return &PostgresRepositoryManager{}
}

func (m *PostgresRepositoryManager) Backend() string { return migrations.BackendPostgres }

// Files returns a files.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Files(db dbx.DBTX) files.Repository {
	return files.NewPostgresRepository(db)
}

// Records returns a records.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Records(db dbx.DBTX) records.Repository {
	return records.NewPostgresRepository(db)
}

// Objects returns a large-object driver bound to the provided DBTX. It must
// be a transaction for anything but Exists and Unlink.
func (m *PostgresRepositoryManager) Objects(db dbx.DBTX) largeobjects.Driver {
	return largeobjects.NewPostgresDriver(db)
}

// RunMigrations applies the embedded PostgreSQL migrations.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	return migrateUp(ctx, db, migrations.BackendPostgres)
}

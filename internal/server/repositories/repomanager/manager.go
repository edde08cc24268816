// Package repomanager vends the repositories and the large-object driver of
// one storage backend, bound to a dbx.DBTX.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/blobvault/internal/dbx"
	"github.com/dmitrijs2005/blobvault/internal/server/migrations"
	"github.com/dmitrijs2005/blobvault/internal/server/repositories/files"
	"github.com/dmitrijs2005/blobvault/internal/server/repositories/largeobjects"
	"github.com/dmitrijs2005/blobvault/internal/server/repositories/records"
)

type RepositoryManager interface {
	// Backend is the backend name, as accepted by migrations.Up.
	Backend() string
	// RunMigrations prepares the schema and any external storage.
	RunMigrations(context.Context, *sql.DB) error
	Files(db dbx.DBTX) files.Repository
	Records(db dbx.DBTX) records.Repository
	Objects(db dbx.DBTX) largeobjects.Driver
}

// migrateUp is a seam for testing migrations.Up.
var migrateUp = migrations.Up

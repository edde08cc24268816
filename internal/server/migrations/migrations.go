// Package migrations embeds the goose SQL migrations for every supported
// database backend and applies them.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
)

// Backend names accepted by Up; they match the server "backend" setting.
const (
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

//go:embed postgres/*.sql
var postgresFS embed.FS

//go:embed sqlite/*.sql
var sqliteFS embed.FS

// Source returns the goose dialect and migration files for a backend.
func Source(backend string) (goose.Dialect, fs.FS, error) {
	switch backend {
	case BackendPostgres:
		sub, err := fs.Sub(postgresFS, "postgres")
		return goose.DialectPostgres, sub, err
	case BackendSQLite:
		sub, err := fs.Sub(sqliteFS, "sqlite")
		return goose.DialectSQLite3, sub, err
	default:
		return "", nil, fmt.Errorf("unknown backend %q", backend)
	}
}

// Up applies every pending migration for backend to db.
func Up(ctx context.Context, db *sql.DB, backend string) error {
	dialect, fsys, err := Source(backend)
	if err != nil {
		return err
	}
	provider, err := goose.NewProvider(dialect, db, fsys)
	if err != nil {
		return fmt.Errorf("goose provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

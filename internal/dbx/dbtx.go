// Package dbx provides tiny DB abstractions shared by repositories:
// a minimal interface (DBTX) implemented by both *sql.DB and *sql.Tx,
// a helper to run functions inside a transaction and a scoped transaction
// handle for resources that must outlive a single function call.
package dbx

import (
	"context"
	"database/sql"
	"errors"
	"sync"
)

// DBTX is the subset of database/sql used by our repos.
// Both *sql.DB and *sql.Tx satisfy this interface.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// WithTx begins a transaction, runs fn with a transactional handle, and then
// commits on success or rolls back on error/panic. Panics are rethrown.
//
// Typical use:
//
//	err := dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
//	    _, err := tx.ExecContext(ctx, "UPDATE ...")
//	    return err
//	})
func WithTx(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn func(ctx context.Context, tx DBTX) error) (err error) {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()

	err = fn(ctx, tx)
	return err
}

// Scope is a transaction whose lifetime is controlled by its holder rather
// than by a single callback. It is used when a stream opened inside the
// transaction is handed to a caller and stays valid until the caller closes it.
//
// Release is idempotent: the first call commits (when err is nil) or rolls
// back, later calls return the result of the first one.
type Scope struct {
	tx   *sql.Tx
	once sync.Once
	err  error
}

// Begin starts a scoped transaction.
func Begin(ctx context.Context, db *sql.DB, opts *sql.TxOptions) (*Scope, error) {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &Scope{tx: tx}, nil
}

// Tx exposes the transaction for repositories bound to this scope.
func (s *Scope) Tx() DBTX {
	return s.tx
}

// Release commits the transaction if cause is nil, otherwise rolls it back.
func (s *Scope) Release(cause error) error {
	s.once.Do(func() {
		if cause != nil {
			s.err = s.tx.Rollback()
			if errors.Is(s.err, sql.ErrTxDone) {
				s.err = nil
			}
			return
		}
		s.err = s.tx.Commit()
	})
	return s.err
}

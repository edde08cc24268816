package largeobjects

import (
	"context"
	"fmt"
	"io"

	"github.com/dmitrijs2005/blobvault/internal/dbx"
	"github.com/dmitrijs2005/blobvault/internal/models"
)

// Access modes of lo_open, from libpq-fs.h.
const (
	invWrite = 0x00020000
	invRead  = 0x00040000
)

// PostgresDriver stores payloads as PostgreSQL large objects addressed by OID.
// Every call goes through the bound DBTX; descriptors only live until the end
// of the transaction, so it must be bound to a *sql.Tx for reads and writes.
type PostgresDriver struct {
	db dbx.DBTX
}

func NewPostgresDriver(db dbx.DBTX) *PostgresDriver {
	return &PostgresDriver{db: db}
}

func (d *PostgresDriver) Capabilities() Capabilities {
	return Capabilities{Addressing: ByHandle, Transactional: true, ReadNeedsTx: true}
}

func (d *PostgresDriver) Allocate(ctx context.Context, _ *models.FileRecord) (models.ExternalPointer, error) {
	var oid int64
	if err := d.db.QueryRowContext(ctx, `SELECT lo_create(0)`).Scan(&oid); err != nil {
		return models.ExternalPointer{}, fmt.Errorf("lo_create: %w", err)
	}
	return models.ExternalPointer{OID: oid}, nil
}

func (d *PostgresDriver) open(ctx context.Context, ptr models.ExternalPointer, mode int32) (int32, error) {
	if ptr.OID == 0 {
		return 0, ErrInvalidPointer
	}
	var fd int32
	if err := d.db.QueryRowContext(ctx, `SELECT lo_open($1, $2)`, ptr.OID, mode).Scan(&fd); err != nil {
		return 0, fmt.Errorf("lo_open %d: %w", ptr.OID, err)
	}
	return fd, nil
}

func (d *PostgresDriver) OpenRead(ctx context.Context, ptr models.ExternalPointer) (io.ReadCloser, error) {
	fd, err := d.open(ctx, ptr, invRead)
	if err != nil {
		return nil, err
	}
	return &pgObject{ctx: ctx, db: d.db, fd: fd}, nil
}

func (d *PostgresDriver) OpenWrite(ctx context.Context, ptr models.ExternalPointer) (Writer, error) {
	fd, err := d.open(ctx, ptr, invRead|invWrite)
	if err != nil {
		return nil, err
	}
	if _, err := d.db.ExecContext(ctx, `SELECT lo_truncate64($1, 0)`, fd); err != nil {
		_, _ = d.db.ExecContext(ctx, `SELECT lo_close($1)`, fd)
		return nil, fmt.Errorf("lo_truncate64: %w", err)
	}
	return &pgObject{ctx: ctx, db: d.db, fd: fd}, nil
}

func (d *PostgresDriver) Unlink(ctx context.Context, ptr models.ExternalPointer) error {
	if ptr.OID == 0 {
		return ErrInvalidPointer
	}
	if _, err := d.db.ExecContext(ctx, `SELECT lo_unlink($1)`, ptr.OID); err != nil {
		return fmt.Errorf("lo_unlink %d: %w", ptr.OID, err)
	}
	return nil
}

func (d *PostgresDriver) Exists(ctx context.Context, ptr models.ExternalPointer) (bool, error) {
	var exists bool
	err := d.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM pg_largeobject_metadata WHERE oid=$1)`, ptr.OID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("large object probe: %w", err)
	}
	return exists, nil
}

// pgObject is an open large-object descriptor.
type pgObject struct {
	ctx    context.Context
	db     dbx.DBTX
	fd     int32
	size   int64
	closed bool
}

func (o *pgObject) Read(p []byte) (int, error) {
	if o.closed {
		return 0, ErrClosed
	}
	if len(p) == 0 {
		return 0, nil
	}
	var chunk []byte
	if err := o.db.QueryRowContext(o.ctx, `SELECT loread($1, $2)`, o.fd, len(p)).Scan(&chunk); err != nil {
		return 0, fmt.Errorf("loread: %w", err)
	}
	if len(chunk) == 0 {
		return 0, io.EOF
	}
	n := copy(p, chunk)
	o.size += int64(n)
	return n, nil
}

func (o *pgObject) Write(p []byte) (int, error) {
	if o.closed {
		return 0, ErrClosed
	}
	if len(p) == 0 {
		return 0, nil
	}
	var n int
	if err := o.db.QueryRowContext(o.ctx, `SELECT lowrite($1, $2)`, o.fd, p).Scan(&n); err != nil {
		return 0, fmt.Errorf("lowrite: %w", err)
	}
	o.size += int64(n)
	if n != len(p) {
		return n, io.ErrShortWrite
	}
	return n, nil
}

func (o *pgObject) Size() int64 { return o.size }

func (o *pgObject) Close() error {
	if o.closed {
		return nil
	}
	o.closed = true
	if _, err := o.db.ExecContext(o.ctx, `SELECT lo_close($1)`, o.fd); err != nil {
		return fmt.Errorf("lo_close: %w", err)
	}
	return nil
}

// Abort closes the descriptor; the written data is discarded when the
// surrounding transaction rolls back.
func (o *pgObject) Abort() error {
	return o.Close()
}

// Package services contains server-side business logic. This file implements
// BlobService, the backend-agnostic blob repository: it decides between
// inline and external storage, streams payloads through the copy policy and
// keeps file metadata consistent with the stored bytes.
package services

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"

	"github.com/dmitrijs2005/blobvault/internal/common"
	"github.com/dmitrijs2005/blobvault/internal/dbx"
	"github.com/dmitrijs2005/blobvault/internal/logging"
	"github.com/dmitrijs2005/blobvault/internal/models"
	"github.com/dmitrijs2005/blobvault/internal/server/config"
	"github.com/dmitrijs2005/blobvault/internal/server/repositories/largeobjects"
	"github.com/dmitrijs2005/blobvault/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/blobvault/internal/streamx"
)

// Operation names reported to the Observer.
const (
	OpList     = "list"
	OpDelete   = "delete"
	OpDownload = "download"
	OpUpload   = "upload"
)

// Observer receives operation outcomes and payload volumes.
type Observer interface {
	ObserveOperation(op string, status int)
	ObserveBytes(direction string, mode models.StorageMode, n int64)
}

type nopObserver struct{}

func (nopObserver) ObserveOperation(string, int)                   {}
func (nopObserver) ObserveBytes(string, models.StorageMode, int64) {}

// UploadRequest identifies the target of an upload. FileID 0 creates a new
// file; BigFile selects external storage.
type UploadRequest struct {
	FileID       int64
	DataRecordID int64
	Name         string
	BigFile      bool
}

// Download is an open payload stream together with its metadata. The caller
// must close Content.
type Download struct {
	File    *models.FileRecord
	Content io.ReadCloser
}

type BlobService struct {
	db            *sql.DB
	repomanager   repomanager.RepositoryManager
	policies      streamx.Policies
	bufferSize    int
	maxInlineSize int64
	logger        logging.Logger
	observer      Observer
}

type Option func(*BlobService)

// WithObserver reports operation metrics to o.
func WithObserver(o Observer) Option {
	return func(s *BlobService) { s.observer = o }
}

// WithLogger replaces the no-op logger.
func WithLogger(l logging.Logger) Option {
	return func(s *BlobService) { s.logger = l.With("module", "blobs") }
}

// NewBlobService constructs a BlobService using repositories and server config.
func NewBlobService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, opts ...Option) *BlobService {
	s := &BlobService{
		db:            db,
		repomanager:   m,
		policies:      streamx.NewPolicies(cfg.BufferSize, cfg.UseBufferingForBigFiles, cfg.UseBufferingForSmallFiles),
		bufferSize:    streamx.BufferBytes(cfg.BufferSize),
		maxInlineSize: cfg.MaxInlineSize,
		logger:        logging.Nop(),
		observer:      nopObserver{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns the metadata of every file of a data record. A missing data
// record is NotFound; a record without files yields an empty list.
func (s *BlobService) List(ctx context.Context, dataRecordID int64) (res common.Result[[]*models.FileRecord]) {
	defer func() { s.observer.ObserveOperation(OpList, res.StatusCode) }()

	exists, err := s.repomanager.Records(s.db).Exists(ctx, dataRecordID)
	if err != nil {
		return failure[[]*models.FileRecord](ctx, s.logger, OpList, err)
	}
	if !exists {
		return failure[[]*models.FileRecord](ctx, s.logger, OpList,
			fmt.Errorf("data record %d: %w", dataRecordID, common.ErrorNotFound))
	}

	items, err := s.repomanager.Files(s.db).ListByRecord(ctx, dataRecordID)
	if err != nil {
		return failure[[]*models.FileRecord](ctx, s.logger, OpList, err)
	}
	return common.OK(items)
}

// Delete removes a file and releases its large object. Deleting a file that
// does not exist succeeds.
func (s *BlobService) Delete(ctx context.Context, dataRecordID, fileID int64) (res common.Result[int64]) {
	defer func() { s.observer.ObserveOperation(OpDelete, res.StatusCode) }()

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		files := s.repomanager.Files(tx)

		rec, err := files.Locate(ctx, dataRecordID, fileID)
		if errors.Is(err, common.ErrorNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		// the object goes first: the row is the only reference to it
		if rec.HasObject() {
			if err := s.repomanager.Objects(tx).Unlink(ctx, rec.ExternalPointer); err != nil {
				return err
			}
		}
		return files.Delete(ctx, dataRecordID, fileID)
	})
	if err != nil {
		return failure[int64](ctx, s.logger, OpDelete, err)
	}
	return common.OK(fileID)
}

// Download opens the payload of a file. Files that are missing or have no
// content are NotFound.
func (s *BlobService) Download(ctx context.Context, dataRecordID, fileID int64) (res common.Result[*Download]) {
	defer func() { s.observer.ObserveOperation(OpDownload, res.StatusCode) }()

	files := s.repomanager.Files(s.db)

	rec, err := files.Locate(ctx, dataRecordID, fileID)
	if err != nil {
		return failure[*Download](ctx, s.logger, OpDownload, err)
	}
	if rec.Size <= 0 {
		return failure[*Download](ctx, s.logger, OpDownload,
			fmt.Errorf("file %d has no content: %w", fileID, common.ErrorNotFound))
	}

	var content io.ReadCloser
	switch {
	case rec.StorageMode == models.StorageInline:
		data, err := files.ReadInline(ctx, rec.ID, rec.Size)
		if err != nil {
			return failure[*Download](ctx, s.logger, OpDownload, err)
		}
		content = io.NopCloser(bytes.NewReader(data))
	case !rec.HasObject():
		content = io.NopCloser(bytes.NewReader(nil))
	default:
		content, err = s.openObject(ctx, rec.ExternalPointer)
		if err != nil {
			return failure[*Download](ctx, s.logger, OpDownload, err)
		}
	}

	content = &countingReadCloser{ReadCloser: content, done: func(n int64) {
		s.observer.ObserveBytes("out", rec.StorageMode, n)
	}}
	return common.OK(&Download{File: rec, Content: streamx.NewBufferedReadCloser(content, s.bufferSize)})
}

// openObject opens a read stream on a large object. When the driver needs a
// transaction the stream owns it and releases it on Close.
func (s *BlobService) openObject(ctx context.Context, ptr models.ExternalPointer) (io.ReadCloser, error) {
	if !s.repomanager.Objects(s.db).Capabilities().ReadNeedsTx {
		return s.repomanager.Objects(s.db).OpenRead(ctx, ptr)
	}

	scope, err := dbx.Begin(ctx, s.db, nil)
	if err != nil {
		return nil, err
	}
	rc, err := s.repomanager.Objects(scope.Tx()).OpenRead(ctx, ptr)
	if err != nil {
		_ = scope.Release(err)
		return nil, err
	}
	return &scopedReadCloser{ReadCloser: rc, scope: scope}, nil
}

// Upload stores src as the payload of a file, creating the file when
// req.FileID is 0. The stored size is the number of bytes read from src.
func (s *BlobService) Upload(ctx context.Context, req UploadRequest, src io.Reader) (res common.Result[*models.FileRecord]) {
	defer func() { s.observer.ObserveOperation(OpUpload, res.StatusCode) }()

	rec, err := s.prepareUpload(ctx, req)
	if err != nil {
		return failure[*models.FileRecord](ctx, s.logger, OpUpload, err)
	}

	policy := s.policies.For(req.BigFile)
	if req.BigFile {
		err = s.uploadExternal(ctx, rec, src, policy)
	} else {
		err = s.uploadInline(ctx, rec, src, policy)
	}
	if err != nil {
		return failure[*models.FileRecord](ctx, s.logger, OpUpload, err)
	}

	s.observer.ObserveBytes("in", rec.StorageMode, rec.Size)
	s.logger.Debug(ctx, "file stored", "file_id", rec.ID, "mode", rec.StorageMode.String(), "size", rec.Size)
	return common.OK(rec)
}

func (s *BlobService) prepareUpload(ctx context.Context, req UploadRequest) (*models.FileRecord, error) {
	exists, err := s.repomanager.Records(s.db).Exists(ctx, req.DataRecordID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("data record %d does not exist: %w", req.DataRecordID, common.ErrorBadRequest)
	}

	if req.FileID == 0 {
		return &models.FileRecord{DataRecordID: req.DataRecordID, Name: req.Name}, nil
	}

	rec, err := s.repomanager.Files(s.db).Locate(ctx, req.DataRecordID, req.FileID)
	if err != nil {
		return nil, err
	}
	rec.Name = req.Name
	return rec, nil
}

func (s *BlobService) uploadInline(ctx context.Context, rec *models.FileRecord, src io.Reader, policy streamx.CopyPolicy) error {
	buf := &boundedBuffer{limit: s.maxInlineSize}
	n, err := policy.Copy(ctx, buf, src)
	if err != nil {
		return err
	}

	previous := *rec
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if previous.HasObject() {
			if err := s.repomanager.Objects(tx).Unlink(ctx, previous.ExternalPointer); err != nil {
				return err
			}
		}

		rec.StorageMode = models.StorageInline
		rec.ExternalPointer = models.ExternalPointer{}
		rec.Size = n
		return s.save(ctx, tx, rec, buf.Bytes())
	})
}

// uploadExternal writes src to a large object. The row is saved with the
// object pointer before the write and its size is recorded after the writer
// is closed, all in one transaction. Drivers outside the transaction are
// cleaned up by hand when it fails.
func (s *BlobService) uploadExternal(ctx context.Context, rec *models.FileRecord, src io.Reader, policy streamx.CopyPolicy) error {
	caps := s.repomanager.Objects(s.db).Capabilities()

	var (
		fresh models.ExternalPointer
		w     largeobjects.Writer
	)

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		objects := s.repomanager.Objects(tx)

		ptr := rec.ExternalPointer
		if !rec.HasObject() {
			ptr = models.ExternalPointer{}
			if caps.Addressing == largeobjects.ByHandle {
				p, err := objects.Allocate(ctx, rec)
				if err != nil {
					return err
				}
				ptr, fresh = p, p
			}
		}

		rec.StorageMode = models.StorageExternal
		rec.ExternalPointer = ptr
		rec.Size = 0
		if err := s.save(ctx, tx, rec, nil); err != nil {
			return err
		}

		// path-addressed objects are named after the saved row
		if ptr.IsZero() {
			p, err := objects.Allocate(ctx, rec)
			if err != nil {
				return err
			}
			ptr, fresh = p, p
			rec.ExternalPointer = ptr
			if err := s.save(ctx, tx, rec, nil); err != nil {
				return err
			}
		}

		var err error
		w, err = objects.OpenWrite(ctx, ptr)
		if err != nil {
			return err
		}
		if _, err := policy.Copy(ctx, w, src); err != nil {
			return err
		}
		if err := w.Close(); err != nil {
			return err
		}

		rec.Size = w.Size()
		return s.repomanager.Files(tx).UpdateSize(ctx, rec.ID, rec.Size)
	})
	if err != nil && !caps.Transactional {
		s.discard(ctx, w, fresh)
	}
	return err
}

// discard releases what a failed upload left in a non-transactional backend.
func (s *BlobService) discard(ctx context.Context, w largeobjects.Writer, fresh models.ExternalPointer) {
	ctx = context.WithoutCancel(ctx)
	if w != nil {
		if err := w.Abort(); err != nil {
			s.logger.Warn(ctx, "abort write session", "error", err)
		}
	}
	if fresh.IsZero() {
		return
	}
	if err := s.repomanager.Objects(s.db).Unlink(ctx, fresh); err != nil {
		s.logger.Error(ctx, "unlink orphaned object", "path", fresh.Path, "oid", fresh.OID, "error", err)
	}
}

func (s *BlobService) save(ctx context.Context, tx dbx.DBTX, rec *models.FileRecord, content []byte) error {
	files := s.repomanager.Files(tx)
	if rec.ID == 0 {
		return files.Insert(ctx, rec, content)
	}
	return files.Update(ctx, rec, content)
}

// failure logs err and converts it into an envelope. Server-side faults are
// logged at error level, caller mistakes at debug.
func failure[T any](ctx context.Context, logger logging.Logger, op string, err error) common.Result[T] {
	res := common.Fail[T](err)
	if res.StatusCode >= 500 {
		logger.Error(ctx, op+" failed", "error", err)
	} else {
		logger.Debug(ctx, op+" rejected", "status", res.StatusCode, "error", err)
	}
	return res
}

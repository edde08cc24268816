package client

import (
	"context"
	"io"

	"github.com/dmitrijs2005/blobvault/internal/common"
	"github.com/dmitrijs2005/blobvault/internal/models"
)

// UploadRequest names the file to write. FileID 0 creates a new file.
type UploadRequest struct {
	FileID       int64
	DataRecordID int64
	Name         string
	BigFile      bool
}

// Download is a downloaded file. Content must be closed.
type Download struct {
	File    *models.FileRecord
	Content io.ReadCloser
}

type Client interface {
	Close() error
	List(ctx context.Context, dataRecordID int64) (common.Result[[]*models.FileRecord], error)
	Delete(ctx context.Context, dataRecordID, fileID int64) (common.Result[int64], error)
	Upload(ctx context.Context, req UploadRequest, src io.Reader) (common.Result[*models.FileRecord], error)
	Download(ctx context.Context, dataRecordID, fileID int64) (common.Result[*Download], error)
}

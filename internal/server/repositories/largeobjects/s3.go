package largeobjects

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/dmitrijs2005/blobvault/internal/models"
)

// MinPartSize is the smallest multipart chunk S3 accepts for any part but the last.
const MinPartSize = 5 << 20

// ObjectAPI is the subset of *s3.Client used by S3Driver.
type ObjectAPI interface {
	CreateMultipartUpload(ctx context.Context, in *s3.CreateMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error)
	UploadPart(ctx context.Context, in *s3.UploadPartInput, optFns ...func(*s3.Options)) (*s3.UploadPartOutput, error)
	CompleteMultipartUpload(ctx context.Context, in *s3.CompleteMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error)
	AbortMultipartUpload(ctx context.Context, in *s3.AbortMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, in *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
}

// S3Driver stores payloads as objects in a bucket. Object keys are derived
// from the owning row, and a write session is a multipart upload whose id is
// the session token. It does not take part in database transactions.
type S3Driver struct {
	api    ObjectAPI
	bucket string
	// partSize must be at least MinPartSize against real S3.
	partSize int
}

func NewS3Driver(api ObjectAPI, bucket string) *S3Driver {
	return &S3Driver{api: api, bucket: bucket, partSize: MinPartSize}
}

func (d *S3Driver) Capabilities() Capabilities {
	return Capabilities{Addressing: ByPath}
}

// ObjectKey is the key of the payload of file fileID in record recordID.
func ObjectKey(recordID, fileID int64) string {
	return fmt.Sprintf("files/%d/%d", recordID, fileID)
}

func (d *S3Driver) Allocate(_ context.Context, rec *models.FileRecord) (models.ExternalPointer, error) {
	if rec == nil || rec.ID == 0 {
		return models.ExternalPointer{}, ErrUnsavedRecord
	}
	return models.ExternalPointer{Path: ObjectKey(rec.DataRecordID, rec.ID)}, nil
}

func (d *S3Driver) OpenRead(ctx context.Context, ptr models.ExternalPointer) (io.ReadCloser, error) {
	if ptr.Path == "" {
		return nil, ErrInvalidPointer
	}
	out, err := d.api.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(d.bucket), Key: aws.String(ptr.Path)})
	if err != nil {
		return nil, fmt.Errorf("get object %s: %w", ptr.Path, err)
	}
	return out.Body, nil
}

func (d *S3Driver) OpenWrite(ctx context.Context, ptr models.ExternalPointer) (Writer, error) {
	if ptr.Path == "" {
		return nil, ErrInvalidPointer
	}
	out, err := d.api.CreateMultipartUpload(ctx, &s3.CreateMultipartUploadInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(ptr.Path),
	})
	if err != nil {
		return nil, fmt.Errorf("create multipart upload %s: %w", ptr.Path, err)
	}
	return &s3Writer{
		ctx:      ctx,
		driver:   d,
		key:      ptr.Path,
		uploadID: aws.ToString(out.UploadId),
		buf:      bytes.NewBuffer(make([]byte, 0, d.partSize)),
	}, nil
}

func (d *S3Driver) Unlink(ctx context.Context, ptr models.ExternalPointer) error {
	if ptr.Path == "" {
		return ErrInvalidPointer
	}
	_, err := d.api.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(d.bucket), Key: aws.String(ptr.Path)})
	if err != nil {
		return fmt.Errorf("delete object %s: %w", ptr.Path, err)
	}
	return nil
}

func (d *S3Driver) Exists(ctx context.Context, ptr models.ExternalPointer) (bool, error) {
	if ptr.Path == "" {
		return false, nil
	}
	_, err := d.api.HeadObject(ctx, &s3.HeadObjectInput{Bucket: aws.String(d.bucket), Key: aws.String(ptr.Path)})
	if err == nil {
		return true, nil
	}
	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &notFound) || errors.As(err, &noSuchKey) {
		return false, nil
	}
	return false, fmt.Errorf("head object %s: %w", ptr.Path, err)
}

// EnsureBucket creates the bucket when it is missing.
func (d *S3Driver) EnsureBucket(ctx context.Context) error {
	if _, err := d.api.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(d.bucket)}); err == nil {
		return nil
	}
	if _, err := d.api.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(d.bucket)}); err != nil {
		return fmt.Errorf("create bucket %s: %w", d.bucket, err)
	}
	return nil
}

type s3Writer struct {
	ctx      context.Context
	driver   *S3Driver
	key      string
	uploadID string
	buf      *bytes.Buffer
	parts    []types.CompletedPart
	size     int64
	done     bool
}

func (w *s3Writer) Write(p []byte) (int, error) {
	if w.done {
		return 0, ErrClosed
	}
	written := 0
	for len(p) > 0 {
		room := w.driver.partSize - w.buf.Len()
		n := min(room, len(p))
		w.buf.Write(p[:n])
		p = p[n:]
		written += n
		w.size += int64(n)
		if w.buf.Len() >= w.driver.partSize {
			if err := w.flushPart(); err != nil {
				return written, err
			}
		}
	}
	return written, nil
}

func (w *s3Writer) flushPart() error {
	num := int32(len(w.parts) + 1)
	out, err := w.driver.api.UploadPart(w.ctx, &s3.UploadPartInput{
		Bucket:     aws.String(w.driver.bucket),
		Key:        aws.String(w.key),
		UploadId:   aws.String(w.uploadID),
		PartNumber: aws.Int32(num),
		Body:       bytes.NewReader(w.buf.Bytes()),
	})
	if err != nil {
		return fmt.Errorf("upload part %d of %s: %w", num, w.key, err)
	}
	w.parts = append(w.parts, types.CompletedPart{ETag: out.ETag, PartNumber: aws.Int32(num)})
	w.buf.Reset()
	return nil
}

func (w *s3Writer) Size() int64 { return w.size }

// Close completes the upload. Payloads smaller than one part are stored with
// a single PutObject, since a multipart upload needs at least one part.
func (w *s3Writer) Close() error {
	if w.done {
		return nil
	}
	if len(w.parts) == 0 {
		if err := w.Abort(); err != nil {
			return err
		}
		_, err := w.driver.api.PutObject(w.ctx, &s3.PutObjectInput{
			Bucket: aws.String(w.driver.bucket),
			Key:    aws.String(w.key),
			Body:   bytes.NewReader(w.buf.Bytes()),
		})
		if err != nil {
			return fmt.Errorf("put object %s: %w", w.key, err)
		}
		return nil
	}
	if w.buf.Len() > 0 {
		if err := w.flushPart(); err != nil {
			_ = w.Abort()
			return err
		}
	}
	w.done = true
	_, err := w.driver.api.CompleteMultipartUpload(w.ctx, &s3.CompleteMultipartUploadInput{
		Bucket:          aws.String(w.driver.bucket),
		Key:             aws.String(w.key),
		UploadId:        aws.String(w.uploadID),
		MultipartUpload: &types.CompletedMultipartUpload{Parts: w.parts},
	})
	if err != nil {
		return fmt.Errorf("complete multipart upload %s: %w", w.key, err)
	}
	return nil
}

// Abort discards the upload session and every part sent so far.
func (w *s3Writer) Abort() error {
	if w.done {
		return nil
	}
	w.done = true
	_, err := w.driver.api.AbortMultipartUpload(context.WithoutCancel(w.ctx), &s3.AbortMultipartUploadInput{
		Bucket:   aws.String(w.driver.bucket),
		Key:      aws.String(w.key),
		UploadId: aws.String(w.uploadID),
	})
	if err != nil {
		return fmt.Errorf("abort multipart upload %s: %w", w.key, err)
	}
	return nil
}

// Package streamx implements the stream copy policy used to move file
// content between readers and writers: either an explicit loop over a fixed
// size buffer or a direct io.Copy, selected per file size class.
package streamx

import (
	"bufio"
	"context"
	"errors"
	"io"

	"github.com/dmitrijs2005/blobvault/internal/common"
)

// CopyPolicy selects how bytes are moved from a source to a destination.
type CopyPolicy struct {
	// Buffered selects the explicit buffer loop; otherwise io.Copy is used.
	Buffered bool
	// BufferSize is the chunk size in bytes for the buffer loop.
	BufferSize int
}

// Policies holds the policy for each file size class.
type Policies struct {
	Big   CopyPolicy
	Small CopyPolicy
}

// NewPolicies builds the big/small policies from configuration values.
// bufferSizeKiB <= 0 falls back to the 4 MiB default.
func NewPolicies(bufferSizeKiB int, bufferBig, bufferSmall bool) Policies {
	size := BufferBytes(bufferSizeKiB)
	return Policies{
		Big:   CopyPolicy{Buffered: bufferBig, BufferSize: size},
		Small: CopyPolicy{Buffered: bufferSmall, BufferSize: size},
	}
}

// For returns the policy for the given size class.
func (p Policies) For(bigFile bool) CopyPolicy {
	if bigFile {
		return p.Big
	}
	return p.Small
}

// BufferBytes converts a KiB setting to bytes, applying the default.
func BufferBytes(kib int) int {
	if kib <= 0 {
		kib = common.DefaultBufferSizeKiB
	}
	return kib * 1024
}

// Copy drains src into dst and returns the number of bytes written to dst.
// It stops with ctx.Err() as soon as cancellation is observed between chunks.
func (p CopyPolicy) Copy(ctx context.Context, dst io.Writer, src io.Reader) (int64, error) {
	if p.Buffered {
		return p.copyBuffered(ctx, dst, src)
	}
	return io.Copy(dst, &ctxReader{ctx: ctx, r: src})
}

func (p CopyPolicy) copyBuffered(ctx context.Context, dst io.Writer, src io.Reader) (int64, error) {
	size := p.BufferSize
	if size <= 0 {
		size = BufferBytes(0)
	}
	buf := make([]byte, size)

	var written int64
	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		nr, rerr := src.Read(buf)
		if nr > 0 {
			nw, werr := dst.Write(buf[:nr])
			written += int64(nw)
			if werr != nil {
				return written, werr
			}
			if nw != nr {
				return written, io.ErrShortWrite
			}
		}
		if rerr != nil {
			if errors.Is(rerr, io.EOF) {
				return written, nil
			}
			return written, rerr
		}
	}
}

// ctxReader fails reads once ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

// ReadCloser is a buffered reader that keeps the Close of the stream it wraps.
type ReadCloser struct {
	*bufio.Reader
	closer io.Closer
}

// NewBufferedReadCloser wraps rc in a bufio.Reader of the given size.
func NewBufferedReadCloser(rc io.ReadCloser, size int) *ReadCloser {
	if size <= 0 {
		size = BufferBytes(0)
	}
	return &ReadCloser{Reader: bufio.NewReaderSize(rc, size), closer: rc}
}

// Close closes the underlying stream.
func (r *ReadCloser) Close() error {
	return r.closer.Close()
}

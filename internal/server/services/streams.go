package services

import (
	"bytes"
	"io"

	"github.com/dmitrijs2005/blobvault/internal/common"
	"github.com/dmitrijs2005/blobvault/internal/dbx"
)

// boundedBuffer collects an inline payload and refuses to grow past limit.
// A limit <= 0 means no limit. The buffer is not embedded so that io.Copy
// cannot bypass Write through bytes.Buffer.ReadFrom.
type boundedBuffer struct {
	buf   bytes.Buffer
	limit int64
}

func (b *boundedBuffer) Write(p []byte) (int, error) {
	if b.limit > 0 && int64(b.buf.Len())+int64(len(p)) > b.limit {
		return 0, common.ErrInlineTooLarge
	}
	return b.buf.Write(p)
}

func (b *boundedBuffer) Bytes() []byte { return b.buf.Bytes() }

// scopedReadCloser is a read stream that owns the transaction it was
// opened in.
type scopedReadCloser struct {
	io.ReadCloser
	scope *dbx.Scope
}

func (r *scopedReadCloser) Close() error {
	err := r.ReadCloser.Close()
	if relErr := r.scope.Release(err); err == nil {
		err = relErr
	}
	return err
}

// countingReadCloser reports how many bytes were read once it is closed.
type countingReadCloser struct {
	io.ReadCloser
	n    int64
	done func(int64)
}

func (c *countingReadCloser) Read(p []byte) (int, error) {
	n, err := c.ReadCloser.Read(p)
	c.n += int64(n)
	return n, err
}

func (c *countingReadCloser) Close() error {
	err := c.ReadCloser.Close()
	if c.done != nil {
		c.done(c.n)
		c.done = nil
	}
	return err
}

// Package filex contains file system helpers: directory preparation and
// temporary spool files used to stage streamed content on local disk.
package filex

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// EnsureSubdDir creates dirName under the current working directory (or uses
// it as is when absolute) and returns its absolute path.
func EnsureSubdDir(dirName string) (string, error) {
	dir := dirName
	if !filepath.IsAbs(dir) {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getwd: %w", err)
		}
		dir = filepath.Join(cwd, dirName)
	}

	if err := os.MkdirAll(dir, 0o770); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}

	return dir, nil
}

// Spool is a temporary file that is removed from disk when closed.
// It is written once, rewound, and then read by a single consumer.
type Spool struct {
	f    *os.File
	size int64
}

// NewSpool creates an empty spool file inside dir.
func NewSpool(dir, prefix string) (*Spool, error) {
	dir, err := EnsureSubdDir(dir)
	if err != nil {
		return nil, err
	}
	name := filepath.Join(dir, prefix+"-"+uuid.NewString()+".spool")
	f, err := os.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, fmt.Errorf("create spool: %w", err)
	}
	return &Spool{f: f}, nil
}

// Write appends p to the spool.
func (s *Spool) Write(p []byte) (int, error) {
	n, err := s.f.Write(p)
	s.size += int64(n)
	return n, err
}

// Rewind positions the spool at its start so it can be read back.
func (s *Spool) Rewind() error {
	if _, err := s.f.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewind spool: %w", err)
	}
	return nil
}

// Read reads spooled content.
func (s *Spool) Read(p []byte) (int, error) {
	return s.f.Read(p)
}

// Size returns the number of bytes written so far.
func (s *Spool) Size() int64 {
	return s.size
}

// Name returns the path of the spool file.
func (s *Spool) Name() string {
	return s.f.Name()
}

// Close closes and removes the spool file.
func (s *Spool) Close() error {
	closeErr := s.f.Close()
	removeErr := os.Remove(s.f.Name())
	if errors.Is(removeErr, os.ErrNotExist) {
		removeErr = nil
	}
	return errors.Join(closeErr, removeErr)
}

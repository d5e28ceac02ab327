// Package storage holds uploaded source files for the lifetime of one
// request. Nothing here survives the request; the scratch directory is
// a staging area, not a persistence layer.
package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"mediaboost/internal/infra"
)

// Scratch writes incoming uploads to uniquely named files under one
// directory and removes them when the request finishes.
type Scratch struct {
	dir    string
	logger infra.Logger
}

// NewScratch creates the directory if needed.
func NewScratch(dir string, logger infra.Logger) (*Scratch, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create scratch dir %s: %w", dir, err)
	}
	return &Scratch{dir: dir, logger: logger}, nil
}

// Save streams the reader into a fresh scratch file and returns its
// path with the byte count written. The caller owns the file and must
// Remove it on every exit path.
func (s *Scratch) Save(r io.Reader, originalName string) (string, int64, error) {
	name := uuid.NewString() + filepath.Ext(originalName)
	path := filepath.Join(s.dir, name)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return "", 0, fmt.Errorf("storage: create scratch file: %w", err)
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return "", 0, fmt.Errorf("storage: write scratch file: %w", err)
	}
	return path, n, nil
}

// Remove deletes a scratch file, tolerating a path that is already gone.
func (s *Scratch) Remove(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.logger.Warn().Err(err).Str("path", path).Msg("storage: scratch cleanup failed")
	}
}

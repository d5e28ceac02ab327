package pollctl

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileStore persists the single in-flight job record as a JSON file,
// typically under the user state directory.
type FileStore struct {
	path string
}

// NewFileStore creates the parent directory if needed.
func NewFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("pollctl: create state dir: %w", err)
	}
	return &FileStore{path: path}, nil
}

// DefaultStatePath resolves the conventional record location.
func DefaultStatePath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("pollctl: resolve state dir: %w", err)
	}
	return filepath.Join(base, "enhancectl", "job.json"), nil
}

// Load returns nil without error when no record exists.
func (s *FileStore) Load() (*Record, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("pollctl: read job record: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("pollctl: decode job record: %w", err)
	}
	if rec.JobID == "" {
		return nil, nil
	}
	return &rec, nil
}

func (s *FileStore) Save(rec Record) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("pollctl: encode job record: %w", err)
	}
	if err := os.WriteFile(s.path, raw, 0o600); err != nil {
		return fmt.Errorf("pollctl: write job record: %w", err)
	}
	return nil
}

func (s *FileStore) Clear() error {
	err := os.Remove(s.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("pollctl: remove job record: %w", err)
	}
	return nil
}

package db

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

const DefaultFileName = "paymentbot.json"

// FileStore keeps the snapshot as one JSON file on a durable volume.
type FileStore struct {
	dir  string
	path string
}

func NewFileStore(dir, name string) (*FileStore, error) {
	if dir == "" {
		dir = "/data"
	}
	if name == "" {
		name = DefaultFileName
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}
	return &FileStore{dir: dir, path: filepath.Join(dir, name)}, nil
}

func (s *FileStore) Path() string {
	return s.path
}

// Load returns nil, nil when no snapshot has been written yet.
func (s *FileStore) Load(_ context.Context) ([]byte, error) {
	blob, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	return blob, nil
}

// Save writes to a temp file in the same directory, syncs it and renames it over the
// previous snapshot.
func (s *FileStore) Save(_ context.Context, blob []byte) error {
	tmp, err := os.CreateTemp(s.dir, ".snapshot-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp snapshot: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(blob); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync temp snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp snapshot: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}
	committed = true

	// persist the rename itself
	if d, err := os.Open(s.dir); err == nil {
		_ = d.Sync()
		d.Close()
	}
	return nil
}

func (s *FileStore) Close() error {
	return nil
}

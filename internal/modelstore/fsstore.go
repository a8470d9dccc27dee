package modelstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var _ BlobStore = (*FSStore)(nil)

// FSStore keeps model blobs as files under a single directory. Backup keys
// carry RFC3339 timestamps; their colons are normalized to dots so the file
// names stay portable.
type FSStore struct {
	dir string
}

func NewFSStore(dir string) (*FSStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create model dir %s: %w", dir, err)
	}
	return &FSStore{dir: dir}, nil
}

func (s *FSStore) path(key string) string {
	return filepath.Join(s.dir, strings.ReplaceAll(key, ":", ".")+".json")
}

func (s *FSStore) Read(ctx context.Context, key string) ([]byte, error) {
	return os.ReadFile(s.path(key))
}

func (s *FSStore) Write(ctx context.Context, key string, data []byte) error {
	return os.WriteFile(s.path(key), data, 0o644)
}

func (s *FSStore) Rename(ctx context.Context, oldKey, newKey string) error {
	return os.Rename(s.path(oldKey), s.path(newKey))
}

func (s *FSStore) Exists(ctx context.Context, key string) (bool, error) {
	_, err := os.Stat(s.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

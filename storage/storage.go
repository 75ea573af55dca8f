// Package storage keeps the photo files that logged items point to.
package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// PhotoStore writes photos into a single directory
type PhotoStore struct {
	Dir string
}

// NewPhotoStore creates dir if needed
func NewPhotoStore(dir string) (*PhotoStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create photo directory %s: %w", dir, err)
	}
	return &PhotoStore{Dir: dir}, nil
}

// Save writes content as <unix-millis>_<uuid>.<ext> and returns the path.
// An empty ext is stored as "jpg".
func (s *PhotoStore) Save(content []byte, ext string) (string, error) {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	if ext == "" {
		ext = "jpg"
	}
	name := fmt.Sprintf("%d_%s.%s", time.Now().UnixMilli(), uuid.NewString(), ext)
	path := filepath.Join(s.Dir, name)

	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", fmt.Errorf("cannot save photo: %w", err)
	}
	return path, nil
}

// Remove deletes a stored photo. A file that is already gone is not an error.
func (s *PhotoStore) Remove(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("cannot remove photo %s: %w", path, err)
	}
	return nil
}

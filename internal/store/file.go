package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/teemow/talendar/internal/cache"
)

// FileStore persists the cache as a single JSON document.
type FileStore struct {
	path string
}

// NewFileStore returns a FileStore writing to path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the cache file path.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the cache file. A missing file yields an empty cache; an
// unparseable file yields an empty cache and a warning.
func (s *FileStore) Load(_ context.Context) (LoadResult, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return LoadResult{Cache: cache.New()}, nil
		}
		return LoadResult{}, fmt.Errorf("failed to read cache file %s: %w", s.path, err)
	}

	doc, err := decodeDocument(data)
	if err != nil {
		return LoadResult{
			Cache:   cache.New(),
			Warning: fmt.Errorf("%w: %s: %v", ErrCorruptCache, s.path, err),
		}, nil
	}
	return LoadResult{Cache: cache.FromDocument(doc)}, nil
}

// Save overwrites the cache file with the full cache state.
func (s *FileStore) Save(_ context.Context, c *cache.Cache) error {
	data, err := json.MarshalIndent(c.Document(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode cache: %w", err)
	}
	if err := WriteFileAtomic(s.path, append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("failed to write cache file %s: %w", s.path, err)
	}
	return nil
}

func decodeDocument(data []byte) (cache.Document, error) {
	var doc cache.Document
	if len(bytes.TrimSpace(data)) == 0 {
		return doc, errors.New("empty document")
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return cache.Document{}, err
	}
	return doc, nil
}

// WriteFileAtomic writes data to a temporary file in the target directory and
// renames it over path, so a crash mid-write never leaves a truncated file.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

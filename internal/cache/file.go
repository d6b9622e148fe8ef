package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// FileStore persists entries as JSON files, one file per entry, laid out as
// <dir>/<kind>/<fingerprint>.json. Writes go through a temp file and rename
// so a crashed or failed write never leaves a torn entry behind: the prior
// file stays readable until the rename commits.
type FileStore struct {
	dir string
}

// NewFileStore creates a file-backed store rooted at dir, creating the
// partition directories up front.
func NewFileStore(dir string) (*FileStore, error) {
	for _, kind := range []Kind{KindDiscovery, KindAnalysis, KindAggregation} {
		if err := os.MkdirAll(filepath.Join(dir, string(kind)), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create cache dir: %w", err)
		}
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(fingerprint string, kind Kind) string {
	return filepath.Join(s.dir, string(kind), fingerprint+".json")
}

// Get reads the entry for fingerprint within kind.
func (s *FileStore) Get(_ context.Context, fingerprint string, kind Kind) (*Entry, error) {
	data, err := os.ReadFile(s.path(fingerprint, kind))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read cache entry: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		// A torn entry should be impossible given the rename protocol, but
		// an unreadable file is still reported as a miss-with-error so the
		// caller can recompute.
		return nil, fmt.Errorf("failed to decode cache entry: %w", err)
	}
	return &entry, nil
}

// Put writes the entry atomically via temp file + rename.
func (s *FileStore) Put(_ context.Context, fingerprint string, kind Kind, payload json.RawMessage) error {
	entry := newEntry(fingerprint, kind, payload)
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}

	dir := filepath.Join(s.dir, string(kind))
	tmp, err := os.CreateTemp(dir, fingerprint+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpName, s.path(fingerprint, kind)); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to commit cache entry: %w", err)
	}
	return nil
}

// Clear removes every entry in the kind partition.
func (s *FileStore) Clear(_ context.Context, kind Kind) error {
	dir := filepath.Join(s.dir, string(kind))
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to list cache dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
			return fmt.Errorf("failed to remove cache entry: %w", err)
		}
	}
	return nil
}

// Close is a no-op for the file store.
func (s *FileStore) Close() error {
	return nil
}

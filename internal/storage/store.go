package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Store persists whole JSON documents by filename under a single directory.
// Reads report absence without error; writes fail loudly so callers decide
// their own tolerance.
type Store struct {
	dir string
}

// NewStore creates the storage directory if needed, verifies it is
// writable, and returns a Store rooted there.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	probe := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(probe, []byte("test"), 0644); err != nil {
		return nil, fmt.Errorf("storage directory is not writable: %w", err)
	}
	_ = os.Remove(probe)

	return &Store{dir: dir}, nil
}

// Dir returns the storage root.
func (s *Store) Dir() string {
	return s.dir
}

// Read unmarshals the named document into v. It returns false with a nil
// error when the document does not exist.
func (s *Store) Read(name string, v any) (bool, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read %s: %w", name, err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return true, nil
}

// Write marshals v and writes it atomically to the named document via a
// temporary file and rename.
func (s *Store) Write(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", name, err)
	}

	path := filepath.Join(s.dir, name)
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temporary file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath) // Clean up temp file on failure
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}

	return nil
}

// Exists reports whether the named document is present on disk.
func (s *Store) Exists(name string) bool {
	_, err := os.Stat(filepath.Join(s.dir, name))
	return err == nil
}

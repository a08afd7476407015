package storage

import (
	"fmt"
	"os"
	"path/filepath"
)

// EnsureDir creates the directory that will hold the data file at path.
// New directories are owner-only.
func EnsureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create data directory %s: %w", dir, err)
	}
	return nil
}

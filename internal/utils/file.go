package utils

import (
	"fmt"
	"os"
	"path/filepath"
)

// WriteTempFile writes data to a new file in dir matching pattern, synced to
// disk, and returns its name. The caller owns the file.
func WriteTempFile(dir, pattern string, data []byte) (string, error) {
	tmp, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("close temp file: %w", err)
	}

	return tmpName, nil
}

// WriteFileAtomic replaces path with data. Readers see either the old
// content or the new one, never a partial write.
func WriteFileAtomic(path string, data []byte) error {
	tmpName, err := WriteTempFile(filepath.Dir(path), "."+filepath.Base(path)+"-*.tmp", data)
	if err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename temp file to %s: %w", path, err)
	}
	return nil
}

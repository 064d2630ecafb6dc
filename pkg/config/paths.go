package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// PathConfig holds all resolved file paths for trailkeeper storage.
type PathConfig struct {
	ConfigDir    string
	ConfigFile   string
	DataDir      string
	SnapshotFile string
}

// expandPath expands ~ and ~/ to the user's home directory in paths.
func expandPath(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}

	if path == "~" {
		return home, nil
	}

	return filepath.Join(home, path[2:]), nil
}

// ensureDir creates the directory if it doesn't exist and verifies it's writable.
func ensureDir(path string, perm os.FileMode) error {
	if err := os.MkdirAll(path, perm); err != nil {
		return fmt.Errorf("create directory %s: %w", path, err)
	}

	// Verify writability
	testFile := filepath.Join(path, ".write-test")
	if err := os.WriteFile(testFile, []byte{}, 0600); err != nil {
		return fmt.Errorf("directory %s not writable: %w", path, err)
	}
	if err := os.Remove(testFile); err != nil {
		return fmt.Errorf("clean up write test in %s: %w", path, err)
	}

	return nil
}

// DefaultConfigDir returns the default configuration directory.
// Uses XDG_CONFIG_HOME or falls back to ~/.config/trailkeeper.
func DefaultConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("get user config directory: %w", err)
	}

	return filepath.Join(configDir, "trailkeeper"), nil
}

// ResolvePathConfig validates and resolves all storage paths.
// It expands ~ in configDir, creates the config directory and the private
// data directory, and returns absolute paths for all files.
func ResolvePathConfig(configDir string) (*PathConfig, error) {
	expanded, err := expandPath(configDir)
	if err != nil {
		return nil, fmt.Errorf("expand config directory path: %w", err)
	}

	abs, err := filepath.Abs(expanded)
	if err != nil {
		return nil, fmt.Errorf("resolve config directory path: %w", err)
	}

	if err := ensureDir(abs, 0o755); err != nil {
		return nil, err
	}

	dataDir := filepath.Join(abs, "data")
	if err := ensureDir(dataDir, 0o700); err != nil {
		return nil, err
	}

	return &PathConfig{
		ConfigDir:    abs,
		ConfigFile:   filepath.Join(abs, DefaultConfigFileName),
		DataDir:      dataDir,
		SnapshotFile: filepath.Join(dataDir, "trail.json"),
	}, nil
}

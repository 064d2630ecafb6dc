package identity

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/trailkeeper/trailkeeper/internal/logger"
	"github.com/trailkeeper/trailkeeper/internal/utils"
)

// InstallationFileName is the name of the persisted installation record.
const InstallationFileName = "INSTALLATION"

// InstallationSource is the last resort of the chain: a random token
// generated once, persisted in the private files directory and read back on
// every later start. The file content is the identifier, verbatim.
type InstallationSource struct {
	dir      string
	log      *zerolog.Logger
	newToken func() string

	mu sync.Mutex
	id string
}

func NewInstallationSource(dir string, log *zerolog.Logger) *InstallationSource {
	if log == nil {
		nop := zerolog.Nop()
		log = &nop
	}
	return &InstallationSource{
		dir:      dir,
		log:      log,
		newToken: uuid.NewString,
	}
}

func (s *InstallationSource) Kind() SourceKind { return SourceInstallation }

// Path returns the location of the installation file.
func (s *InstallationSource) Path() string {
	return filepath.Join(s.dir, InstallationFileName)
}

// Try returns the persisted token, creating the file first if needed.
// I/O failures are wrapped in ErrIdentityUnavailable.
func (s *InstallationSource) Try(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.id != "" {
		return s.id, nil
	}

	path := s.Path()
	data, err := os.ReadFile(filepath.Clean(path))
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if err := s.create(path, false); err != nil {
			return "", fmt.Errorf("%w: %w", ErrIdentityUnavailable, err)
		}
	case err != nil:
		return "", fmt.Errorf("%w: read installation file: %w", ErrIdentityUnavailable, err)
	case len(data) == 0:
		s.log.Warn().Str("path", path).Msg("Installation file is empty, regenerating")
		if err := s.create(path, true); err != nil {
			return "", fmt.Errorf("%w: %w", ErrIdentityUnavailable, err)
		}
	default:
		s.id = string(data)
		return s.id, nil
	}

	// The file is the source of truth: another process may have won the race.
	data, err = os.ReadFile(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("%w: read installation file: %w", ErrIdentityUnavailable, err)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("%w: installation file %s is empty", ErrIdentityUnavailable, path)
	}

	s.id = string(data)
	return s.id, nil
}

// create writes a fresh token to path without exposing a partial file.
// Unless replace is set, an existing file is left alone.
func (s *InstallationSource) create(path string, replace bool) error {
	token := s.newToken()

	if replace {
		if err := utils.WriteFileAtomic(path, []byte(token)); err != nil {
			return fmt.Errorf("replace installation file: %w", err)
		}
		s.created(path)
		return nil
	}

	tmpName, err := utils.WriteTempFile(s.dir, ".installation-*.tmp", []byte(token))
	if err != nil {
		return fmt.Errorf("write installation file: %w", err)
	}
	defer os.Remove(tmpName)

	// A hard link fails if the name already exists, so the first writer wins.
	err = os.Link(tmpName, path)
	switch {
	case err == nil:
		s.created(path)
		return nil
	case errors.Is(err, fs.ErrExist):
		s.log.Debug().Str("path", path).Msg("Installation file created concurrently, keeping existing one")
		return nil
	}

	s.log.Debug().Err(err).Msg("Hard link unsupported, falling back to rename")
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename installation file: %w", err)
	}
	s.created(path)
	return nil
}

func (s *InstallationSource) created(path string) {
	s.log.Info().Str("path", path).Msg("Generated installation identifier")
	logger.LogAuditEvent(logger.AuditInstallationCreated, "", "", map[string]interface{}{
		"path": path,
	})
}

package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/trailkeeper/trailkeeper/internal/logger"
	"github.com/trailkeeper/trailkeeper/internal/utils"
)

// Snapshot is the on-disk form of a trail.
type Snapshot struct {
	Trail
	SavedAt time.Time `json:"saved_at"`
}

// SaveSnapshot writes trail to path atomically.
func SaveSnapshot(path string, trail Trail) error {
	data, err := json.MarshalIndent(Snapshot{Trail: trail, SavedAt: time.Now().UTC()}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := utils.WriteFileAtomic(path, data); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot reads a snapshot from disk.
// Returns nil, nil if the file does not exist.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read snapshot file: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

// SnapshotProcess periodically persists the trail for the reporting side.
type SnapshotProcess struct {
	name      string
	path      string
	tracker   *Tracker
	isRunning bool
	mu        sync.Mutex
}

func NewSnapshotProcess(name, path string, tracker *Tracker) *SnapshotProcess {
	return &SnapshotProcess{
		name:    name,
		path:    path,
		tracker: tracker,
	}
}

func (s *SnapshotProcess) Execute(ctx context.Context) error {
	s.start()
	defer s.stop()

	log := logger.FromContext(ctx).With().Str("process", s.name).Logger()

	if _, ok := s.tracker.DeviceID(); !ok {
		log.Warn().Msg("Skipping snapshot, identity not resolved")
		return nil
	}

	trail := s.tracker.Trail()
	if err := SaveSnapshot(s.path, trail); err != nil {
		return err
	}

	log.Debug().Int("entries", len(trail.Entries)).Str("path", s.path).Msg("Trail snapshot written")
	return nil
}

func (s *SnapshotProcess) start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.isRunning = true
}

func (s *SnapshotProcess) stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.isRunning = false
}

func (s *SnapshotProcess) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

// IsComplete is always false; snapshots run until shutdown.
func (s *SnapshotProcess) IsComplete() bool {
	return false
}

func (s *SnapshotProcess) Name() string {
	return s.name
}

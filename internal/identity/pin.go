package identity

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/trailkeeper/trailkeeper/internal/utils"
)

// PinFileName records the first hardware-derived identity next to the
// installation file. Later resolutions return it before asking the
// platform, so the id does not depend on which fields the current user can
// read or on later firmware changes.
const PinFileName = "IDENTITY"

type pinState int

const (
	pinMissing pinState = iota
	pinCorrupt
	pinValid
)

// loadPin returns the pinned identity and whether the record is missing,
// corrupt or valid. A file that exists but cannot be read is an error.
func loadPin(path string) (Identity, pinState, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if errors.Is(err, fs.ErrNotExist) {
		return Identity{}, pinMissing, nil
	}
	if err != nil {
		return Identity{}, pinMissing, fmt.Errorf("read identity pin: %w", err)
	}

	var id Identity
	if err := json.Unmarshal(data, &id); err != nil {
		return Identity{}, pinCorrupt, nil
	}
	if id.ID == "" || (id.Source != SourceHardwareSerial && id.Source != SourcePlatformSecureID) {
		return Identity{}, pinCorrupt, nil
	}
	return id, pinValid, nil
}

// writePin stores id at path. An existing record is kept unless replace is
// set, so concurrent first runs agree on one pin.
func writePin(path string, id Identity, replace bool) error {
	data, err := json.Marshal(id)
	if err != nil {
		return fmt.Errorf("marshal identity pin: %w", err)
	}
	if replace {
		return utils.WriteFileAtomic(path, data)
	}

	tmpName, err := utils.WriteTempFile(filepath.Dir(path), ".identity-*.tmp", data)
	if err != nil {
		return err
	}
	defer os.Remove(tmpName)

	// Readable by other users so an unprivileged run sees the same identity.
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod identity pin: %w", err)
	}

	err = os.Link(tmpName, path)
	switch {
	case err == nil, errors.Is(err, fs.ErrExist):
		return nil
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename identity pin: %w", err)
	}
	return nil
}

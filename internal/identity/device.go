package identity

import (
	"context"
	"errors"
)

var (
	// ErrNotSupported is returned by a Platform when it does not expose a field at all.
	ErrNotSupported = errors.New("identity field not supported by platform")
	// ErrSourceUnavailable means a source rejected its raw value or could not be queried.
	// The resolver moves on to the next source and never returns it.
	ErrSourceUnavailable = errors.New("identity source unavailable")
	// ErrIdentityUnavailable is returned by Resolve when every source, including
	// the installation file, failed.
	ErrIdentityUnavailable = errors.New("identity unavailable")
)

// SourceKind tags where an identifier came from.
type SourceKind string

const (
	SourceHardwareSerial   SourceKind = "hardware-serial"
	SourcePlatformSecureID SourceKind = "platform-secure-id"
	SourceInstallation     SourceKind = "installation"
)

// Platform gives the resolver access to the raw identity material of the
// device it runs on.
type Platform interface {
	// Serial returns the hardware serial number.
	// It returns ErrNotSupported when the platform has no such field.
	Serial(ctx context.Context) (string, error)

	// SecureID returns the platform-level per-device identifier.
	SecureID(ctx context.Context) (string, error)

	// FilesDir returns the application-private directory. The resolver
	// never creates it.
	FilesDir() string
}

// Identity is the canonical identifier of this installation.
type Identity struct {
	ID     string     `json:"id"`
	Source SourceKind `json:"source"`
}

func (i Identity) String() string {
	return i.ID
}

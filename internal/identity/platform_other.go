//go:build !linux

package identity

import (
	"context"
	"fmt"
	"strings"

	"github.com/shirou/gopsutil/v4/host"
)

// GenericPlatform has no portable hardware serial; the secure id is the
// host id gopsutil reads from the OS (IOPlatformUUID, MachineGuid, hostid).
type GenericPlatform struct {
	filesDir string
	hostID   func(ctx context.Context) (string, error)
}

// NewPlatform returns the platform for the running OS.
func NewPlatform(filesDir string) *GenericPlatform {
	return &GenericPlatform{
		filesDir: filesDir,
		hostID:   host.HostIDWithContext,
	}
}

func (p *GenericPlatform) Serial(_ context.Context) (string, error) {
	return "", ErrNotSupported
}

func (p *GenericPlatform) SecureID(ctx context.Context) (string, error) {
	id, err := p.hostID(ctx)
	if err != nil {
		return "", fmt.Errorf("host id: %w", err)
	}
	return strings.ToLower(strings.TrimSpace(id)), nil
}

func (p *GenericPlatform) SecureIDSentinel() string {
	return PlaceholderProductUUID
}

func (p *GenericPlatform) FilesDir() string {
	return p.filesDir
}

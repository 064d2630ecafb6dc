package identity

import (
	"context"
	"fmt"
	"strings"
)

// Source is one entry in the resolver's priority chain.
type Source interface {
	Kind() SourceKind
	// Try returns an accepted raw identifier, or an error wrapping
	// ErrSourceUnavailable when the value is missing or rejected.
	Try(ctx context.Context) (string, error)
}

const (
	// UnknownSerial is what platforms report when the serial is not known.
	UnknownSerial = "unknown"

	// AndroidEmulatorID is the secure id shared by every stock emulator image.
	AndroidEmulatorID = "9774d56d682e549c"
	// PlaceholderProductUUID is the DMI product UUID burned into boards whose
	// vendor never filled in the SMBIOS tables.
	PlaceholderProductUUID = "03000200-0400-0500-0006-000700080009"
)

// ignoredSerialPatterns are lowercase substrings of serials known to be
// shared by many devices.
var ignoredSerialPatterns = []string{
	"1234567",
	"abcdef",
	"dead00beef",
	"to be filled by o.e.m.",
	"default string",
	"system serial number",
	"not specified",
}

// SerialSource reads the hardware serial number.
type SerialSource struct {
	platform Platform
}

func NewSerialSource(platform Platform) *SerialSource {
	return &SerialSource{platform: platform}
}

func (s *SerialSource) Kind() SourceKind { return SourceHardwareSerial }

func (s *SerialSource) Try(ctx context.Context) (string, error) {
	serial, err := s.platform.Serial(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: serial: %w", ErrSourceUnavailable, err)
	}
	if !IsValidSerial(serial) {
		return "", fmt.Errorf("%w: serial %q rejected", ErrSourceUnavailable, serial)
	}
	return serial, nil
}

// IsValidSerial reports whether a hardware serial can identify a device.
func IsValidSerial(serial string) bool {
	if serial == "" || serial == UnknownSerial {
		return false
	}
	lower := strings.ToLower(serial)
	for _, pattern := range ignoredSerialPatterns {
		if strings.Contains(lower, pattern) {
			return false
		}
	}
	return true
}

// SecureIDSource reads the platform secure id and rejects the sentinel value.
// The sentinel also fixes the expected length of a well-formed id.
type SecureIDSource struct {
	platform Platform
	sentinel string
}

func NewSecureIDSource(platform Platform, sentinel string) *SecureIDSource {
	return &SecureIDSource{platform: platform, sentinel: sentinel}
}

func (s *SecureIDSource) Kind() SourceKind { return SourcePlatformSecureID }

func (s *SecureIDSource) Try(ctx context.Context) (string, error) {
	id, err := s.platform.SecureID(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: secure id: %w", ErrSourceUnavailable, err)
	}
	if !IsValidSecureID(id, s.sentinel) {
		return "", fmt.Errorf("%w: secure id %q rejected", ErrSourceUnavailable, id)
	}
	return id, nil
}

// IsValidSecureID reports whether id is usable given the platform sentinel.
func IsValidSecureID(id, sentinel string) bool {
	if id == "" || id == sentinel {
		return false
	}
	if isBlankID(id) {
		return false
	}
	return len(id) == len(sentinel)
}

// isBlankID is true for ids made only of zeros, dashes and spaces.
func isBlankID(id string) bool {
	stripped := strings.NewReplacer("0", " ", "-", " ").Replace(id)
	return strings.TrimSpace(stripped) == ""
}

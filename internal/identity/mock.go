package identity

import (
	"context"
	"sync/atomic"
)

// MockPlatform implements Platform for testing.
type MockPlatform struct {
	SerialValue   string
	SecureIDValue string
	Dir           string

	SerialErr   error
	SecureIDErr error

	SerialCalls   atomic.Int32
	SecureIDCalls atomic.Int32
}

// NewMockPlatform creates a MockPlatform whose serial and secure id are both
// rejected, so resolution falls through to the installation file in dir.
func NewMockPlatform(dir string) *MockPlatform {
	return &MockPlatform{
		SerialValue:   UnknownSerial,
		SecureIDValue: AndroidEmulatorID,
		Dir:           dir,
	}
}

func (m *MockPlatform) Serial(_ context.Context) (string, error) {
	m.SerialCalls.Add(1)
	if m.SerialErr != nil {
		return "", m.SerialErr
	}
	return m.SerialValue, nil
}

func (m *MockPlatform) SecureID(_ context.Context) (string, error) {
	m.SecureIDCalls.Add(1)
	if m.SecureIDErr != nil {
		return "", m.SecureIDErr
	}
	return m.SecureIDValue, nil
}

func (m *MockPlatform) FilesDir() string {
	return m.Dir
}

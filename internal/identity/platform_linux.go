//go:build linux

package identity

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const (
	productSerialPath = "/sys/class/dmi/id/product_serial"
	productUUIDPath   = "/sys/class/dmi/id/product_uuid"
	machineIDPath     = "/etc/machine-id"
	cpuInfoPath       = "/proc/cpuinfo"
)

// LinuxPlatform reads identity material from sysfs, procfs and /etc.
// HOST_SYS, HOST_PROC and HOST_ETC relocate those trees, as in gopsutil.
//
// The secure id is the DMI product UUID, then the systemd machine id. The
// kernel boot_id is never used: it changes on every boot.
type LinuxPlatform struct {
	filesDir          string
	productSerialPath string
	productUUIDPath   string
	machineIDPath     string
	cpuInfoPath       string
	readFile          func(name string) ([]byte, error)
}

// NewPlatform returns the platform for the running OS.
func NewPlatform(filesDir string) *LinuxPlatform {
	return &LinuxPlatform{
		filesDir:          filesDir,
		productSerialPath: hostPath("HOST_SYS", "/sys", productSerialPath),
		productUUIDPath:   hostPath("HOST_SYS", "/sys", productUUIDPath),
		machineIDPath:     hostPath("HOST_ETC", "/etc", machineIDPath),
		cpuInfoPath:       hostPath("HOST_PROC", "/proc", cpuInfoPath),
		readFile:          os.ReadFile,
	}
}

// hostPath rebases path from root onto the directory named by env, if set.
func hostPath(env, root, path string) string {
	base := os.Getenv(env)
	if base == "" {
		return path
	}
	return filepath.Join(base, strings.TrimPrefix(path, root))
}

// readTrimmed returns the trimmed content of name, ErrNotSupported when it
// does not exist or is blank, and any other error wrapped. Permission errors
// stay visible so a non-root run is not silently given another identity.
func (p *LinuxPlatform) readTrimmed(name string) (string, error) {
	data, err := p.readFile(name)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return "", ErrNotSupported
	case err != nil:
		return "", fmt.Errorf("read %s: %w", name, err)
	}
	value := strings.TrimSpace(string(data))
	if value == "" {
		return "", ErrNotSupported
	}
	return value, nil
}

// Serial returns the DMI product serial, or the SoC serial from /proc/cpuinfo
// on boards without DMI tables.
func (p *LinuxPlatform) Serial(_ context.Context) (string, error) {
	serial, err := p.readTrimmed(p.productSerialPath)
	if !errors.Is(err, ErrNotSupported) {
		return serial, err
	}
	return p.cpuSerial()
}

func (p *LinuxPlatform) cpuSerial() (string, error) {
	data, err := p.readFile(p.cpuInfoPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", ErrNotSupported
		}
		return "", fmt.Errorf("read cpuinfo: %w", err)
	}

	for _, line := range strings.Split(string(data), "\n") {
		if !strings.HasPrefix(line, "Serial") {
			continue
		}
		parts := strings.SplitN(line, ":", 2)
		if len(parts) == 2 {
			return strings.TrimSpace(parts[1]), nil
		}
	}

	return "", ErrNotSupported
}

// SecureID returns the DMI product UUID, falling back to the machine id in
// UUID form. ErrNotSupported means neither stable source exists.
func (p *LinuxPlatform) SecureID(_ context.Context) (string, error) {
	productUUID, err := p.readTrimmed(p.productUUIDPath)
	if err == nil {
		return strings.ToLower(productUUID), nil
	}
	if !errors.Is(err, ErrNotSupported) && !errors.Is(err, fs.ErrPermission) {
		return "", err
	}
	uuidErr := err

	machineID, err := p.readTrimmed(p.machineIDPath)
	if err != nil {
		if errors.Is(err, ErrNotSupported) && errors.Is(uuidErr, fs.ErrPermission) {
			return "", uuidErr
		}
		return "", err
	}
	return formatMachineID(machineID)
}

// formatMachineID turns a 32 hex digit machine id into 8-4-4-4-12 form.
// "uninitialized" and other non-hex content is ErrNotSupported.
func formatMachineID(id string) (string, error) {
	id = strings.ToLower(id)
	if len(id) != 32 || strings.Trim(id, "0123456789abcdef") != "" {
		return "", ErrNotSupported
	}
	return id[0:8] + "-" + id[8:12] + "-" + id[12:16] + "-" + id[16:20] + "-" + id[20:32], nil
}

// SecureIDSentinel is the placeholder product UUID; see PlaceholderProductUUID.
func (p *LinuxPlatform) SecureIDSentinel() string {
	return PlaceholderProductUUID
}

func (p *LinuxPlatform) FilesDir() string {
	return p.filesDir
}

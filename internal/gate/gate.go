package gate

import (
	"context"
	"fmt"
	"os"

	"github.com/mol-cyberwhip/veteranVR/internal/fileutil"
)

// DefaultMinFreeBytes is the free space required before an install starts
const DefaultMinFreeBytes int64 = 5 << 30

// Installer reports whether packages can be installed right now
type Installer interface {
	Ready(ctx context.Context) bool
}

// DeviceSpace reports free space on the target device
type DeviceSpace interface {
	FreeBytes(ctx context.Context) (int64, error)
}

// Status is the permission and free-space snapshot shown before installs
type Status struct {
	CanInstallPackages bool  `json:"can_install_packages"`
	HasAllFilesAccess  bool  `json:"has_all_files_access"`
	FreeBytes          int64 `json:"free_bytes"`
	MinRequiredBytes   int64 `json:"min_required_bytes"`
	DeviceFreeBytes    int64 `json:"device_free_bytes"`
}

// Ready is true only when every precondition holds
func (s Status) Ready() bool {
	return s.CanInstallPackages && s.HasAllFilesAccess && s.FreeBytes >= s.MinRequiredBytes
}

// Reasons lists the failing preconditions in display order
func (s Status) Reasons() []string {
	var reasons []string
	if !s.CanInstallPackages {
		reasons = append(reasons, "installer backend is not reachable")
	}
	if !s.HasAllFilesAccess {
		reasons = append(reasons, "downloads directory is not writable")
	}
	if s.FreeBytes < s.MinRequiredBytes {
		reasons = append(reasons, fmt.Sprintf("only %d bytes free, %d required", s.FreeBytes, s.MinRequiredBytes))
	}
	return reasons
}

// Checker evaluates the gate against the host downloads directory and the device
type Checker struct {
	downloadsDir string
	minFree      int64
	installer    Installer
	device       DeviceSpace
	freeBytes    func(path string) (int64, error)
}

// NewChecker creates a Checker. device may be nil when device space is unknown.
func NewChecker(downloadsDir string, minFree int64, installer Installer, device DeviceSpace) *Checker {
	if minFree < 0 {
		minFree = DefaultMinFreeBytes
	}
	return &Checker{
		downloadsDir: downloadsDir,
		minFree:      minFree,
		installer:    installer,
		device:       device,
		freeBytes:    fileutil.FreeBytes,
	}
}

// Status probes every precondition. Probe failures read as not ready.
func (c *Checker) Status(ctx context.Context) Status {
	s := Status{
		MinRequiredBytes: c.minFree,
		DeviceFreeBytes:  -1,
	}

	if c.installer != nil {
		s.CanInstallPackages = c.installer.Ready(ctx)
	}
	s.HasAllFilesAccess = writable(c.downloadsDir)
	if free, err := c.freeBytes(c.downloadsDir); err == nil {
		s.FreeBytes = free
	}
	if c.device != nil && s.CanInstallPackages {
		if free, err := c.device.FreeBytes(ctx); err == nil {
			s.DeviceFreeBytes = free
		}
	}
	return s
}

func writable(dir string) bool {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return false
	}
	f, err := os.CreateTemp(dir, ".gate-*")
	if err != nil {
		return false
	}
	name := f.Name()
	f.Close()
	return os.Remove(name) == nil
}

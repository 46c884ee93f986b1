package platform

import (
	"context"
	"fmt"
	"runtime"

	"github.com/shirou/gopsutil/v4/host"
)

// HostDetector implements Detector using actual host inspection.
type HostDetector struct{}

// NewDetector creates a detector for the running host.
func NewDetector() Detector {
	return &HostDetector{}
}

// Detect returns platform information for the running host. OS and
// architecture come from the runtime; Linux distribution details come
// from gopsutil.
//
// If distro detection fails on Linux the distro fields are left empty
// and detection still succeeds, so manifests that never consult distro
// values keep working on unusual hosts.
func (d *HostDetector) Detect(ctx context.Context) (*Info, error) {
	info := &Info{
		OS:      runtime.GOOS,
		ArchRaw: runtime.GOARCH,
	}

	arch, err := normalizeArch(runtime.GOARCH)
	if err != nil {
		return nil, fmt.Errorf("platform detection failed: %w", err)
	}
	info.Arch = arch

	if runtime.GOOS == "linux" {
		distro, family, version, err := host.PlatformInformationWithContext(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("platform detection cancelled: %w", ctx.Err())
			}
			// Graceful fallback: OS/arch alone satisfies most manifests.
			return info, nil
		}

		if distro = normalizeDistro(distro); distro != "" {
			info.Distro = distro
			info.Family = mapFamily(family)
			info.Version = normalizeDistro(version)
		}
	}

	return info, nil
}

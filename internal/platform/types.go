// Package platform provides host platform detection and the platform
// filter model used to scope manifest entries to an OS and architecture.
//
// Detection uses runtime.GOOS/GOARCH plus gopsutil for Linux distribution
// details, with graceful fallback when distro detection fails. Detected
// values feed property resolution and the Lua manifest environment.
package platform

import "context"

// Linux distribution family constants, normalized from gopsutil output.
const (
	FamilyDebian  = "debian"
	FamilyRHEL    = "rhel"
	FamilyFedora  = "fedora"
	FamilySUSE    = "suse"
	FamilyArch    = "arch"
	FamilyAlpine  = "alpine"
	FamilyGentoo  = "gentoo"
	FamilyUnknown = "unknown"
)

// Info contains detected host platform information.
type Info struct {
	OS      string // "linux", "darwin", "windows"
	Arch    string // normalized: "amd64", "arm64"
	ArchRaw string // original GOARCH value
	Distro  string // Linux distro ID (e.g. "ubuntu"), empty elsewhere
	Family  string // canonical distro family (e.g. "debian"), empty elsewhere
	Version string // distro version (e.g. "22.04"), empty elsewhere
}

// IsLinux returns true if the platform is Linux.
func (i *Info) IsLinux() bool {
	return i.OS == "linux"
}

// IsMacOS returns true if the platform is macOS.
func (i *Info) IsMacOS() bool {
	return i.OS == "darwin"
}

// IsWindows returns true if the platform is Windows.
func (i *Info) IsWindows() bool {
	return i.OS == "windows"
}

// IsAMD64 returns true if the architecture is amd64.
func (i *Info) IsAMD64() bool {
	return i.Arch == "amd64"
}

// IsARM64 returns true if the architecture is arm64.
func (i *Info) IsARM64() bool {
	return i.Arch == "arm64"
}

// IsAppleSilicon returns true if running on Apple Silicon (macOS + arm64).
func (i *Info) IsAppleSilicon() bool {
	return i.OS == "darwin" && i.Arch == "arm64"
}

// Filter returns the most specific filter matching this platform.
func (i *Info) Filter() *Filter {
	return &Filter{OS: i.OS, Arch: i.Arch}
}

// Detector is the interface for platform detection.
type Detector interface {
	Detect(ctx context.Context) (*Info, error)
}

// Static is a Detector that always returns a fixed Info. Useful for tests
// and for authoring manifests targeting a platform other than the host.
type Static struct {
	Info Info
}

// Detect returns the fixed platform information.
func (s Static) Detect(ctx context.Context) (*Info, error) {
	info := s.Info
	return &info, nil
}

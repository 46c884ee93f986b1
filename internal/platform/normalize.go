package platform

import (
	"fmt"
	"strings"
)

// familyMap maps distribution names to their canonical family names,
// normalizing the variations gopsutil reports.
var familyMap = map[string]string{
	"debian":   FamilyDebian,
	"ubuntu":   FamilyDebian,
	"rhel":     FamilyRHEL,
	"centos":   FamilyRHEL,
	"rocky":    FamilyRHEL,
	"fedora":   FamilyFedora,
	"suse":     FamilySUSE,
	"opensuse": FamilySUSE,
	"arch":     FamilyArch,
	"manjaro":  FamilyArch,
	"alpine":   FamilyAlpine,
	"gentoo":   FamilyGentoo,
}

// normalizeOS converts OS spellings found in manifests and file names to
// GOOS values.
func normalizeOS(os string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(os)) {
	case "linux":
		return "linux", nil
	case "darwin", "macos", "mac":
		return "darwin", nil
	case "windows", "win":
		return "windows", nil
	default:
		return "", fmt.Errorf("unsupported operating system: %s", os)
	}
}

// normalizeArch converts architecture spellings to normalized names.
// Only amd64 and arm64 are supported.
func normalizeArch(arch string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(arch)) {
	case "amd64", "x86_64":
		return "amd64", nil
	case "arm64", "aarch64":
		return "arm64", nil
	default:
		return "", fmt.Errorf("unsupported architecture: %s", arch)
	}
}

// normalizeDistro lowercases and trims distro identifiers for consistency.
func normalizeDistro(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// mapFamily maps a distribution family string to its canonical name.
func mapFamily(family string) string {
	if canonical, ok := familyMap[normalizeDistro(family)]; ok {
		return canonical
	}
	return FamilyUnknown
}

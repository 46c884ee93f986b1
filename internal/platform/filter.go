package platform

import (
	"fmt"
	"strings"
)

// Filter restricts a manifest entry to hosts running a given OS and,
// optionally, a given architecture. A nil *Filter matches every host.
type Filter struct {
	OS   string // "linux", "darwin", "windows"
	Arch string // "amd64", "arm64"; empty matches any architecture of OS
}

// ParseFilter parses the textual filter form used in manifests:
// "linux", "darwin-arm64", "windows-amd64". An empty string yields nil.
func ParseFilter(s string) (*Filter, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return nil, nil
	}

	osPart, archPart, hasArch := strings.Cut(s, "-")

	goos, err := normalizeOS(osPart)
	if err != nil {
		return nil, fmt.Errorf("parse platform filter %q: %w", s, err)
	}

	f := &Filter{OS: goos}
	if hasArch {
		arch, err := normalizeArch(archPart)
		if err != nil {
			return nil, fmt.Errorf("parse platform filter %q: %w", s, err)
		}
		f.Arch = arch
	}

	return f, nil
}

// String returns the textual filter form ("linux", "linux-arm64").
// A nil filter renders as the empty string.
func (f *Filter) String() string {
	if f == nil {
		return ""
	}
	if f.Arch == "" {
		return f.OS
	}
	return f.OS + "-" + f.Arch
}

// Matches reports whether a host described by info satisfies the filter.
func (f *Filter) Matches(info *Info) bool {
	if f == nil {
		return true
	}
	if f.OS != info.OS {
		return false
	}
	return f.Arch == "" || f.Arch == info.Arch
}

// Excludes reports whether two filters can never match the same host.
// Filters are mutually exclusive when they name different operating
// systems, different architectures under the same OS, or when one is the
// architecture-qualified variant of the other's OS-wide form. A nil
// filter overlaps everything.
func (f *Filter) Excludes(other *Filter) bool {
	if f == nil || other == nil {
		return false
	}
	if f.OS != other.OS {
		return true
	}
	if f.Arch == "" && other.Arch == "" {
		return false
	}
	// Same OS: exclusive when both name architectures and they differ,
	// or when exactly one of them narrows to an architecture.
	return f.Arch != other.Arch
}

// Package manifest defines the signed file-set description at the heart
// of an update run: base locations, ordered file records, ordered
// properties, and opaque handler identifiers. Manifests are immutable
// once built or parsed; the resolved-property cache is computed at
// construction time.
//
// The package owns no markup. Encoded manifests cross the Codec boundary
// as flat Documents; the concrete encoding lives elsewhere.
package manifest

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/updraft-sh/updraft/internal/fingerprint"
	"github.com/updraft-sh/updraft/internal/platform"
	"github.com/updraft-sh/updraft/internal/props"
)

// Manifest is the aggregate description of one deployable file set.
type Manifest struct {
	// Timestamp records when the manifest was authored. Zero when the
	// encoded document carried none.
	Timestamp time.Time
	// BaseURL prefixes relative file sources.
	BaseURL string
	// BasePath prefixes relative destination paths.
	BasePath string
	// Files are the ordered file records.
	Files []FileRecord
	// Properties are the ordered raw properties as authored, platform
	// filters and placeholders intact.
	Properties []props.Property
	// Resolved is the placeholder-free property cache for the host the
	// manifest was built or parsed on.
	Resolved props.Resolved
	// UpdateHandler and LaunchHandler name pluggable behaviors resolved
	// entirely outside this package.
	UpdateHandler string
	LaunchHandler string
}

// FilesFor returns the records applicable to the given host, in
// manifest order.
func (m *Manifest) FilesFor(info *platform.Info) []FileRecord {
	out := make([]FileRecord, 0, len(m.Files))
	for _, rec := range m.Files {
		if rec.MatchesPlatform(info) {
			out = append(out, rec)
		}
	}
	return out
}

// AbsPath returns the absolute destination path of a record.
func (m *Manifest) AbsPath(rec *FileRecord) string {
	p := filepath.FromSlash(rec.Path)
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(filepath.FromSlash(m.BasePath), p)
}

// SourceURL returns the absolute source locator of a record.
func (m *Manifest) SourceURL(rec *FileRecord) string {
	if isAbsoluteLocator(rec.Source) {
		return rec.Source
	}
	base := strings.TrimSuffix(m.BaseURL, "/")
	if base == "" {
		return rec.Source
	}
	return base + "/" + strings.TrimPrefix(rec.Source, "/")
}

// isAbsoluteLocator reports whether a source already carries a scheme.
func isAbsoluteLocator(s string) bool {
	return strings.Contains(s, "://")
}

// handlerPattern accepts well-formed qualified names: dot-separated
// identifiers such as "app.handlers.rotating".
var handlerPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)

// validateHandler checks a handler identifier; empty means unset.
func validateHandler(field, id string) error {
	if id == "" {
		return nil
	}
	if !handlerPattern.MatchString(id) {
		return &ValidationError{
			Field:   field,
			Message: fmt.Sprintf("malformed handler identifier %q", id),
		}
	}
	return nil
}

// validateDestinations rejects two records that could land on the same
// destination path on some host. Records sharing a destination are only
// legal when their platform filters are mutually exclusive.
func validateDestinations(files []FileRecord) error {
	for i := range files {
		for j := i + 1; j < len(files); j++ {
			a, b := &files[i], &files[j]
			if props.NormalizePath(a.Path) != props.NormalizePath(b.Path) {
				continue
			}
			if a.Filter.Excludes(b.Filter) {
				continue
			}
			return &ValidationError{
				Field: fmt.Sprintf("files[%d]", j),
				Message: fmt.Sprintf("duplicate destination path %q (platform filters %q and %q overlap)",
					b.Path, a.Filter.String(), b.Filter.String()),
			}
		}
	}
	return nil
}

// validateRecord applies the defensive field checks shared by the
// builder and the document reader.
func validateRecord(index int, rec *FileRecord) error {
	field := fmt.Sprintf("files[%d]", index)
	if rec.Path == "" && rec.Source == "" {
		return &ValidationError{Field: field, Message: "record names neither a source nor a destination"}
	}
	if rec.Size < 0 {
		return &ValidationError{Field: field, Message: fmt.Sprintf("negative size %d", rec.Size)}
	}
	if rec.Checksum != "" && !fingerprint.ValidChecksum(rec.Checksum) {
		return &ValidationError{Field: field, Message: fmt.Sprintf("malformed checksum %q", rec.Checksum)}
	}
	return nil
}

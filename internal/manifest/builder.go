package manifest

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ProtonMail/go-crypto/openpgp" //nolint:staticcheck // ProtonMail's maintained fork

	"github.com/updraft-sh/updraft/internal/fingerprint"
	"github.com/updraft-sh/updraft/internal/platform"
	"github.com/updraft-sh/updraft/internal/props"
)

// FileRef names one file to include when authoring a manifest. At least
// one of Source, Path, or File must be set; the builder derives the
// rest.
type FileRef struct {
	// Source is the download locator; derived from Path when empty.
	Source string
	// Path is the destination relative to the base path; derived from
	// Source or File when empty.
	Path string
	// File is the concrete local file to fingerprint; defaults to Path
	// resolved against the base path.
	File string
	// Filter scopes the record; inferred from filename tokens when nil.
	Filter  *platform.Filter
	Flags   Flags
	Comment string
}

// BuildConfig holds everything the builder needs besides the file refs.
type BuildConfig struct {
	BaseURL       string
	BasePath      string
	UpdateHandler string
	LaunchHandler string
	Properties    []props.Property
	// Signer, when set, produces a detached signature over every file.
	Signer *openpgp.Entity
	// Platform is the host the resolved-property cache is computed for.
	Platform *platform.Info
	// Lookup supplies external values during property resolution.
	Lookup props.LookupFunc
	// Clock stamps the manifest; defaults to the system clock.
	Clock Clock
}

// Build authors an immutable Manifest from a set of file references.
// Each referenced file is read exactly once: the checksum, the size,
// and (when a signer is configured) the signature all come from that
// single pass.
func Build(refs []FileRef, cfg BuildConfig) (*Manifest, error) {
	if cfg.Platform == nil {
		return nil, &ValidationError{Field: "platform", Message: "build platform is required"}
	}
	clock := cfg.Clock
	if clock == nil {
		clock = RealClock{}
	}

	resolved, err := props.Resolve(cfg.Properties, cfg.Platform, cfg.Lookup)
	if err != nil {
		return nil, err
	}

	m := &Manifest{
		Timestamp:     clock.Now().UTC(),
		BaseURL:       cfg.BaseURL,
		BasePath:      cfg.BasePath,
		Properties:    cfg.Properties,
		Resolved:      resolved,
		UpdateHandler: cfg.UpdateHandler,
		LaunchHandler: cfg.LaunchHandler,
	}
	if err := validateHandler("update_handler", m.UpdateHandler); err != nil {
		return nil, err
	}
	if err := validateHandler("launch_handler", m.LaunchHandler); err != nil {
		return nil, err
	}

	m.Files = make([]FileRecord, 0, len(refs))
	for i, ref := range refs {
		rec, err := buildRecord(i, &ref, m, cfg.Signer)
		if err != nil {
			return nil, err
		}
		m.Files = append(m.Files, *rec)
	}

	if err := validateDestinations(m.Files); err != nil {
		return nil, err
	}

	return m, nil
}

// buildRecord derives the missing locator fields of one ref and
// fingerprints the referenced file.
func buildRecord(index int, ref *FileRef, m *Manifest, signer *openpgp.Entity) (*FileRecord, error) {
	field := fmt.Sprintf("files[%d]", index)

	rec := &FileRecord{
		Source:  ref.Source,
		Path:    ref.Path,
		Filter:  ref.Filter,
		Flags:   ref.Flags,
		Comment: ref.Comment,
	}

	if rec.Path == "" {
		switch {
		case ref.File != "":
			rec.Path = localRelative(ref.File, m.BasePath)
		case rec.Source != "":
			rec.Path = derivePath(rec.Source, m.BaseURL)
		default:
			return nil, &ValidationError{Field: field, Message: "ref names neither a source, a path, nor a file"}
		}
	}
	if rec.Source == "" {
		rec.Source = props.NormalizePath(rec.Path)
	}
	if rec.Filter == nil {
		rec.Filter = inferFilter(filepath.Base(rec.Path))
	}

	local := ref.File
	if local == "" {
		local = m.AbsPath(rec)
	}

	if err := fingerprintFile(rec, local, signer); err != nil {
		return nil, &ValidationError{Field: field, Message: err.Error()}
	}

	if err := validateRecord(index, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// fingerprintFile fills checksum, size, and optionally signature from a
// single read of the file.
func fingerprintFile(rec *FileRecord, path string, signer *openpgp.Entity) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	digest := fingerprint.NewDigest()
	if signer != nil {
		// DetachedSign consumes the stream; tee it through the digest
		// so one pass yields both fingerprint halves.
		sig, err := fingerprint.Sign(io.TeeReader(f, digest), signer)
		if err != nil {
			return err
		}
		rec.Signature = sig
	} else {
		if _, err := io.Copy(digest, f); err != nil {
			return fmt.Errorf("read file: %w", err)
		}
	}

	rec.Checksum = digest.Sum()
	rec.Size = digest.Size()
	return nil
}

// localRelative expresses a local file path relative to the base path
// when it lies underneath it, falling back to the file's base name.
func localRelative(file, basePath string) string {
	if basePath != "" {
		if rel, err := filepath.Rel(filepath.FromSlash(basePath), file); err == nil &&
			rel != "." && !strings.HasPrefix(rel, "..") {
			return filepath.ToSlash(rel)
		}
	}
	return filepath.Base(file)
}

// osTokens and archTokens map filename fragments to filter components.
var osTokens = map[string]string{
	"linux":   "linux",
	"darwin":  "darwin",
	"macos":   "darwin",
	"mac":     "darwin",
	"windows": "windows",
	"win":     "windows",
}

var archTokens = map[string]string{
	"amd64":   "amd64",
	"x64":     "amd64",
	"arm64":   "arm64",
	"aarch64": "arm64",
}

// inferFilter guesses a platform filter from tokens embedded in a file
// name, e.g. "tool-linux-amd64.tar.gz" or "helper_windows.exe". Returns
// nil when the name carries no recognizable OS token.
func inferFilter(name string) *platform.Filter {
	tokens := strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		return r == '-' || r == '_' || r == '.'
	})

	var f *platform.Filter
	for _, tok := range tokens {
		if goos, ok := osTokens[tok]; ok && f == nil {
			f = &platform.Filter{OS: goos}
			continue
		}
		if f != nil && f.Arch == "" {
			if arch, ok := archTokens[tok]; ok {
				f.Arch = arch
			}
		}
	}
	return f
}

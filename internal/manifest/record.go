package manifest

import (
	"github.com/updraft-sh/updraft/internal/platform"
)

// Flags are activation steps applied to a file after promotion.
type Flags struct {
	// Executable marks the installed file chmod 0755.
	Executable bool
	// Unpack extracts the verified .tar.gz artifact under the
	// destination path instead of moving it there.
	Unpack bool
}

// FileRecord is one immutable file entry in a Manifest: where the bytes
// come from, where they land, and the fingerprint that decides staleness
// and authenticity. Values are fully placeholder-resolved.
type FileRecord struct {
	// Source is the download locator, absolute or relative to the
	// manifest's base URL.
	Source string
	// Path is the destination, absolute or relative to the manifest's
	// base path.
	Path string
	// Filter limits the record to matching hosts; nil applies always.
	Filter *platform.Filter
	// Size is the expected byte size.
	Size int64
	// Checksum is the expected hex SHA-256 content digest.
	Checksum string
	// Signature is an optional binary detached OpenPGP signature over
	// the file's bytes.
	Signature []byte
	Flags     Flags
	Comment   string
}

// MatchesPlatform reports whether the record applies to the given host.
func (r *FileRecord) MatchesPlatform(info *platform.Info) bool {
	return r.Filter.Matches(info)
}

// Signed reports whether the record carries a signature.
func (r *FileRecord) Signed() bool {
	return len(r.Signature) > 0
}

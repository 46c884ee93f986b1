// Package fingerprint computes content checksums and OpenPGP detached
// signatures over file bytes. A fingerprint pairs a hex SHA-256 digest
// (staleness detection) with an optional signature (tamper detection).
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
)

// Digest accumulates a SHA-256 checksum and a byte count from a stream.
// It implements io.Writer so callers can tee downloaded bytes through it.
type Digest struct {
	h hash.Hash
	n int64
}

// NewDigest creates an empty running digest.
func NewDigest() *Digest {
	return &Digest{h: sha256.New()}
}

// Write feeds bytes into the digest.
func (d *Digest) Write(p []byte) (int, error) {
	n, err := d.h.Write(p)
	d.n += int64(n)
	return n, err
}

// Sum returns the lowercase hex checksum of everything written so far.
func (d *Digest) Sum() string {
	return hex.EncodeToString(d.h.Sum(nil))
}

// Size returns the number of bytes written so far.
func (d *Digest) Size() int64 {
	return d.n
}

// ChecksumFile reads a file once and returns its hex SHA-256 checksum
// and byte size.
func ChecksumFile(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	d := NewDigest()
	if _, err := io.Copy(d, f); err != nil {
		return "", 0, fmt.Errorf("read file: %w", err)
	}
	return d.Sum(), d.Size(), nil
}

// ValidChecksum reports whether s looks like a hex SHA-256 digest.
func ValidChecksum(s string) bool {
	if len(s) != sha256.Size*2 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}

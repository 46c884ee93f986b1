// Package testutil provides utilities for testing updraft in isolation.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// SetupTestEnv points every UPDRAFT_* variable at a per-test temp tree,
// so tests never touch:
// - A real installation under the user's base path
// - The user's staging directory and pending transactions
// - The user's manifest or keyring
//
// The returned path is the tree's root, with install/ and staging/
// already created. Cleanup is handled by t.TempDir().
func SetupTestEnv(t *testing.T) string {
	t.Helper()

	tmpDir := t.TempDir()

	t.Setenv("UPDRAFT_BASE_PATH", filepath.Join(tmpDir, "install"))
	t.Setenv("UPDRAFT_STAGING_DIR", filepath.Join(tmpDir, "staging"))

	// Cleared rather than pointed at files, so commands that treat an
	// empty value as "not configured" behave as on a pristine host.
	t.Setenv("UPDRAFT_MANIFEST", "")
	t.Setenv("UPDRAFT_KEYRING", "")

	dirs := []string{
		filepath.Join(tmpDir, "install"),
		filepath.Join(tmpDir, "staging"),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			t.Fatalf("failed to create test directory %s: %v", dir, err)
		}
	}
	return tmpDir
}

package testutil_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/updraft-sh/updraft/internal/testutil"
)

func TestSetupTestEnv(t *testing.T) {
	root := testutil.SetupTestEnv(t)

	basePath := os.Getenv("UPDRAFT_BASE_PATH")
	if basePath != filepath.Join(root, "install") {
		t.Errorf("UPDRAFT_BASE_PATH = %q, want it under %s", basePath, root)
	}
	stagingDir := os.Getenv("UPDRAFT_STAGING_DIR")
	if stagingDir != filepath.Join(root, "staging") {
		t.Errorf("UPDRAFT_STAGING_DIR = %q, want it under %s", stagingDir, root)
	}

	for _, key := range []string{"UPDRAFT_MANIFEST", "UPDRAFT_KEYRING"} {
		if v := os.Getenv(key); v != "" {
			t.Errorf("%s = %q, want cleared", key, v)
		}
	}

	for _, dir := range []string{basePath, stagingDir} {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			t.Errorf("directory %s does not exist", dir)
		}
	}
}

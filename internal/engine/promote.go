package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	promoteRetries = 10
	promoteBackoff = 50 * time.Millisecond
)

// promote moves a verified temp file onto its destination atomically.
// The rename is retried briefly; on Windows a scanner holding the
// destination open makes the first attempts fail spuriously.
func promote(tempPath, destPath string) error {
	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return fmt.Errorf("create dest dir: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < promoteRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(promoteBackoff)
		}
		if lastErr = os.Rename(tempPath, destPath); lastErr == nil {
			return nil
		}
	}

	os.Remove(tempPath)
	return fmt.Errorf("rename into place: %w", lastErr)
}

// installEntry moves one verified artifact into service. Archives
// flagged for unpacking are extracted under the destination instead of
// moved; everything else is renamed, with the executable bit applied
// afterwards.
func installEntry(tempPath, destPath string, executable, unpack bool) error {
	if unpack {
		if err := extractTarGz(tempPath, destPath); err != nil {
			return fmt.Errorf("unpack %s: %w", destPath, err)
		}
		if err := os.Remove(tempPath); err != nil {
			return fmt.Errorf("remove unpacked archive: %w", err)
		}
		return nil
	}

	if err := promote(tempPath, destPath); err != nil {
		return err
	}
	if executable {
		if err := os.Chmod(destPath, 0755); err != nil {
			return fmt.Errorf("set executable: %w", err)
		}
	}
	return nil
}

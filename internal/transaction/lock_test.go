package transaction

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestAcquireLock(t *testing.T) {
	t.Run("creates lock file", func(t *testing.T) {
		dir := t.TempDir()

		lock, err := AcquireLock(dir)
		if err != nil {
			t.Fatalf("AcquireLock failed: %v", err)
		}
		defer lock.Release()

		lockPath := filepath.Join(dir, "update.lock")
		if _, err := os.Stat(lockPath); os.IsNotExist(err) {
			t.Error("lock file not created")
		}
	})

	t.Run("prevents concurrent locks", func(t *testing.T) {
		dir := t.TempDir()

		lock1, err := AcquireLock(dir)
		if err != nil {
			t.Fatalf("first AcquireLock failed: %v", err)
		}
		defer lock1.Release()

		_, err = AcquireLock(dir)
		if err != ErrLockExists {
			t.Errorf("expected ErrLockExists, got %v", err)
		}
	})

	t.Run("creates directory if needed", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nested", "txn")

		lock, err := AcquireLock(dir)
		if err != nil {
			t.Fatalf("AcquireLock failed: %v", err)
		}
		defer lock.Release()

		if _, err := os.Stat(dir); os.IsNotExist(err) {
			t.Error("directory not created")
		}
	})

	t.Run("writes lock metadata", func(t *testing.T) {
		dir := t.TempDir()

		lock, err := AcquireLock(dir)
		if err != nil {
			t.Fatalf("AcquireLock failed: %v", err)
		}
		defer lock.Release()

		data, err := os.ReadFile(filepath.Join(dir, "update.lock"))
		if err != nil {
			t.Fatalf("failed to read lock file: %v", err)
		}
		if len(data) == 0 {
			t.Error("lock file should contain metadata")
		}
	})
}

func TestLockRelease(t *testing.T) {
	t.Run("removes lock file", func(t *testing.T) {
		dir := t.TempDir()

		lock, err := AcquireLock(dir)
		if err != nil {
			t.Fatalf("AcquireLock failed: %v", err)
		}

		if err := lock.Release(); err != nil {
			t.Fatalf("Release failed: %v", err)
		}

		if _, err := os.Stat(filepath.Join(dir, "update.lock")); !os.IsNotExist(err) {
			t.Error("lock file should be removed after release")
		}
	})

	t.Run("allows new lock after release", func(t *testing.T) {
		dir := t.TempDir()

		lock1, err := AcquireLock(dir)
		if err != nil {
			t.Fatalf("first AcquireLock failed: %v", err)
		}
		lock1.Release()

		lock2, err := AcquireLock(dir)
		if err != nil {
			t.Fatalf("second AcquireLock should succeed: %v", err)
		}
		defer lock2.Release()
	})

	t.Run("is idempotent", func(t *testing.T) {
		dir := t.TempDir()

		lock, err := AcquireLock(dir)
		if err != nil {
			t.Fatalf("AcquireLock failed: %v", err)
		}

		if err := lock.Release(); err != nil {
			t.Fatalf("first Release failed: %v", err)
		}
		if err := lock.Release(); err != nil {
			t.Fatalf("second Release should not error: %v", err)
		}
	})
}

func TestStaleLockHandling(t *testing.T) {
	t.Run("removes stale lock and acquires new one", func(t *testing.T) {
		dir := t.TempDir()

		lockPath := filepath.Join(dir, "update.lock")
		if err := os.WriteFile(lockPath, []byte("pid=99999\ntimestamp=2020-01-01T00:00:00Z\n"), 0600); err != nil {
			t.Fatalf("failed to create stale lock: %v", err)
		}

		staleTime := time.Now().Add(-StaleLockThreshold - time.Minute)
		if err := os.Chtimes(lockPath, staleTime, staleTime); err != nil {
			t.Fatalf("failed to set stale time: %v", err)
		}

		lock, err := AcquireLock(dir)
		if err != nil {
			t.Fatalf("AcquireLock should succeed with stale lock: %v", err)
		}
		defer lock.Release()
	})

	t.Run("fails for fresh lock", func(t *testing.T) {
		dir := t.TempDir()

		lockPath := filepath.Join(dir, "update.lock")
		if err := os.WriteFile(lockPath, []byte("pid=99999\ntimestamp=2020-01-01T00:00:00Z\n"), 0600); err != nil {
			t.Fatalf("failed to create lock: %v", err)
		}

		if _, err := AcquireLock(dir); err == nil {
			t.Error("expected error for fresh lock")
		}
	})
}

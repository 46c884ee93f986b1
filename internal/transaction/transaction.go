// Package transaction persists staged update state with locking, atomic
// writes, and recovery support. A staged run downloads and verifies every
// artifact into temporary files, then records the temp-to-destination
// moves here so a later finalize (or a recovery scan after a crash) can
// complete or abandon them.
package transaction

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Entry records one verified artifact waiting to be moved into place.
type Entry struct {
	TempPath   string `json:"temp_path"`
	DestPath   string `json:"dest_path"`
	Executable bool   `json:"executable,omitempty"`
	Unpack     bool   `json:"unpack,omitempty"`
	Promoted   bool   `json:"promoted,omitempty"`
}

// Txn is a staged update transaction.
type Txn struct {
	Version   int       `json:"version"` // Schema version for future evolution
	ID        string    `json:"id"`      // UUID for unique identification
	Timestamp time.Time `json:"timestamp"`
	Entries   []Entry   `json:"entries"`
}

// New creates a transaction covering the given staged entries.
func New(entries []Entry) *Txn {
	return &Txn{
		Version:   1,
		ID:        uuid.New().String(),
		Timestamp: time.Now().UTC(),
		Entries:   entries,
	}
}

// filename is the on-disk name of the transaction record.
func (t *Txn) filename() string {
	return fmt.Sprintf("txn-update-%s.json", t.ID)
}

// Save writes the transaction to dir atomically and returns the record
// path. Uses write-then-rename so a crash never leaves a partial record.
func (t *Txn) Save(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("create transaction directory: %w", err)
	}

	finalPath := filepath.Join(dir, t.filename())
	tmpPath := finalPath + ".tmp"

	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal transaction: %w", err)
	}

	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return "", fmt.Errorf("write temporary transaction file: %w", err)
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("rename transaction file: %w", err)
	}

	// Sync directory for durability
	df, err := os.Open(dir)
	if err == nil {
		if syncErr := df.Sync(); syncErr != nil {
			df.Close()
			return "", fmt.Errorf("sync directory: %w", syncErr)
		}
		df.Close()
	}

	return finalPath, nil
}

// Load reads a transaction record from disk.
func Load(path string) (*Txn, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read transaction file: %w", err)
	}

	var txn Txn
	if err := json.Unmarshal(data, &txn); err != nil {
		return nil, fmt.Errorf("unmarshal transaction: %w", err)
	}

	return &txn, nil
}

// Scan lists pending transaction record paths under dir, oldest first by
// filename. A missing directory means no pending transactions.
func Scan(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan transaction directory: %w", err)
	}

	var paths []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, "txn-update-") || !strings.HasSuffix(name, ".json") {
			continue
		}
		paths = append(paths, filepath.Join(dir, name))
	}
	sort.Strings(paths)
	return paths, nil
}

// Pending returns the entries not yet moved into place.
func (t *Txn) Pending() []Entry {
	var pending []Entry
	for _, e := range t.Entries {
		if !e.Promoted {
			pending = append(pending, e)
		}
	}
	return pending
}

// MarkPromoted flags the entry with the given temp path as moved.
func (t *Txn) MarkPromoted(tempPath string) {
	for i := range t.Entries {
		if t.Entries[i].TempPath == tempPath {
			t.Entries[i].Promoted = true
			break
		}
	}
}

// Complete returns true once every entry has been moved into place.
func (t *Txn) Complete() bool {
	for _, e := range t.Entries {
		if !e.Promoted {
			return false
		}
	}
	return len(t.Entries) > 0
}

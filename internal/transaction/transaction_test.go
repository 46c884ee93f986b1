package transaction

import (
	"os"
	"path/filepath"
	"testing"
)

func sampleEntries() []Entry {
	return []Entry{
		{TempPath: "/opt/app/lib/core.jar.updtmp", DestPath: "/opt/app/lib/core.jar"},
		{TempPath: "/opt/app/bin/launcher.updtmp", DestPath: "/opt/app/bin/launcher", Executable: true},
		{TempPath: "/opt/app/data.tar.gz.updtmp", DestPath: "/opt/app/data.tar.gz", Unpack: true},
	}
}

func TestNew(t *testing.T) {
	txn := New(sampleEntries())

	if txn.Version != 1 {
		t.Errorf("Version = %d, want 1", txn.Version)
	}
	if txn.ID == "" {
		t.Error("ID not assigned")
	}
	if txn.Timestamp.IsZero() {
		t.Error("Timestamp not set")
	}
	if len(txn.Entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(txn.Entries))
	}
	if txn.Complete() {
		t.Error("fresh transaction should not be complete")
	}

	other := New(sampleEntries())
	if other.ID == txn.ID {
		t.Error("transaction IDs should be unique")
	}
}

func TestSaveLoad(t *testing.T) {
	dir := t.TempDir()
	txn := New(sampleEntries())
	txn.MarkPromoted(txn.Entries[0].TempPath)

	path, err := txn.Save(dir)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if filepath.Dir(path) != dir {
		t.Errorf("record saved outside dir: %s", path)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.ID != txn.ID || loaded.Version != txn.Version {
		t.Errorf("identity mangled: %+v", loaded)
	}
	if len(loaded.Entries) != len(txn.Entries) {
		t.Fatalf("got %d entries, want %d", len(loaded.Entries), len(txn.Entries))
	}
	for i := range txn.Entries {
		if loaded.Entries[i] != txn.Entries[i] {
			t.Errorf("entry %d differs: %+v vs %+v", i, loaded.Entries[i], txn.Entries[i])
		}
	}
}

func TestSaveCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "txn")

	if _, err := New(sampleEntries()).Save(dir); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		t.Error("directory not created")
	}
}

func TestSaveLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()

	if _, err := New(sampleEntries()).Save(dir); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".tmp" {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}

func TestLoadErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		if _, err := Load(filepath.Join(t.TempDir(), "nope.json")); err == nil {
			t.Error("expected error for missing file")
		}
	})

	t.Run("corrupt record", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "txn-update-x.json")
		if err := os.WriteFile(path, []byte("{not json"), 0600); err != nil {
			t.Fatal(err)
		}
		if _, err := Load(path); err == nil {
			t.Error("expected error for corrupt record")
		}
	})
}

func TestScan(t *testing.T) {
	t.Run("missing directory", func(t *testing.T) {
		paths, err := Scan(filepath.Join(t.TempDir(), "nope"))
		if err != nil {
			t.Fatalf("Scan failed: %v", err)
		}
		if paths != nil {
			t.Errorf("expected no records, got %v", paths)
		}
	})

	t.Run("lists only transaction records", func(t *testing.T) {
		dir := t.TempDir()

		first, err := New(sampleEntries()).Save(dir)
		if err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		second, err := New(sampleEntries()).Save(dir)
		if err != nil {
			t.Fatalf("Save failed: %v", err)
		}

		// Noise the scan must skip.
		os.WriteFile(filepath.Join(dir, "update.lock"), []byte("pid=1\n"), 0600)
		os.WriteFile(filepath.Join(dir, "txn-update-x.json.tmp"), []byte("{}"), 0600)
		os.Mkdir(filepath.Join(dir, "txn-update-dir.json"), 0700)

		paths, err := Scan(dir)
		if err != nil {
			t.Fatalf("Scan failed: %v", err)
		}
		if len(paths) != 2 {
			t.Fatalf("got %d records, want 2: %v", len(paths), paths)
		}

		want := map[string]bool{first: true, second: true}
		for _, p := range paths {
			if !want[p] {
				t.Errorf("unexpected record %s", p)
			}
		}
	})
}

func TestPendingAndPromotion(t *testing.T) {
	txn := New(sampleEntries())

	if got := len(txn.Pending()); got != 3 {
		t.Fatalf("got %d pending, want 3", got)
	}

	txn.MarkPromoted(txn.Entries[1].TempPath)
	pending := txn.Pending()
	if len(pending) != 2 {
		t.Fatalf("got %d pending, want 2", len(pending))
	}
	for _, e := range pending {
		if e.Executable {
			t.Error("promoted entry still pending")
		}
	}
	if txn.Complete() {
		t.Error("transaction complete with pending entries")
	}

	for _, e := range txn.Entries {
		txn.MarkPromoted(e.TempPath)
	}
	if !txn.Complete() {
		t.Error("transaction should be complete")
	}
}

func TestCompleteEmptyTransaction(t *testing.T) {
	if New(nil).Complete() {
		t.Error("empty transaction must not report complete")
	}
}

package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseProp(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantKey string
		wantVal string
		wantOS  string
		wantErr bool
	}{
		{name: "plain", input: "channel=stable", wantKey: "channel", wantVal: "stable"},
		{name: "empty value", input: "flags=", wantKey: "flags", wantVal: ""},
		{name: "scoped", input: "sep=;@windows", wantKey: "sep", wantVal: ";", wantOS: "windows"},
		{name: "value with equals", input: "expr=a=b", wantKey: "expr", wantVal: "a=b"},
		{name: "no equals", input: "channel", wantErr: true},
		{name: "empty key", input: "=x", wantErr: true},
		{name: "bad platform", input: "x=y@plan9", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prop, err := parseProp(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseProp(%q) failed: %v", tt.input, err)
			}
			if prop.Key != tt.wantKey || prop.Value != tt.wantVal {
				t.Errorf("got %q=%q, want %q=%q", prop.Key, prop.Value, tt.wantKey, tt.wantVal)
			}
			if tt.wantOS == "" && prop.Filter != nil {
				t.Errorf("unexpected filter %v", prop.Filter)
			}
			if tt.wantOS != "" && (prop.Filter == nil || prop.Filter.OS != tt.wantOS) {
				t.Errorf("filter = %v, want OS %q", prop.Filter, tt.wantOS)
			}
		})
	}
}

func TestCollectRefs(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.jar", "sub/b.jar", "sub/deep/c.jar"} {
		full := filepath.Join(dir, filepath.FromSlash(name))
		os.MkdirAll(filepath.Dir(full), 0755)
		os.WriteFile(full, []byte(name), 0644)
	}
	loose := filepath.Join(t.TempDir(), "loose.txt")
	os.WriteFile(loose, []byte("x"), 0644)

	refs, err := collectRefs([]string{dir, loose})
	if err != nil {
		t.Fatalf("collectRefs failed: %v", err)
	}
	if len(refs) != 4 {
		t.Errorf("got %d refs, want 4", len(refs))
	}

	if _, err := collectRefs([]string{filepath.Join(dir, "missing")}); err == nil {
		t.Error("expected error for missing input")
	}
}

package platform

import (
	"context"
	"runtime"
	"testing"
)

func TestDetect(t *testing.T) {
	detector := NewDetector()
	info, err := detector.Detect(context.Background())
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}

	if info.OS != runtime.GOOS {
		t.Errorf("OS = %q, want %q", info.OS, runtime.GOOS)
	}
	if info.ArchRaw != runtime.GOARCH {
		t.Errorf("ArchRaw = %q, want %q", info.ArchRaw, runtime.GOARCH)
	}
	if info.Arch != "amd64" && info.Arch != "arm64" {
		t.Errorf("Arch = %q, want normalized amd64 or arm64", info.Arch)
	}
	if !info.IsLinux() {
		// Distro fields are Linux-only.
		if info.Distro != "" || info.Family != "" {
			t.Errorf("unexpected distro fields on %s: %q/%q", info.OS, info.Distro, info.Family)
		}
	}
}

func TestDetectCancelled(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("distro detection only runs on linux")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Either the gopsutil call notices the cancelled context and we get
	// an error, or detection completed before checking. Both are fine;
	// what must not happen is a panic or a half-filled Info with an
	// unnormalized arch.
	info, err := NewDetector().Detect(ctx)
	if err == nil && info.Arch == "" {
		t.Error("got Info with empty Arch and no error")
	}
}

func TestStaticDetector(t *testing.T) {
	want := Info{OS: "windows", Arch: "amd64", ArchRaw: "amd64"}
	info, err := Static{Info: want}.Detect(context.Background())
	if err != nil {
		t.Fatalf("Static.Detect failed: %v", err)
	}
	if *info != want {
		t.Errorf("got %+v, want %+v", *info, want)
	}
	// The returned Info is a copy; mutating it must not affect the detector.
	info.OS = "linux"
	again, _ := Static{Info: want}.Detect(context.Background())
	if again.OS != "windows" {
		t.Error("Static detector leaked mutable state")
	}
}

func TestMapFamily(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"debian", FamilyDebian},
		{"Ubuntu", FamilyDebian},
		{"rocky", FamilyRHEL},
		{"opensuse", FamilySUSE},
		{"manjaro", FamilyArch},
		{"freedos", FamilyUnknown},
		{"", FamilyUnknown},
	}
	for _, tt := range tests {
		if got := mapFamily(tt.input); got != tt.want {
			t.Errorf("mapFamily(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

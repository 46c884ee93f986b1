package props

import (
	"errors"
	"testing"

	"github.com/updraft-sh/updraft/internal/platform"
)

var linuxAMD64 = &platform.Info{OS: "linux", Arch: "amd64", ArchRaw: "amd64"}

func TestResolveChain(t *testing.T) {
	properties := []Property{
		{Key: "home", Value: "/x"},
		{Key: "appdir", Value: "${home}/app"},
		{Key: "libdir", Value: "${appdir}/lib"},
	}

	resolved, err := Resolve(properties, linuxAMD64, nil)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	want := map[string]string{
		"home":   "/x",
		"appdir": "/x/app",
		"libdir": "/x/app/lib",
	}
	for key, value := range want {
		if resolved[key] != value {
			t.Errorf("resolved[%q] = %q, want %q", key, resolved[key], value)
		}
	}
}

func TestResolveOrderIndependent(t *testing.T) {
	forward := []Property{
		{Key: "a", Value: "1"},
		{Key: "b", Value: "${a}2"},
		{Key: "c", Value: "${b}3"},
	}
	backward := []Property{
		{Key: "c", Value: "${b}3"},
		{Key: "b", Value: "${a}2"},
		{Key: "a", Value: "1"},
	}

	r1, err := Resolve(forward, linuxAMD64, nil)
	if err != nil {
		t.Fatalf("forward Resolve failed: %v", err)
	}
	r2, err := Resolve(backward, linuxAMD64, nil)
	if err != nil {
		t.Fatalf("backward Resolve failed: %v", err)
	}

	if len(r1) != len(r2) {
		t.Fatalf("result sizes differ: %d vs %d", len(r1), len(r2))
	}
	for key, value := range r1 {
		if r2[key] != value {
			t.Errorf("key %q: %q vs %q", key, value, r2[key])
		}
	}
	if r1["c"] != "123" {
		t.Errorf("c = %q, want 123", r1["c"])
	}
}

func TestResolveCycle(t *testing.T) {
	properties := []Property{
		{Key: "a", Value: "${b}"},
		{Key: "b", Value: "${a}"},
	}

	_, err := Resolve(properties, linuxAMD64, nil)
	if err == nil {
		t.Fatal("expected resolution error for cycle")
	}

	var resErr *ResolutionError
	if !errors.As(err, &resErr) {
		t.Fatalf("expected *ResolutionError, got %T", err)
	}
	if resErr.Key != "a" && resErr.Key != "b" {
		t.Errorf("error names key %q, want one of the cyclic keys", resErr.Key)
	}
}

func TestResolveUndefined(t *testing.T) {
	properties := []Property{
		{Key: "appdir", Value: "${nowhere}/app"},
	}

	_, err := Resolve(properties, linuxAMD64, nil)
	var resErr *ResolutionError
	if !errors.As(err, &resErr) {
		t.Fatalf("expected *ResolutionError, got %v", err)
	}
	if resErr.Key != "nowhere" {
		t.Errorf("error names %q, want nowhere", resErr.Key)
	}
}

func TestResolveExternalLookup(t *testing.T) {
	properties := []Property{
		{Key: "appdir", Value: "${root}/app"},
	}
	lookup := func(key string) (string, bool) {
		if key == "root" {
			return "/opt", true
		}
		return "", false
	}

	resolved, err := Resolve(properties, linuxAMD64, lookup)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if resolved["appdir"] != "/opt/app" {
		t.Errorf("appdir = %q, want /opt/app", resolved["appdir"])
	}
	// The injected external value becomes part of the resolved set.
	if resolved["root"] != "/opt" {
		t.Errorf("root = %q, want /opt", resolved["root"])
	}
}

func TestResolvePlatformOverride(t *testing.T) {
	properties := []Property{
		{Key: "sep", Value: ":"},
		{Key: "sep", Value: ";", Filter: &platform.Filter{OS: "windows"}},
		{Key: "path", Value: "a${sep}b"},
	}

	tests := []struct {
		name string
		info *platform.Info
		want string
	}{
		{name: "generic_on_linux", info: linuxAMD64, want: "a:b"},
		{name: "scoped_on_windows", info: &platform.Info{OS: "windows", Arch: "amd64"}, want: "a;b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolved, err := Resolve(properties, tt.info, nil)
			if err != nil {
				t.Fatalf("Resolve failed: %v", err)
			}
			if resolved["path"] != tt.want {
				t.Errorf("path = %q, want %q", resolved["path"], tt.want)
			}
		})
	}
}

func TestFlattenScopedWinsEitherOrder(t *testing.T) {
	win := &platform.Info{OS: "windows", Arch: "amd64"}
	scopedFirst := []Property{
		{Key: "k", Value: "scoped", Filter: &platform.Filter{OS: "windows"}},
		{Key: "k", Value: "generic"},
	}
	genericFirst := []Property{
		{Key: "k", Value: "generic"},
		{Key: "k", Value: "scoped", Filter: &platform.Filter{OS: "windows"}},
	}

	if got := Flatten(scopedFirst, win)["k"]; got != "scoped" {
		t.Errorf("scoped first: got %q", got)
	}
	if got := Flatten(genericFirst, win)["k"]; got != "scoped" {
		t.Errorf("generic first: got %q", got)
	}
}

func TestExpand(t *testing.T) {
	resolved := Resolved{"home": "/x"}

	got, err := resolved.Expand("${home}/app", nil)
	if err != nil {
		t.Fatalf("Expand failed: %v", err)
	}
	if got != "/x/app" {
		t.Errorf("got %q, want /x/app", got)
	}

	// Unknown key without a lookup fails.
	if _, err := resolved.Expand("${nope}", nil); err == nil {
		t.Error("expected error for unknown key")
	}

	// Lookup-discovered values are retained for later expansions.
	lookup := func(key string) (string, bool) {
		if key == "user" {
			return "alice", true
		}
		return "", false
	}
	if got, err := resolved.Expand("${home}/${user}", lookup); err != nil || got != "/x/alice" {
		t.Errorf("got %q, %v", got, err)
	}
	if resolved["user"] != "alice" {
		t.Error("lookup value was not retained in resolved set")
	}
}

func TestSystemLookup(t *testing.T) {
	t.Setenv("UPDRAFT_TEST_VALUE", "42")

	lookup := SystemLookup(linuxAMD64)

	if v, ok := lookup("UPDRAFT_TEST_VALUE"); !ok || v != "42" {
		t.Errorf("env lookup = %q, %v", v, ok)
	}
	if v, ok := lookup("os"); !ok || v != "linux" {
		t.Errorf("os lookup = %q, %v", v, ok)
	}
	if v, ok := lookup("arch"); !ok || v != "amd64" {
		t.Errorf("arch lookup = %q, %v", v, ok)
	}
	if _, ok := lookup("distro"); ok {
		t.Error("distro lookup should miss when no distro detected")
	}
	if _, ok := lookup("no_such_key_anywhere"); ok {
		t.Error("unknown key should miss")
	}
}

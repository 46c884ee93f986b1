// Package props implements the manifest property model and the ${name}
// placeholder resolution engine, including the inverse fold transform
// applied when manifests are serialized.
package props

import (
	"fmt"
	"os"
	"regexp"
	"sort"

	"github.com/updraft-sh/updraft/internal/platform"
)

// Property is one key/value pair carried by a manifest. The value may
// reference other properties via ${name} until resolved. Multiple
// properties may share a key when their platform filters differ; a
// platform-scoped value overrides an unscoped one on matching hosts.
type Property struct {
	Key    string
	Value  string
	Filter *platform.Filter
}

// placeholderPattern matches one ${name} reference; the submatch is the
// referenced key.
var placeholderPattern = regexp.MustCompile(`\$\{([A-Za-z0-9_][A-Za-z0-9_.-]*)\}`)

// LookupFunc supplies values for keys the property set does not define,
// typically environment variables or detected platform values. A false
// return means the key is unknown externally as well.
type LookupFunc func(key string) (string, bool)

// ResolutionError reports a property reference that is cyclic or defined
// nowhere, naming one offending key.
type ResolutionError struct {
	Key string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("cyclic or undefined property reference: ${%s}", e.Key)
}

// Resolved is the placeholder-free property map produced by Resolve.
// Expand may add externally looked-up keys afterwards; additions are
// strictly monotonic and existing entries are never rewritten.
type Resolved map[string]string

// Flatten reduces a property list to a single working map for the given
// host: entries whose filter does not match are dropped, and a platform-
// scoped value replaces an unscoped one of the same key.
func Flatten(properties []Property, info *platform.Info) map[string]string {
	flat := make(map[string]string, len(properties))
	scoped := make(map[string]bool)

	for _, p := range properties {
		if !p.Filter.Matches(info) {
			continue
		}
		if p.Filter == nil && scoped[p.Key] {
			continue
		}
		flat[p.Key] = p.Value
		if p.Filter != nil {
			scoped[p.Key] = true
		}
	}

	return flat
}

// Resolve computes the placeholder-free value of every property visible
// on the given host. Each pass finalizes values that contain no
// placeholders and substitutes finalized values into the rest; when a
// pass makes no progress, the first still-unresolved referenced key is
// consulted via lookup and injected on success. Termination is decided
// by progress, not recursion depth: a stuck pass with no external value
// available means the reference is cyclic or undefined.
func Resolve(properties []Property, info *platform.Info, lookup LookupFunc) (Resolved, error) {
	raw := Flatten(properties, info)
	resolved := make(Resolved, len(raw))

	for len(raw) > 0 {
		progress := false

		for key, value := range raw {
			if !placeholderPattern.MatchString(value) {
				resolved[key] = value
				delete(raw, key)
				progress = true
			}
		}

		for key, value := range raw {
			if next := substitute(value, resolved); next != value {
				raw[key] = next
				progress = true
			}
		}

		if progress {
			continue
		}

		missing := firstMissingReference(raw, resolved)
		if lookup != nil {
			if value, ok := lookup(missing); ok {
				resolved[missing] = value
				continue
			}
		}
		return nil, &ResolutionError{Key: missing}
	}

	return resolved, nil
}

// Expand resolves placeholders in an arbitrary string against the
// resolved set, consulting lookup for keys the set does not know yet.
// Newly discovered external values are added to the set so later Expand
// calls see them.
func (r Resolved) Expand(s string, lookup LookupFunc) (string, error) {
	for {
		refs := placeholderPattern.FindAllStringSubmatch(s, -1)
		if len(refs) == 0 {
			return s, nil
		}

		for _, m := range refs {
			key := m[1]
			if _, ok := r[key]; ok {
				continue
			}
			if lookup != nil {
				if value, ok := lookup(key); ok {
					r[key] = value
					continue
				}
			}
			return "", &ResolutionError{Key: key}
		}

		next := substitute(s, r)
		if next == s {
			return s, nil
		}
		s = next
	}
}

// SystemLookup builds the default external source for unresolved keys:
// environment variables first, then values detected from the platform
// ("os", "arch", "distro", "distro_family", "distro_version").
func SystemLookup(info *platform.Info) LookupFunc {
	return func(key string) (string, bool) {
		if value, ok := os.LookupEnv(key); ok {
			return value, true
		}
		if info == nil {
			return "", false
		}
		switch key {
		case "os":
			return info.OS, true
		case "arch":
			return info.Arch, true
		case "distro":
			return info.Distro, info.Distro != ""
		case "distro_family":
			return info.Family, info.Family != ""
		case "distro_version":
			return info.Version, info.Version != ""
		}
		return "", false
	}
}

// substitute rewrites every placeholder whose key is already resolved;
// unknown references are left intact.
func substitute(value string, resolved Resolved) string {
	return placeholderPattern.ReplaceAllStringFunc(value, func(token string) string {
		key := token[2 : len(token)-1]
		if v, ok := resolved[key]; ok {
			return v
		}
		return token
	})
}

// firstMissingReference returns the lexicographically first referenced
// key that is neither resolved nor resolvable, so resolution failures
// are reported deterministically regardless of map iteration order.
func firstMissingReference(raw map[string]string, resolved Resolved) string {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	missing := ""
	for _, k := range keys {
		for _, m := range placeholderPattern.FindAllStringSubmatch(raw[k], -1) {
			if _, ok := resolved[m[1]]; ok {
				continue
			}
			if missing == "" || m[1] < missing {
				missing = m[1]
			}
		}
	}
	if missing == "" {
		// Raw entries always contain at least one unresolved reference
		// when no pass makes progress.
		missing = keys[0]
	}
	return missing
}

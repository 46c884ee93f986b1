package props

import (
	"sort"
	"strings"
)

// FoldPolicy controls how Fold rewrites literal property values back into
// ${name} placeholders when a manifest is serialized.
type FoldPolicy int

const (
	// FoldNone leaves strings untouched.
	FoldNone FoldPolicy = iota
	// FoldExact folds a value only when it matches the entire string.
	FoldExact
	// FoldAll folds every non-overlapping textual occurrence.
	FoldAll
	// FoldWords folds only occurrences bounded by non-word characters.
	FoldWords
)

// NormalizePath rewrites backslash separators to forward slashes so
// path-valued strings compare consistently across platforms.
func NormalizePath(s string) string {
	return strings.ReplaceAll(s, "\\", "/")
}

type candidate struct {
	key   string
	value string
}

// segment is a run of output text; protected runs are placeholder tokens
// that later candidates must not rewrite.
type segment struct {
	text      string
	protected bool
}

// Fold rewrites literal occurrences of resolved property values in s back
// into ${key} placeholders according to policy. Candidates are tried
// longest value first so a short value never clips an occurrence of a
// longer one, and text already inside a placeholder token is never
// altered. The subject and all candidate values are path-normalized
// before comparison, so the returned string uses forward slashes.
func Fold(s string, resolved Resolved, policy FoldPolicy) string {
	s = NormalizePath(s)
	if policy == FoldNone || len(resolved) == 0 || s == "" {
		return s
	}

	cands := foldCandidates(resolved)

	if policy == FoldExact {
		for _, c := range cands {
			if s == c.value {
				return "${" + c.key + "}"
			}
		}
		return s
	}

	segs := protectPlaceholders(s)
	for _, c := range cands {
		segs = foldCandidate(segs, c, policy == FoldWords)
	}

	var b strings.Builder
	for _, seg := range segs {
		b.WriteString(seg.text)
	}
	return b.String()
}

// foldCandidates orders the resolved set longest value first (ties broken
// by key) and drops values too short to be worth folding.
func foldCandidates(resolved Resolved) []candidate {
	cands := make([]candidate, 0, len(resolved))
	for key, value := range resolved {
		value = NormalizePath(value)
		if value == "" {
			continue
		}
		cands = append(cands, candidate{key: key, value: value})
	}
	sort.Slice(cands, func(i, j int) bool {
		if len(cands[i].value) != len(cands[j].value) {
			return len(cands[i].value) > len(cands[j].value)
		}
		return cands[i].key < cands[j].key
	})
	return cands
}

// protectPlaceholders splits s into segments, marking spans that already
// form ${name} tokens as protected.
func protectPlaceholders(s string) []segment {
	var segs []segment
	last := 0
	for _, span := range placeholderPattern.FindAllStringIndex(s, -1) {
		if span[0] > last {
			segs = append(segs, segment{text: s[last:span[0]]})
		}
		segs = append(segs, segment{text: s[span[0]:span[1]], protected: true})
		last = span[1]
	}
	if last < len(s) {
		segs = append(segs, segment{text: s[last:]})
	}
	return segs
}

// foldCandidate replaces occurrences of one candidate value within the
// unprotected segments, emitting the placeholder as a protected segment.
func foldCandidate(segs []segment, c candidate, wordsOnly bool) []segment {
	out := make([]segment, 0, len(segs))
	for _, seg := range segs {
		if seg.protected {
			out = append(out, seg)
			continue
		}

		rest := seg.text
		for len(rest) > 0 {
			idx := strings.Index(rest, c.value)
			if idx < 0 {
				out = append(out, segment{text: rest})
				break
			}
			end := idx + len(c.value)
			if wordsOnly && !wordBounded(rest, idx, end) {
				out = append(out, segment{text: rest[:end]})
				rest = rest[end:]
				continue
			}
			if idx > 0 {
				out = append(out, segment{text: rest[:idx]})
			}
			out = append(out, segment{text: "${" + c.key + "}", protected: true})
			rest = rest[end:]
		}
	}
	return out
}

// wordBounded reports whether s[start:end] is delimited by non-word
// characters (or the string edges) on both sides.
func wordBounded(s string, start, end int) bool {
	if start > 0 && isWordByte(s[start-1]) {
		return false
	}
	if end < len(s) && isWordByte(s[end]) {
		return false
	}
	return true
}

func isWordByte(b byte) bool {
	return b == '_' ||
		(b >= 'a' && b <= 'z') ||
		(b >= 'A' && b <= 'Z') ||
		(b >= '0' && b <= '9')
}

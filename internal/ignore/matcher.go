// Package ignore implements a glob-based include/exclude filter for
// filesystem paths, built from a project's watchignore pattern list.
package ignore

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Matcher matches a path against the union of its glob patterns: a path is
// ignored iff any one pattern matches it.
type Matcher struct {
	patterns []pattern
}

type pattern struct {
	raw      string
	segments []string // pattern split on "/", with "**" kept as a literal segment
}

// New builds a Matcher from an ordered list of glob patterns. Construction
// never fails on pattern syntax the matcher itself understands ("**", "*",
// "?", character classes via filepath.Match); it returns an error only when a
// pattern is structurally invalid input (e.g. an unterminated character
// class), matching spec §4.B's "construction failure is a startup error".
func New(patterns []string) (*Matcher, error) {
	m := &Matcher{patterns: make([]pattern, 0, len(patterns))}
	for _, p := range patterns {
		if err := validateGlob(p); err != nil {
			return nil, fmt.Errorf("ignore pattern %q: %w", p, err)
		}
		m.patterns = append(m.patterns, pattern{
			raw:      p,
			segments: strings.Split(filepath.ToSlash(p), "/"),
		})
	}
	return m, nil
}

// Match reports whether path matches any configured pattern. At steady state
// this is a pure, total function: every path gets an answer.
func (m *Matcher) Match(path string) bool {
	if m == nil {
		return false
	}
	clean := filepath.ToSlash(path)
	segs := strings.Split(clean, "/")
	for _, p := range m.patterns {
		if matchSegments(p.segments, segs) {
			return true
		}
	}
	return false
}

// validateGlob performs a structural syntax check by test-matching each
// non-"**" segment against itself with filepath.Match, which rejects
// malformed character classes ("[" without a closing "]") the same way
// filepath.Match does at use time.
func validateGlob(p string) error {
	for _, seg := range strings.Split(filepath.ToSlash(p), "/") {
		if seg == "**" || seg == "" {
			continue
		}
		if _, err := filepath.Match(seg, seg); err != nil {
			return err
		}
	}
	return nil
}

// matchSegments matches a glob pattern (split into path segments, "**"
// meaning "zero or more segments") against a candidate path's segments.
func matchSegments(pat, path []string) bool {
	// Dynamic-programming-style recursive match with memo-free recursion;
	// pattern/path depths in a project tree are small enough that this is
	// simple and fast in practice.
	return matchFrom(pat, path)
}

func matchFrom(pat, path []string) bool {
	for len(pat) > 0 {
		if pat[0] == "**" {
			// "**" may consume zero or more path segments; try every split.
			rest := pat[1:]
			if len(rest) == 0 {
				return true
			}
			for i := 0; i <= len(path); i++ {
				if matchFrom(rest, path[i:]) {
					return true
				}
			}
			return false
		}
		if len(path) == 0 {
			return false
		}
		ok, err := filepath.Match(pat[0], path[0])
		if err != nil || !ok {
			return false
		}
		pat = pat[1:]
		path = path[1:]
	}
	return len(path) == 0
}

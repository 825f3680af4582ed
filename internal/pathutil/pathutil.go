// Package pathutil provides small path-shaping helpers: turning a project
// root into a short log-friendly abbreviation and into a filesystem-safe
// unique name, which the broadcast package uses as its socket path component.
package pathutil

import (
	"errors"
	"path/filepath"
	"strings"
)

// ErrNoThirdAncestor is returned by Abbreviate when path has fewer than 3
// ancestors to strip, mirroring the source's Unexpected("Getting 3 parent of
// a path") error (spec §7 Unexpected error kind).
var ErrNoThirdAncestor = errors.New("path has no 3rd ancestor")

// Abbreviate returns path relative to its 3rd ancestor directory, a compact
// form suitable for log prefixes (e.g. "/Users/x/dev/MyApp" -> "x/dev/MyApp").
func Abbreviate(path string) (string, error) {
	ancestor, ok := nthAncestor(path, 3)
	if !ok {
		return "", ErrNoThirdAncestor
	}
	rel, err := filepath.Rel(ancestor, path)
	if err != nil {
		return "", err
	}
	return rel, nil
}

// UniqueName derives a filesystem-safe, collision-resistant name for path by
// abbreviating it and replacing path separators with underscores. Falls back
// to a slash-to-underscore transform of the whole path when there aren't 3
// ancestors to abbreviate against (e.g. a root close to "/").
func UniqueName(path string) string {
	clean := filepath.Clean(path)
	if rel, err := Abbreviate(clean); err == nil {
		return strings.ReplaceAll(rel, string(filepath.Separator), "_")
	}
	trimmed := strings.TrimPrefix(filepath.ToSlash(clean), "/")
	return strings.ReplaceAll(trimmed, "/", "_")
}

// nthAncestor walks n directories up from path and reports whether it found
// one (false once it hits the filesystem root before reaching depth n).
func nthAncestor(path string, n int) (string, bool) {
	dir := filepath.Clean(path)
	for range n {
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
	return dir, true
}

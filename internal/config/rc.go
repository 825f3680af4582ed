// Package config implements the daemon's ambient configuration surface: a
// `.xbaserc` key=value file read as a fallback for unset CLI flags, and a
// small JSON-backed store for persisted defaults.
package config

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// rcFileName is the per-directory fallback config file, checked in the
// current working directory and the user's home directory.
const rcFileName = ".xbaserc"

// ReadRC reads `.xbaserc` from the current working directory, falling back
// to the user's home directory, and returns its KEY=VALUE pairs. Grounded
// on the teacher's `platform.ReadRC()` call site in `cmd/axe/preview.go`
// ("Fall back to .axerc for unset flags"); the implementation itself
// wasn't present in the retrieved pack, so the key=value parsing rule is
// inferred from that call site and written in the teacher's error-tolerant
// style — a missing or malformed rc file yields an empty map, never an
// error, since every caller only consults it as an optional fallback.
func ReadRC() map[string]string {
	if vars, ok := readRCFile(rcFileName); ok {
		return vars
	}
	if home, err := os.UserHomeDir(); err == nil {
		if vars, ok := readRCFile(filepath.Join(home, rcFileName)); ok {
			return vars
		}
	}
	return map[string]string{}
}

func readRCFile(path string) (map[string]string, bool) {
	f, err := os.Open(path)
	if err != nil {
		return nil, false
	}
	defer f.Close()

	vars := make(map[string]string)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		vars[strings.TrimSpace(key)] = strings.Trim(strings.TrimSpace(value), `"'`)
	}
	return vars, true
}

package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// storeData is the JSON document persisted by Store.
type storeData struct {
	DefaultSocketDir     string `json:"default_socket_dir"`
	DefaultDebounceMillis int64  `json:"default_debounce_millis"`
}

// Store is a small JSON-backed persisted-defaults file, grounded on the
// teacher's `platform.NewConfigStore()`/`store.GetDefault()` call sites in
// `cmd/internal/platform/simulator.go` (their implementation wasn't present
// in the retrieved pack either, so the shape — a JSON file under the user's
// config directory with a single "default" accessor pair — is inferred
// from those call sites). Here the persisted default is the daemon's
// socket directory rather than a simulator UDID, since this daemon has no
// device concept; a second accessor pair, GetDefaultDebounceWindow/
// SetDefaultDebounceWindow, persists the watch debounce window.
type Store struct {
	path string
	data storeData
}

// NewConfigStore opens (or lazily creates) the daemon's persisted config
// file under the user's config directory.
func NewConfigStore() (*Store, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return nil, err
	}
	path := filepath.Join(dir, "xbase", "config.json")

	s := &Store{path: path}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(data, &s.data); err != nil {
		return nil, err
	}
	return s, nil
}

// GetDefault returns the persisted default socket directory, "" if unset.
func (s *Store) GetDefault() (string, error) {
	return s.data.DefaultSocketDir, nil
}

// SetDefault persists value as the default socket directory.
func (s *Store) SetDefault(value string) error {
	s.data.DefaultSocketDir = value
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	encoded, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, encoded, 0o644)
}

// GetDefaultDebounceWindow returns the persisted default watch debounce
// window, 0 if unset (callers fall back to event.DebounceWindow).
func (s *Store) GetDefaultDebounceWindow() (time.Duration, error) {
	return time.Duration(s.data.DefaultDebounceMillis) * time.Millisecond, nil
}

// SetDefaultDebounceWindow persists value as the default watch debounce
// window.
func (s *Store) SetDefaultDebounceWindow(value time.Duration) error {
	s.data.DefaultDebounceMillis = value.Milliseconds()
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	encoded, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, encoded, 0o644)
}

package config

import (
	"testing"
	"time"
)

func TestStore_SetGetDefaultRoundTrip(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	s, err := NewConfigStore()
	if err != nil {
		t.Fatal(err)
	}
	if got, err := s.GetDefault(); err != nil || got != "" {
		t.Fatalf("GetDefault on fresh store = (%q, %v), want (\"\", nil)", got, err)
	}

	if err := s.SetDefault("/tmp/xbase-sockets"); err != nil {
		t.Fatal(err)
	}
	got, err := s.GetDefault()
	if err != nil {
		t.Fatal(err)
	}
	if got != "/tmp/xbase-sockets" {
		t.Errorf("GetDefault = %q, want /tmp/xbase-sockets", got)
	}

	// A fresh Store instance should see the persisted value.
	s2, err := NewConfigStore()
	if err != nil {
		t.Fatal(err)
	}
	got2, err := s2.GetDefault()
	if err != nil {
		t.Fatal(err)
	}
	if got2 != "/tmp/xbase-sockets" {
		t.Errorf("reloaded GetDefault = %q, want /tmp/xbase-sockets", got2)
	}
}

func TestStore_SetGetDefaultDebounceWindowRoundTrip(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	s, err := NewConfigStore()
	if err != nil {
		t.Fatal(err)
	}
	if got, err := s.GetDefaultDebounceWindow(); err != nil || got != 0 {
		t.Fatalf("GetDefaultDebounceWindow on fresh store = (%v, %v), want (0, nil)", got, err)
	}

	if err := s.SetDefaultDebounceWindow(250 * time.Millisecond); err != nil {
		t.Fatal(err)
	}
	got, err := s.GetDefaultDebounceWindow()
	if err != nil {
		t.Fatal(err)
	}
	if got != 250*time.Millisecond {
		t.Errorf("GetDefaultDebounceWindow = %v, want 250ms", got)
	}

	// A fresh Store instance should see the persisted value.
	s2, err := NewConfigStore()
	if err != nil {
		t.Fatal(err)
	}
	got2, err := s2.GetDefaultDebounceWindow()
	if err != nil {
		t.Fatal(err)
	}
	if got2 != 250*time.Millisecond {
		t.Errorf("reloaded GetDefaultDebounceWindow = %v, want 250ms", got2)
	}
}

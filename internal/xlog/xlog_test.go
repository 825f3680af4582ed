package xlog

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSetup_WritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "xbased.log")

	logger, closeFn, err := Setup(path, slog.LevelInfo, false)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = closeFn() })

	logger.Info("daemon started", "pid", 123)
	_ = closeFn()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "daemon started") {
		t.Errorf("log file missing expected message, got: %s", data)
	}
}

func TestSetup_RespectsLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "xbased.log")

	logger, closeFn, err := Setup(path, slog.LevelWarn, false)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = closeFn() })

	logger.Debug("should not appear")
	logger.Warn("should appear")
	_ = closeFn()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "should not appear") {
		t.Error("expected Debug message to be filtered out at Warn level")
	}
	if !strings.Contains(string(data), "should appear") {
		t.Error("expected Warn message to be logged")
	}
}

func TestSetup_AppendsAcrossCalls(t *testing.T) {
	path := filepath.Join(t.TempDir(), "xbased.log")

	logger1, close1, err := Setup(path, slog.LevelInfo, false)
	if err != nil {
		t.Fatal(err)
	}
	logger1.Info("first")
	_ = close1()

	logger2, close2, err := Setup(path, slog.LevelInfo, false)
	if err != nil {
		t.Fatal(err)
	}
	logger2.Info("second")
	_ = close2()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "first") || !strings.Contains(string(data), "second") {
		t.Errorf("expected both log entries preserved across appends, got: %s", data)
	}
}

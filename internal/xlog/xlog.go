// Package xlog sets up the daemon's process-wide structured logger: a
// dual-layer handler writing to an append-mode log file and, optionally,
// stdout. Grounded on
// _examples/original_source/src/util/tracing_setup.rs's `setup` (the
// `with_stdout` toggle and file/stdout layer pair); no corresponding
// multi-handler exists in the example corpus's logging usage (every pack
// repo that logs structured data uses a single log/slog handler directly),
// so the fan-out itself is a small stdlib log/slog.Handler implementation
// rather than a third-party dependency.
package xlog

import (
	"context"
	"log/slog"
	"os"
)

// Setup opens path in append mode and installs a process-wide slog.Logger
// that always writes to the file and, when withStdout is true, also writes
// to stdout. Returns the logger, a close func for the file, and any open
// error.
func Setup(path string, level slog.Level, withStdout bool) (*slog.Logger, func() error, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}

	opts := &slog.HandlerOptions{Level: level}
	handlers := []slog.Handler{slog.NewTextHandler(f, opts)}
	if withStdout {
		handlers = append(handlers, slog.NewTextHandler(os.Stdout, opts))
	}

	logger := slog.New(newFanOutHandler(handlers))
	slog.SetDefault(logger)
	return logger, f.Close, nil
}

// fanOutHandler dispatches every Handle call to each of its handlers,
// stopping at the first error.
type fanOutHandler struct {
	handlers []slog.Handler
}

func newFanOutHandler(handlers []slog.Handler) *fanOutHandler {
	return &fanOutHandler{handlers: handlers}
}

func (h *fanOutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *fanOutHandler) Handle(ctx context.Context, record slog.Record) error {
	for _, handler := range h.handlers {
		if !handler.Enabled(ctx, record.Level) {
			continue
		}
		if err := handler.Handle(ctx, record.Clone()); err != nil {
			return err
		}
	}
	return nil
}

func (h *fanOutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		next[i] = handler.WithAttrs(attrs)
	}
	return newFanOutHandler(next)
}

func (h *fanOutHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		next[i] = handler.WithGroup(name)
	}
	return newFanOutHandler(next)
}

// Package watch implements the per-project recursive filesystem watcher and
// dispatch loop (spec §4.E): normalize raw fsnotify events, run the
// recompile-on-config-change pre-pass, then evaluate every reactor in the
// project's Watchable Set in insertion order.
package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/xbase-lab/xbase/internal/broadcast"
	"github.com/xbase-lab/xbase/internal/event"
	"github.com/xbase-lab/xbase/internal/ignore"
	"github.com/xbase-lab/xbase/internal/project"
	"github.com/xbase-lab/xbase/internal/watchable"
)

// Service owns one project's OS watcher, dispatcher loop, debounce state,
// and reactor set. Grounded on
// original_source/src/watch/mod.rs's WatchService and on the teacher's
// cmd/internal/preview/shared_watcher.go for the idiomatic Go fsnotify
// dispatch-loop shape (select over Events/Errors/ctx.Done(), debug-logging
// per-directory Add failures).
type Service struct {
	root    string
	session project.Session
	bc      *broadcast.Channel
	reactor *watchable.Set

	watcher *fsnotify.Watcher
	ignore  event.Matcher
	state   *event.InternalState
	window  time.Duration

	logger *slog.Logger
	done   chan struct{}
}

// New constructs a Service for session with the default debounce window,
// recursively registers root with the OS watcher, and spawns the dispatcher
// goroutine. Callers must call Close when the project is torn down.
func New(ctx context.Context, session project.Session, bc *broadcast.Channel, reactors *watchable.Set) (*Service, error) {
	return NewWithDebounceWindow(ctx, session, bc, reactors, event.DebounceWindow)
}

// NewWithDebounceWindow is New with a caller-supplied debounce window,
// plumbed from the daemon's persisted config (internal/config.Store).
func NewWithDebounceWindow(ctx context.Context, session project.Session, bc *broadcast.Channel, reactors *watchable.Set, window time.Duration) (*Service, error) {
	root := session.Root()

	rawMatcher, err := ignore.New(session.Watchignore())
	if err != nil {
		return nil, err
	}
	matcher := &rootRelativeMatcher{root: root, matcher: rawMatcher}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	dirs, err := walkDirs(root)
	if err != nil {
		_ = watcher.Close()
		return nil, err
	}
	logger := slog.Default().With("root", root)
	for _, d := range dirs {
		if err := watcher.Add(d); err != nil {
			logger.Debug("watch: cannot watch directory", "path", d, "err", err)
		}
	}

	s := &Service{
		root:    root,
		session: session,
		bc:      bc,
		reactor: reactors,
		watcher: watcher,
		ignore:  matcher,
		state:   event.NewInternalState(),
		window:  window,
		logger:  logger,
		done:    make(chan struct{}),
	}

	go s.dispatch(ctx)
	return s, nil
}

// Close stops the watcher, which in turn closes its internal channel and
// causes the dispatcher to observe the close and exit; it blocks until the
// dispatcher has returned.
func (s *Service) Close() {
	_ = s.watcher.Close()
	<-s.done
}

// rootRelativeMatcher adapts an *ignore.Matcher to match paths relative to
// root rather than the absolute paths fsnotify events carry, per spec §6's
// "glob patterns evaluated against paths relative to root" (a pattern
// lacking a leading "**", e.g. "Package.swift", would otherwise never match
// an absolute path).
type rootRelativeMatcher struct {
	root    string
	matcher *ignore.Matcher
}

func (m *rootRelativeMatcher) Match(path string) bool {
	rel, err := filepath.Rel(m.root, path)
	if err != nil {
		rel = path
	}
	return m.matcher.Match(rel)
}

// walkDirs lists root and every directory beneath it, for recursive
// fsnotify registration (fsnotify watches are not recursive on their own).
func walkDirs(root string) ([]string, error) {
	var dirs []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			dirs = append(dirs, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dirs, nil
}

// dispatch is the per-project dispatcher loop (spec §4.E). Terminates when
// the watcher's event channel closes (watcher closed, or the project was
// torn down) or the context is cancelled.
func (s *Service) dispatch(ctx context.Context) {
	defer close(s.done)
	defer s.logger.Info("watch: dispatcher exiting")

	for {
		select {
		case <-ctx.Done():
			return

		case raw, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			s.handle(ctx, raw)

		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn("watch: watcher error", "err", err)
		}
	}
}

// handle normalizes one raw event and runs one pass of the dispatch rules
// (spec §4.E steps 2–7).
func (s *Service) handle(ctx context.Context, raw fsnotify.Event) {
	ev, ok := event.NewWithWindow(raw, s.ignore, s.state, s.window)
	if !ok {
		return
	}

	if newDir, err := os.Stat(ev.Path); err == nil && newDir.IsDir() && ev.IsCreateEvent() {
		if err := s.watcher.Add(ev.Path); err != nil {
			s.logger.Debug("watch: cannot watch new directory", "path", ev.Path, "err", err)
		}
	}

	s.recompileOnConfigChange(ctx, ev)

	s.reactor.Dispatch(ctx, ev)

	s.state.UpdateDebounce()
}

// recompileOnConfigChange implements spec §4.E step 3: a Create, Remove, or
// ContentUpdate of the project's definition file, or a Rename whose target
// no longer exists and wasn't already seen, triggers regeneration. Failures
// are surfaced to the editor via Broadcast but never abort the dispatcher.
func (s *Service) recompileOnConfigChange(ctx context.Context, ev event.Event) {
	trigger := s.session.ShouldGenerate(ev)
	if ev.IsRenameEvent() {
		_, statErr := os.Stat(ev.Path)
		targetGone := os.IsNotExist(statErr)
		trigger = targetGone && !ev.Seen
	}
	if !trigger {
		return
	}

	s.bc.Info("recompiling ..")
	if err := s.session.Generate(ctx, s.bc); err != nil {
		s.bc.Error(err.Error())
		s.bc.OpenLogger()
		return
	}
	s.bc.Info("recompiled")
}

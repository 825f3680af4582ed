// Package event normalizes raw filesystem notifications into a small,
// typed event model shared by the watch service and its reactors.
package event

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Kind is the normalized category of a filesystem change.
type Kind int

const (
	// Other covers notifier kinds the daemon doesn't react to.
	Other Kind = iota
	Create
	Remove
	Rename
	ContentUpdate
)

func (k Kind) String() string {
	switch k {
	case Create:
		return "Create"
	case Remove:
		return "Remove"
	case Rename:
		return "Rename"
	case ContentUpdate:
		return "ContentUpdate"
	default:
		return "Other"
	}
}

// Event is a normalized, debounced filesystem event.
type Event struct {
	Path       string
	Kind       Kind
	Seen       bool
	ReceivedAt time.Time
}

// FileName returns the base name of the event's path.
func (e Event) FileName() string { return filepath.Base(e.Path) }

// PathOf returns the event's path, mirroring the source's path() accessor.
func (e Event) PathOf() string { return e.Path }

func (e Event) IsCreateEvent() bool        { return e.Kind == Create }
func (e Event) IsRemoveEvent() bool        { return e.Kind == Remove }
func (e Event) IsRenameEvent() bool        { return e.Kind == Rename }
func (e Event) IsContentUpdateEvent() bool { return e.Kind == ContentUpdate }

// DebounceWindow is the default window within which a repeated event on the
// same path is considered "seen" rather than a fresh occurrence.
const DebounceWindow = 100 * time.Millisecond

// Matcher reports whether a path should be ignored.
type Matcher interface {
	Match(path string) bool
}

// InternalState tracks the most recently processed event, guarded by its own
// mutex (never held across suspension points — see spec §5 locking
// discipline).
type InternalState struct {
	mu       sync.Mutex
	debounce time.Time
	lastPath string
}

// NewInternalState returns a fresh debounce state with no last path and its
// debounce stamp set to now.
func NewInternalState() *InternalState {
	return &InternalState{debounce: time.Now()}
}

// UpdateDebounce stamps the processed time to now. Called once per
// dispatcher iteration, after all reactors have run.
func (s *InternalState) UpdateDebounce() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.debounce = time.Now()
}

// LastRun returns how long has elapsed since the last UpdateDebounce call.
func (s *InternalState) LastRun() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Since(s.debounce)
}

// snapshot reads (lastPath, debounce) and then records path as the new
// lastPath, returning whether path equals the previous lastPath within the
// debounce window. It does not advance debounce itself; UpdateDebounce does
// that once per dispatcher iteration.
func (s *InternalState) snapshot(path string, now time.Time, window time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := path == s.lastPath && now.Sub(s.debounce) < window
	s.lastPath = path
	return seen
}

// New normalizes a raw fsnotify event using the given ignore matcher and
// debounce state. Returns (Event{}, false) when the event should be dropped
// (ignored path, or a notifier kind the daemon doesn't react to).
func New(raw fsnotify.Event, ignore Matcher, state *InternalState) (Event, bool) {
	return newAt(raw, ignore, state, time.Now(), DebounceWindow)
}

// NewWithWindow is New with a caller-supplied debounce window, used when the
// daemon's persisted config (internal/config.Store.GetDefaultDebounceWindow)
// overrides the DebounceWindow default.
func NewWithWindow(raw fsnotify.Event, ignore Matcher, state *InternalState, window time.Duration) (Event, bool) {
	return newAt(raw, ignore, state, time.Now(), window)
}

// newAt is New with an injectable clock and window, used by tests that need
// deterministic debounce timing.
func newAt(raw fsnotify.Event, ignore Matcher, state *InternalState, now time.Time, window time.Duration) (Event, bool) {
	path := firstPath(raw.Name)
	if ignore != nil && ignore.Match(path) {
		return Event{}, false
	}

	kind := fromOp(raw.Op)
	if kind == Other {
		return Event{}, false
	}

	var seen bool
	if state != nil {
		seen = state.snapshot(path, now, window)
	}

	return Event{
		Path:       path,
		Kind:       kind,
		Seen:       seen,
		ReceivedAt: now,
	}, true
}

// firstPath collapses a possibly multi-path raw event by taking the first
// path (fsnotify itself only ever carries one Name, but this keeps the
// normalization rule explicit and testable).
func firstPath(name string) string {
	return name
}

// fromOp maps fsnotify's operation bitmask to a single normalized Kind,
// preferring the most semantically specific bit when more than one is set.
func fromOp(op fsnotify.Op) Kind {
	switch {
	case op.Has(fsnotify.Create):
		return Create
	case op.Has(fsnotify.Remove):
		return Remove
	case op.Has(fsnotify.Rename):
		return Rename
	case op.Has(fsnotify.Write) || op.Has(fsnotify.Chmod):
		return ContentUpdate
	default:
		return Other
	}
}

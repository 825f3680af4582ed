// Package watchable implements the per-project collection of named reactive
// jobs a Watch Service drives on every normalized filesystem event (spec
// §4.D): build triggers, run triggers, project-regeneration triggers, each
// exposing should_trigger/should_discard/trigger/discard.
package watchable

import (
	"context"
	"log/slog"
	"sync"

	"github.com/xbase-lab/xbase/internal/event"
)

// Reactor is a named reactive job attached to a project's Watch Service.
// Set.Dispatch calls all four operations from the project's dispatcher
// goroutine, one event at a time, and holds no lock while doing so: neither
// the Set's own mutex nor the registry's.
//
// Re-architected from the source's `Box<dyn Watchable>` trait-object set
// into a plain interface set (spec §9 REDESIGN FLAGS): Go has no
// async-trait-object equivalent, and a synchronous interface called in
// sequence maps directly onto the dispatcher's
// "⏸ Evaluate ... ⏸ run ..." step sequence without needing its own
// concurrency primitives.
type Reactor interface {
	// Key returns the reactor's stable identity within a Set.
	Key() string

	// ShouldTrigger reports whether ev warrants running Trigger. Pure.
	ShouldTrigger(ev event.Event) bool

	// ShouldDiscard reports whether ev warrants removing this reactor from
	// its Set after Discard runs. Pure.
	ShouldDiscard(ev event.Event) bool

	// Trigger runs the reactive action. Errors are logged by the caller,
	// never propagated to abort the dispatcher loop.
	Trigger(ctx context.Context, ev event.Event) error

	// Discard releases any resources the reactor holds.
	Discard(ctx context.Context) error
}

// entry pairs a Reactor with its position, so Set can preserve insertion
// order without relying on Go's unordered map iteration.
type entry struct {
	key     string
	reactor Reactor
}

// Set is an insertion-ordered map of Reactors keyed by their stable string
// key. Inserting a duplicate key replaces the prior reactor and logs a
// warning (spec §4.D).
//
// Every method takes the Set's own mutex, so a Set may be used from several
// goroutines; Dispatch releases it before calling into reactors.
type Set struct {
	mu      sync.Mutex
	order   []string
	entries map[string]Reactor
	logger  *slog.Logger
}

// NewSet returns an empty reactor set.
func NewSet(logger *slog.Logger) *Set {
	if logger == nil {
		logger = slog.Default()
	}
	return &Set{
		entries: make(map[string]Reactor),
		logger:  logger,
	}
}

// Put inserts or replaces the reactor under its own Key(). A replacement
// keeps the original insertion position and logs a warning.
func (s *Set) Put(r Reactor) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := r.Key()
	if _, exists := s.entries[key]; exists {
		s.logger.Warn("watchable: replacing reactor with duplicate key", "key", key)
		s.entries[key] = r
		return
	}
	s.entries[key] = r
	s.order = append(s.order, key)
}

// Remove deletes the reactor keyed by key, if present.
func (s *Set) Remove(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(key)
}

func (s *Set) removeLocked(key string) {
	if _, ok := s.entries[key]; !ok {
		return
	}
	delete(s.entries, key)
	for i, k := range s.order {
		if k == key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Len reports the number of reactors currently in the set.
func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

// Snapshot returns the set's reactors in insertion order. The dispatcher
// (§4.E step 5) iterates this snapshot rather than the live set so that a
// Trigger/Discard call mutating the set mid-pass (e.g. Put-ing a new
// reactor) can't corrupt the in-progress iteration.
func (s *Set) Snapshot() []entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]entry, 0, len(s.order))
	for _, key := range s.order {
		out = append(out, entry{key: key, reactor: s.entries[key]})
	}
	return out
}

// Dispatch runs one pass of §4.E step 5 over the set: for each reactor in
// insertion order, discard-then-remove takes priority over trigger. Trigger
// and Discard errors are logged, never returned, matching the dispatcher's
// "logging but not propagating errors" rule.
func (s *Set) Dispatch(ctx context.Context, ev event.Event) {
	for _, e := range s.Snapshot() {
		if e.reactor.ShouldDiscard(ev) {
			if err := e.reactor.Discard(ctx); err != nil {
				s.logger.Error("watchable: discard failed", "key", e.key, "err", err)
			}
			s.Remove(e.key)
			continue
		}
		if e.reactor.ShouldTrigger(ev) {
			if err := e.reactor.Trigger(ctx, ev); err != nil {
				s.logger.Error("watchable: trigger failed", "key", e.key, "err", err)
			}
		}
	}
}

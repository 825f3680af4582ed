// Package registry implements the process-wide Project Registry (spec
// §4.G): a single exclusive-locked map from canonicalized project root to
// its live Project Session, Broadcast Channel, Watch Service, and Watchable
// Set, ref-counted by attached editor client.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/xbase-lab/xbase/internal/broadcast"
	"github.com/xbase-lab/xbase/internal/event"
	"github.com/xbase-lab/xbase/internal/project"
	"github.com/xbase-lab/xbase/internal/watch"
	"github.com/xbase-lab/xbase/internal/watchable"
)

// entry is one registered project's live state.
type entry struct {
	root       string
	session    project.Session
	bc         *broadcast.Channel
	reactors   *watchable.Set
	watcher    *watch.Service
	numClients int
}

// Registry is the daemon's single exclusive-locked project map. Grounded on
// original_source/src/watch/mod.rs's DAEMON_STATE global-lock idiom (spec
// §9): one lock guards the whole map, held only across in-memory
// bookkeeping, never across the external process calls Project Session
// construction makes.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry

	// inflight collapses concurrent Register calls racing to construct the
	// same not-yet-registered root: Session construction shells out to
	// swift/xcodegen and must not run twice concurrently for one root.
	inflight singleflight.Group

	sockDir string
	logger  *slog.Logger

	// debounceWindow overrides each project's Watch Service debounce window
	// when non-zero; set via SetDebounceWindow from the daemon's persisted
	// config (internal/config.Store.GetDefaultDebounceWindow).
	debounceWindow time.Duration

	// newSession builds a Project Session for a root; overridden in tests to
	// avoid shelling out to the real swift/xcodegen toolchain.
	newSession func(ctx context.Context, root string, bc *broadcast.Channel) (project.Session, error)
}

// New returns an empty Registry. sockDir is the daemon-owned temp directory
// under which each project's Broadcast socket is allocated.
func New(sockDir string) *Registry {
	return newWithSessionFactory(sockDir, func(ctx context.Context, root string, bc *broadcast.Channel) (project.Session, error) {
		return project.New(ctx, root, bc, nil)
	})
}

// newWithSessionFactory is New with an injectable Session constructor.
func newWithSessionFactory(sockDir string, factory func(ctx context.Context, root string, bc *broadcast.Channel) (project.Session, error)) *Registry {
	return &Registry{
		entries:    make(map[string]*entry),
		sockDir:    sockDir,
		logger:     slog.Default(),
		newSession: factory,
	}
}

// SetDebounceWindow overrides the debounce window every subsequently
// constructed project's Watch Service uses; a zero duration restores the
// event.DebounceWindow default.
func (r *Registry) SetDebounceWindow(window time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.debounceWindow = window
}

// Register canonicalizes root and either bumps an existing entry's client
// count and returns its broadcast address, or constructs a fresh Project
// Session, Broadcast Channel, and Watch Service for it (spec §4.G
// `register`).
func (r *Registry) Register(ctx context.Context, root string) (string, error) {
	root, err := canonicalize(root)
	if err != nil {
		return "", fmt.Errorf("registry: canonicalizing %s: %w", root, err)
	}

	if addr, ok := r.bumpExisting(root); ok {
		return addr, nil
	}

	v, err, _ := r.inflight.Do(root, func() (any, error) {
		return r.construct(ctx, root)
	})
	if err != nil {
		return "", err
	}
	e := v.(*entry)

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.entries[root]; ok {
		existing.numClients++
		return existing.bc.Address(), nil
	}
	e.numClients = 1
	r.entries[root] = e
	return e.bc.Address(), nil
}

// bumpExisting increments an already-registered root's client count and
// returns its address, or (_, false) if root isn't registered yet.
func (r *Registry) bumpExisting(root string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[root]
	if !ok {
		return "", false
	}
	e.numClients++
	return e.bc.Address(), true
}

// construct builds a fresh entry's Session, Broadcast Channel, Watchable
// Set, and Watch Service. Never touches r.entries — callers insert once
// construct returns, under r.mu (spec §4.G "construct ... insert").
func (r *Registry) construct(ctx context.Context, root string) (*entry, error) {
	bc, err := broadcast.New(root, r.sockDir)
	if err != nil {
		return nil, fmt.Errorf("registry: broadcast channel for %s: %w", root, err)
	}

	session, err := r.newSession(ctx, root, bc)
	if err != nil {
		bc.Abort()
		return nil, err
	}

	reactors := watchable.NewSet(r.logger)
	r.mu.Lock()
	window := r.debounceWindow
	r.mu.Unlock()
	if window <= 0 {
		window = event.DebounceWindow
	}
	watcher, err := watch.NewWithDebounceWindow(ctx, session, bc, reactors, window)
	if err != nil {
		bc.Abort()
		return nil, fmt.Errorf("registry: watch service for %s: %w", root, err)
	}

	return &entry{
		root:     root,
		session:  session,
		bc:       bc,
		reactors: reactors,
		watcher:  watcher,
	}, nil
}

// Unregister decrements root's client count; once it reaches zero the
// Watch Service is stopped and the Broadcast Channel aborted concurrently,
// and the entry is removed (spec §4.G `unregister`). Returns an error if
// root isn't registered.
func (r *Registry) Unregister(root string) error {
	root, err := canonicalize(root)
	if err != nil {
		return fmt.Errorf("registry: canonicalizing %s: %w", root, err)
	}

	r.mu.Lock()
	e, ok := r.entries[root]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("registry: root not registered: %s", root)
	}
	e.numClients--
	if e.numClients > 0 {
		r.mu.Unlock()
		return nil
	}
	delete(r.entries, root)
	r.mu.Unlock()

	var eg errgroup.Group
	eg.Go(func() error {
		e.watcher.Close()
		return nil
	})
	eg.Go(func() error {
		e.bc.Abort()
		return nil
	})
	return eg.Wait()
}

// Get looks up root's live Session (spec §4.G `get`/`get_mut` — a single
// accessor suffices in Go since Session's methods already guard their own
// mutable state).
func (r *Registry) Get(root string) (project.Session, bool) {
	root, err := canonicalize(root)
	if err != nil {
		return nil, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[root]
	if !ok {
		return nil, false
	}
	return e.session, true
}

// Reactors returns root's Watchable Set, so callers can register build/run
// reactors against an already-registered project.
func (r *Registry) Reactors(root string) (*watchable.Set, bool) {
	root, err := canonicalize(root)
	if err != nil {
		return nil, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[root]
	if !ok {
		return nil, false
	}
	return e.reactors, true
}

// NumClients reports root's current ref count, 0 if unregistered.
func (r *Registry) NumClients(root string) int {
	root, err := canonicalize(root)
	if err != nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[root]
	if !ok {
		return 0
	}
	return e.numClients
}

// canonicalize resolves root to an absolute, symlink-resolved path so that
// two different spellings of the same directory register as one project.
func canonicalize(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}
	return abs, nil
}

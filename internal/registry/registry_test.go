package registry

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/xbase-lab/xbase/internal/broadcast"
	"github.com/xbase-lab/xbase/internal/event"
	"github.com/xbase-lab/xbase/internal/project"
)

// fakeSession is a minimal project.Session stand-in so registry tests never
// need a real Swift/Xcode toolchain.
type fakeSession struct {
	root string
}

func (s *fakeSession) Root() string                            { return s.root }
func (s *fakeSession) Name() string                             { return "Fake" }
func (s *fakeSession) Targets() map[string]project.TargetInfo   { return nil }
func (s *fakeSession) NumClients() int                          { return 1 }
func (s *fakeSession) IncrClients() int                         { return 1 }
func (s *fakeSession) DecrClients() int                         { return 0 }
func (s *fakeSession) Watchignore() []string                    { return nil }
func (s *fakeSession) ShouldGenerate(ev event.Event) bool        { return false }
func (s *fakeSession) Generate(ctx context.Context, bc *broadcast.Channel) error {
	return nil
}
func (s *fakeSession) Build(ctx context.Context, cfg project.BuildConfig, device *project.Device, bc *broadcast.Channel) ([]string, <-chan bool, error) {
	return nil, nil, nil
}
func (s *fakeSession) GetRunner(ctx context.Context, cfg project.BuildConfig, device *project.Device, bc *broadcast.Channel) (project.Runner, []string, <-chan bool, error) {
	return nil, nil, nil, nil
}
func (s *fakeSession) UpdateCompileDatabase(ctx context.Context, bc *broadcast.Channel) error {
	return nil
}

func newTestRegistry(t *testing.T) (*Registry, *int32) {
	t.Helper()
	var constructCalls int32
	r := newWithSessionFactory(t.TempDir(), func(ctx context.Context, root string, bc *broadcast.Channel) (project.Session, error) {
		atomic.AddInt32(&constructCalls, 1)
		return &fakeSession{root: root}, nil
	})
	return r, &constructCalls
}

func TestRegistry_RegisterNewProjectReturnsAddress(t *testing.T) {
	r, _ := newTestRegistry(t)
	root := t.TempDir()

	addr, err := r.Register(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}
	if addr == "" {
		t.Error("expected non-empty broadcast address")
	}
	if got := r.NumClients(root); got != 1 {
		t.Errorf("NumClients = %d, want 1", got)
	}
	if err := r.Unregister(root); err != nil {
		t.Fatal(err)
	}
}

func TestRegistry_RegisterSameRootIncrementsRefCount(t *testing.T) {
	r, calls := newTestRegistry(t)
	root := t.TempDir()

	addr1, err := r.Register(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}
	addr2, err := r.Register(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}
	if addr1 != addr2 {
		t.Errorf("expected same address across registrations, got %q and %q", addr1, addr2)
	}
	if got := r.NumClients(root); got != 2 {
		t.Errorf("NumClients = %d, want 2", got)
	}
	if atomic.LoadInt32(calls) != 1 {
		t.Errorf("expected session constructed exactly once, got %d", *calls)
	}

	if err := r.Unregister(root); err != nil {
		t.Fatal(err)
	}
	if got := r.NumClients(root); got != 1 {
		t.Errorf("NumClients after one unregister = %d, want 1", got)
	}
	if err := r.Unregister(root); err != nil {
		t.Fatal(err)
	}
	if _, ok := r.Get(root); ok {
		t.Error("expected root removed from registry once ref count reaches zero")
	}
}

func TestRegistry_UnregisterUnknownRootErrors(t *testing.T) {
	r, _ := newTestRegistry(t)
	if err := r.Unregister(t.TempDir()); err == nil {
		t.Fatal("expected error unregistering a root that was never registered")
	}
}

func TestRegistry_ConcurrentRegisterSameRootConstructsOnce(t *testing.T) {
	r, calls := newTestRegistry(t)
	root := t.TempDir()

	const n = 8
	var wg sync.WaitGroup
	addrs := make([]string, n)
	errs := make([]error, n)
	for i := range n {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			addrs[i], errs[i] = r.Register(context.Background(), root)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("Register[%d]: %v", i, err)
		}
		if addrs[i] != addrs[0] {
			t.Errorf("Register[%d] address = %q, want %q", i, addrs[i], addrs[0])
		}
	}
	if got := r.NumClients(root); got != n {
		t.Errorf("NumClients = %d, want %d", got, n)
	}
	if atomic.LoadInt32(calls) != 1 {
		t.Errorf("expected session constructed exactly once under concurrent registration, got %d", *calls)
	}
}

func TestRegistry_GetReturnsRegisteredSession(t *testing.T) {
	r, _ := newTestRegistry(t)
	root := t.TempDir()
	if _, err := r.Register(context.Background(), root); err != nil {
		t.Fatal(err)
	}
	session, ok := r.Get(root)
	if !ok {
		t.Fatal("expected Get to find the registered session")
	}
	if session.Name() != "Fake" {
		t.Errorf("Name() = %q, want Fake", session.Name())
	}
}

func TestRegistry_SetDebounceWindowKeptAcrossRegister(t *testing.T) {
	r, _ := newTestRegistry(t)
	r.SetDebounceWindow(250 * time.Millisecond)

	root := t.TempDir()
	if _, err := r.Register(context.Background(), root); err != nil {
		t.Fatal(err)
	}
	defer r.Unregister(root)

	if got := r.debounceWindow; got != 250*time.Millisecond {
		t.Errorf("debounceWindow = %v, want 250ms", got)
	}
}

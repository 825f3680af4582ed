// Package project implements the per-project typed session (spec §4.F):
// the Xcode and Swift-package variants, target metadata, platform parsing,
// and the build/run/generate capability set a Watch Service's reactors call
// into.
package project

import (
	"context"

	"github.com/xbase-lab/xbase/internal/broadcast"
	"github.com/xbase-lab/xbase/internal/event"
)

// TargetInfo is a build target's platform and ordered configuration list.
type TargetInfo struct {
	Platform       Platform
	Configurations []string
}

// BuildConfig selects what to build: a target name and configuration.
type BuildConfig struct {
	Target        string
	Configuration string
}

// Device is the external collaborator's resolved run destination (a
// simulator or physical device identifier). Spec §1 places the concrete
// simulator/device automation out of scope; Device is carried through
// Build/GetRunner purely so the control-flow shape matches the source's
// `Option<&Device>` parameter.
type Device struct {
	ID       string
	Platform Platform
}

// Runner represents a built artifact that can be launched, e.g. a Swift
// executable's binary path. Booting a simulator or installing an app onto
// a device is out of scope (spec §1 Non-goals); Runner only models running
// an already-resolved local binary.
type Runner interface {
	Run(ctx context.Context) error
}

// Session is the common capability set both project variants implement,
// re-architected from the source's five separate
// ProjectData/ProjectBuild/ProjectRun/ProjectCompile/ProjectGenerate traits
// into one interface (spec §9 REDESIGN FLAGS): a single mutex-guarded
// struct per variant avoids holding `&mut self` state across suspension
// points the way Rust's single-threaded executor could get away with.
type Session interface {
	// Root returns the project's canonicalized root path (immutable).
	Root() string

	// Name is the human-readable project name.
	Name() string

	// Targets returns a snapshot of the current target → TargetInfo map.
	Targets() map[string]TargetInfo

	// NumClients returns the current attached-editor count.
	NumClients() int

	// IncrClients increments the attached-editor count and returns the new
	// value.
	IncrClients() int

	// DecrClients decrements the attached-editor count and returns the new
	// value; never goes below zero.
	DecrClients() int

	// Watchignore returns the ordered glob pattern list.
	Watchignore() []string

	// ShouldGenerate reports whether ev should trigger regeneration: Create,
	// Remove, Rename, or a ContentUpdate of the variant's configuration
	// file.
	ShouldGenerate(ev event.Event) bool

	// Generate runs the variant's generator, streams its output through the
	// Task Runner, and reloads metadata on success. Emits
	// StatuslineProcessing at start and Success/Failure at end.
	Generate(ctx context.Context, bc *broadcast.Channel) error

	// Build returns the argv the variant would run plus a channel yielding
	// the build's success signal.
	Build(ctx context.Context, cfg BuildConfig, device *Device, bc *broadcast.Channel) ([]string, <-chan bool, error)

	// GetRunner resolves a Runner for cfg/device, in addition to Build's
	// return values.
	GetRunner(ctx context.Context, cfg BuildConfig, device *Device, bc *broadcast.Channel) (Runner, []string, <-chan bool, error)

	// UpdateCompileDatabase refreshes the variant's compile-commands
	// database; a no-op for Swift packages.
	UpdateCompileDatabase(ctx context.Context, bc *broadcast.Channel) error
}

// defaultWatchignore is the ignore list applied to newly constructed
// sessions of either variant: build output, VCS metadata, and the
// generated Xcode project wrapper, none of which should re-trigger
// regeneration or reactors when written to by the tools this daemon itself
// invokes.
var defaultWatchignore = []string{
	"**/.build/**",
	"**/.git/**",
	"**/.swiftpm/**",
	"**/*.xcodeproj/**",
}

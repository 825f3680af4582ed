package project

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/xbase-lab/xbase/internal/broadcast"
	"github.com/xbase-lab/xbase/internal/event"
	"github.com/xbase-lab/xbase/internal/task"
)

var _ Session = (*SwiftPackageProject)(nil)

// swiftBinary is the Swift toolchain entry point, hard-coded exactly as
// original_source/src/project/swift.rs hard-codes "/usr/bin/swift".
const swiftBinary = "/usr/bin/swift"

// SwiftPackageProject is the Session variant for a root containing a
// Package.swift manifest, grounded on
// original_source/src/project/swift.rs's SwiftProject.
type SwiftPackageProject struct {
	mu sync.Mutex

	root        string
	name        string
	targets     map[string]TargetInfo
	numClients  int
	watchignore []string

	runner *task.Runner
	output OutputRunner
}

// NewSwiftPackageProject constructs a Session for root (spec §4.F `new`):
// if <root>/.build does not exist, runs an initial `generate` (which
// invokes `swift build`); otherwise loads metadata directly via `swift
// package dump-package`.
func NewSwiftPackageProject(ctx context.Context, root string, bc *broadcast.Channel, runner *task.Runner, output OutputRunner) (*SwiftPackageProject, error) {
	if runner == nil {
		runner = task.NewRunner(nil)
	}
	if output == nil {
		output = execOutputRunner{}
	}

	p := &SwiftPackageProject{
		root:        root,
		watchignore: append([]string(nil), defaultWatchignore...),
		numClients:  1,
		targets:     make(map[string]TargetInfo),
		runner:      runner,
		output:      output,
	}

	if _, err := os.Stat(filepath.Join(root, ".build")); os.IsNotExist(err) {
		if err := p.Generate(ctx, bc); err != nil {
			return nil, err
		}
		return p, nil
	}

	if err := p.updateProjectInfo(ctx); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *SwiftPackageProject) Root() string { return p.root }

func (p *SwiftPackageProject) Name() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.name
}

func (p *SwiftPackageProject) Targets() map[string]TargetInfo {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]TargetInfo, len(p.targets))
	for k, v := range p.targets {
		out[k] = v
	}
	return out
}

func (p *SwiftPackageProject) NumClients() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.numClients
}

func (p *SwiftPackageProject) IncrClients() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.numClients++
	return p.numClients
}

func (p *SwiftPackageProject) DecrClients() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.numClients > 0 {
		p.numClients--
	}
	return p.numClients
}

func (p *SwiftPackageProject) Watchignore() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.watchignore...)
}

// ShouldGenerate mirrors SwiftProject::should_generate exactly: a
// ContentUpdate only counts when it targets Package.swift; Create, Remove,
// and Rename always count regardless of path.
func (p *SwiftPackageProject) ShouldGenerate(ev event.Event) bool {
	isConfigFileUpdate := ev.IsContentUpdateEvent() && ev.FileName() == "Package.swift"
	return isConfigFileUpdate || ev.IsCreateEvent() || ev.IsRemoveEvent() || ev.IsRenameEvent()
}

// Generate runs `swift build`, then reloads metadata on success.
func (p *SwiftPackageProject) Generate(ctx context.Context, bc *broadcast.Channel) error {
	bc.UpdateStatusline(broadcast.StatuslineProcessing)

	success := <-p.runner.Run(ctx, bc, swiftBinary, "build")
	if !success {
		bc.UpdateStatusline(broadcast.StatuslineFailure)
		return &GenerateError{Detail: "swift build failed"}
	}

	if err := p.updateProjectInfo(ctx); err != nil {
		bc.UpdateStatusline(broadcast.StatuslineFailure)
		return err
	}

	bc.UpdateStatusline(broadcast.StatuslineSuccess)
	return nil
}

// Build returns the `swift build --target <target>` argv and a running
// success channel.
func (p *SwiftPackageProject) Build(ctx context.Context, cfg BuildConfig, device *Device, bc *broadcast.Channel) ([]string, <-chan bool, error) {
	args := []string{"build", "--target", cfg.Target}
	done := p.runner.Run(ctx, bc, swiftBinary, args...)
	return args, done, nil
}

// GetRunner builds, then probes `swift build --show-bin-path` to resolve
// the target's compiled binary, mirroring SwiftProject::get_runner.
func (p *SwiftPackageProject) GetRunner(ctx context.Context, cfg BuildConfig, device *Device, bc *broadcast.Channel) (Runner, []string, <-chan bool, error) {
	args, done, err := p.Build(ctx, cfg, device, bc)
	if err != nil {
		return nil, nil, nil, err
	}

	stdout, stderr, err := p.output.Output(ctx, p.root, swiftBinary, "build", "--show-bin-path")
	if err != nil {
		bc.OpenLogger()
		return nil, nil, nil, &RunError{Detail: fmt.Sprintf("getting target bin path failed: %s", stderr)}
	}

	binPath := filepath.Join(strings.TrimSpace(string(stdout)), cfg.Target)
	return BinRunner{Path: binPath}, args, done, nil
}

// UpdateCompileDatabase is a no-op for Swift packages (SwiftPM has no
// separate compile-commands step).
func (p *SwiftPackageProject) UpdateCompileDatabase(ctx context.Context, bc *broadcast.Channel) error {
	return nil
}

// dumpPackageOutput is the subset of `swift package dump-package`'s JSON
// this daemon reads: the package name, its target list (filtering out
// "test" targets), and its declared platform constraints (spec §9 open
// question (a): consulted to pick a non-macOS default target platform when
// the manifest declares one).
type dumpPackageOutput struct {
	Name    string `json:"name"`
	Targets []struct {
		Name string `json:"name"`
		Type string `json:"type"`
	} `json:"targets"`
	Platforms []struct {
		PlatformName string `json:"platformName"`
	} `json:"platforms"`
}

// updateProjectInfo reads Package.swift via `swift package dump-package`
// and refreshes name/targets, mirroring SwiftProject::update_project_info.
func (p *SwiftPackageProject) updateProjectInfo(ctx context.Context) error {
	stdout, stderr, err := p.output.Output(ctx, p.root, swiftBinary, "package", "dump-package")
	if err != nil {
		return &DefinitionParsingError{Detail: string(stderr)}
	}

	var dump dumpPackageOutput
	if err := json.Unmarshal(stdout, &dump); err != nil {
		return &DefinitionParsingError{Detail: err.Error()}
	}
	if dump.Name == "" {
		return &DefinitionParsingError{Detail: "expected package name field is missing"}
	}

	platform := manifestPlatform(dump.Platforms)

	targets := make(map[string]TargetInfo, len(dump.Targets))
	for _, t := range dump.Targets {
		if t.Type == "test" {
			continue
		}
		targets[t.Name] = TargetInfo{
			Platform:       platform,
			Configurations: []string{"Debug"},
		}
	}

	p.mu.Lock()
	p.name = dump.Name
	p.targets = targets
	p.mu.Unlock()
	return nil
}

// manifestPlatform picks the variant's default target platform: macOS
// unless the manifest's `platforms:` array declares an iOS/watchOS/tvOS
// constraint, in which case that takes precedence (spec §9 open question
// (a) — a superset of the source's hard-coded macOS default).
func manifestPlatform(platforms []struct {
	PlatformName string `json:"platformName"`
}) Platform {
	for _, decl := range platforms {
		switch decl.PlatformName {
		case "ios":
			return PlatformIOS
		case "watchos":
			return PlatformWatchOS
		case "tvos":
			return PlatformTvOS
		}
	}
	return PlatformMacOS
}

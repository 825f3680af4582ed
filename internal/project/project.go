package project

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xbase-lab/xbase/internal/broadcast"
	"github.com/xbase-lab/xbase/internal/task"
)

// New inspects root and constructs the matching Session variant: a
// SwiftPackageProject if Package.swift is present, an XcodeProject if
// project.yml is present. Grounded on the registry's "construct a Project
// Session" step (spec §4.G) needing a single entry point that doesn't care
// which variant a root turns out to be.
func New(ctx context.Context, root string, bc *broadcast.Channel, runner *task.Runner) (Session, error) {
	return newWithOutput(ctx, root, bc, runner, execOutputRunner{})
}

// newWithOutput is New with an injectable OutputRunner, used by tests that
// need to avoid invoking the real swift toolchain.
func newWithOutput(ctx context.Context, root string, bc *broadcast.Channel, runner *task.Runner, output OutputRunner) (Session, error) {
	if runner == nil {
		runner = task.NewRunner(nil)
	}

	if _, err := os.Stat(filepath.Join(root, "Package.swift")); err == nil {
		return NewSwiftPackageProject(ctx, root, bc, runner, output)
	}
	if _, err := os.Stat(filepath.Join(root, "project.yml")); err == nil {
		return NewXcodeProject(ctx, root, bc, runner)
	}
	return nil, &DefinitionParsingError{Detail: fmt.Sprintf("no Package.swift or project.yml found under %s", root)}
}

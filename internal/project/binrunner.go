package project

import (
	"context"
	"os/exec"
)

// BinRunner launches an already-built executable at Path, the Swift-package
// variant's Runner (original_source/src/project/swift.rs's BinRunner).
type BinRunner struct {
	Path string
}

// Run executes the binary, inheriting the daemon's environment, and blocks
// until it exits or ctx is cancelled.
func (r BinRunner) Run(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, r.Path)
	return cmd.Run()
}

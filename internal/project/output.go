package project

import (
	"bytes"
	"context"
	"os/exec"
)

// OutputRunner runs a short-lived external process to completion and
// captures its stdout/stderr, the seam used for non-streamed probes like
// `swift package dump-package` and `swift build --show-bin-path` (as
// opposed to internal/task.Runner, which streams a long-running build's
// output line-by-line into the Broadcast Channel).
type OutputRunner interface {
	Output(ctx context.Context, dir, name string, args ...string) (stdout, stderr []byte, err error)
}

// execOutputRunner is the production OutputRunner backed by os/exec.
type execOutputRunner struct{}

func (execOutputRunner) Output(ctx context.Context, dir, name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// Package task spawns external build/run tools and streams their stdout and
// stderr into a project's Broadcast Channel as classified log messages (spec
// §4.H).
package task

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/xbase-lab/xbase/internal/broadcast"
)

// CmdRunner is the narrow surface Runner needs from a running child process,
// grounded on the teacher's `idb.CmdRunner` dependency-injection seam
// (cmd/internal/idb/companion_test.go's fakeCmd) so tests can substitute a
// fake process without touching os/exec.
type CmdRunner interface {
	StdoutPipe() (io.ReadCloser, error)
	StderrPipe() (io.ReadCloser, error)
	Start() error
	Wait() error
}

// Commander constructs CmdRunners, mirroring the teacher's fakeCommander
// seam (`Command(name string, args ...string) CmdRunner`).
type Commander interface {
	Command(ctx context.Context, name string, args ...string) CmdRunner
}

// execCommander is the production Commander backed by os/exec.
type execCommander struct{}

// DefaultCommander runs real child processes via os/exec.
var DefaultCommander Commander = execCommander{}

func (execCommander) Command(ctx context.Context, name string, args ...string) CmdRunner {
	return exec.CommandContext(ctx, name, args...)
}

// Runner spawns one external process per Run call and streams its output.
type Runner struct {
	commander Commander
}

// NewRunner returns a Runner using commander to spawn processes. A nil
// commander uses DefaultCommander.
func NewRunner(commander Commander) *Runner {
	if commander == nil {
		commander = DefaultCommander
	}
	return &Runner{commander: commander}
}

// Run spawns name(argv...), streams its stdout/stderr line-by-line as
// Broadcast log messages, and returns a single-value channel yielding true
// on a successful exit, false otherwise. The channel always receives
// exactly one value and is then closed.
//
// Each output line is classified Error if it was read from stderr, or by
// scanning the line case-insensitively for "error" (→ Error) or "warn"
// (→ Warn), defaulting to Info (spec §4.H).
func (r *Runner) Run(ctx context.Context, bc *broadcast.Channel, name string, argv ...string) <-chan bool {
	done := make(chan bool, 1)
	cmd := r.commander.Command(ctx, name, argv...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		bc.LogError("task: " + name + ": " + err.Error())
		done <- false
		close(done)
		return done
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		bc.LogError("task: " + name + ": " + err.Error())
		done <- false
		close(done)
		return done
	}

	if err := cmd.Start(); err != nil {
		bc.LogError("task: " + name + ": " + err.Error())
		done <- false
		close(done)
		return done
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go streamLines(&wg, bc, stdout, false)
	go streamLines(&wg, bc, stderr, true)

	go func() {
		wg.Wait()
		err := cmd.Wait()
		success := err == nil
		if success {
			bc.LogInfo("Success")
		} else {
			bc.LogError("Exit " + exitCode(err))
		}
		done <- success
		close(done)
	}()

	return done
}

// streamLines scans r line-by-line, forwarding each as a classified Log
// message, until EOF or a read error.
func streamLines(wg *sync.WaitGroup, bc *broadcast.Channel, r io.ReadCloser, isStderr bool) {
	defer wg.Done()
	defer r.Close()

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		bc.Send(broadcast.Log(line, classify(line, isStderr)))
	}
}

// classify picks a MessageLevel for a streamed output line: stderr lines are
// always Error; stdout lines are Error/Warn if they contain those substrings
// case-insensitively, else Info.
func classify(line string, isStderr bool) broadcast.MessageLevel {
	if isStderr {
		return broadcast.LevelError
	}
	lower := strings.ToLower(line)
	switch {
	case strings.Contains(lower, "error"):
		return broadcast.LevelError
	case strings.Contains(lower, "warn"):
		return broadcast.LevelWarn
	default:
		return broadcast.LevelInfo
	}
}

// exitCode extracts a child process's numeric exit code from its Wait
// error, falling back to "1" when err is not an *exec.ExitError. A process
// killed by a signal reports "-1", as exec.ExitError.ExitCode does.
func exitCode(err error) string {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return strconv.Itoa(exitErr.ExitCode())
	}
	return "1"
}

package task

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/xbase-lab/xbase/internal/broadcast"
)

// fakeCmd implements CmdRunner for testing, mirroring the teacher's
// cmd/internal/idb/companion_test.go fakeCmd/fakeCommander pattern.
type fakeCmd struct {
	stdoutW *io.PipeWriter
	stderrW *io.PipeWriter
	stdoutR *io.PipeReader
	stderrR *io.PipeReader
	waitErr error
}

func newFakeCmd(waitErr error) *fakeCmd {
	outR, outW := io.Pipe()
	errR, errW := io.Pipe()
	return &fakeCmd{stdoutW: outW, stderrW: errW, stdoutR: outR, stderrR: errR, waitErr: waitErr}
}

func (f *fakeCmd) StdoutPipe() (io.ReadCloser, error) { return f.stdoutR, nil }
func (f *fakeCmd) StderrPipe() (io.ReadCloser, error) { return f.stderrR, nil }
func (f *fakeCmd) Start() error                       { return nil }
func (f *fakeCmd) Wait() error                        { return f.waitErr }

type fakeCommander struct {
	cmd CmdRunner
}

func (fc *fakeCommander) Command(ctx context.Context, name string, args ...string) CmdRunner {
	return fc.cmd
}

func newTestChannel(t *testing.T) (*broadcast.Channel, *bufio.Reader) {
	t.Helper()
	ch, err := broadcast.New("/Users/me/dev/Example", t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(ch.Abort)

	var conn net.Conn
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		conn, err = net.Dial("unix", ch.Address())
		if err == nil {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if conn == nil {
		t.Fatalf("dial broadcast socket: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return ch, bufio.NewReader(conn)
}

func readLogText(t *testing.T, r *bufio.Reader) (string, broadcast.MessageLevel) {
	t.Helper()
	line, err := r.ReadBytes('\n')
	if err != nil {
		t.Fatalf("read message: %v", err)
	}
	var msg broadcast.Message
	if err := json.Unmarshal(line, &msg); err != nil {
		t.Fatalf("unmarshal %s: %v", line, err)
	}
	return msg.Text(), msg.Level()
}

func TestRunner_StreamsClassifiedOutput(t *testing.T) {
	cmd := newFakeCmd(nil)
	runner := NewRunner(&fakeCommander{cmd: cmd})
	bc, r := newTestChannel(t)

	done := runner.Run(context.Background(), bc, "swift", "build")

	go func() {
		_, _ = cmd.stdoutW.Write([]byte("Compiling sources\n"))
		_, _ = cmd.stdoutW.Write([]byte("error: something broke\n"))
		_ = cmd.stdoutW.Close()
		_, _ = cmd.stderrW.Write([]byte("low level diagnostic\n"))
		_ = cmd.stderrW.Close()
	}()

	text1, level1 := readLogText(t, r)
	text2, level2 := readLogText(t, r)
	text3, level3 := readLogText(t, r)

	got := map[string]broadcast.MessageLevel{text1: level1, text2: level2, text3: level3}

	if lvl, ok := got["Compiling sources"]; !ok || lvl != broadcast.LevelInfo {
		t.Errorf("expected plain stdout line at Info, got %v ok=%v", lvl, ok)
	}
	if lvl, ok := got["error: something broke"]; !ok || lvl != broadcast.LevelError {
		t.Errorf("expected stdout 'error' line at Error, got %v ok=%v", lvl, ok)
	}
	if lvl, ok := got["low level diagnostic"]; !ok || lvl != broadcast.LevelError {
		t.Errorf("expected stderr line to always classify Error, got %v ok=%v", lvl, ok)
	}

	terminal, terminalLevel := readLogText(t, r)
	if terminal != "Success" || terminalLevel != broadcast.LevelInfo {
		t.Errorf("expected terminal Success/Info message, got %q/%v", terminal, terminalLevel)
	}

	select {
	case ok := <-done:
		if !ok {
			t.Error("expected Run to report success")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for Run to complete")
	}
}

func TestRunner_WarnClassification(t *testing.T) {
	cmd := newFakeCmd(nil)
	runner := NewRunner(&fakeCommander{cmd: cmd})
	bc, r := newTestChannel(t)

	runner.Run(context.Background(), bc, "swift", "build")

	go func() {
		_, _ = cmd.stdoutW.Write([]byte("WARNING: deprecated API\n"))
		_ = cmd.stdoutW.Close()
		_ = cmd.stderrW.Close()
	}()

	text, level := readLogText(t, r)
	if text != "WARNING: deprecated API" || level != broadcast.LevelWarn {
		t.Errorf("expected Warn classification, got %q/%v", text, level)
	}
}

func TestRunner_ExitFailureReportsExitCode(t *testing.T) {
	cmd := newFakeCmd(&exec.ExitError{})
	runner := NewRunner(&fakeCommander{cmd: cmd})
	bc, r := newTestChannel(t)

	done := runner.Run(context.Background(), bc, "swift", "build")

	go func() {
		_ = cmd.stdoutW.Close()
		_ = cmd.stderrW.Close()
	}()

	text, level := readLogText(t, r)
	if level != broadcast.LevelError {
		t.Errorf("expected terminal failure message at Error, got %v", level)
	}
	if !strings.HasPrefix(text, "Exit ") {
		t.Errorf("expected an \"Exit <code>\" failure message, got %q", text)
	}

	select {
	case ok := <-done:
		if ok {
			t.Error("expected Run to report failure")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for Run to complete")
	}
}

func TestRunner_StdoutPipeErrorFailsFast(t *testing.T) {
	bc, r := newTestChannel(t)
	runner := NewRunner(&fakeCommander{cmd: &erroringCmd{err: errors.New("boom")}})

	// Run logs the pipe error synchronously, and the channel drops messages
	// until its accept loop has registered the dialed connection.
	time.Sleep(100 * time.Millisecond)

	done := runner.Run(context.Background(), bc, "swift", "build")

	select {
	case ok := <-done:
		if ok {
			t.Error("expected failure when StdoutPipe errors")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out")
	}
	_, _ = r.ReadBytes('\n')
}

type erroringCmd struct{ err error }

func (e *erroringCmd) StdoutPipe() (io.ReadCloser, error) { return nil, e.err }
func (e *erroringCmd) StderrPipe() (io.ReadCloser, error) { return nil, e.err }
func (e *erroringCmd) Start() error                       { return nil }
func (e *erroringCmd) Wait() error                        { return nil }

// Package broadcast implements the per-project, many-producer/one-consumer
// message bus that streams Notify/Log/Execute messages to a connected editor
// over a Unix-domain socket (spec §4.C).
package broadcast

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/xbase-lab/xbase/internal/pathutil"
)

// state is the Channel's connection state machine:
// Idle → Listening → Connected ↔ Disconnected → Aborted (terminal).
type state int32

const (
	stateIdle state = iota
	stateListening
	stateConnected
	stateDisconnected
	stateAborted
)

func (s state) String() string {
	switch s {
	case stateIdle:
		return "Idle"
	case stateListening:
		return "Listening"
	case stateConnected:
		return "Connected"
	case stateDisconnected:
		return "Disconnected"
	case stateAborted:
		return "Aborted"
	default:
		return "Unknown"
	}
}

// queueCapacity bounds the producer→writer channel. Sends beyond capacity
// are dropped (never block the producer), per spec §4.C / §9.
const queueCapacity = 256

// separatorRule is the dotted rule log_step/log_separator print around step
// headers, pinned from original_source/src/broadcast/helpers.rs
// (`".".repeat(73)`).
const separatorRule = "........................................................................."

// Channel is a per-project outbound message bus to a single connected
// editor, backed by a Unix-domain socket.
type Channel struct {
	root string
	addr string

	listener *net.UnixListener

	msgs chan Message

	mu    sync.Mutex
	conn  net.Conn
	state atomic.Int32

	abortOnce sync.Once
	abortCh   chan struct{}
	writerDone chan struct{}
	acceptDone chan struct{}

	logger *slog.Logger
}

// New creates a Channel for root, allocating a socket path under sockDir
// (a daemon-owned temp directory) unique to root, and starts listening.
func New(root, sockDir string) (*Channel, error) {
	if err := os.MkdirAll(sockDir, 0o755); err != nil {
		return nil, fmt.Errorf("broadcast: creating socket directory: %w", err)
	}

	name := pathutil.UniqueName(root) + "-" + strconv.Itoa(os.Getpid()) + ".sock"
	addr := filepath.Join(sockDir, name)
	_ = os.Remove(addr) // clear a stale socket left by a crashed prior daemon

	listener, err := net.ListenUnix("unix", &net.UnixAddr{Name: addr, Net: "unix"})
	if err != nil {
		return nil, fmt.Errorf("broadcast: listening on %s: %w", addr, err)
	}
	_ = os.Chmod(addr, 0o600)

	c := &Channel{
		root:       root,
		addr:       addr,
		listener:   listener,
		msgs:       make(chan Message, queueCapacity),
		abortCh:    make(chan struct{}),
		writerDone: make(chan struct{}),
		acceptDone: make(chan struct{}),
		logger:     slog.Default().With("root", root),
	}
	c.state.Store(int32(stateListening))

	go c.acceptLoop()
	go c.writeLoop()

	return c, nil
}

// Address returns the socket path the editor should connect to.
func (c *Channel) Address() string { return c.addr }

// Root returns the project root this channel serves.
func (c *Channel) Root() string { return c.root }

// Abort cooperatively stops accepting connections and terminates the writer.
// Idempotent and terminal: subsequent sends are silently dropped.
func (c *Channel) Abort() {
	c.abortOnce.Do(func() {
		c.state.Store(int32(stateAborted))
		close(c.abortCh)
		_ = c.listener.Close()
		c.mu.Lock()
		if c.conn != nil {
			_ = c.conn.Close()
			c.conn = nil
		}
		c.mu.Unlock()
		<-c.acceptDone
		<-c.writerDone
		_ = os.Remove(c.addr)
	})
}

func (c *Channel) currentState() state { return state(c.state.Load()) }

func (c *Channel) acceptLoop() {
	defer close(c.acceptDone)
	for {
		conn, err := c.listener.Accept()
		if err != nil {
			return
		}
		c.mu.Lock()
		if c.conn != nil {
			_ = c.conn.Close()
		}
		c.conn = conn
		c.mu.Unlock()
		c.state.Store(int32(stateConnected))
		go c.watchForDisconnect(conn)
	}
}

// watchForDisconnect blocks on a zero-byte Read, which on a stream socket
// only returns once the peer has closed its end (the editor never writes to
// this socket; it only reads). On EOF/error, the channel falls back to
// Disconnected and keeps listening for a reconnect.
func (c *Channel) watchForDisconnect(conn net.Conn) {
	buf := make([]byte, 1)
	_, _ = conn.Read(buf)

	c.mu.Lock()
	isCurrent := c.conn == conn
	if isCurrent {
		c.conn = nil
	}
	c.mu.Unlock()

	if isCurrent && c.currentState() != stateAborted {
		c.state.Store(int32(stateDisconnected))
	}
}

func (c *Channel) writeLoop() {
	defer close(c.writerDone)
	var activeConn net.Conn

	flushTo := func(conn net.Conn, msg Message) bool {
		data, err := json.Marshal(msg)
		if err != nil {
			c.logger.Error("broadcast: marshal message", "err", err)
			return false
		}
		data = append(data, '\n')
		if _, err := conn.Write(data); err != nil {
			return false
		}
		return true
	}

	for {
		select {
		case <-c.abortCh:
			return
		case msg, ok := <-c.msgs:
			if !ok {
				return
			}
			if c.currentState() != stateConnected {
				continue // drop: only Connected drains the queue
			}
			c.mu.Lock()
			activeConn = c.conn
			c.mu.Unlock()
			if activeConn == nil {
				continue
			}
			if !flushTo(activeConn, msg) {
				c.mu.Lock()
				if c.conn == activeConn {
					c.conn = nil
				}
				c.mu.Unlock()
				if c.currentState() != stateAborted {
					c.state.Store(int32(stateDisconnected))
				}
			}
		}
	}
}

// Send enqueues msg for delivery, silently dropping it if the queue is full
// or the channel isn't currently connected. Never blocks the caller.
func (c *Channel) Send(msg Message) {
	select {
	case c.msgs <- msg:
	default:
	}
}

// Producer API (spec §4.C), matching original_source/src/broadcast/helpers.rs.

func (c *Channel) Info(msg string) {
	c.logger.Info(msg)
	c.Send(Notify(msg, LevelInfo))
}

func (c *Channel) Warn(msg string) {
	c.logger.Warn(msg)
	c.Send(Notify(msg, LevelWarn))
}

func (c *Channel) Error(msg string) {
	c.logger.Error(msg)
	c.Send(Notify(msg, LevelError))
}

func (c *Channel) Trace(msg string) {
	c.logger.Debug(msg, "trace", true)
	c.Send(Notify(msg, LevelTrace))
}

func (c *Channel) Debug(msg string) {
	c.logger.Debug(msg)
	c.Send(Notify(msg, LevelDebug))
}

func (c *Channel) Success(msg string) {
	c.logger.Info(msg)
	c.Send(Notify(msg, LevelSuccess))
}

func (c *Channel) LogInfo(msg string)  { c.Send(Log(msg, LevelInfo)) }
func (c *Channel) LogError(msg string) { c.logger.Error(msg); c.Send(Log(msg, LevelError)) }
func (c *Channel) LogWarn(msg string)  { c.logger.Warn(msg); c.Send(Log(msg, LevelWarn)) }
func (c *Channel) LogTrace(msg string) { c.Send(Log(msg, LevelTrace)) }
func (c *Channel) LogDebug(msg string) { c.Send(Log(msg, LevelDebug)) }

func (c *Channel) UpdateStatusline(s StatuslineState) { c.Send(Execute(UpdateStatusline(s))) }
func (c *Channel) OpenLogger()                        { c.Send(Execute(OpenLogger())) }
func (c *Channel) ReloadLspServer()                   { c.Send(Execute(ReloadLspServer())) }

// LogStep emits a header line followed by the 73-dot separator rule.
func (c *Channel) LogStep(msg string) {
	c.Send(Log(msg, LevelInfo))
	c.Send(Log(separatorRule, LevelInfo))
}

// LogSeparator emits the bare 73-dot separator rule.
func (c *Channel) LogSeparator() {
	c.logger.Info(separatorRule)
	c.Send(Log(separatorRule, LevelInfo))
}

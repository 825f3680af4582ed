package control

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"os"
	"sync"
)

// Registrar is the subset of the Project Registry the control server needs.
// Kept as a narrow local interface so this package doesn't import
// internal/registry directly.
type Registrar interface {
	Register(ctx context.Context, root string) (address string, err error)
	Unregister(root string) error
}

// Server is the Registration RPC listener. Listener lifecycle (stale-socket
// removal before listening, one worker goroutine per accepted connection,
// clean unlink on Shutdown) is grounded on
// _examples/git-ecosystem-trace2receiver/rcvr_unixsocket.go's
// Rcvr_UnixSocket, adapted from its OTel-receiver framing to this package's
// length-delimited JSON request/response protocol.
type Server struct {
	registrar Registrar
	logger    *slog.Logger

	socketPath string
	listener   *net.UnixListener

	mu       sync.Mutex
	shutdown bool

	acceptDone chan struct{}
	wg         sync.WaitGroup
}

// NewServer constructs a Server bound to socketPath, not yet listening.
func NewServer(registrar Registrar, socketPath string) *Server {
	return &Server{
		registrar:  registrar,
		logger:     slog.Default().With("component", "control"),
		socketPath: socketPath,
		acceptDone: make(chan struct{}),
	}
}

// Listen opens the control socket and starts accepting connections in the
// background. The caller must eventually call Shutdown.
func (s *Server) Listen() error {
	_ = os.Remove(s.socketPath)

	listener, err := net.ListenUnix("unix", &net.UnixAddr{Name: s.socketPath, Net: "unix"})
	if err != nil {
		return err
	}
	_ = os.Chmod(s.socketPath, 0o600)
	s.listener = listener

	go s.acceptLoop()
	return nil
}

// Address returns the control socket's path.
func (s *Server) Address() string { return s.socketPath }

func (s *Server) acceptLoop() {
	defer close(s.acceptDone)
	for {
		conn, err := s.listener.AcceptUnix()
		if err != nil {
			s.mu.Lock()
			shuttingDown := s.shutdown
			s.mu.Unlock()
			if shuttingDown || errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Error("control: accept", "err", err)
			continue
		}
		s.wg.Add(1)
		go s.serve(conn)
	}
}

func (s *Server) serve(conn *net.UnixConn) {
	defer s.wg.Done()
	defer conn.Close()

	for {
		req, err := readRequest(conn)
		if err != nil {
			return
		}
		resp := s.handle(req)
		if err := writeResponse(conn, resp); err != nil {
			return
		}
	}
}

func (s *Server) handle(req Request) Response {
	switch req.Op {
	case OpRegister:
		addr, err := s.registrar.Register(context.Background(), req.Root)
		if err != nil {
			return Response{Error: err.Error()}
		}
		return Response{Address: addr}
	case OpUnregister:
		if err := s.registrar.Unregister(req.Root); err != nil {
			return Response{Error: err.Error()}
		}
		return Response{}
	default:
		return Response{Error: "control: unknown op " + string(req.Op)}
	}
}

// Shutdown stops accepting new connections, unlinks the socket file, and
// waits for in-flight request handlers to return.
func (s *Server) Shutdown() error {
	s.mu.Lock()
	s.shutdown = true
	s.mu.Unlock()

	_ = os.Remove(s.socketPath)
	err := s.listener.Close()
	<-s.acceptDone
	s.wg.Wait()
	return err
}

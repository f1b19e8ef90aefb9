// Package tcpserver serves the MBAP-framed Modbus PDU over concurrent TCP
// client sessions, sharing a single devicememory.Memory.
package tcpserver

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ladderforge/plcsim/devicememory"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Server accepts concurrent client sessions, frames MBAP+PDU, and dispatches
// to the shared Memory via pdu.Process.
type Server struct {
	cfg Config
	mem *devicememory.Memory
	log *zap.Logger

	mu       sync.Mutex
	state    State
	listener net.Listener
	shutdown chan struct{}
	sem      *semaphore.Weighted
	group    *errgroup.Group
	registry *connRegistry
}

func New(cfg Config, mem *devicememory.Memory, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	cfg = cfg.WithDefaults()
	return &Server{
		cfg:      cfg,
		mem:      mem,
		log:      log,
		state:    Stopped,
		registry: newConnRegistry(),
	}
}

// Status is a snapshot of server state for the command channel.
type Status struct {
	State       State
	Connections []ConnectionInfo
}

func (s *Server) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{State: s.state, Connections: s.registry.snapshot()}
}

// Start transitions Stopped -> Starting -> Running and launches the accept
// loop. Calling Start while already Running returns AlreadyRunning.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.state != Stopped {
		s.mu.Unlock()
		return errAlreadyRunning
	}
	s.state = Starting
	s.mu.Unlock()

	addr := fmt.Sprintf("%s:%d", s.cfg.BindAddress, s.cfg.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		s.mu.Lock()
		s.state = Stopped
		s.mu.Unlock()
		return fmt.Errorf("listen %s: %w", addr, err)
	}

	s.mu.Lock()
	s.listener = listener
	s.shutdown = make(chan struct{})
	s.sem = semaphore.NewWeighted(s.cfg.MaxConnections)
	s.group = &errgroup.Group{}
	s.state = Running
	s.mu.Unlock()

	s.log.Info("tcp server listening", zap.String("addr", addr), zap.Int64("maxConnections", s.cfg.MaxConnections))
	go s.acceptLoop()
	return nil
}

// Stop signals the accept loop and in-flight sessions to exit, waits up to
// drainTimeout, then force-clears the connection registry. On timeout it
// returns ShutdownTimeout but still completes the stop (best-effort).
func (s *Server) Stop() error {
	s.mu.Lock()
	if s.state != Running {
		s.mu.Unlock()
		return errNotRunning
	}
	s.state = Stopping
	close(s.shutdown)
	listener := s.listener
	group := s.group
	s.mu.Unlock()

	_ = listener.Close()

	done := make(chan struct{})
	go func() {
		_ = group.Wait()
		close(done)
	}()

	var timedOut bool
	select {
	case <-done:
	case <-time.After(drainTimeout):
		timedOut = true
	}

	s.mu.Lock()
	s.registry.clear()
	s.state = Stopped
	s.mu.Unlock()

	s.log.Info("tcp server stopped", zap.Bool("timedOut", timedOut))
	if timedOut {
		return errShutdownTimeout
	}
	return nil
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.shutdown:
				return
			default:
				s.log.Warn("accept error", zap.Error(err))
				return
			}
		}

		if !s.sem.TryAcquire(1) {
			// spec §4.4/§9: accept-then-close so the peer learns quickly,
			// rather than holding off on accepting.
			_ = conn.Close()
			continue
		}

		info := ConnectionInfo{
			SessionID:   uuid.New(),
			PeerAddress: conn.RemoteAddr().String(),
			ConnectedAt: time.Now(),
		}
		s.registry.add(info)
		s.group.Go(func() error {
			defer s.sem.Release(1)
			defer s.registry.remove(info.SessionID)
			s.handleSession(conn, info)
			return nil
		})
	}
}

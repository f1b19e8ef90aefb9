// Package rtuserver serves the CRC-framed Modbus PDU across a single serial
// line, sharing a devicememory.Memory with the TCP server.
package rtuserver

import (
	"sync"
	"time"

	"github.com/ladderforge/plcsim/devicememory"
	"github.com/ladderforge/plcsim/pdu"
	"go.uber.org/zap"
)

type Server struct {
	cfg Config
	mem *devicememory.Memory
	log *zap.Logger

	mu       sync.Mutex
	state    State
	port     *serialPort
	shutdown chan struct{}
	done     chan struct{}
}

func New(cfg Config, mem *devicememory.Memory, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{cfg: cfg.WithDefaults(), mem: mem, log: log, state: Stopped}
}

func (s *Server) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start opens the serial port and launches the RTU loop. AlreadyRunning if
// called while Running.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.state != Stopped {
		s.mu.Unlock()
		return errAlreadyRunning
	}
	s.mu.Unlock()

	port, err := openSerialPort(s.cfg)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.port = port
	s.shutdown = make(chan struct{})
	s.done = make(chan struct{})
	s.state = Running
	s.mu.Unlock()

	s.log.Info("rtu server listening",
		zap.String("port", s.cfg.ComPort),
		zap.Int("baud", s.cfg.BaudRate),
		zap.Duration("interFrameDelay", s.cfg.interFrameDelay()),
	)
	go s.loop()
	return nil
}

// Stop aborts the loop, closes the port, and waits for the loop goroutine to
// exit. NotRunning if called while Stopped.
func (s *Server) Stop() error {
	s.mu.Lock()
	if s.state != Running {
		s.mu.Unlock()
		return errNotRunning
	}
	close(s.shutdown)
	port := s.port
	done := s.done
	s.mu.Unlock()

	<-done
	_ = port.close()

	s.mu.Lock()
	s.state = Stopped
	s.mu.Unlock()
	s.log.Info("rtu server stopped")
	return nil
}

func (s *Server) loop() {
	defer close(s.done)

	var buf []byte
	readBuf := make([]byte, 256)
	for {
		select {
		case <-s.shutdown:
			return
		default:
		}

		n, err := s.port.read(readBuf)
		if err != nil {
			s.log.Warn("rtu read error, pausing", zap.Error(err))
			time.Sleep(10 * time.Millisecond)
			continue
		}

		if n == 0 {
			if len(buf) > 0 {
				s.dispatchFrame(buf)
				buf = nil
			}
			continue
		}

		buf = append(buf, readBuf[:n]...)
	}
}

// dispatchFrame validates length and CRC, drops silently on any structural
// failure or unit mismatch, and answers unless the frame was a broadcast.
func (s *Server) dispatchFrame(frame []byte) {
	resp, ok := processRTUFrame(frame, s.cfg.UnitID, s.mem)
	if !ok {
		return
	}
	if err := s.port.write(resp); err != nil {
		s.log.Warn("rtu write failed", zap.Error(err))
	}
}

// processRTUFrame is the pure core of the RTU loop: validate framing and
// CRC, dispatch to pdu.Process, and build the CRC-framed response. It
// returns ok=false whenever nothing should be written back (malformed
// frame, unit mismatch, or broadcast).
func processRTUFrame(frame []byte, unitID byte, mem *devicememory.Memory) ([]byte, bool) {
	if len(frame) < 4 || !verifyCRC(frame) {
		return nil, false
	}

	addr := frame[0]
	if addr != unitID && addr != 0 {
		return nil, false
	}

	body := frame[1 : len(frame)-2]
	respPDU := pdu.Process(body[0], body[1:], mem, devicememory.External)

	if addr == 0 {
		return nil, false
	}

	return appendCRC(append([]byte{addr}, respPDU...)), true
}

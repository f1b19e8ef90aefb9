// Package scanengine runs a pluggable scan-cycle writer against shared
// device memory on a fixed interval. Ladder-logic evaluation semantics are
// not part of this core; NoOp demonstrates the concurrency contract a real
// evaluator would plug into.
package scanengine

import (
	"sync"
	"time"

	"github.com/ladderforge/plcsim/devicememory"
	"go.uber.org/zap"
)

// ScanEngine is driven once per scan interval by ScanScheduler. Any writes
// an engine performs must be tagged source=Internal.
type ScanEngine interface {
	Tick(mem *devicememory.Memory)
}

// NoOp satisfies ScanEngine without touching memory. It is the shipped
// default until a ladder-logic evaluator is wired in.
type NoOp struct{}

func (NoOp) Tick(*devicememory.Memory) {}

// ScanScheduler runs an engine's Tick on a fixed interval until Stop.
type ScanScheduler struct {
	engine   ScanEngine
	mem      *devicememory.Memory
	interval time.Duration
	log      *zap.Logger

	mu       sync.Mutex
	running  bool
	shutdown chan struct{}
	done     chan struct{}
}

func NewScanScheduler(engine ScanEngine, mem *devicememory.Memory, interval time.Duration, log *zap.Logger) *ScanScheduler {
	if log == nil {
		log = zap.NewNop()
	}
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	return &ScanScheduler{engine: engine, mem: mem, interval: interval, log: log}
}

func (s *ScanScheduler) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.shutdown = make(chan struct{})
	s.done = make(chan struct{})
	s.mu.Unlock()

	go s.loop()
}

func (s *ScanScheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	close(s.shutdown)
	done := s.done
	s.mu.Unlock()

	<-done

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

func (s *ScanScheduler) loop() {
	defer close(s.done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.shutdown:
			return
		case <-ticker.C:
			s.engine.Tick(s.mem)
		}
	}
}

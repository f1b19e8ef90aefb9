// Package scenario replays a time-ordered sequence of writes against a
// devicememory.Memory, driven by a min-heap scheduler keyed on event time.
package scenario

import (
	"container/heap"
	"sync"
	"time"

	"github.com/ladderforge/plcsim/devicememory"
	"github.com/ladderforge/plcsim/plcerr"
	"go.uber.org/zap"
)

// pollInterval bounds how long the dispatch loop sleeps between rechecking
// pause/cancel/jump state; it does not affect event timing accuracy beyond
// this granularity.
const pollInterval = 10 * time.Millisecond

var (
	errAlreadyRunning = plcerr.New(plcerr.CodeAlreadyRunning, "scenario executor is already running")
	errNotRunning     = plcerr.New(plcerr.CodeNotRunning, "scenario executor is not running")
)

// Executor drives one Scenario's events against a shared Memory.
type Executor struct {
	mem *devicememory.Memory
	log *zap.Logger

	mu          sync.Mutex
	scenario    *Scenario
	status      Status
	startTime   time.Time
	pauseStart  time.Time
	pausedTotal time.Duration
	loopIndex   int
	heap        *eventHeap

	cancel chan struct{}
	done   chan struct{}
}

func New(scn *Scenario, mem *devicememory.Memory, log *zap.Logger) *Executor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Executor{mem: mem, log: log, scenario: scn, status: Idle}
}

func (e *Executor) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// Start launches the dispatch loop from Idle or Completed. AlreadyRunning if
// called while Running or Paused.
func (e *Executor) Start() error {
	e.mu.Lock()
	if e.status == Running || e.status == Paused {
		e.mu.Unlock()
		return errAlreadyRunning
	}
	e.status = Running
	e.startTime = time.Now()
	e.pausedTotal = 0
	e.loopIndex = 0
	e.heap = buildHeap(e.scenario.Events, -1)
	e.cancel = make(chan struct{})
	e.done = make(chan struct{})
	e.mu.Unlock()

	go e.run()
	return nil
}

// Stop cancels the dispatch loop and waits for it to exit.
func (e *Executor) Stop() error {
	e.mu.Lock()
	if e.status != Running && e.status != Paused {
		e.mu.Unlock()
		return errNotRunning
	}
	close(e.cancel)
	done := e.done
	e.mu.Unlock()

	<-done

	e.mu.Lock()
	e.status = Idle
	e.mu.Unlock()
	return nil
}

// Pause freezes the schedule's wall-clock progression; Resume continues it
// where it left off.
func (e *Executor) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.status != Running {
		return errNotRunning
	}
	e.status = Paused
	e.pauseStart = time.Now()
	return nil
}

func (e *Executor) Resume() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.status != Paused {
		return errNotRunning
	}
	e.pausedTotal += time.Since(e.pauseStart)
	e.status = Running
	return nil
}

// Jump repositions the schedule so elapsedRunning() reports timeSeconds, and
// rebuilds the heap with only events strictly in the future relative to
// that position.
func (e *Executor) Jump(timeSeconds float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.startTime = time.Now().Add(-time.Duration(timeSeconds * float64(time.Second)))
	e.pausedTotal = 0
	if e.status == Paused {
		e.pauseStart = time.Now()
	}
	if e.heap != nil {
		e.heap = buildHeap(e.scenario.Events, timeSeconds)
	}
}

// elapsedRunning reports time elapsed since Start/loop-reset, excluding any
// time spent Paused. Caller must hold e.mu.
func (e *Executor) elapsedRunning() time.Duration {
	if e.status == Paused {
		return e.pauseStart.Sub(e.startTime) - e.pausedTotal
	}
	return time.Since(e.startTime) - e.pausedTotal
}

func (e *Executor) run() {
	defer close(e.done)

	for {
		e.mu.Lock()
		empty := e.heap.Len() == 0
		e.mu.Unlock()

		if empty {
			if e.handleExhaustion() {
				e.mu.Lock()
				e.heap = buildHeap(e.scenario.Events, -1)
				e.mu.Unlock()
				continue
			}
			e.mu.Lock()
			e.status = Completed
			e.mu.Unlock()
			return
		}

		e.mu.Lock()
		targetSeconds := (*e.heap)[0].event.TimeSeconds
		e.mu.Unlock()

		if !e.waitUntil(targetSeconds) {
			return
		}

		e.mu.Lock()
		if e.heap.Len() == 0 {
			e.mu.Unlock()
			continue
		}
		top := (*e.heap)[0]
		if top.event.TimeSeconds > e.elapsedRunning().Seconds()+1e-9 {
			// Jump moved the target out from under us; re-evaluate.
			e.mu.Unlock()
			continue
		}
		heap.Pop(e.heap)
		e.mu.Unlock()

		e.applyEvent(top.event)
	}
}

// waitUntil blocks until elapsedRunning() reaches targetSeconds, or returns
// false if cancelled. It polls in small increments so Pause/Resume/Jump
// (which change the elapsed-time computation) are honored promptly.
func (e *Executor) waitUntil(targetSeconds float64) bool {
	for {
		e.mu.Lock()
		remaining := time.Duration(targetSeconds*float64(time.Second)) - e.elapsedRunning()
		cancel := e.cancel
		e.mu.Unlock()

		if remaining <= 0 {
			return true
		}
		wait := remaining
		if wait > pollInterval {
			wait = pollInterval
		}

		select {
		case <-cancel:
			return false
		case <-time.After(wait):
		}
	}
}

// handleExhaustion runs when the heap has drained. It returns true if the
// loop should refill and continue (looping), false if it should complete.
func (e *Executor) handleExhaustion() bool {
	e.mu.Lock()
	settings := e.scenario.Settings
	cancel := e.cancel
	e.mu.Unlock()

	if !settings.LoopEnabled {
		return false
	}

	e.mu.Lock()
	more := settings.LoopCount == 0 || e.loopIndex+1 < settings.LoopCount
	e.mu.Unlock()
	if !more {
		return false
	}

	if settings.LoopDelay > 0 {
		select {
		case <-cancel:
			return false
		case <-time.After(settings.LoopDelay):
		}
	}

	e.mu.Lock()
	e.loopIndex++
	e.startTime = time.Now()
	e.pausedTotal = 0
	e.mu.Unlock()
	return true
}

func (e *Executor) applyEvent(evt Event) {
	log := e.log.With(zap.Int("eventId", evt.ID), zap.Float64("time", evt.TimeSeconds))
	var err error
	switch evt.Target.Bank {
	case devicememory.Coils, devicememory.DiscreteInputs:
		err = e.mem.WriteBit(evt.Target.Bank, evt.Target.Offset, evt.Value != 0, devicememory.Internal)
	default:
		err = e.mem.WriteWord(evt.Target.Bank, evt.Target.Offset, evt.Value, devicememory.Internal)
	}
	if err != nil {
		log.Warn("scenario write rejected", zap.Error(err))
		return
	}
	log.Debug("scenario event applied")
}

package devicememory

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// ChangeEvent is an observer notification of a single mutated cell. It is
// only ever emitted when Old != New.
type ChangeEvent struct {
	Bank    Bank
	Address uint16
	Old     uint16
	New     uint16
	Source  Source
}

// BatchChangeEvent is an ordered sequence of ChangeEvent produced by a
// single multi-element write, preserving ascending address order.
type BatchChangeEvent []ChangeEvent

// ChangeBus fans out mutations to a single best-effort subscriber, coalescing
// the per-cell emissions of a multi-write into one BatchChangeEvent.
//
// begin/end batch is re-entrant: a nested begin just bumps the depth counter,
// and only the outermost end drains the buffer. This lets a multi-write call
// write-one internally without each cell's emission escaping as its own
// notification.
type ChangeBus struct {
	mu      sync.Mutex
	depth   int
	buffer  []ChangeEvent
	ch      chan any

	log         *zap.Logger
	dropMu      sync.Mutex
	lastDropLog time.Time
}

// defaultChangeBufferSize bounds the best-effort subscriber channel; once
// full, the oldest pending notification is dropped rather than blocking the
// writer that triggered it.
const defaultChangeBufferSize = 256

// dropLogInterval rate-limits the drop-oldest warning to at most once per
// interval, so a subscriber that falls permanently behind doesn't flood logs.
const dropLogInterval = time.Second

func NewChangeBus(log *zap.Logger) *ChangeBus {
	if log == nil {
		log = zap.NewNop()
	}
	return &ChangeBus{ch: make(chan any, defaultChangeBufferSize), log: log}
}

// Subscribe returns the channel of ChangeEvent | BatchChangeEvent values.
// There is only ever one subscriber; callers that want fan-out must do it
// themselves downstream of this channel.
func (c *ChangeBus) Subscribe() <-chan any {
	return c.ch
}

func (c *ChangeBus) beginBatch() {
	c.mu.Lock()
	c.depth++
	c.mu.Unlock()
}

func (c *ChangeBus) endBatch() {
	c.mu.Lock()
	c.depth--
	var drained []ChangeEvent
	if c.depth == 0 && len(c.buffer) > 0 {
		drained = c.buffer
		c.buffer = nil
	}
	c.mu.Unlock()

	if len(drained) > 0 {
		c.deliver(BatchChangeEvent(drained))
	}
}

func (c *ChangeBus) emit(evt ChangeEvent) {
	c.mu.Lock()
	if c.depth > 0 {
		c.buffer = append(c.buffer, evt)
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()
	c.deliver(evt)
}

// deliver is fire-and-forget: a full channel drops the oldest queued
// notification to make room. Loss of a notification is not an error — the
// shell is a best-effort consumer, never a dependency of correctness.
func (c *ChangeBus) deliver(payload any) {
	select {
	case c.ch <- payload:
		return
	default:
	}
	select {
	case <-c.ch:
		c.warnDropped()
	default:
	}
	select {
	case c.ch <- payload:
	default:
	}
}

func (c *ChangeBus) warnDropped() {
	c.dropMu.Lock()
	defer c.dropMu.Unlock()
	if time.Since(c.lastDropLog) < dropLogInterval {
		return
	}
	c.lastDropLog = time.Now()
	c.log.Warn("change bus subscriber falling behind, dropping oldest notification")
}

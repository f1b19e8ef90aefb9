package scanengine

import (
	"testing"
	"time"

	"github.com/ladderforge/plcsim/devicememory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingEngine struct {
	ticks int
}

func (c *countingEngine) Tick(mem *devicememory.Memory) {
	c.ticks++
	_ = mem.WriteWord(devicememory.HoldingRegisters, 0, uint16(c.ticks), devicememory.Internal)
}

func TestScanSchedulerTicksEngine(t *testing.T) {
	mem, err := devicememory.New(devicememory.Config{}, nil)
	require.NoError(t, err)

	engine := &countingEngine{}
	sched := NewScanScheduler(engine, mem, 10*time.Millisecond, nil)
	sched.Start()
	time.Sleep(55 * time.Millisecond)
	sched.Stop()

	assert.GreaterOrEqual(t, engine.ticks, 3)
	words, err := mem.ReadWords(devicememory.HoldingRegisters, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, uint16(engine.ticks), words[0])
}

func TestNoOpTouchesNothing(t *testing.T) {
	mem, err := devicememory.New(devicememory.Config{}, nil)
	require.NoError(t, err)
	NoOp{}.Tick(mem)
	words, err := mem.ReadWords(devicememory.HoldingRegisters, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, uint16(0), words[0])
}

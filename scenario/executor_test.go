package scenario

import (
	"testing"
	"time"

	"github.com/ladderforge/plcsim/devicememory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMemory(t *testing.T) *devicememory.Memory {
	t.Helper()
	mem, err := devicememory.New(devicememory.Config{}, nil)
	require.NoError(t, err)
	return mem
}

// TestPersistAndReleaseCoils is S7: a persisted write at t=0 and a pulsed
// write at t=0.5 that releases back to zero ~100ms later.
func TestPersistAndReleaseCoils(t *testing.T) {
	mem := newTestMemory(t)
	scn := &Scenario{Events: []Event{
		{TimeSeconds: 0.0, Target: Address{Bank: devicememory.Coils, Offset: 1}, Value: 1, Persist: true, Enabled: true},
		{TimeSeconds: 0.5, Target: Address{Bank: devicememory.Coils, Offset: 2}, Value: 1, Persist: false, PersistDurationMs: 100, Enabled: true},
	}}
	exec := New(scn, mem, nil)
	require.NoError(t, exec.Start())
	defer func() { _ = exec.Stop() }()

	time.Sleep(100 * time.Millisecond)
	v, _ := mem.ReadBits(devicememory.Coils, 1, 1)
	assert.True(t, v[0], "t≈0 coil must already be set")

	time.Sleep(450 * time.Millisecond) // ~t=0.55s: pulse coil set, not yet released
	v, _ = mem.ReadBits(devicememory.Coils, 2, 1)
	assert.True(t, v[0], "t≈0.55 pulse coil must be set")

	time.Sleep(150 * time.Millisecond) // ~t=0.7s: release (due at t=0.6s) should have fired
	v, _ = mem.ReadBits(devicememory.Coils, 2, 1)
	assert.False(t, v[0], "t≈0.7 pulse coil must have released back to 0")
}

// TestLoopingDispatchesTwice is S8: loop_count=2, loop_delay=0, single event
// at t=0.1s; after completion the holding register holds the written value
// and the write fired at both t≈0.1s and t≈0.2s from start.
func TestLoopingDispatchesTwice(t *testing.T) {
	mem := newTestMemory(t)
	scn := &Scenario{
		Events: []Event{
			{TimeSeconds: 0.1, Target: Address{Bank: devicememory.HoldingRegisters, Offset: 0}, Value: 7, Persist: true, Enabled: true},
		},
		Settings: Settings{LoopEnabled: true, LoopCount: 2, LoopDelay: 0},
	}
	exec := New(scn, mem, nil)
	start := time.Now()
	require.NoError(t, exec.Start())

	deadline := time.Now().Add(2 * time.Second)
	for exec.Status() != Completed && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	require.Equal(t, Completed, exec.Status())

	elapsed := time.Since(start)
	assert.GreaterOrEqual(t, elapsed, 190*time.Millisecond, "two loop iterations at 0.1s each must take at least ~0.2s")

	words, err := mem.ReadWords(devicememory.HoldingRegisters, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, uint16(7), words[0])
}

func TestLifecycleAlreadyRunningAndNotRunning(t *testing.T) {
	mem := newTestMemory(t)
	scn := &Scenario{Events: []Event{{TimeSeconds: 10, Target: Address{Bank: devicememory.HoldingRegisters, Offset: 0}, Value: 1, Persist: true, Enabled: true}}}
	exec := New(scn, mem, nil)

	require.NoError(t, exec.Start())
	defer func() { _ = exec.Stop() }()

	err := exec.Start()
	assert.Error(t, err)

	require.NoError(t, exec.Stop())
	err = exec.Stop()
	assert.Error(t, err)
}

func TestPauseResumeDelaysSchedule(t *testing.T) {
	mem := newTestMemory(t)
	scn := &Scenario{Events: []Event{
		{TimeSeconds: 0.15, Target: Address{Bank: devicememory.HoldingRegisters, Offset: 0}, Value: 42, Persist: true, Enabled: true},
	}}
	exec := New(scn, mem, nil)
	require.NoError(t, exec.Start())
	defer func() { _ = exec.Stop() }()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, exec.Pause())
	time.Sleep(300 * time.Millisecond) // long pause, event must NOT fire while paused
	words, err := mem.ReadWords(devicememory.HoldingRegisters, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, uint16(0), words[0], "paused executor must not dispatch")

	require.NoError(t, exec.Resume())
	time.Sleep(250 * time.Millisecond)
	words, err = mem.ReadWords(devicememory.HoldingRegisters, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, uint16(42), words[0], "resumed executor must eventually dispatch")
}

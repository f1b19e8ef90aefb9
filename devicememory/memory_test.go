package devicememory

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestMemory(t *testing.T) *Memory {
	t.Helper()
	m, err := New(Config{Coils: 100, DiscreteInputs: 100, HoldingRegisters: 100, InputRegisters: 100}, zap.NewNop())
	require.NoError(t, err)
	return m
}

func TestNewRejectsBadBankSize(t *testing.T) {
	_, err := New(Config{Coils: 70000}, nil)
	require.Error(t, err)

	_, err = New(Config{Coils: -1}, nil)
	require.Error(t, err)
}

func TestBoundsErrors(t *testing.T) {
	m := newTestMemory(t)

	_, err := m.ReadWords(HoldingRegisters, 100, 1)
	assert.Error(t, err)

	_, err = m.ReadWords(HoldingRegisters, 95, 10)
	assert.Error(t, err)

	_, err = m.ReadWords(HoldingRegisters, 0, 0)
	assert.Error(t, err)

	err = m.WriteWord(HoldingRegisters, 100, 1, Internal)
	assert.Error(t, err)
}

func TestRoundTrip(t *testing.T) {
	m := newTestMemory(t)

	values := []uint16{10, 20, 30, 40}
	require.NoError(t, m.WriteWords(HoldingRegisters, 5, values, External))

	got, err := m.ReadWords(HoldingRegisters, 5, 4)
	require.NoError(t, err)
	assert.Equal(t, values, got)

	bits := []bool{true, false, true}
	require.NoError(t, m.WriteBits(Coils, 2, bits, External))
	gotBits, err := m.ReadBits(Coils, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, bits, gotBits)
}

func TestNoOpWriteEmitsNoEvent(t *testing.T) {
	m := newTestMemory(t)
	sub := m.Bus.Subscribe()

	require.NoError(t, m.WriteWord(HoldingRegisters, 0, 0, External)) // already zero
	select {
	case evt := <-sub:
		t.Fatalf("unexpected event for no-op write: %#v", evt)
	default:
	}

	require.NoError(t, m.WriteWord(HoldingRegisters, 0, 7, External))
	select {
	case evt := <-sub:
		ce, ok := evt.(ChangeEvent)
		require.True(t, ok)
		assert.Equal(t, uint16(0), ce.Old)
		assert.Equal(t, uint16(7), ce.New)
	default:
		t.Fatal("expected a change event")
	}
}

func TestMultiWriteEmitsSingleBatch(t *testing.T) {
	m := newTestMemory(t)
	sub := m.Bus.Subscribe()

	require.NoError(t, m.WriteWords(HoldingRegisters, 0, []uint16{1, 2, 3}, Internal))

	select {
	case evt := <-sub:
		batch, ok := evt.(BatchChangeEvent)
		require.True(t, ok)
		require.Len(t, batch, 3)
		assert.Equal(t, uint16(0), batch[0].Address)
		assert.Equal(t, uint16(2), batch[2].Address)
	default:
		t.Fatal("expected a batch event")
	}
}

func TestConcurrentReadersSeeAllOldOrAllNew(t *testing.T) {
	m := newTestMemory(t)
	require.NoError(t, m.WriteWords(HoldingRegisters, 0, []uint16{0, 0, 0, 0}, Internal))

	var wg sync.WaitGroup
	stop := make(chan struct{})
	violations := make(chan string, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			vals, err := m.ReadWords(HoldingRegisters, 0, 4)
			if err != nil {
				continue
			}
			allOld := vals[0] == 0 && vals[1] == 0 && vals[2] == 0 && vals[3] == 0
			allNew := vals[0] == 9 && vals[1] == 9 && vals[2] == 9 && vals[3] == 9
			if !allOld && !allNew {
				select {
				case violations <- "torn read observed":
				default:
				}
			}
		}
	}()

	for i := 0; i < 200; i++ {
		require.NoError(t, m.WriteWords(HoldingRegisters, 0, []uint16{9, 9, 9, 9}, Internal))
		require.NoError(t, m.WriteWords(HoldingRegisters, 0, []uint16{0, 0, 0, 0}, Internal))
	}
	close(stop)
	wg.Wait()

	select {
	case msg := <-violations:
		t.Fatal(msg)
	default:
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	m := newTestMemory(t)
	require.NoError(t, m.WriteWord(HoldingRegisters, 3, 4321, External))
	require.NoError(t, m.WriteBit(Coils, 7, true, External))

	path := filepath.Join(t.TempDir(), "snap.csv")
	require.NoError(t, m.SaveSnapshot(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "address,type,value")
	assert.Contains(t, string(data), "3,holding,4321")
	assert.Contains(t, string(data), "7,coil,1")

	m2 := newTestMemory(t)
	require.NoError(t, m2.LoadSnapshot(path))

	val, err := m2.ReadWords(HoldingRegisters, 3, 1)
	require.NoError(t, err)
	assert.Equal(t, uint16(4321), val[0])

	bit, err := m2.ReadBits(Coils, 7, 1)
	require.NoError(t, err)
	assert.True(t, bit[0])
}

func TestLoadSnapshotEmitsChangeEvents(t *testing.T) {
	m := newTestMemory(t)
	require.NoError(t, m.WriteWord(HoldingRegisters, 3, 4321, External))
	path := filepath.Join(t.TempDir(), "snap.csv")
	require.NoError(t, m.SaveSnapshot(path))

	m2 := newTestMemory(t)
	sub := m2.Bus.Subscribe()
	require.NoError(t, m2.LoadSnapshot(path))

	select {
	case evt := <-sub:
		ce, ok := evt.(ChangeEvent)
		require.True(t, ok)
		assert.Equal(t, HoldingRegisters, ce.Bank)
		assert.Equal(t, uint16(3), ce.Address)
		assert.Equal(t, uint16(4321), ce.New)
	default:
		t.Fatal("expected a change event from LoadSnapshot")
	}
}

func TestLoadSnapshotMalformedRowReportsLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.csv")
	require.NoError(t, os.WriteFile(path, []byte("address,type,value\n1,coil,1\nnotanumber,coil,1\n"), 0644))

	m := newTestMemory(t)
	err := m.LoadSnapshot(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 3")
}

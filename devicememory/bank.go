package devicememory

import (
	"sync"

	"github.com/ladderforge/plcsim/plcerr"
)

// Bank identifies one of the four typed address spaces.
type Bank int

const (
	Coils Bank = iota
	DiscreteInputs
	HoldingRegisters
	InputRegisters
)

func (b Bank) String() string {
	switch b {
	case Coils:
		return "coils"
	case DiscreteInputs:
		return "discrete"
	case HoldingRegisters:
		return "holding"
	case InputRegisters:
		return "input"
	default:
		return "unknown"
	}
}

// Source distinguishes a mutation coming from a connected protocol peer
// from one issued internally by the simulator or scenario executor.
type Source int

const (
	Internal Source = iota
	External
)

func (s Source) String() string {
	if s == External {
		return "external"
	}
	return "internal"
}

const maxBankSize = 65535

func checkRange(start, count uint32, size int) error {
	if count == 0 {
		return plcerr.New(plcerr.CodeInvalidCount, "count must be > 0, got %d", count)
	}
	if start >= uint32(size) {
		return plcerr.New(plcerr.CodeAddressOutOfRange, "address %d out of range [0,%d)", start, size)
	}
	if start+count > uint32(size) {
		return plcerr.New(plcerr.CodeCountExceedsRange, "address %d count %d exceeds %d available", start, count, uint32(size)-start)
	}
	return nil
}

// bitBank is a densely packed bank of single-bit cells behind its own
// reader/writer lock. Never nest another bank's lock inside a held bitBank
// lock — each bank is locked independently.
type bitBank struct {
	mu   sync.RWMutex
	bits []bool
}

func newBitBank(size int) *bitBank {
	return &bitBank{bits: make([]bool, size)}
}

func (b *bitBank) size() int {
	return len(b.bits)
}

func (b *bitBank) read(start, count uint32) ([]bool, error) {
	if err := checkRange(start, count, len(b.bits)); err != nil {
		return nil, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]bool, count)
	copy(out, b.bits[start:start+count])
	return out, nil
}

// writeOne returns the old value and whether the value actually changed.
func (b *bitBank) writeOne(addr uint32, value bool) (old bool, changed bool, err error) {
	if err = checkRange(addr, 1, len(b.bits)); err != nil {
		return false, false, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	old = b.bits[addr]
	if old == value {
		return old, false, nil
	}
	b.bits[addr] = value
	return old, true, nil
}

// writeMany applies values atomically with respect to readers and returns
// the addresses that actually changed, in ascending order, with their old
// values.
func (b *bitBank) writeMany(start uint32, values []bool) (changedAddrs []uint32, oldValues []bool, err error) {
	if err = checkRange(start, uint32(len(values)), len(b.bits)); err != nil {
		return nil, nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, v := range values {
		addr := start + uint32(i)
		old := b.bits[addr]
		if old != v {
			changedAddrs = append(changedAddrs, addr)
			oldValues = append(oldValues, old)
			b.bits[addr] = v
		}
	}
	return changedAddrs, oldValues, nil
}

func (b *bitBank) clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.bits {
		b.bits[i] = false
	}
}

// wordBank is a bank of 16-bit cells, held natively in host order.
type wordBank struct {
	mu    sync.RWMutex
	words []uint16
}

func newWordBank(size int) *wordBank {
	return &wordBank{words: make([]uint16, size)}
}

func (w *wordBank) size() int {
	return len(w.words)
}

func (w *wordBank) read(start, count uint32) ([]uint16, error) {
	if err := checkRange(start, count, len(w.words)); err != nil {
		return nil, err
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]uint16, count)
	copy(out, w.words[start:start+count])
	return out, nil
}

func (w *wordBank) writeOne(addr uint32, value uint16) (old uint16, changed bool, err error) {
	if err = checkRange(addr, 1, len(w.words)); err != nil {
		return 0, false, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	old = w.words[addr]
	if old == value {
		return old, false, nil
	}
	w.words[addr] = value
	return old, true, nil
}

func (w *wordBank) writeMany(start uint32, values []uint16) (changedAddrs []uint32, oldValues []uint16, err error) {
	if err = checkRange(start, uint32(len(values)), len(w.words)); err != nil {
		return nil, nil, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	for i, v := range values {
		addr := start + uint32(i)
		old := w.words[addr]
		if old != v {
			changedAddrs = append(changedAddrs, addr)
			oldValues = append(oldValues, old)
			w.words[addr] = v
		}
	}
	return changedAddrs, oldValues, nil
}

func (w *wordBank) clear() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i := range w.words {
		w.words[i] = 0
	}
}

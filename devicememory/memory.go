// Package devicememory implements the authoritative Modbus address space: the
// four typed banks (coils, discrete inputs, holding registers, input
// registers), bounds-checked access, and change notification via ChangeBus.
//
// Each bank carries its own sync.RWMutex. No operation holds more than one
// bank's lock at a time, and no bank lock is ever held across a channel send
// or other suspension point — the ChangeBus delivery happens after the bank
// lock has been released.
package devicememory

import (
	"github.com/ladderforge/plcsim/plcerr"
	"go.uber.org/zap"
)

// Config sizes the four banks at construction. Zero means DefaultBankSize.
type Config struct {
	Coils            int
	DiscreteInputs   int
	HoldingRegisters int
	InputRegisters   int
}

const DefaultBankSize = 10000

func (c Config) withDefaults() Config {
	if c.Coils == 0 {
		c.Coils = DefaultBankSize
	}
	if c.DiscreteInputs == 0 {
		c.DiscreteInputs = DefaultBankSize
	}
	if c.HoldingRegisters == 0 {
		c.HoldingRegisters = DefaultBankSize
	}
	if c.InputRegisters == 0 {
		c.InputRegisters = DefaultBankSize
	}
	return c
}

// Memory is the shared, thread-safe address space. It is constructed once
// per simulation session and held by reference by every concurrent
// component (TCP sessions, the RTU loop, the scenario executor, the scan
// engine).
type Memory struct {
	coils    *bitBank
	discrete *bitBank
	holding  *wordBank
	input    *wordBank

	Bus *ChangeBus

	log *zap.Logger
}

// New validates bank sizes (1..65535) and allocates the four banks.
func New(cfg Config, log *zap.Logger) (*Memory, error) {
	cfg = cfg.withDefaults()
	if log == nil {
		log = zap.NewNop()
	}
	for name, size := range map[string]int{
		"coils": cfg.Coils, "discreteInputs": cfg.DiscreteInputs,
		"holdingRegisters": cfg.HoldingRegisters, "inputRegisters": cfg.InputRegisters,
	} {
		if size <= 0 || size > maxBankSize {
			return nil, plcerr.New(plcerr.CodeInvalidConfig, "bank %s size %d must be in (0,%d]", name, size, maxBankSize)
		}
	}
	return &Memory{
		coils:    newBitBank(cfg.Coils),
		discrete: newBitBank(cfg.DiscreteInputs),
		holding:  newWordBank(cfg.HoldingRegisters),
		input:    newWordBank(cfg.InputRegisters),
		Bus:      NewChangeBus(log.Named("changebus")),
		log:      log,
	}, nil
}

func (m *Memory) bitBankFor(bank Bank) (*bitBank, bool) {
	switch bank {
	case Coils:
		return m.coils, true
	case DiscreteInputs:
		return m.discrete, true
	default:
		return nil, false
	}
}

func (m *Memory) wordBankFor(bank Bank) (*wordBank, bool) {
	switch bank {
	case HoldingRegisters:
		return m.holding, true
	case InputRegisters:
		return m.input, true
	default:
		return nil, false
	}
}

// BankSize reports the configured size of the named bank.
func (m *Memory) BankSize(bank Bank) int {
	if b, ok := m.bitBankFor(bank); ok {
		return b.size()
	}
	if w, ok := m.wordBankFor(bank); ok {
		return w.size()
	}
	return 0
}

// ReadBits reads count contiguous bits from a bit bank in one consistent
// snapshot.
func (m *Memory) ReadBits(bank Bank, start, count uint16) ([]bool, error) {
	b, ok := m.bitBankFor(bank)
	if !ok {
		return nil, plcerr.New(plcerr.CodeInvalidConfig, "%s is not a bit bank", bank)
	}
	vals, err := b.read(uint32(start), uint32(count))
	if err != nil {
		m.log.Debug("read rejected", zap.String("bank", bank.String()), zap.Uint16("start", start), zap.Uint16("count", count), zap.Error(err))
	}
	return vals, err
}

// WriteBit writes a single bit and emits a ChangeEvent if the value changed.
func (m *Memory) WriteBit(bank Bank, addr uint16, value bool, source Source) error {
	b, ok := m.bitBankFor(bank)
	if !ok {
		return plcerr.New(plcerr.CodeInvalidConfig, "%s is not a bit bank", bank)
	}
	old, changed, err := b.writeOne(uint32(addr), value)
	if err != nil {
		m.log.Debug("write rejected", zap.String("bank", bank.String()), zap.Uint16("address", addr), zap.Error(err))
		return err
	}
	if changed {
		m.Bus.emit(ChangeEvent{Bank: bank, Address: addr, Old: boolToWord(old), New: boolToWord(value), Source: source})
	}
	return nil
}

// WriteBits writes a contiguous run of bits atomically with respect to
// readers and emits one BatchChangeEvent covering every changed cell.
func (m *Memory) WriteBits(bank Bank, start uint16, values []bool, source Source) error {
	b, ok := m.bitBankFor(bank)
	if !ok {
		return plcerr.New(plcerr.CodeInvalidConfig, "%s is not a bit bank", bank)
	}
	changedAddrs, oldValues, err := b.writeMany(uint32(start), values)
	if err != nil {
		m.log.Debug("write rejected", zap.String("bank", bank.String()), zap.Uint16("start", start), zap.Int("count", len(values)), zap.Error(err))
		return err
	}
	m.emitBatch(bank, changedAddrs, func(i int) uint16 { return boolToWord(oldValues[i]) }, func(i int) uint16 {
		addr := changedAddrs[i]
		return boolToWord(values[addr-uint32(start)])
	}, source)
	return nil
}

// ReadWords reads count contiguous registers from a word bank in one
// consistent snapshot.
func (m *Memory) ReadWords(bank Bank, start, count uint16) ([]uint16, error) {
	w, ok := m.wordBankFor(bank)
	if !ok {
		return nil, plcerr.New(plcerr.CodeInvalidConfig, "%s is not a word bank", bank)
	}
	vals, err := w.read(uint32(start), uint32(count))
	if err != nil {
		m.log.Debug("read rejected", zap.String("bank", bank.String()), zap.Uint16("start", start), zap.Uint16("count", count), zap.Error(err))
	}
	return vals, err
}

// WriteWord writes a single register and emits a ChangeEvent if the value
// changed.
func (m *Memory) WriteWord(bank Bank, addr uint16, value uint16, source Source) error {
	w, ok := m.wordBankFor(bank)
	if !ok {
		return plcerr.New(plcerr.CodeInvalidConfig, "%s is not a word bank", bank)
	}
	old, changed, err := w.writeOne(uint32(addr), value)
	if err != nil {
		m.log.Debug("write rejected", zap.String("bank", bank.String()), zap.Uint16("address", addr), zap.Error(err))
		return err
	}
	if changed {
		m.Bus.emit(ChangeEvent{Bank: bank, Address: addr, Old: old, New: value, Source: source})
	}
	return nil
}

// WriteWords writes a contiguous run of registers atomically with respect to
// readers and emits one BatchChangeEvent covering every changed cell.
func (m *Memory) WriteWords(bank Bank, start uint16, values []uint16, source Source) error {
	w, ok := m.wordBankFor(bank)
	if !ok {
		return plcerr.New(plcerr.CodeInvalidConfig, "%s is not a word bank", bank)
	}
	changedAddrs, oldValues, err := w.writeMany(uint32(start), values)
	if err != nil {
		m.log.Debug("write rejected", zap.String("bank", bank.String()), zap.Uint16("start", start), zap.Int("count", len(values)), zap.Error(err))
		return err
	}
	m.emitBatch(bank, changedAddrs, func(i int) uint16 { return oldValues[i] }, func(i int) uint16 {
		addr := changedAddrs[i]
		return values[addr-uint32(start)]
	}, source)
	return nil
}

func (m *Memory) emitBatch(bank Bank, changedAddrs []uint32, oldAt, newAt func(i int) uint16, source Source) {
	if len(changedAddrs) == 0 {
		return
	}
	m.Bus.beginBatch()
	for i, addr := range changedAddrs {
		m.Bus.emit(ChangeEvent{Bank: bank, Address: uint16(addr), Old: oldAt(i), New: newAt(i), Source: source})
	}
	m.Bus.endBatch()
}

// Clear zeroes all four banks. Used by simulator reset and as the first step
// of snapshot loading.
func (m *Memory) Clear() {
	m.coils.clear()
	m.discrete.clear()
	m.holding.clear()
	m.input.clear()
}

func boolToWord(b bool) uint16 {
	if b {
		return 1
	}
	return 0
}

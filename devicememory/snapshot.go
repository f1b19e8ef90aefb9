package devicememory

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/ladderforge/plcsim/plcerr"
)

const snapshotHeader = "address,type,value"

var snapshotBankNames = map[Bank]string{
	Coils:            "coil",
	DiscreteInputs:   "discrete",
	HoldingRegisters: "holding",
	InputRegisters:   "input",
}

var snapshotBankByName = map[string]Bank{
	"coil":     Coils,
	"discrete": DiscreteInputs,
	"holding":  HoldingRegisters,
	"input":    InputRegisters,
}

// SaveSnapshot writes every non-zero cell of every bank to a CSV file:
// "address,type,value", one row per non-default cell. Order: coils,
// discrete inputs, holding registers, input registers, each in ascending
// address order.
func (m *Memory) SaveSnapshot(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return plcerr.New(plcerr.CodeSnapshotError, "create %s: %v", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"address", "type", "value"}); err != nil {
		return plcerr.New(plcerr.CodeSnapshotError, "write header: %v", err)
	}

	if err := writeBitRows(w, m.coils, snapshotBankNames[Coils]); err != nil {
		return err
	}
	if err := writeBitRows(w, m.discrete, snapshotBankNames[DiscreteInputs]); err != nil {
		return err
	}
	if err := writeWordRows(w, m.holding, snapshotBankNames[HoldingRegisters]); err != nil {
		return err
	}
	if err := writeWordRows(w, m.input, snapshotBankNames[InputRegisters]); err != nil {
		return err
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return plcerr.New(plcerr.CodeSnapshotError, "flush %s: %v", path, err)
	}
	return nil
}

func writeBitRows(w *csv.Writer, b *bitBank, typeName string) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for addr, v := range b.bits {
		if !v {
			continue
		}
		if err := w.Write([]string{strconv.Itoa(addr), typeName, "1"}); err != nil {
			return plcerr.New(plcerr.CodeSnapshotError, "write row: %v", err)
		}
	}
	return nil
}

func writeWordRows(w *csv.Writer, wb *wordBank, typeName string) error {
	wb.mu.RLock()
	defer wb.mu.RUnlock()
	for addr, v := range wb.words {
		if v == 0 {
			continue
		}
		if err := w.Write([]string{strconv.Itoa(addr), typeName, strconv.Itoa(int(v))}); err != nil {
			return plcerr.New(plcerr.CodeSnapshotError, "write row: %v", err)
		}
	}
	return nil
}

// LoadSnapshot clears all banks, then applies every row of the CSV file in
// order. A malformed row or unknown type fails with its 1-based line number;
// the clear has already happened by that point, matching "loading first
// clears".
func (m *Memory) LoadSnapshot(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return plcerr.New(plcerr.CodeSnapshotError, "open %s: %v", path, err)
	}
	defer f.Close()

	m.Clear()

	r := csv.NewReader(f)
	r.FieldsPerRecord = 3

	lineNum := 1 // header
	header, err := r.Read()
	if err != nil {
		return plcerr.New(plcerr.CodeSnapshotError, "line %d: read header: %v", lineNum, err)
	}
	if len(header) < 3 || header[0] != "address" || header[1] != "type" || header[2] != "value" {
		return plcerr.New(plcerr.CodeSnapshotError, "line %d: expected header %q", lineNum, snapshotHeader)
	}

	for {
		lineNum++
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return plcerr.New(plcerr.CodeSnapshotError, "line %d: %v", lineNum, err)
		}
		if err := m.applySnapshotRow(record, lineNum); err != nil {
			return err
		}
	}
	return nil
}

func (m *Memory) applySnapshotRow(record []string, lineNum int) error {
	addr, err := strconv.ParseUint(record[0], 10, 16)
	if err != nil {
		return plcerr.New(plcerr.CodeSnapshotError, "line %d: invalid address %q", lineNum, record[0])
	}
	bank, ok := snapshotBankByName[record[1]]
	if !ok {
		return plcerr.New(plcerr.CodeSnapshotError, "line %d: unknown type %q", lineNum, record[1])
	}
	value, err := strconv.ParseUint(record[2], 10, 16)
	if err != nil {
		return plcerr.New(plcerr.CodeSnapshotError, "line %d: invalid value %q", lineNum, record[2])
	}

	switch bank {
	case Coils, DiscreteInputs:
		if err := m.WriteBit(bank, uint16(addr), value != 0, Internal); err != nil {
			return plcerr.New(plcerr.CodeSnapshotError, "line %d: %v", lineNum, err)
		}
	case HoldingRegisters, InputRegisters:
		if err := m.WriteWord(bank, uint16(addr), uint16(value), Internal); err != nil {
			return plcerr.New(plcerr.CodeSnapshotError, "line %d: %v", lineNum, err)
		}
	default:
		return plcerr.New(plcerr.CodeSnapshotError, "line %d: unhandled bank %v", lineNum, bank)
	}
	return nil
}

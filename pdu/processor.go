package pdu

import (
	"encoding/binary"
	"errors"

	"github.com/ladderforge/plcsim/devicememory"
	"github.com/ladderforge/plcsim/plcerr"
)

// Process maps (function code, request body, memory) to a response PDU. The
// request body excludes the function code byte; the returned response PDU
// includes it (or, for exceptions, the function code ORed with 0x80
// followed by one exception byte).
//
// This is deterministic and synchronous. It performs no I/O and is safe to
// call concurrently from any number of goroutines against the same Memory.
func Process(functionCode byte, body []byte, mem *devicememory.Memory, source devicememory.Source) []byte {
	switch functionCode {
	case FuncReadCoils:
		return processReadBits(functionCode, body, mem, devicememory.Coils)
	case FuncReadDiscreteInputs:
		return processReadBits(functionCode, body, mem, devicememory.DiscreteInputs)
	case FuncReadHoldingRegisters:
		return processReadWords(functionCode, body, mem, devicememory.HoldingRegisters)
	case FuncReadInputRegisters:
		return processReadWords(functionCode, body, mem, devicememory.InputRegisters)
	case FuncWriteSingleCoil:
		return processWriteSingleCoil(functionCode, body, mem, source)
	case FuncWriteSingleRegister:
		return processWriteSingleRegister(functionCode, body, mem, source)
	case FuncWriteMultipleCoils:
		return processWriteMultipleCoils(functionCode, body, mem, source)
	case FuncWriteMultipleRegisters:
		return processWriteMultipleRegisters(functionCode, body, mem, source)
	default:
		return exceptionResponse(functionCode, ExceptionIllegalFunction)
	}
}

func exceptionResponse(functionCode, code byte) []byte {
	return []byte{functionCode | exceptionBit, code}
}

// mapMemError maps a devicememory/plcerr bounds error to the one exception
// code this core produces for address/count failures (see spec §4.3).
func mapMemError(functionCode byte, err error) []byte {
	var pe *plcerr.Error
	if errors.As(err, &pe) {
		switch pe.Code {
		case plcerr.CodeAddressOutOfRange, plcerr.CodeCountExceedsRange, plcerr.CodeInvalidCount:
			return exceptionResponse(functionCode, ExceptionIllegalDataAddress)
		}
	}
	return exceptionResponse(functionCode, ExceptionIllegalDataValue)
}

func processReadBits(functionCode byte, body []byte, mem *devicememory.Memory, bank devicememory.Bank) []byte {
	if len(body) != 4 {
		return exceptionResponse(functionCode, ExceptionIllegalDataValue)
	}
	start := binary.BigEndian.Uint16(body[0:2])
	qty := binary.BigEndian.Uint16(body[2:4])

	bits, err := mem.ReadBits(bank, start, qty)
	if err != nil {
		return mapMemError(functionCode, err)
	}

	packed := packBits(bits)
	resp := make([]byte, 0, 2+len(packed))
	resp = append(resp, functionCode, byte(len(packed)))
	resp = append(resp, packed...)
	return resp
}

func processReadWords(functionCode byte, body []byte, mem *devicememory.Memory, bank devicememory.Bank) []byte {
	if len(body) != 4 {
		return exceptionResponse(functionCode, ExceptionIllegalDataValue)
	}
	start := binary.BigEndian.Uint16(body[0:2])
	qty := binary.BigEndian.Uint16(body[2:4])

	words, err := mem.ReadWords(bank, start, qty)
	if err != nil {
		return mapMemError(functionCode, err)
	}

	resp := make([]byte, 0, 2+len(words)*2)
	resp = append(resp, functionCode, byte(len(words)*2))
	for _, w := range words {
		resp = binary.BigEndian.AppendUint16(resp, w)
	}
	return resp
}

func processWriteSingleCoil(functionCode byte, body []byte, mem *devicememory.Memory, source devicememory.Source) []byte {
	if len(body) != 4 {
		return exceptionResponse(functionCode, ExceptionIllegalDataValue)
	}
	addr := binary.BigEndian.Uint16(body[0:2])
	raw := binary.BigEndian.Uint16(body[2:4])
	var value bool
	switch raw {
	case coilOn:
		value = true
	case coilOff:
		value = false
	default:
		return exceptionResponse(functionCode, ExceptionIllegalDataValue)
	}

	if err := mem.WriteBit(devicememory.Coils, addr, value, source); err != nil {
		return mapMemError(functionCode, err)
	}

	resp := make([]byte, 5)
	resp[0] = functionCode
	copy(resp[1:], body)
	return resp
}

func processWriteSingleRegister(functionCode byte, body []byte, mem *devicememory.Memory, source devicememory.Source) []byte {
	if len(body) != 4 {
		return exceptionResponse(functionCode, ExceptionIllegalDataValue)
	}
	addr := binary.BigEndian.Uint16(body[0:2])
	value := binary.BigEndian.Uint16(body[2:4])

	if err := mem.WriteWord(devicememory.HoldingRegisters, addr, value, source); err != nil {
		return mapMemError(functionCode, err)
	}

	resp := make([]byte, 5)
	resp[0] = functionCode
	copy(resp[1:], body)
	return resp
}

func processWriteMultipleCoils(functionCode byte, body []byte, mem *devicememory.Memory, source devicememory.Source) []byte {
	if len(body) < 5 {
		return exceptionResponse(functionCode, ExceptionIllegalDataValue)
	}
	start := binary.BigEndian.Uint16(body[0:2])
	qty := binary.BigEndian.Uint16(body[2:4])
	byteCount := body[4]
	data := body[5:]

	expectedBytes := (int(qty) + 7) / 8
	if int(byteCount) != expectedBytes || len(data) != int(byteCount) {
		return exceptionResponse(functionCode, ExceptionIllegalDataValue)
	}

	bits := unpackBits(data, int(qty))
	if err := mem.WriteBits(devicememory.Coils, start, bits, source); err != nil {
		return mapMemError(functionCode, err)
	}

	resp := make([]byte, 5)
	resp[0] = functionCode
	binary.BigEndian.PutUint16(resp[1:3], start)
	binary.BigEndian.PutUint16(resp[3:5], qty)
	return resp
}

func processWriteMultipleRegisters(functionCode byte, body []byte, mem *devicememory.Memory, source devicememory.Source) []byte {
	if len(body) < 5 {
		return exceptionResponse(functionCode, ExceptionIllegalDataValue)
	}
	start := binary.BigEndian.Uint16(body[0:2])
	qty := binary.BigEndian.Uint16(body[2:4])
	byteCount := body[4]
	data := body[5:]

	if int(byteCount) != int(qty)*2 || len(data) != int(byteCount) {
		return exceptionResponse(functionCode, ExceptionIllegalDataValue)
	}

	words := make([]uint16, qty)
	for i := range words {
		words[i] = binary.BigEndian.Uint16(data[i*2 : i*2+2])
	}
	if err := mem.WriteWords(devicememory.HoldingRegisters, start, words, source); err != nil {
		return mapMemError(functionCode, err)
	}

	resp := make([]byte, 5)
	resp[0] = functionCode
	binary.BigEndian.PutUint16(resp[1:3], start)
	binary.BigEndian.PutUint16(resp[3:5], qty)
	return resp
}

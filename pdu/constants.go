// Package pdu implements the Modbus function-code dispatcher shared by the
// TCP and RTU transports. Process is a pure function of
// (function code, PDU bytes, *devicememory.Memory) — it touches no network
// or serial state and is safe to call from any goroutine.
package pdu

const (
	FuncReadCoils             byte = 0x01
	FuncReadDiscreteInputs    byte = 0x02
	FuncReadHoldingRegisters  byte = 0x03
	FuncReadInputRegisters    byte = 0x04
	FuncWriteSingleCoil       byte = 0x05
	FuncWriteSingleRegister   byte = 0x06
	FuncWriteMultipleCoils    byte = 0x0F
	FuncWriteMultipleRegisters byte = 0x10
)

const exceptionBit byte = 0x80

// Exception codes — the complete set this core produces.
const (
	ExceptionIllegalFunction    byte = 0x01
	ExceptionIllegalDataAddress byte = 0x02
	ExceptionIllegalDataValue   byte = 0x03
)

// MaxPDUSize bounds a single PDU body (function code byte excluded), per the
// classic Modbus 253-byte PDU budget used to size MBAP/RTU framing checks.
const MaxPDUSize = 252

const (
	coilOn  uint16 = 0xFF00
	coilOff uint16 = 0x0000
)

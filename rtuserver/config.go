package rtuserver

import "time"

// Config configures the single serial line. Zero values fall back to
// WithDefaults' 9600-8N1, unit_id 1.
type Config struct {
	ComPort  string
	BaudRate int
	DataBits int
	Parity   Parity
	StopBits StopBits
	UnitID   byte
}

type Parity int

const (
	ParityNone Parity = iota
	ParityOdd
	ParityEven
)

type StopBits int

const (
	StopBits1 StopBits = iota
	StopBits2
)

func DefaultConfig() Config {
	return Config{
		ComPort:  "/dev/ttyUSB0",
		BaudRate: 9600,
		DataBits: 8,
		Parity:   ParityNone,
		StopBits: StopBits1,
		UnitID:   1,
	}
}

func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if c.ComPort == "" {
		c.ComPort = d.ComPort
	}
	if c.BaudRate == 0 {
		c.BaudRate = d.BaudRate
	}
	if c.DataBits == 0 {
		c.DataBits = d.DataBits
	}
	if c.UnitID == 0 {
		c.UnitID = d.UnitID
	}
	return c
}

// parityBit returns 0 for no parity, 1 otherwise, per the character-time
// formula in the framing spec.
func (c Config) parityBit() int {
	if c.Parity == ParityNone {
		return 0
	}
	return 1
}

func (c Config) stopBitCount() int {
	if c.StopBits == StopBits2 {
		return 2
	}
	return 1
}

// interFrameDelay is the silence window that ends an RTU frame: the larger
// of 1.75ms or 3.5 character times.
func (c Config) interFrameDelay() time.Duration {
	return charTime(c.DataBits, c.parityBit(), c.stopBitCount(), c.BaudRate)
}

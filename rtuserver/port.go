package rtuserver

import (
	"sync"

	"go.bug.st/serial"
)

// serialPort gates the underlying handle behind a mutex. Reads and writes
// both happen from the RTU loop goroutine; Stop calls close only after that
// goroutine has exited.
type serialPort struct {
	mu   sync.Mutex
	port serial.Port
}

func openSerialPort(cfg Config) (*serialPort, error) {
	mode := &serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: cfg.DataBits,
	}
	switch cfg.Parity {
	case ParityOdd:
		mode.Parity = serial.OddParity
	case ParityEven:
		mode.Parity = serial.EvenParity
	default:
		mode.Parity = serial.NoParity
	}
	switch cfg.StopBits {
	case StopBits2:
		mode.StopBits = serial.TwoStopBits
	default:
		mode.StopBits = serial.OneStopBit
	}

	port, err := serial.Open(cfg.ComPort, mode)
	if err != nil {
		return nil, err
	}
	if err := port.SetReadTimeout(cfg.interFrameDelay()); err != nil {
		_ = port.Close()
		return nil, err
	}
	return &serialPort{port: port}, nil
}

func (p *serialPort) read(buf []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.port.Read(buf)
}

func (p *serialPort) write(buf []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, err := p.port.Write(buf)
	return err
}

func (p *serialPort) close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.port.Close()
}

package rtuserver

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestCRCReadHoldingRequest is the canonical CRC scenario: for the request
// bytes 01 03 00 00 00 0A, the little-endian CRC is C5 CD.
func TestCRCReadHoldingRequest(t *testing.T) {
	frame := []byte{0x01, 0x03, 0x00, 0x00, 0x00, 0x0A}
	c := crc16(frame)
	assert.Equal(t, byte(0xC5), byte(c&0xFF))
	assert.Equal(t, byte(0xCD), byte(c>>8))

	full := appendCRC(append([]byte{}, frame...))
	assert.Equal(t, []byte{0x01, 0x03, 0x00, 0x00, 0x00, 0x0A, 0xC5, 0xCD}, full)
	assert.True(t, verifyCRC(full))
}

func TestCRCRoundTripRejectsCorruption(t *testing.T) {
	frame := appendCRC([]byte{0x01, 0x03, 0x00, 0x00, 0x00, 0x0A})
	corrupt := append([]byte{}, frame...)
	corrupt[0] ^= 0xFF
	assert.False(t, verifyCRC(corrupt))
}

func TestVerifyCRCRejectsShortFrame(t *testing.T) {
	assert.False(t, verifyCRC([]byte{0x01}))
}

func TestInterFrameMath(t *testing.T) {
	cases := []struct {
		baud int
		want time.Duration
	}{
		{1200, 29165 * time.Microsecond},
		{9600, 3643 * time.Microsecond},
		{19200, 1820 * time.Microsecond},
		{115200, 1750 * time.Microsecond},
	}
	for _, c := range cases {
		got := charTime(8, 0, 1, c.baud)
		assert.GreaterOrEqualf(t, got, 1750*time.Microsecond, "baud=%d", c.baud)
		assert.InDeltaf(t, float64(c.want), float64(got), float64(2*time.Microsecond), "baud=%d", c.baud)
	}
}

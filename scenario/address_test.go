package scenario

import (
	"testing"

	"github.com/ladderforge/plcsim/devicememory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAddress(t *testing.T) {
	cases := []struct {
		in   string
		bank devicememory.Bank
		off  uint16
	}{
		{"C:0x0001", devicememory.Coils, 1},
		{"D:0x0010", devicememory.DiscreteInputs, 0x10},
		{"H:0x0100", devicememory.HoldingRegisters, 0x100},
		{"I:0xFFFF", devicememory.InputRegisters, 0xFFFF},
		{"h:5", devicememory.HoldingRegisters, 5},
	}
	for _, c := range cases {
		addr, err := parseAddress(c.in)
		require.NoError(t, err, c.in)
		assert.Equal(t, c.bank, addr.Bank, c.in)
		assert.Equal(t, c.off, addr.Offset, c.in)
	}
}

func TestParseAddressRejectsUnknownPrefix(t *testing.T) {
	_, err := parseAddress("X:0x0001")
	assert.Error(t, err)
}

func TestParseAddressRejectsMissingColon(t *testing.T) {
	_, err := parseAddress("H0x0001")
	assert.Error(t, err)
}

package scenario

import (
	"strconv"
	"strings"

	"github.com/ladderforge/plcsim/devicememory"
	"github.com/ladderforge/plcsim/plcerr"
)

// Address is a bank-tagged target like "H:0x0100" or "C:0x0001", resolved
// into the bank it names and the offset within it.
type Address struct {
	Bank   devicememory.Bank
	Offset uint16
}

// parseAddress accepts "<prefix>:<hex>" where prefix is one of C/D/H/I.
func parseAddress(s string) (Address, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return Address{}, plcerr.New(plcerr.CodeScenarioParseError, "address %q must be <prefix>:<hex>", s)
	}

	var bank devicememory.Bank
	switch strings.ToUpper(parts[0]) {
	case "C":
		bank = devicememory.Coils
	case "D":
		bank = devicememory.DiscreteInputs
	case "H":
		bank = devicememory.HoldingRegisters
	case "I":
		bank = devicememory.InputRegisters
	default:
		return Address{}, plcerr.New(plcerr.CodeScenarioParseError, "address %q has unknown bank prefix %q", s, parts[0])
	}

	hex := strings.TrimPrefix(strings.TrimPrefix(parts[1], "0x"), "0X")
	offset, err := strconv.ParseUint(hex, 16, 16)
	if err != nil {
		return Address{}, plcerr.New(plcerr.CodeScenarioParseError, "address %q has invalid hex offset: %v", s, err)
	}

	return Address{Bank: bank, Offset: uint16(offset)}, nil
}

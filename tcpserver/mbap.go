package tcpserver

import (
	"encoding/binary"

	"github.com/ladderforge/plcsim/pdu"
)

// mbapHeaderSize is the fixed 7-byte MBAP header: txn_id(2) protocol_id(2)
// length(2) unit_id(1).
const mbapHeaderSize = 7

type mbapHeader struct {
	transactionID uint16
	protocolID    uint16
	length        uint16 // counts unit_id + PDU
	unitID        byte
}

func decodeMBAP(buf []byte) mbapHeader {
	return mbapHeader{
		transactionID: binary.BigEndian.Uint16(buf[0:2]),
		protocolID:    binary.BigEndian.Uint16(buf[2:4]),
		length:        binary.BigEndian.Uint16(buf[4:6]),
		unitID:        buf[6],
	}
}

// validLength reports whether the declared length field is within the
// accepted window: 2 (unit_id + at least a 1-byte function code) through
// 2+MaxPDUSize (unit_id + function code + the largest PDU body this core will
// process).
func (h mbapHeader) validLength() bool {
	return h.length >= 2 && h.length <= pdu.MaxPDUSize+2
}

func encodeMBAP(transactionID uint16, unitID byte, pduLen int) []byte {
	buf := make([]byte, mbapHeaderSize)
	binary.BigEndian.PutUint16(buf[0:2], transactionID)
	binary.BigEndian.PutUint16(buf[2:4], 0) // protocol_id always 0
	binary.BigEndian.PutUint16(buf[4:6], uint16(1+pduLen))
	buf[6] = unitID
	return buf
}

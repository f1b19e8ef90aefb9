package tcpserver

import (
	"io"
	"net"
	"time"

	"github.com/ladderforge/plcsim/devicememory"
	"github.com/ladderforge/plcsim/pdu"
	"go.uber.org/zap"
)

// handleSession implements one client's read-process-write loop:
//  1. read the 7-byte MBAP header
//  2. validate protocol_id == 0 and the declared length
//  3. read length-1 more bytes as the PDU
//  4. if unit_id matches neither UnitID nor the broadcast address 0, drop
//     the request silently and keep reading
//  5. dispatch to pdu.Process
//  6. write the MBAP-wrapped response and loop
//
// Any read/write error or malformed header ends the session.
func (s *Server) handleSession(conn net.Conn, info ConnectionInfo) {
	defer func() { _ = conn.Close() }()
	log := s.log.With(zap.String("session", info.SessionID.String()), zap.String("peer", info.PeerAddress))
	log.Debug("session opened")

	header := make([]byte, mbapHeaderSize)
	for {
		select {
		case <-s.shutdown:
			return
		default:
		}

		_ = conn.SetReadDeadline(time.Now().Add(s.cfg.timeout()))
		if _, err := io.ReadFull(conn, header); err != nil {
			if err != io.EOF {
				log.Debug("session read ended", zap.Error(err))
			}
			return
		}

		h := decodeMBAP(header)
		if h.protocolID != 0 || !h.validLength() {
			log.Warn("malformed MBAP header, closing session", zap.Uint16("protocolId", h.protocolID), zap.Uint16("length", h.length))
			return
		}

		body := make([]byte, h.length-1)
		if len(body) > 0 {
			if _, err := io.ReadFull(conn, body); err != nil {
				return
			}
		}

		if h.unitID != s.cfg.UnitID && h.unitID != 0 {
			continue
		}

		respPDU := pdu.Process(body[0], body[1:], s.mem, devicememory.External)
		frame := append(encodeMBAP(h.transactionID, h.unitID, len(respPDU)), respPDU...)
		if _, err := conn.Write(frame); err != nil {
			log.Debug("session write failed", zap.Error(err))
			return
		}
	}
}

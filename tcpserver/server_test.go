package tcpserver

import (
	"encoding/hex"
	"net"
	"testing"
	"time"

	"github.com/ladderforge/plcsim/devicememory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, maxConns int64) (*Server, *devicememory.Memory) {
	t.Helper()
	mem, err := devicememory.New(devicememory.Config{}, nil)
	require.NoError(t, err)
	cfg := Config{BindAddress: "127.0.0.1", Port: 0, UnitID: 1, MaxConnections: maxConns, TimeoutMs: 2000}
	srv := New(cfg, mem, nil)
	return srv, mem
}

// dialServer connects to the address the listener actually bound. Note that
// WithDefaults turns Port:0 into the default port 502.
func dialServer(t *testing.T, srv *Server) net.Conn {
	t.Helper()
	addr := srv.listener.Addr().String()
	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	return conn
}

func TestLifecycleAlreadyRunningAndNotRunning(t *testing.T) {
	srv, _ := newTestServer(t, 10)
	require.NoError(t, srv.Start())
	defer func() { _ = srv.Stop() }()

	err := srv.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ALREADY_RUNNING")

	require.NoError(t, srv.Stop())
	err = srv.Stop()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NOT_RUNNING")
}

// TestMBAPReadHoldingRoundTrip is the MBAP-wrap scenario: a TCP client sends
// a full MBAP frame requesting two holding registers from address 0, and
// gets back the MBAP-wrapped all-zero response.
func TestMBAPReadHoldingRoundTrip(t *testing.T) {
	srv, _ := newTestServer(t, 10)
	require.NoError(t, srv.Start())
	defer func() { _ = srv.Stop() }()

	conn := dialServer(t, srv)
	defer func() { _ = conn.Close() }()

	request, err := hex.DecodeString("000100000006010300000002")
	require.NoError(t, err)
	_, err = conn.Write(request)
	require.NoError(t, err)

	resp := make([]byte, 13)
	_, err = readFull(conn, resp)
	require.NoError(t, err)

	want, err := hex.DecodeString("00010000000701030400000000")
	require.NoError(t, err)
	assert.Equal(t, want, resp)
}

func TestMalformedProtocolIdClosesSession(t *testing.T) {
	srv, _ := newTestServer(t, 10)
	require.NoError(t, srv.Start())
	defer func() { _ = srv.Stop() }()

	conn := dialServer(t, srv)
	defer func() { _ = conn.Close() }()

	frame := []byte{0x00, 0x01, 0x00, 0x01, 0x00, 0x06, 0x01, 0x03, 0x00, 0x00, 0x00, 0x02}
	_, werr := conn.Write(frame)
	require.NoError(t, werr)

	_ = conn.SetReadDeadline(time.Now().Add(1 * time.Second))
	buf := make([]byte, 1)
	_, rerr := conn.Read(buf)
	assert.Error(t, rerr)
}

func TestUnmatchedUnitIdDropsSilentlyButSessionStaysOpen(t *testing.T) {
	srv, mem := newTestServer(t, 10)
	require.NoError(t, srv.Start())
	defer func() { _ = srv.Stop() }()
	_ = mem

	conn := dialServer(t, srv)
	defer func() { _ = conn.Close() }()

	wrongUnit := []byte{0x00, 0x01, 0x00, 0x00, 0x00, 0x06, 0x09, 0x03, 0x00, 0x00, 0x00, 0x02}
	_, err := conn.Write(wrongUnit)
	require.NoError(t, err)

	rightUnit := []byte{0x00, 0x02, 0x00, 0x00, 0x00, 0x06, 0x01, 0x03, 0x00, 0x00, 0x00, 0x02}
	_, err = conn.Write(rightUnit)
	require.NoError(t, err)

	resp := make([]byte, 13)
	_, err = readFull(conn, resp)
	require.NoError(t, err)
	assert.Equal(t, byte(0x02), resp[1], "transaction id echoed must be the second request's (0x0002), not the dropped one")
}

func TestMaxConnectionsAcceptThenClose(t *testing.T) {
	srv, _ := newTestServer(t, 1)
	require.NoError(t, srv.Start())
	defer func() { _ = srv.Stop() }()

	first := dialServer(t, srv)
	defer func() { _ = first.Close() }()

	time.Sleep(50 * time.Millisecond)

	second := dialServer(t, srv)
	defer func() { _ = second.Close() }()

	_ = second.SetReadDeadline(time.Now().Add(1 * time.Second))
	buf := make([]byte, 1)
	_, err := second.Read(buf)
	assert.Error(t, err, "second connection beyond max_connections should be accepted then closed")
}

func readFull(conn net.Conn, buf []byte) (int, error) {
	total := 0
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for total < len(buf) {
		n, err := conn.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

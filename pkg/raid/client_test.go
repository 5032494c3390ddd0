package raid

import (
	"encoding/binary"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/glhrmfrts/raid-go/internal/raidtransport"
	"github.com/glhrmfrts/raid-go/internal/raidwire"
)

// pipeTransport adapts a net.Conn (from net.Pipe, in these tests) to
// raidtransport.Transport, the way TCPTransport adapts a real net.Conn,
// so the client façade can be driven end-to-end without a real socket —
// the same in-process style the teacher's adapter tests use.
type pipeTransport struct {
	conn      net.Conn
	connected atomic.Bool
}

func newPipeTransport(conn net.Conn) *pipeTransport {
	t := &pipeTransport{conn: conn}
	t.connected.Store(true)
	return t
}

func (t *pipeTransport) Send(data []byte) error {
	_, err := t.conn.Write(data)
	if err != nil {
		t.connected.Store(false)
	}
	return err
}

func (t *pipeTransport) Recv(buf []byte) (int, raidtransport.Code, error) {
	_ = t.conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	n, err := t.conn.Read(buf)
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return n, raidtransport.Timeout, err
		}
		t.connected.Store(false)
		return n, raidtransport.NotConnected, err
	}
	return n, raidtransport.Success, nil
}

func (t *pipeTransport) Connected() bool { return t.connected.Load() }

func (t *pipeTransport) Close() error {
	t.connected.Store(false)
	return t.conn.Close()
}

// readFrame reads one length-prefixed frame from conn, the test
// server's side of the protocol.
func readFrame(conn net.Conn) ([]byte, error) {
	var header [4]byte
	if _, err := io.ReadFull(conn, header[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(header[:])
	buf := make([]byte, n)
	if _, err := io.ReadFull(conn, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func writeFrame(conn net.Conn, payload []byte) error {
	prefix := raidwire.LengthPrefix(len(payload))
	if _, err := conn.Write(prefix[:]); err != nil {
		return err
	}
	_, err := conn.Write(payload)
	return err
}

// newTestConnectedClient dials an in-process net.Pipe pair and returns a
// client already wired to it via WithTransport, plus the server-side
// net.Conn for a test-authored fake server loop.
func newTestConnectedClient(t *testing.T, opts ...Option) (*Client, net.Conn) {
	t.Helper()
	clientConn, serverConn := net.Pipe()

	allOpts := append([]Option{WithTransport(newPipeTransport(clientConn))}, opts...)
	c := NewClient("pipe", "0", allOpts...)
	require.NoError(t, c.Connect())

	t.Cleanup(func() {
		_ = c.Disconnect()
	})
	return c, serverConn
}

// echoServer replies to every request with action "reply", the request's
// etag and body, under header.code = "OK".
func echoServer(t *testing.T, conn net.Conn, stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		default:
		}
		payload, err := readFrame(conn)
		if err != nil {
			return
		}
		v, err := raidwire.Decode(payload)
		require.NoError(t, err)

		header, _ := v.GetExact("header")
		etag, _ := header.GetExact("etag")
		body, hasBody := v.GetExact("body")

		enc := raidwire.NewEncoder()
		if hasBody {
			require.NoError(t, enc.WriteMapHeader(2))
		} else {
			require.NoError(t, enc.WriteMapHeader(1))
		}
		require.NoError(t, enc.WriteString("header"))
		require.NoError(t, enc.WriteMapHeader(3))
		require.NoError(t, enc.WriteString("action"))
		require.NoError(t, enc.WriteString("reply"))
		require.NoError(t, enc.WriteString("etag"))
		require.NoError(t, enc.WriteString(etag.S))
		require.NoError(t, enc.WriteString("code"))
		require.NoError(t, enc.WriteString("OK"))
		if hasBody {
			require.NoError(t, enc.WriteString("body"))
			require.NoError(t, enc.WriteValue(body))
		}

		if err := writeFrame(conn, enc.Bytes()); err != nil {
			return
		}
	}
}

func TestClient_RequestAsync_EtagCorrelation(t *testing.T) {
	c, serverConn := newTestConnectedClient(t)
	stop := make(chan struct{})
	defer close(stop)
	go echoServer(t, serverConn, stop)

	w := NewWriter(c)
	require.NoError(t, w.WriteMessage("api.echo"))
	require.NoError(t, w.WriteString("Hello World"))

	done := make(chan struct{})
	var calls int32
	err := c.RequestAsync(w, func(reader *Reader, code ErrorCode) {
		atomic.AddInt32(&calls, 1)
		require.Equal(t, CodeSuccess, code)
		body, ok := reader.ReadString()
		require.True(t, ok)
		require.Equal(t, "Hello World", body)
		close(done)
	})
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for response")
	}
	require.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestClient_Request_Synchronous(t *testing.T) {
	// S1.
	c, serverConn := newTestConnectedClient(t)
	stop := make(chan struct{})
	defer close(stop)
	go echoServer(t, serverConn, stop)

	w := NewWriter(c)
	require.NoError(t, w.WriteMessage("api.echo"))
	require.NoError(t, w.WriteString("Hello World"))

	r := NewReader()
	require.NoError(t, c.Request(w, r))

	body, ok := r.ReadString()
	require.True(t, ok)
	require.Equal(t, "Hello World", body)

	code, ok := r.ReadCode()
	require.True(t, ok)
	require.Equal(t, "OK", code)
}

func TestClient_Timeout(t *testing.T) {
	// S5: no server reply at all within the configured timeout.
	c, serverConn := newTestConnectedClient(t, WithDefaultTimeout(50*time.Millisecond))
	// net.Pipe has no buffering: drain the server side so Send returns.
	go func() { _, _ = io.Copy(io.Discard, serverConn) }()

	w := NewWriter(c)
	require.NoError(t, w.WriteMessage("api.silence"))
	require.NoError(t, w.WriteNil())

	done := make(chan ErrorCode, 1)
	require.NoError(t, c.RequestAsync(w, func(reader *Reader, code ErrorCode) {
		done <- code
	}))

	select {
	case code := <-done:
		require.Equal(t, CodeRecvTimeout, code)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the timeout callback")
	}
}

func TestClient_CancelRequest(t *testing.T) {
	// S6.
	c, serverConn := newTestConnectedClient(t)
	go func() { _, _ = io.Copy(io.Discard, serverConn) }()

	w := NewWriter(c)
	require.NoError(t, w.WriteMessage("api.slow"))
	require.NoError(t, w.WriteNil())

	var gotCode ErrorCode
	var mu sync.Mutex
	require.NoError(t, c.RequestAsync(w, func(reader *Reader, code ErrorCode) {
		mu.Lock()
		gotCode = code
		mu.Unlock()
	}))

	require.NoError(t, c.CancelRequest(w.Etag()))

	mu.Lock()
	require.Equal(t, CodeCanceled, gotCode)
	mu.Unlock()

	// A different etag still works.
	w2 := NewWriter(c)
	require.NoError(t, w2.WriteMessage("api.other"))
	require.NoError(t, w2.WriteNil())
	require.NoError(t, c.RequestAsync(w2, func(reader *Reader, code ErrorCode) {}))
}

func TestClient_Disconnect_FailsPending(t *testing.T) {
	c, serverConn := newTestConnectedClient(t)
	go func() { _, _ = io.Copy(io.Discard, serverConn) }()

	w := NewWriter(c)
	require.NoError(t, w.WriteMessage("api.never"))
	require.NoError(t, w.WriteNil())

	done := make(chan ErrorCode, 1)
	require.NoError(t, c.RequestAsync(w, func(reader *Reader, code ErrorCode) {
		done <- code
	}))

	require.NoError(t, serverConn.Close())

	select {
	case code := <-done:
		require.Equal(t, CodeNotConnected, code)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for disconnect callback")
	}

	err := c.RequestAsync(w, func(reader *Reader, code ErrorCode) {})
	require.ErrorIs(t, err, ErrNotConnected)
}

package raid

import (
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/glhrmfrts/raid-go/internal/raidtransport"
	"github.com/glhrmfrts/raid-go/internal/raidwire"
)

// reorderingEchoServer reads n requests, then replies to them in the
// order given by replyOrder (indices into the read order), echoing each
// request's body back. Used to exercise S3's "server replies out of
// submission order" scenario.
func reorderingEchoServer(t *testing.T, serverTransport *pipeTransport, n int, replyOrder []int) {
	type received struct {
		etag string
		body *raidwire.Value
	}
	reqs := make([]received, n)

	buf := make([]byte, 64<<10)
	framer := raidwire.NewFramer()
	got := 0
	for got < n {
		nn, _, err := serverTransport.Recv(buf)
		if err != nil && nn == 0 {
			continue
		}
		_ = framer.Feed(buf[:nn], func(payload []byte) {
			v, err := raidwire.Decode(payload)
			require.NoError(t, err)
			header, _ := v.GetExact("header")
			etag, _ := header.GetExact("etag")
			body, _ := v.GetExact("body")
			reqs[got] = received{etag: etag.S, body: body}
			got++
		})
	}

	for _, idx := range replyOrder {
		r := reqs[idx]
		enc := raidwire.NewEncoder()
		require.NoError(t, enc.WriteMapHeader(2))
		require.NoError(t, enc.WriteString("header"))
		require.NoError(t, enc.WriteMapHeader(3))
		require.NoError(t, enc.WriteString("action"))
		require.NoError(t, enc.WriteString("reply"))
		require.NoError(t, enc.WriteString("etag"))
		require.NoError(t, enc.WriteString(r.etag))
		require.NoError(t, enc.WriteString("code"))
		require.NoError(t, enc.WriteString("OK"))
		require.NoError(t, enc.WriteString("body"))
		require.NoError(t, enc.WriteValue(r.body))

		prefix := raidwire.LengthPrefix(enc.Len())
		require.NoError(t, serverTransport.Send(prefix[:]))
		require.NoError(t, serverTransport.Send(enc.Bytes()))
	}
}

func TestRequestGroup_AggregatesBySubmissionOrder(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	clientT := newPipeTransport(clientConn)
	serverT := newPipeTransport(serverConn)

	c := NewClient("pipe", "0", WithTransport(clientT))
	require.NoError(t, c.Connect())
	defer c.Disconnect()

	go reorderingEchoServer(t, serverT, 3, []int{2, 0, 1})

	g := NewRequestGroup(c)
	for _, action := range []string{"a", "b", "c"} {
		e := g.Add()
		require.NoError(t, e.Writer.WriteMessage(action))
	}
	require.NoError(t, g.entries[0].Writer.WriteInt(1))
	require.NoError(t, g.entries[1].Writer.WriteInt(2))
	require.NoError(t, g.entries[2].Writer.WriteInt(3))

	done := make(chan struct{})
	go func() {
		require.NoError(t, g.SendAndWait())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for request group")
	}

	out := NewReader()
	errs := NewReader()
	require.NoError(t, g.ReadToArray(out, errs))

	n, ok := out.ReadBeginArray()
	require.True(t, ok)
	require.Equal(t, 3, n)

	v, ok := out.ReadInt()
	require.True(t, ok)
	require.Equal(t, int64(1), v)
	require.True(t, out.ReadNext())
	v, ok = out.ReadInt()
	require.True(t, ok)
	require.Equal(t, int64(2), v)
	require.True(t, out.ReadNext())
	v, ok = out.ReadInt()
	require.True(t, ok)
	require.Equal(t, int64(3), v)

	en, ok := errs.ReadBeginArray()
	require.True(t, ok)
	require.Equal(t, 3, en)
	for i := 0; i < 3; i++ {
		code, ok := errs.ReadInt()
		require.True(t, ok)
		require.Equal(t, int64(CodeSuccess), code)
		if i < 2 {
			require.True(t, errs.ReadNext())
		}
	}
}

// failAfterTransport lets the first okSends Send calls succeed, then
// fails every one after that with a NotConnected-classified error,
// simulating a connection dropping partway through a RequestGroup.Send
// fan-out. Recv reports NotConnected once Close has run, the same way
// pkg/raid/client_test.go's pipeTransport does, so the background
// receive loop (and a deferred Disconnect waiting on it) can actually
// exit instead of spinning on Timeout forever.
type failAfterTransport struct {
	mu        sync.Mutex
	sends     int
	okSends   int
	connected atomic.Bool
}

func newFailAfterTransport(okSends int) *failAfterTransport {
	t := &failAfterTransport{okSends: okSends}
	t.connected.Store(true)
	return t
}

func (t *failAfterTransport) Send(data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sends++
	if t.sends > t.okSends {
		return &raidtransport.TransportError{Code: raidtransport.NotConnected}
	}
	return nil
}

func (t *failAfterTransport) Recv(buf []byte) (int, raidtransport.Code, error) {
	if !t.connected.Load() {
		return 0, raidtransport.NotConnected, nil
	}
	time.Sleep(10 * time.Millisecond)
	return 0, raidtransport.Timeout, nil
}

func (t *failAfterTransport) Connected() bool { return t.connected.Load() }

func (t *failAfterTransport) Close() error {
	t.connected.Store(false)
	return nil
}

func TestRequestGroup_PartialSendFailureMarksEveryEntryNonSuccess(t *testing.T) {
	// Only entry 0's two Send calls (length prefix + payload) succeed;
	// entry 1's first Send call fails, so entry 2 is never attempted.
	ft := newFailAfterTransport(2)
	c := NewClient("pipe", "0", WithTransport(ft))
	require.NoError(t, c.Connect())
	defer c.Disconnect()

	g := NewRequestGroup(c)
	for _, action := range []string{"a", "b", "c"} {
		e := g.Add()
		require.NoError(t, e.Writer.WriteMessage(action))
		require.NoError(t, e.Writer.WriteNil())
	}

	err := g.Send()
	require.Error(t, err)

	g.Wait()

	for i, e := range g.entries {
		require.NotEqual(t, CodeSuccess, e.Err, "entry %d must not report success after a partial send failure", i)
	}
	require.Equal(t, CodeCanceled, g.entries[0].Err, "entry 0 was already queued and must be canceled")
	require.Equal(t, CodeCanceled, g.entries[2].Err, "entry 2 was never attempted and must be canceled")

	outErrs := NewReader()
	require.NoError(t, g.ReadToArray(NewReader(), outErrs))

	n, ok := outErrs.ReadBeginArray()
	require.True(t, ok)
	require.Equal(t, 3, n)
	for i := 0; i < 3; i++ {
		code, ok := outErrs.ReadInt()
		require.True(t, ok)
		require.NotEqual(t, int64(CodeSuccess), code)
		if i < 2 {
			require.True(t, outErrs.ReadNext())
		}
	}
}

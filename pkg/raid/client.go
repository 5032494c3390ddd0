// Package raid implements the CORE of the Raid request/response protocol
// client: connection lifecycle, framing, the pending-request registry,
// the Writer/Reader façades, and request groups. It depends only on the
// narrow internal/raidtransport.Transport and internal/raidwire codec/
// framer collaborators, the way spec.md §1 scopes the CORE against its
// external collaborators.
package raid

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/glhrmfrts/raid-go/internal/raidlog"
	"github.com/glhrmfrts/raid-go/internal/raidtransport"
	"github.com/glhrmfrts/raid-go/internal/raidwire"
)

// DefaultTimeout is the per-request timeout spec.md §4.5 specifies
// ("default timeout = 10 s").
const DefaultTimeout = 10 * time.Second

// DefaultConnectTimeout bounds the initial TCP dial.
const DefaultConnectTimeout = 10 * time.Second

// DefaultRecvTimeout bounds each transport.Recv call; the receive loop
// wakes at this cadence to sweep timeouts (spec.md §9 OQ2).
const DefaultRecvTimeout = 1 * time.Second

// Option configures a Client at construction time. The CORE itself takes
// no config files (spec.md §6); options are the idiomatic Go substitute
// for the C API's setter calls made between init and connect.
type Option func(*Client)

// WithDefaultTimeout overrides the per-request timeout.
func WithDefaultTimeout(d time.Duration) Option {
	return func(c *Client) { c.defaultTimeout = d }
}

// WithConnectTimeout overrides the dial timeout.
func WithConnectTimeout(d time.Duration) Option {
	return func(c *Client) { c.connectTimeout = d }
}

// WithRecvTimeout overrides the transport recv timeout / timeout-sweep
// cadence.
func WithRecvTimeout(d time.Duration) Option {
	return func(c *Client) { c.recvTimeout = d }
}

// WithTransport installs a pre-built transport, bypassing Connect's own
// dial. Intended for tests that drive the client over a net.Pipe().
func WithTransport(t raidtransport.Transport) Option {
	return func(c *Client) { c.presetTransport = t }
}

// Client is the Go analogue of raid_client_t: a single multiplexed
// connection, its receive loop, and the pending-request registry.
type Client struct {
	host string
	port string

	defaultTimeout  time.Duration
	connectTimeout  time.Duration
	recvTimeout     time.Duration
	presetTransport raidtransport.Transport

	reqsMu    sync.Mutex
	transport raidtransport.Transport
	active    bool

	registry *registry
	hooks    *hooks
	framer   *raidwire.Framer
	etagGen  uint64

	connectionID atomic.Int64
	recvLoopDone chan struct{}
}

// NewClient is raid_client_init: zero state, duplicate host/port, no
// network I/O performed yet.
func NewClient(host, port string, opts ...Option) *Client {
	c := &Client{
		host:           host,
		port:           port,
		defaultTimeout: DefaultTimeout,
		connectTimeout: DefaultConnectTimeout,
		recvTimeout:    DefaultRecvTimeout,
		registry:       newRegistry(),
		hooks:          newHooks(),
		framer:         raidwire.NewFramer(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Host and Port expose the client's configured address.
func (c *Client) Host() string { return c.host }
func (c *Client) Port() string { return c.port }

// OnBeforeSend registers a before_send hook.
func (c *Client) OnBeforeSend(fn BeforeSendHook) { c.hooks.addBeforeSend(fn) }

// OnAfterRecv registers an after_recv hook.
func (c *Client) OnAfterRecv(fn AfterRecvHook) { c.hooks.addAfterRecv(fn) }

// OnMsgRecv registers an msg_recv (unsolicited message) hook.
func (c *Client) OnMsgRecv(fn MsgRecvHook) { c.hooks.addMsgRecv(fn) }

// Connect dials the transport (unless one was preset via WithTransport),
// bumps connection_id, and starts the receive loop. Fails with
// ErrAlreadyConnected if already connected (spec.md §4.5).
func (c *Client) Connect() error {
	c.reqsMu.Lock()
	if c.active {
		c.reqsMu.Unlock()
		return ErrAlreadyConnected
	}

	var t raidtransport.Transport
	if c.presetTransport != nil {
		t = c.presetTransport
	} else {
		dialed, err := raidtransport.Dial(c.host, c.port, c.connectTimeout, c.recvTimeout)
		if err != nil {
			c.reqsMu.Unlock()
			return classifyTransportErr(err)
		}
		t = dialed
	}

	c.transport = t
	c.active = true
	c.connectionID.Add(1)
	c.recvLoopDone = make(chan struct{})
	c.reqsMu.Unlock()

	raidlog.Debug("connect", "host", c.host, "port", c.port, "connection_id", c.connectionID.Load())
	go c.recvLoop()
	return nil
}

// Connected reports the transport-level connection state.
func (c *Client) Connected() bool {
	c.reqsMu.Lock()
	defer c.reqsMu.Unlock()
	return c.active && c.transport != nil && c.transport.Connected()
}

// ConnectionID returns the current connection generation, bumped once
// per successful Connect.
func (c *Client) ConnectionID() int64 { return c.connectionID.Load() }

// RequestAsync sends w's payload and registers cb to be invoked exactly
// once with the response (or a terminal error), per spec.md §4.5.
func (c *Client) RequestAsync(w *Writer, cb ResponseCallback) error {
	c.reqsMu.Lock()
	if !c.active || c.transport == nil {
		c.reqsMu.Unlock()
		return ErrNotConnected
	}

	payload := w.Data()
	c.hooks.fireBeforeSend(payload)

	prefix := raidwire.LengthPrefix(len(payload))
	if err := c.transport.Send(prefix[:]); err != nil {
		c.handleSendFailure(err)
		c.reqsMu.Unlock()
		return ErrNotConnected
	}
	if err := c.transport.Send(payload); err != nil {
		c.handleSendFailure(err)
		c.reqsMu.Unlock()
		return ErrNotConnected
	}

	etag := w.Etag()
	c.registry.append(etag, c.defaultTimeout, cb)
	c.reqsMu.Unlock()
	return nil
}

// handleSendFailure closes the transport on a peer-closed send error, the
// way spec.md §4.5 describes ("On transport send failure classified as
// peer-closed: close the transport, detach the receive thread"). Caller
// must hold reqsMu.
func (c *Client) handleSendFailure(err error) {
	var tErr *raidtransport.TransportError
	if te, ok := err.(*raidtransport.TransportError); ok {
		tErr = te
	}
	if tErr == nil || tErr.Code == raidtransport.NotConnected {
		if c.transport != nil {
			_ = c.transport.Close()
		}
		c.active = false
	}
}

// completion is the shared state a synchronous Request waits on.
type completion struct {
	mu       sync.Mutex
	cond     *sync.Cond
	done     bool
	code     ErrorCode
	respData []byte
}

// Request is the synchronous wrapper spec.md §4.5 describes: it copies
// the response's decoded tree into a fresh buffer on the receive thread
// (by re-encoding), then decodes that copy on the caller's side into
// readerOut — avoiding the cross-thread aliasing hazard spec.md §9
// discusses for decoder-owned pointers.
func (c *Client) Request(w *Writer, readerOut *Reader) error {
	comp := &completion{}
	comp.cond = sync.NewCond(&comp.mu)

	err := c.RequestAsync(w, func(reader *Reader, code ErrorCode) {
		comp.mu.Lock()
		comp.code = code
		if code == CodeSuccess && reader != nil {
			enc := raidwire.NewEncoder()
			if encErr := enc.WriteValue(reader.root); encErr == nil {
				comp.respData = append([]byte(nil), enc.Bytes()...)
			} else {
				comp.code = CodeUnknown
			}
		}
		comp.done = true
		comp.cond.Signal()
		comp.mu.Unlock()
	})
	if err != nil {
		return err
	}

	comp.mu.Lock()
	for !comp.done {
		comp.cond.Wait()
	}
	code := comp.code
	data := comp.respData
	comp.mu.Unlock()

	if code != CodeSuccess {
		return newErr(code, nil)
	}
	return readerOut.SetData(data, true)
}

// CancelRequest removes the matching pending entry (if any) and fires
// its callback with CodeCanceled. A reply that arrives afterward for the
// same etag is treated by the dispatcher as an unsolicited message.
func (c *Client) CancelRequest(etag string) error {
	p, ok := c.registry.findAndRemoveByEtag(etag)
	if !ok {
		return newErr(CodeInvalidArgument, nil)
	}
	fireCallback(p.callback, nil, CodeCanceled)
	return nil
}

// Disconnect closes the transport and waits for the receive loop to
// exit.
func (c *Client) Disconnect() error {
	c.reqsMu.Lock()
	if !c.active {
		c.reqsMu.Unlock()
		return nil
	}
	t := c.transport
	c.active = false
	c.reqsMu.Unlock()

	if t != nil {
		_ = t.Close()
	}

	if c.recvLoopDone != nil {
		<-c.recvLoopDone
	}
	return nil
}

// Destroy disconnects if connected. Go's GC reclaims the rest; provided
// for symmetry with raid_client_destroy.
func (c *Client) Destroy() error {
	return c.Disconnect()
}

func classifyTransportErr(err error) error {
	te, ok := err.(*raidtransport.TransportError)
	if !ok {
		return newErr(CodeUnknown, err)
	}
	switch te.Code {
	case raidtransport.InvalidAddress:
		return newErr(CodeInvalidAddress, err)
	case raidtransport.ConnectError:
		return newErr(CodeConnectError, err)
	default:
		return newErr(CodeSocketError, err)
	}
}

package raid

import (
	"github.com/glhrmfrts/raid-go/internal/bufpool"
	"github.com/glhrmfrts/raid-go/internal/raidlog"
	"github.com/glhrmfrts/raid-go/internal/raidtransport"
)

// recvLoopBufSize is the chunk size the receive loop reads into before
// handing bytes to the framer.
const recvLoopBufSize = 64 << 10

// recvLoop is the single background worker spec.md §4.4 describes: it
// owns the only read of the socket, feeds the framer, dispatches
// complete messages, and drives the timeout sweep on every wakeup.
func (c *Client) recvLoop() {
	defer close(c.recvLoopDone)

	buf := bufpool.Get(recvLoopBufSize)
	defer bufpool.Put(buf)

recvLoop:
	for {
		c.reqsMu.Lock()
		t := c.transport
		c.reqsMu.Unlock()
		if t == nil {
			break
		}

		n, code, err := t.Recv(buf)
		if n > 0 {
			if ferr := c.framer.Feed(buf[:n], c.onFrame); ferr != nil {
				raidlog.Warn("framing error, connection unrecoverable", "error", ferr)
				c.teardown()
				break recvLoop
			}
		}

		switch {
		case code == raidtransport.NotConnected:
			raidlog.Debug("recv: peer disconnected")
			break recvLoop
		case code == raidtransport.Timeout || n == 0:
			c.registry.sweepTimeouts(CodeRecvTimeout)
			if !c.registry.hasPending() {
				c.framer.Idle()
			}
		case code != raidtransport.Success:
			if err != nil {
				raidlog.Warn("recv error, treating as recoverable", "error", err)
			}
			c.registry.sweepTimeouts(CodeRecvTimeout)
		default:
			c.registry.sweepTimeouts(CodeRecvTimeout)
		}
	}

	c.reqsMu.Lock()
	c.active = false
	c.reqsMu.Unlock()

	c.registry.clearAll(CodeNotConnected)
}

// onFrame is the framer's onMessage callback: fire after_recv hooks with
// the raw bytes, then dispatch the decoded message.
func (c *Client) onFrame(payload []byte) {
	c.hooks.fireAfterRecv(payload)
	c.dispatch(payload)
}

// teardown closes the transport after an unrecoverable framing error.
func (c *Client) teardown() {
	c.reqsMu.Lock()
	if c.transport != nil {
		_ = c.transport.Close()
	}
	c.reqsMu.Unlock()
}

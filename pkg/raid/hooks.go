package raid

import "sync"

// BeforeSendHook observes an outbound payload (without its length
// prefix) just before it is written to the transport.
type BeforeSendHook func(payload []byte)

// AfterRecvHook observes a complete inbound frame after framing but
// before decode/dispatch (spec.md §4.1/§5).
type AfterRecvHook func(payload []byte)

// MsgRecvHook observes a decoded message whose etag matched no pending
// request (spec.md §4.2 step 4: an unsolicited message).
type MsgRecvHook func(reader *Reader)

// hooks is the client's append-only callback lists (spec.md §3: "Hooks
// form an append-only list; order preserved").
type hooks struct {
	mu         sync.Mutex
	beforeSend []BeforeSendHook
	afterRecv  []AfterRecvHook
	msgRecv    []MsgRecvHook
}

func newHooks() *hooks { return &hooks{} }

func (h *hooks) addBeforeSend(fn BeforeSendHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.beforeSend = append(h.beforeSend, fn)
}

func (h *hooks) addAfterRecv(fn AfterRecvHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.afterRecv = append(h.afterRecv, fn)
}

func (h *hooks) addMsgRecv(fn MsgRecvHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.msgRecv = append(h.msgRecv, fn)
}

// fireBeforeSend runs while the caller still holds reqsMu (spec.md §5:
// "before_send hooks fire before the length prefix is sent").
func (h *hooks) fireBeforeSend(payload []byte) {
	h.mu.Lock()
	list := h.beforeSend
	h.mu.Unlock()
	for _, fn := range list {
		fn(payload)
	}
}

// fireAfterRecv runs on the receive-thread, after a complete message is
// framed but before it is decoded and dispatched.
func (h *hooks) fireAfterRecv(payload []byte) {
	h.mu.Lock()
	list := h.afterRecv
	h.mu.Unlock()
	for _, fn := range list {
		fn(payload)
	}
}

// fireMsgRecv runs on the receive-thread for an unsolicited message.
func (h *hooks) fireMsgRecv(reader *Reader) {
	h.mu.Lock()
	list := h.msgRecv
	h.mu.Unlock()
	for _, fn := range list {
		fn(reader)
	}
}

package raid

import (
	"container/list"
	"sync"
	"time"
)

// ResponseCallback is invoked exactly once per pending request: with a
// reader positioned at the response and CodeSuccess, or a nil reader and
// a non-success code. Go closures replace the C API's user_data pointer.
type ResponseCallback func(reader *Reader, code ErrorCode)

// pendingRequest is one entry of the registry's ordered list, the Go
// analogue of the C reference's doubly-linked Request node — realized
// here with container/list per spec.md §9's note that "any ordered
// container that supports O(1) append/remove and stable iteration under
// a lock" may substitute for raw next/prev pointers.
type pendingRequest struct {
	etag      string
	createdAt time.Time
	timeout   time.Duration
	callback  ResponseCallback
}

// registry is the client's pending-request list (spec.md §4.3). All
// operations lock the registry's own mu; find_by_etag uses full string equality per
// Open Question #1's resolution (SPEC_FULL.md §D.1), never the
// well-known-header-key prefix match the Reader/Value layer uses.
type registry struct {
	mu      sync.Mutex
	entries *list.List // of *pendingRequest
	byEtag  map[string]*list.Element
}

func newRegistry() *registry {
	return &registry{
		entries: list.New(),
		byEtag:  make(map[string]*list.Element),
	}
}

// append pushes a new pending request to the front of the list, as
// spec.md §4.3 specifies, and records it for O(1) etag lookup.
func (r *registry) append(etag string, timeout time.Duration, cb ResponseCallback) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := &pendingRequest{etag: etag, createdAt: time.Now(), timeout: timeout, callback: cb}
	el := r.entries.PushFront(p)
	r.byEtag[etag] = el
}

// findAndRemoveByEtag removes and returns the entry matching etag
// exactly, if any. Used by the dispatcher and by cancelRequest.
func (r *registry) findAndRemoveByEtag(etag string) (*pendingRequest, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	el, ok := r.byEtag[etag]
	if !ok {
		return nil, false
	}
	r.remove(el)
	return el.Value.(*pendingRequest), true
}

// remove splices el out of the list; caller must hold r.mu.
func (r *registry) remove(el *list.Element) {
	p := el.Value.(*pendingRequest)
	delete(r.byEtag, p.etag)
	r.entries.Remove(el)
}

// sweepTimeouts walks the list once, removing and firing the callback
// of every entry whose age exceeds its timeout, or every entry at all
// when err is CodeNotConnected (the whole registry is being torn down).
// Callbacks fire outside r.mu per spec.md §5's locking discipline.
func (r *registry) sweepTimeouts(err ErrorCode) {
	now := time.Now()

	r.mu.Lock()
	var expired []*pendingRequest
	var next *list.Element
	for el := r.entries.Front(); el != nil; el = next {
		next = el.Next()
		p := el.Value.(*pendingRequest)
		if err == CodeNotConnected || now.Sub(p.createdAt) > p.timeout {
			r.remove(el)
			expired = append(expired, p)
		}
	}
	r.mu.Unlock()

	for _, p := range expired {
		fireCallback(p.callback, nil, err)
	}
}

// clearAll fires every entry's callback with (nil, err) and empties the
// registry. Used on disconnect.
func (r *registry) clearAll(err ErrorCode) {
	r.mu.Lock()
	var all []*pendingRequest
	for el := r.entries.Front(); el != nil; el = el.Next() {
		all = append(all, el.Value.(*pendingRequest))
	}
	r.entries.Init()
	r.byEtag = make(map[string]*list.Element)
	r.mu.Unlock()

	for _, p := range all {
		fireCallback(p.callback, nil, err)
	}
}

// hasPending reports whether any request is currently awaiting a
// response, used by the receive loop to decide whether an idle timeout
// should discard a partial frame (spec.md §4.1/§9 OQ3).
func (r *registry) hasPending() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.entries.Len() > 0
}

func fireCallback(cb ResponseCallback, reader *Reader, code ErrorCode) {
	if cb != nil {
		cb(reader, code)
	}
}

package raid

import (
	"sync"

	"github.com/glhrmfrts/raid-go/internal/raidwire"
)

// GroupCallback observes one entry's completion within a RequestGroup,
// in addition to the group's own join bookkeeping.
type GroupCallback func(entry *GroupEntry)

// GroupEntry is one fanned-out request of a RequestGroup (spec.md §4.8):
// its own Writer/Reader pair, an optional user callback, and the error
// the entry completed with.
type GroupEntry struct {
	Writer   *Writer
	Reader   *Reader
	OnDone   GroupCallback
	Err      ErrorCode
	group    *RequestGroup
}

// RequestGroup batches N requests, joins on their completion, and
// aggregates responses into a single array reader (spec.md §4.8).
type RequestGroup struct {
	client  *Client
	entries []*GroupEntry

	mu       sync.Mutex
	cond     *sync.Cond
	numDone  int
}

// NewRequestGroup is request_group.init/new.
func NewRequestGroup(client *Client) *RequestGroup {
	g := &RequestGroup{client: client}
	g.cond = sync.NewCond(&g.mu)
	return g
}

// Add allocates a new entry with its own Writer and an empty Reader,
// and appends it to the group. The returned entry's Writer must be
// prepared (WriteMessage + body) by the caller before Send.
func (g *RequestGroup) Add() *GroupEntry {
	e := &GroupEntry{
		Writer: NewWriter(g.client),
		Reader: NewReader(),
		group:  g,
	}
	g.entries = append(g.entries, e)
	return e
}

// Send issues request_async for every entry in submission order. If any
// send fails, every entry already queued is canceled by etag (their Err
// becomes CodeCanceled via the trampoline), the failing entry's own Err
// is set to the send error's code, every entry after it (never
// attempted) also gets CodeCanceled, every entry is marked done, and the
// error is returned.
func (g *RequestGroup) Send() error {
	for i, e := range g.entries {
		err := g.client.RequestAsync(e.Writer, g.trampoline(e))
		if err != nil {
			for j := 0; j < i; j++ {
				_ = g.client.CancelRequest(g.entries[j].Writer.Etag())
			}

			e.Err = errToCode(err)
			for j := i + 1; j < len(g.entries); j++ {
				g.entries[j].Err = CodeCanceled
			}

			g.mu.Lock()
			g.numDone = len(g.entries)
			g.cond.Broadcast()
			g.mu.Unlock()
			return err
		}
	}
	return nil
}

// errToCode recovers the ErrorCode a *Error carries, or CodeUnknown for
// any other error shape.
func errToCode(err error) ErrorCode {
	if e, ok := err.(*Error); ok {
		return e.Code
	}
	return CodeUnknown
}

// trampoline is the group-local callback spec.md §4.8 describes: store
// the error, swap a response tree into the entry's Reader, invoke the
// user callback, then bump num_done under the group mutex.
func (g *RequestGroup) trampoline(e *GroupEntry) ResponseCallback {
	return func(reader *Reader, code ErrorCode) {
		e.Err = code
		if code == CodeSuccess && reader != nil {
			e.Reader.Swap(reader)
		}
		if e.OnDone != nil {
			e.OnDone(e)
		}

		g.mu.Lock()
		g.numDone++
		g.cond.Signal()
		g.mu.Unlock()
	}
}

// Wait blocks until every entry has completed.
func (g *RequestGroup) Wait() {
	g.mu.Lock()
	for g.numDone < len(g.entries) {
		g.cond.Wait()
	}
	g.mu.Unlock()
}

// SendAndWait composes Send and Wait.
func (g *RequestGroup) SendAndWait() error {
	if err := g.Send(); err != nil {
		return err
	}
	g.Wait()
	return nil
}

// ReadToArray builds an array of each entry's body value (nil for an
// entry with no body, or one that errored), aligned by submission
// order rather than reply order, and decodes it into outReader.
// outErrors, if non-nil, receives a parallel array of each entry's
// ErrorCode (as an integer), also aligned by submission order
// (spec.md S3).
func (g *RequestGroup) ReadToArray(outReader *Reader, outErrors *Reader) error {
	enc := raidwire.NewEncoder()
	if err := enc.WriteArrayHeader(len(g.entries)); err != nil {
		return err
	}
	for _, e := range g.entries {
		if e.Err == CodeSuccess && e.Reader.body != nil {
			if err := enc.WriteValue(e.Reader.body); err != nil {
				return err
			}
		} else {
			if err := enc.WriteNil(); err != nil {
				return err
			}
		}
	}
	if err := outReader.SetData(enc.Bytes(), false); err != nil {
		return err
	}

	if outErrors != nil {
		errEnc := raidwire.NewEncoder()
		if err := errEnc.WriteArrayHeader(len(g.entries)); err != nil {
			return err
		}
		for _, e := range g.entries {
			if err := errEnc.WriteInt(int64(e.Err)); err != nil {
				return err
			}
		}
		if err := outErrors.SetData(errEnc.Bytes(), false); err != nil {
			return err
		}
	}
	return nil
}

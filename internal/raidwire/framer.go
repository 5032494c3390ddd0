package raidwire

import (
	"encoding/binary"
	"fmt"

	"github.com/glhrmfrts/raid-go/internal/bufpool"
)

// MaxFrameSize is the hard per-message size cap (spec.md §4.1): a length
// prefix greater than 1 GiB is a framing error and the connection becomes
// unrecoverable.
const MaxFrameSize = 1 << 30

type framerState int

const (
	stateWaitHeader framerState = iota
	stateProcessingBody
)

// Framer turns a byte stream into whole messages using a 4-byte
// big-endian length prefix, mirroring raid_state_t/read_message in
// raid_client.c but restructured as an incremental Feed call instead of a
// blocking read, since the Go receive loop owns the socket read itself
// (pkg/raid.recvLoop).
type Framer struct {
	state      framerState
	totalSize  uint32
	filled     uint32
	buf        []byte
	headerBuf  [4]byte
	headerFill int
}

// NewFramer returns a Framer starting in WAIT_HEADER.
func NewFramer() *Framer {
	return &Framer{state: stateWaitHeader}
}

// ErrFrameTooLarge is returned by Feed when a length prefix exceeds
// MaxFrameSize.
type ErrFrameTooLarge struct{ Length uint32 }

func (e *ErrFrameTooLarge) Error() string {
	return fmt.Sprintf("raidwire: frame length %d exceeds maximum %d", e.Length, MaxFrameSize)
}

// Feed consumes a chunk of bytes just read from the transport. Every
// complete message assembled along the way is passed to onMessage, in
// order. Feed returns an error only for an unrecoverable framing
// violation (over-size length prefix); the caller must then treat the
// connection as unusable.
func (f *Framer) Feed(chunk []byte, onMessage func([]byte)) error {
	for len(chunk) > 0 {
		switch f.state {
		case stateWaitHeader:
			n := copy(f.headerBuf[f.headerFill:], chunk)
			f.headerFill += n
			chunk = chunk[n:]
			if f.headerFill < 4 {
				return nil
			}

			length := binary.BigEndian.Uint32(f.headerBuf[:])
			f.headerFill = 0
			if length > MaxFrameSize {
				return &ErrFrameTooLarge{Length: length}
			}

			f.totalSize = length
			f.filled = 0
			f.buf = bufpool.Get(int(length))
			f.state = stateProcessingBody

			if length == 0 {
				onMessage(f.buf)
				bufpool.Put(f.buf)
				f.buf = nil
				f.state = stateWaitHeader
			}

		case stateProcessingBody:
			remaining := f.totalSize - f.filled
			n := uint32(len(chunk))
			if n > remaining {
				n = remaining
			}
			copy(f.buf[f.filled:], chunk[:n])
			f.filled += n
			chunk = chunk[n:]

			if f.filled >= f.totalSize {
				msg := f.buf
				f.buf = nil
				f.state = stateWaitHeader
				onMessage(msg)
				bufpool.Put(msg)
			}
		}
	}
	return nil
}

// Idle resets a partially-read frame back to WAIT_HEADER. spec.md §4.1:
// "A recv-timeout with no bytes, while PROCESSING_BODY and no pending
// requests, resets to WAIT_HEADER (stale partial frames are discarded)."
// The caller (recvLoop) is responsible for only invoking this when the
// registry has no pending requests.
func (f *Framer) Idle() {
	if f.state == stateProcessingBody {
		f.state = stateWaitHeader
		bufpool.Put(f.buf)
		f.buf = nil
		f.filled = 0
		f.totalSize = 0
	}
}

// InProgress reports whether a partial frame is currently buffered.
func (f *Framer) InProgress() bool {
	return f.state == stateProcessingBody
}

// LengthPrefix returns the 4-byte big-endian length prefix for a payload
// of the given size, the mirror image of the header this Framer parses.
func LengthPrefix(size int) [4]byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(size))
	return b
}

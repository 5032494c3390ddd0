// Package bufpool is a tiered byte-slice pool adapted from the teacher's
// pkg/bufpool, trimmed to the two size classes the client actually needs:
// small control messages (headers, etags, simple bodies) and large bulk
// bodies. Used by internal/raidwire.Framer to reuse message buffers
// across the receive loop's lifetime instead of allocating one per frame.
package bufpool

import "sync"

const (
	// DefaultSmallSize covers the overwhelming majority of Raid messages:
	// a header plus a handful of scalar fields.
	DefaultSmallSize = 4 << 10
	// DefaultLargeSize covers bulk bodies (file chunks, batched results).
	DefaultLargeSize = 1 << 20
)

// Pool manages small/large byte-slice pools, falling back to a direct
// allocation for anything bigger than the large tier so oversized
// buffers don't linger in the pool indefinitely.
type Pool struct {
	small     sync.Pool
	large     sync.Pool
	smallSize int
	largeSize int
}

// Config sizes a custom Pool's tiers.
type Config struct {
	SmallSize int
	LargeSize int
}

func DefaultConfig() Config {
	return Config{SmallSize: DefaultSmallSize, LargeSize: DefaultLargeSize}
}

func NewPool(cfg *Config) *Pool {
	if cfg == nil {
		d := DefaultConfig()
		cfg = &d
	}
	if cfg.SmallSize <= 0 {
		cfg.SmallSize = DefaultSmallSize
	}
	if cfg.LargeSize <= 0 {
		cfg.LargeSize = DefaultLargeSize
	}

	p := &Pool{smallSize: cfg.SmallSize, largeSize: cfg.LargeSize}
	p.small = sync.Pool{New: func() any {
		buf := make([]byte, p.smallSize)
		return &buf
	}}
	p.large = sync.Pool{New: func() any {
		buf := make([]byte, p.largeSize)
		return &buf
	}}
	return p
}

// Get returns a slice of exactly size bytes, backed by a pooled buffer
// when size fits a tier.
func (p *Pool) Get(size int) []byte {
	var bufPtr *[]byte
	switch {
	case size <= p.smallSize:
		bufPtr = p.small.Get().(*[]byte)
	case size <= p.largeSize:
		bufPtr = p.large.Get().(*[]byte)
	default:
		return make([]byte, size)
	}
	buf := *bufPtr
	if cap(buf) < size {
		buf = make([]byte, size)
	}
	return buf[:size]
}

// Put returns buf to the pool it was allocated from, identified by
// capacity. Buffers that don't match a tier's capacity exactly are left
// for the GC.
func (p *Pool) Put(buf []byte) {
	if buf == nil {
		return
	}
	switch cap(buf) {
	case p.smallSize:
		full := buf[:cap(buf)]
		p.small.Put(&full)
	case p.largeSize:
		full := buf[:cap(buf)]
		p.large.Put(&full)
	}
}

var global = NewPool(nil)

func Get(size int) []byte { return global.Get(size) }
func Put(buf []byte)      { global.Put(buf) }

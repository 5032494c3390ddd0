package raid

import (
	"github.com/glhrmfrts/raid-go/internal/raidwire"
)

// MaxReaderDepth is the bounded stack depth spec.md §4.7/S10 requires
// ("must be at least 64; exceeding it is a programming error").
const MaxReaderDepth = 64

// frame is one (parent container, index) entry of the Reader's bounded
// navigation stack (spec.md §3: "a stack of (parent, index) up to a
// fixed maximum depth").
type frame struct {
	parent *raidwire.Value
	index  int
}

// Reader owns a decoded value tree plus a cursor for structured
// navigation, the Go analogue of raid_reader_t in raid_read.h/
// raid_read.c.
type Reader struct {
	root   *raidwire.Value
	header *raidwire.Value
	etag   *raidwire.Value
	body   *raidwire.Value
	nested *raidwire.Value
	stack  [MaxReaderDepth]frame
	depth  int
}

// NewReader returns an empty Reader, the Go shape of raid_reader_new.
func NewReader() *Reader { return &Reader{} }

// NewReaderWithData is init_with_data: construct then immediately decode
// data as a non-response tree (body == root).
func NewReaderWithData(data []byte) (*Reader, error) {
	r := NewReader()
	if err := r.SetData(data, false); err != nil {
		return nil, err
	}
	return r, nil
}

// Close is the no-op-safe symmetric counterpart to raid_reader_delete.
func (r *Reader) Close() error { return nil }

// SetData decodes data into the reader's tree. The Go decoder allocates
// its own tree with copied string/binary contents, so there is no
// aliasing hazard requiring a retained-bytes copy the way
// raid_reader_t's set_data documents for the C decoder (SPEC_FULL.md §9
// design note (b)). When isResponse, body/header/etag are located per
// spec.md §4.7; otherwise body = nested = root.
func (r *Reader) SetData(data []byte, isResponse bool) error {
	v, err := raidwire.Decode(data)
	if err != nil {
		return newErr(CodeInvalidArgument, err)
	}
	r.root = v
	r.depth = 0

	if isResponse {
		header, _ := v.Get("header")
		r.header = header
		if header != nil {
			if etag, ok := header.Get("etag"); ok {
				r.etag = etag
			}
		}
		body, _ := v.Get("body")
		r.body = body
		r.nested = body
	} else {
		r.header = nil
		r.etag = nil
		r.body = v
		r.nested = v
	}
	return nil
}

// Swap exchanges all fields with other, the Go shape of raid_reader_swap
// (used by RequestGroup's trampoline to move a response tree into an
// entry's Reader without copying it again).
func (r *Reader) Swap(other *Reader) {
	*r, *other = *other, *r
}

func (r *Reader) current() *raidwire.Value {
	if r.nested == nil {
		return raidwire.Invalid()
	}
	return r.nested
}

func (r *Reader) IsNil() bool     { return r.current().Kind == raidwire.KindNil }
func (r *Reader) IsBool() bool    { return r.current().Kind == raidwire.KindBool }
func (r *Reader) IsInt() bool     { return r.current().Kind == raidwire.KindInt }
func (r *Reader) IsFloat() bool   { return r.current().Kind == raidwire.KindFloat }
func (r *Reader) IsString() bool  { return r.current().Kind == raidwire.KindString }
func (r *Reader) IsBinary() bool  { return r.current().Kind == raidwire.KindBinary }
func (r *Reader) IsArray() bool   { return r.current().Kind == raidwire.KindArray }
func (r *Reader) IsMap() bool     { return r.current().Kind == raidwire.KindMap }
func (r *Reader) IsInvalid() bool { return r.current().Kind == raidwire.KindInvalid }

func (r *Reader) ReadBool() (bool, bool) {
	c := r.current()
	if c.Kind != raidwire.KindBool {
		return false, false
	}
	return c.B, true
}

func (r *Reader) ReadInt() (int64, bool) {
	c := r.current()
	if c.Kind != raidwire.KindInt {
		return 0, false
	}
	return c.I, true
}

func (r *Reader) ReadFloat() (float64, bool) {
	c := r.current()
	if c.Kind != raidwire.KindFloat {
		return 0, false
	}
	return c.F, true
}

// ReadString returns a copy of the current string node's value.
func (r *Reader) ReadString() (string, bool) {
	c := r.current()
	if c.Kind != raidwire.KindString {
		return "", false
	}
	return c.S, true
}

// ReadBinary returns a copy of the current binary node's bytes.
func (r *Reader) ReadBinary() ([]byte, bool) {
	c := r.current()
	if c.Kind != raidwire.KindBinary {
		return nil, false
	}
	out := make([]byte, len(c.Bin))
	copy(out, c.Bin)
	return out, true
}

// CopyCString copies the current string node into buf, failing if buf
// is too small, the Go shape of copy_cstring(buf, n).
func (r *Reader) CopyCString(buf []byte) (int, bool) {
	c := r.current()
	if c.Kind != raidwire.KindString {
		return 0, false
	}
	if len(buf) < len(c.S) {
		return 0, false
	}
	return copy(buf, c.S), true
}

// IsCode reports whether header.code's value equals s (prefix match
// against the stored key, per spec.md's well-known-key convention).
func (r *Reader) IsCode(s string) bool {
	code, ok := r.readCodeValue()
	return ok && code == s
}

// ReadCode returns a copy of header.code.
func (r *Reader) ReadCode() (string, bool) {
	return r.readCodeValue()
}

// ReadCodeCString copies header.code into buf.
func (r *Reader) ReadCodeCString(buf []byte) (int, bool) {
	code, ok := r.readCodeValue()
	if !ok || len(buf) < len(code) {
		return 0, false
	}
	return copy(buf, code), true
}

func (r *Reader) readCodeValue() (string, bool) {
	if r.header == nil {
		return "", false
	}
	v, ok := r.header.Get("code")
	if !ok || v.Kind != raidwire.KindString {
		return "", false
	}
	return v.S, true
}

// ReadEtagCString returns a copy of header.etag.
func (r *Reader) ReadEtagCString() (string, bool) {
	if r.etag == nil || r.etag.Kind != raidwire.KindString {
		return "", false
	}
	return r.etag.S, true
}

// ReadBeginArray pushes the current array container and moves the
// cursor to its first element. Fails if not currently on an array, or
// if the bounded stack is already full (spec.md S10: depth ≥ 64, the
// 65th nesting level fails).
func (r *Reader) ReadBeginArray() (length int, ok bool) {
	c := r.current()
	if c.Kind != raidwire.KindArray {
		return 0, false
	}
	if r.depth >= MaxReaderDepth {
		return 0, false
	}
	r.stack[r.depth] = frame{parent: c, index: 0}
	r.depth++
	if len(c.Arr) > 0 {
		r.nested = c.Arr[0]
	} else {
		r.nested = raidwire.Invalid()
	}
	return len(c.Arr), true
}

// ReadBeginMap is ReadBeginArray's map counterpart; the cursor moves to
// the first entry's value.
func (r *Reader) ReadBeginMap() (length int, ok bool) {
	c := r.current()
	if c.Kind != raidwire.KindMap {
		return 0, false
	}
	if r.depth >= MaxReaderDepth {
		return 0, false
	}
	r.stack[r.depth] = frame{parent: c, index: 0}
	r.depth++
	if len(c.Map) > 0 {
		r.nested = c.Map[0].Val
	} else {
		r.nested = raidwire.Invalid()
	}
	return len(c.Map), true
}

// ReadMapKey returns a copy of the key at the current map index.
func (r *Reader) ReadMapKey() (string, bool) {
	if r.depth == 0 {
		return "", false
	}
	f := r.stack[r.depth-1]
	if f.parent.Kind != raidwire.KindMap || f.index >= len(f.parent.Map) {
		return "", false
	}
	return f.parent.Map[f.index].Key, true
}

// ReadMapKeyCString copies the current map key into buf.
func (r *Reader) ReadMapKeyCString(buf []byte) (int, bool) {
	key, ok := r.ReadMapKey()
	if !ok || len(buf) < len(key) {
		return 0, false
	}
	return copy(buf, key), true
}

// IsMapKey reports whether the current map key equals s.
func (r *Reader) IsMapKey(s string) bool {
	key, ok := r.ReadMapKey()
	return ok && key == s
}

// ReadNext advances the index on the top stack frame and moves the
// cursor to the next sibling. Fails when not inside a container or
// already past the last element (spec.md S9: "read_next past the end
// ... returns false and leaves the cursor unchanged").
func (r *Reader) ReadNext() bool {
	if r.depth == 0 {
		return false
	}
	f := &r.stack[r.depth-1]
	switch f.parent.Kind {
	case raidwire.KindArray:
		if f.index+1 >= len(f.parent.Arr) {
			return false
		}
		f.index++
		r.nested = f.parent.Arr[f.index]
		return true
	case raidwire.KindMap:
		if f.index+1 >= len(f.parent.Map) {
			return false
		}
		f.index++
		r.nested = f.parent.Map[f.index].Val
		return true
	default:
		return false
	}
}

// ReadEndArray pops the stack, returning the cursor to the array itself.
// A no-op (returns false) without a matching ReadBeginArray, per
// spec.md S9.
func (r *Reader) ReadEndArray() bool {
	if r.depth == 0 || r.stack[r.depth-1].parent.Kind != raidwire.KindArray {
		return false
	}
	r.depth--
	r.nested = r.stack[r.depth].parent
	return true
}

// ReadEndMap is ReadEndArray's map counterpart.
func (r *Reader) ReadEndMap() bool {
	if r.depth == 0 || r.stack[r.depth-1].parent.Kind != raidwire.KindMap {
		return false
	}
	r.depth--
	r.nested = r.stack[r.depth].parent
	return true
}

// Value exposes the current cursor node for callers that need to
// preserve it verbatim (e.g. Writer.WriteObject, RequestGroup's
// read_to_array body aggregation).
func (r *Reader) Value() *raidwire.Value { return r.current() }

// Body exposes the response/root body node directly.
func (r *Reader) Body() *raidwire.Value { return r.body }

package raidwire

import (
	"bytes"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Encoder builds an outbound message by issuing the same sequence of
// low-level calls the Writer façade in pkg/raid translates its
// write_message/write_int/write_string/... calls into. It wraps
// msgpack.Encoder's streaming API directly instead of marshaling a
// pre-built Go value, so a map's keys can be emitted one at a time in
// caller order (spec.md S2 requires insertion-order key iteration, which
// a plain map[string]any round trip would not preserve).
type Encoder struct {
	buf *bytes.Buffer
	enc *msgpack.Encoder
}

// NewEncoder returns an empty Encoder, mirroring msgpack_sbuffer_init +
// msgpack_packer_init in raid_write.c.
func NewEncoder() *Encoder {
	buf := &bytes.Buffer{}
	return &Encoder{buf: buf, enc: msgpack.NewEncoder(buf)}
}

// Reset clears the buffer for reuse, as raid_write_message does each time
// it is called on an already-initialized writer (spec.md Writer
// idempotence, S8).
func (e *Encoder) Reset() {
	e.buf.Reset()
}

func (e *Encoder) Bytes() []byte { return e.buf.Bytes() }
func (e *Encoder) Len() int      { return e.buf.Len() }

func (e *Encoder) WriteNil() error          { return e.enc.EncodeNil() }
func (e *Encoder) WriteBool(b bool) error   { return e.enc.EncodeBool(b) }
func (e *Encoder) WriteInt(n int64) error   { return e.enc.EncodeInt(n) }
func (e *Encoder) WriteFloat(f float64) error { return e.enc.EncodeFloat64(f) }
func (e *Encoder) WriteString(s string) error { return e.enc.EncodeString(s) }
func (e *Encoder) WriteBinary(b []byte) error { return e.enc.EncodeBytes(b) }
func (e *Encoder) WriteArrayHeader(n int) error { return e.enc.EncodeArrayLen(n) }
func (e *Encoder) WriteMapHeader(n int) error   { return e.enc.EncodeMapLen(n) }

// WriteRaw appends pre-encoded bytes verbatim (raid_write_raw / write_object
// on an already-serialized value).
func (e *Encoder) WriteRaw(data []byte) error {
	_, err := e.buf.Write(data)
	return err
}

// WriteValue re-serializes a decoded *Value tree, used by
// RequestGroup.ReadToArray to splice each entry's response body back into
// a fresh outbound array (mirrors raid_write_object over the entry's
// stored msgpack_object body).
func (e *Encoder) WriteValue(v *Value) error {
	if v == nil {
		return e.WriteNil()
	}
	switch v.Kind {
	case KindNil, KindInvalid:
		return e.WriteNil()
	case KindBool:
		return e.WriteBool(v.B)
	case KindInt:
		return e.WriteInt(v.I)
	case KindFloat:
		return e.WriteFloat(v.F)
	case KindString:
		return e.WriteString(v.S)
	case KindBinary:
		return e.WriteBinary(v.Bin)
	case KindArray:
		if err := e.WriteArrayHeader(len(v.Arr)); err != nil {
			return err
		}
		for _, item := range v.Arr {
			if err := e.WriteValue(item); err != nil {
				return err
			}
		}
		return nil
	case KindMap:
		if err := e.WriteMapHeader(len(v.Map)); err != nil {
			return err
		}
		for _, entry := range v.Map {
			if err := e.WriteString(entry.Key); err != nil {
				return err
			}
			if err := e.WriteValue(entry.Val); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("raidwire: cannot encode kind %v", v.Kind)
	}
}

// Decode parses a complete message buffer into a Value tree, preserving
// map key order. It is the decode-side counterpart used by the framer's
// dispatcher and by Reader.SetData.
func Decode(data []byte) (*Value, error) {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	return decodeValue(dec)
}

// MessagePack format byte ranges (messagepack.org/index.html#formats),
// used only to decide whether the next value is a map or an array before
// handing off to the decoder's typed DecodeMapLen/DecodeArrayLen/
// DecodeInterface calls.
const (
	fixMapLow    = 0x80
	fixMapHigh   = 0x8f
	fixArrayLow  = 0x90
	fixArrayHigh = 0x9f
	codeMap16    = 0xde
	codeMap32    = 0xdf
	codeArray16  = 0xdc
	codeArray32  = 0xdd
)

func isMapCode(c byte) bool {
	return (c >= fixMapLow && c <= fixMapHigh) || c == codeMap16 || c == codeMap32
}

func isArrayCode(c byte) bool {
	return (c >= fixArrayLow && c <= fixArrayHigh) || c == codeArray16 || c == codeArray32
}

func decodeValue(dec *msgpack.Decoder) (*Value, error) {
	code, err := dec.PeekCode()
	if err != nil {
		return nil, err
	}

	switch {
	case isMapCode(code):
		n, err := dec.DecodeMapLen()
		if err != nil {
			return nil, err
		}
		v := &Value{Kind: KindMap, Map: make([]Entry, 0, n)}
		for i := 0; i < n; i++ {
			key, err := dec.DecodeString()
			if err != nil {
				return nil, err
			}
			val, err := decodeValue(dec)
			if err != nil {
				return nil, err
			}
			v.Map = append(v.Map, Entry{Key: key, Val: val})
		}
		return v, nil

	case isArrayCode(code):
		n, err := dec.DecodeArrayLen()
		if err != nil {
			return nil, err
		}
		v := &Value{Kind: KindArray, Arr: make([]*Value, 0, n)}
		for i := 0; i < n; i++ {
			item, err := decodeValue(dec)
			if err != nil {
				return nil, err
			}
			v.Arr = append(v.Arr, item)
		}
		return v, nil
	}

	raw, err := dec.DecodeInterface()
	if err != nil {
		return nil, err
	}
	return valueOf(raw), nil
}

func valueOf(raw interface{}) *Value {
	switch x := raw.(type) {
	case nil:
		return &Value{Kind: KindNil}
	case bool:
		return &Value{Kind: KindBool, B: x}
	case int8:
		return &Value{Kind: KindInt, I: int64(x)}
	case int16:
		return &Value{Kind: KindInt, I: int64(x)}
	case int32:
		return &Value{Kind: KindInt, I: int64(x)}
	case int64:
		return &Value{Kind: KindInt, I: x}
	case int:
		return &Value{Kind: KindInt, I: int64(x)}
	case uint8:
		return &Value{Kind: KindInt, I: int64(x)}
	case uint16:
		return &Value{Kind: KindInt, I: int64(x)}
	case uint32:
		return &Value{Kind: KindInt, I: int64(x)}
	case uint64:
		return &Value{Kind: KindInt, I: int64(x)}
	case uint:
		return &Value{Kind: KindInt, I: int64(x)}
	case float32:
		return &Value{Kind: KindFloat, F: float64(x)}
	case float64:
		return &Value{Kind: KindFloat, F: x}
	case string:
		return &Value{Kind: KindString, S: x}
	case []byte:
		return &Value{Kind: KindBinary, Bin: x}
	default:
		return &Value{Kind: KindInvalid}
	}
}

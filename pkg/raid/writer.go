package raid

import (
	"strings"

	"github.com/glhrmfrts/raid-go/internal/raidwire"
)

// Writer builds an outbound message payload, the Go analogue of
// raid_writer_t in raid_write.h/raid_write.c. It owns the current
// request's etag (spec.md §3) and a back-reference to the client for
// etag generation under the registry lock.
type Writer struct {
	client *Client
	enc    *raidwire.Encoder
	etag   string
}

// NewWriter returns an empty Writer bound to client, the Go shape of the
// original's raid_writer_new constructor (SPEC_FULL.md §C).
func NewWriter(client *Client) *Writer {
	return &Writer{client: client, enc: raidwire.NewEncoder()}
}

// Close is a no-op-safe symmetric counterpart to raid_writer_delete; Go's
// GC reclaims the Writer, but pooled callers can call this to document
// intent.
func (w *Writer) Close() error { return nil }

// WriteMessage clears the buffer, generates a fresh etag, and opens a
// 2-entry { header: { action, etag }, body: <pending> } map. Exactly one
// subsequent value-producing call (WriteNil/WriteInt/.../WriteMapf/...)
// must supply the body value. Calling WriteMessage again replaces the
// previous preparation entirely (spec.md S8: writer idempotence).
func (w *Writer) WriteMessage(action string) error {
	w.enc.Reset()
	w.etag = w.client.nextEtag()

	if err := w.enc.WriteMapHeader(2); err != nil {
		return err
	}
	if err := w.writeHeader(action); err != nil {
		return err
	}
	return w.enc.WriteString("body")
}

// WriteMessageWithoutBody is WriteMessage without reserving a body key,
// for body-less requests (spec.md §6).
func (w *Writer) WriteMessageWithoutBody(action string) error {
	w.enc.Reset()
	w.etag = w.client.nextEtag()

	if err := w.enc.WriteMapHeader(1); err != nil {
		return err
	}
	return w.writeHeader(action)
}

func (w *Writer) writeHeader(action string) error {
	if err := w.enc.WriteString("header"); err != nil {
		return err
	}
	if err := w.enc.WriteMapHeader(2); err != nil {
		return err
	}
	if err := w.enc.WriteString("action"); err != nil {
		return err
	}
	if err := w.enc.WriteString(action); err != nil {
		return err
	}
	if err := w.enc.WriteString("etag"); err != nil {
		return err
	}
	return w.enc.WriteString(w.etag)
}

func (w *Writer) WriteNil() error            { return w.enc.WriteNil() }
func (w *Writer) WriteBool(b bool) error     { return w.enc.WriteBool(b) }
func (w *Writer) WriteInt(n int64) error     { return w.enc.WriteInt(n) }
func (w *Writer) WriteFloat(f float64) error { return w.enc.WriteFloat(f) }
func (w *Writer) WriteString(s string) error { return w.enc.WriteString(s) }
func (w *Writer) WriteCString(s string) error { return w.enc.WriteString(s) }
func (w *Writer) WriteBinary(b []byte) error { return w.enc.WriteBinary(b) }
func (w *Writer) WriteArray(n int) error     { return w.enc.WriteArrayHeader(n) }
func (w *Writer) WriteMap(n int) error       { return w.enc.WriteMapHeader(n) }
func (w *Writer) WriteRaw(data []byte) error { return w.enc.WriteRaw(data) }

// WriteObject re-serializes a preserved *Value (e.g. one read earlier
// from a Reader), the write_object(preserved-value) primitive of
// spec.md §4.6.
func (w *Writer) WriteObject(v *raidwire.Value) error { return w.enc.WriteValue(v) }

// WriteArrayf is the variadic convenience builder of spec.md §4.6: n
// must equal the number of whitespace-separated format tokens in
// format, chosen from %d (int64), %f (float64), %s (string), %o
// (preserved *raidwire.Value). On a mismatch it returns
// ErrInvalidArgument and leaves whatever was already emitted in the
// buffer, per spec.md §7.
func (w *Writer) WriteArrayf(n int, format string, args ...interface{}) error {
	tokens := tokenizeFormat(format)
	if len(tokens) != n {
		return newErr(CodeInvalidArgument, nil)
	}
	if err := w.enc.WriteArrayHeader(n); err != nil {
		return err
	}

	argi := 0
	for _, tok := range tokens {
		if argi >= len(args) {
			return newErr(CodeInvalidArgument, nil)
		}
		if err := w.writeFormatToken(tok, args[argi]); err != nil {
			return err
		}
		argi++
	}
	return nil
}

// WriteMapf is WriteArrayf's map counterpart: format alternates a quoted
// key token ('key' or "key") with a value format token, n times.
func (w *Writer) WriteMapf(n int, format string, args ...interface{}) error {
	tokens := tokenizeFormat(format)
	if len(tokens) != 2*n {
		return newErr(CodeInvalidArgument, nil)
	}
	if err := w.enc.WriteMapHeader(n); err != nil {
		return err
	}

	argi := 0
	for i := 0; i < len(tokens); i += 2 {
		key := tokens[i]
		tok := tokens[i+1]
		if argi >= len(args) {
			return newErr(CodeInvalidArgument, nil)
		}
		if err := w.enc.WriteString(key); err != nil {
			return err
		}
		if err := w.writeFormatToken(tok, args[argi]); err != nil {
			return err
		}
		argi++
	}
	return nil
}

func (w *Writer) writeFormatToken(tok string, arg interface{}) error {
	switch tok {
	case "%d":
		v, ok := toInt64(arg)
		if !ok {
			return newErr(CodeInvalidArgument, nil)
		}
		return w.enc.WriteInt(v)
	case "%f":
		v, ok := arg.(float64)
		if !ok {
			return newErr(CodeInvalidArgument, nil)
		}
		return w.enc.WriteFloat(v)
	case "%s":
		v, ok := arg.(string)
		if !ok {
			return newErr(CodeInvalidArgument, nil)
		}
		return w.enc.WriteString(v)
	case "%o":
		v, ok := arg.(*raidwire.Value)
		if !ok {
			return newErr(CodeInvalidArgument, nil)
		}
		return w.enc.WriteValue(v)
	default:
		return newErr(CodeInvalidArgument, nil)
	}
}

func toInt64(arg interface{}) (int64, bool) {
	switch v := arg.(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	}
	return 0, false
}

// tokenizeFormat splits a write_arrayf/write_mapf format string on
// whitespace, treating a '...'/"..." quoted run as a single token with
// its delimiters stripped (spec.md §4.6: "each item is preceded by a
// quoted key (single or double quotes, matched delimiters). Whitespace
// between tokens is ignored.").
func tokenizeFormat(format string) []string {
	var tokens []string
	var cur strings.Builder
	var quote byte
	inQuote := false

	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}

	for i := 0; i < len(format); i++ {
		c := format[i]
		switch {
		case inQuote:
			if c == quote {
				inQuote = false
				flush()
			} else {
				cur.WriteByte(c)
			}
		case c == '\'' || c == '"':
			flush()
			inQuote = true
			quote = c
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			flush()
		default:
			cur.WriteByte(c)
		}
	}
	flush()
	return tokens
}

func (w *Writer) Etag() string { return w.etag }
func (w *Writer) Data() []byte { return w.enc.Bytes() }
func (w *Writer) Size() int    { return w.enc.Len() }

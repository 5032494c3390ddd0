// Package raidwire implements the framing and self-describing value codec
// that spec.md §1 calls out as an external collaborator: "the binary
// serializer/deserializer for the self-describing value model (integers,
// floats, booleans, strings, binary, arrays, maps, nil)". It is grounded
// on github.com/vmihailenco/msgpack/v5's low-level streaming API, the same
// role other_examples' boxcast-serf rpc client gives
// hashicorp/go-msgpack/codec for its own request/response framing.
package raidwire

// Kind identifies the type of a decoded Value, mirroring raid_type_t.
type Kind int

const (
	KindInvalid Kind = iota
	KindNil
	KindBool
	KindInt
	KindFloat
	KindString
	KindBinary
	KindArray
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindBinary:
		return "binary"
	case KindArray:
		return "array"
	case KindMap:
		return "map"
	default:
		return "invalid"
	}
}

// Entry is a single key/value pair of a decoded map, kept in wire order
// (spec.md S2: "Key iteration order is insertion order").
type Entry struct {
	Key string
	Val *Value
}

// Value is a node of the decoded value tree that Reader owns and the
// cursor in pkg/raid.Reader walks. It plays the role of msgpack_object in
// the original raid_reader_t.
type Value struct {
	Kind Kind
	B    bool
	I    int64
	F    float64
	S    string
	Bin  []byte
	Arr  []*Value
	Map  []Entry
}

// Get looks up a key in a map Value using a well-known-key prefix match,
// the behavior spec.md §9 Open Question 1 describes for structural keys
// (header/action/etag/body/code). Returns false if v is not a map or no
// entry's key has key as a prefix... actually matches when the stored
// key has the queried key as a prefix (tolerates a longer wire key, e.g.
// "etagXYZ" satisfying a lookup for "etag").
func (v *Value) Get(key string) (*Value, bool) {
	if v == nil || v.Kind != KindMap {
		return nil, false
	}
	for _, e := range v.Map {
		if len(e.Key) >= len(key) && e.Key[:len(key)] == key {
			return e.Val, true
		}
	}
	return nil, false
}

// GetExact looks up a key in a map Value using full string equality.
func (v *Value) GetExact(key string) (*Value, bool) {
	if v == nil || v.Kind != KindMap {
		return nil, false
	}
	for _, e := range v.Map {
		if e.Key == key {
			return e.Val, true
		}
	}
	return nil, false
}

var invalidValue = &Value{Kind: KindInvalid}

// Invalid returns the shared sentinel used when a cursor has nothing to
// point at (e.g. a response with no body).
func Invalid() *Value { return invalidValue }

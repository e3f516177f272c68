package provider

// Kind identifies which variant a Value holds.
type Kind int

const (
	// KindText is a textual secret.
	KindText Kind = iota + 1
	// KindBinary is a binary secret.
	KindBinary
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindBinary:
		return "binary"
	default:
		return "unknown"
	}
}

// Value is the raw content of a secret as the backing store knows it: either
// text or bytes. The zero Value holds neither and decodes to UnknownType.
type Value struct {
	kind Kind
	text string
	data []byte
}

// Text returns a textual Value.
func Text(s string) Value {
	return Value{kind: KindText, text: s}
}

// Binary returns a binary Value holding a copy of b.
func Binary(b []byte) Value {
	data := make([]byte, len(b))
	copy(data, b)
	return Value{kind: KindBinary, data: data}
}

// Kind reports the variant. It is zero for an empty Value.
func (v Value) Kind() Kind {
	return v.kind
}

// String masks the content.
func (v Value) String() string {
	switch v.kind {
	case KindText:
		return "Text(" + mask + ")"
	case KindBinary:
		return "Binary(" + mask + ")"
	default:
		return "Value(empty)"
	}
}

// GoString masks the content for %#v.
func (v Value) GoString() string {
	return v.String()
}

// Record is a single secret version as returned by a backing store.
type Record struct {
	Name    string
	Version string
	Value   Value
}

// UnknownVersion is reported when a backend does not return version metadata.
const UnknownVersion = "unknown"

const mask = "*****"

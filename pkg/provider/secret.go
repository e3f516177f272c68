package provider

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
)

// Decoder converts a stored Value into the caller's type, failing with
// InvalidType when the stored variant does not match.
type Decoder[T any] func(name string, v Value) (T, error)

// String decodes Text values into a string.
var String Decoder[string] = func(name string, v Value) (string, error) {
	switch v.kind {
	case KindText:
		return v.text, nil
	case KindBinary:
		return "", InvalidTypeError(name)
	default:
		return "", UnknownTypeError(name)
	}
}

// Bytes decodes Binary values into a byte slice owned by the caller.
var Bytes Decoder[[]byte] = func(name string, v Value) ([]byte, error) {
	switch v.kind {
	case KindBinary:
		out := make([]byte, len(v.data))
		copy(out, v.data)
		return out, nil
	case KindText:
		return nil, InvalidTypeError(name)
	default:
		return nil, UnknownTypeError(name)
	}
}

// Secret holds a decoded secret together with its name and version. The value
// is never rendered by fmt, encoding/json or log/slog; Reveal hands it out
// once. Copies of a Secret share the same holder, so revealing through one
// copy empties all of them.
type Secret[T any] struct {
	name    string
	version string
	box     *box[T]
}

// box keeps the value behind a closure: fmt walks unexported struct fields
// without calling Format, and a func only ever prints as an address.
type box[T any] struct {
	mu    sync.Mutex
	value func() T
}

// NewSecret wraps value. Providers normally build secrets through Decode.
func NewSecret[T any](name, version string, value T) *Secret[T] {
	if version == "" {
		version = UnknownVersion
	}
	return &Secret[T]{name: name, version: version, box: &box[T]{value: func() T { return value }}}
}

// Decode runs dec over rec and wraps the result.
func Decode[T any](rec Record, dec Decoder[T]) (*Secret[T], error) {
	value, err := dec(rec.Name, rec.Value)
	if err != nil {
		return nil, err
	}
	return NewSecret(rec.Name, rec.Version, value), nil
}

// Name returns the secret name.
func (s Secret[T]) Name() string {
	return s.name
}

// Version returns the version id the value was read from.
func (s Secret[T]) Version() string {
	return s.version
}

// Reveal returns the secret value and empties the holder. Any later call
// returns ErrAlreadyRevealed.
func (s Secret[T]) Reveal() (T, error) {
	var zero T
	if s.box == nil {
		return zero, ErrAlreadyRevealed
	}

	s.box.mu.Lock()
	defer s.box.mu.Unlock()

	if s.box.value == nil {
		return zero, ErrAlreadyRevealed
	}
	value := s.box.value()
	s.box.value = nil
	return value, nil
}

// Revealed reports whether the value has already been handed out.
func (s Secret[T]) Revealed() bool {
	if s.box == nil {
		return true
	}
	s.box.mu.Lock()
	defer s.box.mu.Unlock()
	return s.box.value == nil
}

func (s Secret[T]) String() string {
	return fmt.Sprintf("{ name: %s, version: %s }", s.name, s.version)
}

func (s Secret[T]) GoString() string {
	return fmt.Sprintf("Secret{name: %q, version: %q, secret: %q}", s.name, s.version, mask)
}

// Format handles every fmt verb so no verb can reach the value.
func (s Secret[T]) Format(f fmt.State, verb rune) {
	switch {
	case verb == 'v' && f.Flag('#'):
		_, _ = fmt.Fprint(f, s.GoString())
	case verb == 'v' && f.Flag('+'):
		_, _ = fmt.Fprintf(f, "{name: %s, version: %s, secret: %s}", s.name, s.version, mask)
	case verb == 'q':
		_, _ = fmt.Fprintf(f, "%q", s.String())
	default:
		_, _ = fmt.Fprint(f, s.String())
	}
}

// MarshalJSON renders metadata with a masked value.
func (s Secret[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Name    string `json:"name"`
		Version string `json:"version"`
		Secret  string `json:"secret"`
	}{s.name, s.version, mask})
}

// LogValue renders metadata only.
func (s Secret[T]) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("name", s.name),
		slog.String("version", s.version),
	)
}

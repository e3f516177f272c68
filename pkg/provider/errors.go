package provider

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures shared by every provider. Each kind is itself
// an error so callers can match with errors.Is(err, ErrInvalidType).
type ErrorKind int

const (
	// ErrInitialization means a provider could not be constructed or configured.
	ErrInitialization ErrorKind = iota + 1
	// ErrInvalidType means the stored variant does not match the requested Decoder.
	ErrInvalidType
	// ErrUnknownType means the backend returned neither text nor binary content.
	ErrUnknownType
	// ErrProviderFailed is any transport or service failure other than not found.
	ErrProviderFailed
)

func (k ErrorKind) Error() string {
	switch k {
	case ErrInitialization:
		return "initialization error"
	case ErrInvalidType:
		return "incorrect typecast"
	case ErrUnknownType:
		return "unknown secret type"
	case ErrProviderFailed:
		return "backend implementation failed"
	default:
		return "unclassified secrets provider error"
	}
}

// ErrAlreadyRevealed is returned by Secret.Reveal after the first call.
var ErrAlreadyRevealed = errors.New("secret has already been revealed")

// Error carries an ErrorKind together with the secret it concerns.
type Error struct {
	Kind    ErrorKind
	Secret  string
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch e.Kind {
	case ErrInvalidType:
		return fmt.Sprintf("incorrect typecast for secret %s", e.Secret)
	case ErrUnknownType:
		return fmt.Sprintf("unknown secret type for secret %s", e.Secret)
	}

	detail := e.Message
	if detail == "" && e.Err != nil {
		detail = e.Err.Error()
	} else if e.Err != nil {
		detail += ": " + e.Err.Error()
	}
	if e.Secret != "" {
		detail = fmt.Sprintf("secret %s: %s", e.Secret, detail)
	}
	if detail == "" {
		return e.Kind.Error()
	}
	return e.Kind.Error() + ": " + detail
}

// Unwrap returns the backend cause, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the error against its ErrorKind.
func (e *Error) Is(target error) bool {
	k, ok := target.(ErrorKind)
	return ok && k == e.Kind
}

// InitializationError reports a provider construction failure.
func InitializationError(msg string, err error) error {
	return &Error{Kind: ErrInitialization, Message: msg, Err: err}
}

// InvalidTypeError reports a Decoder mismatch for the named secret.
func InvalidTypeError(name string) error {
	return &Error{Kind: ErrInvalidType, Secret: name}
}

// UnknownTypeError reports a secret with neither text nor binary content.
func UnknownTypeError(name string) error {
	return &Error{Kind: ErrUnknownType, Secret: name}
}

// ProviderFailedError wraps a backend failure. name may be empty for failures
// not tied to one secret.
func ProviderFailedError(name string, err error) error {
	return &Error{Kind: ErrProviderFailed, Secret: name, Err: err}
}

// KindOf returns the ErrorKind of err, or 0 if err is not classified.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	var k ErrorKind
	if errors.As(err, &k) {
		return k
	}
	return 0
}

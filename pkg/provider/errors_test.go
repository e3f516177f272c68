package provider

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorMessages(t *testing.T) {
	t.Parallel()

	cause := errors.New("AccessDeniedException")
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "invalid type", err: InvalidTypeError("db"), want: "incorrect typecast for secret db"},
		{name: "unknown type", err: UnknownTypeError("db"), want: "unknown secret type for secret db"},
		{name: "provider failed", err: ProviderFailedError("db", cause), want: "backend implementation failed: secret db: AccessDeniedException"},
		{name: "provider failed without name", err: ProviderFailedError("", cause), want: "backend implementation failed: AccessDeniedException"},
		{name: "initialization", err: InitializationError("missing region", nil), want: "initialization error: missing region"},
		{name: "initialization with cause", err: InitializationError("load aws config", cause), want: "initialization error: load aws config: AccessDeniedException"},
		{name: "bare kind", err: &Error{Kind: ErrProviderFailed}, want: "backend implementation failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestErrorMatching(t *testing.T) {
	t.Parallel()

	cause := errors.New("socket closed")
	err := fmt.Errorf("lookup: %w", ProviderFailedError("db", cause))

	if !errors.Is(err, ErrProviderFailed) {
		t.Error("errors.Is(err, ErrProviderFailed) = false")
	}
	if errors.Is(err, ErrInvalidType) {
		t.Error("errors.Is(err, ErrInvalidType) = true")
	}
	if !errors.Is(err, cause) {
		t.Error("cause is not reachable through Unwrap")
	}

	var e *Error
	if !errors.As(err, &e) || e.Secret != "db" {
		t.Errorf("errors.As did not expose the secret name: %+v", e)
	}

	if KindOf(err) != ErrProviderFailed {
		t.Errorf("KindOf() = %v", KindOf(err))
	}
	if KindOf(ErrInitialization) != ErrInitialization {
		t.Error("KindOf(kind) did not return the kind")
	}
	if KindOf(cause) != 0 {
		t.Error("KindOf(unclassified) != 0")
	}
}

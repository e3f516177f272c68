// Package provider defines the backend-agnostic surface for reading versioned
// secrets from a secret store.
//
// Application code depends on this package instead of a vendor SDK. A secret
// store is wrapped by a type implementing the Provider interface, which only
// knows how to fetch raw records: a name, a version id, and a Value holding
// either text or bytes. Callers choose the semantic type they expect through a
// Decoder, and receive a redacted Secret holder.
//
// # Retrieving Secrets
//
//	key, err := provider.Find(ctx, p, provider.String, "api-key")
//	if err != nil {
//	    return err // InvalidType, UnknownType or ProviderFailed
//	}
//	if key == nil {
//	    // not found is not an error
//	}
//	value, err := key.Reveal()
//
// FindWithVersion pins a version id. BatchFind retrieves the current version
// of several names at once; missing names are omitted from the result while
// type mismatches and backend failures still fail the call.
//
// # Decoders
//
// A Decoder is a strict typecast. String accepts only Text values and Bytes
// accepts only Binary values; there is no implicit encoding in either
// direction. Support for a new target type is added by declaring a new
// Decoder, without touching existing callers:
//
//	var JSON provider.Decoder[map[string]any] = func(name string, v provider.Value) (map[string]any, error) {
//	    s, err := provider.String(name, v)
//	    ...
//	}
//
// # Redaction
//
// Secret never renders its value through fmt, json or slog. The value can be
// taken out exactly once with Reveal; afterwards the holder is empty.
//
// # Errors
//
// All providers share one error taxonomy (see ErrorKind). Use errors.Is with
// ErrInitialization, ErrInvalidType, ErrUnknownType or ErrProviderFailed to
// classify an error. Absence is reported as a nil Secret, never as an error.
//
// # Implementing a Provider
//
// A backend implements Fetch and reports found=false with a nil error when the
// name or version does not exist. Backends that can list versions implement
// VersionLister, and backends with a native multi-get may implement
// BatchFetcher. RunContractTests exercises any implementation against the
// shared behavioral contract.
package provider

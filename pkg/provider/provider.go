package provider

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"
)

// Provider is implemented by every secret backend. Fetch reads one raw record
// and reports found=false with a nil error when the name, or the requested
// version of it, does not exist. An empty version selects the current one.
type Provider interface {
	// Name returns the provider's identifier, e.g. "aws.secretsmanager".
	Name() string

	// Fetch retrieves a single record from the backing store.
	Fetch(ctx context.Context, name, version string) (Record, bool, error)
}

// BatchFetcher is implemented by backends with a native multi-get. The
// returned map holds the current version of every name that exists; missing
// names are simply absent.
type BatchFetcher interface {
	FetchBatch(ctx context.Context, names []string) (map[string]Record, error)
}

// VersionLister is implemented by backends that can enumerate versions of a
// secret. Ids are returned oldest first; found is false when the name does not
// exist.
type VersionLister interface {
	ListVersionIDs(ctx context.Context, name string) ([]string, bool, error)
}

// ErrVersionListingUnsupported is wrapped in a ProviderFailed error by
// ListVersionIDs when the provider cannot list versions.
var ErrVersionListingUnsupported = errors.New("version listing not supported")

// Find returns the current version of name decoded with dec. A nil Secret
// with a nil error means the secret does not exist.
func Find[T any](ctx context.Context, p Provider, dec Decoder[T], name string) (*Secret[T], error) {
	return FindWithVersion(ctx, p, dec, name, "")
}

// FindWithVersion returns the given version of name decoded with dec. A nil
// Secret with a nil error means the name or that version does not exist.
func FindWithVersion[T any](ctx context.Context, p Provider, dec Decoder[T], name, version string) (*Secret[T], error) {
	rec, found, err := p.Fetch(ctx, name, version)
	if err != nil {
		return nil, classify(name, err)
	}
	if !found {
		return nil, nil
	}
	if rec.Name == "" {
		rec.Name = name
	}
	return Decode(rec, dec)
}

// BatchFind returns the current version of every distinct name that exists.
// Missing names are left out of the result. The first fetch or decode error
// aborts the call and no partial result is returned.
func BatchFind[T any](ctx context.Context, p Provider, dec Decoder[T], names []string) (map[string]*Secret[T], error) {
	names = dedupe(names)

	if bf, ok := p.(BatchFetcher); ok {
		records, err := bf.FetchBatch(ctx, names)
		if err != nil {
			return nil, classify("", err)
		}
		out := make(map[string]*Secret[T], len(records))
		for _, name := range names {
			rec, ok := records[name]
			if !ok {
				continue
			}
			if rec.Name == "" {
				rec.Name = name
			}
			s, err := Decode(rec, dec)
			if err != nil {
				return nil, err
			}
			out[name] = s
		}
		return out, nil
	}

	out := make(map[string]*Secret[T], len(names))
	for _, name := range names {
		s, err := Find(ctx, p, dec, name)
		if err != nil {
			return nil, err
		}
		if s != nil {
			out[name] = s
		}
	}
	return out, nil
}

// ConcurrentBatchFind behaves like BatchFind but issues up to limit lookups at
// once. A limit below one means no bound. The first error cancels the
// remaining lookups and is returned alone.
func ConcurrentBatchFind[T any](ctx context.Context, p Provider, dec Decoder[T], names []string, limit int) (map[string]*Secret[T], error) {
	names = dedupe(names)
	found := make([]*Secret[T], len(names))

	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, name := range names {
		g.Go(func() error {
			s, err := Find(gctx, p, dec, name)
			if err != nil {
				return err
			}
			found[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string]*Secret[T], len(names))
	for i, s := range found {
		if s != nil {
			out[names[i]] = s
		}
	}
	return out, nil
}

// ListVersionIDs lists the version ids of name, oldest first, when p
// implements VersionLister.
func ListVersionIDs(ctx context.Context, p Provider, name string) ([]string, bool, error) {
	vl, ok := p.(VersionLister)
	if !ok {
		return nil, false, &Error{Kind: ErrProviderFailed, Secret: name, Err: ErrVersionListingUnsupported}
	}
	ids, found, err := vl.ListVersionIDs(ctx, name)
	if err != nil {
		return nil, false, classify(name, err)
	}
	return ids, found, nil
}

// classify leaves taxonomy errors untouched and wraps anything else as
// ProviderFailed.
func classify(name string, err error) error {
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return ProviderFailedError(name, err)
}

func dedupe(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

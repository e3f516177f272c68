package providers

import (
	"context"
	"time"

	"github.com/systmms/secretsprovider/internal/metrics"
	"github.com/systmms/secretsprovider/pkg/provider"
)

// Instrumented records lookup counts and latencies of the wrapped provider.
// It implements BatchFetcher and VersionLister only when the wrapped provider
// does, so the generic batch and listing paths behave the same with or
// without instrumentation.
type Instrumented struct {
	inner   provider.Provider
	metrics *metrics.Metrics
}

type instrumentedBatch struct {
	*Instrumented
}

type instrumentedLister struct {
	*Instrumented
}

type instrumentedBatchLister struct {
	*Instrumented
}

// Instrument wraps p so its calls are recorded in m. A nil m records nothing.
func Instrument(p provider.Provider, m *metrics.Metrics) provider.Provider {
	base := &Instrumented{inner: p, metrics: m}

	_, batch := p.(provider.BatchFetcher)
	_, lister := p.(provider.VersionLister)
	switch {
	case batch && lister:
		return instrumentedBatchLister{base}
	case batch:
		return instrumentedBatch{base}
	case lister:
		return instrumentedLister{base}
	default:
		return base
	}
}

// Unwrap returns the wrapped provider.
func (i *Instrumented) Unwrap() provider.Provider {
	return i.inner
}

// Name returns the wrapped provider's name.
func (i *Instrumented) Name() string {
	return i.inner.Name()
}

// Fetch forwards to the wrapped provider.
func (i *Instrumented) Fetch(ctx context.Context, name, version string) (provider.Record, bool, error) {
	start := time.Now()
	rec, found, err := i.inner.Fetch(ctx, name, version)
	i.metrics.ObserveDuration(i.inner.Name(), metrics.OpFetch, time.Since(start))
	i.metrics.RecordFetch(i.inner.Name(), outcome(found, err))
	return rec, found, err
}

func (i *Instrumented) fetchBatch(ctx context.Context, names []string) (map[string]provider.Record, error) {
	start := time.Now()
	records, err := i.inner.(provider.BatchFetcher).FetchBatch(ctx, names)
	i.metrics.ObserveDuration(i.inner.Name(), metrics.OpFetchBatch, time.Since(start))
	i.metrics.ObserveBatch(i.inner.Name(), len(names))

	if err != nil {
		i.metrics.RecordFetch(i.inner.Name(), metrics.OutcomeError)
		return nil, err
	}
	for range records {
		i.metrics.RecordFetch(i.inner.Name(), metrics.OutcomeFound)
	}
	for _, n := range names {
		if _, ok := records[n]; !ok {
			i.metrics.RecordFetch(i.inner.Name(), metrics.OutcomeNotFound)
		}
	}
	return records, nil
}

func (i *Instrumented) listVersionIDs(ctx context.Context, name string) ([]string, bool, error) {
	start := time.Now()
	ids, found, err := i.inner.(provider.VersionLister).ListVersionIDs(ctx, name)
	i.metrics.ObserveDuration(i.inner.Name(), metrics.OpListVersions, time.Since(start))
	return ids, found, err
}

func (i instrumentedBatch) FetchBatch(ctx context.Context, names []string) (map[string]provider.Record, error) {
	return i.fetchBatch(ctx, names)
}

func (i instrumentedLister) ListVersionIDs(ctx context.Context, name string) ([]string, bool, error) {
	return i.listVersionIDs(ctx, name)
}

func (i instrumentedBatchLister) FetchBatch(ctx context.Context, names []string) (map[string]provider.Record, error) {
	return i.fetchBatch(ctx, names)
}

func (i instrumentedBatchLister) ListVersionIDs(ctx context.Context, name string) ([]string, bool, error) {
	return i.listVersionIDs(ctx, name)
}

func outcome(found bool, err error) string {
	switch {
	case err != nil:
		return metrics.OutcomeError
	case found:
		return metrics.OutcomeFound
	default:
		return metrics.OutcomeNotFound
	}
}

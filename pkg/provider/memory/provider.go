// Package memory is an in-process secret store that keeps every version of a
// secret in insertion order, the way hosted secret managers do. It backs local
// development and serves as a test double for code written against
// provider.Provider.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/systmms/secretsprovider/internal/secure"
	"github.com/systmms/secretsprovider/pkg/provider"
)

// DefaultName is the provider name reported by New.
const DefaultName = "memory"

type entry struct {
	version string
	kind    provider.Kind
	sealed  *secure.Buffer
}

// Provider stores versions in memory. Values are sealed with memguard while
// stored. Seeding is meant for a single writer; reads may run concurrently
// with it.
type Provider struct {
	name string

	mu      sync.RWMutex
	secrets map[string][]entry
}

// New returns an empty store named "memory".
func New() *Provider {
	return NewNamed(DefaultName)
}

// NewNamed returns an empty store reporting the given name.
func NewNamed(name string) *Provider {
	return &Provider{
		name:    name,
		secrets: make(map[string][]entry),
	}
}

// Name implements provider.Provider.
func (p *Provider) Name() string {
	return p.name
}

// AddStringSecret appends a text version and returns its id.
func (p *Provider) AddStringSecret(name, value string) string {
	return p.add(name, provider.KindText, []byte(value))
}

// AddBinarySecret appends a binary version and returns its id.
func (p *Provider) AddBinarySecret(name string, value []byte) string {
	return p.add(name, provider.KindBinary, value)
}

func (p *Provider) add(name string, kind provider.Kind, data []byte) string {
	e := entry{
		version: uuid.NewString(),
		kind:    kind,
		sealed:  secure.Seal(data),
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.secrets[name] = append(p.secrets[name], e)
	return e.version
}

// ListSecretVersionIDs returns version ids oldest first. ok is false when the
// name was never added.
func (p *Provider) ListSecretVersionIDs(name string) ([]string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	entries, ok := p.secrets[name]
	if !ok {
		return nil, false
	}
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.version
	}
	return ids, true
}

// ListVersionIDs implements provider.VersionLister.
func (p *Provider) ListVersionIDs(_ context.Context, name string) ([]string, bool, error) {
	ids, ok := p.ListSecretVersionIDs(name)
	return ids, ok, nil
}

// Fetch implements provider.Provider. The last entry is current.
func (p *Provider) Fetch(_ context.Context, name, version string) (provider.Record, bool, error) {
	p.mu.RLock()
	e, ok := p.lookup(name, version)
	p.mu.RUnlock()
	if !ok {
		return provider.Record{}, false, nil
	}

	data, err := e.sealed.Bytes()
	if err != nil {
		return provider.Record{}, false, provider.ProviderFailedError(name, err)
	}

	rec := provider.Record{Name: name, Version: e.version}
	switch e.kind {
	case provider.KindText:
		rec.Value = provider.Text(string(data))
	case provider.KindBinary:
		rec.Value = provider.Binary(data)
	}
	return rec, true, nil
}

func (p *Provider) lookup(name, version string) (entry, bool) {
	entries := p.secrets[name]
	if len(entries) == 0 {
		return entry{}, false
	}
	if version == "" {
		return entries[len(entries)-1], true
	}
	for _, e := range entries {
		if e.version == version {
			return e, true
		}
	}
	return entry{}, false
}

// Close destroys every sealed value. The store is empty afterwards.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, entries := range p.secrets {
		for _, e := range entries {
			e.sealed.Destroy()
		}
	}
	p.secrets = make(map[string][]entry)
	return nil
}

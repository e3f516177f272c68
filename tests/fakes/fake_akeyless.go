package fakes

import (
	"context"
	"sync"
	"time"

	"github.com/systmms/secretsprovider/internal/providers/contracts"
)

// FakeAkeylessClient is a test double for contracts.AkeylessClient. Each path
// holds a list of versions numbered from 1.
type FakeAkeylessClient struct {
	mu      sync.Mutex
	secrets map[string][]string

	// Token is the token returned by Authenticate
	Token string

	// TokenTTL is the TTL returned by Authenticate
	TokenTTL time.Duration

	// AuthErr is returned by Authenticate if set
	AuthErr error

	// GetErr is returned by GetSecret if set (overrides the lookup)
	GetErr error

	// DescribeErr is returned by DescribeItem if set
	DescribeErr error

	// AuthCallCount tracks how many times Authenticate was called
	AuthCallCount int

	// GetCallCount tracks how many times GetSecret was called
	GetCallCount int

	// Tokens records the token passed to each GetSecret call
	Tokens []string
}

// NewFakeAkeylessClient creates a new fake Akeyless client with defaults
func NewFakeAkeylessClient() *FakeAkeylessClient {
	return &FakeAkeylessClient{
		Token:    "fake-akeyless-token",
		TokenTTL: 30 * time.Minute,
		secrets:  make(map[string][]string),
	}
}

// SetSecret appends a version to path and returns its number.
func (f *FakeAkeylessClient) SetSecret(path, value string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.secrets[path] = append(f.secrets[path], value)
	return len(f.secrets[path])
}

// Authenticate obtains an access token
func (f *FakeAkeylessClient) Authenticate(_ context.Context) (string, time.Duration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.AuthCallCount++
	if f.AuthErr != nil {
		return "", 0, f.AuthErr
	}
	return f.Token, f.TokenTTL, nil
}

// GetSecret retrieves a secret by path. A nil version reads the last one.
func (f *FakeAkeylessClient) GetSecret(_ context.Context, token, path string, version *int) (*contracts.AkeylessSecret, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.GetCallCount++
	f.Tokens = append(f.Tokens, token)
	if f.GetErr != nil {
		return nil, f.GetErr
	}

	versions, ok := f.secrets[path]
	if !ok {
		return nil, ErrFakeAkeylessSecretNotFound
	}
	n := len(versions)
	if version != nil {
		n = *version
	}
	if n < 1 || n > len(versions) {
		return nil, ErrFakeAkeylessSecretNotFound
	}
	return &contracts.AkeylessSecret{Path: path, Value: versions[n-1], Version: n}, nil
}

// DescribeItem gets metadata about a secret
func (f *FakeAkeylessClient) DescribeItem(_ context.Context, _, path string) (*contracts.AkeylessMetadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.DescribeErr != nil {
		return nil, f.DescribeErr
	}
	versions, ok := f.secrets[path]
	if !ok {
		return nil, ErrFakeAkeylessSecretNotFound
	}

	meta := &contracts.AkeylessMetadata{
		Path:        path,
		ItemType:    "static_secret",
		LastVersion: len(versions),
	}
	// Newest first, as the service reports them.
	for i := len(versions); i >= 1; i-- {
		meta.Versions = append(meta.Versions, i)
	}
	return meta, nil
}

// ErrFakeAkeylessSecretNotFound is returned when a secret doesn't exist
var ErrFakeAkeylessSecretNotFound = &fakeAkeylessError{code: "itemNotFound", message: "secret not found"}

// ErrFakeAkeylessUnauthorized is returned for auth failures
var ErrFakeAkeylessUnauthorized = &fakeAkeylessError{code: "unauthorized", message: "authentication failed"}

type fakeAkeylessError struct {
	code    string
	message string
}

func (e *fakeAkeylessError) Error() string {
	return e.message
}

func (e *fakeAkeylessError) Code() string {
	return e.code
}

// Ensure FakeAkeylessClient implements contracts.AkeylessClient
var _ contracts.AkeylessClient = (*FakeAkeylessClient)(nil)

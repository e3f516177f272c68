package providers

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/systmms/secretsprovider/internal/providers/contracts"
	"github.com/systmms/secretsprovider/pkg/provider"
)

// TypeAkeyless is the registry key of AkeylessProvider.
const TypeAkeyless = "akeyless"

// AkeylessProvider implements the provider interface for Akeyless
type AkeylessProvider struct {
	name       string
	config     AkeylessConfig
	client     contracts.AkeylessClient
	tokenCache *TokenCache
}

// NewAkeylessProvider creates a new Akeyless provider
func NewAkeylessProvider(name string, config map[string]interface{}) (*AkeylessProvider, error) {
	cfg, err := parseAkeylessConfig(config)
	if err != nil {
		return nil, err
	}

	return &AkeylessProvider{
		name:       name,
		config:     cfg,
		client:     newAkeylessSDKClient(cfg),
		tokenCache: NewTokenCache(),
	}, nil
}

// NewAkeylessProviderWithClient creates an Akeyless provider with a custom client.
// This is primarily for testing, allowing the SDK client to be mocked.
func NewAkeylessProviderWithClient(name string, config map[string]interface{}, client contracts.AkeylessClient) (*AkeylessProvider, error) {
	cfg, err := parseAkeylessConfig(config)
	if err != nil {
		return nil, err
	}
	return &AkeylessProvider{
		name:       name,
		config:     cfg,
		client:     client,
		tokenCache: NewTokenCache(),
	}, nil
}

// Name returns the provider name
func (p *AkeylessProvider) Name() string {
	return p.name
}

// Fetch retrieves a secret from Akeyless. name is an item path, with or
// without the leading slash; version is an integer version number.
func (p *AkeylessProvider) Fetch(ctx context.Context, name, version string) (provider.Record, bool, error) {
	ref, err := ParseAkeylessReference(name)
	if err != nil {
		return provider.Record{}, false, provider.ProviderFailedError(name, err)
	}
	if version != "" {
		v, err := strconv.Atoi(version)
		if err != nil || v <= 0 {
			// Akeyless versions are positive integers, nothing else can exist.
			return provider.Record{}, false, nil
		}
		ref.Version = &v
	}

	token, err := p.getToken(ctx)
	if err != nil {
		return provider.Record{}, false, provider.ProviderFailedError(name, err)
	}

	secret, err := p.client.GetSecret(ctx, token, ref.Path, ref.Version)
	if err != nil {
		if isAkeylessNotFoundError(err) {
			return provider.Record{}, false, nil
		}
		return provider.Record{}, false, provider.ProviderFailedError(name, p.wrapError("fetch", ref.Path, err))
	}

	rec := provider.Record{Name: name, Version: provider.UnknownVersion, Value: provider.Text(secret.Value)}
	if secret.Version > 0 {
		rec.Version = strconv.Itoa(secret.Version)
	}
	return rec, true, nil
}

// ListVersionIDs returns the item's version numbers in ascending order.
func (p *AkeylessProvider) ListVersionIDs(ctx context.Context, name string) ([]string, bool, error) {
	ref, err := ParseAkeylessReference(name)
	if err != nil {
		return nil, false, provider.ProviderFailedError(name, err)
	}

	token, err := p.getToken(ctx)
	if err != nil {
		return nil, false, provider.ProviderFailedError(name, err)
	}

	meta, err := p.client.DescribeItem(ctx, token, ref.Path)
	if err != nil {
		if isAkeylessNotFoundError(err) {
			return nil, false, nil
		}
		return nil, false, provider.ProviderFailedError(name, p.wrapError("describe", ref.Path, err))
	}

	versions := append([]int(nil), meta.Versions...)
	if len(versions) == 0 && meta.LastVersion > 0 {
		versions = []int{meta.LastVersion}
	}
	sort.Ints(versions)

	ids := make([]string, len(versions))
	for i, v := range versions {
		ids[i] = strconv.Itoa(v)
	}
	return ids, true, nil
}

// Validate checks if the provider is properly configured and can authenticate
func (p *AkeylessProvider) Validate(ctx context.Context) error {
	_, err := p.getToken(ctx)
	if err != nil {
		return fmt.Errorf("akeyless validation failed: %w", err)
	}
	return nil
}

// getToken returns a cached token or authenticates to get a new one
func (p *AkeylessProvider) getToken(ctx context.Context) (string, error) {
	// Check cache first
	if token, ok := p.tokenCache.Get(); ok {
		return token, nil
	}

	// Authenticate
	token, ttl, err := p.client.Authenticate(ctx)
	if err != nil {
		return "", &AkeylessError{
			Op:      "auth",
			Message: err.Error(),
			Err:     err,
		}
	}

	// Cache the token
	p.tokenCache.Set(token, ttl)

	return token, nil
}

// wrapError adds context to a failed call. A rejected token is dropped from
// the cache so the next call authenticates again.
func (p *AkeylessProvider) wrapError(op, path string, err error) error {
	if errors.Is(err, ErrAkeylessUnauthorized) {
		p.tokenCache.Clear()
	}
	return &AkeylessError{
		Op:      op,
		Path:    path,
		Message: err.Error(),
		Err:     err,
	}
}

// AkeylessReference represents a parsed Akeyless secret reference
type AkeylessReference struct {
	Path    string // e.g., "/prod/database/password"
	Version *int   // nil for latest
}

// ParseAkeylessReference parses an Akeyless reference string
// Format: /path/to/secret[@vN]
func ParseAkeylessReference(key string) (*AkeylessReference, error) {
	ref := &AkeylessReference{}

	// Check for version suffix
	if idx := strings.LastIndex(key, "@v"); idx != -1 {
		versionStr := key[idx+2:]
		version, err := strconv.Atoi(versionStr)
		if err == nil {
			ref.Version = &version
			key = key[:idx]
		}
	}

	// Ensure path starts with /
	if !strings.HasPrefix(key, "/") {
		key = "/" + key
	}

	ref.Path = key

	if ref.Path == "/" {
		return nil, fmt.Errorf("akeyless reference path cannot be empty")
	}

	return ref, nil
}

// parseAkeylessConfig parses configuration map into AkeylessConfig
func parseAkeylessConfig(config map[string]interface{}) (AkeylessConfig, error) {
	var cfg AkeylessConfig
	if err := decodeConfig(config, &cfg); err != nil {
		return AkeylessConfig{}, initError(TypeAkeyless, "", nil, err.Error(), "Check the akeyless provider block in your configuration")
	}

	switch cfg.Auth.Method {
	case "api_key":
		if cfg.Auth.AccessKey == "" {
			return AkeylessConfig{}, initError(TypeAkeyless, "auth.access_key", nil,
				"access_key is required for api_key authentication",
				"Set auth.access_key or choose a cloud identity method (aws_iam, azure_ad, gcp)")
		}
	case "aws_iam", "azure_ad", "gcp":
	default:
		return AkeylessConfig{}, initError(TypeAkeyless, "auth.method", cfg.Auth.Method,
			"unsupported authentication method",
			"Use one of: api_key, aws_iam, azure_ad, gcp")
	}
	if cfg.AccessID == "" {
		return AkeylessConfig{}, initError(TypeAkeyless, "access_id", nil,
			"access_id is required for Akeyless",
			"Set access_id to the access ID of your auth method")
	}

	return cfg, nil
}

// isAkeylessNotFoundError checks if an error indicates secret not found
func isAkeylessNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	if IsAkeylessNotFound(err) {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "not found") ||
		strings.Contains(errStr, "itemNotFound")
}

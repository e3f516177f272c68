package providers

import (
	"encoding/base64"
	"fmt"
	"sort"
	"strings"

	"github.com/systmms/secretsprovider/internal/config"
	dserrors "github.com/systmms/secretsprovider/internal/errors"
	"github.com/systmms/secretsprovider/internal/logging"
	"github.com/systmms/secretsprovider/pkg/provider"
	"github.com/systmms/secretsprovider/pkg/provider/memory"
)

// TypeMemory is the registry key of the in-memory store.
const TypeMemory = "memory"

// Registry manages provider creation and registration
type Registry struct {
	factories map[string]ProviderFactory
	logger    *logging.Logger
}

// ProviderFactory creates a provider instance from configuration
type ProviderFactory func(name string, config map[string]interface{}, logger *logging.Logger) (provider.Provider, error)

// NewRegistry creates a new provider registry with built-in providers
func NewRegistry() *Registry {
	registry := &Registry{
		factories: make(map[string]ProviderFactory),
		logger:    logging.Nop(),
	}

	// Register built-in providers
	registry.RegisterFactory(TypeMemory, NewMemoryProviderFactory)
	registry.RegisterFactory(TypeAWSSecretsManager, NewAWSSecretsManagerProviderFactory)
	registry.RegisterFactory(TypeAWSSSM, NewAWSSSMProviderFactory)
	registry.RegisterFactory(TypeGCPSecretManager, NewGCPSecretManagerProviderFactory)
	registry.RegisterFactory(TypeAzureKeyVault, NewAzureKeyVaultProviderFactory)
	registry.RegisterFactory(TypeKeychain, NewKeychainProviderFactory)
	registry.RegisterFactory(TypeAkeyless, NewAkeylessProviderFactory)
	registry.RegisterFactory(TypeSQL, NewSQLProviderFactory)

	return registry
}

// SetLogger sets the logger handed to every provider created afterwards.
func (r *Registry) SetLogger(logger *logging.Logger) {
	if logger == nil {
		logger = logging.Nop()
	}
	r.logger = logger
}

// RegisterFactory registers a provider factory for a given type
func (r *Registry) RegisterFactory(providerType string, factory ProviderFactory) {
	r.factories[providerType] = factory
}

// CreateProvider creates a provider instance from configuration. Every
// failure is an Initialization error.
func (r *Registry) CreateProvider(name string, cfg config.ProviderConfig) (provider.Provider, error) {
	factory, exists := r.factories[cfg.Type]
	if !exists {
		return nil, provider.InitializationError(fmt.Sprintf("unknown provider type %q", cfg.Type), dserrors.ConfigError{
			Field:      "type",
			Value:      cfg.Type,
			Message:    "unknown provider type",
			Suggestion: fmt.Sprintf("Supported types: %s", strings.Join(r.GetSupportedTypes(), ", ")),
		})
	}

	p, err := factory(name, cfg.Config, r.logger.With("provider", name))
	if err != nil {
		if provider.KindOf(err) == 0 {
			err = provider.InitializationError(fmt.Sprintf("failed to create %s provider %s", cfg.Type, name), err)
		}
		return nil, err
	}
	r.logger.Debug("created %s provider %s", cfg.Type, name)
	return p, nil
}

// GetSupportedTypes returns the supported provider types, sorted.
func (r *Registry) GetSupportedTypes() []string {
	types := make([]string, 0, len(r.factories))
	for providerType := range r.factories {
		types = append(types, providerType)
	}
	sort.Strings(types)
	return types
}

// IsSupported checks if a provider type is supported
func (r *Registry) IsSupported(providerType string) bool {
	_, exists := r.factories[providerType]
	return exists
}

// Factory functions for built-in providers

// NewMemoryProviderFactory creates an in-memory store seeded from the
// "secrets" block. A list seeds one version per element, oldest first.
func NewMemoryProviderFactory(name string, config map[string]interface{}, logger *logging.Logger) (provider.Provider, error) {
	store := memory.NewNamed(name)

	secrets, _ := config["secrets"].(map[string]interface{})
	names := make([]string, 0, len(secrets))
	for n := range secrets {
		names = append(names, n)
	}
	sort.Strings(names)

	for _, secretName := range names {
		versions, ok := secrets[secretName].([]interface{})
		if !ok {
			versions = []interface{}{secrets[secretName]}
		}
		for _, v := range versions {
			if err := seedMemoryValue(store, secretName, v); err != nil {
				_ = store.Close()
				return nil, err
			}
		}
	}

	logger.Debug("seeded %d secret(s) into memory provider", len(names))
	return store, nil
}

func seedMemoryValue(store *memory.Provider, name string, raw interface{}) error {
	entry, ok := raw.(map[string]interface{})
	if !ok {
		return initError(TypeMemory, "secrets."+name, nil,
			"each secret must be a map with 'text' or 'binary'",
			"Write the value as { text: \"...\" } or { binary: \"<base64>\" }")
	}

	if text, ok := entry["text"].(string); ok {
		store.AddStringSecret(name, text)
		return nil
	}
	if encoded, ok := entry["binary"].(string); ok {
		data, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return initError(TypeMemory, "secrets."+name+".binary", nil,
				"binary value is not valid base64",
				"Encode the value with 'base64' before putting it in the config")
		}
		store.AddBinarySecret(name, data)
		return nil
	}
	return initError(TypeMemory, "secrets."+name, nil,
		"secret has neither 'text' nor 'binary'",
		"Write the value as { text: \"...\" } or { binary: \"<base64>\" }")
}

// NewAWSSecretsManagerProviderFactory creates an AWS Secrets Manager provider factory
func NewAWSSecretsManagerProviderFactory(name string, config map[string]interface{}, logger *logging.Logger) (provider.Provider, error) {
	return NewAWSSecretsManagerProvider(name, config, WithSecretsManagerLogger(logger))
}

// NewAWSSSMProviderFactory creates an AWS SSM Parameter Store provider factory
func NewAWSSSMProviderFactory(name string, config map[string]interface{}, logger *logging.Logger) (provider.Provider, error) {
	return NewAWSSSMProvider(name, config, WithSSMLogger(logger))
}

// NewGCPSecretManagerProviderFactory creates a GCP Secret Manager provider factory
func NewGCPSecretManagerProviderFactory(name string, config map[string]interface{}, logger *logging.Logger) (provider.Provider, error) {
	return NewGCPSecretManagerProvider(name, config, WithGCPLogger(logger))
}

// NewAzureKeyVaultProviderFactory creates an Azure Key Vault provider factory
func NewAzureKeyVaultProviderFactory(name string, config map[string]interface{}, logger *logging.Logger) (provider.Provider, error) {
	return NewAzureKeyVaultProvider(name, config, WithAzureLogger(logger))
}

// NewKeychainProviderFactory creates an OS keychain provider factory
func NewKeychainProviderFactory(name string, config map[string]interface{}, _ *logging.Logger) (provider.Provider, error) {
	return NewKeychainProvider(name, config), nil
}

// NewAkeylessProviderFactory creates an Akeyless provider factory
func NewAkeylessProviderFactory(name string, config map[string]interface{}, _ *logging.Logger) (provider.Provider, error) {
	return NewAkeylessProvider(name, config)
}

// NewSQLProviderFactory creates an SQL table provider factory
func NewSQLProviderFactory(name string, config map[string]interface{}, logger *logging.Logger) (provider.Provider, error) {
	return NewSQLProvider(name, config, WithSQLLogger(logger))
}

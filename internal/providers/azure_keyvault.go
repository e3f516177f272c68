package providers

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"sort"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"

	"github.com/systmms/secretsprovider/internal/logging"
	"github.com/systmms/secretsprovider/pkg/provider"
)

// TypeAzureKeyVault is the registry key of AzureKeyVaultProvider.
const TypeAzureKeyVault = "azure.keyvault"

// BinaryContentType marks a Key Vault secret whose value is base64 encoded
// binary content.
const BinaryContentType = "application/octet-stream"

// AzureKeyVaultClientAPI defines the interface for Azure Key Vault operations
// This allows for mocking in tests
type AzureKeyVaultClientAPI interface {
	GetSecret(ctx context.Context, name string, version string, options *azsecrets.GetSecretOptions) (azsecrets.GetSecretResponse, error)
	NewListSecretPropertiesVersionsPager(name string, options *azsecrets.ListSecretPropertiesVersionsOptions) *runtime.Pager[azsecrets.ListSecretPropertiesVersionsResponse]
}

// AzureKeyVaultProvider implements the Provider interface for Azure Key Vault
type AzureKeyVaultProvider struct {
	name   string
	client AzureKeyVaultClientAPI
	logger *logging.Logger
	config AzureKeyVaultConfig
}

// AzureKeyVaultConfig holds Azure Key Vault-specific configuration
type AzureKeyVaultConfig struct {
	VaultURL           string
	TenantID           string
	ClientID           string
	ClientSecret       string
	CertificatePath    string
	UseManagedIdentity bool
	UserAssignedID     string // For user-assigned managed identity
}

// AzureProviderOption is a functional option for configuring Azure providers
type AzureProviderOption func(*AzureKeyVaultProvider)

// WithAzureKeyVaultClient sets a custom Azure Key Vault client (for testing)
func WithAzureKeyVaultClient(client AzureKeyVaultClientAPI) AzureProviderOption {
	return func(p *AzureKeyVaultProvider) {
		p.client = client
	}
}

// WithAzureLogger sets the logger used for debug output.
func WithAzureLogger(logger *logging.Logger) AzureProviderOption {
	return func(p *AzureKeyVaultProvider) {
		p.logger = logger
	}
}

// NewAzureKeyVaultProvider creates a new Azure Key Vault provider
func NewAzureKeyVaultProvider(name string, configMap map[string]interface{}, opts ...AzureProviderOption) (*AzureKeyVaultProvider, error) {
	useMI, err := boolOption(configMap, "use_managed_identity", false)
	if err != nil {
		return nil, initError(TypeAzureKeyVault, "use_managed_identity", configMap["use_managed_identity"], err.Error(), "Use true or false")
	}

	config := AzureKeyVaultConfig{
		VaultURL:           stringOption(configMap, "vault_url"),
		TenantID:           stringOption(configMap, "tenant_id"),
		ClientID:           stringOption(configMap, "client_id"),
		ClientSecret:       stringOption(configMap, "client_secret"),
		CertificatePath:    stringOption(configMap, "certificate_path"),
		UseManagedIdentity: useMI,
		UserAssignedID:     stringOption(configMap, "user_assigned_identity_id"),
	}

	// Validate required configuration
	if config.VaultURL == "" {
		return nil, initError(TypeAzureKeyVault, "vault_url", nil,
			"vault_url is required for Azure Key Vault",
			"Provide the Key Vault URL (e.g., https://my-vault.vault.azure.net/)")
	}

	// Validate URL format
	if u, err := url.Parse(config.VaultURL); err != nil || u.Scheme != "https" || u.Host == "" {
		return nil, initError(TypeAzureKeyVault, "vault_url", config.VaultURL,
			"Invalid vault_url format",
			"Use format: https://vault-name.vault.azure.net/")
	}

	p := &AzureKeyVaultProvider{
		name:   name,
		logger: logging.Nop(),
		config: config,
	}

	// Apply options (allows mock client injection)
	for _, opt := range opts {
		opt(p)
	}

	// If no client was provided via options, create real client
	if p.client == nil {
		client, err := createAzureKeyVaultClient(config)
		if err != nil {
			return nil, provider.InitializationError("failed to create Azure Key Vault client", err)
		}
		p.client = client
	}

	return p, nil
}

// createAzureKeyVaultClient creates an Azure Key Vault client with appropriate authentication
func createAzureKeyVaultClient(config AzureKeyVaultConfig) (*azsecrets.Client, error) {
	var cred azcore.TokenCredential
	var err error

	// Determine authentication method
	switch {
	case config.UseManagedIdentity:
		var opts *azidentity.ManagedIdentityCredentialOptions
		if config.UserAssignedID != "" {
			opts = &azidentity.ManagedIdentityCredentialOptions{
				ID: azidentity.ClientID(config.UserAssignedID),
			}
		}
		cred, err = azidentity.NewManagedIdentityCredential(opts)
	case config.ClientSecret != "":
		cred, err = azidentity.NewClientSecretCredential(config.TenantID, config.ClientID, config.ClientSecret, nil)
	case config.CertificatePath != "":
		cred, err = clientCertificateCredential(config)
	default:
		// Azure CLI, environment, workload identity and managed identity in turn
		cred, err = azidentity.NewDefaultAzureCredential(nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure credential: %w", err)
	}

	client, err := azsecrets.NewClient(config.VaultURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Key Vault client: %w", err)
	}
	return client, nil
}

// clientCertificateCredential authenticates a service principal with a PEM
// or PKCS#12 certificate that holds the private key.
func clientCertificateCredential(config AzureKeyVaultConfig) (azcore.TokenCredential, error) {
	data, err := os.ReadFile(config.CertificatePath)
	if err != nil {
		return nil, fmt.Errorf("read certificate: %w", err)
	}
	certs, key, err := azidentity.ParseCertificates(data, nil)
	if err != nil {
		return nil, fmt.Errorf("parse certificate: %w", err)
	}
	return azidentity.NewClientCertificateCredential(config.TenantID, config.ClientID, certs, key, nil)
}

// Name returns the provider name
func (p *AzureKeyVaultProvider) Name() string {
	return p.name
}

// Fetch reads a secret version. Secrets with the octet-stream content type
// hold base64 and are returned as binary.
func (p *AzureKeyVaultProvider) Fetch(ctx context.Context, name, version string) (provider.Record, bool, error) {
	p.logger.Debug("Accessing Azure Key Vault secret: %s", name)

	resp, err := p.client.GetSecret(ctx, name, version, nil)
	if err != nil {
		if isAzureNotFoundError(err) {
			return provider.Record{}, false, nil
		}
		return provider.Record{}, false, provider.ProviderFailedError(name, err)
	}

	rec := provider.Record{Name: name, Version: provider.UnknownVersion}
	if resp.ID != nil && resp.ID.Version() != "" {
		rec.Version = resp.ID.Version()
	}
	if resp.Value == nil {
		return rec, true, nil
	}

	if resp.ContentType != nil && *resp.ContentType == BinaryContentType {
		data, err := base64.StdEncoding.DecodeString(*resp.Value)
		if err != nil {
			return provider.Record{}, false, provider.ProviderFailedError(name, fmt.Errorf("decode %s value: %w", BinaryContentType, err))
		}
		rec.Value = provider.Binary(data)
		return rec, true, nil
	}

	rec.Value = provider.Text(*resp.Value)
	return rec, true, nil
}

// ListVersionIDs returns the version ids of name ordered by creation time.
func (p *AzureKeyVaultProvider) ListVersionIDs(ctx context.Context, name string) ([]string, bool, error) {
	type version struct {
		id      string
		created time.Time
	}
	var versions []version

	pager := p.client.NewListSecretPropertiesVersionsPager(name, nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			if isAzureNotFoundError(err) {
				return nil, false, nil
			}
			return nil, false, provider.ProviderFailedError(name, err)
		}
		for _, props := range page.Value {
			if props == nil || props.ID == nil {
				continue
			}
			v := version{id: props.ID.Version()}
			if props.Attributes != nil && props.Attributes.Created != nil {
				v.created = *props.Attributes.Created
			}
			versions = append(versions, v)
		}
	}

	// Listing a name that never existed yields no pages rather than a 404.
	if len(versions) == 0 {
		return nil, false, nil
	}

	sort.SliceStable(versions, func(i, j int) bool {
		return versions[i].created.Before(versions[j].created)
	})
	ids := make([]string, len(versions))
	for i, v := range versions {
		ids[i] = v.id
	}
	return ids, true, nil
}

// isAzureNotFoundError checks if the error indicates a secret was not found
func isAzureNotFoundError(err error) bool {
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		return respErr.StatusCode == http.StatusNotFound || respErr.ErrorCode == "SecretNotFound"
	}
	return false
}

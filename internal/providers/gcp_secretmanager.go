package providers

import (
	"context"
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"google.golang.org/api/impersonate"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/systmms/secretsprovider/internal/logging"
	"github.com/systmms/secretsprovider/internal/providers/contracts"
	"github.com/systmms/secretsprovider/pkg/provider"
)

// TypeGCPSecretManager is the registry key of GCPSecretManagerProvider.
const TypeGCPSecretManager = "gcp.secretmanager"

// Payload kinds for GCP secrets, which are stored as bytes only.
const (
	PayloadText   = "text"
	PayloadBinary = "binary"
)

// GCPSecretManagerClientAPI is the subset of the Secret Manager client the
// provider uses.
type GCPSecretManagerClientAPI interface {
	AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest) (*secretmanagerpb.AccessSecretVersionResponse, error)
	ListSecretVersions(ctx context.Context, req *secretmanagerpb.ListSecretVersionsRequest) contracts.SecretVersionIterator
	Close() error
}

// gcpClient adapts *secretmanager.Client to GCPSecretManagerClientAPI.
type gcpClient struct {
	client *secretmanager.Client
}

func (c gcpClient) AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest) (*secretmanagerpb.AccessSecretVersionResponse, error) {
	return c.client.AccessSecretVersion(ctx, req)
}

func (c gcpClient) ListSecretVersions(ctx context.Context, req *secretmanagerpb.ListSecretVersionsRequest) contracts.SecretVersionIterator {
	return c.client.ListSecretVersions(ctx, req)
}

func (c gcpClient) Close() error {
	return c.client.Close()
}

// GCPSecretManagerProvider implements the Provider interface for Google Cloud Secret Manager
type GCPSecretManagerProvider struct {
	name   string
	client GCPSecretManagerClientAPI
	logger *logging.Logger
	config GCPSecretManagerConfig
}

// GCPSecretManagerConfig holds GCP Secret Manager-specific configuration
type GCPSecretManagerConfig struct {
	ProjectID             string
	ServiceAccountKeyPath string
	ImpersonateAccount    string
	Endpoint              string // Plaintext emulator endpoint, no authentication
	Payload               string // PayloadText or PayloadBinary
}

// GCPProviderOption is a functional option for configuring GCP providers
type GCPProviderOption func(*GCPSecretManagerProvider)

// WithGCPClient sets a custom Secret Manager client (for testing)
func WithGCPClient(client GCPSecretManagerClientAPI) GCPProviderOption {
	return func(p *GCPSecretManagerProvider) {
		p.client = client
	}
}

// WithGCPLogger sets the logger used for debug output.
func WithGCPLogger(logger *logging.Logger) GCPProviderOption {
	return func(p *GCPSecretManagerProvider) {
		p.logger = logger
	}
}

// NewGCPSecretManagerProvider creates a new GCP Secret Manager provider
func NewGCPSecretManagerProvider(name string, configMap map[string]interface{}, opts ...GCPProviderOption) (*GCPSecretManagerProvider, error) {
	config := GCPSecretManagerConfig{
		ProjectID:             stringOption(configMap, "project_id"),
		ServiceAccountKeyPath: stringOption(configMap, "service_account_key_path"),
		ImpersonateAccount:    stringOption(configMap, "impersonate_service_account"),
		Endpoint:              stringOption(configMap, "endpoint"),
		Payload:               stringOption(configMap, "payload"),
	}

	switch config.Payload {
	case "":
		config.Payload = PayloadText
	case PayloadText, PayloadBinary:
	default:
		return nil, initError(TypeGCPSecretManager, "payload", config.Payload,
			"payload must be text or binary",
			"GCP stores secrets as bytes; choose how they are decoded")
	}

	// Validate required configuration
	if config.ProjectID == "" {
		config.ProjectID = getGCPProjectID()
		if config.ProjectID == "" {
			return nil, initError(TypeGCPSecretManager, "project_id", nil,
				"project_id is required for GCP Secret Manager",
				"Set project_id in config or GOOGLE_CLOUD_PROJECT environment variable")
		}
	}

	p := &GCPSecretManagerProvider{
		name:   name,
		logger: logging.Nop(),
		config: config,
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.client == nil {
		client, err := createGCPSecretManagerClient(config)
		if err != nil {
			return nil, provider.InitializationError("failed to create GCP Secret Manager client", err)
		}
		p.client = gcpClient{client: client}
	}

	return p, nil
}

// createGCPSecretManagerClient creates a GCP Secret Manager client
func createGCPSecretManagerClient(config GCPSecretManagerConfig) (*secretmanager.Client, error) {
	ctx := context.Background()

	var clientOptions []option.ClientOption

	if config.Endpoint != "" {
		clientOptions = append(clientOptions,
			option.WithEndpoint(config.Endpoint),
			option.WithoutAuthentication(),
			option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		)
		return secretmanager.NewClient(ctx, clientOptions...)
	}

	// Service account key file
	if config.ServiceAccountKeyPath != "" {
		// Expand home directory if needed
		if strings.HasPrefix(config.ServiceAccountKeyPath, "~/") {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("failed to get home directory: %w", err)
			}
			config.ServiceAccountKeyPath = filepath.Join(home, config.ServiceAccountKeyPath[2:])
		}

		clientOptions = append(clientOptions, option.WithCredentialsFile(config.ServiceAccountKeyPath))
	}

	// Service account impersonation
	if config.ImpersonateAccount != "" {
		impersonatedCredentials, err := impersonate.CredentialsTokenSource(ctx, impersonate.CredentialsConfig{
			TargetPrincipal: config.ImpersonateAccount,
			Scopes:          []string{"https://www.googleapis.com/auth/cloud-platform"},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create impersonated credentials: %w", err)
		}
		clientOptions = append(clientOptions, option.WithTokenSource(impersonatedCredentials))
	}

	return secretmanager.NewClient(ctx, clientOptions...)
}

// getGCPProjectID attempts to get the GCP project ID from the environment
func getGCPProjectID() string {
	for _, key := range []string{"GOOGLE_CLOUD_PROJECT", "GCLOUD_PROJECT", "GCP_PROJECT"} {
		if projectID := os.Getenv(key); projectID != "" {
			return projectID
		}
	}
	return ""
}

// Name returns the provider name
func (p *GCPSecretManagerProvider) Name() string {
	return p.name
}

// Fetch accesses a secret version. The empty version reads the "latest" alias.
// Versions are numbers, so any other pinned version is absent; the service
// would answer it with InvalidArgument rather than NotFound.
func (p *GCPSecretManagerProvider) Fetch(ctx context.Context, name, version string) (provider.Record, bool, error) {
	if version == "" {
		version = "latest"
	}
	if !isGCPVersion(version) {
		return provider.Record{}, false, nil
	}
	resourceName := fmt.Sprintf("%s/versions/%s", p.secretResource(name), version)

	p.logger.Debug("Accessing GCP secret: %s", resourceName)

	result, err := p.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: resourceName,
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return provider.Record{}, false, nil
		}
		return provider.Record{}, false, provider.ProviderFailedError(name, err)
	}

	rec := provider.Record{Name: name, Version: versionFromResource(result.GetName())}
	payload := result.GetPayload()
	if payload == nil {
		return rec, true, nil
	}

	if payload.DataCrc32C != nil {
		checksum := int64(crc32.Checksum(payload.GetData(), crc32.MakeTable(crc32.Castagnoli)))
		if checksum != payload.GetDataCrc32C() {
			return provider.Record{}, false, provider.ProviderFailedError(name, fmt.Errorf("payload checksum mismatch for %s", resourceName))
		}
	}

	if p.config.Payload == PayloadBinary {
		rec.Value = provider.Binary(payload.GetData())
	} else {
		rec.Value = provider.Text(string(payload.GetData()))
	}
	return rec, true, nil
}

// ListVersionIDs returns the version numbers of name, oldest first.
func (p *GCPSecretManagerProvider) ListVersionIDs(ctx context.Context, name string) ([]string, bool, error) {
	it := p.client.ListSecretVersions(ctx, &secretmanagerpb.ListSecretVersionsRequest{
		Parent: p.secretResource(name),
	})

	var ids []string
	for {
		v, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return nil, false, nil
			}
			return nil, false, provider.ProviderFailedError(name, err)
		}
		ids = append(ids, versionFromResource(v.GetName()))
	}

	// The service lists newest first.
	for i, j := 0, len(ids)-1; i < j; i, j = i+1, j-1 {
		ids[i], ids[j] = ids[j], ids[i]
	}
	return ids, true, nil
}

// Close releases the underlying gRPC connection.
func (p *GCPSecretManagerProvider) Close() error {
	return p.client.Close()
}

// secretResource accepts a short secret name or a full resource name.
func (p *GCPSecretManagerProvider) secretResource(name string) string {
	if strings.HasPrefix(name, "projects/") {
		return name
	}
	return fmt.Sprintf("projects/%s/secrets/%s", p.config.ProjectID, name)
}

// versionFromResource extracts N from projects/P/secrets/S/versions/N.
func versionFromResource(resource string) string {
	idx := strings.LastIndex(resource, "/versions/")
	if idx == -1 || idx+len("/versions/") == len(resource) {
		return provider.UnknownVersion
	}
	return resource[idx+len("/versions/"):]
}

func isGCPVersion(v string) bool {
	return v == "latest" || (v != "" && strings.TrimLeft(v, "0123456789") == "")
}

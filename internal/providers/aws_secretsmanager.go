package providers

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"

	"github.com/systmms/secretsprovider/internal/logging"
	"github.com/systmms/secretsprovider/pkg/provider"
)

// TypeAWSSecretsManager is the registry key of AWSSecretsManagerProvider.
const TypeAWSSecretsManager = "aws.secretsmanager"

// batchGetLimit is the most secret ids BatchGetSecretValue accepts per call.
const batchGetLimit = 20

// SecretsManagerClientAPI defines the interface for AWS Secrets Manager operations
// This allows for mocking in tests
type SecretsManagerClientAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
	BatchGetSecretValue(ctx context.Context, params *secretsmanager.BatchGetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.BatchGetSecretValueOutput, error)
	ListSecretVersionIds(ctx context.Context, params *secretsmanager.ListSecretVersionIdsInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.ListSecretVersionIdsOutput, error)
}

// AWSSecretsManagerProvider implements the provider interface for AWS Secrets Manager
type AWSSecretsManagerProvider struct {
	name   string
	client SecretsManagerClientAPI
	config AWSConfig
	logger *logging.Logger
}

// ProviderOption is a functional option for configuring providers
type ProviderOption func(*AWSSecretsManagerProvider)

// WithSecretsManagerClient sets a custom Secrets Manager client (for testing)
func WithSecretsManagerClient(client SecretsManagerClientAPI) ProviderOption {
	return func(p *AWSSecretsManagerProvider) {
		p.client = client
	}
}

// WithSecretsManagerLogger sets the logger used for debug output.
func WithSecretsManagerLogger(logger *logging.Logger) ProviderOption {
	return func(p *AWSSecretsManagerProvider) {
		p.logger = logger
	}
}

// NewAWSSecretsManagerProvider creates a new AWS Secrets Manager provider
func NewAWSSecretsManagerProvider(name string, providerConfig map[string]interface{}, opts ...ProviderOption) (*AWSSecretsManagerProvider, error) {
	cfg, err := parseAWSConfig(TypeAWSSecretsManager, providerConfig)
	if err != nil {
		return nil, err
	}

	p := &AWSSecretsManagerProvider{
		name:   name,
		config: cfg,
		logger: logging.Nop(),
	}

	// Apply options (allows mock client injection)
	for _, opt := range opts {
		opt(p)
	}

	// If no client was provided via options, create real client
	if p.client == nil {
		awsCfg, err := cfg.load(context.Background())
		if err != nil {
			return nil, provider.InitializationError("failed to load AWS config", err)
		}

		var clientOpts []func(*secretsmanager.Options)
		if cfg.Endpoint != "" {
			endpoint := cfg.Endpoint
			clientOpts = append(clientOpts, func(o *secretsmanager.Options) {
				o.BaseEndpoint = &endpoint
			})
		}
		p.client = secretsmanager.NewFromConfig(awsCfg, clientOpts...)
	}

	return p, nil
}

// Name returns the provider name
func (p *AWSSecretsManagerProvider) Name() string {
	return p.name
}

// Region returns the configured AWS region.
func (p *AWSSecretsManagerProvider) Region() string {
	return p.config.Region
}

// Fetch reads one secret version. A version that looks like a version id is
// sent as VersionId, anything else as a staging label such as AWSPREVIOUS.
func (p *AWSSecretsManagerProvider) Fetch(ctx context.Context, name, version string) (provider.Record, bool, error) {
	input := &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(name),
	}
	if version != "" {
		if isVersionId(version) {
			input.VersionId = aws.String(version)
		} else {
			input.VersionStage = aws.String(version)
		}
	}

	p.logger.Debug("Fetching secret from AWS Secrets Manager: %s", name)

	result, err := p.client.GetSecretValue(ctx, input)
	if err != nil {
		if isSecretsManagerNotFound(err) {
			return provider.Record{}, false, nil
		}
		return provider.Record{}, false, provider.ProviderFailedError(name, err)
	}

	return secretsManagerRecord(name, result.VersionId, result.SecretString, result.SecretBinary), true, nil
}

// FetchBatch reads the current version of names with BatchGetSecretValue.
// Ids the service reports as not found or access denied are left out; any
// other per-secret error fails the whole call.
func (p *AWSSecretsManagerProvider) FetchBatch(ctx context.Context, names []string) (map[string]provider.Record, error) {
	out := make(map[string]provider.Record, len(names))

	for start := 0; start < len(names); start += batchGetLimit {
		chunk := names[start:min(start+batchGetLimit, len(names))]
		requested := make(map[string]bool, len(chunk))
		for _, n := range chunk {
			requested[n] = true
		}

		input := &secretsmanager.BatchGetSecretValueInput{SecretIdList: chunk}
		for {
			result, err := p.client.BatchGetSecretValue(ctx, input)
			if err != nil {
				return nil, provider.ProviderFailedError("", err)
			}

			for _, e := range result.Errors {
				id := aws.ToString(e.SecretId)
				switch aws.ToString(e.ErrorCode) {
				case resourceNotFoundCode:
					continue
				case accessDeniedCode:
					p.logger.Debug("Skipping inaccessible secret in batch: %s", id)
					continue
				}
				return nil, provider.ProviderFailedError(id, fmt.Errorf("%s: %s", aws.ToString(e.ErrorCode), aws.ToString(e.Message)))
			}

			for _, v := range result.SecretValues {
				key := aws.ToString(v.Name)
				if !requested[key] && requested[aws.ToString(v.ARN)] {
					key = aws.ToString(v.ARN)
				}
				out[key] = secretsManagerRecord(key, v.VersionId, v.SecretString, v.SecretBinary)
			}

			if result.NextToken == nil {
				break
			}
			input.NextToken = result.NextToken
		}
	}

	p.logger.Debug("Fetched %d of %d secrets from AWS Secrets Manager", len(out), len(names))
	return out, nil
}

// ListVersionIDs returns every version id of name, oldest first.
func (p *AWSSecretsManagerProvider) ListVersionIDs(ctx context.Context, name string) ([]string, bool, error) {
	type version struct {
		id      string
		created time.Time
	}
	var versions []version

	paginator := secretsmanager.NewListSecretVersionIdsPaginator(p.client, &secretsmanager.ListSecretVersionIdsInput{
		SecretId:          aws.String(name),
		IncludeDeprecated: aws.Bool(true),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			if isSecretsManagerNotFound(err) {
				return nil, false, nil
			}
			return nil, false, provider.ProviderFailedError(name, err)
		}
		for _, v := range page.Versions {
			versions = append(versions, version{id: aws.ToString(v.VersionId), created: aws.ToTime(v.CreatedDate)})
		}
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

func secretsManagerRecord(name string, versionID, secretString *string, secretBinary []byte) provider.Record {
	rec := provider.Record{Name: name, Version: aws.ToString(versionID)}
	if rec.Version == "" {
		rec.Version = provider.UnknownVersion
	}
	switch {
	case secretString != nil:
		rec.Value = provider.Text(*secretString)
	case secretBinary != nil:
		rec.Value = provider.Binary(secretBinary)
	}
	return rec
}

const (
	resourceNotFoundCode = "ResourceNotFoundException"
	accessDeniedCode     = "AccessDeniedException"
)

func isSecretsManagerNotFound(err error) bool {
	var resourceNotFound *types.ResourceNotFoundException
	return errors.As(err, &resourceNotFound) || awsErrorCode(err) == resourceNotFoundCode
}

func isVersionId(version string) bool {
	// AWS version IDs are UUIDs
	return len(version) == 36 && strings.Count(version, "-") == 4
}

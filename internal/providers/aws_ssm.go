package providers

import (
	"context"
	"errors"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"

	"github.com/systmms/secretsprovider/internal/logging"
	"github.com/systmms/secretsprovider/pkg/provider"
)

// TypeAWSSSM is the registry key of AWSSSMProvider.
const TypeAWSSSM = "aws.ssm"

// SSMClientAPI defines the interface for AWS SSM Parameter Store operations
// This allows for mocking in tests
type SSMClientAPI interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
	GetParameterHistory(ctx context.Context, params *ssm.GetParameterHistoryInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterHistoryOutput, error)
}

// AWSSSMProvider implements the Provider interface for AWS Systems Manager Parameter Store
type AWSSSMProvider struct {
	name   string
	client SSMClientAPI
	logger *logging.Logger
	config SSMConfig
}

// SSMConfig holds AWS SSM-specific configuration
type SSMConfig struct {
	AWSConfig
	WithDecryption  bool
	ParameterPrefix string
}

// SSMProviderOption is a functional option for configuring SSM providers
type SSMProviderOption func(*AWSSSMProvider)

// WithSSMClient sets a custom SSM client (for testing)
func WithSSMClient(client SSMClientAPI) SSMProviderOption {
	return func(p *AWSSSMProvider) {
		p.client = client
	}
}

// WithSSMLogger sets the logger used for debug output.
func WithSSMLogger(logger *logging.Logger) SSMProviderOption {
	return func(p *AWSSSMProvider) {
		p.logger = logger
	}
}

// NewAWSSSMProvider creates a new AWS SSM Parameter Store provider
func NewAWSSSMProvider(name string, configMap map[string]interface{}, opts ...SSMProviderOption) (*AWSSSMProvider, error) {
	awsCfg, err := parseAWSConfig(TypeAWSSSM, configMap)
	if err != nil {
		return nil, err
	}
	decrypt, err := boolOption(configMap, "with_decryption", true)
	if err != nil {
		return nil, initError(TypeAWSSSM, "with_decryption", configMap["with_decryption"], err.Error(), "Use true or false")
	}

	p := &AWSSSMProvider{
		name:   name,
		logger: logging.Nop(),
		config: SSMConfig{
			AWSConfig:       awsCfg,
			WithDecryption:  decrypt,
			ParameterPrefix: stringOption(configMap, "parameter_prefix"),
		},
	}

	// Apply options (allows mock client injection)
	for _, opt := range opts {
		opt(p)
	}

	// If no client was provided via options, create real client
	if p.client == nil {
		cfg, err := awsCfg.load(context.Background())
		if err != nil {
			return nil, provider.InitializationError("failed to load AWS config", err)
		}
		var clientOpts []func(*ssm.Options)
		if awsCfg.Endpoint != "" {
			endpoint := awsCfg.Endpoint
			clientOpts = append(clientOpts, func(o *ssm.Options) {
				o.BaseEndpoint = &endpoint
			})
		}
		p.client = ssm.NewFromConfig(cfg, clientOpts...)
	}

	return p, nil
}

// Name returns the provider name
func (p *AWSSSMProvider) Name() string {
	return p.name
}

// Fetch reads a parameter. A pinned version is passed with the name:version
// selector, which accepts both version numbers and labels.
func (p *AWSSSMProvider) Fetch(ctx context.Context, name, version string) (provider.Record, bool, error) {
	parameterName := p.config.ParameterPrefix + name
	selector := parameterName
	if version != "" {
		selector += ":" + version
	}

	p.logger.Debug("Fetching parameter from SSM: %s", selector)

	result, err := p.client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(selector),
		WithDecryption: aws.Bool(p.config.WithDecryption),
	})
	if err != nil {
		if isParameterNotFoundError(err) {
			return provider.Record{}, false, nil
		}
		return provider.Record{}, false, provider.ProviderFailedError(name, err)
	}

	rec := provider.Record{Name: name, Version: provider.UnknownVersion}
	if result.Parameter == nil {
		return rec, true, nil
	}
	if result.Parameter.Version != 0 {
		rec.Version = strconv.FormatInt(result.Parameter.Version, 10)
	}
	if result.Parameter.Value != nil {
		rec.Value = provider.Text(*result.Parameter.Value)
	}
	return rec, true, nil
}

// ListVersionIDs returns the parameter's version numbers, oldest first.
func (p *AWSSSMProvider) ListVersionIDs(ctx context.Context, name string) ([]string, bool, error) {
	paginator := ssm.NewGetParameterHistoryPaginator(p.client, &ssm.GetParameterHistoryInput{
		Name:           aws.String(p.config.ParameterPrefix + name),
		WithDecryption: aws.Bool(false),
	})

	var ids []string
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			if isParameterNotFoundError(err) {
				return nil, false, nil
			}
			return nil, false, provider.ProviderFailedError(name, err)
		}
		for _, h := range page.Parameters {
			ids = append(ids, strconv.FormatInt(h.Version, 10))
		}
	}
	return ids, true, nil
}

// isParameterNotFoundError checks if the error is a parameter not found error
func isParameterNotFoundError(err error) bool {
	var notFound *types.ParameterNotFound
	var versionNotFound *types.ParameterVersionNotFound
	if errors.As(err, &notFound) || errors.As(err, &versionNotFound) {
		return true
	}
	switch awsErrorCode(err) {
	case "ParameterNotFound", "ParameterVersionNotFound":
		return true
	}
	return false
}

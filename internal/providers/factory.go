package providers

import (
	"fmt"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"

	dserrors "github.com/systmms/secretsprovider/internal/errors"
	"github.com/systmms/secretsprovider/pkg/provider"
)

// AkeylessConfig holds configuration for the Akeyless provider
type AkeylessConfig struct {
	// AccessID is the Akeyless access ID (required)
	AccessID string `yaml:"access_id"`

	// GatewayURL is the custom gateway URL for enterprise deployments
	// Defaults to "https://api.akeyless.io"
	GatewayURL string `yaml:"gateway_url" default:"https://api.akeyless.io"`

	// Auth contains authentication configuration
	Auth AkeylessAuth `yaml:"auth"`

	// Timeout for API requests (default: 30s)
	Timeout time.Duration `yaml:"timeout" default:"30s"`
}

// AkeylessAuth defines authentication method for Akeyless
type AkeylessAuth struct {
	// Method is the authentication method
	// Values: "api_key", "aws_iam", "azure_ad", "gcp"
	Method string `yaml:"method" default:"api_key"`

	// AccessKey for API key auth
	AccessKey string `yaml:"access_key"`

	// AzureADObjectID for Azure AD auth
	AzureADObjectID string `yaml:"azure_ad_object_id"`

	// GCPAudience for GCP auth
	GCPAudience string `yaml:"gcp_audience"`
}

// UnmarshalYAML fills in defaults before decoding.
func (c *AkeylessConfig) UnmarshalYAML(value *yaml.Node) error {
	if err := defaults.Set(c); err != nil {
		return err
	}

	type plain AkeylessConfig
	return value.Decode((*plain)(c))
}

// Default values for provider configurations
const (
	DefaultAkeylessGateway = "https://api.akeyless.io"
	DefaultAWSRegion       = "us-east-1"
	DefaultTimeout         = 30 * time.Second
)

// decodeConfig decodes a provider config block into a typed struct by way of
// its YAML form, so yaml tags and UnmarshalYAML hooks apply.
func decodeConfig(config map[string]interface{}, out interface{}) error {
	if config == nil {
		config = map[string]interface{}{}
	}
	data, err := yaml.Marshal(config)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, out)
}

// stringOption returns config[key] when it is a non-empty string.
func stringOption(config map[string]interface{}, key string) string {
	if s, ok := config[key].(string); ok {
		return s
	}
	return ""
}

// intOption accepts the numeric shapes YAML and JSON decoding produce.
func intOption(config map[string]interface{}, key string) (int, error) {
	switch v := config[key].(type) {
	case nil:
		return 0, nil
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if v != float64(int(v)) {
			return 0, fmt.Errorf("%s must be a whole number", key)
		}
		return int(v), nil
	default:
		return 0, fmt.Errorf("%s must be a number, got %T", key, v)
	}
}

// boolOption returns config[key] as a bool, or def when the key is unset.
func boolOption(config map[string]interface{}, key string, def bool) (bool, error) {
	switch v := config[key].(type) {
	case nil:
		return def, nil
	case bool:
		return v, nil
	default:
		return false, fmt.Errorf("%s must be true or false, got %T", key, v)
	}
}

// initError reports a bad or missing configuration field of a provider.
func initError(providerType, field string, value interface{}, message, suggestion string) error {
	return provider.InitializationError(providerType, dserrors.ConfigError{
		Field:      field,
		Value:      value,
		Message:    message,
		Suggestion: suggestion,
	})
}

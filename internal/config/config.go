package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	dserrors "github.com/systmms/secretsprovider/internal/errors"
	"github.com/systmms/secretsprovider/internal/logging"
)

// DefaultPath is the configuration file read when --config is not given.
const DefaultPath = "secretsprovider.yaml"

// DefaultTimeoutMs bounds a provider call when timeout_ms is not set.
const DefaultTimeoutMs = 30000

//go:embed schema.json
var schemaJSON []byte

var (
	schemaOnce sync.Once
	schema     *gojsonschema.Schema
	schemaErr  error
)

// Config holds the runtime configuration
type Config struct {
	Path       string
	Logger     *logging.Logger
	Definition *Definition
}

// Definition represents the secretsprovider.yaml structure
type Definition struct {
	Version   int                       `yaml:"version"`
	Providers map[string]ProviderConfig `yaml:"providers"`
}

// ProviderConfig holds provider-specific configuration. Keys other than type
// and timeout_ms are passed to the provider factory untouched.
type ProviderConfig struct {
	Type      string                 `yaml:"type"`
	TimeoutMs int                    `yaml:"timeout_ms,omitempty"`
	Config    map[string]interface{} `yaml:",inline"`
}

// Load reads, validates and parses the configuration file
func (c *Config) Load() error {
	data, err := os.ReadFile(c.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return dserrors.ConfigError{
				Field:      "path",
				Value:      c.Path,
				Message:    "configuration file not found",
				Suggestion: fmt.Sprintf("Create %s or pass --config", DefaultPath),
			}
		}
		return dserrors.UserError{
			Message:    "Failed to read configuration file",
			Details:    err.Error(),
			Suggestion: "Check file permissions and path",
			Err:        err,
		}
	}

	def, err := Parse(data)
	if err != nil {
		return err
	}

	if c.Logger != nil {
		c.Logger.Debug("loaded %d provider(s) from %s", len(def.Providers), c.Path)
	}
	c.Definition = def
	return nil
}

// Parse validates raw YAML against the configuration schema and decodes it.
func Parse(data []byte) (*Definition, error) {
	var raw interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, dserrors.ConfigError{
			Message:    "invalid YAML syntax in configuration file",
			Suggestion: "Check for indentation errors, missing quotes, or invalid characters. Use a YAML validator",
		}
	}
	if err := validate(raw); err != nil {
		return nil, err
	}

	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, dserrors.ConfigError{
			Message:    err.Error(),
			Suggestion: "Check the value types in your configuration file",
		}
	}
	return &def, nil
}

func compiledSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaJSON))
	})
	return schema, schemaErr
}

// validate checks the decoded document against the embedded JSON schema and
// reports the first violation as a ConfigError.
func validate(doc interface{}) error {
	s, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("compile configuration schema: %w", err)
	}

	jsonData, err := json.Marshal(doc)
	if err != nil {
		return dserrors.ConfigError{
			Message:    "configuration contains values that cannot be represented as JSON",
			Suggestion: "Use string keys and plain scalar values",
		}
	}

	result, err := s.Validate(gojsonschema.NewBytesLoader(jsonData))
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}
	if result.Valid() {
		return nil
	}

	errs := result.Errors()
	sort.Slice(errs, func(i, j int) bool { return errs[i].Field() < errs[j].Field() })
	first := errs[0]

	var details []string
	for _, desc := range errs {
		details = append(details, desc.String())
	}
	return dserrors.ConfigError{
		Field:      first.Field(),
		Value:      first.Value(),
		Message:    strings.Join(details, "; "),
		Suggestion: suggestionFor(first),
	}
}

func suggestionFor(e gojsonschema.ResultError) string {
	switch {
	case e.Type() == "enum" && strings.HasSuffix(e.Field(), ".type"):
		return "Run 'secretsprovider providers' to list supported provider types"
	case e.Field() == "version":
		return "Set 'version: 0' at the top of your configuration file"
	case e.Type() == "required" && e.Field() == "(root)":
		return "Add a 'providers:' section with at least one provider"
	case e.Type() == "number_one_of" || e.Type() == "required":
		return "Each seeded secret needs exactly one of 'text' or 'binary'"
	default:
		return "Check the provider block against the documented keys"
	}
}

// GetProvider returns the configuration for a named provider
func (c *Config) GetProvider(name string) (ProviderConfig, error) {
	if c.Definition == nil {
		return ProviderConfig{}, dserrors.UserError{
			Message:    "Configuration not loaded",
			Suggestion: "This is an internal error. Please report it",
		}
	}

	if p, ok := c.Definition.Providers[name]; ok {
		return p, nil
	}

	available := c.ProviderNames()
	suggestion := "Add the provider to the 'providers:' section of your configuration file"
	if len(available) > 0 {
		suggestion = fmt.Sprintf("Available providers: %s. %s", strings.Join(available, ", "), suggestion)
	}

	return ProviderConfig{}, dserrors.ConfigError{
		Field:      "provider",
		Value:      name,
		Message:    "provider not found in configuration",
		Suggestion: suggestion,
	}
}

// ProviderNames returns the configured provider names, sorted.
func (c *Config) ProviderNames() []string {
	if c.Definition == nil {
		return nil
	}
	names := make([]string, 0, len(c.Definition.Providers))
	for name := range c.Definition.Providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetProviderTimeout returns the timeout for a provider in milliseconds
func (p ProviderConfig) GetProviderTimeout() int {
	if p.TimeoutMs <= 0 {
		return DefaultTimeoutMs
	}
	return p.TimeoutMs
}

package errors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/systmms/secretsprovider/pkg/provider"
)

// UserError represents an error that should be shown to the user with helpful context
type UserError struct {
	Message    string
	Suggestion string
	Details    string
	Err        error
}

func (e UserError) Error() string {
	var parts []string

	if e.Message != "" {
		parts = append(parts, e.Message)
	} else if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}

	if e.Details != "" {
		parts = append(parts, "\n  Details: "+e.Details)
	}

	if e.Suggestion != "" {
		parts = append(parts, "\n  💡 Try: "+e.Suggestion)
	}

	return strings.Join(parts, "")
}

func (e UserError) Unwrap() error {
	return e.Err
}

// ConfigError represents a configuration error with helpful context
type ConfigError struct {
	Field      string
	Value      interface{}
	Message    string
	Suggestion string
}

func (e ConfigError) Error() string {
	msg := "Configuration error"
	if e.Field != "" {
		msg += fmt.Sprintf(" in field '%s'", e.Field)
	}
	if e.Value != nil {
		msg += fmt.Sprintf(" (value: %v)", e.Value)
	}
	msg += ": " + e.Message

	if e.Suggestion != "" {
		msg += "\n  💡 " + e.Suggestion
	}

	return msg
}

// NotFound reports a secret, or a version of it, that the provider does not
// have.
func NotFound(providerName, name, version string) error {
	msg := fmt.Sprintf("secret %q not found in provider %s", name, providerName)
	suggestion := "Check the secret name and the provider configuration"
	if version != "" {
		msg = fmt.Sprintf("version %s of secret %q not found in provider %s", version, name, providerName)
		suggestion = fmt.Sprintf("List available versions with: secretsprovider versions --provider %s --name %s", providerName, name)
	}
	return UserError{Message: msg, Suggestion: suggestion}
}

// ProviderError enhances provider-specific errors with context
func ProviderError(providerType string, operation string, err error) error {
	return UserError{
		Message:    fmt.Sprintf("%s provider error during %s", providerType, operation),
		Details:    err.Error(),
		Suggestion: getProviderSuggestion(providerType, err),
		Err:        err,
	}
}

// getProviderSuggestion returns helpful suggestions based on provider and error
func getProviderSuggestion(providerType string, err error) string {
	errStr := err.Error()

	switch {
	case errors.Is(err, provider.ErrInvalidType):
		return "The stored secret has a different type. Retry with or without --binary"
	case errors.Is(err, provider.ErrUnknownType):
		return "The backend returned a secret with neither text nor binary content"
	case errors.Is(err, provider.ErrVersionListingUnsupported):
		return fmt.Sprintf("The %s provider cannot list versions; pass a known version id instead", providerType)
	}

	switch providerType {
	case "aws.secretsmanager", "aws.ssm":
		if strings.Contains(errStr, "credentials") || strings.Contains(errStr, "authorization") {
			return "Configure AWS credentials: 'aws configure' or set AWS_PROFILE"
		}
		if strings.Contains(errStr, "AccessDenied") {
			if providerType == "aws.ssm" {
				return "Check IAM permissions for ssm:GetParameter and kms:Decrypt"
			}
			return "Check IAM permissions for secretsmanager:GetSecretValue"
		}
		if strings.Contains(errStr, "ThrottlingException") {
			return "AWS rate limit exceeded. Wait a moment and try again"
		}
		if strings.Contains(errStr, "WebIdentity") {
			return "Verify AWS_ROLE_ARN and AWS_WEB_IDENTITY_TOKEN_FILE point to a valid role and token"
		}

	case "gcp.secretmanager":
		if strings.Contains(errStr, "PermissionDenied") {
			return "Grant roles/secretmanager.secretAccessor to the calling identity"
		}
		if strings.Contains(errStr, "could not find default credentials") {
			return "Run 'gcloud auth application-default login' or set GOOGLE_APPLICATION_CREDENTIALS"
		}

	case "azure.keyvault":
		if strings.Contains(errStr, "Forbidden") || strings.Contains(errStr, "403") {
			return "Grant the 'Key Vault Secrets User' role or a get-secret access policy"
		}
		if strings.Contains(errStr, "DefaultAzureCredential") {
			return "Run 'az login' or set AZURE_CLIENT_ID, AZURE_TENANT_ID and AZURE_CLIENT_SECRET"
		}

	case "keychain":
		if strings.Contains(errStr, "org.freedesktop.secrets") || strings.Contains(errStr, "dbus") {
			return "Start a Secret Service provider such as gnome-keyring"
		}

	case "akeyless":
		if strings.Contains(errStr, "Unauthorized") || strings.Contains(errStr, "401") {
			return "Check the Akeyless access id and credentials, or clear the cached token"
		}

	case "sql":
		if strings.Contains(errStr, "no such table") || strings.Contains(errStr, "does not exist") {
			return "Create the secrets table or set 'table' in the provider config"
		}
	}

	// Generic suggestions
	if strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline exceeded") {
		return "The operation timed out. Check your network connection or raise timeout_ms"
	}
	if strings.Contains(errStr, "connection refused") || strings.Contains(errStr, "no such host") {
		return "Unable to connect. Check your network and provider configuration"
	}

	return ""
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, provider.ErrInvalidType) || errors.Is(err, provider.ErrUnknownType) || errors.Is(err, provider.ErrInitialization) {
		return false
	}

	errStr := strings.ToLower(err.Error())
	retryablePatterns := []string{
		"timeout",
		"temporary failure",
		"connection reset",
		"broken pipe",
		"rate limit",
		"throttling",
		"too many requests",
	}

	for _, pattern := range retryablePatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	return false
}

// SimplifyError simplifies complex error messages for users
func SimplifyError(err error) error {
	if err == nil {
		return nil
	}

	// Already a user-friendly error
	var userErr UserError
	if errors.As(err, &userErr) {
		return userErr
	}
	var cfgErr ConfigError
	if errors.As(err, &cfgErr) {
		return cfgErr
	}

	// Unwrap to get the root cause
	rootErr := err
	for {
		unwrapped := errors.Unwrap(rootErr)
		if unwrapped == nil {
			break
		}
		rootErr = unwrapped
	}

	// Simplify common technical errors
	errStr := rootErr.Error()

	// yaml.v3 prefixes its errors; file names like "x.yaml:" must not match.
	if strings.HasPrefix(errStr, "yaml:") {
		return ConfigError{
			Message:    "Invalid YAML format",
			Suggestion: "Check for indentation errors and missing quotes",
		}
	}

	if strings.Contains(errStr, "permission denied") {
		return UserError{
			Message:    "Permission denied",
			Suggestion: "Check file permissions or run with appropriate privileges",
			Err:        err,
		}
	}

	if strings.Contains(errStr, "no such file or directory") {
		return UserError{
			Message:    "File or directory not found",
			Suggestion: "Verify the path exists and is spelled correctly",
			Err:        err,
		}
	}

	// Return original error if we can't simplify it
	return err
}

package providers

import (
	"errors"
	"fmt"
)

// KeychainError records which keychain item an operation failed on.
type KeychainError struct {
	Op      string // "lookup" or "validate"
	Service string
	Account string
	Err     error
}

func (e *KeychainError) Error() string {
	item := e.Service
	if e.Account != "" {
		item += "/" + e.Account
	}
	return fmt.Sprintf("keychain %s %s: %v", e.Op, item, e.Err)
}

func (e *KeychainError) Unwrap() error {
	return e.Err
}

var (
	ErrKeychainAccessDenied        = errors.New("keychain access denied")
	ErrKeychainUnsupportedPlatform = errors.New("keychain not supported on this platform")
	ErrKeychainHeadless            = errors.New("keychain requires an interactive session to unlock")
)

// AkeylessError wraps Akeyless SDK errors with context
type AkeylessError struct {
	Op      string // Operation: "auth", "fetch", "describe"
	Path    string
	Message string
	Err     error
}

func (e *AkeylessError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("akeyless %s error for %s: %s", e.Op, e.Path, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("akeyless %s error: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("akeyless %s error: %s", e.Op, e.Message)
}

func (e *AkeylessError) Unwrap() error {
	return e.Err
}

// IsAkeylessNotFound returns true if the error is a not found error
func IsAkeylessNotFound(err error) bool {
	if errors.Is(err, ErrAkeylessSecretNotFound) {
		return true
	}
	var ae *AkeylessError
	if errors.As(err, &ae) {
		return ae.Message == "secret not found" || ae.Message == "item not found"
	}
	return false
}

// Akeyless sentinel errors
var (
	ErrAkeylessSecretNotFound = errors.New("akeyless secret not found")
	ErrAkeylessUnauthorized   = errors.New("akeyless unauthorized")
	ErrAkeylessPermission     = errors.New("akeyless permission denied")
	ErrAkeylessRateLimited    = errors.New("akeyless rate limited")
)

package providers

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/zalando/go-keyring"

	"github.com/systmms/secretsprovider/internal/providers/contracts"
	"github.com/systmms/secretsprovider/pkg/provider"
)

// TypeKeychain is the registry key of KeychainProvider.
const TypeKeychain = "keychain"

// KeychainProvider reads text secrets from the OS keychain (macOS Keychain,
// Linux Secret Service, Windows Credential Manager). Keychain items carry no
// version, so every record is reported as provider.UnknownVersion.
type KeychainProvider struct {
	name    string
	service string
	store   contracts.KeychainStore
}

// NewKeychainProvider creates a keychain provider backed by go-keyring.
func NewKeychainProvider(name string, config map[string]interface{}) *KeychainProvider {
	return NewKeychainProviderWithStore(name, config, keyringStore{})
}

// NewKeychainProviderWithStore creates a keychain provider over store.
func NewKeychainProviderWithStore(name string, config map[string]interface{}, store contracts.KeychainStore) *KeychainProvider {
	return &KeychainProvider{
		name:    name,
		service: stringOption(config, "service"),
		store:   store,
	}
}

// Name returns the provider name
func (kc *KeychainProvider) Name() string {
	return kc.name
}

// Platform returns the OS whose keychain is read.
func (kc *KeychainProvider) Platform() string {
	return runtime.GOOS
}

// Fetch reads a keychain item. With a service configured, name is the
// account; otherwise name must be "service/account". Only the empty version
// and provider.UnknownVersion can match.
func (kc *KeychainProvider) Fetch(ctx context.Context, name, version string) (provider.Record, bool, error) {
	if version != "" && version != provider.UnknownVersion {
		return provider.Record{}, false, nil
	}

	ref, err := kc.reference(name)
	if err != nil {
		return provider.Record{}, false, provider.ProviderFailedError(name, err)
	}

	value, found, err := kc.store.Lookup(ref.Service, ref.Account)
	if err != nil {
		kerr := &KeychainError{Op: "lookup", Service: ref.Service, Account: ref.Account, Err: err}
		if isKeychainAccessDeniedError(err) {
			kerr.Err = fmt.Errorf("%w: %v", ErrKeychainAccessDenied, err)
		}
		return provider.Record{}, false, provider.ProviderFailedError(name, kerr)
	}
	if !found {
		return provider.Record{}, false, nil
	}

	return provider.Record{
		Name:    name,
		Version: provider.UnknownVersion,
		Value:   provider.Text(value),
	}, true, nil
}

// Validate reports whether lookups can succeed in the current session.
func (kc *KeychainProvider) Validate(ctx context.Context) error {
	session := kc.store.Session()
	switch {
	case !session.Supported:
		return fmt.Errorf("%w (%s)", ErrKeychainUnsupportedPlatform, kc.Platform())
	case !session.Interactive:
		return fmt.Errorf("%w; use another provider in CI or over SSH", ErrKeychainHeadless)
	case session.Err != nil:
		return &KeychainError{Op: "validate", Service: kc.service, Err: session.Err}
	}
	return nil
}

func (kc *KeychainProvider) reference(name string) (*KeychainReference, error) {
	if kc.service != "" {
		if strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("keychain account cannot be empty")
		}
		return &KeychainReference{Service: kc.service, Account: name}, nil
	}
	return ParseKeychainReference(name)
}

// KeychainReference names one keychain item.
type KeychainReference struct {
	Service string
	Account string
}

// ParseKeychainReference splits "service/account". The account may itself
// contain slashes.
func ParseKeychainReference(key string) (*KeychainReference, error) {
	service, account, ok := strings.Cut(key, "/")
	if !ok {
		return nil, fmt.Errorf("keychain reference must be service/account format, got: %s", key)
	}

	service = strings.TrimSpace(service)
	account = strings.TrimSpace(account)
	switch {
	case service == "":
		return nil, fmt.Errorf("keychain reference service cannot be empty")
	case account == "":
		return nil, fmt.Errorf("keychain reference account cannot be empty")
	}
	return &KeychainReference{Service: service, Account: account}, nil
}

func isKeychainAccessDeniedError(err error) bool {
	if errors.Is(err, ErrKeychainAccessDenied) {
		return true
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "access denied") ||
		strings.Contains(errStr, "accessdenied") ||
		strings.Contains(errStr, "user denied") ||
		strings.Contains(errStr, "canceled")
}

// keyringStore reads the native store of each platform through go-keyring.
type keyringStore struct{}

func (keyringStore) Lookup(service, account string) (string, bool, error) {
	secret, err := keyring.Get(service, account)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return secret, true, nil
}

func (keyringStore) Session() contracts.KeychainSession {
	return contracts.KeychainSession{
		Supported:   keyringSupported(),
		Interactive: !keyringHeadless(),
	}
}

func keyringSupported() bool {
	switch runtime.GOOS {
	case "darwin", "windows":
		return true
	case "linux", "freebsd", "openbsd":
		// Secret Service lives on the session bus.
		return os.Getenv("DBUS_SESSION_BUS_ADDRESS") != "" ||
			os.Getenv("DISPLAY") != "" || os.Getenv("WAYLAND_DISPLAY") != ""
	default:
		return false
	}
}

func keyringHeadless() bool {
	if os.Getenv("SSH_TTY") != "" || os.Getenv("CI") != "" {
		return true
	}
	return runtime.GOOS == "linux" && os.Getenv("DISPLAY") == "" && os.Getenv("WAYLAND_DISPLAY") == ""
}

var _ contracts.KeychainStore = keyringStore{}

package fakes

import (
	"errors"

	"github.com/systmms/secretsprovider/internal/providers/contracts"
)

// ErrFakeKeychainDenied mimics the error a keychain returns when the user
// declines an unlock prompt.
var ErrFakeKeychainDenied = errors.New("user denied access to the keychain item")

// FakeKeychainStore is an in-memory contracts.KeychainStore.
type FakeKeychainStore struct {
	items map[[2]string]string

	// State is returned by Session.
	State contracts.KeychainSession
	// LookupErr fails every Lookup when set.
	LookupErr error
	// Lookups counts Lookup calls.
	Lookups int
}

// NewFakeKeychainStore returns an empty store in a supported, interactive
// session.
func NewFakeKeychainStore() *FakeKeychainStore {
	return &FakeKeychainStore{
		items: make(map[[2]string]string),
		State: contracts.KeychainSession{Supported: true, Interactive: true},
	}
}

// Put stores value under service and account.
func (f *FakeKeychainStore) Put(service, account, value string) {
	f.items[[2]string{service, account}] = value
}

func (f *FakeKeychainStore) Lookup(service, account string) (string, bool, error) {
	f.Lookups++
	if f.LookupErr != nil {
		return "", false, f.LookupErr
	}
	value, ok := f.items[[2]string{service, account}]
	return value, ok, nil
}

func (f *FakeKeychainStore) Session() contracts.KeychainSession {
	return f.State
}

var _ contracts.KeychainStore = (*FakeKeychainStore)(nil)

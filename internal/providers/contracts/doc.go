// Package contracts holds the narrow client interfaces the backend adapters
// depend on, so tests can swap a vendor SDK for an in-process fake.
package contracts

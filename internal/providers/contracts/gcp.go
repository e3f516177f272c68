package contracts

import "cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"

// SecretVersionIterator walks the versions of a GCP secret, newest first.
// Next returns iterator.Done after the last one.
type SecretVersionIterator interface {
	Next() (*secretmanagerpb.SecretVersion, error)
}

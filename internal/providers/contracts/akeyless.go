package contracts

import (
	"context"
	"time"
)

// AkeylessClient abstracts Akeyless SDK operations for testing
type AkeylessClient interface {
	// Authenticate obtains an access token
	Authenticate(ctx context.Context) (token string, expiresIn time.Duration, err error)

	// GetSecret retrieves a secret by path. A nil version reads the latest one.
	GetSecret(ctx context.Context, token, path string, version *int) (*AkeylessSecret, error)

	// DescribeItem gets metadata about a secret without retrieving value
	DescribeItem(ctx context.Context, token, path string) (*AkeylessMetadata, error)
}

// AkeylessSecret represents a secret from Akeyless
type AkeylessSecret struct {
	Path    string
	Value   string
	Version int // 0 when the version is not known
}

// AkeylessMetadata represents secret metadata
type AkeylessMetadata struct {
	Path         string
	ItemType     string
	LastVersion  int
	Versions     []int
	LastModified time.Time
	Tags         []string
}

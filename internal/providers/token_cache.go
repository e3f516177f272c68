package providers

import (
	"sync"
	"time"

	"github.com/systmms/secretsprovider/internal/secure"
)

// tokenRefreshMargin is taken off every TTL so a token is replaced before the
// backend starts rejecting it.
const tokenRefreshMargin = 5 * time.Second

// TokenCache holds one backend session token for the life of the process.
// The token is sealed with memguard while cached and is never written to disk.
type TokenCache struct {
	mu        sync.RWMutex
	sealed    *secure.Buffer
	expiresAt time.Time
	now       func() time.Time
}

// NewTokenCache creates a new empty token cache
func NewTokenCache() *TokenCache {
	return &TokenCache{now: time.Now}
}

// Get returns the cached token while it is still valid.
func (c *TokenCache) Get() (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.sealed == nil || !c.now().Before(c.expiresAt) {
		return "", false
	}
	token, err := c.sealed.Bytes()
	if err != nil || len(token) == 0 {
		return "", false
	}
	return string(token), true
}

// Set replaces the cached token. The token expires ttl from now, less the
// refresh margin when ttl is longer than the margin.
func (c *TokenCache) Set(token string, ttl time.Duration) {
	if ttl > tokenRefreshMargin {
		ttl -= tokenRefreshMargin
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sealed != nil {
		c.sealed.Destroy()
	}
	c.sealed = secure.Seal([]byte(token))
	c.expiresAt = c.now().Add(ttl)
}

// Clear drops the cached token.
func (c *TokenCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sealed != nil {
		c.sealed.Destroy()
		c.sealed = nil
	}
	c.expiresAt = time.Time{}
}

// TTL returns how long the cached token stays valid, or 0.
func (c *TokenCache) TTL() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.sealed == nil {
		return 0
	}
	if remaining := c.expiresAt.Sub(c.now()); remaining > 0 {
		return remaining
	}
	return 0
}

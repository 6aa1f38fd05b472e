package provider

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// DefaultTokenMargin is subtracted from a token's reported expiry so a token
// never expires in the middle of a request.
const DefaultTokenMargin = 5 * time.Minute

// TokenExchangeFunc performs a platform's client-credential exchange.
type TokenExchangeFunc func(ctx context.Context) (*oauth2.Token, error)

// ClientCredentialsExchange returns an exchange backed by the OAuth2 client
// credentials grant. Each call hits the token endpoint; caching is the
// TokenCache's job.
func ClientCredentialsExchange(cfg *clientcredentials.Config) TokenExchangeFunc {
	return func(ctx context.Context) (*oauth2.Token, error) {
		return cfg.Token(ctx)
	}
}

// TokenCache memoizes one provider's access token until shortly before it
// expires. It does not retry on rejection; callers invalidate and ask again.
type TokenCache struct {
	provider ProviderName
	exchange TokenExchangeFunc
	margin   time.Duration
	now      func() time.Time

	mu     sync.Mutex
	token  string
	expiry time.Time
}

// NewTokenCache creates an empty cache for the named provider.
func NewTokenCache(name ProviderName, exchange TokenExchangeFunc, margin time.Duration) *TokenCache {
	if margin < 0 {
		margin = 0
	}
	return &TokenCache{
		provider: name,
		exchange: exchange,
		margin:   margin,
		now:      time.Now,
	}
}

// SetClock overrides the time source (for tests).
func (c *TokenCache) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// Token returns the cached token while it is valid, otherwise performs the
// exchange and caches the result. Concurrent callers that both observe an
// expired token may both exchange; the last one to finish wins.
func (c *TokenCache) Token(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.token != "" && c.now().Before(c.expiry) {
		tok := c.token
		c.mu.Unlock()
		return tok, nil
	}
	c.mu.Unlock()

	if c.exchange == nil {
		return "", &ErrAuthFailed{Provider: c.provider, Cause: errors.New("no credentials configured")}
	}
	tok, err := c.exchange(ctx)
	if err != nil {
		return "", &ErrAuthFailed{Provider: c.provider, Cause: err}
	}
	if tok == nil || tok.AccessToken == "" {
		return "", &ErrAuthFailed{Provider: c.provider, Cause: errors.New("empty access token")}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = tok.AccessToken
	if tok.Expiry.IsZero() {
		// No expiry reported: keep it for one margin window.
		c.expiry = c.now().Add(c.margin)
	} else {
		c.expiry = tok.Expiry.Add(-c.margin)
	}
	return c.token, nil
}

// Invalidate drops the cached token so the next Token call re-exchanges.
func (c *TokenCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = ""
	c.expiry = time.Time{}
}

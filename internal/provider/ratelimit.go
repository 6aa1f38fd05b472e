package provider

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Default rate limits per provider (requests per second).
var defaultRateLimits = map[ProviderName]rate.Limit{
	NameSpotify: 5,
	NameYouTube: 5,
	NameDeezer:  5,
	NameLastFM:  5,
}

// defaultBurst lets a fan-out search plus its follow-up lookup go out
// without queueing.
const defaultBurst = 2

// RateLimiterMap holds one rate.Limiter per provider, created once at startup.
type RateLimiterMap struct {
	mu       sync.RWMutex
	limiters map[ProviderName]*rate.Limiter
}

// NewRateLimiterMap creates all provider rate limiters.
func NewRateLimiterMap() *RateLimiterMap {
	m := &RateLimiterMap{
		limiters: make(map[ProviderName]*rate.Limiter, len(defaultRateLimits)),
	}
	for name, limit := range defaultRateLimits {
		m.limiters[name] = rate.NewLimiter(limit, defaultBurst)
	}
	return m
}

// SetLimit overrides the limit for one provider. A non-positive rps removes
// throttling for that provider.
func (m *RateLimiterMap) SetLimit(name ProviderName, rps float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rps <= 0 {
		m.limiters[name] = rate.NewLimiter(rate.Inf, 0)
		return
	}
	m.limiters[name] = rate.NewLimiter(rate.Limit(rps), defaultBurst)
}

// Wait blocks until the rate limiter for the given provider allows a request,
// or the context is canceled.
func (m *RateLimiterMap) Wait(ctx context.Context, name ProviderName) error {
	m.mu.RLock()
	limiter, ok := m.limiters[name]
	m.mu.RUnlock()
	if !ok {
		return nil
	}
	return limiter.Wait(ctx)
}

package provider

import (
	"fmt"
	"time"
)

// ErrValidation indicates malformed or unsupported input, such as a URL
// that no adapter recognizes.
type ErrValidation struct {
	Input  string
	Reason string
}

func (e *ErrValidation) Error() string {
	if e.Input == "" {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("validation failed for %q: %s", e.Input, e.Reason)
}

// ErrAuthFailed indicates the provider's credential exchange failed, no
// credentials are configured, or a refreshed credential was still rejected.
type ErrAuthFailed struct {
	Provider ProviderName
	Cause    error
}

func (e *ErrAuthFailed) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("provider %s: authentication failed", e.Provider)
	}
	return fmt.Sprintf("provider %s: authentication failed: %v", e.Provider, e.Cause)
}

func (e *ErrAuthFailed) Unwrap() error { return e.Cause }

// ErrNotFound indicates the provider has no artist for the requested ID.
// An empty Provider means nothing matched on any platform.
type ErrNotFound struct {
	Provider ProviderName
	ID       string
}

func (e *ErrNotFound) Error() string {
	if e.Provider == "" {
		if e.ID == "" {
			return "no matches on any platform"
		}
		return fmt.Sprintf("no matches on any platform for %q", e.ID)
	}
	return fmt.Sprintf("provider %s: artist %s not found", e.Provider, e.ID)
}

// ErrRateLimited indicates the provider throttled the request. RetryAfter is
// zero when the provider supplied no hint.
type ErrRateLimited struct {
	Provider   ProviderName
	RetryAfter time.Duration
}

func (e *ErrRateLimited) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("provider %s: rate limited, retry after %s", e.Provider, e.RetryAfter)
	}
	return fmt.Sprintf("provider %s: rate limited", e.Provider)
}

// ErrProviderUnavailable indicates any other upstream failure: unexpected
// status, transport error or timeout.
type ErrProviderUnavailable struct {
	Provider ProviderName
	Cause    error
}

func (e *ErrProviderUnavailable) Error() string {
	return fmt.Sprintf("provider %s unavailable: %v", e.Provider, e.Cause)
}

func (e *ErrProviderUnavailable) Unwrap() error { return e.Cause }

package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// maxBodyBytes bounds every provider response read.
const maxBodyBytes = 2 * 1024 * 1024

// CheckResponse maps a provider HTTP response to the error taxonomy and
// returns the body for 200 responses. id is reported in ErrNotFound. The
// response body is always consumed and closed.
func CheckResponse(name ProviderName, id string, resp *http.Response) ([]byte, error) {
	defer resp.Body.Close() //nolint:errcheck

	switch resp.StatusCode {
	case http.StatusOK:
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return nil, &ErrProviderUnavailable{Provider: name, Cause: fmt.Errorf("reading body: %w", err)}
		}
		return body, nil
	case http.StatusNotFound:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &ErrNotFound{Provider: name, ID: id}
	case http.StatusTooManyRequests:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &ErrRateLimited{Provider: name, RetryAfter: ParseRetryAfter(resp.Header.Get("Retry-After"))}
	case http.StatusUnauthorized:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &ErrAuthFailed{Provider: name, Cause: errors.New("HTTP 401")}
	default:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &ErrProviderUnavailable{Provider: name, Cause: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}
}

// TransportError wraps a client.Do failure. Deadline expiry is reported the
// same way as any other upstream failure.
func TransportError(name ProviderName, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &ErrProviderUnavailable{Provider: name, Cause: fmt.Errorf("timeout: %w", err)}
	}
	return &ErrProviderUnavailable{Provider: name, Cause: err}
}

// LimiterError wraps a rate limiter wait failure (usually a canceled or
// expired context).
func LimiterError(name ProviderName, err error) error {
	return &ErrProviderUnavailable{Provider: name, Cause: fmt.Errorf("rate limiter: %w", err)}
}

// ParseRetryAfter parses a Retry-After header given either in seconds or as
// an HTTP date. It returns zero when the header is missing or unusable.
func ParseRetryAfter(value string) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0
		}
		return time.Duration(seconds) * time.Second
	}
	if when, err := http.ParseTime(value); err == nil {
		if d := time.Until(when); d > 0 {
			return d
		}
	}
	return 0
}

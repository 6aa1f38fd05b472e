package provider

import (
	"net/url"
	"strings"
)

// ParseURL parses a user-supplied profile URL. A missing scheme is treated
// as https, and the host is lowercased with any port removed.
func ParseURL(rawURL string) (*url.URL, error) {
	s := strings.TrimSpace(rawURL)
	if s == "" {
		return nil, &ErrValidation{Reason: "empty URL"}
	}
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return nil, &ErrValidation{Input: rawURL, Reason: "malformed URL"}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, &ErrValidation{Input: rawURL, Reason: "unsupported scheme " + u.Scheme}
	}
	if u.Hostname() == "" {
		return nil, &ErrValidation{Input: rawURL, Reason: "missing host"}
	}
	u.Host = strings.ToLower(u.Hostname())
	return u, nil
}

// HostMatches reports whether u's host is one of domains or a subdomain of
// one of them.
func HostMatches(u *url.URL, domains ...string) bool {
	if u == nil {
		return false
	}
	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	for _, d := range domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

// PathSegments splits a URL path into its non-empty segments.
func PathSegments(u *url.URL) []string {
	var segs []string
	for _, s := range strings.Split(u.Path, "/") {
		if s != "" {
			segs = append(segs, s)
		}
	}
	return segs
}

// Classify tests rawURL against each provider's domain pattern in order and
// returns the first match. It performs no I/O. Providers see the raw input
// so they can accept non-HTTP forms such as spotify: URIs.
func Classify(rawURL string, providers []Provider) (Provider, error) {
	if strings.TrimSpace(rawURL) == "" {
		return nil, &ErrValidation{Reason: "empty URL"}
	}
	for _, p := range providers {
		if p.MatchURL(rawURL) {
			return p, nil
		}
	}
	if _, err := ParseURL(rawURL); err != nil {
		return nil, err
	}
	return nil, &ErrValidation{Input: rawURL, Reason: "unsupported platform"}
}

// ValidationResult is the outcome of ValidateURL.
type ValidationResult struct {
	IsValid  bool         `json:"is_valid"`
	Error    string       `json:"error,omitempty"`
	Platform ProviderName `json:"platform,omitempty"`
}

// ValidateURL reports whether rawURL can be handled by one of providers,
// and by which one.
func ValidateURL(rawURL string, providers []Provider) ValidationResult {
	p, err := Classify(rawURL, providers)
	if err != nil {
		return ValidationResult{Error: err.Error()}
	}
	return ValidationResult{IsValid: true, Platform: p.Name()}
}

package provider

import "context"

// AccessTier classifies a provider's access model.
type AccessTier string

// Access tier constants for classifying a provider's access model.
const (
	TierFree     AccessTier = "free"     // No key, no limit known
	TierFreeKey  AccessTier = "free_key" // Free account/sign-up required
	TierFreemium AccessTier = "freemium" // Free tier with quota, paid for more
)

// RateLimitInfo documents the known rate limits for a provider.
type RateLimitInfo struct {
	RequestsPerSecond float64 `json:"requests_per_second,omitempty"`
	RequestsPerDay    int     `json:"requests_per_day,omitempty"` // 0 = unknown/unlimited
}

// ProviderCapability describes a provider's access model and documented rate limits.
type ProviderCapability struct {
	Tier      AccessTier     `json:"tier"`
	HelpURL   string         `json:"help_url,omitempty"`
	RateLimit *RateLimitInfo `json:"rate_limit,omitempty"`
}

// ProviderCapabilities returns the known capability metadata for each provider.
func ProviderCapabilities() map[ProviderName]ProviderCapability {
	return map[ProviderName]ProviderCapability{
		NameSpotify: {
			Tier:      TierFreeKey,
			HelpURL:   "https://developer.spotify.com/dashboard",
			RateLimit: &RateLimitInfo{RequestsPerSecond: 5},
		},
		NameYouTube: {
			Tier:    TierFreemium,
			HelpURL: "https://console.cloud.google.com/apis/library/youtube.googleapis.com",
			// 10,000 quota units per day; a search costs 100.
			RateLimit: &RateLimitInfo{RequestsPerSecond: 5, RequestsPerDay: 100},
		},
		NameDeezer: {
			Tier:      TierFree,
			RateLimit: &RateLimitInfo{RequestsPerSecond: 5},
		},
		NameLastFM: {
			Tier:      TierFreeKey,
			HelpURL:   "https://www.last.fm/api/account/create",
			RateLimit: &RateLimitInfo{RequestsPerSecond: 5},
		},
	}
}

// ProviderName uniquely identifies a streaming or media platform.
type ProviderName string

// Known provider names.
const (
	NameSpotify ProviderName = "spotify"
	NameYouTube ProviderName = "youtube"
	NameDeezer  ProviderName = "deezer"
	NameLastFM  ProviderName = "lastfm"
)

// AllProviderNames returns all known provider names in classification
// priority order.
func AllProviderNames() []ProviderName {
	return []ProviderName{
		NameSpotify,
		NameYouTube,
		NameDeezer,
		NameLastFM,
	}
}

// Valid reports whether n is a known provider name.
func (n ProviderName) Valid() bool {
	for _, known := range AllProviderNames() {
		if n == known {
			return true
		}
	}
	return false
}

// DisplayName returns a human-readable name for the provider.
func (n ProviderName) DisplayName() string {
	switch n {
	case NameSpotify:
		return "Spotify"
	case NameYouTube:
		return "YouTube"
	case NameDeezer:
		return "Deezer"
	case NameLastFM:
		return "Last.fm"
	default:
		return string(n)
	}
}

// ProfileURLKey is the URLs map key holding the canonical profile URL.
const ProfileURLKey = "profile"

// AudienceMetrics holds the platform-specific audience signals. Every field
// is optional; nil means the platform did not report it.
type AudienceMetrics struct {
	Popularity  *int   `json:"popularity,omitempty"` // direct 0-100 index
	Followers   *int64 `json:"followers,omitempty"`
	Subscribers *int64 `json:"subscribers,omitempty"`
	Views       *int64 `json:"views,omitempty"`
	Plays       *int64 `json:"plays,omitempty"`
	Listeners   *int64 `json:"listeners,omitempty"`
	Videos      *int64 `json:"videos,omitempty"`
	Albums      *int64 `json:"albums,omitempty"`
}

// IsEmpty reports whether no signal is present.
func (m AudienceMetrics) IsEmpty() bool {
	return m.Popularity == nil && m.Followers == nil && m.Subscribers == nil &&
		m.Views == nil && m.Plays == nil && m.Listeners == nil &&
		m.Videos == nil && m.Albums == nil
}

// Track is one entry of an artist's top-tracks list.
type Track struct {
	Title string `json:"title"`
	URL   string `json:"url,omitempty"`
	Plays *int64 `json:"plays,omitempty"`
}

// ArtistRecord is a normalized, point-in-time snapshot of one artist on one
// platform. IDs are only unique within the platform's own namespace.
type ArtistRecord struct {
	Platform  ProviderName      `json:"platform"`
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	AvatarURL string            `json:"avatar_url,omitempty"`
	URLs      map[string]string `json:"urls,omitempty"`
	Audience  AudienceMetrics   `json:"audience"`
	Genres    []string          `json:"genres,omitempty"`
	Bio       string            `json:"bio,omitempty"`
	Location  string            `json:"location,omitempty"`
	TopTracks []Track           `json:"top_tracks,omitempty"`
}

// ProfileURL returns the canonical profile URL of the record.
func (r *ArtistRecord) ProfileURL() string {
	if r == nil {
		return ""
	}
	return r.URLs[ProfileURLKey]
}

// Provider is the interface all platform adapters must implement.
type Provider interface {
	// Name returns the unique provider identifier.
	Name() ProviderName

	// RequiresAuth returns true if this provider needs credentials to function.
	RequiresAuth() bool

	// MatchURL reports whether rawURL belongs to this platform's domain.
	MatchURL(rawURL string) bool

	// ResolveURL extracts the platform-native ID from rawURL and fetches the
	// artist it denotes.
	ResolveURL(ctx context.Context, rawURL string) (*ArtistRecord, error)

	// Search searches the platform by artist name. Results keep the
	// platform's own ordering.
	Search(ctx context.Context, query string) ([]ArtistRecord, error)
}

// Int64 returns a pointer to v.
func Int64(v int64) *int64 { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }

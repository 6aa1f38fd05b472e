package spotify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2/clientcredentials"

	"github.com/sydlexius/artistlink/internal/provider"
)

const (
	defaultBaseURL  = "https://api.spotify.com/v1"
	defaultTokenURL = "https://accounts.spotify.com/api/token"
	searchLimit     = 10
	topTracksLimit  = 5
	topTracksMarket = "US"
	idLength        = 22
)

// errUnauthorized marks a 401 from the API so the caller can refresh the
// token and retry once.
var errUnauthorized = errors.New("access token rejected")

// Adapter implements provider.Provider for the Spotify Web API.
type Adapter struct {
	client  *http.Client
	limiter *provider.RateLimiterMap
	tokens  *provider.TokenCache
	logger  *slog.Logger
	baseURL string
}

// NewTokenCache returns a token cache that performs Spotify's client
// credentials exchange. An empty client ID yields a cache that always fails
// with ErrAuthFailed.
func NewTokenCache(clientID, clientSecret string, margin time.Duration) *provider.TokenCache {
	return NewTokenCacheWithURL(clientID, clientSecret, defaultTokenURL, margin)
}

// NewTokenCacheWithURL is NewTokenCache with a custom token endpoint (for testing).
func NewTokenCacheWithURL(clientID, clientSecret, tokenURL string, margin time.Duration) *provider.TokenCache {
	var exchange provider.TokenExchangeFunc
	if clientID != "" && clientSecret != "" {
		exchange = provider.ClientCredentialsExchange(&clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     tokenURL,
		})
	}
	return provider.NewTokenCache(provider.NameSpotify, exchange, margin)
}

// New creates a Spotify adapter with the default base URL.
func New(limiter *provider.RateLimiterMap, tokens *provider.TokenCache, logger *slog.Logger) *Adapter {
	return NewWithBaseURL(limiter, tokens, logger, defaultBaseURL)
}

// NewWithBaseURL creates a Spotify adapter with a custom base URL (for testing).
func NewWithBaseURL(limiter *provider.RateLimiterMap, tokens *provider.TokenCache, logger *slog.Logger, baseURL string) *Adapter {
	return &Adapter{
		client:  &http.Client{Timeout: 10 * time.Second},
		limiter: limiter,
		tokens:  tokens,
		logger:  logger.With(slog.String("provider", "spotify")),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Name returns the provider identifier.
func (a *Adapter) Name() provider.ProviderName { return provider.NameSpotify }

// RequiresAuth returns true; every Web API call needs a bearer token.
func (a *Adapter) RequiresAuth() bool { return true }

// MatchURL reports whether rawURL is a Spotify web URL or spotify: URI.
func (a *Adapter) MatchURL(rawURL string) bool {
	if isURI(rawURL) {
		return true
	}
	u, err := provider.ParseURL(rawURL)
	if err != nil {
		return false
	}
	return provider.HostMatches(u, "spotify.com")
}

// ExtractID returns the artist ID from an open.spotify.com artist URL
// (locale prefixes such as /intl-de/ allowed) or a spotify:artist: URI.
func ExtractID(rawURL string) (string, bool) {
	if isURI(rawURL) {
		parts := strings.Split(strings.TrimSpace(rawURL), ":")
		if len(parts) == 3 && parts[1] == "artist" && isSpotifyID(parts[2]) {
			return parts[2], true
		}
		return "", false
	}
	u, err := provider.ParseURL(rawURL)
	if err != nil || !provider.HostMatches(u, "spotify.com") {
		return "", false
	}
	segs := provider.PathSegments(u)
	for i, s := range segs {
		if s == "artist" && i+1 < len(segs) && isSpotifyID(segs[i+1]) {
			return segs[i+1], true
		}
	}
	return "", false
}

// ResolveURL fetches the artist a Spotify URL or URI points to.
func (a *Adapter) ResolveURL(ctx context.Context, rawURL string) (*provider.ArtistRecord, error) {
	id, ok := ExtractID(rawURL)
	if !ok {
		return nil, &provider.ErrNotFound{Provider: provider.NameSpotify, ID: rawURL}
	}
	return a.GetArtist(ctx, id)
}

// GetArtist fetches an artist by Spotify ID, including a best-effort
// top-tracks list.
func (a *Adapter) GetArtist(ctx context.Context, id string) (*provider.ArtistRecord, error) {
	if !isSpotifyID(id) {
		return nil, &provider.ErrNotFound{Provider: provider.NameSpotify, ID: id}
	}

	body, err := a.get(ctx, a.baseURL+"/artists/"+id, id)
	if err != nil {
		return nil, err
	}
	var art artist
	if err := json.Unmarshal(body, &art); err != nil {
		return nil, &provider.ErrProviderUnavailable{
			Provider: provider.NameSpotify,
			Cause:    fmt.Errorf("parsing artist response: %w", err),
		}
	}
	if art.ID == "" {
		return nil, &provider.ErrNotFound{Provider: provider.NameSpotify, ID: id}
	}

	rec := mapArtist(&art)

	tracks, err := a.topTracks(ctx, id)
	if err != nil {
		a.logger.Debug("top tracks unavailable",
			slog.String("id", id),
			slog.String("error", err.Error()))
	} else {
		rec.TopTracks = tracks
	}
	return rec, nil
}

// Search searches Spotify for artists matching the given name.
func (a *Adapter) Search(ctx context.Context, query string) ([]provider.ArtistRecord, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}

	params := url.Values{
		"q":     {query},
		"type":  {"artist"},
		"limit": {strconv.Itoa(searchLimit)},
	}
	body, err := a.get(ctx, a.baseURL+"/search?"+params.Encode(), query)
	if err != nil {
		return nil, err
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &provider.ErrProviderUnavailable{
			Provider: provider.NameSpotify,
			Cause:    fmt.Errorf("parsing search response: %w", err),
		}
	}

	results := make([]provider.ArtistRecord, 0, min(len(resp.Artists.Items), searchLimit))
	for i := range resp.Artists.Items {
		if len(results) == searchLimit {
			break
		}
		results = append(results, *mapArtist(&resp.Artists.Items[i]))
	}

	a.logger.Debug("artist search completed",
		slog.String("query", query),
		slog.Int("results", len(results)))

	return results, nil
}

func (a *Adapter) topTracks(ctx context.Context, id string) ([]provider.Track, error) {
	reqURL := fmt.Sprintf("%s/artists/%s/top-tracks?market=%s", a.baseURL, id, topTracksMarket)
	body, err := a.get(ctx, reqURL, id)
	if err != nil {
		return nil, err
	}
	var resp topTracksResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing top tracks: %w", err)
	}
	tracks := make([]provider.Track, 0, topTracksLimit)
	for _, t := range resp.Tracks {
		if len(tracks) == topTracksLimit {
			break
		}
		tracks = append(tracks, provider.Track{Title: t.Name, URL: t.ExternalURLs.Spotify})
	}
	return tracks, nil
}

// get performs an authorized GET. A 401 invalidates the cached token and the
// request is retried exactly once with a fresh one.
func (a *Adapter) get(ctx context.Context, reqURL, id string) ([]byte, error) {
	body, err := a.doRequest(ctx, reqURL, id)
	if !errors.Is(err, errUnauthorized) {
		return body, err
	}

	a.logger.Debug("access token rejected, refreshing")
	a.tokens.Invalidate()

	body, err = a.doRequest(ctx, reqURL, id)
	if errors.Is(err, errUnauthorized) {
		return nil, &provider.ErrAuthFailed{
			Provider: provider.NameSpotify,
			Cause:    fmt.Errorf("refreshed token still rejected: %w", err),
		}
	}
	return body, err
}

func (a *Adapter) doRequest(ctx context.Context, reqURL, id string) ([]byte, error) {
	token, err := a.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	if err := a.limiter.Wait(ctx, provider.NameSpotify); err != nil {
		return nil, provider.LimiterError(provider.NameSpotify, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	a.logger.Debug("requesting", slog.String("url", reqURL))

	resp, err := a.client.Do(req) //nolint:gosec // URL constructed from adapter config and validated inputs
	if err != nil {
		return nil, provider.TransportError(provider.NameSpotify, err)
	}
	if resp.StatusCode == http.StatusUnauthorized {
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close() //nolint:errcheck,gosec
		return nil, errUnauthorized
	}
	// An ID of the right shape that Spotify does not know comes back as 400.
	if resp.StatusCode == http.StatusBadRequest && strings.Contains(reqURL, "/artists/") {
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close() //nolint:errcheck,gosec
		return nil, &provider.ErrNotFound{Provider: provider.NameSpotify, ID: id}
	}
	return provider.CheckResponse(provider.NameSpotify, id, resp)
}

func mapArtist(art *artist) *provider.ArtistRecord {
	rec := &provider.ArtistRecord{
		Platform: provider.NameSpotify,
		ID:       art.ID,
		Name:     art.Name,
		URLs:     map[string]string{provider.ProfileURLKey: canonicalURL(art)},
		Audience: provider.AudienceMetrics{
			Popularity: art.Popularity,
			Followers:  art.Followers.Total,
		},
		Genres: art.Genres,
	}
	if len(art.Images) > 0 {
		rec.AvatarURL = art.Images[0].URL
	}
	return rec
}

func canonicalURL(art *artist) string {
	if art.ExternalURLs.Spotify != "" {
		return art.ExternalURLs.Spotify
	}
	return "https://open.spotify.com/artist/" + art.ID
}

func isURI(s string) bool {
	return strings.HasPrefix(strings.TrimSpace(s), "spotify:")
}

// isSpotifyID reports whether id is a 22-character base62 Spotify ID.
func isSpotifyID(id string) bool {
	if len(id) != idLength {
		return false
	}
	for _, c := range id {
		if (c < '0' || c > '9') && (c < 'a' || c > 'z') && (c < 'A' || c > 'Z') {
			return false
		}
	}
	return true
}

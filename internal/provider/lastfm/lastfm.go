package lastfm

import (
	"bytes"
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

	"github.com/sydlexius/artistlink/internal/provider"
)

const (
	defaultBaseURL = "https://ws.audioscrobbler.com/2.0"
	searchLimit    = 10
	topTracksLimit = 5
	maxBodyBytes   = 512 * 1024

	// Last.fm error codes.
	codeInvalidParams = 6
	codeInvalidKey    = 10
	codeSuspendedKey  = 26
	codeRateLimit     = 29
)

// placeholderImage is the star image Last.fm serves for every artist since
// it stopped hosting artist photos.
const placeholderImage = "2a96cbd8b46e442fc41c2b86b821562f"

var lastfmDomains = []string{
	"last.fm", "lastfm.com", "lastfm.de", "lastfm.es", "lastfm.fr", "lastfm.it",
	"lastfm.jp", "lastfm.pl", "lastfm.com.br", "lastfm.ru", "lastfm.se", "lastfm.com.tr",
}

// Adapter implements the provider.Provider interface for Last.fm.
type Adapter struct {
	client  *http.Client
	limiter *provider.RateLimiterMap
	apiKey  string
	logger  *slog.Logger
	baseURL string
}

// New creates a Last.fm adapter with the default base URL.
func New(limiter *provider.RateLimiterMap, apiKey string, logger *slog.Logger) *Adapter {
	return NewWithBaseURL(limiter, apiKey, logger, defaultBaseURL)
}

// NewWithBaseURL creates a Last.fm adapter with a custom base URL (for testing).
func NewWithBaseURL(limiter *provider.RateLimiterMap, apiKey string, logger *slog.Logger, baseURL string) *Adapter {
	return &Adapter{
		client:  &http.Client{Timeout: 10 * time.Second},
		limiter: limiter,
		apiKey:  apiKey,
		logger:  logger.With(slog.String("provider", "lastfm")),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Name returns the provider name.
func (a *Adapter) Name() provider.ProviderName { return provider.NameLastFM }

// RequiresAuth returns whether this provider needs an API key.
func (a *Adapter) RequiresAuth() bool { return true }

// MatchURL reports whether rawURL is on a Last.fm domain.
func (a *Adapter) MatchURL(rawURL string) bool {
	u, err := provider.ParseURL(rawURL)
	if err != nil {
		return false
	}
	return provider.HostMatches(u, lastfmDomains...)
}

// ExtractName returns the artist name encoded in a Last.fm artist URL such
// as https://www.last.fm/music/Guns+N%27+Roses. Last.fm identifies artists
// by name, so the name is the platform ID.
func ExtractName(rawURL string) (string, bool) {
	u, err := provider.ParseURL(rawURL)
	if err != nil || !provider.HostMatches(u, lastfmDomains...) {
		return "", false
	}
	// Work on the escaped path so an encoded "+" (%2B) survives while a
	// literal "+" decodes to a space.
	var segs []string
	for _, s := range strings.Split(u.EscapedPath(), "/") {
		if s != "" {
			segs = append(segs, s)
		}
	}
	for i, s := range segs {
		if s != "music" {
			continue
		}
		rest := segs[i+1:]
		if len(rest) > 0 && rest[0] == "+noredirect" {
			rest = rest[1:]
		}
		if len(rest) == 0 {
			return "", false
		}
		name, err := url.PathUnescape(strings.ReplaceAll(rest[0], "+", " "))
		if err != nil {
			return "", false
		}
		name = strings.TrimSpace(name)
		return name, name != ""
	}
	return "", false
}

// ResolveURL fetches the artist a Last.fm profile URL points to.
func (a *Adapter) ResolveURL(ctx context.Context, rawURL string) (*provider.ArtistRecord, error) {
	name, ok := ExtractName(rawURL)
	if !ok {
		return nil, &provider.ErrNotFound{Provider: provider.NameLastFM, ID: rawURL}
	}
	return a.GetArtist(ctx, name)
}

// GetArtist fetches an artist by name, including a best-effort top-tracks
// list.
func (a *Adapter) GetArtist(ctx context.Context, name string) (*provider.ArtistRecord, error) {
	params := url.Values{
		"method": {"artist.getinfo"},
		"artist": {name},
	}
	body, err := a.call(ctx, params, name)
	if err != nil {
		return nil, err
	}

	var resp infoResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &provider.ErrProviderUnavailable{
			Provider: provider.NameLastFM,
			Cause:    fmt.Errorf("parsing artist info: %w", err),
		}
	}
	if resp.Artist.Name == "" {
		return nil, &provider.ErrNotFound{Provider: provider.NameLastFM, ID: name}
	}

	rec := mapArtist(&resp.Artist)

	tracks, err := a.topTracks(ctx, resp.Artist.Name)
	if err != nil {
		a.logger.Debug("top tracks unavailable",
			slog.String("artist", name),
			slog.String("error", err.Error()))
	} else {
		rec.TopTracks = tracks
	}
	return rec, nil
}

// Search searches Last.fm for artists matching the given name.
func (a *Adapter) Search(ctx context.Context, query string) ([]provider.ArtistRecord, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}

	params := url.Values{
		"method": {"artist.search"},
		"artist": {query},
		"limit":  {strconv.Itoa(searchLimit)},
	}
	body, err := a.call(ctx, params, query)
	if err != nil {
		return nil, err
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &provider.ErrProviderUnavailable{
			Provider: provider.NameLastFM,
			Cause:    fmt.Errorf("parsing search response: %w", err),
		}
	}

	matches := resp.Results.ArtistMatches.Artist
	results := make([]provider.ArtistRecord, 0, min(len(matches), searchLimit))
	for _, art := range matches {
		if len(results) == searchLimit {
			break
		}
		if art.Name == "" {
			continue
		}
		results = append(results, provider.ArtistRecord{
			Platform:  provider.NameLastFM,
			ID:        art.Name,
			Name:      art.Name,
			AvatarURL: largestImage(art.Image),
			URLs:      map[string]string{provider.ProfileURLKey: profileURL(art.Name, art.URL)},
			Audience:  provider.AudienceMetrics{Listeners: parseCount(art.Listeners)},
		})
	}

	a.logger.Debug("artist search completed",
		slog.String("query", query),
		slog.Int("results", len(results)))

	return results, nil
}

func (a *Adapter) topTracks(ctx context.Context, name string) ([]provider.Track, error) {
	params := url.Values{
		"method": {"artist.gettoptracks"},
		"artist": {name},
		"limit":  {strconv.Itoa(topTracksLimit)},
	}
	body, err := a.call(ctx, params, name)
	if err != nil {
		return nil, err
	}
	var resp topTracksResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing top tracks: %w", err)
	}
	tracks := make([]provider.Track, 0, topTracksLimit)
	for _, t := range resp.TopTracks.Track {
		if len(tracks) == topTracksLimit {
			break
		}
		if t.Name == "" {
			continue
		}
		tracks = append(tracks, provider.Track{Title: t.Name, URL: t.URL, Plays: parseCount(t.Playcount)})
	}
	return tracks, nil
}

// call adds the key and format parameters, waits for the rate limiter and
// performs the request.
func (a *Adapter) call(ctx context.Context, params url.Values, id string) ([]byte, error) {
	if a.apiKey == "" {
		return nil, &provider.ErrAuthFailed{Provider: provider.NameLastFM, Cause: errors.New("no API key configured")}
	}
	if err := a.limiter.Wait(ctx, provider.NameLastFM); err != nil {
		return nil, provider.LimiterError(provider.NameLastFM, err)
	}

	params.Set("api_key", a.apiKey)
	params.Set("format", "json")
	if params.Get("method") == "artist.getinfo" {
		params.Set("autocorrect", "1")
	}
	return a.doRequest(ctx, a.baseURL+"/?"+params.Encode(), id)
}

func (a *Adapter) doRequest(ctx context.Context, reqURL, id string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", "artistlink/1.0")
	req.Header.Set("Accept", "application/json")

	a.logger.Debug("requesting", slog.String("method", req.URL.Query().Get("method")))

	resp, err := a.client.Do(req) //nolint:gosec // URL constructed from trusted base + API params
	if err != nil {
		return nil, provider.TransportError(provider.NameLastFM, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &provider.ErrProviderUnavailable{
			Provider: provider.NameLastFM,
			Cause:    fmt.Errorf("reading body: %w", err),
		}
	}

	// Last.fm reports most failures in the body, whatever the status.
	var apiErr apiError
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Code != 0 {
		return nil, mapAPIError(&apiErr, id)
	}

	resp.Body = io.NopCloser(bytes.NewReader(body))
	return provider.CheckResponse(provider.NameLastFM, id, resp)
}

func mapAPIError(e *apiError, id string) error {
	switch e.Code {
	case codeInvalidParams:
		return &provider.ErrNotFound{Provider: provider.NameLastFM, ID: id}
	case codeInvalidKey, codeSuspendedKey:
		return &provider.ErrAuthFailed{
			Provider: provider.NameLastFM,
			Cause:    fmt.Errorf("api error %d: %s", e.Code, e.Message),
		}
	case codeRateLimit:
		return &provider.ErrRateLimited{Provider: provider.NameLastFM}
	default:
		return &provider.ErrProviderUnavailable{
			Provider: provider.NameLastFM,
			Cause:    fmt.Errorf("api error %d: %s", e.Code, e.Message),
		}
	}
}

func mapArtist(info *artistInfo) *provider.ArtistRecord {
	rec := &provider.ArtistRecord{
		Platform:  provider.NameLastFM,
		ID:        info.Name,
		Name:      info.Name,
		AvatarURL: largestImage(info.Image),
		URLs:      map[string]string{provider.ProfileURLKey: profileURL(info.Name, info.URL)},
		Audience: provider.AudienceMetrics{
			Listeners: parseCount(info.Stats.Listeners),
			Plays:     parseCount(info.Stats.Playcount),
		},
		Bio: cleanBio(info.Bio.Content),
	}
	if rec.Bio == "" {
		rec.Bio = cleanBio(info.Bio.Summary)
	}
	for _, t := range info.Tags.Tag {
		if t.Name != "" {
			rec.Genres = append(rec.Genres, t.Name)
		}
	}
	return rec
}

func profileURL(name, reported string) string {
	if reported != "" {
		return reported
	}
	return "https://www.last.fm/music/" + url.QueryEscape(name)
}

// largestImage returns the last non-placeholder image; Last.fm lists sizes
// small to mega.
func largestImage(images []image) string {
	for i := len(images) - 1; i >= 0; i-- {
		u := images[i].URL
		if u != "" && !strings.Contains(u, placeholderImage) {
			return u
		}
	}
	return ""
}

// parseCount converts Last.fm's string counters. Missing or malformed
// values are absent, not zero.
func parseCount(s string) *int64 {
	if s == "" {
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return nil
	}
	return &n
}

// cleanBio removes the Last.fm attribution link appended to bios.
func cleanBio(bio string) string {
	if idx := strings.Index(bio, "<a href=\"https://www.last.fm"); idx >= 0 {
		bio = bio[:idx]
	}
	return strings.TrimSpace(bio)
}

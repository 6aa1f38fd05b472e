package youtube

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

	"github.com/sydlexius/artistlink/internal/provider"
)

const (
	defaultBaseURL = "https://www.googleapis.com/youtube/v3"
	searchLimit    = 8
	maxBodyBytes   = 1024 * 1024
)

// refKind is how a channel URL names its channel.
type refKind int

const (
	refChannelID refKind = iota
	refHandle
	refUsername
	refCustom
)

// channelRef is a parsed channel reference.
type channelRef struct {
	kind  refKind
	value string
}

// reservedPaths are first path segments that never name a channel.
var reservedPaths = map[string]bool{
	"watch": true, "playlist": true, "results": true, "feed": true, "shorts": true,
	"embed": true, "live": true, "hashtag": true, "premium": true, "account": true,
	"channel": true, "c": true, "user": true, "redirect": true, "t": true,
}

// Adapter implements provider.Provider for the YouTube Data API v3.
type Adapter struct {
	client  *http.Client
	limiter *provider.RateLimiterMap
	apiKey  string
	logger  *slog.Logger
	baseURL string
}

// New creates a YouTube adapter with the default base URL.
func New(limiter *provider.RateLimiterMap, apiKey string, logger *slog.Logger) *Adapter {
	return NewWithBaseURL(limiter, apiKey, logger, defaultBaseURL)
}

// NewWithBaseURL creates a YouTube adapter with a custom base URL (for testing).
func NewWithBaseURL(limiter *provider.RateLimiterMap, apiKey string, logger *slog.Logger, baseURL string) *Adapter {
	return &Adapter{
		client:  &http.Client{Timeout: 10 * time.Second},
		limiter: limiter,
		apiKey:  apiKey,
		logger:  logger.With(slog.String("provider", "youtube")),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Name returns the provider identifier.
func (a *Adapter) Name() provider.ProviderName { return provider.NameYouTube }

// RequiresAuth returns true; the Data API needs an API key.
func (a *Adapter) RequiresAuth() bool { return true }

// MatchURL reports whether rawURL is on a YouTube domain.
func (a *Adapter) MatchURL(rawURL string) bool {
	u, err := provider.ParseURL(rawURL)
	if err != nil {
		return false
	}
	return provider.HostMatches(u, "youtube.com")
}

// parseChannelRef recognizes /channel/UC..., /@handle, /user/name, /c/name
// and bare /name channel URLs.
func parseChannelRef(rawURL string) (channelRef, bool) {
	u, err := provider.ParseURL(rawURL)
	if err != nil || !provider.HostMatches(u, "youtube.com") {
		return channelRef{}, false
	}
	segs := provider.PathSegments(u)
	if len(segs) == 0 {
		return channelRef{}, false
	}
	first := segs[0]
	switch {
	case strings.HasPrefix(first, "@"):
		return channelRef{kind: refHandle, value: first}, len(first) > 1
	case first == "channel" && len(segs) > 1 && strings.HasPrefix(segs[1], "UC"):
		return channelRef{kind: refChannelID, value: segs[1]}, true
	case first == "user" && len(segs) > 1:
		return channelRef{kind: refUsername, value: segs[1]}, true
	case first == "c" && len(segs) > 1:
		return channelRef{kind: refCustom, value: segs[1]}, true
	case !reservedPaths[strings.ToLower(first)]:
		return channelRef{kind: refCustom, value: first}, true
	}
	return channelRef{}, false
}

// ResolveURL fetches the channel a YouTube URL points to.
func (a *Adapter) ResolveURL(ctx context.Context, rawURL string) (*provider.ArtistRecord, error) {
	ref, ok := parseChannelRef(rawURL)
	if !ok {
		return nil, &provider.ErrNotFound{Provider: provider.NameYouTube, ID: rawURL}
	}

	var (
		channels []channel
		err      error
	)
	switch ref.kind {
	case refChannelID:
		channels, err = a.listChannels(ctx, url.Values{"id": {ref.value}}, ref.value)
	case refHandle:
		channels, err = a.listChannels(ctx, url.Values{"forHandle": {ref.value}}, ref.value)
	case refUsername:
		channels, err = a.listChannels(ctx, url.Values{"forUsername": {ref.value}}, ref.value)
	case refCustom:
		// Legacy custom URLs have no lookup endpoint; search and prefer the
		// channel whose customUrl matches.
		channels, err = a.searchChannels(ctx, ref.value)
		if err == nil {
			channels = preferCustomURL(channels, ref.value)
		}
	}
	if err != nil {
		return nil, err
	}
	if len(channels) == 0 {
		return nil, &provider.ErrNotFound{Provider: provider.NameYouTube, ID: ref.value}
	}
	return mapChannel(&channels[0]), nil
}

// Search searches YouTube for channels matching the given name. Results
// keep YouTube's ranking.
func (a *Adapter) Search(ctx context.Context, query string) ([]provider.ArtistRecord, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}
	channels, err := a.searchChannels(ctx, query)
	if err != nil {
		return nil, err
	}
	results := make([]provider.ArtistRecord, 0, len(channels))
	for i := range channels {
		results = append(results, *mapChannel(&channels[i]))
	}

	a.logger.Debug("channel search completed",
		slog.String("query", query),
		slog.Int("results", len(results)))

	return results, nil
}

// searchChannels runs search.list and then one batched channels.list call
// for statistics, returning channels in search order.
func (a *Adapter) searchChannels(ctx context.Context, query string) ([]channel, error) {
	params := url.Values{
		"part":       {"snippet"},
		"type":       {"channel"},
		"q":          {query},
		"maxResults": {strconv.Itoa(searchLimit)},
	}
	body, err := a.doRequest(ctx, "/search", params, query)
	if err != nil {
		return nil, err
	}
	var resp searchListResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &provider.ErrProviderUnavailable{
			Provider: provider.NameYouTube,
			Cause:    fmt.Errorf("parsing search response: %w", err),
		}
	}

	ids := make([]string, 0, len(resp.Items))
	seen := make(map[string]bool, len(resp.Items))
	for _, item := range resp.Items {
		id := item.ID.ChannelID
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	channels, err := a.listChannels(ctx, url.Values{"id": {strings.Join(ids, ",")}}, query)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]channel, len(channels))
	for _, c := range channels {
		byID[c.ID] = c
	}
	ordered := make([]channel, 0, len(ids))
	for _, id := range ids {
		if c, ok := byID[id]; ok {
			ordered = append(ordered, c)
		}
	}
	return ordered, nil
}

func (a *Adapter) listChannels(ctx context.Context, params url.Values, id string) ([]channel, error) {
	params.Set("part", "snippet,statistics")
	body, err := a.doRequest(ctx, "/channels", params, id)
	if err != nil {
		return nil, err
	}
	var resp channelListResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &provider.ErrProviderUnavailable{
			Provider: provider.NameYouTube,
			Cause:    fmt.Errorf("parsing channels response: %w", err),
		}
	}
	return resp.Items, nil
}

func (a *Adapter) doRequest(ctx context.Context, path string, params url.Values, id string) ([]byte, error) {
	if a.apiKey == "" {
		return nil, &provider.ErrAuthFailed{Provider: provider.NameYouTube, Cause: errors.New("no API key configured")}
	}
	if err := a.limiter.Wait(ctx, provider.NameYouTube); err != nil {
		return nil, provider.LimiterError(provider.NameYouTube, err)
	}

	a.logger.Debug("requesting", slog.String("endpoint", path), slog.String("id", id))

	params.Set("key", a.apiKey)
	reqURL := a.baseURL + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req) //nolint:gosec // URL constructed from adapter config and validated inputs
	if err != nil {
		return nil, provider.TransportError(provider.NameYouTube, err)
	}

	switch resp.StatusCode {
	case http.StatusForbidden, http.StatusBadRequest:
		defer resp.Body.Close() //nolint:errcheck
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		return nil, mapAPIError(resp.StatusCode, body)
	default:
		return provider.CheckResponse(provider.NameYouTube, id, resp)
	}
}

// mapAPIError classifies 400/403 bodies. Quota exhaustion is a 403 on this
// API, as is a rejected key.
func mapAPIError(status int, body []byte) error {
	var env errorResponse
	_ = json.Unmarshal(body, &env)
	var reason string
	if len(env.Error.Errors) > 0 {
		reason = env.Error.Errors[0].Reason
	}
	switch reason {
	case "quotaExceeded", "rateLimitExceeded", "userRateLimitExceeded", "dailyLimitExceeded":
		return &provider.ErrRateLimited{Provider: provider.NameYouTube}
	case "keyInvalid", "keyExpired", "forbidden", "accessNotConfigured", "ipRefererBlocked":
		return &provider.ErrAuthFailed{Provider: provider.NameYouTube, Cause: fmt.Errorf("%s: %s", reason, env.Error.Message)}
	}
	if status == http.StatusForbidden || strings.Contains(env.Error.Message, "API key") {
		return &provider.ErrAuthFailed{Provider: provider.NameYouTube, Cause: fmt.Errorf("HTTP %d: %s", status, env.Error.Message)}
	}
	return &provider.ErrProviderUnavailable{
		Provider: provider.NameYouTube,
		Cause:    fmt.Errorf("HTTP %d %s: %s", status, reason, env.Error.Message),
	}
}

// preferCustomURL moves the channel whose customUrl equals name to the front.
func preferCustomURL(channels []channel, name string) []channel {
	want := strings.TrimPrefix(strings.ToLower(name), "@")
	for i, c := range channels {
		if strings.TrimPrefix(strings.ToLower(c.Snippet.CustomURL), "@") == want {
			if i > 0 {
				channels[0], channels[i] = channels[i], channels[0]
			}
			break
		}
	}
	return channels
}

func mapChannel(c *channel) *provider.ArtistRecord {
	rec := &provider.ArtistRecord{
		Platform:  provider.NameYouTube,
		ID:        c.ID,
		Name:      c.Snippet.Title,
		AvatarURL: bestThumbnail(c.Snippet.Thumbnails),
		URLs:      map[string]string{provider.ProfileURLKey: canonicalURL(c)},
		Audience: provider.AudienceMetrics{
			Views:  parseCount(c.Statistics.ViewCount),
			Videos: parseCount(c.Statistics.VideoCount),
		},
		Bio:      strings.TrimSpace(c.Snippet.Description),
		Location: c.Snippet.Country,
	}
	if !c.Statistics.HiddenSubscriberCount {
		rec.Audience.Subscribers = parseCount(c.Statistics.SubscriberCount)
	}
	return rec
}

func canonicalURL(c *channel) string {
	if strings.HasPrefix(c.Snippet.CustomURL, "@") {
		return "https://www.youtube.com/" + c.Snippet.CustomURL
	}
	return "https://www.youtube.com/channel/" + c.ID
}

func bestThumbnail(t thumbnails) string {
	for _, th := range []*thumbnail{t.High, t.Medium, t.Default} {
		if th != nil && th.URL != "" {
			return th.URL
		}
	}
	return ""
}

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

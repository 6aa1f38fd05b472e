package deezer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sydlexius/artistlink/internal/provider"
)

const (
	defaultBaseURL = "https://api.deezer.com"
	searchLimit    = 10
	topTracksLimit = 5

	// Deezer in-body error codes.
	codeQuota    = 4
	codeNoData   = 800
	codeParamErr = 500
)

// Adapter implements provider.Provider for Deezer's public API.
// No authentication is required.
type Adapter struct {
	client  *http.Client
	limiter *provider.RateLimiterMap
	logger  *slog.Logger
	baseURL string
}

// New creates a Deezer adapter with the default base URL.
func New(limiter *provider.RateLimiterMap, logger *slog.Logger) *Adapter {
	return NewWithBaseURL(limiter, logger, defaultBaseURL)
}

// NewWithBaseURL creates a Deezer adapter with a custom base URL (for testing).
func NewWithBaseURL(limiter *provider.RateLimiterMap, logger *slog.Logger, baseURL string) *Adapter {
	return &Adapter{
		client:  &http.Client{Timeout: 10 * time.Second},
		limiter: limiter,
		logger:  logger.With(slog.String("provider", "deezer")),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Name returns the provider identifier.
func (a *Adapter) Name() provider.ProviderName { return provider.NameDeezer }

// RequiresAuth returns false since Deezer's public API needs no API key.
func (a *Adapter) RequiresAuth() bool { return false }

// MatchURL reports whether rawURL is on a Deezer domain.
func (a *Adapter) MatchURL(rawURL string) bool {
	u, err := provider.ParseURL(rawURL)
	if err != nil {
		return false
	}
	return provider.HostMatches(u, "deezer.com")
}

// ExtractID returns the artist ID from a Deezer profile URL such as
// https://www.deezer.com/fr/artist/4050205.
func ExtractID(rawURL string) (string, bool) {
	u, err := provider.ParseURL(rawURL)
	if err != nil || !provider.HostMatches(u, "deezer.com") {
		return "", false
	}
	segs := provider.PathSegments(u)
	for i, s := range segs {
		if s == "artist" && i+1 < len(segs) && isDeezerID(segs[i+1]) {
			return segs[i+1], true
		}
	}
	return "", false
}

// ResolveURL fetches the artist a Deezer profile URL points to.
func (a *Adapter) ResolveURL(ctx context.Context, rawURL string) (*provider.ArtistRecord, error) {
	id, ok := ExtractID(rawURL)
	if !ok {
		return nil, &provider.ErrNotFound{Provider: provider.NameDeezer, ID: rawURL}
	}
	return a.GetArtist(ctx, id)
}

// GetArtist fetches an artist by Deezer ID (numeric string), including a
// best-effort top-tracks list.
func (a *Adapter) GetArtist(ctx context.Context, id string) (*provider.ArtistRecord, error) {
	if !isDeezerID(id) {
		return nil, &provider.ErrNotFound{Provider: provider.NameDeezer, ID: id}
	}

	reqURL := fmt.Sprintf("%s/artist/%s", a.baseURL, url.PathEscape(id))
	body, err := a.doRequest(ctx, reqURL, id)
	if err != nil {
		return nil, err
	}

	var result artistResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, &provider.ErrProviderUnavailable{
			Provider: provider.NameDeezer,
			Cause:    fmt.Errorf("parsing artist response: %w", err),
		}
	}
	if err := apiErr(result.Error, id); err != nil {
		return nil, err
	}
	if result.ID == 0 {
		return nil, &provider.ErrNotFound{Provider: provider.NameDeezer, ID: id}
	}

	rec := recordFromResult(&result)

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

// Search searches Deezer for artists matching the given name.
func (a *Adapter) Search(ctx context.Context, query string) ([]provider.ArtistRecord, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}

	params := url.Values{
		"q":     {query},
		"limit": {strconv.Itoa(searchLimit)},
	}
	reqURL := a.baseURL + "/search/artist?" + params.Encode()

	body, err := a.doRequest(ctx, reqURL, query)
	if err != nil {
		return nil, err
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &provider.ErrProviderUnavailable{
			Provider: provider.NameDeezer,
			Cause:    fmt.Errorf("parsing search response: %w", err),
		}
	}
	if err := apiErr(resp.Error, query); err != nil {
		return nil, err
	}

	results := make([]provider.ArtistRecord, 0, min(len(resp.Data), searchLimit))
	for i := range resp.Data {
		if len(results) == searchLimit {
			break
		}
		results = append(results, *recordFromResult(&resp.Data[i]))
	}

	a.logger.Debug("artist search completed",
		slog.String("query", query),
		slog.Int("results", len(results)))

	return results, nil
}

func (a *Adapter) topTracks(ctx context.Context, id string) ([]provider.Track, error) {
	reqURL := fmt.Sprintf("%s/artist/%s/top?limit=%d", a.baseURL, url.PathEscape(id), topTracksLimit)
	body, err := a.doRequest(ctx, reqURL, id)
	if err != nil {
		return nil, err
	}
	var resp topResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing top tracks: %w", err)
	}
	if err := apiErr(resp.Error, id); err != nil {
		return nil, err
	}
	tracks := make([]provider.Track, 0, len(resp.Data))
	for _, t := range resp.Data {
		if t.Title == "" {
			continue
		}
		tracks = append(tracks, provider.Track{Title: t.Title, URL: t.Link})
	}
	return tracks, nil
}

// doRequest waits for the rate limiter, executes a GET request and returns
// the response body.
func (a *Adapter) doRequest(ctx context.Context, reqURL, id string) ([]byte, error) {
	if err := a.limiter.Wait(ctx, provider.NameDeezer); err != nil {
		return nil, provider.LimiterError(provider.NameDeezer, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	a.logger.Debug("requesting", slog.String("url", reqURL))

	resp, err := a.client.Do(req) //nolint:gosec // URL constructed from adapter config and validated inputs
	if err != nil {
		return nil, provider.TransportError(provider.NameDeezer, err)
	}
	return provider.CheckResponse(provider.NameDeezer, id, resp)
}

// apiErr maps Deezer's in-body error object to the provider error taxonomy.
func apiErr(e *apiError, id string) error {
	if e == nil || (e.Code == 0 && e.Type == "") {
		return nil
	}
	switch e.Code {
	case codeNoData, codeParamErr:
		return &provider.ErrNotFound{Provider: provider.NameDeezer, ID: id}
	case codeQuota:
		return &provider.ErrRateLimited{Provider: provider.NameDeezer}
	default:
		return &provider.ErrProviderUnavailable{
			Provider: provider.NameDeezer,
			Cause:    fmt.Errorf("api error %d (%s): %s", e.Code, e.Type, e.Message),
		}
	}
}

// recordFromResult converts a Deezer artist payload into the common record.
func recordFromResult(r *artistResult) *provider.ArtistRecord {
	id := strconv.FormatInt(r.ID, 10)
	link := r.Link
	if link == "" {
		link = canonicalURL(id)
	}
	return &provider.ArtistRecord{
		Platform:  provider.NameDeezer,
		ID:        id,
		Name:      r.Name,
		AvatarURL: pictureURL(r),
		URLs:      map[string]string{provider.ProfileURLKey: link},
		Audience: provider.AudienceMetrics{
			Followers: r.NbFan,
			Albums:    r.NbAlbum,
		},
	}
}

func canonicalURL(id string) string {
	return "https://www.deezer.com/artist/" + id
}

// pictureURL picks the largest non-placeholder artist picture.
func pictureURL(r *artistResult) string {
	for _, u := range []string{r.PictureXL, r.PictureBig, r.PictureMedium, r.Picture} {
		if u != "" && !isDefaultPicture(u) {
			return u
		}
	}
	return ""
}

// isDeezerID reports whether id is a valid Deezer artist ID (ASCII digits only).
func isDeezerID(id string) bool {
	if id == "" {
		return false
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// isDefaultPicture reports whether a Deezer picture URL is the generic placeholder.
// Deezer returns URLs containing "/images/artist//" (double slash) for artists
// without a photo.
func isDefaultPicture(u string) bool {
	return strings.Contains(u, "/images/artist//")
}

package spotify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"github.com/sydlexius/artistlink/internal/provider"
)

const radioheadID = "4Z8W4fKeB5YxbusRsdQVPb"

func loadFixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile("testdata/" + name)
	if err != nil {
		t.Fatalf("loading fixture %s: %v", name, err)
	}
	return data
}

// newTestServer rejects "tok-1" with 401 so the refresh path can be
// exercised; any other token is accepted.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") || auth == "Bearer tok-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")

		switch {
		case r.URL.Path == "/search":
			if r.URL.Query().Get("type") != "artist" {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			if r.URL.Query().Get("q") == "slow down" {
				w.Header().Set("Retry-After", "7")
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			w.Write(loadFixture(t, "search_radiohead.json"))
		case r.URL.Path == "/artists/"+radioheadID+"/top-tracks":
			w.Write(loadFixture(t, "toptracks_radiohead.json"))
		case r.URL.Path == "/artists/"+radioheadID:
			w.Write(loadFixture(t, "artist_radiohead.json"))
		case strings.HasPrefix(r.URL.Path, "/artists/"):
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

// countingExchange hands out tok-1, tok-2, ... and counts exchanges.
func countingExchange(calls *atomic.Int32) provider.TokenExchangeFunc {
	return func(context.Context) (*oauth2.Token, error) {
		n := calls.Add(1)
		return &oauth2.Token{
			AccessToken: fmt.Sprintf("tok-%d", n),
			Expiry:      time.Now().Add(time.Hour),
		}, nil
	}
}

func newTestAdapter(t *testing.T, baseURL string, exchange provider.TokenExchangeFunc) *Adapter {
	t.Helper()
	limiter := provider.NewRateLimiterMap()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	tokens := provider.NewTokenCache(provider.NameSpotify, exchange, provider.DefaultTokenMargin)
	return NewWithBaseURL(limiter, tokens, logger, baseURL)
}

func TestMatchURL(t *testing.T) {
	a := newTestAdapter(t, "http://localhost", nil)
	cases := []struct {
		url  string
		want bool
	}{
		{"https://open.spotify.com/artist/" + radioheadID, true},
		{"open.spotify.com/intl-de/artist/" + radioheadID, true},
		{"spotify:artist:" + radioheadID, true},
		{"https://www.youtube.com/@radiohead", false},
		{"https://spotify.com.evil.example/artist/" + radioheadID, false},
	}
	for _, tc := range cases {
		if got := a.MatchURL(tc.url); got != tc.want {
			t.Errorf("MatchURL(%q) = %v, want %v", tc.url, got, tc.want)
		}
	}
}

func TestExtractID(t *testing.T) {
	cases := []struct {
		url    string
		wantID string
		wantOK bool
	}{
		{"https://open.spotify.com/artist/" + radioheadID, radioheadID, true},
		{"https://open.spotify.com/artist/" + radioheadID + "?si=abc123", radioheadID, true},
		{"https://open.spotify.com/intl-fr/artist/" + radioheadID, radioheadID, true},
		{"spotify:artist:" + radioheadID, radioheadID, true},
		{"spotify:album:" + radioheadID, "", false},
		{"https://open.spotify.com/album/" + radioheadID, "", false},
		{"https://open.spotify.com/artist/tooShort", "", false},
	}
	for _, tc := range cases {
		id, ok := ExtractID(tc.url)
		if id != tc.wantID || ok != tc.wantOK {
			t.Errorf("ExtractID(%q) = (%q, %v), want (%q, %v)", tc.url, id, ok, tc.wantID, tc.wantOK)
		}
	}
}

func TestResolveURLRefreshesOnce(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()
	var calls atomic.Int32
	a := newTestAdapter(t, srv.URL, countingExchange(&calls))

	rec, err := a.ResolveURL(context.Background(), "https://open.spotify.com/artist/"+radioheadID)
	if err != nil {
		t.Fatalf("ResolveURL: %v", err)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("expected 2 token exchanges (initial + refresh), got %d", got)
	}
	if rec.Name != "Radiohead" || rec.Platform != provider.NameSpotify {
		t.Errorf("unexpected record %s/%q", rec.Platform, rec.Name)
	}
	if rec.Audience.Popularity == nil || *rec.Audience.Popularity != 79 {
		t.Errorf("expected popularity 79, got %v", rec.Audience.Popularity)
	}
	if rec.Audience.Followers == nil || *rec.Audience.Followers != 11245310 {
		t.Errorf("expected followers 11245310, got %v", rec.Audience.Followers)
	}
	if !strings.Contains(rec.AvatarURL, "e5eba03696716c9ee605006047fd") {
		t.Errorf("expected largest image, got %q", rec.AvatarURL)
	}
	if len(rec.Genres) != 3 {
		t.Errorf("expected 3 genres, got %v", rec.Genres)
	}
	if len(rec.TopTracks) != 2 || rec.TopTracks[0].Title != "Creep" {
		t.Errorf("unexpected top tracks %+v", rec.TopTracks)
	}
}

func TestRepeatedRejectionIsAuthFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()
	var calls atomic.Int32
	a := newTestAdapter(t, srv.URL, countingExchange(&calls))

	_, err := a.Search(context.Background(), "radiohead")
	var authErr *provider.ErrAuthFailed
	if !errors.As(err, &authErr) {
		t.Fatalf("expected ErrAuthFailed, got %T: %v", err, err)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("expected exactly one refresh, got %d exchanges", got)
	}
}

func TestMissingCredentials(t *testing.T) {
	a := newTestAdapter(t, "http://127.0.0.1:1", nil)
	_, err := a.Search(context.Background(), "radiohead")
	var authErr *provider.ErrAuthFailed
	if !errors.As(err, &authErr) {
		t.Errorf("expected ErrAuthFailed, got %T: %v", err, err)
	}
}

func TestSearch(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()
	var calls atomic.Int32
	calls.Store(1) // start at tok-2
	a := newTestAdapter(t, srv.URL, countingExchange(&calls))

	results, err := a.Search(context.Background(), "radiohead")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].ID != radioheadID {
		t.Errorf("expected platform order preserved, got %q first", results[0].ID)
	}
	if results[1].ProfileURL() != "https://open.spotify.com/artist/1aB2cD3eF4gH5iJ6kL7mN8" {
		t.Errorf("expected synthesized profile URL, got %q", results[1].ProfileURL())
	}
	if results[1].AvatarURL != "" {
		t.Errorf("expected no avatar, got %q", results[1].AvatarURL)
	}
}

func TestSearchRateLimited(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()
	var calls atomic.Int32
	calls.Store(1)
	a := newTestAdapter(t, srv.URL, countingExchange(&calls))

	_, err := a.Search(context.Background(), "slow down")
	var limited *provider.ErrRateLimited
	if !errors.As(err, &limited) {
		t.Fatalf("expected ErrRateLimited, got %T: %v", err, err)
	}
	if limited.RetryAfter != 7*time.Second {
		t.Errorf("expected retry after 7s, got %s", limited.RetryAfter)
	}
}

func TestGetArtistNotFound(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()
	var calls atomic.Int32
	calls.Store(1)
	a := newTestAdapter(t, srv.URL, countingExchange(&calls))

	for _, id := range []string{"0000000000000000000000", "not-an-id"} {
		_, err := a.GetArtist(context.Background(), id)
		var notFound *provider.ErrNotFound
		if !errors.As(err, &notFound) {
			t.Errorf("GetArtist(%q): expected ErrNotFound, got %T: %v", id, err, err)
		}
	}
}

func TestClientCredentialsTokenCache(t *testing.T) {
	var hits atomic.Int32
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		user, pass, ok := r.BasicAuth()
		if !ok || user != "client" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"cc-token","token_type":"Bearer","expires_in":3600}`))
	}))
	defer tokenSrv.Close()

	cache := NewTokenCacheWithURL("client", "secret", tokenSrv.URL, provider.DefaultTokenMargin)
	for range 3 {
		tok, err := cache.Token(context.Background())
		if err != nil {
			t.Fatalf("Token: %v", err)
		}
		if tok != "cc-token" {
			t.Errorf("expected cc-token, got %q", tok)
		}
	}
	if got := hits.Load(); got != 1 {
		t.Errorf("expected one exchange, got %d", got)
	}

	bad := NewTokenCacheWithURL("client", "wrong", tokenSrv.URL, provider.DefaultTokenMargin)
	_, err := bad.Token(context.Background())
	var authErr *provider.ErrAuthFailed
	if !errors.As(err, &authErr) {
		t.Errorf("expected ErrAuthFailed, got %T: %v", err, err)
	}
}

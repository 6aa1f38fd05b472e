package lastfm

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/sydlexius/artistlink/internal/provider"
)

func loadFixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile("testdata/" + name)
	if err != nil {
		t.Fatalf("loading fixture %s: %v", name, err)
	}
	return data
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		q := r.URL.Query()
		if q.Get("api_key") != "test-key" {
			w.WriteHeader(http.StatusForbidden)
			w.Write(loadFixture(t, "error_invalid_key.json"))
			return
		}
		switch q.Get("method") {
		case "artist.search":
			switch q.Get("artist") {
			case "throttle":
				w.Write(loadFixture(t, "error_rate_limit.json"))
			case "broken":
				w.WriteHeader(http.StatusServiceUnavailable)
			default:
				w.Write(loadFixture(t, "search_radiohead.json"))
			}
		case "artist.getinfo":
			if q.Get("artist") == "nonexistent" {
				w.WriteHeader(http.StatusBadRequest)
				w.Write(loadFixture(t, "error_not_found.json"))
				return
			}
			w.Write(loadFixture(t, "artist_radiohead.json"))
		case "artist.gettoptracks":
			w.Write(loadFixture(t, "toptracks_radiohead.json"))
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
}

func newTestAdapter(t *testing.T, baseURL, apiKey string) *Adapter {
	t.Helper()
	limiter := provider.NewRateLimiterMap()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewWithBaseURL(limiter, apiKey, logger, baseURL)
}

func TestName(t *testing.T) {
	a := newTestAdapter(t, "http://localhost", "test-key")
	if a.Name() != provider.NameLastFM {
		t.Errorf("expected %q, got %q", provider.NameLastFM, a.Name())
	}
	if !a.RequiresAuth() {
		t.Error("expected RequiresAuth to return true")
	}
}

func TestExtractName(t *testing.T) {
	cases := []struct {
		url      string
		wantName string
		wantOK   bool
	}{
		{"https://www.last.fm/music/Radiohead", "Radiohead", true},
		{"https://www.last.fm/music/Guns+N%27+Roses", "Guns N' Roses", true},
		{"https://www.last.fm/de/music/Sigur+R%C3%B3s", "Sigur Rós", true},
		{"https://www.last.fm/music/+noredirect/Radiohead", "Radiohead", true},
		{"https://www.last.fm/music/Radiohead/_/Creep", "Radiohead", true},
		{"https://www.lastfm.de/music/AC%2BDC", "AC+DC", true},
		{"https://www.last.fm/user/someone", "", false},
		{"https://www.last.fm/music/", "", false},
		{"https://www.deezer.com/music/Radiohead", "", false},
	}
	for _, tc := range cases {
		name, ok := ExtractName(tc.url)
		if name != tc.wantName || ok != tc.wantOK {
			t.Errorf("ExtractName(%q) = (%q, %v), want (%q, %v)", tc.url, name, ok, tc.wantName, tc.wantOK)
		}
	}
}

func TestResolveURL(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()
	a := newTestAdapter(t, srv.URL, "test-key")

	rec, err := a.ResolveURL(context.Background(), "https://www.last.fm/music/Radiohead")
	if err != nil {
		t.Fatalf("ResolveURL: %v", err)
	}
	if rec.ID != "Radiohead" || rec.Platform != provider.NameLastFM {
		t.Errorf("unexpected record %s/%q", rec.Platform, rec.ID)
	}
	if rec.Audience.Listeners == nil || *rec.Audience.Listeners != 7041232 {
		t.Errorf("expected listeners 7041232, got %v", rec.Audience.Listeners)
	}
	if rec.Audience.Plays == nil || *rec.Audience.Plays != 1003451255 {
		t.Errorf("expected plays 1003451255, got %v", rec.Audience.Plays)
	}
	if diff := cmp.Diff([]string{"alternative", "rock"}, rec.Genres); diff != "" {
		t.Errorf("genres mismatch (-want +got):\n%s", diff)
	}
	if rec.Bio != "Radiohead are an English rock band formed in Abingdon, Oxfordshire, in 1985." {
		t.Errorf("unexpected bio %q", rec.Bio)
	}
	if rec.AvatarURL != "" {
		t.Errorf("expected placeholder image dropped, got %q", rec.AvatarURL)
	}
	if rec.ProfileURL() != "https://www.last.fm/music/Radiohead" {
		t.Errorf("unexpected profile URL %q", rec.ProfileURL())
	}
	if len(rec.TopTracks) != 3 {
		t.Fatalf("expected 3 top tracks, got %d", len(rec.TopTracks))
	}
	if rec.TopTracks[0].Plays == nil || *rec.TopTracks[0].Plays != 63512991 {
		t.Errorf("unexpected top track plays %v", rec.TopTracks[0].Plays)
	}
}

func TestGetArtistNotFound(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()
	a := newTestAdapter(t, srv.URL, "test-key")

	_, err := a.GetArtist(context.Background(), "nonexistent")
	var notFound *provider.ErrNotFound
	if !errors.As(err, &notFound) {
		t.Errorf("expected ErrNotFound, got %T: %v", err, err)
	}
}

func TestSearch(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()
	a := newTestAdapter(t, srv.URL, "test-key")

	results, err := a.Search(context.Background(), "radiohead")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results (nameless entry skipped), got %d", len(results))
	}
	if results[0].Name != "Radiohead" {
		t.Errorf("expected Radiohead first, got %q", results[0].Name)
	}
	if results[1].Audience.Listeners == nil || *results[1].Audience.Listeners != 912 {
		t.Errorf("unexpected listeners %v", results[1].Audience.Listeners)
	}
	if results[1].ProfileURL() != "https://www.last.fm/music/Radiohead+Tribute" {
		t.Errorf("unexpected profile URL %q", results[1].ProfileURL())
	}
}

func TestSearchEmptyQuery(t *testing.T) {
	a := newTestAdapter(t, "http://127.0.0.1:1", "test-key")
	results, err := a.Search(context.Background(), "")
	if err != nil || results != nil {
		t.Errorf("expected nil, nil for empty query, got %v, %v", results, err)
	}
}

func TestErrorMapping(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	_, err := newTestAdapter(t, srv.URL, "bad-key").Search(context.Background(), "radiohead")
	var authErr *provider.ErrAuthFailed
	if !errors.As(err, &authErr) {
		t.Errorf("bad key: expected ErrAuthFailed, got %T: %v", err, err)
	}

	_, err = newTestAdapter(t, srv.URL, "").Search(context.Background(), "radiohead")
	if !errors.As(err, &authErr) {
		t.Errorf("missing key: expected ErrAuthFailed, got %T: %v", err, err)
	}

	a := newTestAdapter(t, srv.URL, "test-key")
	_, err = a.Search(context.Background(), "throttle")
	var limited *provider.ErrRateLimited
	if !errors.As(err, &limited) {
		t.Errorf("expected ErrRateLimited, got %T: %v", err, err)
	}

	_, err = a.Search(context.Background(), "broken")
	var unavailable *provider.ErrProviderUnavailable
	if !errors.As(err, &unavailable) {
		t.Errorf("expected ErrProviderUnavailable, got %T: %v", err, err)
	}
}

func TestCleanBio(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"", ""},
		{"Plain bio.", "Plain bio."},
		{"Bio. <a href=\"https://www.last.fm/music/X\">Read more</a>", "Bio."},
		{"<a href=\"https://www.last.fm/music/X\">Read more</a>", ""},
	}
	for _, tc := range cases {
		if got := cleanBio(tc.in); got != tc.want {
			t.Errorf("cleanBio(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

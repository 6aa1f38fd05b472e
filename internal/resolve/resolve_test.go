package resolve

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sydlexius/artistlink/internal/match"
	"github.com/sydlexius/artistlink/internal/metrics"
	"github.com/sydlexius/artistlink/internal/popularity"
	"github.com/sydlexius/artistlink/internal/provider"
)

type fakeProvider struct {
	name    provider.ProviderName
	domain  string
	results []provider.ArtistRecord
	err     error
	hang    bool
	started func()
	calls   atomic.Int32
}

func (f *fakeProvider) Name() provider.ProviderName { return f.name }
func (f *fakeProvider) RequiresAuth() bool          { return false }
func (f *fakeProvider) MatchURL(rawURL string) bool { return strings.Contains(rawURL, f.domain) }

func (f *fakeProvider) ResolveURL(ctx context.Context, _ string) (*provider.ArtistRecord, error) {
	f.calls.Add(1)
	if f.hang {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	return &f.results[0], nil
}

func (f *fakeProvider) Search(ctx context.Context, _ string) ([]provider.ArtistRecord, error) {
	f.calls.Add(1)
	if f.started != nil {
		f.started()
	}
	if f.hang {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.results, f.err
}

type fakeMatcher struct {
	mu      sync.Mutex
	req     *match.Request
	matches []match.UnifiedMatch
	err     error
}

func (f *fakeMatcher) Match(_ context.Context, req match.Request) ([]match.UnifiedMatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.req = &req
	return f.matches, f.err
}

func silentLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func record(platform provider.ProviderName, id, name string) provider.ArtistRecord {
	return provider.ArtistRecord{Platform: platform, ID: id, Name: name}
}

func newService(t *testing.T, m match.Matcher, adapters ...*fakeProvider) *Service {
	t.Helper()
	reg := provider.NewRegistry()
	for _, a := range adapters {
		reg.Register(a)
	}
	return NewService(reg, m, silentLogger(),
		WithAdapterTimeout(50*time.Millisecond),
		WithMetrics(metrics.NewManager()))
}

func TestFindAcrossPlatformsSurvivesFailures(t *testing.T) {
	spotify := &fakeProvider{name: provider.NameSpotify, results: []provider.ArtistRecord{
		record(provider.NameSpotify, "sp1", "Radiohead"),
	}}
	youtube := &fakeProvider{name: provider.NameYouTube, err: &provider.ErrRateLimited{Provider: provider.NameYouTube}}
	deezer := &fakeProvider{name: provider.NameDeezer, hang: true}
	lastfm := &fakeProvider{name: provider.NameLastFM, err: errors.New("connection reset")}

	fm := &fakeMatcher{matches: []match.UnifiedMatch{{
		Confidence: 0.9,
		Candidates: map[provider.ProviderName][]match.MatchCandidate{
			provider.NameSpotify: {{ID: "sp1", Confidence: 0.5}, {ID: "sp1", Confidence: 0.9}},
		},
	}}}

	svc := newService(t, fm, spotify, youtube, deezer, lastfm)
	got, err := svc.FindAcrossPlatforms(context.Background(), "  Radiohead ", "")
	if err != nil {
		t.Fatalf("FindAcrossPlatforms: %v", err)
	}

	if fm.req.Query != "Radiohead" {
		t.Errorf("expected trimmed query, got %q", fm.req.Query)
	}
	for _, name := range provider.AllProviderNames() {
		list, ok := fm.req.Results[name]
		if !ok {
			t.Errorf("matcher missing slot for %s", name)
			continue
		}
		want := 0
		if name == provider.NameSpotify {
			want = 1
		}
		if len(list) != want {
			t.Errorf("%s: expected %d results, got %d", name, want, len(list))
		}
	}

	if len(got) != 1 {
		t.Fatalf("expected 1 match, got %d", len(got))
	}
	sp := got[0].Candidates[provider.NameSpotify]
	if len(sp) != 1 || sp[0].Confidence != 0.9 {
		t.Errorf("expected deduplicated candidate at 0.9, got %+v", sp)
	}
}

func TestFindAcrossPlatformsRunsConcurrently(t *testing.T) {
	const n = 4
	var wg sync.WaitGroup
	wg.Add(n)
	allStarted := make(chan struct{})
	go func() {
		wg.Wait()
		close(allStarted)
	}()

	// Every adapter blocks until all four are running, so a sequential
	// fan-out would time each of them out.
	var adapters []*fakeProvider
	for _, name := range provider.AllProviderNames() {
		a := &fakeProvider{name: name, results: []provider.ArtistRecord{record(name, "1", "Nova")}}
		a.started = func() {
			wg.Done()
			select {
			case <-allStarted:
			case <-time.After(time.Second):
			}
		}
		adapters = append(adapters, a)
	}

	fm := &fakeMatcher{matches: []match.UnifiedMatch{}}
	reg := provider.NewRegistry()
	for _, a := range adapters {
		reg.Register(a)
	}
	svc := NewService(reg, fm, silentLogger(), WithAdapterTimeout(5*time.Second))

	start := time.Now()
	if _, err := svc.FindAcrossPlatforms(context.Background(), "Nova", ""); err != nil {
		t.Fatalf("FindAcrossPlatforms: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 900*time.Millisecond {
		t.Errorf("fan-out took %s; adapters did not run concurrently", elapsed)
	}
	for _, name := range provider.AllProviderNames() {
		if len(fm.req.Results[name]) != 1 {
			t.Errorf("%s: expected 1 result", name)
		}
	}
}

func TestFindAcrossPlatformsExhausted(t *testing.T) {
	fm := &fakeMatcher{}
	svc := newService(t, fm,
		&fakeProvider{name: provider.NameSpotify},
		&fakeProvider{name: provider.NameYouTube, err: &provider.ErrAuthFailed{Provider: provider.NameYouTube}},
		&fakeProvider{name: provider.NameDeezer, hang: true},
	)

	_, err := svc.FindAcrossPlatforms(context.Background(), "zzxxqq", "")
	var notFound *provider.ErrNotFound
	if !errors.As(err, &notFound) {
		t.Fatalf("expected ErrNotFound, got %T: %v", err, err)
	}
	if notFound.Provider != "" {
		t.Errorf("expected cross-platform not found, got provider %q", notFound.Provider)
	}
	if fm.req != nil {
		t.Error("matcher must not be called when nothing was found")
	}
}

func TestFindAcrossPlatformsExclude(t *testing.T) {
	spotify := &fakeProvider{name: provider.NameSpotify, results: []provider.ArtistRecord{record(provider.NameSpotify, "s", "Björk")}}
	deezer := &fakeProvider{name: provider.NameDeezer, results: []provider.ArtistRecord{record(provider.NameDeezer, "d", "Björk")}}
	fm := &fakeMatcher{matches: []match.UnifiedMatch{}}

	svc := newService(t, fm, spotify, deezer)
	if _, err := svc.FindAcrossPlatforms(context.Background(), "Björk", provider.NameSpotify); err != nil {
		t.Fatalf("FindAcrossPlatforms: %v", err)
	}
	if spotify.calls.Load() != 0 {
		t.Error("excluded platform was searched")
	}
	if _, ok := fm.req.Results[provider.NameSpotify]; ok {
		t.Error("excluded platform passed to matcher")
	}
	if deezer.calls.Load() != 1 {
		t.Errorf("expected one deezer call, got %d", deezer.calls.Load())
	}
}

func TestFindAcrossPlatformsValidation(t *testing.T) {
	svc := newService(t, &fakeMatcher{}, &fakeProvider{name: provider.NameSpotify})

	for _, tc := range []struct {
		name    string
		query   string
		exclude provider.ProviderName
	}{
		{"empty", "", ""},
		{"blank", "   ", ""},
		{"unknown exclude", "Radiohead", "myspace"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.FindAcrossPlatforms(context.Background(), tc.query, tc.exclude)
			var valErr *provider.ErrValidation
			if !errors.As(err, &valErr) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestFindAcrossPlatformsMatcherErrorIsFatal(t *testing.T) {
	modelErr := &match.ErrModelOutput{Reason: "unknown platform", Raw: "{}"}
	svc := newService(t, &fakeMatcher{err: modelErr},
		&fakeProvider{name: provider.NameDeezer, results: []provider.ArtistRecord{record(provider.NameDeezer, "1", "X")}})

	_, err := svc.FindAcrossPlatforms(context.Background(), "X", "")
	if !errors.Is(err, modelErr) {
		t.Fatalf("expected matcher error surfaced as-is, got %v", err)
	}
}

func TestFindAcrossPlatformsCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	svc := newService(t, &fakeMatcher{}, &fakeProvider{name: provider.NameDeezer, hang: true})
	if _, err := svc.FindAcrossPlatforms(ctx, "X", ""); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestResolveURL(t *testing.T) {
	deezer := &fakeProvider{name: provider.NameDeezer, domain: "deezer.com",
		results: []provider.ArtistRecord{record(provider.NameDeezer, "399", "Radiohead")}}
	spotify := &fakeProvider{name: provider.NameSpotify, domain: "spotify.com", hang: true}
	lastfm := &fakeProvider{name: provider.NameLastFM, domain: "last.fm",
		err: &provider.ErrNotFound{Provider: provider.NameLastFM, ID: "Nobody"}}
	svc := newService(t, &fakeMatcher{}, deezer, spotify, lastfm)

	rec, err := svc.ResolveURL(context.Background(), "https://www.deezer.com/artist/399")
	if err != nil {
		t.Fatalf("ResolveURL: %v", err)
	}
	if rec.ID != "399" {
		t.Errorf("unexpected record %+v", rec)
	}

	_, err = svc.ResolveURL(context.Background(), "https://open.spotify.com/artist/x")
	var unavailable *provider.ErrProviderUnavailable
	if !errors.As(err, &unavailable) || unavailable.Provider != provider.NameSpotify {
		t.Errorf("expected timeout as ErrProviderUnavailable, got %v", err)
	}

	_, err = svc.ResolveURL(context.Background(), "https://www.last.fm/music/Nobody")
	var notFound *provider.ErrNotFound
	if !errors.As(err, &notFound) || notFound.Provider != provider.NameLastFM {
		t.Errorf("expected typed not found, got %v", err)
	}

	if res := svc.ValidateURL("https://www.deezer.com/artist/399"); !res.IsValid || res.Platform != provider.NameDeezer {
		t.Errorf("unexpected validation %+v", res)
	}
	if res := svc.ValidateURL("https://soundcloud.com/radiohead"); res.IsValid || res.Error == "" {
		t.Errorf("expected invalid result, got %+v", res)
	}

	_, err = svc.ResolveURL(context.Background(), "https://soundcloud.com/radiohead")
	var valErr *provider.ErrValidation
	if !errors.As(err, &valErr) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

func TestAggregatePopularityAndPlatforms(t *testing.T) {
	svc := newService(t, &fakeMatcher{},
		&fakeProvider{name: provider.NameLastFM},
		&fakeProvider{name: provider.NameSpotify})

	got := svc.AggregatePopularity(popularity.AudiencePerPlatform{
		provider.NameSpotify: {Popularity: provider.Int(42)},
	})
	if got != 42 {
		t.Errorf("AggregatePopularity = %d, want 42", got)
	}

	names := svc.Platforms()
	if len(names) != 2 || names[0] != provider.NameSpotify || names[1] != provider.NameLastFM {
		t.Errorf("unexpected platforms %v", names)
	}
}

package match

import (
	"context"
	"testing"

	"github.com/sydlexius/artistlink/internal/provider"
)

func rec(platform provider.ProviderName, id, name string) provider.ArtistRecord {
	return provider.ArtistRecord{
		Platform: platform,
		ID:       id,
		Name:     name,
		URLs:     map[string]string{provider.ProfileURLKey: "https://example.test/" + id},
	}
}

func TestNormalizeName(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"Radiohead", "radiohead"},
		{"  Sigur Rós ", "sigur ros"},
		{"Beyoncé", "beyonce"},
		{"The Beatles", "beatles"},
		{"The", "the"},
		{"Simon & Garfunkel", "simon and garfunkel"},
		{"AC/DC", "ac dc"},
		{"Guns N' Roses", "guns n roses"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := normalizeName(tc.in); got != tc.want {
			t.Errorf("normalizeName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSimilarity(t *testing.T) {
	if got := similarity("radiohead", "radiohead"); got != 1 {
		t.Errorf("identical names: got %v", got)
	}
	if got := similarity("", "radiohead"); got != 0 {
		t.Errorf("empty name: got %v", got)
	}
	if got := similarity("radiohead", "radiohed"); got < 0.85 {
		t.Errorf("one-letter typo should stay similar, got %v", got)
	}
	if got := similarity("radiohead", "coldplay"); got > 0.3 {
		t.Errorf("different names should be dissimilar, got %v", got)
	}
}

func TestRuleMatcherGroupsAcrossPlatforms(t *testing.T) {
	spotify := rec(provider.NameSpotify, "sp1", "Sigur Rós")
	spotify.Genres = []string{"post-rock", "icelandic rock"}
	spotify.Audience.Followers = provider.Int64(2_000_000)
	youtube := rec(provider.NameYouTube, "yt1", "Sigur Ros")
	youtube.Location = "IS"
	youtube.Audience.Subscribers = provider.Int64(1_500_000)
	lastfm := rec(provider.NameLastFM, "Sigur Rós", "Sigur Rós")
	lastfm.Genres = []string{"post-rock", "ambient"}
	lastfm.Audience.Listeners = provider.Int64(3_000_000)

	req := Request{
		Query: "sigur ros",
		Results: map[provider.ProviderName][]provider.ArtistRecord{
			provider.NameSpotify: {spotify, rec(provider.NameSpotify, "sp2", "Sigur Rós Tribute Orchestra")},
			provider.NameYouTube: {youtube},
			provider.NameDeezer:  {rec(provider.NameDeezer, "dz9", "Jónsi")},
			provider.NameLastFM:  {lastfm},
		},
	}

	matches, err := NewRuleMatcher().Match(context.Background(), req)
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if len(matches) == 0 || len(matches) > MaxMatches {
		t.Fatalf("unexpected match count %d", len(matches))
	}

	top := matches[0]
	for _, p := range []provider.ProviderName{provider.NameSpotify, provider.NameYouTube, provider.NameLastFM} {
		list := top.Candidates[p]
		if len(list) == 0 {
			t.Errorf("expected %s candidate in top match", p)
			continue
		}
		if list[0].Confidence < 0.8 || list[0].Confidence > 1 {
			t.Errorf("%s confidence %v out of expected range", p, list[0].Confidence)
		}
	}
	if top.Candidates[provider.NameSpotify][0].ID != "sp1" {
		t.Errorf("expected sp1 first on spotify, got %q", top.Candidates[provider.NameSpotify][0].ID)
	}
	if len(top.Candidates[provider.NameDeezer]) != 0 {
		t.Error("unrelated deezer artist should not join the top match")
	}
	if top.Rationale == "" {
		t.Error("expected a rationale")
	}
	for i := 1; i < len(matches); i++ {
		if matches[i-1].Confidence < matches[i].Confidence {
			t.Errorf("matches not ranked at %d", i)
		}
	}
}

func TestRuleMatcherBounds(t *testing.T) {
	var spotify []provider.ArtistRecord
	names := []string{"Nova", "Novah", "Novas", "Nova X", "Nova Y", "Nova Z", "Super Nova", "Bossa Nova"}
	for i, n := range names {
		spotify = append(spotify, rec(provider.NameSpotify, string(rune('a'+i)), n))
	}
	req := Request{Query: "Nova", Results: map[provider.ProviderName][]provider.ArtistRecord{
		provider.NameSpotify: spotify,
	}}

	matches, err := NewRuleMatcher().Match(context.Background(), req)
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if len(matches) > MaxMatches {
		t.Errorf("expected at most %d matches, got %d", MaxMatches, len(matches))
	}
	for _, m := range matches {
		for p, list := range m.Candidates {
			if len(list) > MaxCandidatesPerPlatform {
				t.Errorf("%s has %d candidates", p, len(list))
			}
			for _, c := range list {
				if c.Confidence < 0 || c.Confidence > 1 {
					t.Errorf("confidence %v out of range", c.Confidence)
				}
			}
		}
	}
}

func TestRuleMatcherDeterministic(t *testing.T) {
	req := Request{Query: "Radiohead", Results: map[provider.ProviderName][]provider.ArtistRecord{
		provider.NameSpotify: {rec(provider.NameSpotify, "s", "Radiohead")},
		provider.NameDeezer:  {rec(provider.NameDeezer, "d", "Radiohead"), rec(provider.NameDeezer, "d2", "Radio Head")},
		provider.NameLastFM:  {rec(provider.NameLastFM, "l", "Radiohead")},
	}}
	m := NewRuleMatcher()
	first, _ := m.Match(context.Background(), req)
	for range 5 {
		again, _ := m.Match(context.Background(), req)
		if len(again) != len(first) || again[0].Confidence != first[0].Confidence {
			t.Fatal("rule matcher is not deterministic")
		}
	}
}

func TestRuleMatcherCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewRuleMatcher().Match(ctx, Request{Query: "x"}); err == nil {
		t.Fatal("expected context error")
	}
}

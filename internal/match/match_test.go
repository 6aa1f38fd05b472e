package match

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/sydlexius/artistlink/internal/provider"
)

func TestDedupeKeepsMaxConfidence(t *testing.T) {
	in := UnifiedMatch{
		Confidence: 0.8,
		Rationale:  "same name",
		Candidates: map[provider.ProviderName][]MatchCandidate{
			provider.NameSpotify: {
				{ID: "a", Confidence: 0.4},
				{ID: "b", Confidence: 0.9},
				{ID: "a", Confidence: 0.7},
				{ID: "c", Confidence: 0.7},
			},
			provider.NameDeezer: {
				{ID: "x", Confidence: 0.2},
				{ID: "x", Confidence: 0.1},
			},
		},
	}

	got := Dedupe(in)

	want := UnifiedMatch{
		Confidence: 0.8,
		Rationale:  "same name",
		Candidates: map[provider.ProviderName][]MatchCandidate{
			provider.NameSpotify: {
				{ID: "b", Confidence: 0.9},
				{ID: "a", Confidence: 0.7},
				{ID: "c", Confidence: 0.7},
			},
			provider.NameDeezer: {
				{ID: "x", Confidence: 0.2},
			},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Dedupe mismatch (-want +got):\n%s", diff)
	}
}

func TestDedupeInvariants(t *testing.T) {
	in := UnifiedMatch{Candidates: map[provider.ProviderName][]MatchCandidate{
		provider.NameYouTube: {
			{ID: "1", Confidence: 0.1}, {ID: "2", Confidence: 0.5}, {ID: "1", Confidence: 0.3},
			{ID: "3", Confidence: 0.5}, {ID: "2", Confidence: 0.2}, {ID: "4", Confidence: 1},
		},
	}}

	got := Dedupe(in).Candidates[provider.NameYouTube]
	seen := map[string]bool{}
	for i, c := range got {
		if seen[c.ID] {
			t.Errorf("duplicate id %q", c.ID)
		}
		seen[c.ID] = true
		if i > 0 && got[i-1].Confidence < c.Confidence {
			t.Errorf("not sorted at %d: %v < %v", i, got[i-1].Confidence, c.Confidence)
		}
	}
	if len(got) != 4 {
		t.Errorf("expected 4 unique ids, got %d", len(got))
	}
	// Input is left untouched.
	if len(in.Candidates[provider.NameYouTube]) != 6 {
		t.Error("Dedupe modified its input")
	}
}

func TestDedupeEmpty(t *testing.T) {
	got := Dedupe(UnifiedMatch{})
	if len(got.Candidates) != 0 {
		t.Errorf("expected no candidates, got %v", got.Candidates)
	}
}

func TestUnifiedMatchPlatforms(t *testing.T) {
	m := UnifiedMatch{Candidates: map[provider.ProviderName][]MatchCandidate{
		provider.NameLastFM:  {{ID: "l", Confidence: 0.5}},
		provider.NameSpotify: {{ID: "s1", Confidence: 0.9}, {ID: "s2", Confidence: 0.3}},
		provider.NameDeezer:  {},
	}}

	if diff := cmp.Diff([]provider.ProviderName{provider.NameSpotify, provider.NameLastFM}, m.Platforms()); diff != "" {
		t.Errorf("Platforms mismatch (-want +got):\n%s", diff)
	}
}

// Package match reconciles per-platform search results into ranked,
// cross-platform identity candidates.
package match

import (
	"context"
	"fmt"
	"slices"

	"github.com/sydlexius/artistlink/internal/provider"
)

// Bounds on matcher output.
const (
	MaxMatches               = 5
	MaxCandidatesPerPlatform = 5
)

// MatchCandidate is one proposed identity on one platform. Confidence is in
// [0, 1].
type MatchCandidate struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	URL        string  `json:"url"`
	Thumbnail  string  `json:"thumbnail,omitempty"`
	Confidence float64 `json:"confidence"`
}

// UnifiedMatch groups the candidates believed to be the same real-world
// artist across platforms.
type UnifiedMatch struct {
	Candidates map[provider.ProviderName][]MatchCandidate `json:"candidates"`
	Confidence float64                                    `json:"confidence"`
	Rationale  string                                     `json:"rationale,omitempty"`
}

// Request is the input to a Matcher: the user's query and every platform's
// raw search results. Platforms whose search failed carry an empty list.
type Request struct {
	Query   string
	Results map[provider.ProviderName][]provider.ArtistRecord
}

// Matcher ranks raw search results into unified matches.
type Matcher interface {
	Match(ctx context.Context, req Request) ([]UnifiedMatch, error)
}

// ErrModelOutput means a matcher produced output that does not satisfy the
// match schema.
type ErrModelOutput struct {
	Reason string
	Raw    string
}

func (e *ErrModelOutput) Error() string {
	return "invalid matcher output: " + e.Reason
}

func modelOutputErr(raw, format string, args ...any) *ErrModelOutput {
	return &ErrModelOutput{Reason: fmt.Sprintf(format, args...), Raw: raw}
}

// Dedupe returns a copy of m where each platform list holds each ID once,
// keeping the entry with the highest confidence, sorted by confidence
// descending. Ties keep their original order.
func Dedupe(m UnifiedMatch) UnifiedMatch {
	out := UnifiedMatch{
		Confidence: m.Confidence,
		Rationale:  m.Rationale,
		Candidates: make(map[provider.ProviderName][]MatchCandidate, len(m.Candidates)),
	}
	for platform, list := range m.Candidates {
		index := make(map[string]int, len(list))
		kept := make([]MatchCandidate, 0, len(list))
		for _, c := range list {
			if i, ok := index[c.ID]; ok {
				if c.Confidence > kept[i].Confidence {
					kept[i] = c
				}
				continue
			}
			index[c.ID] = len(kept)
			kept = append(kept, c)
		}
		slices.SortStableFunc(kept, func(a, b MatchCandidate) int {
			switch {
			case a.Confidence > b.Confidence:
				return -1
			case a.Confidence < b.Confidence:
				return 1
			default:
				return 0
			}
		})
		out.Candidates[platform] = kept
	}
	return out
}

// Platforms returns the platforms that have at least one candidate, in
// priority order.
func (m UnifiedMatch) Platforms() []provider.ProviderName {
	var out []provider.ProviderName
	for _, name := range provider.AllProviderNames() {
		if len(m.Candidates[name]) > 0 {
			out = append(out, name)
		}
	}
	return out
}

// candidateFromRecord fills a candidate's display fields from the raw record
// it refers to.
func candidateFromRecord(rec *provider.ArtistRecord, confidence float64) MatchCandidate {
	return MatchCandidate{
		ID:         rec.ID,
		Name:       rec.Name,
		URL:        rec.ProfileURL(),
		Thumbnail:  rec.AvatarURL,
		Confidence: confidence,
	}
}

// indexRecords maps platform and ID to the raw record.
func indexRecords(results map[provider.ProviderName][]provider.ArtistRecord) map[provider.ProviderName]map[string]*provider.ArtistRecord {
	idx := make(map[provider.ProviderName]map[string]*provider.ArtistRecord, len(results))
	for platform, list := range results {
		m := make(map[string]*provider.ArtistRecord, len(list))
		for i := range list {
			if _, dup := m[list[i].ID]; !dup {
				m[list[i].ID] = &list[i]
			}
		}
		idx[platform] = m
	}
	return idx
}

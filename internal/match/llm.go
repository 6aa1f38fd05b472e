package match

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/sydlexius/artistlink/internal/llm"
	"github.com/sydlexius/artistlink/internal/provider"
)

// bioExcerptRunes bounds how much of each bio is sent to the model.
const bioExcerptRunes = 240

// Completer issues one JSON-only completion.
type Completer interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// LLMMatcher asks a language model to group search results into identities
// and validates the answer against the raw results.
type LLMMatcher struct {
	completer Completer
	logger    *slog.Logger
}

// NewLLMMatcher creates a matcher backed by the given completer.
func NewLLMMatcher(completer Completer, logger *slog.Logger) *LLMMatcher {
	return &LLMMatcher{
		completer: completer,
		logger:    logger.With(slog.String("component", "llm-matcher")),
	}
}

const systemPrompt = `You reconcile music artist identities across streaming platforms.
You receive a search query and, per platform, the raw search results (id, name, genres,
location, audience figures, bio excerpt). Group results that are the same real-world
artist. Return between 3 and 5 matches when the data allows, most likely first.
Each match lists up to 5 candidates per platform, each referencing a result id from
that platform's list, with a confidence between 0 and 1. Never invent ids.
Respond with JSON only, in exactly this shape:
{"matches":[{"confidence":0.0,"rationale":"short reason","candidates":{"<platform>":[{"id":"...","confidence":0.0}]}}]}`

// wire types for the model answer.
type answer struct {
	Matches []answerMatch `json:"matches"`
}

type answerMatch struct {
	Confidence float64                      `json:"confidence"`
	Rationale  string                       `json:"rationale"`
	Candidates map[string][]answerCandidate `json:"candidates"`
}

type answerCandidate struct {
	ID         string  `json:"id"`
	Confidence float64 `json:"confidence"`
}

// prompt payload types.
type promptPayload struct {
	Query     string                    `json:"query"`
	Platforms map[string][]promptRecord `json:"platforms"`
}

type promptRecord struct {
	ID       string                   `json:"id"`
	Name     string                   `json:"name"`
	Genres   []string                 `json:"genres,omitempty"`
	Location string                   `json:"location,omitempty"`
	Audience provider.AudienceMetrics `json:"audience"`
	Bio      string                   `json:"bio,omitempty"`
}

// Match implements Matcher.
func (m *LLMMatcher) Match(ctx context.Context, req Request) ([]UnifiedMatch, error) {
	userPrompt, err := buildPrompt(req)
	if err != nil {
		return nil, err
	}

	raw, err := m.completer.CompleteJSON(ctx, systemPrompt, userPrompt)
	if err != nil {
		return nil, fmt.Errorf("matching call: %w", err)
	}

	var ans answer
	if err := llm.DecodeJSON(raw, &ans); err != nil {
		return nil, modelOutputErr(raw, "decoding answer: %v", err)
	}

	matches, err := validateAnswer(&ans, req, raw)
	if err != nil {
		m.logger.Warn("rejecting matcher output", slog.String("error", err.Error()))
		return nil, err
	}

	m.logger.Debug("matcher answered",
		slog.String("query", req.Query),
		slog.Int("matches", len(matches)))
	return matches, nil
}

func buildPrompt(req Request) (string, error) {
	payload := promptPayload{
		Query:     req.Query,
		Platforms: make(map[string][]promptRecord, len(req.Results)),
	}
	for platform, list := range req.Results {
		recs := make([]promptRecord, 0, len(list))
		for _, r := range list {
			recs = append(recs, promptRecord{
				ID:       r.ID,
				Name:     r.Name,
				Genres:   r.Genres,
				Location: r.Location,
				Audience: r.Audience,
				Bio:      excerpt(r.Bio, bioExcerptRunes),
			})
		}
		payload.Platforms[string(platform)] = recs
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encoding prompt: %w", err)
	}
	return string(b), nil
}

// validateAnswer checks the schema bounds and resolves every candidate
// against the raw results. Any violation rejects the whole answer.
func validateAnswer(ans *answer, req Request, raw string) ([]UnifiedMatch, error) {
	if len(ans.Matches) == 0 {
		return nil, modelOutputErr(raw, "no matches")
	}
	if len(ans.Matches) > MaxMatches {
		return nil, modelOutputErr(raw, "%d matches exceeds limit of %d", len(ans.Matches), MaxMatches)
	}

	idx := indexRecords(req.Results)
	out := make([]UnifiedMatch, 0, len(ans.Matches))
	for i, am := range ans.Matches {
		if !validConfidence(am.Confidence) {
			return nil, modelOutputErr(raw, "match %d: confidence %v out of range", i, am.Confidence)
		}
		um := UnifiedMatch{
			Confidence: am.Confidence,
			Rationale:  strings.TrimSpace(am.Rationale),
			Candidates: make(map[provider.ProviderName][]MatchCandidate, len(am.Candidates)),
		}
		for key, list := range am.Candidates {
			platform := provider.ProviderName(strings.ToLower(strings.TrimSpace(key)))
			if !platform.Valid() {
				return nil, modelOutputErr(raw, "match %d: unknown platform %q", i, key)
			}
			// Keys differing only in case share one list.
			if n := len(um.Candidates[platform]) + len(list); n > MaxCandidatesPerPlatform {
				return nil, modelOutputErr(raw, "match %d: %d %s candidates exceeds limit of %d",
					i, n, platform, MaxCandidatesPerPlatform)
			}
			records := idx[platform]
			for _, ac := range list {
				if !validConfidence(ac.Confidence) {
					return nil, modelOutputErr(raw, "match %d: %s candidate %q confidence %v out of range",
						i, platform, ac.ID, ac.Confidence)
				}
				rec, ok := records[ac.ID]
				if !ok {
					return nil, modelOutputErr(raw, "match %d: %s candidate %q not in search results", i, platform, ac.ID)
				}
				um.Candidates[platform] = append(um.Candidates[platform], candidateFromRecord(rec, ac.Confidence))
			}
		}
		if len(um.Candidates) == 0 {
			return nil, modelOutputErr(raw, "match %d: no candidates on any platform", i)
		}
		out = append(out, um)
	}
	return out, nil
}

func validConfidence(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= 1
}

func excerpt(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > n {
		return string(r[:n]) + "..."
	}
	return s
}

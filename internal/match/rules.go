package match

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/sydlexius/artistlink/internal/provider"
)

// Thresholds for the rule matcher.
const (
	memberThreshold   = 0.8  // minimum name similarity to join a group
	distinctKeyCutoff = 0.9  // keys closer than this collapse into one group
	nameWeight        = 0.8  // share of candidate confidence from the name
	neutralContext    = 0.5  // context score when no signal is comparable
	scaleSpanDecades  = 3.0  // audience gap (in powers of ten) that scores 0
	confidencePrec    = 1000 // confidences are rounded to three decimals
)

// RuleMatcher groups results by accent-folded name similarity and refines
// each candidate's confidence with genre, location and audience-scale
// agreement. It is deterministic and needs no network access.
type RuleMatcher struct{}

// NewRuleMatcher returns a RuleMatcher.
func NewRuleMatcher() *RuleMatcher { return &RuleMatcher{} }

type member struct {
	platform provider.ProviderName
	rec      *provider.ArtistRecord
	nameSim  float64
}

type group struct {
	key      string
	querySim float64
	members  []member
}

// Match implements Matcher.
func (RuleMatcher) Match(ctx context.Context, req Request) ([]UnifiedMatch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	query := normalizeName(req.Query)

	groups := buildGroups(query, req.Results)

	matches := make([]UnifiedMatch, 0, len(groups))
	for _, g := range groups {
		um := scoreGroup(g, len(nonEmptyPlatforms(req.Results)))
		if len(um.Candidates) > 0 {
			matches = append(matches, um)
		}
	}
	slices.SortStableFunc(matches, func(a, b UnifiedMatch) int {
		switch {
		case a.Confidence > b.Confidence:
			return -1
		case a.Confidence < b.Confidence:
			return 1
		default:
			return 0
		}
	})
	if len(matches) > MaxMatches {
		matches = matches[:MaxMatches]
	}
	return matches, nil
}

// buildGroups picks up to MaxMatches distinct normalized names, closest to
// the query first, and collects the records resembling each.
func buildGroups(query string, results map[provider.ProviderName][]provider.ArtistRecord) []group {
	type keyed struct {
		key      string
		querySim float64
		order    int
	}
	var keys []keyed
	seen := make(map[string]bool)
	order := 0
	for _, platform := range provider.AllProviderNames() {
		for _, r := range results[platform] {
			k := normalizeName(r.Name)
			if k == "" || seen[k] {
				continue
			}
			seen[k] = true
			keys = append(keys, keyed{key: k, querySim: similarity(query, k), order: order})
			order++
		}
	}
	slices.SortStableFunc(keys, func(a, b keyed) int {
		switch {
		case a.querySim > b.querySim:
			return -1
		case a.querySim < b.querySim:
			return 1
		default:
			return a.order - b.order
		}
	})

	var groups []group
	for _, k := range keys {
		if len(groups) == MaxMatches {
			break
		}
		if slices.ContainsFunc(groups, func(g group) bool { return similarity(g.key, k.key) >= distinctKeyCutoff }) {
			continue
		}
		g := group{key: k.key, querySim: k.querySim}
		for _, platform := range provider.AllProviderNames() {
			list := results[platform]
			for i := range list {
				sim := similarity(k.key, normalizeName(list[i].Name))
				if sim >= memberThreshold {
					g.members = append(g.members, member{platform: platform, rec: &list[i], nameSim: sim})
				}
			}
		}
		groups = append(groups, g)
	}
	return groups
}

func scoreGroup(g group, platformsWithResults int) UnifiedMatch {
	um := UnifiedMatch{Candidates: make(map[provider.ProviderName][]MatchCandidate)}

	for _, m := range g.members {
		ctxScore := contextScore(m, g.members)
		conf := roundConfidence(nameWeight*m.nameSim + (1-nameWeight)*ctxScore)
		um.Candidates[m.platform] = append(um.Candidates[m.platform], candidateFromRecord(m.rec, conf))
	}

	var topSum float64
	for _, platform := range provider.AllProviderNames() {
		list, ok := um.Candidates[platform]
		if !ok {
			continue
		}
		slices.SortStableFunc(list, func(a, b MatchCandidate) int {
			switch {
			case a.Confidence > b.Confidence:
				return -1
			case a.Confidence < b.Confidence:
				return 1
			default:
				return 0
			}
		})
		if len(list) > MaxCandidatesPerPlatform {
			list = list[:MaxCandidatesPerPlatform]
		}
		um.Candidates[platform] = list
		topSum += list[0].Confidence
	}

	covered := len(um.Candidates)
	if covered == 0 {
		return um
	}
	coverage := 1.0
	if platformsWithResults > 0 {
		coverage = float64(covered) / float64(platformsWithResults)
	}
	um.Confidence = roundConfidence(g.querySim * (topSum / float64(covered)) * (0.5 + 0.5*coverage))
	um.Rationale = fmt.Sprintf("name %q matched on %d of %d platforms", g.key, covered, platformsWithResults)
	return um
}

// contextScore compares a member with the other platforms' members of its
// group on genres, location and audience scale.
func contextScore(m member, members []member) float64 {
	var (
		otherGenres = make(map[string]bool)
		locations   = make(map[string]bool)
		magnitudes  []float64
	)
	for _, o := range members {
		if o.platform == m.platform {
			continue
		}
		for _, g := range o.rec.Genres {
			otherGenres[normalizeName(g)] = true
		}
		if loc := strings.ToLower(strings.TrimSpace(o.rec.Location)); loc != "" {
			locations[loc] = true
		}
		if mag, ok := audienceMagnitude(o.rec.Audience); ok {
			magnitudes = append(magnitudes, mag)
		}
	}

	var sum float64
	var n int
	if len(m.rec.Genres) > 0 && len(otherGenres) > 0 {
		sum += genreOverlap(m.rec.Genres, otherGenres)
		n++
	}
	if loc := strings.ToLower(strings.TrimSpace(m.rec.Location)); loc != "" && len(locations) > 0 {
		if locations[loc] {
			sum++
		}
		n++
	}
	if mag, ok := audienceMagnitude(m.rec.Audience); ok && len(magnitudes) > 0 {
		best := 0.0
		for _, o := range magnitudes {
			best = max(best, 1-math.Min(1, math.Abs(mag-o)/scaleSpanDecades))
		}
		sum += best
		n++
	}
	if n == 0 {
		return neutralContext
	}
	return sum / float64(n)
}

// genreOverlap is the share of the member's genres found in the pool.
func genreOverlap(genres []string, pool map[string]bool) float64 {
	var hit int
	for _, g := range genres {
		if pool[normalizeName(g)] {
			hit++
		}
	}
	return float64(hit) / float64(len(genres))
}

// audienceMagnitude is log10 of the largest raw audience count.
func audienceMagnitude(a provider.AudienceMetrics) (float64, bool) {
	var best int64
	for _, v := range []*int64{a.Followers, a.Subscribers, a.Listeners, a.Plays, a.Views} {
		if v != nil && *v > best {
			best = *v
		}
	}
	if best < 1 {
		return 0, false
	}
	return math.Log10(float64(best)), true
}

func nonEmptyPlatforms(results map[provider.ProviderName][]provider.ArtistRecord) []provider.ProviderName {
	var out []provider.ProviderName
	for _, name := range provider.AllProviderNames() {
		if len(results[name]) > 0 {
			out = append(out, name)
		}
	}
	return out
}

func roundConfidence(v float64) float64 {
	v = math.Max(0, math.Min(1, v))
	return math.Round(v*confidencePrec) / confidencePrec
}

// normalizeName folds accents and case, drops punctuation and a leading
// "the", and collapses whitespace.
func normalizeName(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	folded = strings.ToLower(folded)
	folded = strings.ReplaceAll(folded, "&", " and ")

	var b strings.Builder
	for _, r := range folded {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r) || r == '-' || r == '_' || r == '/':
			b.WriteRune(' ')
		}
	}
	fields := strings.Fields(b.String())
	if len(fields) > 1 && fields[0] == "the" {
		fields = fields[1:]
	}
	return strings.Join(fields, " ")
}

// similarity is 1 minus the normalized Levenshtein distance of two
// normalized names.
func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 || len(rb) == 0 {
		return 0
	}
	return 1 - float64(levenshtein(ra, rb))/float64(max(len(ra), len(rb)))
}

func levenshtein(a, b []rune) int {
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

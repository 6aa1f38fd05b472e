// Package popularity folds heterogeneous audience metrics into one 0-100
// score.
package popularity

import (
	"math"

	"github.com/sydlexius/artistlink/internal/provider"
)

// AudiencePerPlatform holds the audience metrics of one artist on any subset
// of the known platforms.
type AudiencePerPlatform map[provider.ProviderName]provider.AudienceMetrics

// MaxScore is the upper bound of every score.
const MaxScore = 100

// signal reads one raw count off the metrics and maps it to a sub-score via
// min(cap, log10(value) * multiplier).
type signal struct {
	value      func(provider.AudienceMetrics) *int64
	ceiling    float64
	multiplier float64
}

type platformModel struct {
	weight  float64
	direct  bool // the platform reports its own 0-100 index
	signals []signal
}

var models = map[provider.ProviderName]platformModel{
	provider.NameSpotify: {
		weight: 1.0,
		direct: true,
		signals: []signal{
			{value: func(m provider.AudienceMetrics) *int64 { return m.Followers }, ceiling: 100, multiplier: 12.5},
		},
	},
	provider.NameYouTube: {
		weight: 0.9,
		signals: []signal{
			{value: func(m provider.AudienceMetrics) *int64 { return m.Subscribers }, ceiling: 100, multiplier: 14},
			{value: func(m provider.AudienceMetrics) *int64 { return m.Views }, ceiling: 100, multiplier: 10},
		},
	},
	provider.NameLastFM: {
		weight: 0.7,
		signals: []signal{
			{value: func(m provider.AudienceMetrics) *int64 { return m.Listeners }, ceiling: 100, multiplier: 13},
			{value: func(m provider.AudienceMetrics) *int64 { return m.Plays }, ceiling: 100, multiplier: 10},
		},
	},
	provider.NameDeezer: {
		weight: 0.6,
		signals: []signal{
			{value: func(m provider.AudienceMetrics) *int64 { return m.Followers }, ceiling: 100, multiplier: 14},
			{value: func(m provider.AudienceMetrics) *int64 { return m.Albums }, ceiling: 40, multiplier: 20},
		},
	},
}

// Aggregate returns the unified popularity score. It is pure: the same input
// always yields the same score.
//
// A single platform reporting a direct index passes that index through.
// Otherwise each platform's sub-score is the best of its signals and the
// result is the weight-averaged sub-score over platforms that reported
// anything. Platforms outside the model are ignored.
func Aggregate(metrics AudiencePerPlatform) int {
	if len(metrics) == 0 {
		return 0
	}

	if len(metrics) == 1 {
		for name, m := range metrics {
			if model, ok := models[name]; ok && model.direct && m.Popularity != nil {
				return clamp(*m.Popularity)
			}
		}
	}

	var sum, weights float64
	for _, name := range provider.AllProviderNames() {
		m, ok := metrics[name]
		if !ok {
			continue
		}
		model, ok := models[name]
		if !ok {
			continue
		}
		sub, present := model.subScore(m)
		if !present {
			continue
		}
		sum += sub * model.weight
		weights += model.weight
	}
	if weights == 0 {
		return 0
	}
	return clamp(int(math.Round(sum / weights)))
}

// SubScore returns the sub-score for one platform's metrics and whether the
// platform reported any signal the model reads.
func SubScore(name provider.ProviderName, m provider.AudienceMetrics) (float64, bool) {
	model, ok := models[name]
	if !ok {
		return 0, false
	}
	return model.subScore(m)
}

// Weight returns the platform's weight in the average, or 0 for unknown
// platforms.
func Weight(name provider.ProviderName) float64 {
	return models[name].weight
}

func (p platformModel) subScore(m provider.AudienceMetrics) (float64, bool) {
	var best float64
	present := false
	if p.direct && m.Popularity != nil {
		present = true
		best = float64(clamp(*m.Popularity))
	}
	for _, s := range p.signals {
		v := s.value(m)
		if v == nil {
			continue
		}
		present = true
		best = math.Max(best, logScore(*v, s.ceiling, s.multiplier))
	}
	return best, present
}

func logScore(value int64, ceiling, multiplier float64) float64 {
	if value < 1 {
		return 0
	}
	return math.Min(ceiling, math.Log10(float64(value))*multiplier)
}

func clamp(v int) int {
	return max(0, min(MaxScore, v))
}

// FromRecords collects the audience metrics of the given records, keeping
// the first record seen for each platform.
func FromRecords(records []provider.ArtistRecord) AudiencePerPlatform {
	out := make(AudiencePerPlatform, len(records))
	for _, r := range records {
		if _, ok := out[r.Platform]; ok {
			continue
		}
		out[r.Platform] = r.Audience
	}
	return out
}

package popularity

import (
	"math"
	"testing"

	"github.com/sydlexius/artistlink/internal/provider"
)

func TestAggregateEmpty(t *testing.T) {
	if got := Aggregate(nil); got != 0 {
		t.Errorf("nil input: got %d", got)
	}
	if got := Aggregate(AudiencePerPlatform{}); got != 0 {
		t.Errorf("empty input: got %d", got)
	}
	if got := Aggregate(AudiencePerPlatform{provider.NameDeezer: {}}); got != 0 {
		t.Errorf("platform without signals: got %d", got)
	}
}

func TestAggregateSingleDirectIndexPassesThrough(t *testing.T) {
	for _, idx := range []int{0, 1, 37, 73, 100} {
		in := AudiencePerPlatform{provider.NameSpotify: {
			Popularity: provider.Int(idx),
			Followers:  provider.Int64(10_000_000),
		}}
		if got := Aggregate(in); got != idx {
			t.Errorf("popularity %d: got %d", idx, got)
		}
	}
	if got := Aggregate(AudiencePerPlatform{provider.NameSpotify: {Popularity: provider.Int(140)}}); got != 100 {
		t.Errorf("out-of-range index not clamped: got %d", got)
	}
}

func TestAggregate(t *testing.T) {
	tests := []struct {
		name string
		in   AudiencePerPlatform
		want int
	}{
		{
			name: "youtube subscribers only",
			in:   AudiencePerPlatform{provider.NameYouTube: {Subscribers: provider.Int64(1_000_000)}},
			want: 84,
		},
		{
			name: "deezer albums capped",
			in:   AudiencePerPlatform{provider.NameDeezer: {Albums: provider.Int64(1_000_000)}},
			want: 40,
		},
		{
			name: "best signal wins",
			in: AudiencePerPlatform{provider.NameLastFM: {
				Listeners: provider.Int64(1_000),
				Plays:     provider.Int64(100_000_000),
			}},
			want: 80,
		},
		{
			name: "weighted average",
			in: AudiencePerPlatform{
				provider.NameSpotify: {Popularity: provider.Int(80), Followers: provider.Int64(1_000_000)},
				provider.NameDeezer:  {Followers: provider.Int64(100_000), Albums: provider.Int64(10)},
			},
			// (80*1.0 + 70*0.6) / 1.6
			want: 76,
		},
		{
			name: "zero counts",
			in: AudiencePerPlatform{
				provider.NameYouTube: {Subscribers: provider.Int64(0), Views: provider.Int64(-5)},
				provider.NameLastFM:  {Listeners: provider.Int64(1)},
			},
			want: 0,
		},
		{
			name: "unknown platform ignored",
			in: AudiencePerPlatform{
				"myspace":            {Followers: provider.Int64(1_000_000_000)},
				provider.NameYouTube: {Subscribers: provider.Int64(1_000_000)},
			},
			want: 84,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Aggregate(tt.in); got != tt.want {
				t.Errorf("Aggregate() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestAggregateRange(t *testing.T) {
	huge := provider.Int64(math.MaxInt64)
	in := AudiencePerPlatform{
		provider.NameSpotify: {Popularity: provider.Int(100), Followers: huge},
		provider.NameYouTube: {Subscribers: huge, Views: huge},
		provider.NameDeezer:  {Followers: huge, Albums: huge},
		provider.NameLastFM:  {Listeners: huge, Plays: huge},
	}
	if got := Aggregate(in); got != 100 {
		t.Errorf("saturated input: got %d, want 100", got)
	}

	for _, v := range []int64{0, 1, 9, 99, 12_345, 987_654_321} {
		in := AudiencePerPlatform{
			provider.NameYouTube: {Views: provider.Int64(v)},
			provider.NameDeezer:  {Followers: provider.Int64(v)},
		}
		if got := Aggregate(in); got < 0 || got > 100 {
			t.Errorf("value %d: score %d out of range", v, got)
		}
	}
}

func TestAggregateMonotonic(t *testing.T) {
	base := func(listeners int64) AudiencePerPlatform {
		return AudiencePerPlatform{
			provider.NameSpotify: {Popularity: provider.Int(55)},
			provider.NameYouTube: {Subscribers: provider.Int64(20_000)},
			provider.NameLastFM:  {Listeners: provider.Int64(listeners)},
		}
	}
	prev := -1
	for v := int64(1); v <= 1_000_000_000_000; v *= 7 {
		got := Aggregate(base(v))
		if got < prev {
			t.Fatalf("score dropped from %d to %d when listeners rose to %d", prev, got, v)
		}
		prev = got
	}

	// Adding a signal to a platform that already reports one never lowers it.
	without := AudiencePerPlatform{
		provider.NameYouTube: {Subscribers: provider.Int64(500_000)},
		provider.NameDeezer:  {Followers: provider.Int64(300)},
	}
	with := AudiencePerPlatform{
		provider.NameYouTube: {Subscribers: provider.Int64(500_000), Views: provider.Int64(90_000_000)},
		provider.NameDeezer:  {Followers: provider.Int64(300)},
	}
	if Aggregate(with) < Aggregate(without) {
		t.Errorf("extra signal lowered score: %d < %d", Aggregate(with), Aggregate(without))
	}
}

func TestAggregateDeterministic(t *testing.T) {
	in := AudiencePerPlatform{
		provider.NameSpotify: {Popularity: provider.Int(61)},
		provider.NameYouTube: {Subscribers: provider.Int64(123_456)},
		provider.NameDeezer:  {Followers: provider.Int64(7_890)},
		provider.NameLastFM:  {Listeners: provider.Int64(45_678)},
	}
	first := Aggregate(in)
	for range 20 {
		if got := Aggregate(in); got != first {
			t.Fatalf("got %d, then %d", first, got)
		}
	}
}

func TestSubScoreAndWeight(t *testing.T) {
	sub, ok := SubScore(provider.NameYouTube, provider.AudienceMetrics{Views: provider.Int64(1_000)})
	if !ok || math.Abs(sub-30) > 1e-9 {
		t.Errorf("SubScore = %v, %v; want 30, true", sub, ok)
	}
	if _, ok := SubScore(provider.NameYouTube, provider.AudienceMetrics{Videos: provider.Int64(10)}); ok {
		t.Error("videos are not a scored signal")
	}
	if w := Weight(provider.NameDeezer); w != 0.6 {
		t.Errorf("deezer weight = %v", w)
	}
	if w := Weight("myspace"); w != 0 {
		t.Errorf("unknown weight = %v", w)
	}
}

func TestFromRecords(t *testing.T) {
	got := FromRecords([]provider.ArtistRecord{
		{Platform: provider.NameDeezer, Audience: provider.AudienceMetrics{Followers: provider.Int64(10)}},
		{Platform: provider.NameDeezer, Audience: provider.AudienceMetrics{Followers: provider.Int64(99)}},
		{Platform: provider.NameLastFM, Audience: provider.AudienceMetrics{Listeners: provider.Int64(5)}},
	})
	if len(got) != 2 {
		t.Fatalf("expected 2 platforms, got %d", len(got))
	}
	if *got[provider.NameDeezer].Followers != 10 {
		t.Errorf("expected first deezer record kept, got %d", *got[provider.NameDeezer].Followers)
	}
}

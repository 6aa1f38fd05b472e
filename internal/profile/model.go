// Package profile stores finalized, human-selected artist profiles.
package profile

import (
	"encoding/json"
	"slices"
	"strings"
	"time"

	"github.com/sydlexius/artistlink/internal/provider"
)

// Link points at the artist on one platform.
type Link struct {
	Platform   provider.ProviderName `json:"platform"`
	PlatformID string                `json:"platform_id"`
	URL        string                `json:"url"`
}

// Profile is the merged view of one artist across the platforms a user
// confirmed, with its unified popularity score.
type Profile struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	AvatarURL  string    `json:"avatar_url,omitempty"`
	Bio        string    `json:"bio,omitempty"`
	Location   string    `json:"location,omitempty"`
	Genres     []string  `json:"genres,omitempty"`
	Links      []Link    `json:"links"`
	Popularity int       `json:"popularity"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Merge builds a Profile from the records a user selected. Scalar fields
// take the first non-empty value in platform priority order; links and
// genres are unioned. An empty name falls back to the highest-priority
// record's name.
func Merge(name string, records []provider.ArtistRecord, popularity int) *Profile {
	ordered := slices.Clone(records)
	rank := make(map[provider.ProviderName]int)
	for i, n := range provider.AllProviderNames() {
		rank[n] = i
	}
	slices.SortStableFunc(ordered, func(a, b provider.ArtistRecord) int {
		ra, okA := rank[a.Platform]
		rb, okB := rank[b.Platform]
		if !okA {
			ra = len(rank)
		}
		if !okB {
			rb = len(rank)
		}
		return ra - rb
	})

	p := &Profile{
		Name:       strings.TrimSpace(name),
		Popularity: max(0, min(100, popularity)),
		Links:      []Link{},
	}
	seenPlatform := make(map[provider.ProviderName]bool)
	seenGenre := make(map[string]bool)
	for _, r := range ordered {
		if p.Name == "" {
			p.Name = strings.TrimSpace(r.Name)
		}
		if p.AvatarURL == "" {
			p.AvatarURL = r.AvatarURL
		}
		if p.Bio == "" {
			p.Bio = strings.TrimSpace(r.Bio)
		}
		if p.Location == "" {
			p.Location = strings.TrimSpace(r.Location)
		}
		if !seenPlatform[r.Platform] {
			seenPlatform[r.Platform] = true
			p.Links = append(p.Links, Link{Platform: r.Platform, PlatformID: r.ID, URL: r.ProfileURL()})
		}
		for _, g := range r.Genres {
			key := strings.ToLower(strings.TrimSpace(g))
			if key == "" || seenGenre[key] {
				continue
			}
			seenGenre[key] = true
			p.Genres = append(p.Genres, strings.TrimSpace(g))
		}
	}
	return p
}

func marshalStrings(s []string) string {
	if s == nil {
		return "[]"
	}
	data, _ := json.Marshal(s)
	return string(data)
}

func unmarshalStrings(data string) []string {
	if data == "" || data == "[]" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(data), &out); err != nil {
		return nil
	}
	return out
}

package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/sydlexius/artistlink/internal/match"
	"github.com/sydlexius/artistlink/internal/popularity"
	"github.com/sydlexius/artistlink/internal/provider"
	"github.com/sydlexius/artistlink/internal/version"
)

func (r *Router) handleHealth(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"version":   version.Version,
		"commit":    version.Commit,
		"platforms": len(r.resolver.Platforms()),
		"time":      time.Now().UTC().Format(time.RFC3339),
	})
}

type platformInfo struct {
	Name        provider.ProviderName        `json:"name"`
	DisplayName string                       `json:"display_name"`
	Configured  bool                         `json:"configured"`
	Capability  *provider.ProviderCapability `json:"capability,omitempty"`
}

func (r *Router) handleListPlatforms(w http.ResponseWriter, req *http.Request) {
	configured := make(map[provider.ProviderName]bool)
	for _, name := range r.resolver.Platforms() {
		configured[name] = true
	}
	caps := provider.ProviderCapabilities()

	out := make([]platformInfo, 0, len(provider.AllProviderNames()))
	for _, name := range provider.AllProviderNames() {
		info := platformInfo{Name: name, DisplayName: name.DisplayName(), Configured: configured[name]}
		if c, ok := caps[name]; ok {
			info.Capability = &c
		}
		out = append(out, info)
	}
	writeJSON(w, http.StatusOK, out)
}

type urlRequest struct {
	URL string `json:"url"`
}

func (r *Router) handleValidateURL(w http.ResponseWriter, req *http.Request) {
	var body urlRequest
	if !decodeBody(w, req, &body) {
		return
	}
	writeJSON(w, http.StatusOK, r.resolver.ValidateURL(body.URL))
}

type resolveResponse struct {
	Artist     *provider.ArtistRecord `json:"artist"`
	Popularity int                    `json:"popularity"`
}

func (r *Router) handleResolve(w http.ResponseWriter, req *http.Request) {
	var body urlRequest
	if !decodeBody(w, req, &body) {
		return
	}
	rec, err := r.resolver.ResolveURL(req.Context(), body.URL)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, resolveResponse{
		Artist:     rec,
		Popularity: r.resolver.AggregatePopularity(popularity.AudiencePerPlatform{rec.Platform: rec.Audience}),
	})
}

type searchRequest struct {
	Name            string                `json:"name"`
	ExcludePlatform provider.ProviderName `json:"exclude_platform,omitempty"`
}

type searchResponse struct {
	Query   string               `json:"query"`
	Matches []match.UnifiedMatch `json:"matches"`
}

func (r *Router) handleSearch(w http.ResponseWriter, req *http.Request) {
	var body searchRequest
	if !decodeBody(w, req, &body) {
		return
	}
	body.ExcludePlatform = provider.ProviderName(strings.ToLower(strings.TrimSpace(string(body.ExcludePlatform))))

	matches, err := r.resolver.FindAcrossPlatforms(req.Context(), body.Name, body.ExcludePlatform)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	if matches == nil {
		matches = []match.UnifiedMatch{}
	}
	writeJSON(w, http.StatusOK, searchResponse{Query: strings.TrimSpace(body.Name), Matches: matches})
}

type popularityRequest struct {
	Metrics popularity.AudiencePerPlatform `json:"metrics"`
}

type popularityResponse struct {
	Score     int                               `json:"score"`
	SubScores map[provider.ProviderName]float64 `json:"sub_scores"`
}

func (r *Router) handlePopularity(w http.ResponseWriter, req *http.Request) {
	var body popularityRequest
	if !decodeBody(w, req, &body) {
		return
	}
	resp := popularityResponse{SubScores: make(map[provider.ProviderName]float64)}
	for name, m := range body.Metrics {
		if !name.Valid() {
			writeError(w, req, http.StatusBadRequest, "unknown platform: "+string(name))
			return
		}
		if sub, ok := popularity.SubScore(name, m); ok {
			resp.SubScores[name] = sub
		}
	}
	resp.Score = r.resolver.AggregatePopularity(body.Metrics)
	writeJSON(w, http.StatusOK, resp)
}

package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/sydlexius/artistlink/internal/popularity"
	"github.com/sydlexius/artistlink/internal/profile"
	"github.com/sydlexius/artistlink/internal/provider"
)

// maxProfileSources bounds how many platform artists one profile merges.
const maxProfileSources = 8

// createProfileRequest commits a user's selection. Sources are either full
// records the client already holds or profile URLs resolved here.
type createProfileRequest struct {
	Name       string                  `json:"name"`
	Records    []provider.ArtistRecord `json:"records,omitempty"`
	URLs       []string                `json:"urls,omitempty"`
	Popularity *int                    `json:"popularity,omitempty"`
}

func (r *Router) handleCreateProfile(w http.ResponseWriter, req *http.Request) {
	var body createProfileRequest
	if !decodeBody(w, req, &body) {
		return
	}
	if n := len(body.Records) + len(body.URLs); n == 0 || n > maxProfileSources {
		writeError(w, req, http.StatusBadRequest, "between 1 and 8 records or urls are required")
		return
	}

	records := body.Records
	for _, rec := range records {
		if !rec.Platform.Valid() || rec.ID == "" {
			writeError(w, req, http.StatusBadRequest, "every record needs a known platform and an id")
			return
		}
	}
	for _, u := range body.URLs {
		rec, err := r.resolver.ResolveURL(req.Context(), u)
		if err != nil {
			r.writeServiceError(w, req, err)
			return
		}
		records = append(records, *rec)
	}

	var score int
	if body.Popularity != nil {
		score = *body.Popularity
	} else {
		score = r.resolver.AggregatePopularity(popularity.FromRecords(records))
	}

	p := profile.Merge(body.Name, records, score)
	status := http.StatusCreated
	existing, err := r.existingProfile(req.Context(), p.Links)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	if existing != nil {
		p.ID, p.CreatedAt = existing.ID, existing.CreatedAt
		status = http.StatusOK
	}
	if err := r.profiles.Save(req.Context(), p); err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, status, p)
}

// existingProfile returns the stored profile that already links one of the
// given platform artists, or nil when all of them are new.
func (r *Router) existingProfile(ctx context.Context, links []profile.Link) (*profile.Profile, error) {
	for _, l := range links {
		p, err := r.profiles.FindByLink(ctx, l.Platform, l.PlatformID)
		if errors.Is(err, profile.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return p, nil
	}
	return nil, nil
}

type listProfilesResponse struct {
	Profiles []profile.Profile `json:"profiles"`
	Total    int               `json:"total"`
}

func (r *Router) handleListProfiles(w http.ResponseWriter, req *http.Request) {
	q := req.URL.Query()
	if q.Has("platform") || q.Has("id") {
		r.handleFindProfile(w, req, q.Get("platform"), q.Get("id"))
		return
	}

	limit := intParam(req, "limit", 50)
	offset := intParam(req, "offset", 0)

	profiles, total, err := r.profiles.List(req.Context(), limit, offset)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	if profiles == nil {
		profiles = []profile.Profile{}
	}
	writeJSON(w, http.StatusOK, listProfilesResponse{Profiles: profiles, Total: total})
}

func (r *Router) handleGetProfile(w http.ResponseWriter, req *http.Request) {
	p, err := r.profiles.Get(req.Context(), req.PathValue("id"))
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// handleFindProfile looks up the profile linked to one platform artist.
func (r *Router) handleFindProfile(w http.ResponseWriter, req *http.Request, platform, id string) {
	name := provider.ProviderName(strings.ToLower(strings.TrimSpace(platform)))
	id = strings.TrimSpace(id)
	if !name.Valid() || id == "" {
		writeError(w, req, http.StatusBadRequest, "platform and id query parameters are both required")
		return
	}
	p, err := r.profiles.FindByLink(req.Context(), name, id)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func intParam(req *http.Request, name string, fallback int) int {
	v, err := strconv.Atoi(req.URL.Query().Get(name))
	if err != nil {
		return fallback
	}
	return v
}

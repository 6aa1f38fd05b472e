package lastfm

// Last.fm API response types.

// searchResponse is the top-level response from artist.search.
type searchResponse struct {
	Results searchResults `json:"results"`
}

type searchResults struct {
	ArtistMatches artistMatches `json:"artistmatches"`
	TotalResults  string        `json:"opensearch:totalResults"`
}

type artistMatches struct {
	Artist []searchArtist `json:"artist"`
}

// searchArtist is a single search result. Counts arrive as strings.
type searchArtist struct {
	Name      string  `json:"name"`
	Listeners string  `json:"listeners"`
	MBID      string  `json:"mbid"`
	URL       string  `json:"url"`
	Image     []image `json:"image"`
}

// infoResponse is the top-level response from artist.getinfo.
type infoResponse struct {
	Artist artistInfo `json:"artist"`
}

type artistInfo struct {
	Name  string      `json:"name"`
	MBID  string      `json:"mbid"`
	URL   string      `json:"url"`
	Image []image     `json:"image"`
	Stats artistStats `json:"stats"`
	Bio   artistBio   `json:"bio"`
	Tags  artistTags  `json:"tags"`
}

type artistStats struct {
	Listeners string `json:"listeners"`
	Playcount string `json:"playcount"`
}

type artistBio struct {
	Summary string `json:"summary"`
	Content string `json:"content"`
}

type artistTags struct {
	Tag []tag `json:"tag"`
}

type tag struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

type image struct {
	URL  string `json:"#text"`
	Size string `json:"size"`
}

// topTracksResponse is the top-level response from artist.gettoptracks.
type topTracksResponse struct {
	TopTracks struct {
		Track []topTrack `json:"track"`
	} `json:"toptracks"`
}

type topTrack struct {
	Name      string `json:"name"`
	Playcount string `json:"playcount"`
	URL       string `json:"url"`
}

// apiError is the body Last.fm sends for failed calls, sometimes with a
// 200 status.
type apiError struct {
	Code    int    `json:"error"`
	Message string `json:"message"`
}

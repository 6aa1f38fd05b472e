package spotify

// artist is the Spotify Web API artist object.
type artist struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Genres       []string     `json:"genres"`
	Popularity   *int         `json:"popularity"`
	Followers    followers    `json:"followers"`
	Images       []image      `json:"images"`
	ExternalURLs externalURLs `json:"external_urls"`
	URI          string       `json:"uri"`
}

type followers struct {
	Total *int64 `json:"total"`
}

// image entries are ordered widest first.
type image struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

type externalURLs struct {
	Spotify string `json:"spotify"`
}

// searchResponse is the response from /v1/search?type=artist.
type searchResponse struct {
	Artists struct {
		Items []artist `json:"items"`
		Total int      `json:"total"`
	} `json:"artists"`
}

// topTracksResponse is the response from /v1/artists/{id}/top-tracks.
type topTracksResponse struct {
	Tracks []track `json:"tracks"`
}

type track struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	ExternalURLs externalURLs `json:"external_urls"`
}

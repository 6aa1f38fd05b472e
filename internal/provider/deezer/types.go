package deezer

// searchResponse is the JSON response from the Deezer artist search endpoint.
type searchResponse struct {
	Data  []artistResult `json:"data"`
	Total int            `json:"total"`
	Next  string         `json:"next,omitempty"`
	Error *apiError      `json:"error,omitempty"`
}

// artistResult is a single artist entry from a Deezer search or artist endpoint.
type artistResult struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Link          string    `json:"link"`
	Picture       string    `json:"picture"`
	PictureMedium string    `json:"picture_medium"`
	PictureBig    string    `json:"picture_big"`
	PictureXL     string    `json:"picture_xl"`
	NbAlbum       *int64    `json:"nb_album"`
	NbFan         *int64    `json:"nb_fan"`
	Type          string    `json:"type"`
	Error         *apiError `json:"error,omitempty"`
}

// topResponse is the JSON response from /artist/{id}/top.
type topResponse struct {
	Data  []trackResult `json:"data"`
	Error *apiError     `json:"error,omitempty"`
}

type trackResult struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	Link  string `json:"link"`
	Rank  *int64 `json:"rank"`
}

// apiError is Deezer's in-body error object. The API answers HTTP 200 even
// for missing entities and quota violations.
type apiError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

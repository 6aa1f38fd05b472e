package youtube

// channelListResponse is the response from channels.list.
type channelListResponse struct {
	Items []channel `json:"items"`
}

type channel struct {
	ID         string            `json:"id"`
	Snippet    channelSnippet    `json:"snippet"`
	Statistics channelStatistics `json:"statistics"`
}

type channelSnippet struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	CustomURL   string     `json:"customUrl"`
	Country     string     `json:"country"`
	Thumbnails  thumbnails `json:"thumbnails"`
}

type thumbnails struct {
	Default *thumbnail `json:"default"`
	Medium  *thumbnail `json:"medium"`
	High    *thumbnail `json:"high"`
}

type thumbnail struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// channelStatistics counts are decimal strings. subscriberCount is omitted
// when the channel hides it.
type channelStatistics struct {
	ViewCount             string `json:"viewCount"`
	SubscriberCount       string `json:"subscriberCount"`
	HiddenSubscriberCount bool   `json:"hiddenSubscriberCount"`
	VideoCount            string `json:"videoCount"`
}

// searchListResponse is the response from search.list with type=channel.
type searchListResponse struct {
	Items []searchResult `json:"items"`
}

type searchResult struct {
	ID struct {
		Kind      string `json:"kind"`
		ChannelID string `json:"channelId"`
	} `json:"id"`
}

// errorResponse is the Google API error envelope.
type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Errors  []struct {
			Reason string `json:"reason"`
			Domain string `json:"domain"`
		} `json:"errors"`
	} `json:"error"`
}

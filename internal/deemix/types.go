package deemix

// ShareBaseURL prefixes a Deezer track id to form a public link.
const ShareBaseURL = "https://www.deezer.com/track/"

// DefaultLimit is the number of hits requested per search.
const DefaultLimit = 10

// searchResponse is the body of GET /api/search?type=track.
type searchResponse struct {
	Data []struct {
		ID     int64  `json:"id"`
		Title  string `json:"title"`
		Artist struct {
			Name string `json:"name"`
		} `json:"artist"`
		Album struct {
			Title string `json:"title"`
		} `json:"album"`
	} `json:"data"`
}

package subsonic

// Subsonic error codes that mean the credentials were refused.
const (
	errWrongCredentials = 40
	errTokenAuthDenied  = 41
)

const (
	apiVersion    = "1.16.1"
	clientName    = "catalogmatch"
	defaultLimit  = 10
	shareEndpoint = "/rest/getSong.view?id="
)

// envelope is the outer JSON object of every Subsonic response.
type envelope struct {
	SubsonicResponse response `json:"subsonic-response"`
}

type response struct {
	Status        string    `json:"status"`
	Error         *apiError `json:"error,omitempty"`
	SearchResult3 struct {
		Song []song `json:"song"`
	} `json:"searchResult3"`
	Playlist struct {
		ID string `json:"id"`
	} `json:"playlist"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type song struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Artist string `json:"artist"`
	Album  string `json:"album"`
}

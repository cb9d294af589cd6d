package deezer

// searchResponse is the JSON response from the Deezer track search endpoint.
type searchResponse struct {
	Data  []trackResult `json:"data"`
	Total int           `json:"total"`
	Next  string        `json:"next,omitempty"`
	Error *apiError     `json:"error,omitempty"`
}

// trackResult is a single track entry from a Deezer search.
type trackResult struct {
	ID         int64        `json:"id"`
	Title      string       `json:"title"`
	TitleShort string       `json:"title_short"`
	Duration   int          `json:"duration"`
	Rank       int          `json:"rank"`
	Preview    string       `json:"preview"`
	Artist     artistResult `json:"artist"`
	Album      albumResult  `json:"album"`
}

// artistResult is the artist embedded in a track result.
type artistResult struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// albumResult is the album embedded in a track result.
type albumResult struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	CoverSmall  string `json:"cover_small"`
	CoverMedium string `json:"cover_medium"`
	CoverBig    string `json:"cover_big"`
	CoverXL     string `json:"cover_xl"`
}

// apiError is returned with HTTP 200 when a request fails.
type apiError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// Deezer error codes that change how a failure is classified.
const (
	errQuota   = 4
	errNoData  = 800
	errInvalid = 600
)

package reccobeats

// featuresResponse is the JSON response from GET /v1/audio-features.
type featuresResponse struct {
	Content []featuresEntry `json:"content"`
}

// featuresEntry is the audio features of one track. Href points at the
// Spotify track the entry was resolved from.
type featuresEntry struct {
	ID   string `json:"id"`
	Href string `json:"href"`
	analysisResponse
}

// analysisResponse is the JSON response from POST /v1/analysis/audio-features.
// Key and mode are only present for catalog entries.
type analysisResponse struct {
	Acousticness     float64 `json:"acousticness"`
	Danceability     float64 `json:"danceability"`
	Energy           float64 `json:"energy"`
	Instrumentalness float64 `json:"instrumentalness"`
	Key              *int    `json:"key,omitempty"`
	Liveness         float64 `json:"liveness"`
	Loudness         float64 `json:"loudness"`
	Mode             *int    `json:"mode,omitempty"`
	Speechiness      float64 `json:"speechiness"`
	Tempo            float64 `json:"tempo"`
	Valence          float64 `json:"valence"`
}

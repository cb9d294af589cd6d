package audiodb

// TheAudioDB API response types.

// ArtistResponse is the top-level response from the artist search endpoint.
// Artists is null when nothing matched.
type ArtistResponse struct {
	Artists []AudioDBArtist `json:"artists"`
}

// AudioDBArtist represents a TheAudioDB artist entity.
type AudioDBArtist struct {
	IDArtist      string `json:"idArtist"`
	Artist        string `json:"strArtist"`
	MusicBrainzID string `json:"strMusicBrainzID"`
	Genre         string `json:"strGenre"`
	Style         string `json:"strStyle"`
	Mood          string `json:"strMood"`
	Country       string `json:"strCountry"`
}

package musicbrainz

// MusicBrainz API response types.

// RecordingSearchResponse is the top-level response from the recording search endpoint.
type RecordingSearchResponse struct {
	Created    string        `json:"created"`
	Count      int           `json:"count"`
	Offset     int           `json:"offset"`
	Recordings []MBRecording `json:"recordings"`
}

// MBRecording represents a MusicBrainz recording entity. Score is only set
// on search results.
type MBRecording struct {
	ID           string           `json:"id"`
	Title        string           `json:"title"`
	Score        int              `json:"score"`
	Length       int              `json:"length"`
	ArtistCredit []MBArtistCredit `json:"artist-credit"`
	Releases     []MBRelease      `json:"releases"`
	Genres       []MBGenre        `json:"genres"`
	Tags         []MBTag          `json:"tags"`
}

// MBArtistCredit is one entry of an artist credit, with the name the artist
// was credited as.
type MBArtistCredit struct {
	Name       string   `json:"name"`
	JoinPhrase string   `json:"joinphrase"`
	Artist     MBArtist `json:"artist"`
}

// MBRelease represents a MusicBrainz release entity.
type MBRelease struct {
	ID           string         `json:"id"`
	Title        string         `json:"title"`
	Status       string         `json:"status"`
	Date         string         `json:"date"`
	Country      string         `json:"country"`
	ReleaseGroup MBReleaseGroup `json:"release-group"`
	LabelInfo    []MBLabelInfo  `json:"label-info"`
}

// MBReleaseGroup represents a MusicBrainz release group entity.
type MBReleaseGroup struct {
	ID               string   `json:"id"`
	Title            string   `json:"title"`
	PrimaryType      string   `json:"primary-type"`
	SecondaryTypes   []string `json:"secondary-types"`
	FirstReleaseDate string   `json:"first-release-date"`
}

// MBLabelInfo links a release to a label.
type MBLabelInfo struct {
	CatalogNumber string   `json:"catalog-number"`
	Label         *MBLabel `json:"label"`
}

// MBLabel represents a record label.
type MBLabel struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// MBArtist represents a MusicBrainz artist entity.
type MBArtist struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	SortName       string    `json:"sort-name"`
	Type           string    `json:"type"`
	Disambiguation string    `json:"disambiguation"`
	Country        string    `json:"country"`
	Genres         []MBGenre `json:"genres"`
	Tags           []MBTag   `json:"tags"`
}

// MBTag represents a user-submitted tag.
type MBTag struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// MBGenre represents a genre classification.
type MBGenre struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

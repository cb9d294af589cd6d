package provider

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/sydlexius/earmark/internal/match"
)

// ProviderName uniquely identifies an external catalog.
type ProviderName string

// Known provider names.
const (
	NameMusicBrainz ProviderName = "musicbrainz"
	NameCoverArt    ProviderName = "coverart"
	NameLastFM      ProviderName = "lastfm"
	NameAudioDB     ProviderName = "audiodb"
	NameDeezer      ProviderName = "deezer"
	NameSpotify     ProviderName = "spotify"
	NameReccoBeats  ProviderName = "reccobeats"
	NamePreview     ProviderName = "preview"
)

// AllProviderNames returns all known provider names in display order.
func AllProviderNames() []ProviderName {
	return []ProviderName{
		NameMusicBrainz,
		NameCoverArt,
		NameLastFM,
		NameAudioDB,
		NameDeezer,
		NameSpotify,
		NameReccoBeats,
		NamePreview,
	}
}

// Valid reports whether n is a known provider.
func (n ProviderName) Valid() bool {
	return slices.Contains(AllProviderNames(), n)
}

// DisplayName returns a human-readable name for the provider.
func (n ProviderName) DisplayName() string {
	switch n {
	case NameMusicBrainz:
		return "MusicBrainz"
	case NameCoverArt:
		return "Cover Art Archive"
	case NameLastFM:
		return "Last.fm"
	case NameAudioDB:
		return "TheAudioDB"
	case NameDeezer:
		return "Deezer"
	case NameSpotify:
		return "Spotify"
	case NameReccoBeats:
		return "ReccoBeats"
	case NamePreview:
		return "Preview download"
	default:
		return string(n)
	}
}

// AccessTier classifies a provider's access model.
type AccessTier string

// Access tier constants.
const (
	TierFree    AccessTier = "free"     // No key
	TierFreeKey AccessTier = "free_key" // Free account/sign-up required
)

// Capability documents a provider's access model.
type Capability struct {
	Tier    AccessTier `json:"tier"`
	HelpURL string     `json:"help_url,omitempty"`
}

// Capabilities returns the known capability metadata for each provider.
func Capabilities() map[ProviderName]Capability {
	return map[ProviderName]Capability{
		NameMusicBrainz: {Tier: TierFree},
		NameCoverArt:    {Tier: TierFree},
		NameLastFM:      {Tier: TierFreeKey, HelpURL: "https://www.last.fm/api/account/create"},
		NameAudioDB:     {Tier: TierFreeKey, HelpURL: "https://www.theaudiodb.com/api_guide.php"},
		NameDeezer:      {Tier: TierFree},
		NameSpotify:     {Tier: TierFreeKey, HelpURL: "https://developer.spotify.com/dashboard"},
		NameReccoBeats:  {Tier: TierFree},
		NamePreview:     {Tier: TierFree},
	}
}

// Source is implemented by every adapter.
type Source interface {
	Name() ProviderName
	RequiresAuth() bool
}

// ArtistCredit is one credited artist on a recording.
type ArtistCredit struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

// Release is a release a recording appears on.
type Release struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	Status         string   `json:"status,omitempty"`
	Date           string   `json:"date,omitempty"`
	PrimaryType    string   `json:"primary_type,omitempty"`
	SecondaryTypes []string `json:"secondary_types,omitempty"`
	Label          string   `json:"label,omitempty"`
}

// Year returns the four-digit year of the release date, or 0.
func (r Release) Year() int {
	if len(r.Date) < 4 {
		return 0
	}
	y := 0
	for _, c := range r.Date[:4] {
		if c < '0' || c > '9' {
			return 0
		}
		y = y*10 + int(c-'0')
	}
	return y
}

// Recording is the full detail of a primary catalog recording.
type Recording struct {
	ID       string         `json:"id"`
	Title    string         `json:"title"`
	LengthMS int            `json:"length_ms,omitempty"`
	Artists  []ArtistCredit `json:"artists"`
	Releases []Release      `json:"releases,omitempty"`
	Genres   []string       `json:"genres,omitempty"`
	Tags     []string       `json:"tags,omitempty"`
}

// Artist is the detail of a primary catalog artist.
type Artist struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Country string   `json:"country,omitempty"`
	Type    string   `json:"type,omitempty"`
	Genres  []string `json:"genres,omitempty"`
}

// CoverArt holds artwork URLs at three sizes.
type CoverArt struct {
	Small  string `json:"small,omitempty"`
	Medium string `json:"medium,omitempty"`
	Large  string `json:"large,omitempty"`
}

// Empty reports whether no size is set.
func (c CoverArt) Empty() bool {
	return c.Small == "" && c.Medium == "" && c.Large == ""
}

// Tag is a community tag with its weight.
type Tag struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// TrackMatch is a track found by artist and title in a catalog that offers
// artwork and a short audio preview.
type TrackMatch struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Artist     string   `json:"artist"`
	Album      string   `json:"album,omitempty"`
	Art        CoverArt `json:"art"`
	PreviewURL string   `json:"preview_url,omitempty"`
}

// AudioFeatures are the acoustic descriptors of a track.
type AudioFeatures struct {
	Acousticness     float64 `json:"acousticness"`
	Danceability     float64 `json:"danceability"`
	Energy           float64 `json:"energy"`
	Instrumentalness float64 `json:"instrumentalness"`
	Key              int     `json:"key"`
	Liveness         float64 `json:"liveness"`
	Loudness         float64 `json:"loudness"`
	Mode             int     `json:"mode"`
	Speechiness      float64 `json:"speechiness"`
	Tempo            float64 `json:"tempo"`
	Valence          float64 `json:"valence"`
}

// RecordingCatalog is the primary catalog.
type RecordingCatalog interface {
	Source
	// SearchRecordings runs a Lucene query and returns scored candidates.
	SearchRecordings(ctx context.Context, query string, limit int) ([]match.Candidate, error)
	GetRecording(ctx context.Context, id string) (*Recording, error)
	GetRelease(ctx context.Context, id string) (*Release, error)
	GetArtist(ctx context.Context, id string) (*Artist, error)
}

// ArtworkSource serves cover art for a primary catalog release id.
type ArtworkSource interface {
	Source
	GetCoverArt(ctx context.Context, releaseID string) (*CoverArt, error)
}

// TagSource serves community tags for a track.
type TagSource interface {
	Source
	GetTrackTags(ctx context.Context, artist, title string) ([]Tag, error)
}

// ArtistGenreSource serves unverified artist-level genres.
type ArtistGenreSource interface {
	Source
	GetArtistGenres(ctx context.Context, artist string) ([]string, error)
}

// TrackLookup finds a single track by artist and title.
type TrackLookup interface {
	Source
	FindTrack(ctx context.Context, artist, title string) (*TrackMatch, error)
}

// TrackSearcher is a secondary catalog searched by free text.
type TrackSearcher interface {
	Source
	// Queries returns the catalog's own query strings for a title and its
	// artists, most precise first.
	Queries(title string, artists []string) []string
	SearchTracks(ctx context.Context, query string, limit int) ([]match.Candidate, error)
}

// FeatureCatalog serves audio features by secondary catalog track id.
type FeatureCatalog interface {
	Source
	GetFeaturesByID(ctx context.Context, id string) (*AudioFeatures, error)
}

// AudioAnalyzer derives audio features from a short audio clip.
type AudioAnalyzer interface {
	Source
	AnalyzeAudio(ctx context.Context, filename string, data []byte) (*AudioFeatures, error)
}

// PreviewFetcher downloads a short audio preview.
type PreviewFetcher interface {
	Source
	// Fetch returns a filename suited to the detected audio format and the
	// clip bytes.
	Fetch(ctx context.Context, url string) (string, []byte, error)
}

// ErrProviderUnavailable indicates a transient failure (rate-limited, timeout, server error).
type ErrProviderUnavailable struct {
	Provider   ProviderName
	Cause      error
	RetryAfter time.Duration
}

func (e *ErrProviderUnavailable) Error() string {
	return fmt.Sprintf("provider %s unavailable: %v", e.Provider, e.Cause)
}

func (e *ErrProviderUnavailable) Unwrap() error { return e.Cause }

// ErrNotFound indicates the provider has no data for the requested ID.
type ErrNotFound struct {
	Provider ProviderName
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("provider %s: %s not found", e.Provider, e.ID)
}

// ErrAuthRequired indicates the provider needs an API key but none is configured
// or the configured one was rejected.
type ErrAuthRequired struct {
	Provider ProviderName
}

func (e *ErrAuthRequired) Error() string {
	return fmt.Sprintf("provider %s: API key not configured", e.Provider)
}

// ErrPermanent indicates a request the provider will never answer
// differently: a 4xx other than 429, or a malformed response.
type ErrPermanent struct {
	Provider   ProviderName
	StatusCode int
	Cause      error
}

func (e *ErrPermanent) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("provider %s: HTTP %d: %v", e.Provider, e.StatusCode, e.Cause)
	}
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Cause)
}

func (e *ErrPermanent) Unwrap() error { return e.Cause }

// IsRetryable reports whether err is a transient provider failure.
func IsRetryable(err error) bool {
	var unavailable *ErrProviderUnavailable
	return errors.As(err, &unavailable)
}

// IsNotFound reports whether err means the provider has no such entity.
func IsNotFound(err error) bool {
	var nf *ErrNotFound
	return errors.As(err, &nf)
}

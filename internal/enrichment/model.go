// Package enrichment resolves observed tracks against the music catalogs and
// keeps one enrichment record per track.
package enrichment

import (
	"time"

	"github.com/sydlexius/earmark/internal/provider"
)

// Status is the lifecycle state of an enrichment record.
type Status string

// Record statuses.
const (
	StatusPending  Status = "PENDING"
	StatusEnriched Status = "ENRICHED"
	StatusNotFound Status = "NOT_FOUND"
	StatusFailed   Status = "FAILED"
)

// GenreSource ranks where a genre list came from. Higher values win.
type GenreSource int

// Genre provenance, lowest first.
const (
	GenreNone GenreSource = iota
	GenreArtist
	GenreCatalogTrack
	GenreCommunityTags
)

// String returns the provenance name.
func (g GenreSource) String() string {
	switch g {
	case GenreArtist:
		return "artist"
	case GenreCatalogTrack:
		return "catalog_track"
	case GenreCommunityTags:
		return "community_tags"
	default:
		return "none"
	}
}

// FeaturesSource records how audio features were obtained.
type FeaturesSource string

// Audio feature provenance.
const (
	FeaturesCatalogID     FeaturesSource = "catalog_id"
	FeaturesCatalogSearch FeaturesSource = "catalog_search"
	FeaturesAudioAnalysis FeaturesSource = "audio_analysis"
)

// Field names used as keys of Record.Sources and in merge reports.
const (
	FieldAlbumTitle    = "album_title"
	FieldReleaseYear   = "release_year"
	FieldReleaseType   = "release_type"
	FieldArtwork       = "artwork"
	FieldArtistCountry = "artist_country"
	FieldArtistType    = "artist_type"
	FieldRecordLabel   = "record_label"
	FieldTags          = "tags"
	FieldGenres        = "genres"
	FieldMBRecordingID = "mb_recording_id"
	FieldMBReleaseID   = "mb_release_id"
	FieldMBArtistID    = "mb_artist_id"
	FieldSpotifyID     = "spotify_id"
	FieldDeezerID      = "deezer_id"
	FieldAudioFeatures = "audio_features"
)

// SourceDedup marks a field copied from another track's record.
const SourceDedup = "dedup"

// Record is the enrichment state of one observed track.
type Record struct {
	ID             string                  `json:"id"`
	TrackID        string                  `json:"track_id"`
	Status         Status                  `json:"status"`
	AlbumTitle     string                  `json:"album_title,omitempty"`
	ReleaseYear    int                     `json:"release_year,omitempty"`
	ReleaseType    string                  `json:"release_type,omitempty"`
	Artwork        provider.CoverArt       `json:"artwork"`
	ArtistCountry  string                  `json:"artist_country,omitempty"`
	ArtistType     string                  `json:"artist_type,omitempty"`
	RecordLabel    string                  `json:"record_label,omitempty"`
	Tags           []string                `json:"tags,omitempty"`
	Genres         []string                `json:"genres,omitempty"`
	GenreSource    GenreSource             `json:"genre_source"`
	MBRecordingID  string                  `json:"mb_recording_id,omitempty"`
	MBReleaseID    string                  `json:"mb_release_id,omitempty"`
	MBArtistID     string                  `json:"mb_artist_id,omitempty"`
	SpotifyID      string                  `json:"spotify_id,omitempty"`
	DeezerID       string                  `json:"deezer_id,omitempty"`
	AudioFeatures  *provider.AudioFeatures `json:"audio_features,omitempty"`
	FeaturesSource FeaturesSource          `json:"features_source,omitempty"`
	Sources        map[string]string       `json:"sources,omitempty"`
	LastError      string                  `json:"last_error,omitempty"`
	RetryCount     int                     `json:"retry_count"`
	LastAttemptAt  *time.Time              `json:"last_attempt_at,omitempty"`
	CachedAt       *time.Time              `json:"cached_at,omitempty"`
	CreatedAt      time.Time               `json:"created_at"`
	UpdatedAt      time.Time               `json:"updated_at"`
}

// NewPending returns an unsaved PENDING record for a track.
func NewPending(trackID string) *Record {
	return &Record{
		TrackID: trackID,
		Status:  StatusPending,
		Sources: map[string]string{},
	}
}

// IsFresh reports whether the record is ENRICHED and was cached within ttl.
func (r *Record) IsFresh(now time.Time, ttl time.Duration) bool {
	if r == nil || r.Status != StatusEnriched || r.CachedAt == nil {
		return false
	}
	return now.Sub(*r.CachedAt) < ttl
}

// HasCoreData reports whether genres, label, year, and artwork are all set.
func (r *Record) HasCoreData() bool {
	return len(r.Genres) > 0 &&
		r.RecordLabel != "" &&
		r.ReleaseYear > 0 &&
		!r.Artwork.Empty()
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	c := *r
	c.Tags = append([]string(nil), r.Tags...)
	c.Genres = append([]string(nil), r.Genres...)
	if r.AudioFeatures != nil {
		f := *r.AudioFeatures
		c.AudioFeatures = &f
	}
	c.Sources = make(map[string]string, len(r.Sources))
	for k, v := range r.Sources {
		c.Sources[k] = v
	}
	if r.LastAttemptAt != nil {
		t := *r.LastAttemptAt
		c.LastAttemptAt = &t
	}
	if r.CachedAt != nil {
		t := *r.CachedAt
		c.CachedAt = &t
	}
	return &c
}

// Outcome names a Result variant.
type Outcome string

// Outcomes.
const (
	OutcomeCacheHit        Outcome = "cache_hit"
	OutcomeAlreadyEnriched Outcome = "already_enriched"
	OutcomeSuccess         Outcome = "success"
	OutcomeNotFound        Outcome = "not_found"
	OutcomeError           Outcome = "error"
	OutcomeAlreadyHasData  Outcome = "already_has_data"
	OutcomeSkipped         Outcome = "skipped"
)

// Result is what Enrich or Supplement did. It is one of CacheHit,
// AlreadyEnriched, Success, NotFound, Error, AlreadyHasData, or Skipped.
type Result interface {
	Outcome() Outcome
}

// CacheHit means the stored record is fresh and no provider was called.
type CacheHit struct {
	Record *Record `json:"record"`
}

// AlreadyEnriched means the track was already resolved as NOT_FOUND and
// re-enrichment was not forced.
type AlreadyEnriched struct {
	Record *Record `json:"record"`
}

// Success means at least one catalog step matched and the record was saved
// as ENRICHED.
type Success struct {
	Record       *Record  `json:"record"`
	FieldsAdded  []string `json:"fields_added,omitempty"`
	Deduplicated bool     `json:"deduplicated,omitempty"`
}

// NotFound means no catalog matched. Skipped is set when the track was not
// attempted at all, e.g. because its artist is unknown.
type NotFound struct {
	Reason  string  `json:"reason"`
	Skipped bool    `json:"skipped,omitempty"`
	Record  *Record `json:"record,omitempty"`
}

// Error means the attempt failed. Retryable errors were recorded as FAILED
// and will be picked up by a later batch.
type Error struct {
	Message   string  `json:"message"`
	Retryable bool    `json:"retryable"`
	Record    *Record `json:"record,omitempty"`
}

// AlreadyHasData means a supplement found nothing missing.
type AlreadyHasData struct {
	Record *Record `json:"record"`
}

// Skipped means a supplement was not attempted.
type Skipped struct {
	Reason string `json:"reason"`
}

// Outcome implements Result.
func (CacheHit) Outcome() Outcome { return OutcomeCacheHit }

// Outcome implements Result.
func (AlreadyEnriched) Outcome() Outcome { return OutcomeAlreadyEnriched }

// Outcome implements Result.
func (Success) Outcome() Outcome { return OutcomeSuccess }

// Outcome implements Result.
func (NotFound) Outcome() Outcome { return OutcomeNotFound }

// Outcome implements Result.
func (Error) Outcome() Outcome { return OutcomeError }

// Outcome implements Result.
func (AlreadyHasData) Outcome() Outcome { return OutcomeAlreadyHasData }

// Outcome implements Result.
func (Skipped) Outcome() Outcome { return OutcomeSkipped }

// Resolved holds the fields gathered from the catalogs for one track before
// they are merged into a record. Sources maps each set field to the
// provider that supplied it.
type Resolved struct {
	AlbumTitle     string
	ReleaseYear    int
	ReleaseType    string
	Artwork        provider.CoverArt
	ArtistCountry  string
	ArtistType     string
	RecordLabel    string
	Tags           []string
	Genres         []string
	GenreSource    GenreSource
	MBRecordingID  string
	MBReleaseID    string
	MBArtistID     string
	SpotifyID      string
	DeezerID       string
	Features       *provider.AudioFeatures
	FeaturesSource FeaturesSource
	Sources        map[string]string
}

func newResolved() *Resolved {
	return &Resolved{Sources: map[string]string{}}
}

func (in *Resolved) set(field string, source provider.ProviderName) {
	in.Sources[field] = string(source)
}

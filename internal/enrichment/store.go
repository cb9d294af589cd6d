package enrichment

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sydlexius/earmark/internal/provider"
)

// Store is the persistence contract for enrichment records.
type Store interface {
	// Get returns the record for a track, or nil if none exists.
	Get(ctx context.Context, trackID string) (*Record, error)
	// FindByExternalID returns the most recently cached ENRICHED record
	// with the given MusicBrainz recording id, ignoring excludeTrackID.
	FindByExternalID(ctx context.Context, mbRecordingID, excludeTrackID string) (*Record, error)
	Upsert(ctx context.Context, r *Record) error
	MarkForReenrichment(ctx context.Context, trackID string) error
	// CreatePending inserts a PENDING record if the track has none and
	// reports whether one was inserted.
	CreatePending(ctx context.Context, trackID string) (bool, error)
	// ListEligible returns track ids of PENDING and FAILED records whose
	// retry count is below maxRetries, PENDING first, oldest attempt first.
	ListEligible(ctx context.Context, maxRetries, limit int) ([]string, error)
}

// recordColumns is the ordered list of columns for SELECT queries.
const recordColumns = `id, track_id, status,
	album_title, release_year, release_type,
	artwork_small, artwork_medium, artwork_large,
	artist_country, artist_type, record_label,
	tags, genres, genre_source,
	mb_recording_id, mb_release_id, mb_artist_id, spotify_id, deezer_id,
	audio_features, features_source, sources,
	last_error, retry_count, last_attempt_at, cached_at, created_at, updated_at`

// SQLStore implements Store on the track_enrichment table.
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore creates a Store backed by db.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

// Get returns the record for a track, or nil if none exists.
func (s *SQLStore) Get(ctx context.Context, trackID string) (*Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM track_enrichment WHERE track_id = ?`, trackID)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting enrichment for track %s: %w", trackID, err)
	}
	return r, nil
}

// FindByExternalID returns the most recently cached ENRICHED record for a
// MusicBrainz recording id held by another track.
func (s *SQLStore) FindByExternalID(ctx context.Context, mbRecordingID, excludeTrackID string) (*Record, error) {
	if mbRecordingID == "" {
		return nil, nil
	}
	row := s.db.QueryRowContext(ctx, `
		SELECT `+recordColumns+` FROM track_enrichment
		WHERE mb_recording_id = ? AND track_id != ? AND status = ?
		ORDER BY cached_at DESC
		LIMIT 1`,
		mbRecordingID, excludeTrackID, string(StatusEnriched))
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding enrichment by recording id: %w", err)
	}
	return r, nil
}

// Upsert inserts the record or replaces the existing row for its track.
func (s *SQLStore) Upsert(ctx context.Context, r *Record) error {
	if r.TrackID == "" {
		return fmt.Errorf("upserting enrichment: track id is required")
	}
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.Status == "" {
		r.Status = StatusPending
	}
	now := time.Now().UTC()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.UpdatedAt = now

	features, err := marshalFeatures(r.AudioFeatures)
	if err != nil {
		return fmt.Errorf("encoding audio features: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO track_enrichment (`+recordColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(track_id) DO UPDATE SET
			status = excluded.status,
			album_title = excluded.album_title,
			release_year = excluded.release_year,
			release_type = excluded.release_type,
			artwork_small = excluded.artwork_small,
			artwork_medium = excluded.artwork_medium,
			artwork_large = excluded.artwork_large,
			artist_country = excluded.artist_country,
			artist_type = excluded.artist_type,
			record_label = excluded.record_label,
			tags = excluded.tags,
			genres = excluded.genres,
			genre_source = excluded.genre_source,
			mb_recording_id = excluded.mb_recording_id,
			mb_release_id = excluded.mb_release_id,
			mb_artist_id = excluded.mb_artist_id,
			spotify_id = excluded.spotify_id,
			deezer_id = excluded.deezer_id,
			audio_features = excluded.audio_features,
			features_source = excluded.features_source,
			sources = excluded.sources,
			last_error = excluded.last_error,
			retry_count = excluded.retry_count,
			last_attempt_at = excluded.last_attempt_at,
			cached_at = excluded.cached_at,
			updated_at = excluded.updated_at
	`,
		r.ID, r.TrackID, string(r.Status),
		r.AlbumTitle, r.ReleaseYear, r.ReleaseType,
		r.Artwork.Small, r.Artwork.Medium, r.Artwork.Large,
		r.ArtistCountry, r.ArtistType, r.RecordLabel,
		marshalStringSlice(r.Tags), marshalStringSlice(r.Genres), int(r.GenreSource),
		r.MBRecordingID, r.MBReleaseID, r.MBArtistID, r.SpotifyID, r.DeezerID,
		features, string(r.FeaturesSource), marshalStringMap(r.Sources),
		r.LastError, r.RetryCount, formatNullableTime(r.LastAttemptAt), formatNullableTime(r.CachedAt),
		r.CreatedAt.Format(time.RFC3339), now.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upserting enrichment for track %s: %w", r.TrackID, err)
	}
	return nil
}

// MarkForReenrichment resets a record to PENDING and clears its retry
// count, cache timestamp, and last error. Resolved fields are kept so a
// later supplement can build on them.
func (s *SQLStore) MarkForReenrichment(ctx context.Context, trackID string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := s.db.ExecContext(ctx, `
		UPDATE track_enrichment SET
			status = ?, retry_count = 0, cached_at = NULL, last_error = '', updated_at = ?
		WHERE track_id = ?`,
		string(StatusPending), now, trackID)
	if err != nil {
		return fmt.Errorf("marking track %s for re-enrichment: %w", trackID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := s.CreatePending(ctx, trackID); err != nil {
			return err
		}
	}
	return nil
}

// CreatePending inserts a PENDING record if the track has none.
func (s *SQLStore) CreatePending(ctx context.Context, trackID string) (bool, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO track_enrichment (id, track_id, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(track_id) DO NOTHING`,
		uuid.New().String(), trackID, string(StatusPending), now, now)
	if err != nil {
		return false, fmt.Errorf("creating pending enrichment for track %s: %w", trackID, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// ListEligible returns track ids waiting for enrichment.
func (s *SQLStore) ListEligible(ctx context.Context, maxRetries, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT track_id FROM track_enrichment
		WHERE status IN (?, ?) AND retry_count < ?
		ORDER BY CASE status WHEN ? THEN 0 ELSE 1 END,
			COALESCE(last_attempt_at, '') ASC,
			created_at ASC
		LIMIT ?`,
		string(StatusPending), string(StatusFailed), maxRetries, string(StatusPending), limit)
	if err != nil {
		return nil, fmt.Errorf("listing eligible enrichments: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning eligible row: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating eligible rows: %w", err)
	}
	return ids, nil
}

// CountByStatus returns the number of records in each status.
func (s *SQLStore) CountByStatus(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM track_enrichment GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("counting enrichments: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	counts := map[Status]int{}
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scanning status count: %w", err)
		}
		counts[Status(status)] = n
	}
	return counts, rows.Err()
}

func scanRecord(row interface{ Scan(...any) error }) (*Record, error) {
	var r Record
	var status, tags, genres, features, featuresSource, sources string
	var genreSource int
	var lastAttemptAt, cachedAt sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(
		&r.ID, &r.TrackID, &status,
		&r.AlbumTitle, &r.ReleaseYear, &r.ReleaseType,
		&r.Artwork.Small, &r.Artwork.Medium, &r.Artwork.Large,
		&r.ArtistCountry, &r.ArtistType, &r.RecordLabel,
		&tags, &genres, &genreSource,
		&r.MBRecordingID, &r.MBReleaseID, &r.MBArtistID, &r.SpotifyID, &r.DeezerID,
		&features, &featuresSource, &sources,
		&r.LastError, &r.RetryCount, &lastAttemptAt, &cachedAt, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	r.Status = Status(status)
	r.Tags = unmarshalStringSlice(tags)
	r.Genres = unmarshalStringSlice(genres)
	r.GenreSource = GenreSource(genreSource)
	r.FeaturesSource = FeaturesSource(featuresSource)
	r.Sources = unmarshalStringMap(sources)
	if features != "" {
		var f provider.AudioFeatures
		if err := json.Unmarshal([]byte(features), &f); err == nil {
			r.AudioFeatures = &f
		}
	}
	r.CreatedAt = parseTime(createdAt)
	r.UpdatedAt = parseTime(updatedAt)
	if lastAttemptAt.Valid {
		t := parseTime(lastAttemptAt.String)
		r.LastAttemptAt = &t
	}
	if cachedAt.Valid {
		t := parseTime(cachedAt.String)
		r.CachedAt = &t
	}
	return &r, nil
}

func marshalFeatures(f *provider.AudioFeatures) (string, error) {
	if f == nil {
		return "", nil
	}
	data, err := json.Marshal(f)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func marshalStringSlice(s []string) string {
	if s == nil {
		return "[]"
	}
	data, _ := json.Marshal(s)
	return string(data)
}

func unmarshalStringSlice(data string) []string {
	if data == "" || data == "[]" {
		return nil
	}
	var result []string
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		return nil
	}
	return result
}

func marshalStringMap(m map[string]string) string {
	if m == nil {
		return "{}"
	}
	data, _ := json.Marshal(m)
	return string(data)
}

func unmarshalStringMap(data string) map[string]string {
	result := map[string]string{}
	if data == "" || data == "{}" {
		return result
	}
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		return map[string]string{}
	}
	return result
}

func formatNullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

// parseTime parses a time string, handling both RFC3339 and SQLite datetime formats.
func parseTime(s string) time.Time {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		return t
	}
	return time.Time{}
}

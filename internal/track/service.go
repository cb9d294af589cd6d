package track

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a track id does not exist.
var ErrNotFound = errors.New("track not found")

// trackColumns is the ordered list of columns for SELECT queries.
const trackColumns = `id, title, artist, album, duration_ms, spotify_id, preview_url,
	play_count, last_played_at, created_at, updated_at`

// Service provides observed-track data operations.
type Service struct {
	db *sql.DB
}

// NewService creates a track service.
func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// Create inserts a new track.
func (s *Service) Create(ctx context.Context, t *Track) error {
	if t.Title == "" {
		return fmt.Errorf("creating track: title is required")
	}
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tracks (`+trackColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		t.ID, t.Title, t.Artist, t.Album, t.DurationMS, t.SpotifyID, t.PreviewURL,
		t.PlayCount, formatNullableTime(t.LastPlayedAt),
		now.Format(time.RFC3339), now.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("creating track: %w", err)
	}
	return nil
}

// Observe records a play. The first observation of a (title, artist) pair
// creates the track; later ones bump its play count and fill in album,
// duration, and external ids that were not known before. It reports whether
// the track was created.
func (s *Service) Observe(ctx context.Context, o Observation) (*Track, bool, error) {
	o.Normalize()
	if o.Title == "" {
		return nil, false, fmt.Errorf("observing track: title is required")
	}

	now := time.Now().UTC()
	playedAt := now
	if o.PlayedAt != nil {
		playedAt = o.PlayedAt.UTC()
	}

	existing, err := s.getByTitleArtist(ctx, o.Title, o.Artist)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		t := &Track{
			Title:        o.Title,
			Artist:       o.Artist,
			Album:        o.Album,
			DurationMS:   o.DurationMS,
			SpotifyID:    o.SpotifyID,
			PreviewURL:   o.PreviewURL,
			PlayCount:    1,
			LastPlayedAt: &playedAt,
		}
		if err := s.Create(ctx, t); err != nil {
			return nil, false, err
		}
		return t, true, nil
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE tracks SET
			play_count = play_count + 1,
			last_played_at = CASE WHEN last_played_at IS NULL OR last_played_at < ? THEN ? ELSE last_played_at END,
			album = CASE WHEN album = '' THEN ? ELSE album END,
			duration_ms = CASE WHEN duration_ms = 0 THEN ? ELSE duration_ms END,
			spotify_id = CASE WHEN spotify_id = '' THEN ? ELSE spotify_id END,
			preview_url = CASE WHEN ? != '' THEN ? ELSE preview_url END,
			updated_at = ?
		WHERE id = ?
	`,
		playedAt.Format(time.RFC3339), playedAt.Format(time.RFC3339),
		o.Album, o.DurationMS, o.SpotifyID,
		o.PreviewURL, o.PreviewURL,
		now.Format(time.RFC3339), existing.ID,
	)
	if err != nil {
		return nil, false, fmt.Errorf("recording play: %w", err)
	}

	t, err := s.Get(ctx, existing.ID)
	if err != nil {
		return nil, false, err
	}
	return t, false, nil
}

// Get retrieves a track by primary key. It returns an error wrapping
// ErrNotFound if the id does not exist.
func (s *Service) Get(ctx context.Context, id string) (*Track, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+trackColumns+` FROM tracks WHERE id = ?`, id)
	t, err := scanTrack(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("getting track by id: %w", err)
	}
	return t, nil
}

func (s *Service) getByTitleArtist(ctx context.Context, title, artist string) (*Track, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+trackColumns+` FROM tracks WHERE title = ? AND artist = ?`, title, artist)
	t, err := scanTrack(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting track by title and artist: %w", err)
	}
	return t, nil
}

// SetPreviewURL back-fills a track's audio preview URL.
func (s *Service) SetPreviewURL(ctx context.Context, id, previewURL string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := s.db.ExecContext(ctx,
		`UPDATE tracks SET preview_url = ?, updated_at = ? WHERE id = ?`, previewURL, now, id)
	if err != nil {
		return fmt.Errorf("setting preview url: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// List returns a paginated list of tracks and the total count.
func (s *Service) List(ctx context.Context, params ListParams) ([]Track, int, error) {
	params.Validate()

	var (
		where string
		args  []any
	)
	if params.Search != "" {
		where = " WHERE title LIKE ? OR artist LIKE ?"
		like := "%" + params.Search + "%"
		args = append(args, like, like)
	}

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM tracks"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting tracks: %w", err)
	}

	orderCol := params.Sort
	if params.Order == "desc" {
		orderCol += " DESC"
	} else {
		orderCol += " ASC"
	}

	offset := (params.Page - 1) * params.PageSize
	query := `SELECT ` + trackColumns + ` FROM tracks` + where + //nolint:gosec // G202: orderCol is from validated params, not user input
		` ORDER BY ` + orderCol + `, id ASC` +
		` LIMIT ? OFFSET ?`
	args = append(args, params.PageSize, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing tracks: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var tracks []Track
	for rows.Next() {
		t, err := scanTrack(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scanning track row: %w", err)
		}
		tracks = append(tracks, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating track rows: %w", err)
	}
	return tracks, total, nil
}

func scanTrack(row interface{ Scan(...any) error }) (*Track, error) {
	var t Track
	var lastPlayedAt sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(
		&t.ID, &t.Title, &t.Artist, &t.Album, &t.DurationMS, &t.SpotifyID, &t.PreviewURL,
		&t.PlayCount, &lastPlayedAt, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.CreatedAt = parseTime(createdAt)
	t.UpdatedAt = parseTime(updatedAt)
	if lastPlayedAt.Valid {
		lp := parseTime(lastPlayedAt.String)
		t.LastPlayedAt = &lp
	}
	return &t, nil
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

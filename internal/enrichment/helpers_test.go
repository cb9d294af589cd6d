package enrichment

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/sydlexius/earmark/internal/database"
	"github.com/sydlexius/earmark/internal/match"
	"github.com/sydlexius/earmark/internal/provider"
	"github.com/sydlexius/earmark/internal/track"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()
	db, err := database.Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	if err := database.Migrate(ctx, db); err != nil {
		t.Fatalf("running migrations: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.Retry = provider.RetryPolicy{MaxRetries: 1, Delay: time.Millisecond, MaxRetryAfter: time.Millisecond}
	return opts
}

func createTrack(t *testing.T, svc *track.Service, title, artist string) *track.Track {
	t.Helper()
	tr := &track.Track{Title: title, Artist: artist}
	if err := svc.Create(context.Background(), tr); err != nil {
		t.Fatalf("creating track: %v", err)
	}
	return tr
}

// calls counts method invocations on a mock.
type calls struct {
	mu sync.Mutex
	n  map[string]int
}

func (c *calls) inc(method string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.n == nil {
		c.n = map[string]int{}
	}
	c.n[method]++
}

func (c *calls) get(method string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n[method]
}

func (c *calls) total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	sum := 0
	for _, v := range c.n {
		sum += v
	}
	return sum
}

type mockCatalog struct {
	calls
	// candidates maps a query to its hits; "*" answers any other query.
	candidates map[string][]match.Candidate
	recordings map[string]*provider.Recording
	releases   map[string]*provider.Release
	artists    map[string]*provider.Artist
	searchErr  error
	onSearch   func()
	panicMsg   string
	queries    []string
}

func (m *mockCatalog) Name() provider.ProviderName { return provider.NameMusicBrainz }
func (m *mockCatalog) RequiresAuth() bool          { return false }

func (m *mockCatalog) SearchRecordings(_ context.Context, query string, _ int) ([]match.Candidate, error) {
	m.inc("search")
	m.queries = append(m.queries, query)
	if m.panicMsg != "" {
		panic(m.panicMsg)
	}
	if m.onSearch != nil {
		m.onSearch()
	}
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	if c, ok := m.candidates[query]; ok {
		return c, nil
	}
	return m.candidates["*"], nil
}

func (m *mockCatalog) GetRecording(_ context.Context, id string) (*provider.Recording, error) {
	m.inc("recording")
	if r, ok := m.recordings[id]; ok {
		return r, nil
	}
	return nil, &provider.ErrNotFound{Provider: provider.NameMusicBrainz, ID: id}
}

func (m *mockCatalog) GetRelease(_ context.Context, id string) (*provider.Release, error) {
	m.inc("release")
	if r, ok := m.releases[id]; ok {
		return r, nil
	}
	return nil, &provider.ErrNotFound{Provider: provider.NameMusicBrainz, ID: id}
}

func (m *mockCatalog) GetArtist(_ context.Context, id string) (*provider.Artist, error) {
	m.inc("artist")
	if a, ok := m.artists[id]; ok {
		return a, nil
	}
	return nil, &provider.ErrNotFound{Provider: provider.NameMusicBrainz, ID: id}
}

type mockArtwork struct {
	calls
	art *provider.CoverArt
}

func (m *mockArtwork) Name() provider.ProviderName { return provider.NameCoverArt }
func (m *mockArtwork) RequiresAuth() bool          { return false }

func (m *mockArtwork) GetCoverArt(_ context.Context, releaseID string) (*provider.CoverArt, error) {
	m.inc("cover")
	if m.art == nil {
		return nil, &provider.ErrNotFound{Provider: provider.NameCoverArt, ID: releaseID}
	}
	return m.art, nil
}

type mockTags struct {
	calls
	tags     []provider.Tag
	gotTitle string
}

func (m *mockTags) Name() provider.ProviderName { return provider.NameLastFM }
func (m *mockTags) RequiresAuth() bool          { return true }

func (m *mockTags) GetTrackTags(_ context.Context, artist, title string) ([]provider.Tag, error) {
	m.inc("tags")
	m.gotTitle = title
	if len(m.tags) == 0 {
		return nil, &provider.ErrNotFound{Provider: provider.NameLastFM, ID: artist + " - " + title}
	}
	return m.tags, nil
}

type mockArtistGenres struct {
	calls
	genres []string
}

func (m *mockArtistGenres) Name() provider.ProviderName { return provider.NameAudioDB }
func (m *mockArtistGenres) RequiresAuth() bool          { return true }

func (m *mockArtistGenres) GetArtistGenres(_ context.Context, artist string) ([]string, error) {
	m.inc("genres")
	if len(m.genres) == 0 {
		return nil, &provider.ErrNotFound{Provider: provider.NameAudioDB, ID: artist}
	}
	return m.genres, nil
}

type mockLookup struct {
	calls
	match    *provider.TrackMatch
	gotTitle string
}

func (m *mockLookup) Name() provider.ProviderName { return provider.NameDeezer }
func (m *mockLookup) RequiresAuth() bool          { return false }

func (m *mockLookup) FindTrack(_ context.Context, artist, title string) (*provider.TrackMatch, error) {
	m.inc("find")
	m.gotTitle = title
	if m.match == nil {
		return nil, &provider.ErrNotFound{Provider: provider.NameDeezer, ID: artist + " - " + title}
	}
	return m.match, nil
}

type mockSearcher struct {
	calls
	candidates []match.Candidate
	queries    []string
}

func (m *mockSearcher) Name() provider.ProviderName { return provider.NameSpotify }
func (m *mockSearcher) RequiresAuth() bool          { return true }

func (m *mockSearcher) Queries(title string, artists []string) []string {
	return []string{title + " " + artists[0]}
}

func (m *mockSearcher) SearchTracks(_ context.Context, query string, _ int) ([]match.Candidate, error) {
	m.inc("search")
	m.queries = append(m.queries, query)
	return m.candidates, nil
}

type mockFeatures struct {
	calls
	byID map[string]*provider.AudioFeatures
}

func (m *mockFeatures) Name() provider.ProviderName { return provider.NameReccoBeats }
func (m *mockFeatures) RequiresAuth() bool          { return false }

func (m *mockFeatures) GetFeaturesByID(_ context.Context, id string) (*provider.AudioFeatures, error) {
	m.inc("features")
	if f, ok := m.byID[id]; ok {
		return f, nil
	}
	return nil, &provider.ErrNotFound{Provider: provider.NameReccoBeats, ID: id}
}

type mockAnalyzer struct {
	calls
	features *provider.AudioFeatures
	gotName  string
}

func (m *mockAnalyzer) Name() provider.ProviderName { return provider.NameReccoBeats }
func (m *mockAnalyzer) RequiresAuth() bool          { return false }

func (m *mockAnalyzer) AnalyzeAudio(_ context.Context, filename string, _ []byte) (*provider.AudioFeatures, error) {
	m.inc("analyze")
	m.gotName = filename
	if m.features == nil {
		return nil, &provider.ErrPermanent{Provider: provider.NameReccoBeats, Cause: errNoMatch}
	}
	return m.features, nil
}

type mockPreviews struct {
	calls
	gotURL string
}

func (m *mockPreviews) Name() provider.ProviderName { return provider.NamePreview }
func (m *mockPreviews) RequiresAuth() bool          { return false }

func (m *mockPreviews) Fetch(_ context.Context, url string) (string, []byte, error) {
	m.inc("fetch")
	m.gotURL = url
	return "preview.mp3", []byte{0xFF, 0xFB, 0x90, 0x00}, nil
}

// karmaPolice returns a catalog that resolves "Karma Police" by Radiohead.
func karmaPolice() *mockCatalog {
	return &mockCatalog{
		candidates: map[string][]match.Candidate{
			"*": {{ID: "rec-1", Title: "Karma Police", Artists: []string{"Radiohead"}, Score: 100}},
		},
		recordings: map[string]*provider.Recording{
			"rec-1": {
				ID:      "rec-1",
				Title:   "Karma Police",
				Artists: []provider.ArtistCredit{{ID: "art-1", Name: "Radiohead"}},
				Releases: []provider.Release{{
					ID:          "rel-1",
					Title:       "OK Computer",
					Date:        "1997-05-21",
					PrimaryType: "Album",
				}},
				Genres: []string{"alternative rock"},
				Tags:   []string{"90s"},
			},
		},
		releases: map[string]*provider.Release{
			"rel-1": {ID: "rel-1", Title: "OK Computer", Label: "Parlophone"},
		},
		artists: map[string]*provider.Artist{
			"art-1": {ID: "art-1", Name: "Radiohead", Country: "GB", Type: "Group", Genres: []string{"rock"}},
		},
	}
}

func testFeatures(tempo float64) *provider.AudioFeatures {
	return &provider.AudioFeatures{Danceability: 0.36, Energy: 0.5, Key: 7, Mode: 1, Tempo: tempo}
}

// Package musicbrainz is the primary catalog adapter: recording search,
// recording, release and artist lookups against the MusicBrainz web service.
package musicbrainz

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sydlexius/earmark/internal/match"
	"github.com/sydlexius/earmark/internal/provider"
)

const defaultBaseURL = "https://musicbrainz.org/ws/2"

// Adapter implements provider.RecordingCatalog for MusicBrainz.
type Adapter struct {
	client    *http.Client
	limiter   *provider.RateLimiterMap
	logger    *slog.Logger
	baseURL   string
	userAgent string
}

// New creates a MusicBrainz adapter with the default base URL.
func New(limiter *provider.RateLimiterMap, logger *slog.Logger) *Adapter {
	return NewWithBaseURL(limiter, logger, defaultBaseURL)
}

// NewWithBaseURL creates a MusicBrainz adapter with a custom base URL (for testing).
func NewWithBaseURL(limiter *provider.RateLimiterMap, logger *slog.Logger, baseURL string) *Adapter {
	return &Adapter{
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		limiter:   limiter,
		logger:    logger.With(slog.String("provider", "musicbrainz")),
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: provider.DefaultUserAgent(),
	}
}

// SetUserAgent overrides the User-Agent sent with every request. MusicBrainz
// asks clients to include contact information.
func (a *Adapter) SetUserAgent(ua string) {
	if ua != "" {
		a.userAgent = ua
	}
}

// Name returns the provider name.
func (a *Adapter) Name() provider.ProviderName { return provider.NameMusicBrainz }

// RequiresAuth returns whether this provider needs an API key.
func (a *Adapter) RequiresAuth() bool { return false }

// SearchRecordings runs a Lucene recording query.
func (a *Adapter) SearchRecordings(ctx context.Context, query string, limit int) ([]match.Candidate, error) {
	if limit <= 0 {
		limit = 10
	}
	params := url.Values{
		"query": {query},
		"fmt":   {"json"},
		"limit": {strconv.Itoa(limit)},
	}
	reqURL := a.baseURL + "/recording?" + params.Encode()

	body, err := a.doRequest(ctx, reqURL, query)
	if err != nil {
		return nil, err
	}

	var resp RecordingSearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, provider.Malformed(provider.NameMusicBrainz, err)
	}

	candidates := make([]match.Candidate, 0, len(resp.Recordings))
	for _, rec := range resp.Recordings {
		c := match.Candidate{
			ID:      rec.ID,
			Title:   rec.Title,
			Artists: creditNames(rec.ArtistCredit),
			Score:   rec.Score,
		}
		if len(rec.Releases) > 0 {
			c.ReleaseID = rec.Releases[0].ID
			c.ReleaseTitle = rec.Releases[0].Title
		}
		candidates = append(candidates, c)
	}
	return candidates, nil
}

// GetRecording fetches a recording with its credits, releases, genres and
// tags. Releases are ordered best first.
func (a *Adapter) GetRecording(ctx context.Context, id string) (*provider.Recording, error) {
	params := url.Values{
		"inc": {"artist-credits+releases+release-groups+genres+tags"},
		"fmt": {"json"},
	}
	reqURL := a.baseURL + "/recording/" + url.PathEscape(id) + "?" + params.Encode()

	body, err := a.doRequest(ctx, reqURL, id)
	if err != nil {
		return nil, err
	}

	var rec MBRecording
	if err := json.Unmarshal(body, &rec); err != nil {
		return nil, provider.Malformed(provider.NameMusicBrainz, err)
	}
	return mapRecording(&rec), nil
}

// GetRelease fetches a release with its label and release group.
func (a *Adapter) GetRelease(ctx context.Context, id string) (*provider.Release, error) {
	params := url.Values{
		"inc": {"labels+release-groups"},
		"fmt": {"json"},
	}
	reqURL := a.baseURL + "/release/" + url.PathEscape(id) + "?" + params.Encode()

	body, err := a.doRequest(ctx, reqURL, id)
	if err != nil {
		return nil, err
	}

	var rel MBRelease
	if err := json.Unmarshal(body, &rel); err != nil {
		return nil, provider.Malformed(provider.NameMusicBrainz, err)
	}
	r := mapRelease(rel)
	return &r, nil
}

// GetArtist fetches an artist's country, type and genres.
func (a *Adapter) GetArtist(ctx context.Context, id string) (*provider.Artist, error) {
	params := url.Values{
		"inc": {"genres"},
		"fmt": {"json"},
	}
	reqURL := a.baseURL + "/artist/" + url.PathEscape(id) + "?" + params.Encode()

	body, err := a.doRequest(ctx, reqURL, id)
	if err != nil {
		return nil, err
	}

	var artist MBArtist
	if err := json.Unmarshal(body, &artist); err != nil {
		return nil, provider.Malformed(provider.NameMusicBrainz, err)
	}

	return &provider.Artist{
		ID:      artist.ID,
		Name:    artist.Name,
		Country: artist.Country,
		Type:    mapArtistType(artist.Type),
		Genres:  genreNames(artist.Genres),
	}, nil
}

// doRequest executes an HTTP GET with rate limiting and standard headers.
func (a *Adapter) doRequest(ctx context.Context, reqURL, id string) ([]byte, error) {
	if err := a.limiter.Wait(ctx, provider.NameMusicBrainz); err != nil {
		return nil, provider.Throttled(provider.NameMusicBrainz, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", a.userAgent)
	req.Header.Set("Accept", "application/json")

	a.logger.Debug("requesting", slog.String("url", reqURL))

	resp, err := a.client.Do(req) //nolint:gosec // URL constructed from trusted base + escaped query
	if err != nil {
		return nil, provider.Transport(provider.NameMusicBrainz, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if err := provider.CheckResponse(provider.NameMusicBrainz, resp, id); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, provider.MaxResponseBytes))
	if err != nil {
		return nil, provider.Transport(provider.NameMusicBrainz, err)
	}
	return body, nil
}

func mapRecording(rec *MBRecording) *provider.Recording {
	out := &provider.Recording{
		ID:       rec.ID,
		Title:    rec.Title,
		LengthMS: rec.Length,
		Genres:   genreNames(rec.Genres),
	}
	for _, c := range rec.ArtistCredit {
		name := c.Artist.Name
		if name == "" {
			name = c.Name
		}
		out.Artists = append(out.Artists, provider.ArtistCredit{ID: c.Artist.ID, Name: name})
	}
	for _, t := range rec.Tags {
		if t.Name != "" && t.Count > 0 {
			out.Tags = append(out.Tags, t.Name)
		}
	}
	for _, r := range rec.Releases {
		out.Releases = append(out.Releases, mapRelease(r))
	}
	sortReleases(out.Releases)
	return out
}

func mapRelease(r MBRelease) provider.Release {
	rel := provider.Release{
		ID:             r.ID,
		Title:          r.Title,
		Status:         r.Status,
		Date:           r.Date,
		PrimaryType:    r.ReleaseGroup.PrimaryType,
		SecondaryTypes: r.ReleaseGroup.SecondaryTypes,
	}
	if rel.Date == "" {
		rel.Date = r.ReleaseGroup.FirstReleaseDate
	}
	for _, li := range r.LabelInfo {
		if li.Label != nil && li.Label.Name != "" {
			rel.Label = li.Label.Name
			break
		}
	}
	return rel
}

// releaseScore ranks how representative a release is of a recording:
// official studio albums first, compilations and live releases last.
func releaseScore(r provider.Release) int {
	score := 0
	if strings.EqualFold(r.Status, "Official") {
		score += 4
	}
	switch strings.ToLower(r.PrimaryType) {
	case "album":
		score += 3
	case "single", "ep":
		score += 2
	}
	if len(r.SecondaryTypes) == 0 {
		score += 2
	}
	return score
}

// sortReleases orders releases best first; equal scores prefer the earliest
// known date.
func sortReleases(releases []provider.Release) {
	sort.SliceStable(releases, func(i, j int) bool {
		si, sj := releaseScore(releases[i]), releaseScore(releases[j])
		if si != sj {
			return si > sj
		}
		di, dj := releases[i].Date, releases[j].Date
		if (di == "") != (dj == "") {
			return di != ""
		}
		return di < dj
	})
}

// creditNames returns each credited artist's name, plus the credited-as
// spelling when it differs.
func creditNames(credits []MBArtistCredit) []string {
	var names []string
	for _, c := range credits {
		if c.Artist.Name != "" {
			names = append(names, c.Artist.Name)
		}
		if c.Name != "" && c.Name != c.Artist.Name {
			names = append(names, c.Name)
		}
	}
	return names
}

// genreNames returns genre names ordered by vote count.
func genreNames(genres []MBGenre) []string {
	sorted := make([]MBGenre, 0, len(genres))
	for _, g := range genres {
		if g.Name != "" {
			sorted = append(sorted, g)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Count > sorted[j].Count })

	names := make([]string, 0, len(sorted))
	for _, g := range sorted {
		names = append(names, g.Name)
	}
	if len(names) == 0 {
		return nil
	}
	return names
}

// mapArtistType normalizes MusicBrainz type strings.
func mapArtistType(mbType string) string {
	switch mbType {
	case "Person":
		return "solo"
	case "Group":
		return "group"
	case "Orchestra":
		return "orchestra"
	case "Choir":
		return "choir"
	case "Character":
		return "character"
	default:
		return strings.ToLower(mbType)
	}
}

// Package deezer finds tracks on Deezer's public API for album artwork and
// short audio previews.
package deezer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sydlexius/earmark/internal/match"
	"github.com/sydlexius/earmark/internal/provider"
)

const (
	defaultBaseURL = "https://api.deezer.com"
	searchLimit    = 10
	// minTitleSimilarity is the floor a result's title must reach; the
	// artist must match exactly as well.
	minTitleSimilarity = 0.70
)

// Adapter implements provider.TrackLookup for Deezer's public API.
// No authentication is required.
type Adapter struct {
	client  *http.Client
	limiter *provider.RateLimiterMap
	logger  *slog.Logger
	baseURL string
}

// New creates a Deezer adapter with the default base URL.
func New(limiter *provider.RateLimiterMap, logger *slog.Logger) *Adapter {
	return NewWithBaseURL(limiter, logger, defaultBaseURL)
}

// NewWithBaseURL creates a Deezer adapter with a custom base URL (for testing).
func NewWithBaseURL(limiter *provider.RateLimiterMap, logger *slog.Logger, baseURL string) *Adapter {
	return &Adapter{
		client:  &http.Client{Timeout: 10 * time.Second},
		limiter: limiter,
		logger:  logger.With(slog.String("provider", "deezer")),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Name returns the provider identifier.
func (a *Adapter) Name() provider.ProviderName { return provider.NameDeezer }

// RequiresAuth returns false since Deezer's public API needs no API key.
func (a *Adapter) RequiresAuth() bool { return false }

// FindTrack searches for a track by artist and title using Deezer's advanced
// search syntax, then a plain search. Only a result by the same artist with
// a close title is returned.
func (a *Adapter) FindTrack(ctx context.Context, artist, title string) (*provider.TrackMatch, error) {
	queries := []string{
		fmt.Sprintf(`artist:"%s" track:"%s"`, quote(artist), quote(title)),
		artist + " " + title,
	}
	for _, q := range queries {
		results, err := a.search(ctx, q)
		if err != nil {
			return nil, err
		}
		if best := pickTrack(results, artist, title); best != nil {
			return toMatch(best), nil
		}
	}
	return nil, &provider.ErrNotFound{Provider: provider.NameDeezer, ID: artist + " - " + title}
}

func (a *Adapter) search(ctx context.Context, q string) ([]trackResult, error) {
	params := url.Values{
		"q":     {q},
		"limit": {strconv.Itoa(searchLimit)},
	}
	body, err := a.doRequest(ctx, a.baseURL+"/search/track?"+params.Encode(), q)
	if err != nil {
		return nil, err
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, provider.Malformed(provider.NameDeezer, err)
	}
	if resp.Error != nil {
		switch resp.Error.Code {
		case errNoData:
			return nil, nil
		case errQuota:
			return nil, &provider.ErrProviderUnavailable{
				Provider:   provider.NameDeezer,
				Cause:      errors.New(resp.Error.Message),
				RetryAfter: 5 * time.Second,
			}
		default:
			return nil, &provider.ErrPermanent{
				Provider: provider.NameDeezer,
				Cause:    fmt.Errorf("%s (%d)", resp.Error.Message, resp.Error.Code),
			}
		}
	}
	return resp.Data, nil
}

// doRequest executes a GET request and returns the response body.
func (a *Adapter) doRequest(ctx context.Context, reqURL, id string) ([]byte, error) {
	if err := a.limiter.Wait(ctx, provider.NameDeezer); err != nil {
		return nil, provider.Throttled(provider.NameDeezer, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	a.logger.Debug("requesting", slog.String("q", id))

	resp, err := a.client.Do(req) //nolint:gosec // URL constructed from adapter config and escaped inputs
	if err != nil {
		return nil, provider.Transport(provider.NameDeezer, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if err := provider.CheckResponse(provider.NameDeezer, resp, id); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1*1024*1024))
	if err != nil {
		return nil, provider.Transport(provider.NameDeezer, err)
	}
	return body, nil
}

// pickTrack returns the first result by the same artist whose title is
// close enough, preferring the closest title.
func pickTrack(results []trackResult, artist, title string) *trackResult {
	want := match.CleanTitle(title)
	var (
		best    *trackResult
		bestSim float64
	)
	for i := range results {
		r := &results[i]
		if !match.IsSameArtist(r.Artist.Name, artist) {
			continue
		}
		t := r.TitleShort
		if t == "" {
			t = r.Title
		}
		sim := match.TitleSimilarity(want, match.CleanTitle(t))
		if sim >= minTitleSimilarity && sim > bestSim {
			best, bestSim = r, sim
		}
	}
	return best
}

func toMatch(r *trackResult) *provider.TrackMatch {
	m := &provider.TrackMatch{
		ID:         strconv.FormatInt(r.ID, 10),
		Title:      r.Title,
		Artist:     r.Artist.Name,
		Album:      r.Album.Title,
		PreviewURL: r.Preview,
	}
	if !isDefaultCover(r.Album.CoverSmall) {
		m.Art.Small = r.Album.CoverSmall
	}
	if !isDefaultCover(r.Album.CoverMedium) {
		m.Art.Medium = r.Album.CoverMedium
	}
	for _, u := range []string{r.Album.CoverXL, r.Album.CoverBig} {
		if u != "" && !isDefaultCover(u) {
			m.Art.Large = u
			break
		}
	}
	return m
}

// isDefaultCover reports whether a Deezer cover URL is the generic
// placeholder. Deezer returns URLs containing "/images/cover//" (double
// slash) for albums without artwork.
func isDefaultCover(u string) bool {
	return u == "" || strings.Contains(u, "/images/cover//")
}

func quote(s string) string {
	return strings.ReplaceAll(s, `"`, ``)
}

// Package spotify searches the Spotify Web API as a secondary catalog. It is
// used only to find a Spotify track id for a recording; audio features come
// from ReccoBeats.
package spotify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	spotifyapi "github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/sydlexius/earmark/internal/match"
	"github.com/sydlexius/earmark/internal/provider"
)

// maxSecondaryArtists bounds how many featured artists get their own query.
const maxSecondaryArtists = 2

// Adapter implements provider.TrackSearcher using client-credentials auth.
type Adapter struct {
	client  *spotifyapi.Client
	limiter *provider.RateLimiterMap
	logger  *slog.Logger
}

// New creates a Spotify adapter. With empty credentials the adapter is
// still registered but every search fails with ErrAuthRequired.
func New(limiter *provider.RateLimiterMap, logger *slog.Logger, clientID, clientSecret string) *Adapter {
	a := &Adapter{
		limiter: limiter,
		logger:  logger.With(slog.String("provider", "spotify")),
	}
	if clientID == "" || clientSecret == "" {
		return a
	}
	cc := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     spotifyauth.TokenURL,
	}
	httpClient := cc.Client(context.Background())
	httpClient.Timeout = 10 * time.Second
	a.client = spotifyapi.New(httpClient)
	return a
}

// NewWithClient creates a Spotify adapter that talks to baseURL through
// httpClient without token exchange (for testing).
func NewWithClient(limiter *provider.RateLimiterMap, logger *slog.Logger, httpClient *http.Client, baseURL string) *Adapter {
	return &Adapter{
		client:  spotifyapi.New(httpClient, spotifyapi.WithBaseURL(strings.TrimRight(baseURL, "/")+"/")),
		limiter: limiter,
		logger:  logger.With(slog.String("provider", "spotify")),
	}
}

// Name returns the provider identifier.
func (a *Adapter) Name() provider.ProviderName { return provider.NameSpotify }

// RequiresAuth returns true; Spotify needs client credentials.
func (a *Adapter) RequiresAuth() bool { return true }

// Queries returns Spotify field-filter queries for a title and its artists,
// most precise first: the primary artist, each secondary artist, then a
// plain keyword query.
func (a *Adapter) Queries(title string, artists []string) []string {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil
	}
	seen := make(map[string]bool)
	var out []string
	add := func(q string) {
		if !seen[q] {
			seen[q] = true
			out = append(out, q)
		}
	}

	t := stripQuotes(title)
	if len(artists) == 0 {
		add(fmt.Sprintf(`track:"%s"`, t))
		return out
	}
	primary := artists[0]
	add(fmt.Sprintf(`track:"%s" artist:"%s"`, t, stripQuotes(primary)))

	secondaries := 0
	for _, s := range artists[1:] {
		if secondaries >= maxSecondaryArtists {
			break
		}
		if match.IsSameArtist(s, primary) {
			continue
		}
		add(fmt.Sprintf(`track:"%s" artist:"%s"`, t, stripQuotes(s)))
		secondaries++
	}
	add(t + " " + stripQuotes(primary))
	return out
}

// SearchTracks runs one track search. Popularity (0-100) is the candidate
// score. It ranks candidates but says nothing about match quality, so
// callers should select with match.PopularityThresholds.
func (a *Adapter) SearchTracks(ctx context.Context, query string, limit int) ([]match.Candidate, error) {
	if a.client == nil {
		return nil, &provider.ErrAuthRequired{Provider: provider.NameSpotify}
	}
	if limit <= 0 {
		limit = 10
	}
	if err := a.limiter.Wait(ctx, provider.NameSpotify); err != nil {
		return nil, provider.Throttled(provider.NameSpotify, err)
	}

	a.logger.Debug("searching", slog.String("query", query))

	res, err := a.client.Search(ctx, query, spotifyapi.SearchTypeTrack, spotifyapi.Limit(limit))
	if err != nil {
		return nil, classify(err, query)
	}
	if res == nil || res.Tracks == nil {
		return nil, nil
	}

	out := make([]match.Candidate, 0, len(res.Tracks.Tracks))
	for _, t := range res.Tracks.Tracks {
		c := match.Candidate{
			ID:           t.ID.String(),
			Title:        t.Name,
			Score:        int(t.Popularity),
			ReleaseID:    t.Album.ID.String(),
			ReleaseTitle: t.Album.Name,
			PreviewURL:   t.PreviewURL,
		}
		for _, ar := range t.Artists {
			c.Artists = append(c.Artists, ar.Name)
		}
		out = append(out, c)
	}
	return out, nil
}

// classify maps client and token errors onto the provider error taxonomy.
func classify(err error, query string) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var tokenErr *oauth2.RetrieveError
	if errors.As(err, &tokenErr) {
		if tokenErr.Response != nil && tokenErr.Response.StatusCode >= 500 {
			return provider.Transport(provider.NameSpotify, err)
		}
		return &provider.ErrAuthRequired{Provider: provider.NameSpotify}
	}

	var apiErr spotifyapi.Error
	if !errors.As(err, &apiErr) {
		return provider.Transport(provider.NameSpotify, err)
	}
	switch {
	case apiErr.Status == http.StatusNotFound:
		return &provider.ErrNotFound{Provider: provider.NameSpotify, ID: query}
	case apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden:
		return &provider.ErrAuthRequired{Provider: provider.NameSpotify}
	case apiErr.Status == http.StatusTooManyRequests || apiErr.Status >= 500:
		return &provider.ErrProviderUnavailable{Provider: provider.NameSpotify, Cause: err}
	default:
		return &provider.ErrPermanent{Provider: provider.NameSpotify, StatusCode: apiErr.Status, Cause: err}
	}
}

func stripQuotes(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, `"`, ""))
}

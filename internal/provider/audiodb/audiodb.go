// Package audiodb reads artist-level genres from TheAudioDB.
package audiodb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sydlexius/earmark/internal/match"
	"github.com/sydlexius/earmark/internal/provider"
)

const (
	defaultBaseURL = "https://www.theaudiodb.com/api/v1/json"
	// publicKey is TheAudioDB's shared key for low-volume clients.
	publicKey = "123"
)

// Adapter implements provider.ArtistGenreSource for TheAudioDB.
type Adapter struct {
	client  *http.Client
	limiter *provider.RateLimiterMap
	logger  *slog.Logger
	baseURL string
	apiKey  string
}

// New creates a TheAudioDB adapter with the default base URL. An empty key
// falls back to the public key.
func New(limiter *provider.RateLimiterMap, apiKey string, logger *slog.Logger) *Adapter {
	return NewWithBaseURL(limiter, apiKey, logger, defaultBaseURL)
}

// NewWithBaseURL creates a TheAudioDB adapter with a custom base URL (for testing).
func NewWithBaseURL(limiter *provider.RateLimiterMap, apiKey string, logger *slog.Logger, baseURL string) *Adapter {
	if apiKey == "" {
		apiKey = publicKey
	}
	return &Adapter{
		client:  &http.Client{Timeout: 10 * time.Second},
		limiter: limiter,
		logger:  logger.With(slog.String("provider", "audiodb")),
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
	}
}

// Name returns the provider name.
func (a *Adapter) Name() provider.ProviderName { return provider.NameAudioDB }

// RequiresAuth returns whether this provider needs an API key.
func (a *Adapter) RequiresAuth() bool { return false }

// GetArtistGenres returns the genre and style of the artist best matching
// name. These are artist-wide and unverified for any particular track.
func (a *Adapter) GetArtistGenres(ctx context.Context, name string) ([]string, error) {
	if err := a.limiter.Wait(ctx, provider.NameAudioDB); err != nil {
		return nil, provider.Throttled(provider.NameAudioDB, err)
	}

	reqURL := fmt.Sprintf("%s/%s/search.php?s=%s", a.baseURL, url.PathEscape(a.apiKey), url.QueryEscape(name))
	artists, err := a.fetchArtists(ctx, reqURL, name)
	if err != nil {
		return nil, err
	}

	art := pickArtist(artists, name)
	if art == nil {
		return nil, &provider.ErrNotFound{Provider: provider.NameAudioDB, ID: name}
	}

	var genres []string
	seen := make(map[string]bool)
	for _, g := range append(splitAndTrim(art.Genre), splitAndTrim(art.Style)...) {
		key := strings.ToLower(g)
		if !seen[key] {
			seen[key] = true
			genres = append(genres, key)
		}
	}
	if len(genres) == 0 {
		return nil, &provider.ErrNotFound{Provider: provider.NameAudioDB, ID: name}
	}
	return genres, nil
}

func (a *Adapter) fetchArtists(ctx context.Context, reqURL, id string) ([]AudioDBArtist, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	a.logger.Debug("requesting", slog.String("artist", id))

	resp, err := a.client.Do(req) //nolint:gosec // URL constructed from trusted base + API params
	if err != nil {
		return nil, provider.Transport(provider.NameAudioDB, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if err := provider.CheckResponse(provider.NameAudioDB, resp, id); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, provider.MaxResponseBytes))
	if err != nil {
		return nil, provider.Transport(provider.NameAudioDB, err)
	}

	var artistResp ArtistResponse
	if err := json.Unmarshal(body, &artistResp); err != nil {
		return nil, provider.Malformed(provider.NameAudioDB, err)
	}
	return artistResp.Artists, nil
}

// pickArtist returns the artist whose name matches, or nil. A search hit for
// a different artist is worse than no genres at all.
func pickArtist(artists []AudioDBArtist, name string) *AudioDBArtist {
	for i := range artists {
		if match.IsSameArtist(artists[i].Artist, name) {
			return &artists[i]
		}
	}
	return nil
}

func splitAndTrim(s string) []string {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == '/' || r == ';'
	})
	var result []string
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			result = append(result, t)
		}
	}
	return result
}

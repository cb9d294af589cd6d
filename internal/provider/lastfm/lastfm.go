// Package lastfm reads community tags for tracks from the Last.fm API.
package lastfm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/sydlexius/earmark/internal/provider"
)

const defaultBaseURL = "https://ws.audioscrobbler.com/2.0"

// Adapter implements provider.TagSource for Last.fm.
type Adapter struct {
	client  *http.Client
	limiter *provider.RateLimiterMap
	logger  *slog.Logger
	baseURL string
	apiKey  string
}

// New creates a Last.fm adapter with the default base URL.
func New(limiter *provider.RateLimiterMap, apiKey string, logger *slog.Logger) *Adapter {
	return NewWithBaseURL(limiter, apiKey, logger, defaultBaseURL)
}

// NewWithBaseURL creates a Last.fm adapter with a custom base URL (for testing).
func NewWithBaseURL(limiter *provider.RateLimiterMap, apiKey string, logger *slog.Logger, baseURL string) *Adapter {
	return &Adapter{
		client:  &http.Client{Timeout: 10 * time.Second},
		limiter: limiter,
		logger:  logger.With(slog.String("provider", "lastfm")),
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
	}
}

// Name returns the provider name.
func (a *Adapter) Name() provider.ProviderName { return provider.NameLastFM }

// RequiresAuth returns whether this provider needs an API key.
func (a *Adapter) RequiresAuth() bool { return true }

// GetTrackTags returns the track's top tags, heaviest first. Last.fm
// autocorrects misspelled artist and track names.
func (a *Adapter) GetTrackTags(ctx context.Context, artist, title string) ([]provider.Tag, error) {
	if a.apiKey == "" {
		return nil, &provider.ErrAuthRequired{Provider: provider.NameLastFM}
	}

	params := url.Values{
		"method":      {"track.gettoptags"},
		"artist":      {artist},
		"track":       {title},
		"autocorrect": {"1"},
		"api_key":     {a.apiKey},
		"format":      {"json"},
	}
	reqURL := a.baseURL + "/?" + params.Encode()

	body, err := a.doRequest(ctx, reqURL, artist+" - "+title)
	if err != nil {
		return nil, err
	}

	var resp TopTagsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, provider.Malformed(provider.NameLastFM, err)
	}

	tags := make([]provider.Tag, 0, len(resp.TopTags.Tag))
	for _, t := range resp.TopTags.Tag {
		name := strings.ToLower(strings.TrimSpace(t.Name))
		if name == "" || t.Count <= 0 {
			continue
		}
		tags = append(tags, provider.Tag{Name: name, Count: t.Count})
	}
	sort.SliceStable(tags, func(i, j int) bool { return tags[i].Count > tags[j].Count })
	return tags, nil
}

func (a *Adapter) doRequest(ctx context.Context, reqURL, id string) ([]byte, error) {
	if err := a.limiter.Wait(ctx, provider.NameLastFM); err != nil {
		return nil, provider.Throttled(provider.NameLastFM, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", provider.DefaultUserAgent())
	req.Header.Set("Accept", "application/json")

	a.logger.Debug("requesting", slog.String("track", id))

	resp, err := a.client.Do(req) //nolint:gosec // URL constructed from trusted base + API params
	if err != nil {
		return nil, provider.Transport(provider.NameLastFM, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, provider.MaxResponseBytes))
	if err != nil {
		return nil, provider.Transport(provider.NameLastFM, err)
	}

	var apiErr APIError
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Code != 0 {
		return nil, mapAPIError(apiErr, id)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body = io.NopCloser(bytes.NewReader(body))
		return nil, provider.CheckResponse(provider.NameLastFM, resp, id)
	}
	return body, nil
}

// mapAPIError classifies a Last.fm error body.
func mapAPIError(e APIError, id string) error {
	switch e.Code {
	case errInvalidParams:
		return &provider.ErrNotFound{Provider: provider.NameLastFM, ID: id}
	case errInvalidAPIKey, errSuspendedAPIKey:
		return &provider.ErrAuthRequired{Provider: provider.NameLastFM}
	case errRateLimitExceeded, errServiceOffline, errOperationFailed, errTemporarilyDown:
		return &provider.ErrProviderUnavailable{
			Provider: provider.NameLastFM,
			Cause:    fmt.Errorf("error %d: %s", e.Code, e.Message),
		}
	default:
		return &provider.ErrPermanent{
			Provider: provider.NameLastFM,
			Cause:    errors.New(e.Message),
		}
	}
}

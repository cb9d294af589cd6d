// Package reccobeats fetches audio features from ReccoBeats, either by
// Spotify track id or by uploading a short audio clip for analysis.
package reccobeats

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/sydlexius/earmark/internal/provider"
)

const defaultBaseURL = "https://api.reccobeats.com"

// Adapter implements provider.FeatureCatalog and provider.AudioAnalyzer.
// No authentication is required.
type Adapter struct {
	client  *http.Client
	limiter *provider.RateLimiterMap
	logger  *slog.Logger
	baseURL string
}

// New creates a ReccoBeats adapter with the default base URL.
func New(limiter *provider.RateLimiterMap, logger *slog.Logger) *Adapter {
	return NewWithBaseURL(limiter, logger, defaultBaseURL)
}

// NewWithBaseURL creates a ReccoBeats adapter with a custom base URL (for testing).
func NewWithBaseURL(limiter *provider.RateLimiterMap, logger *slog.Logger, baseURL string) *Adapter {
	return &Adapter{
		// Analysis uploads take longer than lookups.
		client:  &http.Client{Timeout: 30 * time.Second},
		limiter: limiter,
		logger:  logger.With(slog.String("provider", "reccobeats")),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Name returns the provider identifier.
func (a *Adapter) Name() provider.ProviderName { return provider.NameReccoBeats }

// RequiresAuth returns false since ReccoBeats needs no API key.
func (a *Adapter) RequiresAuth() bool { return false }

// GetFeaturesByID returns the audio features for a Spotify track id.
func (a *Adapter) GetFeaturesByID(ctx context.Context, id string) (*provider.AudioFeatures, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, &provider.ErrNotFound{Provider: provider.NameReccoBeats, ID: id}
	}
	reqURL := a.baseURL + "/v1/audio-features?" + url.Values{"ids": {id}}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	body, err := a.do(req, id)
	if err != nil {
		return nil, err
	}

	var resp featuresResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, provider.Malformed(provider.NameReccoBeats, err)
	}
	for _, e := range resp.Content {
		if e.Href == "" || strings.HasSuffix(e.Href, "/"+id) {
			f := e.analysisResponse.toFeatures()
			return &f, nil
		}
	}
	return nil, &provider.ErrNotFound{Provider: provider.NameReccoBeats, ID: id}
}

// AnalyzeAudio uploads a clip and returns the features ReccoBeats extracts
// from it. filename should carry an extension matching the audio format.
func (a *Adapter) AnalyzeAudio(ctx context.Context, filename string, data []byte) (*provider.AudioFeatures, error) {
	if len(data) == 0 {
		return nil, &provider.ErrPermanent{Provider: provider.NameReccoBeats, Cause: fmt.Errorf("empty audio clip")}
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("audioFile", filepath.Base(filename))
	if err != nil {
		return nil, fmt.Errorf("creating form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("writing form file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("closing multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/v1/analysis/audio-features", &buf)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	body, err := a.do(req, filename)
	if err != nil {
		return nil, err
	}

	var resp analysisResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, provider.Malformed(provider.NameReccoBeats, err)
	}
	if resp.Tempo == 0 && resp.Energy == 0 && resp.Loudness == 0 {
		return nil, &provider.ErrPermanent{Provider: provider.NameReccoBeats, Cause: fmt.Errorf("analysis returned no features")}
	}
	f := resp.toFeatures()
	return &f, nil
}

func (a *Adapter) do(req *http.Request, id string) ([]byte, error) {
	if err := a.limiter.Wait(req.Context(), provider.NameReccoBeats); err != nil {
		return nil, provider.Throttled(provider.NameReccoBeats, err)
	}
	req.Header.Set("Accept", "application/json")

	a.logger.Debug("requesting", slog.String("method", req.Method), slog.String("id", id))

	resp, err := a.client.Do(req) //nolint:gosec // URL constructed from adapter config
	if err != nil {
		return nil, provider.Transport(provider.NameReccoBeats, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if err := provider.CheckResponse(provider.NameReccoBeats, resp, id); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, provider.MaxResponseBytes))
	if err != nil {
		return nil, provider.Transport(provider.NameReccoBeats, err)
	}
	return body, nil
}

func (r analysisResponse) toFeatures() provider.AudioFeatures {
	f := provider.AudioFeatures{
		Acousticness:     r.Acousticness,
		Danceability:     r.Danceability,
		Energy:           r.Energy,
		Instrumentalness: r.Instrumentalness,
		Key:              -1,
		Liveness:         r.Liveness,
		Loudness:         r.Loudness,
		Speechiness:      r.Speechiness,
		Tempo:            r.Tempo,
		Valence:          r.Valence,
	}
	if r.Key != nil {
		f.Key = *r.Key
	}
	if r.Mode != nil {
		f.Mode = *r.Mode
	}
	return f
}

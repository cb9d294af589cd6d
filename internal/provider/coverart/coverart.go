// Package coverart serves release artwork from the Cover Art Archive.
package coverart

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/sydlexius/earmark/internal/provider"
)

const defaultBaseURL = "https://coverartarchive.org"

var (
	imageExtensions = map[string]bool{
		".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true,
	}
	// releaseIndex matches the listing endpoint for a release rather than
	// an image resource.
	releaseIndex = regexp.MustCompile(`(?i)/release/[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}/?$`)
)

// Adapter implements provider.ArtworkSource for the Cover Art Archive.
type Adapter struct {
	client  *http.Client
	limiter *provider.RateLimiterMap
	logger  *slog.Logger
	baseURL string
}

// New creates a Cover Art Archive adapter with the default base URL.
func New(limiter *provider.RateLimiterMap, logger *slog.Logger) *Adapter {
	return NewWithBaseURL(limiter, logger, defaultBaseURL)
}

// NewWithBaseURL creates a Cover Art Archive adapter with a custom base URL (for testing).
func NewWithBaseURL(limiter *provider.RateLimiterMap, logger *slog.Logger, baseURL string) *Adapter {
	return &Adapter{
		client:  &http.Client{Timeout: 10 * time.Second},
		limiter: limiter,
		logger:  logger.With(slog.String("provider", "coverart")),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Name returns the provider name.
func (a *Adapter) Name() provider.ProviderName { return provider.NameCoverArt }

// RequiresAuth returns whether this provider needs an API key.
func (a *Adapter) RequiresAuth() bool { return false }

// GetCoverArt returns the front cover of a release at three sizes. URLs
// that point at an index or listing instead of an image are dropped; a
// release with no usable URL is reported as not found.
func (a *Adapter) GetCoverArt(ctx context.Context, releaseID string) (*provider.CoverArt, error) {
	if err := a.limiter.Wait(ctx, provider.NameCoverArt); err != nil {
		return nil, provider.Throttled(provider.NameCoverArt, err)
	}

	reqURL := a.baseURL + "/release/" + url.PathEscape(releaseID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", provider.DefaultUserAgent())

	a.logger.Debug("requesting", slog.String("url", reqURL))

	resp, err := a.client.Do(req) //nolint:gosec // URL constructed from trusted base + escaped MBID
	if err != nil {
		return nil, provider.Transport(provider.NameCoverArt, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if err := provider.CheckResponse(provider.NameCoverArt, resp, releaseID); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, provider.MaxResponseBytes))
	if err != nil {
		return nil, provider.Transport(provider.NameCoverArt, err)
	}

	var listing Listing
	if err := json.Unmarshal(body, &listing); err != nil {
		return nil, provider.Malformed(provider.NameCoverArt, err)
	}

	img := pickFront(listing.Images)
	if img == nil {
		return nil, &provider.ErrNotFound{Provider: provider.NameCoverArt, ID: releaseID}
	}

	art := &provider.CoverArt{
		Small:  firstImageURL(img.Thumbnails.Size250, img.Thumbnails.Small),
		Medium: firstImageURL(img.Thumbnails.Size500, img.Thumbnails.Large),
		Large:  firstImageURL(img.Thumbnails.Size1200, img.Image),
	}
	if art.Empty() {
		a.logger.Debug("no usable image url", slog.String("release", releaseID))
		return nil, &provider.ErrNotFound{Provider: provider.NameCoverArt, ID: releaseID}
	}
	return art, nil
}

// pickFront returns the image flagged as the front cover, or the first one.
func pickFront(images []Image) *Image {
	for i := range images {
		if images[i].Front {
			return &images[i]
		}
		for _, t := range images[i].Types {
			if strings.EqualFold(t, "front") {
				return &images[i]
			}
		}
	}
	if len(images) > 0 {
		return &images[0]
	}
	return nil
}

func firstImageURL(candidates ...string) string {
	for _, c := range candidates {
		if IsImageURL(c) {
			return c
		}
	}
	return ""
}

// IsImageURL reports whether u looks like a real image resource: an
// absolute http(s) URL with an image file extension that is not a release
// index endpoint.
func IsImageURL(u string) bool {
	if u == "" {
		return false
	}
	parsed, err := url.Parse(u)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return false
	}
	if releaseIndex.MatchString(parsed.Path) {
		return false
	}
	return imageExtensions[strings.ToLower(path.Ext(parsed.Path))]
}

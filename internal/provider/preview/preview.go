// Package preview downloads short audio previews for content analysis.
package preview

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"time"

	"github.com/dhowden/tag"

	"github.com/sydlexius/earmark/internal/provider"
)

// DefaultMaxBytes caps a preview download.
const DefaultMaxBytes int64 = 5 << 20

// Fetcher implements provider.PreviewFetcher.
type Fetcher struct {
	client   *http.Client
	logger   *slog.Logger
	maxBytes int64
}

// New creates a Fetcher. maxBytes <= 0 means DefaultMaxBytes.
func New(logger *slog.Logger, maxBytes int64) *Fetcher {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Fetcher{
		client:   &http.Client{Timeout: 30 * time.Second},
		logger:   logger.With(slog.String("provider", "preview")),
		maxBytes: maxBytes,
	}
}

// Name returns the provider identifier.
func (f *Fetcher) Name() provider.ProviderName { return provider.NamePreview }

// RequiresAuth returns false; preview URLs are public.
func (f *Fetcher) RequiresAuth() bool { return false }

// Fetch downloads the clip at rawURL. The returned filename carries an
// extension for the sniffed audio format. Clips larger than the cap are
// rejected without being buffered in full.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, []byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", nil, &provider.ErrPermanent{Provider: provider.NamePreview, Cause: fmt.Errorf("invalid preview url %q", rawURL)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", nil, fmt.Errorf("creating request: %w", err)
	}

	f.logger.Debug("downloading preview", slog.String("host", u.Host))

	resp, err := f.client.Do(req) //nolint:gosec // URL validated above
	if err != nil {
		return "", nil, provider.Transport(provider.NamePreview, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if err := provider.CheckResponse(provider.NamePreview, resp, rawURL); err != nil {
		return "", nil, err
	}
	if resp.ContentLength > f.maxBytes {
		return "", nil, f.tooLarge()
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return "", nil, provider.Transport(provider.NamePreview, err)
	}
	if int64(len(data)) > f.maxBytes {
		return "", nil, f.tooLarge()
	}
	if len(data) == 0 {
		return "", nil, &provider.ErrPermanent{Provider: provider.NamePreview, Cause: errors.New("empty preview")}
	}

	ext := Extension(data, resp.Header.Get("Content-Type"))
	if ext == "" {
		return "", nil, &provider.ErrPermanent{Provider: provider.NamePreview, Cause: errors.New("unrecognized audio format")}
	}
	return "preview" + ext, data, nil
}

func (f *Fetcher) tooLarge() error {
	return &provider.ErrPermanent{
		Provider: provider.NamePreview,
		Cause:    fmt.Errorf("preview exceeds %d bytes", f.maxBytes),
	}
}

// Extension returns the file extension for an audio clip, sniffing the
// container first and falling back to the declared content type. It
// returns "" for anything that does not look like audio.
func Extension(data []byte, contentType string) string {
	_, ft, err := tag.Identify(bytes.NewReader(data))
	if err == nil {
		switch ft {
		case tag.MP3:
			return ".mp3"
		case tag.M4A, tag.M4B, tag.M4P, tag.ALAC:
			return ".m4a"
		case tag.FLAC:
			return ".flac"
		case tag.OGG:
			return ".ogg"
		}
	}
	// Untagged MP3 previews start directly with a frame sync.
	if len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0 {
		return ".mp3"
	}
	mt, _, _ := mime.ParseMediaType(contentType)
	switch mt {
	case "audio/mpeg", "audio/mp3":
		return ".mp3"
	case "audio/mp4", "audio/aac", "audio/x-m4a":
		return ".m4a"
	case "audio/ogg":
		return ".ogg"
	case "audio/flac", "audio/x-flac":
		return ".flac"
	case "audio/wav", "audio/x-wav", "audio/wave":
		return ".wav"
	}
	return ""
}

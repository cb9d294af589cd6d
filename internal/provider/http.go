package provider

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sydlexius/earmark/internal/version"
)

// MaxResponseBytes caps how much of a provider response body is read.
const MaxResponseBytes = 512 * 1024

// DefaultUserAgent identifies earmark to catalogs that ask for contact info.
func DefaultUserAgent() string {
	return fmt.Sprintf("earmark/%s (https://github.com/sydlexius/earmark)", version.Version)
}

// CheckResponse maps a non-2xx response to a typed provider error and
// drains the body. It returns nil for 2xx responses. id names the requested
// entity in ErrNotFound.
func CheckResponse(name ProviderName, resp *http.Response, id string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return &ErrNotFound{Provider: name, ID: id}
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return &ErrAuthRequired{Provider: name}
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return &ErrProviderUnavailable{
			Provider:   name,
			Cause:      fmt.Errorf("HTTP %d", resp.StatusCode),
			RetryAfter: ParseRetryAfter(resp.Header.Get("Retry-After"), time.Now()),
		}
	default:
		return &ErrPermanent{
			Provider:   name,
			StatusCode: resp.StatusCode,
			Cause:      fmt.Errorf("%s", strings.TrimSpace(string(snippet))),
		}
	}
}

// ParseRetryAfter reads a Retry-After header given either in seconds or as
// an HTTP date. It returns zero when the header is absent or unparsable.
func ParseRetryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := t.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}

// Malformed wraps a response decoding failure as a permanent error.
func Malformed(name ProviderName, err error) error {
	return &ErrPermanent{Provider: name, Cause: fmt.Errorf("malformed response: %w", err)}
}

// Transport wraps a failure to reach the provider at all as transient.
func Transport(name ProviderName, err error) error {
	return &ErrProviderUnavailable{Provider: name, Cause: err}
}

// Throttled wraps a rate limiter wait failure.
func Throttled(name ProviderName, err error) error {
	return &ErrProviderUnavailable{Provider: name, Cause: fmt.Errorf("rate limiter: %w", err)}
}

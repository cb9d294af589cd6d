// Package track stores observed tracks: the raw (title, artist) pairs seen
// by the listening tracker, together with play counts.
package track

import (
	"strings"
	"time"
)

// Track is an observed track as reported by the listening tracker. Title and
// artist are stored as observed, noise included.
type Track struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Artist       string     `json:"artist"`
	Album        string     `json:"album,omitempty"`
	DurationMS   int        `json:"duration_ms,omitempty"`
	SpotifyID    string     `json:"spotify_id,omitempty"`
	PreviewURL   string     `json:"preview_url,omitempty"`
	PlayCount    int        `json:"play_count"`
	LastPlayedAt *time.Time `json:"last_played_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Observation is one play event.
type Observation struct {
	Title      string     `json:"title"`
	Artist     string     `json:"artist"`
	Album      string     `json:"album,omitempty"`
	DurationMS int        `json:"duration_ms,omitempty"`
	SpotifyID  string     `json:"spotify_id,omitempty"`
	PreviewURL string     `json:"preview_url,omitempty"`
	PlayedAt   *time.Time `json:"played_at,omitempty"`
}

// Normalize trims whitespace from the observed strings.
func (o *Observation) Normalize() {
	o.Title = strings.TrimSpace(o.Title)
	o.Artist = strings.TrimSpace(o.Artist)
	o.Album = strings.TrimSpace(o.Album)
	o.SpotifyID = strings.TrimSpace(o.SpotifyID)
	o.PreviewURL = strings.TrimSpace(o.PreviewURL)
	if o.DurationMS < 0 {
		o.DurationMS = 0
	}
}

// ListParams configures paginated track queries.
type ListParams struct {
	Page     int
	PageSize int
	Sort     string
	Order    string
	Search   string
}

// Validate normalizes list parameters.
func (p *ListParams) Validate() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 || p.PageSize > 200 {
		p.PageSize = 50
	}
	switch p.Sort {
	case "title", "artist", "play_count", "last_played_at", "created_at":
		// valid
	default:
		p.Sort = "last_played_at"
	}
	if p.Order != "asc" {
		p.Order = "desc"
	}
}

package webhook

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/sydlexius/earmark/internal/event"
)

const contentTypeJSON = "application/json"

type genericPayload struct {
	Event     event.Type     `json:"event"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data"`
}

type discordEmbed struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Color       int    `json:"color"`
	Timestamp   string `json:"timestamp"`
}

type discordPayload struct {
	Embeds []discordEmbed `json:"embeds"`
}

type slackPayload struct {
	Text string `json:"text"`
}

type gotifyPayload struct {
	Title    string `json:"title"`
	Message  string `json:"message"`
	Priority int    `json:"priority"`
}

// Discord embed colors.
const (
	colorInfo    = 0x3498DB
	colorSuccess = 0x2ECC71
	colorMuted   = 0x95A5A6
	colorFailure = 0xE74C3C
)

// formatPayload returns the request body and content type for a delivery.
func formatPayload(w *Webhook, e event.Event) ([]byte, string, error) {
	var v any
	switch w.Type {
	case TypeDiscord:
		v = discordPayload{Embeds: []discordEmbed{{
			Title:       headline(e.Type),
			Description: describe(e),
			Color:       embedColor(e.Type),
			Timestamp:   e.Timestamp.UTC().Format(time.RFC3339),
		}}}
	case TypeSlack:
		v = slackPayload{Text: fmt.Sprintf("*%s*\n%s", headline(e.Type), describe(e))}
	case TypeGotify:
		v = gotifyPayload{Title: headline(e.Type), Message: describe(e), Priority: gotifyPriority(e.Type)}
	default:
		v = genericPayload{Event: e.Type, Timestamp: e.Timestamp, Data: e.Data}
	}
	body, err := json.Marshal(v)
	if err != nil {
		return nil, "", fmt.Errorf("encoding %s payload: %w", w.Type, err)
	}
	return body, contentTypeJSON, nil
}

func headline(t event.Type) string {
	switch t {
	case event.TrackObserved:
		return "earmark: track observed"
	case event.TrackEnriched:
		return "earmark: track enriched"
	case event.TrackNotFound:
		return "earmark: no catalog match"
	case event.EnrichmentFailed:
		return "earmark: enrichment failed"
	case event.ReenrichRequested:
		return "earmark: re-enrichment requested"
	case event.BatchCompleted:
		return "earmark: batch completed"
	case event.ConfigReloaded:
		return "earmark: configuration reloaded"
	}
	return "earmark: " + string(t)
}

func embedColor(t event.Type) int {
	switch t {
	case event.TrackEnriched:
		return colorSuccess
	case event.TrackNotFound:
		return colorMuted
	case event.EnrichmentFailed:
		return colorFailure
	}
	return colorInfo
}

// gotifyPriority maps failures above the default notification threshold.
func gotifyPriority(t event.Type) int {
	if t == event.EnrichmentFailed {
		return 8
	}
	return 5
}

// describe renders a one-line summary for chat-style targets.
func describe(e event.Event) string {
	if len(e.Data) == 0 {
		return string(e.Type)
	}
	switch e.Type {
	case event.BatchCompleted:
		return fmt.Sprintf("Batch finished: %v processed, %v enriched, %v not found, %v failed",
			e.Data["processed"], e.Data["enriched"], e.Data["not_found"], e.Data["failed"])
	case event.TrackEnriched, event.TrackNotFound, event.EnrichmentFailed:
		if id, ok := e.Data["track_id"].(string); ok {
			return fmt.Sprintf("Track %s: %v", id, e.Data["status"])
		}
	}
	b, err := json.Marshal(e.Data)
	if err != nil {
		return string(e.Type)
	}
	return string(b)
}

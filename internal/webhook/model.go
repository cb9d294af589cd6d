package webhook

import (
	"fmt"
	"net/url"

	"github.com/sydlexius/earmark/internal/event"
)

// Webhook is an outbound notification endpoint.
type Webhook struct {
	Name string
	URL  string
	Type string
	// Events limits delivery to these event types. Empty means
	// enrichment.batch_completed only.
	Events []event.Type
}

// Webhook types.
const (
	TypeGeneric = "generic"
	TypeDiscord = "discord"
	TypeSlack   = "slack"
	TypeGotify  = "gotify"
)

// DefaultEvents are delivered when a webhook names none.
var DefaultEvents = []event.Type{event.BatchCompleted}

// Validate checks the URL, type, and event names.
func (w *Webhook) Validate() error {
	if w.Name == "" {
		return fmt.Errorf("webhook name is required")
	}
	u, err := url.Parse(w.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("webhook %s: invalid url", w.Name)
	}
	switch w.Type {
	case "":
		w.Type = TypeGeneric
	case TypeGeneric, TypeDiscord, TypeSlack, TypeGotify:
	default:
		return fmt.Errorf("webhook %s: unknown type %q", w.Name, w.Type)
	}
	for _, e := range w.Events {
		if !e.Valid() {
			return fmt.Errorf("webhook %s: unknown event %q", w.Name, e)
		}
	}
	if len(w.Events) == 0 {
		w.Events = DefaultEvents
	}
	return nil
}

func (w *Webhook) wants(t event.Type) bool {
	for _, e := range w.Events {
		if e == t {
			return true
		}
	}
	return false
}

package webhook

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sydlexius/earmark/internal/event"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// recorder is a test endpoint that keeps the last JSON body it received.
type recorder struct {
	mu       sync.Mutex
	received map[string]any
	agent    string
}

func (rc *recorder) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rc.mu.Lock()
		defer rc.mu.Unlock()
		rc.agent = r.UserAgent()
		json.NewDecoder(r.Body).Decode(&rc.received) //nolint:errcheck
		w.WriteHeader(http.StatusOK)
	}
}

func (rc *recorder) body() map[string]any {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.received
}

func batchEvent() event.Event {
	return event.Event{
		Type:      event.BatchCompleted,
		Timestamp: time.Now().UTC(),
		Data:      map[string]any{"processed": 10, "enriched": 7, "not_found": 2, "failed": 1},
	}
}

func TestDispatcher_GenericWebhook(t *testing.T) {
	rc := &recorder{}
	srv := httptest.NewServer(rc.handler())
	defer srv.Close()

	d, err := NewDispatcherWithHTTPClient([]Webhook{{Name: "test", URL: srv.URL}}, srv.Client(), testLogger())
	if err != nil {
		t.Fatal(err)
	}
	d.HandleEvent(batchEvent())
	d.Wait()

	got := rc.body()
	if got == nil {
		t.Fatal("expected to receive webhook payload")
	}
	if got["event"] != string(event.BatchCompleted) {
		t.Errorf("event = %v", got["event"])
	}
	data, _ := got["data"].(map[string]any)
	if data["enriched"] != float64(7) {
		t.Errorf("data = %v", data)
	}
	if rc.agent == "" {
		t.Error("expected a User-Agent header")
	}
}

func TestDispatcher_DiscordFormat(t *testing.T) {
	rc := &recorder{}
	srv := httptest.NewServer(rc.handler())
	defer srv.Close()

	d, err := NewDispatcherWithHTTPClient([]Webhook{{Name: "discord", URL: srv.URL, Type: TypeDiscord}}, srv.Client(), testLogger())
	if err != nil {
		t.Fatal(err)
	}
	d.HandleEvent(batchEvent())
	d.Wait()

	embeds, ok := rc.body()["embeds"].([]any)
	if !ok || len(embeds) == 0 {
		t.Fatal("expected discord embeds array")
	}
	embed := embeds[0].(map[string]any)
	want := "Batch finished: 10 processed, 7 enriched, 2 not found, 1 failed"
	if embed["description"] != want {
		t.Errorf("description = %v, want %q", embed["description"], want)
	}
}

func TestDispatcher_SlackAndGotify(t *testing.T) {
	tests := []struct {
		typ string
		key string
	}{
		{TypeSlack, "text"},
		{TypeGotify, "message"},
	}
	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			rc := &recorder{}
			srv := httptest.NewServer(rc.handler())
			defer srv.Close()

			hook := Webhook{Name: tt.typ, URL: srv.URL, Type: tt.typ, Events: []event.Type{event.EnrichmentFailed}}
			d, err := NewDispatcherWithHTTPClient([]Webhook{hook}, srv.Client(), testLogger())
			if err != nil {
				t.Fatal(err)
			}
			d.HandleEvent(event.Event{
				Type: event.EnrichmentFailed,
				Data: map[string]any{"track_id": "t1", "status": "FAILED"},
			})
			d.Wait()

			msg, _ := rc.body()[tt.key].(string)
			if msg == "" {
				t.Fatalf("missing %q in payload %v", tt.key, rc.body())
			}
		})
	}
}

func TestDispatcher_RetryOn500(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d, err := NewDispatcherWithHTTPClient([]Webhook{{Name: "retry-test", URL: srv.URL}}, srv.Client(), testLogger())
	if err != nil {
		t.Fatal(err)
	}
	d.SetBackoff(5 * time.Millisecond)
	d.HandleEvent(batchEvent())
	d.Wait()

	if got := attempts.Load(); got != 3 {
		t.Errorf("attempts = %d, want 3", got)
	}
}

func TestDispatcher_MaxRetries(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	d, err := NewDispatcherWithHTTPClient([]Webhook{{Name: "maxretry-test", URL: srv.URL}}, srv.Client(), testLogger())
	if err != nil {
		t.Fatal(err)
	}
	d.SetBackoff(5 * time.Millisecond)
	d.HandleEvent(batchEvent())
	d.Wait()

	if got := attempts.Load(); got != maxRetries+1 {
		t.Errorf("attempts = %d, want %d", got, maxRetries+1)
	}
}

func TestDispatcher_NoMatchingWebhooks(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
	}))
	defer srv.Close()

	d, err := NewDispatcherWithHTTPClient([]Webhook{{Name: "other", URL: srv.URL}}, srv.Client(), testLogger())
	if err != nil {
		t.Fatal(err)
	}
	d.HandleEvent(event.Event{Type: event.TrackObserved})
	d.Wait()
	if attempts.Load() != 0 {
		t.Error("webhook without track.observed should not be called")
	}
}

func TestDispatcher_SubscribeToBus(t *testing.T) {
	rc := &recorder{}
	srv := httptest.NewServer(rc.handler())
	defer srv.Close()

	logger := testLogger()
	bus := event.NewBus(logger, 16)
	d, err := NewDispatcherWithHTTPClient([]Webhook{{Name: "bus", URL: srv.URL}}, srv.Client(), logger)
	if err != nil {
		t.Fatal(err)
	}
	d.Subscribe(bus)
	go bus.Start()

	bus.Publish(batchEvent())
	bus.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for rc.body() == nil && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	d.Wait()
	if rc.body() == nil {
		t.Fatal("expected delivery through the bus")
	}
}

func TestWebhook_Validate(t *testing.T) {
	tests := []struct {
		name    string
		hook    Webhook
		wantErr bool
	}{
		{"defaults", Webhook{Name: "a", URL: "https://example.com/hook"}, false},
		{"no name", Webhook{URL: "https://example.com/hook"}, true},
		{"bad scheme", Webhook{Name: "a", URL: "ftp://example.com"}, true},
		{"no host", Webhook{Name: "a", URL: "http://"}, true},
		{"bad type", Webhook{Name: "a", URL: "https://example.com", Type: "teams"}, true},
		{"bad event", Webhook{Name: "a", URL: "https://example.com", Events: []event.Type{"scan.completed"}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.hook.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr {
				if tt.hook.Type != TypeGeneric || len(tt.hook.Events) != 1 || tt.hook.Events[0] != event.BatchCompleted {
					t.Errorf("defaults not applied: %+v", tt.hook)
				}
			}
		})
	}
}

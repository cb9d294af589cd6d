package spotify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/sydlexius/earmark/internal/provider"
)

func loadFixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile("testdata/" + name)
	if err != nil {
		t.Fatalf("loading fixture %s: %v", name, err)
	}
	return data
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testLimiter() *provider.RateLimiterMap {
	return provider.NewRateLimiterMap(map[provider.ProviderName]time.Duration{provider.NameSpotify: 0})
}

func newTestAdapter(t *testing.T, handler http.HandlerFunc) *Adapter {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewWithClient(testLimiter(), testLogger(), srv.Client(), srv.URL)
}

func TestSearchTracks(t *testing.T) {
	var gotQuery, gotType, gotLimit string
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		gotQuery = r.URL.Query().Get("q")
		gotType = r.URL.Query().Get("type")
		gotLimit = r.URL.Query().Get("limit")
		w.Header().Set("Content-Type", "application/json")
		w.Write(loadFixture(t, "search_tracks.json"))
	})

	cands, err := a.SearchTracks(context.Background(), `track:"Karma Police" artist:"Radiohead"`, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotQuery != `track:"Karma Police" artist:"Radiohead"` {
		t.Errorf("unexpected query %q", gotQuery)
	}
	if gotType != "track" {
		t.Errorf("expected type track, got %q", gotType)
	}
	if gotLimit != "5" {
		t.Errorf("expected limit 5, got %q", gotLimit)
	}
	if len(cands) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(cands))
	}
	c := cands[0]
	if c.ID != "63OQupATfueTdZMWTxW03A" {
		t.Errorf("unexpected id %s", c.ID)
	}
	if c.Score != 82 {
		t.Errorf("expected popularity 82 as score, got %d", c.Score)
	}
	if len(c.Artists) != 1 || c.Artists[0] != "Radiohead" {
		t.Errorf("unexpected artists %v", c.Artists)
	}
	if c.ReleaseTitle != "OK Computer" {
		t.Errorf("expected release OK Computer, got %s", c.ReleaseTitle)
	}
	if c.PreviewURL != "https://p.scdn.co/mp3-preview/karma" {
		t.Errorf("unexpected preview url %s", c.PreviewURL)
	}
	if cands[1].PreviewURL != "" {
		t.Errorf("expected empty preview for null, got %s", cands[1].PreviewURL)
	}
}

func TestSearchTracks_NoCredentials(t *testing.T) {
	a := New(testLimiter(), testLogger(), "", "")
	_, err := a.SearchTracks(context.Background(), "anything", 5)
	var authErr *provider.ErrAuthRequired
	if !errors.As(err, &authErr) {
		t.Errorf("expected ErrAuthRequired, got %v", err)
	}
	if !a.RequiresAuth() {
		t.Error("expected RequiresAuth to be true")
	}
}

func TestSearchTracks_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		check  func(error) bool
	}{
		{"rate limited", http.StatusTooManyRequests, provider.IsRetryable},
		{"server error", http.StatusBadGateway, provider.IsRetryable},
		{"unauthorized", http.StatusUnauthorized, func(err error) bool {
			var e *provider.ErrAuthRequired
			return errors.As(err, &e)
		}},
		{"bad request", http.StatusBadRequest, func(err error) bool {
			var e *provider.ErrPermanent
			return errors.As(err, &e) && e.StatusCode == http.StatusBadRequest
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				fmt.Fprintf(w, `{"error":{"status":%d,"message":"nope"}}`, tt.status)
			})
			_, err := a.SearchTracks(context.Background(), "q", 5)
			if err == nil {
				t.Fatal("expected error")
			}
			if !tt.check(err) {
				t.Errorf("unexpected error classification: %T %v", err, err)
			}
		})
	}
}

func TestQueries(t *testing.T) {
	a := New(testLimiter(), testLogger(), "", "")

	got := a.Queries("Under Pressure", []string{"Queen", "David Bowie", "Queen"})
	want := []string{
		`track:"Under Pressure" artist:"Queen"`,
		`track:"Under Pressure" artist:"David Bowie"`,
		`Under Pressure Queen`,
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d queries, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("query %d: expected %q, got %q", i, want[i], got[i])
		}
	}

	if q := a.Queries("", []string{"Queen"}); q != nil {
		t.Errorf("expected no queries for empty title, got %v", q)
	}
	if q := a.Queries(`Say "Hi"`, nil); len(q) != 1 || q[0] != `track:"Say Hi"` {
		t.Errorf("unexpected title-only queries %v", q)
	}
}

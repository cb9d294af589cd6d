package preview

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/sydlexius/earmark/internal/provider"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// id3Clip is an ID3v2.3 header followed by padding.
func id3Clip(n int) []byte {
	b := []byte{'I', 'D', '3', 3, 0, 0, 0, 0, 0, 0}
	return append(b, make([]byte, n)...)
}

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write(id3Clip(256))
	}))
	defer srv.Close()

	f := New(testLogger(), 1024)
	name, data, err := f.Fetch(context.Background(), srv.URL+"/clip")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != "preview.mp3" {
		t.Errorf("expected preview.mp3, got %s", name)
	}
	if len(data) != 266 {
		t.Errorf("expected 266 bytes, got %d", len(data))
	}
}

func TestFetch_TooLarge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Chunked, so the length is only known while reading.
		w.(http.Flusher).Flush()
		w.Write(id3Clip(4096))
	}))
	defer srv.Close()

	f := New(testLogger(), 1024)
	_, _, err := f.Fetch(context.Background(), srv.URL)
	var perm *provider.ErrPermanent
	if !errors.As(err, &perm) {
		t.Fatalf("expected ErrPermanent, got %v", err)
	}
	if !strings.Contains(perm.Error(), "exceeds 1024 bytes") {
		t.Errorf("unexpected message: %v", perm)
	}
}

func TestFetch_InvalidURL(t *testing.T) {
	f := New(testLogger(), 0)
	for _, u := range []string{"", "ftp://example.com/a.mp3", "file:///etc/passwd", "https://"} {
		_, _, err := f.Fetch(context.Background(), u)
		var perm *provider.ErrPermanent
		if !errors.As(err, &perm) {
			t.Errorf("%q: expected ErrPermanent, got %v", u, err)
		}
	}
}

func TestFetch_NotAudio(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html>nope</html>"))
	}))
	defer srv.Close()

	_, _, err := New(testLogger(), 0).Fetch(context.Background(), srv.URL)
	var perm *provider.ErrPermanent
	if !errors.As(err, &perm) {
		t.Errorf("expected ErrPermanent for html body, got %v", err)
	}
}

func TestFetch_Gone(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, _, err := New(testLogger(), 0).Fetch(context.Background(), srv.URL)
	if !provider.IsNotFound(err) {
		t.Errorf("expected ErrNotFound for expired preview, got %v", err)
	}
}

func TestExtension(t *testing.T) {
	tests := []struct {
		name        string
		data        []byte
		contentType string
		want        string
	}{
		{"id3", id3Clip(32), "", ".mp3"},
		{"flac", append([]byte("fLaC"), make([]byte, 32)...), "", ".flac"},
		{"ogg", append([]byte("OggS"), make([]byte, 32)...), "", ".ogg"},
		{"m4a", append([]byte{0, 0, 0, 0x20, 'f', 't', 'y', 'p', 'M', '4', 'A'}, make([]byte, 32)...), "", ".m4a"},
		{"frame sync", append([]byte{0xFF, 0xFB, 0x90, 0x64}, make([]byte, 200)...), "", ".mp3"},
		{"content type", []byte("RIFF....WAVEfmt ....................."), "audio/wav", ".wav"},
		{"unknown", []byte("plain text that is not audio at all, really"), "text/plain", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Extension(tt.data, tt.contentType); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

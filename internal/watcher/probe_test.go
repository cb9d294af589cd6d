package watcher

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestOpenWatcher_LocalDir(t *testing.T) {
	dir := t.TempDir()
	w, err := openWatcher(dir, 2*time.Second)
	if err != nil {
		t.Fatalf("openWatcher: %v", err)
	}
	defer w.Close() //nolint:errcheck

	matches, _ := filepath.Glob(filepath.Join(dir, ".earmark-probe-*"))
	if len(matches) != 0 {
		t.Errorf("probe file left behind: %v", matches)
	}
	if len(w.WatchList()) != 1 {
		t.Errorf("watch list = %v, want the probed directory", w.WatchList())
	}
}

func TestOpenWatcher_MissingDir(t *testing.T) {
	if _, err := openWatcher(filepath.Join(t.TempDir(), "absent"), 500*time.Millisecond); err == nil {
		t.Error("expected an error for a missing directory")
	}
}

func TestOpenWatcher_TinyTimeout(t *testing.T) {
	// The event may still win the race; only require a prompt return.
	w, err := openWatcher(t.TempDir(), time.Nanosecond)
	if err == nil {
		_ = w.Close()
		return
	}
	if !errors.Is(err, errNoEvent) && !os.IsNotExist(err) {
		t.Logf("openWatcher: %v", err)
	}
}

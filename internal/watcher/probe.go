package watcher

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// errNoEvent means the directory accepted a watch but no event arrived for
// the probe file, as happens on many network and FUSE mounts.
var errNoEvent = errors.New("no fsnotify event for probe file")

// openWatcher watches dir and proves that events are delivered by creating
// a throwaway file in it. On success the returned watcher is already
// watching dir and the caller owns it.
func openWatcher(dir string, timeout time.Duration) (*fsnotify.Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("watching %s: %w", dir, err)
	}

	f, err := os.CreateTemp(dir, ".earmark-probe-*")
	if err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("creating probe file: %w", err)
	}
	probe := filepath.Clean(f.Name())
	_ = f.Close()
	defer os.Remove(probe) //nolint:errcheck

	deadline := time.After(timeout)
	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return nil, errNoEvent
			}
			if filepath.Clean(ev.Name) == probe && ev.Has(fsnotify.Create) {
				return w, nil
			}
		case err := <-w.Errors:
			_ = w.Close()
			return nil, err
		case <-deadline:
			_ = w.Close()
			return nil, errNoEvent
		}
	}
}

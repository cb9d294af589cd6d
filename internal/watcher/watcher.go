// Package watcher reloads the configuration file when it changes on disk.
package watcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sydlexius/earmark/internal/event"
)

// ReloadFunc re-reads the configuration and applies what can change live.
type ReloadFunc func(ctx context.Context) error

// Service watches one config file and calls a ReloadFunc after it settles.
// The parent directory is watched rather than the file itself so that
// editors which write via rename are still seen. When fsnotify does not
// deliver events for the directory (some network and container mounts), the
// file's modification time is polled instead.
type Service struct {
	path         string
	reload       ReloadFunc
	eventBus     *event.Bus
	logger       *slog.Logger
	debounce     time.Duration
	pollInterval time.Duration
	probeTimeout time.Duration

	mu   sync.Mutex
	last fileState
}

type fileState struct {
	exists  bool
	size    int64
	modTime time.Time
}

// NewService creates a config watcher. eventBus may be nil.
func NewService(path string, reload ReloadFunc, eventBus *event.Bus, logger *slog.Logger) *Service {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = filepath.Clean(path)
	}
	return &Service{
		path:         abs,
		reload:       reload,
		eventBus:     eventBus,
		logger:       logger.With(slog.String("component", "config-watcher")),
		debounce:     500 * time.Millisecond,
		pollInterval: 30 * time.Second,
		probeTimeout: 2 * time.Second,
	}
}

// SetDebounce overrides the default debounce interval (for testing).
func (s *Service) SetDebounce(d time.Duration) {
	s.debounce = d
}

// SetPollInterval overrides the default poll interval (for testing).
func (s *Service) SetPollInterval(d time.Duration) {
	s.pollInterval = d
}

// Start blocks until ctx is canceled.
func (s *Service) Start(ctx context.Context) {
	dir := filepath.Dir(s.path)
	s.setLast(stat(s.path))

	w, err := openWatcher(dir, s.probeTimeout)
	if err != nil {
		s.logger.Info("fsnotify not usable for config directory, polling instead", "path", dir, "error", err)
		w = nil
	}
	if w != nil {
		defer w.Close() //nolint:errcheck
	}

	s.logger.Info("config watcher starting", "path", s.path, "fsnotify", w != nil)

	// Starts stopped; reset on each relevant event.
	debounceTimer := time.NewTimer(0)
	if !debounceTimer.Stop() {
		<-debounceTimer.C
	}
	reloadPending := false
	arm := func() {
		if !debounceTimer.Stop() {
			select {
			case <-debounceTimer.C:
			default:
			}
		}
		debounceTimer.Reset(s.debounce)
		reloadPending = true
	}

	// Poll only without fsnotify; nil channels never receive.
	var pollCh <-chan time.Time
	var eventCh <-chan fsnotify.Event
	var errCh <-chan error
	if w != nil {
		eventCh = w.Events
		errCh = w.Errors
	} else {
		pollTicker := time.NewTicker(s.pollInterval)
		defer pollTicker.Stop()
		pollCh = pollTicker.C
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("config watcher stopping")
			return

		case ev, ok := <-eventCh:
			if !ok {
				return
			}
			if s.relevant(ev) {
				arm()
			}

		case err, ok := <-errCh:
			if !ok {
				return
			}
			s.logger.Error("fsnotify error", "error", err)

		case <-pollCh:
			if s.changed() {
				arm()
			}

		case <-debounceTimer.C:
			if reloadPending {
				reloadPending = false
				s.fire(ctx)
			}
		}
	}
}

// relevant reports whether ev touches the watched file.
func (s *Service) relevant(ev fsnotify.Event) bool {
	if filepath.Clean(ev.Name) != s.path {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) || ev.Has(fsnotify.Remove)
}

// changed compares the file's current state with the last one seen.
func (s *Service) changed() bool {
	cur := stat(s.path)
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur == s.last {
		return false
	}
	s.last = cur
	return true
}

func (s *Service) fire(ctx context.Context) {
	st := stat(s.path)
	s.setLast(st)
	if !st.exists {
		s.logger.Warn("config file removed, keeping current settings", "path", s.path)
		return
	}

	s.logger.Info("config file changed, reloading", "path", s.path)
	if err := s.reload(ctx); err != nil {
		s.logger.Error("config reload failed", "path", s.path, "error", err)
		return
	}
	if s.eventBus != nil {
		s.eventBus.Publish(event.Event{
			Type: event.ConfigReloaded,
			Data: map[string]any{"path": s.path},
		})
	}
}

func (s *Service) setLast(st fileState) {
	s.mu.Lock()
	s.last = st
	s.mu.Unlock()
}

func stat(path string) fileState {
	info, err := os.Stat(path)
	if err != nil {
		return fileState{}
	}
	return fileState{exists: true, size: info.Size(), modTime: info.ModTime()}
}

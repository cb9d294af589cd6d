// Package webhook delivers event bus notifications to configured HTTP
// endpoints in generic, Discord, Slack, or Gotify format.
package webhook

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/sydlexius/earmark/internal/event"
	"github.com/sydlexius/earmark/internal/version"
)

const (
	maxRetries      = 2
	requestTimeout  = 10 * time.Second
	deliveryTimeout = 30 * time.Second
)

// Dispatcher sends events to matching webhooks.
type Dispatcher struct {
	hooks      []Webhook
	httpClient *http.Client
	logger     *slog.Logger
	backoff    time.Duration
	wg         sync.WaitGroup
}

// NewDispatcher validates hooks and creates a dispatcher.
func NewDispatcher(hooks []Webhook, logger *slog.Logger) (*Dispatcher, error) {
	return NewDispatcherWithHTTPClient(hooks, &http.Client{Timeout: requestTimeout}, logger)
}

// NewDispatcherWithHTTPClient creates a dispatcher with a custom HTTP client (for testing).
func NewDispatcherWithHTTPClient(hooks []Webhook, httpClient *http.Client, logger *slog.Logger) (*Dispatcher, error) {
	out := make([]Webhook, len(hooks))
	for i := range hooks {
		w := hooks[i]
		if err := w.Validate(); err != nil {
			return nil, err
		}
		out[i] = w
	}
	return &Dispatcher{
		hooks:      out,
		httpClient: httpClient,
		logger:     logger.With(slog.String("component", "webhook-dispatcher")),
		backoff:    time.Second,
	}, nil
}

// SetBackoff overrides the initial retry delay (for testing).
func (d *Dispatcher) SetBackoff(b time.Duration) {
	d.backoff = b
}

// Subscribe registers the dispatcher for every event type some webhook wants.
func (d *Dispatcher) Subscribe(bus *event.Bus) {
	seen := map[event.Type]bool{}
	var types []event.Type
	for _, w := range d.hooks {
		for _, t := range w.Events {
			if !seen[t] {
				seen[t] = true
				types = append(types, t)
			}
		}
	}
	if len(types) > 0 {
		bus.SubscribeMany(types, d.HandleEvent)
	}
}

// HandleEvent is an event.Handler that dispatches the event to all matching webhooks.
func (d *Dispatcher) HandleEvent(e event.Event) {
	for i := range d.hooks {
		w := d.hooks[i]
		if !w.wants(e.Type) {
			continue
		}
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			d.deliver(w, e)
		}()
	}
}

// Wait blocks until in-flight deliveries finish.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) deliver(w Webhook, e event.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
	defer cancel()

	body, contentType, err := formatPayload(&w, e)
	if err != nil {
		d.logger.Error("webhook payload", "webhook", w.Name, "event", string(e.Type), "error", err)
		return
	}

	attempt := 0
	b := retry.WithMaxRetries(maxRetries, retry.NewExponential(d.backoff))
	err = retry.Do(ctx, b, func(ctx context.Context) error {
		attempt++
		if err := d.send(ctx, w.URL, body, contentType); err != nil {
			d.logger.Warn("webhook delivery failed",
				"webhook", w.Name,
				"event", string(e.Type),
				"attempt", attempt,
				"error", err,
			)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		d.logger.Error("webhook delivery exhausted retries",
			"webhook", w.Name,
			"event", string(e.Type),
			"error", err,
		)
		return
	}
	d.logger.Debug("webhook delivered",
		"webhook", w.Name,
		"event", string(e.Type),
		"attempt", attempt,
	)
}

func (d *Dispatcher) send(ctx context.Context, url string, body []byte, contentType string) error {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("User-Agent", "earmark-webhook/"+version.Version)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()        //nolint:errcheck
	io.Copy(io.Discard, resp.Body) //nolint:errcheck

	if resp.StatusCode >= 400 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

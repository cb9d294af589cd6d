package enrichment

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sydlexius/earmark/internal/event"
	"github.com/sydlexius/earmark/internal/track"
)

// ErrBatchRunning is returned when a batch is requested while one is in
// progress.
var ErrBatchRunning = errors.New("enrichment batch already running")

// TrackSource loads observed tracks.
type TrackSource interface {
	Get(ctx context.Context, id string) (*track.Track, error)
}

// Enricher is the part of the Orchestrator the Runner drives.
type Enricher interface {
	Enrich(ctx context.Context, t *track.Track, force bool) Result
}

// BatchSummary counts the outcomes of one batch.
type BatchSummary struct {
	Selected  int           `json:"selected"`
	Processed int           `json:"processed"`
	Enriched  int           `json:"enriched"`
	NotFound  int           `json:"not_found"`
	Failed    int           `json:"failed"`
	Skipped   int           `json:"skipped"`
	CacheHits int           `json:"cache_hits"`
	// Discarded counts tracks whose in-flight result was dropped because
	// the batch was canceled. Nothing was written for them.
	Discarded int           `json:"discarded"`
	Canceled  bool          `json:"canceled"`
	Duration  time.Duration `json:"duration_ns"`
}

// Runner enriches eligible records in batches. Workers share the process
// rate limiters, so adding workers only helps when several providers are
// involved per track.
type Runner struct {
	enricher   Enricher
	store      Store
	tracks     TrackSource
	workers    int
	maxRetries int
	bus        *event.Bus
	logger     *slog.Logger
	running    atomic.Bool
}

// NewRunner creates a batch runner. bus may be nil.
func NewRunner(enricher Enricher, store Store, tracks TrackSource, workers, maxRetries int, bus *event.Bus, logger *slog.Logger) *Runner {
	if workers < 1 {
		workers = 1
	}
	return &Runner{
		enricher:   enricher,
		store:      store,
		tracks:     tracks,
		workers:    workers,
		maxRetries: maxRetries,
		bus:        bus,
		logger:     logger.With(slog.String("component", "enrichment-runner")),
	}
}

// Running reports whether a batch is in progress.
func (r *Runner) Running() bool {
	return r.running.Load()
}

// RunBatch enriches up to limit eligible records. Each record is processed
// by one worker from start to finish. Cancellation is checked before each
// record; a record in flight when ctx is canceled is not saved.
func (r *Runner) RunBatch(ctx context.Context, limit int) (*BatchSummary, error) {
	if !r.running.CompareAndSwap(false, true) {
		return nil, ErrBatchRunning
	}
	defer r.running.Store(false)

	start := time.Now()
	ids, err := r.store.ListEligible(ctx, r.maxRetries, limit)
	if err != nil {
		return nil, err
	}

	sum := &BatchSummary{Selected: len(ids)}
	if len(ids) == 0 {
		return sum, nil
	}
	r.logger.Info("enrichment batch started", slog.Int("tracks", len(ids)), slog.Int("workers", r.workers))

	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(r.workers)

	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			res := r.enrichOne(ctx, id)
			mu.Lock()
			defer mu.Unlock()
			if e, ok := res.(Error); ok && e.Retryable && e.Record == nil && ctx.Err() != nil {
				sum.Discarded++
				return nil
			}
			sum.tally(res)
			return nil
		})
	}
	_ = g.Wait()

	sum.Canceled = ctx.Err() != nil
	sum.Duration = time.Since(start)

	r.logger.Info("enrichment batch finished",
		slog.Int("processed", sum.Processed),
		slog.Int("enriched", sum.Enriched),
		slog.Int("not_found", sum.NotFound),
		slog.Int("failed", sum.Failed),
		slog.Int("skipped", sum.Skipped),
		slog.Int("discarded", sum.Discarded),
		slog.Bool("canceled", sum.Canceled),
		slog.Duration("duration", sum.Duration))

	if r.bus != nil {
		r.bus.Publish(event.Event{Type: event.BatchCompleted, Data: map[string]any{
			"processed": sum.Processed,
			"enriched":  sum.Enriched,
			"not_found": sum.NotFound,
			"failed":    sum.Failed,
			"canceled":  sum.Canceled,
		}})
	}
	return sum, nil
}

func (r *Runner) enrichOne(ctx context.Context, id string) Result {
	t, err := r.tracks.Get(ctx, id)
	if err != nil {
		r.logger.Warn("loading track for enrichment", slog.String("track_id", id), slog.String("error", err.Error()))
		return Error{Message: err.Error()}
	}
	return r.enricher.Enrich(ctx, t, false)
}

func (s *BatchSummary) tally(res Result) {
	s.Processed++
	switch r := res.(type) {
	case Success:
		s.Enriched++
	case CacheHit, AlreadyEnriched:
		s.CacheHits++
	case NotFound:
		if r.Skipped {
			s.Skipped++
		} else {
			s.NotFound++
		}
	case Skipped:
		s.Skipped++
	default:
		s.Failed++
	}
}

// Scheduler runs enrichment batches on a fixed interval.
type Scheduler struct {
	runner    *Runner
	batchSize int
	logger    *slog.Logger
}

// NewScheduler creates a batch scheduler.
func NewScheduler(runner *Runner, batchSize int, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		runner:    runner,
		batchSize: batchSize,
		logger:    logger.With(slog.String("component", "enrichment-scheduler")),
	}
}

// Start blocks until the context is canceled, running one batch per tick.
// A tick that finds a batch still running is skipped.
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		s.logger.Error("enrichment scheduler not started: non-positive interval", "interval", interval.String())
		return
	}
	s.logger.Info("enrichment scheduler started", "interval", interval.String())
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("enrichment scheduler stopped")
			return
		case <-ticker.C:
			if _, err := s.runner.RunBatch(ctx, s.batchSize); err != nil {
				if errors.Is(err, ErrBatchRunning) {
					s.logger.Debug("previous batch still running, skipping tick")
					continue
				}
				s.logger.Error("scheduled enrichment batch failed", "error", err)
			}
		}
	}
}

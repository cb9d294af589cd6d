package enrichment

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sydlexius/earmark/internal/track"
)

// fakeEnricher records which tracks it saw and can block until released.
type fakeEnricher struct {
	mu      sync.Mutex
	seen    []string
	onCall  func()
	started chan struct{}
	release chan struct{}
	result  Result
}

func (f *fakeEnricher) Enrich(ctx context.Context, t *track.Track, _ bool) Result {
	f.mu.Lock()
	f.seen = append(f.seen, t.ID)
	f.mu.Unlock()
	if f.onCall != nil {
		f.onCall()
	}
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
		}
	}
	if f.result != nil {
		return f.result
	}
	return Success{Record: NewPending(t.ID)}
}

func (f *fakeEnricher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.seen)
}

func seedPending(t *testing.T, store *SQLStore, tracks *track.Service, titles ...string) []*track.Track {
	t.Helper()
	var out []*track.Track
	for _, title := range titles {
		tr := createTrack(t, tracks, title, "Radiohead")
		if _, err := store.CreatePending(context.Background(), tr.ID); err != nil {
			t.Fatal(err)
		}
		out = append(out, tr)
	}
	return out
}

func TestRunBatch_TalliesOutcomes(t *testing.T) {
	catalog := karmaPolice()
	f := newFixture(t, Providers{Catalog: catalog})
	ctx := context.Background()

	seedPending(t, f.store, f.tracks, "Karma Police", "Paracetamol")
	unknown := createTrack(t, f.tracks, "Intro", "Unknown Artist")
	if _, err := f.store.CreatePending(ctx, unknown.ID); err != nil {
		t.Fatal(err)
	}
	exhausted := createTrack(t, f.tracks, "Lucky", "Radiohead")
	if err := f.store.Upsert(ctx, &Record{TrackID: exhausted.ID, Status: StatusFailed, RetryCount: 5}); err != nil {
		t.Fatal(err)
	}

	r := NewRunner(f.orch, f.store, f.tracks, 2, 5, nil, testLogger())
	sum, err := r.RunBatch(ctx, 10)
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	if sum.Selected != 3 || sum.Processed != 3 {
		t.Errorf("selected %d processed %d, want 3 and 3", sum.Selected, sum.Processed)
	}
	if sum.Enriched != 1 || sum.NotFound != 1 || sum.Skipped != 1 || sum.Failed != 0 {
		t.Errorf("summary = %+v", sum)
	}
	if sum.Canceled {
		t.Error("batch should not be canceled")
	}
	if r.Running() {
		t.Error("runner should be idle after the batch")
	}

	if rec := f.stored(t, exhausted.ID); rec.Status != StatusFailed || rec.RetryCount != 5 {
		t.Errorf("exhausted record was touched: %+v", rec)
	}
}

func TestRunBatch_Empty(t *testing.T) {
	f := newFixture(t, Providers{})
	r := NewRunner(&fakeEnricher{}, f.store, f.tracks, 1, 5, nil, testLogger())
	sum, err := r.RunBatch(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if sum.Selected != 0 || sum.Processed != 0 {
		t.Errorf("summary = %+v", sum)
	}
}

func TestRunBatch_RejectsConcurrentBatch(t *testing.T) {
	f := newFixture(t, Providers{})
	seedPending(t, f.store, f.tracks, "Airbag")

	fe := &fakeEnricher{started: make(chan struct{}, 1), release: make(chan struct{})}
	r := NewRunner(fe, f.store, f.tracks, 1, 5, nil, testLogger())

	done := make(chan error, 1)
	go func() {
		_, err := r.RunBatch(context.Background(), 10)
		done <- err
	}()

	<-fe.started
	if !r.Running() {
		t.Error("expected Running while a batch is in flight")
	}
	if _, err := r.RunBatch(context.Background(), 10); !errors.Is(err, ErrBatchRunning) {
		t.Errorf("second RunBatch error = %v, want ErrBatchRunning", err)
	}

	close(fe.release)
	if err := <-done; err != nil {
		t.Fatalf("first batch: %v", err)
	}
}

func TestRunBatch_StopsWhenCanceled(t *testing.T) {
	f := newFixture(t, Providers{})
	seedPending(t, f.store, f.tracks, "Airbag", "Lucky", "Let Down")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fe := &fakeEnricher{onCall: cancel}
	r := NewRunner(fe, f.store, f.tracks, 1, 5, nil, testLogger())

	sum, err := r.RunBatch(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if fe.count() != 1 || sum.Processed != 1 {
		t.Errorf("enriched %d, processed %d, want 1 each", fe.count(), sum.Processed)
	}
	if !sum.Canceled {
		t.Error("expected the summary to report cancellation")
	}
}

func TestRunBatch_CanceledInFlightIsDiscarded(t *testing.T) {
	f := newFixture(t, Providers{})
	seedPending(t, f.store, f.tracks, "Airbag", "Lucky")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fe := &fakeEnricher{onCall: cancel, result: Error{Message: "context canceled", Retryable: true}}
	r := NewRunner(fe, f.store, f.tracks, 1, 5, nil, testLogger())

	sum, err := r.RunBatch(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if sum.Discarded != 1 || sum.Failed != 0 || sum.Processed != 0 {
		t.Errorf("summary = %+v, want one discarded and nothing failed", sum)
	}
	if !sum.Canceled {
		t.Error("expected the summary to report cancellation")
	}
}

func TestRunBatch_MissingTrackCountsAsFailed(t *testing.T) {
	f := newFixture(t, Providers{})
	tr := seedPending(t, f.store, f.tracks, "Airbag")[0]
	if _, err := f.store.db.ExecContext(context.Background(), `PRAGMA foreign_keys = OFF`); err != nil {
		t.Fatal(err)
	}
	if _, err := f.store.db.ExecContext(context.Background(), `DELETE FROM tracks WHERE id = ?`, tr.ID); err != nil {
		t.Fatal(err)
	}

	fe := &fakeEnricher{}
	r := NewRunner(fe, f.store, f.tracks, 1, 5, nil, testLogger())
	sum, err := r.RunBatch(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if sum.Failed != 1 || fe.count() != 0 {
		t.Errorf("summary = %+v, enricher calls %d", sum, fe.count())
	}
}

func TestScheduler_NonPositiveInterval(t *testing.T) {
	f := newFixture(t, Providers{})
	s := NewScheduler(NewRunner(&fakeEnricher{}, f.store, f.tracks, 1, 5, nil, testLogger()), 10, testLogger())

	done := make(chan struct{})
	go func() {
		s.Start(context.Background(), 0)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start should return immediately for a zero interval")
	}
}

func TestScheduler_RunsUntilCanceled(t *testing.T) {
	f := newFixture(t, Providers{})
	seedPending(t, f.store, f.tracks, "Airbag")

	fe := &fakeEnricher{}
	s := NewScheduler(NewRunner(fe, f.store, f.tracks, 1, 5, nil, testLogger()), 10, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx, 10*time.Millisecond)
		close(done)
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop after cancel")
	}
	if fe.count() == 0 {
		t.Error("expected at least one scheduled batch")
	}
}

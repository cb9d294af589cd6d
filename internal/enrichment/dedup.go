package enrichment

import (
	"context"
	"fmt"
	"time"
)

// DedupResolver finds another track already enriched from the same catalog
// recording so its fields can be reused without further provider calls.
type DedupResolver struct {
	store Store
	ttl   time.Duration
	now   func() time.Time
}

// NewDedupResolver creates a resolver that only reuses records cached
// within ttl.
func NewDedupResolver(store Store, ttl time.Duration) *DedupResolver {
	return &DedupResolver{store: store, ttl: ttl, now: time.Now}
}

// Resolve looks for a fresh record of another track with the same
// MusicBrainz recording id. When one exists it returns its fields as merge
// input with every source marked dedup, and true.
func (d *DedupResolver) Resolve(ctx context.Context, trackID, mbRecordingID string) (*Resolved, bool, error) {
	if mbRecordingID == "" {
		return nil, false, nil
	}
	other, err := d.store.FindByExternalID(ctx, mbRecordingID, trackID)
	if err != nil {
		return nil, false, fmt.Errorf("dedup lookup: %w", err)
	}
	if other == nil || !other.IsFresh(d.now().UTC(), d.ttl) {
		return nil, false, nil
	}
	return resolvedFromRecord(other, SourceDedup), true, nil
}

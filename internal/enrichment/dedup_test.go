package enrichment

import (
	"testing"
	"time"

	"github.com/sydlexius/earmark/internal/track"
)

func TestDedupResolver(t *testing.T) {
	db := setupTestDB(t)
	store := NewSQLStore(db)
	ctx := t.Context()

	tr := createTrack(t, track.NewService(db), "Karma Police", "Radiohead")
	cached := time.Now().UTC()
	if err := store.Upsert(ctx, &Record{
		TrackID:       tr.ID,
		Status:        StatusEnriched,
		MBRecordingID: "rec-1",
		AlbumTitle:    "OK Computer",
		CachedAt:      &cached,
	}); err != nil {
		t.Fatal(err)
	}

	d := NewDedupResolver(store, time.Hour)
	in, ok, err := d.Resolve(ctx, "other-track", "rec-1")
	if err != nil || !ok {
		t.Fatalf("Resolve = %v, %v", ok, err)
	}
	if in.AlbumTitle != "OK Computer" || in.Sources[FieldAlbumTitle] != SourceDedup {
		t.Errorf("resolved = %+v", in)
	}

	if _, ok, _ := d.Resolve(ctx, tr.ID, "rec-1"); ok {
		t.Error("a track must not dedup against itself")
	}
	if _, ok, _ := d.Resolve(ctx, "other-track", ""); ok {
		t.Error("empty recording id must not match")
	}

	d.now = func() time.Time { return cached.Add(2 * time.Hour) }
	if _, ok, _ := d.Resolve(ctx, "other-track", "rec-1"); ok {
		t.Error("a stale record must not be reused")
	}
}

package enrichment

import (
	"context"
	"slices"
	"testing"
	"time"

	"github.com/sydlexius/earmark/internal/provider"
	"github.com/sydlexius/earmark/internal/track"
)

func TestCreatePending_Idempotent(t *testing.T) {
	db := setupTestDB(t)
	store := NewSQLStore(db)
	tr := createTrack(t, track.NewService(db), "Karma Police", "Radiohead")
	ctx := context.Background()

	created, err := store.CreatePending(ctx, tr.ID)
	if err != nil || !created {
		t.Fatalf("first CreatePending = %v, %v", created, err)
	}
	created, err = store.CreatePending(ctx, tr.ID)
	if err != nil || created {
		t.Fatalf("second CreatePending = %v, %v", created, err)
	}

	rec, err := store.Get(ctx, tr.ID)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Status != StatusPending || rec.RetryCount != 0 || rec.CachedAt != nil {
		t.Errorf("pending record = %+v", rec)
	}
	if rec.Sources == nil {
		t.Error("expected an empty sources map, not nil")
	}
}

func TestGet_Missing(t *testing.T) {
	store := NewSQLStore(setupTestDB(t))
	rec, err := store.Get(context.Background(), "nope")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec != nil {
		t.Errorf("expected nil, got %+v", rec)
	}
}

func TestUpsert_RoundTrip(t *testing.T) {
	db := setupTestDB(t)
	store := NewSQLStore(db)
	tr := createTrack(t, track.NewService(db), "Karma Police", "Radiohead")
	ctx := context.Background()

	cached := time.Now().UTC().Truncate(time.Second)
	rec := &Record{
		TrackID:        tr.ID,
		Status:         StatusEnriched,
		AlbumTitle:     "OK Computer",
		ReleaseYear:    1997,
		ReleaseType:    "album",
		Artwork:        provider.CoverArt{Small: "s", Medium: "m", Large: "l"},
		ArtistCountry:  "GB",
		ArtistType:     "Group",
		RecordLabel:    "Parlophone",
		Tags:           []string{"alternative", "90s"},
		Genres:         []string{"alternative rock"},
		GenreSource:    GenreCatalogTrack,
		MBRecordingID:  "rec-1",
		SpotifyID:      "sp1",
		AudioFeatures:  testFeatures(117),
		FeaturesSource: FeaturesCatalogID,
		Sources:        map[string]string{FieldGenres: "musicbrainz"},
		CachedAt:       &cached,
		LastAttemptAt:  &cached,
	}
	if err := store.Upsert(ctx, rec); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if rec.ID == "" {
		t.Fatal("expected ID to be assigned")
	}

	got, err := store.Get(ctx, tr.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.AlbumTitle != "OK Computer" || got.ReleaseYear != 1997 || got.RecordLabel != "Parlophone" {
		t.Errorf("scalar fields = %+v", got)
	}
	if got.Artwork != rec.Artwork {
		t.Errorf("artwork = %+v", got.Artwork)
	}
	if !slices.Equal(got.Tags, rec.Tags) || !slices.Equal(got.Genres, rec.Genres) {
		t.Errorf("lists = %v %v", got.Tags, got.Genres)
	}
	if got.GenreSource != GenreCatalogTrack {
		t.Errorf("genre source = %s", got.GenreSource)
	}
	if got.AudioFeatures == nil || got.AudioFeatures.Tempo != 117 || got.AudioFeatures.Key != 7 {
		t.Errorf("features = %+v", got.AudioFeatures)
	}
	if got.Sources[FieldGenres] != "musicbrainz" {
		t.Errorf("sources = %v", got.Sources)
	}
	if got.CachedAt == nil || !got.CachedAt.Equal(cached) {
		t.Errorf("cached_at = %v, want %v", got.CachedAt, cached)
	}

	// A second upsert replaces the row in place.
	got.Status = StatusFailed
	got.AudioFeatures = nil
	if err := store.Upsert(ctx, got); err != nil {
		t.Fatal(err)
	}
	again, _ := store.Get(ctx, tr.ID)
	if again.ID != rec.ID || again.Status != StatusFailed || again.AudioFeatures != nil {
		t.Errorf("after update = %+v", again)
	}
}

func TestUpsert_RequiresTrackID(t *testing.T) {
	store := NewSQLStore(setupTestDB(t))
	if err := store.Upsert(context.Background(), &Record{}); err == nil {
		t.Error("expected error without track id")
	}
}

func TestFindByExternalID(t *testing.T) {
	db := setupTestDB(t)
	store := NewSQLStore(db)
	tracks := track.NewService(db)
	ctx := context.Background()

	a := createTrack(t, tracks, "Karma Police", "Radiohead")
	b := createTrack(t, tracks, "Karma Police (Live)", "Radiohead")
	c := createTrack(t, tracks, "Karma Police (Demo)", "Radiohead")

	now := time.Now().UTC()
	for _, r := range []*Record{
		{TrackID: a.ID, Status: StatusEnriched, MBRecordingID: "rec-1", AlbumTitle: "OK Computer", CachedAt: &now},
		{TrackID: b.ID, Status: StatusFailed, MBRecordingID: "rec-1"},
	} {
		if err := store.Upsert(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	got, err := store.FindByExternalID(ctx, "rec-1", c.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.TrackID != a.ID {
		t.Fatalf("expected the enriched record of track a, got %+v", got)
	}

	if got, _ := store.FindByExternalID(ctx, "rec-1", a.ID); got != nil {
		t.Errorf("own record and non-enriched records must be ignored, got %+v", got)
	}
	if got, _ := store.FindByExternalID(ctx, "", c.ID); got != nil {
		t.Errorf("empty id matched %+v", got)
	}
}

func TestMarkForReenrichment(t *testing.T) {
	db := setupTestDB(t)
	store := NewSQLStore(db)
	tracks := track.NewService(db)
	ctx := context.Background()

	tr := createTrack(t, tracks, "Karma Police", "Radiohead")
	now := time.Now().UTC()
	if err := store.Upsert(ctx, &Record{
		TrackID:    tr.ID,
		Status:     StatusFailed,
		AlbumTitle: "OK Computer",
		RetryCount: 4,
		LastError:  "timeout",
		CachedAt:   &now,
	}); err != nil {
		t.Fatal(err)
	}

	if err := store.MarkForReenrichment(ctx, tr.ID); err != nil {
		t.Fatalf("MarkForReenrichment: %v", err)
	}
	got, _ := store.Get(ctx, tr.ID)
	if got.Status != StatusPending || got.RetryCount != 0 || got.LastError != "" || got.CachedAt != nil {
		t.Errorf("after reset = %+v", got)
	}
	if got.AlbumTitle != "OK Computer" {
		t.Error("resolved fields should be kept")
	}

	// A track without a record gets a pending one.
	other := createTrack(t, tracks, "Airbag", "Radiohead")
	if err := store.MarkForReenrichment(ctx, other.ID); err != nil {
		t.Fatal(err)
	}
	if got, _ := store.Get(ctx, other.ID); got == nil || got.Status != StatusPending {
		t.Errorf("expected a pending record, got %+v", got)
	}
}

func TestListEligible(t *testing.T) {
	db := setupTestDB(t)
	store := NewSQLStore(db)
	tracks := track.NewService(db)
	ctx := context.Background()

	older := time.Now().UTC().Add(-2 * time.Hour)
	newer := time.Now().UTC().Add(-1 * time.Hour)

	failedNew := createTrack(t, tracks, "Airbag", "Radiohead")
	failedOld := createTrack(t, tracks, "Paranoid Android", "Radiohead")
	exhausted := createTrack(t, tracks, "Lucky", "Radiohead")
	enriched := createTrack(t, tracks, "No Surprises", "Radiohead")
	pending := createTrack(t, tracks, "Let Down", "Radiohead")

	for _, r := range []*Record{
		{TrackID: failedNew.ID, Status: StatusFailed, RetryCount: 1, LastAttemptAt: &newer},
		{TrackID: failedOld.ID, Status: StatusFailed, RetryCount: 2, LastAttemptAt: &older},
		{TrackID: exhausted.ID, Status: StatusFailed, RetryCount: 3, LastAttemptAt: &older},
		{TrackID: enriched.ID, Status: StatusEnriched},
	} {
		if err := store.Upsert(ctx, r); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := store.CreatePending(ctx, pending.ID); err != nil {
		t.Fatal(err)
	}

	ids, err := store.ListEligible(ctx, 3, 10)
	if err != nil {
		t.Fatalf("ListEligible: %v", err)
	}
	want := []string{pending.ID, failedOld.ID, failedNew.ID}
	if !slices.Equal(ids, want) {
		t.Errorf("ids = %v, want %v", ids, want)
	}

	ids, _ = store.ListEligible(ctx, 3, 1)
	if len(ids) != 1 || ids[0] != pending.ID {
		t.Errorf("limited ids = %v", ids)
	}
}

func TestCountByStatus(t *testing.T) {
	db := setupTestDB(t)
	store := NewSQLStore(db)
	tracks := track.NewService(db)
	ctx := context.Background()

	for _, title := range []string{"Airbag", "Lucky"} {
		tr := createTrack(t, tracks, title, "Radiohead")
		if _, err := store.CreatePending(ctx, tr.ID); err != nil {
			t.Fatal(err)
		}
	}
	tr := createTrack(t, tracks, "Let Down", "Radiohead")
	if err := store.Upsert(ctx, &Record{TrackID: tr.ID, Status: StatusNotFound}); err != nil {
		t.Fatal(err)
	}

	counts, err := store.CountByStatus(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if counts[StatusPending] != 2 || counts[StatusNotFound] != 1 || counts[StatusEnriched] != 0 {
		t.Errorf("counts = %v", counts)
	}
}

package backup

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/sydlexius/earmark/internal/database"
	"github.com/sydlexius/earmark/internal/track"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()
	db, err := database.Open(ctx, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := database.Migrate(ctx, db); err != nil {
		t.Fatalf("running migrations: %v", err)
	}
	if err := track.NewService(db).Create(ctx, &track.Track{Title: "Karma Police", Artist: "Radiohead"}); err != nil {
		t.Fatal(err)
	}
	return db
}

// fixedClock returns a clock that advances one minute per call.
func fixedClock(start time.Time) func() time.Time {
	cur := start
	return func() time.Time {
		t := cur
		cur = cur.Add(time.Minute)
		return t
	}
}

func TestBackup(t *testing.T) {
	db := setupTestDB(t)
	dir := filepath.Join(t.TempDir(), "backups")
	svc := NewService(db, dir, Policy{Retention: 7}, testLogger())

	info, err := svc.Backup(context.Background())
	if err != nil {
		t.Fatalf("Backup: %v", err)
	}
	if !backupPattern.MatchString(info.Filename) || info.Size == 0 {
		t.Errorf("info = %+v", info)
	}

	// The snapshot is a usable database with the same rows.
	snap, err := sql.Open("sqlite", filepath.Join(dir, info.Filename))
	if err != nil {
		t.Fatalf("opening backup: %v", err)
	}
	defer snap.Close() //nolint:errcheck
	var n int
	if err := snap.QueryRow("SELECT COUNT(*) FROM tracks").Scan(&n); err != nil {
		t.Fatalf("querying backup: %v", err)
	}
	if n != 1 {
		t.Errorf("tracks in backup = %d, want 1", n)
	}
}

func TestBackup_SameSecondCollision(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db, t.TempDir(), Policy{}, testLogger())
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	svc.now = func() time.Time { return at }

	if _, err := svc.Backup(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Backup(context.Background()); err == nil {
		t.Error("expected an error when the target file exists")
	}
}

func TestList(t *testing.T) {
	db := setupTestDB(t)
	dir := t.TempDir()
	svc := NewService(db, dir, Policy{}, testLogger())
	svc.now = fixedClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	for range 3 {
		if _, err := svc.Backup(context.Background()); err != nil {
			t.Fatal(err)
		}
	}
	// Unrelated files are ignored.
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}

	list, err := svc.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 3 {
		t.Fatalf("got %d backups, want 3", len(list))
	}
	if list[0].Filename != "earmark-20260101-000200.db" {
		t.Errorf("newest = %s", list[0].Filename)
	}
}

func TestList_MissingDir(t *testing.T) {
	svc := NewService(nil, filepath.Join(t.TempDir(), "absent"), Policy{}, testLogger())
	list, err := svc.List()
	if err != nil || list != nil {
		t.Errorf("List = %v, %v", list, err)
	}
}

func TestPrune_Retention(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db, t.TempDir(), Policy{Retention: 2}, testLogger())
	svc.now = fixedClock(time.Now().UTC().Add(-time.Hour))

	for range 4 {
		if _, err := svc.Backup(context.Background()); err != nil {
			t.Fatal(err)
		}
	}
	removed, err := svc.Prune()
	if err != nil {
		t.Fatal(err)
	}
	if len(removed) != 2 {
		t.Errorf("removed = %v", removed)
	}
	list, _ := svc.List()
	if len(list) != 2 {
		t.Errorf("remaining = %d, want 2", len(list))
	}
}

func TestPrune_MaxAge(t *testing.T) {
	db := setupTestDB(t)
	dir := t.TempDir()
	svc := NewService(db, dir, Policy{MaxAgeDays: 7}, testLogger())

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now.AddDate(0, 0, -10) }
	old, err := svc.Backup(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	svc.now = func() time.Time { return now.AddDate(0, 0, -1) }
	recent, err := svc.Backup(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	svc.now = func() time.Time { return now }
	removed, err := svc.Prune()
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(removed, []string{old.Filename}) {
		t.Errorf("removed = %v, want only %s", removed, old.Filename)
	}
	if _, err := os.Stat(filepath.Join(dir, recent.Filename)); err != nil {
		t.Errorf("recent backup removed: %v", err)
	}
}

func TestStartScheduler_Disabled(t *testing.T) {
	svc := NewService(nil, t.TempDir(), Policy{}, testLogger())
	done := make(chan struct{})
	go func() {
		svc.StartScheduler(context.Background(), 0)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("StartScheduler should return immediately for a zero interval")
	}
}

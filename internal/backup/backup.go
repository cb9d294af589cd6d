// Package backup snapshots the SQLite database with VACUUM INTO and prunes
// old snapshots by count and age.
package backup

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
)

const timeLayout = "20060102-150405"

// backupPattern matches backup filenames: earmark-YYYYMMDD-HHMMSS.db
var backupPattern = regexp.MustCompile(`^earmark-\d{8}-\d{6}\.db$`)

// Info describes a backup file.
type Info struct {
	Filename  string    `json:"filename"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// Policy bounds how many snapshots are kept. Zero disables a bound.
type Policy struct {
	Retention  int
	MaxAgeDays int
}

// Service manages database backups.
type Service struct {
	db     *sql.DB
	dir    string
	policy Policy
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a backup service writing into dir.
func NewService(db *sql.DB, dir string, policy Policy, logger *slog.Logger) *Service {
	return &Service{
		db:     db,
		dir:    dir,
		policy: policy,
		logger: logger.With(slog.String("component", "backup")),
		now:    time.Now,
	}
}

// Dir returns the backup directory.
func (s *Service) Dir() string { return s.dir }

// Backup writes a consistent snapshot of the database.
func (s *Service) Backup(ctx context.Context) (*Info, error) {
	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating backup directory: %w", err)
	}

	now := s.now().UTC()
	filename := "earmark-" + now.Format(timeLayout) + ".db"
	dest := filepath.Join(s.dir, filename)
	if _, err := os.Stat(dest); err == nil {
		return nil, fmt.Errorf("backup %s already exists", filename)
	}

	// Snapshot under a temporary name so List never sees a partial file.
	tmp := dest + ".tmp"
	_ = os.Remove(tmp)
	if _, err := s.db.ExecContext(ctx, "VACUUM INTO ?", tmp); err != nil {
		_ = os.Remove(tmp)
		return nil, fmt.Errorf("VACUUM INTO: %w", err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		_ = os.Remove(tmp)
		return nil, fmt.Errorf("publishing backup: %w", err)
	}

	info, err := os.Stat(dest)
	if err != nil {
		return nil, fmt.Errorf("stat backup file: %w", err)
	}

	s.logger.Info("backup complete",
		slog.String("filename", filename),
		slog.Int64("size", info.Size()))

	return &Info{Filename: filename, Size: info.Size(), CreatedAt: now}, nil
}

// List returns all backup files, newest first.
func (s *Service) List() ([]Info, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading backup directory: %w", err)
	}

	var out []Info
	for _, entry := range entries {
		if entry.IsDir() || !backupPattern.MatchString(entry.Name()) {
			continue
		}
		fi, err := entry.Info()
		if err != nil {
			continue
		}
		stamp := strings.TrimSuffix(strings.TrimPrefix(entry.Name(), "earmark-"), ".db")
		ts, err := time.Parse(timeLayout, stamp)
		if err != nil {
			ts = fi.ModTime()
		}
		out = append(out, Info{Filename: entry.Name(), Size: fi.Size(), CreatedAt: ts})
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// Prune deletes backups beyond the retention count or older than the max
// age. It returns the names of the removed files.
func (s *Service) Prune() ([]string, error) {
	backups, err := s.List()
	if err != nil {
		return nil, err
	}

	var cutoff time.Time
	if s.policy.MaxAgeDays > 0 {
		cutoff = s.now().UTC().AddDate(0, 0, -s.policy.MaxAgeDays)
	}

	var removed []string
	for i, b := range backups {
		overCount := s.policy.Retention > 0 && i >= s.policy.Retention
		tooOld := !cutoff.IsZero() && b.CreatedAt.Before(cutoff)
		if !overCount && !tooOld {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, b.Filename)); err != nil {
			s.logger.Warn("failed to remove old backup",
				slog.String("filename", b.Filename),
				slog.Any("error", err))
			continue
		}
		removed = append(removed, b.Filename)
		s.logger.Info("pruned backup", slog.String("filename", b.Filename))
	}
	return removed, nil
}

// StartScheduler backs up and prunes on a fixed interval until the context
// is canceled. A non-positive interval disables the schedule.
func (s *Service) StartScheduler(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	s.logger.Info("backup scheduler started",
		slog.String("interval", interval.String()),
		slog.Int("retention", s.policy.Retention))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("backup scheduler stopped")
			return
		case <-ticker.C:
			if _, err := s.Backup(ctx); err != nil {
				s.logger.Error("scheduled backup failed", slog.Any("error", err))
				continue
			}
			if _, err := s.Prune(); err != nil {
				s.logger.Error("backup prune failed", slog.Any("error", err))
			}
		}
	}
}

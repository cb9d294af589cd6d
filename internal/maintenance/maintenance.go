// Package maintenance keeps the SQLite file compact: periodic PRAGMA
// optimize with a WAL checkpoint, and an on-demand VACUUM.
package maintenance

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"
)

// Status holds database maintenance status information.
type Status struct {
	DBFileSize     int64      `json:"db_file_size"`
	WALFileSize    int64      `json:"wal_file_size"`
	PageCount      int64      `json:"page_count"`
	PageSize       int64      `json:"page_size"`
	FreelistCount  int64      `json:"freelist_count"`
	LastOptimizeAt *time.Time `json:"last_optimize_at,omitempty"`
	Interval       string     `json:"schedule_interval,omitempty"`
}

// Service provides database maintenance operations.
type Service struct {
	db     *sql.DB
	dbPath string
	logger *slog.Logger

	mu           sync.Mutex
	lastOptimize time.Time
	interval     time.Duration
}

// NewService creates a maintenance service. dbPath is only used to report
// file sizes and may be ":memory:".
func NewService(db *sql.DB, dbPath string, logger *slog.Logger) *Service {
	return &Service{
		db:     db,
		dbPath: dbPath,
		logger: logger.With(slog.String("component", "maintenance")),
	}
}

// Status returns current database maintenance status.
func (s *Service) Status(ctx context.Context) (*Status, error) {
	st := &Status{}

	if info, err := os.Stat(s.dbPath); err == nil {
		st.DBFileSize = info.Size()
	}
	if info, err := os.Stat(s.dbPath + "-wal"); err == nil {
		st.WALFileSize = info.Size()
	}

	for _, p := range []struct {
		pragma string
		dst    *int64
	}{
		{"page_count", &st.PageCount},
		{"page_size", &st.PageSize},
		{"freelist_count", &st.FreelistCount},
	} {
		if err := s.db.QueryRowContext(ctx, "PRAGMA "+p.pragma).Scan(p.dst); err != nil {
			return nil, fmt.Errorf("reading %s: %w", p.pragma, err)
		}
	}

	s.mu.Lock()
	if !s.lastOptimize.IsZero() {
		t := s.lastOptimize
		st.LastOptimizeAt = &t
	}
	if s.interval > 0 {
		st.Interval = s.interval.String()
	}
	s.mu.Unlock()

	return st, nil
}

// Optimize runs PRAGMA optimize followed by a WAL checkpoint.
func (s *Service) Optimize(ctx context.Context) error {
	s.logger.Debug("running PRAGMA optimize")
	if _, err := s.db.ExecContext(ctx, "PRAGMA optimize"); err != nil {
		return fmt.Errorf("PRAGMA optimize: %w", err)
	}

	s.logger.Debug("running WAL checkpoint")
	if _, err := s.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return fmt.Errorf("WAL checkpoint: %w", err)
	}

	s.mu.Lock()
	s.lastOptimize = time.Now().UTC()
	s.mu.Unlock()

	s.logger.Info("optimize complete")
	return nil
}

// Vacuum runs VACUUM to rebuild the database file.
func (s *Service) Vacuum(ctx context.Context) error {
	s.logger.Info("running VACUUM")
	if _, err := s.db.ExecContext(ctx, "VACUUM"); err != nil {
		return fmt.Errorf("VACUUM: %w", err)
	}
	s.logger.Info("vacuum complete")
	return nil
}

// StartScheduler runs optimize on a fixed interval until the context is
// canceled. A non-positive interval disables the schedule.
func (s *Service) StartScheduler(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		s.logger.Info("maintenance scheduler disabled")
		return
	}
	s.mu.Lock()
	s.interval = interval
	s.mu.Unlock()

	s.logger.Info("maintenance scheduler started",
		slog.String("interval", interval.String()))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("maintenance scheduler stopped")
			return
		case <-ticker.C:
			if err := s.Optimize(ctx); err != nil {
				s.logger.Error("scheduled optimize failed", slog.Any("error", err))
			}
		}
	}
}

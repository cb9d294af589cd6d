package api

import (
	"log/slog"
	"net/http"

	"github.com/sydlexius/earmark/internal/backup"
)

// handleDatabaseStatus returns database file and page statistics.
// GET /api/v1/database
func (r *Router) handleDatabaseStatus(w http.ResponseWriter, req *http.Request) {
	if r.maintenance == nil {
		writeError(w, http.StatusServiceUnavailable, "maintenance service not configured")
		return
	}
	st, err := r.maintenance.Status(req.Context())
	if err != nil {
		r.logger.Error("reading database status", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// handleDatabaseOptimize runs PRAGMA optimize and a WAL checkpoint now.
// POST /api/v1/database/optimize
func (r *Router) handleDatabaseOptimize(w http.ResponseWriter, req *http.Request) {
	if r.maintenance == nil {
		writeError(w, http.StatusServiceUnavailable, "maintenance service not configured")
		return
	}
	if err := r.maintenance.Optimize(req.Context()); err != nil {
		r.logger.Error("optimizing database", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "optimized"})
}

// handleListBackups returns the snapshots in the backup directory.
// GET /api/v1/backups
func (r *Router) handleListBackups(w http.ResponseWriter, _ *http.Request) {
	if r.backups == nil {
		writeError(w, http.StatusServiceUnavailable, "backup service not configured")
		return
	}
	list, err := r.backups.List()
	if err != nil {
		r.logger.Error("listing backups", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if list == nil {
		list = []backup.Info{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"backups": list})
}

// handleCreateBackup snapshots the database and applies the retention policy.
// POST /api/v1/backups
func (r *Router) handleCreateBackup(w http.ResponseWriter, req *http.Request) {
	if r.backups == nil {
		writeError(w, http.StatusServiceUnavailable, "backup service not configured")
		return
	}
	info, err := r.backups.Backup(req.Context())
	if err != nil {
		r.logger.Error("creating backup", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "backup failed")
		return
	}
	removed, err := r.backups.Prune()
	if err != nil {
		r.logger.Warn("pruning backups", slog.String("error", err.Error()))
	}
	if removed == nil {
		removed = []string{}
	}
	writeJSON(w, http.StatusCreated, map[string]any{"backup": info, "pruned": removed})
}

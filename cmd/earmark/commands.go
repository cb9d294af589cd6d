package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/sydlexius/earmark/internal/api"
	"github.com/sydlexius/earmark/internal/api/middleware"
	"github.com/sydlexius/earmark/internal/config"
	"github.com/sydlexius/earmark/internal/database"
	"github.com/sydlexius/earmark/internal/enrichment"
	"github.com/sydlexius/earmark/internal/maintenance"
	"github.com/sydlexius/earmark/internal/watcher"
)

func newServeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the enrichment scheduler, and the config watcher",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
}

func runServe(parent context.Context, opts *options) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, opts)
	if err != nil {
		return err
	}
	defer a.Close()
	cfg := a.cfg
	logger := a.logger

	var limiter *middleware.ClientRateLimiter
	if rpm := cfg.Server.RateLimit.RequestsPerMinute; rpm > 0 {
		limiter = middleware.NewClientRateLimiter(ctx, time.Minute/time.Duration(rpm), cfg.Server.RateLimit.Burst)
	}
	if cfg.Server.APIToken == "" {
		logger.Warn("api token not set, the API is open to anyone who can reach it")
	}

	router := api.NewRouter(api.RouterDeps{
		TrackService:     a.tracks,
		Orchestrator:     a.orch,
		EnrichmentStore:  a.store,
		Runner:           a.runner,
		ProviderRegistry: a.registry,
		EventBus:         a.bus,
		Maintenance:      a.maint,
		Backups:          a.backups,
		RateLimiter:      limiter,
		Logger:           logger,
		BasePath:         cfg.Server.BasePath,
		APIToken:         cfg.Server.APIToken,
		BatchSize:        cfg.Enrichment.BatchSize,
		BaseContext:      ctx,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	scheduler := enrichment.NewScheduler(a.runner, cfg.Enrichment.BatchSize, logger)
	go scheduler.Start(ctx, cfg.Enrichment.Interval)
	go a.maint.StartScheduler(ctx, cfg.Database.MaintenanceInterval)
	go a.backups.StartScheduler(ctx, cfg.Backup.Interval)

	if _, err := os.Stat(opts.configPath); err == nil {
		w := watcher.NewService(opts.configPath, a.reload, a.bus, logger)
		go w.Start(ctx)
	} else {
		logger.Info("config file not found, live reload disabled", slog.String("path", opts.configPath))
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", slog.String("addr", addr), slog.String("base_path", cfg.Server.BasePath))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newEnrichCmd(opts *options) *cobra.Command {
	var force, supplement bool
	cmd := &cobra.Command{
		Use:   "enrich <track-id>",
		Short: "Enrich one track now and print the result",
		Example: `  earmark enrich 3f8c2a1e-...
  earmark enrich 3f8c2a1e-... --force`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			t, err := a.tracks.Get(ctx, args[0])
			if err != nil {
				return err
			}
			var res enrichment.Result
			if supplement {
				res = a.orch.Supplement(ctx, t, nil)
			} else {
				res = a.orch.Enrich(ctx, t, force)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(map[string]any{"outcome": res.Outcome(), "result": res}); err != nil {
				return err
			}
			if e, ok := res.(enrichment.Error); ok {
				return fmt.Errorf("enrichment failed: %s", e.Message)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "ignore the cache and a previous not-found result")
	cmd.Flags().BoolVar(&supplement, "supplement", false, "only fill in fields the stored record lacks")
	cmd.MarkFlagsMutuallyExclusive("force", "supplement")
	return cmd
}

func newReenrichCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "reenrich <track-id>",
		Short: "Reset a track so the next batch enriches it again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			t, err := a.tracks.Get(ctx, args[0])
			if err != nil {
				return err
			}
			if err := a.orch.RequestReenrichment(ctx, t.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s queued for re-enrichment\n", t.ID)
			return nil
		},
	}
}

func newMigrateCmd(opts *options) *cobra.Command {
	var vacuum bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and print the schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load(opts.configPath, opts.envFile)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			db, err := database.Open(ctx, cfg.Database.Path)
			if err != nil {
				return fmt.Errorf("opening database: %w", err)
			}
			defer db.Close() //nolint:errcheck

			if err := database.Migrate(ctx, db); err != nil {
				return fmt.Errorf("running migrations: %w", err)
			}
			v, err := database.SchemaVersion(ctx, db)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema version %d\n", v)

			if vacuum {
				m := maintenance.NewService(db, cfg.Database.Path, slog.Default())
				if err := m.Vacuum(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "vacuum complete")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&vacuum, "vacuum", false, "rebuild the database file after migrating")
	return cmd
}

func newBackupCmd(opts *options) *cobra.Command {
	var list, prune bool
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Snapshot the database into the backup directory",
		Example: `  earmark backup
  earmark backup --list`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, opts)
			if err != nil {
				return err
			}
			defer a.Close()
			out := cmd.OutOrStdout()

			if list {
				backups, err := a.backups.List()
				if err != nil {
					return err
				}
				for _, b := range backups {
					fmt.Fprintf(out, "%s\t%d\t%s\n", b.Filename, b.Size, b.CreatedAt.Format(time.RFC3339))
				}
				return nil
			}

			info, err := a.backups.Backup(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "wrote %s\n", filepath.Join(a.backups.Dir(), info.Filename))

			if prune {
				removed, err := a.backups.Prune()
				if err != nil {
					return err
				}
				for _, name := range removed {
					fmt.Fprintf(out, "removed %s\n", name)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&list, "list", false, "list existing backups instead of creating one")
	cmd.Flags().BoolVar(&prune, "prune", false, "apply the retention policy after the backup")
	cmd.MarkFlagsMutuallyExclusive("list", "prune")
	return cmd
}

package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/sydlexius/earmark/internal/backup"
	"github.com/sydlexius/earmark/internal/config"
	"github.com/sydlexius/earmark/internal/database"
	"github.com/sydlexius/earmark/internal/enrichment"
	"github.com/sydlexius/earmark/internal/event"
	"github.com/sydlexius/earmark/internal/logging"
	"github.com/sydlexius/earmark/internal/maintenance"
	"github.com/sydlexius/earmark/internal/match"
	"github.com/sydlexius/earmark/internal/provider"
	"github.com/sydlexius/earmark/internal/provider/audiodb"
	"github.com/sydlexius/earmark/internal/provider/coverart"
	"github.com/sydlexius/earmark/internal/provider/deezer"
	"github.com/sydlexius/earmark/internal/provider/lastfm"
	"github.com/sydlexius/earmark/internal/provider/musicbrainz"
	"github.com/sydlexius/earmark/internal/provider/preview"
	"github.com/sydlexius/earmark/internal/provider/reccobeats"
	"github.com/sydlexius/earmark/internal/provider/spotify"
	"github.com/sydlexius/earmark/internal/track"
	"github.com/sydlexius/earmark/internal/webhook"
)

// app holds the services every subcommand needs.
type app struct {
	opts       *options
	cfg        *config.Config
	logManager *logging.Manager
	logger     *slog.Logger
	db         *sql.DB
	limits     *provider.RateLimiterMap
	registry   *provider.Registry
	bus        *event.Bus
	tracks     *track.Service
	store      *enrichment.SQLStore
	orch       *enrichment.Orchestrator
	runner     *enrichment.Runner
	maint      *maintenance.Service
	backups    *backup.Service
	webhooks   *webhook.Dispatcher
}

// newApp loads configuration, opens and migrates the database, and wires
// the provider adapters into an orchestrator and runner.
func newApp(ctx context.Context, opts *options) (*app, error) {
	cfg, err := config.Load(opts.configPath, opts.envFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	logManager, logger := logging.NewManager(loggingConfig(cfg.Logging))
	slog.SetDefault(logger)

	hooks := make([]webhook.Webhook, 0, len(cfg.Notifications.Webhooks))
	for _, wc := range cfg.Notifications.Webhooks {
		h := webhook.Webhook{Name: wc.Name, URL: wc.URL, Type: wc.Type}
		for _, e := range wc.Events {
			h.Events = append(h.Events, event.Type(e))
		}
		hooks = append(hooks, h)
	}
	webhooks, err := webhook.NewDispatcher(hooks, logger)
	if err != nil {
		logManager.Close() //nolint:errcheck
		return nil, fmt.Errorf("configuring webhooks: %w", err)
	}

	db, err := database.Open(ctx, cfg.Database.Path)
	if err != nil {
		logManager.Close() //nolint:errcheck
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := database.Migrate(ctx, db); err != nil {
		db.Close()         //nolint:errcheck
		logManager.Close() //nolint:errcheck
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("database ready", slog.String("path", cfg.Database.Path))

	a := &app{
		opts:       opts,
		cfg:        cfg,
		logManager: logManager,
		logger:     logger,
		db:         db,
		limits:     provider.NewRateLimiterMap(minDelays(cfg.Providers.MinDelay)),
		bus:        event.NewBus(logger, 256),
		tracks:     track.NewService(db),
		store:      enrichment.NewSQLStore(db),
		maint:      maintenance.NewService(db, cfg.Database.Path, logger),
		backups:    newBackupService(db, cfg, logger),
		webhooks:   webhooks,
	}
	a.registry = provider.NewRegistry(a.limits)

	providers := a.buildProviders()
	a.orch = enrichment.NewOrchestrator(a.store, a.tracks, providers, orchestratorOptions(cfg.Enrichment), a.bus, logger)
	a.runner = enrichment.NewRunner(a.orch, a.store, a.tracks, cfg.Enrichment.Workers, cfg.Enrichment.MaxRetries, a.bus, logger)

	a.webhooks.Subscribe(a.bus)

	a.bus.SubscribeMany([]event.Type{
		event.TrackEnriched,
		event.TrackNotFound,
		event.EnrichmentFailed,
		event.BatchCompleted,
		event.ConfigReloaded,
	}, func(e event.Event) {
		logger.Debug("event", slog.String("type", string(e.Type)), slog.Any("data", e.Data))
	})
	go a.bus.Start()

	return a, nil
}

// buildProviders constructs every adapter, registers it for status
// reporting, and fills the orchestrator's slots. Adapters whose
// credentials are missing stay unregistered so their steps are skipped.
func (a *app) buildProviders() enrichment.Providers {
	pc := a.cfg.Providers
	logger := a.logger

	for name := range pc.BaseURLs {
		if !provider.ProviderName(name).Valid() {
			logger.Warn("ignoring base url for unknown provider", slog.String("provider", name))
		}
	}
	baseURL := func(name provider.ProviderName) string { return pc.BaseURLs[string(name)] }

	mb := musicbrainz.New(a.limits, logger)
	if u := baseURL(provider.NameMusicBrainz); u != "" {
		mb = musicbrainz.NewWithBaseURL(a.limits, logger, u)
	}
	if pc.UserAgent != "" {
		mb.SetUserAgent(pc.UserAgent)
	}

	caa := coverart.New(a.limits, logger)
	if u := baseURL(provider.NameCoverArt); u != "" {
		caa = coverart.NewWithBaseURL(a.limits, logger, u)
	}

	adb := audiodb.New(a.limits, pc.AudioDB.APIKey, logger)
	if u := baseURL(provider.NameAudioDB); u != "" {
		adb = audiodb.NewWithBaseURL(a.limits, pc.AudioDB.APIKey, logger, u)
	}

	dz := deezer.New(a.limits, logger)
	if u := baseURL(provider.NameDeezer); u != "" {
		dz = deezer.NewWithBaseURL(a.limits, logger, u)
	}

	rb := reccobeats.New(a.limits, logger)
	if u := baseURL(provider.NameReccoBeats); u != "" {
		rb = reccobeats.NewWithBaseURL(a.limits, logger, u)
	}

	pv := preview.New(logger, a.cfg.Enrichment.MaxPreviewBytes)

	p := enrichment.Providers{
		Catalog:      mb,
		Artwork:      caa,
		ArtistGenres: adb,
		TrackLookup:  dz,
		Features:     rb,
		Analyzer:     rb,
		Previews:     pv,
	}
	for _, s := range []provider.Source{mb, caa, adb, dz, rb, pv} {
		a.registry.Register(s)
	}

	if pc.LastFM.APIKey != "" {
		lf := lastfm.New(a.limits, pc.LastFM.APIKey, logger)
		if u := baseURL(provider.NameLastFM); u != "" {
			lf = lastfm.NewWithBaseURL(a.limits, pc.LastFM.APIKey, logger, u)
		}
		p.Tags = lf
		a.registry.Register(lf)
	} else {
		logger.Info("last.fm api key not set, community tags disabled")
	}

	if pc.Spotify.ClientID != "" && pc.Spotify.ClientSecret != "" {
		sp := spotify.New(a.limits, logger, pc.Spotify.ClientID, pc.Spotify.ClientSecret)
		p.Searcher = sp
		a.registry.Register(sp)
	} else {
		logger.Info("spotify credentials not set, catalog id search disabled")
	}

	return p
}

// reload re-reads the config file and applies the settings that can change
// without a restart: logging and provider pacing.
func (a *app) reload(_ context.Context) error {
	cfg, err := config.Load(a.opts.configPath, a.opts.envFile)
	if err != nil {
		return err
	}
	if a.logManager.Reconfigure(loggingConfig(cfg.Logging)) {
		a.logger.Info("logging reconfigured",
			slog.String("level", cfg.Logging.Level),
			slog.String("format", cfg.Logging.Format))
	}
	for name, d := range minDelays(cfg.Providers.MinDelay) {
		a.limits.SetMinDelay(name, d)
	}
	return nil
}

// Close stops the event bus, waits for webhook deliveries, and releases
// the database and log file.
func (a *app) Close() {
	a.bus.Stop()
	a.webhooks.Wait()
	if err := a.db.Close(); err != nil {
		a.logger.Error("closing database", "error", err)
	}
	a.logManager.Close() //nolint:errcheck
}

func newBackupService(db *sql.DB, cfg *config.Config, logger *slog.Logger) *backup.Service {
	return backup.NewService(db, cfg.Backup.Dir, backup.Policy{
		Retention:  cfg.Backup.Retention,
		MaxAgeDays: cfg.Backup.MaxAgeDays,
	}, logger)
}

func loggingConfig(c config.LoggingConfig) logging.Config {
	return logging.Config{
		Level:          c.Level,
		Format:         c.Format,
		FilePath:       c.FilePath,
		FileMaxSizeMB:  c.FileMaxSizeMB,
		FileMaxFiles:   c.FileMaxFiles,
		FileMaxAgeDays: c.FileMaxAgeDays,
	}
}

func minDelays(in map[string]time.Duration) map[provider.ProviderName]time.Duration {
	out := make(map[provider.ProviderName]time.Duration, len(in))
	for name, d := range in {
		out[provider.ProviderName(name)] = d
	}
	return out
}

func orchestratorOptions(c config.EnrichmentConfig) enrichment.Options {
	opts := enrichment.DefaultOptions()
	opts.CacheTTL = c.CacheTTL
	if c.RetryDelay > 0 {
		opts.Retry.Delay = c.RetryDelay
	}
	opts.Thresholds = thresholds(c.Matching)
	opts.SecondaryThresholds = thresholds(c.SecondaryMatching)
	return opts
}

func thresholds(m config.MatchingConfig) match.Thresholds {
	return match.Thresholds{
		StrictMinScore:  m.StrictMinScore,
		StrictMinTitle:  m.StrictMinTitle,
		RelaxedMinScore: m.RelaxedMinScore,
		RelaxedMinTitle: m.RelaxedMinTitle,
	}
}

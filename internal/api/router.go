package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sydlexius/earmark/internal/api/middleware"
	"github.com/sydlexius/earmark/internal/backup"
	"github.com/sydlexius/earmark/internal/enrichment"
	"github.com/sydlexius/earmark/internal/event"
	"github.com/sydlexius/earmark/internal/maintenance"
	"github.com/sydlexius/earmark/internal/provider"
	"github.com/sydlexius/earmark/internal/track"
)

// RouterDeps bundles all dependencies needed by the HTTP router.
type RouterDeps struct {
	TrackService     *track.Service
	Orchestrator     *enrichment.Orchestrator
	EnrichmentStore  *enrichment.SQLStore
	Runner           *enrichment.Runner
	ProviderRegistry *provider.Registry
	EventBus         *event.Bus
	Maintenance      *maintenance.Service
	Backups          *backup.Service
	// RateLimiter guards the endpoints that call external catalogs. Nil
	// disables the limit.
	RateLimiter *middleware.ClientRateLimiter
	Logger      *slog.Logger
	BasePath    string
	APIToken    string
	BatchSize   int
	// BaseContext bounds background batches started over HTTP. Nil means
	// context.Background.
	BaseContext context.Context
}

// Router sets up all HTTP routes for the application.
type Router struct {
	trackService     *track.Service
	orchestrator     *enrichment.Orchestrator
	enrichmentStore  *enrichment.SQLStore
	runner           *enrichment.Runner
	providerRegistry *provider.Registry
	eventBus         *event.Bus
	maintenance      *maintenance.Service
	backups          *backup.Service
	rateLimiter      *middleware.ClientRateLimiter
	logger           *slog.Logger
	basePath         string
	apiToken         string
	batchSize        int
	baseCtx          context.Context
}

// NewRouter creates a new Router with all routes configured.
func NewRouter(deps RouterDeps) *Router {
	baseCtx := deps.BaseContext
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	batchSize := deps.BatchSize
	if batchSize < 1 {
		batchSize = 50
	}
	return &Router{
		trackService:     deps.TrackService,
		orchestrator:     deps.Orchestrator,
		enrichmentStore:  deps.EnrichmentStore,
		runner:           deps.Runner,
		providerRegistry: deps.ProviderRegistry,
		eventBus:         deps.EventBus,
		maintenance:      deps.Maintenance,
		backups:          deps.Backups,
		rateLimiter:      deps.RateLimiter,
		logger:           deps.Logger.With(slog.String("component", "api")),
		basePath:         deps.BasePath,
		apiToken:         deps.APIToken,
		batchSize:        batchSize,
		baseCtx:          baseCtx,
	}
}

// Handler returns the fully configured HTTP handler with middleware applied.
func (r *Router) Handler() http.Handler {
	authMw := middleware.Auth(r.apiToken)
	mux := http.NewServeMux()
	bp := r.basePath

	// Public routes (no auth)
	mux.HandleFunc("GET "+bp+"/api/v1/health", r.handleHealth)

	// Tracks
	mux.HandleFunc("POST "+bp+"/api/v1/observations", wrap(r.handleObserve, authMw))
	mux.HandleFunc("GET "+bp+"/api/v1/tracks", wrap(r.handleListTracks, authMw))
	mux.HandleFunc("GET "+bp+"/api/v1/tracks/{id}", wrap(r.handleGetTrack, authMw))

	// Enrichment
	mux.HandleFunc("GET "+bp+"/api/v1/tracks/{id}/enrichment", wrap(r.handleGetEnrichment, authMw))
	mux.HandleFunc("POST "+bp+"/api/v1/tracks/{id}/enrich", wrap(r.handleEnrichTrack, authMw, r.limit))
	mux.HandleFunc("POST "+bp+"/api/v1/tracks/{id}/supplement", wrap(r.handleSupplementTrack, authMw, r.limit))
	mux.HandleFunc("POST "+bp+"/api/v1/tracks/{id}/reenrich", wrap(r.handleReenrich, authMw))
	mux.HandleFunc("POST "+bp+"/api/v1/enrichment/run", wrap(r.handleRunBatch, authMw, r.limit))
	mux.HandleFunc("GET "+bp+"/api/v1/enrichment/status", wrap(r.handleEnrichmentStatus, authMw))

	// Providers
	mux.HandleFunc("GET "+bp+"/api/v1/providers", wrap(r.handleListProviders, authMw))

	// Database
	mux.HandleFunc("GET "+bp+"/api/v1/database", wrap(r.handleDatabaseStatus, authMw))
	mux.HandleFunc("POST "+bp+"/api/v1/database/optimize", wrap(r.handleDatabaseOptimize, authMw))
	mux.HandleFunc("GET "+bp+"/api/v1/backups", wrap(r.handleListBackups, authMw))
	mux.HandleFunc("POST "+bp+"/api/v1/backups", wrap(r.handleCreateBackup, authMw))

	return middleware.SecurityHeaders(middleware.Logging(r.logger)(mux))
}

func (r *Router) limit(next http.Handler) http.Handler {
	if r.rateLimiter == nil {
		return next
	}
	return r.rateLimiter.Middleware(next)
}

// wrap applies middleware to a handler function, outermost first.
func wrap(fn http.HandlerFunc, mws ...func(http.Handler) http.Handler) http.HandlerFunc {
	var h http.Handler = fn
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h.ServeHTTP
}

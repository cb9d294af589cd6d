package enrichment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sydlexius/earmark/internal/event"
	"github.com/sydlexius/earmark/internal/match"
	"github.com/sydlexius/earmark/internal/provider"
	"github.com/sydlexius/earmark/internal/track"
)

// Reasons reported on non-error outcomes.
const (
	ReasonUnknownArtist = "artist metadata not yet available"
	ReasonNoMatch       = "no catalog match"
	ReasonNoCatalog     = "primary catalog not configured"
)

var (
	errNoMatch       = errors.New("no acceptable match")
	errNotConfigured = errors.New("provider not configured")
)

// Providers are the catalog adapters the orchestrator calls. Any field may
// be nil, which skips the steps that need it.
type Providers struct {
	Catalog      provider.RecordingCatalog
	Artwork      provider.ArtworkSource
	Tags         provider.TagSource
	ArtistGenres provider.ArtistGenreSource
	TrackLookup  provider.TrackLookup
	Searcher     provider.TrackSearcher
	Features     provider.FeatureCatalog
	Analyzer     provider.AudioAnalyzer
	Previews     provider.PreviewFetcher
}

// Options tune the orchestrator.
type Options struct {
	CacheTTL   time.Duration
	Retry      provider.RetryPolicy
	Thresholds match.Thresholds
	// SecondaryThresholds gate the secondary catalog search. Its scores
	// are popularity, not confidence, so only title similarity gates.
	SecondaryThresholds match.Thresholds
	Queries             match.QueryOptions
	SearchLimit         int
	MaxTags             int
	MaxGenres           int
}

// DefaultOptions returns the standard orchestrator settings.
func DefaultOptions() Options {
	return Options{
		CacheTTL:    30 * 24 * time.Hour,
		Retry:       provider.DefaultRetryPolicy(),
		Thresholds:          match.DefaultThresholds(),
		SecondaryThresholds: match.PopularityThresholds(),
		Queries:             match.DefaultQueryOptions(),
		SearchLimit:         10,
		MaxTags:             10,
		MaxGenres:           5,
	}
}

// PreviewUpdater back-fills a discovered preview URL onto the observed track.
type PreviewUpdater interface {
	SetPreviewURL(ctx context.Context, id, previewURL string) error
}

// Orchestrator resolves one track at a time through the catalog fallback
// chain and is the only writer of enrichment records. Enrich and
// Supplement never panic and never return a Go error; every failure is
// reported in the Result.
type Orchestrator struct {
	store     Store
	tracks    PreviewUpdater
	p         Providers
	opts      Options
	selector  *match.Selector
	secondary *match.Selector
	dedup     *DedupResolver
	bus       *event.Bus
	logger    *slog.Logger
	now       func() time.Time
}

// NewOrchestrator creates an Orchestrator. tracks and bus may be nil.
func NewOrchestrator(store Store, tracks PreviewUpdater, p Providers, opts Options, bus *event.Bus, logger *slog.Logger) *Orchestrator {
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultOptions().CacheTTL
	}
	if opts.SearchLimit <= 0 {
		opts.SearchLimit = 10
	}
	if opts.SecondaryThresholds == (match.Thresholds{}) {
		opts.SecondaryThresholds = match.PopularityThresholds()
	}
	return &Orchestrator{
		store:     store,
		tracks:    tracks,
		p:         p,
		opts:      opts,
		selector:  match.NewSelector(opts.Thresholds),
		secondary: match.NewSelector(opts.SecondaryThresholds),
		dedup:     NewDedupResolver(store, opts.CacheTTL),
		bus:       bus,
		logger:    logger.With(slog.String("component", "enrichment")),
		now:       time.Now,
	}
}

// CreatePending inserts a PENDING record for a newly observed track. It is
// a no-op when the track already has a record.
func (o *Orchestrator) CreatePending(ctx context.Context, trackID string) (bool, error) {
	return o.store.CreatePending(ctx, trackID)
}

// RequestReenrichment resets a track's record so the next batch picks it up.
func (o *Orchestrator) RequestReenrichment(ctx context.Context, trackID string) error {
	if err := o.store.MarkForReenrichment(ctx, trackID); err != nil {
		return err
	}
	o.publish(event.ReenrichRequested, trackID, nil)
	return nil
}

// attempt collects per-step outcomes of one enrichment run.
type attempt struct {
	noMatch int
	failed  []error
	skipped int
	// discoveredPreview is a preview URL found by a catalog for a track
	// that had none.
	discoveredPreview string
}

type stepResult int

const (
	stepNotAttempted stepResult = iota
	stepMatched
	stepNoMatch
	stepFailed
	stepSkipped
)

// classify records the outcome of one step. Retryable errors have already
// been retried by the time they get here.
func (o *Orchestrator) classify(ctx context.Context, a *attempt, logger *slog.Logger, step string, err error) stepResult {
	switch {
	case err == nil:
		return stepMatched
	case errors.Is(err, errNotConfigured):
		return stepNotAttempted
	case errors.Is(err, errNoMatch), provider.IsNotFound(err):
		a.noMatch++
		logger.Debug("no match", slog.String("step", step))
		return stepNoMatch
	case ctx.Err() != nil, provider.IsRetryable(err):
		a.failed = append(a.failed, fmt.Errorf("%s: %w", step, err))
		logger.Warn("step failed", slog.String("step", step), slog.String("error", err.Error()))
		return stepFailed
	default:
		a.skipped++
		logger.Warn("step skipped", slog.String("step", step), slog.String("error", err.Error()))
		return stepSkipped
	}
}

// Enrich resolves a track through the fallback chain and stores the result.
// Unless force is set, a fresh record is returned as a cache hit and a
// NOT_FOUND record is left alone. If ctx is canceled while the track is in
// flight, nothing is written.
func (o *Orchestrator) Enrich(ctx context.Context, t *track.Track, force bool) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("enrichment panicked", slog.Any("panic", r))
			res = Error{Message: fmt.Sprintf("panic: %v", r)}
		}
	}()

	if t == nil {
		return Error{Message: "no track given"}
	}
	logger := o.logger.With(slog.String("track_id", t.ID))

	artists := match.SplitArtists(t.Artist)
	if match.IsUnknownArtist(t.Artist) || len(artists) == 0 {
		logger.Debug("skipping track without artist")
		return NotFound{Reason: ReasonUnknownArtist, Skipped: true}
	}

	existing, err := o.store.Get(ctx, t.ID)
	if err != nil {
		return Error{Message: err.Error(), Retryable: true}
	}

	now := o.now().UTC()
	if existing != nil && !force {
		if existing.IsFresh(now, o.opts.CacheTTL) {
			return CacheHit{Record: existing}
		}
		if existing.Status == StatusNotFound {
			return AlreadyEnriched{Record: existing}
		}
	}

	rec := NewPending(t.ID)
	if existing != nil {
		rec = existing.Clone()
	}

	in := newResolved()
	a := &attempt{}
	title := match.CleanTitle(t.Title)
	dz := &deezerLookup{o: o, artist: artists[0], title: title}

	deduped, err := o.primary(ctx, logger, t, title, artists, in, dz)
	primaryOK := o.classify(ctx, a, logger, "primary catalog", err) == stepMatched

	featuresOK := false
	if !deduped {
		featuresOK = o.features(ctx, logger, t, title, rec, artists, in, a, dz)
	}

	if err := ctx.Err(); err != nil {
		logger.Info("enrichment canceled, result discarded")
		return Error{Message: err.Error(), Retryable: true}
	}

	rec.LastAttemptAt = &now
	var evt event.Type
	switch {
	case primaryOK || featuresOK:
		added := Merge(rec, in, ModeFull)
		rec.Status = StatusEnriched
		rec.CachedAt = &now
		rec.LastError = ""
		rec.RetryCount = 0
		res = Success{Record: rec, FieldsAdded: added, Deduplicated: deduped}
		evt = event.TrackEnriched
	case len(a.failed) > 0:
		rec.Status = StatusFailed
		rec.RetryCount++
		rec.LastError = joinErrors(a.failed)
		res = Error{Message: rec.LastError, Retryable: true, Record: rec}
		evt = event.EnrichmentFailed
	default:
		Merge(rec, in, ModeFull)
		rec.Status = StatusNotFound
		rec.LastError = ""
		res = NotFound{Reason: ReasonNoMatch, Record: rec}
		evt = event.TrackNotFound
	}

	if err := o.store.Upsert(ctx, rec); err != nil {
		logger.Error("saving enrichment", slog.String("error", err.Error()))
		return Error{Message: err.Error(), Retryable: true}
	}

	o.backfillPreview(ctx, logger, t, a)
	o.publish(evt, t.ID, map[string]any{"status": string(rec.Status)})

	logger.Info("enrichment finished",
		slog.String("status", string(rec.Status)),
		slog.Bool("deduplicated", deduped),
		slog.Int("retry_count", rec.RetryCount))
	return res
}

// Supplement fills in fields an existing record lacks from the primary
// catalog, without replacing album titles or artwork that are already set.
// existing may be nil, in which case the stored record is used.
func (o *Orchestrator) Supplement(ctx context.Context, t *track.Track, existing *Record) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("supplement panicked", slog.Any("panic", r))
			res = Error{Message: fmt.Sprintf("panic: %v", r)}
		}
	}()

	if t == nil {
		return Error{Message: "no track given"}
	}
	logger := o.logger.With(slog.String("track_id", t.ID))

	artists := match.SplitArtists(t.Artist)
	if match.IsUnknownArtist(t.Artist) || len(artists) == 0 {
		return Skipped{Reason: ReasonUnknownArtist}
	}

	if existing == nil {
		stored, err := o.store.Get(ctx, t.ID)
		if err != nil {
			return Error{Message: err.Error(), Retryable: true}
		}
		existing = stored
	}
	if existing == nil {
		existing = NewPending(t.ID)
	}
	if existing.HasCoreData() {
		return AlreadyHasData{Record: existing}
	}

	rec := existing.Clone()
	in := newResolved()
	a := &attempt{}
	title := match.CleanTitle(t.Title)
	dz := &deezerLookup{o: o, artist: artists[0], title: title}

	deduped, err := o.primary(ctx, logger, t, title, artists, in, dz)
	switch o.classify(ctx, a, logger, "primary catalog", err) {
	case stepMatched:
	case stepNotAttempted:
		return Skipped{Reason: ReasonNoCatalog}
	case stepNoMatch:
		return NotFound{Reason: ReasonNoMatch, Record: existing}
	case stepFailed:
		return Error{Message: err.Error(), Retryable: true}
	default:
		return Error{Message: err.Error()}
	}

	if err := ctx.Err(); err != nil {
		return Error{Message: err.Error(), Retryable: true}
	}

	now := o.now().UTC()
	added := Merge(rec, in, ModeSupplement)
	rec.Status = StatusEnriched
	rec.CachedAt = &now
	rec.LastAttemptAt = &now
	rec.LastError = ""
	rec.RetryCount = 0

	if err := o.store.Upsert(ctx, rec); err != nil {
		return Error{Message: err.Error(), Retryable: true}
	}
	o.publish(event.TrackEnriched, t.ID, map[string]any{"status": string(rec.Status), "fields_added": added})

	logger.Info("supplement finished", slog.Int("fields_added", len(added)), slog.Bool("deduplicated", deduped))
	return Success{Record: rec, FieldsAdded: added, Deduplicated: deduped}
}

// primary runs the MusicBrainz step: search and match, dedup on the
// selected recording id, recording lookup, then artist, label, artwork, and
// genre lookups. Only the search
// and the recording lookup decide the step's outcome; the rest are best
// effort.
func (o *Orchestrator) primary(ctx context.Context, logger *slog.Logger, t *track.Track, title string, artists []string, in *Resolved, dz *deezerLookup) (bool, error) {
	if o.p.Catalog == nil {
		return false, errNotConfigured
	}
	catalog := o.p.Catalog

	queries := match.BuildQueries(title, artists, o.opts.Queries)
	sel, err := o.selector.Select(ctx, t.Title, artists, queries, func(ctx context.Context, q string) ([]match.Candidate, error) {
		return provider.Retry(ctx, o.opts.Retry, func(ctx context.Context) ([]match.Candidate, error) {
			return catalog.SearchRecordings(ctx, q, o.opts.SearchLimit)
		})
	})
	if err != nil {
		return false, err
	}
	if sel == nil {
		return false, errNoMatch
	}
	logger.Debug("recording selected",
		slog.String("recording_id", sel.Candidate.ID),
		slog.String("pass", string(sel.Pass)),
		slog.String("query", sel.Query))

	dup, ok, err := o.dedup.Resolve(ctx, t.ID, sel.Candidate.ID)
	if err != nil {
		logger.Warn("dedup lookup failed", slog.String("error", err.Error()))
	} else if ok {
		logger.Debug("reusing enrichment of another track", slog.String("recording_id", sel.Candidate.ID))
		*in = *dup
		return true, nil
	}

	rec, err := provider.Retry(ctx, o.opts.Retry, func(ctx context.Context) (*provider.Recording, error) {
		return catalog.GetRecording(ctx, sel.Candidate.ID)
	})
	if err != nil {
		return false, err
	}

	in.MBRecordingID = rec.ID
	in.set(FieldMBRecordingID, provider.NameMusicBrainz)

	if len(rec.Releases) > 0 {
		rel := rec.Releases[0]
		in.MBReleaseID = rel.ID
		in.set(FieldMBReleaseID, provider.NameMusicBrainz)
		if rel.Title != "" {
			in.AlbumTitle = rel.Title
			in.set(FieldAlbumTitle, provider.NameMusicBrainz)
		}
		if y := rel.Year(); y > 0 {
			in.ReleaseYear = y
			in.set(FieldReleaseYear, provider.NameMusicBrainz)
		}
		if rel.PrimaryType != "" {
			in.ReleaseType = strings.ToLower(rel.PrimaryType)
			in.set(FieldReleaseType, provider.NameMusicBrainz)
		}
		label := rel.Label
		if label == "" {
			full, err := provider.Retry(ctx, o.opts.Retry, func(ctx context.Context) (*provider.Release, error) {
				return catalog.GetRelease(ctx, rel.ID)
			})
			if err != nil {
				logger.Debug("release lookup failed", slog.String("error", err.Error()))
			} else {
				label = full.Label
			}
		}
		if label != "" {
			in.RecordLabel = label
			in.set(FieldRecordLabel, provider.NameMusicBrainz)
		}
	}

	var artistGenres []string
	if credit := pickCredit(rec.Artists, artists); credit != nil && credit.ID != "" {
		in.MBArtistID = credit.ID
		in.set(FieldMBArtistID, provider.NameMusicBrainz)
		ar, err := provider.Retry(ctx, o.opts.Retry, func(ctx context.Context) (*provider.Artist, error) {
			return catalog.GetArtist(ctx, credit.ID)
		})
		if err != nil {
			logger.Debug("artist lookup failed", slog.String("error", err.Error()))
		} else {
			if ar.Country != "" {
				in.ArtistCountry = ar.Country
				in.set(FieldArtistCountry, provider.NameMusicBrainz)
			}
			if ar.Type != "" {
				in.ArtistType = ar.Type
				in.set(FieldArtistType, provider.NameMusicBrainz)
			}
			artistGenres = ar.Genres
		}
	}

	o.artwork(ctx, logger, in, dz)
	o.genres(ctx, logger, rec, artists[0], title, artistGenres, in)
	return false, nil
}

// artwork tries the Cover Art Archive for the selected release, then Deezer.
func (o *Orchestrator) artwork(ctx context.Context, logger *slog.Logger, in *Resolved, dz *deezerLookup) {
	if o.p.Artwork != nil && in.MBReleaseID != "" {
		art, err := provider.Retry(ctx, o.opts.Retry, func(ctx context.Context) (*provider.CoverArt, error) {
			return o.p.Artwork.GetCoverArt(ctx, in.MBReleaseID)
		})
		if err == nil && !art.Empty() {
			in.Artwork = *art
			in.set(FieldArtwork, provider.NameCoverArt)
			return
		}
		if err != nil {
			logger.Debug("cover art lookup failed", slog.String("error", err.Error()))
		}
	}

	m, err := dz.find(ctx)
	if errors.Is(err, errNotConfigured) {
		return
	}
	if err != nil {
		logger.Debug("deezer artwork lookup failed", slog.String("error", err.Error()))
		return
	}
	if m == nil {
		return
	}
	if !m.Art.Empty() {
		in.Artwork = m.Art
		in.set(FieldArtwork, provider.NameDeezer)
	}
	if m.ID != "" {
		in.DeezerID = m.ID
		in.set(FieldDeezerID, provider.NameDeezer)
	}
}

// genres fills tags and genres. Recording genres rank as catalog_track;
// Last.fm top tags outrank them as community_tags; artist-level genres are
// used only when neither exists.
func (o *Orchestrator) genres(ctx context.Context, logger *slog.Logger, rec *provider.Recording, artist, title string, artistGenres []string, in *Resolved) {
	if len(rec.Genres) > 0 {
		in.Genres = limit(rec.Genres, o.opts.MaxGenres)
		in.GenreSource = GenreCatalogTrack
		in.set(FieldGenres, provider.NameMusicBrainz)
	}

	if o.p.Tags != nil {
		tags, err := provider.Retry(ctx, o.opts.Retry, func(ctx context.Context) ([]provider.Tag, error) {
			return o.p.Tags.GetTrackTags(ctx, artist, title)
		})
		if err != nil {
			logger.Debug("tag lookup failed", slog.String("error", err.Error()))
		} else if len(tags) > 0 {
			names := make([]string, 0, len(tags))
			for _, tg := range tags {
				names = append(names, tg.Name)
			}
			in.Tags = limit(names, o.opts.MaxTags)
			in.set(FieldTags, provider.NameLastFM)
			in.Genres = limit(names, o.opts.MaxGenres)
			in.GenreSource = GenreCommunityTags
			in.set(FieldGenres, provider.NameLastFM)
		}
	}
	if len(in.Tags) == 0 && len(rec.Tags) > 0 {
		in.Tags = limit(rec.Tags, o.opts.MaxTags)
		in.set(FieldTags, provider.NameMusicBrainz)
	}

	if len(in.Genres) > 0 {
		return
	}
	if o.p.ArtistGenres != nil {
		g, err := provider.Retry(ctx, o.opts.Retry, func(ctx context.Context) ([]string, error) {
			return o.p.ArtistGenres.GetArtistGenres(ctx, artist)
		})
		if err != nil {
			logger.Debug("artist genre lookup failed", slog.String("error", err.Error()))
		} else if len(g) > 0 {
			in.Genres = limit(g, o.opts.MaxGenres)
			in.GenreSource = GenreArtist
			in.set(FieldGenres, provider.NameAudioDB)
			return
		}
	}
	if len(artistGenres) > 0 {
		in.Genres = limit(artistGenres, o.opts.MaxGenres)
		in.GenreSource = GenreArtist
		in.set(FieldGenres, provider.NameMusicBrainz)
	}
}

// features runs the audio feature chain and stops at the first success:
// features by known Spotify id, Spotify search then features by the found
// id, and finally analysis of a downloaded preview.
func (o *Orchestrator) features(ctx context.Context, logger *slog.Logger, t *track.Track, title string, rec *Record, artists []string, in *Resolved, a *attempt, dz *deezerLookup) bool {
	if o.p.Features == nil && o.p.Analyzer == nil {
		return false
	}

	knownID := t.SpotifyID
	if knownID == "" {
		knownID = rec.SpotifyID
	}
	previewURL := t.PreviewURL

	if knownID != "" && o.p.Features != nil {
		f, err := o.featuresByID(ctx, knownID)
		if o.classify(ctx, a, logger, "features by id", err) == stepMatched {
			in.SpotifyID = knownID
			in.set(FieldSpotifyID, provider.NameSpotify)
			in.Features = f
			in.FeaturesSource = FeaturesCatalogID
			in.set(FieldAudioFeatures, provider.NameReccoBeats)
			return true
		}
	}
	if ctx.Err() != nil {
		return false
	}

	if o.p.Searcher != nil && o.p.Features != nil {
		searcher := o.p.Searcher
		sel, err := o.secondary.Select(ctx, t.Title, artists, searcher.Queries(title, artists), func(ctx context.Context, q string) ([]match.Candidate, error) {
			return provider.Retry(ctx, o.opts.Retry, func(ctx context.Context) ([]match.Candidate, error) {
				return searcher.SearchTracks(ctx, q, o.opts.SearchLimit)
			})
		})
		if err == nil && sel == nil {
			err = errNoMatch
		}
		if o.classify(ctx, a, logger, "secondary search", err) == stepMatched {
			id := sel.Candidate.ID
			in.SpotifyID = id
			in.set(FieldSpotifyID, provider.NameSpotify)
			if previewURL == "" && sel.Candidate.PreviewURL != "" {
				previewURL = sel.Candidate.PreviewURL
				a.discoveredPreview = previewURL
			}
			if id != knownID {
				f, err := o.featuresByID(ctx, id)
				if o.classify(ctx, a, logger, "features by search", err) == stepMatched {
					in.Features = f
					in.FeaturesSource = FeaturesCatalogSearch
					in.set(FieldAudioFeatures, provider.NameReccoBeats)
					return true
				}
			}
		}
	}
	if ctx.Err() != nil {
		return false
	}

	if o.p.Previews == nil || o.p.Analyzer == nil {
		return false
	}
	if previewURL == "" {
		m, err := dz.find(ctx)
		if o.classify(ctx, a, logger, "preview lookup", err) != stepMatched {
			return false
		}
		if m == nil {
			a.noMatch++
			return false
		}
		if m.ID != "" && in.DeezerID == "" {
			in.DeezerID = m.ID
			in.set(FieldDeezerID, provider.NameDeezer)
		}
		if m.PreviewURL == "" {
			a.noMatch++
			return false
		}
		previewURL = m.PreviewURL
		a.discoveredPreview = previewURL
	}

	f, err := o.analyzePreview(ctx, previewURL)
	if o.classify(ctx, a, logger, "audio analysis", err) == stepMatched {
		in.Features = f
		in.FeaturesSource = FeaturesAudioAnalysis
		in.set(FieldAudioFeatures, provider.NameReccoBeats)
		return true
	}
	return false
}

func (o *Orchestrator) featuresByID(ctx context.Context, id string) (*provider.AudioFeatures, error) {
	return provider.Retry(ctx, o.opts.Retry, func(ctx context.Context) (*provider.AudioFeatures, error) {
		return o.p.Features.GetFeaturesByID(ctx, id)
	})
}

func (o *Orchestrator) analyzePreview(ctx context.Context, previewURL string) (*provider.AudioFeatures, error) {
	type clip struct {
		name string
		data []byte
	}
	c, err := provider.Retry(ctx, o.opts.Retry, func(ctx context.Context) (clip, error) {
		name, data, err := o.p.Previews.Fetch(ctx, previewURL)
		return clip{name: name, data: data}, err
	})
	if err != nil {
		return nil, fmt.Errorf("downloading preview: %w", err)
	}
	return provider.Retry(ctx, o.opts.Retry, func(ctx context.Context) (*provider.AudioFeatures, error) {
		return o.p.Analyzer.AnalyzeAudio(ctx, c.name, c.data)
	})
}

func (o *Orchestrator) backfillPreview(ctx context.Context, logger *slog.Logger, t *track.Track, a *attempt) {
	if o.tracks == nil || t.PreviewURL != "" || a.discoveredPreview == "" {
		return
	}
	if err := o.tracks.SetPreviewURL(ctx, t.ID, a.discoveredPreview); err != nil {
		logger.Warn("saving preview url", slog.String("error", err.Error()))
	}
}

func (o *Orchestrator) publish(t event.Type, trackID string, data map[string]any) {
	if o.bus == nil {
		return
	}
	if data == nil {
		data = map[string]any{}
	}
	data["track_id"] = trackID
	o.bus.Publish(event.Event{Type: t, Data: data})
}

// deezerLookup calls Deezer at most once per run; artwork and preview
// discovery share the result.
type deezerLookup struct {
	o      *Orchestrator
	artist string
	title  string
	done   bool
	m      *provider.TrackMatch
	err    error
}

func (d *deezerLookup) find(ctx context.Context) (*provider.TrackMatch, error) {
	if d.o.p.TrackLookup == nil {
		return nil, errNotConfigured
	}
	if !d.done {
		d.done = true
		d.m, d.err = provider.Retry(ctx, d.o.opts.Retry, func(ctx context.Context) (*provider.TrackMatch, error) {
			return d.o.p.TrackLookup.FindTrack(ctx, d.artist, d.title)
		})
	}
	return d.m, d.err
}

// pickCredit returns the credited artist matching the primary searched
// artist, or the first credit.
func pickCredit(credits []provider.ArtistCredit, artists []string) *provider.ArtistCredit {
	if len(credits) == 0 {
		return nil
	}
	if len(artists) > 0 {
		for i := range credits {
			if match.IsSameArtist(credits[i].Name, artists[0]) {
				return &credits[i]
			}
		}
	}
	return &credits[0]
}

func limit(s []string, n int) []string {
	if n > 0 && len(s) > n {
		s = s[:n]
	}
	return append([]string(nil), s...)
}

func joinErrors(errs []error) string {
	msgs := make([]string, 0, len(errs))
	for _, err := range errs {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

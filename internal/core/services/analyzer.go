package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/ewilliams-labs/resonate/internal/config"
	"github.com/ewilliams-labs/resonate/internal/core/domain"
	"github.com/ewilliams-labs/resonate/internal/core/ports"
)

// Storage keys. The analysis snapshot is the only key written truncated.
const (
	keyFeatures = "resonate:features"
	keyLibrary  = "resonate:library"
	keyGenres   = "resonate:genres"
	keyPrefs    = "resonate:prefs"
	keyHistory  = "resonate:history"
	keyAnalysis = "resonate:analysis"
)

// Truncation caps for the persisted snapshot, sized to survive store quotas.
const (
	snapshotTracksPerCluster = 10
	snapshotSimilarSongs     = 20
	snapshotDiscoveries      = 80
)

// analysisTTL bounds how long a cached result is served without recomputing.
const analysisTTL = 30 * time.Minute

// Analyzer is the orchestrator: it owns the analysis session state (feature
// cache, genre cache, track library, preferences, listening history), drives
// the full pipeline, and fronts the four public operations. The session lock
// serializes every public operation; the REST adapter and the worker pool
// share one analyzer across goroutines.
type Analyzer struct {
	catalog ports.CatalogProvider
	store   ports.KeyValueStore

	synth     *Synthesizer
	engine    *Engine
	clusterer *Clusterer
	disco     *Discoverer

	owner  string
	cached *domain.CachedAnalysis
	genres map[string][]string // artist id -> genre tags, fetched once

	mu    sync.Mutex // guards all session state above
	group singleflight.Group
	now   func() time.Time
}

// NewAnalyzer wires the pipeline for one user context. Call Load afterwards
// to warm session state from the store.
func NewAnalyzer(owner string, catalog ports.CatalogProvider, store ports.KeyValueStore, cfg config.TasteConfig) *Analyzer {
	engine := NewEngine()
	return &Analyzer{
		catalog:   catalog,
		store:     store,
		synth:     NewSynthesizer(cfg),
		engine:    engine,
		clusterer: NewClusterer(cfg),
		disco:     NewDiscoverer(engine, cfg),
		owner:     owner,
		genres:    make(map[string][]string),
		now:       time.Now,
	}
}

// SetToken hands the catalog bearer token through to the provider. The
// analyzer never acquires or refreshes tokens itself.
func (a *Analyzer) SetToken(token string) {
	a.catalog.SetToken(token)
}

// Load restores persisted session state: feature cache, genre cache, track
// library, temporal preferences and listening history. Corrupt entries are
// treated as cache misses.
func (a *Analyzer) Load(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.loadState(ctx)
}

func (a *Analyzer) loadState(ctx context.Context) {
	var features map[string]domain.FeatureVector
	if a.readJSON(ctx, keyFeatures, &features) {
		a.synth.Prime(features)
	}

	var library []domain.Track
	if a.readJSON(ctx, keyLibrary, &library) {
		for _, t := range library {
			if fv, ok := a.synth.Cached(t.ID); ok {
				a.engine.Add(t, fv)
			}
		}
	}

	var genres map[string][]string
	if a.readJSON(ctx, keyGenres, &genres) {
		for id, g := range genres {
			a.genres[id] = g
		}
	}

	var prefs []domain.TemporalPreference
	if a.readJSON(ctx, keyPrefs, &prefs) {
		a.engine.Temporal().Load(prefs)
	}

	var history []domain.ListenEvent
	if a.readJSON(ctx, keyHistory, &history) {
		a.engine.LoadHistory(history)
	}
}

// AnalyzeLibrary runs (or serves from cache) a full analysis of the given
// track library. Without forceRefresh a fresh, authoritative cached result is
// returned as-is; forceRefresh always recomputes and supersedes whatever was
// cached before.
func (a *Analyzer) AnalyzeLibrary(ctx context.Context, tracks []domain.Track, forceRefresh bool) (domain.AnalysisResult, error) {
	if !forceRefresh {
		if result, ok := a.freshResult(ctx); ok {
			return result, nil
		}
		// Concurrent non-forced triggers share one run. The shared run is
		// detached from the first caller's context so its cancellation does
		// not fail the coalesced peers.
		runCtx := context.WithoutCancel(ctx)
		v, err, _ := a.group.Do("analyze:"+a.owner, func() (any, error) {
			return a.runAnalysis(runCtx, tracks)
		})
		if err != nil {
			return domain.AnalysisResult{}, err
		}
		return v.(domain.AnalysisResult), nil
	}
	return a.runAnalysis(ctx, tracks)
}

// freshResult returns a servable cached result: owner matches, within TTL,
// and not a truncated snapshot.
func (a *Analyzer) freshResult(ctx context.Context) (domain.AnalysisResult, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cached == nil {
		var stored domain.CachedAnalysis
		if a.readJSON(ctx, keyAnalysis, &stored) {
			a.cached = &stored
		}
	}
	if a.cached == nil || !a.cached.Authoritative() {
		return domain.AnalysisResult{}, false
	}
	if a.cached.Result.Owner != a.owner {
		a.cached = nil
		return domain.AnalysisResult{}, false
	}
	if a.now().Sub(a.cached.Result.GeneratedAt) > analysisTTL {
		return domain.AnalysisResult{}, false
	}
	return a.cached.Result, true
}

func (a *Analyzer) runAnalysis(ctx context.Context, tracks []domain.Track) (domain.AnalysisResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	genresByArtist := a.fetchGenres(ctx, tracks)

	a.engine.Reset()
	analyzed := make([]domain.AnalyzedTrack, 0, len(tracks))
	for _, t := range tracks {
		genres := trackGenres(t, genresByArtist)
		fv := a.synth.Synthesize(t, genres)
		a.engine.Add(t, fv)
		name, _ := a.clusterer.Assign(fv)
		analyzed = append(analyzed, domain.AnalyzedTrack{
			Track:    t,
			Features: fv,
			Genres:   genres,
			Cluster:  name,
		})
	}

	clusters := a.clusterer.Cluster(analyzed)
	result := domain.AnalysisResult{
		ID:            uuid.NewString(),
		Owner:         a.owner,
		Clusters:      clusters,
		SimilarSongs:  a.disco.SimilarSongs(clusters, analyzed),
		Discoveries:   a.disco.Discoveries(clusters, analyzed),
		Profile:       a.disco.Profile(analyzed),
		AnalyzedCount: len(analyzed),
		GeneratedAt:   a.now(),
	}

	a.cached = &domain.CachedAnalysis{Result: result}
	a.persist(ctx, tracks, result)
	return result, nil
}

// fetchGenres resolves artist genres through the catalog, consulting the
// session genre cache first so each artist is fetched at most once. Artists
// the catalog could not resolve are cached as empty so they are not re-asked
// on every run. Every failure mode degrades to missing genres; analysis
// itself never fails on the network.
func (a *Analyzer) fetchGenres(ctx context.Context, tracks []domain.Track) map[string][]string {
	seen := make(map[string]bool)
	var artistIDs []string
	var missing []string
	for _, t := range tracks {
		for _, id := range t.ArtistIDs() {
			if seen[id] {
				continue
			}
			seen[id] = true
			artistIDs = append(artistIDs, id)
			if _, ok := a.genres[id]; !ok {
				missing = append(missing, id)
			}
		}
	}
	if len(artistIDs) == 0 {
		return nil
	}

	if len(missing) > 0 {
		fetched, err := a.catalog.ArtistGenres(ctx, missing)
		if err != nil {
			if errors.Is(err, ports.ErrNoToken) {
				log.Printf("WARN analyzer: no catalog token, skipping genre enrichment")
			} else {
				log.Printf("WARN analyzer: genre lookup failed, continuing without genres: %v", err)
			}
		} else {
			for _, id := range missing {
				a.genres[id] = fetched[id]
			}
			a.writeJSON(ctx, keyGenres, a.genres, 0)
		}
	}

	out := make(map[string][]string, len(artistIDs))
	for _, id := range artistIDs {
		if g, ok := a.genres[id]; ok && len(g) > 0 {
			out[id] = g
		}
	}
	return out
}

// trackGenres unions the genre tags of a track's artists, first occurrence
// order preserved.
func trackGenres(t domain.Track, byArtist map[string][]string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, id := range t.ArtistIDs() {
		for _, g := range byArtist[id] {
			if !seen[g] {
				seen[g] = true
				out = append(out, g)
			}
		}
	}
	return out
}

// RecommendationsForTrack returns similar songs for a seed track, with the
// current temporal context blended in. An unknown seed degrades to a library
// sample rather than erroring.
func (a *Analyzer) RecommendationsForTrack(ctx context.Context, trackID string, limit int) ([]domain.SimilarSong, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.engine.Size() == 0 {
		a.loadState(ctx)
	}
	return a.engine.RecommendContextual(a.now(), []string{trackID}, domain.RecommendOptions{}, limit), nil
}

// RecordListen appends a listening event, updates temporal preferences, and
// persists both.
func (a *Analyzer) RecordListen(ctx context.Context, trackID string, at time.Time) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if at.IsZero() {
		at = a.now()
	}
	a.engine.RecordListen(trackID, at)
	a.writeJSON(ctx, keyHistory, a.engine.History(), 0)
	a.writeJSON(ctx, keyPrefs, a.engine.Temporal().Snapshot(), 0)
	return nil
}

// ClearAnalysis drops the cached result, the feature cache, the genre cache
// and the persisted library state. Preferences and history survive.
func (a *Analyzer) ClearAnalysis(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cached = nil
	a.synth.Clear()
	a.engine.Reset()
	a.genres = make(map[string][]string)
	for _, key := range []string{keyAnalysis, keyFeatures, keyLibrary, keyGenres} {
		if err := a.store.Delete(ctx, key); err != nil && !errors.Is(err, ports.ErrNotFound) {
			return fmt.Errorf("analyzer: clear %s: %w", key, err)
		}
	}
	return nil
}

// persist writes session state and the truncated analysis snapshot. Storage
// failures are logged, never surfaced to the caller.
func (a *Analyzer) persist(ctx context.Context, tracks []domain.Track, result domain.AnalysisResult) {
	a.writeJSON(ctx, keyFeatures, a.synth.Snapshot(), 0)
	a.writeJSON(ctx, keyLibrary, tracks, 0)
	a.writeJSON(ctx, keyPrefs, a.engine.Temporal().Snapshot(), 0)
	a.writeJSON(ctx, keyHistory, a.engine.History(), 0)

	snapshot := domain.CachedAnalysis{Result: truncateResult(result), Truncated: true}
	a.writeJSON(ctx, keyAnalysis, snapshot, analysisTTL)
}

// truncateResult caps the persisted copy so it fits a bounded quota. The flag
// on CachedAnalysis marks it as non-authoritative.
func truncateResult(result domain.AnalysisResult) domain.AnalysisResult {
	out := result
	out.Clusters = make([]domain.MusicCluster, len(result.Clusters))
	for i, cl := range result.Clusters {
		trimmed := cl
		if len(trimmed.Tracks) > snapshotTracksPerCluster {
			trimmed.Tracks = append([]domain.AnalyzedTrack(nil), trimmed.Tracks[:snapshotTracksPerCluster]...)
		}
		out.Clusters[i] = trimmed
	}
	if len(out.SimilarSongs) > snapshotSimilarSongs {
		out.SimilarSongs = append([]domain.SimilarSong(nil), out.SimilarSongs[:snapshotSimilarSongs]...)
	}
	if len(out.Discoveries) > snapshotDiscoveries {
		out.Discoveries = append([]domain.LocalDiscovery(nil), out.Discoveries[:snapshotDiscoveries]...)
	}
	return out
}

// readJSON loads and decodes a key. Missing or corrupt entries are misses.
func (a *Analyzer) readJSON(ctx context.Context, key string, dst any) bool {
	data, err := a.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ports.ErrNotFound) {
			log.Printf("WARN analyzer: read %s: %v", key, err)
		}
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		log.Printf("WARN analyzer: corrupt %s, treating as miss: %v", key, err)
		return false
	}
	return true
}

// writeJSON encodes and stores a key. On quota exhaustion the analyzer purges
// its own snapshot key and retries once.
func (a *Analyzer) writeJSON(ctx context.Context, key string, v any, ttl time.Duration) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("WARN analyzer: encode %s: %v", key, err)
		return
	}
	err = a.store.Set(ctx, key, data, ttl)
	if errors.Is(err, ports.ErrQuotaExceeded) {
		log.Printf("WARN analyzer: quota exceeded writing %s, purging snapshot and retrying", key)
		if delErr := a.store.Delete(ctx, keyAnalysis); delErr != nil && !errors.Is(delErr, ports.ErrNotFound) {
			log.Printf("WARN analyzer: purge %s: %v", keyAnalysis, delErr)
		}
		err = a.store.Set(ctx, key, data, ttl)
	}
	if err != nil {
		log.Printf("WARN analyzer: write %s: %v", key, err)
	}
}

package services

import (
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/ewilliams-labs/resonate/internal/core/domain"
)

// featureWeight is the contribution of one per-feature sub-similarity.
type featureWeight struct {
	name   string
	weight float64
	score  func(a, b domain.FeatureVector) float64
}

// similarityWeights is the fixed weighting of the similarity blend. The mood
// coherence bonus (0.10) is added on top and the sum is normalized by the
// total weight, so similarity(f, f) is exactly 1.
var similarityWeights = []featureWeight{
	{domain.FeatValence, 0.20, func(a, b domain.FeatureVector) float64 { return bandedSimilarity(a.Valence, b.Valence) }},
	{domain.FeatEnergy, 0.18, func(a, b domain.FeatureVector) float64 { return bandedSimilarity(a.Energy, b.Energy) }},
	{domain.FeatDanceability, 0.15, func(a, b domain.FeatureVector) float64 { return bandedSimilarity(a.Danceability, b.Danceability) }},
	{domain.FeatAcousticness, 0.12, func(a, b domain.FeatureVector) float64 { return linearSimilarity(a.Acousticness, b.Acousticness) }},
	{domain.FeatTempo, 0.10, func(a, b domain.FeatureVector) float64 { return tempoSimilarity(a.Tempo, b.Tempo) }},
	{domain.FeatLoudness, 0.08, func(a, b domain.FeatureVector) float64 { return loudnessSimilarity(a.Loudness, b.Loudness) }},
	{"mode", 0.07, func(a, b domain.FeatureVector) float64 { return modeSimilarity(a.Mode, b.Mode) }},
	{"key", 0.05, func(a, b domain.FeatureVector) float64 { return keySimilarity(a.Key, b.Key) }},
	{domain.FeatInstrumentalness, 0.03, func(a, b domain.FeatureVector) float64 { return linearSimilarity(a.Instrumentalness, b.Instrumentalness) }},
	{domain.FeatSpeechiness, 0.02, func(a, b domain.FeatureVector) float64 { return linearSimilarity(a.Speechiness, b.Speechiness) }},
	{domain.FeatLiveness, 0.01, func(a, b domain.FeatureVector) float64 { return linearSimilarity(a.Liveness, b.Liveness) }},
}

const moodCoherenceWeight = 0.10

// Engine is the similarity and recommendation library: a registry of tracks
// with synthesized features, plus the temporal preference learner. It is not
// safe for concurrent use; the Analyzer's session lock serializes callers.
type Engine struct {
	tracks   map[string]domain.Track
	features map[string]domain.FeatureVector
	order    []string // insertion order, for deterministic iteration

	temporal *TemporalPreferences
	history  []domain.ListenEvent

	rng *rand.Rand
	now func() time.Time
}

// NewEngine constructs an empty engine.
func NewEngine() *Engine {
	return &Engine{
		tracks:   make(map[string]domain.Track),
		features: make(map[string]domain.FeatureVector),
		temporal: NewTemporalPreferences(),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		now:      time.Now,
	}
}

// Add registers a track with its features. Re-adding a known id updates the
// track metadata but keeps its place in insertion order.
func (e *Engine) Add(track domain.Track, fv domain.FeatureVector) {
	if _, known := e.tracks[track.ID]; !known {
		e.order = append(e.order, track.ID)
	}
	e.tracks[track.ID] = track
	e.features[track.ID] = fv
}

// Features returns the cached feature vector for a library track.
func (e *Engine) Features(trackID string) (domain.FeatureVector, bool) {
	fv, ok := e.features[trackID]
	return fv, ok
}

// Track returns a library track by id.
func (e *Engine) Track(trackID string) (domain.Track, bool) {
	t, ok := e.tracks[trackID]
	return t, ok
}

// Size returns the number of library tracks.
func (e *Engine) Size() int { return len(e.order) }

// Reset drops the track library but keeps learned preferences and history.
func (e *Engine) Reset() {
	e.tracks = make(map[string]domain.Track)
	e.features = make(map[string]domain.FeatureVector)
	e.order = nil
}

// Similarity scores two feature vectors in [0,1]. It is symmetric, and 1.0
// for identical vectors.
func (e *Engine) Similarity(a, b domain.FeatureVector) float64 {
	var sum, total float64
	for _, fw := range similarityWeights {
		sum += fw.weight * fw.score(a, b)
		total += fw.weight
	}
	sum += moodCoherenceWeight * moodCoherence(a, b)
	total += moodCoherenceWeight
	return domain.Clamp01(sum / total)
}

// Recommend ranks the library against a target derived from the seed tracks
// and the option overrides. Seeds are excluded from the result. When no seed
// resolves to cached features the engine falls back to a random sample.
func (e *Engine) Recommend(seedIDs []string, opts domain.RecommendOptions, limit int) []domain.SimilarSong {
	if limit <= 0 {
		limit = 20
	}

	seeds := make(map[string]bool, len(seedIDs))
	var seedFeatures []domain.FeatureVector
	for _, id := range seedIDs {
		seeds[id] = true
		if fv, ok := e.features[id]; ok {
			seedFeatures = append(seedFeatures, fv)
		}
	}

	if len(seedFeatures) == 0 {
		return e.randomSample(seeds, limit)
	}

	target := meanVector(seedFeatures)
	for name, v := range opts.Target {
		target.SetValue(name, v)
	}

	scored := make([]domain.SimilarSong, 0, len(e.order))
	for _, id := range e.order {
		if seeds[id] {
			continue
		}
		fv := e.features[id]
		if !withinRanges(fv, opts) {
			continue
		}
		scored = append(scored, domain.SimilarSong{
			Track:   e.tracks[id],
			Score:   e.Similarity(target, fv),
			Reasons: []string{"Close to your selection"},
		})
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored
}

// RecommendContextual blends the current temporal context's learned
// preferences into unset option targets before recommending.
func (e *Engine) RecommendContextual(at time.Time, seedIDs []string, opts domain.RecommendOptions, limit int) []domain.SimilarSong {
	opts = e.temporal.Blend(at, opts)
	return e.Recommend(seedIDs, opts, limit)
}

// RecordListen appends a listening event and, when the track's features are
// known, feeds the temporal learner. The history is a 30-day rolling window.
func (e *Engine) RecordListen(trackID string, at time.Time) {
	e.history = append(e.history, domain.ListenEvent{TrackID: trackID, At: at})
	e.pruneHistory(at)
	if fv, ok := e.features[trackID]; ok {
		e.temporal.Observe(at, fv)
	}
}

// History returns the rolling listen window, pruned as of now.
func (e *Engine) History() []domain.ListenEvent {
	e.pruneHistory(e.now())
	out := make([]domain.ListenEvent, len(e.history))
	copy(out, e.history)
	return out
}

// LoadHistory replaces the listen window from persisted state, pruning stale
// entries on the way in.
func (e *Engine) LoadHistory(events []domain.ListenEvent) {
	e.history = append([]domain.ListenEvent(nil), events...)
	e.pruneHistory(e.now())
}

// Temporal exposes the preference learner for persistence.
func (e *Engine) Temporal() *TemporalPreferences { return e.temporal }

const historyWindow = 30 * 24 * time.Hour

func (e *Engine) pruneHistory(now time.Time) {
	cutoff := now.Add(-historyWindow)
	kept := e.history[:0]
	for _, ev := range e.history {
		if ev.At.After(cutoff) {
			kept = append(kept, ev)
		}
	}
	e.history = kept
}

func (e *Engine) randomSample(exclude map[string]bool, limit int) []domain.SimilarSong {
	candidates := make([]string, 0, len(e.order))
	for _, id := range e.order {
		if !exclude[id] {
			candidates = append(candidates, id)
		}
	}
	e.rng.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	out := make([]domain.SimilarSong, 0, len(candidates))
	for _, id := range candidates {
		out = append(out, domain.SimilarSong{
			Track:   e.tracks[id],
			Score:   0.5,
			Reasons: []string{"Sampled from your library"},
		})
	}
	return out
}

func withinRanges(fv domain.FeatureVector, opts domain.RecommendOptions) bool {
	for name, min := range opts.Min {
		if v, ok := fv.Value(name); ok && v < min {
			return false
		}
	}
	for name, max := range opts.Max {
		if v, ok := fv.Value(name); ok && v > max {
			return false
		}
	}
	return true
}

func meanVector(vectors []domain.FeatureVector) domain.FeatureVector {
	if len(vectors) == 0 {
		return domain.NeutralFeatures()
	}
	var out domain.FeatureVector
	var key, mode, ts float64
	for _, fv := range vectors {
		out.Acousticness += fv.Acousticness
		out.Danceability += fv.Danceability
		out.Energy += fv.Energy
		out.Instrumentalness += fv.Instrumentalness
		out.Liveness += fv.Liveness
		out.Speechiness += fv.Speechiness
		out.Valence += fv.Valence
		out.Tempo += fv.Tempo
		out.Loudness += fv.Loudness
		out.DurationMs += fv.DurationMs
		key += float64(fv.Key)
		mode += float64(fv.Mode)
		ts += float64(fv.TimeSignature)
	}
	n := float64(len(vectors))
	out.Acousticness /= n
	out.Danceability /= n
	out.Energy /= n
	out.Instrumentalness /= n
	out.Liveness /= n
	out.Speechiness /= n
	out.Valence /= n
	out.Tempo /= n
	out.Loudness /= n
	out.DurationMs /= len(vectors)
	out.Key = int(math.Round(key / n))
	out.Mode = int(math.Round(mode / n))
	out.TimeSignature = int(math.Round(ts / n))
	return out
}

// bandedSimilarity scores the mood features non-linearly: close is nearly
// perfect, far decays quadratically.
func bandedSimilarity(a, b float64) float64 {
	diff := math.Abs(a - b)
	switch {
	case diff <= 0.1:
		return 1.0
	case diff <= 0.2:
		return 0.9
	case diff <= 0.3:
		return 0.7
	case diff <= 0.5:
		return 0.5
	default:
		return domain.Clamp01(1 - diff*diff)
	}
}

func linearSimilarity(a, b float64) float64 {
	return domain.Clamp01(1 - math.Abs(a-b))
}

// loudnessSimilarity normalizes the dB difference over a 60 dB window.
func loudnessSimilarity(a, b float64) float64 {
	return domain.Clamp01(1 - math.Abs(a-b)/60)
}

// tempoSimilarity scores BPM proximity in bands, with a harmonic override:
// double-time and half-time relationships (within 10%) count as compatible
// even when the raw difference is large.
func tempoSimilarity(a, b float64) float64 {
	if a <= 0 || b <= 0 {
		return 0.5
	}
	if isHarmonicTempo(a, b) {
		return 0.8
	}
	diff := math.Abs(a - b)
	switch {
	case diff <= 5:
		return 1.0
	case diff <= 15:
		return 0.9
	case diff <= 30:
		return 0.7
	case diff <= 50:
		return 0.5
	default:
		return math.Max(0, 0.5-(diff-50)/300)
	}
}

func isHarmonicTempo(a, b float64) bool {
	ratio := a / b
	if ratio < 1 {
		ratio = 1 / ratio
	}
	return math.Abs(ratio-2) <= 0.2
}

func modeSimilarity(a, b int) float64 {
	if a == b {
		return 1.0
	}
	return 0.3
}

// circleOfFifths orders the 12 pitch classes so harmonically related keys sit
// next to each other.
var circleOfFifths = [12]int{0, 7, 2, 9, 4, 11, 6, 1, 8, 3, 10, 5}

func keySimilarity(a, b int) float64 {
	if a == b {
		return 1.0
	}
	ai, bi := circlePosition(a), circlePosition(b)
	if ai < 0 || bi < 0 {
		return 0.5
	}
	dist := ai - bi
	if dist < 0 {
		dist = -dist
	}
	if dist > 6 {
		dist = 12 - dist
	}
	return 1 - float64(dist)/6
}

func circlePosition(key int) int {
	for i, k := range circleOfFifths {
		if k == key {
			return i
		}
	}
	return -1
}

// moodCoherence projects both vectors onto a 7-dimensional mood space and
// takes their cosine similarity.
func moodCoherence(a, b domain.FeatureVector) float64 {
	va, vb := moodVector(a), moodVector(b)
	var dot, na, nb float64
	for i := range va {
		dot += va[i] * vb[i]
		na += va[i] * va[i]
		nb += vb[i] * vb[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return domain.Clamp01(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

func moodVector(f domain.FeatureVector) [7]float64 {
	return [7]float64{
		f.Valence * f.Energy,
		f.Valence * (1 - f.Energy),
		(1 - f.Valence) * f.Energy,
		(1 - f.Valence) * (1 - f.Energy),
		f.Danceability,
		f.Acousticness,
		1 - f.Acousticness,
	}
}

package services

import (
	"hash/fnv"
	"math/rand"
	"strings"

	"github.com/ewilliams-labs/resonate/internal/config"
	"github.com/ewilliams-labs/resonate/internal/core/domain"
)

// Synthesizer turns track metadata into a pseudo-acoustic feature vector.
// There is no signal processing here: genres, title text, duration and
// popularity are the only inputs. Results are cached by track id and never
// recomputed until the cache is explicitly cleared.
type Synthesizer struct {
	templates []config.GenreTemplate
	cache     map[string]domain.FeatureVector

	// Jitter applies the final ±5% perturbation. It is on by default and
	// seeded from the track id, so repeated synthesis of the same track is
	// still bit-identical while tracks sharing a genre template de-tie.
	Jitter bool
}

// NewSynthesizer builds a synthesizer over the configured genre templates.
func NewSynthesizer(cfg config.TasteConfig) *Synthesizer {
	return &Synthesizer{
		templates: cfg.GenreTemplates,
		cache:     make(map[string]domain.FeatureVector),
		Jitter:    true,
	}
}

// Synthesize produces the feature vector for a track given its resolved genre
// tags. The second call for the same track id is a cache hit.
func (s *Synthesizer) Synthesize(track domain.Track, genres []string) domain.FeatureVector {
	if fv, ok := s.cache[track.ID]; ok {
		return fv
	}

	fv := domain.NeutralFeatures()
	fv.DurationMs = track.DurationMs

	seed := trackSeed(track.ID)
	fv.Key = int(seed % 12)
	fv.Mode = int((seed >> 4) % 2)

	s.blendGenres(&fv, genres)
	applyTitleHeuristics(&fv, track.Title)
	applyDuration(&fv, track.DurationMs)
	applyPopularity(&fv, track.Popularity)

	// Loudness tracks energy: quiet acoustic pieces sit well below loud
	// bangers. Rough dB proxy, clamped with everything else.
	fv.Loudness = -4 - (1-fv.Energy)*20
	fv.Clamp()

	if s.Jitter {
		applyJitter(&fv, rand.New(rand.NewSource(int64(seed))))
		fv.Clamp()
	}

	s.cache[track.ID] = fv
	return fv
}

// Cached returns the vector for a track id if it has been synthesized.
func (s *Synthesizer) Cached(trackID string) (domain.FeatureVector, bool) {
	fv, ok := s.cache[trackID]
	return fv, ok
}

// Prime seeds the cache from persisted state.
func (s *Synthesizer) Prime(features map[string]domain.FeatureVector) {
	for id, fv := range features {
		s.cache[id] = fv
	}
}

// Snapshot copies the cache for persistence.
func (s *Synthesizer) Snapshot() map[string]domain.FeatureVector {
	out := make(map[string]domain.FeatureVector, len(s.cache))
	for id, fv := range s.cache {
		out[id] = fv
	}
	return out
}

// Clear drops the feature cache.
func (s *Synthesizer) Clear() {
	s.cache = make(map[string]domain.FeatureVector)
}

func trackSeed(trackID string) uint32 {
	hasher := fnv.New32a()
	_, _ = hasher.Write([]byte(trackID))
	return hasher.Sum32()
}

// blendGenres walks every genre tag in order and averages the running vector
// toward the matched template, so multi-genre tracks drift toward each
// profile sequentially.
func (s *Synthesizer) blendGenres(fv *domain.FeatureVector, genres []string) {
	for _, g := range genres {
		tpl := s.templateFor(g)
		fv.Energy = (fv.Energy + tpl.Energy) / 2
		fv.Danceability = (fv.Danceability + tpl.Danceability) / 2
		fv.Valence = (fv.Valence + tpl.Valence) / 2
		fv.Tempo = (fv.Tempo + tpl.Tempo) / 2
		fv.Acousticness = (fv.Acousticness + tpl.Acousticness) / 2
		fv.Clamp()
	}
}

// templateFor matches a genre tag by substring against the ordered template
// table. The table's last entry is the "unknown" fallback.
func (s *Synthesizer) templateFor(genre string) config.GenreTemplate {
	g := strings.ToLower(genre)
	for _, tpl := range s.templates {
		if strings.Contains(g, tpl.Match) {
			return tpl
		}
	}
	if n := len(s.templates); n > 0 {
		return s.templates[n-1]
	}
	return config.GenreTemplate{Energy: 0.5, Danceability: 0.5, Valence: 0.5, Tempo: 120, Acousticness: 0.3}
}

type titleRule struct {
	keywords []string
	apply    func(fv *domain.FeatureVector)
}

var titleRules = []titleRule{
	{[]string{"remix", "club", "dance"}, func(fv *domain.FeatureVector) {
		fv.Energy += 0.2
		fv.Danceability += 0.2
	}},
	{[]string{"acoustic", "unplugged", "stripped"}, func(fv *domain.FeatureVector) {
		fv.Acousticness += 0.4
		fv.Energy -= 0.3
	}},
	{[]string{"live", "concert"}, func(fv *domain.FeatureVector) {
		fv.Liveness += 0.6
	}},
	{[]string{"instrumental", "karaoke"}, func(fv *domain.FeatureVector) {
		fv.Instrumentalness += 0.7
		fv.Speechiness -= 0.05
	}},
	{[]string{"sad", "cry", "alone", "broken"}, func(fv *domain.FeatureVector) {
		fv.Valence -= 0.3
		fv.Energy -= 0.2
	}},
	{[]string{"happy", "party", "celebration", "joy"}, func(fv *domain.FeatureVector) {
		fv.Valence += 0.3
		fv.Energy += 0.2
	}},
}

func applyTitleHeuristics(fv *domain.FeatureVector, title string) {
	lower := strings.ToLower(title)
	for _, rule := range titleRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				rule.apply(fv)
				break
			}
		}
	}
	fv.Clamp()
}

func applyDuration(fv *domain.FeatureVector, durationMs int) {
	switch {
	case durationMs > 0 && durationMs < 2*60*1000:
		fv.Energy += 0.1
		fv.Tempo += 10
	case durationMs > 6*60*1000:
		fv.Energy -= 0.1
		fv.Valence -= 0.1
	}
	fv.Clamp()
}

func applyPopularity(fv *domain.FeatureVector, popularity int) {
	switch {
	case popularity > 80:
		fv.Danceability += 0.1
		fv.Valence += 0.1
	case popularity < 30:
		fv.Acousticness += 0.1
		fv.Instrumentalness += 0.1
	}
	fv.Clamp()
}

// applyJitter breaks ties between tracks that share a genre template: ±5% on
// the mood features, ±20 BPM on tempo.
func applyJitter(fv *domain.FeatureVector, rng *rand.Rand) {
	between := func(min, max float64) float64 {
		return min + rng.Float64()*(max-min)
	}
	fv.Energy *= 1 + between(-0.05, 0.05)
	fv.Danceability *= 1 + between(-0.05, 0.05)
	fv.Valence *= 1 + between(-0.05, 0.05)
	fv.Tempo += between(-20, 20)
}

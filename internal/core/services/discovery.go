package services

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ewilliams-labs/resonate/internal/config"
	"github.com/ewilliams-labs/resonate/internal/core/domain"
)

const (
	similarSongThreshold = 0.7
	similarSongLimit     = 20
	discoveryCategoryCap = 20

	hiddenGemDistance    = 0.15
	hiddenGemScoreCap    = 0.95
	moodShiftThreshold   = 0.3
	genreRarityThreshold = 0.7
	perfectMatchDistance = 0.5
)

// distanceWeights drive the weighted Euclidean distance used by discoveries.
// Features not listed do not contribute.
var distanceWeights = map[string]float64{
	domain.FeatEnergy:           1.5,
	domain.FeatDanceability:     1.3,
	domain.FeatValence:          1.2,
	domain.FeatAcousticness:     1.0,
	domain.FeatInstrumentalness: 0.8,
	domain.FeatSpeechiness:      0.5,
	domain.FeatLiveness:         0.3,
}

// contrastRule flags tracks that combine features that usually pull apart.
type contrastRule struct {
	reason string
	first  string
	minA   float64
	second string
	minB   float64
	invA   bool // condition on (1 - value) instead of value
	invB   bool
}

var contrastRules = []contrastRule{
	{reason: "Energetic yet acoustic", first: domain.FeatEnergy, minA: 0.4, second: domain.FeatAcousticness, minB: 0.3},
	{reason: "Upbeat but mellow", first: domain.FeatValence, minA: 0.6, second: domain.FeatEnergy, minB: 0.6, invB: true},
	{reason: "Melancholy you can dance to", first: domain.FeatValence, minA: 0.6, invA: true, second: domain.FeatDanceability, minB: 0.6},
	{reason: "Wordless but groovy", first: domain.FeatInstrumentalness, minA: 0.5, second: domain.FeatDanceability, minB: 0.55},
	{reason: "Spoken word over warm strings", first: domain.FeatSpeechiness, minA: 0.2, second: domain.FeatAcousticness, minB: 0.5},
	{reason: "Dark mood at full speed", first: domain.FeatValence, minA: 0.65, invA: true, second: domain.FeatEnergy, minB: 0.7},
}

// Discoverer derives cross-cluster similar songs, the four discovery
// categories, and the aggregate music profile.
type Discoverer struct {
	engine    *Engine
	moodRules []config.MoodRule
	genreRank map[string]int
}

// NewDiscoverer builds a discoverer over the engine's similarity function and
// the configured mood/genre tables.
func NewDiscoverer(engine *Engine, cfg config.TasteConfig) *Discoverer {
	rank := make(map[string]int, len(cfg.GenrePriority))
	for i, g := range cfg.GenrePriority {
		rank[g] = i
	}
	return &Discoverer{engine: engine, moodRules: cfg.MoodRules, genreRank: rank}
}

// TrackSimilarity blends feature similarity (0.7) with genre overlap (0.3).
func (d *Discoverer) TrackSimilarity(a, b domain.AnalyzedTrack) float64 {
	return 0.7*d.engine.Similarity(a.Features, b.Features) + 0.3*genreOverlap(a.Genres, b.Genres)
}

// genreOverlap counts exact genre matches plus half credit for
// substring-contains partials, normalized by the larger genre set.
func genreOverlap(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	var score float64
	for _, ga := range a {
		best := 0.0
		for _, gb := range b {
			switch {
			case ga == gb:
				best = 1.0
			case best < 0.5 && (strings.Contains(ga, gb) || strings.Contains(gb, ga)):
				best = 0.5
			}
			if best == 1.0 {
				break
			}
		}
		score += best
	}
	larger := len(a)
	if len(b) > larger {
		larger = len(b)
	}
	return domain.Clamp01(score / float64(larger))
}

// SimilarSongs scores every cluster's profile against tracks outside that
// cluster and keeps strong matches, deduplicated by track with the higher
// score winning.
func (d *Discoverer) SimilarSongs(clusters []domain.MusicCluster, all []domain.AnalyzedTrack) []domain.SimilarSong {
	best := make(map[string]domain.SimilarSong)
	for _, cl := range clusters {
		profile := domain.AnalyzedTrack{Features: cl.Centroid, Genres: cl.DominantGenres}
		for _, at := range all {
			if at.Cluster == cl.Name {
				continue
			}
			score := d.TrackSimilarity(profile, at)
			if score <= similarSongThreshold {
				continue
			}
			candidate := domain.SimilarSong{
				Track:   at.Track,
				Score:   score,
				Reasons: similarityReasons(cl, at.Features),
				Cluster: cl.Name,
			}
			if prev, ok := best[at.Track.ID]; !ok || candidate.Score > prev.Score {
				best[at.Track.ID] = candidate
			}
		}
	}

	out := make([]domain.SimilarSong, 0, len(best))
	for _, s := range best {
		out = append(out, s)
	}
	sortSimilar(out)
	if len(out) > similarSongLimit {
		out = out[:similarSongLimit]
	}
	return out
}

func similarityReasons(cl domain.MusicCluster, fv domain.FeatureVector) []string {
	reasons := []string{fmt.Sprintf("Similar to cluster %s", cl.Name)}
	for _, name := range []string{domain.FeatEnergy, domain.FeatValence, domain.FeatDanceability, domain.FeatAcousticness} {
		cv, _ := cl.Centroid.Value(name)
		tv, _ := fv.Value(name)
		if math.Abs(cv-tv) < 0.1 {
			reasons = append(reasons, "Matching "+name)
		}
	}
	return reasons
}

// Discoveries runs the four independent discovery categories, caps each at
// its top 20, then merges with highest-score-wins dedup.
func (d *Discoverer) Discoveries(clusters []domain.MusicCluster, all []domain.AnalyzedTrack) []domain.LocalDiscovery {
	categories := [][]domain.LocalDiscovery{
		d.hiddenGems(clusters),
		d.moodShifters(all),
		d.genreExplorers(all),
		d.perfectMatches(all),
	}

	best := make(map[string]domain.LocalDiscovery)
	for _, cat := range categories {
		for _, disc := range cat {
			if prev, ok := best[disc.Track.ID]; !ok || disc.Score > prev.Score {
				best[disc.Track.ID] = disc
			}
		}
	}

	out := make([]domain.LocalDiscovery, 0, len(best))
	for _, disc := range best {
		out = append(out, disc)
	}
	sortDiscoveries(out)
	return out
}

// hiddenGems surfaces cluster members far from their own centroid.
func (d *Discoverer) hiddenGems(clusters []domain.MusicCluster) []domain.LocalDiscovery {
	var out []domain.LocalDiscovery
	for _, cl := range clusters {
		for _, at := range cl.Tracks {
			dist := weightedDistance(at.Features, cl.Centroid)
			if dist <= hiddenGemDistance {
				continue
			}
			score := math.Min(hiddenGemScoreCap, 0.5+dist)
			out = append(out, domain.LocalDiscovery{
				Track:    at.Track,
				Score:    score,
				Reasons:  []string{fmt.Sprintf("Stands apart inside %s", cl.Name)},
				Category: domain.DiscoveryHiddenGem,
			})
		}
	}
	return capCategory(out)
}

// moodShifters surfaces tracks matching any contrasting-feature rule.
func (d *Discoverer) moodShifters(all []domain.AnalyzedTrack) []domain.LocalDiscovery {
	var out []domain.LocalDiscovery
	for _, at := range all {
		var score float64
		var reasons []string
		for _, rule := range contrastRules {
			s, ok := rule.match(at.Features)
			if !ok {
				continue
			}
			reasons = append(reasons, rule.reason)
			if s > score {
				score = s
			}
		}
		if score <= moodShiftThreshold {
			continue
		}
		out = append(out, domain.LocalDiscovery{
			Track:    at.Track,
			Score:    domain.Clamp01(score),
			Reasons:  reasons,
			Category: domain.DiscoveryMoodShift,
		})
	}
	return capCategory(out)
}

func (r contrastRule) match(fv domain.FeatureVector) (float64, bool) {
	a, _ := fv.Value(r.first)
	if r.invA {
		a = 1 - a
	}
	b, _ := fv.Value(r.second)
	if r.invB {
		b = 1 - b
	}
	if a <= r.minA || b <= r.minB {
		return 0, false
	}
	// Strength of the contrast is the weaker of the two sides.
	return math.Min(a, b), true
}

// genreExplorers surfaces tracks whose genres are rare within the library.
func (d *Discoverer) genreExplorers(all []domain.AnalyzedTrack) []domain.LocalDiscovery {
	occurrences := make(map[string]int)
	var total int
	for _, at := range all {
		for _, g := range at.Genres {
			occurrences[g]++
			total++
		}
	}
	if total == 0 {
		return nil
	}

	var out []domain.LocalDiscovery
	for _, at := range all {
		if len(at.Genres) == 0 {
			continue
		}
		var raritySum float64
		rarest := ""
		rarestShare := 1.0
		for _, g := range at.Genres {
			share := float64(occurrences[g]) / float64(total)
			raritySum += 1 - share
			if share < rarestShare {
				rarestShare = share
				rarest = g
			}
		}
		avg := raritySum / float64(len(at.Genres))
		if avg <= genreRarityThreshold {
			continue
		}
		out = append(out, domain.LocalDiscovery{
			Track:    at.Track,
			Score:    domain.Clamp01(avg),
			Reasons:  []string{fmt.Sprintf("Rare corner of your library: %s", rarest)},
			Category: domain.DiscoveryGenreExplorer,
		})
	}
	return capCategory(out)
}

// perfectMatches surfaces tracks closest to the whole-library centroid.
func (d *Discoverer) perfectMatches(all []domain.AnalyzedTrack) []domain.LocalDiscovery {
	if len(all) == 0 {
		return nil
	}
	vectors := make([]domain.FeatureVector, len(all))
	for i, at := range all {
		vectors[i] = at.Features
	}
	centroid := meanVector(vectors)

	var out []domain.LocalDiscovery
	for _, at := range all {
		dist := weightedDistance(at.Features, centroid)
		if dist >= perfectMatchDistance {
			continue
		}
		out = append(out, domain.LocalDiscovery{
			Track:    at.Track,
			Score:    domain.Clamp01(1 - dist),
			Reasons:  []string{"Dead center of your overall taste"},
			Category: domain.DiscoveryPerfectMatch,
		})
	}
	return capCategory(out)
}

// Profile aggregates the whole library: centroid, one-genre-per-track
// distribution, mood distribution, and the threshold buckets.
func (d *Discoverer) Profile(all []domain.AnalyzedTrack) domain.MusicProfile {
	profile := domain.MusicProfile{
		GenreDistribution: make(map[string]int),
		MoodDistribution:  make(map[string]int),
	}
	if len(all) == 0 {
		profile.Centroid = domain.NeutralFeatures()
		profile.EnergyProfile = "balanced"
		profile.AcousticProfile = "mixed"
		return profile
	}

	vectors := make([]domain.FeatureVector, len(all))
	for i, at := range all {
		vectors[i] = at.Features
		if g := d.topGenre(at.Genres); g != "" {
			profile.GenreDistribution[g]++
		}
		profile.MoodDistribution[d.mood(at.Features)]++
	}
	profile.Centroid = meanVector(vectors)

	switch {
	case profile.Centroid.Energy > 0.65:
		profile.EnergyProfile = "high-energy"
	case profile.Centroid.Energy < 0.4:
		profile.EnergyProfile = "chill"
	default:
		profile.EnergyProfile = "balanced"
	}
	switch {
	case profile.Centroid.Acousticness > 0.6:
		profile.AcousticProfile = "acoustic"
	case profile.Centroid.Acousticness < 0.35:
		profile.AcousticProfile = "electronic"
	default:
		profile.AcousticProfile = "mixed"
	}
	return profile
}

// topGenre picks the single genre a track counts under, resolved by the
// configured priority table; unlisted genres rank last, alphabetically.
func (d *Discoverer) topGenre(genres []string) string {
	best := ""
	bestRank := math.MaxInt
	for _, g := range genres {
		rank, listed := d.genreRank[g]
		if !listed {
			rank = math.MaxInt - 1
		}
		if best == "" || rank < bestRank || (rank == bestRank && g < best) {
			best = g
			bestRank = rank
		}
	}
	return best
}

// mood matches the independent mood rule table, first rule wins.
func (d *Discoverer) mood(fv domain.FeatureVector) string {
	for _, rule := range d.moodRules {
		if matchesRanges(fv, rule.When) {
			return rule.Mood
		}
	}
	return "balanced"
}

// weightedDistance is the weighted Euclidean distance over the discovery
// feature weights, normalized into [0,1].
func weightedDistance(a, b domain.FeatureVector) float64 {
	var sum, total float64
	for name, w := range distanceWeights {
		av, _ := a.Value(name)
		bv, _ := b.Value(name)
		diff := av - bv
		sum += w * diff * diff
		total += w
	}
	if total == 0 {
		return 0
	}
	return math.Sqrt(sum / total)
}

func capCategory(discs []domain.LocalDiscovery) []domain.LocalDiscovery {
	sortDiscoveries(discs)
	if len(discs) > discoveryCategoryCap {
		discs = discs[:discoveryCategoryCap]
	}
	return discs
}

func sortDiscoveries(discs []domain.LocalDiscovery) {
	sort.SliceStable(discs, func(i, j int) bool {
		if discs[i].Score != discs[j].Score {
			return discs[i].Score > discs[j].Score
		}
		return discs[i].Track.ID < discs[j].Track.ID
	})
}

func sortSimilar(songs []domain.SimilarSong) {
	sort.SliceStable(songs, func(i, j int) bool {
		if songs[i].Score != songs[j].Score {
			return songs[i].Score > songs[j].Score
		}
		return songs[i].Track.ID < songs[j].Track.ID
	})
}

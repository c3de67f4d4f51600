package domain

import "time"

// AnalyzedTrack is a track enriched with its synthesized features, the genre
// set resolved from its artists, and the taste cluster it was assigned to.
type AnalyzedTrack struct {
	Track    Track         `json:"track"`
	Features FeatureVector `json:"features"`
	Genres   []string      `json:"genres"`
	Cluster  string        `json:"cluster"`
}

// MusicCluster is one bucket of the taste partition. Every analyzed track
// belongs to exactly one cluster.
type MusicCluster struct {
	Name           string          `json:"name"`
	Description    string          `json:"description"`
	Tracks         []AnalyzedTrack `json:"tracks"`
	Centroid       FeatureVector   `json:"centroid"`
	DominantGenres []string        `json:"dominant_genres"` // at most 3
}

// SimilarSong is a track scored against a cluster profile or a seed target,
// with human-readable reasons attached.
type SimilarSong struct {
	Track   Track    `json:"track"`
	Score   float64  `json:"score"`
	Reasons []string `json:"reasons"`
	Cluster string   `json:"cluster,omitempty"`
}

// DiscoveryCategory tags which rule family surfaced a discovery.
type DiscoveryCategory string

const (
	DiscoveryHiddenGem     DiscoveryCategory = "hidden-gem"
	DiscoveryMoodShift     DiscoveryCategory = "mood-shift"
	DiscoveryGenreExplorer DiscoveryCategory = "genre-explorer"
	DiscoveryPerfectMatch  DiscoveryCategory = "perfect-match"
)

// LocalDiscovery is a track surfaced as notable relative to the library.
type LocalDiscovery struct {
	Track    Track             `json:"track"`
	Score    float64           `json:"score"` // [0,1]
	Reasons  []string          `json:"reasons"`
	Category DiscoveryCategory `json:"category"`
}

// MusicProfile aggregates the whole library into a taste summary.
type MusicProfile struct {
	Centroid          FeatureVector  `json:"centroid"`
	GenreDistribution map[string]int `json:"genre_distribution"` // one genre per track
	MoodDistribution  map[string]int `json:"mood_distribution"`
	EnergyProfile     string         `json:"energy_profile"`   // high-energy | balanced | chill
	AcousticProfile   string         `json:"acoustic_profile"` // electronic | mixed | acoustic
}

// AnalysisResult is the full output of one library analysis run.
type AnalysisResult struct {
	ID            string           `json:"id"`
	Owner         string           `json:"owner"`
	Clusters      []MusicCluster   `json:"clusters"`
	SimilarSongs  []SimilarSong    `json:"similar_songs"`
	Discoveries   []LocalDiscovery `json:"discoveries"`
	Profile       MusicProfile     `json:"profile"`
	AnalyzedCount int              `json:"analyzed_count"`
	GeneratedAt   time.Time        `json:"generated_at"`
}

// CachedAnalysis wraps a result with its persistence variant flag. A truncated
// snapshot only exists to survive storage quotas; it is never authoritative
// and must trigger a fresh run when read back.
type CachedAnalysis struct {
	Result    AnalysisResult `json:"result"`
	Truncated bool           `json:"truncated"`
}

// Authoritative reports whether the cached result can be served as-is.
func (c CachedAnalysis) Authoritative() bool {
	return !c.Truncated
}

// ListenEvent is one playback observation feeding temporal preference
// learning. Events older than the rolling window are discarded on every load
// and append.
type ListenEvent struct {
	TrackID string    `json:"track_id"`
	At      time.Time `json:"at"`
}

// TemporalPreference holds the learned feature preferences for one temporal
// context key (timeOfDay_dayType_season). Weight grows with observations and
// is capped; contexts below the confidence floor are ignored.
type TemporalPreference struct {
	Context  string             `json:"context"`
	Features map[string]float64 `json:"features"`
	Weight   float64            `json:"weight"`
}

// RecommendOptions tunes a recommendation request. Keys are feature names;
// Target overrides the seed-derived target, Min/Max filter candidates.
type RecommendOptions struct {
	Target map[string]float64 `json:"target,omitempty"`
	Min    map[string]float64 `json:"min,omitempty"`
	Max    map[string]float64 `json:"max,omitempty"`
}

// Package config holds the hand-authored taste tables: genre feature
// templates, the genre priority list, and the cluster/mood rule tables. They
// are configuration data, not derived values, so they ship as defaults and can
// be overridden from a TOML file.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// TasteConfig bundles every table the analysis pipeline consumes.
type TasteConfig struct {
	GenreTemplates []GenreTemplate `toml:"genre_template"`
	GenrePriority  []string        `toml:"genre_priority"`
	ClusterRules   []ClusterRule   `toml:"cluster_rule"`
	MoodRules      []MoodRule      `toml:"mood_rule"`
}

// GenreTemplate is the feature profile a genre pulls a track toward. Match is
// compared by substring against a track's genre tags, so "pop" also catches
// "dance pop" unless a more specific entry appears earlier in the table.
type GenreTemplate struct {
	Match        string  `toml:"match"`
	Energy       float64 `toml:"energy"`
	Danceability float64 `toml:"danceability"`
	Valence      float64 `toml:"valence"`
	Tempo        float64 `toml:"tempo"`
	Acousticness float64 `toml:"acousticness"`
}

// FeatureRange is one threshold condition of a rule. Min means the feature
// must be strictly greater, Max strictly smaller; a nil bound is open.
type FeatureRange struct {
	Feature string   `toml:"feature"`
	Min     *float64 `toml:"min"`
	Max     *float64 `toml:"max"`
}

// ClusterRule is one entry of the cluster decision list. Rules are evaluated
// highest priority first; the first rule whose conditions all hold wins.
type ClusterRule struct {
	Name        string         `toml:"name"`
	Description string         `toml:"description"`
	Priority    int            `toml:"priority"`
	When        []FeatureRange `toml:"when"`
}

// MoodRule is one entry of the mood table used for profile aggregation. It is
// independent of the cluster rules and matched first-rule-wins in table order.
type MoodRule struct {
	Mood string         `toml:"mood"`
	When []FeatureRange `toml:"when"`
}

// Load reads a TOML taste config. A missing file yields the defaults; an
// unreadable or unparsable file yields the defaults and an error so the
// caller can log it without losing the engine.
func Load(path string) (TasteConfig, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return Default(), fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg TasteConfig
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Default(), fmt.Errorf("config: parse %s: %w", path, err)
	}

	// Partial overrides keep the authored defaults for absent tables.
	def := Default()
	if len(cfg.GenreTemplates) == 0 {
		cfg.GenreTemplates = def.GenreTemplates
	}
	if len(cfg.GenrePriority) == 0 {
		cfg.GenrePriority = def.GenrePriority
	}
	if len(cfg.ClusterRules) == 0 {
		cfg.ClusterRules = def.ClusterRules
	}
	if len(cfg.MoodRules) == 0 {
		cfg.MoodRules = def.MoodRules
	}
	return cfg, nil
}

func fptr(v float64) *float64 { return &v }

// Default returns the authored tables.
func Default() TasteConfig {
	return TasteConfig{
		GenreTemplates: defaultGenreTemplates(),
		GenrePriority:  defaultGenrePriority(),
		ClusterRules:   defaultClusterRules(),
		MoodRules:      defaultMoodRules(),
	}
}

// defaultGenreTemplates is ordered most-specific first because matching is by
// substring: "dance pop" has to be tried before "pop".
func defaultGenreTemplates() []GenreTemplate {
	return []GenreTemplate{
		{Match: "drum and bass", Energy: 0.9, Danceability: 0.7, Valence: 0.55, Tempo: 174, Acousticness: 0.05},
		{Match: "dance pop", Energy: 0.8, Danceability: 0.85, Valence: 0.7, Tempo: 122, Acousticness: 0.1},
		{Match: "k-pop", Energy: 0.8, Danceability: 0.8, Valence: 0.7, Tempo: 120, Acousticness: 0.1},
		{Match: "j-pop", Energy: 0.75, Danceability: 0.7, Valence: 0.7, Tempo: 126, Acousticness: 0.15},
		{Match: "hip hop", Energy: 0.7, Danceability: 0.8, Valence: 0.55, Tempo: 95, Acousticness: 0.1},
		{Match: "hip-hop", Energy: 0.7, Danceability: 0.8, Valence: 0.55, Tempo: 95, Acousticness: 0.1},
		{Match: "lo-fi", Energy: 0.3, Danceability: 0.5, Valence: 0.45, Tempo: 80, Acousticness: 0.5},
		{Match: "synthwave", Energy: 0.65, Danceability: 0.6, Valence: 0.5, Tempo: 110, Acousticness: 0.05},
		{Match: "reggaeton", Energy: 0.75, Danceability: 0.85, Valence: 0.7, Tempo: 96, Acousticness: 0.1},
		{Match: "reggae", Energy: 0.55, Danceability: 0.7, Valence: 0.7, Tempo: 80, Acousticness: 0.3},
		{Match: "dubstep", Energy: 0.9, Danceability: 0.6, Valence: 0.4, Tempo: 140, Acousticness: 0.02},
		{Match: "techno", Energy: 0.85, Danceability: 0.75, Valence: 0.45, Tempo: 130, Acousticness: 0.02},
		{Match: "trance", Energy: 0.8, Danceability: 0.65, Valence: 0.55, Tempo: 138, Acousticness: 0.02},
		{Match: "house", Energy: 0.8, Danceability: 0.8, Valence: 0.6, Tempo: 124, Acousticness: 0.05},
		{Match: "edm", Energy: 0.85, Danceability: 0.75, Valence: 0.6, Tempo: 128, Acousticness: 0.03},
		{Match: "electro", Energy: 0.8, Danceability: 0.7, Valence: 0.55, Tempo: 126, Acousticness: 0.05},
		{Match: "ambient", Energy: 0.2, Danceability: 0.25, Valence: 0.4, Tempo: 70, Acousticness: 0.6},
		{Match: "electronic", Energy: 0.75, Danceability: 0.7, Valence: 0.55, Tempo: 125, Acousticness: 0.05},
		{Match: "metalcore", Energy: 0.95, Danceability: 0.4, Valence: 0.3, Tempo: 150, Acousticness: 0.02},
		{Match: "metal", Energy: 0.9, Danceability: 0.4, Valence: 0.35, Tempo: 140, Acousticness: 0.02},
		{Match: "punk", Energy: 0.9, Danceability: 0.5, Valence: 0.5, Tempo: 160, Acousticness: 0.05},
		{Match: "hard rock", Energy: 0.85, Danceability: 0.45, Valence: 0.5, Tempo: 130, Acousticness: 0.05},
		{Match: "indie", Energy: 0.55, Danceability: 0.55, Valence: 0.55, Tempo: 115, Acousticness: 0.35},
		{Match: "rock", Energy: 0.75, Danceability: 0.5, Valence: 0.55, Tempo: 125, Acousticness: 0.1},
		{Match: "rap", Energy: 0.7, Danceability: 0.75, Valence: 0.5, Tempo: 90, Acousticness: 0.1},
		{Match: "trap", Energy: 0.7, Danceability: 0.75, Valence: 0.4, Tempo: 140, Acousticness: 0.05},
		{Match: "r&b", Energy: 0.55, Danceability: 0.65, Valence: 0.55, Tempo: 90, Acousticness: 0.25},
		{Match: "soul", Energy: 0.55, Danceability: 0.6, Valence: 0.6, Tempo: 95, Acousticness: 0.35},
		{Match: "funk", Energy: 0.7, Danceability: 0.8, Valence: 0.75, Tempo: 105, Acousticness: 0.2},
		{Match: "disco", Energy: 0.75, Danceability: 0.85, Valence: 0.8, Tempo: 118, Acousticness: 0.1},
		{Match: "jazz", Energy: 0.4, Danceability: 0.5, Valence: 0.55, Tempo: 100, Acousticness: 0.7},
		{Match: "blues", Energy: 0.45, Danceability: 0.45, Valence: 0.4, Tempo: 95, Acousticness: 0.65},
		{Match: "classical", Energy: 0.25, Danceability: 0.2, Valence: 0.45, Tempo: 90, Acousticness: 0.95},
		{Match: "opera", Energy: 0.4, Danceability: 0.2, Valence: 0.4, Tempo: 85, Acousticness: 0.9},
		{Match: "acoustic", Energy: 0.35, Danceability: 0.4, Valence: 0.5, Tempo: 100, Acousticness: 0.9},
		{Match: "folk", Energy: 0.4, Danceability: 0.45, Valence: 0.55, Tempo: 105, Acousticness: 0.8},
		{Match: "country", Energy: 0.55, Danceability: 0.55, Valence: 0.6, Tempo: 115, Acousticness: 0.5},
		{Match: "latin", Energy: 0.75, Danceability: 0.8, Valence: 0.75, Tempo: 100, Acousticness: 0.2},
		{Match: "gospel", Energy: 0.55, Danceability: 0.5, Valence: 0.75, Tempo: 100, Acousticness: 0.5},
		{Match: "lullaby", Energy: 0.1, Danceability: 0.2, Valence: 0.5, Tempo: 70, Acousticness: 0.9},
		{Match: "pop", Energy: 0.7, Danceability: 0.7, Valence: 0.65, Tempo: 118, Acousticness: 0.15},
		// Fallback for genres with no table entry.
		{Match: "unknown", Energy: 0.5, Danceability: 0.5, Valence: 0.5, Tempo: 120, Acousticness: 0.3},
	}
}

// defaultGenrePriority resolves which single genre a track counts under in
// the profile's genre distribution. Earlier entries win.
func defaultGenrePriority() []string {
	return []string{
		"k-pop",
		"latin",
		"reggaeton",
		"hip-hop",
		"hip hop",
		"rap",
		"trap",
		"drum and bass",
		"dubstep",
		"techno",
		"house",
		"trance",
		"edm",
		"metal",
		"punk",
		"rock",
		"indie",
		"r&b",
		"soul",
		"funk",
		"disco",
		"jazz",
		"blues",
		"classical",
		"folk",
		"country",
		"reggae",
		"ambient",
		"electronic",
		"acoustic",
		"pop",
	}
}

func defaultClusterRules() []ClusterRule {
	return []ClusterRule{
		{
			Name:        "High Energy Bangers",
			Description: "Loud, fast and made to move",
			Priority:    100,
			When: []FeatureRange{
				{Feature: "energy", Min: fptr(0.75)},
				{Feature: "danceability", Min: fptr(0.65)},
			},
		},
		{
			Name:        "Dance Floor Anthems",
			Description: "Groove-first tracks with a bright mood",
			Priority:    90,
			When: []FeatureRange{
				{Feature: "danceability", Min: fptr(0.75)},
				{Feature: "valence", Min: fptr(0.55)},
			},
		},
		{
			Name:        "Acoustic Sessions",
			Description: "Unplugged, organic and intimate",
			Priority:    80,
			When: []FeatureRange{
				{Feature: "acousticness", Min: fptr(0.65)},
				{Feature: "energy", Max: fptr(0.5)},
			},
		},
		{
			Name:        "Melancholy Moods",
			Description: "Low-key songs for heavy hearts",
			Priority:    70,
			When: []FeatureRange{
				{Feature: "valence", Max: fptr(0.35)},
				{Feature: "energy", Max: fptr(0.5)},
			},
		},
		{
			Name:        "Intense & Dark",
			Description: "High energy with a brooding edge",
			Priority:    65,
			When: []FeatureRange{
				{Feature: "energy", Min: fptr(0.7)},
				{Feature: "valence", Max: fptr(0.4)},
			},
		},
		{
			Name:        "Feel Good Hits",
			Description: "Sunny tracks that lift the room",
			Priority:    60,
			When: []FeatureRange{
				{Feature: "valence", Min: fptr(0.7)},
				{Feature: "energy", Min: fptr(0.45)},
			},
		},
		{
			Name:        "Chill Vibes",
			Description: "Relaxed tempo, easy mood",
			Priority:    50,
			When: []FeatureRange{
				{Feature: "energy", Max: fptr(0.45)},
				{Feature: "valence", Min: fptr(0.45)},
			},
		},
		{
			Name:        "Instrumental Escapes",
			Description: "Little or no vocals, all atmosphere",
			Priority:    40,
			When: []FeatureRange{
				{Feature: "instrumentalness", Min: fptr(0.6)},
			},
		},
		{
			Name:        "Live Energy",
			Description: "Stage recordings and crowd noise",
			Priority:    30,
			When: []FeatureRange{
				{Feature: "liveness", Min: fptr(0.55)},
			},
		},
		{
			Name:        "Wordy & Rhythmic",
			Description: "Speech-heavy tracks with a beat",
			Priority:    20,
			When: []FeatureRange{
				{Feature: "speechiness", Min: fptr(0.25)},
				{Feature: "danceability", Min: fptr(0.5)},
			},
		},
	}
}

func defaultMoodRules() []MoodRule {
	return []MoodRule{
		{Mood: "euphoric", When: []FeatureRange{
			{Feature: "valence", Min: fptr(0.7)},
			{Feature: "energy", Min: fptr(0.7)},
		}},
		{Mood: "happy", When: []FeatureRange{
			{Feature: "valence", Min: fptr(0.6)},
		}},
		{Mood: "aggressive", When: []FeatureRange{
			{Feature: "energy", Min: fptr(0.75)},
			{Feature: "valence", Max: fptr(0.4)},
		}},
		{Mood: "energetic", When: []FeatureRange{
			{Feature: "energy", Min: fptr(0.65)},
		}},
		{Mood: "melancholic", When: []FeatureRange{
			{Feature: "valence", Max: fptr(0.35)},
		}},
		{Mood: "chill", When: []FeatureRange{
			{Feature: "energy", Max: fptr(0.4)},
		}},
		{Mood: "balanced", When: nil}, // catch-all; matches everything
	}
}

package domain

// Feature names accepted wherever features are addressed by name
// (recommendation option targets, temporal preferences, rule tables).
const (
	FeatAcousticness     = "acousticness"
	FeatDanceability     = "danceability"
	FeatEnergy           = "energy"
	FeatInstrumentalness = "instrumentalness"
	FeatLiveness         = "liveness"
	FeatSpeechiness      = "speechiness"
	FeatValence          = "valence"
	FeatTempo            = "tempo"
	FeatLoudness         = "loudness"
)

// FeatureVector is the synthesized pseudo-acoustic descriptor for a track.
// The seven unit features live in [0,1]; Tempo is BPM in [40,200]; Loudness
// is dB (negative); Key is a pitch class 0-11 and Mode is 0 (minor) or 1
// (major). A vector is created once per track and never mutated afterwards.
type FeatureVector struct {
	Acousticness     float64 `json:"acousticness"`
	Danceability     float64 `json:"danceability"`
	Energy           float64 `json:"energy"`
	Instrumentalness float64 `json:"instrumentalness"`
	Liveness         float64 `json:"liveness"`
	Speechiness      float64 `json:"speechiness"`
	Valence          float64 `json:"valence"`
	Key              int     `json:"key"`
	Mode             int     `json:"mode"`
	Tempo            float64 `json:"tempo"`
	Loudness         float64 `json:"loudness"`
	TimeSignature    int     `json:"time_signature"`
	DurationMs       int     `json:"duration_ms"`
}

// NeutralFeatures is the starting point for synthesis before any metadata
// heuristic is applied.
func NeutralFeatures() FeatureVector {
	return FeatureVector{
		Acousticness:     0.5,
		Danceability:     0.5,
		Energy:           0.5,
		Instrumentalness: 0.1,
		Liveness:         0.15,
		Speechiness:      0.05,
		Valence:          0.5,
		Key:              0,
		Mode:             1,
		Tempo:            120,
		Loudness:         -10,
		TimeSignature:    4,
	}
}

// Value returns the named feature, reporting false for unknown names.
func (f FeatureVector) Value(name string) (float64, bool) {
	switch name {
	case FeatAcousticness:
		return f.Acousticness, true
	case FeatDanceability:
		return f.Danceability, true
	case FeatEnergy:
		return f.Energy, true
	case FeatInstrumentalness:
		return f.Instrumentalness, true
	case FeatLiveness:
		return f.Liveness, true
	case FeatSpeechiness:
		return f.Speechiness, true
	case FeatValence:
		return f.Valence, true
	case FeatTempo:
		return f.Tempo, true
	case FeatLoudness:
		return f.Loudness, true
	}
	return 0, false
}

// SetValue assigns the named feature, reporting false for unknown names.
func (f *FeatureVector) SetValue(name string, v float64) bool {
	switch name {
	case FeatAcousticness:
		f.Acousticness = v
	case FeatDanceability:
		f.Danceability = v
	case FeatEnergy:
		f.Energy = v
	case FeatInstrumentalness:
		f.Instrumentalness = v
	case FeatLiveness:
		f.Liveness = v
	case FeatSpeechiness:
		f.Speechiness = v
	case FeatValence:
		f.Valence = v
	case FeatTempo:
		f.Tempo = v
	case FeatLoudness:
		f.Loudness = v
	default:
		return false
	}
	return true
}

// Clamp forces every field back into its documented range. Synthesis calls
// this after each pipeline step so no heuristic can push a value out of range.
func (f *FeatureVector) Clamp() {
	f.Acousticness = Clamp01(f.Acousticness)
	f.Danceability = Clamp01(f.Danceability)
	f.Energy = Clamp01(f.Energy)
	f.Instrumentalness = Clamp01(f.Instrumentalness)
	f.Liveness = Clamp01(f.Liveness)
	f.Speechiness = Clamp01(f.Speechiness)
	f.Valence = Clamp01(f.Valence)
	f.Tempo = clampRange(f.Tempo, 40, 200)
	if f.Loudness > 0 {
		f.Loudness = 0
	}
	if f.Key < 0 || f.Key > 11 {
		f.Key = 0
	}
	if f.Mode != 0 && f.Mode != 1 {
		f.Mode = 1
	}
	if f.TimeSignature < 1 {
		f.TimeSignature = 4
	}
}

// Clamp01 bounds v to [0,1].
func Clamp01(v float64) float64 {
	return clampRange(v, 0, 1)
}

func clampRange(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

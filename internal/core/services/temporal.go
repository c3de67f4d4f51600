package services

import (
	"fmt"
	"time"

	"github.com/ewilliams-labs/resonate/internal/core/domain"
)

const (
	// Exponential moving average factor for preference updates.
	temporalDecay = 0.9
	// Confidence added per observation, and its cap.
	temporalWeightStep = 0.1
	temporalWeightCap  = 2.0
	// Contexts at or below this weight are not trusted yet.
	temporalWeightFloor = 0.5
)

// temporalFeatures are the features the learner tracks per context.
var temporalFeatures = []string{
	domain.FeatAcousticness,
	domain.FeatDanceability,
	domain.FeatEnergy,
	domain.FeatInstrumentalness,
	domain.FeatLiveness,
	domain.FeatSpeechiness,
	domain.FeatValence,
	domain.FeatTempo,
}

// TemporalPreferences learns what the user listens to per temporal context
// (time of day, weekday/weekend, season) via exponential moving averages.
type TemporalPreferences struct {
	prefs map[string]*domain.TemporalPreference
}

// NewTemporalPreferences constructs an empty learner.
func NewTemporalPreferences() *TemporalPreferences {
	return &TemporalPreferences{prefs: make(map[string]*domain.TemporalPreference)}
}

// ContextKey derives the temporal context for a wall-clock time:
// {morning|afternoon|evening|night}_{weekday|weekend}_{spring|summer|fall|winter}.
func ContextKey(t time.Time) string {
	return fmt.Sprintf("%s_%s_%s", timeOfDay(t), dayType(t), season(t))
}

func timeOfDay(t time.Time) string {
	switch h := t.Hour(); {
	case h >= 5 && h < 12:
		return "morning"
	case h >= 12 && h < 17:
		return "afternoon"
	case h >= 17 && h < 22:
		return "evening"
	default:
		return "night"
	}
}

func dayType(t time.Time) string {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return "weekend"
	default:
		return "weekday"
	}
}

func season(t time.Time) string {
	switch t.Month() {
	case time.March, time.April, time.May:
		return "spring"
	case time.June, time.July, time.August:
		return "summer"
	case time.September, time.October, time.November:
		return "fall"
	default:
		return "winter"
	}
}

// Observe folds one listening observation into the context active at t.
func (p *TemporalPreferences) Observe(t time.Time, fv domain.FeatureVector) {
	key := ContextKey(t)
	pref, ok := p.prefs[key]
	if !ok {
		pref = &domain.TemporalPreference{Context: key, Features: make(map[string]float64)}
		p.prefs[key] = pref
	}
	for _, name := range temporalFeatures {
		observed, _ := fv.Value(name)
		if old, seen := pref.Features[name]; seen {
			pref.Features[name] = temporalDecay*old + (1-temporalDecay)*observed
		} else {
			pref.Features[name] = observed
		}
	}
	pref.Weight += temporalWeightStep
	if pref.Weight > temporalWeightCap {
		pref.Weight = temporalWeightCap
	}
}

// Blend fills unset recommendation targets from the context active at t.
// Learned values are blended against the neutral default with weight
// min(weight/2, 0.7); caller-supplied targets are never touched, and
// low-confidence contexts (weight <= 0.5) are ignored.
func (p *TemporalPreferences) Blend(t time.Time, opts domain.RecommendOptions) domain.RecommendOptions {
	pref, ok := p.prefs[ContextKey(t)]
	if !ok || pref.Weight <= temporalWeightFloor {
		return opts
	}

	w := pref.Weight / 2
	if w > 0.7 {
		w = 0.7
	}

	neutral := domain.NeutralFeatures()
	out := opts
	out.Target = make(map[string]float64, len(opts.Target)+len(pref.Features))
	for name, v := range opts.Target {
		out.Target[name] = v
	}
	for name, learned := range pref.Features {
		if _, set := out.Target[name]; set {
			continue
		}
		base, _ := neutral.Value(name)
		out.Target[name] = (1-w)*base + w*learned
	}
	return out
}

// Preference returns the learned preference for a context key, if any.
func (p *TemporalPreferences) Preference(key string) (domain.TemporalPreference, bool) {
	pref, ok := p.prefs[key]
	if !ok {
		return domain.TemporalPreference{}, false
	}
	return *pref, true
}

// Snapshot copies all learned preferences for persistence.
func (p *TemporalPreferences) Snapshot() []domain.TemporalPreference {
	out := make([]domain.TemporalPreference, 0, len(p.prefs))
	for _, pref := range p.prefs {
		cp := *pref
		cp.Features = make(map[string]float64, len(pref.Features))
		for k, v := range pref.Features {
			cp.Features[k] = v
		}
		out = append(out, cp)
	}
	return out
}

// Load replaces the learner's state from persisted preferences.
func (p *TemporalPreferences) Load(prefs []domain.TemporalPreference) {
	p.prefs = make(map[string]*domain.TemporalPreference, len(prefs))
	for _, pref := range prefs {
		cp := pref
		if cp.Features == nil {
			cp.Features = make(map[string]float64)
		}
		p.prefs[cp.Context] = &cp
	}
}

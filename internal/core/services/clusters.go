package services

import (
	"sort"

	"github.com/ewilliams-labs/resonate/internal/config"
	"github.com/ewilliams-labs/resonate/internal/core/domain"
)

// MixedVibesCluster is the reserved fallback bucket for tracks no rule claims.
const MixedVibesCluster = "Mixed Vibes"

const mixedVibesDescription = "Everything that refuses a single label"

// Clusterer assigns tracks to named taste clusters with a priority-ordered
// decision list. Assignment is pure: the same vector always lands in the same
// cluster.
type Clusterer struct {
	rules []config.ClusterRule // sorted by priority, highest first
}

// NewClusterer builds a clusterer over the configured rule table.
func NewClusterer(cfg config.TasteConfig) *Clusterer {
	rules := append([]config.ClusterRule(nil), cfg.ClusterRules...)
	sort.SliceStable(rules, func(i, j int) bool { return rules[i].Priority > rules[j].Priority })
	return &Clusterer{rules: rules}
}

// Assign returns the cluster name and description for a feature vector. The
// first matching rule in priority order wins.
func (c *Clusterer) Assign(fv domain.FeatureVector) (string, string) {
	for _, rule := range c.rules {
		if matchesRanges(fv, rule.When) {
			return rule.Name, rule.Description
		}
	}
	return MixedVibesCluster, mixedVibesDescription
}

// Cluster partitions analyzed tracks into clusters: every track lands in
// exactly one bucket. Each cluster gets a centroid and its top-3 dominant
// genres. Clusters are ordered by member count descending, ties by rule
// priority.
func (c *Clusterer) Cluster(tracks []domain.AnalyzedTrack) []domain.MusicCluster {
	byName := make(map[string]*domain.MusicCluster)
	for _, at := range tracks {
		name, desc := c.Assign(at.Features)
		at.Cluster = name
		cl, ok := byName[name]
		if !ok {
			cl = &domain.MusicCluster{Name: name, Description: desc}
			byName[name] = cl
		}
		cl.Tracks = append(cl.Tracks, at)
	}

	out := make([]domain.MusicCluster, 0, len(byName))
	for _, cl := range byName {
		vectors := make([]domain.FeatureVector, len(cl.Tracks))
		for i, at := range cl.Tracks {
			vectors[i] = at.Features
		}
		cl.Centroid = meanVector(vectors)
		cl.DominantGenres = dominantGenres(cl.Tracks, 3)
		out = append(out, *cl)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if len(out[i].Tracks) != len(out[j].Tracks) {
			return len(out[i].Tracks) > len(out[j].Tracks)
		}
		return c.rulePriority(out[i].Name) > c.rulePriority(out[j].Name)
	})
	return out
}

func (c *Clusterer) rulePriority(name string) int {
	for _, rule := range c.rules {
		if rule.Name == name {
			return rule.Priority
		}
	}
	return 0 // Mixed Vibes sorts after every authored rule
}

func matchesRanges(fv domain.FeatureVector, conditions []config.FeatureRange) bool {
	for _, cond := range conditions {
		v, ok := fv.Value(cond.Feature)
		if !ok {
			return false
		}
		if cond.Min != nil && v <= *cond.Min {
			return false
		}
		if cond.Max != nil && v >= *cond.Max {
			return false
		}
	}
	return true
}

// dominantGenres counts genre occurrences across the cluster and returns the
// top n, ties broken alphabetically for determinism.
func dominantGenres(tracks []domain.AnalyzedTrack, n int) []string {
	counts := make(map[string]int)
	for _, at := range tracks {
		for _, g := range at.Genres {
			counts[g]++
		}
	}
	genres := make([]string, 0, len(counts))
	for g := range counts {
		genres = append(genres, g)
	}
	sort.Slice(genres, func(i, j int) bool {
		if counts[genres[i]] != counts[genres[j]] {
			return counts[genres[i]] > counts[genres[j]]
		}
		return genres[i] < genres[j]
	})
	if len(genres) > n {
		genres = genres[:n]
	}
	return genres
}

package services

import (
	"testing"

	"github.com/ewilliams-labs/resonate/internal/config"
	"github.com/ewilliams-labs/resonate/internal/core/domain"
)

func TestAssignDecisionList(t *testing.T) {
	c := NewClusterer(config.Default())

	tests := []struct {
		name string
		fv   domain.FeatureVector
		want string
	}{
		{"high energy banger", vector(0.9, 0.9, 0.6, 0.1), "High Energy Bangers"},
		{"dance floor beats feel good on priority", vector(0.6, 0.8, 0.75, 0.1), "Dance Floor Anthems"},
		{"acoustic session", vector(0.3, 0.4, 0.5, 0.8), "Acoustic Sessions"},
		{"melancholy", vector(0.3, 0.4, 0.2, 0.4), "Melancholy Moods"},
		{"intense and dark", vector(0.85, 0.5, 0.3, 0.05), "Intense & Dark"},
		{"chill", vector(0.3, 0.5, 0.6, 0.5), "Chill Vibes"},
		{"neutral falls through to mixed vibes", vector(0.5, 0.5, 0.5, 0.3), MixedVibesCluster},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name, desc := c.Assign(tt.fv)
			if name != tt.want {
				t.Fatalf("Assign: got %s, want %s", name, tt.want)
			}
			if desc == "" {
				t.Fatal("Assign returned empty description")
			}
		})
	}
}

func TestAssignBoundsAreStrict(t *testing.T) {
	c := NewClusterer(config.Default())

	// Energy exactly at the 0.75 threshold must not qualify as a banger; the
	// next matching rule down the list claims the track instead.
	fv := vector(0.75, 0.9, 0.6, 0.1)
	if name, _ := c.Assign(fv); name != "Dance Floor Anthems" {
		t.Fatalf("Assign at threshold: got %s, want Dance Floor Anthems", name)
	}
}

func TestAssignIsDeterministic(t *testing.T) {
	c := NewClusterer(config.Default())
	fv := vector(0.8, 0.7, 0.6, 0.1)
	first, _ := c.Assign(fv)
	for i := 0; i < 5; i++ {
		if name, _ := c.Assign(fv); name != first {
			t.Fatalf("Assign flapped: got %s, want %s", name, first)
		}
	}
}

func TestClusterPartitionsEveryTrack(t *testing.T) {
	c := NewClusterer(config.Default())
	tracks := []domain.AnalyzedTrack{
		{Track: domain.Track{ID: "a"}, Features: vector(0.9, 0.9, 0.6, 0.1), Genres: []string{"techno"}},
		{Track: domain.Track{ID: "b"}, Features: vector(0.85, 0.8, 0.6, 0.1), Genres: []string{"techno", "house"}},
		{Track: domain.Track{ID: "c"}, Features: vector(0.3, 0.4, 0.5, 0.8), Genres: []string{"folk"}},
		{Track: domain.Track{ID: "d"}, Features: vector(0.5, 0.5, 0.5, 0.3), Genres: nil},
	}

	clusters := c.Cluster(tracks)

	seen := make(map[string]int)
	total := 0
	for _, cl := range clusters {
		total += len(cl.Tracks)
		for _, at := range cl.Tracks {
			seen[at.Track.ID]++
			if at.Cluster != cl.Name {
				t.Fatalf("track %s carries cluster %q inside %q", at.Track.ID, at.Cluster, cl.Name)
			}
		}
	}
	if total != len(tracks) {
		t.Fatalf("partition size: got %d, want %d", total, len(tracks))
	}
	for id, n := range seen {
		if n != 1 {
			t.Fatalf("track %s appears %d times, want 1", id, n)
		}
	}

	// Largest cluster first.
	for i := 1; i < len(clusters); i++ {
		if len(clusters[i].Tracks) > len(clusters[i-1].Tracks) {
			t.Fatalf("clusters unsorted: %d tracks after %d", len(clusters[i].Tracks), len(clusters[i-1].Tracks))
		}
	}
}

func TestClusterComputesCentroidAndGenres(t *testing.T) {
	c := NewClusterer(config.Default())
	tracks := []domain.AnalyzedTrack{
		{Track: domain.Track{ID: "a"}, Features: vector(0.9, 0.9, 0.6, 0.1), Genres: []string{"techno", "edm"}},
		{Track: domain.Track{ID: "b"}, Features: vector(0.8, 0.7, 0.6, 0.1), Genres: []string{"techno"}},
	}

	clusters := c.Cluster(tracks)
	if len(clusters) != 1 {
		t.Fatalf("clusters: got %d, want 1", len(clusters))
	}
	cl := clusters[0]
	if cl.Name != "High Energy Bangers" {
		t.Fatalf("cluster name: got %s, want High Energy Bangers", cl.Name)
	}
	if !approxEqual(cl.Centroid.Energy, 0.85) {
		t.Fatalf("centroid energy: got %v, want 0.85", cl.Centroid.Energy)
	}
	if len(cl.DominantGenres) != 2 || cl.DominantGenres[0] != "techno" || cl.DominantGenres[1] != "edm" {
		t.Fatalf("dominant genres: got %v, want [techno edm]", cl.DominantGenres)
	}
}

func TestDominantGenresTopThreeWithAlphabeticalTies(t *testing.T) {
	tracks := []domain.AnalyzedTrack{
		{Genres: []string{"rock", "indie"}},
		{Genres: []string{"rock", "punk"}},
		{Genres: []string{"rock", "metal"}},
	}
	got := dominantGenres(tracks, 3)
	want := []string{"rock", "indie", "metal"}
	if len(got) != len(want) {
		t.Fatalf("dominant genres: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("dominant genres: got %v, want %v", got, want)
		}
	}
}

func TestCustomRuleTable(t *testing.T) {
	min := 0.5
	cfg := config.Default()
	cfg.ClusterRules = []config.ClusterRule{
		{Name: "Only Rule", Description: "everything energetic", Priority: 10, When: []config.FeatureRange{
			{Feature: "energy", Min: &min},
		}},
	}

	c := NewClusterer(cfg)
	if name, _ := c.Assign(vector(0.9, 0.5, 0.5, 0.3)); name != "Only Rule" {
		t.Fatalf("custom rule: got %s, want Only Rule", name)
	}
	if name, _ := c.Assign(vector(0.2, 0.5, 0.5, 0.3)); name != MixedVibesCluster {
		t.Fatalf("custom rule miss: got %s, want %s", name, MixedVibesCluster)
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultTables(t *testing.T) {
	cfg := Default()

	if len(cfg.GenreTemplates) == 0 {
		t.Fatal("no default genre templates")
	}
	last := cfg.GenreTemplates[len(cfg.GenreTemplates)-1]
	if last.Match != "unknown" {
		t.Fatalf("last template: got %q, want the unknown fallback", last.Match)
	}

	if len(cfg.GenrePriority) == 0 {
		t.Fatal("no default genre priority list")
	}
	if len(cfg.ClusterRules) == 0 {
		t.Fatal("no default cluster rules")
	}
	if len(cfg.MoodRules) == 0 {
		t.Fatal("no default mood rules")
	}

	// Every rule condition must name a feature, and authored priorities must
	// be positive so Mixed Vibes sorts last.
	for _, rule := range cfg.ClusterRules {
		if rule.Priority <= 0 {
			t.Fatalf("rule %q has non-positive priority %d", rule.Name, rule.Priority)
		}
		for _, cond := range rule.When {
			if cond.Feature == "" {
				t.Fatalf("rule %q has a condition without a feature", rule.Name)
			}
		}
	}
}

func TestLoadEmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\"): %v", err)
	}
	if len(cfg.GenreTemplates) != len(Default().GenreTemplates) {
		t.Fatal("empty path did not return defaults")
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load missing file: %v", err)
	}
	if len(cfg.ClusterRules) != len(Default().ClusterRules) {
		t.Fatal("missing file did not return defaults")
	}
}

func TestLoadPartialOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taste.toml")
	body := `
[[cluster_rule]]
name = "Morning Focus"
description = "Calm tracks for deep work"
priority = 42

[[cluster_rule.when]]
feature = "energy"
max = 0.4
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if len(cfg.ClusterRules) != 1 {
		t.Fatalf("cluster rules: got %d, want 1", len(cfg.ClusterRules))
	}
	rule := cfg.ClusterRules[0]
	if rule.Name != "Morning Focus" || rule.Priority != 42 {
		t.Fatalf("rule: got %+v", rule)
	}
	if len(rule.When) != 1 || rule.When[0].Feature != "energy" {
		t.Fatalf("rule conditions: got %+v", rule.When)
	}
	if rule.When[0].Max == nil || *rule.When[0].Max != 0.4 {
		t.Fatalf("rule max bound: got %+v", rule.When[0].Max)
	}
	if rule.When[0].Min != nil {
		t.Fatalf("rule min bound: got %v, want nil", *rule.When[0].Min)
	}

	// Tables absent from the file keep their authored defaults.
	if len(cfg.GenreTemplates) != len(Default().GenreTemplates) {
		t.Fatal("genre templates lost on partial override")
	}
	if len(cfg.MoodRules) != len(Default().MoodRules) {
		t.Fatal("mood rules lost on partial override")
	}
}

func TestLoadBadTOMLReturnsDefaultsAndError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.toml")
	if err := os.WriteFile(path, []byte("[[cluster_rule\nname ="), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err == nil {
		t.Fatal("Load on broken TOML: got nil error")
	}
	if len(cfg.ClusterRules) != len(Default().ClusterRules) {
		t.Fatal("broken TOML did not fall back to defaults")
	}
}

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleConfig = `
job:
  robust: true
  map_tasks: 4
  nodes: 2
  partitions: 3
  combine: true
targets:
  - name: wordcount
    variant: sum
  - name: first_words
    variant: first
    params:
      limit: "3"
output:
  type: text
  root_path: /tmp/out
`

func TestLoadConfig(t *testing.T) {
	// 1. Write a config file to a temp dir
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(sampleConfig), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	// 2. Load it
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	// 3. Verify fields and defaults
	if !cfg.Job.Robust {
		t.Errorf("Expected robust mode to be enabled")
	}
	if cfg.Job.MapTasks != 4 || cfg.Job.Nodes != 2 || cfg.Job.Partitions != 3 {
		t.Errorf("Unexpected job sizing: %+v", cfg.Job)
	}
	if len(cfg.Targets) != 2 {
		t.Fatalf("Expected 2 targets, got %d", len(cfg.Targets))
	}
	if got := cfg.Targets[1].Param("limit", "1"); got != "3" {
		t.Errorf("Expected limit param 3, got %s", got)
	}
	if got := cfg.Targets[0].Param("limit", "1"); got != "1" {
		t.Errorf("Expected default param 1, got %s", got)
	}
	if cfg.Shuffle.Subject != "saw.shuffle" {
		t.Errorf("Expected default shuffle subject, got %s", cfg.Shuffle.Subject)
	}
}

func TestParseRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"duplicate target": "targets:\n  - {name: a, variant: sum}\n  - {name: a, variant: max}\n",
		"missing variant":  "targets:\n  - {name: a}\n",
		"missing name":     "targets:\n  - {variant: sum}\n",
		"unknown output":   "output:\n  type: kafka\n",
	}
	for name, doc := range cases {
		if _, err := Parse([]byte(doc)); err == nil {
			t.Errorf("%s: expected an error", name)
		}
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil || !strings.Contains(err.Error(), "failed to read config file") {
		t.Fatalf("Expected read error, got %v", err)
	}
}

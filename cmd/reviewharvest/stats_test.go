package main

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
)

// TestRunStatsCmd tests dataset statistics output.
func TestRunStatsCmd(t *testing.T) {
	t.Run("missing data directory has no datasets", func(t *testing.T) {
		stdout, _, err := executeRoot(t, "stats", "--config", writeTestConfig(t, t.TempDir(), ""),
			"-d", filepath.Join(t.TempDir(), "missing"), "-f", "json")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var rep struct {
			Datasets []json.RawMessage `json:"datasets"`
		}
		if err := json.Unmarshal([]byte(stdout), &rep); err != nil {
			t.Fatalf("invalid output: %v", err)
		}
		if rep.Datasets == nil || len(rep.Datasets) != 0 {
			t.Errorf("expected an empty dataset list, got %s", stdout)
		}
	})

	t.Run("reports harvested datasets", func(t *testing.T) {
		dir := t.TempDir()
		cfgPath := writeTestConfig(t, dir, "")
		dataDir := filepath.Join(dir, "data")
		if _, stderr, err := executeRoot(t, "harvest", "--config", cfgPath, "-d", dataDir, "-f", "json", "com.example.app"); err != nil {
			t.Fatalf("harvest failed: %v\n%s", err, stderr)
		}

		stdout, _, err := executeRoot(t, "stats", "--config", cfgPath, "-d", dataDir, "-f", "json")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var rep struct {
			Datasets []struct {
				Dataset struct {
					TargetID string `json:"targetId"`
				} `json:"dataset"`
				Reviews    int            `json:"reviews"`
				ByLanguage map[string]int `json:"byLanguage"`
			} `json:"datasets"`
		}
		if err := json.Unmarshal([]byte(stdout), &rep); err != nil {
			t.Fatalf("invalid output: %v", err)
		}
		if len(rep.Datasets) != 2 {
			t.Fatalf("expected 2 datasets, got %d", len(rep.Datasets))
		}
		for _, ds := range rep.Datasets {
			if ds.Reviews != 10 || ds.ByLanguage["en"] != 10 {
				t.Errorf("unexpected dataset stats %+v", ds)
			}
		}

		text, _, err := executeRoot(t, "stats", "--config", cfgPath, "-d", dataDir, "-f", "text")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(text, "TOTAL: 20 reviews in 2 datasets") {
			t.Errorf("expected total line, got %q", text)
		}
	})
}

package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nao1215/reviewharvest/internal/config"
	"github.com/nao1215/reviewharvest/internal/model"
)

// writeTestConfig writes a config harvesting two mock pages of five reviews
// per partition without pauses.
func writeTestConfig(t *testing.T, dir, extra string) string {
	t.Helper()
	content := `levels: [1, 2]
harvest:
  empty_streak_limit: 1
  empty_pause: 0s
  error_cooldown: 0s
source:
  mode: mock
  mock_pages: 2
  mock_page_size: 5
identity:
  mode: direct
` + extra
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

// executeRoot runs the root command with args and returns stdout and stderr.
func executeRoot(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

type runReport struct {
	Persisted int            `json:"persisted"`
	Outcomes  map[string]int `json:"outcomes"`
	Summary   struct {
		Interrupted bool `json:"interrupted"`
		Targets     []struct {
			ID string `json:"id"`
		} `json:"targets"`
		Results []struct {
			Outcome   string `json:"outcome"`
			Persisted int    `json:"persisted"`
		} `json:"results"`
	} `json:"summary"`
}

// TestNewHarvestCmd tests the harvest command creation.
func TestNewHarvestCmd(t *testing.T) {
	t.Parallel()

	cmd := NewHarvestCmd()
	tests := []struct {
		name      string
		shorthand string
		defValue  string
	}{
		{"targets", "t", ""},
		{"catalog", "l", ""},
		{"data-dir", "d", ""},
		{"output", "o", ""},
		{"format", "f", config.ReportMarkdown},
		{"concurrency", "n", "1"},
		{"identity", "", config.IdentityModeDirect},
		{"rotate-per", "", config.RotatePerLevel},
		{"abandon-policy", "", config.AbandonDiscard},
		{"mock", "", "false"},
		{"translate", "", "false"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			flag := cmd.Flags().Lookup(tt.name)
			if flag == nil {
				t.Fatalf("expected %s flag", tt.name)
			}
			if flag.Shorthand != tt.shorthand {
				t.Errorf("expected shorthand %q, got %q", tt.shorthand, flag.Shorthand)
			}
			if flag.DefValue != tt.defValue {
				t.Errorf("expected default %q, got %q", tt.defValue, flag.DefValue)
			}
		})
	}
}

// TestRunHarvestCmd runs whole harvests against the mock source.
func TestRunHarvestCmd(t *testing.T) {
	t.Run("harvests every level into its own dataset", func(t *testing.T) {
		dir := t.TempDir()
		cfgPath := writeTestConfig(t, dir, "")
		dataDir := filepath.Join(dir, "data")
		reportPath := filepath.Join(dir, "report.json")

		_, stderr, err := executeRoot(t, "harvest", "--config", cfgPath,
			"-d", dataDir, "-o", reportPath, "-f", "json", "com.example.app")
		if err != nil {
			t.Fatalf("unexpected error: %v\n%s", err, stderr)
		}

		data, err := os.ReadFile(reportPath)
		if err != nil {
			t.Fatalf("failed to read report: %v", err)
		}
		var rep runReport
		if err := json.Unmarshal(data, &rep); err != nil {
			t.Fatalf("invalid report: %v", err)
		}
		if rep.Persisted != 20 {
			t.Errorf("expected 20 persisted reviews, got %d", rep.Persisted)
		}
		if len(rep.Summary.Results) != 2 || rep.Outcomes["exhausted"] != 2 {
			t.Errorf("expected 2 exhausted partitions, got %+v", rep.Outcomes)
		}
		if rep.Summary.Interrupted {
			t.Error("expected run not to be interrupted")
		}

		for _, name := range []string{"com.example.app-1.db", "com.example.app-2.db"} {
			if _, err := os.Stat(filepath.Join(dataDir, name)); err != nil {
				t.Errorf("expected dataset %s: %v", name, err)
			}
		}
	})

	t.Run("second run persists nothing new", func(t *testing.T) {
		dir := t.TempDir()
		cfgPath := writeTestConfig(t, dir, "")
		dataDir := filepath.Join(dir, "data")

		for i, want := range []int{20, 0} {
			stdout, stderr, err := executeRoot(t, "harvest", "--config", cfgPath,
				"-d", dataDir, "-f", "json", "com.example.app")
			if err != nil {
				t.Fatalf("run %d: unexpected error: %v\n%s", i+1, err, stderr)
			}
			var rep runReport
			if err := json.Unmarshal([]byte(stdout), &rep); err != nil {
				t.Fatalf("run %d: invalid report: %v", i+1, err)
			}
			if rep.Persisted != want {
				t.Errorf("run %d: expected %d persisted, got %d", i+1, want, rep.Persisted)
			}
		}
	})

	t.Run("reads targets and catalog files", func(t *testing.T) {
		dir := t.TempDir()
		targets := filepath.Join(dir, "links.txt")
		content := "# targets\nhttps://play.google.com/store/apps/details?id=com.example.one\n\ncom.example.two\n"
		if err := os.WriteFile(targets, []byte(content), 0600); err != nil {
			t.Fatal(err)
		}
		catalog := filepath.Join(dir, "languages.yaml")
		if err := os.WriteFile(catalog, []byte("languages:\n  - {lang: en, country: us}\n  - {lang: en, country: gb}\n"), 0600); err != nil {
			t.Fatal(err)
		}
		cfgPath := writeTestConfig(t, dir, "")

		stdout, stderr, err := executeRoot(t, "harvest", "--config", cfgPath,
			"-d", filepath.Join(dir, "data"), "-f", "json",
			"-t", targets, "-l", catalog, "--levels", "5", "-n", "2")
		if err != nil {
			t.Fatalf("unexpected error: %v\n%s", err, stderr)
		}
		var rep runReport
		if err := json.Unmarshal([]byte(stdout), &rep); err != nil {
			t.Fatalf("invalid report: %v", err)
		}
		if len(rep.Summary.Targets) != 2 || rep.Summary.Targets[0].ID != "com.example.one" {
			t.Fatalf("unexpected targets %+v", rep.Summary.Targets)
		}
		// en/gb repeats the reviews of en/us
		if len(rep.Summary.Results) != 4 || rep.Persisted != 20 {
			t.Errorf("expected 4 partitions and 20 reviews, got %d and %d", len(rep.Summary.Results), rep.Persisted)
		}
		if rep.Summary.Results[1].Persisted != 0 {
			t.Errorf("expected duplicates to be skipped, got %+v", rep.Summary.Results[1])
		}
	})

	t.Run("markdown report", func(t *testing.T) {
		dir := t.TempDir()
		stdout, stderr, err := executeRoot(t, "harvest", "--config", writeTestConfig(t, dir, ""),
			"-d", filepath.Join(dir, "data"), "--levels", "3", "com.example.app")
		if err != nil {
			t.Fatalf("unexpected error: %v\n%s", err, stderr)
		}
		for _, want := range []string{"# Review Harvest Report", "Mock App com.example.app", "pie showData"} {
			if !strings.Contains(stdout, want) {
				t.Errorf("expected report to contain %q", want)
			}
		}
	})

	t.Run("invalid configuration", func(t *testing.T) {
		dir := t.TempDir()
		cfgPath := writeTestConfig(t, dir, "")

		tests := []struct {
			name string
			args []string
			want error
		}{
			{"bad level", []string{"--levels", "6"}, model.ErrInvalidSeverityLevel},
			{"bad rotate scope", []string{"--rotate-per", "hour"}, config.ErrInvalidRotateScope},
			{"run scope with workers", []string{"--rotate-per", "run", "-n", "2"}, config.ErrRunScopeConcurrency},
			{"bad abandon policy", []string{"--abandon-policy", "keep"}, config.ErrInvalidAbandonPolicy},
			{"socks without proxies", []string{"--identity", "socks"}, config.ErrNoProxies},
			{"bad format", []string{"-f", "xml"}, config.ErrInvalidReportFormat},
			{"translation without key", []string{"--translate"}, config.ErrNoTranslationKey},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				t.Setenv("OPENAI_API_KEY", "")
				args := append([]string{"harvest", "--config", cfgPath, "-d", filepath.Join(dir, "data")}, tt.args...)
				_, _, err := executeRoot(t, append(args, "com.example.app")...)
				if !errors.Is(err, tt.want) {
					t.Errorf("expected %v, got %v", tt.want, err)
				}
			})
		}
	})

	t.Run("missing targets file", func(t *testing.T) {
		dir := t.TempDir()
		_, _, err := executeRoot(t, "harvest", "--config", writeTestConfig(t, dir, ""),
			"-d", filepath.Join(dir, "data"), "-t", filepath.Join(dir, "missing.txt"))
		if err == nil || !strings.Contains(err.Error(), "failed to read targets") {
			t.Errorf("expected targets error, got %v", err)
		}
	})

	t.Run("missing config file", func(t *testing.T) {
		_, _, err := executeRoot(t, "harvest", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
		if !errors.Is(err, config.ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got %v", err)
		}
	})
}

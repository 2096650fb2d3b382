package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

// TestNewRootCmd tests the root command creation.
func TestNewRootCmd(t *testing.T) {
	t.Parallel()

	cmd := NewRootCmd()

	t.Run("has correct use", func(t *testing.T) {
		t.Parallel()
		if cmd.Use != "reviewharvest" {
			t.Errorf("expected use 'reviewharvest', got %q", cmd.Use)
		}
	})

	t.Run("has descriptions and version", func(t *testing.T) {
		t.Parallel()
		if cmd.Short == "" || cmd.Long == "" {
			t.Error("expected non-empty descriptions")
		}
		if cmd.Version == "" {
			t.Error("expected non-empty version")
		}
	})

	t.Run("has global flags", func(t *testing.T) {
		t.Parallel()
		tests := []struct {
			name      string
			shorthand string
			defValue  string
		}{
			{"verbose", "v", "false"},
			{"config", "c", ""},
			{"env-file", "", ""},
		}
		for _, tt := range tests {
			flag := cmd.PersistentFlags().Lookup(tt.name)
			if flag == nil {
				t.Errorf("expected %s flag", tt.name)
				continue
			}
			if flag.Shorthand != tt.shorthand || flag.DefValue != tt.defValue {
				t.Errorf("unexpected %s flag: shorthand %q, default %q", tt.name, flag.Shorthand, flag.DefValue)
			}
		}
	})

	t.Run("has subcommands", func(t *testing.T) {
		t.Parallel()
		want := map[string]bool{
			"harvest [app-id...]": false,
			"translate":           false,
			"stats":               false,
			"init":                false,
			"version":             false,
		}
		for _, sub := range cmd.Commands() {
			if _, ok := want[sub.Use]; ok {
				want[sub.Use] = true
			}
		}
		for use, found := range want {
			if !found {
				t.Errorf("expected %q subcommand", use)
			}
		}
	})

	t.Run("silences usage and errors", func(t *testing.T) {
		t.Parallel()
		if !cmd.SilenceUsage {
			t.Error("expected SilenceUsage to be true")
		}
		if !cmd.SilenceErrors {
			t.Error("expected SilenceErrors to be true")
		}
	})
}

// TestLoadEnvFile tests loading of .env files.
func TestLoadEnvFile(t *testing.T) {
	t.Run("loads variables without overriding", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "test.env")
		content := "REVIEWHARVEST_TEST_NEW=from-file\nREVIEWHARVEST_TEST_SET=from-file\n"
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatalf("failed to write env file: %v", err)
		}
		t.Setenv("REVIEWHARVEST_TEST_SET", "from-env")
		t.Setenv("REVIEWHARVEST_TEST_NEW", "")
		if err := os.Unsetenv("REVIEWHARVEST_TEST_NEW"); err != nil {
			t.Fatal(err)
		}

		if err := loadEnvFile(path); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := os.Getenv("REVIEWHARVEST_TEST_NEW"); got != "from-file" {
			t.Errorf("expected from-file, got %q", got)
		}
		if got := os.Getenv("REVIEWHARVEST_TEST_SET"); got != "from-env" {
			t.Errorf("expected from-env, got %q", got)
		}
	})

	t.Run("missing explicit file fails", func(t *testing.T) {
		if err := loadEnvFile(filepath.Join(t.TempDir(), "missing.env")); err == nil {
			t.Error("expected error for missing env file")
		}
	})

	t.Run("missing default file is ignored", func(t *testing.T) {
		t.Chdir(t.TempDir())
		if err := loadEnvFile(""); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

// TestRootCmdEnvFileFlag tests that --env-file is applied before commands run.
func TestRootCmdEnvFileFlag(t *testing.T) {
	var stdout bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetArgs([]string{"--env-file", filepath.Join(t.TempDir(), "missing.env"), "version"})

	if err := cmd.Execute(); err == nil {
		t.Error("expected error for missing env file")
	}
}

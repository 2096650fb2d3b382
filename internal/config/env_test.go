package config

import (
	"errors"
	"testing"
	"time"
)

// Tests in this file use t.Setenv and therefore cannot run in parallel.

func TestApplyEnv(t *testing.T) {
	t.Run("set variables override config", func(t *testing.T) {
		t.Setenv("REVIEWHARVEST_HARVEST_FLUSH_THRESHOLD", "250")
		t.Setenv("REVIEWHARVEST_HARVEST_EMPTY_PAUSE", "2s")
		t.Setenv("REVIEWHARVEST_IDENTITY_ROTATE_PER", "partition")
		t.Setenv("REVIEWHARVEST_LEVELS", "1,3")
		t.Setenv("REVIEWHARVEST_IDENTITY_PROXIES", "127.0.0.1:9050, 127.0.0.1:9052")

		cfg := NewConfig()
		if err := ApplyEnv(cfg); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Harvest.FlushThreshold != 250 {
			t.Errorf("expected 250, got %d", cfg.Harvest.FlushThreshold)
		}
		if cfg.Harvest.EmptyPause != 2*time.Second {
			t.Errorf("expected 2s, got %v", cfg.Harvest.EmptyPause)
		}
		if cfg.Identity.RotatePer != RotatePerPartition {
			t.Errorf("expected partition, got %s", cfg.Identity.RotatePer)
		}
		if len(cfg.Levels) != 2 || cfg.Levels[1] != 3 {
			t.Errorf("unexpected levels %v", cfg.Levels)
		}
		if len(cfg.Identity.Proxies) != 2 {
			t.Errorf("unexpected proxies %v", cfg.Identity.Proxies)
		}
	})

	t.Run("unset variables keep values", func(t *testing.T) {
		cfg := NewConfig()
		cfg.Harvest.EmptyStreakLimit = 3
		if err := ApplyEnv(cfg); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Harvest.EmptyStreakLimit != 3 {
			t.Errorf("expected 3, got %d", cfg.Harvest.EmptyStreakLimit)
		}
	})

	t.Run("OPENAI_API_KEY fills translation key", func(t *testing.T) {
		t.Setenv("OPENAI_API_KEY", "sk-test")
		cfg := NewConfig()
		if err := ApplyEnv(cfg); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Translation.APIKey != "sk-test" {
			t.Errorf("expected key from OPENAI_API_KEY, got %q", cfg.Translation.APIKey)
		}
	})

	t.Run("malformed integer is rejected", func(t *testing.T) {
		t.Setenv("REVIEWHARVEST_CONCURRENCY", "many")
		err := ApplyEnv(NewConfig())
		if err == nil {
			t.Fatal("expected error for malformed integer")
		}
		if errors.Is(err, ErrConfigNotFound) {
			t.Errorf("unexpected error kind %v", err)
		}
	})
}

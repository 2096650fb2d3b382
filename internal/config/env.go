package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by ApplyEnv.
// Nested keys use underscores: harvest.flush_threshold is read from
// REVIEWHARVEST_HARVEST_FLUSH_THRESHOLD.
const EnvPrefix = "REVIEWHARVEST"

// envBinding maps one configuration key to the fields it overrides.
type envBinding struct {
	key   string
	alias []string
	apply func(v *viper.Viper, key string) error
}

// ApplyEnv overlays environment variables on cfg. Only variables that are
// actually set override the current value.
func ApplyEnv(cfg *Config) error {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	for _, b := range envBindings(cfg) {
		names := []string{b.key}
		if len(b.alias) > 0 {
			names = append(names, envName(b.key))
			names = append(names, b.alias...)
		}
		if err := v.BindEnv(names...); err != nil {
			return fmt.Errorf("failed to bind %s: %w", b.key, err)
		}
		if !v.IsSet(b.key) {
			continue
		}
		if err := b.apply(v, b.key); err != nil {
			return fmt.Errorf("invalid environment value for %s: %w", envName(b.key), err)
		}
	}
	return nil
}

// envName returns the prefixed variable name for key.
func envName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

func envBindings(cfg *Config) []envBinding {
	str := func(dst *string) func(*viper.Viper, string) error {
		return func(v *viper.Viper, k string) error {
			*dst = v.GetString(k)
			return nil
		}
	}
	integer := func(dst *int) func(*viper.Viper, string) error {
		return func(v *viper.Viper, k string) error {
			n, err := strconv.Atoi(strings.TrimSpace(v.GetString(k)))
			if err != nil {
				return err
			}
			*dst = n
			return nil
		}
	}

	return []envBinding{
		{key: "targets_file", apply: str(&cfg.TargetsFile)},
		{key: "catalog_file", apply: str(&cfg.CatalogFile)},
		{key: "data_dir", apply: str(&cfg.DataDir)},
		{key: "report_file", apply: str(&cfg.ReportFile)},
		{key: "report_format", apply: str(&cfg.ReportFormat)},
		{key: "log_file", apply: str(&cfg.LogFile)},
		{key: "concurrency", apply: integer(&cfg.Concurrency)},
		{key: "levels", apply: func(v *viper.Viper, k string) error {
			levels, err := parseLevels(v.GetString(k))
			if err != nil {
				return err
			}
			cfg.Levels = levels
			return nil
		}},
		{key: "harvest.page_size", apply: integer(&cfg.Harvest.PageSize)},
		{key: "harvest.flush_threshold", apply: integer(&cfg.Harvest.FlushThreshold)},
		{key: "harvest.empty_streak_limit", apply: integer(&cfg.Harvest.EmptyStreakLimit)},
		{key: "harvest.empty_pause", apply: func(v *viper.Viper, k string) error {
			cfg.Harvest.EmptyPause = v.GetDuration(k)
			return nil
		}},
		{key: "harvest.error_cooldown", apply: func(v *viper.Viper, k string) error {
			cfg.Harvest.ErrorCooldown = v.GetDuration(k)
			return nil
		}},
		{key: "harvest.abandon_policy", apply: str(&cfg.Harvest.AbandonPolicy)},
		{key: "source.mode", apply: str(&cfg.Source.Mode)},
		{key: "source.base_url", apply: str(&cfg.Source.BaseURL)},
		{key: "source.user_agent", apply: str(&cfg.Source.UserAgent)},
		{key: "source.requests_per_second", apply: func(v *viper.Viper, k string) error {
			cfg.Source.RequestsPerSecond = v.GetFloat64(k)
			return nil
		}},
		{key: "identity.mode", apply: str(&cfg.Identity.Mode)},
		{key: "identity.rotate_per", apply: str(&cfg.Identity.RotatePer)},
		{key: "identity.proxies", apply: func(v *viper.Viper, k string) error {
			cfg.Identity.Proxies = splitList(v.GetString(k))
			return nil
		}},
		{key: "translation.enabled", apply: func(v *viper.Viper, k string) error {
			cfg.Translation.Enabled = v.GetBool(k)
			return nil
		}},
		{key: "translation.base_url", apply: str(&cfg.Translation.BaseURL)},
		{key: "translation.model", apply: str(&cfg.Translation.Model)},
		{key: "translation.target_language", apply: str(&cfg.Translation.TargetLanguage)},
		{key: "translation.api_key", alias: []string{"OPENAI_API_KEY"}, apply: str(&cfg.Translation.APIKey)},
	}
}

// parseLevels parses a comma separated list such as "1,2,5".
func parseLevels(s string) ([]int, error) {
	parts := splitList(s)
	levels := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, err
		}
		levels = append(levels, n)
	}
	return levels, nil
}

// splitList splits on commas and whitespace, dropping empty items.
func splitList(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
}

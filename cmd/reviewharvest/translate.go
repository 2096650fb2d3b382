package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/nao1215/reviewharvest/internal/config"
	"github.com/nao1215/reviewharvest/internal/database"
	"github.com/nao1215/reviewharvest/internal/enrich"
	"github.com/nao1215/reviewharvest/internal/model"
	"github.com/nao1215/reviewharvest/internal/translate"
)

// NewTranslateCmd creates the translate command.
func NewTranslateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "translate",
		Short: "Translate harvested datasets",
		Long: `Translate runs the translation pass over datasets that are already on disk.

Only reviews without a translation into the target language are sent to the
provider, so an interrupted pass resumes where it stopped. Reviews already
written in the target language are copied unchanged. A review whose
translation fails keeps its original text and is not retried.

The provider API key is read from OPENAI_API_KEY or REVIEWHARVEST_TRANSLATION_API_KEY.

Examples:
  # Translate every dataset into the configured language
  reviewharvest translate

  # Translate the low score datasets of one application into German
  reviewharvest translate --target com.example.app --level 1 --level 2 --language de`,
		Args: cobra.NoArgs,
		RunE: runTranslateCmd,
	}

	cmd.Flags().StringP("data-dir", "d", "",
		"Dataset directory (default: $XDG_DATA_HOME/reviewharvest)")
	cmd.Flags().StringSlice("target", nil,
		"Only translate datasets of these application ids")
	cmd.Flags().IntSlice("level", nil,
		"Only translate datasets of these severity levels")
	cmd.Flags().String("language", "",
		"Target language (default: "+config.DefaultTranslationLanguage+")")
	cmd.Flags().String("model", "",
		"Chat model used for translation")
	cmd.Flags().String("base-url", "",
		"Base URL of an OpenAI compatible API")

	return cmd
}

// runTranslateCmd executes the translate command.
func runTranslateCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := applyTranslateFlags(cmd, cfg); err != nil {
		return err
	}
	cfg.Translation.Enabled = true
	if cfg.Translation.Provider == config.TranslationNone {
		cfg.Translation.Provider = config.TranslationOpenAI
	}

	logger, closeLog, err := setupLogger(cmd, cfg)
	if err != nil {
		return err
	}
	defer closeLog() //nolint:errcheck // Best effort on exit

	translator, err := translate.New(cfg.Translation)
	if err != nil {
		return fmt.Errorf("translation unavailable: %w", err)
	}

	store, err := database.Open(cfg.DataDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open dataset store: %w", err)
	}
	defer store.Close()

	keys, err := selectDatasets(cmd, store)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No dataset to translate.")
		return nil
	}

	ctx, cancel := signalContext(cmd.Context(), logger)
	defer cancel()

	enricher := enrich.New(store, translator, cfg.Translation.TargetLanguage,
		enrich.WithProgressEvery(cfg.Translation.ProgressEvery),
		enrich.WithLogger(logger),
	)
	return translateDatasets(ctx, cmd.OutOrStdout(), enricher, keys, logger)
}

// applyTranslateFlags overrides cfg with the flags set on the command line.
func applyTranslateFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	for name, dst := range map[string]*string{
		"data-dir": &cfg.DataDir,
		"language": &cfg.Translation.TargetLanguage,
		"model":    &cfg.Translation.Model,
		"base-url": &cfg.Translation.BaseURL,
	} {
		if !flags.Changed(name) {
			continue
		}
		v, err := flags.GetString(name)
		if err != nil {
			return err
		}
		*dst = v
	}
	return nil
}

// selectDatasets returns the datasets of the store matching --target and
// --level.
func selectDatasets(cmd *cobra.Command, store *database.DatasetStore) ([]model.DatasetKey, error) {
	targets, err := cmd.Flags().GetStringSlice("target")
	if err != nil {
		return nil, err
	}
	levels, err := cmd.Flags().GetIntSlice("level")
	if err != nil {
		return nil, err
	}
	for _, n := range levels {
		if _, err := model.ParseSeverityLevel(n); err != nil {
			return nil, err
		}
	}

	keys, err := store.Datasets()
	if err != nil {
		return nil, err
	}
	return slices.DeleteFunc(keys, func(k model.DatasetKey) bool {
		if len(targets) > 0 && !slices.Contains(targets, k.TargetID) {
			return true
		}
		return len(levels) > 0 && !slices.Contains(levels, int(k.Level))
	}), nil
}

// translateDatasets runs the pass over keys and prints one line per
// dataset. It stops at the first failure.
func translateDatasets(ctx context.Context, out io.Writer, enricher *enrich.Enricher, keys []model.DatasetKey, logger *slog.Logger) error {
	var total enrich.Stats
	for i, key := range keys {
		logger.Info("translating dataset", "dataset", key.String(), "index", i+1, "total", len(keys))
		stats, err := enricher.Run(ctx, key)
		total.Translated += stats.Translated
		total.Copied += stats.Copied
		total.Failed += stats.Failed
		if err != nil {
			if ctx.Err() != nil {
				fmt.Fprintf(out, "Interrupted: %d reviews processed before shutdown\n", total.Total())
				return nil
			}
			return err
		}
		fmt.Fprintf(out, "%s: %d translated, %d copied, %d failed\n",
			key, stats.Translated, stats.Copied, stats.Failed)
	}
	fmt.Fprintf(out, "TOTAL: %d translated, %d copied, %d failed in %d datasets\n",
		total.Translated, total.Copied, total.Failed, len(keys))
	return nil
}

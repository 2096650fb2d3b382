package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/nao1215/reviewharvest/internal/config"
	"github.com/nao1215/reviewharvest/internal/database"
	"github.com/nao1215/reviewharvest/internal/enrich"
	"github.com/nao1215/reviewharvest/internal/harvest"
	"github.com/nao1215/reviewharvest/internal/identity"
	rlog "github.com/nao1215/reviewharvest/internal/log"
	"github.com/nao1215/reviewharvest/internal/model"
	"github.com/nao1215/reviewharvest/internal/report"
	"github.com/nao1215/reviewharvest/internal/source"
	"github.com/nao1215/reviewharvest/internal/translate"
)

// NewHarvestCmd creates the harvest command.
func NewHarvestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "harvest [app-id...]",
		Short: "Harvest reviews of the target applications",
		Long: `Harvest crawls every target application one severity level at a time,
and every level across the language/region catalog.

Each (level, language, country) partition is paged until it runs dry or
its buffer reaches the flush threshold; the buffered reviews are then
merged into the dataset of the application and level, skipping reviews
that are already stored. A failed request abandons only its partition.

Targets are read from the arguments or, when none are given, from the
targets file (one application id or store URL per line).

Examples:
  # Harvest the targets listed in links.txt
  reviewharvest harvest

  # Harvest two applications, low scores only, across a catalog
  reviewharvest harvest --levels 1,2 --catalog languages.yaml com.example.app com.example.other

  # Rotate through Tor circuits, one per severity level
  reviewharvest harvest --identity tor --rotate-per level

  # Dry run against synthetic data
  reviewharvest harvest --mock com.example.app`,
		Args: cobra.ArbitraryArgs,
		RunE: runHarvestCmd,
	}

	// Input flags
	cmd.Flags().StringP("targets", "t", "",
		"Target list file (default: "+config.DefaultTargetsFile+")")
	cmd.Flags().StringP("catalog", "l", "",
		"Language/region catalog file (default: en/us only)")
	cmd.Flags().IntSlice("levels", nil,
		"Severity levels to harvest, e.g. 1,2,3 (default: 1-5)")

	// Harvest behavior flags
	cmd.Flags().IntP("concurrency", "n", config.DefaultConcurrency,
		"Number of targets harvested in parallel")
	cmd.Flags().String("abandon-policy", config.AbandonDiscard,
		"What to do with reviews buffered by a failed partition: discard or flush")

	// Source flags
	cmd.Flags().String("source-url", "",
		"Base URL of the review gateway")
	cmd.Flags().Bool("mock", false,
		"Use the synthetic mock source instead of the gateway")

	// Identity flags
	cmd.Flags().String("identity", config.IdentityModeDirect,
		"Network identity: tor, socks, command or direct")
	cmd.Flags().String("rotate-per", config.RotatePerLevel,
		"How long one identity is used: level, partition or run")
	cmd.Flags().StringSlice("proxy", nil,
		"SOCKS5 proxy for --identity socks (repeatable)")

	// Output flags
	cmd.Flags().StringP("data-dir", "d", "",
		"Dataset directory (default: $XDG_DATA_HOME/reviewharvest)")
	cmd.Flags().StringP("output", "o", "",
		"Write the run report to this file instead of stdout")
	cmd.Flags().StringP("format", "f", config.ReportMarkdown,
		"Report format: markdown, json or text")
	cmd.Flags().String("log-file", "",
		"Append an INFO level log to this file")
	cmd.Flags().Bool("translate", false,
		"Translate each dataset after its severity level completes")

	return cmd
}

// runHarvestCmd executes the harvest command.
func runHarvestCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := applyHarvestFlags(cmd, cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger, closeLog, err := setupLogger(cmd, cfg)
	if err != nil {
		return err
	}
	defer closeLog() //nolint:errcheck // Best effort on exit

	ctx, cancel := signalContext(cmd.Context(), logger)
	defer cancel()

	if err := runHarvest(ctx, cmd, cfg, args, logger); err != nil {
		logger.Error("harvest failed", "error", err)
		return err
	}
	return nil
}

// applyHarvestFlags overrides cfg with the flags set on the command line.
func applyHarvestFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	var err error

	setString := func(name string, dst *string) {
		if err == nil && flags.Changed(name) {
			*dst, err = flags.GetString(name)
		}
	}
	setString("targets", &cfg.TargetsFile)
	setString("catalog", &cfg.CatalogFile)
	setString("abandon-policy", &cfg.Harvest.AbandonPolicy)
	setString("source-url", &cfg.Source.BaseURL)
	setString("identity", &cfg.Identity.Mode)
	setString("rotate-per", &cfg.Identity.RotatePer)
	setString("data-dir", &cfg.DataDir)
	setString("output", &cfg.ReportFile)
	setString("format", &cfg.ReportFormat)
	setString("log-file", &cfg.LogFile)
	if err != nil {
		return err
	}

	if flags.Changed("levels") {
		if cfg.Levels, err = flags.GetIntSlice("levels"); err != nil {
			return err
		}
	}
	if flags.Changed("concurrency") {
		if cfg.Concurrency, err = flags.GetInt("concurrency"); err != nil {
			return err
		}
	}
	if flags.Changed("proxy") {
		if cfg.Identity.Proxies, err = flags.GetStringSlice("proxy"); err != nil {
			return err
		}
	}

	mock, err := flags.GetBool("mock")
	if err != nil {
		return err
	}
	if mock {
		cfg.Source.Mode = config.SourceModeMock
	}

	translateFlag, err := flags.GetBool("translate")
	if err != nil {
		return err
	}
	if translateFlag {
		cfg.Translation.Enabled = true
	}
	return nil
}

// runHarvest wires the components of a run and writes its report.
func runHarvest(ctx context.Context, cmd *cobra.Command, cfg *config.Config, args []string, logger *slog.Logger) error {
	ids, err := resolveTargets(cfg, args)
	if err != nil {
		return err
	}
	catalog, err := loadCatalog(cfg)
	if err != nil {
		return err
	}

	store, err := database.Open(cfg.DataDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open dataset store: %w", err)
	}
	defer store.Close()

	orchestrator, err := newOrchestrator(cfg, store, catalog, logger)
	if err != nil {
		return err
	}

	rlog.RunStarted(logger,
		"targets", len(ids),
		"levels", cfg.Levels,
		"locales", len(catalog),
		"identity", cfg.Identity.Mode,
		"rotate_per", cfg.Identity.RotatePer,
		"data_dir", cfg.DataDir,
	)
	summary, runErr := orchestrator.Run(ctx, ids)
	if summary != nil {
		rlog.RunFinished(logger,
			"persisted", summary.TotalPersisted(),
			"discarded", summary.TotalDiscarded(),
			"interrupted", summary.Interrupted,
			"elapsed", summary.Duration().String(),
		)
		if err := writeRunReport(cmd, cfg, summary); err != nil {
			return errors.Join(runErr, err)
		}
	}
	return runErr
}

// newOrchestrator builds the orchestrator and everything it depends on.
func newOrchestrator(cfg *config.Config, store *database.DatasetStore, catalog []model.Locale, logger *slog.Logger) (*harvest.Orchestrator, error) {
	factory, err := source.NewFactory(cfg.Source, logger)
	if err != nil {
		return nil, err
	}
	rotator, err := identity.New(cfg.Identity,
		identity.WithTimeout(cfg.Source.Timeout),
		identity.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	merger := harvest.NewMerger(store, cfg.Harvest.MergeAttempts, logger)
	bind := harvest.NewBinder(factory, merger, harvest.NewLimits(cfg.Harvest),
		harvest.WithPolicy(harvest.NewBackoffPolicy(cfg.Harvest)),
		harvest.WithControllerLogger(logger),
	)

	opts := []harvest.OrchestratorOption{
		harvest.WithConcurrency(cfg.Concurrency),
		harvest.WithRotatePer(cfg.Identity.RotatePer),
		harvest.WithOrchestratorLogger(logger),
	}

	enricher, err := newEnricher(cfg, store, logger)
	if err != nil {
		return nil, err
	}
	if enricher != nil {
		opts = append(opts, harvest.WithEnricher(enricher))
	}

	return harvest.NewOrchestrator(rotator, bind, catalog, cfg.SeverityLevels(), opts...)
}

// newEnricher returns the translation pass, or nil when translation is
// disabled.
func newEnricher(cfg *config.Config, store enrich.Store, logger *slog.Logger) (*enrich.Enricher, error) {
	translator, err := translate.New(cfg.Translation)
	if errors.Is(err, translate.ErrDisabled) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return enrich.New(store, translator, cfg.Translation.TargetLanguage,
		enrich.WithProgressEvery(cfg.Translation.ProgressEvery),
		enrich.WithLogger(logger),
	), nil
}

// resolveTargets returns the ids given as arguments or read from the
// targets file.
func resolveTargets(cfg *config.Config, args []string) ([]string, error) {
	if len(args) == 0 {
		ids, err := source.LoadTargets(cfg.TargetsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read targets: %w", err)
		}
		return ids, nil
	}

	ids := make([]string, 0, len(args))
	for _, arg := range args {
		id, ok := source.ParseTargetID(arg)
		if !ok {
			continue
		}
		if err := model.ValidateTargetID(id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// loadCatalog returns the configured catalog or the built-in default.
func loadCatalog(cfg *config.Config) ([]model.Locale, error) {
	if cfg.CatalogFile == "" {
		return config.DefaultCatalog(), nil
	}
	return config.LoadCatalog(cfg.CatalogFile)
}

// writeRunReport writes summary in the configured format.
func writeRunReport(cmd *cobra.Command, cfg *config.Config, summary *model.RunSummary) error {
	out, closeOut, err := openOutput(cmd, cfg.ReportFile)
	if err != nil {
		return err
	}
	defer closeOut() //nolint:errcheck // Closing after a successful write

	return writeReport(out, cfg.ReportFormat, func(w report.Writer) error {
		_, err := w.WriteRun(summary)
		return err
	})
}

// writeReport renders with the writer for format.
func writeReport(out io.Writer, format string, render func(report.Writer) error) error {
	w, err := report.New(format, out, getVersion())
	if err != nil {
		return err
	}
	if err := render(w); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

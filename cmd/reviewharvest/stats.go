package main

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/cobra"

	"github.com/nao1215/reviewharvest/internal/config"
	"github.com/nao1215/reviewharvest/internal/database"
	"github.com/nao1215/reviewharvest/internal/report"
)

// NewStatsCmd creates the stats command.
func NewStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show statistics of the harvested datasets",
		Long: `Stats prints the number of reviews in every dataset of the data directory,
broken down by review language, together with translation progress.

Examples:
  # Show statistics as Markdown
  reviewharvest stats

  # Machine readable output
  reviewharvest stats --format json --data-dir ./data`,
		Args: cobra.NoArgs,
		RunE: runStatsCmd,
	}

	cmd.Flags().StringP("data-dir", "d", "",
		"Dataset directory (default: $XDG_DATA_HOME/reviewharvest)")
	cmd.Flags().StringP("format", "f", config.ReportMarkdown,
		"Output format: markdown, json or text")
	cmd.Flags().StringP("output", "o", "",
		"Write statistics to this file instead of stdout")

	return cmd
}

// runStatsCmd executes the stats command.
func runStatsCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	for name, dst := range map[string]*string{
		"data-dir": &cfg.DataDir,
		"format":   &cfg.ReportFormat,
		"output":   &cfg.ReportFile,
	} {
		if !cmd.Flags().Changed(name) {
			continue
		}
		if *dst, err = cmd.Flags().GetString(name); err != nil {
			return err
		}
	}

	stats, err := collectStats(cmd, cfg.DataDir)
	if err != nil {
		return err
	}

	out, closeOut, err := openOutput(cmd, cfg.ReportFile)
	if err != nil {
		return err
	}
	defer closeOut() //nolint:errcheck // Closing after a successful write

	return writeReport(out, cfg.ReportFormat, func(w report.Writer) error {
		_, err := w.WriteStats(stats)
		return err
	})
}

// collectStats reads the statistics of every dataset in dir. A missing
// directory has no datasets.
func collectStats(cmd *cobra.Command, dir string) ([]database.DatasetStats, error) {
	store, err := database.Open(dir, database.ReadOnlyOptions())
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer store.Close()

	stats, err := store.Stats(cmd.Context())
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset statistics: %w", err)
	}
	return stats, nil
}

package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// defaultEnvFile is loaded from the current directory when present.
const defaultEnvFile = ".env"

// NewRootCmd creates the root command for reviewharvest.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reviewharvest",
		Short: "Harvest and deduplicate app store reviews",
		Long: `reviewharvest collects user reviews of store applications.

Every application is crawled one severity level (review score) at a time,
and every level across a catalog of languages and countries. Reviews are
merged into one deduplicated SQLite dataset per application and level, and
can be translated into a single language once a level is complete.

Crawls can rotate their network identity between levels through an
embedded Tor daemon, a SOCKS5 proxy pool or external VPN commands.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			path, err := cmd.Flags().GetString("env-file")
			if err != nil {
				return err
			}
			return loadEnvFile(path)
		},
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: .reviewharvest.yaml in current, XDG config or home directory)")
	cmd.PersistentFlags().String("env-file", "",
		"Load environment variables from this file (default: .env in the current directory, if present)")

	// Add subcommands
	cmd.AddCommand(NewHarvestCmd())
	cmd.AddCommand(NewTranslateCmd())
	cmd.AddCommand(NewStatsCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// loadEnvFile loads path into the process environment without overriding
// variables that are already set. An empty path loads .env if it exists.
func loadEnvFile(path string) error {
	if path == "" {
		if _, err := os.Stat(defaultEnvFile); errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		path = defaultEnvFile
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load environment file %s: %w", path, err)
	}
	return nil
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

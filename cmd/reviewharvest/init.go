package main

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nao1215/reviewharvest/internal/config"
)

//go:embed templates/reviewharvest.yaml templates/languages.yaml
var templates embed.FS

// configFileName is the default configuration file name.
const configFileName = config.DefaultConfigFile

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new reviewharvest configuration file",
		Long: `Initialize creates a new .reviewharvest.yaml configuration file in the
current directory.

The generated file documents every option with its default value.
With --catalog, a sample language/region catalog is written as well.

Examples:
  # Create .reviewharvest.yaml in current directory
  reviewharvest init

  # Create config file at a specific path, plus a catalog
  reviewharvest init -o myconfig.yaml --catalog languages.yaml

  # Force overwrite existing file
  reviewharvest init -f`,
		Args: cobra.NoArgs,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", configFileName,
		"Output file path for the configuration")
	cmd.Flags().String("catalog", "",
		"Also write a sample language/region catalog to this path")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing files")

	return cmd
}

// runInitCmd executes the init command.
func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	catalogPath, err := cmd.Flags().GetString("catalog")
	if err != nil {
		return err
	}
	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	if err := writeTemplate("templates/reviewharvest.yaml", outputPath, force); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created configuration file: %s\n", outputPath)

	if catalogPath != "" {
		if err := writeTemplate("templates/languages.yaml", catalogPath, force); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created language catalog: %s\n", catalogPath)
	}

	fmt.Fprintln(cmd.OutOrStdout(), "\nEdit the configuration to set at least:")
	fmt.Fprintln(cmd.OutOrStdout(), "  - source.base_url (or use --mock for a dry run)")
	fmt.Fprintln(cmd.OutOrStdout(), "  - identity.mode and its proxies or commands")
	fmt.Fprintln(cmd.OutOrStdout(), "  - translation settings and OPENAI_API_KEY in .env")

	return nil
}

// writeTemplate copies an embedded template to path.
func writeTemplate(name, path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("file already exists: %s (use -f to overwrite)", path)
		}
	}

	content, err := templates.ReadFile(name)
	if err != nil {
		return fmt.Errorf("failed to read template: %w", err)
	}

	// Create parent directories if needed
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	if err := os.WriteFile(path, content, 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

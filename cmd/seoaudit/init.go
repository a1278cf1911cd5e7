package main

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nao1215/seoaudit/internal/config"
)

//go:embed templates/seoaudit.yaml
var configTemplate embed.FS

// configFileName is the default configuration file name.
const configFileName = config.DefaultConfigFile

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a seoaudit configuration file",
		Long: `Init writes a commented .seoaudit configuration file.

The generated file documents:
- Defaults shared by every audited site
- Per-site cookies, headers, crawl budgets and URL patterns
- The summary provider settings

Examples:
  # Create .seoaudit in the current directory
  seoaudit init

  # Create the file in the XDG config directory
  seoaudit init --global

  # Overwrite an existing file
  seoaudit init -f`,
		Args: cobra.NoArgs,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", configFileName,
		"Output file path for the configuration")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing configuration file")
	cmd.Flags().BoolP("global", "g", false,
		"Write the file to the XDG config directory instead of --output")

	return cmd
}

// runInitCmd executes the init command.
func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}
	global, err := cmd.Flags().GetBool("global")
	if err != nil {
		return err
	}
	if global {
		outputPath = filepath.Join(config.XDGConfigDir(), configFileName)
	}

	if err := writeConfigTemplate(outputPath, force); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created configuration file: %s\n", outputPath)
	fmt.Fprintln(out, "\nEdit this file to configure site-specific settings such as:")
	fmt.Fprintln(out, "  - Session cookies and headers for pages behind a login")
	fmt.Fprintln(out, "  - Crawl budget per site")
	fmt.Fprintln(out, "  - URL patterns to ignore or follow")
	fmt.Fprintln(out, "  - The summary provider")

	return nil
}

// writeConfigTemplate writes the embedded template to path. An existing
// file is only replaced when force is set.
func writeConfigTemplate(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("configuration file already exists: %s (use -f to overwrite)", path)
		}
	}

	content, err := configTemplate.ReadFile("templates/seoaudit.yaml")
	if err != nil {
		return fmt.Errorf("failed to read config template: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	// The file may later hold cookies and API keys.
	if err := os.WriteFile(path, content, 0600); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}
	return nil
}

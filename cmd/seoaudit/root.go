package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for seoaudit.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seoaudit",
		Short: "SEO auditing tool for websites",
		Long: `seoaudit crawls a website in a headless browser, analyzes each page for
metadata, content and technical health, and scores the site from 0 to 100.

Audits are saved to a local history database so that later runs can be
compared. Use 'seoaudit serve' to run audits over HTTP.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(NewAuditCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewCompareCmd())
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Package main provides the entry point for the MarketGuard CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for MarketGuard.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "marketguard",
		Short: "Scam and fraud-risk scanner for web pages",
		Long: `MarketGuard scans web pages for scam and fraud-risk content.
It samples visible page text and media, sends it to external risk-scoring
services, and flags the specific page regions that look risky.

Scans can run once (scan) or continuously against a changing page (watch).
Flagged regions are logged to a local database and kept until cleared.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewScanCmd())
	cmd.AddCommand(NewWatchCmd())
	cmd.AddCommand(NewAnchorsCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewCheckCmd())
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

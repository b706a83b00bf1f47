package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/BlueWaves-afk/marketguard.ai-sub000/internal/config"
	"github.com/BlueWaves-afk/marketguard.ai-sub000/internal/store"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history [host]",
		Short: "Show per-host risk score history",
		Long: `History shows the recorded risk scores for a host, oldest first, with
a last/average/max summary. Without a host argument it lists every host
with recorded history.

Examples:
  # List hosts with history
  marketguard history

  # Show the score trend for one host
  marketguard history shop.example`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	db, err := store.Open(config.XDGDataDir(), store.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()

	if len(args) == 0 {
		hosts, err := db.ListHosts(ctx)
		if err != nil {
			return err
		}
		if len(hosts) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No scan history recorded.")
			return nil
		}
		for _, host := range hosts {
			fmt.Fprintln(cmd.OutOrStdout(), host)
		}
		return nil
	}

	host := args[0]
	points, stats, err := db.RiskHistory(ctx, host)
	if err != nil {
		return err
	}
	if len(points) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "No scan history for %s.\n", host)
		return nil
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Risk history for %s (%d scans):\n\n", host, stats.Count)
	for _, p := range points {
		fmt.Fprintf(cmd.OutOrStdout(), "  %s  %3.0f%%  %-7s %s\n",
			p.Timestamp.Format("2006-01-02 15:04"),
			p.Score*100,
			p.Label,
			scoreBar(p.Score),
		)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "\n  last: %.0f%%  avg: %.0f%%  max: %.0f%%\n",
		stats.Last*100, stats.Avg*100, stats.Max*100)

	return nil
}

// scoreBar renders a score as a fixed-width ASCII bar.
func scoreBar(score float64) string {
	const width = 20
	filled := int(score*width + 0.5)
	if filled > width {
		filled = width
	}
	return strings.Repeat("#", filled) + strings.Repeat(".", width-filled)
}

package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/BlueWaves-afk/marketguard.ai-sub000/internal/config"
	"github.com/BlueWaves-afk/marketguard.ai-sub000/internal/service"
)

// NewCheckCmd creates the check command.
func NewCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [query]",
		Short: "Check a business name or identifier against the registry",
		Long: `Check classifies a query as a registration number, PAN, UPI handle, or
business name, then looks it up in the business registry service.

Examples:
  # Look up a business by name
  marketguard check "Blue Waves Trading"

  # Look up a registration number
  marketguard check INU12345678

  # Look up a UPI handle
  marketguard check seller@okbank`,
		Args: cobra.MinimumNArgs(1),
		RunE: runCheckCmd,
	}

	cmd.Flags().String("registry-url", "",
		"Endpoint of the business registry lookup service")
	cmd.Flags().Bool("exact", false,
		"Disable fuzzy matching")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for the registry request")

	return cmd
}

// runCheckCmd executes the check command.
func runCheckCmd(cmd *cobra.Command, args []string) error {
	registryURL, err := cmd.Flags().GetString("registry-url")
	if err != nil {
		return err
	}
	exact, err := cmd.Flags().GetBool("exact")
	if err != nil {
		return err
	}
	timeout, err := cmd.Flags().GetDuration("timeout")
	if err != nil {
		return err
	}

	verbose := getVerboseFlag(cmd)
	logger := setupLogger(verbose)
	slog.SetDefault(logger)

	query := strings.Join(args, " ")
	kind, normalized := service.ClassifyQuery(query)
	fmt.Fprintf(cmd.OutOrStdout(), "Query %q classified as %s.\n", normalized, kind)

	client := service.NewRegistryClient(registryURL,
		service.WithTimeout(timeout),
	)

	result, err := client.Lookup(cmd.Context(), query, !exact)
	if err != nil {
		return fmt.Errorf("registry lookup failed: %w", err)
	}

	if !result.Found() {
		fmt.Fprintln(cmd.OutOrStdout(), "No registry matches found.")
		return nil
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%d match(es):\n", result.Count)
	for i, m := range result.Matches {
		status := m.Status
		if status == "" {
			status = "unknown status"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "  %d. %s (%s) - %s\n",
			i+1, m.Name, m.Identifier, status)
	}

	return nil
}

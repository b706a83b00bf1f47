package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/BlueWaves-afk/marketguard.ai-sub000/internal/config"
	"github.com/BlueWaves-afk/marketguard.ai-sub000/internal/store"
)

// NewAnchorsCmd creates the anchors command.
func NewAnchorsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "anchors [url]",
		Short: "List or clear logged risky regions",
		Long: `Anchors lists the risky regions flagged by past scans. The log is
persistent: entries stay until explicitly cleared, even when later scans
no longer flag them.

Examples:
  # List all logged anchors
  marketguard anchors

  # List anchors logged for one page
  marketguard anchors https://shop.example/offers

  # Clear the log for one page
  marketguard anchors --clear https://shop.example/offers

  # Clear the whole log
  marketguard anchors --clear`,
		Args: cobra.MaximumNArgs(1),
		RunE: runAnchorsCmd,
	}

	cmd.Flags().Bool("clear", false,
		"Clear logged anchors instead of listing them")

	return cmd
}

// runAnchorsCmd executes the anchors command.
func runAnchorsCmd(cmd *cobra.Command, args []string) error {
	clear, err := cmd.Flags().GetBool("clear")
	if err != nil {
		return err
	}

	pageURL := ""
	if len(args) > 0 {
		pageURL = args[0]
	}

	db, err := store.Open(config.XDGDataDir(), store.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()

	if clear {
		if err := db.ClearAnchorLog(ctx, pageURL); err != nil {
			return err
		}
		if pageURL == "" {
			fmt.Fprintln(cmd.OutOrStdout(), "Cleared the anchor log.")
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared the anchor log for %s.\n", pageURL)
		}
		return nil
	}

	records, err := db.AnchorLog(ctx, pageURL)
	if err != nil {
		return err
	}

	if len(records) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No anchors logged.")
		return nil
	}

	for i, rec := range records {
		fmt.Fprintf(cmd.OutOrStdout(), "%d. [%s %.0f%%] %s\n",
			i+1, rec.Label, rec.Score*100, firstLine(rec.Text, 60))
		fmt.Fprintf(cmd.OutOrStdout(), "   URL:  %s\n", rec.URL)
		fmt.Fprintf(cmd.OutOrStdout(), "   Path: %s\n", rec.Path)
		fmt.Fprintf(cmd.OutOrStdout(), "   Seen: %s\n", rec.Timestamp.Format("2006-01-02 15:04:05"))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "\n%d anchor(s) logged.\n", len(records))

	return nil
}

// firstLine flattens text onto one line and truncates it for display.
func firstLine(s string, maxLen int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > maxLen {
		return s[:maxLen-3] + "..."
	}
	return s
}

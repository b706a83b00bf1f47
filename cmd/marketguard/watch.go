package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/BlueWaves-afk/marketguard.ai-sub000/internal/config"
	"github.com/BlueWaves-afk/marketguard.ai-sub000/internal/fetch"
	"github.com/BlueWaves-afk/marketguard.ai-sub000/internal/model"
	"github.com/BlueWaves-afk/marketguard.ai-sub000/internal/prefs"
	"github.com/BlueWaves-afk/marketguard.ai-sub000/internal/report"
	"github.com/BlueWaves-afk/marketguard.ai-sub000/internal/scheduler"
)

// NewWatchCmd creates the watch command.
func NewWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [url]",
		Short: "Continuously scan a web page as its content changes",
		Long: `Watch fetches a web page on a heartbeat, detects content changes by
content hash, and re-scans after changes settle. Each scan that changes
the risk picture prints an updated report.

Preferences (threshold, pause) are read from the preferences file and
picked up live when the file changes.

Examples:
  # Watch a page with the default heartbeat
  marketguard watch https://shop.example/offers

  # Check for changes every 10 seconds
  marketguard watch --interval 10s https://shop.example/offers

  # Use a specific preferences file
  marketguard watch --prefs ./prefs.yml https://shop.example/offers`,
		Args: cobra.ExactArgs(1),
		RunE: runWatchCmd,
	}

	addScanFlags(cmd)

	cmd.Flags().DurationP("interval", "i", config.DefaultHeartbeatInterval,
		"How often to check the page for content changes")
	cmd.Flags().String("prefs", "",
		"Preferences file path (default: prefs.yml in the XDG config directory)")

	return cmd
}

// runWatchCmd executes the watch command.
func runWatchCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	cfg.HeartbeatInterval, err = cmd.Flags().GetDuration("interval")
	if err != nil {
		return err
	}

	prefsPath, err := cmd.Flags().GetString("prefs")
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	verbose := getVerboseFlag(cmd)
	logger := setupLogger(verbose)
	slog.SetDefault(logger)

	ctx, cancel := signalContext(logger)
	defer cancel()

	return runWatch(ctx, cfg, logger, prefsPath)
}

// runWatch drives the continuous scan loop for one target.
func runWatch(ctx context.Context, cfg *config.Config, logger *slog.Logger, prefsPath string) error {
	target := cfg.Targets[0]

	db, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	prefStore, err := prefs.NewStore(prefsPath)
	if err != nil {
		return fmt.Errorf("failed to open preferences: %w", err)
	}
	if err := prefStore.Reload(); err != nil {
		logger.Warn("preferences unreadable, using defaults", "error", err)
	}

	siteCfg := siteConfigFor(cfg, target)
	fetcher := newFetcher(cfg, siteCfg)
	tracker := fetch.NewChangeTracker()

	onUpdate := func(r model.ScanReport, d scheduler.Decision, changed bool) {
		if !changed {
			return
		}
		writer := report.NewSimpleWriter(os.Stdout, report.WithVerbose(cfg.Verbose))
		if _, err := writer.Write(&r); err != nil {
			logger.Error("report failed", "target", target, "error", err)
		}
		if err := saveScanReport(ctx, db, &r, logger); err != nil {
			logger.Error("failed to save scan report", "target", target, "error", err)
		}
	}

	// The session's own heartbeat is a slow safety net; the cheap
	// hash-based poller below drives the usual rescan cadence.
	watchCfg := *cfg
	watchCfg.HeartbeatInterval = cfg.HeartbeatInterval * 10

	session := newSession(&watchCfg, logger, siteCfg, fetcher, target, onUpdate,
		scheduler.WithPrefs(prefStore.State))

	prefCh, err := prefStore.Watch(ctx, logger)
	if err != nil {
		logger.Warn("preferences watch unavailable", "error", err)
		prefCh = nil
	}

	session.Start(ctx)
	session.Trigger(scheduler.TriggerHeartbeat)

	fmt.Printf("Watching %s (checking every %s, Ctrl-C to stop)...\n",
		target, cfg.HeartbeatInterval)

	ticker := time.NewTicker(cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.Canceled) {
				fmt.Println("\nWatch stopped.")
				return nil
			}
			return ctx.Err()

		case <-ticker.C:
			page, err := fetcher.Fetch(ctx, target)
			if err != nil {
				logger.Warn("heartbeat fetch failed", "target", target, "error", err)
				continue
			}
			if tracker.Changed(page) {
				logger.Debug("content change detected", "target", target, "hash", page.Hash)
				session.Trigger(scheduler.TriggerMutation)
			}

		case st, ok := <-prefCh:
			if !ok {
				prefCh = nil
				continue
			}
			logger.Info("preferences changed",
				"threshold", st.Threshold,
				"paused", st.PauseScanning,
			)
			session.Trigger(scheduler.TriggerVisibilityRegain)
		}
	}
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/spf13/cobra"

	"github.com/BlueWaves-afk/marketguard.ai-sub000/internal/config"
	"github.com/BlueWaves-afk/marketguard.ai-sub000/internal/fetch"
	mglog "github.com/BlueWaves-afk/marketguard.ai-sub000/internal/log"
	"github.com/BlueWaves-afk/marketguard.ai-sub000/internal/media"
	"github.com/BlueWaves-afk/marketguard.ai-sub000/internal/model"
	"github.com/BlueWaves-afk/marketguard.ai-sub000/internal/report"
	"github.com/BlueWaves-afk/marketguard.ai-sub000/internal/sampler"
	"github.com/BlueWaves-afk/marketguard.ai-sub000/internal/scheduler"
	"github.com/BlueWaves-afk/marketguard.ai-sub000/internal/service"
	"github.com/BlueWaves-afk/marketguard.ai-sub000/internal/store"
)

// NewScanCmd creates the scan command.
func NewScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [url]",
		Short: "Scan web pages for scam and fraud-risk content",
		Long: `Scan fetches web pages, samples their visible text and media, and sends
the samples to external risk-scoring services. Regions that score above
the risk threshold are flagged with stable anchor identities and logged
to the local database.

Examples:
  # Scan a single page
  marketguard scan https://shop.example/offers

  # Scan multiple pages
  marketguard scan https://a.example/ https://b.example/

  # Output JSON report
  marketguard scan --json https://shop.example/offers

  # Scan media for manipulated images too
  marketguard scan --media https://shop.example/offers

  # Use a custom configuration file
  marketguard scan -c myconfig.yaml https://shop.example/offers

Configuration file (.marketguard) example:
  sites:
    shop.example:
      cookie: "session_id=abc123"
      threshold: 0.8
      skipSelectors:
        - "nav"`,
		Args: cobra.ArbitraryArgs,
		RunE: runScanCmd,
	}

	addScanFlags(cmd)

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")
	cmd.Flags().Bool("explain", false,
		"Fetch human-readable explanations for flagged regions")

	return cmd
}

// addScanFlags registers the flags shared by scan and watch.
func addScanFlags(cmd *cobra.Command) {
	// Risk service endpoints
	cmd.Flags().String("score-url", "",
		"Endpoint of the text risk-scoring service")
	cmd.Flags().String("registry-url", "",
		"Endpoint of the business registry lookup service")
	cmd.Flags().String("detection-url", "",
		"Endpoint of the media deepfake detection service")
	cmd.Flags().String("explanation-url", "",
		"Endpoint of the risk explanation service")

	// Scan behavior flags
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each service request and page fetch")
	cmd.Flags().Float64("threshold", config.DefaultThreshold,
		"Risk threshold in [0,1] or 0-100 at which regions are flagged")
	cmd.Flags().Int("max-items", config.DefaultMaxItems,
		"Maximum number of text regions sampled per scan")
	cmd.Flags().Int("item-chars", config.DefaultPerItemCharLimit,
		"Maximum characters extracted per region")
	cmd.Flags().Int("total-chars", config.DefaultTotalCharBudget,
		"Maximum combined characters sent to the scoring service per scan")
	cmd.Flags().String("lang", config.DefaultLanguage,
		"Language hint sent to the scoring service")

	// Media flags
	cmd.Flags().Bool("media", false,
		"Scan page media through deepfake detection")
	cmd.Flags().Int("media-concurrency", config.DefaultMediaConcurrency,
		"Concurrent media detection requests")
	cmd.Flags().Int("min-media-size", config.DefaultMinMediaSize,
		"Minimum declared media dimension in pixels worth analyzing")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .marketguard in current or home directory)")
}

// runScanCmd executes the scan command.
func runScanCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	verbose := getVerboseFlag(cmd)
	logger := setupLogger(verbose)
	slog.SetDefault(logger)

	explain, err := cmd.Flags().GetBool("explain")
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(logger)
	defer cancel()

	return runScan(ctx, cfg, logger, explain)
}

// signalContext returns a context canceled on SIGINT/SIGTERM.
func signalContext(logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, cancelling...")
		cancel()
	}()

	return ctx, cancel
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from cobra command flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()

	var err error

	cfg.ScoreURL, err = cmd.Flags().GetString("score-url")
	if err != nil {
		return nil, err
	}

	cfg.RegistryURL, err = cmd.Flags().GetString("registry-url")
	if err != nil {
		return nil, err
	}

	cfg.DetectionURL, err = cmd.Flags().GetString("detection-url")
	if err != nil {
		return nil, err
	}

	cfg.ExplanationURL, err = cmd.Flags().GetString("explanation-url")
	if err != nil {
		return nil, err
	}

	cfg.Timeout, err = cmd.Flags().GetDuration("timeout")
	if err != nil {
		return nil, err
	}

	cfg.Threshold, err = cmd.Flags().GetFloat64("threshold")
	if err != nil {
		return nil, err
	}

	cfg.MaxItems, err = cmd.Flags().GetInt("max-items")
	if err != nil {
		return nil, err
	}

	cfg.PerItemCharLimit, err = cmd.Flags().GetInt("item-chars")
	if err != nil {
		return nil, err
	}

	cfg.TotalCharBudget, err = cmd.Flags().GetInt("total-chars")
	if err != nil {
		return nil, err
	}

	cfg.Language, err = cmd.Flags().GetString("lang")
	if err != nil {
		return nil, err
	}

	cfg.ScanMedia, err = cmd.Flags().GetBool("media")
	if err != nil {
		return nil, err
	}

	cfg.MediaConcurrency, err = cmd.Flags().GetInt("media-concurrency")
	if err != nil {
		return nil, err
	}

	cfg.MinMediaSize, err = cmd.Flags().GetInt("min-media-size")
	if err != nil {
		return nil, err
	}

	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// Load site-specific configurations from config file.
	// If user explicitly specified a config file path, error if not found.
	// If no path specified, silently use empty config if no file found.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)

	if configPath != "" {
		cfg.SiteConfigs, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	} else if explicitConfigPath {
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	} else {
		cfg.SiteConfigs = &config.File{
			Sites: make(map[string]config.SiteConfig),
		}
	}

	// Report flags only exist on scan, not watch.
	if cmd.Flags().Lookup("json") != nil {
		cfg.JSONReport, err = cmd.Flags().GetBool("json")
		if err != nil {
			return nil, err
		}

		cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown")
		if err != nil {
			return nil, err
		}

		cfg.ReportFile, err = cmd.Flags().GetString("output")
		if err != nil {
			return nil, err
		}
	}

	// Always save to database using XDG data directory
	cfg.SaveToDB = true
	cfg.DBDir = config.XDGDataDir()

	cfg.Targets = args

	return cfg, nil
}

// setupLogger creates a structured logger based on verbosity setting.
// All log output goes through the redaction handler so scored page text
// containing account or card numbers never reaches the terminal intact.
func setupLogger(verbose bool) *slog.Logger {
	return mglog.NewSecureLogger(os.Stderr, verbose)
}

// runScan executes a one-shot scan of every target.
func runScan(ctx context.Context, cfg *config.Config, logger *slog.Logger, explain bool) error {
	logger.Info("starting scan",
		"targets", len(cfg.Targets),
		"threshold", cfg.Threshold,
		"scanMedia", cfg.ScanMedia,
	)

	db, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	for _, target := range cfg.Targets {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		fmt.Printf("Scanning %s...\n", target)
		startTime := time.Now()

		scanReport, err := scanTarget(ctx, cfg, logger, target)
		if err != nil {
			logger.Error("scan failed", "target", target, "error", err)
			fmt.Fprintf(os.Stderr, "Scan error for %s: %v\n", target, err)
			continue
		}

		elapsed := time.Since(startTime)
		fmt.Printf("Scan completed in %s\n\n", elapsed.Round(time.Millisecond))

		if err := outputReport(cfg, scanReport); err != nil {
			logger.Error("report failed", "target", target, "error", err)
		}

		if explain && cfg.ExplanationURL != "" {
			printExplanations(ctx, cfg, logger, scanReport)
		}

		if err := saveScanReport(ctx, db, scanReport, logger); err != nil {
			logger.Error("failed to save scan report", "target", target, "error", err)
		}
	}

	return nil
}

// openStore opens the scan database when persistence is enabled.
// Returns nil without error when persistence is off.
func openStore(cfg *config.Config, logger *slog.Logger) (*store.Store, error) {
	if !cfg.SaveToDB {
		return nil, nil
	}
	db, err := store.Open(cfg.DBDir, store.DefaultOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	logger.Info("database opened", "dir", cfg.DBDir)
	return db, nil
}

// scanTarget runs one full scan pass against a target URL.
func scanTarget(ctx context.Context, cfg *config.Config, logger *slog.Logger, target string) (*model.ScanReport, error) {
	siteCfg := siteConfigFor(cfg, target)

	fetcher := newFetcher(cfg, siteCfg)
	session := newSession(cfg, logger, siteCfg, fetcher, target, nil)

	scanReport, err := session.ScanNow(ctx)
	if err != nil {
		return nil, err
	}
	if scanReport == nil {
		return nil, fmt.Errorf("scan produced no report for %s", target)
	}

	if mediaEnabled(cfg, siteCfg) {
		attachMediaSummary(ctx, cfg, logger, fetcher, target, scanReport)
	}

	return scanReport, nil
}

// explainLimit caps how many flagged regions are explained per scan.
// Each explanation is a service round trip.
const explainLimit = 3

// printExplanations fetches human-readable explanations for the
// top-scoring flagged regions and prints them after the report.
func printExplanations(ctx context.Context, cfg *config.Config, logger *slog.Logger, scanReport *model.ScanReport) {
	if len(scanReport.Anchors) == 0 {
		return
	}

	explainer := service.NewExplanationClient(cfg.ExplanationURL,
		service.WithTimeout(cfg.Timeout),
		service.WithUserAgent(cfg.UserAgent),
	)

	anchors := scanReport.Anchors
	if len(anchors) > explainLimit {
		anchors = anchors[:explainLimit]
	}

	fmt.Println("Why these regions were flagged:")
	for i, a := range anchors {
		text, err := explainer.Explain(ctx, a, nil)
		if err != nil {
			logger.Warn("explanation failed", "anchor", a.AnchorID, "error", err)
			continue
		}
		fmt.Printf("  %d. %s\n", i+1, text)
	}
	fmt.Println()
}

// newFetcher builds a page fetcher honoring the site configuration.
func newFetcher(cfg *config.Config, siteCfg config.SiteConfig) *fetch.Fetcher {
	opts := []fetch.FetcherOption{
		fetch.WithUserAgent(cfg.UserAgent),
		fetch.WithMaxBodySize(cfg.MaxBodySize),
	}
	if siteCfg.Cookie != "" {
		opts = append(opts, fetch.WithCookie(siteCfg.Cookie))
	}
	if len(siteCfg.Headers) > 0 {
		opts = append(opts, fetch.WithHeaders(siteCfg.Headers))
	}
	return fetch.NewFetcher(&http.Client{Timeout: cfg.Timeout}, opts...)
}

// newSession builds a scan session for a target. onUpdate, when
// non-nil, receives each completed scan pass; watch mode uses it to
// stream reports.
func newSession(cfg *config.Config, logger *slog.Logger, siteCfg config.SiteConfig, fetcher *fetch.Fetcher, target string, onUpdate scheduler.UpdateFunc, extra ...scheduler.SessionOption) *scheduler.Session {
	// Per-target copy so a site threshold override cannot leak into
	// the next target.
	targetCfg := *cfg
	if siteCfg.Threshold != 0 {
		targetCfg.Threshold = siteCfg.Threshold
	}

	budget := sampler.Budget{
		PerItemCharLimit: targetCfg.PerItemCharLimit,
		TotalCharBudget:  targetCfg.TotalCharBudget,
		MaxItems:         targetCfg.MaxItems,
		SkipSelectors:    siteCfg.SkipSelectors,
	}

	scorer := service.NewScoreClient(targetCfg.ScoreURL,
		service.WithTimeout(targetCfg.Timeout),
		service.WithUserAgent(targetCfg.UserAgent),
	)

	source := scheduler.SnapshotFunc(func(ctx context.Context) (*goquery.Document, string, error) {
		page, err := fetcher.Fetch(ctx, target)
		if err != nil {
			return nil, "", err
		}
		doc, err := fetch.Document(page)
		if err != nil {
			return nil, "", err
		}
		return doc, page.URL, nil
	})

	opts := []scheduler.SessionOption{
		scheduler.WithBudget(budget),
	}
	if onUpdate != nil {
		opts = append(opts, scheduler.WithOnUpdate(onUpdate))
	}
	opts = append(opts, extra...)

	return scheduler.NewSession(&targetCfg, logger, scorer, source, opts...)
}

// mediaEnabled reports whether media scanning applies, honoring the
// per-site override.
func mediaEnabled(cfg *config.Config, siteCfg config.SiteConfig) bool {
	if siteCfg.ScanMedia != nil {
		return *siteCfg.ScanMedia
	}
	return cfg.ScanMedia
}

// attachMediaSummary runs the media detection pipeline and records the
// verdict counts on the report. Media failures degrade the summary, not
// the scan.
func attachMediaSummary(ctx context.Context, cfg *config.Config, logger *slog.Logger, fetcher *fetch.Fetcher, target string, scanReport *model.ScanReport) {
	page, err := fetcher.Fetch(ctx, target)
	if err != nil {
		logger.Warn("media scan skipped", "target", target, "error", err)
		return
	}
	doc, err := fetch.Document(page)
	if err != nil {
		logger.Warn("media scan skipped", "target", target, "error", err)
		return
	}

	base, err := url.Parse(page.URL)
	if err != nil {
		base = nil
	}

	detector := service.NewDetectionClient(cfg.DetectionURL,
		service.WithTimeout(cfg.Timeout),
		service.WithUserAgent(cfg.UserAgent),
	)
	pipeline := media.NewPipeline(detector,
		media.WithLogger(logger),
		media.WithUserAgent(cfg.UserAgent),
		media.WithConcurrency(cfg.MediaConcurrency),
		media.WithMinSize(cfg.MinMediaSize),
		media.WithMaxBytes(cfg.MaxBodySize),
	)

	summary, err := pipeline.Scan(ctx, doc, base)
	if err != nil {
		logger.Warn("media scan aborted", "target", target, "error", err)
		return
	}
	scanReport.Media = summary
}

// siteConfigFor returns the merged site configuration for a target URL.
func siteConfigFor(cfg *config.Config, target string) config.SiteConfig {
	if cfg.SiteConfigs == nil {
		return config.SiteConfig{}
	}
	host := target
	if u, err := url.Parse(target); err == nil && u.Host != "" {
		host = u.Host
	}
	return cfg.SiteConfigs.GetSiteConfig(host)
}

// outputReport outputs the scan report in the requested format.
func outputReport(cfg *config.Config, scanReport *model.ScanReport) error {
	var output *os.File
	if cfg.ReportFile != "" {
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		// Reports carry sampled page text, which may include personal
		// data worth protecting with owner-only permissions.
		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	} else {
		output = os.Stdout
	}

	var writer report.Writer
	switch {
	case cfg.JSONReport:
		writer = report.NewFullJSONWriter(output, getVersion(), report.WithPrettyPrint())
	case cfg.MarkdownReport:
		writer = report.NewMarkdownWriter(output)
	default:
		writer = report.NewSimpleWriter(output, report.WithVerbose(cfg.Verbose))
	}

	_, err := writer.Write(scanReport)
	return err
}

// saveScanReport persists the scan report and its anchors.
// If db is nil, this function is a no-op.
func saveScanReport(ctx context.Context, db *store.Store, scanReport *model.ScanReport, logger *slog.Logger) error {
	if db == nil {
		return nil
	}

	if err := db.SaveReport(ctx, scanReport); err != nil {
		return fmt.Errorf("failed to save scan report: %w", err)
	}
	if err := db.LogAnchors(ctx, scanReport.URL, scanReport.Anchors); err != nil {
		return fmt.Errorf("failed to log anchors: %w", err)
	}

	logger.Info("scan report saved to database",
		"target", scanReport.URL,
		"anchors", len(scanReport.Anchors),
	)
	return nil
}

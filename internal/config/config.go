package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
// These values mirror the behavior of the browser-side scanner the engine
// was modeled after, where applicable.
const (
	// DefaultHeartbeatInterval is how often watch mode re-checks a page for
	// content changes. Three seconds is frequent enough to catch dynamic
	// pages while keeping request volume polite.
	DefaultHeartbeatInterval = 3 * time.Second

	// DefaultMutationDebounce is the quiet period after a detected content
	// change before a rescan is scheduled. Rapid successive changes collapse
	// into a single scan.
	DefaultMutationDebounce = 300 * time.Millisecond

	// DefaultEditableDebounce is the longer quiet period used while an
	// editable region is being modified. Typing produces a mutation burst
	// per keystroke, so scans are deferred more aggressively.
	DefaultEditableDebounce = 900 * time.Millisecond

	// DefaultPerItemCharLimit caps the text extracted from a single sampled
	// element. Longer text is truncated, not dropped, so a long scam pitch
	// still contributes its opening characters.
	DefaultPerItemCharLimit = 800

	// DefaultTotalCharBudget caps the combined text sent to the scoring
	// service per scan. This bounds request size and scoring latency on
	// text-heavy pages.
	DefaultTotalCharBudget = 12000

	// DefaultMaxItems caps the number of sampled candidates per scan.
	// Pages with thousands of small elements are sampled in document order
	// up to this limit.
	DefaultMaxItems = 500

	// DefaultThreshold is the risk score at or above which an anchor is
	// surfaced. Scores are normalized to [0,1]; 0.6 is the boundary between
	// MEDIUM and HIGH risk.
	DefaultThreshold = 0.6

	// DefaultTimeout is the per-request timeout for risk service calls and
	// page fetches. Scoring a full sample set is a single round trip, so
	// 30 seconds accommodates slow models without hanging forever.
	DefaultTimeout = 30 * time.Second

	// DefaultMediaConcurrency is the number of concurrent media detection
	// requests. Media files are large; unbounded parallelism would spike
	// memory and overwhelm the detection service.
	DefaultMediaConcurrency = 4

	// DefaultMinMediaSize is the minimum rendered dimension (width or
	// height, in pixels) for an image or video to be considered worth
	// analyzing. Tracking pixels and tiny icons are skipped.
	DefaultMinMediaSize = 32

	// AppName is the application name used for XDG directory paths.
	AppName = "marketguard"

	// DefaultUserAgent identifies marketguard in HTTP requests.
	// A descriptive User-Agent lets site operators identify scanner traffic.
	DefaultUserAgent = "marketguard/1.0 (+https://github.com/BlueWaves-afk/marketguard.ai-sub000)"

	// DefaultMaxBodySize limits the maximum response body size to read.
	// 5MB is sufficient for most HTML pages while preventing memory
	// exhaustion from unexpectedly large responses.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// DefaultLanguage is the language hint sent to the scoring service.
	DefaultLanguage = "en"
)

// Config holds all configuration options for marketguard.
// This struct is designed to be populated from CLI flags and passed through
// the application via dependency injection rather than global state.
//
// Design decision: We use a single flat struct instead of nested structs
// (e.g., SamplerConfig, ServiceConfig) for simplicity. The number of options
// is manageable, and nesting would add complexity without significant benefit.
// If the configuration grows significantly, consider refactoring into sub-structs.
type Config struct {
	// ScoreURL is the endpoint of the NLP risk scoring service.
	// The scan pipeline POSTs sampled text items here and receives
	// per-item scores. If empty, scans fail with ErrNoScoreEndpoint.
	ScoreURL string

	// RegistryURL is the endpoint of the entity registry lookup service.
	// Used by the verify command to check registration numbers, PAN and
	// UPI identifiers against known-entity records. Optional.
	RegistryURL string

	// DetectionURL is the endpoint of the media deepfake detection service.
	// Used when media scanning is enabled. Optional.
	DetectionURL string

	// ExplanationURL is the endpoint of the risk explanation service.
	// Used to produce human-readable rationales for high scores. Optional.
	ExplanationURL string

	// Timeout is the per-request timeout for HTTP calls.
	// This applies to individual requests, not the overall scan duration.
	Timeout time.Duration

	// HeartbeatInterval is the period between content re-checks in watch mode.
	HeartbeatInterval time.Duration

	// MutationDebounce is the quiet period before rescanning after a
	// detected content change.
	MutationDebounce time.Duration

	// EditableDebounce is the quiet period used while editable content is
	// changing. Must be at least MutationDebounce.
	EditableDebounce time.Duration

	// PerItemCharLimit caps text extracted per sampled element.
	PerItemCharLimit int

	// TotalCharBudget caps combined text per scan across all items.
	TotalCharBudget int

	// MaxItems caps the number of sampled candidates per scan.
	MaxItems int

	// Threshold is the minimum normalized score for surfacing an anchor.
	// Values above 1 are treated as percentages and divided by 100, so
	// --threshold 60 and --threshold 0.6 are equivalent.
	Threshold float64

	// ScanMedia enables image/video sampling and deepfake detection.
	// Requires DetectionURL to be set.
	ScanMedia bool

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// ConfigFilePath is the path to the configuration file.
	// If empty, the tool searches for .marketguard in the current directory
	// and then in the user's home directory.
	ConfigFilePath string

	// SiteConfigs holds site-specific configurations loaded from the config
	// file. This is populated by LoadConfigFile and used during scanning.
	SiteConfigs *File

	// JSONReport enables JSON report output instead of human-readable format.
	// Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport enables Markdown report output instead of
	// human-readable format. Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path for the report.
	// When set, the report is written to this file instead of stdout.
	// Directories are created automatically if they don't exist.
	ReportFile string

	// Targets is the list of page URLs to scan.
	// Must contain at least one http or https URL.
	Targets []string

	// DBDir is the directory path for storing the SQLite database.
	// When set, scan results and per-host risk history are persisted.
	// Defaults to XDG data directory (~/.local/share/marketguard on Linux).
	DBDir string

	// SaveToDB indicates whether to save scan results to the database.
	// This is automatically set to true when DBDir is configured.
	SaveToDB bool

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes to read.
	// Responses larger than this are truncated to prevent memory exhaustion.
	// Set to 0 to use the default (5MB).
	MaxBodySize int64

	// Language is the language hint forwarded to the scoring service.
	Language string

	// MediaConcurrency is the number of concurrent media detection requests.
	MediaConcurrency int

	// MinMediaSize is the minimum rendered dimension in pixels for media
	// candidates. Smaller images and videos are skipped.
	MinMediaSize int
}

// NewConfig creates a new Config with default values.
// All fields are set to safe, sensible defaults that work for most use cases.
// Users can override specific values after creation.
//
// Design decision: We use a constructor function instead of relying on
// zero values because many defaults are non-zero (e.g., timeouts, budgets).
// This also serves as documentation of what the defaults are.
func NewConfig() *Config {
	return &Config{
		Timeout:           DefaultTimeout,
		HeartbeatInterval: DefaultHeartbeatInterval,
		MutationDebounce:  DefaultMutationDebounce,
		EditableDebounce:  DefaultEditableDebounce,
		PerItemCharLimit:  DefaultPerItemCharLimit,
		TotalCharBudget:   DefaultTotalCharBudget,
		MaxItems:          DefaultMaxItems,
		Threshold:         DefaultThreshold,
		UserAgent:         DefaultUserAgent,
		MaxBodySize:       DefaultMaxBodySize,
		Language:          DefaultLanguage,
		MediaConcurrency:  DefaultMediaConcurrency,
		MinMediaSize:      DefaultMinMediaSize,
	}
}

// XDGDataDir returns the XDG data directory for marketguard.
// This follows the XDG Base Directory Specification.
// On Linux: ~/.local/share/marketguard
// On macOS: ~/Library/Application Support/marketguard
// On Windows: %LOCALAPPDATA%\marketguard
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for marketguard.
// This follows the XDG Base Directory Specification.
// On Linux: ~/.config/marketguard
// On macOS: ~/Library/Application Support/marketguard
// On Windows: %APPDATA%\marketguard
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// XDGCacheDir returns the XDG cache directory for marketguard.
// This follows the XDG Base Directory Specification.
// On Linux: ~/.cache/marketguard
// On macOS: ~/Library/Caches/marketguard
// On Windows: %LOCALAPPDATA%\marketguard\cache
func XDGCacheDir() string {
	return filepath.Join(xdg.CacheHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns a specific error describing what is invalid.
//
// Design decision: We validate at the config level rather than at each
// point of use to fail fast and provide clear error messages upfront.
// This is called once after CLI parsing, before any scanning begins.
//
// We chose to return the first error found rather than collecting all errors
// because fixing one error often makes others irrelevant.
func (c *Config) Validate() error {
	// We must have at least one target to scan
	if len(c.Targets) == 0 {
		return ErrNoTarget
	}

	// Timeout must be positive; zero timeout would cause immediate failures
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	// Heartbeat must be positive; watch mode would spin otherwise
	if c.HeartbeatInterval <= 0 {
		return ErrInvalidHeartbeat
	}

	// Debounce windows must be non-negative; the editable window must not
	// be shorter than the normal window or typing would scan more often
	// than ordinary mutations
	if c.MutationDebounce < 0 || c.EditableDebounce < c.MutationDebounce {
		return ErrInvalidDebounce
	}

	// Sampling limits must be positive; zero budgets would produce empty scans
	if c.PerItemCharLimit <= 0 || c.TotalCharBudget <= 0 || c.MaxItems <= 0 {
		return ErrInvalidSampleLimits
	}

	// Threshold accepts [0,1] or percentage form up to 100
	if c.Threshold < 0 || c.Threshold > 100 {
		return ErrInvalidThreshold
	}

	// JSONReport and MarkdownReport are mutually exclusive
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	// MaxBodySize must be non-negative; 0 means use the default
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	// Media scanning needs a detection endpoint and a sane worker count
	if c.ScanMedia {
		if c.DetectionURL == "" {
			return ErrNoDetectionEndpoint
		}
		if c.MediaConcurrency <= 0 {
			return ErrInvalidMediaConcurrency
		}
	}

	return nil
}

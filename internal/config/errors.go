package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and provide specific
// information about what is wrong with the configuration.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances in Validate(). This allows callers to use
// errors.Is() for programmatic error handling while still providing
// human-readable messages. Using errors.New() here rather than fmt.Errorf()
// because we don't need to include dynamic values in these messages.
var (
	// ErrNoTarget is returned when no target URL or list file is specified.
	// This error occurs when neither --list nor a positional argument
	// provides a target.
	ErrNoTarget = errors.New("no target specified: provide a page URL or use --list")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	// A timeout of zero or negative would cause immediate request failures.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidHeartbeat is returned when the heartbeat interval is not
	// positive. Watch mode would busy-loop with a zero interval.
	ErrInvalidHeartbeat = errors.New("invalid heartbeat interval: must be positive")

	// ErrInvalidDebounce is returned when the debounce windows are
	// inconsistent. The editable window must be at least as long as the
	// normal mutation window.
	ErrInvalidDebounce = errors.New("invalid debounce: editable window must be >= mutation window and both non-negative")

	// ErrInvalidSampleLimits is returned when any sampling limit is not
	// positive. Zero limits would produce empty scans.
	ErrInvalidSampleLimits = errors.New("invalid sample limits: per-item limit, total budget, and max items must be positive")

	// ErrInvalidThreshold is returned when the risk threshold is outside
	// [0,100]. Values above 1 are interpreted as percentages.
	ErrInvalidThreshold = errors.New("invalid threshold: must be in [0,1] or percentage form in (1,100]")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified. Only one output format can be used at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	// A negative body size is invalid; use 0 to use the default limit.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrNoDetectionEndpoint is returned when media scanning is enabled
	// without a detection service endpoint configured.
	ErrNoDetectionEndpoint = errors.New("media scanning enabled but no detection endpoint configured")

	// ErrInvalidMediaConcurrency is returned when the media worker count is
	// not positive while media scanning is enabled.
	ErrInvalidMediaConcurrency = errors.New("invalid media concurrency: must be positive")
)

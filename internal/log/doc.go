// Package log provides secure logging utilities for MarketGuard.
//
// The scanner's log stream routinely carries fragments of scraped page
// content. That content can include payment identifiers (UPI handles, PAN
// numbers), session cookies, and service credentials, none of which belong
// in log files. SecureHandler wraps any slog.Handler and masks attribute
// values that match sensitive key names or value patterns before the record
// reaches the underlying handler.
//
// Typical usage:
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	slog.SetDefault(logger)
//
// Components receive a plain *slog.Logger and need no knowledge of the
// sanitization layer.
package log

// Package prefs manages persistent user preferences for marketguard.
// Preferences are stored as a YAML file in the XDG config directory and can
// be watched for external edits, so a long-running watch session picks up
// threshold or pause changes without a restart.
package prefs

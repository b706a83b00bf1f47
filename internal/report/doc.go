// Package report renders scan results in multiple output formats.
// It provides human-readable text for terminal display, JSON for tool
// integration, and Markdown for documentation and sharing.
package report
